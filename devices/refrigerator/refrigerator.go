// Package refrigerator drives LG refrigerators.
package refrigerator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/model"
	"github.com/ollo69/wideq-go/thinq"
)

// TempUnit is the temperature scale reported by the device.
type TempUnit string

const (
	UnitNone   TempUnit = ""
	Celsius    TempUnit = "C"
	Fahrenheit TempUnit = "F"
)

// tempUnitSymbols maps the descriptor's unit glyphs onto scales.
var tempUnitSymbols = map[string]TempUnit{
	"Ｆ":  Fahrenheit, // Ｆ
	"℃":  Celsius,    // ℃
	"˚F": Fahrenheit,
	"˚C": Celsius,
}

// featureDescr renames well-known visible items.
var featureDescr = map[string]string{
	"@RE_TERM_EXPRESS_FREEZE_W": "express_freeze",
	"@RE_TERM_EXPRESS_FRIDGE_W": "express_cool",
	"@RE_TERM_ICE_PLUS_W":       "ice_plus",
}

var (
	defaultFridgeRangeC  = []int{1, 10}
	defaultFridgeRangeF  = []int{30, 45}
	defaultFreezerRangeC = []int{-24, -14}
	defaultFreezerRangeF = []int{-8, 6}
)

const rootData = "refState"

var ctrlBasic = device.Key{"Control", "basicCtrl"}

var (
	stateEcoFriendly   = device.Key{"EcoFriendly", "ecoFriendly"}
	stateIcePlus       = device.Key{"IcePlus", ""}
	stateExpressFridge = device.Key{"", "expressFridge"}
	stateExpressMode   = device.Key{"", "expressMode"}
	stateFridgeTemp    = device.Key{"TempRefrigerator", "fridgeTemp"}
	stateFreezerTemp   = device.Key{"TempFreezer", "freezerTemp"}
)

var setControlCmd = device.Key{"SetControl", "basicCtrl"}

var (
	cmdEcoFriendly   = device.CmdKey{Ctrl: ctrlBasic, Cmd: setControlCmd, Key: stateEcoFriendly}
	cmdIcePlus       = device.CmdKey{Ctrl: ctrlBasic, Cmd: setControlCmd, Key: stateIcePlus}
	cmdExpressFridge = device.CmdKey{Ctrl: ctrlBasic, Cmd: setControlCmd, Key: stateExpressFridge}
	cmdExpressMode   = device.CmdKey{Ctrl: ctrlBasic, Cmd: setControlCmd, Key: stateExpressMode}
	cmdFridgeTemp    = device.CmdKey{Ctrl: ctrlBasic, Cmd: setControlCmd, Key: stateFridgeTemp}
	cmdFreezerTemp   = device.CmdKey{Ctrl: ctrlBasic, Cmd: setControlCmd, Key: stateFreezerTemp}
)

// Device is the refrigerator facade.
type Device struct {
	*device.Base
	log *logrus.Entry

	tempUnit      TempUnit
	fridgeTemps   map[string]string
	fridgeRanges  []int
	freezerTemps  map[string]string
	freezerRanges []int

	status *Status
}

// New creates a refrigerator facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	d := &Device{
		Base: device.NewBase(client, info),
		log:  logrus.WithField("device", info.Name()),
	}
	d.status = newStatus(d, nil)
	d.PrepareCommand = d.prepareCommand
	d.FeatureTitle = d.featureTitle
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

func (d *Device) featureInfo(itemKey string) map[string]any {
	config, ok := d.Model().ConfigValue("visibleItems").([]any)
	if !ok {
		return nil
	}
	featureKey := "Feature"
	if d.Model().IsV2() {
		featureKey = "feature"
	}
	for _, raw := range config {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if value, _ := item[featureKey].(string); value != "" && value == itemKey {
			return item
		}
	}
	return nil
}

func (d *Device) featureTitle(featureName, itemKey string) string {
	itemInfo := d.featureInfo(itemKey)
	if itemInfo == nil {
		return ""
	}
	titleKey := "Title"
	if d.Model().IsV2() {
		titleKey = "monTitle"
	}
	titleValue, _ := itemInfo[titleKey].(string)
	if titleValue == "" {
		return featureName
	}
	if descr, ok := featureDescr[titleValue]; ok {
		return descr
	}
	return featureName
}

func (d *Device) prepareCommandV1(cmd map[string]any, key string, value any) map[string]any {
	dataKey := "value"
	if v, _ := cmd[dataKey].(string); v == "ControlData" {
		dataKey = "data"
	}
	strData, _ := cmd[dataKey].(string)
	if strData == "" {
		return cmd
	}

	for dtKey, dtValue := range d.status.Data() {
		if dtKey == key {
			dtValue = value
		}
		strData = strings.ReplaceAll(strData, "{{"+dtKey+"}}", asString(dtValue))
	}

	if d.Model().BinaryControlData() {
		var byteList []int
		if err := json.Unmarshal([]byte(strData), &byteList); err != nil {
			d.log.WithError(err).Debug("decoding binary control data")
			return cmd
		}
		raw := make([]byte, len(byteList))
		for i, b := range byteList {
			raw[i] = byte(b)
		}
		cmd["format"] = "B64"
		cmd[dataKey] = base64.StdEncoding.EncodeToString(raw)
		return cmd
	}

	var jsonData any
	if err := json.Unmarshal([]byte(strData), &jsonData); err != nil {
		d.log.WithError(err).Debug("decoding control data")
		return cmd
	}
	cmd[dataKey] = jsonData
	return cmd
}

func (d *Device) prepareCommandV2(cmd map[string]any, key string, value any) map[string]any {
	dataSet, _ := cmd["data"].(map[string]any)
	delete(cmd, "data")
	if dataSet == nil {
		dataSet = map[string]any{rootData: map[string]any{key: value}}
	} else if root, ok := dataSet[rootData].(map[string]any); ok {
		for cmdKey := range root {
			if cmdKey == key {
				root[cmdKey] = value
			} else {
				root[cmdKey] = "IGNORE"
			}
		}
	}
	cmd["dataSetList"] = dataSet
	return cmd
}

func (d *Device) prepareCommand(ctrlKey, command, key string, value any) map[string]any {
	cmd, ok := d.Model().ControlCommand(command, ctrlKey)
	if !ok {
		return nil
	}
	if d.Model().IsV2() {
		return d.prepareCommandV2(cmd, key, value)
	}
	return d.prepareCommandV1(cmd, key, value)
}

func (d *Device) setTempUnit(unit TempUnit) {
	if unit == UnitNone {
		return
	}
	if unit != d.tempUnit {
		d.tempUnit = unit
		d.fridgeTemps = nil
		d.freezerTemps = nil
	}
}

func (d *Device) getTempsV1(key string) map[string]string {
	if d.tempUnit != UnitNone {
		unitKey := key + "_C"
		if d.tempUnit == Fahrenheit {
			unitKey = key + "_F"
		}
		if d.Model().ValueExists(unitKey) {
			key = unitKey
		}
	}
	if d.Model().ValueType(key) != model.TypeEnum {
		return map[string]string{}
	}
	options, _ := d.Model().EnumOptions(key)
	return options
}

func (d *Device) getTempsV2(key, unitKey string) map[string]string {
	if unitKey != "" {
		if refKey := d.Model().TargetKey(key, unitKey, "tempUnit"); refKey != "" {
			key = refKey
		}
	}
	if d.Model().ValueType(key) != model.TypeEnum {
		return map[string]string{}
	}
	options, _ := d.Model().EnumOptions(key)
	temps := make(map[string]string, len(options))
	for k, v := range options {
		if v != "IGNORE" {
			temps[k] = v
		}
	}
	return temps
}

func tempRanges(temps map[string]string) []int {
	minVal, maxVal := 100, -100
	for _, value := range temps {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		if intVal < minVal {
			minVal = intVal
		}
		if intVal > maxVal {
			maxVal = intVal
		}
	}
	if minVal > maxVal {
		return nil
	}
	return []int{minVal, maxVal}
}

// tempKeyFor reverse-maps a temperature value onto its encoded key.
func tempKeyFor(temps map[string]string, value float64) (int, bool) {
	strVal := strconv.Itoa(int(value))
	for key, tempVal := range temps {
		if strVal == tempVal {
			intKey, err := strconv.Atoi(key)
			if err != nil {
				return 0, false
			}
			return intKey, true
		}
	}
	return 0, false
}

// FridgeTemps returns the valid encoded fridge temperatures.
func (d *Device) FridgeTemps(unit TempUnit, unitKey string) map[string]string {
	d.setTempUnit(unit)
	if d.fridgeTemps == nil {
		key := d.StateKey(stateFridgeTemp)
		if d.Model().IsV2() {
			d.fridgeTemps = d.getTempsV2(key, unitKey)
		} else {
			d.fridgeTemps = d.getTempsV1(key)
		}
		d.fridgeRanges = tempRanges(d.fridgeTemps)
	}
	return d.fridgeTemps
}

// FreezerTemps returns the valid encoded freezer temperatures.
func (d *Device) FreezerTemps(unit TempUnit, unitKey string) map[string]string {
	d.setTempUnit(unit)
	if d.freezerTemps == nil {
		key := d.StateKey(stateFreezerTemp)
		if d.Model().IsV2() {
			d.freezerTemps = d.getTempsV2(key, unitKey)
		} else {
			d.freezerTemps = d.getTempsV1(key)
		}
		d.freezerRanges = tempRanges(d.freezerTemps)
	}
	return d.freezerTemps
}

// TargetTemperatureStep returns the temperature step the device accepts.
func (d *Device) TargetTemperatureStep() int { return 1 }

// FridgeTargetTempRange returns the allowed fridge target temperatures.
func (d *Device) FridgeTargetTempRange() []int {
	if d.fridgeRanges == nil {
		if d.tempUnit == Fahrenheit {
			return defaultFridgeRangeF
		}
		return defaultFridgeRangeC
	}
	return d.fridgeRanges
}

// FreezerTargetTempRange returns the allowed freezer target temperatures.
func (d *Device) FreezerTargetTempRange() []int {
	if d.freezerRanges == nil {
		if d.tempUnit == Fahrenheit {
			return defaultFreezerRangeF
		}
		return defaultFreezerRangeC
	}
	return d.freezerRanges
}

// SetValuesAllowed reports whether settings can be changed right now.
func (d *Device) SetValuesAllowed() bool {
	if d.status == nil || !d.status.IsOn() || d.status.EcoFriendlyEnabled() {
		return false
	}
	return true
}

func (d *Device) setFeature(ctx context.Context, turnOn bool, stateKey device.Key, ck device.CmdKey) error {
	statusKey := d.StateKey(stateKey)
	if statusKey == "" {
		return nil
	}
	statusName := device.LabelBitOff
	if turnOn {
		statusName = device.LabelBitOn
	}
	statusValue := d.Model().EnumValue(statusKey, statusName)
	if statusValue == "" {
		return nil
	}
	ctrl, cmd, key := d.CmdKeys(ck)
	err := d.Set(ctx, ctrl, cmd, device.SetOptions{Key: key, Value: statusValue})
	if err != nil {
		return err
	}
	d.status.UpdateStatusFeat(statusKey, statusValue, true)
	return nil
}

// SetEcoFriendly switches the eco friendly mode.
func (d *Device) SetEcoFriendly(ctx context.Context, turnOn bool) error {
	return d.setFeature(ctx, turnOn, stateEcoFriendly, cmdEcoFriendly)
}

// SetIcePlus switches the ice plus mode, thinq1 only.
func (d *Device) SetIcePlus(ctx context.Context, turnOn bool) error {
	if d.Model().IsV2() || !d.SetValuesAllowed() {
		return nil
	}
	return d.setFeature(ctx, turnOn, stateIcePlus, cmdIcePlus)
}

// SetExpressFridge switches the express fridge mode, thinq2 only.
func (d *Device) SetExpressFridge(ctx context.Context, turnOn bool) error {
	if !d.Model().IsV2() || !d.SetValuesAllowed() {
		return nil
	}
	return d.setFeature(ctx, turnOn, stateExpressFridge, cmdExpressFridge)
}

// SetExpressMode switches the express mode, thinq2 only.
func (d *Device) SetExpressMode(ctx context.Context, turnOn bool) error {
	if !d.Model().IsV2() || !d.SetValuesAllowed() {
		return nil
	}
	return d.setFeature(ctx, turnOn, stateExpressMode, cmdExpressMode)
}

func (d *Device) setTargetTemp(ctx context.Context, temps map[string]string, temp float64, stateKey device.Key, ck device.CmdKey, what string) error {
	if !d.SetValuesAllowed() {
		return nil
	}
	tempKey, ok := tempKeyFor(temps, temp)
	if !ok {
		return fmt.Errorf("refrigerator %s: target %s temperature not valid: %v",
			d.UniqueID(), what, temp)
	}
	var value any = tempKey
	if !d.Model().IsV2() {
		value = strconv.Itoa(tempKey)
	}
	statusKey := d.StateKey(stateKey)
	ctrl, cmd, key := d.CmdKeys(ck)
	err := d.Set(ctx, ctrl, cmd, device.SetOptions{Key: key, Value: value})
	if err != nil {
		return err
	}
	d.status.UpdateStatusFeat(statusKey, value, false)
	return nil
}

// SetFridgeTargetTemp sets the fridge target temperature.
func (d *Device) SetFridgeTargetTemp(ctx context.Context, temp float64) error {
	return d.setTargetTemp(ctx, d.fridgeTemps, temp, stateFridgeTemp, cmdFridgeTemp, "fridge")
}

// SetFreezerTargetTemp sets the freezer target temperature.
func (d *Device) SetFreezerTargetTemp(ctx context.Context, temp float64) error {
	return d.setTargetTemp(ctx, d.freezerTemps, temp, stateFreezerTemp, cmdFreezerTemp, "freezer")
}

// ResetStatus clears the last polled status.
func (d *Device) ResetStatus() *Status {
	d.status = newStatus(d, nil)
	return d.status
}

// Poll fetches the device's current status.
func (d *Device) Poll(ctx context.Context) (*Status, error) {
	res, err := d.PollData(ctx, device.PollOptions{SnapshotKey: rootData})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	d.status = newStatus(d, res)
	return d.status, nil
}

func asString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(n)
	}
}
