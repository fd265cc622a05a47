// Package ac drives LG air conditioners and AWHP (air-to-water heat pump)
// units.
package ac

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

// TempUnit selects the temperature scale exposed by the facade.
type TempUnit string

const (
	Celsius    TempUnit = "C"
	Fahrenheit TempUnit = "F"
)

// Support keys advertising optional capabilities.
var (
	supportOperationMode = device.Key{"SupportOpMode", "support.airState.opMode"}
	supportWindStrength  = device.Key{"SupportWindStrength", "support.airState.windStrength"}
	supportDuctZone      = device.Key{"SupportDuctZoneType", "support.airState.ductZone.type"}
	supportPACMode       = device.Key{"SupportPACMode", "support.pacMode"}
	supportRACMode       = device.Key{"SupportRACMode", "support.racMode"}
	supportRACSubMode    = device.Key{"SupportRACSubMode", "support.racSubMode"}
)

type supportEntry struct {
	key   device.Key
	label string
}

var (
	supportVaneHStep  = supportEntry{supportRACSubMode, "@AC_MAIN_WIND_DIRECTION_STEP_LEFT_RIGHT_W"}
	supportVaneVStep  = supportEntry{supportRACSubMode, "@AC_MAIN_WIND_DIRECTION_STEP_UP_DOWN_W"}
	supportVaneHSwing = supportEntry{supportRACSubMode, "@AC_MAIN_WIND_DIRECTION_SWING_LEFT_RIGHT_W"}
	supportVaneVSwing = supportEntry{supportRACSubMode, "@AC_MAIN_WIND_DIRECTION_SWING_UP_DOWN_W"}
	supportJetCool    = supportEntry{supportRACSubMode, "@AC_MAIN_WIND_MODE_COOL_JET_W"}
	supportJetHeat    = supportEntry{supportRACSubMode, "@AC_MAIN_WIND_MODE_HEAT_JET_W"}
	supportAirClean   = supportEntry{supportRACMode, "@AIRCLEAN"}
	supportHotWater   = supportEntry{supportPACMode, "@HOTWATER"}
)

// Control channels.
var (
	ctrlBasic         = device.Key{"Control", "basicCtrl"}
	ctrlWindDirection = device.Key{"Control", "wDirCtrl"}
	ctrlMisc          = device.Key{"Control", "miscCtrl"}
)

const ctrlFilterV2 = "filterMngStateCtrl"

// thinq1-only state keys.
const (
	ductZoneV1     = "DuctZone"
	ductZoneV1Type = "DuctZoneType"
	stateFilterV1  = "Filter"
	filterV1Max    = "FilterMax"
	filterV1Use    = "FilterUse"
	statePowerV1   = "InOutInstantPower"
)

// State keys.
var (
	stateOperation       = device.Key{"Operation", "airState.operation"}
	stateOperationMode   = device.Key{"OpMode", "airState.opMode"}
	stateCurrentTemp     = device.Key{"TempCur", "airState.tempState.current"}
	stateTargetTemp      = device.Key{"TempCfg", "airState.tempState.target"}
	stateWindStrength    = device.Key{"WindStrength", "airState.windStrength"}
	stateWDirHStep       = device.Key{"WDirHStep", "airState.wDir.hStep"}
	stateWDirVStep       = device.Key{"WDirVStep", "airState.wDir.vStep"}
	stateWDirHSwing      = device.Key{"WDirLeftRight", "airState.wDir.leftRight"}
	stateWDirVSwing      = device.Key{"WDirUpDown", "airState.wDir.upDown"}
	stateDuctZone        = device.Key{"ZoneControl", "airState.ductZone.state"}
	statePower           = device.Key{statePowerV1, "airState.energy.onCurrent"}
	stateHumidity        = device.Key{"SensorHumidity", "airState.humidity.current"}
	stateModeAirClean    = device.Key{"AirClean", "airState.wMode.airClean"}
	stateModeJet         = device.Key{"Jet", "airState.wMode.jet"}
	stateLightingDisplay = device.Key{"DisplayControl", "airState.lightingState.displayControl"}
	stateFilterUse       = device.Key{filterV1Use, "airState.filterMngStates.useTime"}
	stateFilterMax       = device.Key{filterV1Max, "airState.filterMngStates.maxTime"}
)

// AWHP state keys.
var (
	stateWaterInTemp        = device.Key{"WaterInTempCur", "airState.tempState.inWaterCurrent"}
	stateWaterOutTemp       = device.Key{"WaterTempCur", "airState.tempState.outWaterCurrent"}
	stateWaterMinTemp       = device.Key{"WaterHeatMinTemp", "airState.tempState.waterTempCoolMin"}
	stateWaterMaxTemp       = device.Key{"WaterHeatMaxTemp", "airState.tempState.waterTempHeatMax"}
	stateHotWaterTemp       = device.Key{"HotWaterTempCur", "airState.tempState.hotWaterCurrent"}
	stateHotWaterTargetTemp = device.Key{"HotWaterTempCfg", "airState.tempState.hotWaterTarget"}
	stateHotWaterMinTemp    = device.Key{"HotWaterMinTemp", "airState.tempState.hotWaterTempMin"}
	stateHotWaterMaxTemp    = device.Key{"HotWaterMaxTemp", "airState.tempState.hotWaterTempMax"}
	stateHotWaterMode       = device.Key{"HotWater", "airState.miscFuncState.hotWater"}
	stateModeAWHPSilent     = device.Key{"SilentMode", "airState.miscFuncState.silentAWHP"}
)

// Commands.
var (
	cmdOperation          = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperation}
	cmdOpMode             = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperationMode}
	cmdTargetTemp         = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateTargetTemp}
	cmdWindStrength       = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateWindStrength}
	cmdWDirHStep          = device.CmdKey{Ctrl: ctrlWindDirection, Cmd: device.K("Set"), Key: stateWDirHStep}
	cmdWDirVStep          = device.CmdKey{Ctrl: ctrlWindDirection, Cmd: device.K("Set"), Key: stateWDirVStep}
	cmdWDirHSwing         = device.CmdKey{Ctrl: ctrlWindDirection, Cmd: device.K("Set"), Key: stateWDirHSwing}
	cmdWDirVSwing         = device.CmdKey{Ctrl: ctrlWindDirection, Cmd: device.K("Set"), Key: stateWDirVSwing}
	cmdDuctZones          = device.CmdKey{Ctrl: ctrlMisc, Cmd: device.K("Set"), Key: device.Key{ductZoneV1, "airState.ductZone.control"}}
	cmdModeAirClean       = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateModeAirClean}
	cmdModeJet            = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateModeJet}
	cmdLightingDisplay    = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateLightingDisplay}
	cmdHotWaterMode       = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateHotWaterMode}
	cmdHotWaterTargetTemp = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateHotWaterTargetTemp}
	cmdModeAWHPSilent     = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateModeAWHPSilent}
	cmdEnableEventV2      = device.CmdKey{Ctrl: device.K("allEventEnable"), Cmd: device.K("Set"), Key: device.K("airState.mon.timeout")}
)

const (
	defaultMinTemp = 16.0
	defaultMaxTemp = 30.0
	awhpMinTemp    = 5.0
	awhpMaxTemp    = 80.0

	tempStepWhole = 1.0
	tempStepHalf  = 0.5

	addFeaturePollInterval = 5 * time.Minute

	lightingDisplayOff = "0"
	lightingDisplayOn  = "1"

	modeOff = "@OFF"
	modeOn  = "@ON"

	modeAirCleanOff = "@AC_MAIN_AIRCLEAN_OFF_W"
	modeAirCleanOn  = "@AC_MAIN_AIRCLEAN_ON_W"

	zoneOff = "0"
	zoneOn  = "1"
)

// Operation labels.
const (
	opOff     = "@AC_MAIN_OPERATION_OFF_W"
	opOn      = "@AC_MAIN_OPERATION_ON_W"
	opRightOn = "@AC_MAIN_OPERATION_RIGHT_ON_W"
	opLeftOn  = "@AC_MAIN_OPERATION_LEFT_ON_W"
	opAllOn   = "@AC_MAIN_OPERATION_ALL_ON_W"
)

var operationNames = map[string]string{
	opOff:     "OFF",
	opOn:      "ON",
	opRightOn: "RIGHT_ON",
	opLeftOn:  "LEFT_ON",
	opAllOn:   "ALL_ON",
}

// acModes maps mode names to descriptor labels.
var acModes = map[string]string{
	"COOL":          "@AC_MAIN_OPERATION_MODE_COOL_W",
	"DRY":           "@AC_MAIN_OPERATION_MODE_DRY_W",
	"FAN":           "@AC_MAIN_OPERATION_MODE_FAN_W",
	"HEAT":          "@AC_MAIN_OPERATION_MODE_HEAT_W",
	"ACO":           "@AC_MAIN_OPERATION_MODE_ACO_W",
	"AI":            "@AC_MAIN_OPERATION_MODE_AI_W",
	"AIRCLEAN":      "@AC_MAIN_OPERATION_MODE_AIRCLEAN_W",
	"AROMA":         "@AC_MAIN_OPERATION_MODE_AROMA_W",
	"ENERGY_SAVING": "@AC_MAIN_OPERATION_MODE_ENERGY_SAVING_W",
	"ENERGY_SAVER":  "@AC_MAIN_OPERATION_MODE_ENERGY_SAVER_W",
}

var fanSpeeds = map[string]string{
	"SLOW":     "@AC_MAIN_WIND_STRENGTH_SLOW_W",
	"SLOW_LOW": "@AC_MAIN_WIND_STRENGTH_SLOW_LOW_W",
	"LOW":      "@AC_MAIN_WIND_STRENGTH_LOW_W",
	"LOW_MID":  "@AC_MAIN_WIND_STRENGTH_LOW_MID_W",
	"MID":      "@AC_MAIN_WIND_STRENGTH_MID_W",
	"MID_HIGH": "@AC_MAIN_WIND_STRENGTH_MID_HIGH_W",
	"HIGH":     "@AC_MAIN_WIND_STRENGTH_HIGH_W",
	"POWER":    "@AC_MAIN_WIND_STRENGTH_POWER_W",
	"AUTO":     "@AC_MAIN_WIND_STRENGTH_AUTO_W",
	"NATURE":   "@AC_MAIN_WIND_STRENGTH_NATURE_W",
	"R_LOW":    "@AC_MAIN_WIND_STRENGTH_LOW_RIGHT_W",
	"R_MID":    "@AC_MAIN_WIND_STRENGTH_MID_RIGHT_W",
	"R_HIGH":   "@AC_MAIN_WIND_STRENGTH_HIGH_RIGHT_W",
	"L_LOW":    "@AC_MAIN_WIND_STRENGTH_LOW_LEFT_W",
	"L_MID":    "@AC_MAIN_WIND_STRENGTH_MID_LEFT_W",
	"L_HIGH":   "@AC_MAIN_WIND_STRENGTH_HIGH_LEFT_W",
}

// Vertical blades are numbered 1 (top) to 6; swing is 100.
var vStepModes = map[string]string{
	"OFF":            "@OFF",
	"TOP":            "@1",
	"MIDDLE_TOP1":    "@2",
	"MIDDLE_TOP2":    "@3",
	"MIDDLE_BOTTOM2": "@4",
	"MIDDLE_BOTTOM1": "@5",
	"BOTTOM":         "@6",
	"SWING":          "@100",
}

// Horizontal blades are numbered 1 (leftmost) to 5; halves are 13 and 35,
// swing is 100.
var hStepModes = map[string]string{
	"OFF":          "@OFF",
	"LEFT":         "@1",
	"MIDDLE_LEFT":  "@2",
	"CENTER":       "@3",
	"MIDDLE_RIGHT": "@4",
	"RIGHT":        "@5",
	"LEFT_HALF":    "@13",
	"RIGHT_HALF":   "@35",
	"SWING":        "@100",
}

var jetModes = map[string]string{
	"OFF":       modeOff,
	"COOL":      "@COOL_JET",
	"HEAT":      "@HEAT_JET",
	"DRY":       "@DRY_JET_W",
	"HIMALAYAS": "@HIMALAYAS_COOL",
}

// JetModeSupport reports which jet modes a model can run.
type JetModeSupport int

const (
	JetNone JetModeSupport = iota
	JetCool
	JetHeat
	JetBoth
)

func nameForLabel(table map[string]string, label string) string {
	for name, l := range table {
		if l == label {
			return name
		}
	}
	return ""
}

func sortedNames(table map[string]string, labels map[string]struct{}) []string {
	var names []string
	for name, label := range table {
		if _, ok := labels[label]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Device is the air conditioner facade.
type Device struct {
	*device.Base
	log *logrus.Entry

	tempUnit TempUnit
	unitConv device.TempConversion

	isAirToWater           *bool
	isWaterHeaterSupported *bool
	isModeAirCleanSupp     *bool
	isDuctZonesSupported   *bool
	supportedOperation     []string
	supportedOpModes       []string
	supportedFanSpeeds     []string
	supportedHSteps        []string
	supportedVSteps        []string
	supportedModeJet       *JetModeSupport
	temperatureRange       []float64
	hotWaterTempRange      []float64
	temperatureStep        float64
	ductZones              map[string]map[string]string

	currentPower          any
	currentPowerSupported bool

	filterStatus          map[string]any
	filterStatusSupported bool

	status *Status
}

// New creates an air conditioner facade reporting temperatures in unit.
func New(client *thinq.Client, info *thinq.DeviceInfo, unit TempUnit) *Device {
	if unit != Fahrenheit {
		unit = Celsius
	}
	d := &Device{
		Base:                  device.NewBase(client, info),
		log:                   logrus.WithField("device", info.Name()),
		tempUnit:              unit,
		temperatureStep:       tempStepWhole,
		ductZones:             map[string]map[string]string{},
		currentPowerSupported: true,
		filterStatusSupported: true,
	}
	d.status = newStatus(d, nil)
	d.PreUpdateV2 = d.preUpdateV2
	d.DeviceInfoV1 = d.deviceInfoV1
	d.DeviceInfoV2 = d.deviceInfoV2
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

// TemperatureUnit returns the unit used for reported temperatures.
func (d *Device) TemperatureUnit() TempUnit { return d.tempUnit }

func (d *Device) f2c(value float64) float64 {
	if d.tempUnit == Celsius {
		return value
	}
	return d.unitConv.F2C(value, d.Model())
}

// ConvTempUnit converts a native Celsius value to the configured unit.
func (d *Device) ConvTempUnit(value float64) float64 {
	if d.tempUnit == Celsius {
		return value
	}
	return d.unitConv.C2F(value, d.Model())
}

func (d *Device) adjustTemperatureStep(targetTemp float64, ok bool) {
	if d.temperatureStep != tempStepWhole || !ok {
		return
	}
	if targetTemp != float64(int(targetTemp)) {
		d.temperatureStep = tempStepHalf
	}
}

func (d *Device) isModeSupported(entry supportEntry) bool {
	suppKey := d.StateKey(entry.key)
	return d.Model().EnumValue(suppKey, entry.label) != ""
}

func (d *Device) supportedOperations() []string {
	if d.supportedOperation == nil {
		key := d.StateKey(stateOperation)
		options, _ := d.Model().EnumOptions(key)
		for _, label := range options {
			if name := nameForLabel(operationNames, label); name != "" {
				d.supportedOperation = append(d.supportedOperation, name)
			}
		}
	}
	return d.supportedOperation
}

// supportedOnOperation picks the "on" operation a model expects. Newer
// models advertise ALL_ON or ON; some single-fan units only advertise one
// sided operation.
func (d *Device) supportedOnOperation() (string, error) {
	operations := d.supportedOperations()
	for _, want := range []string{"ALL_ON", "ON"} {
		for _, op := range operations {
			if op == want {
				return operationLabel(want), nil
			}
		}
	}
	var singleOps []string
	for _, op := range operations {
		if op != "OFF" {
			singleOps = append(singleOps, op)
		}
	}
	if len(singleOps) == 1 {
		return operationLabel(singleOps[0]), nil
	}
	return "", fmt.Errorf("ac %s: could not determine 'on' operation among %v",
		d.UniqueID(), operations)
}

func operationLabel(name string) string {
	for label, n := range operationNames {
		if n == name {
			return label
		}
	}
	return ""
}

func (d *Device) temperatureRangeNative() []float64 {
	if d.temperatureRange == nil {
		if d.Model() == nil {
			return nil
		}
		var minTemp, maxTemp float64
		if d.IsAirToWater() {
			minTemp, maxTemp = awhpMinTemp, awhpMaxTemp
			if v, ok := d.status.WaterTargetMinTemp(); ok {
				minTemp = v
			}
			if v, ok := d.status.WaterTargetMaxTemp(); ok {
				maxTemp = v
			}
		} else {
			key := d.StateKey(stateTargetTemp)
			if rangeInfo, ok := d.Model().RangeValue(key); ok {
				minTemp = rangeInfo.Min
				if minTemp > defaultMinTemp {
					minTemp = defaultMinTemp
				}
				maxTemp = rangeInfo.Max
				if maxTemp < defaultMaxTemp {
					maxTemp = defaultMaxTemp
				}
			} else {
				minTemp, maxTemp = defaultMinTemp, defaultMaxTemp
			}
		}
		d.temperatureRange = []float64{minTemp, maxTemp}
	}
	return d.temperatureRange
}

func (d *Device) hotWaterTemperatureRange() []float64 {
	if !d.IsWaterHeaterSupported() {
		return nil
	}
	if d.hotWaterTempRange == nil {
		minTemp, minOK := d.status.HotWaterTargetMinTemp()
		maxTemp, maxOK := d.status.HotWaterTargetMaxTemp()
		if !minOK || !maxOK {
			return []float64{awhpMinTemp, awhpMaxTemp}
		}
		d.hotWaterTempRange = []float64{minTemp, maxTemp}
	}
	return d.hotWaterTempRange
}

// IsAirToWater reports whether this unit is an AWHP heat pump.
func (d *Device) IsAirToWater() bool {
	if d.isAirToWater == nil {
		if d.Model() == nil {
			return false
		}
		awhp := d.Model().ModelType() == "AWHP"
		d.isAirToWater = &awhp
	}
	return *d.isAirToWater
}

// IsWaterHeaterSupported reports whether the AWHP unit heats tap water.
func (d *Device) IsWaterHeaterSupported() bool {
	if !d.IsAirToWater() {
		return false
	}
	if d.isWaterHeaterSupported == nil {
		supported := d.isModeSupported(supportHotWater)
		d.isWaterHeaterSupported = &supported
	}
	return *d.isWaterHeaterSupported
}

// IsModeAirCleanSupported reports whether the unit has an air clean mode.
func (d *Device) IsModeAirCleanSupported() bool {
	if d.isModeAirCleanSupp == nil {
		supported := d.isModeSupported(supportAirClean)
		d.isModeAirCleanSupp = &supported
	}
	return *d.isModeAirCleanSupp
}

// SupportedModeJet reports which jet modes the unit can run.
func (d *Device) SupportedModeJet() JetModeSupport {
	if d.supportedModeJet == nil {
		supported := JetNone
		if d.isModeSupported(supportJetCool) {
			supported = JetCool
		}
		if d.isModeSupported(supportJetHeat) {
			if supported == JetCool {
				supported = JetBoth
			} else {
				supported = JetHeat
			}
		}
		d.supportedModeJet = &supported
	}
	return *d.supportedModeJet
}

// IsModeJetAvailable reports whether jet mode can be engaged right now.
func (d *Device) IsModeJetAvailable() bool {
	supported := d.SupportedModeJet()
	if supported == JetNone || !d.status.IsOn() {
		return false
	}
	opMode := d.status.OperationMode()
	if opMode == "" {
		return false
	}
	if opMode == "HEAT" && (supported == JetHeat || supported == JetBoth) {
		return true
	}
	if (opMode == "COOL" || opMode == "DRY") && (supported == JetCool || supported == JetBoth) {
		return true
	}
	return false
}

// OpModes returns the operation mode names the unit supports.
func (d *Device) OpModes() []string {
	if d.supportedOpModes == nil {
		d.supportedOpModes = d.supportedEnumNames(supportOperationMode, acModes)
	}
	return d.supportedOpModes
}

// FanSpeeds returns the fan speed names the unit supports.
func (d *Device) FanSpeeds() []string {
	if d.supportedFanSpeeds == nil {
		d.supportedFanSpeeds = d.supportedEnumNames(supportWindStrength, fanSpeeds)
	}
	return d.supportedFanSpeeds
}

func (d *Device) supportedEnumNames(suppKey device.Key, table map[string]string) []string {
	key := d.StateKey(suppKey)
	options, ok := d.Model().EnumOptions(key)
	if !ok {
		return []string{}
	}
	labels := map[string]struct{}{}
	for _, label := range options {
		labels[label] = struct{}{}
	}
	return sortedNames(table, labels)
}

// HorizontalStepModes returns the horizontal vane step names the unit
// supports.
func (d *Device) HorizontalStepModes() []string {
	if d.supportedHSteps == nil {
		d.supportedHSteps = d.stepModes(supportVaneHStep, stateWDirHStep, hStepModes)
	}
	return d.supportedHSteps
}

// VerticalStepModes returns the vertical vane step names the unit supports.
func (d *Device) VerticalStepModes() []string {
	if d.supportedVSteps == nil {
		d.supportedVSteps = d.stepModes(supportVaneVStep, stateWDirVStep, vStepModes)
	}
	return d.supportedVSteps
}

func (d *Device) stepModes(support supportEntry, stateKey device.Key, table map[string]string) []string {
	if !d.isModeSupported(support) {
		return []string{}
	}
	key := d.StateKey(stateKey)
	options, ok := d.Model().EnumOptions(key)
	if !ok {
		return []string{}
	}
	labels := map[string]struct{}{}
	for _, label := range options {
		labels[label] = struct{}{}
	}
	return sortedNames(table, labels)
}

// TargetTemperatureStep returns the temperature step the unit accepts.
func (d *Device) TargetTemperatureStep() float64 { return d.temperatureStep }

// TargetTemperatureMin returns the minimum target temperature in the
// configured unit.
func (d *Device) TargetTemperatureMin() (float64, bool) {
	tempRange := d.temperatureRangeNative()
	if tempRange == nil {
		return 0, false
	}
	return d.ConvTempUnit(tempRange[0]), true
}

// TargetTemperatureMax returns the maximum target temperature in the
// configured unit.
func (d *Device) TargetTemperatureMax() (float64, bool) {
	tempRange := d.temperatureRangeNative()
	if tempRange == nil {
		return 0, false
	}
	return d.ConvTempUnit(tempRange[1]), true
}

// HotWaterTargetTemperatureMin returns the minimum hot water target
// temperature in the configured unit.
func (d *Device) HotWaterTargetTemperatureMin() (float64, bool) {
	tempRange := d.hotWaterTemperatureRange()
	if tempRange == nil {
		return 0, false
	}
	return d.ConvTempUnit(tempRange[0]), true
}

// HotWaterTargetTemperatureMax returns the maximum hot water target
// temperature in the configured unit.
func (d *Device) HotWaterTargetTemperatureMax() (float64, bool) {
	tempRange := d.hotWaterTemperatureRange()
	if tempRange == nil {
		return 0, false
	}
	return d.ConvTempUnit(tempRange[1]), true
}

// IsDuctZonesSupported reports whether the unit controls duct zones.
func (d *Device) IsDuctZonesSupported() bool {
	if d.isDuctZonesSupported == nil {
		supported := false
		suppKey := d.StateKey(supportDuctZone)
		if options, ok := d.Model().EnumOptions(suppKey); ok {
			for code := range options {
				if code != "0" {
					supported = true
					break
				}
			}
		}
		d.isDuctZonesSupported = &supported
	}
	return *d.isDuctZonesSupported
}

// IsDuctZoneEnabled reports whether a zone is configured.
func (d *Device) IsDuctZoneEnabled(zone string) bool {
	_, ok := d.ductZones[zone]
	return ok
}

// GetDuctZone reports whether a configured zone is open.
func (d *Device) GetDuctZone(zone string) bool {
	curZone, ok := d.ductZones[zone]
	if !ok {
		return false
	}
	if newState, ok := curZone["new"]; ok {
		return newState == zoneOn
	}
	return curZone["current"] == zoneOn
}

// SetDuctZone marks a zone to be opened or closed on the next poll.
func (d *Device) SetDuctZone(zone string, status bool) {
	if _, ok := d.ductZones[zone]; !ok {
		return
	}
	if status {
		d.ductZones[zone]["new"] = zoneOn
	} else {
		d.ductZones[zone]["new"] = zoneOff
	}
}

// DuctZones returns the configured zone indexes.
func (d *Device) DuctZones() []string {
	zones := make([]string, 0, len(d.ductZones))
	for zone := range d.ductZones {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}

// UpdateDuctZones refreshes the duct zone states and pushes any pending
// zone changes.
func (d *Device) UpdateDuctZones(ctx context.Context) error {
	states, err := d.getDuctZones(ctx)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}

	ductZones := map[string]map[string]string{}
	sendUpdate := false
	for zone, state := range states {
		curStatus := state["current"]
		newStatus := ""
		if prev, ok := d.ductZones[zone]; ok {
			newStatus = prev["new"]
			if newStatus != "" && newStatus != curStatus {
				sendUpdate = true
			}
		}
		if newStatus == "" {
			newStatus = curStatus
		}
		ductZones[zone] = map[string]string{"current": newStatus}
	}

	d.ductZones = ductZones
	if sendUpdate {
		return d.setDuctZones(ctx, ductZones)
	}
	return nil
}

// getDuctZones reads the zone states. Devices reporting the packed zone
// state in the payload expose 8 zones as a bit field; thinq1 devices list
// configured zones through the config endpoint.
func (d *Device) getDuctZones(ctx context.Context) (map[string]map[string]string, error) {
	if !d.IsDuctZonesSupported() || d.status == nil {
		return nil, nil
	}

	ductState := -1
	if _, ok := d.status.DuctZonesType(); !ok {
		if v, ok := d.status.DuctZonesState(); ok {
			ductState = v
		} else {
			ductState = 0
		}
	}
	if ductState == 0 {
		return nil, nil
	}

	if ductState > 0 {
		zones := map[string]map[string]string{}
		for i := 0; i < 8; i++ {
			state := zoneOff
			if ductState&(1<<i) != 0 {
				state = zoneOn
			}
			zones[strconv.Itoa(i+1)] = map[string]string{"current": state}
		}
		return zones, nil
	}

	raw, err := d.GetConfig(ctx, ductZoneV1)
	if err != nil {
		return nil, err
	}
	entries, _ := raw.([]any)
	zones := map[string]map[string]string{}
	for _, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if asString(entry["Cfg"]) != "1" {
			continue
		}
		zones[asString(entry["No"])] = map[string]string{
			"current": asString(entry["State"]),
		}
	}
	return zones, nil
}

// setDuctZones opens or closes the unit's zones. All zones off at once is
// not accepted by the device.
func (d *Device) setDuctZones(ctx context.Context, zones map[string]map[string]string) error {
	onCount := 0
	var parts []string
	keys := make([]string, 0, len(zones))
	for zone := range zones {
		keys = append(keys, zone)
	}
	sort.Strings(keys)
	for _, zone := range keys {
		state := zones[zone]["current"]
		if state == zoneOn {
			onCount++
		}
		parts = append(parts, zone+"_"+state)
	}
	if onCount == 0 {
		d.log.Warning("turning off all duct zones is not allowed")
		return nil
	}
	return d.set(ctx, cmdDuctZones, strings.Join(parts, "/"), "")
}

func (d *Device) set(ctx context.Context, ck device.CmdKey, value any, ctrlPath string) error {
	ctrl, cmd, key := d.CmdKeys(ck)
	err := d.Base.Set(ctx, ctrl, cmd, device.SetOptions{
		Key: key, Value: value, CtrlPath: ctrlPath,
	})
	if err != nil {
		return err
	}
	if d.status != nil && key != "" {
		d.status.update(key, value)
	}
	return nil
}

// Power turns the unit on or off.
func (d *Device) Power(ctx context.Context, turnOn bool) error {
	operation := opOff
	if turnOn {
		var err error
		if operation, err = d.supportedOnOperation(); err != nil {
			return err
		}
	}
	key := d.StateKey(stateOperation)
	opValue := d.Model().EnumValue(key, operation)
	return d.set(ctx, cmdOperation, opValue, "")
}

// SetOpMode sets the operation mode by name.
func (d *Device) SetOpMode(ctx context.Context, mode string) error {
	if !containsString(d.OpModes(), mode) {
		return fmt.Errorf("ac %s: invalid operating mode %q", d.UniqueID(), mode)
	}
	key := d.StateKey(stateOperationMode)
	return d.set(ctx, cmdOpMode, d.Model().EnumValue(key, acModes[mode]), "")
}

// SetFanSpeed sets the fan speed by name.
func (d *Device) SetFanSpeed(ctx context.Context, speed string) error {
	if !containsString(d.FanSpeeds(), speed) {
		return fmt.Errorf("ac %s: invalid fan speed %q", d.UniqueID(), speed)
	}
	key := d.StateKey(stateWindStrength)
	return d.set(ctx, cmdWindStrength, d.Model().EnumValue(key, fanSpeeds[speed]), "")
}

// SetHorizontalStepMode sets the horizontal vane position by name.
func (d *Device) SetHorizontalStepMode(ctx context.Context, mode string) error {
	if !containsString(d.HorizontalStepModes(), mode) {
		return fmt.Errorf("ac %s: invalid horizontal step mode %q", d.UniqueID(), mode)
	}
	key := d.StateKey(stateWDirHStep)
	return d.set(ctx, cmdWDirHStep, d.Model().EnumValue(key, hStepModes[mode]), "")
}

// SetVerticalStepMode sets the vertical vane position by name.
func (d *Device) SetVerticalStepMode(ctx context.Context, mode string) error {
	if !containsString(d.VerticalStepModes(), mode) {
		return fmt.Errorf("ac %s: invalid vertical step mode %q", d.UniqueID(), mode)
	}
	key := d.StateKey(stateWDirVStep)
	return d.set(ctx, cmdWDirVStep, d.Model().EnumValue(key, vStepModes[mode]), "")
}

// SetHorizontalSwingMode turns the horizontal swing on or off.
func (d *Device) SetHorizontalSwingMode(ctx context.Context, value bool) error {
	return d.setSwing(ctx, supportVaneHSwing, cmdWDirHSwing, stateWDirHSwing, value)
}

// SetVerticalSwingMode turns the vertical swing on or off.
func (d *Device) SetVerticalSwingMode(ctx context.Context, value bool) error {
	return d.setSwing(ctx, supportVaneVSwing, cmdWDirVSwing, stateWDirVSwing, value)
}

func (d *Device) setSwing(ctx context.Context, support supportEntry, ck device.CmdKey, stateKey device.Key, value bool) error {
	if !d.isModeSupported(support) {
		return fmt.Errorf("ac %s: swing mode not supported", d.UniqueID())
	}
	mode := modeOff
	if value {
		mode = modeOn
	}
	swingMode := d.Model().EnumValue(d.StateKey(stateKey), mode)
	if swingMode == "" {
		return fmt.Errorf("ac %s: invalid swing mode %q", d.UniqueID(), mode)
	}
	return d.set(ctx, ck, swingMode, "")
}

// SetTargetTemp sets the target temperature, given in the configured unit.
func (d *Device) SetTargetTemp(ctx context.Context, temp float64) error {
	rangeInfo := d.temperatureRangeNative()
	convTemp := d.f2c(temp)
	if rangeInfo != nil && (convTemp < rangeInfo[0] || convTemp > rangeInfo[1]) {
		return fmt.Errorf("ac %s: target temperature out of range: %v", d.UniqueID(), temp)
	}
	return d.set(ctx, cmdTargetTemp, convTemp, "")
}

// SetModeAirClean turns the air clean mode on or off.
func (d *Device) SetModeAirClean(ctx context.Context, status bool) error {
	if !d.IsModeAirCleanSupported() {
		return fmt.Errorf("ac %s: airclean mode not supported", d.UniqueID())
	}
	modeKey := modeAirCleanOff
	if status {
		modeKey = modeAirCleanOn
	}
	key := d.StateKey(stateModeAirClean)
	return d.set(ctx, cmdModeAirClean, d.Model().EnumValue(key, modeKey), "")
}

// SetModeJet turns the jet mode on or off.
func (d *Device) SetModeJet(ctx context.Context, status bool) error {
	if d.SupportedModeJet() == JetNone {
		return fmt.Errorf("ac %s: jet mode not supported", d.UniqueID())
	}
	if !d.IsModeJetAvailable() {
		return fmt.Errorf("ac %s: invalid device status for jet mode", d.UniqueID())
	}
	jetKey := jetModes["OFF"]
	if status {
		if d.status.OperationMode() == "HEAT" {
			jetKey = jetModes["HEAT"]
		} else {
			jetKey = jetModes["COOL"]
		}
	}
	key := d.StateKey(stateModeJet)
	return d.set(ctx, cmdModeJet, d.Model().EnumValue(key, jetKey), "")
}

// SetLightingDisplay turns the display lighting on or off.
func (d *Device) SetLightingDisplay(ctx context.Context, status bool) error {
	lighting := lightingDisplayOff
	if status {
		lighting = lightingDisplayOn
	}
	return d.set(ctx, cmdLightingDisplay, lighting, "")
}

// SetModeAWHPSilent turns the AWHP silent mode on or off.
func (d *Device) SetModeAWHPSilent(ctx context.Context, value bool) error {
	if !d.IsAirToWater() {
		return fmt.Errorf("ac %s: silent mode not supported", d.UniqueID())
	}
	mode := modeOff
	if value {
		mode = modeOn
	}
	silentMode := d.Model().EnumValue(d.StateKey(stateModeAWHPSilent), mode)
	if silentMode == "" {
		return fmt.Errorf("ac %s: invalid silent mode %q", d.UniqueID(), mode)
	}
	return d.set(ctx, cmdModeAWHPSilent, silentMode, "")
}

// SetHotWaterMode turns the hot water mode on or off.
func (d *Device) SetHotWaterMode(ctx context.Context, value bool) error {
	if !d.IsWaterHeaterSupported() {
		return fmt.Errorf("ac %s: hot water mode not supported", d.UniqueID())
	}
	mode := modeOff
	if value {
		mode = modeOn
	}
	hotWaterMode := d.Model().EnumValue(d.StateKey(stateHotWaterMode), mode)
	if hotWaterMode == "" {
		return fmt.Errorf("ac %s: invalid hot water mode %q", d.UniqueID(), mode)
	}
	return d.set(ctx, cmdHotWaterMode, hotWaterMode, "")
}

// SetHotWaterTargetTemp sets the hot water target temperature, given in
// the configured unit.
func (d *Device) SetHotWaterTargetTemp(ctx context.Context, temp float64) error {
	if !d.IsWaterHeaterSupported() {
		return fmt.Errorf("ac %s: hot water mode not supported", d.UniqueID())
	}
	rangeInfo := d.hotWaterTemperatureRange()
	convTemp := d.f2c(temp)
	if rangeInfo != nil && (convTemp < rangeInfo[0] || convTemp > rangeInfo[1]) {
		return fmt.Errorf("ac %s: target temperature out of range: %v", d.UniqueID(), temp)
	}
	return d.set(ctx, cmdHotWaterTargetTemp, convTemp, "")
}

// GetPower reads the instant power usage of the whole unit, thinq1 only.
func (d *Device) GetPower(ctx context.Context) (any, bool) {
	if !d.currentPowerSupported {
		return nil, false
	}
	raw, err := d.GetConfig(ctx, statePowerV1)
	if err != nil {
		d.log.WithError(err).Debug("reading instant power")
		d.currentPowerSupported = false
		return nil, false
	}
	data, ok := raw.(map[string]any)
	if !ok {
		d.currentPowerSupported = false
		return nil, false
	}
	return data[statePowerV1], true
}

// GetFilterState reads the thinq1 filter status.
func (d *Device) GetFilterState(ctx context.Context) (map[string]any, bool) {
	if !d.filterStatusSupported {
		return nil, false
	}
	raw, err := d.GetConfig(ctx, stateFilterV1)
	if err != nil {
		d.log.WithError(err).Debug("reading filter state")
		d.filterStatusSupported = false
		return nil, false
	}
	data, ok := raw.(map[string]any)
	if !ok {
		d.filterStatusSupported = false
		return nil, false
	}
	return data, true
}

// GetFilterStateV2 reads the thinq2 filter status.
func (d *Device) GetFilterStateV2(ctx context.Context) (map[string]any, bool) {
	if !d.filterStatusSupported {
		return nil, false
	}
	data, err := d.GetConfigV2(ctx, ctrlFilterV2, "Get", device.SetOptions{})
	if err != nil {
		d.log.WithError(err).Debug("reading filter state")
		d.filterStatusSupported = false
		return nil, false
	}
	return data, true
}

// ResetStatus clears the last polled status.
func (d *Device) ResetStatus() *Status {
	d.status = newStatus(d, nil)
	return d.status
}

// preUpdateV2 arms the monitoring events so a direct query returns power
// and temperature data.
func (d *Device) preUpdateV2(ctx context.Context) error {
	return d.set(ctx, cmdEnableEventV2, "70", "control")
}

// deviceInfoV1 is the slow-rate poll reading power usage and filter state.
func (d *Device) deviceInfoV1(ctx context.Context) error {
	if d.IsAirToWater() {
		return nil
	}
	if power, ok := d.GetPower(ctx); ok {
		d.currentPower = power
	}
	if filterStatus, ok := d.GetFilterState(ctx); ok && filterStatus != nil {
		d.filterStatus = map[string]any{
			filterV1Use: valueOrZero(filterStatus["UseTime"]),
			filterV1Max: valueOrZero(filterStatus["ChangePeriod"]),
		}
	}
	return nil
}

// deviceInfoV2 is the slow-rate poll reading the filter state.
func (d *Device) deviceInfoV2(ctx context.Context) error {
	if d.IsAirToWater() {
		return nil
	}
	if filterStatus, ok := d.GetFilterStateV2(ctx); ok {
		d.filterStatus = filterStatus
	}
	return nil
}

// Poll fetches the unit's current status.
func (d *Device) Poll(ctx context.Context) (*Status, error) {
	res, err := d.PollData(ctx, device.PollOptions{
		AdditionalPollIntervalV1: addFeaturePollInterval,
		AdditionalPollIntervalV2: addFeaturePollInterval,
		QueryDevice:              true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	// v1 units report power through the config endpoint, not the payload
	if d.ShouldPoll() && !d.IsAirToWater() && d.currentPower != nil {
		res[statePowerV1] = d.currentPower
	}

	d.status = newStatus(d, res)
	if d.temperatureStep == tempStepWhole {
		d.adjustTemperatureStep(d.status.TargetTemp())
	}
	if d.filterStatus != nil {
		if !d.status.updateFilterStatus(d.filterStatus) {
			d.filterStatus = nil
			d.filterStatusSupported = false
		}
	}

	if err := d.UpdateDuctZones(ctx); err != nil {
		d.log.WithError(err).Warning("duct zone control failed")
	}
	return d.status, nil
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
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

func valueOrZero(v any) any {
	if v == nil {
		return 0
	}
	return v
}
