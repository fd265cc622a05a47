// Package microwave drives LG over-the-range microwave ovens.
package microwave

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const (
	itemStateOff = "@OV_STATE_INITIAL_W"

	stateClockDisplay  = "MwoSettingClockDisplay"
	stateDefrostWMode  = "MwoSettingDefrostWeightMode"
	stateDisplayScroll = "MwoSettingDisplayScrollSpeed"
	stateSound         = "MwoSettingSound"
	stateLampLevel     = "MwoLampLevel"
	stateVentLevel     = "MwoVentSpeedLevel"

	cmdClockDisplay  = "mwoSettingClockDisplay"
	cmdDefrostWMode  = "mwoSettingDefrostWeightMode"
	cmdDisplayScroll = "mwoSettingDisplayScrollSpeed"
	cmdSound         = "mwoSettingSound"
	cmdTimeHour      = "mwoSettingClockSetTimeHour"
	cmdTimeMin       = "mwoSettingClockSetTimeMin"
	cmdTimeSec       = "mwoSettingClockSetTimeSec"

	cmdLampMode  = "mwoLampOnOff"
	cmdLampLevel = "mwoLampLevel"
	cmdVentMode  = "mwoVentOnOff"
	cmdVentLevel = "mwoVentSpeedLevel"

	ctrlSetPreference = "SetPreference"
	ctrlSetVentLamp   = "setVentLampLevel"

	modeEnable  = "ENABLE"
	modeDisable = "DISABLE"

	modeVolOn  = "HIGH"
	modeVolOff = "MUTE"

	modeClkOn  = "CLOCK_SHOW"
	modeClkOff = "CLOCK_HIDE"
)

// Display scroll speeds by name.
var displayScrollSpeeds = map[string]string{
	"SLOW":   "@OV_UX30_TERM_SLOW_W",
	"NORMAL": "@OV_UX30_TERM_NORMAL_W",
	"FAST":   "@OV_UX30_TERM_FAST_W",
}

// Defrost weight units by name.
var weightUnits = map[string]string{
	"KG": "@OV_TERM_UNIT_KG_W",
	"LB": "@OV_TERM_UNIT_LBS_W",
}

// Light levels by name, value as reported in the snapshot.
var lightLevels = map[string]string{
	"OFF":  "0",
	"LOW":  "1",
	"HIGH": "2",
}

// Vent speeds by name, value as reported in the snapshot.
var ventSpeeds = map[string]string{
	"OFF":   "0",
	"LOW":   "1",
	"MID":   "2",
	"HIGH":  "3",
	"TURBO": "4",
	"MAX":   "5",
}

func nameForValue(values map[string]string, value string) string {
	for name, v := range values {
		if v == value {
			return name
		}
	}
	return ""
}

// Device is the microwave facade.
type Device struct {
	*device.Base

	supportedWeightUnits  []string
	supportedScrollSpeeds []string
	supportedLightModes   map[string]string
	supportedVentSpeeds   map[string]string

	pendingCmd map[string]any

	status *Status
}

// New creates a microwave facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	d := &Device{Base: device.NewBase(client, info)}
	d.status = newStatus(d, nil)
	d.PrepareCommand = d.prepareCommand
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

// ResetStatus clears the last polled status.
func (d *Device) ResetStatus() *Status {
	d.status = newStatus(d, nil)
	return d.status
}

// preferenceTemplate is the REMOTE_SETTING payload with every field left
// untouched; commands overwrite only the fields they change.
func preferenceTemplate() map[string]any {
	return map[string]any{
		"cmdOptionContentsType":      "REMOTE_SETTING",
		"cmdOptionDataLength":        "REMOTE_SETTING",
		cmdClockDisplay:              "NOT_SET",
		"mwoSettingClockSetHourMode": "NOT_SET",
		cmdTimeHour:                  128,
		cmdTimeMin:                   128,
		cmdTimeSec:                   128,
		cmdDefrostWMode:              "NOT_SET",
		"mwoSettingDemoMode":         "NOT_SET",
		cmdDisplayScroll:             "NOT_SET",
		cmdSound:                     "NOT_SET",
	}
}

// ventLampState reports the current vent and lamp levels so a partial
// command does not reset the other channel.
func (d *Device) ventLampState() map[string]any {
	ventLevel, lampLevel := 0, 0
	if d.status != nil {
		if v, ok := device.ToInt(d.status.Value(stateVentLevel)); ok {
			ventLevel = v
		}
		if v, ok := device.ToInt(d.status.Value(stateLampLevel)); ok {
			lampLevel = v
		}
	}
	state := map[string]any{
		cmdVentMode:  modeDisable,
		cmdVentLevel: ventLevel,
		cmdLampMode:  modeDisable,
		cmdLampLevel: lampLevel,
	}
	if ventLevel != 0 {
		state[cmdVentMode] = modeEnable
	}
	if lampLevel != 0 {
		state[cmdLampMode] = modeEnable
	}
	return state
}

// prepareCommand wraps the pending settings in the full control payload
// expected by the device.
func (d *Device) prepareCommand(ctrlKey, command, key string, value any) map[string]any {
	if d.pendingCmd == nil {
		return nil
	}
	var ovenState map[string]any
	switch ctrlKey {
	case ctrlSetPreference:
		ovenState = preferenceTemplate()
	case ctrlSetVentLamp:
		ovenState = d.ventLampState()
		ovenState["cmdOptionContentsType"] = "REMOTE_VENT_LAMP"
		ovenState["cmdOptionDataLength"] = "REMOTE_VENT_LAMP"
	default:
		return nil
	}
	for k, v := range d.pendingCmd {
		ovenState[k] = v
	}
	return map[string]any{
		"command":     "Set",
		"ctrlKey":     ctrlKey,
		"dataSetList": map[string]any{"ovenState": ovenState},
	}
}

func (d *Device) set(ctx context.Context, ctrlKey string, cmd map[string]any, key string, value any) error {
	d.pendingCmd = cmd
	defer func() { d.pendingCmd = nil }()
	err := d.Set(ctx, ctrlKey, "", device.SetOptions{Key: key, Value: value})
	if err != nil {
		return err
	}
	if d.status != nil && key != "" {
		d.status.UpdateStatus(key, value)
	}
	return nil
}

// SetClockDisplay shows or hides the clock on the display.
func (d *Device) SetClockDisplay(ctx context.Context, turnOn bool) error {
	state := modeClkOff
	if turnOn {
		state = modeClkOn
	}
	cmd := map[string]any{cmdClockDisplay: state}
	return d.set(ctx, ctrlSetPreference, cmd, stateClockDisplay, state)
}

// SetTime sets the clock. A zero value uses the current wall clock.
func (d *Device) SetTime(ctx context.Context, wanted time.Time) error {
	if wanted.IsZero() {
		wanted = time.Now()
	}
	cmd := map[string]any{
		cmdTimeHour: wanted.Hour(),
		cmdTimeMin:  wanted.Minute(),
		cmdTimeSec:  wanted.Second(),
	}
	return d.set(ctx, ctrlSetPreference, cmd, "", nil)
}

// SetSound turns the beeper on or off.
func (d *Device) SetSound(ctx context.Context, turnOn bool) error {
	state := modeVolOff
	if turnOn {
		state = modeVolOn
	}
	cmd := map[string]any{cmdSound: state}
	return d.set(ctx, ctrlSetPreference, cmd, stateSound, state)
}

// supportedNames returns the names whose label the model declares for key.
func (d *Device) supportedNames(stateKey string, labels map[string]string) []string {
	key := d.StateKey(device.K(stateKey))
	options, ok := d.Model().EnumOptions(key)
	if !ok {
		return []string{}
	}
	var names []string
	for name, label := range labels {
		for _, supported := range options {
			if supported == label {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// DefrostWeightUnits returns the weight unit names the device supports.
func (d *Device) DefrostWeightUnits() []string {
	if d.supportedWeightUnits == nil {
		d.supportedWeightUnits = d.supportedNames(stateDefrostWMode, weightUnits)
	}
	return d.supportedWeightUnits
}

// SetDefrostWeightUnit sets the defrost weight unit by name, KG or LB.
func (d *Device) SetDefrostWeightUnit(ctx context.Context, unit string) error {
	if !contains(d.DefrostWeightUnits(), unit) {
		return fmt.Errorf("microwave %s: invalid weight unit %q", d.UniqueID(), unit)
	}
	cmd := map[string]any{cmdDefrostWMode: unit}
	return d.set(ctx, ctrlSetPreference, cmd, stateDefrostWMode, unit)
}

// DisplayScrollSpeeds returns the scroll speed names the device supports.
func (d *Device) DisplayScrollSpeeds() []string {
	if d.supportedScrollSpeeds == nil {
		d.supportedScrollSpeeds = d.supportedNames(stateDisplayScroll, displayScrollSpeeds)
	}
	return d.supportedScrollSpeeds
}

// SetDisplayScrollSpeed sets the display scroll speed by name.
func (d *Device) SetDisplayScrollSpeed(ctx context.Context, speed string) error {
	if !contains(d.DisplayScrollSpeeds(), speed) {
		return fmt.Errorf("microwave %s: invalid display scroll speed %q", d.UniqueID(), speed)
	}
	cmd := map[string]any{cmdDisplayScroll: speed}
	return d.set(ctx, ctrlSetPreference, cmd, stateDisplayScroll, speed)
}

// supportedValues returns the snapshot values the model declares for key,
// restricted to the levels known for this family.
func (d *Device) supportedValues(stateKey string, levels map[string]string) map[string]string {
	supported := map[string]string{}
	key := d.StateKey(device.K(stateKey))
	if options, ok := d.Model().EnumOptions(key); ok {
		for value := range options {
			if name := nameForValue(levels, value); name != "" {
				supported[name] = value
			}
		}
		return supported
	}
	if rangeInfo, ok := d.Model().RangeValue(key); ok {
		for v := int(rangeInfo.Min); v <= int(rangeInfo.Max); v++ {
			value := strconv.Itoa(v)
			if name := nameForValue(levels, value); name != "" {
				supported[name] = value
			}
		}
	}
	return supported
}

// LightModes returns the light mode names the device supports.
func (d *Device) LightModes() []string {
	if d.supportedLightModes == nil {
		d.supportedLightModes = d.supportedValues(stateLampLevel, lightLevels)
	}
	return sortedNames(d.supportedLightModes)
}

// SetLightMode sets the cooktop light mode by name.
func (d *Device) SetLightMode(ctx context.Context, mode string) error {
	d.LightModes()
	level, ok := d.supportedLightModes[mode]
	if !ok {
		return fmt.Errorf("microwave %s: invalid light mode %q", d.UniqueID(), mode)
	}
	intLevel, _ := strconv.Atoi(level)
	state := modeDisable
	if level != "0" {
		state = modeEnable
	}
	cmd := map[string]any{cmdLampMode: state, cmdLampLevel: intLevel}
	return d.set(ctx, ctrlSetVentLamp, cmd, stateLampLevel, level)
}

// VentSpeeds returns the vent speed names the device supports.
func (d *Device) VentSpeeds() []string {
	if d.supportedVentSpeeds == nil {
		d.supportedVentSpeeds = d.supportedValues(stateVentLevel, ventSpeeds)
	}
	return sortedNames(d.supportedVentSpeeds)
}

// SetVentSpeed sets the vent speed by name.
func (d *Device) SetVentSpeed(ctx context.Context, speed string) error {
	d.VentSpeeds()
	level, ok := d.supportedVentSpeeds[speed]
	if !ok {
		return fmt.Errorf("microwave %s: invalid vent speed %q", d.UniqueID(), speed)
	}
	intLevel, _ := strconv.Atoi(level)
	state := modeDisable
	if level != "0" {
		state = modeEnable
	}
	cmd := map[string]any{cmdVentMode: state, cmdVentLevel: intLevel}
	return d.set(ctx, ctrlSetVentLamp, cmd, stateVentLevel, level)
}

// Poll fetches the device's current status.
func (d *Device) Poll(ctx context.Context) (*Status, error) {
	res, err := d.PollData(ctx, device.PollOptions{})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	d.status = newStatus(d, res)
	return d.status, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func sortedNames(values map[string]string) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
