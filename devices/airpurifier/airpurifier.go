// Package airpurifier drives LG air purifiers.
package airpurifier

import (
	"context"
	"fmt"
	"sort"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

var ctrlBasic = device.Key{"Control", "basicCtrl"}

var (
	supportOperationMode = device.Key{"SupportOpMode", "support.airState.opMode"}
	supportWindStrength  = device.Key{"SupportWindStrength", "support.airState.windStrength"}
	supportMFilter       = device.Key{"SupportMFilter", "support.mFilter"}
	supportAirPolution   = device.Key{"SupportAirPolution", "support.airPolution"}
)

var (
	stateOperation     = device.Key{"Operation", "airState.operation"}
	stateOperationMode = device.Key{"OpMode", "airState.opMode"}
	stateWindStrength  = device.Key{"WindStrength", "airState.windStrength"}
	stateHumidity      = device.Key{"SensorHumidity", "airState.humidity.current"}
	statePM1           = device.Key{"SensorPM1", "airState.quality.PM1"}
	statePM10          = device.Key{"SensorPM10", "airState.quality.PM10"}
	statePM25          = device.Key{"SensorPM2", "airState.quality.PM2"}
)

var (
	cmdOperation    = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperation}
	cmdOpMode       = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperationMode}
	cmdWindStrength = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateWindStrength}
)

const (
	opOff = "@operation_off"
	opOn  = "@operation_on"
)

var opModes = map[string]string{
	"CLEAN":    "@AP_MAIN_MID_OPMODE_CLEAN_W",
	"SILENT":   "@AP_MAIN_MID_OPMODE_SILENT_W",
	"HUMIDITY": "@AP_MAIN_MID_OPMODE_HUMIDITY_W",
}

var fanSpeeds = map[string]string{
	"LOW":  "@AP_MAIN_MID_WINDSTRENGTH_LOW_W",
	"MID":  "@AP_MAIN_MID_WINDSTRENGTH_MID_W",
	"HIGH": "@AP_MAIN_MID_WINDSTRENGTH_HIGH_W",
}

var fanPresets = map[string]string{
	"POWER": "@AP_MAIN_MID_WINDSTRENGTH_POWER_W",
	"AUTO":  "@AP_MAIN_MID_WINDSTRENGTH_AUTO_W",
}

type filterEntry struct {
	feat    string
	useKeys []string
	maxKeys []string
	types   []string
}

var filterTypes = []filterEntry{
	{
		feat:    device.FeatFilterMainLife,
		useKeys: []string{"FilterUse", "airState.filterMngStates.useTime"},
		maxKeys: []string{"FilterMax", "airState.filterMngStates.maxTime"},
	},
	{
		feat:    device.FeatFilterTopLife,
		useKeys: []string{"FilterUseTop", "airState.filterMngStates.useTimeTop"},
		maxKeys: []string{"FilterMaxTop", "airState.filterMngStates.maxTimeTop"},
		types:   []string{"@SUPPORT_TOP_HUMIDIFILTER", "@SUPPORT_D_PLUS_TOP"},
	},
	{
		feat:    device.FeatFilterMidLife,
		useKeys: []string{"FilterUseMiddle", "airState.filterMngStates.useTimeMiddle"},
		maxKeys: []string{"FilterMaxMiddle", "airState.filterMngStates.maxTimeMiddle"},
		types:   []string{"@SUPPORT_MID_HUMIDIFILTER"},
	},
	{
		feat:    device.FeatFilterBottomLife,
		useKeys: []string{"FilterUseBottom", "airState.filterMngStates.useTimeBottom"},
		maxKeys: []string{"FilterMaxBottom", "airState.filterMngStates.maxTimeBottom"},
		types:   []string{"@SUPPORT_BOTTOM_PREFILTER"},
	},
	{
		feat:    device.FeatFilterDustLife,
		useKeys: []string{"FilterUseDeodor", "airState.filterMngStates.useTimeDeodor"},
		maxKeys: []string{"FilterMaxDeodor", "airState.filterMngStates.maxTimeDeodor"},
		types:   []string{"@SUPPORT_BOTTOM_DUSTCOLLECTION"},
	},
}

// Device is the air purifier facade.
type Device struct {
	*device.Base

	supportedOpModes    []string
	supportedFanSpeeds  []string
	supportedFanPresets []string

	status *Status
}

// New creates an air purifier facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	d := &Device{Base: device.NewBase(client, info)}
	d.status = newStatus(d, nil)
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

func (d *Device) supportedNames(suppKey device.Key, table map[string]string) []string {
	key := d.StateKey(suppKey)
	options, ok := d.Model().EnumOptions(key)
	if !ok {
		return []string{}
	}
	var names []string
	for name, label := range table {
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

// OpModes returns the operation mode names the device supports.
func (d *Device) OpModes() []string {
	if d.supportedOpModes == nil {
		d.supportedOpModes = d.supportedNames(supportOperationMode, opModes)
	}
	return d.supportedOpModes
}

// FanSpeeds returns the fan speed names the device supports.
func (d *Device) FanSpeeds() []string {
	if d.supportedFanSpeeds == nil {
		d.supportedFanSpeeds = d.supportedNames(supportWindStrength, fanSpeeds)
		d.supportedFanPresets = d.supportedNames(supportWindStrength, fanPresets)
	}
	return d.supportedFanSpeeds
}

// FanPresets returns the fan preset names the device supports.
func (d *Device) FanPresets() []string {
	if d.supportedFanPresets == nil {
		d.FanSpeeds()
	}
	return d.supportedFanPresets
}

func (d *Device) set(ctx context.Context, ck device.CmdKey, value any) error {
	ctrl, cmd, key := d.CmdKeys(ck)
	err := d.Set(ctx, ctrl, cmd, device.SetOptions{Key: key, Value: value})
	if err != nil {
		return err
	}
	if d.status != nil && key != "" {
		d.status.update(key, value)
	}
	return nil
}

// Power turns the device on or off.
func (d *Device) Power(ctx context.Context, turnOn bool) error {
	operation := opOff
	if turnOn {
		operation = opOn
	}
	key := d.StateKey(stateOperation)
	return d.set(ctx, cmdOperation, d.Model().EnumValue(key, operation))
}

// SetOpMode sets the operation mode by name.
func (d *Device) SetOpMode(ctx context.Context, mode string) error {
	if !containsString(d.OpModes(), mode) {
		return fmt.Errorf("airpurifier %s: invalid operating mode %q", d.UniqueID(), mode)
	}
	key := d.StateKey(stateOperationMode)
	return d.set(ctx, cmdOpMode, d.Model().EnumValue(key, opModes[mode]))
}

// SetFanSpeed sets the fan speed by name.
func (d *Device) SetFanSpeed(ctx context.Context, speed string) error {
	if !containsString(d.FanSpeeds(), speed) {
		return fmt.Errorf("airpurifier %s: invalid fan speed %q", d.UniqueID(), speed)
	}
	key := d.StateKey(stateWindStrength)
	return d.set(ctx, cmdWindStrength, d.Model().EnumValue(key, fanSpeeds[speed]))
}

// SetFanPreset sets the fan preset by name.
func (d *Device) SetFanPreset(ctx context.Context, preset string) error {
	if !containsString(d.FanPresets(), preset) {
		return fmt.Errorf("airpurifier %s: invalid fan preset %q", d.UniqueID(), preset)
	}
	key := d.StateKey(stateWindStrength)
	return d.set(ctx, cmdWindStrength, d.Model().EnumValue(key, fanPresets[preset]))
}

// ResetStatus clears the last polled status.
func (d *Device) ResetStatus() *Status {
	d.status = newStatus(d, nil)
	return d.status
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

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func nameForLabel(table map[string]string, label string) string {
	for name, l := range table {
		if l == label {
			return name
		}
	}
	return ""
}
