// Package dehumidifier drives LG dehumidifiers.
package dehumidifier

import (
	"context"
	"fmt"
	"sort"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

var ctrlBasic = device.Key{"Control", "basicCtrl"}

const statePowerV1 = "InOutInstantPower"

var (
	supportOperationMode = device.Key{"SupportOpMode", "support.airState.opMode"}
	supportWindStrength  = device.Key{"SupportWindStrength", "support.airState.windStrength"}
)

var (
	stateOperation     = device.Key{"Operation", "airState.operation"}
	stateOperationMode = device.Key{"OpMode", "airState.opMode"}
	stateTargetHum     = device.Key{"HumidityCfg", "airState.humidity.desired"}
	stateWindStrength  = device.Key{"WindStrength", "airState.windStrength"}
	stateCurrentHum    = device.Key{"SensorHumidity", "airState.humidity.current"}
	stateTankLight     = device.Key{"WatertankLight", "airState.miscFuncState.watertankLight"}
)

var (
	cmdOperation    = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperation}
	cmdOpMode       = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperationMode}
	cmdTargetHum    = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateTargetHum}
	cmdWindStrength = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateWindStrength}
)

const (
	defaultMinHum  = 30
	defaultMaxHum  = 70
	defaultStepHum = 5

	opOff = "@operation_off"
	opOn  = "@operation_on"
)

var opModes = map[string]string{
	"SMART":     "@AP_MAIN_MID_OPMODE_SMART_DEHUM_W",
	"FAST":      "@AP_MAIN_MID_OPMODE_FAST_DEHUM_W",
	"CILENT":    "@AP_MAIN_MID_OPMODE_CILENT_DEHUM_W",
	"CONC_DRY":  "@AP_MAIN_MID_OPMODE_CONCENTRATION_DRY_W",
	"CLOTH_DRY": "@AP_MAIN_MID_OPMODE_CLOTHING_DRY_W",
	"IONIZER":   "@AP_MAIN_MID_OPMODE_IONIZER_W",
}

var fanSpeeds = map[string]string{
	"LOW":  "@AP_MAIN_MID_WINDSTRENGTH_DHUM_LOW_W",
	"MID":  "@AP_MAIN_MID_WINDSTRENGTH_DHUM_MID_W",
	"HIGH": "@AP_MAIN_MID_WINDSTRENGTH_DHUM_HIGH_W",
}

// Device is the dehumidifier facade.
type Device struct {
	*device.Base

	supportedOpModes   []string
	supportedFanSpeeds []string
	humidityRange      []int
	humidityStep       int

	currentPowerSupported bool

	status *Status
}

// New creates a dehumidifier facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	d := &Device{
		Base:                  device.NewBase(client, info),
		humidityStep:          defaultStepHum,
		currentPowerSupported: true,
	}
	d.status = newStatus(d, nil)
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

func (d *Device) humidityRangeValues() []int {
	if d.humidityRange == nil {
		if d.Model() == nil {
			return nil
		}
		minHum, maxHum := defaultMinHum, defaultMaxHum
		key := d.StateKey(stateTargetHum)
		if rangeInfo, ok := d.Model().RangeValue(key); ok {
			if int(rangeInfo.Min) < minHum {
				minHum = int(rangeInfo.Min)
			}
			if int(rangeInfo.Max) > maxHum {
				maxHum = int(rangeInfo.Max)
			}
		}
		d.humidityRange = []int{minHum, maxHum}
	}
	return d.humidityRange
}

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
	}
	return d.supportedFanSpeeds
}

// TargetHumidityStep returns the humidity step the device accepts.
func (d *Device) TargetHumidityStep() int { return d.humidityStep }

// TargetHumidityMin returns the minimum target humidity.
func (d *Device) TargetHumidityMin() (int, bool) {
	humRange := d.humidityRangeValues()
	if humRange == nil {
		return 0, false
	}
	return humRange[0], true
}

// TargetHumidityMax returns the maximum target humidity.
func (d *Device) TargetHumidityMax() (int, bool) {
	humRange := d.humidityRangeValues()
	if humRange == nil {
		return 0, false
	}
	return humRange[1], true
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
	ctrl, _, key := d.CmdKeys(cmdOperation)
	opValue := d.Model().EnumValue(key, operation)
	if d.ShouldPoll() {
		// thinq1 units take the state key as the command with a verb value
		cmd := "Stop"
		if turnOn {
			cmd = "Start"
		}
		if err := d.Set(ctx, ctrl, key, device.SetOptions{Value: cmd}); err != nil {
			return err
		}
		d.status.update(key, opValue)
		return nil
	}
	return d.set(ctx, cmdOperation, opValue)
}

// SetOpMode sets the operation mode by name.
func (d *Device) SetOpMode(ctx context.Context, mode string) error {
	if !containsString(d.OpModes(), mode) {
		return fmt.Errorf("dehumidifier %s: invalid operating mode %q", d.UniqueID(), mode)
	}
	key := d.StateKey(stateOperationMode)
	return d.set(ctx, cmdOpMode, d.Model().EnumValue(key, opModes[mode]))
}

// SetFanSpeed sets the fan speed by name.
func (d *Device) SetFanSpeed(ctx context.Context, speed string) error {
	if !containsString(d.FanSpeeds(), speed) {
		return fmt.Errorf("dehumidifier %s: invalid fan speed %q", d.UniqueID(), speed)
	}
	key := d.StateKey(stateWindStrength)
	return d.set(ctx, cmdWindStrength, d.Model().EnumValue(key, fanSpeeds[speed]))
}

// SetTargetHumidity sets the desired relative humidity.
func (d *Device) SetTargetHumidity(ctx context.Context, humidity int) error {
	humRange := d.humidityRangeValues()
	if humRange != nil && (humidity < humRange[0] || humidity > humRange[1]) {
		return fmt.Errorf("dehumidifier %s: target humidity out of range: %d",
			d.UniqueID(), humidity)
	}
	return d.set(ctx, cmdTargetHum, humidity)
}

// GetPower reads the instant power usage of the whole unit, thinq1 only.
func (d *Device) GetPower(ctx context.Context) (any, bool) {
	if !d.currentPowerSupported {
		return nil, false
	}
	raw, err := d.GetConfig(ctx, statePowerV1)
	if err != nil {
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
