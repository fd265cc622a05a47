// Package waterheater drives LG heat pump water heaters.
package waterheater

import (
	"context"
	"fmt"
	"sort"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

// TempUnit selects the temperature scale exposed by the facade.
type TempUnit string

const (
	Celsius    TempUnit = "C"
	Fahrenheit TempUnit = "F"
)

var ctrlBasic = device.Key{"Control", "basicCtrl"}

const statePowerV1 = "InOutInstantPower"

var (
	supportOperationMode = device.Key{"SupportOpModeExt2", "support.airState.opModeExt2"}

	stateOperation     = device.Key{"Operation", "airState.operation"}
	stateOperationMode = device.Key{"OpMode", "airState.opMode"}
	stateCurrentTemp   = device.Key{"TempCur", "airState.tempState.hotWaterCurrent"}
	stateTargetTemp    = device.Key{"TempCfg", "airState.tempState.hotWaterTarget"}
	statePower         = device.Key{statePowerV1, "airState.energy.onCurrent"}
)

var (
	cmdOpMode        = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperationMode}
	cmdTargetTemp    = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateTargetTemp}
	cmdEnableEventV2 = device.CmdKey{Ctrl: device.K("allEventEnable"), Cmd: device.K("Set"), Key: device.K("airState.mon.timeout")}
)

const (
	defaultMinTemp = 35.0
	defaultMaxTemp = 60.0

	tempStepWhole = 1.0

	opOff = "@AC_MAIN_OPERATION_OFF_W"
)

var opModes = map[string]string{
	"HEAT_PUMP": "@WH_MODE_HEAT_PUMP_W",
	"AUTO":      "@WH_MODE_AUTO_W",
	"TURBO":     "@WH_MODE_TURBO_W",
	"VACATION":  "@WH_MODE_VACATION_W",
}

// Device is the water heater facade.
type Device struct {
	*device.Base

	tempUnit TempUnit
	unitConv device.TempConversion

	supportedOpModes []string
	temperatureRange []float64
	temperatureStep  float64

	currentPowerSupported bool

	status *Status
}

// New creates a water heater facade reporting temperatures in unit.
func New(client *thinq.Client, info *thinq.DeviceInfo, unit TempUnit) *Device {
	if unit != Fahrenheit {
		unit = Celsius
	}
	d := &Device{
		Base:                  device.NewBase(client, info),
		tempUnit:              unit,
		temperatureStep:       tempStepWhole,
		currentPowerSupported: true,
	}
	d.status = newStatus(d, nil)
	d.PreUpdateV2 = d.preUpdateV2
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

func (d *Device) temperatureRangeNative() []float64 {
	if d.temperatureRange == nil {
		if d.Model() == nil {
			return nil
		}
		minTemp, maxTemp := defaultMinTemp, defaultMaxTemp
		key := d.StateKey(stateTargetTemp)
		if rangeInfo, ok := d.Model().RangeValue(key); ok {
			if rangeInfo.Min < minTemp {
				minTemp = rangeInfo.Min
			}
			if rangeInfo.Max > maxTemp {
				maxTemp = rangeInfo.Max
			}
		}
		d.temperatureRange = []float64{minTemp, maxTemp}
	}
	return d.temperatureRange
}

// OpModes returns the operation mode names the device supports.
func (d *Device) OpModes() []string {
	if d.supportedOpModes == nil {
		key := d.StateKey(supportOperationMode)
		options, ok := d.Model().EnumOptions(key)
		if !ok {
			d.supportedOpModes = []string{}
			return d.supportedOpModes
		}
		var names []string
		for name, label := range opModes {
			for _, supported := range options {
				if supported == label {
					names = append(names, name)
					break
				}
			}
		}
		sort.Strings(names)
		d.supportedOpModes = names
	}
	return d.supportedOpModes
}

// TargetTemperatureStep returns the temperature step the device accepts.
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

func (d *Device) set(ctx context.Context, ck device.CmdKey, value any, ctrlPath string) error {
	ctrl, cmd, key := d.CmdKeys(ck)
	err := d.Set(ctx, ctrl, cmd, device.SetOptions{
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

// SetOpMode sets the operation mode by name.
func (d *Device) SetOpMode(ctx context.Context, mode string) error {
	for _, m := range d.OpModes() {
		if m == mode {
			key := d.StateKey(stateOperationMode)
			return d.set(ctx, cmdOpMode, d.Model().EnumValue(key, opModes[mode]), "")
		}
	}
	return fmt.Errorf("waterheater %s: invalid operating mode %q", d.UniqueID(), mode)
}

// SetTargetTemp sets the target temperature, given in the configured unit.
func (d *Device) SetTargetTemp(ctx context.Context, temp float64) error {
	rangeInfo := d.temperatureRangeNative()
	convTemp := d.f2c(temp)
	if rangeInfo != nil && (convTemp < rangeInfo[0] || convTemp > rangeInfo[1]) {
		return fmt.Errorf("waterheater %s: target temperature out of range: %v",
			d.UniqueID(), temp)
	}
	return d.set(ctx, cmdTargetTemp, convTemp, "")
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

// preUpdateV2 arms the monitoring events so a direct query returns power
// and temperature data.
func (d *Device) preUpdateV2(ctx context.Context) error {
	return d.set(ctx, cmdEnableEventV2, "70", "control")
}

// Poll fetches the device's current status.
func (d *Device) Poll(ctx context.Context) (*Status, error) {
	res, err := d.PollData(ctx, device.PollOptions{QueryDevice: true})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	d.status = newStatus(d, res)
	return d.status, nil
}
