// Package fan drives LG fans.
package fan

import (
	"context"
	"fmt"
	"sort"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

var ctrlBasic = device.Key{"Control", "basicCtrl"}

var (
	supportWindStrength = device.Key{"SupportWindStrength", "support.airState.windStrength"}

	stateOperation    = device.Key{"Operation", "airState.operation"}
	stateWindStrength = device.Key{"WindStrength", "airState.windStrength"}
)

var (
	cmdOperation    = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateOperation}
	cmdWindStrength = device.CmdKey{Ctrl: ctrlBasic, Cmd: device.K("Set"), Key: stateWindStrength}
)

const (
	opOff = "@OFF"
	opOn  = "@ON"
)

var fanSpeeds = map[string]string{
	"LOWEST_LOW": "@LOWST_LOW",
	"LOWEST":     "@LOWST",
	"LOW":        "@LOW",
	"LOW_MID":    "@LOW_MED",
	"MID":        "@MED",
	"MID_HIGH":   "@MED_HIGH",
	"HIGH":       "@HIGH",
	"TURBO":      "@TURBO",
}

// Device is the fan facade.
type Device struct {
	*device.Base

	supportedFanSpeeds []string

	status *Status
}

// New creates a fan facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	d := &Device{Base: device.NewBase(client, info)}
	d.status = newStatus(d, nil)
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

// FanSpeeds returns the fan speed names the device supports.
func (d *Device) FanSpeeds() []string {
	if d.supportedFanSpeeds == nil {
		key := d.StateKey(supportWindStrength)
		options, ok := d.Model().EnumOptions(key)
		if !ok {
			d.supportedFanSpeeds = []string{}
			return d.supportedFanSpeeds
		}
		var names []string
		for name, label := range fanSpeeds {
			for _, supported := range options {
				if supported == label {
					names = append(names, name)
					break
				}
			}
		}
		sort.Strings(names)
		d.supportedFanSpeeds = names
	}
	return d.supportedFanSpeeds
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

// SetFanSpeed sets the fan speed by name.
func (d *Device) SetFanSpeed(ctx context.Context, speed string) error {
	for _, s := range d.FanSpeeds() {
		if s == speed {
			key := d.StateKey(stateWindStrength)
			return d.set(ctx, cmdWindStrength, d.Model().EnumValue(key, fanSpeeds[speed]))
		}
	}
	return fmt.Errorf("fan %s: invalid fan speed %q", d.UniqueID(), speed)
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

// Status decodes one polled payload of a fan.
type Status struct {
	*device.Status

	operation    string
	operationSet bool
}

func newStatus(fanDev *Device, data map[string]any) *Status {
	return &Status{Status: device.NewStatus(fanDev.Base, data)}
}

func (s *Status) getOperation() string {
	if !s.operationSet {
		s.operation = s.LookupEnum(s.StateKey(stateOperation))
		s.operationSet = true
	}
	return s.operation
}

func (s *Status) update(key string, value any) {
	if !s.UpdateStatus(key, value) {
		return
	}
	if key == stateOperation[0] || key == stateOperation[1] {
		s.operationSet = false
	}
}

// IsOn reports whether the fan is running.
func (s *Status) IsOn() bool {
	op := s.getOperation()
	return op != "" && op != opOff
}

// Operation returns the current operation name.
func (s *Status) Operation() string {
	switch s.getOperation() {
	case opOn:
		return "ON"
	case opOff:
		return "OFF"
	}
	return ""
}

// FanSpeed returns the current fan speed name.
func (s *Status) FanSpeed() string {
	value := s.LookupEnum(s.StateKey(stateWindStrength))
	for name, label := range fanSpeeds {
		if label == value {
			return name
		}
	}
	return ""
}
