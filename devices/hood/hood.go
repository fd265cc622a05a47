// Package hood drives LG kitchen hoods.
package hood

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const (
	itemStateOff = "@OV_STATE_INITIAL_W"

	ctrlBasic = "basicCtrl"

	stateLampLevel = "LampLevel"
	stateVentLevel = "VentLevel"

	cmdLampLevel = "lampLevel"
	cmdVentLevel = "ventLevel"

	ctrlSetVentLamp = "setVentLamp"
)

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

func nameForLevel(levels map[string]string, value string) string {
	for name, level := range levels {
		if level == value {
			return name
		}
	}
	return ""
}

// Device is the hood facade.
type Device struct {
	*device.Base

	supportedLightModes map[string]string
	supportedVentSpeeds map[string]string

	pendingCmd map[string]any

	status *Status
}

// New creates a hood facade.
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

// prepareCommand wraps the pending vent/lamp settings in the full control
// payload expected by the device.
func (d *Device) prepareCommand(ctrlKey, command, key string, value any) map[string]any {
	if ctrlKey != ctrlSetVentLamp || d.pendingCmd == nil {
		return nil
	}
	hoodState := map[string]any{}
	for k, v := range d.pendingCmd {
		hoodState[k] = v
	}
	return map[string]any{
		"command":     "Set",
		"ctrlKey":     ctrlBasic,
		"dataSetList": map[string]any{"hoodState": hoodState},
	}
}

func (d *Device) setVentLamp(ctx context.Context, cmd map[string]any, key string, value any) error {
	d.pendingCmd = cmd
	defer func() { d.pendingCmd = nil }()
	err := d.Set(ctx, ctrlSetVentLamp, "", device.SetOptions{Key: key, Value: value})
	if err != nil {
		return err
	}
	if d.status != nil && key != "" {
		d.status.UpdateStatus(key, value)
	}
	return nil
}

// supportedValues returns the snapshot values the model declares for key,
// restricted to the levels known for this family.
func (d *Device) supportedValues(stateKey string, levels map[string]string) map[string]string {
	supported := map[string]string{}
	key := d.StateKey(device.K(stateKey))
	if options, ok := d.Model().EnumOptions(key); ok {
		for value := range options {
			if name := nameForLevel(levels, value); name != "" {
				supported[name] = value
			}
		}
		return supported
	}
	if rangeInfo, ok := d.Model().RangeValue(key); ok {
		for v := int(rangeInfo.Min); v <= int(rangeInfo.Max); v++ {
			value := strconv.Itoa(v)
			if name := nameForLevel(levels, value); name != "" {
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

// SetLightMode sets the hood light mode by name.
func (d *Device) SetLightMode(ctx context.Context, mode string) error {
	d.LightModes()
	level, ok := d.supportedLightModes[mode]
	if !ok {
		return fmt.Errorf("hood %s: invalid light mode %q", d.UniqueID(), mode)
	}
	intLevel, _ := strconv.Atoi(level)
	cmd := map[string]any{cmdLampLevel: intLevel}
	return d.setVentLamp(ctx, cmd, stateLampLevel, level)
}

// VentSpeeds returns the vent speed names the device supports.
func (d *Device) VentSpeeds() []string {
	if d.supportedVentSpeeds == nil {
		d.supportedVentSpeeds = d.supportedValues(stateVentLevel, ventSpeeds)
	}
	return sortedNames(d.supportedVentSpeeds)
}

// SetVentSpeed sets the hood vent speed by name.
func (d *Device) SetVentSpeed(ctx context.Context, speed string) error {
	d.VentSpeeds()
	level, ok := d.supportedVentSpeeds[speed]
	if !ok {
		return fmt.Errorf("hood %s: invalid vent speed %q", d.UniqueID(), speed)
	}
	intLevel, _ := strconv.Atoi(level)
	cmd := map[string]any{cmdVentLevel: intLevel}
	return d.setVentLamp(ctx, cmd, stateVentLevel, level)
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

func sortedNames(values map[string]string) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status decodes one polled payload of a hood.
type Status struct {
	*device.Status
}

func newStatus(hdDev *Device, data map[string]any) *Status {
	s := &Status{Status: device.NewStatus(hdDev.Base, data)}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
}

// HoodState returns the hood state feature.
func (s *Status) HoodState() string {
	status := s.LookupEnum("HoodState")
	if status == "" {
		return ""
	}
	if status == itemStateOff {
		status = device.BitOff
	}
	return s.UpdateFeature(device.FeatHoodState, status, true)
}

// IsOn reports whether the hood is running.
func (s *Status) IsOn() bool {
	res := s.HoodState()
	return res != "" && res != device.StateOff
}

// LightMode returns the current light mode feature.
func (s *Status) LightMode() string {
	name := nameForLevel(lightLevels, levelValue(s.LookupRange(stateLampLevel)))
	if name == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatLightMode, name, false)
}

// VentSpeed returns the current vent speed feature.
func (s *Status) VentSpeed() string {
	name := nameForLevel(ventSpeeds, levelValue(s.LookupRange(stateVentLevel)))
	if name == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatVentSpeed, name, false)
}

func levelValue(raw any) string {
	value, ok := device.ToInt(raw)
	if !ok {
		return ""
	}
	return strconv.Itoa(value)
}

func (s *Status) updateFeatures() {
	s.HoodState()
	s.LightMode()
	s.VentSpeed()
}
