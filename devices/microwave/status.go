package microwave

import (
	"strconv"

	"github.com/ollo69/wideq-go/device"
)

// Status decodes one polled payload of a microwave.
type Status struct {
	*device.Status
}

func newStatus(mwDev *Device, data map[string]any) *Status {
	s := &Status{Status: device.NewStatus(mwDev.Base, data)}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
}

// OvenUpperState returns the oven state feature. Known microwave models
// only report the upper oven compartment.
func (s *Status) OvenUpperState() string {
	status := s.LookupEnum("UpperOvenState")
	if status == "" {
		return ""
	}
	if status == itemStateOff {
		status = device.BitOff
	}
	return s.UpdateFeature(device.FeatOvenUpperState, status, true)
}

// OvenUpperMode returns the oven cook mode feature.
func (s *Status) OvenUpperMode() string {
	status := s.LookupEnum("UpperCookMode")
	if status == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatOvenUpperMode, status, true)
}

// IsOn reports whether the oven is running.
func (s *Status) IsOn() bool {
	res := s.OvenUpperState()
	return res != "" && res != device.StateOff
}

// IsClockDisplayOn reports whether the clock is shown on the display.
func (s *Status) IsClockDisplayOn() string {
	status := s.Value(stateClockDisplay)
	if status == nil {
		return ""
	}
	return s.UpdateFeature(device.FeatClockDisplay, boolState(status == modeClkOn), false)
}

// IsSoundOn reports whether the beeper is enabled.
func (s *Status) IsSoundOn() string {
	status := s.Value(stateSound)
	if status == nil {
		return ""
	}
	return s.UpdateFeature(device.FeatSound, boolState(status == modeVolOn), false)
}

// WeightUnit returns the defrost weight unit feature, KG or LB.
func (s *Status) WeightUnit() string {
	name := nameForValue(weightUnits, s.LookupEnum(stateDefrostWMode))
	if name == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatWeightUnit, name, false)
}

// DisplayScrollSpeed returns the display scroll speed feature.
func (s *Status) DisplayScrollSpeed() string {
	name := nameForValue(displayScrollSpeeds, s.LookupEnum(stateDisplayScroll))
	if name == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatDisplayScrollSpeed, name, false)
}

// LightMode returns the current light mode feature.
func (s *Status) LightMode() string {
	name := nameForValue(lightLevels, levelValue(s.LookupRange(stateLampLevel)))
	if name == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatLightMode, name, false)
}

// VentSpeed returns the current vent speed feature.
func (s *Status) VentSpeed() string {
	name := nameForValue(ventSpeeds, levelValue(s.LookupRange(stateVentLevel)))
	if name == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatVentSpeed, name, false)
}

func (s *Status) updateFeatures() {
	s.OvenUpperState()
	s.OvenUpperMode()
	s.IsClockDisplayOn()
	s.IsSoundOn()
	s.WeightUnit()
	s.DisplayScrollSpeed()
	s.LightMode()
	s.VentSpeed()
}

func boolState(on bool) string {
	if on {
		return device.StateOn
	}
	return device.StateOff
}

func levelValue(raw any) string {
	value, ok := device.ToInt(raw)
	if !ok {
		return ""
	}
	return strconv.Itoa(value)
}
