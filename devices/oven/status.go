package oven

import (
	"strconv"
	"time"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/model"
)

// Status decodes one polled payload of a cooking range.
type Status struct {
	*device.Status
	ovDev *Device

	tempUnit    string
	targetTemps []int
}

func newStatus(ovDev *Device, data map[string]any) *Status {
	s := &Status{
		Status: device.NewStatus(ovDev.Base, data),
		ovDev:  ovDev,
	}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
}

// OvenTempUnit returns the temperature unit used in reported temperatures,
// CELSIUS or FAHRENHEIT.
func (s *Status) OvenTempUnit() string {
	s.getTargetTemps()
	return s.getOvenTempUnit()
}

func (s *Status) getOvenTempUnit() string {
	if s.tempUnit == "" {
		raw := s.LookupEnum("MonTempUnit")
		if raw == "" {
			s.tempUnit = device.StateNone
		} else if unit, ok := ovenTempUnit[raw]; ok {
			s.tempUnit = unit
		} else {
			s.tempUnit = unitCelsius
		}
	}
	return s.tempUnit
}

// unitKey picks the payload key carrying values in the current unit.
func (s *Status) unitKey(fKey, cKey string) string {
	switch s.getOvenTempUnit() {
	case unitFahrenheit:
		return fKey
	case unitCelsius:
		return cKey
	}
	return ""
}

func extractBits(bits model.BitValue, name string, packed int) (int, bool) {
	for start, opt := range bits.Options {
		if opt.Value == name {
			mask := 1<<opt.Length - 1
			return packed >> start & mask, true
		}
	}
	return 0, false
}

// bitTargetTemp unpacks a thinq1 target temperature carried as a bit field
// together with the temperature unit.
func (s *Status) bitTargetTemp(key string) (int, bool) {
	if s.IsInfoV2() {
		return 0, false
	}
	raw, ok := s.Data()[key]
	if !ok {
		return 0, false
	}
	bits, ok := s.ovDev.Model().BitOptions(key)
	if !ok {
		return 0, false
	}
	first, ok := bits.Options[0]
	if !ok {
		return 0, false
	}
	packed, ok := device.ToInt(raw)
	if !ok {
		return 0, false
	}
	target, ok := extractBits(bits, first.Value, packed)
	if !ok {
		return 0, false
	}
	if _, found := s.Data()["MonTempUnit"]; !found {
		if unit, ok := extractBits(bits, "MonTempUnit", packed); ok {
			s.Data()["MonTempUnit"] = strconv.Itoa(unit)
			s.tempUnit = ""
			s.getOvenTempUnit()
		}
	}
	return target, true
}

func (s *Status) targetTemp(bitKey, fKey, cKey string) int {
	if value, ok := s.bitTargetTemp(bitKey); ok {
		return value
	}
	key := s.unitKey(fKey, cKey)
	if key == "" {
		return 0
	}
	value, _ := device.ToInt(s.Value(key))
	return value
}

func (s *Status) getTargetTemps() {
	if s.targetTemps != nil {
		return
	}
	lower := s.targetTemp("LowerTargetTemp", "LowerTargetTemp_F", "LowerTargetTemp_C")
	upper := s.targetTemp("UpperTargetTemp", "UpperTargetTemp_F", "UpperTargetTemp_C")
	s.targetTemps = []int{lower, upper}
}

// OvenLowerTargetTemp returns the lower oven target temperature, 0 when
// not available.
func (s *Status) OvenLowerTargetTemp() int {
	s.getTargetTemps()
	return s.targetTemps[0]
}

// OvenUpperTargetTemp returns the upper oven target temperature, 0 when
// not available.
func (s *Status) OvenUpperTargetTemp() int {
	s.getTargetTemps()
	return s.targetTemps[1]
}

func (s *Status) timeDelta(hourKey, minKey, secKey string) (time.Duration, bool) {
	hours, hOK := device.ToInt(s.Value(hourKey))
	mins, mOK := device.ToInt(s.Value(minKey))
	secs, sOK := device.ToInt(s.Value(secKey))
	if !hOK && !mOK && !sOK {
		return 0, false
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second, true
}

// finishTime converts a remaining-time delta to an absolute finish time.
// A zero delta maps to the start of the current day so an idle timer keeps
// a stable value.
func finishTime(delta time.Duration) time.Time {
	now := time.Now()
	if delta > 0 {
		return now.Add(delta)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (s *Status) timerTime(feature, hourKey, minKey, secKey string) (time.Time, bool) {
	delta, ok := s.timeDelta(hourKey, minKey, secKey)
	if !ok {
		s.UpdateFeature(feature, "", false)
		return time.Time{}, false
	}
	finish := finishTime(delta)
	s.UpdateFeature(feature, finish.Format(time.RFC3339), false)
	return finish, true
}

func (s *Status) timerState(feature, hourKey, minKey, secKey string) string {
	delta, ok := s.timeDelta(hourKey, minKey, secKey)
	state := device.StateOff
	if ok && delta > 0 {
		state = device.StateOn
	}
	return s.UpdateFeature(feature, state, true)
}

// OvenUpperTimerTime returns the upper oven timer finish time.
func (s *Status) OvenUpperTimerTime() (time.Time, bool) {
	return s.timerTime(device.FeatOvenUpperTimerTime,
		"UpperTimerHour", "UpperTimerMin", "UpperTimerSec")
}

// OvenUpperCookTimerTime returns the upper oven cook finish time.
func (s *Status) OvenUpperCookTimerTime() (time.Time, bool) {
	return s.timerTime(device.FeatOvenUpperCookTimerTime,
		"UpperCookTimeHour", "UpperCookTimeMin", "UpperCookTimeSec")
}

// OvenLowerTimerTime returns the lower oven timer finish time.
func (s *Status) OvenLowerTimerTime() (time.Time, bool) {
	return s.timerTime(device.FeatOvenLowerTimerTime,
		"LowerTimerHour", "LowerTimerMin", "LowerTimerSec")
}

// OvenLowerCookTimerTime returns the lower oven cook finish time.
func (s *Status) OvenLowerCookTimerTime() (time.Time, bool) {
	return s.timerTime(device.FeatOvenLowerCookTimerTime,
		"LowerCookTimeHour", "LowerCookTimeMin", "LowerCookTimeSec")
}

// OvenUpperTimerState returns the upper oven timer on/off feature.
func (s *Status) OvenUpperTimerState() string {
	return s.timerState(device.FeatOvenUpperTimerState,
		"UpperTimerHour", "UpperTimerMin", "UpperTimerSec")
}

// OvenUpperCookTimerState returns the upper oven cook timer on/off feature.
func (s *Status) OvenUpperCookTimerState() string {
	return s.timerState(device.FeatOvenUpperCookTimerState,
		"UpperCookTimeHour", "UpperCookTimeMin", "UpperCookTimeSec")
}

// OvenLowerTimerState returns the lower oven timer on/off feature.
func (s *Status) OvenLowerTimerState() string {
	return s.timerState(device.FeatOvenLowerTimerState,
		"LowerTimerHour", "LowerTimerMin", "LowerTimerSec")
}

// OvenLowerCookTimerState returns the lower oven cook timer on/off feature.
func (s *Status) OvenLowerCookTimerState() string {
	return s.timerState(device.FeatOvenLowerCookTimerState,
		"LowerCookTimeHour", "LowerCookTimeMin", "LowerCookTimeSec")
}

func (s *Status) enumState(feature, key string) string {
	status := s.LookupEnum(key)
	if status == "" {
		return ""
	}
	if status == itemStateOff {
		status = device.BitOff
	}
	return s.UpdateFeature(feature, status, true)
}

// CooktopLeftFrontState returns the left front burner state. Some models
// report an aggregated state for all burners on this position.
func (s *Status) CooktopLeftFrontState() string {
	return s.enumState(device.FeatCooktopLeftFrontState, "LFState")
}

// CooktopLeftRearState returns the left rear burner state.
func (s *Status) CooktopLeftRearState() string {
	return s.enumState(device.FeatCooktopLeftRearState, "LRState")
}

// CooktopCenterState returns the center burner state.
func (s *Status) CooktopCenterState() string {
	return s.enumState(device.FeatCooktopCenterState, "CenterState")
}

// CooktopRightFrontState returns the right front burner state.
func (s *Status) CooktopRightFrontState() string {
	return s.enumState(device.FeatCooktopRightFrontState, "RFState")
}

// CooktopRightRearState returns the right rear burner state.
func (s *Status) CooktopRightRearState() string {
	return s.enumState(device.FeatCooktopRightRearState, "RRState")
}

// IsCooktopOn reports whether any burner is on.
func (s *Status) IsCooktopOn() bool {
	states := []string{
		s.CooktopCenterState(),
		s.CooktopLeftFrontState(),
		s.CooktopLeftRearState(),
		s.CooktopRightFrontState(),
		s.CooktopRightRearState(),
	}
	for _, res := range states {
		if res != "" && res != device.StateOff {
			return true
		}
	}
	return false
}

// OvenLowerState returns the lower oven state feature.
func (s *Status) OvenLowerState() string {
	return s.enumState(device.FeatOvenLowerState, "LowerOvenState")
}

// OvenLowerMode returns the lower oven cook mode feature.
func (s *Status) OvenLowerMode() string {
	status := s.LookupEnum("LowerCookMode")
	if status == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatOvenLowerMode, status, true)
}

// OvenUpperState returns the upper oven state feature.
func (s *Status) OvenUpperState() string {
	return s.enumState(device.FeatOvenUpperState, "UpperOvenState")
}

// OvenUpperMode returns the upper oven cook mode feature.
func (s *Status) OvenUpperMode() string {
	status := s.LookupEnum("UpperCookMode")
	if status == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatOvenUpperMode, status, true)
}

// IsOvenOn reports whether any oven compartment is on.
func (s *Status) IsOvenOn() bool {
	for _, res := range []string{s.OvenLowerState(), s.OvenUpperState()} {
		if res != "" && res != device.StateOff {
			return true
		}
	}
	return false
}

// IsOn reports whether the range is in use.
func (s *Status) IsOn() bool { return s.IsCooktopOn() || s.IsOvenOn() }

func (s *Status) currentTemp(feature, fKey, cKey string) string {
	key := s.unitKey(fKey, cKey)
	if key == "" {
		return ""
	}
	status := ""
	// 0 means not available
	if value, ok := device.ToInt(s.Value(key)); ok && value != 0 {
		status = strconv.Itoa(value)
	}
	return s.UpdateFeatureAllowNone(feature, status, false)
}

// OvenLowerCurrentTemp returns the lower oven temperature feature.
func (s *Status) OvenLowerCurrentTemp() string {
	return s.currentTemp(device.FeatOvenLowerCurrentTemp,
		"LowerCookTemp_F", "LowerCookTemp_C")
}

// OvenUpperCurrentTemp returns the upper oven temperature feature.
func (s *Status) OvenUpperCurrentTemp() string {
	return s.currentTemp(device.FeatOvenUpperCurrentTemp,
		"UpperCookTemp_F", "UpperCookTemp_C")
}

func (s *Status) updateFeatures() {
	s.CooktopLeftFrontState()
	s.CooktopLeftRearState()
	s.CooktopCenterState()
	s.CooktopRightFrontState()
	s.CooktopRightRearState()
	s.OvenLowerState()
	s.OvenLowerMode()
	s.OvenLowerCurrentTemp()
	s.OvenUpperState()
	s.OvenUpperMode()
	s.OvenUpperCurrentTemp()
	s.OvenUpperTimerTime()
	s.OvenUpperCookTimerTime()
	s.OvenLowerTimerTime()
	s.OvenLowerCookTimerTime()
	s.OvenUpperTimerState()
	s.OvenUpperCookTimerState()
	s.OvenLowerTimerState()
	s.OvenLowerCookTimerState()
}
