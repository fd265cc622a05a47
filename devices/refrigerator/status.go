package refrigerator

import (
	"strings"

	"github.com/ollo69/wideq-go/device"
)

// Status decodes one polled payload of a refrigerator.
type Status struct {
	*device.Status
	refDev *Device

	tempUnit TempUnit

	ecoFriendly    string
	ecoFriendlySet bool
	sabbath        string
	sabbathSet     bool
}

func newStatus(refDev *Device, data map[string]any) *Status {
	s := &Status{
		Status: device.NewStatus(refDev.Base, data),
		refDev: refDev,
	}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
}

func (s *Status) ecoFriendlyState() string {
	if !s.ecoFriendlySet {
		s.ecoFriendly = s.LookupEnum(stateEcoFriendly[0], stateEcoFriendly[1])
		s.ecoFriendlySet = true
	}
	return s.ecoFriendly
}

func (s *Status) sabbathState() string {
	if !s.sabbathSet {
		s.sabbath = s.LookupEnum("Sabbath", "sabbathMode")
		s.sabbathSet = true
	}
	return s.sabbath
}

func (s *Status) defaultIndex(keyMode, keyIndex string) any {
	config, ok := s.refDev.Model().ConfigValue(keyMode).(map[string]any)
	if !ok {
		return nil
	}
	return config[keyIndex]
}

func (s *Status) defaultTempIndex(keyMode, keyIndex string) any {
	config, ok := s.defaultIndex(keyMode, keyIndex).(map[string]any)
	if !ok {
		return nil
	}
	unitKey := "tempUnit_C"
	if s.getTempUnit() == Fahrenheit {
		unitKey = "tempUnit_F"
	}
	return config[unitKey]
}

func (s *Status) getTempUnit() TempUnit {
	if s.tempUnit == UnitNone {
		raw := s.LookupEnum("TempUnit", "tempUnit")
		if raw == "" {
			return UnitNone
		}
		unit, ok := tempUnitSymbols[raw]
		if !ok {
			unit = Celsius
		}
		s.tempUnit = unit
	}
	return s.tempUnit
}

// tempKey resolves the payload's encoded temperature, honoring the eco
// friendly defaults when that mode is engaged.
func (s *Status) tempKey(key string) (string, bool) {
	if s.EcoFriendlyEnabled() {
		if raw := s.defaultTempIndex("ecoFriendlyDefaultIndex", key); raw != nil {
			return asString(raw), true
		}
	}
	raw := s.Value(key)
	if raw == nil {
		return "", false
	}
	if s.IsInfoV2() {
		if v := device.IntOrNone(raw); v != "" {
			return v, true
		}
		return "", false
	}
	return asString(raw), true
}

// UpdateStatus overwrites a payload value and invalidates cached states.
func (s *Status) UpdateStatus(key string, value any) bool {
	if !s.Status.UpdateStatus(key, value) {
		return false
	}
	s.ecoFriendlySet = false
	return true
}

// UpdateStatusFeat overwrites a payload value and refreshes features.
func (s *Status) UpdateStatusFeat(key string, value any, updFeatures bool) bool {
	if !s.Status.UpdateStatusFeat(key, value, updFeatures) {
		return false
	}
	s.ecoFriendlySet = false
	return true
}

// IsOn reports whether the device is reachable.
func (s *Status) IsOn() bool { return s.HasData() }

func (s *Status) tempValue(stateKey device.Key, temps func(TempUnit, string) map[string]string) string {
	key := stateKey[0]
	unitKey := ""
	if s.IsInfoV2() {
		key = stateKey[1]
		unitKey = asString(s.Value("tempUnit"))
	}
	tempKey, ok := s.tempKey(key)
	if !ok {
		return device.StateNone
	}
	tempList := temps(s.getTempUnit(), unitKey)
	if value, ok := tempList[tempKey]; ok {
		return value
	}
	return tempKey
}

// TempFridge returns the current fridge temperature.
func (s *Status) TempFridge() string {
	return s.tempValue(stateFridgeTemp, s.refDev.FridgeTemps)
}

// TempFreezer returns the current freezer temperature.
func (s *Status) TempFreezer() string {
	return s.tempValue(stateFreezerTemp, s.refDev.FreezerTemps)
}

// TempUnit returns the temperature unit in use.
func (s *Status) TempUnit() TempUnit { return s.getTempUnit() }

// DoorOpenedState reports whether a door is open.
func (s *Status) DoorOpenedState() string {
	var state string
	if s.IsInfoV2() {
		state = asString(s.Value("atLeastOneDoorOpen"))
	} else {
		state = s.LookupEnum("DoorOpenState")
	}
	if state == "" {
		return device.StateNone
	}
	return s.refDev.EnumText(state)
}

// EcoFriendlyEnabled reports whether the eco friendly mode is engaged.
func (s *Status) EcoFriendlyEnabled() bool {
	return s.ecoFriendlyState() == device.LabelBitOn
}

// EcoFriendlyState returns the eco friendly feature state.
func (s *Status) EcoFriendlyState() string {
	key := s.StateKey(stateEcoFriendly)
	return s.UpdateFeatureItem(device.FeatEcoFriendly, key, s.ecoFriendlyState(), true)
}

// IcePlusStatus returns the ice plus feature state, thinq1 only.
func (s *Status) IcePlusStatus() string {
	if s.IsInfoV2() {
		return ""
	}
	key := stateIcePlus[0]
	return s.UpdateFeatureItem(device.FeatIcePlus, key, s.LookupEnum(key), true)
}

// ExpressFridgeStatus returns the express fridge feature state, thinq2 only.
func (s *Status) ExpressFridgeStatus() string {
	if !s.IsInfoV2() {
		return ""
	}
	key := stateExpressFridge[1]
	return s.UpdateFeatureItem(device.FeatExpressFridge, key, s.LookupEnum(key), true)
}

// ExpressModeStatus returns the express mode feature state, thinq2 only.
func (s *Status) ExpressModeStatus() string {
	if !s.IsInfoV2() {
		return ""
	}
	key := stateExpressMode[1]
	return s.UpdateFeatureItem(device.FeatExpressMode, key, s.LookupEnum(key), true)
}

// SmartSavingState returns the smart saving run state.
func (s *Status) SmartSavingState() string {
	state := s.LookupEnum("SmartSavingModeStatus", "smartSavingRun")
	if state == "" {
		return device.StateNone
	}
	return s.refDev.EnumText(state)
}

// SmartSavingMode returns the smart saving mode feature state.
func (s *Status) SmartSavingMode() string {
	key := "SmartSavingMode"
	if s.IsInfoV2() {
		key = "smartSavingMode"
	}
	return s.UpdateFeatureItem(device.FeatSmartSavingMode, key, s.LookupEnum(key), true)
}

// FreshAirFilterStatus returns the fresh air filter feature state.
func (s *Status) FreshAirFilterStatus() string {
	key := "FreshAirFilter"
	if s.IsInfoV2() {
		key = "freshAirFilter"
	}
	return s.UpdateFeatureItem(device.FeatFreshAirFilter, key, s.LookupEnum(key), true)
}

// WaterFilterUsedMonth returns the months the water filter has been in use.
func (s *Status) WaterFilterUsedMonth() string {
	key := "WaterFilterUsedMonth"
	counter := ""
	if s.IsInfoV2() {
		key = "waterFilter"
		if status := asString(s.Value(key)); status != "" {
			if parts := strings.SplitN(status, "_", 2); len(parts) > 1 {
				counter = parts[0]
			}
		}
	} else {
		counter = asString(s.Value(key))
	}
	value := counter
	if value == "" {
		value = "N/A"
	}
	return s.UpdateFeatureItem(device.FeatWaterFilterUsedMonth, key, value, false)
}

// LockedState reports whether the controls are locked.
func (s *Status) LockedState() string {
	state := s.LookupEnum("LockingStatus")
	if state == "" {
		return device.StateNone
	}
	return s.refDev.EnumText(state)
}

// ActiveSavingStatus returns the active saving counter.
func (s *Status) ActiveSavingStatus() string {
	if v := asString(s.Value("ActiveSavingStatus")); v != "" {
		return v
	}
	return "N/A"
}

// SabbathState reports whether the sabbath mode is engaged.
func (s *Status) SabbathState() string { return s.sabbathState() }

func (s *Status) updateFeatures() {
	s.EcoFriendlyState()
	s.IcePlusStatus()
	s.ExpressFridgeStatus()
	s.ExpressModeStatus()
	s.SmartSavingMode()
	s.FreshAirFilterStatus()
	s.WaterFilterUsedMonth()
}
