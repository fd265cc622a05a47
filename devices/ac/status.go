package ac

import (
	"strconv"

	"github.com/ollo69/wideq-go/device"
)

type filterEntry struct {
	feat    string
	useKeys []string
	maxKeys []string
}

var filterTypes = []filterEntry{
	{
		feat:    device.FeatFilterMainLife,
		useKeys: []string{filterV1Use, "airState.filterMngStates.useTime"},
		maxKeys: []string{filterV1Max, "airState.filterMngStates.maxTime"},
	},
}

// Status decodes one polled payload of an air conditioner.
type Status struct {
	*device.Status
	acDev *Device

	operation    string
	operationSet bool

	// Models that report filter use time directly in the payload report
	// the remaining time instead of the used time.
	filterUseTimeInverted bool
}

func newStatus(acDev *Device, data map[string]any) *Status {
	s := &Status{
		Status:                device.NewStatus(acDev.Base, data),
		acDev:                 acDev,
		filterUseTimeInverted: true,
	}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
}

func (s *Status) strToTemp(raw any) (float64, bool) {
	temp, ok := device.StrToNum(asString(raw))
	if !ok || temp == 0 {
		return 0, false
	}
	return s.acDev.ConvTempUnit(temp), true
}

func (s *Status) getOperation() string {
	if !s.operationSet {
		key := s.StateKey(stateOperation)
		s.operation = s.LookupEnum(key)
		s.operationSet = true
	}
	return nameForLabel(operationNames, s.operation)
}

// updateFilterStatus merges the separately polled filter counters into the
// payload. Returns false when the payload already carries live counters.
func (s *Status) updateFilterStatus(values map[string]any) bool {
	s.filterUseTimeInverted = false

	if !s.IsInfoV2() {
		for k, v := range values {
			s.Data()[k] = v
		}
		return true
	}

	// ACv2 may return filter counters in the payload; when max_time is
	// non-zero there the payload wins.
	updated := false
	for _, filters := range filterTypes {
		maxKey := s.StateKey(device.Key{filters.maxKeys[0], filters.maxKeys[1]})
		if cur, ok := device.ToInt(s.Data()[maxKey]); ok && cur != 0 {
			continue
		}
		useKey := s.StateKey(device.Key{filters.useKeys[0], filters.useKeys[1]})
		for _, key := range []string{useKey, maxKey} {
			if v, ok := values[key]; ok {
				s.Data()[key] = v
				updated = true
			}
		}
	}

	s.filterUseTimeInverted = !updated
	return updated
}

func (s *Status) update(key string, value any) {
	if !s.UpdateStatus(key, value) {
		return
	}
	if key == stateOperation[0] || key == stateOperation[1] {
		s.operationSet = false
	}
}

// IsOn reports whether the unit is running.
func (s *Status) IsOn() bool {
	op := s.getOperation()
	return op != "" && op != "OFF"
}

// Operation returns the current operation name.
func (s *Status) Operation() string { return s.getOperation() }

// OperationMode returns the current operation mode name.
func (s *Status) OperationMode() string {
	value := s.LookupEnum(s.StateKey(stateOperationMode))
	return nameForLabel(acModes, value)
}

// IsHotWaterOn reports whether the AWHP hot water mode is engaged.
func (s *Status) IsHotWaterOn() bool {
	value := s.LookupEnum(s.StateKey(stateHotWaterMode))
	return value == modeOn
}

// FanSpeed returns the current fan speed name.
func (s *Status) FanSpeed() string {
	value := s.LookupEnum(s.StateKey(stateWindStrength))
	return nameForLabel(fanSpeeds, value)
}

// HorizontalStepMode returns the current horizontal vane position name.
func (s *Status) HorizontalStepMode() string {
	value := s.LookupEnum(s.StateKey(stateWDirHStep))
	return nameForLabel(hStepModes, value)
}

// IsHorizontalSwingOn reports whether the horizontal swing is engaged.
func (s *Status) IsHorizontalSwingOn() bool {
	return s.LookupEnum(s.StateKey(stateWDirHSwing)) == modeOn
}

// VerticalStepMode returns the current vertical vane position name.
func (s *Status) VerticalStepMode() string {
	value := s.LookupEnum(s.StateKey(stateWDirVStep))
	return nameForLabel(vStepModes, value)
}

// IsVerticalSwingOn reports whether the vertical swing is engaged.
func (s *Status) IsVerticalSwingOn() bool {
	return s.LookupEnum(s.StateKey(stateWDirVSwing)) == modeOn
}

// CurrentTemp returns the room temperature in the configured unit.
func (s *Status) CurrentTemp() (float64, bool) {
	key := s.StateKey(stateCurrentTemp)
	value, ok := s.strToTemp(s.Value(key))
	if ok {
		s.UpdateFeature(device.FeatRoomTemp, formatTemp(value), false)
	}
	return value, ok
}

// TargetTemp returns the target temperature in the configured unit.
func (s *Status) TargetTemp() (float64, bool) {
	return s.strToTemp(s.Value(s.StateKey(stateTargetTemp)))
}

// DuctZonesState returns the packed duct zone state.
func (s *Status) DuctZonesState() (int, bool) {
	return device.ToInt(s.Value(s.StateKey(stateDuctZone)))
}

// DuctZonesType returns the configured duct zone type, thinq1 only.
func (s *Status) DuctZonesType() (int, bool) {
	if s.IsInfoV2() {
		return 0, false
	}
	return device.ToInt(s.Value(ductZoneV1Type))
}

// EnergyCurrent returns the instant power usage in watts.
func (s *Status) EnergyCurrent() (int, bool) {
	value, ok := device.ToInt(s.Value(s.StateKey(statePower)))
	if !ok {
		return 0, false
	}
	// some devices always report 50 while in standby
	if value <= 50 && !s.IsOn() {
		value = 5
	}
	s.UpdateFeature(device.FeatEnergyCurrent, strconv.Itoa(value), false)
	return value, true
}

// Humidity returns the measured relative humidity.
func (s *Status) Humidity() (float64, bool) {
	raw, ok := device.ToInt(s.LookupRange(s.StateKey(stateHumidity)))
	if !ok {
		return 0, false
	}
	value := float64(raw)
	if value >= 100 {
		value /= 10
	}
	s.UpdateFeature(device.FeatHumidity, strconv.FormatFloat(value, 'f', -1, 64), false)
	return value, true
}

// ModeAirClean reports whether the air clean mode is engaged.
func (s *Status) ModeAirClean() (bool, bool) {
	if !s.acDev.IsModeAirCleanSupported() {
		return false, false
	}
	value := s.LookupEnum(s.StateKey(stateModeAirClean))
	if value == "" {
		return false, false
	}
	status := value == modeAirCleanOn
	s.UpdateFeature(device.FeatModeAirClean, boolState(status), false)
	return status, true
}

// ModeJet reports whether a jet mode is engaged.
func (s *Status) ModeJet() (bool, bool) {
	if s.acDev.SupportedModeJet() == JetNone {
		return false, false
	}
	value := s.LookupEnum(s.StateKey(stateModeJet))
	if value == "" {
		return false, false
	}
	name := nameForLabel(jetModes, value)
	status := name != "" && name != "OFF"
	s.UpdateFeature(device.FeatModeJet, boolState(status), false)
	return status, true
}

// LightingDisplay reports whether the display lighting is on.
func (s *Status) LightingDisplay() (bool, bool) {
	value, ok := device.ToInt(s.Value(s.StateKey(stateLightingDisplay)))
	if !ok {
		return false, false
	}
	status := strconv.Itoa(value) == lightingDisplayOn
	s.UpdateFeature(device.FeatLightingDisplay, boolState(status), false)
	return status, true
}

// FiltersLife returns the remaining life percentage of each filter.
func (s *Status) FiltersLife() map[string]string {
	result := map[string]string{}
	for _, filters := range filterTypes {
		life := s.FilterLife(filters.useKeys, filters.maxKeys, nil, "", s.filterUseTimeInverted)
		if life == "" {
			continue
		}
		s.UpdateFeature(filters.feat, life, false)
		result[filters.feat] = life
	}
	return result
}

// WaterInCurrentTemp returns the AWHP inlet water temperature.
func (s *Status) WaterInCurrentTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	value, ok := s.strToTemp(s.Value(s.StateKey(stateWaterInTemp)))
	if ok {
		s.UpdateFeature(device.FeatWaterInTemp, formatTemp(value), false)
	}
	return value, ok
}

// WaterOutCurrentTemp returns the AWHP outlet water temperature.
func (s *Status) WaterOutCurrentTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	value, ok := s.strToTemp(s.Value(s.StateKey(stateWaterOutTemp)))
	if ok {
		s.UpdateFeature(device.FeatWaterOutTemp, formatTemp(value), false)
	}
	return value, ok
}

// WaterTargetMinTemp returns the AWHP minimum water target temperature.
func (s *Status) WaterTargetMinTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	return s.strToTemp(s.Value(s.StateKey(stateWaterMinTemp)))
}

// WaterTargetMaxTemp returns the AWHP maximum water target temperature.
func (s *Status) WaterTargetMaxTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	return s.strToTemp(s.Value(s.StateKey(stateWaterMaxTemp)))
}

// ModeAWHPSilent reports whether the AWHP silent mode is engaged.
func (s *Status) ModeAWHPSilent() (bool, bool) {
	if !s.IsInfoV2() {
		return false, false
	}
	value := s.LookupEnum(s.StateKey(stateModeAWHPSilent))
	if value == "" {
		return false, false
	}
	status := value == modeOn
	s.UpdateFeature(device.FeatModeAWHPSilent, boolState(status), false)
	return status, true
}

// HotWaterCurrentTemp returns the AWHP hot water temperature.
func (s *Status) HotWaterCurrentTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	value, ok := s.strToTemp(s.Value(s.StateKey(stateHotWaterTemp)))
	if ok {
		s.UpdateFeature(device.FeatHotWaterTemp, formatTemp(value), false)
	}
	return value, ok
}

// HotWaterTargetTemp returns the AWHP hot water target temperature.
func (s *Status) HotWaterTargetTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	return s.strToTemp(s.Value(s.StateKey(stateHotWaterTargetTemp)))
}

// HotWaterTargetMinTemp returns the minimum hot water target temperature.
func (s *Status) HotWaterTargetMinTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	return s.strToTemp(s.Value(s.StateKey(stateHotWaterMinTemp)))
}

// HotWaterTargetMaxTemp returns the maximum hot water target temperature.
func (s *Status) HotWaterTargetMaxTemp() (float64, bool) {
	if !s.IsInfoV2() {
		return 0, false
	}
	return s.strToTemp(s.Value(s.StateKey(stateHotWaterMaxTemp)))
}

func (s *Status) updateFeatures() {
	s.CurrentTemp()
	s.EnergyCurrent()
	s.FiltersLife()
	s.Humidity()
	s.ModeAirClean()
	s.ModeJet()
	s.LightingDisplay()
	s.WaterInCurrentTemp()
	s.WaterOutCurrentTemp()
	s.ModeAWHPSilent()
	s.HotWaterCurrentTemp()
}

func boolState(status bool) string {
	if status {
		return device.StateOn
	}
	return device.StateOff
}

func formatTemp(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
