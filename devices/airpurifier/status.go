package airpurifier

import (
	"strconv"

	"github.com/ollo69/wideq-go/device"
)

// Status decodes one polled payload of an air purifier.
type Status struct {
	*device.Status
	apDev *Device

	operation    string
	operationSet bool
}

func newStatus(apDev *Device, data map[string]any) *Status {
	s := &Status{
		Status: device.NewStatus(apDev.Base, data),
		apDev:  apDev,
	}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
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

// IsOn reports whether the device is running.
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

// OperationMode returns the current operation mode name.
func (s *Status) OperationMode() string {
	value := s.LookupEnum(s.StateKey(stateOperationMode))
	return nameForLabel(opModes, value)
}

// FanSpeed returns the current fan speed name.
func (s *Status) FanSpeed() string {
	value := s.LookupEnum(s.StateKey(stateWindStrength))
	return nameForLabel(fanSpeeds, value)
}

// FanPreset returns the current fan preset name.
func (s *Status) FanPreset() string {
	value := s.LookupEnum(s.StateKey(stateWindStrength))
	return nameForLabel(fanPresets, value)
}

func (s *Status) supportsPolution(label string) bool {
	suppKey := s.StateKey(supportAirPolution)
	return s.apDev.Model().EnumValue(suppKey, label) != ""
}

// CurrentHumidity returns the measured relative humidity.
func (s *Status) CurrentHumidity() (int, bool) {
	if !s.supportsPolution("@SENSOR_HUMID_SUPPORT") {
		return 0, false
	}
	value, ok := device.ToInt(s.LookupRange(s.StateKey(stateHumidity)))
	if !ok {
		return 0, false
	}
	s.UpdateFeature(device.FeatHumidity, strconv.Itoa(value), false)
	return value, true
}

func (s *Status) pmValue(feat, label string, stateKey device.Key) (int, bool) {
	if !s.supportsPolution(label) {
		return 0, false
	}
	value, ok := device.ToInt(s.LookupRange(s.StateKey(stateKey)))
	if !ok {
		return 0, false
	}
	s.UpdateFeature(feat, strconv.Itoa(value), false)
	return value, true
}

// PM1 returns the measured PM1 particle density.
func (s *Status) PM1() (int, bool) {
	return s.pmValue(device.FeatPM1, "@PM1_0_SUPPORT", statePM1)
}

// PM10 returns the measured PM10 particle density.
func (s *Status) PM10() (int, bool) {
	return s.pmValue(device.FeatPM10, "@PM10_SUPPORT", statePM10)
}

// PM25 returns the measured PM2.5 particle density.
func (s *Status) PM25() (int, bool) {
	return s.pmValue(device.FeatPM25, "@PM2_5_SUPPORT", statePM25)
}

// FiltersLife returns the remaining life percentage of each filter.
func (s *Status) FiltersLife() map[string]string {
	result := map[string]string{}
	supportKey := s.StateKey(supportMFilter)
	for _, filters := range filterTypes {
		life := s.FilterLife(filters.useKeys, filters.maxKeys, filters.types, supportKey, true)
		if life == "" {
			continue
		}
		s.UpdateFeature(filters.feat, life, false)
		result[filters.feat] = life
	}
	return result
}

func (s *Status) updateFeatures() {
	s.CurrentHumidity()
	s.PM1()
	s.PM10()
	s.PM25()
	s.FiltersLife()
}
