package dehumidifier

import (
	"strconv"

	"github.com/ollo69/wideq-go/device"
)

// Status decodes one polled payload of a dehumidifier.
type Status struct {
	*device.Status

	operation    string
	operationSet bool
}

func newStatus(dhDev *Device, data map[string]any) *Status {
	s := &Status{Status: device.NewStatus(dhDev.Base, data)}
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

// CurrentHumidity returns the measured relative humidity.
func (s *Status) CurrentHumidity() (int, bool) {
	value, ok := device.ToInt(s.LookupRange(s.StateKey(stateCurrentHum)))
	if !ok {
		return 0, false
	}
	s.UpdateFeature(device.FeatHumidity, strconv.Itoa(value), false)
	return value, true
}

// TargetHumidity returns the desired relative humidity.
func (s *Status) TargetHumidity() (int, bool) {
	value, ok := device.ToInt(s.LookupRange(s.StateKey(stateTargetHum)))
	if !ok {
		return 0, false
	}
	s.UpdateFeature(device.FeatTargetHumidity, strconv.Itoa(value), false)
	return value, true
}

// WaterTankFull reports whether the water tank is full.
func (s *Status) WaterTankFull() string {
	value := s.LookupEnumBool(s.StateKey(stateTankLight))
	if value == "" {
		return ""
	}
	return s.UpdateFeature(device.FeatWaterTankFull, value, true)
}

func (s *Status) updateFeatures() {
	s.CurrentHumidity()
	s.TargetHumidity()
	s.WaterTankFull()
}
