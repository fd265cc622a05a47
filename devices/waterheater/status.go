package waterheater

import (
	"strconv"

	"github.com/ollo69/wideq-go/device"
)

// Status decodes one polled payload of a water heater.
type Status struct {
	*device.Status
	whDev *Device

	operation    string
	operationSet bool
}

func newStatus(whDev *Device, data map[string]any) *Status {
	s := &Status{
		Status: device.NewStatus(whDev.Base, data),
		whDev:  whDev,
	}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
}

func (s *Status) strToTemp(raw any) (float64, bool) {
	temp, ok := device.StrToNum(asString(raw))
	if !ok || temp == 0 {
		return 0, false
	}
	return s.whDev.ConvTempUnit(temp), true
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

// OperationMode returns the current operation mode name.
func (s *Status) OperationMode() string {
	value := s.LookupEnum(s.StateKey(stateOperationMode))
	for name, label := range opModes {
		if label == value {
			return name
		}
	}
	return ""
}

// CurrentTemp returns the hot water temperature in the configured unit.
func (s *Status) CurrentTemp() (float64, bool) {
	value, ok := s.strToTemp(s.Value(s.StateKey(stateCurrentTemp)))
	if ok {
		s.UpdateFeature(device.FeatHotWaterTemp,
			strconv.FormatFloat(value, 'f', -1, 64), false)
	}
	return value, ok
}

// TargetTemp returns the target temperature in the configured unit.
func (s *Status) TargetTemp() (float64, bool) {
	return s.strToTemp(s.Value(s.StateKey(stateTargetTemp)))
}

// EnergyCurrent returns the instant power usage in watts.
func (s *Status) EnergyCurrent() (int, bool) {
	value, ok := device.ToInt(s.Value(s.StateKey(statePower)))
	if !ok {
		return 0, false
	}
	// some devices always report 50 while in standby
	if value <= 50 {
		value = 5
	}
	s.UpdateFeature(device.FeatEnergyCurrent, strconv.Itoa(value), false)
	return value, true
}

func (s *Status) updateFeatures() {
	s.CurrentTemp()
	s.EnergyCurrent()
}

func asString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return ""
	}
}
