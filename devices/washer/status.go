package washer

import (
	"strings"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

// bitFeatures are the single-bit options decoded from the packed payload.
var bitFeatures = []struct {
	feat   string
	keys   device.Key
	invert bool
}{
	{device.FeatAntiCrease, device.Key{"AntiCrease", "antiCrease"}, false},
	{device.FeatChildLock, device.Key{"ChildLock", "childLock"}, false},
	{device.FeatCreaseCare, device.Key{"CreaseCare", "creaseCare"}, false},
	{device.FeatDampDryBeep, device.Key{"DampDryBeep", "dampDryBeep"}, false},
	{device.FeatDelayStart, device.Key{"DelayStart", "delayStart"}, false},
	{device.FeatDetergent, device.Key{"DetergentStatus", "ezDetergentState"}, false},
	{device.FeatDetergentLow, device.Key{"DetergentRemaining", "detergentRemaining"}, false},
	{device.FeatDoorOpen, device.Key{"DoorClose", "doorClose"}, true},
	{device.FeatDoorLock, device.Key{"DoorLock", "doorLock"}, false},
	{device.FeatHandIron, device.Key{"HandIron", "handIron"}, false},
	{device.FeatMedicRinse, device.Key{"MedicRinse", "medicRinse"}, false},
	{device.FeatPreWash, device.Key{"PreWash", "preWash"}, false},
	{device.FeatRemoteStart, device.Key{"RemoteStart", "remoteStart"}, false},
	{device.FeatReservation, device.Key{"Reservation", "reservation"}, false},
	{device.FeatSelfClean, device.Key{"SelfClean", "selfClean"}, false},
	{device.FeatSoftener, device.Key{"SoftenerStatus", "ezSoftenerState"}, false},
	{device.FeatSoftenerLow, device.Key{"SoftenerRemaining", "softenerRemaining"}, false},
	{device.FeatSteam, device.Key{"Steam", "steam"}, false},
	{device.FeatSteamSoftener, device.Key{"SteamSoftener", "steamSoftener"}, false},
	{device.FeatTurboWash, device.Key{"TurboWash", "turboWash"}, false},
}

// Status decodes one washer or dryer payload.
type Status struct {
	*device.Status
	wm *Device

	internalRun  string
	runState     string
	preState     string
	preStateSet  bool
	processState string
	errMsg       string
	tclCount     string
}

func newStatus(wm *Device, data map[string]any, tclCount string, initRunState bool) *Status {
	s := &Status{
		Status:   device.NewStatus(wm.Base, data),
		wm:       wm,
		tclCount: tclCount,
	}
	s.SetFeatureUpdater(s.updateFeatures)
	if initRunState {
		// prime the device run state tracking
		s.getRunState()
	}
	return s
}

// keys prefixes lookup keys with the sub-unit name.
func (s *Status) keys(keys ...string) []string {
	if s.wm.subKey == "" {
		return keys
	}
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = s.wm.getKey(key)
	}
	return out
}

func (s *Status) getRunState() string {
	if s.runState == "" {
		key := s.DataKey(s.keys(powerStateKeys[0], powerStateKeys[1])...)
		state := ""
		if key != "" {
			state = s.LookupEnum(key)
		}
		if state == "" {
			s.internalRun = ""
			s.runState = statePowerOff
		} else {
			s.internalRun = asString(s.Data()[key])
			s.runState = state
		}
		s.wm.saveRunStates(s.runState, false)
	}
	return s.runState
}

func (s *Status) internalRunState() string {
	s.getRunState()
	return s.internalRun
}

func (s *Status) getPreState() (string, bool) {
	if !s.preStateSet {
		keys := s.keys("PreState", "preState")
		if s.ModelInfoKey(keys...) == "" {
			return "", false
		}
		runState := s.getRunState()
		state := s.LookupEnum(keys...)
		switch {
		case state == "":
			s.preState = statePowerOff
		case state == runState:
			s.preState = s.wm.PreState()
		default:
			s.preState = state
			s.wm.saveRunStates(state, true)
		}
		s.preStateSet = true
	}
	return s.preState, true
}

func (s *Status) getProcessState() (string, bool) {
	if s.processState == "" {
		keys := s.keys("ProcessState", "processState")
		if s.ModelInfoKey(keys...) == "" {
			return "", false
		}
		state := s.LookupEnum(keys...)
		if state == "" {
			state = device.StateNone
		}
		s.processState = state
	}
	return s.processState, true
}

func (s *Status) getError() string {
	if s.errMsg == "" {
		keys := s.keys("Error", "error")
		errVal := s.LookupEnum(keys...)
		if errVal == "" {
			errVal = s.LookupReference("title", keys...)
		}
		if errVal == "" {
			errVal = errorOff
		}
		s.errMsg = errVal
	}
	return s.errMsg
}

// setRunState overwrites the run state in the payload after a command, so
// the facade reflects it before the next poll.
func (s *Status) setRunState(code string) {
	key := s.DataKey(s.keys(powerStateKeys[0], powerStateKeys[1])...)
	if key == "" {
		return
	}
	if s.UpdateStatus(key, code) {
		s.runState = ""
		s.preStateSet = false
		s.internalRun = ""
	}
}

// IsOn reports whether the machine is powered on.
func (s *Status) IsOn() bool {
	return !strings.Contains(s.getRunState(), statePowerOff)
}

// IsDryer reports whether the machine dries rather than washes.
func (s *Status) IsDryer() bool {
	switch s.wm.Info().Type() {
	case thinq.DeviceDryer, thinq.DeviceTowerDryer:
		return true
	}
	return false
}

// IsRunCompleted reports whether the current payload shows a finished cycle.
func (s *Status) IsRunCompleted() bool {
	runState := s.getRunState()
	preState, ok := s.getPreState()
	if !ok {
		if preState, ok = s.getProcessState(); !ok {
			preState = device.StateNone
		}
	}
	for _, state := range endStates {
		if strings.Contains(runState, state) {
			return true
		}
		if strings.Contains(runState, statePowerOff) && strings.Contains(preState, state) {
			return true
		}
	}
	return false
}

// IsError reports whether the machine signals an error.
func (s *Status) IsError() bool {
	if !s.IsOn() {
		return false
	}
	errVal := s.getError()
	if errVal == errorOff {
		return false
	}
	for _, noError := range noErrorStates {
		if errVal == noError {
			return false
		}
	}
	return true
}

// CurrentCourse returns the friendly name of the running course.
func (s *Status) CurrentCourse() string {
	courseKey := s.wm.CourseKey(CourseBasic)
	if courseKey == "" {
		return device.StateNone
	}
	course := s.LookupReference("name", courseKey)
	return s.wm.EnumText(course)
}

// CurrentSmartCourse returns the friendly name of the running downloaded
// course.
func (s *Status) CurrentSmartCourse() string {
	courseKey := s.wm.CourseKey(CourseSmart)
	if courseKey == "" {
		return device.StateNone
	}
	course := s.LookupReference("name", courseKey)
	return s.wm.EnumText(course)
}

func (s *Status) timeInfo(v1Keys []string, v2Key string) string {
	if s.IsInfoV2() {
		if !s.IsOn() {
			return "0"
		}
		return device.IntOrNone(s.Value(s.keys(v2Key)...))
	}
	return asString(s.LookupRange(s.keys(v1Keys...)...))
}

// InitialTimeHour returns the hour part of the cycle's initial time.
func (s *Status) InitialTimeHour() string {
	return s.timeInfo([]string{"Initial_Time_H"}, "initialTimeHour")
}

// InitialTimeMinute returns the minute part of the cycle's initial time.
func (s *Status) InitialTimeMinute() string {
	return s.timeInfo([]string{"Initial_Time_M", "Initial_Time"}, "initialTimeMinute")
}

// RemainTimeHour returns the hour part of the remaining time.
func (s *Status) RemainTimeHour() string {
	return s.timeInfo([]string{"Remain_Time_H"}, "remainTimeHour")
}

// RemainTimeMinute returns the minute part of the remaining time.
func (s *Status) RemainTimeMinute() string {
	return s.timeInfo([]string{"Remain_Time_M", "Remain_Time"}, "remainTimeMinute")
}

// ReserveTimeHour returns the hour part of the reservation delay.
func (s *Status) ReserveTimeHour() string {
	return s.timeInfo([]string{"Reserve_Time_H"}, "reserveTimeHour")
}

// ReserveTimeMinute returns the minute part of the reservation delay.
func (s *Status) ReserveTimeMinute() string {
	return s.timeInfo([]string{"Reserve_Time_M", "Reserve_Time"}, "reserveTimeMinute")
}

// RunState returns the run state feature, none when powered off.
func (s *Status) RunState() string {
	runState := s.getRunState()
	if strings.Contains(runState, statePowerOff) {
		runState = device.StateNone
	}
	return s.UpdateFeature(device.FeatRunState, runState, true)
}

// PreState returns the previous run state feature.
func (s *Status) PreState() string {
	preState, ok := s.getPreState()
	if !ok {
		return ""
	}
	if strings.Contains(preState, statePowerOff) {
		preState = device.StateNone
	}
	return s.UpdateFeature(device.FeatPreState, preState, true)
}

// ProcessState returns the process state feature.
func (s *Status) ProcessState() string {
	process, ok := s.getProcessState()
	if !ok {
		return ""
	}
	if !s.IsOn() {
		process = device.StateNone
	}
	return s.UpdateFeature(device.FeatProcessState, process, true)
}

// ErrorMessage returns the error feature, none when no error is active.
func (s *Status) ErrorMessage() string {
	errVal := device.StateNone
	if s.IsError() {
		errVal = s.getError()
	}
	return s.UpdateFeature(device.FeatErrorMsg, errVal, true)
}

func (s *Status) enumFeature(feat string, getText bool, keys ...string) string {
	key := s.ModelInfoKey(s.keys(keys...)...)
	if key == "" {
		return ""
	}
	value := s.LookupEnum(key)
	if value == "" {
		value = device.StateNone
	}
	return s.UpdateFeature(feat, value, getText)
}

// SpinOptionState returns the selected spin speed.
func (s *Status) SpinOptionState() string {
	return s.enumFeature(device.FeatSpinSpeed, true, "SpinSpeed", "spin")
}

// WaterTempOptionState returns the selected water temperature.
func (s *Status) WaterTempOptionState() string {
	key := s.ModelInfoKey(s.keys("WTemp", "WaterTemp", "temp")...)
	if key == "" {
		return ""
	}
	if s.KeyExists("temp") && s.IsDryer() {
		return ""
	}
	value := s.LookupEnum(key)
	if value == "" {
		value = device.StateNone
	}
	return s.UpdateFeature(device.FeatWaterTemp, value, true)
}

// RinseModeOptionState returns the selected rinse mode.
func (s *Status) RinseModeOptionState() string {
	return s.enumFeature(device.FeatRinseMode, true, "RinseOption", "rinse")
}

// DryLevelOptionState returns the selected dry level.
func (s *Status) DryLevelOptionState() string {
	return s.enumFeature(device.FeatDryLevel, true, "DryLevel", "dryLevel")
}

// TempControlOptionState returns the selected drying temperature.
func (s *Status) TempControlOptionState() string {
	key := s.ModelInfoKey(s.keys("TempControl", "tempControl", "temp")...)
	if key == "" {
		return ""
	}
	if s.KeyExists("temp") && !s.IsDryer() {
		return ""
	}
	value := s.LookupEnum(key)
	if value == "" {
		value = device.StateNone
	}
	return s.UpdateFeature(device.FeatTempControl, value, true)
}

// TimeDryOptionState returns the timed-dry option.
func (s *Status) TimeDryOptionState() string {
	return s.enumFeature(device.FeatTimeDry, false, "TimeDry")
}

// EcoHybridOptionState returns the eco hybrid option.
func (s *Status) EcoHybridOptionState() string {
	return s.enumFeature(device.FeatEcoHybrid, true, "EcoHybrid", "ecoHybrid")
}

// TubCleanCount returns the cycles run since the last tub clean.
func (s *Status) TubCleanCount() string {
	key := s.wm.getKey("TCLCount")
	var result string
	if s.IsInfoV2() {
		result = device.IntOrNone(s.Value(key))
		if result == "" {
			return ""
		}
	} else {
		if s.ModelInfoKey(key) == "" {
			return ""
		}
		result = asString(s.Value(key))
		if result == "" {
			if result = s.tclCount; result == "" {
				result = "N/A"
			}
		}
	}
	return s.UpdateFeature(device.FeatTubCleanCount, result, false)
}

// StandbyState returns the standby feature.
func (s *Status) StandbyState() string {
	status := ""
	keys := s.keys("Standby", "standby")
	key := s.ModelInfoKey(keys...)
	if key != "" {
		status = s.LookupEnum(keys...)
	}
	if status == "" && !s.IsInfoV2() {
		status = s.LookupBit(keys[0])
	}
	if status == "" && key == "" {
		return ""
	}
	if status == "" {
		status = device.StateOff
	}
	return s.UpdateFeature(device.FeatStandby, status, true)
}

func (s *Status) updateBitFeatures() {
	index := 0
	if s.IsInfoV2() {
		index = 1
	}
	for _, bf := range bitFeatures {
		status := s.LookupBit(s.wm.getKey(bf.keys[index]))
		if bf.invert && status != "" {
			if status == device.StateOn {
				status = device.StateOff
			} else {
				status = device.StateOn
			}
		}
		s.UpdateFeature(bf.feat, status, false)
	}
}

func (s *Status) updateFeatures() {
	s.RunState()
	s.PreState()
	s.ProcessState()
	s.ErrorMessage()
	s.SpinOptionState()
	s.WaterTempOptionState()
	s.RinseModeOptionState()
	s.DryLevelOptionState()
	s.TempControlOptionState()
	s.EcoHybridOptionState()
	s.TubCleanCount()
	s.StandbyState()
	s.updateBitFeatures()
}
