// Package dishwasher drives LG dishwashers.
package dishwasher

import (
	"context"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const (
	statePowerOff = "@DW_STATE_POWER_OFF_W"
	errorOff      = "OFF"
	rootData      = "dishwasher"
)

var endStates = []string{"@DW_STATE_END_W", "@DW_STATE_COMPLETE_W"}

var noErrorStates = []string{
	"ERROR_NOERROR",
	"ERROR_NOERROR_TITLE",
	"No Error",
	"No_Error",
}

type bitFeature struct {
	feat string
	keys device.Key
}

var bitFeatures = []bitFeature{
	{device.FeatAutoDoor, device.Key{"AutoDoor", "autoDoor"}},
	{device.FeatChildLock, device.Key{"ChildLock", "childLock"}},
	{device.FeatDelayStart, device.Key{"DelayStart", "delayStart"}},
	{device.FeatDoorOpen, device.Key{"Door", "door"}},
	{device.FeatDualZone, device.Key{"DualZone", "dualZone"}},
	{device.FeatEnergySaver, device.Key{"EnergySaver", "energySaver"}},
	{device.FeatExtraDry, device.Key{"ExtraDry", "extraDry"}},
	{device.FeatHighTemp, device.Key{"HighTemp", "highTemp"}},
	{device.FeatNightDry, device.Key{"NightDry", "nightDry"}},
	{device.FeatRinseRefill, device.Key{"RinseRefill", "rinseRefill"}},
	{device.FeatSaltRefill, device.Key{"SaltRefill", "saltRefill"}},
}

// Device is the dishwasher facade.
type Device struct {
	*device.Base

	status *Status
}

// New creates a dishwasher facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	d := &Device{Base: device.NewBase(client, info)}
	d.status = newStatus(d, nil)
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

// ResetStatus clears the last polled status.
func (d *Device) ResetStatus() *Status {
	d.status = newStatus(d, nil)
	return d.status
}

// Poll fetches the device's current status.
func (d *Device) Poll(ctx context.Context) (*Status, error) {
	res, err := d.PollData(ctx, device.PollOptions{SnapshotKey: rootData})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	d.status = newStatus(d, res)
	return d.status, nil
}

// Status decodes one polled payload of a dishwasher.
type Status struct {
	*device.Status
	dwDev *Device

	runState string
	process  string
	errMsg   string
}

func newStatus(dwDev *Device, data map[string]any) *Status {
	s := &Status{
		Status: device.NewStatus(dwDev.Base, data),
		dwDev:  dwDev,
	}
	s.SetFeatureUpdater(s.updateFeatures)
	return s
}

func (s *Status) getRunState() string {
	if s.runState == "" {
		state := s.LookupEnum("State", "state")
		if state == "" {
			state = statePowerOff
		}
		s.runState = state
	}
	return s.runState
}

func (s *Status) getProcess() string {
	if s.process == "" {
		process := s.LookupEnum("Process", "process")
		if process == "" {
			process = device.StateNone
		}
		s.process = process
	}
	return s.process
}

func (s *Status) getError() string {
	if s.errMsg == "" {
		errMsg := s.LookupReference("title", "Error", "error")
		if errMsg == "" {
			errMsg = errorOff
		}
		s.errMsg = errMsg
	}
	return s.errMsg
}

// IsOn reports whether the dishwasher is on.
func (s *Status) IsOn() bool { return s.getRunState() != statePowerOff }

// IsRunCompleted reports whether the last cycle finished.
func (s *Status) IsRunCompleted() bool {
	runState := s.getRunState()
	process := s.getProcess()
	if contains(endStates, runState) {
		return true
	}
	return runState == statePowerOff && contains(endStates, process)
}

// IsError reports whether the dishwasher signals an error.
func (s *Status) IsError() bool {
	if !s.IsOn() {
		return false
	}
	errMsg := s.getError()
	return !contains(noErrorStates, errMsg) && errMsg != errorOff
}

// CurrentCourse returns the running course name.
func (s *Status) CurrentCourse() string {
	var courseKeys []string
	if s.IsInfoV2() {
		key, _ := s.dwDev.Model().ConfigValue("courseType").(string)
		courseKeys = []string{key}
	} else {
		courseKeys = []string{"APCourse", "Course"}
	}
	course := s.LookupReference("name", courseKeys...)
	return s.dwDev.EnumText(course)
}

// CurrentSmartCourse returns the running smart course name.
func (s *Status) CurrentSmartCourse() string {
	var courseKeys []string
	if s.IsInfoV2() {
		key, _ := s.dwDev.Model().ConfigValue("smartCourseType").(string)
		courseKeys = []string{key}
	} else {
		courseKeys = []string{"SmartCourse"}
	}
	course := s.LookupReference("name", courseKeys...)
	return s.dwDev.EnumText(course)
}

func (s *Status) timeValue(v1Key, v2Key string) string {
	if s.IsInfoV2() {
		return device.IntOrNone(s.Value(v2Key))
	}
	return asString(s.Value(v1Key))
}

// InitialTimeHour returns the hours of the cycle's initial time.
func (s *Status) InitialTimeHour() string {
	return s.timeValue("Initial_Time_H", "initialTimeHour")
}

// InitialTimeMin returns the minutes of the cycle's initial time.
func (s *Status) InitialTimeMin() string {
	return s.timeValue("Initial_Time_M", "initialTimeMinute")
}

// RemainTimeHour returns the hours of the remaining time.
func (s *Status) RemainTimeHour() string {
	return s.timeValue("Remain_Time_H", "remainTimeHour")
}

// RemainTimeMin returns the minutes of the remaining time.
func (s *Status) RemainTimeMin() string {
	return s.timeValue("Remain_Time_M", "remainTimeMinute")
}

// ReserveTimeHour returns the hours of the reserved start time.
func (s *Status) ReserveTimeHour() string {
	return s.timeValue("Reserve_Time_H", "reserveTimeHour")
}

// ReserveTimeMin returns the minutes of the reserved start time.
func (s *Status) ReserveTimeMin() string {
	return s.timeValue("Reserve_Time_M", "reserveTimeMinute")
}

// RunState returns the run state feature.
func (s *Status) RunState() string {
	runState := s.getRunState()
	if runState == statePowerOff {
		runState = device.StateNone
	}
	return s.UpdateFeature(device.FeatRunState, runState, true)
}

// ProcessState returns the process state feature.
func (s *Status) ProcessState() string {
	return s.UpdateFeature(device.FeatProcessState, s.getProcess(), true)
}

// HalfLoadState returns the half load feature.
func (s *Status) HalfLoadState() string {
	key := "HalfLoad"
	if s.IsInfoV2() {
		key = "halfLoad"
	}
	halfLoad := s.LookupBitEnum(key)
	if halfLoad == "" {
		halfLoad = device.StateNone
	}
	return s.UpdateFeature(device.FeatHalfLoad, halfLoad, true)
}

// ErrorMessage returns the error message feature.
func (s *Status) ErrorMessage() string {
	errMsg := device.StateNone
	if s.IsError() {
		errMsg = s.getError()
	}
	return s.UpdateFeature(device.FeatErrorMsg, errMsg, true)
}

// TubCleanCount returns the tub clean counter feature.
func (s *Status) TubCleanCount() string {
	var result string
	if s.IsInfoV2() {
		result = device.IntOrNone(s.Value("tclCount"))
	} else {
		result = asString(s.Value("TclCount"))
	}
	if result == "" {
		result = "N/A"
	}
	return s.UpdateFeature(device.FeatTubCleanCount, result, false)
}

func (s *Status) updateBitFeatures() {
	for _, bf := range bitFeatures {
		key := bf.keys[0]
		if s.IsInfoV2() {
			key = bf.keys[1]
		}
		s.UpdateFeature(bf.feat, s.LookupBit(key), false)
	}
}

func (s *Status) updateFeatures() {
	s.RunState()
	s.ProcessState()
	s.HalfLoadState()
	s.ErrorMessage()
	s.TubCleanCount()
	s.updateBitFeatures()
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return device.IntOrNone(v)
}
