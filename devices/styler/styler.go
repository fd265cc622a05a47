// Package styler drives LG styler steam closets.
package styler

import (
	"context"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const (
	statePowerOff = "@ST_STATE_POWER_OFF_W"
	errorOff      = "OFF"
	rootData      = "styler"
)

var endStates = []string{"@ST_STATE_END_W", "@ST_STATE_COMPLETE_W"}

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
	{device.FeatChildLock, device.Key{"ChildLock", "childLock"}},
	{device.FeatNightDry, device.Key{"NightDry", "nightDry"}},
	{device.FeatRemoteStart, device.Key{"RemoteStart", "remoteStart"}},
}

// Device is the styler facade.
type Device struct {
	*device.Base

	status *Status
}

// New creates a styler facade.
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

// Status decodes one polled payload of a styler.
type Status struct {
	*device.Status
	stDev *Device

	runState string
	preState string
	errMsg   string
}

func newStatus(stDev *Device, data map[string]any) *Status {
	s := &Status{
		Status: device.NewStatus(stDev.Base, data),
		stDev:  stDev,
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

func (s *Status) getPreState() string {
	if s.preState == "" {
		state := s.LookupEnum("PreState", "preState")
		if state == "" {
			state = statePowerOff
		}
		s.preState = state
	}
	return s.preState
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

// UpdateStatus stores a new raw value and invalidates the cached run state.
func (s *Status) UpdateStatus(key string, value any) bool {
	if !s.Status.UpdateStatus(key, value) {
		return false
	}
	s.runState = ""
	return true
}

// IsOn reports whether the styler is on.
func (s *Status) IsOn() bool { return s.getRunState() != statePowerOff }

// IsRunCompleted reports whether the last cycle finished.
func (s *Status) IsRunCompleted() bool {
	runState := s.getRunState()
	preState := s.getPreState()
	if contains(endStates, runState) {
		return true
	}
	return runState == statePowerOff && contains(endStates, preState)
}

// IsError reports whether the styler signals an error.
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
		key, _ := s.stDev.Model().ConfigValue("courseType").(string)
		courseKeys = []string{key}
	} else {
		courseKeys = []string{"APCourse", "Course"}
	}
	course := s.LookupReference("name", courseKeys...)
	return s.stDev.EnumText(course)
}

// CurrentSmartCourse returns the running smart course name.
func (s *Status) CurrentSmartCourse() string {
	var courseKeys []string
	if s.IsInfoV2() {
		key, _ := s.stDev.Model().ConfigValue("smartCourseType").(string)
		courseKeys = []string{key}
	} else {
		courseKeys = []string{"SmartCourse"}
	}
	course := s.LookupReference("name", courseKeys...)
	return s.stDev.EnumText(course)
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

// PreState returns the previous state feature.
func (s *Status) PreState() string {
	preState := s.getPreState()
	if preState == statePowerOff {
		preState = device.StateNone
	}
	return s.UpdateFeature(device.FeatPreState, preState, true)
}

// ErrorMessage returns the error message feature.
func (s *Status) ErrorMessage() string {
	errMsg := device.StateNone
	if s.IsError() {
		errMsg = s.getError()
	}
	return s.UpdateFeature(device.FeatErrorMsg, errMsg, true)
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
	s.PreState()
	s.ErrorMessage()
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
