// Package washer drives LG laundry machines. Washers, dryers, wash towers
// and stylers share the same control surface: run states, downloadable
// courses and a remote start handshake.
package washer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const (
	statePowerOff = "STATE_POWER_OFF"
	stateInitial  = "STATE_INITIAL"
	statePause    = "STATE_PAUSE"

	errorOff = "OFF"

	rootData = "washerDryer"

	courseTypeKey     = "courseType"
	vtCtrlCourseInfo  = "vt_ctrl_course_info"
	CurrentCourseName = "Current course"
)

var endStates = []string{"STATE_END", "STATE_COMPLETE"}

var noErrorStates = []string{
	"ERROR_NOERROR",
	"ERROR_NOERROR_TITLE",
	"No Error",
	"No_Error",
}

// subKeys maps a sub-unit name to the model value marking its presence.
var subKeys = map[string]string{"mini": "miniState", "Sub": "SubState"}

var powerStateKeys = device.Key{"State", "state"}

var (
	cmdPowerOff = device.CmdKey{
		Ctrl: device.Key{"", "WMControl"},
		Cmd:  device.Key{"PowerOff", "WMOff"},
	}
	cmdWakeUp = device.CmdKey{
		Ctrl: device.Key{"", "WMWakeup"},
		Cmd:  device.Key{"OperationWakeUp", "WMWakeup"},
	}
	cmdPause = device.CmdKey{
		Ctrl: device.Key{"", "WMControl"},
		Cmd:  device.Key{"OperationStop", "WMStop"},
	}
	cmdRemoteStart = device.CmdKey{
		Ctrl: device.Key{"", "WMStart"},
		Cmd:  device.Key{"OperationStart", "WMStart"},
		Key:  device.Key{"Start", "WMStart"},
	}
)

// vtCtrlCmd are the wash-tower control verbs sent through the vtCtrl channel.
var vtCtrlCmd = map[string]map[string]any{
	"WMOff":    {"cmd": "power", "type": "ABSOLUTE", "value": "POWER_OFF"},
	"WMWakeup": {"cmd": "power", "type": "ABSOLUTE", "value": "POWER_ON"},
	"WMStop":   {"cmd": "wmControl", "type": "ABSOLUTE", "value": "PAUSE"},
	"WMStart":  {"cmd": "wmControl", "type": "ABSOLUTE", "value": "START"},
}

// CourseType selects one of the course tables a model can carry.
type CourseType int

const (
	CourseBasic CourseType = iota
	CourseSmart
	CourseOp
)

var courseKeyNames = map[CourseType]struct{ v1, v2 []string }{
	CourseBasic: {v1: []string{"Course", "APCourse"}, v2: []string{"courseType"}},
	CourseOp:    {v1: []string{"OPCourse"}, v2: []string{"opCourseType"}},
	CourseSmart: {v1: []string{"SmartCourse"}, v2: []string{"smartCourseType", "downloadedCourseType"}},
}

type courseOverride struct {
	current   string
	permitted []string
}

// Device is the washer and dryer facade.
type Device struct {
	*device.Base
	log *logrus.Entry

	subDevice string
	subKey    string
	subUnit   *Device

	internalState map[string]any
	runStates     []string

	stateCodes  map[string]string
	courseKeys  map[CourseType]string
	courseInfos map[string]string

	selectedCourse  string
	courseOverrides map[string]*courseOverride

	isRunCompleted     bool
	isCycleFinishing   bool
	standBy            bool
	remoteStartStatus  map[string]any
	remoteStartPressed bool
	powerOnAvailable   *bool
	initialBitStart    bool

	status *Status
}

// New creates a washer or dryer facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	return newDevice(client, info, "", "")
}

// NewTower creates a wash-tower facade bound to one sub device payload,
// such as "washerDryer" or "dryer".
func NewTower(client *thinq.Client, info *thinq.DeviceInfo, subDevice string) *Device {
	return newDevice(client, info, subDevice, "")
}

func newDevice(client *thinq.Client, info *thinq.DeviceInfo, subDevice, subKey string) *Device {
	d := &Device{
		Base:            device.NewBase(client, info),
		log:             logrus.WithField("device", info.Name()),
		subDevice:       subDevice,
		subKey:          subKey,
		stateCodes:      map[string]string{},
		courseOverrides: map[string]*courseOverride{},
	}
	d.status = newStatus(d, nil, "", false)
	d.PrepareCommand = d.prepareCommand
	return d
}

// SubKey returns the sub-unit name, "" for the main unit.
func (d *Device) SubKey() string { return d.subKey }

// SubUnit returns the mini or sub unit facade when the model has one.
func (d *Device) SubUnit() *Device { return d.subUnit }

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

// StandBy reports whether the device is sleeping in standby mode.
func (d *Device) StandBy() bool { return d.standBy }

// getKey prefixes a state key with the sub-unit name.
func (d *Device) getKey(key string) string {
	if key == "" || d.subKey == "" {
		return key
	}
	return d.subKey + strings.ToUpper(key[:1]) + key[1:]
}

// getCmdKey prefixes a command key with the capitalized sub-unit name.
func (d *Device) getCmdKey(key string) string {
	if key == "" || d.subKey == "" {
		return key
	}
	return strings.ToUpper(d.subKey[:1]) + d.subKey[1:] + key
}

func (d *Device) set(ctx context.Context, ck device.CmdKey, useKey bool) error {
	ctrl, cmd, key := d.CmdKeys(ck)
	opt := device.SetOptions{}
	if useKey {
		opt.Key = key
	}
	return d.Base.Set(ctx, d.getCmdKey(ctrl), d.getCmdKey(cmd), opt)
}

// stateCode resolves the run state enum code whose label contains stateName.
func (d *Device) stateCode(stateName string) string {
	if code, ok := d.stateCodes[stateName]; ok {
		return code
	}
	code := ""
	if info := d.Model(); info != nil {
		key := d.getKey(d.StateKey(powerStateKeys))
		if options, ok := info.EnumOptions(key); ok {
			for c, label := range options {
				if strings.Contains(label, stateName) {
					code = c
					break
				}
			}
		}
	}
	d.stateCodes[stateName] = code
	return code
}

// RunState returns the current run state, power off before the first poll.
func (d *Device) RunState() string {
	if len(d.runStates) == 0 {
		return statePowerOff
	}
	return d.runStates[0]
}

// PreState returns the run state seen before the current one.
func (d *Device) PreState() string {
	if len(d.runStates) == 0 {
		return statePowerOff
	}
	return d.runStates[len(d.runStates)-1]
}

// saveRunStates tracks the last two distinct run states so the completed
// check survives a power off right after the cycle end.
func (d *Device) saveRunStates(runState string, isPreState bool) {
	if strings.Contains(runState, statePowerOff) {
		runState = statePowerOff
	}
	if len(d.runStates) == 0 {
		if isPreState {
			return
		}
		d.runStates = []string{runState}
	}
	if isPreState {
		if len(d.runStates) > 1 {
			d.runStates[1] = runState
		} else {
			d.runStates = append(d.runStates, runState)
		}
		return
	}
	if runState == d.runStates[0] {
		return
	}
	d.runStates = append([]string{runState}, d.runStates...)
	if len(d.runStates) > 2 {
		d.runStates = d.runStates[:2]
	}
}

// IsRunCompleted reports whether the last cycle finished, holding the flag
// through the power off that usually follows.
func (d *Device) IsRunCompleted() bool {
	if d.status != nil && d.status.IsRunCompleted() {
		if !d.isRunCompleted {
			d.isCycleFinishing = false
			d.isRunCompleted = true
		}
		return true
	}

	runState := d.RunState()
	preState := d.PreState()
	if d.isRunCompleted && strings.Contains(runState, statePowerOff) {
		d.isCycleFinishing = false
		return true
	}

	offOrInitial := func(state string) bool {
		return strings.Contains(state, statePowerOff) || strings.Contains(state, stateInitial)
	}
	if (d.isCycleFinishing || d.isRunCompleted) && offOrInitial(runState) && !offOrInitial(preState) {
		if !d.isRunCompleted {
			d.isCycleFinishing = false
			d.isRunCompleted = true
		}
	} else {
		d.isRunCompleted = false
	}
	return d.isRunCompleted
}

// initSubUnit creates the mini facade when the model declares one and the
// dashboard snapshot confirms it.
func (d *Device) initSubUnit() {
	if d.subKey != "" || d.subUnit != nil || d.Model() == nil {
		return
	}
	for key, marker := range subKeys {
		if !d.Model().ValueExists(marker) {
			continue
		}
		if snapshot := d.Info().Snapshot(); snapshot != nil {
			root := d.subDevice
			if root == "" {
				root = rootData
			}
			if payload, ok := snapshot[root].(map[string]any); ok {
				if _, ok := payload[marker]; !ok {
					continue
				}
			}
		}
		d.subUnit = newDevice(d.Client(), d.Info(), d.subDevice, key)
		return
	}
}

// updateInternalState feeds a sub unit with the payload its parent polled.
func (d *Device) updateInternalState(state map[string]any) {
	if d.subKey == "" {
		return
	}
	d.internalState = state
}

// updateOptBit sets or clears one course function bit inside a packed v1
// option value.
func (d *Device) updateOptBit(optName, optVal, bitName string, bitVal int) (string, bool) {
	info := d.Model()
	if info == nil || info.IsV2() {
		return "", false
	}
	options, ok := info.BitOptions(optName)
	if !ok {
		return "", false
	}
	bitIndex := -1
	for start, opt := range options.Options {
		if opt.Value == bitName {
			bitIndex = start
			break
		}
	}
	if bitIndex < 0 {
		return "", false
	}
	val, err := strconv.Atoi(optVal)
	if err != nil {
		return "", false
	}
	if bitVal != 0 {
		val |= 1 << bitIndex
	} else {
		val ^= val & (1 << bitIndex)
	}
	return strconv.Itoa(val), true
}

// optionKeys returns the packed option slots a v1 model declares.
func (d *Device) optionKeys() []string {
	info := d.Model()
	if info == nil {
		return nil
	}
	var keys []string
	for i := 1; i <= 3; i++ {
		key := d.getKey(fmt.Sprintf("Option%d", i))
		if info.ValueExists(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (d *Device) findCourseKey(courseType CourseType) string {
	info := d.Model()
	names := courseKeyNames[courseType]
	if info.IsV2() {
		for _, key := range names.v2 {
			courseKey := asString(info.ConfigValue(d.getKey(key)))
			if courseKey != "" && info.ValueExists(courseKey) {
				return courseKey
			}
		}
		return ""
	}
	for _, key := range names.v1 {
		courseKey := d.getKey(key)
		if info.ValueExists(courseKey) {
			return courseKey
		}
	}
	return ""
}

// CourseKey returns the model value key holding a course table reference.
func (d *Device) CourseKey(courseType CourseType) string {
	if d.courseKeys == nil {
		if d.Model() == nil {
			return ""
		}
		d.courseKeys = map[CourseType]string{}
		for ct := range courseKeyNames {
			d.courseKeys[ct] = d.findCourseKey(ct)
		}
	}
	return d.courseKeys[courseType]
}

// courseInfoMap maps friendly course names to course IDs.
func (d *Device) courseInfoMap() map[string]string {
	if d.courseInfos != nil {
		return d.courseInfos
	}
	d.courseInfos = map[string]string{}
	courseKey := d.CourseKey(CourseBasic)
	if courseKey == "" {
		return d.courseInfos
	}
	for id, entry := range d.Model().ReferenceValues(courseKey) {
		name := ""
		if enumName := asString(entry["name"]); enumName != "" {
			name = d.EnumText(enumName)
			if name == enumName {
				if comment := asString(entry["_comment"]); comment != "" {
					name = comment
				}
			}
		} else if comment := asString(entry["_comment"]); comment != "" {
			name = comment
		} else {
			name = id
		}
		d.courseInfos[name] = id
	}
	return d.courseInfos
}

// CourseList returns the selectable course names for remote start.
func (d *Device) CourseList() []string {
	infos := d.courseInfoMap()
	names := make([]string, 0, len(infos)+1)
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{CurrentCourseName}, names...)
}

// SelectedCourse returns the course picked for the next remote start.
func (d *Device) SelectedCourse() string {
	if d.selectedCourse == "" {
		return CurrentCourseName
	}
	return d.selectedCourse
}

func (d *Device) courseDetails(courseKey, courseID string) map[string]any {
	if courseKey == "" {
		return nil
	}
	if courses := d.Model().ReferenceValues(courseKey); courses != nil {
		return courses[courseID]
	}
	return nil
}

// prepareCourseInfo assembles the payload describing a full course run,
// merging the course function defaults and any selected overrides.
func (d *Device) prepareCourseInfo(
	data map[string]any,
	courseID string,
	courseInfo map[string]any,
	courseType CourseType,
	courseSet bool,
	nCourseKey, sCourseKey string,
) map[string]any {
	ret := make(map[string]any, len(data)+4)
	for k, v := range data {
		ret[k] = v
	}

	optionKeys := d.optionKeys()
	if !d.Model().IsV2() {
		for _, optName := range optionKeys {
			if _, ok := ret[optName]; !ok {
				ret[optName] = "0"
			}
		}
	}

	if ct, ok := courseInfo[courseTypeKey]; ok {
		ret[courseTypeKey] = ct
	}

	switch courseType {
	case CourseBasic:
		ret[nCourseKey] = courseID
		if sCourseKey != "" {
			ret[sCourseKey] = 0
		}
	case CourseSmart:
		ret[nCourseKey] = 0
		ret[sCourseKey] = courseID
		for _, key := range []string{"Course", "APCourse"} {
			if v, ok := courseInfo[key]; ok {
				ret[nCourseKey] = v
				break
			}
		}
	}

	if opCourseKey := d.CourseKey(CourseOp); opCourseKey != "" {
		refKey := opCourseKey
		if d.Model().IsV2() {
			refKey = "OpCourse"
		}
		if v, ok := courseInfo[refKey]; ok {
			ret[opCourseKey] = v
		} else if d.Model().IsV2() {
			delete(ret, opCourseKey)
		}
	}

	functions, _ := courseInfo["function"].([]any)
	for _, item := range functions {
		fn, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ckey := asString(fn["value"])
		cdata := fn["default"]
		if ckey == "" || cdata == nil {
			continue
		}
		optSet := false
		for _, optName := range optionKeys {
			optVal, ok := ret[optName]
			if !ok {
				continue
			}
			bitVal, _ := device.ToInt(cdata)
			if newVal, ok := d.updateOptBit(optName, asString(optVal), ckey, bitVal); ok {
				optSet = true
				if !courseSet {
					ret[optName] = newVal
				}
				break
			}
		}
		if optSet {
			continue
		}
		if _, ok := ret[ckey]; ok && courseSet {
			continue
		}
		ret[ckey] = cdata
		if override, ok := d.courseOverrides[ckey]; ok && override.current != "" {
			ret[ckey] = override.current
		}
	}

	if !courseSet {
		ret[vtCtrlCourseInfo] = courseInfo
	}
	return ret
}

// updateCourseInfo builds the course payload for the next start command,
// falling back to the model's default course.
func (d *Device) updateCourseInfo() (map[string]any, error) {
	var data map[string]any
	if d.initialBitStart {
		data = d.remoteStartStatus
	} else if d.status != nil {
		d.selectedCourse = ""
		data = d.status.Data()
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("washer %s: course info not available", d.UniqueID())
	}

	courseType := CourseBasic
	nCourseKey := d.CourseKey(CourseBasic)
	sCourseKey := d.CourseKey(CourseSmart)
	var defCourseID string
	if d.Model().IsV2() {
		defCourseID = asString(d.Model().ConfigValue("default" + d.getCmdKey("Course")))
	} else {
		defCourseID = asString(d.Model().ConfigValue("defaultCourseId"))
	}

	courseID := ""
	if d.selectedCourse != "" {
		courseID = d.courseInfoMap()[d.selectedCourse]
	}
	var courseInfo map[string]any
	courseSet := false
	if courseID == "" {
		for _, courseKey := range []string{nCourseKey, sCourseKey} {
			if courseKey == "" {
				continue
			}
			courseID = asString(data[courseKey])
			if courseInfo = d.courseDetails(courseKey, courseID); courseInfo != nil {
				if courseKey == sCourseKey {
					courseType = CourseSmart
				}
				courseSet = true
				break
			}
		}
	} else {
		courseInfo = d.courseDetails(nCourseKey, courseID)
	}

	if courseInfo == nil {
		courseID = defCourseID
		courseInfo = d.courseDetails(nCourseKey, courseID)
	}
	if courseInfo == nil {
		return nil, fmt.Errorf("washer %s: course info not available", d.UniqueID())
	}

	return d.prepareCourseInfo(data, courseID, courseInfo, courseType, courseSet, nCourseKey, sCourseKey), nil
}

// prepareVtCtrlCourseInfo renders the course function list into vtCtrl verbs.
func (d *Device) prepareVtCtrlCourseInfo() []map[string]any {
	var cmds []map[string]any
	courseData, err := d.updateCourseInfo()
	if err != nil {
		return nil
	}
	courseInfo, _ := courseData[vtCtrlCourseInfo].(map[string]any)
	if courseInfo == nil {
		return nil
	}
	functions, _ := courseInfo["function"].([]any)
	for _, item := range functions {
		fn, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ckey := asString(fn["value"])
		cdata, ok := courseData[ckey]
		if !ok {
			cdata = fn["default"]
		}
		if ckey == "" || cdata == nil {
			continue
		}
		cmds = append(cmds, map[string]any{
			"cmd": ckey, "type": "ABSOLUTE", "value": asString(cdata),
		})
	}
	return cmds
}

// prepareCommandV1 fills a thinq1 command template: the data string carries
// {{Key}} placeholders replaced from the course payload, optionally base64
// encoded as a byte array.
func (d *Device) prepareCommandV1(cmd map[string]any, key string) map[string]any {
	encode := false
	if v, ok := cmd["encode"].(bool); ok {
		encode = v
	}
	delete(cmd, "encode")

	strData := ""
	if raw, ok := cmd["data"]; ok {
		strData = asString(raw)
		optionKeys := d.optionKeys()
		statusData, err := d.updateCourseInfo()
		if err != nil {
			d.log.WithError(err).Warning("preparing command")
			return nil
		}
		for dtKey, dtValue := range statusData {
			replKey := "{{" + dtKey + "}}"
			if !strings.Contains(strData, replKey) {
				continue
			}
			value := asString(dtValue)
			if key == "Start" && contains(optionKeys, dtKey) {
				// the start command flags the initial bit
				bitVal := 0
				if d.initialBitStart {
					bitVal = 1
				}
				if newVal, ok := d.updateOptBit(dtKey, value, "InitialBit", bitVal); ok {
					value = newVal
				}
			}
			strData = strings.ReplaceAll(strData, replKey, value)
		}
		if encode {
			cmd["format"] = "B64"
			var bytesList []int
			if err := json.Unmarshal([]byte(strData), &bytesList); err == nil {
				buf := make([]byte, len(bytesList))
				for i, b := range bytesList {
					buf[i] = byte(b)
				}
				strData = base64.StdEncoding.EncodeToString(buf)
			}
		}
	}
	cmd["data"] = strData
	return cmd
}

// prepareCommandV2 fills a thinq2 command template, rewriting the dataSetList
// course section for a start command.
func (d *Device) prepareCommandV2(cmd map[string]any, key string) map[string]any {
	dataSet, _ := cmd["data"].(map[string]any)
	delete(cmd, "data")
	if dataSet == nil {
		return cmd
	}

	var resDataSet map[string]any
	if strings.Contains(key, "WMStart") {
		if rootSet, ok := dataSet[rootData].(map[string]any); ok {
			statusData, err := d.updateCourseInfo()
			if err != nil {
				d.log.WithError(err).Warning("preparing command")
				return nil
			}
			nCourseKey := d.CourseKey(CourseBasic)
			sCourseKey := d.CourseKey(CourseSmart)
			opCourseKey := d.CourseKey(CourseOp)
			cmdDataSet := map[string]any{}

			if ct, ok := statusData[courseTypeKey]; ok {
				cmdDataSet[courseTypeKey] = ct
			}
			for cmdKey, cmdValue := range rootSet {
				switch {
				case cmdKey == courseTypeKey:
				case cmdKey == "course" || cmdKey == "Course" || cmdKey == "ApCourse":
					cmdDataSet[nCourseKey] = orNotSelected(statusData[nCourseKey])
				case cmdKey == "smartCourse" || cmdKey == "SmartCourse":
					if sCourseKey != "" {
						cmdDataSet[sCourseKey] = orNotSelected(statusData[sCourseKey])
					} else {
						cmdDataSet[cmdKey] = "NOT_SELECTED"
					}
				case cmdKey == "OpCourse":
					if opCourseKey != "" {
						if v, ok := statusData[opCourseKey]; ok {
							cmdDataSet[opCourseKey] = v
						}
					} else {
						cmdDataSet[cmdKey] = "NOT_SELECTED"
					}
				case cmdKey == d.getKey("initialBit"):
					prefix := ""
					if d.subKey != "" {
						prefix = strings.ToUpper(d.subKey) + "_"
					}
					if d.initialBitStart {
						cmdDataSet[cmdKey] = prefix + "INITIAL_BIT_ON"
					} else {
						cmdDataSet[cmdKey] = prefix + "INITIAL_BIT_OFF"
					}
				default:
					if v, ok := statusData[cmdKey]; ok {
						cmdDataSet[cmdKey] = v
					} else {
						cmdDataSet[cmdKey] = cmdValue
					}
				}
			}
			resDataSet = map[string]any{rootData: cmdDataSet}
		}
	}

	if resDataSet == nil {
		resDataSet = dataSet
	}
	cmd["dataKey"] = nil
	cmd["dataValue"] = nil
	cmd["dataSetList"] = resDataSet
	cmd["dataGetList"] = nil
	return cmd
}

// prepareCommandVtCtrl fills a wash-tower vtCtrl command template.
func (d *Device) prepareCommandVtCtrl(cmd map[string]any, command string) map[string]any {
	dataSet, _ := cmd["data"].(map[string]any)
	delete(cmd, "data")
	if dataSet == nil {
		return cmd
	}

	var vtCmdData []map[string]any
	if d.initialBitStart && command == "WMStart" {
		vtCmdData = d.prepareVtCtrlCourseInfo()
	}
	vtCmdData = append(vtCmdData, vtCtrlCmd[command])

	ctrlTarget := ""
	if d.subDevice != "" {
		ctrlTarget = strings.ToUpper(d.subDevice)
	}
	cmdDataSet := map[string]any{}
	for cmdKey, cmdVal := range dataSet {
		switch cmdKey {
		case "ctrlTarget":
			if ctrlTarget != "" {
				cmdDataSet[cmdKey] = []any{ctrlTarget}
			} else {
				cmdDataSet[cmdKey] = cmdVal
			}
		case "reqDevType":
			cmdDataSet[cmdKey] = "APP"
		case "vtData":
			vtData := map[string]any{}
			if template, ok := cmdVal.(map[string]any); ok {
				for dtKey := range template {
					target := dtKey
					if ctrlTarget != "" {
						target = ctrlTarget
					}
					vtData[target] = vtCmdData
				}
			}
			cmdDataSet[cmdKey] = vtData
		default:
			cmdDataSet[cmdKey] = cmdVal
		}
	}

	cmd["dataKey"] = nil
	cmd["dataValue"] = nil
	cmd["dataSetList"] = cmdDataSet
	cmd["dataGetList"] = nil
	return cmd
}

// prepareCommand assembles the full payload for a command, preferring the
// wash-tower vtCtrl channel when the model offers it.
func (d *Device) prepareCommand(ctrlKey, command, key string, value any) map[string]any {
	var cmd map[string]any
	vtCtrl := false
	if _, ok := vtCtrlCmd[command]; ok {
		cmd, vtCtrl = d.Model().ControlCommand("vtCtrl", "vtCtrl")
	}
	if !vtCtrl {
		var ok bool
		if cmd, ok = d.Model().ControlCommand(command, ctrlKey); !ok {
			return nil
		}
	}
	if d.Model().IsV2() {
		if vtCtrl {
			return d.prepareCommandVtCtrl(cmd, command)
		}
		return d.prepareCommandV2(cmd, key)
	}
	return d.prepareCommandV1(cmd, key)
}

// RemoteStartEnabled reports whether the machine accepts a remote start.
func (d *Device) RemoteStartEnabled() bool {
	if d.remoteStartPressed || d.standBy || d.status == nil || !d.status.IsOn() {
		return false
	}
	if d.remoteStartStatus == nil {
		return false
	}
	state := d.status.internalRunState()
	return state == d.stateCode(stateInitial) || state == d.stateCode(statePause)
}

// PauseEnabled reports whether the machine accepts a pause.
func (d *Device) PauseEnabled() bool {
	if d.standBy || d.status == nil || !d.status.IsOn() {
		return false
	}
	if d.remoteStartStatus == nil {
		return false
	}
	state := d.status.internalRunState()
	return state != d.stateCode(stateInitial) && state != d.stateCode(statePause)
}

// SelectCourseEnabled reports whether a course can be picked for the next
// remote start.
func (d *Device) SelectCourseEnabled() bool {
	enabled := d.initialBitStart && d.RemoteStartEnabled()
	if !enabled && d.selectedCourse != "" {
		d.selectedCourse = ""
	}
	return enabled
}

// SelectStartCourse picks the course used by the next remote start and loads
// the options that course allows overriding.
func (d *Device) SelectStartCourse(courseName string) error {
	if !d.SelectCourseEnabled() {
		return &thinq.InvalidDeviceStatusError{Message: "course selection not available"}
	}
	if courseName == CurrentCourseName {
		d.selectedCourse = ""
		return nil
	}
	courseID, ok := d.courseInfoMap()[courseName]
	if !ok {
		return fmt.Errorf("washer %s: unknown course %q, available: %v",
			d.UniqueID(), courseName, d.CourseList())
	}
	d.selectedCourse = courseName

	courseInfo := d.courseDetails(d.CourseKey(CourseBasic), courseID)
	if courseInfo == nil {
		return fmt.Errorf("washer %s: course info not available", d.UniqueID())
	}
	d.courseOverrides = map[string]*courseOverride{}
	functions, _ := courseInfo["function"].([]any)
	for _, item := range functions {
		fn, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value := asString(fn["value"])
		selectable, ok := fn["selectable"].([]any)
		if value == "" || !ok {
			continue
		}
		permitted := make([]string, 0, len(selectable))
		for _, s := range selectable {
			permitted = append(permitted, asString(s))
		}
		d.courseOverrides[value] = &courseOverride{
			current:   asString(fn["default"]),
			permitted: permitted,
		}
	}
	return nil
}

// SelectStartOption overrides one course option for the next remote start.
func (d *Device) SelectStartOption(option, value string) error {
	override, ok := d.courseOverrides[option]
	if !ok || !d.SelectCourseEnabled() || d.selectedCourse == "" {
		delete(d.courseOverrides, option)
		return &thinq.InvalidDeviceStatusError{Message: "option selection not available"}
	}
	if !contains(override.permitted, value) {
		return fmt.Errorf("washer %s: value %q not allowed for option %q, permitted: %v",
			d.UniqueID(), value, option, override.permitted)
	}
	override.current = value
	return nil
}

// PowerOff turns the machine off.
func (d *Device) PowerOff(ctx context.Context) error {
	if err := d.set(ctx, cmdPowerOff, false); err != nil {
		return err
	}
	d.remoteStartStatus = nil
	d.updateRunStatus(d.stateCode(statePowerOff))
	return nil
}

// WakeUp wakes the machine from standby.
func (d *Device) WakeUp(ctx context.Context) error {
	if !d.standBy {
		return &thinq.InvalidDeviceStatusError{Message: "device is not in standby mode"}
	}
	if err := d.set(ctx, cmdWakeUp, false); err != nil {
		return err
	}
	d.standBy = false
	d.updateRunStatus(d.stateCode(stateInitial))
	return nil
}

// RemoteStart starts the machine remotely, optionally with a selected course
// and option overrides.
func (d *Device) RemoteStart(ctx context.Context, courseName string, overrides map[string]string) error {
	if !d.RemoteStartEnabled() {
		return &thinq.InvalidDeviceStatusError{Message: "remote start not available"}
	}
	if courseName != "" && d.initialBitStart {
		if err := d.SelectStartCourse(courseName); err != nil {
			return err
		}
	}
	if len(overrides) > 0 {
		if courseName == "" {
			return fmt.Errorf("washer %s: course name required to override options", d.UniqueID())
		}
		for option, value := range overrides {
			if err := d.SelectStartOption(option, value); err != nil {
				return err
			}
		}
	}
	if err := d.set(ctx, cmdRemoteStart, true); err != nil {
		return err
	}
	d.remoteStartPressed = true
	return nil
}

// Pause pauses the running cycle.
func (d *Device) Pause(ctx context.Context) error {
	if !d.PauseEnabled() {
		return &thinq.InvalidDeviceStatusError{Message: "pause not available"}
	}
	if err := d.set(ctx, cmdPause, false); err != nil {
		return err
	}
	// keep remote start disabled until the next refresh
	d.remoteStartPressed = true
	d.updateRunStatus(d.stateCode(statePause))
	return nil
}

func (d *Device) updateRunStatus(code string) {
	if d.status == nil || code == "" {
		return
	}
	d.status.setRunState(code)
}

// ResetStatus clears the status, carrying the tub clean counter over.
func (d *Device) ResetStatus() *Status {
	tclCount := ""
	if d.status != nil {
		tclCount = d.status.TubCleanCount()
	}
	d.status = newStatus(d, nil, tclCount, true)
	return d.status
}

// setRemoteStartOpt records the standby and remote start state after a poll.
func (d *Device) setRemoteStartOpt() {
	if d.remoteStartPressed {
		d.remoteStartPressed = false
	}

	if d.powerOnAvailable == nil {
		available := truthy(d.Model().ConfigValue("powerOnButtonAvailable"))
		d.powerOnAvailable = &available
	}

	if *d.powerOnAvailable {
		d.standBy = !d.status.IsOn()
	} else {
		standBy, ok := d.status.Features()[device.FeatStandby]
		if !ok {
			standbyEnable := truthy(d.Model().ConfigValue("standbyEnable"))
			if standbyEnable && !d.ShouldPoll() && d.subKey == "" {
				d.standBy = !d.status.IsOn()
			} else {
				d.standBy = false
			}
		} else {
			d.standBy = standBy == device.StateOn
		}
	}

	if d.status.Features()[device.FeatRemoteStart] == device.StateOn {
		if d.remoteStartStatus == nil {
			d.remoteStartStatus = d.status.Data()
		}
		d.initialBitStart = d.status.internalRunState() == d.stateCode(stateInitial)
	} else {
		d.remoteStartStatus = nil
		d.initialBitStart = false
	}
}

// setCycleFinishing flags the last minute of a cycle so the completed state
// survives machines that skip the end state.
func (d *Device) setCycleFinishing() {
	if d.status == nil {
		return
	}
	remainMin, ok := device.ToInt(d.status.RemainTimeMinute())
	if !ok {
		return
	}
	remainHour, ok := device.ToInt(d.status.RemainTimeHour())
	if !ok {
		remainHour = 0
	}
	if remainHour == 0 {
		if remainMin == 1 {
			d.isCycleFinishing = true
		} else if remainMin > 1 {
			d.isCycleFinishing = false
		}
	}
}

func (d *Device) snapshotKey() string {
	if d.subDevice != "" {
		return d.subDevice
	}
	return rootData
}

// Poll fetches the machine's current status. A nil status without error
// means no data is available yet.
func (d *Device) Poll(ctx context.Context) (*Status, error) {
	if d.Model() == nil {
		if err := d.InitDeviceInfo(ctx); err != nil {
			return nil, err
		}
		d.initSubUnit()
	}

	var res map[string]any
	if d.subKey == "" || !d.ShouldPoll() {
		data, err := d.PollData(ctx, device.PollOptions{SnapshotKey: d.snapshotKey()})
		if err != nil {
			return nil, err
		}
		res = data
		if d.subUnit != nil && d.ShouldPoll() {
			d.subUnit.updateInternalState(res)
		}
	} else {
		res = d.internalState
	}

	if len(res) == 0 {
		d.standBy = false
		return nil, nil
	}

	d.status = newStatus(d, res, "", true)
	d.setRemoteStartOpt()
	d.setCycleFinishing()
	return d.status, nil
}

func asString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		if n {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(n)
	}
}

func truthy(v any) bool {
	switch n := v.(type) {
	case nil:
		return false
	case bool:
		return n
	case string:
		return n != "" && n != "0" && !strings.EqualFold(n, "false")
	case float64:
		return n != 0
	}
	return true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func orNotSelected(v any) any {
	if v == nil || v == "" || v == 0 || v == float64(0) {
		return "NOT_SELECTED"
	}
	return v
}
