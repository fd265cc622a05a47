package washer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"testing"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const washerModelJSON = `{
  "Info": {"modelType": "TL"},
  "Monitoring": {"type": "BINARY(BYTE)", "protocol": [
    {"value": "State", "startByte": 0, "length": 1}
  ]},
  "Value": {
    "State": {"type": "Enum", "option": {
      "0": "@WM_STATE_POWER_OFF_W",
      "1": "@WM_STATE_INITIAL_W",
      "30": "@WM_STATE_RUNNING_W",
      "40": "@WM_STATE_END_W"
    }},
    "PreState": {"type": "Enum", "option": {
      "0": "@WM_STATE_POWER_OFF_W",
      "30": "@WM_STATE_RUNNING_W",
      "40": "@WM_STATE_END_W"
    }},
    "SpinSpeed": {"type": "Enum", "option": {
      "0": "-",
      "2": "@WM_SPIN_MEDIUM_W"
    }},
    "Course": {"type": "Reference", "option": ["Course"]},
    "SmartCourse": {"type": "Reference", "option": ["SmartCourse"]},
    "Remain_Time_M": {"type": "Range", "option": {"min": 0, "max": 59, "step": 1}},
    "TCLCount": {"type": "Range", "option": {"min": 0, "max": 99, "step": 1}}
  },
  "Course": {"1": {"name": "@WM_COURSE_BEDDING_W"}},
  "SmartCourse": {"5": {"name": "@WM_COURSE_SWIMWEAR_W"}}
}`

const washerLangPackJSON = `{"pack": {
  "@WM_STATE_RUNNING_W": "Washing",
  "@WM_SPIN_MEDIUM_W": "Medium",
  "@WM_COURSE_BEDDING_W": "Bedding",
  "@WM_COURSE_SWIMWEAR_W": "Swimwear"
}}`

func newTestWasher(t *testing.T) *Device {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.json":
			w.Write([]byte(washerModelJSON))
		case "/langpack.json":
			w.Write([]byte(washerLangPackJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := thinq.Load(map[string]any{
		"gateway": map[string]any{
			"country":   "US",
			"language":  "en-US",
			"thinq1Uri": srv.URL,
			"thinq2Uri": srv.URL,
		},
		"auth": map[string]any{"refresh_token": "rt"},
	}, srv.Client())
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	info := thinq.NewDeviceInfo(map[string]any{
		"deviceId":         "w1",
		"alias":            "Washer",
		"deviceType":       float64(201),
		"platformType":     "thinq2",
		"modelJsonUrl":     srv.URL + "/model.json",
		"langPackModelUrl": srv.URL + "/langpack.json",
	})
	d := New(client, info)
	if err := d.InitDeviceInfo(context.Background()); err != nil {
		t.Fatalf("loading model info: %v", err)
	}
	return d
}

func TestWasherStatusDecoding(t *testing.T) {
	d := newTestWasher(t)
	s := newStatus(d, map[string]any{
		"State":         "30",
		"PreState":      "30",
		"SpinSpeed":     "2",
		"Course":        "1",
		"SmartCourse":   "5",
		"Remain_Time_M": "58",
		"TCLCount":      "18",
	}, "", true)
	d.status = s

	if !s.IsOn() {
		t.Fatal("running washer reports off")
	}
	if s.IsDryer() {
		t.Error("washer reports as dryer")
	}
	if got := s.RunState(); got != "Washing" {
		t.Errorf("run state = %q, want Washing", got)
	}
	if got := s.SpinOptionState(); got != "Medium" {
		t.Errorf("spin = %q, want Medium", got)
	}
	if got := s.CurrentCourse(); got != "Bedding" {
		t.Errorf("course = %q, want Bedding", got)
	}
	if got := s.CurrentSmartCourse(); got != "Swimwear" {
		t.Errorf("smart course = %q, want Swimwear", got)
	}
	if got := s.RemainTimeMinute(); got != "58" {
		t.Errorf("remain minutes = %q, want 58", got)
	}
	if got := s.TubCleanCount(); got != "18" {
		t.Errorf("tub clean count = %q, want 18", got)
	}
	if s.IsError() {
		t.Error("running washer reports an error")
	}
	if s.IsRunCompleted() {
		t.Error("running washer reports completed")
	}
}

func TestWasherPowerOffStatus(t *testing.T) {
	d := newTestWasher(t)
	s := newStatus(d, map[string]any{"State": "0"}, "", true)
	d.status = s

	if s.IsOn() {
		t.Fatal("powered-off washer reports on")
	}
	if got := s.RunState(); got != device.StateNone {
		t.Errorf("run state = %q, want none sentinel", got)
	}
	if got := s.ErrorMessage(); got != device.StateNone {
		t.Errorf("error = %q, want none sentinel", got)
	}
}

func TestWasherRunCompleted(t *testing.T) {
	d := newTestWasher(t)

	// A cycle goes running -> end -> power off; completion must hold
	// through the power off.
	d.status = newStatus(d, map[string]any{"State": "30", "PreState": "30"}, "", true)
	if d.IsRunCompleted() {
		t.Fatal("completed while running")
	}

	d.status = newStatus(d, map[string]any{"State": "40", "PreState": "30"}, "", true)
	if !d.IsRunCompleted() {
		t.Fatal("end state not reported as completed")
	}

	d.status = newStatus(d, map[string]any{"State": "0", "PreState": "40"}, "", true)
	if !d.IsRunCompleted() {
		t.Fatal("completion lost on power off")
	}
}

func TestWasherCourseList(t *testing.T) {
	d := newTestWasher(t)
	got := d.CourseList()
	want := []string{CurrentCourseName, "Bedding"}
	sort.Strings(got[1:])
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("course list = %v, want %v", got, want)
	}
	if d.SelectedCourse() != CurrentCourseName {
		t.Errorf("selected course = %q", d.SelectedCourse())
	}
}

func TestWasherTowerSubDeviceKeys(t *testing.T) {
	d := newTestWasher(t)
	tower := NewTower(d.Client(), d.Info(), "dryer")
	if got := tower.snapshotKey(); got != "dryer" {
		t.Errorf("snapshot key = %q, want dryer", got)
	}
	if got := d.snapshotKey(); got != rootData {
		t.Errorf("main snapshot key = %q, want %q", got, rootData)
	}
}
