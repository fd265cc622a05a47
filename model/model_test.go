package model

import (
	"errors"
	"reflect"
	"testing"
)

const v1Descriptor = `{
  "Info": {"modelType": "TL"},
  "Monitoring": {
    "type": "BINARY(BYTE)",
    "protocol": [
      {"value": "State", "startByte": 0, "length": 1},
      {"value": "Remain_Time_H", "startByte": 1, "length": 1},
      {"value": "Remain_Time_M", "startByte": 2, "length": 1}
    ]
  },
  "Value": {
    "State": {"type": "Enum", "option": {"0": "@WM_STATE_POWER_OFF_W", "30": "@WM_STATE_RUNNING_W"}},
    "ChildLock": {"type": "Boolean"},
    "Spin": {"type": "Range", "option": {"min": 400, "max": 1400, "step": 100}},
    "Course": {"type": "Reference", "option": ["Course"]},
    "Option1": {"type": "Bit", "option": [
      {"value": "ChildLock", "startbit": 0, "length": 1},
      {"value": "SteamSoftener", "startbit": 1, "length": 1},
      {"value": "LoadLevel", "startbit": 2, "length": 2}
    ]}
  },
  "Course": {"1": {"name": "Bedding"}, "2": {"name": "Cotton"}},
  "ControlWifi": {
    "type": "BINARY(BYTE)",
    "action": {
      "PowerOff": {"cmd": "Control", "cmdOpt": "Operation", "value": "PowerOff"}
    }
  }
}`

const v2Descriptor = `{
  "Info": {"modelType": "WM"},
  "Config": {"courseType": "courseFL24inchBaseTitan"},
  "MonitoringValue": {
    "spin": {"dataType": "Enum", "valueMapping": {
      "0": {"index": 0, "label": "@WM_SPIN_OFF_W"},
      "1": {"index": 1, "label": "@WM_SPIN_LOW_W"}
    }},
    "door": {"dataType": "Boolean"},
    "reserveTimeHour": {"dataType": "range", "valueMapping": {"min": 0, "max": 12}},
    "course": {"ref": "Course"}
  },
  "Course": {"2": {"courseName": "Cotton", "name": "Cotton"}}
}`

const v2acDescriptor = `{
  "Info": {"modelType": "RAC"},
  "ControlDevice": [{"ctrlKey": "basicCtrl"}],
  "Value": {
    "airState.operation": {"data_type": "Enum", "value_mapping": {"0": "@OFF", "1": "@ON"}},
    "airState.tempState.target": {"data_type": "Range", "value_validation": {"min": 16, "max": 30, "step": 1}}
  }
}`

func mustLoad(t *testing.T, raw string) Info {
	t.Helper()
	info, err := Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return info
}

func TestNewDispatch(t *testing.T) {
	if info := mustLoad(t, v1Descriptor); info.IsV2() {
		t.Error("v1 descriptor dispatched as v2")
	}
	if info := mustLoad(t, v2Descriptor); !info.IsV2() {
		t.Error("v2 descriptor dispatched as v1")
	}
	info := mustLoad(t, v2acDescriptor)
	if !info.IsV2() {
		t.Error("v2ac descriptor dispatched as v1")
	}
	if _, ok := info.(*infoV2AC); !ok {
		t.Errorf("v2ac descriptor dispatched as %T", info)
	}

	if _, err := New(map[string]any{"something": "else"}); !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("unknown descriptor = %v, want ErrUnsupportedModel", err)
	}
}

func TestV1Enum(t *testing.T) {
	info := mustLoad(t, v1Descriptor)

	name, ok := info.EnumName("State", "30")
	if !ok || name != "@WM_STATE_RUNNING_W" {
		t.Fatalf("EnumName(State, 30) = %q, %v", name, ok)
	}
	// Codes arrive as JSON numbers from snapshots.
	name, _ = info.EnumName("State", float64(30))
	if name != "@WM_STATE_RUNNING_W" {
		t.Fatalf("EnumName(State, float64) = %q", name)
	}
	if code := info.EnumValue("State", "@WM_STATE_RUNNING_W"); code != "30" {
		t.Fatalf("EnumValue = %q", code)
	}
	if _, ok := info.EnumName("Spin", "400"); ok {
		t.Error("range key reported as enum")
	}

	// Booleans render as a synthetic OFF/ON enum.
	options, ok := info.EnumOptions("ChildLock")
	if !ok || options["0"] != BitOff || options["1"] != BitOn {
		t.Fatalf("bool options = %v, %v", options, ok)
	}
}

func TestV1Range(t *testing.T) {
	info := mustLoad(t, v1Descriptor)
	rng, ok := info.RangeValue("Spin")
	if !ok {
		t.Fatal("Spin range not found")
	}
	want := RangeValue{Min: 400, Max: 1400, Step: 100}
	if rng != want {
		t.Fatalf("range = %+v, want %+v", rng, want)
	}
	if _, ok := info.RangeValue("State"); ok {
		t.Error("enum key reported as range")
	}
}

func TestV1Reference(t *testing.T) {
	info := mustLoad(t, v1Descriptor)
	name, ok := info.ReferenceName("Course", "1")
	if !ok || name != "Bedding" {
		t.Fatalf("ReferenceName(Course, 1) = %q, %v", name, ok)
	}
	name, ok = info.ReferenceName("Course", float64(2))
	if !ok || name != "Cotton" {
		t.Fatalf("ReferenceName(Course, 2) = %q, %v", name, ok)
	}
	// Unknown codes resolve to empty, not an error.
	name, ok = info.ReferenceName("Course", "99")
	if !ok || name != "" {
		t.Fatalf("ReferenceName(Course, 99) = %q, %v", name, ok)
	}
	if _, ok := info.ReferenceName("State", "1"); ok {
		t.Error("enum key reported as reference")
	}
}

func TestV1BitValue(t *testing.T) {
	info := mustLoad(t, v1Descriptor)

	// Option1 = 0b0110: SteamSoftener on, LoadLevel 1, ChildLock off.
	data := map[string]any{"Option1": "6"}
	if v, ok := info.BitValue("ChildLock", data); !ok || v != "0" {
		t.Errorf("ChildLock = %q, %v", v, ok)
	}
	if v, ok := info.BitValue("SteamSoftener", data); !ok || v != "1" {
		t.Errorf("SteamSoftener = %q, %v", v, ok)
	}
	if v, ok := info.BitValue("LoadLevel", data); !ok || v != "1" {
		t.Errorf("LoadLevel = %q, %v", v, ok)
	}
	if _, ok := info.BitValue("NoSuchBit", data); ok {
		t.Error("unknown bit key resolved")
	}
	// A missing packed value reads as all zeroes.
	if v, ok := info.BitValue("SteamSoftener", map[string]any{}); !ok || v != "0" {
		t.Errorf("missing packed value = %q, %v", v, ok)
	}

	bits, ok := info.BitOptions("Option1")
	if !ok {
		t.Fatal("Option1 layout not found")
	}
	if opt := bits.Options[2]; opt.Value != "LoadLevel" || opt.Length != 2 {
		t.Fatalf("Options[2] = %+v", opt)
	}
}

func TestV1DecodeMonitorByteHexEquivalent(t *testing.T) {
	info := mustLoad(t, v1Descriptor)

	fromBytes, err := info.DecodeMonitor([]byte{0x30, 0x01, 0x1a})
	if err != nil {
		t.Fatalf("byte decode: %v", err)
	}
	want := map[string]any{"State": "48", "Remain_Time_H": "1", "Remain_Time_M": "26"}
	if !reflect.DeepEqual(fromBytes, want) {
		t.Fatalf("byte decode = %v, want %v", fromBytes, want)
	}

	hexInfo := mustLoad(t, v1Descriptor)
	hexInfo.AsMap()["Monitoring"].(map[string]any)["type"] = "BINARY(HEX)"
	fromHex, err := hexInfo.DecodeMonitor([]byte("30,01,1a"))
	if err != nil {
		t.Fatalf("hex decode: %v", err)
	}
	if !reflect.DeepEqual(fromHex, fromBytes) {
		t.Fatalf("hex decode = %v, byte decode = %v", fromHex, fromBytes)
	}

	// A short payload zeroes the fields past its end.
	short, err := info.DecodeMonitor([]byte{0x30})
	if err != nil {
		t.Fatalf("short decode: %v", err)
	}
	if short["Remain_Time_M"] != "0" {
		t.Fatalf("short decode = %v", short)
	}
}

func TestV1ControlCommand(t *testing.T) {
	info := mustLoad(t, v1Descriptor)
	if !info.BinaryControlData() {
		t.Error("binary control flag lost")
	}
	cmd, ok := info.ControlCommand("PowerOff", "OperationCtrl")
	if !ok {
		t.Fatal("PowerOff command not found")
	}
	if cmd["cmd"] != "OperationCtrl" || cmd["value"] != "PowerOff" {
		t.Fatalf("command = %v", cmd)
	}
	// The template itself must stay untouched.
	orig, _ := info.ControlCommand("PowerOff", "")
	if orig["cmd"] != "Control" {
		t.Fatalf("template mutated: %v", orig)
	}
	if _, ok := info.ControlCommand("NoSuchCmd", ""); ok {
		t.Error("unknown command resolved")
	}
}

func TestV2Lookups(t *testing.T) {
	info := mustLoad(t, v2Descriptor)

	name, ok := info.EnumName("spin", "1")
	if !ok || name != "@WM_SPIN_LOW_W" {
		t.Fatalf("EnumName(spin, 1) = %q, %v", name, ok)
	}
	name, ok = info.EnumIndex("spin", 1)
	if !ok || name != "@WM_SPIN_LOW_W" {
		t.Fatalf("EnumIndex(spin, 1) = %q, %v", name, ok)
	}
	if code := info.EnumValue("spin", "@WM_SPIN_OFF_W"); code != "0" {
		t.Fatalf("EnumValue = %q", code)
	}

	options, ok := info.EnumOptions("door")
	if !ok || options["1"] != BitOn {
		t.Fatalf("bool options = %v, %v", options, ok)
	}

	rng, ok := info.RangeValue("reserveTimeHour")
	if !ok || rng.Min != 0 || rng.Max != 12 || rng.Step != 1 {
		t.Fatalf("range = %+v, %v", rng, ok)
	}

	name, ok = info.ReferenceName("course", "2", "courseName")
	if !ok || name != "Cotton" {
		t.Fatalf("ReferenceName(course, 2) = %q, %v", name, ok)
	}

	if got := info.ConfigValue("courseType"); got != "courseFL24inchBaseTitan" {
		t.Fatalf("ConfigValue = %v", got)
	}
}

func TestV2ACLookups(t *testing.T) {
	info := mustLoad(t, v2acDescriptor)

	name, ok := info.EnumName("airState.operation", float64(1))
	if !ok || name != "@ON" {
		t.Fatalf("EnumName = %q, %v", name, ok)
	}
	rng, ok := info.RangeValue("airState.tempState.target")
	if !ok || rng.Min != 16 || rng.Max != 30 || rng.Step != 1 {
		t.Fatalf("range = %+v, %v", rng, ok)
	}
	// The whole snapshot passes through when there is no monitoring block.
	snap := map[string]any{"airState.operation": float64(1)}
	if got := info.DecodeSnapshot(snap, "airState"); !reflect.DeepEqual(got, snap) {
		t.Fatalf("DecodeSnapshot = %v", got)
	}
}

func TestV1DecodeSnapshotSuperSet(t *testing.T) {
	descriptor := `{
	  "Info": {"modelType": "WM"},
	  "Monitoring": {"type": "THINQ2", "protocol": [
	    {"superSet": "washerDryer.state", "value": "State"},
	    {"superSet": "washerDryer.remainTimeMinute", "value": "Remain_Time_M"}
	  ]},
	  "Value": {
	    "State": {"type": "Enum", "option": {"@WM_STATE_RUNNING_W": "@WM_STATE_RUNNING_W"}}
	  }
	}`
	info := mustLoad(t, descriptor)

	snapshot := map[string]any{
		"washerDryer": map[string]any{
			"state":            "@WM_STATE_RUNNING_W",
			"remainTimeMinute": float64(58),
		},
	}
	decoded := info.DecodeSnapshot(snapshot, "washerDryer")
	want := map[string]any{"State": "@WM_STATE_RUNNING_W", "Remain_Time_M": "58"}
	if !reflect.DeepEqual(decoded, want) {
		t.Fatalf("DecodeSnapshot = %v, want %v", decoded, want)
	}

	// A snapshot for another sub device decodes to nothing.
	if got := info.DecodeSnapshot(snapshot, "dryer"); len(got) != 0 {
		t.Fatalf("foreign snapshot decoded to %v", got)
	}
}

func TestNormalizeCodeValues(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"7", "7"},
		{float64(7), "7"},
		{float64(7.5), "7.5"},
		{3, "3"},
		{nil, ""},
		{true, "true"},
	}
	for _, c := range cases {
		if got := normalizeCode(c.in); got != c.want {
			t.Errorf("normalizeCode(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
