package device

import (
	"testing"

	"github.com/ollo69/wideq-go/model"
	"github.com/ollo69/wideq-go/thinq"
)

const washerDescriptor = `{
  "Info": {"modelType": "TL"},
  "Monitoring": {"type": "BINARY(BYTE)", "protocol": [
    {"value": "State", "startByte": 0, "length": 1}
  ]},
  "Value": {
    "State": {"type": "Enum", "option": {
      "0": "@WM_STATE_POWER_OFF_W",
      "30": "@WM_STATE_RUNNING_W"
    }},
    "TurboWash": {"type": "Enum", "option": {
      "0": "@WM_TERM_TURBO_WASH_OFF_W",
      "1": "@WM_TERM_TURBO_WASH_ON_W"
    }},
    "Course": {"type": "Reference", "option": ["Course"]},
    "UseTime": {"type": "Range", "option": {"min": 0, "max": 1000, "step": 1}},
    "MaxTime": {"type": "Range", "option": {"min": 0, "max": 1000, "step": 1}},
    "Option1": {"type": "Bit", "option": [
      {"value": "DoorLock", "startbit": 0, "length": 1},
      {"value": "ChildLock", "startbit": 1, "length": 1}
    ]}
  },
  "Course": {"1": {"name": "Bedding"}}
}`

func newTestBase(t *testing.T, descriptor string) *Base {
	t.Helper()
	info, err := model.Load([]byte(descriptor))
	if err != nil {
		t.Fatalf("loading descriptor: %v", err)
	}
	b := NewBase(nil, thinq.NewDeviceInfo(map[string]any{
		"deviceId": "d1",
		"alias":    "Washer",
	}))
	b.modelInfo = info
	return b
}

func TestDataKeyAndValue(t *testing.T) {
	b := newTestBase(t, washerDescriptor)

	empty := NewStatus(b, nil)
	if key := empty.DataKey("State"); key != "" {
		t.Errorf("empty payload DataKey = %q", key)
	}
	if empty.HasData() {
		t.Error("empty payload reports data")
	}

	s := NewStatus(b, map[string]any{"State": "30", "Remain_Time_M": "58"})
	if key := s.DataKey("Missing", "State"); key != "State" {
		t.Errorf("DataKey = %q, want State", key)
	}
	if v := s.Value("Remain_Time_M"); v != "58" {
		t.Errorf("Value = %v", v)
	}
	if v := s.Value("Missing"); v != nil {
		t.Errorf("Value(missing) = %v", v)
	}
}

func TestUpdateStatus(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	s := NewStatus(b, map[string]any{"State": "30"})

	if !s.UpdateStatus("State", "0") {
		t.Fatal("update of present key failed")
	}
	if s.data["State"] != "0" {
		t.Fatalf("State = %v", s.data["State"])
	}
	if s.UpdateStatus("NotInPayload", "1") {
		t.Fatal("update of absent key succeeded")
	}
}

func TestLookupEnum(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	s := NewStatus(b, map[string]any{"State": "30", "TurboWash": "1"})

	if got := s.LookupEnum("State"); got != "@WM_STATE_RUNNING_W" {
		t.Errorf("LookupEnum(State) = %q", got)
	}
	if got := s.LookupEnum("Missing"); got != "" {
		t.Errorf("LookupEnum(Missing) = %q", got)
	}
	// The *_ON_W / *_OFF_W families collapse onto the plain bit labels.
	if got := s.LookupEnumBool("TurboWash"); got != BitOn {
		t.Errorf("LookupEnumBool(on) = %q", got)
	}
	s.UpdateStatus("TurboWash", "0")
	if got := s.LookupEnumBool("TurboWash"); got != BitOff {
		t.Errorf("LookupEnumBool(off) = %q", got)
	}
}

func TestLookupReference(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	s := NewStatus(b, map[string]any{"Course": "1"})

	if got := s.LookupReference("name", "Course"); got != "Bedding" {
		t.Errorf("LookupReference = %q", got)
	}
	if got := s.LookupReference("name", "Missing"); got != "" {
		t.Errorf("LookupReference(missing) = %q", got)
	}
}

func TestLookupBit(t *testing.T) {
	b := newTestBase(t, washerDescriptor)

	// Option1 = 0b01: DoorLock set, ChildLock clear.
	s := NewStatus(b, map[string]any{"Option1": "1"})
	if got := s.LookupBitEnum("DoorLock"); got != LabelBitOn {
		t.Errorf("LookupBitEnum(DoorLock) = %q", got)
	}
	if got := s.LookupBit("DoorLock"); got != StateOn {
		t.Errorf("LookupBit(DoorLock) = %q", got)
	}

	s = NewStatus(b, map[string]any{"Option1": "2"})
	if got := s.LookupBit("DoorLock"); got != StateOff {
		t.Errorf("LookupBit(DoorLock clear) = %q", got)
	}
}

func TestUpdateFeature(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	s := NewStatus(b, map[string]any{"State": "30"})

	if got := s.UpdateFeature(FeatRunState, "@WM_STATE_RUNNING_W", false); got != "@WM_STATE_RUNNING_W" {
		t.Fatalf("UpdateFeature = %q", got)
	}
	if s.Features()[FeatRunState] != "@WM_STATE_RUNNING_W" {
		t.Fatalf("features = %v", s.Features())
	}
	if _, ok := b.AvailableFeatures()[FeatRunState]; !ok {
		t.Fatal("feature not registered on device")
	}

	// getText resolves through the local label table.
	if got := s.UpdateFeature(FeatChildLock, BitOn, true); got != StateOn {
		t.Errorf("UpdateFeature(getText) = %q", got)
	}

	// An empty status on an unseen feature does not register it.
	if got := s.UpdateFeature(FeatDoorLock, "", false); got != "" {
		t.Errorf("empty unseen feature = %q", got)
	}
	if _, ok := b.AvailableFeatures()[FeatDoorLock]; ok {
		t.Error("empty feature registered")
	}

	// A feature seen once decodes an empty follow-up as the none sentinel.
	s.UpdateFeature(FeatSpinSpeed, "@WM_SPIN_LOW_W", false)
	if got := s.UpdateFeature(FeatSpinSpeed, "", false); got != StateNone {
		t.Errorf("empty known feature = %q", got)
	}

	// AllowNone registers even without a status.
	if got := s.UpdateFeatureAllowNone(FeatErrorMsg, "", false); got != "" {
		t.Errorf("allow-none feature = %q", got)
	}
	if _, ok := b.AvailableFeatures()[FeatErrorMsg]; !ok {
		t.Error("allow-none feature not registered")
	}
}

func TestFeatureTitleHook(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	b.FeatureTitle = func(featureName, itemKey string) string {
		if featureName == FeatRunState {
			return "Run state"
		}
		return ""
	}
	s := NewStatus(b, map[string]any{"State": "30"})

	s.UpdateFeature(FeatRunState, "@WM_STATE_RUNNING_W", false)
	if got := b.AvailableFeatures()[FeatRunState]; got != "Run state" {
		t.Errorf("feature title = %q", got)
	}
	// A title hook returning empty vetoes the feature.
	if got := s.UpdateFeature(FeatPreState, "x", false); got != "" {
		t.Errorf("vetoed feature = %q", got)
	}
}

func TestOrUnknown(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	s := NewStatus(b, map[string]any{"State": "99"})

	if got := s.OrUnknown("decoded", "State", "enum"); got != "decoded" {
		t.Errorf("OrUnknown(decoded) = %q", got)
	}
	if got := s.OrUnknown("", "State", "enum"); got != StateUnknown {
		t.Errorf("OrUnknown(empty) = %q", got)
	}
}

func TestStateKeyByGeneration(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	key := Key{"State", "state"}
	if got := b.StateKey(key); got != "State" {
		t.Errorf("v1 StateKey = %q", got)
	}

	v2 := newTestBase(t, `{"MonitoringValue": {"state": {"dataType": "Enum", "valueMapping": {}}}}`)
	if got := v2.StateKey(key); got != "state" {
		t.Errorf("v2 StateKey = %q", got)
	}
}

func TestEnumText(t *testing.T) {
	b := newTestBase(t, washerDescriptor)
	b.modelLang = map[string]string{"@WM_STATE_RUNNING_W": "Washing"}
	b.productLang = map[string]string{"@WM_STATE_RINSING_W": "Rinsing"}

	if got := b.EnumText(BitOn); got != StateOn {
		t.Errorf("local label = %q", got)
	}
	if got := b.EnumText("@WM_STATE_RUNNING_W"); got != "Washing" {
		t.Errorf("model pack label = %q", got)
	}
	if got := b.EnumText("@WM_STATE_RINSING_W"); got != "Rinsing" {
		t.Errorf("product pack label = %q", got)
	}
	if got := b.EnumText("@NO_SUCH_LABEL"); got != "@NO_SUCH_LABEL" {
		t.Errorf("fallback label = %q", got)
	}
	if got := b.EnumText(""); got != StateNone {
		t.Errorf("empty label = %q", got)
	}
}

func TestFilterLife(t *testing.T) {
	b := newTestBase(t, washerDescriptor)

	s := NewStatus(b, map[string]any{"UseTime": "100", "MaxTime": "400"})
	if got := s.FilterLife([]string{"UseTime"}, []string{"MaxTime"}, nil, "", false); got != "75" {
		t.Errorf("filter life = %q, want 75", got)
	}
	// Inverted payloads report remaining time instead of used time.
	if got := s.FilterLife([]string{"UseTime"}, []string{"MaxTime"}, nil, "", true); got != "25" {
		t.Errorf("inverted filter life = %q, want 25", got)
	}

	s = NewStatus(b, map[string]any{"UseTime": "100"})
	if got := s.FilterLife([]string{"UseTime"}, []string{"MaxTime"}, nil, "", false); got != "" {
		t.Errorf("missing max time = %q", got)
	}
}

func TestNumericHelpers(t *testing.T) {
	if got := IntOrNone(float64(58)); got != "58" {
		t.Errorf("IntOrNone(float) = %q", got)
	}
	if got := IntOrNone("58"); got != "" {
		t.Errorf("IntOrNone(string) = %q", got)
	}
	if got := IntOrNone(nil); got != "" {
		t.Errorf("IntOrNone(nil) = %q", got)
	}

	if n, ok := ToInt("58"); !ok || n != 58 {
		t.Errorf("ToInt(string) = %d, %v", n, ok)
	}
	if n, ok := ToInt("58.5"); !ok || n != 58 {
		t.Errorf("ToInt(float string) = %d, %v", n, ok)
	}
	if n, ok := ToInt(float64(58)); !ok || n != 58 {
		t.Errorf("ToInt(float) = %d, %v", n, ok)
	}
	if _, ok := ToInt(""); ok {
		t.Error("ToInt(empty) succeeded")
	}
	if _, ok := ToInt("abc"); ok {
		t.Error("ToInt(abc) succeeded")
	}

	if f, ok := StrToNum("18"); !ok || f != 18 {
		t.Errorf("StrToNum = %v, %v", f, ok)
	}
	if _, ok := StrToNum("N/A"); ok {
		t.Error("StrToNum(N/A) succeeded")
	}
}
