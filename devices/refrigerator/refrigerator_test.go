package refrigerator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const fridgeModelJSON = `{
  "Info": {"modelType": "REF"},
  "Monitoring": {"type": "BINARY(BYTE)", "protocol": [
    {"value": "TempRefrigerator", "startByte": 0, "length": 1}
  ]},
  "Value": {
    "TempRefrigerator": {"type": "Enum", "option": {
      "1": "7", "2": "6", "3": "5", "4": "4", "5": "3", "6": "2", "7": "1"
    }},
    "TempFreezer": {"type": "Enum", "option": {
      "1": "-15", "2": "-16", "3": "-17", "4": "-18"
    }},
    "TempUnit": {"type": "Enum", "option": {"0": "℃", "1": "Ｆ"}},
    "EcoFriendly": {"type": "Enum", "option": {
      "0": "@CP_OFF_EN_W", "1": "@CP_ON_EN_W"
    }}
  }
}`

func newTestFridge(t *testing.T) *Device {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/model.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(fridgeModelJSON))
	}))
	t.Cleanup(srv.Close)

	client, err := thinq.Load(map[string]any{
		"gateway": map[string]any{"country": "US", "language": "en-US"},
		"auth":    map[string]any{"refresh_token": "rt"},
	}, srv.Client())
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	info := thinq.NewDeviceInfo(map[string]any{
		"deviceId":     "r1",
		"alias":        "Fridge",
		"deviceType":   float64(101),
		"platformType": "thinq2",
		"modelJsonUrl": srv.URL + "/model.json",
	})
	d := New(client, info)
	if err := d.InitDeviceInfo(context.Background()); err != nil {
		t.Fatalf("loading model info: %v", err)
	}
	return d
}

func TestFridgeTempTables(t *testing.T) {
	d := newTestFridge(t)

	temps := d.FridgeTemps(Celsius, "")
	if temps["3"] != "5" {
		t.Fatalf("fridge temps = %v", temps)
	}
	if got := d.FridgeTargetTempRange(); !reflect.DeepEqual(got, []int{1, 7}) {
		t.Errorf("fridge range = %v, want [1 7]", got)
	}
	d.FreezerTemps(Celsius, "")
	if got := d.FreezerTargetTempRange(); !reflect.DeepEqual(got, []int{-18, -15}) {
		t.Errorf("freezer range = %v, want [-18 -15]", got)
	}
}

func TestFridgeDefaultRanges(t *testing.T) {
	d := newTestFridge(t)
	// Before any table is loaded the defaults apply, per unit.
	if got := d.FridgeTargetTempRange(); !reflect.DeepEqual(got, defaultFridgeRangeC) {
		t.Errorf("default fridge range = %v", got)
	}
	d.setTempUnit(Fahrenheit)
	if got := d.FreezerTargetTempRange(); !reflect.DeepEqual(got, defaultFreezerRangeF) {
		t.Errorf("default freezer range = %v", got)
	}
}

func TestFridgeSetTargetTempValidation(t *testing.T) {
	d := newTestFridge(t)
	d.status = newStatus(d, map[string]any{
		"TempRefrigerator": "3",
		"EcoFriendly":      "0",
	})
	d.FridgeTemps(Celsius, "")

	if !d.SetValuesAllowed() {
		t.Fatal("settings blocked on a powered fridge")
	}
	if err := d.SetFridgeTargetTemp(context.Background(), 99); err == nil {
		t.Fatal("out-of-table temperature accepted")
	}
}

func TestFridgeEcoFriendlyBlocksSettings(t *testing.T) {
	d := newTestFridge(t)
	d.status = newStatus(d, map[string]any{
		"TempRefrigerator": "3",
		"EcoFriendly":      "1",
	})

	if !d.status.EcoFriendlyEnabled() {
		t.Fatal("eco friendly mode not detected")
	}
	if d.SetValuesAllowed() {
		t.Fatal("settings allowed while eco friendly is engaged")
	}
}

func TestFridgeStatusValues(t *testing.T) {
	d := newTestFridge(t)
	s := newStatus(d, map[string]any{
		"TempRefrigerator": "3",
		"TempFreezer":      "4",
		"TempUnit":         "0",
		"EcoFriendly":      "0",
	})
	d.status = s

	if !s.IsOn() {
		t.Fatal("fridge with data reports off")
	}
	if got := s.TempUnit(); got != Celsius {
		t.Errorf("temp unit = %q, want C", got)
	}
	if got := s.TempFridge(); got != "5" {
		t.Errorf("fridge temp = %q, want 5", got)
	}
	if got := s.TempFreezer(); got != "-18" {
		t.Errorf("freezer temp = %q, want -18", got)
	}
	if got := s.EcoFriendlyState(); got != device.StateOff {
		t.Errorf("eco friendly = %q, want off", got)
	}
}
