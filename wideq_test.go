package wideq

import (
	"testing"

	"github.com/ollo69/wideq-go/devices/ac"
	"github.com/ollo69/wideq-go/devices/refrigerator"
	"github.com/ollo69/wideq-go/devices/washer"
	"github.com/ollo69/wideq-go/thinq"
)

func newFactoryClient(t *testing.T) *thinq.Client {
	t.Helper()
	client, err := thinq.Load(map[string]any{
		"gateway": map[string]any{"country": "US", "language": "en-US"},
		"auth":    map[string]any{"refresh_token": "rt"},
	}, nil)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	return client
}

func infoFor(data map[string]any) *thinq.DeviceInfo {
	base := map[string]any{
		"deviceId":     "d1",
		"alias":        "Device",
		"platformType": "thinq2",
	}
	for k, v := range data {
		base[k] = v
	}
	return thinq.NewDeviceInfo(base)
}

func TestCreateDevicesSkipsUnsupported(t *testing.T) {
	client := newFactoryClient(t)

	cases := map[string]*thinq.DeviceInfo{
		"unknown platform": infoFor(map[string]any{
			"deviceType": float64(201), "platformType": "thinq9",
		}),
		"nfc network": infoFor(map[string]any{
			"deviceType": float64(201), "networkType": "03",
		}),
		"unknown type": infoFor(map[string]any{
			"deviceType": float64(999),
		}),
		"cooktop has no facade": infoFor(map[string]any{
			"deviceType": float64(303),
		}),
	}
	for name, info := range cases {
		if got := CreateDevices(client, info, Celsius); got != nil {
			t.Errorf("%s: got %d facades, want none", name, len(got))
		}
	}
}

func TestCreateDevicesFacadeTypes(t *testing.T) {
	client := newFactoryClient(t)

	devs := CreateDevices(client, infoFor(map[string]any{"deviceType": float64(201)}), Celsius)
	if len(devs) != 1 {
		t.Fatalf("washer facades = %d", len(devs))
	}
	if _, ok := devs[0].(*washer.Device); !ok {
		t.Errorf("washer facade = %T", devs[0])
	}

	devs = CreateDevices(client, infoFor(map[string]any{"deviceType": float64(101)}), Celsius)
	if len(devs) != 1 {
		t.Fatalf("refrigerator facades = %d", len(devs))
	}
	if _, ok := devs[0].(*refrigerator.Device); !ok {
		t.Errorf("refrigerator facade = %T", devs[0])
	}

	devs = CreateDevices(client, infoFor(map[string]any{"deviceType": float64(401)}), Fahrenheit)
	if len(devs) != 1 {
		t.Fatalf("ac facades = %d", len(devs))
	}
	if _, ok := devs[0].(*ac.Device); !ok {
		t.Errorf("ac facade = %T", devs[0])
	}
}

func TestCreateDevicesTower(t *testing.T) {
	client := newFactoryClient(t)

	devs := CreateDevices(client, infoFor(map[string]any{"deviceType": float64(221)}), Celsius)
	if len(devs) != 1 {
		t.Fatalf("tower washer facades = %d", len(devs))
	}
	devs = CreateDevices(client, infoFor(map[string]any{"deviceType": float64(222)}), Celsius)
	if len(devs) != 1 {
		t.Fatalf("tower dryer facades = %d", len(devs))
	}
	if _, ok := devs[0].(*washer.Device); !ok {
		t.Errorf("tower facade = %T", devs[0])
	}
}

func TestCreateDevicesLegacyPlatformDefault(t *testing.T) {
	client := newFactoryClient(t)

	// Records without a platformType predate thinq2 and still get a facade.
	info := thinq.NewDeviceInfo(map[string]any{
		"deviceId":   "d1",
		"deviceType": float64(201),
	})
	if got := CreateDevices(client, info, Celsius); len(got) != 1 {
		t.Fatalf("legacy record facades = %d", len(got))
	}
}
