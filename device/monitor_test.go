package device

import (
	"testing"

	"github.com/ollo69/wideq-go/thinq"
)

func newGuardClient(t *testing.T) *thinq.Client {
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

func guardCount() int {
	guardsMu.Lock()
	defer guardsMu.Unlock()
	return len(guards)
}

func TestGuardSharedPerClient(t *testing.T) {
	client := newGuardClient(t)
	defer client.Close()
	info := thinq.NewDeviceInfo(map[string]any{
		"deviceId": "d1", "alias": "Washer", "platformType": "thinq2",
	})

	m1 := NewMonitor(client, info)
	m2 := NewMonitor(client, info)
	if m1.guard != m2.guard {
		t.Fatal("monitors on one client got separate guards")
	}
}

func TestClientCloseEvictsGuard(t *testing.T) {
	base := guardCount()
	info := thinq.NewDeviceInfo(map[string]any{
		"deviceId": "d1", "alias": "Washer", "platformType": "thinq2",
	})

	// The guard map must not grow across create/close cycles.
	for i := 0; i < 3; i++ {
		client := newGuardClient(t)
		NewMonitor(client, info)
		if got := guardCount(); got != base+1 {
			t.Fatalf("guards = %d while client open, want %d", got, base+1)
		}
		client.Close()
		if got := guardCount(); got != base {
			t.Fatalf("guards = %d after Close, want %d", got, base)
		}
	}
}
