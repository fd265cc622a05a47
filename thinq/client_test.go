package thinq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newDashboardServer(t *testing.T, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/service/application/dashboard" {
			http.NotFound(w, r)
			return
		}
		*requests++
		w.Write([]byte(`{"resultCode":"0000","result":{` +
			`"langPackCommonUri":"https://objectstore.lgthinq.com/pack.json",` +
			`"item":[{"deviceId":"d1","alias":"Washer","deviceType":201,"platformType":"thinq2"}]}}`))
	}))
}

func newTestClient(srv *httptest.Server, now *time.Time) *Client {
	tr := NewTransport("", "", srv.Client())
	tr.now = func() time.Time { return *now }
	gateway := &Gateway{ThinQ2URI: srv.URL + "/v1/", transport: tr}
	auth := NewAuth(gateway, "rt", srv.URL)
	auth.AccessToken = "at"
	auth.UserNumber = "U9"
	c := newClient(auth)
	c.session = auth.StartSession()
	return c
}

func TestRefreshDevicesGuard(t *testing.T) {
	requests := 0
	srv := newDashboardServer(t, &requests)
	defer srv.Close()

	now := time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC)
	c := newTestClient(srv, &now)
	ctx := context.Background()

	// Inside the rate window nothing is fetched.
	if err := c.RefreshDevices(ctx); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	if requests != 0 {
		t.Fatalf("%d requests inside the rate window", requests)
	}

	now = now.Add(26 * time.Second)
	if err := c.RefreshDevices(ctx); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want 1", requests)
	}
	devices := c.Devices()
	if len(devices) != 1 || devices[0].ID() != "d1" {
		t.Fatalf("devices = %v", devices)
	}

	// A second call right away reuses the cache.
	if err := c.RefreshDevices(ctx); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	if requests != 1 {
		t.Fatalf("requests = %d after cached call, want 1", requests)
	}
}

func TestGetDevice(t *testing.T) {
	requests := 0
	srv := newDashboardServer(t, &requests)
	defer srv.Close()

	now := time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC)
	c := newTestClient(srv, &now)
	now = now.Add(time.Minute)
	if err := c.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}

	if dev := c.GetDevice("d1"); dev == nil || dev.Name() != "Washer" {
		t.Fatalf("GetDevice(d1) = %v", dev)
	}
	if dev := c.GetDevice("missing"); dev != nil {
		t.Fatalf("GetDevice(missing) = %v", dev)
	}
}

func TestClientDumpLoad(t *testing.T) {
	tr := NewTransport("IT", "it-IT", nil)
	gateway := newGateway(map[string]any{
		"empUri":    "https://emp.example.com",
		"thinq1Uri": "https://kic.example.com/api",
		"thinq2Uri": "https://eic.example.com/v1",
	}, tr)
	auth := NewAuth(gateway, "rt", "https://us.lgeapi.com/")
	c := newClient(auth)

	restored, err := Load(c.Dump(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Country() != "IT" || restored.Language() != "it-IT" {
		t.Errorf("locale = %s/%s", restored.Country(), restored.Language())
	}
	if restored.Auth().RefreshToken != "rt" {
		t.Errorf("refresh token = %q", restored.Auth().RefreshToken)
	}
	if got := restored.Auth().Gateway().ThinQ2URI; got != "https://eic.example.com/v1/" {
		t.Errorf("thinq2 uri = %q", got)
	}
}

func TestRefreshAuthSerialized(t *testing.T) {
	var tokenRequests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != v2AuthPath {
			http.NotFound(w, r)
			return
		}
		tokenRequests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-at","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	tr := NewTransport("", "", srv.Client())
	fixed := time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }
	gateway := &Gateway{transport: tr}
	auth := NewAuth(gateway, "rt", srv.URL)
	auth.UserNumber = "U9"
	c := newClient(auth)
	c.session = auth.StartSession()

	// Every poller sees the expired token at once; only one exchange may
	// reach the endpoint, the rest reuse the fresh token.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.RefreshAuth(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("RefreshAuth #%d: %v", i, err)
		}
	}
	if n := tokenRequests.Load(); n != 1 {
		t.Fatalf("token requests = %d, want 1", n)
	}
	if got := c.Auth().AccessToken; got != "new-at" {
		t.Fatalf("access token = %q", got)
	}
}

func TestClose(t *testing.T) {
	c := newClient(NewAuth(&Gateway{transport: NewTransport("", "", nil)}, "rt", ""))
	c.session = c.auth.StartSession()

	ran := 0
	c.OnClose(func() { ran++ })
	c.Close()
	if ran != 1 {
		t.Fatalf("close hooks ran %d times, want 1", ran)
	}
	if c.session != nil {
		t.Fatal("session survived Close")
	}

	// Closing twice is safe and does not re-run the hooks.
	c.Close()
	if ran != 1 {
		t.Fatalf("close hooks ran %d times after double Close", ran)
	}

	// The auth state stays usable for Dump.
	if c.Dump()["auth"] == nil {
		t.Fatal("auth state lost on Close")
	}
}

func TestLoadRejectsPartialState(t *testing.T) {
	if _, err := Load(map[string]any{}, nil); err == nil {
		t.Error("empty state accepted")
	}
	if _, err := Load(map[string]any{"gateway": map[string]any{}}, nil); err == nil {
		t.Error("state without auth accepted")
	}
}
