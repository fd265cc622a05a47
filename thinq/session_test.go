package thinq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newMonitorServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		root, _ := body["lgedmRoot"].(map[string]any)

		switch r.URL.Path {
		case "/rti/rtiMon":
			w.Write([]byte(`{"lgedmRoot": {"returnCd": "0000", "workId": "wk1"}}`))

		case "/rti/rtiResult":
			workList, _ := root["workList"].([]any)
			if len(workList) != 1 {
				t.Errorf("workList = %v", root["workList"])
				w.Write([]byte(`{"lgedmRoot": {"returnCd": "0000"}}`))
				return
			}
			work, _ := workList[0].(map[string]any)
			switch work["deviceId"] {
			case "warm":
				// No returnCode yet: the session is still warming up.
				w.Write([]byte(`{"lgedmRoot": {"returnCd": "0000",
					"workList": {"deviceId": "warm", "workId": "wk1"}}}`))
			case "data":
				w.Write([]byte(`{"lgedmRoot": {"returnCd": "0000",
					"workList": {"deviceId": "data", "workId": "wk1",
						"returnCode": "0000", "returnData": "MAEa"}}}`))
			case "dead":
				w.Write([]byte(`{"lgedmRoot": {"returnCd": "0000",
					"workList": {"deviceId": "dead", "workId": "wk1",
						"returnCode": "0010"}}}`))
			default:
				t.Errorf("unexpected device id %v", work["deviceId"])
			}

		default:
			http.NotFound(w, r)
		}
	}))
}

func newMonitorSession(srv *httptest.Server) *Session {
	gateway := &Gateway{
		ThinQ1URI: srv.URL + "/",
		transport: NewTransport("US", "en-US", srv.Client()),
	}
	auth := NewAuth(gateway, "rt", "")
	auth.AccessToken = "at"
	auth.UserNumber = "u1"
	return auth.StartSession()
}

func TestMonitorSessionLifecycle(t *testing.T) {
	srv := newMonitorServer(t)
	defer srv.Close()
	s := newMonitorSession(srv)
	ctx := context.Background()

	workID, err := s.MonitorStart(ctx, "data")
	if err != nil {
		t.Fatalf("MonitorStart: %v", err)
	}
	if workID != "wk1" {
		t.Fatalf("work id = %q", workID)
	}

	payload, err := s.MonitorPoll(ctx, "data", workID)
	if err != nil {
		t.Fatalf("MonitorPoll: %v", err)
	}
	if !bytes.Equal(payload, []byte{0x30, 0x01, 0x1a}) {
		t.Fatalf("payload = %x", payload)
	}

	if err := s.MonitorStop(ctx, "data", workID); err != nil {
		t.Fatalf("MonitorStop: %v", err)
	}
}

func TestMonitorPollWarmUp(t *testing.T) {
	srv := newMonitorServer(t)
	defer srv.Close()
	s := newMonitorSession(srv)

	payload, err := s.MonitorPoll(context.Background(), "warm", "wk1")
	if err != nil {
		t.Fatalf("MonitorPoll: %v", err)
	}
	if payload != nil {
		t.Fatalf("warm-up payload = %x, want none", payload)
	}
}

func TestMonitorPollDeadSession(t *testing.T) {
	srv := newMonitorServer(t)
	defer srv.Close()
	s := newMonitorSession(srv)

	_, err := s.MonitorPoll(context.Background(), "dead", "wk1")
	var monErr *MonitorError
	if !errors.As(err, &monErr) {
		t.Fatalf("MonitorPoll error = %v, want MonitorError", err)
	}
	if monErr.Code != "0010" || monErr.DeviceID != "dead" {
		t.Errorf("monitor error = %+v", monErr)
	}
}
