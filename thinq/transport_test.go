package thinq

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSignature(t *testing.T) {
	// RFC 2202 HMAC-SHA1 test case 2.
	got := signature("what do ya want for nothing?", "Jefe")
	want := "7/zfauXrL6LSdBbV8YTfnCWafHk="
	if got != want {
		t.Fatalf("signature() = %q, want %q", got, want)
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := normalizeCode("0102"); got != "0102" {
		t.Errorf("string code = %q, want 0102", got)
	}
	if got := normalizeCode(float64(9000)); got != "9000" {
		t.Errorf("numeric code = %q, want 9000", got)
	}
}

func TestManageResultV2(t *testing.T) {
	payload := map[string]any{
		"resultCode": "0000",
		"result":     map[string]any{"item": map[string]any{"deviceId": "abc"}},
	}
	out, err := manageResult(payload, true)
	if err != nil {
		t.Fatalf("ok envelope: %v", err)
	}
	if _, ok := out["result"]; !ok {
		t.Fatal("ok envelope lost its result payload")
	}

	_, err = manageResult(map[string]any{"resultCode": "0102"}, true)
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("code 0102 = %v, want ErrNotLoggedIn", err)
	}

	// The server reports 9000 as a bare JSON number.
	_, err = manageResult(map[string]any{"resultCode": float64(9000)}, true)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("code 9000 = %v, want ErrInvalidRequest", err)
	}

	_, err = manageResult(map[string]any{"resultCode": "0123", "result": "boom"}, true)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "0123" {
		t.Fatalf("unmapped code = %v, want APIError 0123", err)
	}
}

func TestManageResultLegacy(t *testing.T) {
	payload := map[string]any{
		dataRoot: map[string]any{"returnCd": "0000", "workList": []any{}},
	}
	out, err := manageResult(payload, false)
	if err != nil {
		t.Fatalf("ok envelope: %v", err)
	}
	if _, ok := out["workList"]; !ok {
		t.Fatal("ok envelope not unwrapped to lgedmRoot")
	}

	_, err = manageResult(map[string]any{
		dataRoot: map[string]any{"returnCd": "0106", "returnMsg": "not connected"},
	}, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("code 0106 = %v, want ErrNotConnected", err)
	}

	_, err = manageResult(map[string]any{"unexpected": true}, false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "-1" {
		t.Fatalf("missing root = %v, want APIError -1", err)
	}

	_, err = manageResult(map[string]any{dataRoot: map[string]any{}}, false)
	if !errors.As(err, &apiErr) || apiErr.Code != "-1" {
		t.Fatalf("empty root = %v, want APIError -1", err)
	}
}

func TestDecodeResponse(t *testing.T) {
	out, err := decodeResponse([]byte(`{"resultCode":"0000"}`))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if out["resultCode"] != "0000" {
		t.Fatalf("json decoded to %v", out)
	}

	// Some legacy endpoints answer in XML.
	out, err = decodeResponse([]byte(
		`<lgedmRoot><returnCd>0000</returnCd><returnMsg>OK</returnMsg></lgedmRoot>`))
	if err != nil {
		t.Fatalf("xml: %v", err)
	}
	root, ok := out[dataRoot].(map[string]any)
	if !ok {
		t.Fatalf("xml decoded to %v", out)
	}
	if root["returnCd"] != "0000" || root["returnMsg"] != "OK" {
		t.Fatalf("xml root decoded to %v", root)
	}

	_, err = decodeResponse([]byte("<html>502 Bad Gateway"))
	var invalid *InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("garbage body = %v, want InvalidResponseError", err)
	}
}

func TestThinQ2Get(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte(`{"resultCode":"0000","result":{"item":{"deviceId":"abc"}}}`))
	}))
	defer srv.Close()

	tr := NewTransport("IT", "it-IT", srv.Client())
	out, err := tr.ThinQ2Get(context.Background(), srv.URL+"/service/devices", "tok", "U123", nil)
	if err != nil {
		t.Fatalf("ThinQ2Get: %v", err)
	}
	item, ok := out["item"].(map[string]any)
	if !ok || item["deviceId"] != "abc" {
		t.Fatalf("result payload = %v", out)
	}
	if gotHeaders.Get("x-emp-token") != "tok" {
		t.Errorf("x-emp-token = %q", gotHeaders.Get("x-emp-token"))
	}
	if gotHeaders.Get("x-user-no") != "U123" {
		t.Errorf("x-user-no = %q", gotHeaders.Get("x-user-no"))
	}
	if gotHeaders.Get("x-country-code") != "IT" {
		t.Errorf("x-country-code = %q", gotHeaders.Get("x-country-code"))
	}
	if gotHeaders.Get("x-message-id") == "" {
		t.Error("missing x-message-id")
	}
}

func TestThinQ2GetErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultCode":"0106","result":""}`))
	}))
	defer srv.Close()

	tr := NewTransport("", "", srv.Client())
	_, err := tr.ThinQ2Get(context.Background(), srv.URL, "", "", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ThinQ2Get = %v, want ErrNotConnected", err)
	}
}

func TestLGEDMPostWrapsEnvelope(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(`{"lgedmRoot":{"returnCd":"0000","deviceId":"abc"}}`))
	}))
	defer srv.Close()

	tr := NewTransport("", "", srv.Client())
	out, err := tr.LGEDMPost(context.Background(), srv.URL, map[string]any{"cmd": "Mon"}, "", "", false)
	if err != nil {
		t.Fatalf("LGEDMPost: %v", err)
	}
	if !strings.Contains(gotBody, `"lgedmRoot"`) {
		t.Errorf("request body %q not wrapped in lgedmRoot", gotBody)
	}
	if out["deviceId"] != "abc" {
		t.Fatalf("response = %v", out)
	}
}

func TestJoinURL(t *testing.T) {
	cases := []struct{ base, path, want string }{
		{"https://eic.lgthinq.com:46030/v1/", "service/devices", "https://eic.lgthinq.com:46030/v1/service/devices"},
		{"https://us.lgeapi.com", "/oauth/1.0/oauth2/token", "https://us.lgeapi.com/oauth/1.0/oauth2/token"},
	}
	for _, c := range cases {
		if got := joinURL(c.base, c.path); got != c.want {
			t.Errorf("joinURL(%q, %q) = %q, want %q", c.base, c.path, got, c.want)
		}
	}
}

func TestSignatureTimestampFormat(t *testing.T) {
	tr := NewTransport("", "", nil)
	tr.now = func() time.Time {
		return time.Date(2023, time.May, 1, 12, 13, 14, 0, time.UTC)
	}
	if got := tr.timestamp(); got != "Mon, 01 May 2023 12:13:14 +0000" {
		t.Fatalf("timestamp() = %q", got)
	}
}
