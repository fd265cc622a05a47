package thinq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthExpiredWindow(t *testing.T) {
	base := time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC)
	auth := &Auth{
		AccessToken:   "tok",
		TokenValidity: 3600 * time.Second,
		createdOn:     base,
	}
	if auth.expired(base.Add(3539 * time.Second)) {
		t.Error("token expired 61s before validity end")
	}
	if !auth.expired(base.Add(3540 * time.Second)) {
		t.Error("token still valid 60s before validity end")
	}
	if !(&Auth{}).expired(base) {
		t.Error("empty access token not treated as expired")
	}
}

func TestParseOAuthCallback(t *testing.T) {
	info, err := ParseOAuthCallback(
		"https://kr.m.lgaccount.com/login/iabClose?refresh_token=rt&access_token=at&oauth2_backend_url=https%3A%2F%2Fus.lgeapi.com%2F")
	if err != nil {
		t.Fatalf("token callback: %v", err)
	}
	if info.RefreshToken != "rt" || info.AccessToken != "at" {
		t.Fatalf("token callback = %+v", info)
	}
	if info.TokenValidity != DefaultTokenValidity {
		t.Errorf("token validity = %v, want default", info.TokenValidity)
	}
	if info.OAuthURL != "https://us.lgeapi.com/" {
		t.Errorf("oauth url = %q", info.OAuthURL)
	}

	info, err = ParseOAuthCallback(
		"https://kr.m.lgaccount.com/login/iabClose?code=ac123&user_number=U777&oauth2_backend_url=https%3A%2F%2Fus.lgeapi.com%2F")
	if err != nil {
		t.Fatalf("code callback: %v", err)
	}
	if info.AuthCode != "ac123" || info.UserNumber != "U777" {
		t.Fatalf("code callback = %+v", info)
	}

	if _, err := ParseOAuthCallback("https://kr.m.lgaccount.com/login/iabClose?state=x"); err == nil {
		t.Fatal("callback without credentials did not fail")
	}
}

type captureRoundTripper struct {
	req *http.Request
}

func (c *captureRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	c.req = req
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       http.NoBody,
		Request:    req,
	}, nil
}

func TestSigningRoundTripper(t *testing.T) {
	fixed := time.Date(2023, time.May, 1, 12, 13, 14, 0, time.UTC)
	capture := &captureRoundTripper{}
	rt := &signingRoundTripper{base: capture, now: func() time.Time { return fixed }}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", "rt")
	body := form.Encode()
	req, err := http.NewRequest(http.MethodPost,
		"https://us.lgeapi.com/oauth/1.0/oauth2/token", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	signed := capture.req
	timestamp := "Mon, 01 May 2023 12:13:14 +0000"
	if got := signed.Header.Get("x-lge-oauth-date"); got != timestamp {
		t.Errorf("x-lge-oauth-date = %q, want %q", got, timestamp)
	}
	if got := signed.Header.Get("x-lge-appkey"); got != clientID {
		t.Errorf("x-lge-appkey = %q, want %q", got, clientID)
	}
	wantSig := signature("/oauth/1.0/oauth2/token?"+body+"\n"+timestamp, oauthSecretKey)
	if got := signed.Header.Get("x-lge-oauth-signature"); got != wantSig {
		t.Errorf("x-lge-oauth-signature = %q, want %q", got, wantSig)
	}
}

func TestRefreshForced(t *testing.T) {
	var tokenReqs, profileReqs int
	var signedTokenReq bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case v2AuthPath:
			tokenReqs++
			signedTokenReq = r.Header.Get("x-lge-oauth-signature") != ""
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"new-at","token_type":"Bearer"}`))
		case v2UserInfoPath:
			profileReqs++
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":1,"account":{"userNo":"U9"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tr := NewTransport("", "", srv.Client())
	fixed := time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }
	gateway := &Gateway{transport: tr}

	auth := NewAuth(gateway, "rt", srv.URL)
	fresh, err := auth.Refresh(context.Background(), true)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if tokenReqs != 1 || profileReqs != 1 {
		t.Fatalf("requests = %d token, %d profile, want 1 each", tokenReqs, profileReqs)
	}
	if !signedTokenReq {
		t.Error("token request carried no oauth signature")
	}
	if fresh.AccessToken != "new-at" {
		t.Errorf("access token = %q", fresh.AccessToken)
	}
	if fresh.UserNumber != "U9" {
		t.Errorf("user number = %q", fresh.UserNumber)
	}
	if fresh.TokenValidity != DefaultTokenValidity {
		t.Errorf("validity = %v, want default", fresh.TokenValidity)
	}
	if !fresh.createdOn.Equal(fixed) {
		t.Errorf("createdOn = %v, want %v", fresh.createdOn, fixed)
	}
}

func TestRefreshSkipsValidToken(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tr := NewTransport("", "", srv.Client())
	fixed := time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }
	gateway := &Gateway{transport: tr}

	auth := NewAuth(gateway, "rt", srv.URL)
	auth.AccessToken = "still-good"
	auth.UserNumber = "U9"
	auth.createdOn = fixed

	same, err := auth.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if requests != 0 {
		t.Fatalf("%d requests issued for a valid token", requests)
	}
	if same != auth {
		t.Error("valid token was not reused")
	}
}

func TestAuthDumpLoad(t *testing.T) {
	tr := NewTransport("", "", nil)
	gateway := &Gateway{transport: tr}
	auth := NewAuth(gateway, "rt", "https://us.lgeapi.com/")
	auth.AccessToken = "at"
	auth.UserNumber = "U9"

	restored := LoadAuth(gateway, auth.Dump())
	if restored.RefreshToken != "rt" {
		t.Errorf("refresh token = %q", restored.RefreshToken)
	}
	if restored.OAuthURL != "https://us.lgeapi.com/" {
		t.Errorf("oauth url = %q", restored.OAuthURL)
	}
	if restored.UserNumber != "U9" {
		t.Errorf("user number = %q", restored.UserNumber)
	}
	// The dumped access token is stale on purpose.
	if restored.AccessToken != "" {
		t.Errorf("access token restored as %q, want empty", restored.AccessToken)
	}
}
