// Package thinq implements the low-level LG SmartThinQ cloud API: gateway
// discovery, authentication, sessions and the two request envelopes used by
// the thinq1 and thinq2 backends.
package thinq

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCountry is the country code used when none is configured.
	DefaultCountry = "US"
	// DefaultLanguage is the language code used when none is configured.
	DefaultLanguage = "en-US"
	// DefaultTimeout bounds every API request.
	DefaultTimeout = 15 * time.Second
)

// thinq2 application identity.
const (
	v2APIKey   = "VGhpblEyLjAgU0VSVklDRQ=="
	v2ClientID = "65260af7e8e6547b51fdccf930097c51eb9885a508d3fddfa9ee6cdec22ae1bd"
	v2SvcPhase = "OP"
	v2AppLevel = "PRD"
	v2AppOS    = "LINUX"
	v2AppType  = "NUTS"
	v2AppVer   = "3.0.1700"
)

const (
	v2GatewayURL     = "https://route.lgthinq.com:46030/v1/service/application/gateway-uri"
	v2AuthPath       = "/oauth/1.0/oauth2/token"
	v2UserInfoPath   = "/users/profile"
	v2EmpSessionURL  = "https://emp-oauth.lgecloud.com/emp/oauth2/token/empsession"
	oauthRedirectURI = "https://kr.m.lgaccount.com/login/iabClose"
	applicationKey   = "6V1V8H2BN5P9ZQGOI5DAQ92YZBDO3EK9"
	oauthClientKey   = "LGAO722A02"
)

// Legacy (thinq1) identity.
const (
	dataRoot       = "lgedmRoot"
	gatewayV1URL   = "https://kic.lgthinq.com:46030/api/common/gatewayUriList"
	securityKey    = "nuts_securitykey"
	svcCode        = "SVC202"
	clientID       = "LGAO221A02"
	oauthSecretKey = "c053c2a6ddeb7ad97cb0eed0dcb31cf8"
)

// signatureTimeFormat is the RFC1123-style timestamp the OAuth backend signs.
const signatureTimeFormat = "Mon, 02 Jan 2006 15:04:05 +0000"

// genUUID returns a fresh message / work ID.
func genUUID() string {
	return uuid.NewString()
}

// signature returns the base64 HMAC-SHA1 digest used in OAuth request
// signatures. Both message and secret are signed as their UTF-8 bytes.
func signature(message, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Transport performs the raw HTTP calls shared by gateway discovery, auth and
// sessions. A zero country/language falls back to the defaults.
type Transport struct {
	httpClient *http.Client
	country    string
	language   string
	log        *logrus.Entry

	// now is stubbed in tests to pin signature timestamps.
	now func() time.Time
}

// NewTransport creates a Transport for the given locale. A nil client uses a
// default one with DefaultTimeout.
func NewTransport(country, language string, client *http.Client) *Transport {
	if country == "" {
		country = DefaultCountry
	}
	if language == "" {
		language = DefaultLanguage
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Transport{
		httpClient: client,
		country:    country,
		language:   language,
		log:        logrus.WithField("component", "thinq"),
		now:        time.Now,
	}
}

// Country returns the configured country code.
func (t *Transport) Country() string { return t.country }

// Language returns the configured language code.
func (t *Transport) Language() string { return t.language }

func (t *Transport) timestamp() string {
	return t.now().UTC().Format(signatureTimeFormat)
}

// thinq2Headers assembles the header set expected by the API2 servers.
func (t *Transport) thinq2Headers(accessToken, userNumber string, extra map[string]string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json;charset=UTF-8")
	h.Set("x-api-key", v2APIKey)
	h.Set("x-client-id", v2ClientID)
	h.Set("x-country-code", t.country)
	h.Set("x-language-code", t.language)
	h.Set("x-message-id", genUUID())
	h.Set("x-service-code", svcCode)
	h.Set("x-service-phase", v2SvcPhase)
	h.Set("x-thinq-app-level", v2AppLevel)
	h.Set("x-thinq-app-os", v2AppOS)
	h.Set("x-thinq-app-type", v2AppType)
	h.Set("x-thinq-app-ver", v2AppVer)
	h.Set("x-thinq-security-key", securityKey)
	if accessToken != "" {
		h.Set("x-emp-token", accessToken)
	}
	if userNumber != "" {
		h.Set("x-user-no", userNumber)
	}
	for k, v := range extra {
		h.Set(k, v)
	}
	return h
}

// decodeResponse parses a response body as JSON, retrying once as XML before
// giving up with an InvalidResponseError. Some legacy endpoints answer with
// an XML rendering of the same document.
func decodeResponse(body []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(body, &out); err == nil {
		return out, nil
	}
	if out, err := xmlToMap(body); err == nil {
		return out, nil
	}
	return nil, &InvalidResponseError{Body: string(body)}
}

// xmlToMap converts a flat XML document into nested maps, mirroring the JSON
// shape the same endpoints produce. Repeated sibling elements collapse into
// the last value, which matches how the legacy envelopes use XML.
func xmlToMap(body []byte) (map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	root, err := xmlElement(dec)
	if err != nil {
		return nil, err
	}
	name, value := root.name, root.value
	return map[string]any{name: value}, nil
}

type xmlNode struct {
	name  string
	value any
}

func xmlElement(dec *xml.Decoder) (*xmlNode, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			value, err := xmlValue(dec, start)
			if err != nil {
				return nil, err
			}
			return &xmlNode{name: start.Name.Local, value: value}, nil
		}
	}
}

func xmlValue(dec *xml.Decoder, start xml.StartElement) (any, error) {
	children := map[string]any{}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := xmlValue(dec, t)
			if err != nil {
				return nil, err
			}
			children[t.Name.Local] = v
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) > 0 {
				return children, nil
			}
			return strings.TrimSpace(text.String()), nil
		}
	}
}

// do performs a request and decodes the body.
func (t *Transport) do(req *http.Request) (map[string]any, int, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("thinq: request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("thinq: reading response: %w", err)
	}
	out, err := decodeResponse(body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return out, resp.StatusCode, nil
}

// manageResult validates a decoded envelope and unwraps its payload.
// apiV2 selects the {resultCode,result} envelope; the legacy envelope is
// {lgedmRoot:{returnCd,returnMsg,...}}.
func manageResult(result map[string]any, apiV2 bool) (map[string]any, error) {
	if apiV2 {
		if rawCode, ok := result["resultCode"]; ok {
			code := normalizeCode(rawCode)
			if code != "0000" {
				message := stringify(result["result"])
				if message == "" {
					message = "error"
				}
				return nil, newAPIError(code, message)
			}
		}
		return result, nil
	}

	rawMsg, ok := result[dataRoot]
	if !ok {
		return nil, &APIError{Code: "-1", Message: stringify(result)}
	}
	msg, ok := rawMsg.(map[string]any)
	if !ok || len(msg) == 0 {
		return nil, &APIError{Code: "-1", Message: stringify(result)}
	}
	if rawCode, ok := msg["returnCd"]; ok {
		code := normalizeCode(rawCode)
		if code != "0000" {
			return nil, newAPIError(code, stringify(msg["returnMsg"]))
		}
	}
	return msg, nil
}

// normalizeCode renders a result code as a string. The server reports most
// codes as strings but 9000 arrives as a bare number.
func normalizeCode(code any) string {
	switch v := code.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// GetBytes fetches a raw document, used for model info and language packs.
func (t *Transport) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("thinq: building request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thinq: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ThinQ2Get makes a GET in the format used by the API2 servers and returns
// the unwrapped "result" payload.
func (t *Transport) ThinQ2Get(ctx context.Context, rawURL, accessToken, userNumber string, extraHeaders map[string]string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("thinq: building request: %w", err)
	}
	req.Header = t.thinq2Headers(accessToken, userNumber, extraHeaders)

	t.log.WithField("url", rawURL).Debug("thinq2 get")
	out, _, err := t.do(req)
	if err != nil {
		apiErrorTotal.Inc()
		return nil, err
	}
	if _, ok := out["resultCode"]; !ok {
		apiErrorTotal.Inc()
		return nil, &APIError{Code: "-1", Message: stringify(out)}
	}
	res, err := manageResult(out, true)
	if err != nil {
		apiErrorTotal.Inc()
		return nil, err
	}
	result, _ := res["result"].(map[string]any)
	return result, nil
}

// LGEDMPost makes a POST in the format used by the API servers. With apiV2
// false the payload is wrapped in the lgedmRoot envelope.
func (t *Transport) LGEDMPost(ctx context.Context, rawURL string, data map[string]any, accessToken, userNumber string, apiV2 bool) (map[string]any, error) {
	payload := any(data)
	if !apiV2 {
		payload = map[string]any{dataRoot: data}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("thinq: encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("thinq: building request: %w", err)
	}
	req.Header = t.thinq2Headers(accessToken, userNumber, nil)

	t.log.WithField("url", rawURL).Debug("lgedm post")
	out, _, err := t.do(req)
	if err != nil {
		apiErrorTotal.Inc()
		return nil, err
	}
	res, err := manageResult(out, apiV2)
	if err != nil {
		apiErrorTotal.Inc()
		return nil, err
	}
	return res, nil
}

// postForm sends a www-form-urlencoded POST and decodes the JSON response.
func (t *Transport) postForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (map[string]any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("thinq: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return t.do(req)
}

// joinURL resolves path against a base URL the way a browser would.
func joinURL(base, path string) string {
	b, err := url.Parse(base)
	if err != nil {
		return base + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return base + path
	}
	return b.ResolveReference(ref).String()
}

// addEndSlash terminates a URL with a slash so joins keep the last segment.
func addEndSlash(u string) string {
	if !strings.HasSuffix(u, "/") {
		return u + "/"
	}
	return u
}
