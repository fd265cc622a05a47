package thinq

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Session is a request handle bound to one Auth. It memoizes the common
// language-pack URL announced by the dashboard.
type Session struct {
	auth              *Auth
	commonLangPackURL string
}

// Auth returns the authentication behind this session.
func (s *Session) Auth() *Auth { return s.auth }

// CommonLangPackURL returns the dashboard's common language pack URL, empty
// until the first GetDevices call.
func (s *Session) CommonLangPackURL() string { return s.commonLangPackURL }

// RefreshAuth refreshes the session's authentication in place.
func (s *Session) RefreshAuth(ctx context.Context) (*Auth, error) {
	auth, err := s.auth.Refresh(ctx, false)
	if err != nil {
		return nil, err
	}
	s.auth = auth
	return auth, nil
}

// Post makes a POST request to the APIv1 server.
func (s *Session) Post(ctx context.Context, path string, data map[string]any) (map[string]any, error) {
	gw := s.auth.Gateway()
	return gw.Transport().LGEDMPost(ctx, joinURL(gw.ThinQ1URI, path), data,
		s.auth.AccessToken, s.auth.UserNumber, false)
}

// Post2 makes a POST request to the APIv2 server.
func (s *Session) Post2(ctx context.Context, path string, data map[string]any) (map[string]any, error) {
	gw := s.auth.Gateway()
	return gw.Transport().LGEDMPost(ctx, joinURL(gw.ThinQ2URI, path), data,
		s.auth.AccessToken, s.auth.UserNumber, true)
}

// Get makes a GET request to the APIv1 server.
func (s *Session) Get(ctx context.Context, path string) (map[string]any, error) {
	gw := s.auth.Gateway()
	return gw.Transport().ThinQ2Get(ctx, joinURL(gw.ThinQ1URI, path),
		s.auth.AccessToken, s.auth.UserNumber, nil)
}

// Get2 makes a GET request to the APIv2 server.
func (s *Session) Get2(ctx context.Context, path string) (map[string]any, error) {
	gw := s.auth.Gateway()
	return gw.Transport().ThinQ2Get(ctx, joinURL(gw.ThinQ2URI, path),
		s.auth.AccessToken, s.auth.UserNumber, nil)
}

// GetDevices lists the devices on the account's dashboard.
func (s *Session) GetDevices(ctx context.Context) ([]map[string]any, error) {
	dashboard, err := s.Get2(ctx, "service/application/dashboard")
	if err != nil {
		return nil, err
	}
	if s.commonLangPackURL == "" {
		s.commonLangPackURL = stringify(dashboard["langPackCommonUri"])
	}
	return asList(dashboard["item"]), nil
}

// asList normalizes a payload field that is a single object for one element
// and an array otherwise.
func asList(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{t}
	default:
		return nil
	}
}

// MonitorStart begins monitoring a device and returns the work ID used to
// poll results.
func (s *Session) MonitorStart(ctx context.Context, deviceID string) (string, error) {
	res, err := s.Post(ctx, "rti/rtiMon", map[string]any{
		"cmd":      "Mon",
		"cmdOpt":   "Start",
		"deviceId": deviceID,
		"workId":   genUUID(),
	})
	if err != nil {
		return "", err
	}
	return stringify(res["workId"]), nil
}

// MonitorPoll retrieves one monitoring result. A nil payload with a nil
// error means the session is still warming up. A MonitorError means the
// session died and should be restarted.
func (s *Session) MonitorPoll(ctx context.Context, deviceID, workID string) ([]byte, error) {
	res, err := s.Post(ctx, "rti/rtiResult", map[string]any{
		"workList": []map[string]any{{"deviceId": deviceID, "workId": workID}},
	})
	if err != nil {
		return nil, err
	}
	work, ok := res["workList"].(map[string]any)
	if !ok {
		return nil, nil
	}

	// During warm-up returnCode is missing entirely.
	rawCode, ok := work["returnCode"]
	if !ok {
		return nil, nil
	}
	if code := normalizeCode(rawCode); code != "0000" {
		return nil, &MonitorError{DeviceID: deviceID, Code: code}
	}

	raw, ok := work["returnData"]
	if !ok {
		return nil, nil
	}
	payload, err := base64.StdEncoding.DecodeString(stringify(raw))
	if err != nil {
		return nil, fmt.Errorf("thinq: decoding monitor payload: %w", err)
	}
	return payload, nil
}

// MonitorStop ends a monitoring session.
func (s *Session) MonitorStop(ctx context.Context, deviceID, workID string) error {
	_, err := s.Post(ctx, "rti/rtiMon", map[string]any{
		"cmd":      "Mon",
		"cmdOpt":   "Stop",
		"deviceId": deviceID,
		"workId":   workID,
	})
	return err
}

// SetDeviceControls sends a thinq1 control command. raw, when non-nil, is
// used as the payload verbatim; otherwise a {cmd,cmdOpt,value,data} payload
// is assembled.
func (s *Session) SetDeviceControls(ctx context.Context, deviceID string, raw map[string]any, ctrlKey, command string, value, data any) (map[string]any, error) {
	payload := raw
	if payload == nil {
		if command == "" {
			return nil, nil
		}
		payload = map[string]any{
			"cmd":    ctrlKey,
			"cmdOpt": command,
			"value":  orEmpty(value),
			"data":   orEmpty(data),
		}
	}
	payload["deviceId"] = deviceID
	payload["workId"] = genUUID()
	res, err := s.Post(ctx, "rti/rtiControl", payload)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SetDeviceV2Controls sends a thinq2 control command to the device's control
// endpoint. raw, when non-nil, is used as the payload verbatim. ctrlPath
// overrides the default control-sync endpoint.
func (s *Session) SetDeviceV2Controls(ctx context.Context, deviceID, ctrlPath string, raw map[string]any, ctrlKey, command string, key string, value any) (map[string]any, error) {
	if ctrlPath == "" {
		ctrlPath = "control-sync"
	}
	payload := raw
	if payload == nil {
		if command == "" {
			return nil, nil
		}
		payload = map[string]any{
			"ctrlKey":   ctrlKey,
			"command":   command,
			"dataKey":   key,
			"dataValue": orEmpty(value),
		}
	}
	return s.Post2(ctx, fmt.Sprintf("service/devices/%s/%s", deviceID, ctrlPath), payload)
}

// GetDeviceConfig reads a thinq1 configuration or control value. category is
// "Config" or "Control" depending on the key.
func (s *Session) GetDeviceConfig(ctx context.Context, deviceID, key, category string) (string, error) {
	if category == "" {
		category = "Config"
	}
	res, err := s.Post(ctx, "rti/rtiControl", map[string]any{
		"cmd":      category,
		"cmdOpt":   "Get",
		"value":    key,
		"deviceId": deviceID,
		"workId":   genUUID(),
		"data":     "",
	})
	if err != nil {
		return "", err
	}
	return stringify(res["returnData"]), nil
}

// GetDeviceV2Settings reads a thinq2 device's settings document.
func (s *Session) GetDeviceV2Settings(ctx context.Context, deviceID string) (map[string]any, error) {
	return s.Get2(ctx, "service/devices/"+deviceID)
}

// DeletePermission releases the control permission acquired by a thinq1
// control command.
func (s *Session) DeletePermission(ctx context.Context, deviceID string) error {
	_, err := s.Post(ctx, "rti/delControlPermission", map[string]any{"deviceId": deviceID})
	return err
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
