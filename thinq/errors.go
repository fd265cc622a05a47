package thinq

import (
	"errors"
	"fmt"
)

// Sentinel errors for the well-known API result codes.
var (
	// ErrNotLoggedIn means the session is not valid or has expired.
	ErrNotLoggedIn = errors.New("thinq: not logged in")
	// ErrNotConnected means the service cannot contact the device.
	ErrNotConnected = errors.New("thinq: device not connected")
	// ErrFailedRequest typically indicates an unsupported control on a device.
	ErrFailedRequest = errors.New("thinq: request failed")
	// ErrInvalidRequest means the server rejected the request as invalid.
	ErrInvalidRequest = errors.New("thinq: invalid request")
	// ErrInvalidCredential means the server rejected the credentials.
	ErrInvalidCredential = errors.New("thinq: invalid credential")
	// ErrDeviceNotFound means the device ID is not valid.
	ErrDeviceNotFound = errors.New("thinq: device not found")
	// ErrToken means an authentication token was rejected.
	ErrToken = errors.New("thinq: token rejected")
)

// apiErrors maps API result codes to sentinel errors. Code 9000 arrives as a
// JSON integer rather than a string; responses are normalized before lookup.
var apiErrors = map[string]error{
	"0101": ErrDeviceNotFound,
	"0102": ErrNotLoggedIn,
	"0106": ErrNotConnected,
	"0100": ErrFailedRequest,
	"0110": ErrInvalidCredential,
	"9999": ErrNotConnected,
	"9000": ErrInvalidRequest,
}

// APIError is an error reported by the API with a code the client does not
// map to a more specific error.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("thinq: api error %s: %s", e.Code, e.Message)
}

// newAPIError returns the typed error for a result code, falling back to a
// generic APIError.
func newAPIError(code, message string) error {
	if err, ok := apiErrors[code]; ok {
		return err
	}
	return &APIError{Code: code, Message: message}
}

// InvalidResponseError reports a response body that could be parsed neither
// as JSON nor as XML.
type InvalidResponseError struct {
	Body string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("thinq: invalid response: %.200s", e.Body)
}

// AuthenticationError reports a failure in the user login flow.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "thinq: authentication error"
	}
	return "thinq: authentication error: " + e.Message
}

// MonitorError means polling a monitoring session failed, usually because the
// session expired and must be restarted.
type MonitorError struct {
	DeviceID string
	Code     string
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("thinq: monitor error for device %s (code %s)", e.DeviceID, e.Code)
}

// MonitorRefreshError means a device status refresh failed transiently.
type MonitorRefreshError struct {
	DeviceID string
	Message  string
}

func (e *MonitorRefreshError) Error() string {
	return fmt.Sprintf("thinq: refresh failed for device %s: %s", e.DeviceID, e.Message)
}

// MonitorUnavailableError means a device status refresh failed because the
// cloud connection is unavailable.
type MonitorUnavailableError struct {
	DeviceID string
	Message  string
}

func (e *MonitorUnavailableError) Error() string {
	return fmt.Sprintf("thinq: monitor unavailable for device %s: %s", e.DeviceID, e.Message)
}

// InvalidDeviceStatusError reports a device command rejected because the
// current device status does not allow it.
type InvalidDeviceStatusError struct {
	Message string
}

func (e *InvalidDeviceStatusError) Error() string {
	return "thinq: invalid device status: " + e.Message
}
