package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ollo69/wideq-go/thinq"
)

const (
	minTimeBetweenClientRefresh = 10 * time.Second
	maxRetries                  = 3
	maxUpdateFailAllowed        = 10
	maxInvalidCredentialErr     = 3
	sleepBetweenRetries         = 2 * time.Second
)

// guard coordinates reconnection across every monitor sharing one client, so
// a cloud outage triggers a single reconnect instead of one per device.
type guard struct {
	mu             sync.Mutex
	connected      bool
	criticalError  bool
	lastRefresh    time.Time
	notLoggedCount int
}

var (
	guardsMu sync.Mutex
	guards   = map[*thinq.Client]*guard{}
)

func guardFor(client *thinq.Client) *guard {
	guardsMu.Lock()
	defer guardsMu.Unlock()
	g, ok := guards[client]
	if !ok {
		g = &guard{connected: true}
		guards[client] = g
		if client != nil {
			// Evict on Client.Close so closed clients do not pin guards.
			client.OnClose(func() {
				guardsMu.Lock()
				delete(guards, client)
				guardsMu.Unlock()
			})
		}
	}
	return g
}

// Monitor keeps one device's status fresh. For thinq1 devices it owns the
// server-side monitoring session and restarts it when it expires; for thinq2
// devices it reads the dashboard snapshot.
type Monitor struct {
	client   *thinq.Client
	guard    *guard
	log      *logrus.Entry
	deviceID string
	platform thinq.PlatformType

	workID           string
	monitorStarted   time.Time
	disconnected     bool
	hasError         bool
	invalidCredCount int
}

// NewMonitor creates a monitor for one device.
func NewMonitor(client *thinq.Client, info *thinq.DeviceInfo) *Monitor {
	return &Monitor{
		client:       client,
		guard:        guardFor(client),
		log:          logrus.WithField("device", info.Name()),
		deviceID:     info.ID(),
		platform:     info.Platform(),
		disconnected: true,
	}
}

// failure marks this refresh failed and picks the error class: a cloud-wide
// outage (too many consecutive auth failures across the shared client) is
// reported as MonitorUnavailableError, anything else as MonitorRefreshError.
func (m *Monitor) failure(msg string, notLogged bool, cause error) error {
	m.guard.mu.Lock()
	if notLogged && m.guard.connected {
		m.guard.connected = false
		m.hasError = true
	}
	if !m.hasError {
		m.hasError = true
		m.log.WithError(cause).Warning(msg)
	} else {
		m.log.WithError(cause).Debug(msg)
	}
	if !m.guard.criticalError && m.guard.notLoggedCount >= maxUpdateFailAllowed {
		m.guard.criticalError = true
		m.log.WithError(cause).Error(msg)
	}
	critical := m.guard.criticalError
	m.guard.mu.Unlock()

	if critical {
		return &thinq.MonitorUnavailableError{DeviceID: m.deviceID, Message: msg}
	}
	return &thinq.MonitorRefreshError{DeviceID: m.deviceID, Message: msg}
}

func (m *Monitor) refreshAuth(ctx context.Context) (bool, error) {
	m.guard.mu.Lock()
	connected := m.guard.connected
	m.guard.mu.Unlock()
	if connected {
		if err := m.client.RefreshAuth(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	m.disconnected = true
	return m.refreshClient(ctx)
}

// refreshClient reconnects the shared client, rate limited so a fleet of
// monitors does not stampede the auth endpoint.
func (m *Monitor) refreshClient(ctx context.Context) (bool, error) {
	m.guard.mu.Lock()
	if m.guard.connected {
		m.guard.mu.Unlock()
		return true, nil
	}
	callTime := time.Now()
	if callTime.Sub(m.guard.lastRefresh) <= minTimeBetweenClientRefresh {
		m.guard.mu.Unlock()
		return false, nil
	}
	m.guard.lastRefresh = callTime
	refreshGateway := false
	if m.guard.notLoggedCount >= 30 {
		m.guard.notLoggedCount = 0
		refreshGateway = true
	}
	m.guard.notLoggedCount++
	m.guard.mu.Unlock()

	m.log.Debug("client not connected, trying to reconnect")
	if err := m.client.Refresh(ctx, refreshGateway); err != nil {
		return false, err
	}
	m.log.Warning("client successfully reconnected")

	m.guard.mu.Lock()
	m.guard.connected = true
	m.guard.criticalError = false
	m.guard.notLoggedCount = 0
	m.guard.mu.Unlock()
	return true, nil
}

func (m *Monitor) restartMonitor(ctx context.Context) (bool, error) {
	ok, err := m.refreshAuth(ctx)
	if err != nil || !ok {
		return ok, err
	}
	if !m.disconnected {
		return true, nil
	}
	if err := m.Stop(ctx); err != nil {
		return false, err
	}
	if err := m.Start(ctx); err != nil {
		return false, err
	}
	m.disconnected = false
	return true, nil
}

// Start opens the thinq1 monitoring session. thinq2 devices need none.
func (m *Monitor) Start(ctx context.Context) error {
	if m.platform != thinq.PlatformThinQ1 {
		return nil
	}
	m.workID = ""
	workID, err := m.client.Session().MonitorStart(ctx, m.deviceID)
	if err != nil {
		return err
	}
	m.workID = workID
	m.monitorStarted = time.Now()
	return nil
}

// Stop closes the thinq1 monitoring session.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.workID == "" {
		return nil
	}
	workID := m.workID
	m.workID = ""
	return m.client.Session().MonitorStop(ctx, m.deviceID, workID)
}

func (m *Monitor) pollV1(ctx context.Context) ([]byte, error) {
	if m.workID == "" {
		if err := m.Start(ctx); err != nil {
			return nil, err
		}
		if m.workID == "" {
			return nil, nil
		}
	}
	data, err := m.client.Session().MonitorPoll(ctx, m.deviceID, m.workID)
	var monErr *thinq.MonitorError
	if errors.As(err, &monErr) {
		// The session died; drop it so the next poll starts a fresh one.
		monitorRestartTotal.Inc()
		if stopErr := m.Stop(ctx); stopErr != nil {
			m.log.WithError(stopErr).Debug("stopping dead monitor session")
		}
		return nil, nil
	}
	return data, err
}

func (m *Monitor) pollV2(ctx context.Context, queryDevice bool) (map[string]any, error) {
	if m.platform != thinq.PlatformThinQ2 {
		return nil, nil
	}
	if queryDevice {
		result, err := m.client.Session().GetDeviceV2Settings(ctx, m.deviceID)
		if err != nil {
			return nil, err
		}
		snapshot, _ := result["snapshot"].(map[string]any)
		return snapshot, nil
	}
	if err := m.client.RefreshDevices(ctx); err != nil {
		return nil, err
	}
	if device := m.client.GetDevice(m.deviceID); device != nil {
		return device.Snapshot(), nil
	}
	return nil, nil
}

func (m *Monitor) poll(ctx context.Context, queryDevice bool) (any, error) {
	if m.platform == thinq.PlatformThinQ1 {
		data, err := m.pollV1(ctx)
		if err != nil || data == nil {
			return nil, err
		}
		return data, nil
	}
	snapshot, err := m.pollV2(ctx, queryDevice)
	if err != nil || snapshot == nil {
		return nil, err
	}
	return snapshot, nil
}

// classify converts a poll error into the monitor error taxonomy, mirroring
// what each failure implies about the shared client.
func (m *Monitor) classify(err error) error {
	switch {
	case errors.Is(err, thinq.ErrNotConnected):
		if m.hasError {
			m.log.Info("connection is now available")
			m.hasError = false
		}
		m.log.Debug("status not available, device not connected")
		m.disconnected = true
		return err

	case errors.Is(err, thinq.ErrDeviceNotFound):
		return m.failure("device id is invalid, status update failed", false, err)

	case errors.Is(err, thinq.ErrNotLoggedIn), errors.Is(err, thinq.ErrToken):
		return m.failure("connection to api failed, auth error", true, err)

	case errors.Is(err, thinq.ErrInvalidCredential):
		if m.invalidCredCount >= maxInvalidCredentialErr {
			return err
		}
		m.invalidCredCount++
		return m.failure("connection to api failed, invalid credential", true, err)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return m.failure("connection to api failed, timeout error", false, err)
	}

	var invalidResp *thinq.InvalidResponseError
	if errors.As(err, &invalidResp) {
		return m.failure("received invalid response, status update failed", false, err)
	}
	return m.failure("unexpected error while updating device status", true, err)
}

// Refresh polls the device until data arrives, restarting dead sessions and
// reconnecting the shared client as needed. A nil result without error means
// no data is available yet.
func (m *Monitor) Refresh(ctx context.Context, queryDevice bool) (any, error) {
	m.log.Debug("updating device status")
	invalidCredCount := m.invalidCredCount
	m.invalidCredCount = 0

	var state any
	for iteration := 0; iteration < maxRetries; iteration++ {
		if iteration > 0 {
			select {
			case <-ctx.Done():
				return nil, m.classify(ctx.Err())
			case <-time.After(sleepBetweenRetries):
			}
		}

		started, err := m.restartMonitor(ctx)
		if err == nil && started {
			state, err = m.poll(ctx, queryDevice)
		}
		if err != nil {
			if errors.Is(err, thinq.ErrInvalidCredential) {
				m.invalidCredCount = invalidCredCount
			}
			return nil, m.classify(err)
		}
		if !started {
			return nil, m.failure("connection not available, client refresh error", true, nil)
		}
		if state != nil {
			m.log.Debug("status updated")
			break
		}
		m.log.Debug("no status available yet")
	}

	if m.hasError {
		m.log.Info("connection is now available")
		m.hasError = false
	}
	return state, nil
}
