package thinq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// minTimeBetweenUpdates is the minimum interval between two dashboard
// refreshes; callers asking more often get the cached listing.
const minTimeBetweenUpdates = 25 * time.Second

// Client is the high-level API handle: it owns the auth/session pair, the
// device listing and the per-URL model descriptor cache.
type Client struct {
	transport *Transport
	log       *logrus.Entry

	// refreshMu serializes token refreshes across all pollers sharing this
	// client. It is never held together with mu.
	refreshMu sync.Mutex

	mu               sync.Mutex
	auth             *Auth
	session          *Session
	devices          []map[string]any
	lastDeviceUpdate time.Time
	closers          []func()

	modelURLInfo   map[string]map[string]any
	commonLangPack map[string]string
}

func newClient(auth *Auth) *Client {
	return &Client{
		transport:        auth.Gateway().Transport(),
		log:              logrus.WithField("component", "thinq.client"),
		auth:             auth,
		lastDeviceUpdate: auth.Gateway().Transport().now(),
		modelURLInfo:     map[string]map[string]any{},
	}
}

// NewClientFromLogin builds a client from a username and password via the
// EMP login flow.
func NewClientFromLogin(ctx context.Context, username, password, country, language string, hc *http.Client) (*Client, error) {
	gateway, err := DiscoverGateway(ctx, NewTransport(country, language, hc))
	if err != nil {
		return nil, err
	}
	auth, err := AuthFromUserLogin(ctx, gateway, username, password)
	if err != nil {
		return nil, err
	}
	c := newClient(auth)
	c.session = auth.StartSession()
	if err := c.loadDevices(ctx, true); err != nil {
		return nil, err
	}
	return c, nil
}

// NewClientFromToken builds a client from a persisted refresh token.
func NewClientFromToken(ctx context.Context, refreshToken, oauthURL, country, language string, hc *http.Client) (*Client, error) {
	gateway, err := DiscoverGateway(ctx, NewTransport(country, language, hc))
	if err != nil {
		return nil, err
	}
	c := newClient(NewAuth(gateway, refreshToken, oauthURL))
	if err := c.Refresh(ctx, false); err != nil {
		return nil, err
	}
	return c, nil
}

// Auth returns the current authentication state.
func (c *Client) Auth() *Auth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

// Session returns the active session, starting one when needed.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked()
}

func (c *Client) sessionLocked() *Session {
	if c.session == nil {
		c.session = c.auth.StartSession()
	}
	return c.session
}

// Country returns the client's country code.
func (c *Client) Country() string { return c.transport.Country() }

// Language returns the client's language code.
func (c *Client) Language() string { return c.transport.Language() }

// HasDevices reports whether any device listing has been loaded.
func (c *Client) HasDevices() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.devices) > 0
}

// Devices returns the cached device listing.
func (c *Client) Devices() []*DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*DeviceInfo, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, NewDeviceInfo(d))
	}
	return out
}

// GetDevice looks up a device by ID in the cached listing, nil when absent.
func (c *Client) GetDevice(deviceID string) *DeviceInfo {
	for _, device := range c.Devices() {
		if device.ID() == deviceID {
			return device
		}
	}
	return nil
}

func (c *Client) loadDevices(ctx context.Context, force bool) error {
	if c.session == nil || (c.devices != nil && !force) {
		return nil
	}
	devices, err := c.session.GetDevices(ctx)
	if err != nil {
		return err
	}
	c.devices = devices
	return nil
}

// RefreshDevices reloads the dashboard listing, rate limited to one call per
// 25 seconds. Calls inside the window return the cached listing.
func (c *Client) RefreshDevices(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	callTime := c.transport.now()
	if callTime.Sub(c.lastDeviceUpdate) <= minTimeBetweenUpdates {
		return nil
	}
	if err := c.loadDevices(ctx, true); err != nil {
		return err
	}
	c.lastDeviceUpdate = callTime
	return nil
}

// Refresh re-authenticates and reloads the device listing. With
// refreshGateway the regional hosts are rediscovered first.
func (c *Client) Refresh(ctx context.Context, refreshGateway bool) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refresh(ctx, refreshGateway)
}

func (c *Client) refresh(ctx context.Context, refreshGateway bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if refreshGateway {
		gateway, err := DiscoverGateway(ctx, c.transport)
		if err != nil {
			return err
		}
		c.auth.RefreshGateway(gateway)
	}
	auth, err := c.auth.Refresh(ctx, true)
	if err != nil {
		return err
	}
	c.auth = auth
	c.session = auth.StartSession()
	return c.loadDevices(ctx, false)
}

// RefreshAuth refreshes the access token when it is close to expiry. The
// whole exchange runs under refreshMu, so concurrent pollers sharing one
// account issue a single token request; late arrivals find the token fresh
// and reuse it.
func (c *Client) RefreshAuth(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return c.refresh(ctx, false)
	}
	auth, err := session.RefreshAuth(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.auth = auth
	c.mu.Unlock()
	return nil
}

// OnClose registers a cleanup hook run when the client is closed.
func (c *Client) OnClose(f func()) {
	c.mu.Lock()
	c.closers = append(c.closers, f)
	c.mu.Unlock()
}

// Close releases the client: the session is dropped and the registered
// cleanup hooks run. The auth state stays valid for Dump.
func (c *Client) Close() {
	c.mu.Lock()
	c.session = nil
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()
	for _, f := range closers {
		f()
	}
}

func (c *Client) loadJSONInfo(ctx context.Context, infoURL string) (map[string]any, error) {
	if infoURL == "" {
		return map[string]any{}, nil
	}
	content, err := c.transport.GetBytes(ctx, infoURL)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(content, &out); err != nil {
		return nil, fmt.Errorf("thinq: decoding %s: %w", infoURL, err)
	}
	return out, nil
}

// ModelURLInfo fetches and caches a model descriptor document by URL.
func (c *Client) ModelURLInfo(ctx context.Context, url string, device *DeviceInfo) (map[string]any, error) {
	if url == "" {
		return map[string]any{}, nil
	}
	c.mu.Lock()
	cached, ok := c.modelURLInfo[url]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	if device != nil {
		c.log.WithFields(logrus.Fields{
			"device": device.Name(),
			"model":  device.ModelName(),
			"url":    url,
		}).Debug("loading model info")
	}
	info, err := c.loadJSONInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.modelURLInfo[url] = info
	c.mu.Unlock()
	return info, nil
}

// CommonLangPack fetches and caches the dashboard's common language pack.
func (c *Client) CommonLangPack(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	if c.devices == nil || c.session == nil {
		c.mu.Unlock()
		return map[string]string{}, nil
	}
	if c.commonLangPack != nil {
		pack := c.commonLangPack
		c.mu.Unlock()
		return pack, nil
	}
	url := c.session.CommonLangPackURL()
	c.mu.Unlock()

	doc, err := c.loadJSONInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	pack := langPack(doc["pack"])

	c.mu.Lock()
	c.commonLangPack = pack
	c.mu.Unlock()
	return pack, nil
}

// LangPackFromURL fetches a model or product language pack document.
func (c *Client) LangPackFromURL(ctx context.Context, url string) (map[string]string, error) {
	doc, err := c.loadJSONInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	return langPack(doc["pack"]), nil
}

func langPack(raw any) map[string]string {
	pack, ok := raw.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(pack))
	for k, v := range pack {
		out[k] = stringify(v)
	}
	return out
}

// Dump serializes the client state: auth, gateway and locale. Model info
// caches are intentionally not persisted.
func (c *Client) Dump() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]any{
		"country":  c.Country(),
		"language": c.Language(),
	}
	if c.auth != nil {
		out["auth"] = c.auth.Dump()
		out["gateway"] = c.auth.Gateway().Dump()
	}
	return out
}

// Load rebuilds a client from a Dump blob.
func Load(state map[string]any, hc *http.Client) (*Client, error) {
	gwData, ok := state["gateway"].(map[string]any)
	if !ok {
		return nil, errors.New("thinq: state has no gateway")
	}
	country := stringify(gwData["country"])
	language := stringify(gwData["language"])
	if v := stringify(state["country"]); v != "" {
		country = v
	}
	if v := stringify(state["language"]); v != "" {
		language = v
	}
	gateway := LoadGateway(gwData, NewTransport(country, language, hc))

	authData, ok := state["auth"].(map[string]any)
	if !ok {
		return nil, errors.New("thinq: state has no auth")
	}
	return newClient(LoadAuth(gateway, authData)), nil
}
