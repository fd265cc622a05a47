// Package device is the facade layer shared by every appliance family: it
// loads model descriptors, keeps a status monitor alive and dispatches
// controls through the right API generation.
package device

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ollo69/wideq-go/model"
	"github.com/ollo69/wideq-go/thinq"
)

// Key selects the state or command key by descriptor generation: the first
// entry applies to v1 models, the second to v2.
type Key [2]string

// K builds a Key used identically by both generations.
func K(key string) Key { return Key{key, key} }

// CmdKey is the (control, command, data key) triple addressing one control.
type CmdKey struct {
	Ctrl Key
	Cmd  Key
	Key  Key
}

// SetOptions carries the optional parts of a control call.
type SetOptions struct {
	Key      string
	Value    any
	Data     any
	CtrlPath string
}

// PollOptions tunes one family's polling behavior.
type PollOptions struct {
	// SnapshotKey extracts the family's section from a thinq2 snapshot.
	SnapshotKey string
	// AdditionalPollIntervalV1/V2 run the family's extra info query at a
	// slower rate; zero disables it.
	AdditionalPollIntervalV1 time.Duration
	AdditionalPollIntervalV2 time.Duration
	// QueryDevice polls thinq2 devices directly instead of reading the
	// shared dashboard.
	QueryDevice bool
}

// Base is the facade core embedded by every family device.
type Base struct {
	client *thinq.Client
	info   *thinq.DeviceInfo
	log    *logrus.Entry

	modelInfo   model.Info
	modelLang   map[string]string
	productLang map[string]string
	langLoaded  bool

	shouldPoll         bool
	mon                *Monitor
	controlSet         int
	lastAdditionalPoll time.Time

	featuresMu        sync.Mutex
	availableFeatures map[string]string
	unknownStates     map[string]struct{}

	// Family hooks. All optional.

	// PrepareCommand assembles a full control payload; when it returns
	// non-nil the payload is sent verbatim instead of the key/value form.
	PrepareCommand func(ctrlKey, command, key string, value any) map[string]any
	// PreUpdateV2 runs before a direct thinq2 device query.
	PreUpdateV2 func(ctx context.Context) error
	// DeviceInfoV1/V2 are the family's slow-rate additional polls.
	DeviceInfoV1 func(ctx context.Context) error
	DeviceInfoV2 func(ctx context.Context) error
	// FeatureTitle renames a feature for presentation; default is the
	// feature key itself.
	FeatureTitle func(featureName, itemKey string) string
}

// NewBase wraps a DeviceInfo with its operating client.
func NewBase(client *thinq.Client, info *thinq.DeviceInfo) *Base {
	return &Base{
		client:            client,
		info:              info,
		log:               logrus.WithField("device", info.Name()),
		shouldPoll:        info.Platform() == thinq.PlatformThinQ1,
		mon:               NewMonitor(client, info),
		availableFeatures: map[string]string{},
		unknownStates:     map[string]struct{}{},
	}
}

// Client returns the operating client.
func (b *Base) Client() *thinq.Client { return b.client }

// Info returns the dashboard record for this device.
func (b *Base) Info() *thinq.DeviceInfo { return b.info }

// UniqueID returns the device ID.
func (b *Base) UniqueID() string { return b.info.ID() }

// Name returns the device alias.
func (b *Base) Name() string { return b.info.Name() }

// Model returns the loaded model descriptor, nil before the first poll.
func (b *Base) Model() model.Info { return b.modelInfo }

// ShouldPoll reports whether the device uses thinq1 monitor polling.
func (b *Base) ShouldPoll() bool { return b.shouldPoll }

// Monitor returns the device's monitor.
func (b *Base) Monitor() *Monitor { return b.mon }

// AvailableFeatures returns the features seen so far with their titles.
func (b *Base) AvailableFeatures() map[string]string {
	b.featuresMu.Lock()
	defer b.featuresMu.Unlock()
	out := make(map[string]string, len(b.availableFeatures))
	for k, v := range b.availableFeatures {
		out[k] = v
	}
	return out
}

// InitDeviceInfo loads the model descriptor and language packs on first use.
func (b *Base) InitDeviceInfo(ctx context.Context) error {
	if b.modelInfo == nil {
		data, err := b.client.ModelURLInfo(ctx, b.info.ModelInfoURL(), b.info)
		if err != nil {
			return err
		}
		info, err := model.New(data)
		if err != nil {
			return fmt.Errorf("device %s: %w", b.info.ID(), err)
		}
		b.modelInfo = info
	}
	if !b.langLoaded {
		modelLang, err := b.client.LangPackFromURL(ctx, b.info.ModelLangPackURL())
		if err != nil {
			b.log.WithError(err).Debug("loading model language pack")
			modelLang = map[string]string{}
		}
		productLang, err := b.client.LangPackFromURL(ctx, b.info.ProductLangPackURL())
		if err != nil {
			b.log.WithError(err).Debug("loading product language pack")
			productLang = map[string]string{}
		}
		b.modelLang = modelLang
		b.productLang = productLang
		b.langLoaded = true
	}
	return nil
}

// StateKey selects the key for the loaded descriptor generation.
func (b *Base) StateKey(key Key) string {
	if b.modelInfo != nil && b.modelInfo.IsV2() {
		return key[1]
	}
	return key[0]
}

// CmdKeys resolves a command triple for the loaded generation.
func (b *Base) CmdKeys(ck CmdKey) (ctrl, cmd, key string) {
	return b.StateKey(ck.Ctrl), b.StateKey(ck.Cmd), b.StateKey(ck.Key)
}

func (b *Base) setControl(ctx context.Context, raw map[string]any, ctrlKey, command string, opt SetOptions) error {
	if b.shouldPoll {
		value := opt.Value
		data := opt.Data
		if opt.Key != "" && value != nil {
			value = map[string]any{opt.Key: value}
		}
		if opt.Key != "" && data != nil {
			data = map[string]any{opt.Key: data}
		}
		_, err := b.client.Session().SetDeviceControls(
			ctx, b.info.ID(), raw, ctrlKey, command, value, data)
		if err != nil {
			return err
		}
		b.controlSet = 2
		return nil
	}
	_, err := b.client.Session().SetDeviceV2Controls(
		ctx, b.info.ID(), opt.CtrlPath, raw, ctrlKey, command, opt.Key, opt.Value)
	return err
}

// Set sends a control command, letting the family's PrepareCommand hook
// assemble a full payload when the simple key/value form is not enough.
func (b *Base) Set(ctx context.Context, ctrlKey, command string, opt SetOptions) error {
	if b.PrepareCommand != nil {
		if full := b.PrepareCommand(ctrlKey, command, opt.Key, opt.Value); full != nil {
			b.log.WithField("payload", full).Debug("setting new device state")
			return b.setControl(ctx, full, "", "", SetOptions{CtrlPath: opt.CtrlPath})
		}
	}
	b.log.WithFields(logrus.Fields{
		"ctrl": ctrlKey, "cmd": command, "key": opt.Key, "value": opt.Value,
	}).Debug("setting new device state")
	return b.setControl(ctx, nil, ctrlKey, command, opt)
}

// GetConfig reads a thinq1 config value; the response is base64 JSON and
// can decode to either an object or a list.
func (b *Base) GetConfig(ctx context.Context, key string) (any, error) {
	if !b.shouldPoll {
		return nil, nil
	}
	data, err := b.client.Session().GetDeviceConfig(ctx, b.info.ID(), key, "")
	if err != nil {
		return nil, err
	}
	if b.controlSet == 0 {
		b.controlSet = 1
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("device %s: decoding config: %w", b.info.ID(), err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("device %s: parsing config: %w", b.info.ID(), err)
	}
	return out, nil
}

// GetControl reads a thinq1 control value, reported as "(key:value)".
func (b *Base) GetControl(ctx context.Context, key string) (string, error) {
	if !b.shouldPoll {
		return "", nil
	}
	data, err := b.client.Session().GetDeviceConfig(ctx, b.info.ID(), key, "Control")
	if err != nil {
		return "", err
	}
	if b.controlSet == 0 {
		b.controlSet = 1
	}
	trimmed := strings.Trim(data, "()")
	if _, value, found := strings.Cut(trimmed, ":"); found {
		return value, nil
	}
	return "", fmt.Errorf("device %s: unexpected control response %q", b.info.ID(), data)
}

// GetConfigV2 reads a thinq2 configuration through the control endpoint.
func (b *Base) GetConfigV2(ctx context.Context, ctrlKey, command string, opt SetOptions) (map[string]any, error) {
	if b.shouldPoll {
		return nil, nil
	}
	payload, err := b.client.Session().SetDeviceV2Controls(
		ctx, b.info.ID(), opt.CtrlPath, nil, ctrlKey, command, opt.Key, opt.Value)
	if err != nil {
		return nil, err
	}
	result, ok := payload["result"].(map[string]any)
	if !ok {
		return nil, nil
	}
	data, _ := result["data"].(map[string]any)
	return data, nil
}

func (b *Base) deletePermission(ctx context.Context) {
	if !b.shouldPoll || b.controlSet <= 0 {
		return
	}
	if b.controlSet == 1 {
		if err := b.client.Session().DeletePermission(ctx, b.info.ID()); err != nil {
			b.log.WithError(err).Debug("deleting control permission")
			return
		}
	}
	b.controlSet--
}

func (b *Base) additionalPoll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	callTime := time.Now()
	if !b.lastAdditionalPoll.IsZero() && callTime.Sub(b.lastAdditionalPoll) < interval {
		return
	}
	b.lastAdditionalPoll = callTime
	hook := b.DeviceInfoV2
	if b.shouldPoll {
		hook = b.DeviceInfoV1
	}
	if hook == nil {
		return
	}
	if err := hook(ctx); err != nil {
		b.log.WithError(err).Debug("additional poll failed")
	}
}

// PollData polls the device's raw status. A nil map without error means the
// status is not available yet.
func (b *Base) PollData(ctx context.Context, opt PollOptions) (map[string]any, error) {
	if b.modelInfo == nil {
		if err := b.InitDeviceInfo(ctx); err != nil {
			return nil, err
		}
	}
	pollTotal.Inc()

	// thinq2: the status rides on the device record.
	if !b.shouldPoll {
		if opt.QueryDevice && b.PreUpdateV2 != nil {
			if err := b.PreUpdateV2(ctx); err != nil {
				b.log.WithError(err).Debug("pre-update hook failed")
			}
		}
		state, err := b.mon.Refresh(ctx, opt.QueryDevice)
		if err != nil {
			return nil, err
		}
		snapshot, _ := state.(map[string]any)
		if snapshot == nil {
			return nil, nil
		}
		if opt.AdditionalPollIntervalV2 > 0 {
			b.additionalPoll(ctx, opt.AdditionalPollIntervalV2)
		}
		return b.modelInfo.DecodeSnapshot(snapshot, opt.SnapshotKey), nil
	}

	// thinq1: data comes from the monitoring session.
	state, err := b.mon.Refresh(ctx, false)
	if err != nil {
		return nil, err
	}
	data, _ := state.([]byte)
	if data == nil {
		return nil, nil
	}
	res, err := b.modelInfo.DecodeMonitor(data)
	if err != nil {
		return nil, err
	}
	if len(res) > 0 && opt.AdditionalPollIntervalV1 > 0 {
		b.additionalPoll(ctx, opt.AdditionalPollIntervalV1)
	}
	b.deletePermission(ctx)
	return res, nil
}

// RegisterFeature records a feature as available and returns its title.
// ok is false when the feature has no status yet and none is allowed.
func (b *Base) RegisterFeature(name, itemKey string, hasStatus, allowNone bool) (string, bool) {
	b.featuresMu.Lock()
	defer b.featuresMu.Unlock()
	if title, ok := b.availableFeatures[name]; ok {
		return title, true
	}
	if !hasStatus && !allowNone {
		return "", false
	}
	title := name
	if b.FeatureTitle != nil {
		if t := b.FeatureTitle(name, itemKey); t != "" {
			title = t
		} else {
			return "", false
		}
	}
	b.availableFeatures[name] = title
	return title, true
}

// EnumText resolves a raw label through the local table and the downloaded
// language packs, falling back to the label itself.
func (b *Base) EnumText(enumName string) string {
	if enumName == "" {
		return StateNone
	}
	if text, ok := localLangPack[enumName]; ok {
		return text
	}
	if text, ok := b.modelLang[enumName]; ok && text != "" {
		return text
	}
	if text, ok := b.productLang[enumName]; ok && text != "" {
		return text
	}
	return enumName
}

// markUnknown reports whether an unknown status was seen for the first
// time, so it is logged once per device.
func (b *Base) markUnknown(status string) bool {
	b.featuresMu.Lock()
	defer b.featuresMu.Unlock()
	if _, seen := b.unknownStates[status]; seen {
		return false
	}
	b.unknownStates[status] = struct{}{}
	return true
}
