package device

import (
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Status wraps one decoded status payload with descriptor-aware lookups.
// Families embed it and register their feature decoders.
type Status struct {
	dev  *Base
	data map[string]any

	features        map[string]string
	featureUpdater  func()
	featuresUpdated bool
}

// NewStatus wraps a decoded payload for a device.
func NewStatus(dev *Base, data map[string]any) *Status {
	if data == nil {
		data = map[string]any{}
	}
	return &Status{dev: dev, data: data, features: map[string]string{}}
}

// SetFeatureUpdater registers the family's feature decoding pass, run once
// per payload when Features is first read.
func (s *Status) SetFeatureUpdater(fn func()) { s.featureUpdater = fn }

// Device returns the owning device facade.
func (s *Status) Device() *Base { return s.dev }

// Data returns the raw decoded payload.
func (s *Status) Data() map[string]any { return s.data }

// HasData reports whether the payload carries anything.
func (s *Status) HasData() bool { return len(s.data) > 0 }

// IsInfoV2 reports the generation of the backing descriptor.
func (s *Status) IsInfoV2() bool {
	return s.dev.modelInfo != nil && s.dev.modelInfo.IsV2()
}

// StateKey selects the payload key for the descriptor generation.
func (s *Status) StateKey(key Key) string { return s.dev.StateKey(key) }

// DataKey returns the first of keys present in the payload, "" when none.
func (s *Status) DataKey(keys ...string) string {
	if len(s.data) == 0 {
		return ""
	}
	for _, key := range keys {
		if _, ok := s.data[key]; ok {
			return key
		}
	}
	return ""
}

// Value returns the raw payload value for the first matching key.
func (s *Status) Value(keys ...string) any {
	if key := s.DataKey(keys...); key != "" {
		return s.data[key]
	}
	return nil
}

// UpdateStatus overwrites a payload key, invalidating decoded features.
// Returns false when the key is not part of the payload.
func (s *Status) UpdateStatus(key string, value any) bool {
	if _, ok := s.data[key]; !ok {
		return false
	}
	s.data[key] = value
	s.featuresUpdated = false
	return true
}

// UpdateStatusFeat overwrites a payload key and optionally re-decodes the
// features immediately.
func (s *Status) UpdateStatusFeat(key string, value any, updFeatures bool) bool {
	if !s.UpdateStatus(key, value) {
		return false
	}
	if updFeatures {
		s.runFeatureUpdate()
	}
	return true
}

// ModelInfoKey returns the first of keys declared by the model, "" if none.
func (s *Status) ModelInfoKey(keys ...string) string {
	if s.dev.modelInfo == nil {
		return ""
	}
	for _, key := range keys {
		if s.dev.modelInfo.ValueExists(key) {
			return key
		}
	}
	return ""
}

// KeyExists reports whether the model declares one of keys.
func (s *Status) KeyExists(keys ...string) bool {
	return s.ModelInfoKey(keys...) != ""
}

// LookupEnum resolves an enum payload value to its raw label.
func (s *Status) LookupEnum(keys ...string) string {
	key := s.DataKey(keys...)
	if key == "" {
		return ""
	}
	name, _ := s.dev.modelInfo.EnumName(key, s.data[key])
	return name
}

// LookupEnumBool resolves an enum payload value, collapsing the *_ON_W /
// *_OFF_W label families onto the plain bit labels.
func (s *Status) LookupEnumBool(keys ...string) string {
	value := s.LookupEnum(keys...)
	if len(value) > 5 {
		if value[len(value)-5:] == "_ON_W" {
			return BitOn
		}
	}
	if len(value) > 6 && value[len(value)-6:] == "_OFF_W" {
		return BitOff
	}
	return value
}

// LookupRange returns the raw payload value for a range key.
func (s *Status) LookupRange(keys ...string) any {
	key := s.DataKey(keys...)
	if key == "" {
		return nil
	}
	return s.data[key]
}

// LookupReference resolves a reference payload value to its friendly name
// through the model's lookup table.
func (s *Status) LookupReference(refKey string, keys ...string) string {
	key := s.DataKey(keys...)
	if key == "" {
		return ""
	}
	name, _ := s.dev.modelInfo.ReferenceName(key, s.data[key], refKey)
	return name
}

// LookupBitEnum resolves a bit-packed payload key to its enum label.
func (s *Status) LookupBitEnum(key string) string {
	var raw any
	if len(s.data) > 0 {
		raw = s.data[key]
		if raw == nil || raw == "" {
			if packed, ok := s.dev.modelInfo.BitValue(key, s.data); ok {
				raw = packed
			}
		}
	}
	name, ok := s.dev.modelInfo.EnumName(key, raw)
	if key == "DoorLock" && !ok {
		// The door lock bit is not declared in the model enums.
		if normalize(raw) == "1" {
			return LabelBitOn
		}
		return LabelBitOff
	}
	return name
}

// LookupBit renders a bit-packed payload key as on/off.
func (s *Status) LookupBit(key string) string {
	enumVal := s.LookupBitEnum(key)
	if enumVal == "" {
		return ""
	}
	if localLangPack[enumVal] == StateOn {
		return StateOn
	}
	return StateOff
}

// OrUnknown substitutes the unknown sentinel for an empty status, logging
// the first sighting of each undecodable value per device.
func (s *Status) OrUnknown(status, key, statusType string) string {
	if status != "" {
		return status
	}
	if s.dev.markUnknown(key) {
		s.dev.log.WithFields(logrus.Fields{
			"status": key,
			"type":   statusType,
		}).Warning("received unknown status")
	}
	return StateUnknown
}

// UpdateFeature records one decoded feature value. An empty status renders
// as the none sentinel; getText resolves labels through the language packs.
func (s *Status) UpdateFeature(key, status string, getText bool) string {
	return s.updateFeatureItem(key, "", status, getText, false)
}

// UpdateFeatureItem is UpdateFeature with an explicit model item key used
// for the feature title.
func (s *Status) UpdateFeatureItem(key, itemKey, status string, getText bool) string {
	return s.updateFeatureItem(key, itemKey, status, getText, false)
}

// UpdateFeatureAllowNone records a feature that may legitimately be empty.
func (s *Status) UpdateFeatureAllowNone(key, status string, getText bool) string {
	return s.updateFeatureItem(key, "", status, getText, true)
}

func (s *Status) updateFeatureItem(key, itemKey, status string, getText, allowNone bool) string {
	if _, ok := s.dev.RegisterFeature(key, itemKey, status != "", allowNone); !ok {
		return ""
	}
	if status == "" && !allowNone {
		status = StateNone
	}
	if status == StateNone {
		getText = false
	}
	value := status
	if status != "" && getText {
		value = s.dev.EnumText(status)
	}
	s.features[key] = value
	return value
}

func (s *Status) runFeatureUpdate() {
	if s.featureUpdater != nil {
		s.featureUpdater()
	}
	s.featuresUpdated = true
}

// Features returns the decoded feature map, running the family's decoding
// pass on first access.
func (s *Status) Features() map[string]string {
	if !s.featuresUpdated {
		s.runFeatureUpdate()
	}
	return s.features
}

// IntOrNone renders a numeric payload value as an integer string, "" for
// anything non-numeric.
func IntOrNone(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.Itoa(int(v))
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// ToInt converts a payload value to an int where possible.
func ToInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		if v == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// StrToNum converts a payload string to a float, preferring whole values.
func StrToNum(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func normalize(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == math.Trunc(n) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return ""
	}
}

// FilterLife computes a filter's remaining life percentage from its use and
// max times. useTimeInverted marks models whose payload reports remaining
// rather than used time.
func (s *Status) FilterLife(useTimeKeys, maxTimeKeys []string, filterTypes []string, supportKey string, useTimeInverted bool) string {
	if len(filterTypes) > 0 && supportKey != "" {
		supported := false
		for _, filterType := range filterTypes {
			if s.dev.modelInfo.EnumValue(supportKey, filterType) != "" {
				supported = true
				break
			}
		}
		if !supported {
			return ""
		}
	}

	maxTime, ok := ToInt(s.LookupEnum(maxTimeKeys...))
	if !ok {
		maxTime, ok = ToInt(s.LookupRange(maxTimeKeys...))
		if !ok || maxTime < 10 {
			return ""
		}
	}
	useTime, ok := ToInt(s.LookupRange(useTimeKeys...))
	if !ok || maxTime <= 0 {
		return ""
	}
	if useTimeInverted {
		useTime = maxTime - useTime
		if useTime < 0 {
			useTime = 0
		}
	}
	if useTime > maxTime {
		useTime = maxTime
	}
	return strconv.Itoa((maxTime - useTime) * 100 / maxTime)
}
