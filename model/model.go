// Package model maps LG ThinQ device model descriptors: the JSON documents
// describing a model's capabilities and how to decode its status payloads.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ValueType classifies a descriptor value.
type ValueType string

const (
	TypeBit       ValueType = "bit"
	TypeBool      ValueType = "boolean"
	TypeEnum      ValueType = "enum"
	TypeNumber    ValueType = "number"
	TypeRange     ValueType = "range"
	TypeReference ValueType = "reference"
	TypeString    ValueType = "string"
)

// Labels used for boolean values rendered as enums.
const (
	BitOff = "OFF"
	BitOn  = "ON"
)

// EnumValue maps encoded values to friendly names.
type EnumValue struct {
	Options map[string]string
}

// RangeValue bounds a numeric value.
type RangeValue struct {
	Min  float64
	Max  float64
	Step float64
}

// BitOption describes one field packed into a bit value.
type BitOption struct {
	Value  string
	Length int
}

// BitValue maps start bits to the packed fields.
type BitValue struct {
	Options map[int]BitOption
}

// ReferenceValue points at a lookup table elsewhere in the descriptor.
type ReferenceValue struct {
	Reference map[string]map[string]any
}

// Info describes a device model's capabilities. Lookups on unknown keys
// return zero values, never errors; implementations are safe for concurrent
// readers.
type Info interface {
	// IsV2 reports whether state keys follow the v2 naming generation.
	IsV2() bool
	// ModelType returns the declared model type, such as "TL" or "AC".
	ModelType() string
	// AsMap returns the raw descriptor document.
	AsMap() map[string]any
	// ConfigValue returns a Config entry, nil when absent.
	ConfigValue(key string) any
	// ValueType returns the declared type of a value key, "" when absent.
	ValueType(key string) ValueType
	// ValueExists reports whether a value key is declared.
	ValueExists(key string) bool
	// EnumValue returns the encoded value for a friendly enum name.
	EnumValue(key, name string) string
	// EnumName returns the friendly name for an encoded enum value. ok is
	// false when the key is not an enum; an unknown code yields "".
	EnumName(key string, code any) (name string, ok bool)
	// EnumIndex returns the friendly name for an indexed enum value.
	EnumIndex(key string, index int) (string, bool)
	// EnumOptions returns the full code-to-name mapping of an enum key.
	EnumOptions(key string) (map[string]string, bool)
	// RangeValue returns the declared range for a key.
	RangeValue(key string) (RangeValue, bool)
	// ReferenceName resolves an encoded reference value to its friendly
	// name, trying refKeys then "label" then "name".
	ReferenceName(key string, code any, refKeys ...string) (string, bool)
	// ReferenceValues returns the raw reference table for a key.
	ReferenceValues(key string) map[string]map[string]any
	// BitValue extracts a packed bit field from decoded status data.
	BitValue(key string, data map[string]any) (string, bool)
	// BitOptions returns the packed-field layout for a bit-typed key.
	BitOptions(key string) (BitValue, bool)
	// TargetKey resolves the per-value key indirection of v2 descriptors.
	TargetKey(key, value, target string) string
	// Default returns the declared default for a value key.
	Default(key string) any
	// BinaryControlData reports whether controls use binary payloads.
	BinaryControlData() bool
	// ControlCommand returns a copy of the command template for cmdKey,
	// with the control key substituted when non-empty.
	ControlCommand(cmdKey, ctrlKey string) (map[string]any, bool)
	// DecodeMonitor decodes a monitoring payload into a flat status map.
	DecodeMonitor(data []byte) (map[string]any, error)
	// DecodeSnapshot extracts this model's status from a dashboard
	// snapshot.
	DecodeSnapshot(data map[string]any, key string) map[string]any
}

var (
	_ Info = (*infoV1)(nil)
	_ Info = (*infoV2)(nil)
	_ Info = (*infoV2AC)(nil)
)

// ErrUnsupportedModel means the descriptor document matches none of the
// known generations.
var ErrUnsupportedModel = errors.New("model: unsupported descriptor format")

// Load parses a raw descriptor document.
func Load(raw []byte) (Info, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("model: parsing descriptor: %w", err)
	}
	return New(data)
}

// New dispatches a parsed descriptor to the generation that understands it.
// The v2ac shape is probed first: it also carries the v1 markers.
func New(data map[string]any) (Info, error) {
	if isV2ACModelData(data) {
		return newInfoV2AC(data), nil
	}
	if isV1ModelData(data) {
		return newInfoV1(data), nil
	}
	if isV2ModelData(data) {
		return newInfoV2(data), nil
	}
	return nil, ErrUnsupportedModel
}

// normalizeCode canonicalizes an encoded value for map lookups: numbers
// render without a fractional part so JSON floats and stringified ints meet.
func normalizeCode(v any) string {
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
	case int:
		return strconv.Itoa(n)
	case bool:
		if n {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(n)
	}
}

func getMap(data map[string]any, key string) map[string]any {
	m, _ := data[key].(map[string]any)
	return m
}

func getString(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func getFloat(data map[string]any, key string) (float64, bool) {
	f, ok := data[key].(float64)
	return f, ok
}

func getInt(data map[string]any, key string, def int) int {
	if f, ok := data[key].(float64); ok {
		return int(f)
	}
	return def
}

// copyMap shallow-copies a command template so callers can fill it in.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func referenceTable(raw any) map[string]map[string]any {
	table, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]any, len(table))
	for k, v := range table {
		if entry, ok := v.(map[string]any); ok {
			out[k] = entry
		}
	}
	return out
}

// lookupReference resolves a reference entry to its friendly name.
func lookupReference(reference map[string]map[string]any, code any, refKeys []string) (string, bool) {
	entry, ok := reference[normalizeCode(code)]
	if !ok {
		return "", true
	}
	keys := append(append([]string{}, refKeys...), "label")
	for _, k := range keys {
		if v, ok := entry[k]; ok {
			return normalizeCode(v), true
		}
	}
	if v, ok := entry["name"]; ok {
		return normalizeCode(v), true
	}
	return "", true
}
