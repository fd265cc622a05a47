package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

func isV1ModelData(data map[string]any) bool {
	_, hasMon := data["Monitoring"]
	_, hasVal := data["Value"]
	return hasMon && hasVal
}

// infoV1 reads first-generation descriptors: "Monitoring" + "Value", type
// tags under "type", binary monitor payloads.
type infoV1 struct {
	data map[string]any

	// bitKeys memoizes the Option slot located for a packed bit key.
	mu      sync.Mutex
	bitKeys map[string]*bitKey
}

type bitKey struct {
	option   string
	startBit int
	length   int
}

func newInfoV1(data map[string]any) *infoV1 {
	return &infoV1{data: data, bitKeys: map[string]*bitKey{}}
}

func (m *infoV1) IsV2() bool { return false }

func (m *infoV1) ModelType() string {
	return getString(getMap(m.data, "Info"), "modelType")
}

func (m *infoV1) AsMap() map[string]any { return m.data }

func (m *infoV1) ConfigValue(key string) any {
	return getMap(m.data, "Config")[key]
}

func (m *infoV1) valueData(key string) map[string]any {
	return getMap(getMap(m.data, "Value"), key)
}

func (m *infoV1) dataType(data map[string]any) ValueType {
	return ValueType(strings.ToLower(getString(data, "type")))
}

func (m *infoV1) ValueType(key string) ValueType {
	data := m.valueData(key)
	if data == nil {
		return ""
	}
	return m.dataType(data)
}

func (m *infoV1) ValueExists(key string) bool {
	_, ok := getMap(m.data, "Value")[key]
	return ok
}

func (m *infoV1) enumOptions(key string) (map[string]string, bool) {
	data := m.valueData(key)
	if data == nil {
		return nil, false
	}
	switch m.dataType(data) {
	case TypeEnum:
		raw := getMap(data, "option")
		options := make(map[string]string, len(raw))
		for code, label := range raw {
			options[code] = normalizeCode(label)
		}
		return options, true
	case TypeBool:
		return map[string]string{"0": BitOff, "1": BitOn}, true
	}
	return nil, false
}

func (m *infoV1) EnumValue(key, name string) string {
	options, ok := m.enumOptions(key)
	if !ok {
		return ""
	}
	for code, label := range options {
		if label == name {
			return code
		}
	}
	return ""
}

func (m *infoV1) EnumName(key string, code any) (string, bool) {
	options, ok := m.enumOptions(key)
	if !ok {
		return "", false
	}
	return options[normalizeCode(code)], true
}

func (m *infoV1) EnumIndex(key string, index int) (string, bool) {
	return m.EnumName(key, index)
}

func (m *infoV1) EnumOptions(key string) (map[string]string, bool) {
	return m.enumOptions(key)
}

func (m *infoV1) RangeValue(key string) (RangeValue, bool) {
	data := m.valueData(key)
	if data == nil || m.dataType(data) != TypeRange {
		return RangeValue{}, false
	}
	option := getMap(data, "option")
	min, _ := getFloat(option, "min")
	max, _ := getFloat(option, "max")
	step, _ := getFloat(option, "step")
	return RangeValue{Min: min, Max: max, Step: step}, true
}

func (m *infoV1) ReferenceValues(key string) map[string]map[string]any {
	data := m.valueData(key)
	if data == nil || m.dataType(data) != TypeReference {
		return nil
	}
	option, ok := data["option"].([]any)
	if !ok || len(option) == 0 {
		return nil
	}
	ref, ok := option[0].(string)
	if !ok {
		return nil
	}
	return referenceTable(m.data[ref])
}

func (m *infoV1) ReferenceName(key string, code any, refKeys ...string) (string, bool) {
	reference := m.ReferenceValues(key)
	if reference == nil {
		return "", false
	}
	return lookupReference(reference, code, refKeys)
}

func (m *infoV1) BitOptions(key string) (BitValue, bool) {
	data := m.valueData(key)
	if data == nil || m.dataType(data) != TypeBit {
		return BitValue{}, false
	}
	raw, _ := data["option"].([]any)
	options := make(map[int]BitOption, len(raw))
	for _, item := range raw {
		bit, ok := item.(map[string]any)
		if !ok {
			continue
		}
		options[getInt(bit, "startbit", 0)] = BitOption{
			Value:  getString(bit, "value"),
			Length: getInt(bit, "length", 1),
		}
	}
	return BitValue{Options: options}, true
}

// findBitKey locates which OptionN slot carries a packed key, memoized per
// descriptor.
func (m *infoV1) findBitKey(key string) *bitKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bk, ok := m.bitKeys[key]; ok {
		return bk
	}
	var found *bitKey
	values := getMap(m.data, "Value")
	for i := 1; i <= 3 && found == nil; i++ {
		optKey := fmt.Sprintf("Option%d", i)
		option := getMap(values, optKey)
		if option == nil {
			continue
		}
		entries, _ := option["option"].([]any)
		for _, item := range entries {
			opt, ok := item.(map[string]any)
			if !ok || getString(opt, "value") != key {
				continue
			}
			startBit, ok := getFloat(opt, "startbit")
			if !ok {
				break
			}
			found = &bitKey{
				option:   optKey,
				startBit: int(startBit),
				length:   getInt(opt, "length", 1),
			}
			break
		}
	}
	m.bitKeys[key] = found
	return found
}

func (m *infoV1) BitValue(key string, data map[string]any) (string, bool) {
	bk := m.findBitKey(key)
	if bk == nil {
		return "", false
	}
	raw := normalizeCode(data[bk.option])
	if raw == "" {
		return "0", true
	}
	packed, err := strconv.Atoi(raw)
	if err != nil {
		return "0", true
	}
	val := 0
	for i := 0; i < bk.length; i++ {
		if packed&(1<<(bk.startBit+i)) != 0 {
			val += 1 << i
		}
	}
	return strconv.Itoa(val), true
}

func (m *infoV1) TargetKey(key, value, target string) string { return "" }

func (m *infoV1) Default(key string) any {
	return m.valueData(key)["default"]
}

func (m *infoV1) BinaryControlData() bool {
	return getString(getMap(m.data, "ControlWifi"), "type") == "BINARY(BYTE)"
}

func (m *infoV1) ControlCommand(cmdKey, ctrlKey string) (map[string]any, bool) {
	action := getMap(getMap(m.data, "ControlWifi"), "action")
	template := getMap(action, cmdKey)
	if template == nil {
		return nil, false
	}
	control := copyMap(template)
	if ctrlKey != "" {
		control["cmd"] = ctrlKey
	}
	return control, true
}

func (m *infoV1) monitoringType() string {
	return getString(getMap(m.data, "Monitoring"), "type")
}

func (m *infoV1) monitoringProtocol() any {
	return getMap(m.data, "Monitoring")["protocol"]
}

// decodeMonitorByte unpacks a big-endian byte-sliced payload. Fields past
// the end of a short payload are reported as zero.
func (m *infoV1) decodeMonitorByte(data []byte) map[string]any {
	decoded := map[string]any{}
	protocol, _ := m.monitoringProtocol().([]any)
	for _, item := range protocol {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := getString(field, "value")
		startByte := getInt(field, "startByte", 0)
		endByte := startByte + getInt(field, "length", 0)
		value := 0
		if len(data) >= endByte {
			for _, b := range data[startByte:endByte] {
				value = value<<8 + int(b)
			}
		}
		decoded[key] = strconv.Itoa(value)
	}
	return decoded
}

// decodeMonitorHex unpacks the comma-separated hex token variant of the
// byte protocol.
func (m *infoV1) decodeMonitorHex(data []byte) map[string]any {
	decoded := map[string]any{}
	tokens := strings.Split(string(data), ",")
	protocol, _ := m.monitoringProtocol().([]any)
	for _, item := range protocol {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := getString(field, "value")
		startByte := getInt(field, "startByte", 0)
		endByte := startByte + getInt(field, "length", 0)
		value := 0
		if len(tokens) >= endByte {
			for i := startByte; i < endByte; i++ {
				b, err := strconv.ParseInt(strings.TrimSpace(tokens[i]), 16, 32)
				if err != nil {
					continue
				}
				value = value<<8 + int(b)
			}
		}
		decoded[key] = strconv.Itoa(value)
	}
	return decoded
}

func decodeMonitorJSON(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("model: decoding monitor payload: %w", err)
	}
	return out, nil
}

func (m *infoV1) DecodeMonitor(data []byte) (map[string]any, error) {
	switch m.monitoringType() {
	case "BINARY(BYTE)":
		return m.decodeMonitorByte(data), nil
	case "BINARY(HEX)":
		return m.decodeMonitorHex(data), nil
	}
	return decodeMonitorJSON(data)
}

// currentTempKey substitutes the unit-suffixed current temperature keys some
// oven snapshots use: "...CurrentTemperatureF" reads "...CurrentTemperatureValue"
// when the sibling unit key agrees with the suffix.
func currentTempKey(key string, data map[string]any) string {
	if !strings.Contains(key, "CurrentTemperature") {
		return key
	}
	base := key[:len(key)-1]
	if !strings.HasSuffix(base, "CurrentTemperature") {
		return key
	}
	unit := normalizeCode(data[base+"Unit"])
	if unit == "" || unit[0] != key[len(key)-1] {
		return key
	}
	return base + "Value"
}

func (m *infoV1) DecodeSnapshot(data map[string]any, key string) map[string]any {
	if m.monitoringType() != "THINQ2" {
		return map[string]any{}
	}
	if key != "" {
		if _, ok := data[key]; !ok {
			return map[string]any{}
		}
	}
	protocol := m.monitoringProtocol()
	if protocol == nil {
		if key != "" {
			return getMap(data, key)
		}
		return data
	}

	if fields, ok := protocol.([]any); ok {
		return decodeSuperSet(fields, data)
	}

	info := data
	if key != "" {
		info = getMap(data, key)
	}
	return m.decodeConvertingRule(protocol, info)
}

// decodeSuperSet extracts dotted superSet paths from a snapshot document.
func decodeSuperSet(fields []any, data map[string]any) map[string]any {
	decoded := map[string]any{}
	for _, item := range fields {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		superSet := getString(field, "superSet")
		if superSet == "" {
			continue
		}
		key := getString(field, "value")
		var value any = data
		for _, ident := range strings.Split(superSet, ".") {
			node, ok := value.(map[string]any)
			if !ok {
				value = nil
				break
			}
			value = node[currentTempKey(ident, node)]
		}
		if value != nil {
			decoded[key] = snapshotString(value)
		}
	}
	return decoded
}

// snapshotString renders a snapshot value; numbers are truncated to their
// integer part the way the wire protocol expects.
func snapshotString(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(f))
	}
	return normalizeCode(v)
}

// decodeConvertingRule maps the dict-protocol snapshot through the model's
// MonitoringConvertingRule tables.
func (m *infoV1) decodeConvertingRule(protocol any, info map[string]any) map[string]any {
	mapping, ok := protocol.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	convertRule := getMap(m.data, "ConvertingRule")
	decoded := map[string]any{}
	for dataKey, rawValueKey := range mapping {
		valueKey := normalizeCode(rawValueKey)
		value := ""
		if rawValue, ok := info[dataKey]; ok && rawValue != nil {
			value = snapshotString(rawValue)
			if _, isNum := rawValue.(float64); !isNum {
				if rules := getMap(getMap(convertRule, valueKey), "MonitoringConvertingRule"); rules != nil {
					if converted, ok := rules[value]; ok {
						value = normalizeCode(converted)
					}
				}
			}
		}
		decoded[valueKey] = value
	}
	return decoded
}
