package model

import "strings"

func isV2ModelData(data map[string]any) bool {
	_, ok := data["MonitoringValue"]
	return ok
}

// infoV2 reads second-generation descriptors: "MonitoringValue" entries
// tagged with "dataType", JSON snapshot payloads.
type infoV2 struct {
	data map[string]any
}

func newInfoV2(data map[string]any) *infoV2 {
	return &infoV2{data: data}
}

func (m *infoV2) IsV2() bool { return true }

func (m *infoV2) ModelType() string {
	return getString(getMap(m.data, "Info"), "modelType")
}

func (m *infoV2) AsMap() map[string]any { return m.data }

func (m *infoV2) ConfigValue(key string) any {
	return getMap(m.data, "Config")[key]
}

// dataRoot returns the entry for a value key when it carries a usable type
// tag or reference.
func (m *infoV2) dataRoot(key string) map[string]any {
	data := getMap(getMap(m.data, "MonitoringValue"), key)
	if data == nil {
		return nil
	}
	if _, ok := data["dataType"]; ok {
		return data
	}
	if _, ok := data["ref"]; ok {
		return data
	}
	return nil
}

func (m *infoV2) dataType(data map[string]any) ValueType {
	if t := getString(data, "dataType"); t != "" {
		return ValueType(strings.ToLower(t))
	}
	if _, ok := data["ref"]; ok {
		return TypeReference
	}
	return ""
}

func (m *infoV2) ValueType(key string) ValueType {
	data := getMap(getMap(m.data, "MonitoringValue"), key)
	if data == nil {
		return ""
	}
	return ValueType(strings.ToLower(getString(data, "dataType")))
}

func (m *infoV2) ValueExists(key string) bool {
	_, ok := getMap(m.data, "MonitoringValue")[key]
	return ok
}

func (m *infoV2) enumOptions(key string) (map[string]string, bool) {
	data := m.dataRoot(key)
	if data == nil {
		return nil, false
	}
	switch m.dataType(data) {
	case TypeEnum:
		mapping := getMap(data, "valueMapping")
		options := make(map[string]string, len(mapping))
		for code, raw := range mapping {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if label, ok := entry["label"]; ok {
				options[code] = normalizeCode(label)
			}
		}
		return options, true
	case TypeBool:
		return map[string]string{"0": BitOff, "1": BitOn}, true
	}
	return nil, false
}

func (m *infoV2) EnumValue(key, name string) string {
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

func (m *infoV2) EnumName(key string, code any) (string, bool) {
	options, ok := m.enumOptions(key)
	if !ok {
		return "", false
	}
	return options[normalizeCode(code)], true
}

func (m *infoV2) EnumIndex(key string, index int) (string, bool) {
	data := m.dataRoot(key)
	if data == nil || m.dataType(data) != TypeEnum {
		return "", false
	}
	mapping := getMap(data, "valueMapping")
	for _, raw := range mapping {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		idx, hasIdx := getFloat(entry, "index")
		label, hasLabel := entry["label"]
		if hasIdx && hasLabel && int(idx) == index {
			return normalizeCode(label), true
		}
	}
	return "", true
}

func (m *infoV2) EnumOptions(key string) (map[string]string, bool) {
	return m.enumOptions(key)
}

func (m *infoV2) RangeValue(key string) (RangeValue, bool) {
	data := m.dataRoot(key)
	if data == nil || m.dataType(data) != TypeRange {
		return RangeValue{}, false
	}
	mapping := getMap(data, "valueMapping")
	min, _ := getFloat(mapping, "min")
	max, _ := getFloat(mapping, "max")
	return RangeValue{Min: min, Max: max, Step: 1}, true
}

func (m *infoV2) ReferenceValues(key string) map[string]map[string]any {
	data := m.dataRoot(key)
	if data == nil || m.dataType(data) != TypeReference {
		return nil
	}
	ref := getString(data, "ref")
	if ref == "" {
		return nil
	}
	return referenceTable(m.data[ref])
}

func (m *infoV2) ReferenceName(key string, code any, refKeys ...string) (string, bool) {
	reference := m.ReferenceValues(key)
	if reference == nil {
		return "", false
	}
	return lookupReference(reference, code, refKeys)
}

func (m *infoV2) BitValue(key string, data map[string]any) (string, bool) {
	return "", false
}

func (m *infoV2) BitOptions(key string) (BitValue, bool) {
	return BitValue{}, false
}

func (m *infoV2) TargetKey(key, value, target string) string {
	data := m.dataRoot(key)
	if data == nil {
		return ""
	}
	return normalizeCode(getMap(getMap(data, "targetKey"), target)[value])
}

func (m *infoV2) Default(key string) any {
	data := m.dataRoot(key)
	if data == nil {
		return nil
	}
	return data["default"]
}

func (m *infoV2) BinaryControlData() bool { return false }

func (m *infoV2) ControlCommand(cmdKey, ctrlKey string) (map[string]any, bool) {
	template := getMap(getMap(m.data, "ControlWifi"), cmdKey)
	if template == nil {
		return nil, false
	}
	control := copyMap(template)
	if ctrlKey != "" {
		control["ctrlKey"] = ctrlKey
	}
	return control, true
}

func (m *infoV2) DecodeMonitor(data []byte) (map[string]any, error) {
	return decodeMonitorJSON(data)
}

func (m *infoV2) DecodeSnapshot(data map[string]any, key string) map[string]any {
	return getMap(data, key)
}
