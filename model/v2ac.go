package model

import "strings"

func isV2ACModelData(data map[string]any) bool {
	_, hasControl := data["ControlDevice"]
	values := getMap(data, "Value")
	if hasControl && values != nil {
		return true
	}
	if _, hasMon := data["Monitoring"]; hasMon && values != nil {
		for _, raw := range values {
			entry, ok := raw.(map[string]any)
			if !ok {
				return false
			}
			_, hasDataType := entry["data_type"]
			_, hasType := entry["type"]
			return hasDataType && !hasType
		}
	}
	return false
}

// infoV2AC reads the AC-flavored second generation: "Value" entries tagged
// with "data_type". Monitoring, when present, follows the v1 protocol.
type infoV2AC struct {
	infoV1
	hasMonitoring bool
}

func newInfoV2AC(data map[string]any) *infoV2AC {
	_, hasMonitoring := data["Monitoring"]
	return &infoV2AC{
		infoV1:        infoV1{data: data, bitKeys: map[string]*bitKey{}},
		hasMonitoring: hasMonitoring,
	}
}

func (m *infoV2AC) IsV2() bool { return true }

func (m *infoV2AC) dataType(data map[string]any) ValueType {
	return ValueType(strings.ToLower(getString(data, "data_type")))
}

func (m *infoV2AC) ValueType(key string) ValueType {
	data := m.valueData(key)
	if data == nil {
		return ""
	}
	return m.dataType(data)
}

func (m *infoV2AC) enumOptions(key string) (map[string]string, bool) {
	data := m.valueData(key)
	if data == nil || m.dataType(data) != TypeEnum {
		return nil, false
	}
	raw := getMap(data, "value_mapping")
	options := make(map[string]string, len(raw))
	for code, label := range raw {
		options[code] = normalizeCode(label)
	}
	return options, true
}

func (m *infoV2AC) EnumValue(key, name string) string {
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

func (m *infoV2AC) EnumName(key string, code any) (string, bool) {
	options, ok := m.enumOptions(key)
	if !ok {
		return "", false
	}
	return options[normalizeCode(code)], true
}

func (m *infoV2AC) EnumIndex(key string, index int) (string, bool) {
	return m.EnumName(key, index)
}

func (m *infoV2AC) EnumOptions(key string) (map[string]string, bool) {
	return m.enumOptions(key)
}

func (m *infoV2AC) RangeValue(key string) (RangeValue, bool) {
	data := m.valueData(key)
	if data == nil || m.dataType(data) != TypeRange {
		return RangeValue{}, false
	}
	validation := getMap(data, "value_validation")
	min, _ := getFloat(validation, "min")
	max, _ := getFloat(validation, "max")
	step, _ := getFloat(validation, "step")
	return RangeValue{Min: min, Max: max, Step: step}, true
}

func (m *infoV2AC) ReferenceValues(key string) map[string]map[string]any { return nil }

func (m *infoV2AC) ReferenceName(key string, code any, refKeys ...string) (string, bool) {
	return "", false
}

func (m *infoV2AC) DecodeSnapshot(data map[string]any, key string) map[string]any {
	if key == "" || !m.hasMonitoring {
		return data
	}
	return m.infoV1.DecodeSnapshot(data, key)
}
