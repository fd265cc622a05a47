package thinq

import (
	"github.com/sirupsen/logrus"
)

// StateUnknown is the sentinel rendered for values the model cannot decode.
const StateUnknown = "unknown"

// DeviceType is the appliance category reported by the dashboard.
type DeviceType int

// Known device type codes.
const (
	DeviceRefrigerator       DeviceType = 101
	DeviceKimchiRefrigerator DeviceType = 102
	DeviceWaterPurifier      DeviceType = 103
	DeviceWasher             DeviceType = 201
	DeviceDryer              DeviceType = 202
	DeviceStyler             DeviceType = 203
	DeviceDishwasher         DeviceType = 204
	DeviceTowerWasher        DeviceType = 221
	DeviceTowerDryer         DeviceType = 222
	DeviceRange              DeviceType = 301
	DeviceMicrowave          DeviceType = 302
	DeviceCooktop            DeviceType = 303
	DeviceHood               DeviceType = 304
	DeviceAC                 DeviceType = 401
	DeviceAirPurifier        DeviceType = 402
	DeviceDehumidifier       DeviceType = 403
	DeviceFan                DeviceType = 405
	DeviceWaterHeater        DeviceType = 406
	DeviceAirPurifierFan     DeviceType = 410
	DeviceTypeUnknown        DeviceType = 0
)

// PlatformType selects which API generation a device speaks.
type PlatformType string

const (
	PlatformThinQ1  PlatformType = "thinq1"
	PlatformThinQ2  PlatformType = "thinq2"
	PlatformUnknown PlatformType = StateUnknown
)

// NetworkType is how the device is attached.
type NetworkType string

const (
	NetworkWiFi    NetworkType = "02"
	NetworkNFC3    NetworkType = "03"
	NetworkNFC4    NetworkType = "04"
	NetworkUnknown NetworkType = StateUnknown
)

// DeviceInfo describes one device on the user's dashboard. It wraps the raw
// listing record and tolerates the v1/v2 key variants.
type DeviceInfo struct {
	data map[string]any
}

// NewDeviceInfo wraps a raw dashboard record.
func NewDeviceInfo(data map[string]any) *DeviceInfo {
	return &DeviceInfo{data: data}
}

// AsMap returns a copy of the raw record.
func (d *DeviceInfo) AsMap() map[string]any {
	out := make(map[string]any, len(d.data))
	for k, v := range d.data {
		out[k] = v
	}
	return out
}

func (d *DeviceInfo) firstValue(keys ...string) string {
	for _, k := range keys {
		if v, ok := d.data[k]; ok {
			return stringify(v)
		}
	}
	return ""
}

// ID returns the device ID.
func (d *DeviceInfo) ID() string {
	if id := stringify(d.data["deviceId"]); id != "" {
		return id
	}
	return StateUnknown
}

// Name returns the user-assigned alias, falling back to the device ID.
func (d *DeviceInfo) Name() string {
	if alias := stringify(d.data["alias"]); alias != "" {
		return alias
	}
	return d.ID()
}

// ModelName returns the device model name.
func (d *DeviceInfo) ModelName() string {
	if name := d.firstValue("modelName", "modelNm"); name != "" {
		return name
	}
	return StateUnknown
}

// ModelInfoURL returns the URL of the model descriptor document.
func (d *DeviceInfo) ModelInfoURL() string {
	return d.firstValue("modelJsonUrl", "modelJsonUri")
}

// ModelLangPackURL returns the URL of the model language pack.
func (d *DeviceInfo) ModelLangPackURL() string {
	return d.firstValue("langPackModelUrl", "langPackModelUri")
}

// ProductLangPackURL returns the URL of the product language pack.
func (d *DeviceInfo) ProductLangPackURL() string {
	return d.firstValue("langPackProductTypeUrl", "langPackProductTypeUri")
}

// MACAddress returns the device MAC address, empty when not reported.
func (d *DeviceInfo) MACAddress() string {
	return stringify(d.data["macAddress"])
}

// Firmware returns the firmware version, empty when not reported.
func (d *DeviceInfo) Firmware() string {
	if fw := stringify(d.data["fwVer"]); fw != "" {
		return fw
	}
	if modem, ok := d.data["modemInfo"].(map[string]any); ok {
		return stringify(modem["appVersion"])
	}
	return ""
}

// IsOnline reports whether the cloud sees the device connected.
func (d *DeviceInfo) IsOnline() bool {
	online, _ := d.data["online"].(bool)
	return online
}

// Type returns the device category. Unknown codes are logged once per
// record and map to DeviceTypeUnknown.
func (d *DeviceInfo) Type() DeviceType {
	raw, ok := d.data["deviceType"].(float64)
	if !ok {
		return DeviceTypeUnknown
	}
	t := DeviceType(int(raw))
	switch t {
	case DeviceRefrigerator, DeviceKimchiRefrigerator, DeviceWaterPurifier,
		DeviceWasher, DeviceDryer, DeviceStyler, DeviceDishwasher,
		DeviceTowerWasher, DeviceTowerDryer, DeviceRange, DeviceMicrowave,
		DeviceCooktop, DeviceHood, DeviceAC, DeviceAirPurifier,
		DeviceDehumidifier, DeviceFan, DeviceWaterHeater, DeviceAirPurifierFan:
		return t
	}
	logrus.WithFields(logrus.Fields{
		"device": d.ID(),
		"type":   int(raw),
	}).Warning("unknown device type")
	return DeviceTypeUnknown
}

// Platform returns which API generation the device speaks. Records without
// a platformType predate thinq2 and default to thinq1.
func (d *DeviceInfo) Platform() PlatformType {
	raw, ok := d.data["platformType"]
	if !ok {
		return PlatformThinQ1
	}
	switch p := PlatformType(stringify(raw)); p {
	case PlatformThinQ1, PlatformThinQ2:
		return p
	}
	logrus.WithFields(logrus.Fields{
		"device":   d.ID(),
		"platform": raw,
	}).Warning("unknown platform type")
	return PlatformUnknown
}

// Network returns the network attachment type, defaulting to WiFi.
func (d *DeviceInfo) Network() NetworkType {
	raw, ok := d.data["networkType"]
	if !ok {
		return NetworkWiFi
	}
	switch n := NetworkType(stringify(raw)); n {
	case NetworkWiFi, NetworkNFC3, NetworkNFC4:
		return n
	}
	return NetworkWiFi
}

// Snapshot returns the status snapshot embedded in the dashboard record,
// nil for thinq1 devices.
func (d *DeviceInfo) Snapshot() map[string]any {
	snap, _ := d.data["snapshot"].(map[string]any)
	return snap
}
