// Package wideq creates device facades for the appliances registered on an
// LG ThinQ account.
package wideq

import (
	"context"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/devices/ac"
	"github.com/ollo69/wideq-go/devices/airpurifier"
	"github.com/ollo69/wideq-go/devices/dehumidifier"
	"github.com/ollo69/wideq-go/devices/dishwasher"
	"github.com/ollo69/wideq-go/devices/fan"
	"github.com/ollo69/wideq-go/devices/hood"
	"github.com/ollo69/wideq-go/devices/microwave"
	"github.com/ollo69/wideq-go/devices/oven"
	"github.com/ollo69/wideq-go/devices/refrigerator"
	"github.com/ollo69/wideq-go/devices/styler"
	"github.com/ollo69/wideq-go/devices/washer"
	"github.com/ollo69/wideq-go/devices/waterheater"
	"github.com/ollo69/wideq-go/model"
	"github.com/ollo69/wideq-go/thinq"
)

// Device is the surface every family facade shares.
type Device interface {
	Client() *thinq.Client
	Info() *thinq.DeviceInfo
	UniqueID() string
	Name() string
	Model() model.Info
	ShouldPoll() bool
	AvailableFeatures() map[string]string
	InitDeviceInfo(ctx context.Context) error
}

var _ Device = (*device.Base)(nil)

// TempUnit selects the temperature scale used by climate facades.
type TempUnit string

const (
	Celsius    TempUnit = "C"
	Fahrenheit TempUnit = "F"
)

// towerSubDevices names the per-unit snapshot sections of a wash tower.
var towerSubDevices = map[thinq.DeviceType][]string{
	thinq.DeviceTowerWasher: {"washerDryer"},
	thinq.DeviceTowerDryer:  {"dryer"},
}

// CreateDevices builds the facades for one dashboard entry. The result is
// empty when the device type or platform is not supported; wash towers get
// one facade per sub unit.
func CreateDevices(client *thinq.Client, info *thinq.DeviceInfo, unit TempUnit) []Device {
	if info.Platform() == thinq.PlatformUnknown {
		return nil
	}
	if info.Network() != thinq.NetworkWiFi {
		return nil
	}

	switch info.Type() {
	case thinq.DeviceAC:
		return []Device{ac.New(client, info, ac.TempUnit(unit))}
	case thinq.DeviceAirPurifier, thinq.DeviceAirPurifierFan:
		return []Device{airpurifier.New(client, info)}
	case thinq.DeviceDehumidifier:
		return []Device{dehumidifier.New(client, info)}
	case thinq.DeviceDishwasher:
		return []Device{dishwasher.New(client, info)}
	case thinq.DeviceFan:
		return []Device{fan.New(client, info)}
	case thinq.DeviceHood:
		return []Device{hood.New(client, info)}
	case thinq.DeviceMicrowave:
		return []Device{microwave.New(client, info)}
	case thinq.DeviceRange:
		return []Device{oven.New(client, info)}
	case thinq.DeviceRefrigerator:
		return []Device{refrigerator.New(client, info)}
	case thinq.DeviceStyler:
		return []Device{styler.New(client, info)}
	case thinq.DeviceWasher, thinq.DeviceDryer:
		return []Device{washer.New(client, info)}
	case thinq.DeviceTowerWasher, thinq.DeviceTowerDryer:
		var out []Device
		for _, sub := range towerSubDevices[info.Type()] {
			out = append(out, washer.NewTower(client, info, sub))
		}
		return out
	case thinq.DeviceWaterHeater:
		return []Device{waterheater.New(client, info, waterheater.TempUnit(unit))}
	}
	return nil
}
