// Package oven drives LG cooking ranges and ovens.
package oven

import (
	"context"

	"github.com/ollo69/wideq-go/device"
	"github.com/ollo69/wideq-go/thinq"
)

const (
	itemStateOff = "@OV_STATE_INITIAL_W"
	rootData     = "ovenState"

	unitCelsius    = "CELSIUS"
	unitFahrenheit = "FAHRENHEIT"
)

// ovenTempUnit maps the MonTempUnit payload labels onto the unit names.
var ovenTempUnit = map[string]string{
	"0":          unitFahrenheit,
	"1":          unitCelsius,
	"FAHRENHEIT": unitFahrenheit,
	"CELSIUS":    unitCelsius,
}

// Device is the cooking range facade. The appliance is monitor only, every
// knob is on the front panel.
type Device struct {
	*device.Base

	status *Status
}

// New creates a cooking range facade.
func New(client *thinq.Client, info *thinq.DeviceInfo) *Device {
	d := &Device{Base: device.NewBase(client, info)}
	d.status = newStatus(d, nil)
	return d
}

// Status returns the last polled status.
func (d *Device) Status() *Status { return d.status }

// ResetStatus clears the last polled status.
func (d *Device) ResetStatus() *Status {
	d.status = newStatus(d, nil)
	return d.status
}

// Poll fetches the device's current status.
func (d *Device) Poll(ctx context.Context) (*Status, error) {
	res, err := d.PollData(ctx, device.PollOptions{SnapshotKey: rootData})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	d.status = newStatus(d, res)
	return d.status, nil
}
