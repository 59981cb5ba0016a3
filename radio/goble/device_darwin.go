package goble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
)

// NewDevice opens the CoreBluetooth central. CoreBluetooth picks its own
// scan timing, so id and mode are ignored.
func NewDevice(id int, mode blescan.ScanMode) (ble.Device, error) {
	d, err := darwin.NewDevice()
	if err != nil {
		return nil, errors.Wrap(err, "can't open corebluetooth device")
	}
	return d, nil
}
