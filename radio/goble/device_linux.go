package goble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci/cmd"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
)

// ScanParams returns the controller scan parameters for mode. Intervals and
// windows are in units of 0.625ms.
func ScanParams(mode blescan.ScanMode) cmd.LESetScanParameters {
	p := cmd.LESetScanParameters{
		LEScanType:           0x01, // active
		OwnAddressType:       0x00, // public
		ScanningFilterPolicy: 0x00, // accept all
	}
	switch mode {
	case blescan.ScanModeLowLatency:
		p.LEScanInterval, p.LEScanWindow = 0x0010, 0x0010 // 10ms, 10ms
	case blescan.ScanModeBalanced:
		p.LEScanInterval, p.LEScanWindow = 0x1999, 0x0666 // 4096ms, 1024ms
	case blescan.ScanModeOpportunistic:
		p.LEScanType = 0x00 // passive
		fallthrough
	default:
		p.LEScanInterval, p.LEScanWindow = 0x2000, 0x0333 // 5120ms, 512ms
	}
	return p
}

// NewDevice opens HCI device id. Scan parameters are fixed when the device is
// opened, so mode applies to every scan on it.
func NewDevice(id int, mode blescan.ScanMode) (ble.Device, error) {
	d, err := linux.NewDevice(ble.OptDeviceID(id), ble.OptScanParams(ScanParams(mode)))
	if err != nil {
		return nil, errors.Wrapf(err, "can't open hci%d", id)
	}
	return d, nil
}
