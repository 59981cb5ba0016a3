//go:build !linux && !darwin

package goble

import (
	"runtime"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
)

// NewDevice always fails: go-ble has no backend for this platform.
func NewDevice(id int, mode blescan.ScanMode) (ble.Device, error) {
	return nil, errors.Errorf("go-ble: %s is not supported", runtime.GOOS)
}
