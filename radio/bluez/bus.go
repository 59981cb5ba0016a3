// Package bluez scans and watches the adapter through the BlueZ D-Bus API.
package bluez

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/rigado/blescan/radio"
)

const (
	bluezService = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
	objMgrIface  = "org.freedesktop.DBus.ObjectManager"

	propertiesChanged = propsIface + ".PropertiesChanged"
	interfacesAdded   = objMgrIface + ".InterfacesAdded"
	interfacesRemoved = objMgrIface + ".InterfacesRemoved"
)

// Conn is the part of *dbus.Conn the package uses.
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// Dial connects to the system bus.
func Dial() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to system bus")
	}
	return conn, nil
}

// AdapterPath returns the object path of adapter name, e.g. "hci0".
func AdapterPath(name string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + name)
}

func errorName(err error) string {
	var pe *dbus.Error
	if errors.As(err, &pe) {
		return pe.Name
	}
	var ve dbus.Error
	if errors.As(err, &ve) {
		return ve.Name
	}
	return ""
}

// scanError maps a BlueZ error reply to a scan failure code.
func scanError(err error, op string) error {
	if err == nil {
		return nil
	}

	code := radio.ScanFailedInternalError
	switch errorName(err) {
	case "org.bluez.Error.InProgress":
		code = radio.ScanFailedAlreadyStarted
	case "org.bluez.Error.NotSupported":
		code = radio.ScanFailedFeatureUnsupported
	case "org.bluez.Error.NotAuthorized",
		"org.freedesktop.DBus.Error.AccessDenied",
		"org.freedesktop.DBus.Error.ServiceUnknown":
		code = radio.ScanFailedApplicationRegistrationFailed
	case "org.freedesktop.DBus.Error.LimitsExceeded",
		"org.freedesktop.DBus.Error.NoMemory":
		code = radio.ScanFailedOutOfHardwareResources
	}
	return &radio.ScanError{Code: code, Err: errors.Wrap(err, op)}
}
