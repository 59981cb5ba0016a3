// Package radio is the boundary between the scan engine and a platform BLE
// scanning API. A Provider starts and stops OS scans and reports raw packets
// and failures through a Callback, on goroutines the engine does not own.
package radio

import (
	"github.com/rigado/blescan"
)

// Provider is a platform scanning API.
type Provider interface {
	// StartScan starts a scan reporting to cb. filters holds canonical
	// service UUIDs; an empty list means no filtering. Failures after a
	// successful start are reported through cb.OnScanFailed.
	StartScan(filters []string, settings blescan.ScanSettings, cb Callback) error

	// StopScan stops the scan registered with cb. Stopping an unknown
	// callback is a no-op.
	StopScan(cb Callback) error
}

// Callback receives scan events from a Provider.
type Callback interface {
	OnScanResult(p Packet)
	OnBatchScanResults(ps []Packet)
	OnScanFailed(code int)
}

// TxPowerNotPresent is the TxPower value stacks report when the transmit
// power is unknown.
const TxPowerNotPresent = 127

// Packet is one advertisement as the OS stack reports it, before
// normalization.
type Packet struct {
	// SystemID identifies the OS device object, if the stack has one.
	SystemID string
	// Address is the address text, "AA:BB:CC:DD:EE:FF" on stacks that expose
	// the MAC, a platform identifier otherwise.
	Address string

	Name    string
	HasName bool

	Connectable bool
	RSSI        int
	TxPower     int

	ServiceUUIDs   []string
	OverflowUUIDs  []string
	SolicitedUUIDs []string

	// ManufacturerData holds entries from stacks that group by company id.
	ManufacturerData []ManufacturerEntry
	// ManufacturerBlobs holds manufacturer data from stacks that report the
	// company id inline as the first two little-endian bytes.
	ManufacturerBlobs [][]byte

	ServiceData []ServiceEntry

	Extensions []Extension
}

// ManufacturerEntry ...
type ManufacturerEntry struct {
	CompanyID uint16
	Data      []byte
}

// ServiceEntry ...
type ServiceEntry struct {
	UUID string
	Data []byte
}

// Extension is a raw field the stack exposes but the packet does not model.
type Extension struct {
	Type byte
	Data []byte
}
