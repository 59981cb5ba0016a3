package blescan

import (
	"fmt"
	"strings"
)

// Advertisement is the canonical record built from one received advertisement
// packet. A new Advertisement is built for every packet, even from the same
// device, and none of its slices alias buffers owned by the radio layer.
type Advertisement struct {
	// SystemID is an opaque per-process identifier assigned by the OS stack.
	// It is not stable across OS sessions.
	SystemID string

	// Address is the 48-bit device address, last textual octet in bits 0-7.
	// Zero when the stack only exposes a non-MAC identifier (CoreBluetooth).
	Address uint64

	// Name is nil when the OS reported no local name.
	Name *string

	IsConnectable bool
	RSSI          int

	// TxPowerLevel is nil when the transmit power is unknown.
	TxPowerLevel *int

	Services          []string
	OverflowServices  []string
	SolicitedServices []string

	ManufacturerData []ManufacturerData
	ServiceData      []ServiceData

	// Extensions holds advertisement fields that are not modeled above.
	Extensions []Extension
}

// ManufacturerData is a vendor payload tagged with its company identifier.
type ManufacturerData struct {
	CompanyID uint16
	Data      []byte
}

// ServiceData is a payload associated with a service UUID.
type ServiceData struct {
	UUID string
	Data []byte
}

// Extension is an advertisement field the record does not model, kept raw.
// Type is the AD type when known, 0xFF for unsplittable manufacturer blobs.
type Extension struct {
	Type byte
	Data []byte
}

// HasName reports whether the advertisement carried a local name.
func (a Advertisement) HasName() bool { return a.Name != nil }

// LocalName returns the local name, or "" when none was reported.
func (a Advertisement) LocalName() string {
	if a.Name == nil {
		return ""
	}
	return *a.Name
}

// TxPower returns the transmit power level and whether it is known.
func (a Advertisement) TxPower() (int, bool) {
	if a.TxPowerLevel == nil {
		return 0, false
	}
	return *a.TxPowerLevel, true
}

// HasService reports whether u (16, 32 or 128-bit text) is advertised.
func (a Advertisement) HasService(u string) bool {
	n, err := NormalizeUUID(u)
	if err != nil {
		return false
	}
	for _, s := range a.Services {
		if s == n {
			return true
		}
	}
	return false
}

// ManufacturerDataFor returns every payload reported under companyID, in order.
func (a Advertisement) ManufacturerDataFor(companyID uint16) [][]byte {
	var out [][]byte
	for _, md := range a.ManufacturerData {
		if md.CompanyID == companyID {
			out = append(out, md.Data)
		}
	}
	return out
}

func (a Advertisement) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] rssi=%d", a.SystemID, FormatAddress(a.Address), a.RSSI)
	if a.Name != nil {
		fmt.Fprintf(&sb, " name=%q", *a.Name)
	}
	if a.TxPowerLevel != nil {
		fmt.Fprintf(&sb, " tx=%d", *a.TxPowerLevel)
	}
	if a.IsConnectable {
		sb.WriteString(" connectable")
	}
	if len(a.Services) != 0 {
		fmt.Fprintf(&sb, " services=%v", a.Services)
	}
	for _, md := range a.ManufacturerData {
		fmt.Fprintf(&sb, " mfg[%04x]=% x", md.CompanyID, md.Data)
	}
	for _, sd := range a.ServiceData {
		fmt.Fprintf(&sb, " svc[%s]=% x", sd.UUID, sd.Data)
	}
	return sb.String()
}
