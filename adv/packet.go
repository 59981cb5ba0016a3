package adv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/radio"
	"github.com/rigado/blescan/sliceops"
)

// Packet is an advertising packet or scan response, crafted field by field
// or parsed from the air.
// Refer to Supplement to Bluetooth Core Specification | CSSv6, Part A.
type Packet struct {
	b    []byte
	max  int
	recs []record
	err  error
}

// Bytes returns the bytes of the packet.
func (p *Packet) Bytes() []byte {
	return p.b
}

// Len returns the length of the packet.
func (p *Packet) Len() int {
	return len(p.b)
}

// NewPacket returns a new legacy advertising Packet.
func NewPacket(fields ...Field) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength), max: MaxEIRPacketLength}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Parse decodes the concatenation of pdus, typically the advertising data
// followed by the scan response. Malformed records do not fail the parse:
// the well-formed ones are decoded, the others are reported raw by
// Extensions, and Err describes the first of them. Only an empty input is an
// error.
func Parse(pdus ...[]byte) (*Packet, error) {
	var b []byte
	for _, bb := range pdus {
		b = append(b, bb...)
	}

	recs, err := decode(b)
	if errors.Cause(err) == EmptyOrNilPdu {
		return nil, errors.Wrap(err, "pdu decode")
	}

	return &Packet{b: b, max: MaxExtendedPacketLength, recs: recs, err: errors.Wrap(err, "pdu decode")}, nil
}

// Err returns the first decode error of a parsed packet, nil when every
// record was well formed.
func (p *Packet) Err() error {
	return p.err
}

// Field is an advertising field which can be appended to a packet.
type Field func(p *Packet) error

// Append appends a field to the packet. It returns ErrNotFit if the field
// doesn't fit into the packet, and leaves the packet intact.
func (p *Packet) Append(f Field) error {
	return f(p)
}

func (p *Packet) append(typ byte, b []byte) error {
	if p.Len()+1+1+len(b) > p.max {
		return ErrNotFit
	}
	p.b = append(p.b, byte(len(b)+1))
	p.b = append(p.b, typ)
	p.b = append(p.b, b...)
	p.recs = append(p.recs, record{typ: typ, data: sliceops.Clone(b)})
	return nil
}

// Raw appends the bytes to the current packet.
// This is helpful for creating new packet from existing packets.
func Raw(b []byte) Field {
	return func(p *Packet) error {
		if p.Len()+len(b) > p.max {
			return ErrNotFit
		}
		recs, err := decode(b)
		if err != nil {
			return errors.Wrap(err, "raw field")
		}
		p.b = append(p.b, b...)
		p.recs = append(p.recs, recs...)
		return nil
	}
}

// Flags is a flags.
func Flags(f byte) Field {
	return func(p *Packet) error {
		return p.append(types.flags, []byte{f})
	}
}

// ShortName is a short local name.
func ShortName(n string) Field {
	return func(p *Packet) error {
		return p.append(types.nameshort, []byte(n))
	}
}

// CompleteName is a complete local name.
func CompleteName(n string) Field {
	return func(p *Packet) error {
		return p.append(types.namecomp, []byte(n))
	}
}

// TxPower is the transmit power level in dBm.
func TxPower(dbm int8) Field {
	return func(p *Packet) error {
		return p.append(types.txpwr, []byte{uint8(dbm)})
	}
}

// ManufacturerData is manufacturer specific data.
func ManufacturerData(id uint16, b []byte) Field {
	return func(p *Packet) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
		return p.append(types.mfgdata, d)
	}
}

// AllUUID is one of the complete service UUID list.
func AllUUID(u string) Field {
	return uuidField(u, types.uuid16comp, types.uuid32comp, types.uuid128comp)
}

// SomeUUID is one of the incomplete service UUID list.
func SomeUUID(u string) Field {
	return uuidField(u, types.uuid16inc, types.uuid32inc, types.uuid128inc)
}

// SolicitedUUID is a service solicitation UUID.
func SolicitedUUID(u string) Field {
	return uuidField(u, types.sol16, types.sol32, types.sol128)
}

func uuidField(u string, t16, t32, t128 byte) Field {
	return func(p *Packet) error {
		b, err := blescan.UUIDBytes(u)
		if err != nil {
			return ErrInvalid
		}
		switch len(b) {
		case 2:
			return p.append(t16, b)
		case 4:
			return p.append(t32, b)
		}
		return p.append(t128, b)
	}
}

// ServiceData16 is service data for a 16bit service uuid
func ServiceData16(id uint16, b []byte) Field {
	return func(p *Packet) error {
		uuid := []byte{uint8(id), uint8(id >> 8)}
		return p.append(types.svc16, append(uuid, b...))
	}
}

// ServiceData is service data for any service uuid.
func ServiceData(u string, b []byte) Field {
	return func(p *Packet) error {
		uuid, err := blescan.UUIDBytes(u)
		if err != nil {
			return ErrInvalid
		}
		t := types.svc128
		switch len(uuid) {
		case 2:
			t = types.svc16
		case 4:
			t = types.svc32
		}
		return p.append(t, append(uuid, b...))
	}
}

func (p *Packet) first(typ byte) ([]byte, bool) {
	for _, r := range p.recs {
		if r.typ == typ && !r.malformed {
			return r.data, true
		}
	}
	return nil, false
}

// Flags returns the flags of the packet.
func (p *Packet) Flags() (flags byte, present bool) {
	if b, ok := p.first(types.flags); ok {
		return b[0], true
	}
	return 0, false
}

// LocalName returns the CompleteName, or the ShortName when only that is
// present.
func (p *Packet) LocalName() (string, bool) {
	if b, ok := p.first(types.namecomp); ok {
		return string(b), true
	}
	if b, ok := p.first(types.nameshort); ok {
		return string(b), true
	}
	return "", false
}

// TxPower returns the TxPower, if it presents.
func (p *Packet) TxPower() (power int, present bool) {
	if b, ok := p.first(types.txpwr); ok {
		return int(int8(b[0])), true
	}
	return 0, false
}

func (p *Packet) uuidsOf(kind fieldKind) []string {
	var u []string
	for _, r := range p.recs {
		dec, ok := pduDecodeMap[r.typ]
		if !ok || r.malformed || dec.kind != kind {
			continue
		}
		u = uuidList(u, r.data, dec.arrayElementSz)
	}
	return u
}

// UUIDs returns the advertised service UUIDs in packet order, complete and
// incomplete lists alike.
func (p *Packet) UUIDs() []string {
	return p.uuidsOf(kindServices)
}

// ServiceSol returns the service solicitation UUIDs.
func (p *Packet) ServiceSol() []string {
	return p.uuidsOf(kindSolicited)
}

// ServiceData returns one entry per service data record, in packet order.
func (p *Packet) ServiceData() []radio.ServiceEntry {
	var s []radio.ServiceEntry
	for _, r := range p.recs {
		dec, ok := pduDecodeMap[r.typ]
		if !ok || r.malformed || dec.kind != kindServiceData {
			continue
		}
		uuid, err := blescan.UUIDFromBytes(r.data[:dec.svcDataUUIDSz])
		if err != nil {
			continue
		}
		s = append(s, radio.ServiceEntry{
			UUID: uuid,
			Data: sliceops.Clone(r.data[dec.svcDataUUIDSz:]),
		})
	}
	return s
}

// ManufacturerData returns one entry per manufacturer specific data record,
// with the little-endian company id split off.
func (p *Packet) ManufacturerData() []radio.ManufacturerEntry {
	var m []radio.ManufacturerEntry
	for _, r := range p.recs {
		if r.typ != types.mfgdata || r.malformed {
			continue
		}
		m = append(m, radio.ManufacturerEntry{
			CompanyID: binary.LittleEndian.Uint16(r.data),
			Data:      sliceops.Clone(r.data[2:]),
		})
	}
	return m
}

// Extensions returns the records of types this package does not model and
// the malformed records of any type, raw and in packet order.
func (p *Packet) Extensions() []radio.Extension {
	var e []radio.Extension
	for _, r := range p.recs {
		if _, ok := pduDecodeMap[r.typ]; ok && !r.malformed {
			continue
		}
		e = append(e, radio.Extension{Type: r.typ, Data: sliceops.Clone(r.data)})
	}
	return e
}

// Fill sets the advertising data fields of rp from the packet. Fields the
// radio packet has no slot for (flags and unmodeled records) are appended to
// rp.Extensions. Address, RSSI and connectability are left alone.
func (p *Packet) Fill(rp *radio.Packet) {
	if n, ok := p.LocalName(); ok {
		rp.Name, rp.HasName = n, true
	}

	rp.TxPower = radio.TxPowerNotPresent
	if tx, ok := p.TxPower(); ok {
		rp.TxPower = tx
	}

	rp.ServiceUUIDs = append(rp.ServiceUUIDs, p.UUIDs()...)
	rp.SolicitedUUIDs = append(rp.SolicitedUUIDs, p.ServiceSol()...)
	rp.ManufacturerData = append(rp.ManufacturerData, p.ManufacturerData()...)
	rp.ServiceData = append(rp.ServiceData, p.ServiceData()...)

	if f, ok := p.Flags(); ok {
		rp.Extensions = append(rp.Extensions, radio.Extension{Type: types.flags, Data: []byte{f}})
	}
	rp.Extensions = append(rp.Extensions, p.Extensions()...)
}

func uuidList(u []string, d []byte, w int) []string {
	for len(d) >= w {
		s, err := blescan.UUIDFromBytes(d[:w])
		if err == nil {
			u = append(u, s)
		}
		d = d[w:]
	}
	return u
}
