// Package decoder normalizes radio packets into canonical advertisements.
package decoder

import (
	"encoding/binary"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/radio"
	"github.com/rigado/blescan/sliceops"
)

// Decode builds the canonical record for one packet. It never fails: fields
// that are missing or malformed come out absent or empty, and bytes that
// cannot be given a structured home are kept in Extensions.
func Decode(p radio.Packet) blescan.Advertisement {
	a := blescan.Advertisement{
		SystemID:          p.SystemID,
		IsConnectable:     p.Connectable,
		RSSI:              p.RSSI,
		Services:          uuids(p.ServiceUUIDs),
		OverflowServices:  uuids(p.OverflowUUIDs),
		SolicitedServices: uuids(p.SolicitedUUIDs),
		ManufacturerData:  []blescan.ManufacturerData{},
		ServiceData:       []blescan.ServiceData{},
		Extensions:        []blescan.Extension{},
	}

	if addr, err := blescan.ParseAddress(p.Address); err == nil {
		a.Address = addr
	} else if p.Address != "" {
		blescan.GetLogger().Debugf("decoder: address %q: %v", p.Address, err)
	}

	if p.HasName {
		name := p.Name
		a.Name = &name
	}

	if p.TxPower != radio.TxPowerNotPresent {
		tx := p.TxPower
		a.TxPowerLevel = &tx
	}

	for _, md := range p.ManufacturerData {
		a.ManufacturerData = append(a.ManufacturerData, blescan.ManufacturerData{
			CompanyID: md.CompanyID,
			Data:      sliceops.Clone(md.Data),
		})
	}

	for _, blob := range p.ManufacturerBlobs {
		if len(blob) < 2 {
			a.Extensions = append(a.Extensions, blescan.Extension{Type: 0xFF, Data: sliceops.Clone(blob)})
			continue
		}
		a.ManufacturerData = append(a.ManufacturerData, blescan.ManufacturerData{
			CompanyID: binary.LittleEndian.Uint16(blob),
			Data:      sliceops.Clone(blob[2:]),
		})
	}

	for _, sd := range p.ServiceData {
		a.ServiceData = append(a.ServiceData, blescan.ServiceData{
			UUID: uuid(sd.UUID),
			Data: sliceops.Clone(sd.Data),
		})
	}

	for _, e := range p.Extensions {
		a.Extensions = append(a.Extensions, blescan.Extension{Type: e.Type, Data: sliceops.Clone(e.Data)})
	}

	return a
}

// DecodeBatch decodes ps in order.
func DecodeBatch(ps []radio.Packet) []blescan.Advertisement {
	out := make([]blescan.Advertisement, 0, len(ps))
	for _, p := range ps {
		out = append(out, Decode(p))
	}
	return out
}

// uuid returns the canonical form of s, or s itself when it does not parse.
func uuid(s string) string {
	n, err := blescan.NormalizeUUID(s)
	if err != nil {
		return s
	}
	return n
}

func uuids(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, uuid(s))
	}
	return out
}
