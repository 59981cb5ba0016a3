package bluez

import (
	"sort"

	"github.com/godbus/dbus/v5"

	"github.com/rigado/blescan/radio"
)

// properties is the merged org.bluez.Device1 property set of one device.
type properties map[string]dbus.Variant

func (p properties) merge(changes map[string]dbus.Variant, invalidated []string) {
	for k, v := range changes {
		p[k] = v
	}
	for _, k := range invalidated {
		delete(p, k)
	}
}

// advertised reports whether changes carry data from a received advertisement.
func advertised(changes map[string]dbus.Variant) bool {
	for _, k := range []string{"RSSI", "ManufacturerData", "ServiceData", "TxPower", "AdvertisingData"} {
		if _, ok := changes[k]; ok {
			return true
		}
	}
	return false
}

// packet builds a radio packet from the cached properties of the device at
// path.
//
// BlueZ keys ManufacturerData by company id and ServiceData by UUID, keeping
// the last payload of each: a device repeating a company id in one
// advertisement is reported with one entry. The dicts arrive as Go maps, so
// report order is lost and entries come out in key order.
// Connectability is not exposed and is reported false.
func (p properties) packet(path dbus.ObjectPath) radio.Packet {
	pk := radio.Packet{
		SystemID: string(path),
		TxPower:  radio.TxPowerNotPresent,
	}

	if v, ok := p["Address"].Value().(string); ok {
		pk.Address = v
	}
	if v, ok := p["Name"].Value().(string); ok {
		pk.Name, pk.HasName = v, true
	}
	if v, ok := p["RSSI"].Value().(int16); ok {
		pk.RSSI = int(v)
	}
	if v, ok := p["TxPower"].Value().(int16); ok {
		pk.TxPower = int(v)
	}
	if v, ok := p["UUIDs"].Value().([]string); ok {
		pk.ServiceUUIDs = append([]string(nil), v...)
	}

	if md, ok := p["ManufacturerData"].Value().(map[uint16]dbus.Variant); ok {
		ids := make([]int, 0, len(md))
		for id := range md {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		for _, id := range ids {
			b, ok := md[uint16(id)].Value().([]byte)
			if !ok {
				continue
			}
			pk.ManufacturerData = append(pk.ManufacturerData, radio.ManufacturerEntry{CompanyID: uint16(id), Data: b})
		}
	}

	if sd, ok := p["ServiceData"].Value().(map[string]dbus.Variant); ok {
		uuids := make([]string, 0, len(sd))
		for u := range sd {
			uuids = append(uuids, u)
		}
		sort.Strings(uuids)
		for _, u := range uuids {
			b, ok := sd[u].Value().([]byte)
			if !ok {
				continue
			}
			pk.ServiceData = append(pk.ServiceData, radio.ServiceEntry{UUID: u, Data: b})
		}
	}

	if ad, ok := p["AdvertisingData"].Value().(map[byte]dbus.Variant); ok {
		types := make([]int, 0, len(ad))
		for t := range ad {
			types = append(types, int(t))
		}
		sort.Ints(types)
		for _, t := range types {
			if b, ok := ad[byte(t)].Value().([]byte); ok {
				pk.Extensions = append(pk.Extensions, radio.Extension{Type: byte(t), Data: b})
			}
		}
	}

	return pk
}
