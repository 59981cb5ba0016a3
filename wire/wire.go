// Package wire encodes advertisements as the JSON objects exchanged with
// host runtimes.
//
// The canonical form carries manufacturer and service data as explicit
// arrays:
//
//	{"systemId":"1","address":187723572702975,"name":"die","isConnectable":true,
//	 "rssi":-60,"txPowerLevel":4,"services":[...],"overflowServices":[],
//	 "solicitedServices":[],"manufacturersData":[{"companyId":89,"data":[1,2]}],
//	 "servicesData":[{"uuid":"...","data":[3]}],"extensions":[]}
//
// Unmarshal also reads the older flat form, where each manufacturer entry is
// a "manufacturerData<i>" array of signed bytes with the company id in the
// first two (little-endian) and service data is an object keyed by UUID.
package wire

import (
	"regexp"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/radio"
	"github.com/rigado/blescan/sliceops"
)

type manufacturerJSON struct {
	CompanyID uint16 `json:"companyId"`
	Data      Bytes  `json:"data"`
}

type serviceJSON struct {
	UUID string `json:"uuid"`
	Data Bytes  `json:"data"`
}

type extensionJSON struct {
	Type byte  `json:"type"`
	Data Bytes `json:"data"`
}

type advertisementJSON struct {
	SystemID          string             `json:"systemId"`
	Address           uint64             `json:"address"`
	Name              *string            `json:"name,omitempty"`
	IsConnectable     bool               `json:"isConnectable"`
	RSSI              int                `json:"rssi"`
	TxPowerLevel      *int               `json:"txPowerLevel,omitempty"`
	Services          []string           `json:"services"`
	OverflowServices  []string           `json:"overflowServices"`
	SolicitedServices []string           `json:"solicitedServices"`
	ManufacturersData []manufacturerJSON `json:"manufacturersData"`
	ServicesData      []serviceJSON      `json:"servicesData"`
	Extensions        []extensionJSON    `json:"extensions"`
}

// Marshal encodes a in the canonical form.
func Marshal(a blescan.Advertisement) ([]byte, error) {
	j := advertisementJSON{
		SystemID:          a.SystemID,
		Address:           a.Address,
		Name:              a.Name,
		IsConnectable:     a.IsConnectable,
		RSSI:              a.RSSI,
		TxPowerLevel:      a.TxPowerLevel,
		Services:          strs(a.Services),
		OverflowServices:  strs(a.OverflowServices),
		SolicitedServices: strs(a.SolicitedServices),
		ManufacturersData: make([]manufacturerJSON, 0, len(a.ManufacturerData)),
		ServicesData:      make([]serviceJSON, 0, len(a.ServiceData)),
		Extensions:        make([]extensionJSON, 0, len(a.Extensions)),
	}
	for _, md := range a.ManufacturerData {
		j.ManufacturersData = append(j.ManufacturersData, manufacturerJSON{md.CompanyID, sliceops.Clone(md.Data)})
	}
	for _, sd := range a.ServiceData {
		j.ServicesData = append(j.ServicesData, serviceJSON{sd.UUID, sliceops.Clone(sd.Data)})
	}
	for _, e := range a.Extensions {
		j.Extensions = append(j.Extensions, extensionJSON{e.Type, sliceops.Clone(e.Data)})
	}

	b, err := jsoniter.Marshal(j)
	if err != nil {
		return nil, errors.Wrap(err, "marshal advertisement")
	}
	return b, nil
}

var legacyMfgKey = regexp.MustCompile(`^manufacturerData([0-9]+)$`)

// Unmarshal decodes an advertisement in either the canonical or the flat
// form. A txPowerLevel of 127 is the platform's "not present" value and
// decodes as unknown.
func Unmarshal(b []byte) (blescan.Advertisement, error) {
	var j advertisementJSON
	if err := jsoniter.Unmarshal(b, &j); err != nil {
		return blescan.Advertisement{}, errors.Wrap(err, "unmarshal advertisement")
	}

	a := blescan.Advertisement{
		SystemID:          j.SystemID,
		Address:           j.Address,
		Name:              j.Name,
		IsConnectable:     j.IsConnectable,
		RSSI:              j.RSSI,
		TxPowerLevel:      j.TxPowerLevel,
		Services:          strs(j.Services),
		OverflowServices:  strs(j.OverflowServices),
		SolicitedServices: strs(j.SolicitedServices),
		ManufacturerData:  make([]blescan.ManufacturerData, 0, len(j.ManufacturersData)),
		ServiceData:       make([]blescan.ServiceData, 0, len(j.ServicesData)),
		Extensions:        make([]blescan.Extension, 0, len(j.Extensions)),
	}
	if a.TxPowerLevel != nil && *a.TxPowerLevel == radio.TxPowerNotPresent {
		a.TxPowerLevel = nil
	}
	for _, md := range j.ManufacturersData {
		a.ManufacturerData = append(a.ManufacturerData, blescan.ManufacturerData{
			CompanyID: md.CompanyID,
			Data:      sliceops.Clone(md.Data),
		})
	}
	for _, sd := range j.ServicesData {
		a.ServiceData = append(a.ServiceData, blescan.ServiceData{UUID: sd.UUID, Data: sliceops.Clone(sd.Data)})
	}
	for _, e := range j.Extensions {
		a.Extensions = append(a.Extensions, blescan.Extension{Type: e.Type, Data: sliceops.Clone(e.Data)})
	}

	if err := readLegacy(b, &a); err != nil {
		return blescan.Advertisement{}, err
	}
	return a, nil
}

type indexedBlob struct {
	idx  int
	data []byte
}

// readLegacy appends the flat-form manufacturer and service data of b to a.
func readLegacy(b []byte, a *blescan.Advertisement) error {
	var blobs []indexedBlob

	it := jsoniter.ParseBytes(jsoniter.ConfigCompatibleWithStandardLibrary, b)
	it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if m := legacyMfgKey.FindStringSubmatch(key); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				it.ReportError("manufacturer data", err.Error())
				return false
			}
			data, err := readBytes(it)
			if err != nil {
				it.ReportError(key, err.Error())
				return false
			}
			blobs = append(blobs, indexedBlob{idx, data})
			return true
		}

		if key == "serviceData" && it.WhatIsNext() == jsoniter.ObjectValue {
			it.ReadObjectCB(func(it *jsoniter.Iterator, uuid string) bool {
				data, err := readBytes(it)
				if err != nil {
					it.ReportError(uuid, err.Error())
					return false
				}
				if n, err := blescan.NormalizeUUID(uuid); err == nil {
					uuid = n
				}
				a.ServiceData = append(a.ServiceData, blescan.ServiceData{UUID: uuid, Data: data})
				return true
			})
			return it.Error == nil
		}

		it.Skip()
		return true
	})
	if it.Error != nil {
		return errors.Wrap(it.Error, "unmarshal flat advertisement")
	}

	sort.SliceStable(blobs, func(i, j int) bool { return blobs[i].idx < blobs[j].idx })
	for _, bl := range blobs {
		if len(bl.data) < 2 {
			a.Extensions = append(a.Extensions, blescan.Extension{Type: 0xFF, Data: bl.data})
			continue
		}
		a.ManufacturerData = append(a.ManufacturerData, blescan.ManufacturerData{
			CompanyID: uint16(bl.data[0]) | uint16(bl.data[1])<<8,
			Data:      sliceops.Clone(bl.data[2:]),
		})
	}
	return nil
}

func readBytes(it *jsoniter.Iterator) ([]byte, error) {
	out := []byte{}
	var bad error
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		v := it.ReadInt()
		if it.Error != nil {
			return false
		}
		if v < -128 || v > 255 {
			bad = errors.Errorf("byte value %d out of range", v)
			return false
		}
		out = append(out, byte(v))
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, it.Error
}

func strs(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
