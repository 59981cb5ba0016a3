package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/adv"
	"github.com/rigado/blescan/radio"
)

func TestAddressLayout(t *testing.T) {
	a := Decode(radio.Packet{Address: "AA:BB:CC:DD:EE:FF", TxPower: radio.TxPowerNotPresent})
	assert.Equal(t, uint64(0xAABBCCDDEEFF), a.Address)
	assert.Equal(t, uint64(0xFF), a.Address&0xFF)
	assert.Equal(t, uint64(0xEE), (a.Address>>8)&0xFF)

	a = Decode(radio.Packet{Address: "01:02:03:04:05:06"})
	assert.Equal(t, uint64(0x010203040506), a.Address)
}

func TestAddressNonMAC(t *testing.T) {
	a := Decode(radio.Packet{Address: "5B1F2E3C-0D4A-4A55-9C2B-6B0A1E2F3D4C"})
	assert.Zero(t, a.Address)

	a = Decode(radio.Packet{})
	assert.Zero(t, a.Address)
}

func TestNoManufacturerData(t *testing.T) {
	a := Decode(radio.Packet{Address: "00:00:00:00:00:01"})
	require.NotNil(t, a.ManufacturerData)
	assert.Empty(t, a.ManufacturerData)
	require.NotNil(t, a.ServiceData)
	require.NotNil(t, a.Services)
	assert.Empty(t, a.Extensions)
}

func TestTwoManufacturerEntries(t *testing.T) {
	a := Decode(radio.Packet{
		ManufacturerData: []radio.ManufacturerEntry{
			{CompanyID: 0x0059, Data: []byte{0x01}},
			{CompanyID: 0x004c, Data: []byte{0x02, 0x15}},
		},
	})
	assert.Equal(t, []blescan.ManufacturerData{
		{CompanyID: 0x0059, Data: []byte{0x01}},
		{CompanyID: 0x004c, Data: []byte{0x02, 0x15}},
	}, a.ManufacturerData)
}

func TestDuplicateCompanyIDs(t *testing.T) {
	a := Decode(radio.Packet{
		ManufacturerBlobs: [][]byte{
			{0x4c, 0x00, 0x01},
			{0x4c, 0x00, 0x02},
		},
	})
	assert.Equal(t, [][]byte{{0x01}, {0x02}}, a.ManufacturerDataFor(0x004c))
}

func TestManufacturerBlobs(t *testing.T) {
	a := Decode(radio.Packet{
		ManufacturerBlobs: [][]byte{
			{0x59, 0x00, 0xaa, 0xbb},
			{0x01},
		},
	})
	assert.Equal(t, []blescan.ManufacturerData{
		{CompanyID: 0x0059, Data: []byte{0xaa, 0xbb}},
	}, a.ManufacturerData)
	assert.Equal(t, []blescan.Extension{{Type: 0xFF, Data: []byte{0x01}}}, a.Extensions)
}

func TestTxPower(t *testing.T) {
	a := Decode(radio.Packet{TxPower: radio.TxPowerNotPresent})
	assert.Nil(t, a.TxPowerLevel)

	a = Decode(radio.Packet{TxPower: 0})
	require.NotNil(t, a.TxPowerLevel)
	assert.Equal(t, 0, *a.TxPowerLevel)

	a = Decode(radio.Packet{TxPower: -8})
	tx, ok := a.TxPower()
	assert.True(t, ok)
	assert.Equal(t, -8, tx)
}

func TestName(t *testing.T) {
	a := Decode(radio.Packet{Name: "ignored"})
	assert.False(t, a.HasName())

	a = Decode(radio.Packet{Name: "", HasName: true})
	assert.True(t, a.HasName())
	assert.Equal(t, "", a.LocalName())
}

func TestServicesOrderAndNormalization(t *testing.T) {
	a := Decode(radio.Packet{
		ServiceUUIDs: []string{"180F", "6E400001-B5A3-F393-E0A9-E50E24DCCA9E", "180d", "garbage"},
	})
	assert.Equal(t, []string{
		"0000180f-0000-1000-8000-00805f9b34fb",
		"6e400001-b5a3-f393-e0a9-e50e24dcca9e",
		"0000180d-0000-1000-8000-00805f9b34fb",
		"garbage",
	}, a.Services)
	assert.True(t, a.HasService("180d"))
}

func TestServiceDataDuplicates(t *testing.T) {
	a := Decode(radio.Packet{
		ServiceData: []radio.ServiceEntry{
			{UUID: "feaa", Data: []byte{1}},
			{UUID: "FEAA", Data: []byte{2}},
		},
	})
	u := blescan.ShortUUID(0xfeaa)
	assert.Equal(t, []blescan.ServiceData{{UUID: u, Data: []byte{1}}, {UUID: u, Data: []byte{2}}}, a.ServiceData)
}

func TestNoAliasing(t *testing.T) {
	md := []byte{1, 2, 3}
	p := radio.Packet{ManufacturerData: []radio.ManufacturerEntry{{CompanyID: 1, Data: md}}}
	a := Decode(p)
	md[0] = 0xff
	assert.Equal(t, byte(1), a.ManufacturerData[0].Data[0])
}

func TestDecodeBatchOrder(t *testing.T) {
	out := DecodeBatch([]radio.Packet{{RSSI: -1}, {RSSI: -2}, {RSSI: -3}})
	require.Len(t, out, 3)
	for i, a := range out {
		assert.Equal(t, -(i + 1), a.RSSI)
	}
}

func TestMalformedRawRecordsSurface(t *testing.T) {
	pkt, err := adv.Parse([]byte{
		0x02, 0x0a, 0x04,
		0x05, 0x16, 0x0d, 0x18, 0xaa, 0xbb,
		0x04, 0x03, 0x0f, 0x18, 0x12, // odd length 16-bit uuid list
		0x02, 0xff, 0x59, // too short for a company id
	})
	require.NoError(t, err)
	require.Error(t, pkt.Err())

	p := radio.Packet{Address: "AA:BB:CC:DD:EE:FF"}
	pkt.Fill(&p)
	a := Decode(p)

	tx, ok := a.TxPower()
	assert.True(t, ok)
	assert.Equal(t, 4, tx)
	assert.Equal(t, []blescan.ServiceData{{UUID: blescan.ShortUUID(0x180d), Data: []byte{0xaa, 0xbb}}}, a.ServiceData)
	assert.Empty(t, a.Services)
	assert.Empty(t, a.ManufacturerData)
	assert.Equal(t, []blescan.Extension{
		{Type: 0x03, Data: []byte{0x0f, 0x18, 0x12}},
		{Type: 0xff, Data: []byte{0x59}},
	}, a.Extensions)
}
