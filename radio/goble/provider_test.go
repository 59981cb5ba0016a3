package goble

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/adv"
	"github.com/rigado/blescan/radio"
	"github.com/rigado/blescan/radio/radiotest"
	scanpkg "github.com/rigado/blescan/scan"
)

type fakeAdv struct {
	addr     string
	name     string
	rssi     int
	tx       int
	services []ble.UUID
	md       []byte
	sd       []ble.ServiceData
}

func (a *fakeAdv) LocalName() string              { return a.name }
func (a *fakeAdv) ManufacturerData() []byte       { return a.md }
func (a *fakeAdv) ServiceData() []ble.ServiceData { return a.sd }
func (a *fakeAdv) Services() []ble.UUID           { return a.services }
func (a *fakeAdv) OverflowService() []ble.UUID    { return nil }
func (a *fakeAdv) TxPowerLevel() int              { return a.tx }
func (a *fakeAdv) Connectable() bool              { return true }
func (a *fakeAdv) SolicitedService() []ble.UUID   { return nil }
func (a *fakeAdv) RSSI() int                      { return a.rssi }
func (a *fakeAdv) Addr() ble.Addr                 { return ble.NewAddr(a.addr) }

type rawFakeAdv struct {
	fakeAdv
	data, sr []byte
}

func (a *rawFakeAdv) Data() []byte         { return a.data }
func (a *rawFakeAdv) ScanResponse() []byte { return a.sr }

// fakeDevice replays advs on every scan, then blocks until cancelled or
// returns err.
type fakeDevice struct {
	advs []ble.Advertisement
	err  error

	mu       sync.Mutex
	allowDup []bool
}

func (d *fakeDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	d.mu.Lock()
	d.allowDup = append(d.allowDup, allowDup)
	d.mu.Unlock()

	for _, a := range d.advs {
		h(a)
	}
	if d.err != nil {
		return d.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestPacketAccessors(t *testing.T) {
	p := Packet(&fakeAdv{
		addr:     "aa:bb:cc:dd:ee:ff",
		name:     "die",
		rssi:     -70,
		tx:       radio.TxPowerNotPresent,
		services: []ble.UUID{ble.UUID16(0x180d)},
		md:       []byte{0x59, 0x00, 0x01},
		sd:       []ble.ServiceData{{UUID: ble.UUID16(0xfeaa), Data: []byte{0x10}}},
	})

	assert.Equal(t, "aa:bb:cc:dd:ee:ff", p.Address)
	assert.True(t, p.HasName)
	assert.Equal(t, "die", p.Name)
	assert.Equal(t, -70, p.RSSI)
	assert.True(t, p.Connectable)
	assert.Equal(t, radio.TxPowerNotPresent, p.TxPower)
	assert.Equal(t, []string{blescan.ShortUUID(0x180d)}, p.ServiceUUIDs)
	assert.Equal(t, [][]byte{{0x59, 0x00, 0x01}}, p.ManufacturerBlobs)
	assert.Equal(t, []radio.ServiceEntry{{UUID: blescan.ShortUUID(0xfeaa), Data: []byte{0x10}}}, p.ServiceData)
}

func TestPacketRaw(t *testing.T) {
	ad, err := adv.NewPacket(
		adv.Flags(adv.FlagGeneralDiscoverable),
		adv.ManufacturerData(0x0059, []byte{1}),
		adv.ManufacturerData(0x0059, []byte{2}),
	)
	require.NoError(t, err)
	sr, err := adv.NewPacket(adv.CompleteName("die"), adv.TxPower(4))
	require.NoError(t, err)

	p := Packet(&rawFakeAdv{
		fakeAdv: fakeAdv{addr: "01:02:03:04:05:06", rssi: -50, name: "ignored"},
		data:    ad.Bytes(),
		sr:      sr.Bytes(),
	})

	assert.Equal(t, "die", p.Name)
	assert.Equal(t, 4, p.TxPower)
	assert.Equal(t, []radio.ManufacturerEntry{
		{CompanyID: 0x0059, Data: []byte{1}},
		{CompanyID: 0x0059, Data: []byte{2}},
	}, p.ManufacturerData)
	assert.Empty(t, p.ManufacturerBlobs)
}

func TestPacketRawMalformed(t *testing.T) {
	ad, err := adv.NewPacket(adv.Flags(adv.FlagGeneralDiscoverable), adv.TxPower(-4))
	require.NoError(t, err)

	p := Packet(&rawFakeAdv{
		fakeAdv: fakeAdv{addr: "01:02:03:04:05:06", rssi: -50, name: "ignored"},
		data:    ad.Bytes(),
		sr:      []byte{0x06, 0x09, 'd', 'i'}, // name runs past the end
	})

	assert.False(t, p.HasName)
	assert.Equal(t, -4, p.TxPower)
	assert.Equal(t, []radio.Extension{
		{Type: 0x01, Data: []byte{adv.FlagGeneralDiscoverable}},
		{Type: 0x09, Data: []byte{'d', 'i'}},
	}, p.Extensions)
}

func TestProviderScan(t *testing.T) {
	dev := &fakeDevice{advs: []ble.Advertisement{
		&fakeAdv{addr: "aa:bb:cc:dd:ee:ff", rssi: -1, services: []ble.UUID{ble.UUID16(0x180d)}},
		&fakeAdv{addr: "00:00:00:00:00:02", rssi: -2},
	}}
	p := NewProvider(dev)
	reg := scanpkg.NewRegistry(p)
	rec := radiotest.NewRecorder()

	_, err := reg.Start([]string{"180d"}, rec, blescan.OptAllowDuplicates(false))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.Results()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(0xAABBCCDDEEFF), rec.Results()[0].Address)

	// the controller runs one scan at a time
	err = p.StartScan(nil, blescan.DefaultScanSettings(), &scanpkg.Session{})
	assert.Equal(t, radio.ScanFailedAlreadyStarted, radio.CodeOf(err))

	require.NoError(t, reg.Stop())
	require.NoError(t, p.Close())
	assert.Equal(t, []bool{false}, dev.allowDup)
}

func TestProviderScanError(t *testing.T) {
	dev := &fakeDevice{err: errors.New("hci: controller gone")}
	p := NewProvider(dev)
	reg := scanpkg.NewRegistry(p)
	rec := radiotest.NewRecorder()

	_, err := reg.Start(nil, rec)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.Failures()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, blescan.InternalError, rec.Failures()[0])

	require.NoError(t, reg.Stop())
	require.NoError(t, p.Close())
}

func TestStopUnknown(t *testing.T) {
	p := NewProvider(&fakeDevice{})
	assert.NoError(t, p.StopScan(&scanpkg.Session{}))
	assert.NoError(t, p.Close())
}
