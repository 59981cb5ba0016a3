// Package goble scans through github.com/go-ble/ble: raw HCI sockets on Linux
// and CoreBluetooth on macOS.
package goble

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/adv"
	"github.com/rigado/blescan/radio"
)

// Scanner is the part of ble.Device a Provider needs.
type Scanner interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
}

// rawAdvertisement is implemented by HCI advertisements, which keep the PDUs
// they were parsed from.
type rawAdvertisement interface {
	Data() []byte
	ScanResponse() []byte
}

type scan struct {
	cancel context.CancelFunc
	sink   radio.Sink
}

// Provider is a radio.Provider over a go-ble device. The controller runs one
// scan at a time.
type Provider struct {
	dev Scanner
	log blescan.Logger

	mu    sync.Mutex
	scans map[radio.Callback]*scan
	wg    sync.WaitGroup
}

// NewProvider returns a Provider scanning with dev.
func NewProvider(dev Scanner) *Provider {
	return &Provider{
		dev:   dev,
		log:   blescan.GetLogger().ChildLogger(map[string]interface{}{"component": "goble"}),
		scans: make(map[radio.Callback]*scan),
	}
}

func (p *Provider) StartScan(filters []string, settings blescan.ScanSettings, cb radio.Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.scans) != 0 {
		return radio.Errorf(radio.ScanFailedAlreadyStarted, "hci scan already running")
	}
	if !settings.Legacy {
		p.log.Debug("extended advertising is not supported, scanning legacy PDUs only")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &scan{
		cancel: cancel,
		sink:   radio.NewSink(cb, radio.NewFilterSet(filters), settings),
	}
	p.scans[cb] = s

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		err := p.dev.Scan(ctx, settings.AllowDuplicates, func(a ble.Advertisement) {
			s.sink.Put(Packet(a))
		})
		if err != nil && ctx.Err() == nil {
			p.log.Errorf("scan: %v", err)
			s.sink.Fail(radio.CodeOf(errors.Wrap(err, "hci scan")))
		}
	}()
	return nil
}

// StopScan cancels the scan registered with cb. It does not wait for the
// device to wind down; Close does.
func (p *Provider) StopScan(cb radio.Callback) error {
	p.mu.Lock()
	s, ok := p.scans[cb]
	delete(p.scans, cb)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	s.sink.Close()
	s.cancel()
	return nil
}

// Close stops every scan and waits for the device to return.
func (p *Provider) Close() error {
	p.mu.Lock()
	for cb, s := range p.scans {
		delete(p.scans, cb)
		s.sink.Close()
		s.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Packet converts a go-ble advertisement. HCI advertisements are re-parsed
// from their PDUs so that every record survives, repeated manufacturer data
// included; other stacks go through the accessors.
func Packet(a ble.Advertisement) radio.Packet {
	p := radio.Packet{
		RSSI:        a.RSSI(),
		Connectable: a.Connectable(),
		TxPower:     radio.TxPowerNotPresent,
	}
	if addr := a.Addr(); addr != nil {
		p.Address = addr.String()
		p.SystemID = p.Address
	}

	if raw, ok := a.(rawAdvertisement); ok {
		if pkt, err := adv.Parse(raw.Data(), raw.ScanResponse()); err == nil {
			if err := pkt.Err(); err != nil {
				blescan.GetLogger().Debugf("%s: %v", p.Address, err)
			}
			pkt.Fill(&p)
			return p
		}
	}

	if n := a.LocalName(); n != "" {
		p.Name, p.HasName = n, true
	}
	if tx := a.TxPowerLevel(); tx != radio.TxPowerNotPresent {
		p.TxPower = tx
	}

	p.ServiceUUIDs = uuids(a.Services())
	p.OverflowUUIDs = uuids(a.OverflowService())
	p.SolicitedUUIDs = uuids(a.SolicitedService())

	if md := a.ManufacturerData(); len(md) != 0 {
		p.ManufacturerBlobs = [][]byte{md}
	}
	for _, sd := range a.ServiceData() {
		u, err := blescan.UUIDFromBytes(sd.UUID)
		if err != nil {
			continue
		}
		p.ServiceData = append(p.ServiceData, radio.ServiceEntry{UUID: u, Data: sd.Data})
	}
	return p
}

func uuids(in []ble.UUID) []string {
	var out []string
	for _, u := range in {
		s, err := blescan.UUIDFromBytes(u)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
