// Package tinygo scans through tinygo.org/x/bluetooth, which covers BlueZ,
// CoreBluetooth, WinRT and bare-metal SoftDevice stacks.
package tinygo

import (
	"sync"

	"github.com/pkg/errors"
	"tinygo.org/x/bluetooth"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/adv"
	"github.com/rigado/blescan/radio"
)

// Adapter is the part of *bluetooth.Adapter a Provider needs.
type Adapter interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// Payload is the part of bluetooth.AdvertisementPayload a Provider reads.
type Payload interface {
	LocalName() string
	HasServiceUUID(bluetooth.UUID) bool
	Bytes() []byte
	ManufacturerData() []bluetooth.ManufacturerDataElement
}

type filter struct {
	text string
	uuid bluetooth.UUID
}

// Provider is a radio.Provider over a tinygo adapter. The adapter runs one
// scan at a time; filtering and batching happen in software.
type Provider struct {
	adapter Adapter
	log     blescan.Logger

	mu      sync.Mutex
	current radio.Callback
	sink    radio.Sink
	wg      sync.WaitGroup
}

// NewProvider returns a Provider scanning with a, which must be enabled.
func NewProvider(a Adapter) *Provider {
	return &Provider{
		adapter: a,
		log:     blescan.GetLogger().ChildLogger(map[string]interface{}{"component": "tinygo"}),
	}
}

func (p *Provider) StartScan(filters []string, settings blescan.ScanSettings, cb radio.Callback) error {
	fs := make([]filter, 0, len(filters))
	for _, f := range filters {
		u, err := bluetooth.ParseUUID(f)
		if err != nil {
			return radio.Errorf(radio.ScanFailedInternalError, "filter %q: %v", f, err)
		}
		fs = append(fs, filter{text: f, uuid: u})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return radio.Errorf(radio.ScanFailedAlreadyStarted, "adapter scan already running")
	}

	sink := radio.NewSink(cb, nil, settings)
	p.current, p.sink = cb, sink

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		err := p.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			if r.AdvertisementPayload == nil {
				return
			}
			pk, ok := packet(r.Address.String(), r.RSSI, r.AdvertisementPayload, fs)
			if ok {
				sink.Put(pk)
			}
		})
		if err != nil && !p.stopped(sink) {
			p.log.Errorf("scan: %v", err)
			sink.Fail(radio.CodeOf(errors.Wrap(err, "adapter scan")))
		}
	}()
	return nil
}

func (p *Provider) stopped(s radio.Sink) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink != s
}

func (p *Provider) StopScan(cb radio.Callback) error {
	p.mu.Lock()
	if p.current != cb || cb == nil {
		p.mu.Unlock()
		return nil
	}
	sink := p.sink
	p.current, p.sink = nil, nil
	p.mu.Unlock()

	sink.Close()
	// fails when Scan has not been entered yet; the sink is closed either way
	if err := p.adapter.StopScan(); err != nil {
		p.log.Warnf("stop scan: %v", err)
	}
	return nil
}

// Close stops the running scan, if any, and waits for the adapter to return.
func (p *Provider) Close() error {
	p.mu.Lock()
	cb := p.current
	p.mu.Unlock()

	err := p.StopScan(cb)
	p.wg.Wait()
	return err
}

// packet converts one tinygo scan result. It reports false when filters are
// given and none of them is advertised. Stacks that expose the raw PDU are
// re-parsed from it; the others only report the local name, manufacturer
// data and the filter services they matched.
func packet(addr string, rssi int16, pl Payload, filters []filter) (radio.Packet, bool) {
	var matched []string
	for _, f := range filters {
		if pl.HasServiceUUID(f.uuid) {
			matched = append(matched, f.text)
		}
	}
	if len(filters) != 0 && len(matched) == 0 {
		return radio.Packet{}, false
	}

	p := radio.Packet{
		SystemID: addr,
		Address:  addr,
		RSSI:     int(rssi),
		TxPower:  radio.TxPowerNotPresent,
	}

	if b := pl.Bytes(); len(b) != 0 {
		if pkt, err := adv.Parse(b); err == nil {
			if err := pkt.Err(); err != nil {
				blescan.GetLogger().Debugf("%s: %v", addr, err)
			}
			pkt.Fill(&p)
			return p, true
		}
	}

	if n := pl.LocalName(); n != "" {
		p.Name, p.HasName = n, true
	}
	p.ServiceUUIDs = matched
	for _, md := range pl.ManufacturerData() {
		p.ManufacturerData = append(p.ManufacturerData, radio.ManufacturerEntry{
			CompanyID: md.CompanyID,
			Data:      md.Data,
		})
	}
	return p, true
}
