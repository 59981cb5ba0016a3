package bluez

import (
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/radio"
)

// Provider is a radio.Provider running BlueZ discovery on one adapter. BlueZ
// reports advertisements as device property changes; the provider keeps the
// merged properties of each device and emits a packet per change.
type Provider struct {
	conn    Conn
	adapter dbus.ObjectPath
	log     blescan.Logger

	mu      sync.Mutex
	current radio.Callback
	sink    radio.Sink
	signals chan *dbus.Signal
	done    chan struct{}
	devices map[dbus.ObjectPath]properties
	wg      sync.WaitGroup
}

// NewProvider returns a Provider for adapter (e.g. "hci0") on conn.
func NewProvider(conn Conn, adapter string) *Provider {
	return &Provider{
		conn:    conn,
		adapter: AdapterPath(adapter),
		log:     blescan.GetLogger().ChildLogger(map[string]interface{}{"component": "bluez", "adapter": adapter}),
	}
}

func (p *Provider) matches() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(propsIface),
			dbus.WithMatchMember("PropertiesChanged"),
			dbus.WithMatchPathNamespace(p.adapter),
		},
		{
			dbus.WithMatchInterface(objMgrIface),
			dbus.WithMatchMember("InterfacesAdded"),
		},
		{
			dbus.WithMatchInterface(objMgrIface),
			dbus.WithMatchMember("InterfacesRemoved"),
		},
	}
}

func (p *Provider) StartScan(filters []string, settings blescan.ScanSettings, cb radio.Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return radio.Errorf(radio.ScanFailedAlreadyStarted, "discovery already running on %s", p.adapter)
	}

	obj := p.conn.Object(bluezService, p.adapter)

	filter := map[string]interface{}{
		"Transport":     "le",
		"DuplicateData": settings.AllowDuplicates,
	}
	if len(filters) != 0 {
		filter["UUIDs"] = filters
	}
	if err := obj.Call(adapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		return scanError(err, "set discovery filter")
	}

	for _, m := range p.matches() {
		if err := p.conn.AddMatchSignal(m...); err != nil {
			return scanError(err, "add match rule")
		}
	}

	p.signals = make(chan *dbus.Signal, 64)
	p.done = make(chan struct{})
	p.devices = make(map[dbus.ObjectPath]properties)
	p.sink = radio.NewSink(cb, radio.NewFilterSet(filters), settings)
	p.current = cb
	p.conn.Signal(p.signals)

	p.wg.Add(1)
	go p.loop(p.signals, p.done, p.sink)

	if err := obj.Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		p.teardownLocked()
		return scanError(err, "start discovery")
	}
	return nil
}

func (p *Provider) loop(signals <-chan *dbus.Signal, done <-chan struct{}, sink radio.Sink) {
	defer p.wg.Done()
	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if pk, ok := p.handle(sig); ok {
				sink.Put(pk)
			}
		case <-done:
			return
		}
	}
}

// handle applies one signal to the device cache and returns the packet to
// emit, if any.
func (p *Provider) handle(sig *dbus.Signal) (radio.Packet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.devices == nil {
		return radio.Packet{}, false
	}

	switch sig.Name {
	case interfacesAdded:
		if len(sig.Body) < 2 {
			return radio.Packet{}, false
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok || !p.owns(path) {
			return radio.Packet{}, false
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return radio.Packet{}, false
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			return radio.Packet{}, false
		}
		dev := properties{}
		dev.merge(props, nil)
		p.devices[path] = dev
		if !advertised(props) {
			return radio.Packet{}, false
		}
		return dev.packet(path), true

	case propertiesChanged:
		if len(sig.Body) < 2 || !p.owns(sig.Path) {
			return radio.Packet{}, false
		}
		if iface, _ := sig.Body[0].(string); iface != deviceIface {
			return radio.Packet{}, false
		}
		changes, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return radio.Packet{}, false
		}
		var invalidated []string
		if len(sig.Body) > 2 {
			invalidated, _ = sig.Body[2].([]string)
		}

		dev, known := p.devices[sig.Path]
		if !known {
			// seen before this scan started; the rest is fetched lazily
			dev = p.fetch(sig.Path)
			p.devices[sig.Path] = dev
		}
		dev.merge(changes, invalidated)
		if !advertised(changes) {
			return radio.Packet{}, false
		}
		return dev.packet(sig.Path), true

	case interfacesRemoved:
		if len(sig.Body) < 1 {
			return radio.Packet{}, false
		}
		if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
			delete(p.devices, path)
		}
	}
	return radio.Packet{}, false
}

// owns reports whether path is a device of the provider's adapter.
func (p *Provider) owns(path dbus.ObjectPath) bool {
	return strings.HasPrefix(string(path), string(p.adapter)+"/")
}

// fetch reads the current properties of a device already known to BlueZ.
func (p *Provider) fetch(path dbus.ObjectPath) properties {
	dev := properties{}
	var all map[string]dbus.Variant
	err := p.conn.Object(bluezService, path).Call(propsIface+".GetAll", 0, deviceIface).Store(&all)
	if err != nil {
		p.log.Debugf("get properties of %s: %v", path, err)
		return dev
	}
	dev.merge(all, nil)
	return dev
}

func (p *Provider) StopScan(cb radio.Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil || p.current != cb {
		return nil
	}
	p.teardownLocked()

	err := p.conn.Object(bluezService, p.adapter).Call(adapterIface+".StopDiscovery", 0).Err
	return scanError(err, "stop discovery")
}

func (p *Provider) teardownLocked() {
	p.sink.Close()
	close(p.done)
	p.conn.RemoveSignal(p.signals)
	for _, m := range p.matches() {
		if err := p.conn.RemoveMatchSignal(m...); err != nil {
			p.log.Debugf("remove match rule: %v", err)
		}
	}
	p.current, p.sink, p.signals, p.done, p.devices = nil, nil, nil, nil, nil
}

// Close stops discovery, if running, and waits for the signal loop to exit.
func (p *Provider) Close() error {
	p.mu.Lock()
	cb := p.current
	p.mu.Unlock()

	var err error
	if cb != nil {
		err = p.StopScan(cb)
	}
	p.wg.Wait()
	return errors.Wrap(err, "close")
}
