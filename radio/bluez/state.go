package bluez

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
)

// StateMonitor reports the power state of a BlueZ adapter. It implements
// blescan.AdapterStateMonitor.
type StateMonitor struct {
	conn    Conn
	adapter dbus.ObjectPath
	log     blescan.Logger

	mu      sync.Mutex
	obs     blescan.AdapterStateObserver
	signals chan *dbus.Signal
	done    chan struct{}
	last    blescan.AdapterState
	wg      sync.WaitGroup
}

var _ blescan.AdapterStateMonitor = (*StateMonitor)(nil)

// NewStateMonitor returns a monitor for adapter (e.g. "hci0") on conn.
func NewStateMonitor(conn Conn, adapter string) *StateMonitor {
	return &StateMonitor{
		conn:    conn,
		adapter: AdapterPath(adapter),
		log:     blescan.GetLogger().ChildLogger(map[string]interface{}{"component": "bluez-state", "adapter": adapter}),
	}
}

func powerState(s string) blescan.AdapterState {
	switch s {
	case "on":
		return blescan.StateOn
	case "off", "off-blocked":
		return blescan.StateOff
	case "off-enabling":
		return blescan.StateTurningOn
	case "on-disabling":
		return blescan.StateTurningOff
	}
	return blescan.StateUnknown
}

func powered(on bool) blescan.AdapterState {
	if on {
		return blescan.StateOn
	}
	return blescan.StateOff
}

// State reads PowerState, falling back to Powered on BlueZ versions that do
// not have it.
func (m *StateMonitor) State() (blescan.AdapterState, error) {
	obj := m.conn.Object(bluezService, m.adapter)

	v, err := obj.GetProperty(adapterIface + ".PowerState")
	if err == nil {
		if s, ok := v.Value().(string); ok {
			return powerState(s), nil
		}
	}

	v, err = obj.GetProperty(adapterIface + ".Powered")
	if err != nil {
		return blescan.StateUnknown, errors.Wrapf(err, "read power state of %s", m.adapter)
	}
	on, ok := v.Value().(bool)
	if !ok {
		return blescan.StateUnknown, errors.Errorf("unexpected Powered value %v", v)
	}
	return powered(on), nil
}

func (m *StateMonitor) match() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(m.adapter),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
}

// Start delivers every power state change of the adapter to obs until Stop.
func (m *StateMonitor) Start(obs blescan.AdapterStateObserver) error {
	if obs == nil {
		return errors.Wrap(blescan.ErrInvalidArgument, "nil observer")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.obs != nil {
		return errors.New("state monitor already started")
	}

	if err := m.conn.AddMatchSignal(m.match()...); err != nil {
		return errors.Wrap(err, "add match rule")
	}

	last, err := m.State()
	if err != nil {
		m.log.Debugf("initial state: %v", err)
	}

	m.obs, m.last = obs, last
	m.signals = make(chan *dbus.Signal, 16)
	m.done = make(chan struct{})
	m.conn.Signal(m.signals)

	m.wg.Add(1)
	go m.loop(m.signals, m.done)
	return nil
}

func (m *StateMonitor) loop(signals <-chan *dbus.Signal, done <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return
			}
			m.handle(sig)
		case <-done:
			return
		}
	}
}

func (m *StateMonitor) handle(sig *dbus.Signal) {
	if sig.Name != propertiesChanged || sig.Path != m.adapter || len(sig.Body) < 2 {
		return
	}
	if iface, _ := sig.Body[0].(string); iface != adapterIface {
		return
	}
	changes, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	st := blescan.StateUnknown
	if v, ok := changes["PowerState"].Value().(string); ok {
		st = powerState(v)
	} else if v, ok := changes["Powered"].Value().(bool); ok {
		st = powered(v)
	} else {
		return
	}

	m.mu.Lock()
	obs := m.obs
	if obs == nil || st == m.last {
		m.mu.Unlock()
		return
	}
	m.last = st
	m.mu.Unlock()

	m.log.Debugf("adapter state %v", st)
	obs.OnStateChanged(st)
}

// Stop ends monitoring and waits for the signal loop to exit.
func (m *StateMonitor) Stop() error {
	m.mu.Lock()
	if m.obs == nil {
		m.mu.Unlock()
		return nil
	}
	close(m.done)
	m.conn.RemoveSignal(m.signals)
	err := m.conn.RemoveMatchSignal(m.match()...)
	m.obs, m.signals, m.done = nil, nil, nil
	m.mu.Unlock()

	m.wg.Wait()
	return errors.Wrap(err, "remove match rule")
}
