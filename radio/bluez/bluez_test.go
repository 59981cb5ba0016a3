package bluez

import (
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/radio"
	"github.com/rigado/blescan/radio/radiotest"
	"github.com/rigado/blescan/scan"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeObject answers method calls from a table; anything else panics.
type fakeObject struct {
	dbus.BusObject
	bus  *fakeConn
	path dbus.ObjectPath
}

func (o *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	o.bus.mu.Lock()
	defer o.bus.mu.Unlock()
	o.bus.calls = append(o.bus.calls, method)
	if len(args) != 0 {
		o.bus.args[method] = args[0]
	}
	return &dbus.Call{Method: method, Path: o.path, Err: o.bus.errs[method]}
}

func (o *fakeObject) GetProperty(p string) (dbus.Variant, error) {
	o.bus.mu.Lock()
	defer o.bus.mu.Unlock()
	v, ok := o.bus.props[p]
	if !ok {
		return dbus.Variant{}, dbus.Error{Name: "org.freedesktop.DBus.Error.InvalidArgs"}
	}
	return v, nil
}

type fakeConn struct {
	mu      sync.Mutex
	calls   []string
	args    map[string]interface{}
	errs    map[string]error
	props   map[string]dbus.Variant
	matches int
	ch      chan<- *dbus.Signal
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		args:  map[string]interface{}{},
		errs:  map[string]error{},
		props: map[string]dbus.Variant{},
	}
}

func (c *fakeConn) Object(_ string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{bus: c, path: path}
}

func (c *fakeConn) AddMatchSignal(...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches++
	return nil
}

func (c *fakeConn) RemoveMatchSignal(...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches--
	return nil
}

func (c *fakeConn) Signal(ch chan<- *dbus.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = ch
}

func (c *fakeConn) RemoveSignal(chan<- *dbus.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = nil
}

func (c *fakeConn) emit(sig *dbus.Signal) {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch != nil {
		ch <- sig
	}
}

func (c *fakeConn) called() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

const dev1 = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")

func changed(path dbus.ObjectPath, iface string, props map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: path,
		Name: propertiesChanged,
		Body: []interface{}{iface, props, []string{}},
	}
}

func added(path dbus.ObjectPath, props map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: "/",
		Name: interfacesAdded,
		Body: []interface{}{path, map[string]map[string]dbus.Variant{deviceIface: props}},
	}
}

func TestScanError(t *testing.T) {
	for name, code := range map[string]int{
		"org.bluez.Error.InProgress":                radio.ScanFailedAlreadyStarted,
		"org.bluez.Error.NotSupported":              radio.ScanFailedFeatureUnsupported,
		"org.bluez.Error.NotAuthorized":             radio.ScanFailedApplicationRegistrationFailed,
		"org.freedesktop.DBus.Error.ServiceUnknown": radio.ScanFailedApplicationRegistrationFailed,
		"org.freedesktop.DBus.Error.NoMemory":       radio.ScanFailedOutOfHardwareResources,
		"org.bluez.Error.Failed":                    radio.ScanFailedInternalError,
	} {
		err := scanError(&dbus.Error{Name: name}, "start discovery")
		assert.Equal(t, code, radio.CodeOf(err), name)
	}

	assert.Equal(t, radio.ScanFailedFeatureUnsupported,
		radio.CodeOf(scanError(dbus.Error{Name: "org.bluez.Error.NotSupported"}, "op")))
	assert.Equal(t, radio.ScanFailedInternalError, radio.CodeOf(scanError(errors.New("eof"), "op")))
	assert.NoError(t, scanError(nil, "op"))
}

func TestDevicePacket(t *testing.T) {
	p := properties{}
	p.merge(map[string]dbus.Variant{
		"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
		"Name":    dbus.MakeVariant("thermo"),
		"RSSI":    dbus.MakeVariant(int16(-70)),
		"UUIDs":   dbus.MakeVariant([]string{"0000180d-0000-1000-8000-00805f9b34fb"}),
		"ManufacturerData": dbus.MakeVariant(map[uint16]dbus.Variant{
			0x0059: dbus.MakeVariant([]byte{2}),
			0x004c: dbus.MakeVariant([]byte{1}),
		}),
		"ServiceData": dbus.MakeVariant(map[string]dbus.Variant{
			"0000180f-0000-1000-8000-00805f9b34fb": dbus.MakeVariant([]byte{99}),
		}),
		"AdvertisingData": dbus.MakeVariant(map[byte]dbus.Variant{
			0x2a: dbus.MakeVariant([]byte{7}),
		}),
	}, nil)

	pk := p.packet(dev1)
	assert.Equal(t, string(dev1), pk.SystemID)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", pk.Address)
	assert.True(t, pk.HasName)
	assert.Equal(t, "thermo", pk.Name)
	assert.Equal(t, -70, pk.RSSI)
	assert.Equal(t, radio.TxPowerNotPresent, pk.TxPower)
	assert.Equal(t, []radio.ManufacturerEntry{
		{CompanyID: 0x004c, Data: []byte{1}},
		{CompanyID: 0x0059, Data: []byte{2}},
	}, pk.ManufacturerData)
	assert.Equal(t, []radio.ServiceEntry{{UUID: "0000180f-0000-1000-8000-00805f9b34fb", Data: []byte{99}}}, pk.ServiceData)
	assert.Equal(t, []radio.Extension{{Type: 0x2a, Data: []byte{7}}}, pk.Extensions)

	p.merge(map[string]dbus.Variant{"TxPower": dbus.MakeVariant(int16(4))}, []string{"Name"})
	pk = p.packet(dev1)
	assert.False(t, pk.HasName)
	assert.Equal(t, 4, pk.TxPower)
}

func TestProviderScan(t *testing.T) {
	conn := newFakeConn()
	conn.errs[propsIface+".GetAll"] = dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}
	p := NewProvider(conn, "hci0")
	reg := scan.NewRegistry(p)
	rec := radiotest.NewRecorder()

	_, err := reg.Start([]string{"180d"}, rec, blescan.OptAllowDuplicates(false))
	require.NoError(t, err)
	assert.Equal(t, []string{adapterIface + ".SetDiscoveryFilter", adapterIface + ".StartDiscovery"}, conn.called())

	filter, ok := conn.args[adapterIface+".SetDiscoveryFilter"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "le", filter["Transport"])
	assert.Equal(t, false, filter["DuplicateData"])
	assert.Equal(t, []string{blescan.ShortUUID(0x180d)}, filter["UUIDs"])

	hr := dbus.MakeVariant([]string{blescan.ShortUUID(0x180d)})
	conn.emit(added(dev1, map[string]dbus.Variant{
		"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
		"UUIDs":   hr,
		"RSSI":    dbus.MakeVariant(int16(-50)),
	}))
	// not advertised data
	conn.emit(changed(dev1, deviceIface, map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)}))
	// adapter properties are not devices
	conn.emit(changed("/org/bluez/hci0", adapterIface, map[string]dbus.Variant{"Discovering": dbus.MakeVariant(true)}))
	conn.emit(changed(dev1, deviceIface, map[string]dbus.Variant{"RSSI": dbus.MakeVariant(int16(-40))}))
	// unknown device without the filter service
	conn.emit(changed("/org/bluez/hci0/dev_01_02_03_04_05_06", deviceIface, map[string]dbus.Variant{
		"RSSI": dbus.MakeVariant(int16(-30)),
	}))

	require.Eventually(t, func() bool { return len(rec.Results()) == 2 }, time.Second, time.Millisecond)
	res := rec.Results()
	assert.Equal(t, uint64(0xAABBCCDDEEFF), res[0].Address)
	assert.Equal(t, -50, res[0].RSSI)
	assert.Equal(t, -40, res[1].RSSI)
	assert.Equal(t, []string{blescan.ShortUUID(0x180d)}, res[1].Services)

	err = p.StartScan(nil, blescan.DefaultScanSettings(), &scan.Session{})
	assert.Equal(t, radio.ScanFailedAlreadyStarted, radio.CodeOf(err))

	require.NoError(t, reg.Stop())
	assert.Contains(t, conn.called(), adapterIface+".StopDiscovery")
	assert.Equal(t, 0, conn.matches)
	require.NoError(t, p.Close())
	assert.Len(t, rec.Failures(), 0)
}

func TestProviderStartError(t *testing.T) {
	conn := newFakeConn()
	conn.errs[adapterIface+".StartDiscovery"] = &dbus.Error{Name: "org.bluez.Error.NotReady"}
	p := NewProvider(conn, "hci0")

	err := p.StartScan(nil, blescan.DefaultScanSettings(), &scan.Session{})
	require.Error(t, err)
	assert.Equal(t, radio.ScanFailedInternalError, radio.CodeOf(err))
	assert.Equal(t, 0, conn.matches)

	conn.errs[adapterIface+".StartDiscovery"] = nil
	require.NoError(t, p.StartScan(nil, blescan.DefaultScanSettings(), &scan.Session{}))
	require.NoError(t, p.Close())
}

func TestStopUnknownCallback(t *testing.T) {
	p := NewProvider(newFakeConn(), "hci0")
	assert.NoError(t, p.StopScan(&scan.Session{}))
	assert.NoError(t, p.Close())
}

func TestPowerState(t *testing.T) {
	for s, want := range map[string]blescan.AdapterState{
		"on":           blescan.StateOn,
		"off":          blescan.StateOff,
		"off-blocked":  blescan.StateOff,
		"off-enabling": blescan.StateTurningOn,
		"on-disabling": blescan.StateTurningOff,
		"bogus":        blescan.StateUnknown,
	} {
		assert.Equal(t, want, powerState(s), s)
	}
}

func TestStateMonitorState(t *testing.T) {
	conn := newFakeConn()
	m := NewStateMonitor(conn, "hci0")

	_, err := m.State()
	assert.Error(t, err)

	conn.props[adapterIface+".Powered"] = dbus.MakeVariant(true)
	st, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, blescan.StateOn, st)

	conn.props[adapterIface+".PowerState"] = dbus.MakeVariant("off-enabling")
	st, err = m.State()
	require.NoError(t, err)
	assert.Equal(t, blescan.StateTurningOn, st)
}

func TestStateMonitorTransitions(t *testing.T) {
	conn := newFakeConn()
	conn.props[adapterIface+".PowerState"] = dbus.MakeVariant("off")
	m := NewStateMonitor(conn, "hci0")

	assert.True(t, errors.Is(m.Start(nil), blescan.ErrInvalidArgument))

	var mu sync.Mutex
	var got []blescan.AdapterState
	require.NoError(t, m.Start(blescan.AdapterStateFunc(func(s blescan.AdapterState) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	})))
	assert.Error(t, m.Start(blescan.AdapterStateFunc(func(blescan.AdapterState) {})))

	adapter := dbus.ObjectPath("/org/bluez/hci0")
	conn.emit(changed(adapter, adapterIface, map[string]dbus.Variant{"PowerState": dbus.MakeVariant("off-enabling")}))
	conn.emit(changed(adapter, adapterIface, map[string]dbus.Variant{"PowerState": dbus.MakeVariant("off-enabling")}))
	conn.emit(changed(adapter, adapterIface, map[string]dbus.Variant{"Discovering": dbus.MakeVariant(true)}))
	conn.emit(changed("/org/bluez/hci1", adapterIface, map[string]dbus.Variant{"Powered": dbus.MakeVariant(false)}))
	conn.emit(changed(adapter, adapterIface, map[string]dbus.Variant{"Powered": dbus.MakeVariant(true)}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []blescan.AdapterState{blescan.StateTurningOn, blescan.StateOn}, got)
}
