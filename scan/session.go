package scan

import (
	"sync"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/decoder"
	"github.com/rigado/blescan/radio"
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Session is one radio scan started through a Registry. It is the
// radio.Callback the provider reports to: packets are decoded and forwarded
// to the observer until the session is stopped.
type Session struct {
	id       string
	filters  []string
	settings blescan.ScanSettings
	reg      *Registry
	log      blescan.Logger

	mu    sync.Mutex
	obs   blescan.Observer
	state State
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Filters returns the canonical service UUIDs the scan was started with.
func (s *Session) Filters() []string {
	return append([]string(nil), s.filters...)
}

// Settings returns the settings the scan was started with.
func (s *Session) Settings() blescan.ScanSettings { return s.settings }

// State reports whether the session is still delivering results.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop ends the scan if it is still the registry's current one and releases
// the observer. Stopping an idle session is a no-op.
func (s *Session) Stop() error {
	return s.reg.stopSession(s)
}

func (s *Session) observer() blescan.Observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obs
}

// release drops the observer; nothing is delivered afterwards. It reports
// whether the session was active.
func (s *Session) release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return false
	}
	s.state = Idle
	s.obs = nil
	return true
}

// OnScanResult implements radio.Callback.
func (s *Session) OnScanResult(p radio.Packet) {
	obs := s.observer()
	if obs == nil {
		return
	}
	obs.OnResult(decoder.Decode(p))
}

// OnBatchScanResults implements radio.Callback. Each packet is forwarded on
// its own, in batch order.
func (s *Session) OnBatchScanResults(ps []radio.Packet) {
	for _, p := range ps {
		s.OnScanResult(p)
	}
}

// OnScanFailed implements radio.Callback.
func (s *Session) OnScanFailed(code int) {
	s.fail(code, true)
}

// fail reports a failure to the observer. registered tells whether the
// provider holds the scan, which decides if it must be stopped there when the
// session ends on failure.
func (s *Session) fail(code int, registered bool) {
	obs := s.observer()
	if obs == nil {
		return
	}

	kind := radio.Kind(code)
	s.log.Warnf("scan failed: code %d (%s)", code, kind)
	obs.OnFailure(kind)

	if !s.settings.StopOnFailure || !s.release() {
		return
	}
	if !registered {
		s.reg.drop(s)
		return
	}
	// the provider may be calling us with its own locks held
	go s.reg.retire(s)
}
