// Package radiotest provides a scriptable radio.Provider and a recording
// observer for tests.
package radiotest

import (
	"sync"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/radio"
)

// Start records one StartScan call.
type Start struct {
	Filters  []string
	Settings blescan.ScanSettings
	Callback radio.Callback
}

// Provider is a fake radio.Provider. Scans it starts stay registered until
// stopped; tests drive them with Emit, EmitBatch and Fail.
type Provider struct {
	mu      sync.Mutex
	starts  []Start
	stops   []radio.Callback
	active  map[radio.Callback]struct{}
	current radio.Callback

	// StartErr, when set, is returned by the next StartScan.
	StartErr error
	// StopErr, when set, is returned by every StopScan.
	StopErr error
}

// NewProvider returns an idle fake provider.
func NewProvider() *Provider {
	return &Provider{active: make(map[radio.Callback]struct{})}
}

func (p *Provider) StartScan(filters []string, settings blescan.ScanSettings, cb radio.Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.starts = append(p.starts, Start{
		Filters:  append([]string(nil), filters...),
		Settings: settings,
		Callback: cb,
	})
	if err := p.StartErr; err != nil {
		p.StartErr = nil
		return err
	}
	p.active[cb] = struct{}{}
	p.current = cb
	return nil
}

func (p *Provider) StopScan(cb radio.Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stops = append(p.stops, cb)
	delete(p.active, cb)
	if p.current == cb {
		p.current = nil
	}
	return p.StopErr
}

// Starts returns the StartScan calls seen so far.
func (p *Provider) Starts() []Start {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Start(nil), p.starts...)
}

// Stops returns the callbacks passed to StopScan so far.
func (p *Provider) Stops() []radio.Callback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]radio.Callback(nil), p.stops...)
}

// Active reports how many scans are registered.
func (p *Provider) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Current returns the most recently started scan still registered.
func (p *Provider) Current() radio.Callback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Emit delivers pk to the current scan. It reports false when no scan runs.
func (p *Provider) Emit(pk radio.Packet) bool {
	cb := p.Current()
	if cb == nil {
		return false
	}
	cb.OnScanResult(pk)
	return true
}

// EmitBatch delivers ps to the current scan in one batch.
func (p *Provider) EmitBatch(ps []radio.Packet) bool {
	cb := p.Current()
	if cb == nil {
		return false
	}
	cb.OnBatchScanResults(ps)
	return true
}

// Fail reports code to the current scan.
func (p *Provider) Fail(code int) bool {
	cb := p.Current()
	if cb == nil {
		return false
	}
	cb.OnScanFailed(code)
	return true
}

// Recorder is a blescan.Observer that keeps everything it is told.
type Recorder struct {
	mu       sync.Mutex
	results  []blescan.Advertisement
	failures []blescan.ErrorKind
	notify   chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) OnResult(a blescan.Advertisement) {
	r.mu.Lock()
	r.results = append(r.results, a)
	r.mu.Unlock()
	r.poke()
}

func (r *Recorder) OnFailure(k blescan.ErrorKind) {
	r.mu.Lock()
	r.failures = append(r.failures, k)
	r.mu.Unlock()
	r.poke()
}

func (r *Recorder) poke() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Notify is signalled after every callback.
func (r *Recorder) Notify() <-chan struct{} { return r.notify }

// Results returns the advertisements received so far.
func (r *Recorder) Results() []blescan.Advertisement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]blescan.Advertisement(nil), r.results...)
}

// Failures returns the failure kinds received so far.
func (r *Recorder) Failures() []blescan.ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]blescan.ErrorKind(nil), r.failures...)
}
