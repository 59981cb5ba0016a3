// Package scan runs BLE scans on a radio.Provider, at most one at a time.
package scan

import (
	"io"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/radio"
)

// ErrClosed is returned by Start once the registry is closed.
var ErrClosed = errors.New("scan registry closed")

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// OptLogger sets the logger the registry and its sessions use.
func OptLogger(l blescan.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

// OptDefaults sets scan options applied to every session before the options
// passed to Start.
func OptDefaults(opts ...blescan.Option) RegistryOption {
	return func(r *Registry) {
		r.defaults = append(r.defaults, opts...)
	}
}

// Registry owns the single current scan. Starting a scan stops the previous
// one first; start and stop are safe to call from any goroutine, including
// while the provider is delivering results.
type Registry struct {
	provider radio.Provider
	log      blescan.Logger
	defaults []blescan.Option

	mu      sync.Mutex
	current *Session
	closed  bool
	entropy io.Reader
}

// NewRegistry returns an idle registry scanning with p.
func NewRegistry(p radio.Provider, opts ...RegistryOption) *Registry {
	r := &Registry{
		provider: p,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = blescan.GetLogger()
	}
	r.log = r.log.ChildLogger(map[string]interface{}{"component": "scan"})
	return r
}

// Start validates its arguments, stops the current scan if any, and starts a
// new one reporting to obs. Filters are 16, 32 or 128-bit UUID text; empty
// strings are ignored and an empty list scans for everything.
//
// A nil observer, including a typed nil pointer, or a malformed filter fails
// with blescan.ErrInvalidArgument before the radio is touched. Failures of the radio itself, including one
// to start the scan, are reported through obs.OnFailure, never returned.
func (r *Registry) Start(filterUUIDs []string, obs blescan.Observer, opts ...blescan.Option) (*Session, error) {
	if isNil(obs) {
		return nil, errors.Wrap(blescan.ErrInvalidArgument, "nil observer")
	}

	filters, err := canonicalFilters(filterUUIDs)
	if err != nil {
		return nil, err
	}

	settings := blescan.DefaultScanSettings()
	if err := settings.Apply(r.defaults...); err != nil {
		return nil, errors.Wrap(err, "default scan options")
	}
	if err := settings.Apply(opts...); err != nil {
		return nil, errors.Wrap(err, "scan options")
	}

	return r.swap(filters, settings, obs)
}

// StartList is Start with the filters given as one comma separated list.
func (r *Registry) StartList(list string, obs blescan.Observer, opts ...blescan.Option) (*Session, error) {
	filters, err := blescan.ParseUUIDList(list)
	if err != nil {
		return nil, err
	}
	return r.Start(filters, obs, opts...)
}

func (r *Registry) swap(filters []string, settings blescan.ScanSettings, obs blescan.Observer) (*Session, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}

	if prev := r.current; prev != nil {
		r.current = nil
		prev.release()
		if err := r.provider.StopScan(prev); err != nil {
			prev.log.Warnf("stop replaced scan: %v", err)
		}
	}

	id := ulid.MustNew(ulid.Now(), r.entropy).String()
	s := &Session{
		id:       id,
		filters:  filters,
		settings: settings,
		reg:      r,
		log:      r.log.ChildLogger(map[string]interface{}{"session": id}),
		obs:      obs,
		state:    Active,
	}
	r.current = s

	err := r.provider.StartScan(filters, settings, s)
	r.mu.Unlock()

	if err != nil {
		s.log.Errorf("start scan: %v", err)
		s.fail(radio.CodeOf(err), false)
		return s, nil
	}

	s.log.Debugf("scan started: mode %s, legacy %v, filters %v", settings.Mode, settings.Legacy, filters)
	return s, nil
}

// Stop stops the current scan. It is a no-op when no scan is active.
func (r *Registry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Registry) stopLocked() error {
	s := r.current
	if s == nil {
		return nil
	}
	r.current = nil
	s.release()

	if err := r.provider.StopScan(s); err != nil {
		return errors.Wrap(err, "stop scan")
	}
	s.log.Debugf("scan stopped")
	return nil
}

func (r *Registry) stopSession(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != s {
		s.release()
		return nil
	}
	return r.stopLocked()
}

// retire deregisters a session that already released its observer.
func (r *Registry) retire(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != s {
		return
	}
	if err := r.stopLocked(); err != nil {
		s.log.Warnf("retire failed scan: %v", err)
	}
}

// drop clears the slot of a session the provider never started.
func (r *Registry) drop(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == s {
		r.current = nil
	}
}

// Close stops the current scan; later calls to Start fail with ErrClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.stopLocked()
}

// Current returns the current session, or nil when idle.
func (r *Registry) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// State reports whether a scan is active.
func (r *Registry) State() State {
	if s := r.Current(); s != nil {
		return s.State()
	}
	return Idle
}

// isNil also catches an interface holding a nil pointer, func or map.
func isNil(obs blescan.Observer) bool {
	if obs == nil {
		return true
	}
	v := reflect.ValueOf(obs)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func canonicalFilters(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, u := range in {
		if len(strings.TrimSpace(u)) == 0 {
			continue
		}
		n, err := blescan.NormalizeUUID(u)
		if err != nil {
			return nil, errors.Wrap(err, "service filter")
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
