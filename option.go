package blescan

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ScanMode trades discovery latency against power.
type ScanMode int

// Scan modes, mirroring the platform scanner modes.
const (
	ScanModeLowPower ScanMode = iota
	ScanModeBalanced
	ScanModeLowLatency
	ScanModeOpportunistic
)

var scanModeNames = map[ScanMode]string{
	ScanModeLowPower:      "low-power",
	ScanModeBalanced:      "balanced",
	ScanModeLowLatency:    "low-latency",
	ScanModeOpportunistic: "opportunistic",
}

func (m ScanMode) String() string {
	if s, ok := scanModeNames[m]; ok {
		return s
	}
	return "invalid"
}

// ParseScanMode parses the String form of a ScanMode.
func ParseScanMode(s string) (ScanMode, error) {
	for m, n := range scanModeNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "unknown scan mode %q", s)
}

// ScanSettings configures a radio scan.
type ScanSettings struct {
	Mode ScanMode

	// Legacy restricts the scan to legacy (pre 5.0) advertising PDUs.
	Legacy bool

	// ReportDelay > 0 lets the radio layer batch results for that long.
	// Batching is a delivery optimization only; observers still get one
	// OnResult per packet.
	ReportDelay time.Duration

	// AllowDuplicates disables the controller's duplicate filter.
	AllowDuplicates bool

	// StopOnFailure returns the session to Idle after a scan failure. When
	// false the session stays Active until the host calls Stop.
	StopOnFailure bool
}

// DefaultScanSettings returns the settings used when no option overrides
// them: low latency, extended advertising included. Scans are expected to be
// short and responsive rather than long low-power background scans.
func DefaultScanSettings() ScanSettings {
	return ScanSettings{
		Mode:            ScanModeLowLatency,
		Legacy:          false,
		AllowDuplicates: true,
	}
}

// ScanOption is implemented by anything that accepts scan configuration
// options.
type ScanOption interface {
	SetScanMode(ScanMode) error
	SetLegacy(bool) error
	SetReportDelay(time.Duration) error
	SetAllowDuplicates(bool) error
	SetStopOnFailure(bool) error
}

// An Option is a configuration function, which configures a scan.
type Option func(ScanOption) error

// Apply applies opts in order, stopping at the first error.
func (s *ScanSettings) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

// SetScanMode ...
func (s *ScanSettings) SetScanMode(m ScanMode) error {
	if _, ok := scanModeNames[m]; !ok {
		return errors.Wrapf(ErrInvalidArgument, "invalid scan mode %d", m)
	}
	s.Mode = m
	return nil
}

// SetLegacy ...
func (s *ScanSettings) SetLegacy(legacy bool) error {
	s.Legacy = legacy
	return nil
}

// SetReportDelay ...
func (s *ScanSettings) SetReportDelay(d time.Duration) error {
	if d < 0 {
		return errors.Wrapf(ErrInvalidArgument, "negative report delay %s", d)
	}
	s.ReportDelay = d
	return nil
}

// SetAllowDuplicates ...
func (s *ScanSettings) SetAllowDuplicates(dup bool) error {
	s.AllowDuplicates = dup
	return nil
}

// SetStopOnFailure ...
func (s *ScanSettings) SetStopOnFailure(stop bool) error {
	s.StopOnFailure = stop
	return nil
}

// OptScanMode overrides the default low latency scan mode.
func OptScanMode(m ScanMode) Option {
	return func(opt ScanOption) error {
		return opt.SetScanMode(m)
	}
}

// OptLegacy restricts scanning to legacy advertisements.
func OptLegacy(legacy bool) Option {
	return func(opt ScanOption) error {
		return opt.SetLegacy(legacy)
	}
}

// OptReportDelay enables batched delivery from the radio layer.
func OptReportDelay(d time.Duration) Option {
	return func(opt ScanOption) error {
		return opt.SetReportDelay(d)
	}
}

// OptAllowDuplicates sets whether repeated advertisements are reported.
func OptAllowDuplicates(dup bool) Option {
	return func(opt ScanOption) error {
		return opt.SetAllowDuplicates(dup)
	}
}

// OptStopOnFailure makes a scan failure end the session.
func OptStopOnFailure(stop bool) Option {
	return func(opt ScanOption) error {
		return opt.SetStopOnFailure(stop)
	}
}
