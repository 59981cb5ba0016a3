// Package config loads scan profiles from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rigado/blescan"
)

// Radio backends.
const (
	BackendHCI    = "hci"
	BackendBlueZ  = "bluez"
	BackendTinyGo = "tinygo"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config is a scan profile.
type Config struct {
	Backend string `yaml:"backend"`
	// Device is the HCI device index for the hci backend.
	Device int `yaml:"device"`
	// Adapter is the BlueZ adapter name for the bluez backend.
	Adapter string `yaml:"adapter"`

	Output string    `yaml:"output"`
	Log    LogConfig `yaml:"log"`
	Scan   Scan      `yaml:"scan"`
}

// LogConfig ...
type LogConfig struct {
	Level string `yaml:"level"`
}

// Scan holds the scan settings of a profile.
type Scan struct {
	Mode            string        `yaml:"mode"`
	Legacy          bool          `yaml:"legacy"`
	ReportDelay     time.Duration `yaml:"report_delay"`
	AllowDuplicates bool          `yaml:"allow_duplicates"`
	StopOnFailure   bool          `yaml:"stop_on_failure"`
	Services        []string      `yaml:"services"`
	// Duration bounds a CLI scan; zero scans until interrupted.
	Duration time.Duration `yaml:"duration"`
}

// Defaults returns the profile used when no file is given.
func Defaults() *Config {
	d := blescan.DefaultScanSettings()
	return &Config{
		Backend: BackendHCI,
		Device:  0,
		Adapter: "hci0",
		Output:  OutputText,
		Log:     LogConfig{Level: "info"},
		Scan: Scan{
			Mode:            d.Mode.String(),
			Legacy:          d.Legacy,
			AllowDuplicates: d.AllowDuplicates,
			StopOnFailure:   d.StopOnFailure,
			Duration:        10 * time.Second,
		},
	}
}

// Load reads a YAML profile over the defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps BLESCAN_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLESCAN_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("BLESCAN_ADAPTER"); v != "" {
		cfg.Adapter = v
	}
	if v := os.Getenv("BLESCAN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BLESCAN_SERVICES"); v != "" {
		cfg.Scan.Services = splitAndTrim(v, ",")
	}
}

// ScanOptions converts the profile's scan settings to options.
func (c *Config) ScanOptions() ([]blescan.Option, error) {
	mode, err := blescan.ParseScanMode(c.Scan.Mode)
	if err != nil {
		return nil, err
	}
	return []blescan.Option{
		blescan.OptScanMode(mode),
		blescan.OptLegacy(c.Scan.Legacy),
		blescan.OptReportDelay(c.Scan.ReportDelay),
		blescan.OptAllowDuplicates(c.Scan.AllowDuplicates),
		blescan.OptStopOnFailure(c.Scan.StopOnFailure),
	}, nil
}

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg and returns a *ValidationError listing every problem.
func Validate(cfg *Config) error {
	ve := &ValidationError{}

	switch cfg.Backend {
	case BackendHCI, BackendBlueZ, BackendTinyGo:
	default:
		ve.Add("backend %q must be one of %s, %s, %s", cfg.Backend, BackendHCI, BackendBlueZ, BackendTinyGo)
	}
	if cfg.Device < 0 {
		ve.Add("device must be >= 0")
	}
	if cfg.Backend == BackendBlueZ && cfg.Adapter == "" {
		ve.Add("adapter is required for the bluez backend")
	}

	switch cfg.Output {
	case OutputText, OutputJSON:
	default:
		ve.Add("output %q must be %s or %s", cfg.Output, OutputText, OutputJSON)
	}

	if _, err := blescan.ParseScanMode(cfg.Scan.Mode); err != nil {
		ve.Add("scan.mode %q is not a scan mode", cfg.Scan.Mode)
	}
	if cfg.Scan.ReportDelay < 0 {
		ve.Add("scan.report_delay must be >= 0")
	}
	if cfg.Scan.Duration < 0 {
		ve.Add("scan.duration must be >= 0")
	}
	for _, s := range cfg.Scan.Services {
		if _, err := blescan.NormalizeUUID(s); err != nil {
			ve.Add("scan.services: %q is not a UUID", s)
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
