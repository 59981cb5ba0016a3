package main

import (
	"github.com/pkg/errors"
	"tinygo.org/x/bluetooth"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/config"
	"github.com/rigado/blescan/radio"
	"github.com/rigado/blescan/radio/bluez"
	"github.com/rigado/blescan/radio/goble"
	"github.com/rigado/blescan/radio/tinygo"
)

type provider interface {
	radio.Provider
	Close() error
}

type closeFunc func() error

type withCloser struct {
	provider
	close closeFunc
}

func (w withCloser) Close() error {
	err := w.provider.Close()
	if cerr := w.close(); err == nil {
		err = cerr
	}
	return err
}

func newProvider(cfg *config.Config, mode blescan.ScanMode) (provider, error) {
	switch cfg.Backend {
	case config.BackendHCI:
		d, err := goble.NewDevice(cfg.Device, mode)
		if err != nil {
			return nil, err
		}
		return withCloser{goble.NewProvider(d), d.Stop}, nil

	case config.BackendBlueZ:
		conn, err := bluez.Dial()
		if err != nil {
			return nil, err
		}
		return withCloser{bluez.NewProvider(conn, cfg.Adapter), conn.Close}, nil

	case config.BackendTinyGo:
		a := bluetooth.DefaultAdapter
		if err := a.Enable(); err != nil {
			return nil, errors.Wrap(err, "can't enable adapter")
		}
		return tinygo.NewProvider(a), nil
	}
	return nil, errors.Errorf("unknown backend %q", cfg.Backend)
}

// newStateMonitor returns the adapter state monitor of the configured
// backend. Only BlueZ exposes power transitions.
func newStateMonitor(cfg *config.Config) (blescan.AdapterStateMonitor, closeFunc, error) {
	if cfg.Backend != config.BackendBlueZ {
		return nil, nil, errors.Errorf("backend %s has no adapter state, use bluez", cfg.Backend)
	}
	conn, err := bluez.Dial()
	if err != nil {
		return nil, nil, err
	}
	return bluez.NewStateMonitor(conn, cfg.Adapter), conn.Close, nil
}
