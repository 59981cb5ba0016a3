package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/config"
	"github.com/rigado/blescan/scan"
)

var cfg *config.Config

func main() {
	app := cli.NewApp()

	app.Name = "blescan"
	app.Usage = "Scan for BLE advertisements"
	app.Version = "0.1.0"
	app.Action = cli.ShowAppHelp
	app.Flags = []cli.Flag{flgConfig, flgBackend, flgDevice, flgAdapter, flgVerbose}

	app.Commands = []cli.Command{
		{
			Name:    "scan",
			Aliases: []string{"s"},
			Usage:   "Scan surrounding with specified filter",
			Action:  cmdScan,
			Flags:   []cli.Flag{flgDuration, flgSvc, flgMode, flgLegacy, flgDelay, flgNoDup, flgStop, flgJSON},
		},
		{
			Name:   "state",
			Usage:  "Print the adapter power state and follow its changes",
			Action: cmdState,
			Flags:  []cli.Flag{flgDuration},
		},
	}

	app.Before = setup
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	var err error
	if cfg, err = config.Load(c.GlobalString("config")); err != nil {
		return errors.Wrap(err, "can't load config")
	}

	if c.GlobalIsSet("backend") {
		cfg.Backend = c.GlobalString("backend")
	}
	if d := c.GlobalInt("device"); d >= 0 {
		cfg.Device = d
	}
	if c.GlobalIsSet("adapter") {
		cfg.Adapter = c.GlobalString("adapter")
	}
	if c.GlobalBool("verbose") {
		cfg.Log.Level = "trace"
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	return blescan.SetLogLevel(cfg.Log.Level)
}

// scanProfile applies the command flags over the loaded profile.
func scanProfile(c *cli.Context) error {
	s := &cfg.Scan
	if c.IsSet("duration") {
		s.Duration = c.Duration("duration")
	}
	if c.IsSet("svc") {
		list, err := blescan.ParseUUIDList(c.String("svc"))
		if err != nil {
			return err
		}
		s.Services = list
	}
	if c.IsSet("mode") {
		s.Mode = c.String("mode")
	}
	if c.IsSet("legacy") {
		s.Legacy = c.Bool("legacy")
	}
	if c.IsSet("delay") {
		s.ReportDelay = c.Duration("delay")
	}
	if c.Bool("nodup") {
		s.AllowDuplicates = false
	}
	if c.Bool("stop-on-failure") {
		s.StopOnFailure = true
	}
	if c.Bool("json") {
		cfg.Output = config.OutputJSON
	}
	return config.Validate(cfg)
}

func cmdScan(c *cli.Context) error {
	if err := scanProfile(c); err != nil {
		return err
	}
	opts, err := cfg.ScanOptions()
	if err != nil {
		return err
	}
	mode, err := blescan.ParseScanMode(cfg.Scan.Mode)
	if err != nil {
		return err
	}

	p, err := newProvider(cfg, mode)
	if err != nil {
		return err
	}
	defer p.Close()

	reg := scan.NewRegistry(p)
	defer reg.Close()

	ctx, cancel := withSigHandler(cfg.Scan.Duration)
	defer cancel()

	out := newPrinter(os.Stdout, cfg.Output)
	obs := blescan.ObserverFuncs{
		Result: out.result,
		Failure: func(k blescan.ErrorKind) {
			out.failure(k)
			if cfg.Scan.StopOnFailure {
				cancel()
			}
		},
	}

	fmt.Fprintf(os.Stderr, "Scanning with %s", cfg.Backend)
	if cfg.Scan.Duration > 0 {
		fmt.Fprintf(os.Stderr, " for %s", cfg.Scan.Duration)
	}
	fmt.Fprintln(os.Stderr, "...")

	s, err := reg.Start(cfg.Scan.Services, obs, opts...)
	if err != nil {
		return errors.Wrap(err, "can't start scan")
	}

	<-ctx.Done()
	chkErr(ctx.Err())
	return errors.Wrap(s.Stop(), "can't stop scan")
}

func cmdState(c *cli.Context) error {
	if c.IsSet("duration") {
		cfg.Scan.Duration = c.Duration("duration")
	}

	m, closer, err := newStateMonitor(cfg)
	if err != nil {
		return err
	}
	defer closer()

	st, err := m.State()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", cfg.Adapter, st)

	ctx, cancel := withSigHandler(cfg.Scan.Duration)
	defer cancel()

	err = m.Start(blescan.AdapterStateFunc(func(s blescan.AdapterState) {
		fmt.Printf("%s: %s\n", cfg.Adapter, s)
	}))
	if err != nil {
		return err
	}

	<-ctx.Done()
	chkErr(ctx.Err())
	return m.Stop()
}

// withSigHandler returns a context canceled on SIGINT/SIGTERM or, when d is
// positive, after d.
func withSigHandler(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

func chkErr(err error) {
	if errors.Cause(err) == context.Canceled {
		fmt.Fprintf(os.Stderr, "\n(Canceled)\n")
	}
}
