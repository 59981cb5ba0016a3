package main

import (
	"github.com/urfave/cli"
)

var (
	flgConfig   = cli.StringFlag{Name: "config, c", Value: "blescan.yaml", Usage: "Scan profile (YAML)", EnvVar: "BLESCAN_CONFIG"}
	flgBackend  = cli.StringFlag{Name: "backend, b", Usage: "Radio backend (hci / bluez / tinygo)"}
	flgDevice   = cli.IntFlag{Name: "device", Value: -1, Usage: "HCI device index for the hci backend"}
	flgAdapter  = cli.StringFlag{Name: "adapter", Usage: "BlueZ adapter name for the bluez backend"}
	flgVerbose  = cli.BoolFlag{Name: "verbose, v", Usage: "Log everything"}
	flgDuration = cli.DurationFlag{Name: "duration, d", Usage: "Scan duration, 0 to scan until interrupted"}
	flgSvc      = cli.StringFlag{Name: "svc, s", Usage: "Comma separated service UUIDs to filter on"}
	flgMode     = cli.StringFlag{Name: "mode, m", Usage: "Scan mode (low-power / balanced / low-latency / opportunistic)"}
	flgLegacy   = cli.BoolFlag{Name: "legacy", Usage: "Legacy advertisements only"}
	flgDelay    = cli.DurationFlag{Name: "delay", Usage: "Report results in batches every delay"}
	flgNoDup    = cli.BoolFlag{Name: "nodup", Usage: "Report each device once"}
	flgStop     = cli.BoolFlag{Name: "stop-on-failure", Usage: "End the scan on the first failure"}
	flgJSON     = cli.BoolFlag{Name: "json, j", Usage: "Print one JSON record per advertisement"}
)
