package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rigado/blescan"
	"github.com/rigado/blescan/config"
	"github.com/rigado/blescan/wire"
)

// printer serializes output from the radio goroutines.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

func (p *printer) result(a blescan.Advertisement) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == config.OutputJSON {
		b, err := wire.Marshal(a)
		if err != nil {
			fmt.Fprintf(p.w, "{\"error\":%q}\n", err.Error())
			return
		}
		fmt.Fprintf(p.w, "%s\n", b)
		return
	}

	addr := blescan.FormatAddress(a.Address)
	if a.Address == 0 {
		addr = a.SystemID
	}
	fmt.Fprintf(p.w, "[%s] C %v RSSI %3d", addr, boolMark(a.IsConnectable), a.RSSI)
	if a.Name != nil {
		fmt.Fprintf(p.w, " Name: %s", *a.Name)
	}
	if a.TxPowerLevel != nil {
		fmt.Fprintf(p.w, " Tx: %d", *a.TxPowerLevel)
	}
	if len(a.Services) > 0 {
		fmt.Fprintf(p.w, " Svcs: %s", strings.Join(a.Services, ","))
	}
	for _, md := range a.ManufacturerData {
		fmt.Fprintf(p.w, " MD[%04X]: %X", md.CompanyID, md.Data)
	}
	for _, sd := range a.ServiceData {
		fmt.Fprintf(p.w, " SD[%s]: %X", sd.UUID, sd.Data)
	}
	fmt.Fprintln(p.w)
}

func (p *printer) failure(k blescan.ErrorKind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == config.OutputJSON {
		fmt.Fprintf(p.w, "{\"failure\":%q}\n", k.String())
		return
	}
	fmt.Fprintf(p.w, "scan failed: %s\n", k)
}

func boolMark(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
