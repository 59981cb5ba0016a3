package radio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rigado/blescan"
)

// Sink is the delivery side of a provider scan: it applies the software
// filter and the report delay of the scan's settings before handing packets
// to the callback.
type Sink interface {
	Put(p Packet)
	Fail(code int)
	// Close drops pending packets. Nothing is delivered after Close.
	Close()
}

// NewSink returns a Sink for cb. Packets not matching filters are dropped;
// when settings.ReportDelay > 0 packets are delivered in batches.
func NewSink(cb Callback, filters FilterSet, settings blescan.ScanSettings) Sink {
	if settings.ReportDelay > 0 {
		return newBatcher(cb, filters, settings.ReportDelay)
	}
	return &directSink{cb: cb, filters: filters}
}

type directSink struct {
	cb      Callback
	filters FilterSet
	closed  int32
}

func (s *directSink) Put(p Packet) {
	if !s.filters.Match(p) || atomic.LoadInt32(&s.closed) != 0 {
		return
	}
	s.cb.OnScanResult(p)
}

func (s *directSink) Fail(code int) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return
	}
	s.cb.OnScanFailed(code)
}

func (s *directSink) Close() {
	atomic.StoreInt32(&s.closed, 1)
}

// batcher collects packets and flushes them every delay.
type batcher struct {
	cb      Callback
	filters FilterSet

	mu     sync.Mutex
	buf    []Packet
	closed bool

	// serializes deliveries so batches keep their order
	flushMu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

func newBatcher(cb Callback, filters FilterSet, delay time.Duration) *batcher {
	b := &batcher{
		cb:      cb,
		filters: filters,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go b.loop(delay)
	return b
}

func (b *batcher) loop(delay time.Duration) {
	defer close(b.done)
	t := time.NewTicker(delay)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			b.flush()
		case <-b.stop:
			return
		}
	}
}

func (b *batcher) take() []Packet {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	ps := b.buf
	b.buf = nil
	return ps
}

func (b *batcher) flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	if ps := b.take(); len(ps) != 0 {
		b.cb.OnBatchScanResults(ps)
	}
}

func (b *batcher) Put(p Packet) {
	if !b.filters.Match(p) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.buf = append(b.buf, p)
}

func (b *batcher) Fail(code int) {
	// results seen before the failure go out first
	b.flush()

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if !closed {
		b.cb.OnScanFailed(code)
	}
}

// Close drops pending packets and stops the flush goroutine without waiting
// for it, so it is safe to call from inside a callback.
func (b *batcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.buf = nil
	close(b.stop)
}

// Done is closed once the flush goroutine has exited.
func (b *batcher) Done() <-chan struct{} { return b.done }
