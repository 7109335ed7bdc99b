package infra

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"piping-relay/internal/rendezvous/domain"
)

// defaultChunkSize bounds how much of the sender's body is buffered at
// once. Memory use is this value times the number of live receivers, never
// the whole payload.
const defaultChunkSize = 32 * 1024

// Pump implements domain.Pump: it reads the sender's body once and fans each
// chunk out to every live receiver, applying per-receiver backpressure so a
// slow receiver slows the transfer rather than causing dropped bytes.
type Pump struct {
	logger         *slog.Logger
	chunkSizeBytes int
}

// PumpOption configures a Pump using the functional-options pattern.
type PumpOption func(*Pump)

// WithChunkSize overrides the read buffer size used for each sender.Read.
func WithChunkSize(n int) PumpOption {
	return func(p *Pump) {
		if n > 0 {
			p.chunkSizeBytes = n
		}
	}
}

// NewPump builds a Pump. logger may be nil.
func NewPump(logger *slog.Logger, opts ...PumpOption) *Pump {
	p := &Pump{logger: logger, chunkSizeBytes: defaultChunkSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// receiverWorker owns one receiver's ResponseWriter for the lifetime of a
// transfer. Running each receiver on its own goroutine, fed by a buffered
// channel, is what lets header commits happen concurrently across receivers
// while still guaranteeing, within each receiver, that CommitHeaders
// happens-before its first Write.
type receiverWorker struct {
	session domain.ReceiverSession
	chunks  chan []byte
	done    chan struct{}
	failed  atomic.Bool
}

// Run streams the sender's body to every receiver. It never returns an
// error: a disconnecting peer is an expected outcome, handled by narrowing
// the fan-out set (receivers) or truncating the sender's notification
// (sender), never by panicking or propagating a Go error to the caller.
func (p *Pump) Run(sender domain.SenderSession, receivers []domain.ReceiverSession) {
	headers := sender.Handle.Headers()

	workers := make([]*receiverWorker, len(receivers))
	var wg sync.WaitGroup
	for i, rs := range receivers {
		w := &receiverWorker{session: rs, chunks: make(chan []byte, 1), done: make(chan struct{})}
		workers[i] = w
		wg.Add(1)
		go p.runReceiver(w, headers, &wg)
	}

	_ = sender.Handle.Notify(fmt.Sprintf("[INFO] %d receiver(s) connected, starting transfer\n", len(receivers)))

	truncated := p.fanOut(sender, workers)

	for _, w := range workers {
		close(w.chunks)
	}
	wg.Wait()

	if truncated {
		_ = sender.Handle.Notify("[ERROR] transfer interrupted before completion\n")
		if p.logger != nil {
			p.logger.Warn("sender disconnected mid-transfer")
		}
		return
	}
	_ = sender.Handle.Notify("[INFO] transfer complete\n")
}

// fanOut reads the sender's body to completion, pushing every chunk to each
// live worker, and reports whether the sender ended early (disconnect or
// read error) rather than at a clean EOF.
func (p *Pump) fanOut(sender domain.SenderSession, workers []*receiverWorker) bool {
	body := sender.Handle.Body()
	buf := make([]byte, p.chunkSizeBytes)

	for {
		if p.liveCount(workers) == 0 {
			// Nobody left to feed: drain and discard the rest of the
			// sender's body so its handler can still commit a response
			// rather than hang.
			_, _ = io.Copy(io.Discard, body)
			return false
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.distribute(workers, chunk)
		}
		if rerr != nil {
			return rerr != io.EOF
		}
	}
}

func (p *Pump) distribute(workers []*receiverWorker, chunk []byte) {
	for _, w := range workers {
		if w.failed.Load() {
			continue
		}
		select {
		case w.chunks <- chunk:
		case <-w.done:
			w.failed.Store(true)
		}
	}
}

func (p *Pump) liveCount(workers []*receiverWorker) int {
	n := 0
	for _, w := range workers {
		if !w.failed.Load() {
			n++
		}
	}
	return n
}

func (p *Pump) runReceiver(w *receiverWorker, headers domain.Headers, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(w.done)

	if err := w.session.Handle.CommitHeaders(headers); err != nil {
		w.failed.Store(true)
		return
	}

	for chunk := range w.chunks {
		if w.session.Ctx.Err() != nil {
			w.failed.Store(true)
			return
		}
		if _, err := w.session.Handle.Write(chunk); err != nil {
			w.failed.Store(true)
			return
		}
		w.session.Handle.Flush()
	}
}
