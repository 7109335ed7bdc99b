package application

import (
	"context"
	"log/slog"
	"sync"

	"piping-relay/internal/rendezvous/domain"
)

// senderEntry tracks one pending or admitted sender request.
type senderEntry struct {
	session domain.SenderSession
	done    chan struct{}
	err     error
	// claimed is true once a Pump run has taken ownership of this entry.
	// After that point only the Pump may close done.
	claimed bool
}

// receiverEntry tracks one pending or admitted receiver request, stamped
// with its FIFO arrival index so over-capacity classification is
// deterministic regardless of whether the sender or the receivers arrived
// first.
type receiverEntry struct {
	session domain.ReceiverSession
	done    chan struct{}
	err     error
	claimed bool
}

// Slot is the per-path rendezvous state machine. A Slot is created on first
// arrival for a path and disposes itself — via onEmpty — the instant it
// reaches StateDone or reverts to StateEmpty with nothing left pending.
type Slot struct {
	key     string
	pump    domain.Pump
	onEmpty func()
	logger  *slog.Logger

	mu        sync.Mutex
	state     domain.State
	sender    *senderEntry
	capacity  int
	receivers []*receiverEntry
	arrived   int
	disposed  sync.Once
}

// NewSlot builds an empty Slot for key. pump runs the transfer once both
// sides are ready; onEmpty is invoked (at most once) when the Slot no longer
// has any reason to exist and should be removed from the registry.
func NewSlot(key string, pump domain.Pump, onEmpty func(), logger *slog.Logger) *Slot {
	return &Slot{
		key:     key,
		pump:    pump,
		onEmpty: onEmpty,
		logger:  logger,
		state:   domain.StateEmpty,
	}
}

// State returns the Slot's current state. Exposed for tests and logging.
func (s *Slot) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RegisterSender admits handle as the Slot's sender, parsing rawCapacity as
// the fan-out size. It blocks until the transfer this sender started has
// completed, the sender was rejected, or ctx is cancelled while still
// waiting for receivers.
func (s *Slot) RegisterSender(ctx context.Context, rawCapacity string, handle domain.SenderHandle) error {
	s.mu.Lock()
	if s.sender != nil {
		s.mu.Unlock()
		return domain.ErrDuplicateSender
	}

	n, err := domain.ParseCapacity(rawCapacity)
	if err != nil {
		empty := len(s.receivers) == 0
		s.mu.Unlock()
		if empty {
			s.dispose()
		}
		return err
	}

	entry := &senderEntry{
		session: domain.SenderSession{Ctx: ctx, Handle: handle},
		done:    make(chan struct{}),
	}
	s.sender = entry
	s.capacity = n

	// Receivers queued before the sender revealed N are classified now, in
	// FIFO arrival order: the first N are kept, the rest are rejected.
	var rejected []*receiverEntry
	if len(s.receivers) > n {
		rejected = append(rejected, s.receivers[n:]...)
		s.receivers = s.receivers[:n]
	}

	ready := len(s.receivers) == n
	if ready {
		s.state = domain.StateTransferring
		entry.claimed = true
		for _, r := range s.receivers {
			r.claimed = true
		}
	} else {
		s.state = domain.StateSenderWaiting
	}
	var recvSnapshot []*receiverEntry
	if ready {
		recvSnapshot = append([]*receiverEntry(nil), s.receivers...)
	}
	for _, r := range rejected {
		r.claimed = true
	}
	s.mu.Unlock()

	for _, r := range rejected {
		r.err = domain.ErrOverCapacity
		close(r.done)
	}
	if ready {
		go s.runPump(entry, recvSnapshot)
	} else {
		go s.watchSenderCancel(ctx, entry)
	}

	<-entry.done
	return entry.err
}

// RegisterReceiver admits handle as the next receiver in arrival order. It
// blocks until the transfer it joined has completed, it was rejected as
// over-capacity, or ctx is cancelled while still waiting.
func (s *Slot) RegisterReceiver(ctx context.Context, handle domain.ReceiverHandle) error {
	s.mu.Lock()

	if s.sender != nil && len(s.receivers) >= s.capacity {
		s.mu.Unlock()
		return domain.ErrOverCapacity
	}

	entry := &receiverEntry{
		session: domain.ReceiverSession{Ctx: ctx, Handle: handle, Index: s.arrived},
		done:    make(chan struct{}),
	}
	s.arrived++
	s.receivers = append(s.receivers, entry)

	ready := s.sender != nil && len(s.receivers) == s.capacity
	var sender *senderEntry
	var recvSnapshot []*receiverEntry
	if ready {
		s.state = domain.StateTransferring
		sender = s.sender
		sender.claimed = true
		for _, r := range s.receivers {
			r.claimed = true
		}
		recvSnapshot = append([]*receiverEntry(nil), s.receivers...)
	} else if s.sender != nil {
		s.state = domain.StateSenderWaiting
	} else {
		s.state = domain.StateReceiversWaiting
	}
	s.mu.Unlock()

	if ready {
		go s.runPump(sender, recvSnapshot)
	} else {
		go s.watchReceiverCancel(ctx, entry)
	}

	<-entry.done
	return entry.err
}

// runPump executes the transfer and tears the Slot down on completion.
func (s *Slot) runPump(sender *senderEntry, receivers []*receiverEntry) {
	sessions := make([]domain.ReceiverSession, len(receivers))
	for i, r := range receivers {
		sessions[i] = r.session
	}

	s.pump.Run(sender.session, sessions)

	s.mu.Lock()
	s.state = domain.StateDone
	s.mu.Unlock()

	// Remove the Slot from the registry before waking the blocked HTTP
	// handlers, so a request arriving the instant a peer sees its response
	// always finds a fresh Slot rather than this finished one.
	s.dispose()

	close(sender.done)
	for _, r := range receivers {
		close(r.done)
	}
}

// watchSenderCancel unblocks a sender still waiting for receivers when its
// request context is cancelled.
func (s *Slot) watchSenderCancel(ctx context.Context, entry *senderEntry) {
	select {
	case <-entry.done:
		return
	case <-ctx.Done():
	}

	s.mu.Lock()
	if entry.claimed {
		s.mu.Unlock()
		return
	}
	entry.claimed = true
	if s.sender == entry {
		s.sender = nil
		s.capacity = 0
		if len(s.receivers) == 0 {
			s.state = domain.StateEmpty
		} else {
			s.state = domain.StateReceiversWaiting
		}
	}
	empty := s.sender == nil && len(s.receivers) == 0
	s.mu.Unlock()

	if empty {
		s.dispose()
	}
	entry.err = ctx.Err()
	close(entry.done)
}

// watchReceiverCancel unblocks a receiver still waiting for the sender (or
// for the sender to reveal enough capacity) when its context is cancelled.
func (s *Slot) watchReceiverCancel(ctx context.Context, entry *receiverEntry) {
	select {
	case <-entry.done:
		return
	case <-ctx.Done():
	}

	s.mu.Lock()
	if entry.claimed {
		s.mu.Unlock()
		return
	}
	entry.claimed = true
	for i, r := range s.receivers {
		if r == entry {
			s.receivers = append(s.receivers[:i], s.receivers[i+1:]...)
			break
		}
	}
	if s.sender == nil && len(s.receivers) == 0 {
		s.state = domain.StateEmpty
	}
	empty := s.sender == nil && len(s.receivers) == 0
	s.mu.Unlock()

	if empty {
		s.dispose()
	}
	entry.err = ctx.Err()
	close(entry.done)
}

func (s *Slot) dispose() {
	s.disposed.Do(func() {
		if s.onEmpty != nil {
			s.onEmpty()
		}
	})
}
