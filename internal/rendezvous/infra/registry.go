package infra

import (
	"context"
	"log/slog"
	"sync"

	"piping-relay/internal/rendezvous/application"
	"piping-relay/internal/rendezvous/domain"
)

// Registry is the process-wide path-to-Slot map: a sync.Mutex guarding a
// map, with get-or-create on the hot path and identity-checked removal so a
// Slot can never delete a successor created for the same key after it.
type Registry struct {
	mu     sync.Mutex
	slots  map[string]*application.Slot
	pump   domain.Pump
	logger *slog.Logger
}

// NewRegistry builds an empty Registry. pump is shared across every Slot the
// Registry creates; it must be safe for concurrent use.
func NewRegistry(pump domain.Pump, logger *slog.Logger) *Registry {
	return &Registry{
		slots:  make(map[string]*application.Slot),
		pump:   pump,
		logger: logger,
	}
}

// AdmitSender routes a sender's admission request to the Slot for key,
// creating one if none exists yet.
func (r *Registry) AdmitSender(ctx context.Context, key, rawCapacity string, handle domain.SenderHandle) error {
	slot := r.getOrCreate(key)
	return slot.RegisterSender(ctx, rawCapacity, handle)
}

// AdmitReceiver routes a receiver's admission request to the Slot for key,
// creating one if none exists yet.
func (r *Registry) AdmitReceiver(ctx context.Context, key string, handle domain.ReceiverHandle) error {
	slot := r.getOrCreate(key)
	return slot.RegisterReceiver(ctx, handle)
}

func (r *Registry) getOrCreate(key string) *application.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot, ok := r.slots[key]; ok {
		return slot
	}

	var slot *application.Slot
	slot = application.NewSlot(key, r.pump, func() { r.remove(key, slot) }, r.logger)
	r.slots[key] = slot
	return slot
}

// remove deletes key from the map only if the current mapping is still
// slot, guarding against a Slot racing to remove a successor created for
// the same path after it finished.
func (r *Registry) remove(key string, slot *application.Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.slots[key]; ok && current == slot {
		delete(r.slots, key)
	}
}

// Size reports the number of live Slots. Exposed for tests and diagnostics.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
