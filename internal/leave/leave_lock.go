package leave

import (
	"context"
	"sync"
)

// driverLocks serializes leave operations per driver inside one process.
// The driver row lock taken in the transaction covers other instances.
type driverLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newDriverLocks() *driverLocks {
	return &driverLocks{slots: make(map[string]*lockSlot)}
}

// Lock blocks until the driver is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (d *driverLocks) Lock(ctx context.Context, driverID string) (func(), error) {
	d.mu.Lock()
	slot, ok := d.slots[driverID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		d.slots[driverID] = slot
	}
	slot.refs++
	d.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			d.release(driverID, slot)
		}, nil
	case <-ctx.Done():
		d.release(driverID, slot)
		return nil, ctx.Err()
	}
}

func (d *driverLocks) release(driverID string, slot *lockSlot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(d.slots, driverID)
	}
}
