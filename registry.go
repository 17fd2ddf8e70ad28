package namedsem

import (
	"io"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// processRegistry backs the default coordinator and every coordinator built
// without WithRegistry, so reference counts are process-wide.
var processRegistry = NewRegistry()

// Slot is one registered local holder of a name. It is obtained from
// Registry.Acquire and given back exactly once with Registry.Release.
type Slot struct {
	id     uint64
	name   Name
	holder io.Closer

	// released is guarded by the owning registry's mutex.
	released bool
}

// Name returns the semaphore name the slot counts against.
func (s *Slot) Name() Name {
	return s.name
}

// ID returns a process-unique identifier for the slot.
func (s *Slot) ID() uint64 {
	return s.id
}

type registryEntry struct {
	count   int
	holders mapset.Set[*Slot]
}

// Registry maps semaphore names to the number of handles open on them in this
// process, along with the holders themselves.
//
// Registry is safe for concurrent use. Every mutation runs under a single
// mutex, so the counts returned by Acquire and Release for a given name follow
// one total order.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[string]*registryEntry
}

// NewRegistry returns an empty registry. Most programs should rely on the
// process-wide registry used by NewCoordinator instead.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
	}
}

// Acquire registers one more local holder of name and returns its slot. The
// holder is what CleanupOnExit closes; it may be nil.
func (r *Registry) Acquire(name Name, holder io.Closer) *Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name.value]
	if !ok {
		e = &registryEntry{holders: mapset.NewThreadUnsafeSet[*Slot]()}
		r.entries[name.value] = e
	}
	r.nextID++
	slot := &Slot{id: r.nextID, name: name, holder: holder}
	e.count++
	e.holders.Add(slot)
	return slot
}

// Release gives back a slot and returns the number of holders that remain for
// its name. The entry is dropped when the count reaches zero. Releasing the
// same slot twice fails with ErrAlreadyClosed and leaves the count untouched.
func (r *Registry) Release(slot *Slot) (int, error) {
	if slot == nil {
		return 0, newError("release", "", KindInvalidValue, "nil slot")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slot.released {
		return r.countLocked(slot.name), newError("release", slot.name.value, KindAlreadyClosed, "slot %d", slot.id)
	}
	e, ok := r.entries[slot.name.value]
	if !ok || !e.holders.Contains(slot) {
		return r.countLocked(slot.name), newError("release", slot.name.value, KindInvalidValue,
			"slot %d does not belong to this registry", slot.id)
	}
	slot.released = true
	e.holders.Remove(slot)
	e.count--
	if e.count == 0 {
		delete(r.entries, slot.name.value)
	}
	return e.count, nil
}

// Count returns the number of local holders of name.
func (r *Registry) Count(name Name) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked(name)
}

func (r *Registry) countLocked(name Name) int {
	if e, ok := r.entries[name.value]; ok {
		return e.count
	}
	return 0
}

// Holders returns the non-nil holders registered for name, oldest first.
func (r *Registry) Holders(name Name) []io.Closer {
	r.mu.Lock()
	slots := []*Slot(nil)
	if e, ok := r.entries[name.value]; ok {
		slots = e.holders.ToSlice()
	}
	r.mu.Unlock()

	sort.Slice(slots, func(i, j int) bool { return slots[i].id < slots[j].id })
	holders := make([]io.Closer, 0, len(slots))
	for _, s := range slots {
		if s.holder != nil {
			holders = append(holders, s.holder)
		}
	}
	return holders
}

// Names returns every name with at least one local holder, sorted.
func (r *Registry) Names() []Name {
	r.mu.Lock()
	names := make([]Name, 0, len(r.entries))
	for v := range r.entries {
		names = append(names, Name{value: v})
	}
	r.mu.Unlock()

	sort.Slice(names, func(i, j int) bool { return names[i].value < names[j].value })
	return names
}
