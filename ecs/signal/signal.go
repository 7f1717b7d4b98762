// Package signal provides a prioritized listener list whose dispatch is
// re-entrant: listeners may add or remove listeners (including themselves)
// and may dispatch the same signal again while a dispatch is in progress.
package signal

import "slices"

// maxPooledSlots bounds the number of retired slots kept for reuse.
const maxPooledSlots = 64

// Listener receives a dispatched value.
type Listener[T any] func(T)

// Slot is the handle returned by Signal.Add. A slot is recycled once it has
// been removed, so a handle must not be used after Remove returned true.
type Slot[T any] struct {
	signal   *Signal[T]
	listener Listener[T]
	priority int
	removed  bool
}

// Signal returns the signal the slot is attached to, or nil once removed.
func (s *Slot[T]) Signal() *Signal[T] {
	if s.removed {
		return nil
	}
	return s.signal
}

// Priority returns the dispatch priority. Higher priorities are dispatched first.
func (s *Slot[T]) Priority() int {
	return s.priority
}

// SetPriority moves the slot to its new position. The slot lands behind every
// other slot with the same priority.
func (s *Slot[T]) SetPriority(priority int) {
	if s.priority == priority {
		return
	}
	s.priority = priority
	if s.signal == nil || s.removed {
		return
	}
	sig := s.signal
	sig.removeAt(slices.Index(sig.slots, s))
	sig.insert(s)
}

// Remove detaches the slot from its signal.
func (s *Slot[T]) Remove() bool {
	if s.signal == nil {
		return false
	}
	return s.signal.Remove(s)
}

// Signal is an ordered listener list. The zero value is ready to use.
type Signal[T any] struct {
	slots    []*Slot[T]
	pooled   []*Slot[T]
	removed  []*Slot[T]
	cursors  []int
	live     int
	disposed bool
}

// Add registers a listener with the given priority and returns its slot.
// A nil listener is ignored.
func (s *Signal[T]) Add(listener Listener[T], priority int) *Slot[T] {
	if listener == nil {
		return nil
	}
	var slot *Slot[T]
	if n := len(s.pooled); n > 0 {
		slot = s.pooled[n-1]
		s.pooled = s.pooled[:n-1]
	} else {
		slot = &Slot[T]{}
	}
	slot.signal = s
	slot.listener = listener
	slot.priority = priority
	slot.removed = false
	s.disposed = false
	s.insert(slot)
	s.live++
	return slot
}

// Remove detaches the slot. While a dispatch is in progress the slot is only
// marked and is physically removed once the outermost dispatch returns.
func (s *Signal[T]) Remove(slot *Slot[T]) bool {
	if slot == nil || slot.signal != s || slot.removed {
		return false
	}
	s.live--
	if len(s.cursors) > 0 {
		slot.removed = true
		s.removed = append(s.removed, slot)
		return true
	}
	s.removeAt(slices.Index(s.slots, slot))
	s.recycle(slot)
	return true
}

// RemoveAll detaches every listener.
func (s *Signal[T]) RemoveAll() bool {
	if s.live == 0 {
		return false
	}
	for i := len(s.slots) - 1; i >= 0; i-- {
		if i < len(s.slots) && !s.slots[i].removed {
			s.Remove(s.slots[i])
		}
	}
	return true
}

// Dispatch calls every listener in priority order.
func (s *Signal[T]) Dispatch(value T) {
	if s.live == 0 {
		return
	}
	depth := len(s.cursors)
	s.cursors = append(s.cursors, 0)
	defer s.dispatchStop(depth)

	for s.cursors[depth] < len(s.slots) {
		slot := s.slots[s.cursors[depth]]
		s.cursors[depth]++
		if slot.removed {
			continue
		}
		slot.listener(value)
	}
}

func (s *Signal[T]) dispatchStop(depth int) {
	s.cursors = s.cursors[:depth]
	if depth > 0 {
		return
	}
	for len(s.removed) > 0 {
		slot := s.removed[len(s.removed)-1]
		s.removed = s.removed[:len(s.removed)-1]
		if i := slices.Index(s.slots, slot); i >= 0 {
			s.removeAt(i)
		}
		s.recycle(slot)
	}
}

// Dispatching returns the number of nested dispatches in progress.
func (s *Signal[T]) Dispatching() int {
	return len(s.cursors)
}

// Len returns the number of attached listeners.
func (s *Signal[T]) Len() int {
	return s.live
}

// Slots returns a copy of the attached slots in dispatch order.
func (s *Signal[T]) Slots() []*Slot[T] {
	out := make([]*Slot[T], 0, s.live)
	for _, slot := range s.slots {
		if !slot.removed {
			out = append(out, slot)
		}
	}
	return out
}

// Get returns the slot at the given dispatch position, or nil.
func (s *Signal[T]) Get(index int) *Slot[T] {
	if index < 0 {
		return nil
	}
	for _, slot := range s.slots {
		if slot.removed {
			continue
		}
		if index == 0 {
			return slot
		}
		index--
	}
	return nil
}

// Index returns the dispatch position of slot, or -1.
func (s *Signal[T]) Index(slot *Slot[T]) int {
	index := 0
	for _, current := range s.slots {
		if current.removed {
			continue
		}
		if current == slot {
			return index
		}
		index++
	}
	return -1
}

// Dispose removes every listener and drops pooled slots. It is idempotent.
func (s *Signal[T]) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.pooled = nil
	s.RemoveAll()
}

// IsDisposed reports whether Dispose ran and no listener was added since.
func (s *Signal[T]) IsDisposed() bool {
	return s.disposed
}

// insert places slot after every slot whose priority is greater or equal.
func (s *Signal[T]) insert(slot *Slot[T]) {
	i := len(s.slots)
	for i > 0 && s.slots[i-1].priority < slot.priority {
		i--
	}
	s.slots = slices.Insert(s.slots, i, slot)
	for depth, cursor := range s.cursors {
		if i < cursor {
			s.cursors[depth]++
		}
	}
}

func (s *Signal[T]) removeAt(i int) {
	if i < 0 {
		return
	}
	s.slots = slices.Delete(s.slots, i, i+1)
	for depth, cursor := range s.cursors {
		if i < cursor {
			s.cursors[depth]--
		}
	}
}

func (s *Signal[T]) recycle(slot *Slot[T]) {
	slot.signal = nil
	slot.listener = nil
	slot.priority = 0
	slot.removed = false
	if !s.disposed && len(s.pooled) < maxPooledSlots {
		s.pooled = append(s.pooled, slot)
	}
}
