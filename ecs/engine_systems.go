package ecs

import (
	"math"
	"reflect"
	"slices"

	"github.com/plus3/hearth/ecs/signal"
	"github.com/sirupsen/logrus"
)

type systemEntry struct {
	typ          reflect.Type
	system       System
	count        int
	prioritySlot *signal.Slot[PriorityEvent]
	stats        systemStatsInternal
}

// HasSystem reports whether a system of type typ is attached.
func (e *Engine) HasSystem(typ reflect.Type) bool {
	_, ok := e.systemsByType[typeKey(typ)]
	return ok
}

// System returns the attached system of type typ, or nil.
func (e *Engine) System(typ reflect.Type) System {
	if entry := e.systemsByType[typeKey(typ)]; entry != nil {
		return entry.system
	}
	return nil
}

// SystemRefs returns the number of entities requesting typ.
func (e *Engine) SystemRefs(typ reflect.Type) int {
	if entry := e.systemsByType[typeKey(typ)]; entry != nil {
		return entry.count
	}
	return 0
}

// Systems returns the attached systems in update order.
func (e *Engine) Systems() []System {
	out := make([]System, len(e.systems))
	for i, entry := range e.systems {
		out[i] = entry.system
	}
	return out
}

// SystemAt returns the system at position index of the update order, or nil.
func (e *Engine) SystemAt(index int) System {
	if index < 0 || index >= len(e.systems) {
		return nil
	}
	return e.systems[index].system
}

// NumSystems returns the number of attached systems.
func (e *Engine) NumSystems() int {
	return len(e.systems)
}

// GetSystem returns the attached system of type T, or nil.
func GetSystem[T any](engine *Engine) *T {
	s, _ := any(engine.System(TypeOf[T]())).(*T)
	return s
}

// requestSystem adds one reference to typ, instantiating the system on the
// first one. A system waiting for disposal is kept instead.
func (e *Engine) requestSystem(typ reflect.Type) System {
	if entry := e.systemsByType[typ]; entry != nil {
		if entry.count == 0 {
			e.pendingSystems = slices.DeleteFunc(e.pendingSystems, func(t reflect.Type) bool { return t == typ })
		}
		entry.count++
		return entry.system
	}

	s, err := e.registry.New(typ)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"system": typ.String(),
			"error":  err,
		}).Warn("failed to instantiate system")
		return nil
	}

	b := s.systemBase()
	entry := &systemEntry{
		typ:    typ,
		system: s,
		count:  1,
		stats:  newSystemStats(typ.Name()),
	}
	e.systemsByType[typ] = entry
	b.state = StateComposing
	b.engine = e
	b.syncTotalInterval()
	e.insertSystem(entry)
	entry.prioritySlot = b.priorityChanged.Add(func(PriorityEvent) {
		e.relinearize(entry)
	}, math.MaxInt)
	if adder, ok := s.(EngineAdder); ok {
		adder.AddedToEngine(e)
	}
	b.state = StateComposed

	e.logger.WithField("system", typ.String()).Debug("system added")
	e.systemAdded.Dispatch(SystemEvent{Source: e, Key: typ, Value: s})
	return s
}

// releaseSystem drops one reference to typ. The last one disposes the
// system, or queues it when an update is running.
func (e *Engine) releaseSystem(typ reflect.Type) bool {
	entry := e.systemsByType[typ]
	if entry == nil || entry.count == 0 {
		return false
	}
	entry.count--
	if entry.count > 0 {
		return true
	}
	if e.updating {
		e.pendingSystems = append(e.pendingSystems, typ)
		return true
	}
	e.disposeSystem(entry)
	return true
}

func (e *Engine) disposeSystem(entry *systemEntry) {
	s := entry.system
	b := s.systemBase()
	b.state = StateDisposing
	delete(e.systemsByType, entry.typ)
	e.removeSystemAt(slices.Index(e.systems, entry))
	entry.prioritySlot.Remove()
	if remover, ok := s.(EngineRemover); ok {
		remover.RemovedFromEngine(e)
	}
	b.engine = nil

	e.logger.WithField("system", entry.typ.String()).Debug("system removed")
	e.systemRemoved.Dispatch(SystemEvent{Source: e, Key: entry.typ, Value: s})
	if !b.Dispose() {
		e.logger.WithField("system", entry.typ.String()).Warn("system refused disposal")
	}
}

func (e *Engine) disposePendingSystems() {
	for len(e.pendingSystems) > 0 {
		typ := e.pendingSystems[0]
		e.pendingSystems = e.pendingSystems[1:]
		if entry := e.systemsByType[typ]; entry != nil && entry.count == 0 {
			e.disposeSystem(entry)
		}
	}
}

// insertSystem places entry before the first system with a strictly greater
// priority, behind every equal one.
func (e *Engine) insertSystem(entry *systemEntry) {
	priority := entry.system.systemBase().priority
	i := 0
	for i < len(e.systems) && e.systems[i].system.systemBase().priority <= priority {
		i++
	}
	e.systems = slices.Insert(e.systems, i, entry)
	if e.systemLoop && i <= e.systemCursor {
		e.systemCursor++
	}
}

func (e *Engine) removeSystemAt(i int) {
	if i < 0 {
		return
	}
	e.systems = slices.Delete(e.systems, i, i+1)
	if e.systemLoop && i <= e.systemCursor {
		e.systemCursor--
	}
}

func (e *Engine) relinearize(entry *systemEntry) {
	i := slices.Index(e.systems, entry)
	if i < 0 {
		return
	}
	e.removeSystemAt(i)
	e.insertSystem(entry)
}
