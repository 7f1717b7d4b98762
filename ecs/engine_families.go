package ecs

import (
	"reflect"
	"slices"
)

type familyEntry struct {
	typ    reflect.Type
	family AnyFamily
	count  int
}

// HasFamily reports whether the family of member type typ is attached.
func (e *Engine) HasFamily(typ reflect.Type) bool {
	_, ok := e.familiesByType[typ]
	return ok
}

// Family returns the attached family of member type typ, or nil.
func (e *Engine) Family(typ reflect.Type) AnyFamily {
	if entry := e.familiesByType[typ]; entry != nil {
		return entry.family
	}
	return nil
}

// FamilyRefs returns the number of outstanding requests for typ.
func (e *Engine) FamilyRefs(typ reflect.Type) int {
	if entry := e.familiesByType[typ]; entry != nil {
		return entry.count
	}
	return 0
}

// Families returns the attached families in creation order.
func (e *Engine) Families() []AnyFamily {
	out := make([]AnyFamily, len(e.families))
	for i, entry := range e.families {
		out[i] = entry.family
	}
	return out
}

// FamilyCount returns the number of attached families.
func (e *Engine) FamilyCount() int {
	return len(e.families)
}

// FamilyPool returns the pool of disposed families of member type typ.
func (e *Engine) FamilyPool(typ reflect.Type) *Pool[AnyFamily] {
	pool := e.familyPools[typ]
	if pool == nil {
		pool = NewPool[AnyFamily](e.config.FamilyPoolCapacity, nil)
		e.familyPools[typ] = pool
	}
	return pool
}

// requestFamily adds one reference to typ. The first one takes a family from
// the pool, or from newFamily, and fills it from the attached entities.
// Pooled families that fits rejects are dropped.
func (e *Engine) requestFamily(typ reflect.Type, fits func(AnyFamily) bool, newFamily func() AnyFamily) AnyFamily {
	if entry := e.familiesByType[typ]; entry != nil {
		if entry.count == 0 {
			e.pendingFamilies = slices.DeleteFunc(e.pendingFamilies, func(t reflect.Type) bool { return t == typ })
		}
		entry.count++
		return entry.family
	}

	f := e.FamilyPool(typ).Acquire()
	if f == nil || !fits(f) {
		f = newFamily()
	}
	entry := &familyEntry{typ: typ, family: f, count: 1}
	e.familiesByType[typ] = entry
	e.families = append(e.families, entry)
	f.attach(e)
	for _, ent := range e.Entities() {
		if ent.linked {
			f.addEntity(ent)
		}
	}

	e.logger.WithField("family", typ.String()).Debug("family added")
	e.familyAdded.Dispatch(FamilyEvent{Source: e, Value: typ})
	return f
}

// releaseFamily drops one reference to typ. The last one disposes the
// family, or queues it when an update is running.
func (e *Engine) releaseFamily(typ reflect.Type) bool {
	entry := e.familiesByType[typ]
	if entry == nil || entry.count == 0 {
		return false
	}
	entry.count--
	if entry.count > 0 {
		return true
	}
	if e.updating {
		e.pendingFamilies = append(e.pendingFamilies, typ)
		return true
	}
	e.disposeFamily(entry)
	return true
}

func (e *Engine) disposeFamily(entry *familyEntry) {
	delete(e.familiesByType, entry.typ)
	if i := slices.Index(e.families, entry); i >= 0 {
		e.families = slices.Delete(e.families, i, i+1)
	}
	f := entry.family
	f.detach()

	e.logger.WithField("family", entry.typ.String()).Debug("family removed")
	e.familyRemoved.Dispatch(FamilyEvent{Source: e, Value: entry.typ})
	if f.dispose() {
		e.FamilyPool(entry.typ).Release(f)
	} else {
		e.logger.WithField("family", entry.typ.String()).Warn("family refused disposal")
	}
}

func (e *Engine) disposePendingFamilies() {
	for len(e.pendingFamilies) > 0 {
		typ := e.pendingFamilies[0]
		e.pendingFamilies = e.pendingFamilies[1:]
		if entry := e.familiesByType[typ]; entry != nil && entry.count == 0 {
			e.disposeFamily(entry)
		}
	}
}
