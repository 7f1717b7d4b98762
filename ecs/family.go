package ecs

import (
	"iter"
	"math"
	"reflect"
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/pkg/errors"
	"github.com/plus3/hearth/ecs/signal"
)

// AnyFamily is the type-erased view of a Family used by the engine and by
// inspection tools.
type AnyFamily interface {
	MemberType() reflect.Type
	Components() []reflect.Type
	Engine() *Engine
	Len() int
	Entities() []*Entity
	Pending() int

	attach(*Engine)
	detach()
	addEntity(*Entity) bool
	removeEntity(*Entity) bool
	addEntityComponent(*Entity, reflect.Type) bool
	removeEntityComponent(*Entity, reflect.Type) bool
	dispose() bool
	clearPool()
}

// Family is the live set of attached entities holding every component its
// shape requires. Each member is a record of type M filled from the entity.
type Family[M any] struct {
	shape  *Shape[M]
	engine *Engine

	members   []*M
	index     *intmap.Map[EntityID, *M]
	iterating int
	holes     bool

	pending   []*M
	stateSlot *signal.Slot[UpdateStateEvent[*Engine]]
	pool      *Pool[*M]

	memberAdded   signal.Signal[MemberEvent[M]]
	memberRemoved signal.Signal[MemberEvent[M]]
}

// NewFamily creates a detached family for shape. Families are normally
// obtained through AddFamily.
func NewFamily[M any](shape *Shape[M], memberPoolCapacity int) *Family[M] {
	return &Family[M]{
		shape: shape,
		index: intmap.New[EntityID, *M](64),
		pool:  NewPool(memberPoolCapacity, func() *M { return new(M) }),
	}
}

func (f *Family[M]) Shape() *Shape[M]           { return f.shape }
func (f *Family[M]) MemberType() reflect.Type   { return f.shape.MemberType() }
func (f *Family[M]) Components() []reflect.Type { return f.shape.Components() }
func (f *Family[M]) Engine() *Engine            { return f.engine }
func (f *Family[M]) Len() int                   { return f.index.Len() }
func (f *Family[M]) Pending() int               { return len(f.pending) }
func (f *Family[M]) MemberPool() *Pool[*M]      { return f.pool }

// MemberAdded is dispatched after a member joined the family.
func (f *Family[M]) MemberAdded() *signal.Signal[MemberEvent[M]] {
	return &f.memberAdded
}

// MemberRemoved is dispatched after a member left the family. The record is
// still filled while listeners run.
func (f *Family[M]) MemberRemoved() *signal.Signal[MemberEvent[M]] {
	return &f.memberRemoved
}

// Get returns the member record of e, or nil.
func (f *Family[M]) Get(e *Entity) *M {
	if e == nil {
		return nil
	}
	m, _ := f.index.Get(e.id)
	return m
}

// Has reports whether e is a member.
func (f *Family[M]) Has(e *Entity) bool {
	return f.Get(e) != nil
}

// All iterates the members in order. Members removed during iteration are
// skipped and members added during iteration are visited.
func (f *Family[M]) All() iter.Seq[*M] {
	return func(yield func(*M) bool) {
		f.iterating++
		defer f.iterationDone()
		for i := 0; i < len(f.members); i++ {
			m := f.members[i]
			if m == nil {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

func (f *Family[M]) iterationDone() {
	f.iterating--
	if f.iterating == 0 && f.holes {
		f.members = slices.DeleteFunc(f.members, func(m *M) bool { return m == nil })
		f.holes = false
	}
}

// Members returns a copy of the members in order.
func (f *Family[M]) Members() []*M {
	out := make([]*M, 0, f.Len())
	for m := range f.All() {
		out = append(out, m)
	}
	return out
}

// Entities returns the member entities in order.
func (f *Family[M]) Entities() []*Entity {
	out := make([]*Entity, 0, f.Len())
	for m := range f.All() {
		out = append(out, f.shape.member(m).entity)
	}
	return out
}

// Sort reorders the members with a stable sort. It is refused while the
// members are being iterated.
func (f *Family[M]) Sort(cmp func(a, b *M) int) bool {
	return f.SortWith(slices.SortStableFunc[[]*M, *M], cmp)
}

// SortWith reorders the members with strategy.
func (f *Family[M]) SortWith(strategy func([]*M, func(a, b *M) int), cmp func(a, b *M) int) bool {
	if f.iterating > 0 || strategy == nil || cmp == nil {
		return false
	}
	strategy(f.members, cmp)
	return true
}

func (f *Family[M]) attach(engine *Engine) {
	f.engine = engine
	f.stateSlot = engine.updateStateChanged.Add(func(ev UpdateStateEvent[*Engine]) {
		if ev.Current == TimeStepNone {
			f.releasePending()
		}
	}, math.MinInt)
}

func (f *Family[M]) detach() {
	if f.stateSlot != nil {
		f.stateSlot.Remove()
		f.stateSlot = nil
	}
	f.engine = nil
	f.releasePending()
}

func (f *Family[M]) addEntity(e *Entity) bool {
	if f.engine == nil || e.engine != f.engine {
		return false
	}
	if _, ok := f.index.Get(e.id); ok {
		return false
	}
	if !f.shape.Matches(e) {
		return false
	}
	m := f.pool.Acquire()
	f.shape.fill(m, e)
	f.index.Put(e.id, m)
	f.members = append(f.members, m)
	f.memberAdded.Dispatch(MemberEvent[M]{Source: f, Value: m})
	return true
}

func (f *Family[M]) removeEntity(e *Entity) bool {
	m, ok := f.index.Get(e.id)
	if !ok {
		return false
	}
	f.index.Del(e.id)
	if i := slices.Index(f.members, m); i >= 0 {
		if f.iterating > 0 {
			f.members[i] = nil
			f.holes = true
		} else {
			f.members = slices.Delete(f.members, i, i+1)
		}
	}
	f.memberRemoved.Dispatch(MemberEvent[M]{Source: f, Value: m})

	if f.engine != nil && f.engine.updateState != TimeStepNone {
		f.pending = append(f.pending, m)
	} else {
		f.release(m)
	}
	return true
}

func (f *Family[M]) addEntityComponent(e *Entity, typ reflect.Type) bool {
	if !f.shape.Requires(typ) {
		return false
	}
	return f.addEntity(e)
}

func (f *Family[M]) removeEntityComponent(e *Entity, typ reflect.Type) bool {
	if !f.shape.Requires(typ) {
		return false
	}
	return f.removeEntity(e)
}

func (f *Family[M]) release(m *M) {
	f.shape.clear(m)
	f.pool.Release(m)
}

func (f *Family[M]) clearPool() {
	f.pool.Clear()
}

func (f *Family[M]) releasePending() {
	for len(f.pending) > 0 {
		m := f.pending[0]
		f.pending = f.pending[1:]
		f.release(m)
	}
	f.pending = nil
}

// dispose drops every member and listener. It is refused while the family is
// attached or still holds members waiting to be pooled.
func (f *Family[M]) dispose() bool {
	if f.engine != nil || len(f.pending) > 0 || f.iterating > 0 {
		return false
	}
	for _, m := range f.members {
		if m != nil {
			f.release(m)
		}
	}
	f.members = f.members[:0]
	f.holes = false
	f.index.Clear()
	f.memberAdded.Dispose()
	f.memberRemoved.Dispose()
	return true
}

// AddFamily returns the family of shape, creating it and back-filling it from
// the attached entities on first request. Every call must be paired with a
// RemoveFamily. A member type has one shape per engine: a request with
// another shape while the family is attached is logged and returns nil.
func AddFamily[M any](engine *Engine, shape *Shape[M]) *Family[M] {
	typ := shape.MemberType()
	if f, ok := engine.Family(typ).(*Family[M]); ok && f.shape != shape {
		engine.logger.WithError(errors.Wrapf(ErrShapeMismatch, "family %s", typ)).Warn("family request refused")
		return nil
	}
	fits := func(f AnyFamily) bool {
		pooled, ok := f.(*Family[M])
		return ok && pooled.shape == shape
	}
	f, _ := engine.requestFamily(typ, fits, func() AnyFamily {
		return NewFamily(shape, engine.config.MemberPoolCapacity)
	}).(*Family[M])
	return f
}

// RemoveFamily releases one request for the family of M.
func RemoveFamily[M any](engine *Engine, shape *Shape[M]) bool {
	return engine.releaseFamily(shape.MemberType())
}

// GetFamily returns the family of M without requesting it, or nil.
func GetFamily[M any](engine *Engine) *Family[M] {
	f, _ := engine.Family(reflect.TypeFor[M]()).(*Family[M])
	return f
}
