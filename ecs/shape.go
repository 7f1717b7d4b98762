package ecs

import (
	"fmt"
	"reflect"
	"slices"
)

// Member is embedded by family member records and links them to their entity.
type Member struct {
	entity *Entity
}

func (m *Member) member() *Member { return m }

// Entity returns the entity the record describes, or nil for a pooled record.
func (m *Member) Entity() *Entity { return m.entity }

// ShapeSlot binds one required component type to a field of the member record.
type ShapeSlot[M any] struct {
	typ   reflect.Type
	set   func(*M, Component)
	clear func(*M)
}

// Type returns the required component type key.
func (s ShapeSlot[M]) Type() reflect.Type { return s.typ }

// Require declares that members of M need a component stored under the type
// key of C, written to the field returned by field:
//
//	type Mover struct {
//		ecs.Member
//		Position *Position
//		Velocity *Velocity
//	}
//
//	var moverShape = ecs.DeclareShape[Mover](
//		ecs.Require(func(m *Mover) **Position { return &m.Position }),
//		ecs.Require(func(m *Mover) **Velocity { return &m.Velocity }),
//	)
func Require[M any, C Component](field func(*M) *C) ShapeSlot[M] {
	return ShapeSlot[M]{
		typ: TypeOf[C](),
		set: func(m *M, c Component) {
			*field(m), _ = c.(C)
		},
		clear: func(m *M) {
			var zero C
			*field(m) = zero
		},
	}
}

// Shape is the static component layout of a family member record.
type Shape[M any] struct {
	types  []reflect.Type
	slots  []ShapeSlot[M]
	member func(*M) *Member
}

// DeclareShape builds the shape of M from its slots. It panics when two slots
// require the same component type.
func DeclareShape[M any, PM interface {
	*M
	member() *Member
}](slots ...ShapeSlot[M]) *Shape[M] {
	s := &Shape[M]{
		slots:  slots,
		member: func(m *M) *Member { return PM(m).member() },
	}
	for _, slot := range slots {
		if slot.typ == nil || slot.set == nil {
			panic(fmt.Sprintf("ecs: shape %s has an undeclared slot", reflect.TypeFor[M]()))
		}
		if slices.Contains(s.types, slot.typ) {
			panic(fmt.Sprintf("ecs: shape %s requires %s twice", reflect.TypeFor[M](), slot.typ))
		}
		s.types = append(s.types, slot.typ)
	}
	return s
}

// MemberType returns the member record type.
func (s *Shape[M]) MemberType() reflect.Type {
	return reflect.TypeFor[M]()
}

// Components returns the required component types in declaration order.
func (s *Shape[M]) Components() []reflect.Type {
	return slices.Clone(s.types)
}

// Requires reports whether typ is one of the required component types.
func (s *Shape[M]) Requires(typ reflect.Type) bool {
	return slices.Contains(s.types, typeKey(typ))
}

// Matches reports whether e holds every required component type.
func (s *Shape[M]) Matches(e *Entity) bool {
	for _, typ := range s.types {
		if _, ok := e.components[typ]; !ok {
			return false
		}
	}
	return true
}

func (s *Shape[M]) fill(m *M, e *Entity) {
	s.member(m).entity = e
	for _, slot := range s.slots {
		slot.set(m, e.components[slot.typ])
	}
}

func (s *Shape[M]) clear(m *M) {
	s.member(m).entity = nil
	for _, slot := range s.slots {
		slot.clear(m)
	}
}
