package ecs

import (
	"reflect"
	"time"
)

// Change is dispatched when a property of Source moves from Previous to Current.
type Change[S, V any] struct {
	Source   S
	Current  V
	Previous V
}

// KeyValue is dispatched when Value is attached to or detached from Source under Key.
type KeyValue[S, K, V any] struct {
	Source S
	Key    K
	Value  V
}

// Value is dispatched when Value is attached to or detached from Source.
type Value[S, V any] struct {
	Source S
	Value  V
}

type (
	// ComponentEvent carries the entity, the type key and the component instance.
	ComponentEvent = KeyValue[*Entity, reflect.Type, Component]
	// ChildEvent carries the parent, the child index and the child.
	ChildEvent = KeyValue[*Entity, int, *Entity]
	// ParentEvent carries the child and its new and previous parents.
	ParentEvent = Change[*Entity, *Entity]
	// NameEvent carries an entity's new and previous global names.
	NameEvent = Change[*Entity, string]
	// SystemTypeEvent carries the entity and a requested or released system type.
	SystemTypeEvent = Value[*Entity, reflect.Type]

	// ManagerEvent carries the component, the manager index and the manager.
	ManagerEvent = KeyValue[Component, int, *Entity]

	// EntityEvent carries the engine and an attached or detached entity.
	EntityEvent = Value[*Engine, *Entity]
	// FamilyEvent carries the engine and a family's member type.
	FamilyEvent = Value[*Engine, reflect.Type]
	// SystemEvent carries the engine, the system type and the instance.
	SystemEvent = KeyValue[*Engine, reflect.Type, System]
	// SleepEvent carries a sleep counter transition.
	SleepEvent[S any] = Change[S, int]
	// UpdatingEvent carries an engine's updating flag transition.
	UpdatingEvent = Change[*Engine, bool]
	// UpdateStateEvent carries an update state transition.
	UpdateStateEvent[S any] = Change[S, TimeStep]
	// PriorityEvent carries a system priority transition.
	PriorityEvent = Change[System, int]
	// IntervalEvent carries a system interval transition.
	IntervalEvent = Change[System, time.Duration]
)

// MemberEvent carries the family and a member that joined or left it.
type MemberEvent[M any] struct {
	Source *Family[M]
	Value  *M
}
