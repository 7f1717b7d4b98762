package ecs

import "reflect"

// TimeStep identifies an update phase. Systems declare the phase they run in
// and the engine reports the phase it is currently executing.
type TimeStep int

const (
	TimeStepNone TimeStep = iota
	TimeStepVariable
	TimeStepFixed
)

func (t TimeStep) String() string {
	switch t {
	case TimeStepVariable:
		return "variable"
	case TimeStepFixed:
		return "fixed"
	default:
		return "none"
	}
}

// ObjectState tracks the compose/dispose lifecycle of systems and families.
type ObjectState int

const (
	StateDisposed ObjectState = iota
	StateComposing
	StateComposed
	StateDisposing
)

func (s ObjectState) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateComposed:
		return "composed"
	case StateDisposing:
		return "disposing"
	default:
		return "disposed"
	}
}

// typeKey normalizes a component or system type: pointer types are keyed by
// the type they point to, interfaces and values are kept as is.
func typeKey(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// TypeOf returns the key under which T is stored in entity and engine maps.
func TypeOf[T any]() reflect.Type {
	return typeKey(reflect.TypeFor[T]())
}

// byTypeName orders types by their printed name.
type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }
