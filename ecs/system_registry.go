package ecs

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/pkg/errors"
)

// SystemRegistry maps system types to constructors so the engine can
// instantiate a system when an entity requests its type.
type SystemRegistry struct {
	factories map[reflect.Type]func() System
}

// NewSystemRegistry creates an empty registry.
func NewSystemRegistry() *SystemRegistry {
	return &SystemRegistry{
		factories: make(map[reflect.Type]func() System),
	}
}

// RegisterSystem registers T, constructed as new(T). It panics if T is
// already registered.
func RegisterSystem[T any, PT interface {
	*T
	System
}](r *SystemRegistry) {
	RegisterSystemFunc(r, func() PT { return PT(new(T)) })
}

// RegisterSystemFunc registers a constructor for the system type it returns.
// It panics if the type is already registered.
func RegisterSystemFunc[S System](r *SystemRegistry, fn func() S) {
	typ := TypeOf[S]()
	if _, exists := r.factories[typ]; exists {
		panic(fmt.Sprintf("ecs: system %s registered twice", typ))
	}
	r.factories[typ] = func() System { return fn() }
}

// Has reports whether typ has a constructor.
func (r *SystemRegistry) Has(typ reflect.Type) bool {
	_, ok := r.factories[typeKey(typ)]
	return ok
}

// Types returns the registered system types ordered by name.
func (r *SystemRegistry) Types() []reflect.Type {
	types := make([]reflect.Type, 0, len(r.factories))
	for typ := range r.factories {
		types = append(types, typ)
	}
	sort.Sort(byTypeName(types))
	return types
}

// New constructs a system of type typ. A panicking or nil-returning
// constructor is reported as an error.
func (r *SystemRegistry) New(typ reflect.Type) (s System, err error) {
	typ = typeKey(typ)
	factory, ok := r.factories[typ]
	if !ok {
		return nil, errors.Wrapf(ErrSystemNotRegistered, "system %s", typ)
	}
	defer func() {
		if p := recover(); p != nil {
			s = nil
			err = errors.Errorf("system %s: constructor panicked: %v", typ, p)
		}
	}()
	s = factory()
	if v := reflect.ValueOf(s); s == nil || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return nil, errors.Wrapf(ErrNilSystem, "system %s", typ)
	}
	s.systemBase().self = s
	return s, nil
}
