package ecs

import (
	"reflect"
	"slices"

	"github.com/plus3/hearth/ecs/signal"
)

// Component is data or behavior attached to one or more entities, its managers.
// Concrete components embed ComponentBase:
//
//	type Position struct {
//		ecs.ComponentBase
//		X, Y float64
//	}
//
// Shareable components override IsShareable to return true. Reset is called
// by DisposeComponent once the component has no managers left.
type Component interface {
	component() *ComponentBase
	IsShareable() bool
	Reset()
}

// ComponentBase tracks the entities managing a component.
type ComponentBase struct {
	managers       []*Entity
	managerAdded   signal.Signal[ManagerEvent]
	managerRemoved signal.Signal[ManagerEvent]
}

func (b *ComponentBase) component() *ComponentBase { return b }

// IsShareable reports whether more than one entity may manage the component.
func (b *ComponentBase) IsShareable() bool { return false }

// Reset clears component data before reuse. The default does nothing.
func (b *ComponentBase) Reset() {}

// Manager returns the first manager, or nil.
func (b *ComponentBase) Manager() *Entity {
	if len(b.managers) == 0 {
		return nil
	}
	return b.managers[0]
}

// Managers returns a copy of the managers in index order.
func (b *ComponentBase) Managers() []*Entity {
	return slices.Clone(b.managers)
}

// ManagerCount returns the number of managers.
func (b *ComponentBase) ManagerCount() int {
	return len(b.managers)
}

// ManagerIndex returns the index of entity in the manager list, or -1.
func (b *ComponentBase) ManagerIndex(entity *Entity) int {
	return slices.Index(b.managers, entity)
}

// SetManagerIndex moves entity to index without a remove/add notification pair.
func (b *ComponentBase) SetManagerIndex(entity *Entity, index int) bool {
	current := slices.Index(b.managers, entity)
	if current < 0 {
		return false
	}
	index = max(0, min(index, len(b.managers)-1))
	if index == current {
		return true
	}
	b.managers = slices.Delete(b.managers, current, current+1)
	b.managers = slices.Insert(b.managers, index, entity)
	return true
}

// ManagerAdded is dispatched after an entity became a manager.
func (b *ComponentBase) ManagerAdded() *signal.Signal[ManagerEvent] {
	return &b.managerAdded
}

// ManagerRemoved is dispatched after an entity stopped being a manager.
func (b *ComponentBase) ManagerRemoved() *signal.Signal[ManagerEvent] {
	return &b.managerRemoved
}

// addManager is only called by Entity once its component map holds c.
func (b *ComponentBase) addManager(c Component, entity *Entity, index int) {
	if slices.Contains(b.managers, entity) {
		return
	}
	if index < 0 || index > len(b.managers) {
		index = len(b.managers)
	}
	b.managers = slices.Insert(b.managers, index, entity)
	b.managerAdded.Dispatch(ManagerEvent{Source: c, Key: index, Value: entity})
}

// removeManager is only called by Entity once no key of its map holds c.
func (b *ComponentBase) removeManager(c Component, entity *Entity) {
	index := slices.Index(b.managers, entity)
	if index < 0 {
		return
	}
	b.managers = slices.Delete(b.managers, index, index+1)
	b.managerRemoved.Dispatch(ManagerEvent{Source: c, Key: index, Value: entity})
}

// AddManager attaches c to entity under typ at the given manager index.
// A nil typ keys the component by its own type; a negative index appends.
// It returns entity, or nil when the component could not be attached.
func AddManager(c Component, entity *Entity, typ reflect.Type, index int) *Entity {
	if c == nil || entity == nil {
		return nil
	}
	if entity.AddComponentAt(c, typ, index) == nil {
		return nil
	}
	return entity
}

// RemoveManager detaches c from every type key entity holds it under.
func RemoveManager(c Component, entity *Entity) *Entity {
	if c == nil || entity == nil || c.component().ManagerIndex(entity) < 0 {
		return nil
	}
	entity.removeComponentInstance(c)
	return entity
}

// RemoveManagerAt detaches c from the manager at index.
func RemoveManagerAt(c Component, index int) *Entity {
	if c == nil {
		return nil
	}
	b := c.component()
	if index < 0 || index >= len(b.managers) {
		return nil
	}
	return RemoveManager(c, b.managers[index])
}

// RemoveManagers detaches c from all managers.
func RemoveManagers(c Component) bool {
	if c == nil {
		return false
	}
	b := c.component()
	if len(b.managers) == 0 {
		return false
	}
	for len(b.managers) > 0 {
		RemoveManager(c, b.managers[len(b.managers)-1])
	}
	return true
}

// DisposeComponent detaches c from every manager and resets it.
func DisposeComponent(c Component) {
	if c == nil {
		return
	}
	RemoveManagers(c)
	c.Reset()
}

// keyAccepts reports whether c may be stored under key.
func keyAccepts(key reflect.Type, c Component) bool {
	ct := reflect.TypeOf(c)
	if key.Kind() == reflect.Interface {
		return ct.Implements(key)
	}
	return typeKey(ct) == key
}
