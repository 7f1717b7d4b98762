package ecs

import (
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/plus3/hearth/ecs/signal"
)

// EntityID is a process-unique entity number used as an integer map key.
type EntityID uint64

var lastEntityID atomic.Uint64

func nextEntityID() EntityID {
	return EntityID(lastEntityID.Add(1))
}

// Entity is a node in the entity tree holding at most one component per type
// key and a set of requested system types. An entity is attached to an Engine
// while it is the engine root or one of its descendants.
type Entity struct {
	id       EntityID
	name     string
	engine   *Engine
	owner    *Engine
	parent   *Entity
	children []*Entity

	components map[reflect.Type]Component
	systems    []reflect.Type

	hooks  entityHooks
	linked bool

	componentAdded   signal.Signal[ComponentEvent]
	componentRemoved signal.Signal[ComponentEvent]
	childAdded       signal.Signal[ChildEvent]
	childRemoved     signal.Signal[ChildEvent]
	parentChanged    signal.Signal[ParentEvent]
	nameChanged      signal.Signal[NameEvent]
	systemAdded      signal.Signal[SystemTypeEvent]
	systemRemoved    signal.Signal[SystemTypeEvent]
	disposed         signal.Signal[*Entity]
}

// entityHooks are the engine's listeners on an attached entity.
type entityHooks struct {
	componentAdded   *signal.Slot[ComponentEvent]
	componentRemoved *signal.Slot[ComponentEvent]
	childAdded       *signal.Slot[ChildEvent]
	parentChanged    *signal.Slot[ParentEvent]
	nameChanged      *signal.Slot[NameEvent]
	systemAdded      *signal.Slot[SystemTypeEvent]
	systemRemoved    *signal.Slot[SystemTypeEvent]
}

// NewEntity allocates an unpooled entity with an optional global name.
func NewEntity(name string) *Entity {
	return &Entity{
		id:         nextEntityID(),
		name:       name,
		components: make(map[reflect.Type]Component),
	}
}

func (e *Entity) ID() EntityID       { return e.id }
func (e *Entity) Name() string       { return e.name }
func (e *Entity) Engine() *Engine    { return e.engine }
func (e *Entity) Parent() *Entity    { return e.parent }
func (e *Entity) IsAttached() bool   { return e.engine != nil }
func (e *Entity) NumChildren() int   { return len(e.children) }
func (e *Entity) NumComponents() int { return len(e.components) }

// SetGlobalName renames the entity. On an attached entity the call is refused
// when another entity of the same engine already holds the name.
func (e *Entity) SetGlobalName(name string) bool {
	if name == e.name {
		return true
	}
	if e.engine != nil && name != "" {
		if holder := e.engine.byName[nameKey(name)]; holder != nil && holder != e {
			return false
		}
	}
	previous := e.name
	e.name = name
	e.nameChanged.Dispatch(NameEvent{Source: e, Current: name, Previous: previous})
	return true
}

// Components

// AddComponent attaches c under its own type.
func (e *Entity) AddComponent(c Component) Component {
	return e.AddComponentAt(c, nil, -1)
}

// AddComponentAs attaches c under typ, which may be an interface c implements.
func (e *Entity) AddComponentAs(c Component, typ reflect.Type) Component {
	return e.AddComponentAt(c, typ, -1)
}

// AddComponentAt attaches c under typ and places the entity at managerIndex
// in the component's manager list. A component already held under typ is
// removed first. A component that is not shareable leaves its other managers.
func (e *Entity) AddComponentAt(c Component, typ reflect.Type, managerIndex int) Component {
	if c == nil {
		return nil
	}
	key := typeKey(typ)
	if key == nil {
		key = typeKey(reflect.TypeOf(c))
	}
	if !keyAccepts(key, c) {
		return nil
	}
	if current := e.components[key]; current == c {
		return c
	} else if current != nil {
		e.RemoveComponent(key)
	}

	base := c.component()
	if !c.IsShareable() {
		for _, manager := range slices.Clone(base.managers) {
			if manager != e {
				manager.removeComponentInstance(c)
			}
		}
	}

	e.components[key] = c
	base.addManager(c, e, managerIndex)
	e.componentAdded.Dispatch(ComponentEvent{Source: e, Key: key, Value: c})
	return c
}

// Component returns the component held under typ, or nil.
func (e *Entity) Component(typ reflect.Type) Component {
	return e.components[typeKey(typ)]
}

// HasComponent reports whether a component is held under typ.
func (e *Entity) HasComponent(typ reflect.Type) bool {
	_, ok := e.components[typeKey(typ)]
	return ok
}

// ComponentTypes returns the type keys ordered by name.
func (e *Entity) ComponentTypes() []reflect.Type {
	types := make([]reflect.Type, 0, len(e.components))
	for typ := range e.components {
		types = append(types, typ)
	}
	sort.Sort(byTypeName(types))
	return types
}

// RemoveComponent detaches the component held under typ and returns it.
func (e *Entity) RemoveComponent(typ reflect.Type) Component {
	key := typeKey(typ)
	c, ok := e.components[key]
	if !ok {
		return nil
	}
	delete(e.components, key)
	if !e.holds(c) {
		c.component().removeManager(c, e)
	}
	e.componentRemoved.Dispatch(ComponentEvent{Source: e, Key: key, Value: c})
	return c
}

// RemoveComponents detaches every component.
func (e *Entity) RemoveComponents() bool {
	if len(e.components) == 0 {
		return false
	}
	for _, typ := range e.ComponentTypes() {
		e.RemoveComponent(typ)
	}
	return true
}

func (e *Entity) holds(c Component) bool {
	for _, held := range e.components {
		if held == c {
			return true
		}
	}
	return false
}

// removeComponentInstance detaches c from every key it is held under.
func (e *Entity) removeComponentInstance(c Component) {
	for _, typ := range e.ComponentTypes() {
		if e.components[typ] == c {
			e.RemoveComponent(typ)
		}
	}
}

// Children

// Children returns a copy of the child list.
func (e *Entity) Children() []*Entity {
	return slices.Clone(e.children)
}

// Child returns the child at index, or nil.
func (e *Entity) Child(index int) *Entity {
	if index < 0 || index >= len(e.children) {
		return nil
	}
	return e.children[index]
}

// ChildIndex returns the index of child, or -1.
func (e *Entity) ChildIndex(child *Entity) int {
	return slices.Index(e.children, child)
}

// SetChildIndex moves child within the child list without reparenting it.
func (e *Entity) SetChildIndex(child *Entity, index int) bool {
	current := e.ChildIndex(child)
	if current < 0 {
		return false
	}
	index = max(0, min(index, len(e.children)-1))
	if index != current {
		e.children = slices.Delete(e.children, current, current+1)
		e.children = slices.Insert(e.children, index, child)
	}
	return true
}

// AddChild appends child.
func (e *Entity) AddChild(child *Entity) *Entity {
	return e.AddChildAt(child, -1)
}

// AddChildAt inserts child at index; a negative index appends.
func (e *Entity) AddChildAt(child *Entity, index int) *Entity {
	if child == nil || !child.SetParent(e, index) {
		return nil
	}
	return child
}

// RemoveChild detaches child from the entity.
func (e *Entity) RemoveChild(child *Entity) *Entity {
	if child == nil || child.parent != e || !child.SetParent(nil, -1) {
		return nil
	}
	return child
}

// RemoveChildAt detaches the child at index.
func (e *Entity) RemoveChildAt(index int) *Entity {
	return e.RemoveChild(e.Child(index))
}

// RemoveChildren detaches every child, last first.
func (e *Entity) RemoveChildren() bool {
	if len(e.children) == 0 {
		return false
	}
	for len(e.children) > 0 {
		e.RemoveChild(e.children[len(e.children)-1])
	}
	return true
}

// SetParent moves the entity under parent at index. A nil parent detaches it,
// which removes it and its descendants from their engine. The engine root
// cannot be reparented, and an entity cannot become its own descendant.
func (e *Entity) SetParent(parent *Entity, index int) bool {
	if parent == e.parent {
		if parent != nil && index >= 0 {
			return parent.SetChildIndex(e, index)
		}
		return true
	}
	if parent != nil && (parent == e || parent.IsDescendantOf(e)) {
		return false
	}
	if e.engine != nil && e.engine.root == e {
		return false
	}

	previous := e.parent
	if previous != nil {
		at := previous.ChildIndex(e)
		previous.children = slices.Delete(previous.children, at, at+1)
		e.parent = nil
		previous.childRemoved.Dispatch(ChildEvent{Source: previous, Key: at, Value: e})
	}

	e.parent = parent
	if parent != nil {
		if index < 0 || index > len(parent.children) {
			index = len(parent.children)
		}
		parent.children = slices.Insert(parent.children, index, e)
		parent.childAdded.Dispatch(ChildEvent{Source: parent, Key: index, Value: e})
	}
	e.parentChanged.Dispatch(ParentEvent{Source: e, Current: parent, Previous: previous})
	return true
}

// Root returns the topmost ancestor, or the entity itself.
func (e *Entity) Root() *Entity {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// IsDescendantOf reports whether ancestor is above the entity in its tree.
func (e *Entity) IsDescendantOf(ancestor *Entity) bool {
	if ancestor == nil {
		return false
	}
	for p := e.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Descendants walks the subtree in pre-order, the entity first.
func (e *Entity) Descendants(visit func(*Entity) bool) bool {
	if !visit(e) {
		return false
	}
	for _, child := range e.children {
		if !child.Descendants(visit) {
			return false
		}
	}
	return true
}

// System requests

// AddSystem requests that a system of type typ runs while the entity is
// attached. Each type is requested at most once per entity.
func (e *Entity) AddSystem(typ reflect.Type) bool {
	typ = typeKey(typ)
	if typ == nil || slices.Contains(e.systems, typ) {
		return false
	}
	e.systems = append(e.systems, typ)
	e.systemAdded.Dispatch(SystemTypeEvent{Source: e, Value: typ})
	return true
}

// RemoveSystem releases a system request.
func (e *Entity) RemoveSystem(typ reflect.Type) bool {
	typ = typeKey(typ)
	i := slices.Index(e.systems, typ)
	if i < 0 {
		return false
	}
	e.systems = slices.Delete(e.systems, i, i+1)
	e.systemRemoved.Dispatch(SystemTypeEvent{Source: e, Value: typ})
	return true
}

// RemoveSystems releases every system request, last first.
func (e *Entity) RemoveSystems() bool {
	if len(e.systems) == 0 {
		return false
	}
	for len(e.systems) > 0 {
		e.RemoveSystem(e.systems[len(e.systems)-1])
	}
	return true
}

// HasSystem reports whether the entity requests typ.
func (e *Entity) HasSystem(typ reflect.Type) bool {
	return slices.Contains(e.systems, typeKey(typ))
}

// Systems returns the requested system types in request order.
func (e *Entity) Systems() []reflect.Type {
	return slices.Clone(e.systems)
}

// Signals

func (e *Entity) ComponentAdded() *signal.Signal[ComponentEvent]   { return &e.componentAdded }
func (e *Entity) ComponentRemoved() *signal.Signal[ComponentEvent] { return &e.componentRemoved }
func (e *Entity) ChildAdded() *signal.Signal[ChildEvent]           { return &e.childAdded }
func (e *Entity) ChildRemoved() *signal.Signal[ChildEvent]         { return &e.childRemoved }
func (e *Entity) ParentChanged() *signal.Signal[ParentEvent]       { return &e.parentChanged }
func (e *Entity) GlobalNameChanged() *signal.Signal[NameEvent]     { return &e.nameChanged }
func (e *Entity) SystemAdded() *signal.Signal[SystemTypeEvent]     { return &e.systemAdded }
func (e *Entity) SystemRemoved() *signal.Signal[SystemTypeEvent]   { return &e.systemRemoved }
func (e *Entity) Disposed() *signal.Signal[*Entity]                { return &e.disposed }

// Dispose tears the entity down: it leaves its parent (and its engine),
// disposes its children, drops components, system requests and name, and
// notifies Disposed listeners. Entities acquired from an engine pool are
// handed back to it afterwards.
func (e *Entity) Dispose() {
	if e.engine != nil && e.engine.root == e {
		e.engine.Detach()
	}
	e.SetParent(nil, -1)
	for len(e.children) > 0 {
		e.children[len(e.children)-1].Dispose()
	}
	e.RemoveComponents()
	e.RemoveSystems()
	e.SetGlobalName("")
	e.disposed.Dispatch(e)

	e.componentAdded.Dispose()
	e.componentRemoved.Dispose()
	e.childAdded.Dispose()
	e.childRemoved.Dispose()
	e.parentChanged.Dispose()
	e.nameChanged.Dispose()
	e.systemAdded.Dispose()
	e.systemRemoved.Dispose()
	e.disposed.Dispose()

	if owner := e.owner; owner != nil {
		e.owner = nil
		owner.entityPool.Release(e)
	}
}

func (e *Entity) String() string {
	if e.name != "" {
		return e.name
	}
	return "<unnamed>"
}

// Describe renders the subtree, one entity per line, with component types in
// brackets and requested systems in braces.
func (e *Entity) Describe() string {
	var sb strings.Builder
	e.describe(&sb, 0)
	return sb.String()
}

func (e *Entity) describe(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(e.String())
	if types := e.ComponentTypes(); len(types) > 0 {
		sb.WriteString(" [")
		sb.WriteString(joinTypes(types))
		sb.WriteString("]")
	}
	if len(e.systems) > 0 {
		sb.WriteString(" {")
		sb.WriteString(joinTypes(e.systems))
		sb.WriteString("}")
	}
	sb.WriteString("\n")
	for _, child := range e.children {
		child.describe(sb, depth+1)
	}
}

func joinTypes(types []reflect.Type) string {
	names := make([]string, len(types))
	for i, typ := range types {
		names[i] = typ.String()
	}
	return strings.Join(names, ", ")
}

// Generic helpers

// Add attaches c under the type key of T.
func Add[T Component](e *Entity, c T) T {
	e.AddComponentAs(c, TypeOf[T]())
	return c
}

// Get returns the component held under the type key of T.
func Get[T Component](e *Entity) T {
	c, _ := e.components[TypeOf[T]()].(T)
	return c
}

// Has reports whether e holds a component under the type key of T.
func Has[T Component](e *Entity) bool {
	_, ok := e.components[TypeOf[T]()]
	return ok
}

// Remove detaches the component held under the type key of T.
func Remove[T Component](e *Entity) T {
	c, _ := e.RemoveComponent(TypeOf[T]()).(T)
	return c
}

// RequestSystem requests the system type T on e.
func RequestSystem[T any](e *Entity) bool {
	return e.AddSystem(TypeOf[T]())
}

// ReleaseSystem releases the system type T on e.
func ReleaseSystem[T any](e *Entity) bool {
	return e.RemoveSystem(TypeOf[T]())
}
