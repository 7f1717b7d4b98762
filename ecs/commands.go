package ecs

import "reflect"

// Commands provides a buffer for deferred structural operations that are
// executed once the engine finished both update phases. Systems use it to
// change the entity tree without affecting the passes still in progress.
type Commands struct {
	spawns   []spawnCommand
	disposes []*Entity
	adds     []addComponentCommand
	removes  []removeComponentCommand
	defers   []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	parent     *Entity
	name       string
	components []Component
	done       func(*Entity)
}

type addComponentCommand struct {
	entity    *Entity
	component Component
	typ       reflect.Type
}

type removeComponentCommand struct {
	entity *Entity
	typ    reflect.Type
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues the creation of a pooled entity holding components under
// parent. A nil parent spawns under the engine root.
func (c *Commands) Spawn(parent *Entity, name string, components ...Component) {
	c.spawns = append(c.spawns, spawnCommand{parent: parent, name: name, components: components})
}

// SpawnFunc is Spawn with a callback receiving the new entity after it was attached.
func (c *Commands) SpawnFunc(parent *Entity, name string, done func(*Entity), components ...Component) {
	c.spawns = append(c.spawns, spawnCommand{parent: parent, name: name, components: components, done: done})
}

// Dispose queues an entity disposal.
func (c *Commands) Dispose(entity *Entity) {
	c.disposes = append(c.disposes, entity)
}

// AddComponent queues a component addition under the component's own type.
func (c *Commands) AddComponent(entity *Entity, component Component) {
	c.adds = append(c.adds, addComponentCommand{entity: entity, component: component})
}

// AddComponentAs queues a component addition under typ.
func (c *Commands) AddComponentAs(entity *Entity, component Component, typ reflect.Type) {
	c.adds = append(c.adds, addComponentCommand{entity: entity, component: component, typ: typ})
}

// RemoveComponent queues a component removal.
func (c *Commands) RemoveComponent(entity *Entity, typ reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{entity: entity, typ: typ})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.disposes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies all queued operations to engine, resetting the buffer state.
// Operations queued while flushing are kept for the next flush.
func (c *Commands) Flush(engine *Engine) {
	spawns, disposes, adds, removes, defers := c.spawns, c.disposes, c.adds, c.removes, c.defers
	c.spawns, c.disposes, c.adds, c.removes, c.defers = nil, nil, nil, nil, nil

	disposed := make(map[*Entity]bool, len(disposes))
	for _, entity := range disposes {
		if entity == nil || disposed[entity] {
			continue
		}
		disposed[entity] = true
		entity.Dispose()
	}

	for _, cmd := range removes {
		if !disposed[cmd.entity] {
			cmd.entity.RemoveComponent(cmd.typ)
		}
	}

	for _, cmd := range adds {
		if !disposed[cmd.entity] {
			cmd.entity.AddComponentAs(cmd.component, cmd.typ)
		}
	}

	for _, cmd := range spawns {
		parent := cmd.parent
		if parent == nil {
			parent = engine.root
		}
		if parent == nil || disposed[parent] {
			continue
		}
		entity := engine.NewEntity(cmd.name)
		for _, component := range cmd.components {
			entity.AddComponent(component)
		}
		parent.AddChild(entity)
		if cmd.done != nil {
			cmd.done(entity)
		}
	}

	for _, df := range defers {
		df.fn()
	}
}
