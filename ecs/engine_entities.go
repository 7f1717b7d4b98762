package ecs

import (
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// NewEntity returns a pooled entity owned by the engine. Disposing it hands
// it back to the pool.
func (e *Engine) NewEntity(name string) *Entity {
	ent := e.entityPool.Acquire()
	ent.id = nextEntityID()
	ent.name = name
	ent.owner = e
	return ent
}

// HasEntity reports whether ent is attached to the engine.
func (e *Engine) HasEntity(ent *Entity) bool {
	return ent != nil && ent.engine == e
}

// nameKey indexes global names in normalization form C, so canonically
// equivalent spellings collide.
func nameKey(name string) string {
	return norm.NFC.String(name)
}

// EntityByName returns the attached entity holding name, or nil.
func (e *Engine) EntityByName(name string) *Entity {
	return e.byName[nameKey(name)]
}

// EntityByID returns the attached entity with id, or nil.
func (e *Engine) EntityByID(id EntityID) *Entity {
	ent, _ := e.byID.Get(id)
	return ent
}

// Entities returns the attached entities in attach order.
func (e *Engine) Entities() []*Entity {
	return slices.Clone(e.entities)
}

// NumEntities returns the number of attached entities.
func (e *Engine) NumEntities() int {
	return len(e.entities)
}

// addEntityTree attaches ent and its descendants. Every entity of the tree is
// registered before the first EntityAdded is dispatched, and every EntityAdded
// is dispatched before the tree requests its systems and joins families.
func (e *Engine) addEntityTree(ent *Entity) {
	var added []*Entity
	ent.Descendants(func(node *Entity) bool {
		if node.engine == nil {
			e.registerEntity(node)
			added = append(added, node)
		}
		return true
	})

	for _, node := range added {
		if node.engine == e {
			e.entityAdded.Dispatch(EntityEvent{Source: e, Value: node})
		}
	}

	for _, node := range added {
		if node.engine != e {
			continue
		}
		node.linked = true
		for _, typ := range node.Systems() {
			e.requestSystem(typ)
		}
		for _, entry := range slices.Clone(e.families) {
			entry.family.addEntity(node)
		}
	}
}

func (e *Engine) registerEntity(ent *Entity) {
	if ent.name != "" {
		if holder := e.byName[nameKey(ent.name)]; holder != nil && holder != ent {
			previous := ent.name
			ent.SetGlobalName(uuid.NewString())
			e.logger.WithFields(logrus.Fields{
				"entity": previous,
				"name":   ent.name,
			}).Debug("global name taken, entity renamed")
		}
		e.byName[nameKey(ent.name)] = ent
	}
	e.entities = append(e.entities, ent)
	e.byID.Put(ent.id, ent)
	ent.engine = e
	e.hook(ent)
}

// removeEntityTree detaches the descendants of ent depth-first, then ent.
func (e *Engine) removeEntityTree(ent *Entity) {
	for i := len(ent.children) - 1; i >= 0; i-- {
		if i >= len(ent.children) {
			continue
		}
		if child := ent.children[i]; child.engine == e {
			e.removeEntityTree(child)
		}
	}
	if ent.engine != e {
		return
	}

	if ent.name != "" && e.byName[nameKey(ent.name)] == ent {
		delete(e.byName, nameKey(ent.name))
	}
	for i := len(e.entities) - 1; i >= 0; i-- {
		if e.entities[i] == ent {
			e.entities = slices.Delete(e.entities, i, i+1)
			break
		}
	}
	e.byID.Del(ent.id)
	e.unhook(ent)

	if ent.linked {
		ent.linked = false
		for i := len(ent.systems) - 1; i >= 0; i-- {
			e.releaseSystem(ent.systems[i])
		}
	}
	for _, entry := range slices.Clone(e.families) {
		entry.family.removeEntity(ent)
	}
	ent.engine = nil
	e.entityRemoved.Dispatch(EntityEvent{Source: e, Value: ent})
}

// hook registers the engine ahead of every other listener of ent.
func (e *Engine) hook(ent *Entity) {
	h := &ent.hooks
	h.componentAdded = ent.componentAdded.Add(e.onComponentAdded, math.MaxInt)
	h.componentRemoved = ent.componentRemoved.Add(e.onComponentRemoved, math.MaxInt)
	h.childAdded = ent.childAdded.Add(e.onChildAdded, math.MaxInt)
	h.parentChanged = ent.parentChanged.Add(e.onParentChanged, math.MaxInt)
	h.nameChanged = ent.nameChanged.Add(e.onNameChanged, math.MaxInt)
	h.systemAdded = ent.systemAdded.Add(e.onSystemAdded, math.MaxInt)
	h.systemRemoved = ent.systemRemoved.Add(e.onSystemRemoved, math.MaxInt)
}

func (e *Engine) unhook(ent *Entity) {
	h := &ent.hooks
	h.componentAdded.Remove()
	h.componentRemoved.Remove()
	h.childAdded.Remove()
	h.parentChanged.Remove()
	h.nameChanged.Remove()
	h.systemAdded.Remove()
	h.systemRemoved.Remove()
	*h = entityHooks{}
}

func (e *Engine) onComponentAdded(ev ComponentEvent) {
	for _, entry := range slices.Clone(e.families) {
		entry.family.addEntityComponent(ev.Source, ev.Key)
	}
}

func (e *Engine) onComponentRemoved(ev ComponentEvent) {
	for _, entry := range slices.Clone(e.families) {
		entry.family.removeEntityComponent(ev.Source, ev.Key)
	}
}

func (e *Engine) onChildAdded(ev ChildEvent) {
	child := ev.Value
	if child.engine == e || child.parent != ev.Source {
		return
	}
	if child.engine != nil {
		child.engine.removeEntityTree(child)
	}
	e.addEntityTree(child)
}

func (e *Engine) onParentChanged(ev ParentEvent) {
	ent := ev.Source
	if ent.engine != e || ent == e.root {
		return
	}
	if ev.Current == nil || ev.Current.engine != e {
		e.removeEntityTree(ent)
	}
}

func (e *Engine) onNameChanged(ev NameEvent) {
	ent := ev.Source
	if ev.Previous != "" && e.byName[nameKey(ev.Previous)] == ent {
		delete(e.byName, nameKey(ev.Previous))
	}
	if ev.Current != "" {
		e.byName[nameKey(ev.Current)] = ent
	}
}

func (e *Engine) onSystemAdded(ev SystemTypeEvent) {
	if ev.Source.linked {
		e.requestSystem(ev.Value)
	}
}

func (e *Engine) onSystemRemoved(ev SystemTypeEvent) {
	if ev.Source.linked {
		e.releaseSystem(ev.Value)
	}
}
