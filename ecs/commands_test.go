package ecs_test

import (
	"testing"

	"github.com/plus3/hearth/ecs"
)

// newCommandEngine returns a test engine whose CounterSystem runs fn on the
// first frame only.
func newCommandEngine(t *testing.T, fn func(frame *ecs.UpdateFrame)) (*ecs.Engine, *ecs.Entity) {
	t.Helper()
	engine, _, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)
	counter.OnUpdate = func(frame *ecs.UpdateFrame) {
		if counter.Updates == 1 {
			fn(frame)
		}
	}
	return engine, root
}

func TestCommands(t *testing.T) {
	t.Run("spawn entities", func(t *testing.T) {
		var movers *ecs.Family[Mover]
		engine, root := newCommandEngine(t, func(frame *ecs.UpdateFrame) {
			frame.Commands.Spawn(nil, "first", &Position{X: 1, Y: 2}, &Velocity{DX: 0.5, DY: 0.5})
			frame.Commands.Spawn(nil, "second", &Position{X: 3, Y: 4})
			if movers.Len() != 0 {
				t.Error("entities spawned before the flush")
			}
		})
		movers = ecs.AddFamily(engine, moverShape)

		engine.Update()

		if root.NumChildren() != 2 {
			t.Errorf("expected 2 spawned children, got %d", root.NumChildren())
		}
		if movers.Len() != 1 {
			t.Errorf("expected 1 mover after the frame, got %d", movers.Len())
		}
		first := engine.EntityByName("first")
		if first == nil {
			t.Fatal("spawned entity not registered by name")
		}
		if p := ecs.Get[*Position](first); p == nil || p.X != 1 || p.Y != 2 {
			t.Errorf("unexpected position %+v", p)
		}
	})

	t.Run("spawn under a parent", func(t *testing.T) {
		var parent *ecs.Entity
		var spawned *ecs.Entity
		engine, root := newCommandEngine(t, func(frame *ecs.UpdateFrame) {
			frame.Commands.SpawnFunc(parent, "leaf", func(e *ecs.Entity) { spawned = e })
		})
		parent = root.AddChild(ecs.NewEntity("branch"))

		engine.Update()

		if spawned == nil || spawned.Parent() != parent {
			t.Fatalf("expected leaf under branch, got %v", spawned)
		}
		if !engine.HasEntity(spawned) {
			t.Error("spawned entity should be attached when the callback runs")
		}
	})

	t.Run("dispose entities", func(t *testing.T) {
		var victim *ecs.Entity
		engine, root := newCommandEngine(t, func(frame *ecs.UpdateFrame) {
			frame.Commands.Dispose(victim)
			frame.Commands.Dispose(victim)
			if !frame.Engine.HasEntity(victim) {
				t.Error("entity disposed before the flush")
			}
		})
		victim = root.AddChild(newMover("victim", 0, 0))
		disposed := 0
		victim.Disposed().Add(func(*ecs.Entity) { disposed++ }, 0)

		engine.Update()

		if engine.NumEntities() != 1 {
			t.Errorf("expected only the root left, got %d entities", engine.NumEntities())
		}
		if disposed != 1 {
			t.Errorf("expected one disposal, got %d", disposed)
		}
	})

	t.Run("add and remove components", func(t *testing.T) {
		var target *ecs.Entity
		engine, root := newCommandEngine(t, func(frame *ecs.UpdateFrame) {
			frame.Commands.AddComponent(target, &Velocity{DX: 5, DY: 10})
			frame.Commands.RemoveComponent(target, ecs.TypeOf[Health]())
			frame.Commands.AddComponentAs(target, &Sprite{Z: 3}, ecs.TypeOf[Renderable]())
			if ecs.Has[*Velocity](target) {
				t.Error("component added before the flush")
			}
		})
		target = root.AddChild(ecs.NewEntity("target"))
		ecs.Add(target, &Position{})
		ecs.Add(target, &Health{Current: 1})

		engine.Update()

		if v := ecs.Get[*Velocity](target); v == nil || v.DX != 5 || v.DY != 10 {
			t.Errorf("unexpected velocity %+v", v)
		}
		if ecs.Has[*Health](target) {
			t.Error("health should have been removed")
		}
		if r := ecs.Get[Renderable](target); r == nil || r.Layer() != 3 {
			t.Error("expected sprite under the Renderable key")
		}
	})

	t.Run("disposal wins over mutations", func(t *testing.T) {
		var target *ecs.Entity
		var spawned []*ecs.Entity
		engine, root := newCommandEngine(t, func(frame *ecs.UpdateFrame) {
			frame.Commands.SpawnFunc(target, "orphan", func(e *ecs.Entity) { spawned = append(spawned, e) })
			frame.Commands.AddComponent(target, &Velocity{DX: 1, DY: 1})
			frame.Commands.Dispose(target)
			frame.Commands.SpawnFunc(nil, "survivor", func(e *ecs.Entity) { spawned = append(spawned, e) }, &Health{Current: 100, Max: 100})
		})
		target = root.AddChild(ecs.NewEntity("target"))
		ecs.Add(target, &Position{X: 10, Y: 20})

		engine.Update()

		if ecs.Has[*Velocity](target) {
			t.Error("a disposed entity should not receive queued components")
		}
		if len(spawned) != 1 || spawned[0].Name() != "survivor" {
			t.Errorf("expected only the survivor to spawn, got %v", spawned)
		}
		if engine.NumEntities() != 2 {
			t.Errorf("expected root and survivor, got %d entities", engine.NumEntities())
		}
	})

	t.Run("deferred functions run last", func(t *testing.T) {
		var order []string
		var target *ecs.Entity
		engine, root := newCommandEngine(t, func(frame *ecs.UpdateFrame) {
			frame.Commands.Defer(func() {
				order = append(order, "defer")
				if !ecs.Has[*Velocity](target) {
					t.Error("deferred function ran before component adds")
				}
			})
			frame.Commands.AddComponent(target, &Velocity{})
			order = append(order, "queued")
		})
		target = root.AddChild(ecs.NewEntity("target"))

		engine.Update()

		if len(order) != 2 || order[0] != "queued" || order[1] != "defer" {
			t.Errorf("unexpected order %v", order)
		}
		if engine.Commands().Len() != 0 {
			t.Errorf("expected an empty buffer, got %d commands", engine.Commands().Len())
		}
	})

	t.Run("commands queued while flushing wait for the next frame", func(t *testing.T) {
		var queued bool
		engine, root := newCommandEngine(t, func(frame *ecs.UpdateFrame) {
			frame.Commands.Defer(func() {
				frame.Commands.Spawn(nil, "late")
				queued = true
			})
		})

		engine.Update()
		if !queued || engine.EntityByName("late") != nil {
			t.Fatal("expected the spawn to be held back")
		}
		if engine.Commands().Len() != 1 {
			t.Errorf("expected one pending command, got %d", engine.Commands().Len())
		}

		engine.Update()
		if late := engine.EntityByName("late"); late == nil || late.Parent() != root {
			t.Error("expected the late spawn on the second frame")
		}
	})
}

func TestCommandsMutationAcrossSystems(t *testing.T) {
	engine, _, root := newTestEngine(t)
	movers := ecs.AddFamily(engine, moverShape)
	living := ecs.AddFamily(engine, livingShape)
	target := root.AddChild(newMover("target", 0, 1))

	ecs.RequestSystem[FirstSystem](root)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)

	frames := 0
	counter.OnUpdate = func(frame *ecs.UpdateFrame) {
		frames++
		switch frames {
		case 1:
			frame.Commands.RemoveComponent(target, ecs.TypeOf[Velocity]())
			frame.Commands.AddComponent(target, &Health{Current: 50, Max: 100})
			if !movers.Has(target) || living.Has(target) {
				t.Error("membership changed before the flush")
			}
		case 2:
			frame.Commands.AddComponent(target, &Velocity{DX: 1, DY: 2})
			frame.Commands.RemoveComponent(target, ecs.TypeOf[Health]())
		}
	}

	engine.Update()
	if movers.Has(target) || !living.Has(target) {
		t.Errorf("after frame 1: mover=%v living=%v", movers.Has(target), living.Has(target))
	}

	engine.Update()
	if !movers.Has(target) || living.Has(target) {
		t.Errorf("after frame 2: mover=%v living=%v", movers.Has(target), living.Has(target))
	}
	if v := movers.Get(target).Velocity; v.DX != 1 || v.DY != 2 {
		t.Errorf("unexpected velocity %+v", v)
	}
}
