package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/plus3/hearth/ecs"
)

func TestScheduler(t *testing.T) {
	t.Run("systems run once per frame", func(t *testing.T) {
		engine, clock, root := newTestEngine(t)
		ecs.RequestSystem[MovementSystem](root)
		ecs.RequestSystem[CounterSystem](root)
		movement := ecs.GetSystem[MovementSystem](engine)
		counter := ecs.GetSystem[CounterSystem](engine)

		engine.Update()
		if movement.Updates != 1 || counter.Updates != 1 {
			t.Errorf("expected one update each, got movement=%d counter=%d", movement.Updates, counter.Updates)
		}

		clock.Advance(testStep)
		engine.Update()
		if movement.Updates != 2 || counter.Updates != 2 {
			t.Errorf("expected two updates each, got movement=%d counter=%d", movement.Updates, counter.Updates)
		}
	})

	t.Run("delta time calculation", func(t *testing.T) {
		engine, clock, root := newTestEngine(t)
		ecs.RequestSystem[MovementSystem](root)
		mover := root.AddChild(ecs.NewEntity("mover"))
		pos := ecs.Add(mover, &Position{})
		ecs.Add(mover, &Velocity{DX: 10, DY: 20})

		engine.Update()
		clock.Advance(500 * time.Millisecond)
		engine.Update()

		if pos.X != 5 || pos.Y != 10 {
			t.Errorf("expected position (5, 10), got (%v, %v)", pos.X, pos.Y)
		}
		if engine.DeltaVariableTime() != 500*time.Millisecond {
			t.Errorf("expected 500ms delta, got %v", engine.DeltaVariableTime())
		}
	})

	t.Run("members added by an earlier system are visible to later ones", func(t *testing.T) {
		engine, clock, root := newTestEngine(t)
		ecs.RequestSystem[CounterSystem](root)
		movement := root.AddChild(ecs.NewEntity("movement"))
		ecs.RequestSystem[MovementSystem](movement)

		counter := ecs.GetSystem[CounterSystem](engine)
		var spawned *ecs.Entity
		counter.OnUpdate = func(*ecs.UpdateFrame) {
			if spawned == nil {
				spawned = root.AddChild(newMover("direct", 0, 10))
			}
		}

		engine.Update()
		clock.Advance(testStep)
		engine.Update()

		if x := ecs.Get[*Position](spawned).X; x != 1 {
			t.Errorf("expected the mover to advance once, got x=%v", x)
		}
	})

	t.Run("context cancellation in run", func(t *testing.T) {
		engine := ecs.NewEngine(newTestRegistry(), ecs.WithLogger(quietLogger()))
		root := ecs.NewEntity("root")
		engine.Attach(root)
		ecs.RequestSystem[CounterSystem](root)
		counter := ecs.GetSystem[CounterSystem](engine)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan bool)
		go func() {
			engine.Run(ctx, 1*time.Millisecond)
			done <- true
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("engine did not stop after context cancellation")
		}

		if counter.Updates == 0 {
			t.Error("expected system to update at least once")
		}
	})

	t.Run("stats track executions", func(t *testing.T) {
		engine, clock, root := newTestEngine(t)
		ecs.RequestSystem[CounterSystem](root)

		for i := 0; i < 3; i++ {
			engine.Update()
			clock.Advance(testStep)
		}

		stats := engine.Stats()
		if len(stats.SystemStats) != 1 {
			t.Fatalf("expected stats for one system, got %d", len(stats.SystemStats))
		}
		s := stats.SystemStats[0]
		if s.Name != "CounterSystem" || s.ExecutionCount != 3 {
			t.Errorf("unexpected stats %+v", s)
		}
		if s.MinDuration > s.MaxDuration || s.TotalDuration < s.MaxDuration {
			t.Errorf("inconsistent durations %+v", s)
		}
	})
}
