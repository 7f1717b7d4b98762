package ecs_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/plus3/hearth/ecs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type UnregisteredSystem struct{ ecs.SystemBase }

func (s *UnregisteredSystem) Update(*ecs.UpdateFrame) {}

type PanickySystem struct{ ecs.SystemBase }

func (s *PanickySystem) Update(*ecs.UpdateFrame) {}

type NilSystem struct{ ecs.SystemBase }

func (s *NilSystem) Update(*ecs.UpdateFrame) {}

func TestRunSystemOutsideTheLoop(t *testing.T) {
	engine, clock, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)
	require.NotNil(t, counter)

	if ecs.RunSystem(counter, 1) {
		t.Error("RunSystem outside the engine loop should be refused")
	}
	assert.Equal(t, 0, counter.Updates)

	clock.Advance(testStep)
	engine.Update()
	assert.Equal(t, 1, counter.Updates)
	assert.Equal(t, ecs.TimeStepNone, counter.UpdateState())
}

func TestSystemReentrantUpdate(t *testing.T) {
	engine, _, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)

	nested := true
	counter.OnUpdate = func(frame *ecs.UpdateFrame) {
		assert.Equal(t, ecs.TimeStepVariable, counter.UpdateState())
		nested = ecs.RunSystem(counter, frame.DeltaTime)
		frame.Engine.Update()
	}
	engine.Update()

	assert.False(t, nested, "a system cannot update itself")
	assert.Equal(t, 1, counter.Updates)
}

func TestSystemSleep(t *testing.T) {
	engine, clock, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)

	var transitions []int
	counter.SleepingChanged().Add(func(ev ecs.SleepEvent[ecs.System]) {
		transitions = append(transitions, ev.Current)
	}, 0)

	counter.Sleep()
	counter.Sleep()
	counter.Wake()
	assert.True(t, counter.IsSleeping(), "wake must match every sleep")

	clock.Advance(testStep)
	engine.Update()
	assert.Equal(t, 0, counter.Updates)

	counter.Wake()
	counter.Wake()
	assert.Equal(t, 0, counter.Sleeping(), "waking saturates at zero")

	clock.Advance(testStep)
	engine.Update()
	assert.Equal(t, 1, counter.Updates)
	assert.Equal(t, []int{1, 2, 1, 0}, transitions)
}

func TestSystemInterval(t *testing.T) {
	engine, clock, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)
	counter.SetInterval(300 * time.Millisecond)

	for i := 0; i < 7; i++ {
		engine.Update()
		clock.Advance(testStep)
	}

	assert.Equal(t, 2, counter.Updates)
	assert.InDeltaSlice(t, []float64{0.3, 0.3}, counter.Deltas, 1e-9)
	assert.Equal(t, 600*time.Millisecond, counter.TotalIntervalTime())

	counter.SetInterval(-time.Second)
	assert.Equal(t, time.Duration(0), counter.Interval())
	assert.Equal(t, time.Duration(0), counter.TotalIntervalTime())
}

func TestSystemIntervalAlignment(t *testing.T) {
	engine, clock, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)

	engine.Update()
	clock.Advance(350 * time.Millisecond)
	engine.Update()
	require.Equal(t, 2, counter.Updates)

	counter.SetInterval(300 * time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, counter.TotalIntervalTime(), "snapped to the interval grid")

	clock.Advance(270 * time.Millisecond)
	engine.Update()
	assert.Equal(t, 3, counter.Updates)
	assert.Equal(t, 600*time.Millisecond, counter.TotalIntervalTime())

	clock.Advance(100 * time.Millisecond)
	engine.Update()
	assert.Equal(t, 3, counter.Updates, "the next grid point is 0.9s")
}

func TestSystemTimeStep(t *testing.T) {
	engine, clock, root := newTestEngine(t)
	ecs.RequestSystem[FixedCounterSystem](root)
	ecs.RequestSystem[CounterSystem](root)
	fixed := ecs.GetSystem[FixedCounterSystem](engine)
	variable := ecs.GetSystem[CounterSystem](engine)

	assert.Equal(t, ecs.TimeStepFixed, fixed.TimeStep())
	assert.Equal(t, ecs.TimeStepVariable, variable.TimeStep())
	assert.False(t, fixed.SetTimeStep(ecs.TimeStepNone))
	assert.Equal(t, ecs.TimeStepFixed, fixed.TimeStep())

	engine.Update()
	clock.Advance(350 * time.Millisecond)
	engine.Update()

	assert.Equal(t, 3, fixed.Updates)
	assert.Equal(t, 2, variable.Updates)
	assert.InDelta(t, 0.35, variable.Deltas[1], 1e-9)
}

func TestSystemPriorityOrder(t *testing.T) {
	orderLog = nil
	engine, _, root := newTestEngine(t)
	ecs.RequestSystem[FirstSystem](root)
	ecs.RequestSystem[SecondSystem](root)
	ecs.RequestSystem[ThirdSystem](root)

	engine.Update()
	assert.Equal(t, []string{"first", "second", "third"}, orderLog)

	ecs.GetSystem[ThirdSystem](engine).SetPriority(-1)
	ecs.GetSystem[SecondSystem](engine).SetPriority(5)
	ecs.GetSystem[FirstSystem](engine).SetPriority(5)

	orderLog = nil
	engine.Update()
	assert.Equal(t, []string{"third", "second", "first"}, orderLog, "a changed system lands behind its equals")

	var priorities []int
	for _, s := range engine.Systems() {
		priorities = append(priorities, s.(interface{ Priority() int }).Priority())
	}
	assert.Equal(t, []int{-1, 5, 5}, priorities)
}

func TestSystemPriorityChangeDuringUpdate(t *testing.T) {
	orderLog = nil
	engine, _, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	ecs.RequestSystem[FirstSystem](root)
	ecs.RequestSystem[SecondSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)

	counter.OnUpdate = func(*ecs.UpdateFrame) {
		orderLog = append(orderLog, "counter")
		counter.SetPriority(counter.Priority() + 10)
	}
	engine.Update()

	assert.Equal(t, []string{"counter", "first", "second"}, orderLog)
	assert.Equal(t, 1, counter.Updates, "moving behind the cursor does not run twice")
	assert.Same(t, counter, engine.SystemAt(2))
}

func TestSystemAddedDuringUpdate(t *testing.T) {
	orderLog = nil
	engine, _, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)
	counter.OnUpdate = func(*ecs.UpdateFrame) {
		ecs.RequestSystem[ThirdSystem](root)
	}

	engine.Update()

	assert.Equal(t, []string{"third"}, orderLog, "a system inserted behind the running one runs in the same pass")
}

func TestSystemDispose(t *testing.T) {
	engine, _, root := newTestEngine(t)
	ecs.RequestSystem[CounterSystem](root)
	counter := ecs.GetSystem[CounterSystem](engine)
	counter.SetPriority(3)
	counter.SetInterval(time.Second)
	counter.Sleep()

	assert.Equal(t, ecs.StateComposed, counter.State())
	assert.False(t, counter.Dispose(), "attached systems refuse disposal")

	ecs.ReleaseSystem[CounterSystem](root)

	assert.Nil(t, counter.Engine())
	assert.Equal(t, ecs.StateDisposed, counter.State())
	assert.Equal(t, 0, counter.Priority())
	assert.Equal(t, 0, counter.Sleeping())
	assert.Equal(t, time.Duration(0), counter.Interval())
	assert.Equal(t, ecs.TimeStepVariable, counter.TimeStep())
}

func TestSystemRegistry(t *testing.T) {
	registry := ecs.NewSystemRegistry()
	ecs.RegisterSystem[CounterSystem](registry)
	ecs.RegisterSystemFunc(registry, func() *PanickySystem { panic("boom") })
	ecs.RegisterSystemFunc(registry, func() *NilSystem { return nil })

	t.Run("construct", func(t *testing.T) {
		s, err := registry.New(ecs.TypeOf[CounterSystem]())
		require.NoError(t, err)
		assert.IsType(t, &CounterSystem{}, s)
		assert.True(t, registry.Has(ecs.TypeOf[*CounterSystem]()))
	})

	t.Run("unregistered", func(t *testing.T) {
		_, err := registry.New(ecs.TypeOf[UnregisteredSystem]())
		assert.True(t, errors.Is(err, ecs.ErrSystemNotRegistered))
	})

	t.Run("panicking constructor", func(t *testing.T) {
		s, err := registry.New(ecs.TypeOf[PanickySystem]())
		assert.Nil(t, s)
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("nil constructor", func(t *testing.T) {
		_, err := registry.New(ecs.TypeOf[NilSystem]())
		assert.True(t, errors.Is(err, ecs.ErrNilSystem))
	})

	t.Run("duplicate registration", func(t *testing.T) {
		assert.Panics(t, func() { ecs.RegisterSystem[CounterSystem](registry) })
	})

	t.Run("types are sorted", func(t *testing.T) {
		names := make([]string, 0, 3)
		for _, typ := range registry.Types() {
			names = append(names, typ.Name())
		}
		assert.Equal(t, []string{"CounterSystem", "NilSystem", "PanickySystem"}, names)
	})
}

func TestSystemInstantiationFailureIsLogged(t *testing.T) {
	engine, hook, root := newLoggedEngine(t)

	ecs.RequestSystem[UnregisteredSystem](root)

	assert.False(t, engine.HasSystem(ecs.TypeOf[UnregisteredSystem]()))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "failed to instantiate system", entry.Message)
	assert.Contains(t, entry.Data["system"], "UnregisteredSystem")
	assert.True(t, errors.Is(entry.Data["error"].(error), ecs.ErrSystemNotRegistered))
}
