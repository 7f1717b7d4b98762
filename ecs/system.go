package ecs

import (
	"time"

	"github.com/plus3/hearth/ecs/signal"
)

// System is a unit of per-frame logic. Concrete systems embed SystemBase and
// implement Update; they are instantiated by the engine through a
// SystemRegistry when an attached entity first requests their type.
type System interface {
	Update(frame *UpdateFrame)
	systemBase() *SystemBase
}

// EngineAdder is implemented by systems that set up state, such as family
// requests, when the engine instantiates them.
type EngineAdder interface {
	AddedToEngine(engine *Engine)
}

// EngineRemover is implemented by systems that release state when the engine
// drops them.
type EngineRemover interface {
	RemovedFromEngine(engine *Engine)
}

// SystemBase holds the scheduling state of a system.
type SystemBase struct {
	self   System
	engine *Engine
	state  ObjectState

	priority      int
	sleeping      int
	timeStep      TimeStep
	interval      time.Duration
	totalInterval time.Duration
	updateState   TimeStep
	updateLock    bool
	pass          uint64

	priorityChanged    signal.Signal[PriorityEvent]
	intervalChanged    signal.Signal[IntervalEvent]
	timeStepChanged    signal.Signal[Change[System, TimeStep]]
	sleepingChanged    signal.Signal[SleepEvent[System]]
	updateStateChanged signal.Signal[UpdateStateEvent[System]]
}

func (b *SystemBase) systemBase() *SystemBase { return b }

// Engine returns the engine running the system, or nil.
func (b *SystemBase) Engine() *Engine { return b.engine }

// State returns the lifecycle state.
func (b *SystemBase) State() ObjectState { return b.state }

// Priority returns the update order key. Lower priorities update first.
func (b *SystemBase) Priority() int { return b.priority }

// SetPriority changes the update order key. An attached system moves behind
// every system with the same priority.
func (b *SystemBase) SetPriority(priority int) {
	if b.priority == priority {
		return
	}
	previous := b.priority
	b.priority = priority
	b.priorityChanged.Dispatch(PriorityEvent{Source: b.self, Current: priority, Previous: previous})
}

// TimeStep returns the phase the system runs in. The default is variable.
func (b *SystemBase) TimeStep() TimeStep {
	if b.timeStep == TimeStepNone {
		return TimeStepVariable
	}
	return b.timeStep
}

// SetTimeStep selects the phase the system runs in. TimeStepNone is refused.
func (b *SystemBase) SetTimeStep(step TimeStep) bool {
	if step != TimeStepVariable && step != TimeStepFixed {
		return false
	}
	previous := b.TimeStep()
	if previous == step {
		return true
	}
	b.timeStep = step
	b.syncTotalInterval()
	b.timeStepChanged.Dispatch(Change[System, TimeStep]{Source: b.self, Current: step, Previous: previous})
	return true
}

// Interval returns the minimum time between two updates, zero when the
// system runs on every pass.
func (b *SystemBase) Interval() time.Duration { return b.interval }

// SetInterval throttles the system to one update per interval. Each update
// then receives the interval as its delta.
func (b *SystemBase) SetInterval(interval time.Duration) {
	interval = max(interval, 0)
	if b.interval == interval {
		return
	}
	previous := b.interval
	b.interval = interval
	b.syncTotalInterval()
	b.intervalChanged.Dispatch(IntervalEvent{Source: b.self, Current: interval, Previous: previous})
}

// TotalIntervalTime returns the time accounted for by interval updates.
func (b *SystemBase) TotalIntervalTime() time.Duration { return b.totalInterval }

// syncTotalInterval snaps the interval accumulator to the last multiple of
// the interval on the engine clock of the system's phase, so systems sharing
// an interval update on the same passes.
func (b *SystemBase) syncTotalInterval() {
	if b.engine == nil || b.interval <= 0 {
		b.totalInterval = 0
		return
	}
	now := b.engine.phaseTime(b.TimeStep())
	b.totalInterval = now / b.interval * b.interval
}

// Sleeping returns the sleep counter. A sleeping system does not update.
func (b *SystemBase) Sleeping() int { return b.sleeping }

// IsSleeping reports whether the sleep counter is above zero.
func (b *SystemBase) IsSleeping() bool { return b.sleeping > 0 }

// Sleep increments the sleep counter.
func (b *SystemBase) Sleep() {
	b.setSleeping(b.sleeping + 1)
}

// Wake decrements the sleep counter. It stops at zero.
func (b *SystemBase) Wake() {
	if b.sleeping > 0 {
		b.setSleeping(b.sleeping - 1)
	}
}

func (b *SystemBase) setSleeping(sleeping int) {
	previous := b.sleeping
	b.sleeping = sleeping
	b.sleepingChanged.Dispatch(SleepEvent[System]{Source: b.self, Current: sleeping, Previous: previous})
}

// UpdateState returns the phase the system is updating in, or TimeStepNone.
func (b *SystemBase) UpdateState() TimeStep { return b.updateState }

func (b *SystemBase) setUpdateState(state TimeStep) {
	previous := b.updateState
	b.updateState = state
	b.updateStateChanged.Dispatch(UpdateStateEvent[System]{Source: b.self, Current: state, Previous: previous})
}

func (b *SystemBase) PriorityChanged() *signal.Signal[PriorityEvent] {
	return &b.priorityChanged
}

func (b *SystemBase) IntervalChanged() *signal.Signal[IntervalEvent] {
	return &b.intervalChanged
}

func (b *SystemBase) TimeStepChanged() *signal.Signal[Change[System, TimeStep]] {
	return &b.timeStepChanged
}

func (b *SystemBase) SleepingChanged() *signal.Signal[SleepEvent[System]] {
	return &b.sleepingChanged
}

func (b *SystemBase) UpdateStateChanged() *signal.Signal[UpdateStateEvent[System]] {
	return &b.updateStateChanged
}

// Dispose resets the scheduling state to its defaults. It is refused while the
// system is attached to an engine or updating.
func (b *SystemBase) Dispose() bool {
	if b.engine != nil || b.updateLock {
		return false
	}
	b.state = StateDisposing
	b.priority = 0
	b.sleeping = 0
	b.timeStep = TimeStepVariable
	b.interval = 0
	b.totalInterval = 0
	b.updateState = TimeStepNone
	b.pass = 0
	b.priorityChanged.Dispose()
	b.intervalChanged.Dispose()
	b.timeStepChanged.Dispose()
	b.sleepingChanged.Dispose()
	b.updateStateChanged.Dispose()
	b.state = StateDisposed
	return true
}

// RunSystem updates s if the engine is currently running it. It does nothing
// and returns false when s is sleeping, when it is called outside the engine's
// own iteration for s, when s is already updating, when the engine phase is
// not the phase of s, or when the interval of s has not elapsed yet.
func RunSystem(s System, dt float64) bool {
	if s == nil {
		return false
	}
	b := s.systemBase()
	engine := b.engine
	if b.sleeping > 0 || engine == nil || engine.currentSystem != s || b.updateLock {
		return false
	}
	step := b.TimeStep()
	if engine.updateState != step {
		return false
	}
	if b.interval > 0 {
		if engine.phaseTime(step)-b.totalInterval < b.interval {
			return false
		}
		b.totalInterval += b.interval
		dt = b.interval.Seconds()
	}

	b.updateLock = true
	b.setUpdateState(step)
	defer func() {
		b.setUpdateState(TimeStepNone)
		b.updateLock = false
	}()
	s.Update(engine.frame(dt, step))
	return true
}
