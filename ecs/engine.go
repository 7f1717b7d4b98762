package ecs

import (
	"reflect"
	"time"

	"github.com/kamstrup/intmap"
	"github.com/plus3/hearth/ecs/signal"
	"github.com/sirupsen/logrus"
)

// Engine owns an entity tree and keeps its families and systems in sync with
// it. It is driven by calling Update once per frame.
type Engine struct {
	registry *SystemRegistry
	config   Config
	logger   logrus.FieldLogger
	clock    TimeProvider

	root     *Entity
	sleeping int

	entities   []*Entity
	byName     map[string]*Entity
	byID       *intmap.Map[EntityID, *Entity]
	entityPool *Pool[*Entity]

	systems        []*systemEntry
	systemsByType  map[reflect.Type]*systemEntry
	pendingSystems []reflect.Type
	systemCursor   int
	systemLoop     bool
	pass           uint64
	currentSystem  System

	families        []*familyEntry
	familiesByType  map[reflect.Type]*familyEntry
	pendingFamilies []reflect.Type
	familyPools     map[reflect.Type]*Pool[AnyFamily]

	updating    bool
	updateState TimeStep
	commands    *Commands
	updateFrame UpdateFrame

	started       bool
	start         time.Time
	fixedStep     time.Duration
	totalFixed    time.Duration
	deltaFixed    time.Duration
	totalVariable time.Duration
	deltaVariable time.Duration
	frames        uint64
	fixedSteps    uint64

	entityAdded        signal.Signal[EntityEvent]
	entityRemoved      signal.Signal[EntityEvent]
	familyAdded        signal.Signal[FamilyEvent]
	familyRemoved      signal.Signal[FamilyEvent]
	systemAdded        signal.Signal[SystemEvent]
	systemRemoved      signal.Signal[SystemEvent]
	sleepingChanged    signal.Signal[SleepEvent[*Engine]]
	updatingChanged    signal.Signal[UpdatingEvent]
	updateStateChanged signal.Signal[UpdateStateEvent[*Engine]]
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default config.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTimeProvider replaces the wall clock.
func WithTimeProvider(clock TimeProvider) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// NewEngine creates a sleeping engine that instantiates systems from
// registry. It wakes up once a root is attached.
func NewEngine(registry *SystemRegistry, opts ...Option) *Engine {
	if registry == nil {
		registry = NewSystemRegistry()
	}
	e := &Engine{
		registry:       registry,
		config:         DefaultConfig(),
		clock:          SystemTimeProvider{},
		sleeping:       1,
		byName:         make(map[string]*Entity),
		byID:           intmap.New[EntityID, *Entity](256),
		systemsByType:  make(map[reflect.Type]*systemEntry),
		familiesByType: make(map[reflect.Type]*familyEntry),
		familyPools:    make(map[reflect.Type]*Pool[AnyFamily]),
		commands:       newCommands(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.FixedStep <= 0 {
		e.config.FixedStep = DefaultConfig().FixedStep
	}
	if e.logger == nil {
		e.logger = newLogger(e.config.LogLevel)
	}
	e.fixedStep = e.config.FixedStep
	e.entityPool = NewPool(e.config.EntityPoolCapacity, func() *Entity {
		return &Entity{components: make(map[reflect.Type]Component)}
	})
	return e
}

func (e *Engine) Registry() *SystemRegistry  { return e.registry }
func (e *Engine) Config() Config             { return e.config }
func (e *Engine) Logger() logrus.FieldLogger { return e.logger }
func (e *Engine) Clock() TimeProvider        { return e.clock }
func (e *Engine) Commands() *Commands        { return e.commands }

// Root returns the attached root entity, or nil.
func (e *Engine) Root() *Entity { return e.root }

// Attach makes root the engine root and attaches its tree, then wakes the
// engine. It is refused when a root is already attached or when root is
// attached elsewhere or has a parent.
func (e *Engine) Attach(root *Entity) bool {
	if root == nil || e.root != nil || root.engine != nil || root.parent != nil {
		return false
	}
	e.root = root
	e.addEntityTree(root)
	e.logger.WithField("entity", root.String()).Debug("root attached")
	e.Wake()
	return true
}

// Detach removes the root tree and puts the engine back to sleep.
func (e *Engine) Detach() *Entity {
	root := e.root
	if root == nil {
		return nil
	}
	e.root = nil
	e.removeEntityTree(root)
	e.logger.WithField("entity", root.String()).Debug("root detached")
	e.Sleep()
	return root
}

// Sleeping returns the sleep counter. A sleeping engine does not update.
func (e *Engine) Sleeping() int { return e.sleeping }

// IsSleeping reports whether the sleep counter is above zero.
func (e *Engine) IsSleeping() bool { return e.sleeping > 0 }

// Sleep increments the sleep counter.
func (e *Engine) Sleep() {
	e.setSleeping(e.sleeping + 1)
}

// Wake decrements the sleep counter. It stops at zero.
func (e *Engine) Wake() {
	if e.sleeping > 0 {
		e.setSleeping(e.sleeping - 1)
	}
}

func (e *Engine) setSleeping(sleeping int) {
	previous := e.sleeping
	e.sleeping = sleeping
	e.sleepingChanged.Dispatch(SleepEvent[*Engine]{Source: e, Current: sleeping, Previous: previous})
}

// IsUpdating reports whether Update is running.
func (e *Engine) IsUpdating() bool { return e.updating }

func (e *Engine) setUpdating(updating bool) {
	previous := e.updating
	e.updating = updating
	e.updatingChanged.Dispatch(UpdatingEvent{Source: e, Current: updating, Previous: previous})
}

// UpdateState returns the phase being updated, or TimeStepNone.
func (e *Engine) UpdateState() TimeStep { return e.updateState }

func (e *Engine) setUpdateState(state TimeStep) {
	if e.updateState == state {
		return
	}
	previous := e.updateState
	e.updateState = state
	e.updateStateChanged.Dispatch(UpdateStateEvent[*Engine]{Source: e, Current: state, Previous: previous})
}

// CurrentSystem returns the system being run by the update loop, or nil.
func (e *Engine) CurrentSystem() System { return e.currentSystem }

// Timers

func (e *Engine) FixedStep() time.Duration         { return e.fixedStep }
func (e *Engine) DeltaFixedTime() time.Duration    { return e.deltaFixed }
func (e *Engine) TotalFixedTime() time.Duration    { return e.totalFixed }
func (e *Engine) DeltaVariableTime() time.Duration { return e.deltaVariable }
func (e *Engine) TotalVariableTime() time.Duration { return e.totalVariable }

// Frames returns the number of completed updates.
func (e *Engine) Frames() uint64 { return e.frames }

// SetFixedStep changes the fixed step. Non-positive steps are refused.
func (e *Engine) SetFixedStep(step time.Duration) bool {
	if step <= 0 {
		return false
	}
	e.fixedStep = step
	return true
}

// FixedLag returns the elapsed time not yet consumed by fixed steps.
func (e *Engine) FixedLag() time.Duration {
	return e.totalVariable - e.totalFixed
}

func (e *Engine) phaseTime(step TimeStep) time.Duration {
	if step == TimeStepFixed {
		return e.totalFixed
	}
	return e.totalVariable
}

// Pools

// EntityPool returns the pool NewEntity draws from.
func (e *Engine) EntityPool() *Pool[*Entity] { return e.entityPool }

// ClearPools drops every pooled entity, family and member record.
func (e *Engine) ClearPools() {
	e.entityPool.Clear()
	for _, pool := range e.familyPools {
		pool.Clear()
	}
	for _, entry := range e.families {
		entry.family.clearPool()
	}
}

// Signals

func (e *Engine) EntityAdded() *signal.Signal[EntityEvent]       { return &e.entityAdded }
func (e *Engine) EntityRemoved() *signal.Signal[EntityEvent]     { return &e.entityRemoved }
func (e *Engine) FamilyAdded() *signal.Signal[FamilyEvent]       { return &e.familyAdded }
func (e *Engine) FamilyRemoved() *signal.Signal[FamilyEvent]     { return &e.familyRemoved }
func (e *Engine) SystemAdded() *signal.Signal[SystemEvent]       { return &e.systemAdded }
func (e *Engine) SystemRemoved() *signal.Signal[SystemEvent]     { return &e.systemRemoved }
func (e *Engine) UpdatingChanged() *signal.Signal[UpdatingEvent] { return &e.updatingChanged }

func (e *Engine) SleepingChanged() *signal.Signal[SleepEvent[*Engine]] {
	return &e.sleepingChanged
}

func (e *Engine) UpdateStateChanged() *signal.Signal[UpdateStateEvent[*Engine]] {
	return &e.updateStateChanged
}
