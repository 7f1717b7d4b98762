package ecs_test

import (
	"io"
	"testing"
	"time"

	"github.com/plus3/hearth/ecs"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Common test component types
type Position struct {
	ecs.ComponentBase
	X, Y float64
}

type Velocity struct {
	ecs.ComponentBase
	DX, DY float64
}

type Health struct {
	ecs.ComponentBase
	Current int
	Max     int
}

// Tag may be held by several entities at once.
type Tag struct {
	ecs.ComponentBase
	Label string
}

func (t *Tag) IsShareable() bool { return true }
func (t *Tag) Reset()            { t.Label = "" }

type Renderable interface {
	ecs.Component
	Layer() int
}

type Sprite struct {
	ecs.ComponentBase
	Z int
}

func (s *Sprite) Layer() int { return s.Z }

// Member records
type Mover struct {
	ecs.Member
	Position *Position
	Velocity *Velocity
}

var moverShape = ecs.DeclareShape[Mover](
	ecs.Require(func(m *Mover) **Position { return &m.Position }),
	ecs.Require(func(m *Mover) **Velocity { return &m.Velocity }),
)

type Living struct {
	ecs.Member
	Health *Health
}

var livingShape = ecs.DeclareShape[Living](
	ecs.Require(func(m *Living) **Health { return &m.Health }),
)

type Drawable struct {
	ecs.Member
	Renderable Renderable
	Position   *Position
}

var drawableShape = ecs.DeclareShape[Drawable](
	ecs.Require(func(m *Drawable) *Renderable { return &m.Renderable }),
	ecs.Require(func(m *Drawable) **Position { return &m.Position }),
)

// Systems
type MovementSystem struct {
	ecs.SystemBase
	movers  *ecs.Family[Mover]
	Updates int
}

func (s *MovementSystem) AddedToEngine(engine *ecs.Engine) {
	s.movers = ecs.AddFamily(engine, moverShape)
}

func (s *MovementSystem) RemovedFromEngine(engine *ecs.Engine) {
	ecs.RemoveFamily(engine, moverShape)
	s.movers = nil
}

func (s *MovementSystem) Update(frame *ecs.UpdateFrame) {
	s.Updates++
	for m := range s.movers.All() {
		m.Position.X += m.Velocity.DX * frame.DeltaTime
		m.Position.Y += m.Velocity.DY * frame.DeltaTime
	}
}

type CounterSystem struct {
	ecs.SystemBase
	Updates  int
	Deltas   []float64
	OnUpdate func(frame *ecs.UpdateFrame)
}

func (s *CounterSystem) Update(frame *ecs.UpdateFrame) {
	s.Updates++
	s.Deltas = append(s.Deltas, frame.DeltaTime)
	if s.OnUpdate != nil {
		s.OnUpdate(frame)
	}
}

type FixedCounterSystem struct {
	ecs.SystemBase
	Updates int
}

func (s *FixedCounterSystem) AddedToEngine(*ecs.Engine) {
	s.SetTimeStep(ecs.TimeStepFixed)
}

func (s *FixedCounterSystem) Update(*ecs.UpdateFrame) {
	s.Updates++
}

// orderLog records the order systems update in.
var orderLog []string

type FirstSystem struct{ ecs.SystemBase }
type SecondSystem struct{ ecs.SystemBase }
type ThirdSystem struct{ ecs.SystemBase }

func (s *FirstSystem) Update(*ecs.UpdateFrame)  { orderLog = append(orderLog, "first") }
func (s *SecondSystem) Update(*ecs.UpdateFrame) { orderLog = append(orderLog, "second") }
func (s *ThirdSystem) Update(*ecs.UpdateFrame)  { orderLog = append(orderLog, "third") }

const testStep = 100 * time.Millisecond

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRegistry() *ecs.SystemRegistry {
	registry := ecs.NewSystemRegistry()
	ecs.RegisterSystem[MovementSystem](registry)
	ecs.RegisterSystem[CounterSystem](registry)
	ecs.RegisterSystem[FixedCounterSystem](registry)
	ecs.RegisterSystem[FirstSystem](registry)
	ecs.RegisterSystem[SecondSystem](registry)
	ecs.RegisterSystem[ThirdSystem](registry)
	return registry
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestEngine returns an engine with a 100ms fixed step driven by a mock
// clock, with root attached.
func newTestEngine(t *testing.T) (*ecs.Engine, *ecs.MockTimeProvider, *ecs.Entity) {
	t.Helper()
	clock := ecs.NewMockTimeProvider(testEpoch)
	cfg := ecs.DefaultConfig()
	cfg.FixedStep = testStep
	engine := ecs.NewEngine(newTestRegistry(),
		ecs.WithConfig(cfg),
		ecs.WithTimeProvider(clock),
		ecs.WithLogger(quietLogger()),
	)
	root := ecs.NewEntity("root")
	if !engine.Attach(root) {
		t.Fatal("expected root to attach")
	}
	return engine, clock, root
}

// newLoggedEngine is newTestEngine with a logger hook capturing entries.
func newLoggedEngine(t *testing.T) (*ecs.Engine, *test.Hook, *ecs.Entity) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	engine := ecs.NewEngine(newTestRegistry(), ecs.WithLogger(logger))
	root := ecs.NewEntity("root")
	engine.Attach(root)
	return engine, hook, root
}

func newMover(name string, x, dx float64) *ecs.Entity {
	e := ecs.NewEntity(name)
	ecs.Add(e, &Position{X: x})
	ecs.Add(e, &Velocity{DX: dx})
	return e
}
