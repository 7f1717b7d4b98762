package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/plus3/hearth/ecs"
)

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
}

// Lifetime counts down the seconds an entity has left.
type Lifetime struct {
	ecs.ComponentBase
	Remaining float64
	Expired   bool
}

// Spawner emits Batch short-lived movers under its entity every Interval.
type Spawner struct {
	ecs.ComponentBase
	Interval float64
	Timer    float64
	Batch    int
}

type Mover struct {
	ecs.Member
	Position *Position
	Velocity *Velocity
}

type Mortal struct {
	ecs.Member
	Lifetime *Lifetime
}

type Spawning struct {
	ecs.Member
	Spawner *Spawner
}

type Living struct {
	ecs.Member
	Health   *Health
	Position *Position
}

var (
	moverShape = ecs.DeclareShape[Mover](
		ecs.Require(func(m *Mover) **Position { return &m.Position }),
		ecs.Require(func(m *Mover) **Velocity { return &m.Velocity }),
	)
	mortalShape = ecs.DeclareShape[Mortal](
		ecs.Require(func(m *Mortal) **Lifetime { return &m.Lifetime }),
	)
	spawningShape = ecs.DeclareShape[Spawning](
		ecs.Require(func(m *Spawning) **Spawner { return &m.Spawner }),
	)
	livingShape = ecs.DeclareShape[Living](
		ecs.Require(func(m *Living) **Health { return &m.Health }),
		ecs.Require(func(m *Living) **Position { return &m.Position }),
	)
)

// MovementSystem integrates velocities on the fixed step.
type MovementSystem struct {
	ecs.SystemBase
	movers *ecs.Family[Mover]
}

func (s *MovementSystem) AddedToEngine(engine *ecs.Engine) {
	s.SetTimeStep(ecs.TimeStepFixed)
	s.movers = ecs.AddFamily(engine, moverShape)
}

func (s *MovementSystem) RemovedFromEngine(engine *ecs.Engine) {
	ecs.RemoveFamily(engine, moverShape)
}

func (s *MovementSystem) Update(frame *ecs.UpdateFrame) {
	for m := range s.movers.All() {
		m.Position.X += m.Velocity.DX * frame.DeltaTime
		m.Position.Y += m.Velocity.DY * frame.DeltaTime
	}
}

// LifetimeSystem disposes entities whose lifetime ran out.
type LifetimeSystem struct {
	ecs.SystemBase
	mortals  *ecs.Family[Mortal]
	Disposed int
}

func (s *LifetimeSystem) AddedToEngine(engine *ecs.Engine) {
	s.mortals = ecs.AddFamily(engine, mortalShape)
}

func (s *LifetimeSystem) RemovedFromEngine(engine *ecs.Engine) {
	ecs.RemoveFamily(engine, mortalShape)
}

func (s *LifetimeSystem) Update(frame *ecs.UpdateFrame) {
	for m := range s.mortals.All() {
		if m.Lifetime.Expired {
			continue
		}
		m.Lifetime.Remaining -= frame.DeltaTime
		if m.Lifetime.Remaining <= 0 {
			m.Lifetime.Expired = true
			frame.Commands.Dispose(m.Entity())
			s.Disposed++
		}
	}
}

// SpawnerSystem spawns movers under spawner entities.
type SpawnerSystem struct {
	ecs.SystemBase
	world    *World
	spawners *ecs.Family[Spawning]
	Spawned  int
}

func (s *SpawnerSystem) AddedToEngine(engine *ecs.Engine) {
	s.spawners = ecs.AddFamily(engine, spawningShape)
}

func (s *SpawnerSystem) RemovedFromEngine(engine *ecs.Engine) {
	ecs.RemoveFamily(engine, spawningShape)
}

func (s *SpawnerSystem) Update(frame *ecs.UpdateFrame) {
	for m := range s.spawners.All() {
		m.Spawner.Timer += frame.DeltaTime
		for m.Spawner.Timer >= m.Spawner.Interval {
			m.Spawner.Timer -= m.Spawner.Interval
			for i := 0; i < m.Spawner.Batch; i++ {
				frame.Commands.Spawn(m.Entity(), "", s.world.transient()...)
				s.Spawned++
			}
		}
	}
}

// ChurnSystem toggles Health on a rotating window of movers so families keep
// gaining and losing members.
type ChurnSystem struct {
	ecs.SystemBase
	world   *World
	movers  *ecs.Family[Mover]
	living  *ecs.Family[Living]
	offset  int
	Toggled int
}

func (s *ChurnSystem) AddedToEngine(engine *ecs.Engine) {
	s.SetInterval(100 * time.Millisecond)
	s.movers = ecs.AddFamily(engine, moverShape)
	s.living = ecs.AddFamily(engine, livingShape)
}

func (s *ChurnSystem) RemovedFromEngine(engine *ecs.Engine) {
	ecs.RemoveFamily(engine, livingShape)
	ecs.RemoveFamily(engine, moverShape)
}

func (s *ChurnSystem) Update(frame *ecs.UpdateFrame) {
	members := s.movers.Members()
	if len(members) == 0 {
		return
	}
	window := min(s.world.ChurnWindow, len(members))
	for i := 0; i < window; i++ {
		e := members[(s.offset+i)%len(members)].Entity()
		if s.living.Has(e) {
			frame.Commands.RemoveComponent(e, ecs.TypeOf[Health]())
		} else {
			frame.Commands.AddComponent(e, &Health{Current: 100})
		}
		s.Toggled++
	}
	s.offset = (s.offset + window) % len(members)
}

// World builds the stress entity tree and owns the randomness of the run.
type World struct {
	rng *rand.Rand

	// ChurnWindow is the number of movers ChurnSystem toggles per run.
	ChurnWindow int
	// SpawnBatch is the number of movers each spawner emits per interval.
	SpawnBatch int
}

func NewWorld(seed int64) *World {
	return &World{
		rng:         rand.New(rand.NewSource(seed)),
		ChurnWindow: 64,
		SpawnBatch:  4,
	}
}

// RegisterSystems registers the stress systems with registry.
func (w *World) RegisterSystems(registry *ecs.SystemRegistry) {
	ecs.RegisterSystem[MovementSystem](registry)
	ecs.RegisterSystem[LifetimeSystem](registry)
	ecs.RegisterSystemFunc(registry, func() *SpawnerSystem { return &SpawnerSystem{world: w} })
	ecs.RegisterSystemFunc(registry, func() *ChurnSystem { return &ChurnSystem{world: w} })
}

// Populate attaches entityCount entities to root, grouped into branches of
// fanout leaves. Each branch holds a spawner and requests the lifetime
// system, and root requests every system.
func (w *World) Populate(root *ecs.Entity, entityCount, fanout int) {
	ecs.RequestSystem[MovementSystem](root)
	ecs.RequestSystem[LifetimeSystem](root)
	ecs.RequestSystem[SpawnerSystem](root)
	ecs.RequestSystem[ChurnSystem](root)

	fanout = max(fanout, 1)
	world := ecs.NewEntity("world")
	var branch *ecs.Entity
	for i := 0; i < entityCount; i++ {
		if i%fanout == 0 {
			branch = world.AddChild(ecs.NewEntity(fmt.Sprintf("branch-%d", i/fanout)))
			ecs.Add(branch, &Spawner{Interval: 0.5 + w.rng.Float64(), Batch: w.SpawnBatch})
			ecs.RequestSystem[LifetimeSystem](branch)
		}
		w.spawnRandom(branch, w.rng.Intn(4)+1)
	}
	root.AddChild(world)
}

// spawnRandom adds a leaf with the first n of a shuffled component set.
func (w *World) spawnRandom(parent *ecs.Entity, n int) *ecs.Entity {
	e := parent.AddChild(ecs.NewEntity(""))
	components := []ecs.Component{
		&Position{X: w.rng.Float64() * 100, Y: w.rng.Float64() * 100},
		&Velocity{DX: w.rng.NormFloat64(), DY: w.rng.NormFloat64()},
		&Health{Current: w.rng.Intn(100) + 1},
		&Lifetime{Remaining: 5 + w.rng.Float64()*10},
	}
	w.rng.Shuffle(len(components), func(i, j int) {
		components[i], components[j] = components[j], components[i]
	})
	for _, c := range components[:n] {
		e.AddComponent(c)
	}
	return e
}

func (w *World) transient() []ecs.Component {
	return []ecs.Component{
		&Position{},
		&Velocity{DX: w.rng.NormFloat64(), DY: w.rng.NormFloat64()},
		&Lifetime{Remaining: 0.5 + w.rng.Float64()*2},
	}
}
