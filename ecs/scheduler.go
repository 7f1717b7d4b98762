package ecs

import (
	"context"
	"time"
)

// Stats is a snapshot of the engine registries and update counters.
type Stats struct {
	Entities        int
	Families        int
	Systems         int
	PendingFamilies int
	PendingSystems  int
	PooledEntities  int
	PooledFamilies  int
	Frames          uint64
	FixedSteps      uint64
	Elapsed         time.Duration
	TotalExecutions int64
	SystemStats     []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	Priority       int
	TimeStep       TimeStep
	References     int
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func newSystemStats(name string) systemStatsInternal {
	return systemStatsInternal{
		name:        name,
		minDuration: time.Duration(1<<63 - 1),
	}
}

func (s *systemStatsInternal) record(duration time.Duration) {
	s.executionCount++
	s.lastDuration = duration
	s.totalDuration += duration
	if duration < s.minDuration {
		s.minDuration = duration
	}
	if duration > s.maxDuration {
		s.maxDuration = duration
	}
}

// Update advances the engine clock and runs the systems. Fixed systems run
// once per fixed step the clock advanced by, then variable systems run once.
// Deferred commands are flushed and systems and families released during the
// update are disposed afterwards. Update does nothing while the engine sleeps
// or when called from within an update.
func (e *Engine) Update() {
	if e.sleeping > 0 || e.updating {
		return
	}
	now := e.clock.Now()
	if !e.started {
		e.started = true
		e.start = now
	}
	elapsed := now.Sub(e.start)
	e.setUpdating(true)

	e.setUpdateState(TimeStepFixed)
	for elapsed-e.totalFixed >= e.fixedStep {
		e.totalFixed += e.fixedStep
		e.deltaFixed = e.fixedStep
		e.fixedSteps++
		e.runSystems(e.fixedStep.Seconds())
	}

	e.setUpdateState(TimeStepVariable)
	e.deltaVariable = elapsed - e.totalVariable
	e.totalVariable = elapsed
	e.runSystems(e.deltaVariable.Seconds())

	e.setUpdateState(TimeStepNone)
	e.commands.Flush(e)
	e.disposePendingSystems()
	e.disposePendingFamilies()
	e.frames++
	e.setUpdating(false)
}

// runSystems runs one pass over the systems in update order. Systems waiting
// for disposal are skipped and a system moved during the pass runs once.
func (e *Engine) runSystems(dt float64) {
	e.pass++
	e.systemLoop = true
	defer func() {
		e.systemLoop = false
		e.currentSystem = nil
	}()

	for e.systemCursor = 0; e.systemCursor < len(e.systems); e.systemCursor++ {
		entry := e.systems[e.systemCursor]
		b := entry.system.systemBase()
		if entry.count == 0 || b.pass == e.pass {
			continue
		}
		b.pass = e.pass

		e.currentSystem = entry.system
		start := time.Now()
		ran := RunSystem(entry.system, dt)
		duration := time.Since(start)
		e.currentSystem = nil

		if ran {
			entry.stats.record(duration)
		}
	}
}

// Run calls Update at the given interval until the context is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Update()
		}
	}
}

// Stats returns a snapshot of the registries and per-system statistics.
func (e *Engine) Stats() *Stats {
	stats := &Stats{
		Entities:        len(e.entities),
		Families:        len(e.families),
		Systems:         len(e.systems),
		PendingFamilies: len(e.pendingFamilies),
		PendingSystems:  len(e.pendingSystems),
		PooledEntities:  e.entityPool.Len(),
		Frames:          e.frames,
		FixedSteps:      e.fixedSteps,
		Elapsed:         e.totalVariable,
		SystemStats:     make([]SystemStats, len(e.systems)),
	}
	for _, pool := range e.familyPools {
		stats.PooledFamilies += pool.Len()
	}

	var totalExecs int64
	for i, entry := range e.systems {
		internal := entry.stats
		avgDuration := time.Duration(0)
		minDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
			minDuration = internal.minDuration
		}
		b := entry.system.systemBase()

		stats.SystemStats[i] = SystemStats{
			Name:           internal.name,
			Priority:       b.priority,
			TimeStep:       b.TimeStep(),
			References:     entry.count,
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
