package debugui

import (
	"reflect"

	"github.com/plus3/hearth/ecs"
)

// Selection is the entity picked in the entity browser. It is shared by every
// debug window entity spawned together.
type Selection struct {
	ecs.ComponentBase
	Entity ecs.EntityID
}

func (s *Selection) IsShareable() bool { return true }
func (s *Selection) Reset()            { s.Entity = 0 }

type EntityBrowserComponent struct {
	ecs.ComponentBase
	selection          *Selection
	cache              *EntityBrowserCache
	filterText         string
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspectorComponent struct {
	ecs.ComponentBase
	selection *Selection
}

type FamilyViewerComponent struct {
	ecs.ComponentBase
	cache          *FamilyViewerCache
	selectedFamily reflect.Type
}

type PerformanceStatsComponent struct {
	ecs.ComponentBase
	history *FrameHistory
}

type QueryDebuggerComponent struct {
	ecs.ComponentBase
	selectedComponentTypes map[string]bool
	cache                  *QueryDebuggerCache
}
