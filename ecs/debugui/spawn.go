package debugui

import "github.com/plus3/hearth/ecs"

// Window is an inspection window drawn against an engine.
type Window interface {
	ecs.Component
	Render(engine *ecs.Engine)
}

// RegisterSystems registers ImguiSystem with registry.
func RegisterSystems(registry *ecs.SystemRegistry) {
	ecs.RegisterSystemFunc(registry, NewImguiSystem)
}

// NewWindowEntity returns an entity holding w and an ImguiItem rendering it
// against the engine the entity is attached to.
func NewWindowEntity(name string, w Window) *ecs.Entity {
	e := ecs.NewEntity(name)
	e.AddComponent(w)
	ecs.Add(e, &ImguiItem{
		Render: func() {
			if engine := e.Engine(); engine != nil {
				w.Render(engine)
			}
		},
	})
	return e
}

// SpawnDebugUI attaches the inspection windows under parent, which must be
// attached to an engine whose registry holds ImguiSystem. The windows share a
// Selection. It returns the entity grouping the windows; disposing it removes
// them.
func SpawnDebugUI(parent *ecs.Entity) *ecs.Entity {
	selection := &Selection{}
	group := ecs.NewEntity("debugui")
	windows := []*ecs.Entity{
		NewWindowEntity("debugui.entities", NewEntityBrowserComponent(selection, 100)),
		NewWindowEntity("debugui.inspector", NewComponentInspectorComponent(selection)),
		NewWindowEntity("debugui.families", NewFamilyViewerComponent()),
		NewWindowEntity("debugui.performance", NewPerformanceStatsComponent(120)),
		NewWindowEntity("debugui.query", NewQueryDebuggerComponent()),
	}
	for _, w := range windows {
		ecs.Add(w, selection)
		group.AddChild(w)
	}

	ecs.RequestSystem[ImguiSystem](group)
	parent.AddChild(group)
	return group
}
