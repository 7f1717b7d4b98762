package debugui

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

type QueryDebuggerCache struct {
	componentTypes map[string]reflect.Type
	typeNames      []string
	lastFrame      uint64
	lastCount      int
	built          bool
}

func NewQueryDebuggerComponent() *QueryDebuggerComponent {
	return &QueryDebuggerComponent{
		selectedComponentTypes: make(map[string]bool),
		cache:                  &QueryDebuggerCache{},
	}
}

// Render lets the user pick component types and lists the attached entities
// holding all of them, along with the families that would admit them.
func (qd *QueryDebuggerComponent) Render(engine *ecs.Engine) {
	if !imgui.BeginV("Query Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	qd.rebuildCacheIfNeeded(engine)

	imgui.Text("Select Component Types:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		qd.selectedComponentTypes = make(map[string]bool)
	}

	for _, compType := range qd.cache.typeNames {
		selected := qd.selectedComponentTypes[compType]
		if imgui.Checkbox(compType, &selected) {
			if selected {
				qd.selectedComponentTypes[compType] = true
			} else {
				delete(qd.selectedComponentTypes, compType)
			}
		}
	}

	imgui.Separator()

	selectedTypes := qd.selectedTypes()
	if len(selectedTypes) == 0 {
		imgui.Text("No component types selected")
		imgui.End()
		return
	}

	matchingEntities := matchEntities(engine, selectedTypes)
	matchingFamilies := matchFamilies(engine, selectedTypes)

	imgui.Text(fmt.Sprintf("Matching Entities: %d", len(matchingEntities)))
	imgui.Text(fmt.Sprintf("Families covering the query: %d", len(matchingFamilies)))

	if imgui.TreeNodeStr("Entity Details") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("QueryEntityTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Entity")
			imgui.TableSetupColumn("ID")
			imgui.TableSetupColumn("All Components")
			imgui.TableHeadersRow()

			for _, e := range matchingEntities {
				imgui.TableNextRow()

				imgui.TableSetColumnIndex(0)
				imgui.Text(e.Name())

				imgui.TableSetColumnIndex(1)
				imgui.Text(fmt.Sprintf("%d", e.ID()))

				imgui.TableSetColumnIndex(2)
				imgui.Text(strings.Join(typeNames(e.ComponentTypes()), ", "))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	if len(matchingFamilies) > 0 && imgui.TreeNodeStr("Family Details") {
		for _, family := range matchingFamilies {
			imgui.BulletText(fmt.Sprintf("%s: %d members", family.MemberType(), family.Len()))
		}
		imgui.TreePop()
	}

	imgui.End()
}

func (qd *QueryDebuggerComponent) selectedTypes() []reflect.Type {
	selected := make([]reflect.Type, 0, len(qd.selectedComponentTypes))
	for _, typeName := range qd.cache.typeNames {
		if qd.selectedComponentTypes[typeName] {
			selected = append(selected, qd.cache.componentTypes[typeName])
		}
	}
	return selected
}

func (qd *QueryDebuggerComponent) rebuildCacheIfNeeded(engine *ecs.Engine) {
	if qd.cache.built && qd.cache.lastFrame == engine.Frames() && qd.cache.lastCount == engine.NumEntities() {
		return
	}
	qd.cache.lastFrame = engine.Frames()
	qd.cache.lastCount = engine.NumEntities()
	qd.rebuildCache(engine)
}

func (qd *QueryDebuggerComponent) rebuildCache(engine *ecs.Engine) {
	qd.cache.componentTypes = componentTypeIndex(engine)
	qd.cache.typeNames = make([]string, 0, len(qd.cache.componentTypes))
	for typeName := range qd.cache.componentTypes {
		qd.cache.typeNames = append(qd.cache.typeNames, typeName)
	}
	sort.Strings(qd.cache.typeNames)
	qd.cache.built = true
}

// componentTypeIndex maps the name of every component type key held by an
// attached entity to the key.
func componentTypeIndex(engine *ecs.Engine) map[string]reflect.Type {
	index := make(map[string]reflect.Type)
	for _, e := range engine.Entities() {
		for _, t := range e.ComponentTypes() {
			index[t.String()] = t
		}
	}
	return index
}

// matchEntities returns the attached entities holding every required type.
func matchEntities(engine *ecs.Engine, requiredTypes []reflect.Type) []*ecs.Entity {
	matching := make([]*ecs.Entity, 0)
	for _, e := range engine.Entities() {
		if hasAllTypes(e, requiredTypes) {
			matching = append(matching, e)
		}
	}
	return matching
}

// matchFamilies returns the families whose required components are all part
// of the query, so that every matching entity is one of their members.
func matchFamilies(engine *ecs.Engine, requiredTypes []reflect.Type) []ecs.AnyFamily {
	matching := make([]ecs.AnyFamily, 0)
	for _, family := range engine.Families() {
		covered := true
		for _, t := range family.Components() {
			if !containsType(requiredTypes, t) {
				covered = false
				break
			}
		}
		if covered {
			matching = append(matching, family)
		}
	}
	return matching
}

func hasAllTypes(e *ecs.Entity, requiredTypes []reflect.Type) bool {
	for _, required := range requiredTypes {
		if !e.HasComponent(required) {
			return false
		}
	}
	return true
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
