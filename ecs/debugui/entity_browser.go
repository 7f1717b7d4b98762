package debugui

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

type EntityInfo struct {
	ID             ecs.EntityID
	Name           string
	Depth          int
	ComponentTypes []string
	Systems        []string
}

type EntityBrowserCache struct {
	entities      []EntityInfo
	built         bool
	lastFrame     uint64
	lastCount     int
	sortColumn    int
	sortAscending bool
}

func NewEntityBrowserComponent(selection *Selection, maxEntitiesPerPage int) *EntityBrowserComponent {
	return &EntityBrowserComponent{
		selection: selection,
		cache: &EntityBrowserCache{
			sortAscending: true,
		},
		maxEntitiesPerPage: maxEntitiesPerPage,
	}
}

func (eb *EntityBrowserComponent) Render(engine *ecs.Engine) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	eb.rebuildCacheIfNeeded(engine)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
		eb.currentPage = 0
	}

	filteredEntities := eb.getFilteredEntities()
	page := pageBounds(len(filteredEntities), eb.maxEntitiesPerPage, eb.currentPage)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("ID")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Systems")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.cache.sortColumn = int(spec.ColumnIndex())
			eb.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			eb.rebuildCache(engine)
			sortSpecs.SetSpecsDirty(false)
		}

		for _, entity := range filteredEntities[page.start:page.end] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			label := strings.Repeat("  ", entity.Depth) + entity.Name
			isSelected := eb.selection.Entity == entity.ID
			if imgui.SelectableBoolV(fmt.Sprintf("%s##%d", label, entity.ID), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.selection.Entity = entity.ID
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", entity.ID))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.Systems, ", "))
		}

		imgui.EndTable()
	}

	if page.pages > 1 {
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, page.pages, len(filteredEntities)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < page.pages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filteredEntities)))
	}

	imgui.End()
}

type pageRange struct {
	start, end, pages int
}

// pageBounds clamps page to the available pages and returns its slice bounds.
func pageBounds(total, perPage, page int) pageRange {
	if perPage <= 0 {
		return pageRange{start: 0, end: total, pages: 1}
	}
	pages := (total + perPage - 1) / perPage
	if page >= pages {
		page = max(pages-1, 0)
	}
	start := page * perPage
	return pageRange{start: start, end: min(start+perPage, total), pages: pages}
}

func (eb *EntityBrowserComponent) rebuildCacheIfNeeded(engine *ecs.Engine) {
	if eb.cache.built && eb.cache.lastFrame == engine.Frames() && eb.cache.lastCount == engine.NumEntities() {
		return
	}
	eb.cache.lastFrame = engine.Frames()
	eb.cache.lastCount = engine.NumEntities()
	eb.rebuildCache(engine)
}

func (eb *EntityBrowserComponent) rebuildCache(engine *ecs.Engine) {
	eb.cache.entities = collectEntities(engine, eb.cache.entities[:0])
	eb.cache.built = true
	eb.sortEntities()
}

// collectEntities appends a row per entity of the attached tree in pre-order.
func collectEntities(engine *ecs.Engine, rows []EntityInfo) []EntityInfo {
	root := engine.Root()
	if root == nil {
		return rows
	}
	depths := map[*ecs.Entity]int{root: 0}
	root.Descendants(func(e *ecs.Entity) bool {
		depth := 0
		if parent := e.Parent(); parent != nil {
			depth = depths[parent] + 1
		}
		depths[e] = depth
		rows = append(rows, EntityInfo{
			ID:             e.ID(),
			Name:           e.Name(),
			Depth:          depth,
			ComponentTypes: typeNames(e.ComponentTypes()),
			Systems:        typeNames(e.Systems()),
		})
		return true
	})
	return rows
}

func (eb *EntityBrowserComponent) sortEntities() {
	if eb.cache.sortColumn == 0 && eb.cache.sortAscending {
		// Tree order.
		return
	}
	sort.SliceStable(eb.cache.entities, func(i, j int) bool {
		a, b := eb.cache.entities[i], eb.cache.entities[j]
		var less bool

		switch eb.cache.sortColumn {
		case 0:
			less = a.Name < b.Name
		case 1:
			less = a.ID < b.ID
		case 2:
			less = len(a.ComponentTypes) < len(b.ComponentTypes)
		case 3:
			less = len(a.Systems) < len(b.Systems)
		default:
			less = a.ID < b.ID
		}

		if !eb.cache.sortAscending {
			return !less
		}
		return less
	})
}

func (eb *EntityBrowserComponent) getFilteredEntities() []EntityInfo {
	return filterEntities(eb.cache.entities, eb.filterText)
}

// filterEntities keeps the rows whose name, id, component or system types
// contain filter, ignoring case.
func filterEntities(entities []EntityInfo, filter string) []EntityInfo {
	if filter == "" {
		return entities
	}

	filtered := make([]EntityInfo, 0, len(entities))
	filterLower := strings.ToLower(filter)

	for _, entity := range entities {
		idStr := fmt.Sprintf("%d", entity.ID)
		nameStr := strings.ToLower(entity.Name)
		componentsStr := strings.ToLower(strings.Join(entity.ComponentTypes, " "))
		systemsStr := strings.ToLower(strings.Join(entity.Systems, " "))

		if !strings.Contains(idStr, filterLower) &&
			!strings.Contains(nameStr, filterLower) &&
			!strings.Contains(componentsStr, filterLower) &&
			!strings.Contains(systemsStr, filterLower) {
			continue
		}

		filtered = append(filtered, entity)
	}

	return filtered
}

func (eb *EntityBrowserComponent) GetSelectedEntity() ecs.EntityID {
	return eb.selection.Entity
}

func typeNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
