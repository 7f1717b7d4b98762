package debugui

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

type FamilyInfo struct {
	Type           reflect.Type
	Name           string
	ComponentTypes []string
	MemberCount    int
	PendingCount   int
	References     int
}

type FamilyViewerCache struct {
	families      []FamilyInfo
	sortColumn    int
	sortAscending bool
}

func NewFamilyViewerComponent() *FamilyViewerComponent {
	return &FamilyViewerComponent{
		cache: &FamilyViewerCache{
			sortColumn:    3,
			sortAscending: false,
		},
	}
}

// SelectedFamily returns the member type of the selected row, or nil.
func (fv *FamilyViewerComponent) SelectedFamily() reflect.Type {
	return fv.selectedFamily
}

func (fv *FamilyViewerComponent) Render(engine *ecs.Engine) {
	if !imgui.BeginV("Family Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	fv.rebuildCache(engine)

	maxMemberCount := 0
	for _, family := range fv.cache.families {
		maxMemberCount = max(maxMemberCount, family.MemberCount)
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("FamilyTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Member")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Refs")
		imgui.TableSetupColumn("Members")
		imgui.TableSetupColumn("Pending")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			fv.cache.sortColumn = int(spec.ColumnIndex())
			fv.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			fv.sortFamilies()
			sortSpecs.SetSpecsDirty(false)
		}

		for _, family := range fv.cache.families {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := fv.selectedFamily == family.Type
			if imgui.SelectableBoolV(family.Name, isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				fv.selectedFamily = family.Type
			}

			imgui.TableNextColumn()
			imgui.Text(strings.Join(family.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", family.References))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", family.MemberCount))

			if maxMemberCount > 0 {
				barWidth := float32(family.MemberCount) / float32(maxMemberCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", family.PendingCount))
		}

		imgui.EndTable()
	}

	if fv.selectedFamily != nil {
		if family := engine.Family(fv.selectedFamily); family != nil && imgui.TreeNodeStr("Members") {
			for _, e := range family.Entities() {
				imgui.BulletText(fmt.Sprintf("%s (%d)", e.Name(), e.ID()))
			}
			imgui.TreePop()
		}
	}

	imgui.End()
}

func (fv *FamilyViewerComponent) rebuildCache(engine *ecs.Engine) {
	fv.cache.families = collectFamilies(engine, fv.cache.families[:0])
	fv.sortFamilies()
}

// collectFamilies appends a row per live family of engine.
func collectFamilies(engine *ecs.Engine, rows []FamilyInfo) []FamilyInfo {
	for _, family := range engine.Families() {
		typ := family.MemberType()
		rows = append(rows, FamilyInfo{
			Type:           typ,
			Name:           typ.String(),
			ComponentTypes: typeNames(family.Components()),
			MemberCount:    family.Len(),
			PendingCount:   family.Pending(),
			References:     engine.FamilyRefs(typ),
		})
	}
	return rows
}

func (fv *FamilyViewerComponent) sortFamilies() {
	sort.SliceStable(fv.cache.families, func(i, j int) bool {
		a, b := fv.cache.families[i], fv.cache.families[j]
		var less bool

		switch fv.cache.sortColumn {
		case 0:
			less = a.Name < b.Name
		case 1:
			less = strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case 2:
			less = a.References < b.References
		case 3:
			less = a.MemberCount < b.MemberCount
		case 4:
			less = a.PendingCount < b.PendingCount
		default:
			less = a.MemberCount < b.MemberCount
		}

		if !fv.cache.sortAscending {
			return !less
		}
		return less
	})
}
