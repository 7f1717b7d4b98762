package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

func NewComponentInspectorComponent(selection *Selection) *ComponentInspectorComponent {
	return &ComponentInspectorComponent{selection: selection}
}

func (ci *ComponentInspectorComponent) Render(engine *ecs.Engine) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if ci.selection.Entity == 0 {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}

	entity := engine.EntityByID(ci.selection.Entity)
	if entity == nil {
		imgui.Text(fmt.Sprintf("Entity %d is no longer attached", ci.selection.Entity))
		imgui.End()
		return
	}

	imgui.Text(fmt.Sprintf("Entity: %s (%d)", entity.Name(), entity.ID()))
	if parent := entity.Parent(); parent != nil {
		imgui.Text(fmt.Sprintf("Parent: %s (%d)", parent.Name(), parent.ID()))
	}
	imgui.Text(fmt.Sprintf("Children: %d", entity.NumChildren()))
	imgui.Separator()

	for _, compType := range entity.ComponentTypes() {
		component := entity.Component(compType)
		if component == nil {
			continue
		}

		label := compType.String()
		if shared, ok := component.(interface{ ManagerCount() int }); ok && shared.ManagerCount() > 1 {
			label = fmt.Sprintf("%s (shared by %d)", label, shared.ManagerCount())
		}
		if imgui.TreeNodeStr(label) {
			renderComponent(component)
			imgui.TreePop()
		}
	}

	if systems := entity.Systems(); len(systems) > 0 && imgui.TreeNodeStr("Systems") {
		for _, name := range typeNames(systems) {
			imgui.BulletText(name)
		}
		imgui.TreePop()
	}

	imgui.End()
}

func renderComponent(component ecs.Component) {
	val := reflect.ValueOf(component)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	renderFields(val)
}

func renderFields(val reflect.Value) {
	for _, field := range inspectorLayouts.Fields(val.Type()) {
		fieldVal := val.FieldByIndex(field.Index)
		if field.Pointer && !fieldVal.IsNil() {
			fieldVal = fieldVal.Elem()
		}
		renderField(fieldVal, field)
	}
}

// renderField draws an editor for val and writes edits back through it. val
// must be addressable for edits to apply.
func renderField(val reflect.Value, field ComponentField) {
	name := field.Name
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}

	if val.Kind() == reflect.Ptr && val.IsNil() {
		imgui.Text(fmt.Sprintf("%s: nil", name))
		return
	}

	switch field.editor {
	case editInt:
		v := int32(val.Int())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) {
			setField(val, int64(v))
		}

	case editUint:
		v := int32(val.Uint())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) && v >= 0 {
			setField(val, uint64(v))
		}

	case editFloat:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(fmt.Sprintf("##%s", name), &v) {
			setField(val, float64(v))
		}

	case editBool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) {
			setField(val, v)
		}

	case editString:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(fmt.Sprintf("##%s", name), "", &v, imgui.InputTextFlagsNone, nil) {
			setField(val, v)
		}

	case editStruct:
		if imgui.TreeNodeStr(name) {
			renderFields(val)
			imgui.TreePop()
		}

	case editList:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case editMap:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	case editOpaque:
		imgui.Text(fmt.Sprintf("%s: %s", name, field.Type))
	}
}

// setField stores value into field, converting between the widths of one
// numeric kind. It reports whether the field was written.
func setField(field reflect.Value, value any) bool {
	if !field.CanSet() {
		return false
	}

	switch v := value.(type) {
	case int64:
		switch field.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if field.OverflowInt(v) {
				return false
			}
			field.SetInt(v)
			return true
		}
	case uint64:
		switch field.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if field.OverflowUint(v) {
				return false
			}
			field.SetUint(v)
			return true
		}
	case float64:
		switch field.Kind() {
		case reflect.Float32, reflect.Float64:
			field.SetFloat(v)
			return true
		}
	case bool:
		if field.Kind() == reflect.Bool {
			field.SetBool(v)
			return true
		}
	case string:
		if field.Kind() == reflect.String {
			field.SetString(v)
			return true
		}
	}
	return false
}
