package debugui

import (
	"reflect"

	"github.com/plus3/hearth/ecs"
)

// fieldEditor selects the widget the inspector draws for a field.
type fieldEditor int

const (
	editOpaque fieldEditor = iota
	editInt
	editUint
	editFloat
	editBool
	editString
	editStruct
	editList
	editMap
)

func editorFor(t reflect.Type) fieldEditor {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return editInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return editUint
	case reflect.Float32, reflect.Float64:
		return editFloat
	case reflect.Bool:
		return editBool
	case reflect.String:
		return editString
	case reflect.Struct:
		return editStruct
	case reflect.Slice, reflect.Array:
		return editList
	case reflect.Map:
		return editMap
	default:
		return editOpaque
	}
}

// ComponentField is an exported field of a component as the inspector
// shows it. Type is the pointed-to type for pointer fields.
type ComponentField struct {
	Name    string
	Type    reflect.Type
	Index   []int
	Pointer bool
	editor  fieldEditor
}

// FieldLayouts memoizes the inspectable fields of component types. The
// ecs.ComponentBase and ecs.Member bases are skipped and other embedded
// structs contribute their promoted fields. It is only used from the
// goroutine that updates the engine.
type FieldLayouts struct {
	layouts map[reflect.Type][]ComponentField
}

func NewFieldLayouts() *FieldLayouts {
	return &FieldLayouts{layouts: make(map[reflect.Type][]ComponentField)}
}

var (
	componentBaseType = reflect.TypeFor[ecs.ComponentBase]()
	memberType        = reflect.TypeFor[ecs.Member]()
)

// Fields returns the layout of t, dereferencing pointer types first.
func (l *FieldLayouts) Fields(t reflect.Type) []ComponentField {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if fields, ok := l.layouts[t]; ok {
		return fields
	}
	var fields []ComponentField
	if t.Kind() == reflect.Struct {
		fields = appendFields(fields, t, nil)
	}
	l.layouts[t] = fields
	return fields
}

// Len returns the number of memoized types.
func (l *FieldLayouts) Len() int { return len(l.layouts) }

func appendFields(fields []ComponentField, t reflect.Type, prefix []int) []ComponentField {
	for i := range t.NumField() {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		if sf.Anonymous {
			if sf.Type == componentBaseType || sf.Type == memberType {
				continue
			}
			if sf.Type.Kind() == reflect.Struct {
				fields = appendFields(fields, sf.Type, index)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		typ, pointer := sf.Type, sf.Type.Kind() == reflect.Ptr
		if pointer {
			typ = typ.Elem()
		}
		fields = append(fields, ComponentField{
			Name:    sf.Name,
			Type:    typ,
			Index:   index,
			Pointer: pointer,
			editor:  editorFor(typ),
		})
	}
	return fields
}

var inspectorLayouts = NewFieldLayouts()
