// Package debugui provides Dear ImGui integration and inspection windows for
// an ecs.Engine. Render functions are collected by ImguiSystem each frame and
// queued on the engine command buffer, so they run after every system of the
// frame has updated.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	ecs.ComponentBase
	Render func()
}

// ImguiInputState tracks Dear ImGui's input capture state as a root component.
// Use this to determine if ImGui is consuming mouse or keyboard input.
type ImguiInputState struct {
	ecs.ComponentBase
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// Item is the family member record of entities holding an ImguiItem.
type Item struct {
	ecs.Member
	Item *ImguiItem
}

var itemShape = ecs.DeclareShape[Item](
	ecs.Require(func(m *Item) **ImguiItem { return &m.Item }),
)

// InputSource reports whether the GUI wants the mouse and the keyboard.
type InputSource func() (mouse, keyboard bool)

// CurrentIO reads the capture flags of the current ImGui context.
func CurrentIO() (mouse, keyboard bool) {
	io := imgui.CurrentIO()
	return io.WantCaptureMouse(), io.WantCaptureKeyboard()
}

// ImguiSystem defers the render function of every ImguiItem and keeps the
// ImguiInputState root component current.
type ImguiSystem struct {
	ecs.SystemBase
	Input InputSource

	items *ecs.Family[Item]
	state *ecs.Singleton[*ImguiInputState]
}

// NewImguiSystem returns a system reading input flags from the ImGui context.
func NewImguiSystem() *ImguiSystem {
	return &ImguiSystem{Input: CurrentIO}
}

func (s *ImguiSystem) AddedToEngine(engine *ecs.Engine) {
	s.items = ecs.AddFamily(engine, itemShape)
	s.state = ecs.NewSingleton(engine, &ImguiInputState{})
}

func (s *ImguiSystem) RemovedFromEngine(engine *ecs.Engine) {
	ecs.RemoveFamily(engine, itemShape)
	s.items = nil
	s.state = nil
}

// Update records the input capture state and queues every render function.
func (s *ImguiSystem) Update(frame *ecs.UpdateFrame) {
	if state := s.state.Get(); state != nil && s.Input != nil {
		state.WantCaptureMouse, state.WantCaptureKeyboard = s.Input()
	}

	for item := range s.items.All() {
		if item.Item.Render != nil {
			frame.Commands.Defer(item.Item.Render)
		}
	}
}
