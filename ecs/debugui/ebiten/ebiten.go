// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/hearth/ecs"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
// Add it to the engine root so systems and render functions can reach it.
type ImguiBackend struct {
	ecs.ComponentBase
	Backend *ebitenbackend.EbitenBackend
}

// Game implements ebiten.Game. Each tick opens an ImGui frame, updates the
// engine, whose ImguiSystem queues the render functions, and closes the frame.
type Game struct {
	Engine *ecs.Engine
	// DrawScene draws game content below the ImGui overlay.
	DrawScene func(screen *ebiten.Image)

	backend *ecs.Singleton[*ImguiBackend]
}

// NewGame adds backend to the root of engine and returns a Game driving both.
func NewGame(engine *ecs.Engine, backend *ebitenbackend.EbitenBackend) *Game {
	return &Game{
		Engine:  engine,
		backend: ecs.NewSingleton(engine, &ImguiBackend{Backend: backend}),
	}
}

func (g *Game) Update() error {
	backend := g.backend.Get()
	if backend == nil || backend.Backend == nil {
		g.Engine.Update()
		return nil
	}

	backend.Backend.BeginFrame()
	g.Engine.Update()
	backend.Backend.EndFrame()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.DrawScene != nil {
		g.DrawScene(screen)
	}
	if backend := g.backend.Get(); backend != nil && backend.Backend != nil {
		backend.Backend.Draw(screen)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if backend := g.backend.Get(); backend != nil && backend.Backend != nil {
		backend.Backend.Layout(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
