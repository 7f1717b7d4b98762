package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

// FrameHistory is a ring of frame times in milliseconds.
type FrameHistory struct {
	samples []float32
	next    int
	filled  int
}

func NewFrameHistory(size int) *FrameHistory {
	return &FrameHistory{samples: make([]float32, max(size, 1))}
}

func (h *FrameHistory) Push(frame time.Duration) {
	h.samples[h.next] = float32(frame.Seconds() * 1000.0)
	h.next = (h.next + 1) % len(h.samples)
	h.filled = min(h.filled+1, len(h.samples))
}

// Average returns the mean of the recorded samples, or 0 before the first.
func (h *FrameHistory) Average() float32 {
	if h.filled == 0 {
		return 0
	}
	var total float32
	for _, ft := range h.Samples() {
		total += ft
	}
	return total / float32(h.filled)
}

// Samples returns the recorded samples, oldest first.
func (h *FrameHistory) Samples() []float32 {
	out := make([]float32, 0, h.filled)
	start := (h.next - h.filled + len(h.samples)) % len(h.samples)
	for i := 0; i < h.filled; i++ {
		out = append(out, h.samples[(start+i)%len(h.samples)])
	}
	return out
}

func NewPerformanceStatsComponent(historyFrames int) *PerformanceStatsComponent {
	return &PerformanceStatsComponent{
		history: NewFrameHistory(historyFrames),
	}
}

func (ps *PerformanceStatsComponent) Render(engine *ecs.Engine) {
	if !imgui.BeginV("Performance Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ps.history.Push(engine.DeltaVariableTime())
	stats := engine.Stats()

	imgui.Text(fmt.Sprintf("Entities: %d (%d pooled)", stats.Entities, stats.PooledEntities))
	imgui.Text(fmt.Sprintf("Families: %d (%d pending, %d pooled)", stats.Families, stats.PendingFamilies, stats.PooledFamilies))
	imgui.Text(fmt.Sprintf("Systems: %d (%d pending)", stats.Systems, stats.PendingSystems))
	imgui.Text(fmt.Sprintf("Frames: %d, fixed steps: %d", stats.Frames, stats.FixedSteps))
	imgui.Text(fmt.Sprintf("Fixed lag: %v", engine.FixedLag()))

	if avgFrameTime := ps.history.Average(); avgFrameTime > 0 {
		imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avgFrameTime, 1000.0/avgFrameTime))
	}

	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	if samples := ps.history.Samples(); len(samples) > 0 {
		imgui.PlotLinesFloatPtr("##frametime", &samples[0], int32(len(samples)))
	}

	if imgui.TreeNodeStr("System Details") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSizingFixedFit
		if imgui.BeginTableV("SystemStatsTable", 6, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("System")
			imgui.TableSetupColumn("Priority")
			imgui.TableSetupColumn("Step")
			imgui.TableSetupColumn("Runs")
			imgui.TableSetupColumn("Avg (ms)")
			imgui.TableSetupColumn("Max (ms)")
			imgui.TableHeadersRow()

			for _, sys := range stats.SystemStats {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(sys.Name)
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%d", sys.Priority))
				imgui.TableNextColumn()
				imgui.Text(sys.TimeStep.String())
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%d", sys.ExecutionCount))
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%.3f", milliseconds(sys.AvgDuration)))
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%.3f", milliseconds(sys.MaxDuration)))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	imgui.End()
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
