package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plus3/hearth/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ecs-stress", cmd.Use)

	for name, def := range map[string]string{
		"duration":         "10s",
		"entities":         "10000",
		"fanout":           "100",
		"seed":             "1",
		"profile":          "",
		"profile-path":     ".",
		"gc-pause-metrics": "false",
	} {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Errorf("missing flag %s", name)
			continue
		}
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestRootCommandRejectsBadFlags(t *testing.T) {
	for name, args := range map[string][]string{
		"profile": {"--profile", "heap"},
		"fanout":  {"--fanout", "0"},
		"args":    {"extra"},
	} {
		cmd := NewRootCommand()
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		if err := cmd.Execute(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestRunStress(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("fixed_step: 10ms\nlog_level: error\n"), 0o644))

	var out, logs bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--duration", "50ms", "--entities", "30", "--fanout", "10", "--config", configPath})
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	require.NoError(t, cmd.Execute())

	report := out.String()
	assert.Contains(t, report, "# ECS Stress Test Report")
	assert.Contains(t, report, "**Initial Entities:** 30 (10 per branch)")
	assert.Contains(t, report, "**Fixed Step:** 10ms")
	for _, system := range []string{"MovementSystem", "LifetimeSystem", "SpawnerSystem", "ChurnSystem"} {
		assert.Contains(t, report, "| "+system+" |")
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(report), "--- End of Report ---"))
}

func TestRunStressMissingConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--duration", "1ms", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "missing.yaml")
}

func TestReportGenerate(t *testing.T) {
	report := &Report{
		Duration: time.Second,
		Entities: 10,
		Fanout:   5,
		Seed:     42,
		Config:   ecs.DefaultConfig(),
		UpdateTime: DurationStats{
			Samples: []time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond},
		},
		Engine: &ecs.Stats{
			Entities: 12,
			Frames:   3,
			SystemStats: []ecs.SystemStats{
				{Name: "MovementSystem", TimeStep: ecs.TimeStepFixed, ExecutionCount: 9},
			},
		},
		Spawned:        8,
		GCPauseMetrics: true,
	}
	report.UpdateTime.Finalize()

	assert.Equal(t, time.Millisecond, report.UpdateTime.Min)
	assert.Equal(t, 3*time.Millisecond, report.UpdateTime.Max)
	assert.Equal(t, 2*time.Millisecond, report.UpdateTime.Avg)
	assert.Equal(t, 3*time.Millisecond, report.UpdateTime.P99)

	var buf bytes.Buffer
	require.NoError(t, report.Generate(&buf))
	out := buf.String()
	assert.Contains(t, out, "**Seed:** 42")
	assert.Contains(t, out, "**Avg:** 2ms")
	assert.Contains(t, out, "| MovementSystem | fixed | 0 | 9 | 0s | 0s |")
	assert.Contains(t, out, "**Spawned:** 8")
	assert.Contains(t, out, "## GC Pause Durations")
}

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(100-i) * time.Millisecond
	}
	assert.Equal(t, 99*time.Millisecond, percentile(samples, 0.99))
	assert.Equal(t, 50*time.Millisecond, percentile(samples, 0.5))
	assert.Equal(t, time.Millisecond, percentile(samples, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 0.99))
	assert.Equal(t, 100*time.Millisecond, samples[0], "the input is not reordered")
}
