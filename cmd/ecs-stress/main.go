package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/plus3/hearth/ecs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Options holds the stress run flags.
type Options struct {
	Duration       time.Duration
	Entities       int
	Fanout         int
	Seed           int64
	ConfigPath     string
	Profile        string
	ProfilePath    string
	GCPauseMetrics bool
}

var profileModes = map[string]func(*profile.Profile){
	"cpu":       profile.CPUProfile,
	"mem":       profile.MemProfileAllocs,
	"block":     profile.BlockProfile,
	"trace":     profile.TraceProfile,
	"goroutine": profile.GoroutineProfile,
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand creates the ecs-stress command.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "ecs-stress",
		Short: "Stress the ECS engine with a churning entity tree",
		Long: `Build a tree of entities under spawner branches and update the engine as fast
as possible for the given duration. Spawners keep emitting short-lived movers,
lifetimes dispose them and a churn system toggles components, so families and
pools see constant traffic. A markdown report is written to stdout.

Example:
  ecs-stress --duration 30s --entities 50000 --fanout 100
  ecs-stress --config engine.yaml --profile cpu --profile-path ./prof`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Profile != "" {
				if _, ok := profileModes[opts.Profile]; !ok {
					return errors.Errorf("invalid profile %q", opts.Profile)
				}
			}
			if opts.Entities < 0 || opts.Fanout <= 0 {
				return errors.New("entities must not be negative and fanout must be positive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().DurationVar(&opts.Duration, "duration", 10*time.Second, "total duration the test should run for")
	cmd.Flags().IntVar(&opts.Entities, "entities", 10000, "initial number of entities to create")
	cmd.Flags().IntVar(&opts.Fanout, "fanout", 100, "entities per spawner branch")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "engine config YAML file")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "profile mode (cpu|mem|block|trace|goroutine)")
	cmd.Flags().StringVar(&opts.ProfilePath, "profile-path", ".", "directory the profile is written to")
	cmd.Flags().BoolVar(&opts.GCPauseMetrics, "gc-pause-metrics", false, "enable detailed GC pause metrics in the report")

	return cmd
}

func runStress(ctx context.Context, opts *Options, out, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := ecs.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := ecs.LoadConfig(opts.ConfigPath)
		if err != nil {
			return errors.Wrapf(err, "config %s", opts.ConfigPath)
		}
		cfg = loaded
	}

	logger := logrus.New()
	logger.SetOutput(logOut)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil && level > logrus.InfoLevel {
		logger.SetLevel(level)
	}
	log := logger.WithField("seed", opts.Seed)

	if mode, ok := profileModes[opts.Profile]; ok {
		defer profile.Start(mode, profile.ProfilePath(opts.ProfilePath), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	log.Info("starting ECS stress test")

	// 1. Setup registry, world and engine
	world := NewWorld(opts.Seed)
	registry := ecs.NewSystemRegistry()
	world.RegisterSystems(registry)
	engine := ecs.NewEngine(registry, ecs.WithConfig(cfg), ecs.WithLogger(logger))
	root := ecs.NewEntity("root")
	engine.Attach(root)

	// 2. Populate the tree with initial entities
	log.WithField("entities", opts.Entities).Info("populating engine")
	world.Populate(root, opts.Entities, opts.Fanout)
	log.WithField("attached", engine.NumEntities()).Info("population complete")

	// 3. Run the simulation loop
	report := &Report{
		Duration:       opts.Duration,
		Entities:       opts.Entities,
		Fanout:         opts.Fanout,
		Seed:           opts.Seed,
		Config:         cfg,
		GCPauseMetrics: opts.GCPauseMetrics,
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.WithField("duration", opts.Duration).Info("running simulation")
	ctx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	startTime := time.Now()
	var totalUpdates int64

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			updateStart := time.Now()
			engine.Update()
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			totalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = totalUpdates
	report.UpdateTime.Finalize()
	report.Engine = engine.Stats()
	if s := ecs.GetSystem[SpawnerSystem](engine); s != nil {
		report.Spawned = s.Spawned
	}
	if s := ecs.GetSystem[LifetimeSystem](engine); s != nil {
		report.Disposed = s.Disposed
	}
	if s := ecs.GetSystem[ChurnSystem](engine); s != nil {
		report.Toggled = s.Toggled
	}
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.WithField("updates", totalUpdates).Info("simulation finished")

	// 4. Generate the report
	fmt.Fprintln(out, "--- Stress Test Report ---")
	if err := report.Generate(out); err != nil {
		return errors.Wrap(err, "failed to generate report")
	}
	fmt.Fprintln(out, "--- End of Report ---")
	return nil
}
