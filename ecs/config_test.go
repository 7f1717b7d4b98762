package ecs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/plus3/hearth/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

func TestParseConfig(t *testing.T) {
	t.Run("fields override defaults", func(t *testing.T) {
		cfg, err := ecs.ParseConfig([]byte("fixed_step: 20ms\nmember_pool_capacity: 16\nlog_level: debug\n"))
		require.NoError(t, err)

		assert.Equal(t, 20*time.Millisecond, cfg.FixedStep)
		assert.Equal(t, 16, cfg.MemberPoolCapacity)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, ecs.DefaultConfig().EntityPoolCapacity, cfg.EntityPoolCapacity)
	})

	t.Run("empty input yields defaults", func(t *testing.T) {
		cfg, err := ecs.ParseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, ecs.DefaultConfig(), cfg)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, err := ecs.ParseConfig([]byte("fixed_stepp: 20ms\n"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		for name, doc := range map[string]string{
			"zero step":     "fixed_step: 0s\n",
			"negative pool": "entity_pool_capacity: -1\n",
			"bad level":     "log_level: loud\n",
		} {
			_, err := ecs.ParseConfig([]byte(doc))
			if !errors.Is(err, ecs.ErrInvalidConfig) {
				t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
			}
		}
	})
}

func TestConfigArchive(t *testing.T) {
	archive, err := txtar.ParseFile(filepath.Join("testdata", "configs.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, archive.Files)

	for _, f := range archive.Files {
		t.Run(f.Name, func(t *testing.T) {
			cfg, err := ecs.ParseConfig(f.Data)
			if strings.HasPrefix(f.Name, "valid/") {
				require.NoError(t, err)
				assert.NoError(t, cfg.Validate())
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fixed_step: 10ms\nfamily_pool_capacity: 0\n"), 0o644))

	cfg, err := ecs.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, cfg.FixedStep)
	assert.Equal(t, 0, cfg.FamilyPoolCapacity)

	_, err = ecs.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEngineUsesConfig(t *testing.T) {
	cfg := ecs.DefaultConfig()
	cfg.FixedStep = 25 * time.Millisecond
	cfg.EntityPoolCapacity = 1
	engine := ecs.NewEngine(nil, ecs.WithConfig(cfg), ecs.WithLogger(quietLogger()))

	assert.Equal(t, 25*time.Millisecond, engine.FixedStep())
	assert.Equal(t, 1, engine.EntityPool().Cap())

	cfg.FixedStep = 0
	engine = ecs.NewEngine(nil, ecs.WithConfig(cfg), ecs.WithLogger(quietLogger()))
	assert.Equal(t, ecs.DefaultConfig().FixedStep, engine.FixedStep(), "a non-positive step falls back to the default")
}
