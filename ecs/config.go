package ecs

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the engine tunables. Durations accept Go duration strings
// such as "16ms" in YAML.
type Config struct {
	// FixedStep is the simulated time advanced by one fixed update pass.
	FixedStep time.Duration `yaml:"fixed_step"`
	// EntityPoolCapacity bounds the disposed entities kept for reuse; zero is unbounded.
	EntityPoolCapacity int `yaml:"entity_pool_capacity"`
	// FamilyPoolCapacity bounds the disposed families kept per member type.
	FamilyPoolCapacity int `yaml:"family_pool_capacity"`
	// MemberPoolCapacity bounds the retired member records kept per family.
	MemberPoolCapacity int `yaml:"member_pool_capacity"`
	// LogLevel is a logrus level name used by the default logger.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a 60 Hz fixed step with bounded pools.
func DefaultConfig() Config {
	return Config{
		FixedStep:          time.Second / 60,
		EntityPoolCapacity: 1024,
		FamilyPoolCapacity: 4,
		MemberPoolCapacity: 1024,
		LogLevel:           "warn",
	}
}

// Validate checks the config for out-of-range values.
func (c Config) Validate() error {
	if c.FixedStep <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "fixed_step must be positive, got %s", c.FixedStep)
	}
	if c.EntityPoolCapacity < 0 || c.FamilyPoolCapacity < 0 || c.MemberPoolCapacity < 0 {
		return errors.Wrap(ErrInvalidConfig, "pool capacities must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log_level: %v", err)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config file")
	}
	return ParseConfig(data)
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
