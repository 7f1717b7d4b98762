package ecs

import "github.com/pkg/errors"

var (
	// ErrSystemNotRegistered is returned when no factory exists for a system type.
	ErrSystemNotRegistered = errors.New("ecs: system type not registered")
	// ErrNilSystem is returned when a factory produced no system.
	ErrNilSystem = errors.New("ecs: system factory returned nil")
	// ErrShapeMismatch is logged when a family is requested with a shape other
	// than the one its member type is attached with.
	ErrShapeMismatch = errors.New("ecs: member type declared with another shape")
	// ErrInvalidConfig is returned by ParseConfig for out-of-range values.
	ErrInvalidConfig = errors.New("ecs: invalid config")
)
