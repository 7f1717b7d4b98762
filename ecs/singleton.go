package ecs

// Singleton provides access to a single component instance held by the
// engine root. Use this for global game state, configuration, or other
// singleton data.
type Singleton[T Component] struct {
	engine *Engine
}

// NewSingleton creates a Singleton accessor for engine. If initializer is
// provided and the root does not hold a T yet, the initializer is added to
// the root.
func NewSingleton[T Component](engine *Engine, initializer ...T) *Singleton[T] {
	s := &Singleton[T]{engine: engine}
	if root := engine.Root(); root != nil && !Has[T](root) && len(initializer) > 0 {
		Add(root, initializer[0])
	}
	return s
}

// Get returns the root's T, or the zero value when there is none.
func (s *Singleton[T]) Get() T {
	var zero T
	root := s.engine.Root()
	if root == nil {
		return zero
	}
	return Get[T](root)
}

// Exists reports whether the root holds a T.
func (s *Singleton[T]) Exists() bool {
	root := s.engine.Root()
	return root != nil && Has[T](root)
}
