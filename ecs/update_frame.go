package ecs

// UpdateFrame is passed to System.Update for one system invocation.
type UpdateFrame struct {
	// DeltaTime is the elapsed time in seconds: the fixed step, the variable
	// frame time, or the system interval for throttled systems.
	DeltaTime float64
	TimeStep  TimeStep
	Engine    *Engine
	Commands  *Commands
}

func (e *Engine) frame(dt float64, step TimeStep) *UpdateFrame {
	e.updateFrame = UpdateFrame{
		DeltaTime: dt,
		TimeStep:  step,
		Engine:    e,
		Commands:  e.commands,
	}
	return &e.updateFrame
}
