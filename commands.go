package lumen

// Commands is the handle systems use to change app-level state.
type Commands struct {
	app *App
}

// ChangeState schedules a state change at the end of the current tick.
func (cmd *Commands) ChangeState(newState State) *Commands {
	cmd.app.changeState(newState)
	return cmd
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

func (cmd *Commands) State() State { return cmd.app.state }

func (cmd *Commands) Logger() Logger { return cmd.app.Logger() }
