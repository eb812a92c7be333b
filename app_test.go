package lumen

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_changeState(t *testing.T) {
	app := &App{
		stateful:     true,
		initialState: 1,
		state:        1,
		finalState:   2,
	}

	app.changeState(2)
	if app.nextState != State(2) {
		t.Errorf("The nextState should be set correctly.")
	}
	if !app.stateTransitioning {
		t.Errorf("The stateTransitioning flag should be true.")
	}

	app.executeChangeState(2)
	if app.state != State(2) {
		t.Errorf("The app state should change correctly.")
	}
}

func TestApp_changeState_FinalStateWins(t *testing.T) {
	app := &App{stateful: true, initialState: StateLoading, finalState: StateExit}

	app.changeState(StateExit)
	app.changeState(StateRunning)

	assert.Equal(t, StateExit, app.nextState)
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	got, ok := Resource[MockResource2](app)
	require.True(t, ok)
	assert.Equal(t, "Resource2", got.name)
}

func TestApp_addResources_RejectsValues(t *testing.T) {
	app := &App{resources: make(map[reflect.Type]any)}
	assert.Panics(t, func() { app.addResources(MockResource1{}) })
}

func TestApp_SystemsReceiveResources(t *testing.T) {
	res := NewMockResource1("a")
	var seen *MockResource1
	var cmdState State = -1

	app := NewAppBuilder().Build()
	app.addResources(res)
	app.UseSystem(System(func(r *MockResource1, cmd *Commands) {
		seen = r
		cmdState = cmd.State()
	}))

	app.start()
	app.step()

	assert.Same(t, res, seen)
	assert.Equal(t, State(0), cmdState)
	assert.Equal(t, uint64(1), app.Ticks())
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(*MockResource2) {}))
	app.start()
	assert.Panics(t, func() { app.step() })
}

func TestApp_StateLifecycle(t *testing.T) {
	var calls []string
	record := func(s string) func() { return func() { calls = append(calls, s) } }

	app := NewAppBuilder().UseStates(StateLoading, StateExit).Build()
	app.UseSystem(System(record("enter loading")).InState(OnEnter(StateLoading)))
	app.UseSystem(System(func(cmd *Commands) {
		calls = append(calls, "loading")
		cmd.ChangeState(StateRunning)
	}).InState(OnExecute(StateLoading)))
	app.UseSystem(System(record("exit loading")).InState(OnExit(StateLoading)))
	app.UseSystem(System(record("enter running")).InStage(Prelude).InState(OnEnter(StateRunning)))
	app.UseSystem(System(func(cmd *Commands) {
		calls = append(calls, "running")
		cmd.ChangeState(StateExit)
	}).InStage(Finale).InState(OnExecute(StateRunning)))
	app.UseSystem(System(record("enter exit")).InState(OnEnter(StateExit)))
	app.UseSystem(System(record("exit exit")).InState(OnExit(StateExit)))
	app.UseSystem(System(record("always")).InStage(Prelude).RunAlways())

	app.Run()

	assert.Equal(t, []string{
		"enter loading",
		"always", "loading",
		"exit loading", "enter running",
		"always", "running",
		"enter exit", "exit exit",
	}, calls)
	assert.Equal(t, StateExit, app.State())
	assert.Equal(t, uint64(2), app.Ticks())
}

func TestApp_UseStage(t *testing.T) {
	app := NewAppBuilder().Build()
	custom := Stage{Name: "Custom", UpdateType: DynamicUpdate}
	app.UseStage(custom, AfterStage(Update))

	var order []string
	app.UseSystem(System(func() { order = append(order, "custom") }).InStage(custom))
	app.UseSystem(System(func() { order = append(order, "post") }).InStage(PostUpdate))
	app.UseSystem(System(func() { order = append(order, "update") }))
	app.step()

	assert.Equal(t, []string{"update", "custom", "post"}, order)
	assert.Panics(t, func() { app.UseStage(custom, BeforeStage(Stage{Name: "Missing"})) })
}

func TestApp_StatefulSystemInStatelessAppPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	assert.Panics(t, func() {
		app.UseSystem(System(func() {}).InState(OnExecute(StateRunning)))
	})
}
