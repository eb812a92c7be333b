package lumen

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/lumen/fx/gpu/webgpu"
)

// WindowState is the shared GLFW window.
type WindowState struct {
	windowGlfw *glfw.Window
	Title      string
}

var glfwKeys = [keyCount]glfw.Key{
	Key1:      glfw.Key1,
	Key2:      glfw.Key2,
	Key3:      glfw.Key3,
	Key4:      glfw.Key4,
	Key5:      glfw.Key5,
	Key6:      glfw.Key6,
	Key7:      glfw.Key7,
	Key8:      glfw.Key8,
	Key9:      glfw.Key9,
	KeyLeft:   glfw.KeyLeft,
	KeyRight:  glfw.KeyRight,
	KeyEscape: glfw.KeyEscape,
}

// PlatformWindowModule opens a resizable GLFW window, wraps it in a WebGPU
// surface and installs the device through GpuModule. Every tick it polls
// events into Input and the drawable size into Viewport. It needs
// InputModule and ViewportModule installed first.
type PlatformWindowModule struct {
	Width         int
	Height        int
	Title         string
	VSync         bool
	CPUSimulation bool
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	if m.Width <= 0 {
		m.Width = 1280
	}
	if m.Height <= 0 {
		m.Height = 720
	}
	if m.Title == "" {
		m.Title = "lumen"
	}

	ws := createWindowState(m.Width, m.Height, m.Title)
	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(ws.windowGlfw))

	present := wgpu.PresentModeFifo
	if !m.VSync {
		present = wgpu.PresentModeMailbox
	}
	fbw, fbh := ws.windowGlfw.GetFramebufferSize()
	dev, err := webgpu.Open(instance, surface, uint32(fbw), uint32(fbh), webgpu.Options{
		CPUSimulation: m.CPUSimulation,
		PresentMode:   present,
	})
	if err != nil {
		panic(fmt.Sprintf("open gpu device: %v", err))
	}
	cmd.AddResources(ws)

	GpuModule{
		Name:   "webgpu",
		Device: dev,
		Release: func() {
			dev.Release()
			surface.Release()
			instance.Release()
			ws.windowGlfw.Destroy()
			glfw.Terminate()
		},
	}.Install(app, cmd)

	app.UseSystem(
		System(pollWindow).
			InStage(Prelude).
			RunAlways(),
	)
	pollWindow(ws, mustResource[Input](app), mustResource[Viewport](app))
}

func mustResource[T any](app *App) *T {
	r, ok := Resource[T](app)
	if !ok {
		var zero T
		panic(fmt.Sprintf("resource %T is not installed", zero))
	}
	return r
}

func createWindowState(windowWidth int, windowHeight int, windowTitle string) *WindowState {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // no OpenGL context, wgpu drives the surface
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		panic(err)
	}
	return &WindowState{windowGlfw: win, Title: windowTitle}
}

func pollWindow(ws *WindowState, in *Input, vp *Viewport) {
	glfw.PollEvents()
	win := ws.windowGlfw

	for key, gk := range glfwKeys {
		in.SetKey(key, win.GetKey(gk) != glfw.Release)
	}
	in.CloseRequested = win.ShouldClose()

	w, h := win.GetSize()
	in.WindowWidth, in.WindowHeight = w, h
	in.CursorX, in.CursorY = win.GetCursorPos()
	in.CursorInside = in.CursorX >= 0 && in.CursorY >= 0 && in.CursorX < float64(w) && in.CursorY < float64(h)

	if w <= 0 || h <= 0 {
		// minimized; keep the last size
		return
	}
	fbw, _ := win.GetFramebufferSize()
	vp.Set(float32(w), float32(h), float32(fbw)/float32(w))
}
