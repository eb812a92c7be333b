package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/config"
	"github.com/gekko3d/lumen/fx/core"
)

func init() {
	// glfw and the surface must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: %v\n", err)
		os.Exit(1)
	}
	log := lumen.NewDefaultLogger("lumen", cfg.Debug.Enabled || *debug)

	if err := run(cfg, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *lumen.DefaultLogger) error {
	ease, err := core.ParseEase(cfg.Transition.Ease)
	if err != nil {
		return err
	}
	labelEase, err := core.ParseEase(cfg.Transition.LabelEase)
	if err != nil {
		return err
	}

	profiler := lumen.NewProfiler(nil, cfg.Debug.PerfEvery)
	if cfg.Debug.PerfCSV != "" {
		perf, err := os.Create(cfg.Debug.PerfCSV)
		if err != nil {
			return fmt.Errorf("creating perf csv: %w", err)
		}
		defer perf.Close()
		profiler = lumen.NewProfiler(perf, cfg.Debug.PerfEvery)
		snapshot, err := cfg.WriteSnapshot(filepath.Dir(cfg.Debug.PerfCSV))
		if err != nil {
			return fmt.Errorf("saving config snapshot: %w", err)
		}
		log.Infof("perf log %s, config snapshot %s", cfg.Debug.PerfCSV, snapshot)
	}

	if cfg.Debug.MetricsAddr != "" {
		srv := lumen.NewMetricsServer(cfg.Debug.MetricsAddr, profiler)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		log.Infof("serving metrics on %s", cfg.Debug.MetricsAddr)
	}

	presets := lumen.Presets(cfg.Render.SphereSubdivisions)

	app := lumen.NewAppBuilder().
		UseStates(lumen.StateLoading, lumen.StateExit).
		UseModule(
			lumen.LoggingModule{Logger: log},
			lumen.TimeModule{},
			lumen.ViewportModule{
				Width:    float32(cfg.Window.Width),
				Height:   float32(cfg.Window.Height),
				MaxRatio: cfg.Window.MaxPixelRatio,
			},
			lumen.InputModule{},
			lumen.PlatformWindowModule{
				Width:         cfg.Window.Width,
				Height:        cfg.Window.Height,
				Title:         cfg.Window.Title,
				VSync:         cfg.Window.VSync,
				CPUSimulation: cfg.Render.CPUSimulation,
			},
			lumen.AssetServerModule{
				Enqueue: func(server *lumen.AssetServer) error {
					return lumen.EnqueuePresets(server, presets)
				},
			},
			lumen.ExperienceModule{
				Presets:            presets,
				Seed:               cfg.Render.Seed,
				TransitionDuration: cfg.Derived.TransitionDuration,
				TransitionEase:     ease,
				LabelFade:          cfg.Derived.LabelFade,
				LabelEase:          labelEase,
				LabelFontSize:      cfg.Render.LabelFontSize,
				Profiler:           profiler,
			},
		).
		Build()

	app.Run()
	return nil
}
