package lumen

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Profiled stages of a running tick.
const (
	StageCompute   = "compute"
	StageOffscreen = "offscreen"
	StageComposite = "composite"
	StageOverlay   = "overlay"
	StageSubmit    = "submit"
)

var profiledStages = []string{StageCompute, StageOffscreen, StageComposite, StageOverlay, StageSubmit}

// PerfRow is one CSV line: mean stage timings over a window of frames, in
// microseconds.
type PerfRow struct {
	Frame     uint64  `csv:"frame"`
	Frames    int     `csv:"frames"`
	Compute   float64 `csv:"compute_us"`
	Offscreen float64 `csv:"offscreen_us"`
	Composite float64 `csv:"composite_us"`
	Overlay   float64 `csv:"overlay_us"`
	Submit    float64 `csv:"submit_us"`
	Failed    int     `csv:"failed_frames"`
}

// Profiler times the stages of each frame. Timings feed prometheus
// histograms on a private registry and, when a writer is set, a CSV row
// every window of frames.
type Profiler struct {
	times map[string]time.Duration

	registry *prometheus.Registry
	stages   *prometheus.HistogramVec
	pairings prometheus.Gauge
	frames   prometheus.Counter
	failures prometheus.Counter

	out           io.Writer
	every         int
	headerWritten bool
	window        map[string]time.Duration
	windowFrames  int
	windowFailed  int
}

func NewProfiler(out io.Writer, every int) *Profiler {
	if every <= 0 {
		every = 1
	}
	p := &Profiler{
		times:    make(map[string]time.Duration, len(profiledStages)),
		window:   make(map[string]time.Duration, len(profiledStages)),
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lumen_stage_seconds",
			Help:    "Time spent recording each frame stage.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}, []string{"stage"}),
		pairings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumen_pairings",
			Help: "Scene pairings rendered per frame.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_frames_total",
			Help: "Frames submitted.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_frame_failures_total",
			Help: "Frames cut short by a GPU error.",
		}),
		out:   out,
		every: every,
	}
	p.registry.MustRegister(p.stages, p.pairings, p.frames, p.failures)
	return p
}

// Begin returns a function that records the time since Begin under stage.
func (p *Profiler) Begin(stage string) func() {
	start := time.Now()
	return func() { p.Record(stage, time.Since(start)) }
}

func (p *Profiler) Record(stage string, d time.Duration) {
	p.times[stage] += d
	p.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// Time is the time recorded for stage in the current frame.
func (p *Profiler) Time(stage string) time.Duration { return p.times[stage] }

func (p *Profiler) SetPairings(n int) { p.pairings.Set(float64(n)) }

// EndFrame folds the frame into the CSV window and resets the frame timings.
func (p *Profiler) EndFrame(frame uint64, failed bool) error {
	p.frames.Inc()
	if failed {
		p.failures.Inc()
		p.windowFailed++
	}
	for stage, d := range p.times {
		p.window[stage] += d
	}
	p.Reset()
	p.windowFrames++
	if p.windowFrames < p.every {
		return nil
	}
	return p.flush(frame)
}

func (p *Profiler) flush(frame uint64) error {
	n := p.windowFrames
	mean := func(stage string) float64 {
		return float64(p.window[stage].Microseconds()) / float64(n)
	}
	row := PerfRow{
		Frame:     frame,
		Frames:    n,
		Compute:   mean(StageCompute),
		Offscreen: mean(StageOffscreen),
		Composite: mean(StageComposite),
		Overlay:   mean(StageOverlay),
		Submit:    mean(StageSubmit),
		Failed:    p.windowFailed,
	}
	clear(p.window)
	p.windowFrames, p.windowFailed = 0, 0
	if p.out == nil {
		return nil
	}

	records := []PerfRow{row}
	if !p.headerWritten {
		if err := gocsv.Marshal(records, p.out); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		p.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, p.out); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

func (p *Profiler) Reset() {
	clear(p.times)
}

// Registry is the registry the profiler's collectors live on.
func (p *Profiler) Registry() *prometheus.Registry { return p.registry }

// NewMetricsServer serves the profiler's registry on /metrics.
func NewMetricsServer(addr string, p *Profiler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
