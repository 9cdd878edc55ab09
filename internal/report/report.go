package report

import (
	"encoding/json"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/vango-dev/bindery/internal/telemetry"
	"github.com/vango-dev/bindery/pkg/binding"
)

// Report is the JSON summary of one run.
type Report struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	Nodes  int `json:"nodes"`
	Fields int `json:"fields"`

	Frames        int       `json:"frames"`
	IdleFrames    int       `json:"idle_frames"`
	Rendered      int       `json:"rendered"`
	Failed        int       `json:"failed"`
	StaleRecords  int       `json:"stale_records"`
	MaxRendered   int       `json:"max_rendered"`
	FrameDuration Durations `json:"frame_duration"`

	Totals telemetry.Totals `json:"totals"`
}

// Durations summarizes frame durations. Min, Avg and Max cover every frame;
// P95 covers the most recent Window frames.
type Durations struct {
	Min    time.Duration `json:"min_ns"`
	Avg    time.Duration `json:"avg_ns"`
	P95    time.Duration `json:"p95_ns"`
	Max    time.Duration `json:"max_ns"`
	Window int           `json:"p95_window"`
}

// DefaultWindow is how many recent frames a Recorder keeps for P95.
const DefaultWindow = 4096

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithWindow sets how many recent frames P95 is computed over.
func WithWindow(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.durations.window = make([]time.Duration, 0, n)
		}
	}
}

// Recorder accumulates frame statistics. Its Observe method is a
// binding.OnFrame hook.
type Recorder struct {
	mu        sync.Mutex
	started   time.Time
	frames    int
	idle      int
	rendered  int
	failed    int
	stale     int
	maxRender int
	durations durationStats
}

// NewRecorder creates a recorder whose run starts now. Memory stays
// bounded for open-ended runs.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{started: time.Now()}
	r.durations.window = make([]time.Duration, 0, DefaultWindow)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe records one frame.
func (r *Recorder) Observe(stats binding.FrameStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames++
	if stats.Visited == 0 {
		r.idle++
	}
	r.rendered += stats.Rendered
	r.failed += stats.Failed
	r.stale += stats.Stale
	r.maxRender = max(r.maxRender, stats.Rendered)
	r.durations.add(stats.Duration)
}

// Build produces the report. nodes and fields describe the workload;
// totals come from the run's telemetry.
func (r *Recorder) Build(nodes, fields int, totals telemetry.Totals) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &Report{
		Started:       r.started,
		Finished:      time.Now(),
		Nodes:         nodes,
		Fields:        fields,
		Frames:        r.frames,
		IdleFrames:    r.idle,
		Rendered:      r.rendered,
		Failed:        r.failed,
		StaleRecords:  r.stale,
		MaxRendered:   r.maxRender,
		FrameDuration: r.durations.summary(),
		Totals:        totals,
	}
}

// durationStats keeps running totals over every frame and a ring of the
// most recent ones.
type durationStats struct {
	n        int
	sum      time.Duration
	min, max time.Duration
	window   []time.Duration
	next     int
}

func (s *durationStats) add(d time.Duration) {
	if s.n == 0 || d < s.min {
		s.min = d
	}
	s.max = max(s.max, d)
	s.sum += d
	s.n++

	if len(s.window) < cap(s.window) {
		s.window = append(s.window, d)
		return
	}
	s.window[s.next] = d
	s.next = (s.next + 1) % len(s.window)
}

func (s *durationStats) summary() Durations {
	if s.n == 0 {
		return Durations{}
	}
	return Durations{
		Min:    s.min,
		Avg:    s.sum / time.Duration(s.n),
		P95:    p95(s.window),
		Max:    s.max,
		Window: len(s.window),
	}
}

func p95(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := slices.Clone(ds)
	slices.Sort(sorted)
	i := (len(sorted)*95 + 99) / 100
	return sorted[max(i-1, 0)]
}

// Write encodes the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Marshal returns the indented JSON encoding.
func (r *Report) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteFile writes the report to path, or to stdout when path is "-".
func (r *Report) WriteFile(path string) error {
	if path == "-" {
		return r.Write(os.Stdout)
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
