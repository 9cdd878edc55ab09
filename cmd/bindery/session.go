package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/bindery/internal/config"
	vberrors "github.com/vango-dev/bindery/internal/errors"
	"github.com/vango-dev/bindery/internal/report"
	"github.com/vango-dev/bindery/internal/telemetry"
	"github.com/vango-dev/bindery/internal/workload"
	"github.com/vango-dev/bindery/pkg/binding"
	"github.com/vango-dev/bindery/pkg/reactive"
)

// session wires one workload run: runtime, tree, telemetry and recorder.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error

	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	rt       *reactive.Runtime
	tree     *binding.Tree
	work     *workload.Workload
	recorder *report.Recorder
	pipeline *binding.Pipeline
}

// loadConfig reads the config file and applies the logging flags. A
// directory is searched for bindery.yaml.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	load := config.LoadFile
	if fi, err := os.Stat(flags.configPath); err == nil && fi.IsDir() {
		load = config.Load
	}
	cfg, err := load(flags.configPath)
	if err != nil {
		return nil, vberrors.FromError(err, "C001")
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}
	return cfg, cfg.Validate()
}

// newSession builds everything a run needs. onFrame hooks run after the
// recorder on every tick.
func newSession(cfg *config.Config, stderr io.Writer, churn int, onFrame ...func(binding.FrameStats)) (*session, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(stderr, level, cfg.Log.File)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		registry: prometheus.NewRegistry(),
		recorder: report.NewRecorder(),
	}
	s.metrics = telemetry.NewMetrics(metricsOptions(cfg.Metrics, s.registry)...)

	rtOpts := []reactive.Option{
		reactive.WithLogger(logger.With("component", "reactive")),
		reactive.WithMetrics(s.metrics),
	}
	if cfg.Runtime.VerifyPassive {
		rtOpts = append(rtOpts, reactive.WithPassiveVerification(cfg.Runtime.StrictPassive))
	}
	s.rt = reactive.New(rtOpts...)
	s.tree = binding.NewTree(s.rt,
		binding.WithMetrics(s.metrics),
		binding.WithLogger(logger.With("component", "binding")))

	s.work = workload.New(s.tree, workload.Options{
		Width:        cfg.Workload.Width,
		Depth:        cfg.Workload.Depth,
		Fields:       cfg.Workload.Fields,
		Lazies:       cfg.Workload.Lazies,
		Conditionals: cfg.Workload.Conditionals,
		Seed:         cfg.Workload.Seed,
		TweenSeconds: float32(cfg.Workload.TweenSeconds),
		ChurnEvery:   churn,
		Logger:       logger.With("component", "workload"),
	})

	pipeOpts := []binding.PipelineOption{
		binding.WithTracer(telemetry.Tracer()),
		binding.OnFrame(s.recorder.Observe),
	}
	for _, fn := range onFrame {
		pipeOpts = append(pipeOpts, binding.OnFrame(fn))
	}
	s.pipeline = binding.NewPipeline(s.tree, s.work.Root(), pipeOpts...)

	logger.Info("session ready",
		"config", cfg.Path(),
		"nodes", s.work.Nodes(),
		"fields", s.work.Fields(),
		"verify_passive", cfg.Runtime.VerifyPassive)
	return s, nil
}

// metricsOptions maps the metrics section of the config onto collector
// options.
func metricsOptions(cfg config.MetricsConfig, reg prometheus.Registerer) []telemetry.MetricsOption {
	opts := []telemetry.MetricsOption{
		telemetry.WithRegistry(reg),
		telemetry.WithNamespace(cfg.Namespace),
		telemetry.WithSubsystem(cfg.Subsystem),
	}
	if len(cfg.Labels) > 0 {
		opts = append(opts, telemetry.WithConstLabels(prometheus.Labels(cfg.Labels)))
	}
	if len(cfg.Buckets) > 0 {
		opts = append(opts, telemetry.WithBuckets(cfg.Buckets))
	}
	return opts
}

// report builds the run report.
func (s *session) report() *report.Report {
	return s.recorder.Build(s.work.Nodes(), s.work.Fields(), s.metrics.Totals())
}

func (s *session) close() error {
	return s.closeLog()
}
