package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/bindery/internal/config"
	vberrors "github.com/vango-dev/bindery/internal/errors"
)

const smallConfig = `workload:
  width: 2
  depth: 2
  fields: 4
  lazies: 2
  conditionals: 1
frames:
  count: 25
  interval: 16ms
log:
  level: error
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionShort(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out.String() != version+"\n" {
		t.Errorf("expected %q, got %q", version+"\n", out.String())
	}
}

func TestRunWritesReport(t *testing.T) {
	cfgPath := writeConfig(t, smallConfig)
	out := filepath.Join(t.TempDir(), "report.json")

	cmd := newRootCmd()
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"run", "--config", cfgPath, "--output", out, "--frames", "30", "--churn", "5"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var rep struct {
		Frames   int `json:"frames"`
		Nodes    int `json:"nodes"`
		Rendered int `json:"rendered"`
		Failed   int `json:"failed"`
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("invalid report: %v", err)
	}
	if rep.Frames != 30 {
		t.Errorf("expected 30 frames, got %d", rep.Frames)
	}
	if rep.Nodes != 7 {
		t.Errorf("expected 7 nodes, got %d", rep.Nodes)
	}
	if rep.Rendered < rep.Nodes {
		t.Errorf("expected at least the initial render of every node, got %d", rep.Rendered)
	}
	if rep.Failed != 0 {
		t.Errorf("expected no failures, got %d", rep.Failed)
	}
}

func TestRunFramesToStdout(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t, smallConfig))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Report.Output = "-"

	var stdout bytes.Buffer
	rep, err := runFrames(context.Background(), cfg, runOptions{}, &stdout, io.Discard)
	if err != nil {
		t.Fatalf("runFrames error: %v", err)
	}
	if rep.Frames != 25 {
		t.Errorf("expected 25 frames, got %d", rep.Frames)
	}
	if !strings.Contains(stdout.String(), `"frames": 25`) {
		t.Errorf("expected JSON report on stdout, got %q", stdout.String())
	}
	if rep.Totals.Frames != 25 {
		t.Errorf("expected telemetry to count 25 frames, got %d", rep.Totals.Frames)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, "workload:\n  conditionals: 99\n")

	cmd := newRootCmd()
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"run", "--config", cfgPath})
	err := cmd.Execute()

	var ve *vberrors.Error
	if !errors.As(err, &ve) || ve.Code != "C002" {
		t.Fatalf("expected C002, got %v", err)
	}
}

func TestLogLevelFlagOverridesConfig(t *testing.T) {
	flags := &globalFlags{
		configPath: writeConfig(t, smallConfig),
		logLevel:   "debug",
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Log.Level)
	}

	flags.logLevel = "chatty"
	if _, err := loadConfig(flags); err == nil {
		t.Error("expected invalid level to be rejected")
	}
}

func TestNewLoggerFansOut(t *testing.T) {
	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "bindery.log")

	logger, closeLog, err := newLogger(&stderr, 0, file)
	if err != nil {
		t.Fatalf("newLogger error: %v", err)
	}
	logger.Info("hello", "frames", 3)
	logger.Debug("hidden")
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(stderr.String(), "msg=hello") {
		t.Errorf("expected text record on stderr, got %q", stderr.String())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q", data)
	}
	if record["msg"] != "hello" || record["frames"] != float64(3) {
		t.Errorf("unexpected record %v", record)
	}
}

func TestServeInspectorStopsWithContext(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t, smallConfig))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Inspect.Addr = "127.0.0.1:0"
	cfg.Frames.Interval = config.Duration(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	rep, err := serveInspector(ctx, cfg, 0, io.Discard)
	if err != nil {
		t.Fatalf("serveInspector error: %v", err)
	}
	if rep.Frames == 0 {
		t.Error("expected frames to run while serving")
	}
}

func TestCodesListsAndExplains(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"codes"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	for _, code := range []string{"R001", "C002", "X002"} {
		if !strings.Contains(out.String(), code) {
			t.Errorf("expected %s in listing, got %q", code, out.String())
		}
	}

	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"codes", "x002"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "X002 (cli): Report write failed") || !strings.Contains(out.String(), "Hint:") {
		t.Errorf("unexpected explanation %q", out.String())
	}

	cmd = newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"codes", "Q123"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected unknown code to fail")
	}
}

func TestPrintError(t *testing.T) {
	coded := vberrors.New("X002").WithDetail("path out.json")

	var buf bytes.Buffer
	printError(&buf, coded, false)
	if got := buf.String(); got != coded.FormatCompact()+"\n" {
		t.Errorf("redirected output = %q", got)
	}

	buf.Reset()
	printError(&buf, coded, true)
	if !strings.Contains(buf.String(), "Hint:") {
		t.Errorf("terminal output should carry the hint, got %q", buf.String())
	}

	buf.Reset()
	printError(&buf, errors.New("boom"), false)
	if buf.String() != "Error: boom\n" {
		t.Errorf("plain output = %q", buf.String())
	}
}

func TestLoadConfigFromDirectory(t *testing.T) {
	path := writeConfig(t, smallConfig)
	cfg, err := loadConfig(&globalFlags{configPath: filepath.Dir(path)})
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if cfg.Frames.Count != 25 {
		t.Errorf("expected the directory's config, got %d frames", cfg.Frames.Count)
	}
}

func TestSessionUsesMetricsConfig(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t, smallConfig+`metrics:
  namespace: perf
  subsystem: ui
  labels:
    host: ci
  buckets: [0.001, 0.01]
`))
	if err != nil {
		t.Fatal(err)
	}
	s, err := newSession(cfg, io.Discard, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s.close()
	if _, err := s.pipeline.Tick(t.Context()); err != nil {
		t.Fatal(err)
	}

	families, err := s.registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "perf_ui_") {
			t.Errorf("metric %q missing configured prefix", mf.GetName())
		}
		if mf.GetName() != "perf_ui_frame_duration_seconds" {
			continue
		}
		found = true
		m := mf.GetMetric()[0]
		if len(m.GetHistogram().GetBucket()) != 2 {
			t.Errorf("expected 2 configured buckets, got %d", len(m.GetHistogram().GetBucket()))
		}
		if len(m.GetLabel()) != 1 || m.GetLabel()[0].GetValue() != "ci" {
			t.Errorf("expected host=ci label, got %v", m.GetLabel())
		}
	}
	if !found {
		t.Error("frame duration histogram not registered")
	}
}

func TestRunReportWriteFailure(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t, smallConfig))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Report.Output = filepath.Join(t.TempDir(), "missing", "report.json")

	_, err = runFrames(context.Background(), cfg, runOptions{}, io.Discard, io.Discard)
	var ve *vberrors.Error
	if !errors.As(err, &ve) || ve.Code != "X002" {
		t.Fatalf("expected X002, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the filesystem error to be wrapped, got %v", err)
	}
}

func TestRunZeroDepthWorkload(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t, "workload:\n  depth: 0\nframes:\n  count: 3\nlog:\n  level: error\n"))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := runFrames(context.Background(), cfg, runOptions{}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("runFrames error: %v", err)
	}
	if rep.Nodes != 1 {
		t.Errorf("expected a lone root, got %d nodes", rep.Nodes)
	}
}
