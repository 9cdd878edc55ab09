package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/bindery/internal/config"
	"github.com/vango-dev/bindery/internal/inspect"
	"github.com/vango-dev/bindery/internal/report"
	"github.com/vango-dev/bindery/pkg/binding"
	"golang.org/x/sync/errgroup"
)

func inspectCmd(flags *globalFlags) *cobra.Command {
	var (
		addr  string
		churn int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run the workload and serve live frame statistics",
		Long: `Run the workload in real time and serve an inspector until
interrupted.

Routes:
  GET /healthz        liveness and frame count
  GET /frames/latest  most recent frame statistics
  GET /metrics        Prometheus metrics
  GET /ws/frames      websocket stream of frame statistics

Examples:
  bindery inspect
  bindery inspect --addr=0.0.0.0:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Inspect.Addr = addr
			}

			info("Inspector on http://%s", cfg.Inspect.Addr)
			rep, err := serveInspector(cmd.Context(), cfg, churn, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			success("Stopped after %d frames", rep.Frames)
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().IntVar(&churn, "churn", 0, "Recycle a leaf through the node pool every n frames")

	return cmd
}

// serveInspector runs the frame loop, the frame consumer and the HTTP
// server until ctx is done or one of them fails.
func serveInspector(ctx context.Context, cfg *config.Config, churn int, stderr io.Writer) (*report.Report, error) {
	var srv *inspect.Server
	s, err := newSession(cfg, stderr, churn, func(stats binding.FrameStats) {
		srv.Publish(stats)
	})
	if err != nil {
		return nil, err
	}
	defer s.close()

	srv = inspect.New(inspect.Config{
		Addr:     cfg.Inspect.Addr,
		Gatherer: s.registry,
		Logger:   s.logger.With("component", "inspect"),
	})

	interval := time.Duration(cfg.Frames.Interval)
	if interval <= 0 {
		interval = config.DefaultInterval
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		err := s.pipeline.Run(gctx, interval, s.work.Step)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	err = g.Wait()
	rep := s.report()
	s.logger.Info("inspector stopped",
		"frames", rep.Frames,
		"rendered", rep.Rendered,
		"dropped", srv.Dropped())
	return rep, err
}
