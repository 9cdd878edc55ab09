package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/bindery/internal/config"
	vberrors "github.com/vango-dev/bindery/internal/errors"
	"github.com/vango-dev/bindery/internal/report"
	"github.com/vango-dev/bindery/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type runOptions struct {
	churn    int
	realtime bool
}

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		frames   int
		interval time.Duration
		output   string
		bucket   string
		prefix   string
		opts     runOptions
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a fixed number of frames and report",
		Long: `Build the workload described by bindery.yaml, execute it for a
fixed number of frames and write a JSON report.

Frames run back to back using simulated time unless --realtime is set.
When a bucket is configured the report is also uploaded to S3, using
credentials from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.

Examples:
  bindery run
  bindery run --frames=1000 --output=report.json
  bindery run --output=- --churn=10
  bindery run --s3-bucket=perf-reports --s3-prefix=nightly/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if frames > 0 {
				cfg.Frames.Count = frames
			}
			if interval > 0 {
				cfg.Frames.Interval = config.Duration(interval)
			}
			if output != "" {
				cfg.Report.Output = output
			}
			if bucket != "" {
				cfg.Report.S3.Bucket = bucket
			}
			if prefix != "" {
				cfg.Report.S3.Prefix = prefix
			}

			_, err = runFrames(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 0, "Number of frames (default from config)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Frame interval (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Report file, or - for stdout")
	cmd.Flags().StringVar(&bucket, "s3-bucket", "", "Upload the report to this S3 bucket")
	cmd.Flags().StringVar(&prefix, "s3-prefix", "", "Key prefix for uploaded reports")
	cmd.Flags().IntVar(&opts.churn, "churn", 0, "Recycle a leaf through the node pool every n frames")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "Wait for the frame interval between frames")

	return cmd
}

// runFrames executes cfg.Frames.Count frames and publishes the report.
func runFrames(ctx context.Context, cfg *config.Config, opts runOptions, stdout, stderr io.Writer) (rep *report.Report, err error) {
	s, err := newSession(cfg, stderr, opts.churn)
	if err != nil {
		return nil, err
	}
	defer s.close()

	ctx, span := telemetry.StartSpan(ctx, "bindery.run",
		attribute.Int("bindery.frames", cfg.Frames.Count),
		attribute.Int("bindery.nodes", s.work.Nodes()))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.drive(ctx, cfg.Frames.Count, time.Duration(cfg.Frames.Interval), opts.realtime); err != nil {
		return nil, err
	}

	rep = s.report()
	if err := publish(ctx, rep, cfg.Report, stdout, s.logger); err != nil {
		return rep, err
	}

	if cfg.Report.Output != "-" {
		success("Executed %d frames over %d nodes", rep.Frames, rep.Nodes)
		info("Rendered:      %d (%d failed, max %d per frame)", rep.Rendered, rep.Failed, rep.MaxRendered)
		info("Idle frames:   %d", rep.IdleFrames)
		info("Notifications: %d", rep.Totals.Notifications)
		info("Frame p95:     %s", rep.FrameDuration.P95)
		if rep.Failed > 0 {
			warn("%d renders failed; see the log for details", rep.Failed)
		}
	}
	return rep, nil
}

// drive steps the workload and ticks the pipeline n times.
func (s *session) drive(ctx context.Context, n int, dt time.Duration, realtime bool) error {
	var ticker *time.Ticker
	if realtime && dt > 0 {
		ticker = time.NewTicker(dt)
		defer ticker.Stop()
	}

	for range n {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		s.work.Step(dt)
		if _, err := s.pipeline.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// publish writes the report where cfg says.
func publish(ctx context.Context, rep *report.Report, cfg config.ReportConfig, stdout io.Writer, logger *slog.Logger) error {
	switch cfg.Output {
	case "":
	case "-":
		if err := rep.Write(stdout); err != nil {
			return vberrors.FromError(err, "X002")
		}
	default:
		if err := rep.WriteFile(cfg.Output); err != nil {
			return vberrors.FromError(err, "X002").WithDetail("path " + cfg.Output)
		}
		logger.Info("report written", "path", cfg.Output)
	}

	if cfg.S3.Bucket == "" {
		return nil
	}
	client, err := report.NewS3Client(ctx, report.S3Options{
		Region:   cfg.S3.Region,
		Endpoint: cfg.S3.Endpoint,
	})
	if err != nil {
		return err
	}
	key, err := report.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix).Upload(ctx, rep)
	if err != nil {
		return err
	}
	logger.Info("report uploaded", "bucket", cfg.S3.Bucket, "key", key)
	return nil
}
