package binding

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "bindery"

// FrameStats describes one pipeline tick.
type FrameStats struct {
	ExecuteStats

	Frame    uint64        `json:"frame"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

// Pipeline drives a tree once per frame.
type Pipeline struct {
	tree    *Tree
	root    *Node
	tracer  trace.Tracer
	frame   uint64
	onFrame []func(FrameStats)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTracer sets the tracer used for frame spans. The default resolves
// "bindery" from the global provider.
func WithTracer(tracer trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// OnFrame registers a hook called after every tick.
func OnFrame(fn func(FrameStats)) PipelineOption {
	return func(p *Pipeline) {
		p.onFrame = append(p.onFrame, fn)
	}
}

// NewPipeline creates a pipeline that executes root on every Tick.
func NewPipeline(tree *Tree, root *Node, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{tree: tree, root: root}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(defaultTracerName)
	}
	return p
}

// Root returns the pipeline's root node.
func (p *Pipeline) Root() *Node {
	return p.root
}

// Frames returns the number of completed ticks.
func (p *Pipeline) Frames() uint64 {
	return p.frame
}

// Tick executes one frame. It returns ctx's error without rendering if ctx
// is already done.
func (p *Pipeline) Tick(ctx context.Context) (FrameStats, error) {
	if err := ctx.Err(); err != nil {
		return FrameStats{}, err
	}

	p.frame++
	stats := FrameStats{Frame: p.frame, Start: time.Now()}

	_, span := p.tracer.Start(ctx, "bindery.frame",
		trace.WithAttributes(attribute.Int64("bindery.frame", int64(p.frame))))
	stats.ExecuteStats = p.tree.Execute(p.root)
	stats.Duration = time.Since(stats.Start)

	span.SetAttributes(
		attribute.Int("bindery.visited", stats.Visited),
		attribute.Int("bindery.rendered", stats.Rendered),
		attribute.Int("bindery.failed", stats.Failed),
	)
	if stats.Failed > 0 {
		span.SetStatus(codes.Error, "render failures")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	p.tree.metrics.Frame(stats)
	for _, fn := range p.onFrame {
		fn(stats)
	}
	return stats, nil
}

// Run ticks every interval until ctx is done.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration, before func(dt time.Duration)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := ctx.Err(); err != nil {
				return err
			}
			if before != nil {
				before(now.Sub(last))
			}
			last = now
			if _, err := p.Tick(ctx); err != nil {
				return err
			}
		}
	}
}
