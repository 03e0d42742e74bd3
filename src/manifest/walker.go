package manifest

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"drone-builds/src/classify"
	"drone-builds/src/contracts"
	"drone-builds/src/logger"
	"drone-builds/src/provider"
)

// Mode selects what the walker does at each matching leaf.
type Mode int

const (
	// ModePopulate sets each leaf's tag to its newest mainline commit.
	ModePopulate Mode = iota
	// ModeDeploy emits a deploy instruction for the build of each leaf's tag.
	ModeDeploy
)

// Emitter receives deploy instructions.
type Emitter interface {
	Emit(ctx context.Context, d contracts.DeployInstruction) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, d contracts.DeployInstruction) error

func (f EmitterFunc) Emit(ctx context.Context, d contracts.DeployInstruction) error {
	return f(ctx, d)
}

// Stats counts what one walk did.
type Stats struct {
	Leaves  int // leaves for this platform
	Skipped int // leaves for the other platform
	Updated int // populate: tags set
	Emitted int // deploy: instructions emitted
	Failed  int // leaves whose builds could not be fetched or emitted
}

// Walker visits a document's leaves for one platform.
type Walker struct {
	src      provider.Provider
	mode     Mode
	deployTo string
	emit     Emitter
	log      logger.Logger
	tracer   trace.Tracer
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithTracer opens a span per visited leaf.
func WithTracer(t trace.Tracer) WalkerOption {
	return func(w *Walker) { w.tracer = t }
}

// WithEmitter sets where deploy instructions go.
func WithEmitter(e Emitter) WalkerOption {
	return func(w *Walker) { w.emit = e }
}

// NewPopulateWalker creates a walker that refreshes leaf tags.
func NewPopulateWalker(src provider.Provider, log logger.Logger, opts ...WalkerOption) *Walker {
	return newWalker(src, ModePopulate, "", log, opts)
}

// NewDeployWalker creates a walker that emits deploy instructions for
// environment deployTo.
func NewDeployWalker(src provider.Provider, deployTo string, log logger.Logger, opts ...WalkerOption) *Walker {
	return newWalker(src, ModeDeploy, deployTo, log, opts)
}

func newWalker(src provider.Provider, mode Mode, deployTo string, log logger.Logger, opts []WalkerOption) *Walker {
	w := &Walker{
		src:      src,
		mode:     mode,
		deployTo: deployTo,
		log:      log,
		tracer:   nooptrace.NewTracerProvider().Tracer("manifest"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk visits every leaf depth-first in document order. Errors at a leaf
// are logged and counted; the walk always continues.
func (w *Walker) Walk(ctx context.Context, doc *Document) Stats {
	var stats Stats
	w.walk(ctx, doc.Root, &stats)
	return stats
}

func (w *Walker) walk(ctx context.Context, nodes []*Node, stats *Stats) {
	for _, n := range nodes {
		if !n.IsLeaf() {
			w.walk(ctx, n.Children, stats)
			continue
		}

		if n.Leaf.GitLab != w.src.Platform().Marker() {
			stats.Skipped++
			continue
		}

		stats.Leaves++
		if err := w.visit(ctx, n.Leaf, stats); err != nil {
			stats.Failed++
			w.log.Error("%s: %v", n.Leaf.Repo, provider.WrapError(err))
		}
	}
}

func (w *Walker) visit(ctx context.Context, leaf *Leaf, stats *Stats) error {
	ctx, span := w.tracer.Start(ctx, "manifest.leaf", trace.WithAttributes(
		attribute.String("drone.platform", string(w.src.Platform())),
		attribute.String("drone.repo", leaf.Repo),
	))
	defer span.End()

	err := w.scan(ctx, leaf, stats)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (w *Walker) scan(ctx context.Context, leaf *Leaf, stats *Stats) error {
	builds, err := w.src.ListBuilds(ctx, leaf.Repo)
	if err != nil {
		return err
	}

	for _, b := range builds {
		switch w.mode {
		case ModePopulate:
			if !classify.IsMainlineBuild(b) {
				continue
			}
			w.log.Debug("%s: tag %s -> %s (build %d)", leaf.Repo, leaf.Tag, b.Commit, b.Number)
			leaf.SetTag(b.Commit)
			stats.Updated++
			return nil

		case ModeDeploy:
			if leaf.Tag == "" || b.Commit != leaf.Tag {
				continue
			}
			d := contracts.DeployInstruction{
				Platform:    string(w.src.Platform()),
				Repo:        leaf.Repo,
				Build:       b.Number,
				Environment: w.deployTo,
				Commit:      b.Commit,
			}
			if w.emit != nil {
				if err := w.emit.Emit(ctx, d); err != nil {
					return fmt.Errorf("emitting deploy of build %d: %w", b.Number, err)
				}
			}
			stats.Emitted++
			return nil
		}
	}

	w.log.Debug("%s: no matching build among %d", leaf.Repo, len(builds))
	return nil
}
