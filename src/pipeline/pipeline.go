// Package pipeline runs the selected action against every configured Drone
// server. It is shared by the command line and the MCP server.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"drone-builds/src/broker"
	"drone-builds/src/config"
	"drone-builds/src/contracts"
	"drone-builds/src/drone"
	"drone-builds/src/logger"
	"drone-builds/src/manifest"
	"drone-builds/src/provider"
	"drone-builds/src/report"
	"drone-builds/src/telemetry"
)

// Mode selects where deploy instructions go.
type Mode int

const (
	// LocalMode prints deploy instructions only.
	LocalMode Mode = iota
	// PublishMode also publishes them to Redpanda.
	PublishMode
)

func (m Mode) String() string {
	if m == PublishMode {
		return "publish"
	}
	return "local"
}

// DetectMode returns PublishMode when brokers are configured.
func DetectMode(cfg *config.Config) Mode {
	if len(cfg.RedpandaBrokers) > 0 {
		return PublishMode
	}
	return LocalMode
}

// ProviderFactory builds the provider for one target.
type ProviderFactory func(t config.Target, cfg *config.Config) provider.Provider

// DroneProvider is the default ProviderFactory.
func DroneProvider(t config.Target, cfg *config.Config) provider.Provider {
	return drone.NewProvider(t.Platform, drone.NewClient(t.ServerURL, t.Token, cfg.HTTPTimeout))
}

// Pipeline dispatches one run.
type Pipeline struct {
	cfg         *config.Config
	log         logger.Logger
	out         io.Writer
	diffOut     io.Writer
	tel         *telemetry.Telemetry
	newProvider ProviderFactory
	broker      broker.Broker
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sets where results and populate diffs are written.
func WithOutput(out, diffOut io.Writer) Option {
	return func(p *Pipeline) {
		p.out = out
		p.diffOut = diffOut
	}
}

// WithTelemetry instruments providers and walks.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(p *Pipeline) { p.tel = t }
}

// WithProviderFactory replaces the Drone provider.
func WithProviderFactory(f ProviderFactory) Option {
	return func(p *Pipeline) { p.newProvider = f }
}

// WithBroker publishes deploy instructions to b instead of connecting to
// the configured Redpanda brokers.
func WithBroker(b broker.Broker) Option {
	return func(p *Pipeline) { p.broker = b }
}

// New creates a pipeline for cfg.
func New(cfg *config.Config, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		log:         log,
		out:         os.Stdout,
		diffOut:     os.Stderr,
		tel:         telemetry.Noop(),
		newProvider: DroneProvider,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs the configured action. Only configuration and manifest
// errors are returned; failures talking to a Drone server are logged.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, notice := range p.cfg.Notices {
		p.log.Info("%s", notice)
	}

	if p.cfg.UsesManifest() {
		return p.runManifest(ctx)
	}
	p.runReports(ctx)
	return nil
}

func (p *Pipeline) provider(t config.Target) (provider.Provider, error) {
	return telemetry.Instrument(p.newProvider(t, p.cfg), p.tel)
}

func (p *Pipeline) startPlatform(ctx context.Context, t config.Target) (context.Context, trace.Span) {
	return p.tel.Tracer.Start(ctx, "drone.platform", trace.WithAttributes(
		attribute.String("drone.platform", string(t.Platform)),
		attribute.String("drone.action", string(p.cfg.Action)),
	))
}

func (p *Pipeline) runReports(ctx context.Context) {
	opts := report.OptionsFrom(p.cfg)

	for _, t := range p.cfg.Targets {
		src, err := p.provider(t)
		if err != nil {
			p.log.Error("%s: %v", t.Platform, err)
			continue
		}

		ctx, span := p.startPlatform(ctx, t)
		if err := report.NewRunner(src, opts).Run(ctx, p.out); err != nil {
			span.RecordError(err)
			p.log.Error("%v", provider.WrapError(err))
		}
		span.End()
	}
}

func (p *Pipeline) runManifest(ctx context.Context) error {
	if len(p.cfg.Targets) == 0 {
		return nil
	}

	doc, err := manifest.Load(p.cfg.ManifestPath)
	if err != nil {
		return err
	}

	var before []byte
	if p.cfg.Action == config.ActionPopulate && p.cfg.ShowDiff {
		if before, err = doc.Encode(); err != nil {
			return err
		}
	}

	emitter, closeEmitter, err := p.emitter()
	if err != nil {
		return err
	}
	defer closeEmitter()

	for _, t := range p.cfg.Targets {
		src, err := p.provider(t)
		if err != nil {
			p.log.Error("%s: %v", t.Platform, err)
			continue
		}

		walkOpts := []manifest.WalkerOption{manifest.WithTracer(p.tel.Tracer)}
		var w *manifest.Walker
		if p.cfg.Action == config.ActionPopulate {
			w = manifest.NewPopulateWalker(src, p.log, walkOpts...)
		} else {
			w = manifest.NewDeployWalker(src, p.cfg.DeployTo, p.log, append(walkOpts, manifest.WithEmitter(emitter))...)
		}

		ctx, span := p.startPlatform(ctx, t)
		stats := w.Walk(ctx, doc)
		span.SetAttributes(
			attribute.Int("manifest.leaves", stats.Leaves),
			attribute.Int("manifest.failed", stats.Failed),
		)
		span.End()

		p.log.Debug("%s: %d leaves, %d skipped, %d updated, %d emitted, %d failed",
			t.Platform, stats.Leaves, stats.Skipped, stats.Updated, stats.Emitted, stats.Failed)
	}

	if p.cfg.Action != config.ActionPopulate {
		return nil
	}

	after, err := doc.Encode()
	if err != nil {
		return err
	}
	if _, err := p.out.Write(after); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	if p.cfg.ShowDiff {
		d, err := manifest.Diff(p.cfg.ManifestPath, before, after)
		if err != nil {
			return err
		}
		if d != "" {
			fmt.Fprintln(p.diffOut, d)
		}
	}
	return nil
}

// emitter prints each deploy instruction and, in publish mode, publishes it.
func (p *Pipeline) emitter() (manifest.Emitter, func(), error) {
	noop := func() {}
	if p.cfg.Action != config.ActionDeploy {
		return nil, noop, nil
	}

	b := p.broker
	closeFn := noop
	if b == nil && DetectMode(p.cfg) == PublishMode {
		rb, err := broker.NewRedpandaBroker(p.cfg.RedpandaBrokers, p.log)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to Redpanda: %w", err)
		}
		b = rb
		closeFn = func() {
			if err := rb.Close(); err != nil {
				p.log.Error("closing Redpanda broker: %v", err)
			}
		}
	}

	var pub *broker.DeployPublisher
	if b != nil {
		pub = broker.NewDeployPublisher(b, p.cfg.DeployTopic)
	}

	return manifest.EmitterFunc(func(ctx context.Context, d contracts.DeployInstruction) error {
		fmt.Fprintln(p.out, d.Command())
		if pub == nil {
			return nil
		}
		return pub.Publish(ctx, d)
	}), closeFn, nil
}
