package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"drone-builds/src/provider"
)

// BuildsFetched is the counter of builds returned by Drone servers.
const BuildsFetched = "drone.builds.fetched"

// Provider wraps a provider.Provider with a span per call and a count of
// fetched builds.
type Provider struct {
	next    provider.Provider
	tracer  trace.Tracer
	fetched metric.Int64Counter
}

// Instrument wraps next using t's tracer and meter.
func Instrument(next provider.Provider, t *Telemetry) (*Provider, error) {
	fetched, err := t.Meter.Int64Counter(BuildsFetched,
		metric.WithDescription("Builds returned by the Drone API"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, err
	}
	return &Provider{next: next, tracer: t.Tracer, fetched: fetched}, nil
}

func (p *Provider) Platform() provider.Platform {
	return p.next.Platform()
}

func (p *Provider) ListRepositories(ctx context.Context, only string) ([]provider.Repository, error) {
	ctx, span := p.tracer.Start(ctx, "drone.list_repositories",
		trace.WithAttributes(attribute.String("drone.platform", string(p.Platform()))))
	defer span.End()

	repos, err := p.next.ListRepositories(ctx, only)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("drone.repositories", len(repos)))
	return repos, nil
}

func (p *Provider) ListBuilds(ctx context.Context, fullName string) ([]provider.Build, error) {
	attrs := []attribute.KeyValue{
		attribute.String("drone.platform", string(p.Platform())),
		attribute.String("drone.repo", fullName),
	}
	ctx, span := p.tracer.Start(ctx, "drone.list_builds", trace.WithAttributes(attrs...))
	defer span.End()

	builds, err := p.next.ListBuilds(ctx, fullName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("drone.builds", len(builds)))
	p.fetched.Add(ctx, int64(len(builds)), metric.WithAttributes(attrs[0]))
	return builds, nil
}
