package drone

import (
	"context"
	"fmt"

	"drone-builds/src/provider"
)

// Provider implements provider.Provider for one Drone server.
type Provider struct {
	client   *Client
	platform provider.Platform
}

// NewProvider creates a Drone provider for the server fronting platform.
func NewProvider(platform provider.Platform, client *Client) *Provider {
	return &Provider{
		client:   client,
		platform: platform,
	}
}

// Platform returns the source-control platform behind this server.
func (p *Provider) Platform() provider.Platform {
	return p.platform
}

// ListRepositories returns the named repository without a request when only
// is set, otherwise every repository visible to the token.
func (p *Provider) ListRepositories(ctx context.Context, only string) ([]provider.Repository, error) {
	if only != "" {
		return []provider.Repository{{FullName: only}}, nil
	}

	repos, err := p.client.ListRepos(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}

	out := make([]provider.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, provider.Repository{FullName: r.FullName})
	}
	return out, nil
}

// ListBuilds returns the builds of fullName in server order.
func (p *Provider) ListBuilds(ctx context.Context, fullName string) ([]provider.Build, error) {
	builds, err := p.client.ListBuilds(ctx, fullName)
	if err != nil {
		return nil, fmt.Errorf("listing builds for %s: %w", fullName, err)
	}

	out := make([]provider.Build, 0, len(builds))
	for _, b := range builds {
		out = append(out, provider.Build{
			Number:    b.Number,
			StartedAt: b.Started,
			Status:    b.Status,
			Commit:    b.Commit,
			LinkURL:   b.LinkURL,
			Author:    b.Author,
			Branch:    b.Branch,
			Event:     b.Event,
			DeployTo:  b.DeployTo,
		})
	}
	return out, nil
}
