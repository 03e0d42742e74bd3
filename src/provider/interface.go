package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownPlatform = errors.New("unknown repository store")
)

// Platform is the source-control platform a Drone server fronts.
type Platform string

const (
	GitHub Platform = "github"
	GitLab Platform = "gitlab"
)

// Platforms lists the supported platforms in processing order.
var Platforms = []Platform{GitHub, GitLab}

// ParsePlatform converts a repo-store name into a Platform.
func ParsePlatform(name string) (Platform, error) {
	switch Platform(name) {
	case GitHub, GitLab:
		return Platform(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
}

// Marker returns the manifest platform marker value for leaves served by p.
// Leaves marked true belong to gitlab, leaves marked false to github.
func (p Platform) Marker() bool {
	return p == GitLab
}

// ServerEnv is the environment variable holding the Drone server URL for p.
func (p Platform) ServerEnv() string {
	switch p {
	case GitLab:
		return "GITLAB_DRONE_SERVER"
	default:
		return "GITHUB_DRONE_SERVER"
	}
}

// TokenEnv is the environment variable holding the Drone user token for p.
func (p Platform) TokenEnv() string {
	switch p {
	case GitLab:
		return "GITLAB_DRONE_TOKEN"
	default:
		return "GITHUB_DRONE_TOKEN"
	}
}

// Provider defines the CI server operations the reports and the manifest walker need.
type Provider interface {
	// Platform returns the source-control platform this server fronts
	Platform() Platform

	// ListRepositories returns the repositories visible to the token, or
	// only the named repository when one is given
	ListRepositories(ctx context.Context, only string) ([]Repository, error)

	// ListBuilds returns the builds of a repository in server order
	ListBuilds(ctx context.Context, fullName string) ([]Build, error)
}
