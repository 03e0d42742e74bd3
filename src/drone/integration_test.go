//go:build integration

package drone

import (
	"context"
	"os"
	"testing"

	"drone-builds/src/provider"
)

func TestDroneIntegration(t *testing.T) {
	server := os.Getenv("GITHUB_DRONE_SERVER")
	token := os.Getenv("GITHUB_DRONE_TOKEN")
	if server == "" || token == "" {
		t.Skip("GITHUB_DRONE_SERVER/GITHUB_DRONE_TOKEN not set, skipping integration test")
	}

	p := NewProvider(provider.GitHub, NewClient(server, token, 0))

	repos, err := p.ListRepositories(context.Background(), os.Getenv("TEST_DRONE_REPO"))
	if err != nil {
		t.Fatalf("ListRepositories failed: %v", err)
	}
	if len(repos) == 0 {
		t.Skip("no repositories visible to token")
	}

	builds, err := p.ListBuilds(context.Background(), repos[0].FullName)
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}

	t.Logf("Fetched %d builds for %s", len(builds), repos[0].FullName)
}
