package config

import (
	"errors"
	"testing"
	"time"

	"drone-builds/src/provider"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

var bothPlatforms = map[string]string{
	"GITHUB_DRONE_SERVER": "https://drone.github.example",
	"GITHUB_DRONE_TOKEN":  "gh-token",
	"GITLAB_DRONE_SERVER": "https://drone.gitlab.example",
	"GITLAB_DRONE_TOKEN":  "gl-token",
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(DefaultOptions(), env(bothPlatforms))
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if cfg.Action != ActionReport {
		t.Errorf("Action = %v, want report", cfg.Action)
	}
	if cfg.ReportType != ReportSummary {
		t.Errorf("ReportType = %v, want summary", cfg.ReportType)
	}
	if cfg.ReportFormat != FormatTable {
		t.Errorf("ReportFormat = %v, want table", cfg.ReportFormat)
	}
	if cfg.ManifestPath != "local.yml" {
		t.Errorf("ManifestPath = %v, want local.yml", cfg.ManifestPath)
	}
	if cfg.DeployTopic != DefaultDeployTopic {
		t.Errorf("DeployTopic = %v, want %v", cfg.DeployTopic, DefaultDeployTopic)
	}
	if cfg.HTTPTimeout != 0 {
		t.Errorf("HTTPTimeout = %v, want 0", cfg.HTTPTimeout)
	}

	if len(cfg.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(cfg.Targets))
	}
	if cfg.Targets[0].Platform != provider.GitHub || cfg.Targets[1].Platform != provider.GitLab {
		t.Errorf("Targets order = %v, %v; want github, gitlab", cfg.Targets[0].Platform, cfg.Targets[1].Platform)
	}
	if cfg.Targets[1].Token != "gl-token" {
		t.Errorf("gitlab token = %v, want gl-token", cfg.Targets[1].Token)
	}
}

func TestResolve_EnvOverridesFlags(t *testing.T) {
	opts := DefaultOptions()
	opts.Action = string(ActionRelease)
	opts.ReportFormat = string(FormatTable)

	vars := map[string]string{
		"ACTION":        "report",
		"REPORT_TYPE":   "detailed",
		"REPORT_FORMAT": "list",
		"REPO":          "UKHomeOffice/api",
		"REPO_STORE":    "github",
	}
	for k, v := range bothPlatforms {
		vars[k] = v
	}

	cfg, err := Resolve(opts, env(vars))
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if cfg.Action != ActionReport {
		t.Errorf("Action = %v, want report (env wins)", cfg.Action)
	}
	if cfg.ReportType != ReportDetailed {
		t.Errorf("ReportType = %v, want detailed", cfg.ReportType)
	}
	if cfg.ReportFormat != FormatList {
		t.Errorf("ReportFormat = %v, want list", cfg.ReportFormat)
	}
	if cfg.Repo != "UKHomeOffice/api" || cfg.RepoStore != provider.GitHub {
		t.Errorf("Repo/RepoStore = %v/%v", cfg.Repo, cfg.RepoStore)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Platform != provider.GitHub {
		t.Errorf("Targets = %+v, want github only", cfg.Targets)
	}
}

func TestResolve_EmptyEnvStillOverrides(t *testing.T) {
	opts := DefaultOptions()
	opts.Repo = "UKHomeOffice/api"
	opts.RepoStore = "github"

	vars := map[string]string{"REPO": ""}
	for k, v := range bothPlatforms {
		vars[k] = v
	}

	cfg, err := Resolve(opts, env(vars))
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if cfg.Repo != "" {
		t.Errorf("Repo = %q, want empty (set env var wins)", cfg.Repo)
	}
}

func TestResolve_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{name: "repo without store", modify: func(o *Options) { o.Repo = "a/b" }},
		{name: "unknown store", modify: func(o *Options) { o.RepoStore = "bitbucket" }},
		{name: "deploy without environment", modify: func(o *Options) { o.Action = "deploy" }},
		{name: "unknown action", modify: func(o *Options) { o.Action = "promote" }},
		{name: "unknown report type", modify: func(o *Options) { o.ReportType = "full" }},
		{name: "unknown report format", modify: func(o *Options) { o.ReportFormat = "csv" }},
		{name: "unknown deploy target", modify: func(o *Options) { o.DeployTo = "secrets" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)

			_, err := Resolve(opts, env(bothPlatforms))
			if err == nil {
				t.Fatal("Resolve() expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("errors.Is(err, ErrInvalidOptions) = false for %v", err)
			}
		})
	}
}

func TestResolve_DeployWithEnvironment(t *testing.T) {
	opts := DefaultOptions()
	opts.Action = "deploy"
	opts.DeployTo = "staging"

	cfg, err := Resolve(opts, env(bothPlatforms))
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if !cfg.UsesManifest() {
		t.Error("UsesManifest() = false, want true for deploy")
	}
}

func TestResolve_MissingCredentialsSkipPlatform(t *testing.T) {
	vars := map[string]string{
		"GITHUB_DRONE_SERVER": "https://drone.github.example",
		"GITLAB_DRONE_SERVER": "https://drone.gitlab.example",
		"GITLAB_DRONE_TOKEN":  "gl-token",
	}

	cfg, err := Resolve(DefaultOptions(), env(vars))
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if len(cfg.Targets) != 1 || cfg.Targets[0].Platform != provider.GitLab {
		t.Fatalf("Targets = %+v, want gitlab only", cfg.Targets)
	}
	if len(cfg.Notices) != 1 || cfg.Notices[0] != "Drone user token environment variable GITHUB_DRONE_TOKEN not set" {
		t.Errorf("Notices = %v", cfg.Notices)
	}
	if _, ok := cfg.Target(provider.GitHub); ok {
		t.Error("Target(github) found, want missing")
	}
}

func TestResolve_NoCredentials(t *testing.T) {
	cfg, err := Resolve(DefaultOptions(), env(nil))
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("Targets = %+v, want none", cfg.Targets)
	}
	if len(cfg.Notices) != 2 {
		t.Errorf("Notices = %v, want one per platform", cfg.Notices)
	}
}

func TestResolve_Ambient(t *testing.T) {
	vars := map[string]string{
		"DRONE_HTTP_TIMEOUT": "45s",
		"REPORT_CELL_WIDTH":  "40",
		"REDPANDA_BROKERS":   "localhost:19092, other:9092,",
		"DEPLOY_TOPIC":       "deploys",
		"OTEL_ENABLED":       "true",
	}

	cfg, err := Resolve(DefaultOptions(), env(vars))
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if cfg.HTTPTimeout != 45*time.Second {
		t.Errorf("HTTPTimeout = %v, want 45s", cfg.HTTPTimeout)
	}
	if cfg.CellWidth != 40 {
		t.Errorf("CellWidth = %d, want 40", cfg.CellWidth)
	}
	if len(cfg.RedpandaBrokers) != 2 || cfg.RedpandaBrokers[1] != "other:9092" {
		t.Errorf("RedpandaBrokers = %v", cfg.RedpandaBrokers)
	}
	if cfg.DeployTopic != "deploys" {
		t.Errorf("DeployTopic = %v, want deploys", cfg.DeployTopic)
	}
	if !cfg.OTelEnabled {
		t.Error("OTelEnabled = false, want true")
	}
}

func TestResolve_InvalidAmbient(t *testing.T) {
	for _, key := range []string{"DRONE_HTTP_TIMEOUT", "REPORT_CELL_WIDTH"} {
		t.Run(key, func(t *testing.T) {
			if _, err := Resolve(DefaultOptions(), env(map[string]string{key: "soon"})); err == nil {
				t.Errorf("Resolve() expected error for %s", key)
			}
		})
	}
}

func TestLoad_UsesProcessEnvironment(t *testing.T) {
	t.Setenv("REPORT_FORMAT", "list")
	t.Setenv("GITHUB_DRONE_SERVER", "https://drone.example")
	t.Setenv("GITHUB_DRONE_TOKEN", "token")

	cfg, err := Load(DefaultOptions())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.ReportFormat != FormatList {
		t.Errorf("ReportFormat = %v, want list", cfg.ReportFormat)
	}
	if _, ok := cfg.Target(provider.GitHub); !ok {
		t.Error("Target(github) missing")
	}
}

func TestResolveAmbient_IgnoresActionOptions(t *testing.T) {
	vars := map[string]string{
		"ACTION":           "deploy",
		"REPO":             "acme/api",
		"REPORT_FORMAT":    "csv",
		"LOG_LEVEL":        "debug",
		"REDPANDA_BROKERS": "localhost:19092",
	}
	for k, v := range bothPlatforms {
		vars[k] = v
	}

	cfg, err := ResolveAmbient(env(vars))
	if err != nil {
		t.Fatalf("ResolveAmbient() unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if len(cfg.Targets) != 2 {
		t.Errorf("Targets = %d, want 2", len(cfg.Targets))
	}
	if len(cfg.RedpandaBrokers) != 1 || cfg.DeployTopic != DefaultDeployTopic {
		t.Errorf("brokers = %v, topic = %v", cfg.RedpandaBrokers, cfg.DeployTopic)
	}

	if _, err := ResolveAmbient(env(map[string]string{"DRONE_HTTP_TIMEOUT": "soon"})); err == nil {
		t.Error("ResolveAmbient() expected error for a bad DRONE_HTTP_TIMEOUT")
	}
}
