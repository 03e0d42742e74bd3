// Package config resolves the run configuration for drone-builds.
//
// Values are layered: defaults, then command-line flags, then environment
// overrides. A set environment variable wins even when it is empty.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"drone-builds/src/provider"
)

// ErrInvalidOptions is wrapped by every option validation failure.
var ErrInvalidOptions = errors.New("invalid options")

// Action selects what a run does.
type Action string

const (
	ActionReport   Action = "report"
	ActionRelease  Action = "release"
	ActionDeploy   Action = "deploy"
	ActionPopulate Action = "populate"
)

// ReportType selects summary or detailed report output.
type ReportType string

const (
	ReportSummary  ReportType = "summary"
	ReportDetailed ReportType = "detailed"
)

// ReportFormat selects the table style.
type ReportFormat string

const (
	FormatTable ReportFormat = "table"
	FormatList  ReportFormat = "list"
)

const (
	DefaultManifestPath = "local.yml"
	DefaultDeployTopic  = "drone_deploys"
)

// Options are the user-facing settings before environment overrides.
type Options struct {
	Action       string
	DeployTo     string
	Repo         string
	RepoStore    string
	ReportType   string
	ReportFormat string
	ManifestPath string
	ShowDiff     bool
	LogLevel     string
}

// DefaultOptions returns the option defaults.
func DefaultOptions() Options {
	return Options{
		Action:       string(ActionReport),
		ReportType:   string(ReportSummary),
		ReportFormat: string(FormatTable),
		ManifestPath: DefaultManifestPath,
		LogLevel:     "info",
	}
}

// Target is one Drone server with the credentials to query it.
type Target struct {
	Platform  provider.Platform
	ServerURL string
	Token     string
}

// Config holds the resolved, validated configuration for one run.
type Config struct {
	Action       Action
	DeployTo     string
	Repo         string
	RepoStore    provider.Platform // empty when not restricted
	ReportType   ReportType
	ReportFormat ReportFormat
	ManifestPath string
	ShowDiff     bool
	LogLevel     string

	// Targets are the platforms to process, in order, that have credentials.
	Targets []Target
	// Notices explain why a selected platform was skipped.
	Notices []string

	HTTPTimeout time.Duration
	CellWidth   int

	RedpandaBrokers []string
	DeployTopic     string

	OTelEnabled bool
}

// LookupFunc reports the value of an environment variable and whether it is set.
type LookupFunc func(key string) (string, bool)

// overrides maps environment variables to the option they replace.
var overrides = []struct {
	env string
	set func(*Options, string)
}{
	{"ACTION", func(o *Options, v string) { o.Action = v }},
	{"DEPLOY_TO", func(o *Options, v string) { o.DeployTo = v }},
	{"REPO", func(o *Options, v string) { o.Repo = v }},
	{"REPO_STORE", func(o *Options, v string) { o.RepoStore = v }},
	{"REPORT_TYPE", func(o *Options, v string) { o.ReportType = v }},
	{"REPORT_FORMAT", func(o *Options, v string) { o.ReportFormat = v }},
	{"LOG_LEVEL", func(o *Options, v string) { o.LogLevel = v }},
}

// Load resolves opts against the process environment.
func Load(opts Options) (*Config, error) {
	return Resolve(opts, os.LookupEnv)
}

// Resolve applies environment overrides to opts, validates the result and
// resolves platform credentials.
func Resolve(opts Options, lookup LookupFunc) (*Config, error) {
	for _, o := range overrides {
		if v, ok := lookup(o.env); ok {
			o.set(&opts, v)
		}
	}

	cfg := &Config{
		Action:       Action(opts.Action),
		DeployTo:     opts.DeployTo,
		Repo:         opts.Repo,
		ReportType:   ReportType(opts.ReportType),
		ReportFormat: ReportFormat(opts.ReportFormat),
		ManifestPath: opts.ManifestPath,
		ShowDiff:     opts.ShowDiff,
		LogLevel:     opts.LogLevel,
		DeployTopic:  DefaultDeployTopic,
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = DefaultManifestPath
	}

	if err := validate(cfg, opts); err != nil {
		return nil, err
	}

	if err := loadAmbient(cfg, lookup); err != nil {
		return nil, err
	}

	cfg.resolveTargets(lookup)
	return cfg, nil
}

// ResolveAmbient resolves only what long-running subcommands need: log
// level, ambient settings and platform credentials. Action options and
// their overrides are ignored.
func ResolveAmbient(lookup LookupFunc) (*Config, error) {
	opts := DefaultOptions()
	if v, ok := lookup("LOG_LEVEL"); ok {
		opts.LogLevel = v
	}

	cfg := &Config{
		Action:       Action(opts.Action),
		ReportType:   ReportType(opts.ReportType),
		ReportFormat: ReportFormat(opts.ReportFormat),
		ManifestPath: opts.ManifestPath,
		LogLevel:     opts.LogLevel,
		DeployTopic:  DefaultDeployTopic,
	}

	if err := loadAmbient(cfg, lookup); err != nil {
		return nil, err
	}

	cfg.resolveTargets(lookup)
	return cfg, nil
}

func validate(cfg *Config, opts Options) error {
	switch cfg.Action {
	case ActionReport, ActionRelease, ActionDeploy, ActionPopulate:
	default:
		return fmt.Errorf("%w: action %q must be one of deploy, release, report, populate", ErrInvalidOptions, opts.Action)
	}

	switch cfg.ReportType {
	case ReportSummary, ReportDetailed:
	default:
		return fmt.Errorf("%w: report type %q must be one of detailed, summary", ErrInvalidOptions, opts.ReportType)
	}

	switch cfg.ReportFormat {
	case FormatTable, FormatList:
	default:
		return fmt.Errorf("%w: report format %q must be one of list, table", ErrInvalidOptions, opts.ReportFormat)
	}

	switch cfg.DeployTo {
	case "", "production", "staging":
	default:
		return fmt.Errorf("%w: deploy-to %q must be one of production, staging", ErrInvalidOptions, cfg.DeployTo)
	}

	if cfg.Repo != "" || opts.RepoStore != "" {
		if opts.RepoStore == "" {
			return fmt.Errorf("%w: if you specify a repo, please specify a store", ErrInvalidOptions)
		}
		p, err := provider.ParsePlatform(opts.RepoStore)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		cfg.RepoStore = p
	}

	if cfg.Action == ActionDeploy && cfg.DeployTo == "" {
		return fmt.Errorf("%w: if you specify a deployment, please specify an environment to deploy to", ErrInvalidOptions)
	}

	return nil
}

func loadAmbient(cfg *Config, lookup LookupFunc) error {
	if v, ok := lookup("DRONE_HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DRONE_HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.HTTPTimeout = d
	}

	if v, ok := lookup("REPORT_CELL_WIDTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REPORT_CELL_WIDTH %q: %w", v, err)
		}
		cfg.CellWidth = n
	}

	if v, ok := lookup("REDPANDA_BROKERS"); ok && v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.RedpandaBrokers = append(cfg.RedpandaBrokers, b)
			}
		}
	}

	if v, ok := lookup("DEPLOY_TOPIC"); ok && v != "" {
		cfg.DeployTopic = v
	}

	if v, _ := lookup("OTEL_ENABLED"); v == "true" {
		cfg.OTelEnabled = true
	}

	return nil
}

func (c *Config) resolveTargets(lookup LookupFunc) {
	for _, p := range provider.Platforms {
		if c.RepoStore != "" && c.RepoStore != p {
			continue
		}

		server, ok := lookup(p.ServerEnv())
		if !ok {
			c.Notices = append(c.Notices, "Drone server environment variable "+p.ServerEnv()+" not set")
			continue
		}
		token, ok := lookup(p.TokenEnv())
		if !ok {
			c.Notices = append(c.Notices, "Drone user token environment variable "+p.TokenEnv()+" not set")
			continue
		}

		c.Targets = append(c.Targets, Target{Platform: p, ServerURL: server, Token: token})
	}
}

// Target returns the credentials for platform p if it is configured.
func (c *Config) Target(p provider.Platform) (Target, bool) {
	for _, t := range c.Targets {
		if t.Platform == p {
			return t, true
		}
	}
	return Target{}, false
}

// UsesManifest reports whether the action reads the manifest document.
func (c *Config) UsesManifest() bool {
	return c.Action == ActionDeploy || c.Action == ActionPopulate
}
