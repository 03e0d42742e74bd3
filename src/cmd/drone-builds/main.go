// Package main provides the drone-builds command: build reports, release
// identifiers and manifest driven promotion across Drone CI servers.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"drone-builds/src/config"
	"drone-builds/src/logger"
	"drone-builds/src/pipeline"
	"drone-builds/src/provider"
	"drone-builds/src/telemetry"
)

// app carries what the commands share.
type app struct {
	lookup config.LookupFunc
	stdout io.Writer
	stderr io.Writer
	opts   config.Options

	newProvider pipeline.ProviderFactory
}

func newApp() *app {
	return &app{
		lookup:      os.LookupEnv,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		opts:        config.DefaultOptions(),
		newProvider: pipeline.DroneProvider,
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drone-builds",
		Short: "Report on and promote Drone CI builds",
		Long: `drone-builds queries the Drone servers in front of GitHub and GitLab.

Actions:
  report    latest build per environment for every repository (summary or detailed)
  release   |repo|commit|build| lines for the newest mainline build
  populate  set each manifest entry's tag to its newest mainline commit
  deploy    print drone deploy commands for the builds of the manifest's tags

Servers and tokens come from GITHUB_DRONE_SERVER/GITHUB_DRONE_TOKEN and
GITLAB_DRONE_SERVER/GITLAB_DRONE_TOKEN. ACTION, DEPLOY_TO, REPO, REPO_STORE,
REPORT_TYPE and REPORT_FORMAT override the matching flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&a.opts.Action, "action", "a", a.opts.Action, "deploy, release, report or populate")
	f.StringVarP(&a.opts.DeployTo, "deploy-to", "d", "", "environment to deploy to: production or staging")
	f.StringVarP(&a.opts.Repo, "repo", "r", "", "Drone repository name (owner/name)")
	f.StringVarP(&a.opts.RepoStore, "repo-store", "s", "", "limit processing to github or gitlab")
	f.StringVarP(&a.opts.ReportType, "report-type", "t", a.opts.ReportType, "detailed or summary")
	f.StringVarP(&a.opts.ReportFormat, "report-format", "f", a.opts.ReportFormat, "list or table")
	f.StringVarP(&a.opts.ManifestPath, "manifest", "m", a.opts.ManifestPath, "manifest file for populate and deploy")
	f.BoolVar(&a.opts.ShowDiff, "diff", false, "populate: print a diff of the manifest to stderr")
	f.StringVar(&a.opts.LogLevel, "log-level", a.opts.LogLevel, "debug, info or error")

	cmd.AddCommand(a.mcpCmd(), a.deploysCmd())
	return cmd
}

func (a *app) run(ctx context.Context) error {
	cfg, err := config.Resolve(a.opts, a.lookup)
	if err != nil {
		return err
	}

	log := a.logger(cfg.LogLevel)
	logOptions(log, cfg)

	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Error("telemetry shutdown: %v", err)
		}
	}()

	p := pipeline.New(cfg, log,
		pipeline.WithOutput(a.stdout, a.stderr),
		pipeline.WithTelemetry(tel),
		pipeline.WithProviderFactory(a.newProvider),
	)
	return p.Run(ctx)
}

func (a *app) logger(level string) logger.Logger {
	v, _ := a.lookup("LOG_FORMAT")
	return logger.NewWriterLogger(a.stderr, level, v == "json")
}

func logOptions(log logger.Logger, cfg *config.Config) {
	show := func(s string) string {
		if s == "" {
			return "None"
		}
		return s
	}

	log.Info("Running with the following options:")
	log.Info("Action: %s", cfg.Action)
	log.Info("Deploy to: %s (applicable for deploy action)", show(cfg.DeployTo))
	log.Info("Repo: %s (only applicable for report action)", show(cfg.Repo))
	log.Info("Repo store: %s (applicable when repo is provided, or to limit processing to a particular store)", show(string(cfg.RepoStore)))
	log.Info("Report format: %s (applicable for report action)", cfg.ReportFormat)
	log.Info("Report type: %s (applicable for report action)", cfg.ReportType)
	if cfg.UsesManifest() {
		log.Info("Manifest: %s", cfg.ManifestPath)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, provider.WrapError(err))
		stop()
		os.Exit(1)
	}
}
