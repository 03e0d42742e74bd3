package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"drone-builds/src/classify"
	"drone-builds/src/config"
	"drone-builds/src/provider"
)

// Options selects what a Runner prints.
type Options struct {
	Release   bool // release lines instead of a report
	Repo      string
	Type      config.ReportType
	Format    config.ReportFormat
	CellWidth int
}

// OptionsFrom derives runner options from a resolved configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Release:   cfg.Action == config.ActionRelease,
		Repo:      cfg.Repo,
		Type:      cfg.ReportType,
		Format:    cfg.ReportFormat,
		CellWidth: cfg.CellWidth,
	}
}

// Runner produces the report or release output for one Drone server.
type Runner struct {
	src  provider.Provider
	opts Options
	out  Formatter
}

// NewRunner creates a runner reading builds from src.
func NewRunner(src provider.Provider, opts Options) *Runner {
	return &Runner{
		src:  src,
		opts: opts,
		out:  Formatter{Format: opts.Format, CellWidth: opts.CellWidth},
	}
}

// Run writes output for every repository to w. A fetch error stops the run
// and is returned; output already written for earlier repositories stays.
func (r *Runner) Run(ctx context.Context, w io.Writer) error {
	repos, err := r.src.ListRepositories(ctx, r.opts.Repo)
	if err != nil {
		return fmt.Errorf("listing repositories on %s: %w", r.src.Platform(), err)
	}

	for _, repo := range repos {
		builds, err := r.src.ListBuilds(ctx, repo.FullName)
		if err != nil {
			return fmt.Errorf("listing builds for %s: %w", repo.FullName, err)
		}
		r.writeRepo(w, repo.FullName, builds)
	}
	return nil
}

func (r *Runner) writeRepo(w io.Writer, name string, builds []provider.Build) {
	if len(builds) == 0 {
		fmt.Fprintf(w, "No builds found for %s\n\n", name)
		return
	}

	if !r.opts.Release {
		fmt.Fprintf(w, "**%s**\n", strings.ToUpper(name))
	}

	set := classify.Classify(builds)
	switch {
	case r.opts.Release:
		for _, b := range SummaryBuilds(set, true) {
			fmt.Fprintln(w, ReleaseLine(name, b))
		}
	case r.opts.Type == config.ReportDetailed:
		r.out.WriteDetailed(w, set)
	default:
		r.out.WriteSummary(w, SummaryBuilds(set, false))
	}

	if !r.opts.Release {
		fmt.Fprint(w, "\n\n")
	}
}
