// Package report renders classified builds as summary, detailed and release output.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"drone-builds/src/classify"
	"drone-builds/src/config"
	"drone-builds/src/provider"
	"drone-builds/src/sanitize"
)

// DateLayout formats build start times.
const DateLayout = "2006-01-02 15:04:05"

// releasePrefixes are organisation and sub-group names removed from
// repository names in release lines.
var releasePrefixes = []string{"UKHomeOffice/", "cop/"}

var (
	summaryHeaders  = []string{"Environment", "Build", "Date", "Status", "Commit"}
	detailedHeaders = []string{"Build", "Date", "Status", "Commit", "Author"}

	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true)
)

// Formatter writes report output in one table style.
type Formatter struct {
	Format    config.ReportFormat
	CellWidth int // 0 leaves cells untruncated
}

// EnvironmentLabel is the summary label for a build: DEV when it was not
// deployed, otherwise the upper-cased deployment target.
func EnvironmentLabel(b provider.Build) string {
	if b.DeployTo == "" {
		return "DEV"
	}
	return strings.ToUpper(b.DeployTo)
}

// SummaryBuilds picks the newest build of each non-empty bucket in report
// order. Release output only ever uses the dev build.
func SummaryBuilds(set classify.Set, release bool) []provider.Build {
	var out []provider.Build
	for _, bucket := range set.Buckets() {
		if len(bucket.Builds) > 0 {
			out = append(out, bucket.Builds[0])
		}
		if release {
			break
		}
	}
	return out
}

// WriteSummary writes one row per build. Nothing is written for no builds.
func (f Formatter) WriteSummary(w io.Writer, builds []provider.Build) {
	if len(builds) == 0 {
		return
	}

	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		rows = append(rows, []string{
			EnvironmentLabel(b),
			strconv.Itoa(b.Number),
			b.Started().Format(DateLayout),
			f.cell(b.Status),
			f.cell(b.CommitRef()),
		})
	}
	fmt.Fprintln(w, f.render(summaryHeaders, rows))
}

// WriteDetailed writes a header and a full history table for every
// non-empty environment.
func (f Formatter) WriteDetailed(w io.Writer, set classify.Set) {
	for _, bucket := range set.Buckets() {
		if len(bucket.Builds) == 0 {
			continue
		}

		rows := make([][]string, 0, len(bucket.Builds))
		for _, b := range bucket.Builds {
			rows = append(rows, []string{
				strconv.Itoa(b.Number),
				b.Started().Format(DateLayout),
				f.cell(b.Status),
				f.cell(b.CommitRef()),
				f.cell(b.Author),
			})
		}

		fmt.Fprintf(w, "**%s**\n", strings.ToUpper(bucket.Name))
		fmt.Fprintln(w, f.render(detailedHeaders, rows))
	}
}

// ReleaseLine formats |repo|commit|build| for downstream release tooling.
// Known organisation prefixes are removed from the repository and only the
// last path segment of the commit link is kept.
func ReleaseLine(repo string, b provider.Build) string {
	name := repo
	for _, prefix := range releasePrefixes {
		name = strings.ReplaceAll(name, prefix, "")
	}

	segments := strings.Split(b.CommitRef(), "/")
	return fmt.Sprintf("|%s|%s|%d|", name, segments[len(segments)-1], b.Number)
}

func (f Formatter) cell(s string) string {
	return sanitize.Cell(s, f.CellWidth)
}

func (f Formatter) render(headers []string, rows [][]string) string {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if f.Format == config.FormatList {
		t = t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderHeader(false).
			BorderColumn(false)
	} else {
		t = t.Border(lipgloss.NormalBorder())
	}

	return t.String()
}
