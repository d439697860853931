// Package observability provides human-readable output for the CLI: sync
// summaries, config checks and the --about page.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/tap-inventio/internal/tap"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes formatted output. Sync output goes to stderr since stdout
// carries Singer messages.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // terminal output; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSummary outputs records per stream and the busiest companies.
func (p *Printer) PrintSummary(summary *tap.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("Records:  %d\n", summary.Records))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", summary.Duration.Round(time.Millisecond)))

	for _, s := range summary.Streams {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s: %d records", s.Stream, s.Records))
		if s.Skipped > 0 {
			sb.WriteString(fmt.Sprintf(" (%d already synced)", s.Skipped))
		}
		sb.WriteString("\n")

		companies := make([]string, 0, len(s.Companies))
		for company := range s.Companies {
			companies = append(companies, company)
		}
		sort.Slice(companies, func(i, j int) bool {
			ci, cj := s.Companies[companies[i]], s.Companies[companies[j]]
			if ci != cj {
				return ci > cj
			}
			return companies[i] < companies[j]
		})

		count := min(len(companies), maxItemsToShow)
		for _, company := range companies[:count] {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", company, s.Companies[company]))
		}
		if len(companies) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(companies)-maxItemsToShow))
		}
	}

	p.printBox("SYNC SUMMARY", strings.TrimRight(sb.String(), "\n"))
}

// PrintConfigCheck outputs the result of validating a config.
//
//nolint:errcheck // terminal output; errors are not recoverable
func (p *Printer) PrintConfigCheck(warnings []string, err error) {
	if err == nil && len(warnings) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ CONFIG OK")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for _, w := range warnings {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", w))
	}
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			sb.WriteString(fmt.Sprintf("✗ %s\n", strings.TrimSpace(line)))
		}
	}
	p.printBox("CONFIG CHECK", strings.TrimRight(sb.String(), "\n"))
}

// PrintAbout outputs the tap description as markdown.
//
//nolint:errcheck // terminal output; errors are not recoverable
func (p *Printer) PrintAbout(about *tap.About) {
	if about == nil {
		return
	}

	fmt.Fprintf(p.out, "# `%s`\n\n", about.Name)
	fmt.Fprintf(p.out, "%s\n\n", about.Description)
	fmt.Fprintf(p.out, "Version: %s\n\n", about.Version)

	fmt.Fprintf(p.out, "## Capabilities\n\n")
	for _, c := range about.Capabilities {
		fmt.Fprintf(p.out, "* `%s`\n", c)
	}

	fmt.Fprintf(p.out, "\n## Streams\n\n")
	for _, s := range about.Streams {
		fmt.Fprintf(p.out, "* `%s`\n", s)
	}

	fmt.Fprintf(p.out, "\n## Settings\n\n")
	fmt.Fprintf(p.out, "| Setting | Type | Required | Secret | Description |\n")
	fmt.Fprintf(p.out, "|:--------|:-----|:---------|:-------|:------------|\n")
	for _, s := range about.Settings {
		fmt.Fprintf(p.out, "| %s | %s | %s | %s | %s |\n",
			s.Name, s.Type, yesNo(s.Required), yesNo(s.Secret), s.Description)
	}
}

func yesNo(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
