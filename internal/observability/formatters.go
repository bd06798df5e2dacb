package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintState outputs the rotation cursor and what the next run would do
func (p *Printer) PrintState(state types.GenerationState, next types.ContentType, nextAllowed time.Time) {
	var sb strings.Builder

	last := "(none)"
	if state.LastContentType != nil {
		last = string(*state.LastContentType)
	}
	sb.WriteString(fmt.Sprintf("Last type:     %s\n", last))
	if state.LastGeneratedAt != nil {
		sb.WriteString(fmt.Sprintf("Last run:      %s\n", state.LastGeneratedAt.UTC().Format(time.RFC3339)))
	} else {
		sb.WriteString("Last run:      (never)\n")
	}
	sb.WriteString(fmt.Sprintf("Runs:          %d\n", state.RunCount))
	sb.WriteString(fmt.Sprintf("Version:       %d\n", state.Version))
	sb.WriteString(fmt.Sprintf("Next type:     %s\n", next))
	if nextAllowed.IsZero() {
		sb.WriteString("Next allowed:  now")
	} else {
		sb.WriteString(fmt.Sprintf("Next allowed:  %s", nextAllowed.UTC().Format(time.RFC3339)))
	}

	p.printBox("GENERATION STATE", sb.String())
}

// PrintCandidates outputs the jobs selected for an article
func (p *Printer) PrintCandidates(contentType types.ContentType, category *types.Category, jobs []types.JobRecord) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Type:      %s\n", contentType))
	if category != nil {
		sb.WriteString(fmt.Sprintf("Category:  %s\n", *category))
	}
	sb.WriteString(fmt.Sprintf("Jobs:      %d\n", len(jobs)))

	count := min(len(jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("\n  • %s @ %s", jobs[i].Title, jobs[i].CompanyName))
	}
	if len(jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(jobs)-maxItemsToShow))
	}

	p.printBox("CANDIDATE JOBS", sb.String())
}

// PrintArticle outputs a summary of a generated or published article
func (p *Printer) PrintArticle(article *types.Article) {
	if article == nil {
		return
	}

	var sb strings.Builder
	if article.ID != 0 {
		sb.WriteString(fmt.Sprintf("ID:        %d\n", article.ID))
	}
	sb.WriteString(fmt.Sprintf("Title:     %s\n", article.Title))
	sb.WriteString(fmt.Sprintf("Slug:      %s\n", article.Slug))
	sb.WriteString(fmt.Sprintf("Category:  %s\n", article.Category))
	sb.WriteString(fmt.Sprintf("Type:      %s\n", article.ContentType))
	sb.WriteString(fmt.Sprintf("Model:     %s\n", article.GenerationMetadata.Model))
	sb.WriteString(fmt.Sprintf("Jobs used: %d\n\n", len(article.GenerationMetadata.JobsUsed)))
	sb.WriteString(article.Excerpt)

	p.printBox("ARTICLE", sb.String())
}
