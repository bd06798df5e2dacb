package generator

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

const (
	// maxSnippetRunes bounds each job's description in the prompt
	maxSnippetRunes = 200

	defaultLocation   = "UK"
	compensationNone  = "Competitive"
	remoteAvailable   = "Remote available"
	remoteUnavailable = "On-site/Hybrid"
	postedUnknown     = "Recent"
	postedDateLayout  = "2006-01-02"
)

// JobSummary is the normalized view of a job that the model sees
type JobSummary struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Category string `json:"category"`
	Salary   string `json:"salary"`
	Remote   string `json:"remote"`
	Posted   string `json:"posted"`
	Snippet  string `json:"snippet,omitempty"`
}

// Summarize normalizes a job record for the prompt
func Summarize(job types.JobRecord) JobSummary {
	s := JobSummary{
		Title:    job.Title,
		Company:  job.CompanyName,
		Location: defaultLocation,
		Category: job.RoleCategory,
		Salary:   compensation(job.SalaryMin, job.SalaryMax),
		Remote:   remoteUnavailable,
		Posted:   postedUnknown,
	}
	if job.Location != nil && strings.TrimSpace(*job.Location) != "" {
		s.Location = *job.Location
	}
	if job.IsRemote {
		s.Remote = remoteAvailable
	}
	if job.PostedDate != nil {
		s.Posted = job.PostedDate.Format(postedDateLayout)
	}
	if job.DescriptionSnippet != nil {
		s.Snippet = cleanSnippet(*job.DescriptionSnippet)
	}
	return s
}

// SummarizeAll normalizes a batch of jobs, preserving order
func SummarizeAll(jobs []types.JobRecord) []JobSummary {
	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, Summarize(j))
	}
	return out
}

// compensation renders "£90,000-£120,000" when both bounds are known and non-zero
func compensation(min, max *int) string {
	if min == nil || max == nil || *min == 0 || *max == 0 {
		return compensationNone
	}
	return "£" + groupThousands(*min) + "-£" + groupThousands(*max)
}

func groupThousands(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.Itoa(n)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	sb.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		sb.WriteByte(',')
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

// cleanSnippet strips markup, collapses whitespace and truncates to maxSnippetRunes
func cleanSnippet(raw string) string {
	text := raw
	if strings.ContainsAny(raw, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			text = doc.Text()
		}
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > maxSnippetRunes {
		text = strings.TrimSpace(string(runes[:maxSnippetRunes]))
	}
	return text
}
