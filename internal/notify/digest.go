package notify

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/RaghavRD/library-tracker/internal/engine"
	"github.com/RaghavRD/library-tracker/internal/registry"
)

// Digest categories reported to the mailer backend.
const (
	CategoryReleasedMail = "Library Updates"
	CategoryFutureMail   = "Future Updates"
)

var digestTemplate = template.Must(template.New("digest").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<h2 style="color: #2c3e50;">Library updates for {{.Project}}</h2>
<table border="1" cellpadding="8" cellspacing="0" style="border-collapse: collapse; width: 100%;">
<tr style="background-color: #34495e; color: #fff;">
<th>Library</th><th>Version</th><th>Category</th><th>Release Date</th>{{if .HasConfidence}}<th>Confidence</th>{{end}}
</tr>
{{range .Rows}}<tr>
<td>{{.Library}}</td><td>{{.Version}}</td><td>{{.Category}}</td><td>{{.ReleaseDate}}</td>{{if $.HasConfidence}}<td>{{if .HasConfidence}}{{.Confidence}}%{{else}}-{{end}}</td>{{end}}
</tr>
{{end}}</table>
{{range .Summaries}}
<div style="margin-top: 16px; padding: 12px; background-color: #f8f9fa; border-left: 4px solid #3498db;">
<h3 style="margin: 0 0 8px 0;">{{.Library}} {{.Version}}</h3>
<p style="margin: 0 0 8px 0;">{{.Summary}}</p>
{{if .Source}}<p style="margin: 0;"><a href="{{.Source}}">View announcement</a></p>{{end}}
</div>
{{end}}
{{if .Confidence}}
<div style="margin-top: 16px; padding: 12px; background-color: #eaf4fc; border-left: 4px solid #2980b9;">
<h3 style="margin: 0 0 8px 0;">Confidence update: {{.Confidence.Library}} {{.Confidence.Version}}</h3>
<p style="margin: 0 0 8px 0;"><strong>{{.Confidence.OldConfidence}}%</strong> &rarr; <strong>{{.Confidence.NewConfidence}}%</strong> (+{{.Confidence.Delta}})</p>
{{if .Confidence.Reason}}<p style="margin: 0 0 8px 0;">{{.Confidence.Reason}}</p>{{end}}
<p style="margin: 0;">Expected: {{.Confidence.ExpectedDate}}</p>
</div>
{{end}}
{{if .FutureNotice}}
<div style="margin-top: 16px; padding: 12px; background-color: #fdf3e7; border-left: 4px solid #e67e22;">
<p style="margin: 0;">This digest includes upcoming releases that are not yet available. Average detection confidence: {{.AvgConfidence}}%.</p>
</div>
{{end}}
<p style="margin-top: 24px; color: #888; font-size: 12px;">Sent by libtrack.</p>
</body>
</html>
`))

type digestRow struct {
	Library       string
	Version       string
	Category      string
	ReleaseDate   string
	Confidence    int
	HasConfidence bool
}

type digestSummary struct {
	Library string
	Version string
	Summary string
	Source  string
}

type confidenceBlock struct {
	Library       string
	Version       string
	OldConfidence int
	NewConfidence int
	Delta         int
	Reason        string
	ExpectedDate  string
}

type digestData struct {
	Project       string
	Rows          []digestRow
	Summaries     []digestSummary
	Confidence    *confidenceBlock
	HasConfidence bool
	FutureNotice  bool
	AvgConfidence int
}

// BuildDigest renders the events for one project into a single outbound
// digest. Events must be non-empty.
func BuildDigest(project string, recipients []string, events []engine.Event) (*Digest, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to render for project %s", project)
	}

	data := digestData{Project: project}
	futureCount, confidenceSum := 0, 0

	for _, ev := range events {
		withConfidence := ev.Category == registry.CategoryFuture || ev.Category == registry.CategoryConfidenceUpdate
		data.Rows = append(data.Rows, digestRow{
			Library:       ev.Library,
			Version:       ev.Version,
			Category:      categoryLabel(ev.Category),
			ReleaseDate:   ev.ReleaseDate,
			Confidence:    ev.Confidence,
			HasConfidence: withConfidence,
		})
		if withConfidence {
			data.HasConfidence = true
			futureCount++
			confidenceSum += ev.Confidence
		}

		if ev.Category == registry.CategoryConfidenceUpdate {
			// Most recent escalation wins the detail block
			data.Confidence = &confidenceBlock{
				Library:       ev.Library,
				Version:       ev.Version,
				OldConfidence: ev.OldConfidence,
				NewConfidence: ev.Confidence,
				Delta:         ev.ConfidenceDelta,
				Reason:        ev.ChangeReason,
				ExpectedDate:  ev.ReleaseDate,
			}
		} else {
			data.Summaries = append(data.Summaries, digestSummary{
				Library: ev.Library,
				Version: ev.Version,
				Summary: ev.Summary,
				Source:  ev.Source,
			})
		}
	}

	if futureCount > 0 {
		data.FutureNotice = true
		data.AvgConfidence = confidenceSum / futureCount
	}

	var buf strings.Builder
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render digest: %w", err)
	}

	return &Digest{
		Project:    project,
		Recipients: recipients,
		Subject:    buildSubject(events),
		HTML:       buf.String(),
		Category:   mailCategory(events),
	}, nil
}

// buildSubject derives the subject line from the first event, noting
// how many more the digest carries.
func buildSubject(events []engine.Event) string {
	first := events[0]
	name := first.Library
	if n := len(events) - 1; n > 0 {
		name = fmt.Sprintf("%s + %d others", name, n)
	}

	switch first.Category {
	case registry.CategoryFuture:
		return fmt.Sprintf("🔮 Future Update Alert: %s %s Planned", name, first.Version)
	case registry.CategoryConfidenceUpdate:
		return fmt.Sprintf("📈 Confidence Update: %s %s (%d%% → %d%%)",
			name, first.Version, first.OldConfidence, first.Confidence)
	default:
		return fmt.Sprintf("%s %s Released", name, first.Version)
	}
}

// mailCategory labels the digest for the mailer backend: future-only
// batches are tagged separately from everything else.
func mailCategory(events []engine.Event) string {
	for _, ev := range events {
		if ev.Category != registry.CategoryFuture && ev.Category != registry.CategoryConfidenceUpdate {
			return CategoryReleasedMail
		}
	}
	return CategoryFutureMail
}

// categoryLabel formats a category token for display.
func categoryLabel(category string) string {
	switch category {
	case registry.CategoryMajor:
		return "Major"
	case registry.CategoryMinor:
		return "Minor"
	case registry.CategoryFuture:
		return "Future"
	case registry.CategoryConfidenceUpdate:
		return "Confidence Update"
	case "":
		return "Update"
	default:
		return strings.ToUpper(category[:1]) + category[1:]
	}
}
