package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/RaghavRD/library-tracker/internal/semver"
)

// DefaultAnalyzerEndpoint is the Groq OpenAI-compatible completions API.
const DefaultAnalyzerEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Error variables for analyzer errors
var (
	// ErrAnalysisFailed is returned when the analysis backend rejects a request
	ErrAnalysisFailed = errors.New("analysis request failed")
	// ErrEmptyAnalysis is returned when no JSON verdict could be extracted
	ErrEmptyAnalysis = errors.New("no analysis in model response")
)

// jsonObjectRegex salvages the first JSON object from a reply that
// wraps it in prose or markdown fences
var jsonObjectRegex = regexp.MustCompile(`(?s)\{.*\}`)

// majorSignals mark a summary as describing a breaking release
var majorSignals = []string{
	"breaking", "deprecated", "security", "cve", "vulnerability",
	"removed", "migration", "refactor", "major", "incompatible",
	"upgrade required", "critical",
}

const systemPrompt = "You are a precise AI release analyzer. " +
	"You always respond in valid JSON ONLY (no markdown, no explanations). " +
	"Your task: extract and summarize the most relevant version info from the provided search results. " +
	"CRITICAL: ALWAYS prioritize the NEWEST version from the most recent and official sources. " +
	"Ignore results older than 6 months unless no recent information exists. " +
	"If multiple versions are found, return the HIGHEST version number."

const schemaHint = `Return JSON like this:
{
  "version": "<latest_version_number>",
  "category": "major|minor|future",
  "is_released": true|false,
  "confidence": 0-100,
  "expected_date": "YYYY-MM-DD or empty",
  "summary": "3-4 concise bullet points or sentences about new features or changes",
  "release_date": "YYYY-MM-DD or empty if unknown",
  "source": "<official URL>"
}

CRITICAL RULES:
1. Use "future" category ONLY if the version is NOT yet officially released (beta, RC, planned, announced, roadmap).
2. Use "major" or "minor" ONLY for officially released stable versions.
3. Set "is_released" to false for future/planned versions, true for released versions.
4. Set "expected_date" (YYYY-MM-DD format) for future versions if mentioned in sources.
5. Set "release_date" (YYYY-MM-DD format) for released versions only.
6. Provide "confidence" score (0-100) based on source reliability: official maintainer sites score highest, community posts lowest.
7. If you find BOTH a released version AND a future version, return the RELEASED version and mention the future one in the summary.
8. Cross-check your detected version against the candidate hint provided. If the hint shows a higher version, use that version instead.`

// Analyzer turns search evidence into a structured Analysis using a
// chat-completions model.
type Analyzer struct {
	apiKey   string
	endpoint string
	model    string
	httpc    *RetryableHTTPClient
}

// NewAnalyzer creates an analyzer. Empty endpoint and model fall back
// to the defaults.
func NewAnalyzer(apiKey, endpoint, model string, httpc *RetryableHTTPClient) *Analyzer {
	if endpoint == "" {
		endpoint = DefaultAnalyzerEndpoint
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	if httpc == nil {
		httpc = NewRetryableHTTPClient()
	}
	return &Analyzer{apiKey: apiKey, endpoint: endpoint, model: model, httpc: httpc}
}

// rawAnalysis is the model's verdict before normalization. Loose types
// absorb the model's habit of quoting numbers and booleans.
type rawAnalysis struct {
	Version      string          `json:"version"`
	Category     string          `json:"category"`
	IsReleased   json.RawMessage `json:"is_released"`
	Confidence   json.RawMessage `json:"confidence"`
	ExpectedDate string          `json:"expected_date"`
	Summary      string          `json:"summary"`
	ReleaseDate  string          `json:"release_date"`
	Source       string          `json:"source"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze asks the model about a library given search evidence and the
// highest version candidate the search itself surfaced.
func (a *Analyzer) Analyze(ctx context.Context, library, currentVersion string, hits []Hit, candidate string) (*Analysis, error) {
	prompt := a.buildPrompt(library, currentVersion, hits, candidate)

	payload := map[string]any{
		"model": a.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
	}
	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}

	resp, err := a.httpc.PostJSON(ctx, a.endpoint, payload, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAnalysisFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, ErrEmptyAnalysis
	}

	raw, err := extractJSON(cr.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return normalize(library, raw, candidate), nil
}

// buildPrompt assembles the user message from the evidence.
func (a *Analyzer) buildPrompt(library, currentVersion string, hits []Hit, candidate string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following search results for the library '%s'. ", library)
	b.WriteString("Find the latest release version, update type (major/minor), date, and summary.\n\n")
	b.WriteString(schemaHint)
	b.WriteString("\n\n")
	if currentVersion != "" {
		fmt.Fprintf(&b, "Currently installed version: %s\n", currentVersion)
	}
	if candidate == "" {
		candidate = "unknown"
	}
	fmt.Fprintf(&b, "Latest version hint from search: %s\n\n", candidate)

	b.WriteString("Search Results:\n")
	evidence, _ := json.MarshalIndent(hits, "", "  ")
	if len(evidence) > 12000 {
		evidence = evidence[:12000]
	}
	b.Write(evidence)
	return b.String()
}

// extractJSON parses the model reply, salvaging an embedded JSON object
// when the reply is not pure JSON.
func extractJSON(content string) (*rawAnalysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(content), &raw); err == nil {
		return &raw, nil
	}

	m := jsonObjectRegex.FindString(content)
	if m == "" {
		return nil, ErrEmptyAnalysis
	}
	if err := json.Unmarshal([]byte(m), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyAnalysis, err)
	}
	return &raw, nil
}

// normalize turns the model's loose verdict into a trustworthy
// Analysis: cleans the version, clamps confidence, forces the future
// category for unreleased versions, and cross-checks against the
// search candidate.
func normalize(library string, raw *rawAnalysis, candidate string) *Analysis {
	a := &Analysis{
		LatestVersion: semver.Clean(raw.Version),
		Released:      parseLooseBool(raw.IsReleased, true),
		Confidence:    parseLooseInt(raw.Confidence, 50),
		Summary:       strings.TrimSpace(raw.Summary),
		Features:      strings.TrimSpace(raw.Summary),
		SourceURL:     strings.TrimSpace(raw.Source),
		ReleaseDate:   parseDate(raw.ReleaseDate),
		ExpectedDate:  parseDate(raw.ExpectedDate),
	}

	if a.Confidence < 0 || a.Confidence > 100 {
		a.Confidence = 50
	}

	cat := strings.ToLower(strings.TrimSpace(raw.Category))
	switch {
	case !a.Released:
		// Unreleased versions are future regardless of what the model said
		cat = "future"
	case cat != "major" && cat != "minor" && cat != "future":
		cat = coerceCategory(a.Summary)
	}
	a.Category = cat

	// Fall back to the search candidate when the model found nothing
	if a.LatestVersion == "" {
		a.LatestVersion = candidate
	}

	// Cross-check: the search evidence outranks the model when it shows
	// a strictly higher version, at the price of some confidence.
	if a.LatestVersion != "" && candidate != "" {
		if semver.Valid(a.LatestVersion) && semver.Valid(candidate) {
			if semver.Newer(candidate, a.LatestVersion) {
				log.Warn("[%s] version mismatch: model detected %s, search found %s; using higher",
					library, a.LatestVersion, candidate)
				a.LatestVersion = candidate
				a.Confidence = max(a.Confidence-10, 30)
			}
		} else if !semver.Valid(a.LatestVersion) && semver.Valid(candidate) {
			a.LatestVersion = candidate
		}
	}

	a.UpdateAvailable = a.LatestVersion != ""
	return a
}

// coerceCategory infers major/minor from textual cues.
func coerceCategory(text string) string {
	t := strings.ToLower(text)
	for _, signal := range majorSignals {
		if strings.Contains(t, signal) {
			return "major"
		}
	}
	return "minor"
}

// parseLooseBool accepts true/false, "true"/"yes"/"1" and friends.
func parseLooseBool(raw json.RawMessage, def bool) bool {
	if len(raw) == 0 {
		return def
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return def
}

// parseLooseInt accepts numbers and quoted numbers.
func parseLooseInt(raw json.RawMessage, def int) int {
	if len(raw) == 0 {
		return def
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err == nil {
			return n
		}
	}
	return def
}

// parseDate parses YYYY-MM-DD, returning nil for anything else.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
