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

	"github.com/RaghavRD/library-tracker/internal/semver"
)

// DefaultSearchEndpoint is the serper.dev search API.
const DefaultSearchEndpoint = "https://google.serper.dev/search"

// Error variables for search errors
var (
	// ErrSearchFailed is returned when the search backend rejects a query
	ErrSearchFailed = errors.New("search request failed")
)

// versionMentionRegex finds version-like strings in titles and snippets
var versionMentionRegex = regexp.MustCompile(`\b\d+(\.\d+){1,2}\b`)

// releaseKeywords mark a search hit as release-related
var releaseKeywords = []string{"release", "version", "changelog", "notes", "update", "roadmap"}

// SearchClient queries the web-search backend for release evidence
// about a library. Several facet queries are merged into one hit list.
type SearchClient struct {
	apiKey   string
	endpoint string
	httpc    *RetryableHTTPClient
}

// NewSearchClient creates a search client. An empty endpoint uses the
// default backend.
func NewSearchClient(apiKey, endpoint string, httpc *RetryableHTTPClient) *SearchClient {
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	if httpc == nil {
		httpc = NewRetryableHTTPClient()
	}
	return &SearchClient{apiKey: apiKey, endpoint: endpoint, httpc: httpc}
}

// searchResponse is the subset of the backend response we consume.
type searchResponse struct {
	Organic []Hit `json:"organic"`
	News    []Hit `json:"news"`
}

// facetQueries builds the search queries for one library. Each facet
// targets a different slice of the release ecosystem; the last one
// covers announced-but-unreleased plans.
func facetQueries(library string) []string {
	return []string{
		fmt.Sprintf("%s latest release version site:pypi.org OR site:npmjs.com OR site:rubygems.org", library),
		fmt.Sprintf("%s changelog OR release notes site:github.com OR site:gitlab.com", library),
		fmt.Sprintf("%s new features OR breaking changes site:dev.to OR site:medium.com", library),
		fmt.Sprintf("%s documentation site:readthedocs.io OR official site", library),
		fmt.Sprintf("%s upcoming version roadmap release date", library),
	}
}

// Search runs the facet queries and returns release-related hits. When
// currentVersion is non-empty, hits are kept only if they mention a
// version above it; a facet failure degrades the result instead of
// failing the whole lookup.
func (s *SearchClient) Search(ctx context.Context, library, currentVersion string) ([]Hit, error) {
	var merged []Hit
	var failures int

	for _, query := range facetQueries(library) {
		hits, err := s.runQuery(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("search facet failed for %s: %v", library, err)
			failures++
			continue
		}
		merged = append(merged, hits...)
	}

	if failures == len(facetQueries(library)) {
		return nil, fmt.Errorf("%w: all facets failed for %s", ErrSearchFailed, library)
	}

	return filterHits(merged, currentVersion), nil
}

// runQuery executes a single facet query.
func (s *SearchClient) runQuery(ctx context.Context, query string) ([]Hit, error) {
	payload := map[string]any{"q": query, "num": 10, "gl": "us"}
	headers := map[string]string{"X-API-KEY": s.apiKey}

	resp, err := s.httpc.PostJSON(ctx, s.endpoint, payload, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return append(sr.Organic, sr.News...), nil
}

// filterHits keeps release-related hits, and when currentVersion is
// known, only hits mentioning something above it.
func filterHits(hits []Hit, currentVersion string) []Hit {
	var kept []Hit
	for _, h := range hits {
		text := strings.ToLower(h.Title + " " + h.Snippet + " " + h.Link)

		related := false
		for _, kw := range releaseKeywords {
			if strings.Contains(text, kw) {
				related = true
				break
			}
		}
		if !related {
			continue
		}

		if currentVersion == "" {
			kept = append(kept, h)
			continue
		}

		for _, mention := range versionMentionRegex.FindAllString(h.Title+" "+h.Snippet, -1) {
			if semver.Newer(mention, currentVersion) {
				kept = append(kept, h)
				break
			}
		}
	}
	return kept
}

// LatestCandidate extracts the highest version mentioned across the
// hits that is above currentVersion. Returns an empty string when no
// hit mentions a higher version.
func LatestCandidate(hits []Hit, currentVersion string) string {
	var candidates []string
	for _, h := range hits {
		for _, mention := range versionMentionRegex.FindAllString(h.Title+" "+h.Snippet, -1) {
			if currentVersion == "" {
				candidates = append(candidates, mention)
				continue
			}
			if semver.Newer(mention, currentVersion) {
				candidates = append(candidates, mention)
			}
		}
	}
	return semver.Newest(candidates)
}
