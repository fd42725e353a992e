package oracle

import (
	"context"
	"time"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/semver"
)

var log = logger.Named("oracle")

// Resolver is the interface consumed by the check pass: given a library
// and the lowest version any project currently has, report upstream
// state.
type Resolver interface {
	Resolve(ctx context.Context, library, currentVersion string) (*Analysis, error)
}

// Oracle is the production Resolver: throttled search plus LLM
// analysis, corroborated against the release page the analysis cites.
type Oracle struct {
	search   *SearchClient
	analyzer *Analyzer
	throttle *Throttle
	probe    *PageProbe
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithThrottle replaces the default throttle.
func WithThrottle(t *Throttle) Option {
	return func(o *Oracle) { o.throttle = t }
}

// WithSearchClient replaces the search client (useful for testing).
func WithSearchClient(s *SearchClient) Option {
	return func(o *Oracle) { o.search = s }
}

// WithAnalyzer replaces the analyzer (useful for testing).
func WithAnalyzer(a *Analyzer) Option {
	return func(o *Oracle) { o.analyzer = a }
}

// WithPageProbe replaces the source-page probe. Nil disables probing.
func WithPageProbe(p *PageProbe) Option {
	return func(o *Oracle) { o.probe = p }
}

// New builds an Oracle from configuration.
func New(cfg *config.Config, opts ...Option) *Oracle {
	httpc := NewRetryableHTTPClient()
	o := &Oracle{
		search:   NewSearchClient(cfg.Search.APIKey, cfg.Search.Endpoint, httpc),
		analyzer: NewAnalyzer(cfg.Analyzer.APIKey, cfg.Analyzer.Endpoint, cfg.Analyzer.Model, httpc),
		throttle: NewThrottle(time.Duration(cfg.Check.ThrottleSeconds) * time.Second),
		probe:    headlineProbe(httpc),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// headlineProbe watches the headline of a release page for a version
// mention.
func headlineProbe(httpc *RetryableHTTPClient) *PageProbe {
	p, err := NewPageProbe("h1, h2, title", "", `(\d+(?:\.\d+){1,2})`, httpc)
	if err != nil {
		// static selector and pattern
		panic(err)
	}
	return p
}

// Resolve looks up a library's upstream state. The search evidence is
// gathered first; its highest version mention is fed to the analyzer as
// a cross-check hint.
func (o *Oracle) Resolve(ctx context.Context, library, currentVersion string) (*Analysis, error) {
	if err := o.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	hits, err := o.search.Search(ctx, library, currentVersion)
	if err != nil {
		return nil, err
	}

	candidate := LatestCandidate(hits, currentVersion)
	log.Debug("%s search yielded %d hits, candidate %q", library, len(hits), candidate)

	a, err := o.analyzer.Analyze(ctx, library, currentVersion, hits, candidate)
	if err != nil {
		return nil, err
	}
	o.corroborate(ctx, library, a)
	return a, nil
}

// corroborate probes the release page the analysis cites. A higher
// version on the project's own page beats the model's answer; probe
// failures are soft and leave the analysis untouched.
func (o *Oracle) corroborate(ctx context.Context, library string, a *Analysis) {
	if o.probe == nil || !a.Released || a.SourceURL == "" {
		return
	}

	probed, err := o.probe.Extract(ctx, a.SourceURL)
	if err != nil {
		log.Debug("%s page probe skipped: %v", library, err)
		return
	}
	if semver.Valid(probed) && (a.LatestVersion == "" || semver.Newer(probed, a.LatestVersion)) {
		log.Debug("%s source page reports %s, adopting over %q", library, probed, a.LatestVersion)
		a.LatestVersion = probed
	}
}
