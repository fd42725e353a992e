package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/RaghavRD/library-tracker/internal/semver"
)

// Error variables for page probe errors
var (
	// ErrInvalidXPath is returned when the XPath expression syntax is invalid
	ErrInvalidXPath = errors.New("invalid XPath expression")
	// ErrNoElementFound is returned when no element matches the selector/xpath
	ErrNoElementFound = errors.New("no element found matching selector")
	// ErrNoSelectorOrXPath is returned when neither selector nor xpath is provided
	ErrNoSelectorOrXPath = errors.New("either selector or xpath must be provided")
	// ErrInvalidRegexPattern is returned when the regex pattern does not compile
	ErrInvalidRegexPattern = errors.New("invalid regex pattern")
	// ErrRegexNoMatch is returned when the regex pattern matches nothing
	ErrRegexNoMatch = errors.New("regex pattern did not match")
	// ErrNoVersionFound is returned when the page yields no version text
	ErrNoVersionFound = errors.New("no version found on page")
	// ErrPageFetchFailed is returned for non-200 page responses
	ErrPageFetchFailed = errors.New("page fetch failed")
)

// PageProbe extracts a version candidate from an upstream release page
// using a CSS selector or XPath expression, with optional regex
// post-processing. It corroborates search evidence with what the
// project's own site currently says.
type PageProbe struct {
	// Selector is the CSS selector for extracting the version text
	Selector string
	// XPath is the XPath expression (alternative to Selector)
	XPath string
	// Regex is an optional pattern applied to the extracted text
	Regex string

	httpc    *RetryableHTTPClient
	compiled *regexp.Regexp
}

// NewPageProbe creates a probe. At least one of selector or xpath must
// be provided.
func NewPageProbe(selector, xpath, regex string, httpc *RetryableHTTPClient) (*PageProbe, error) {
	if selector == "" && xpath == "" {
		return nil, ErrNoSelectorOrXPath
	}
	if httpc == nil {
		httpc = NewRetryableHTTPClient()
	}

	p := &PageProbe{Selector: selector, XPath: xpath, Regex: regex, httpc: httpc}
	if regex != "" {
		re, err := regexp.Compile(regex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegexPattern, err)
		}
		p.compiled = re
	}
	return p, nil
}

// Extract fetches the page and returns the cleaned version it mentions.
func (p *PageProbe) Extract(ctx context.Context, url string) (string, error) {
	resp, err := p.httpc.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d for %s", ErrPageFetchFailed, resp.StatusCode, url)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	return p.Parse(content)
}

// Parse extracts a version string from HTML content. It uses the CSS
// selector if provided, otherwise the XPath expression.
func (p *PageProbe) Parse(content []byte) (string, error) {
	if p.Selector == "" && p.XPath == "" {
		return "", ErrNoSelectorOrXPath
	}

	var text string
	var err error
	if p.Selector != "" {
		text, err = p.parseWithCSS(content)
	} else {
		text, err = p.parseWithXPath(content)
	}
	if err != nil {
		return "", err
	}

	if p.Regex != "" {
		text, err = p.applyRegex(text)
		if err != nil {
			return "", err
		}
	}

	cleaned := semver.Clean(strings.TrimSpace(text))
	if cleaned == "" {
		return "", ErrNoVersionFound
	}
	return cleaned, nil
}

// parseWithCSS extracts the text content of the first matching element.
func (p *PageProbe) parseWithCSS(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	selection := doc.Find(p.Selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoElementFound, p.Selector)
	}

	return selection.First().Text(), nil
}

// parseWithXPath extracts the text content of the first matching node.
func (p *PageProbe) parseWithXPath(content []byte) (string, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	nodes, err := htmlquery.QueryAll(doc, p.XPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidXPath, err)
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoElementFound, p.XPath)
	}

	return htmlquery.InnerText(nodes[0]), nil
}

// applyRegex applies the configured pattern to the text. Returns the
// first capture group if present, otherwise the full match.
func (p *PageProbe) applyRegex(text string) (string, error) {
	if p.compiled == nil {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidRegexPattern, err)
		}
		p.compiled = re
	}

	matches := p.compiled.FindStringSubmatch(text)
	if matches == nil {
		return "", fmt.Errorf("%w: pattern %q", ErrRegexNoMatch, p.Regex)
	}

	if len(matches) > 1 && matches[1] != "" {
		return matches[1], nil
	}
	if matches[0] != "" {
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: pattern matched empty string", ErrRegexNoMatch)
}
