// Package semver provides version parsing and comparison for library
// version strings reported by upstream sources. Version strings arrive
// as untrusted free text, so parsing is tolerant and comparison has an
// explicit "incomparable" result instead of panicking or guessing.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Error variables for version parsing errors
var (
	// ErrEmptyVersion is returned when the version string is empty
	ErrEmptyVersion = errors.New("empty version string")
	// ErrDateLikeVersion is returned when the leading component looks like a year
	ErrDateLikeVersion = errors.New("version looks like a date, not a version")
	// ErrMalformedVersion is returned when the version string cannot be parsed
	ErrMalformedVersion = errors.New("malformed version string")
)

// maxLeadingComponent is the heuristic cutoff above which a leading
// numeric component is treated as a year (e.g. "2024.01") rather than
// a version number.
const maxLeadingComponent = 200

// Pre-release suffix priorities (lower = earlier in release cycle)
var suffixPriority = map[string]int{
	"alpha": -4,
	"beta":  -3,
	"pre":   -2,
	"rc":    -1,
	"":      0, // release version
	"p":     1, // patch
}

// suffixRegex matches pre-release suffixes like -rc1, .beta2, _alpha, -pre
var suffixRegex = regexp.MustCompile(`[._-](alpha|beta|pre|rc|p)\.?(\d*)$`)

// cleanRegex strips everything that cannot appear in a version number
var cleanRegex = regexp.MustCompile(`[^0-9.\-]`)

// Result is the outcome of comparing two version strings.
type Result int

// Comparison results
const (
	// Less means a is lower than b
	Less Result = iota - 1
	// Equal means a and b denote the same version after normalization
	Equal
	// Greater means a is higher than b
	Greater
	// Incomparable means at least one operand failed to parse; callers
	// must not short-circuit a decision on this result
	Incomparable
)

// String returns a human-readable name for the result.
func (r Result) String() string {
	switch r {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "incomparable"
	}
}

// Version is a parsed version string.
type Version struct {
	// Nums holds the numeric components (1.2.3 -> [1, 2, 3])
	Nums []int
	// Suffix is the pre-release suffix type ("alpha", "beta", "pre", "rc", "p")
	Suffix string
	// SuffixNum is the numeric part of the suffix (rc2 -> 2)
	SuffixNum int
}

// Parse parses a semantic-version-like string. Leading "v" prefixes and
// surrounding whitespace are tolerated. Strings whose leading numeric
// component exceeds 200 are rejected as dates.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return Version{}, ErrEmptyVersion
	}

	v := Version{}
	if matches := suffixRegex.FindStringSubmatch(s); matches != nil {
		v.Suffix = matches[1]
		if matches[2] != "" {
			v.SuffixNum, _ = strconv.Atoi(matches[2])
		}
		s = suffixRegex.ReplaceAllString(s, "")
	}

	parts := strings.Split(s, ".")
	v.Nums = make([]int, 0, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("%w: negative component in %q", ErrMalformedVersion, s)
		}
		if i == 0 && n > maxLeadingComponent {
			return Version{}, fmt.Errorf("%w: %q", ErrDateLikeVersion, s)
		}
		v.Nums = append(v.Nums, n)
	}

	return v, nil
}

// Valid reports whether s parses as a version.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Compare compares two version strings. Missing trailing components
// compare as zero, so "2.1" and "2.1.0" are Equal. If either operand
// fails to parse, the result is Incomparable.
func Compare(a, b string) Result {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	if errA != nil || errB != nil {
		return Incomparable
	}
	return compareParsed(va, vb)
}

func compareParsed(a, b Version) Result {
	if cmp := compareNums(a.Nums, b.Nums); cmp != 0 {
		return Result(cmp)
	}

	pa := suffixPriority[a.Suffix]
	pb := suffixPriority[b.Suffix]
	if pa != pb {
		if pa < pb {
			return Less
		}
		return Greater
	}

	if a.SuffixNum != b.SuffixNum {
		if a.SuffixNum < b.SuffixNum {
			return Less
		}
		return Greater
	}

	return Equal
}

// compareNums compares numeric component slices, padding the shorter
// one with zeros.
func compareNums(a, b []int) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// Newer reports whether a is decisively newer than b. Incomparable
// operands report false.
func Newer(a, b string) bool {
	return Compare(a, b) == Greater
}

// Newest returns the highest parseable version among candidates,
// discarding malformed and date-like strings. Returns "" when no
// candidate parses.
func Newest(candidates []string) string {
	best := ""
	var bestParsed Version
	for _, c := range candidates {
		v, err := Parse(c)
		if err != nil {
			continue
		}
		if best == "" || compareParsed(v, bestParsed) == Greater {
			best = c
			bestParsed = v
		}
	}
	return best
}

// Clean normalizes a raw version string reported by an upstream source:
// strips "version"/"v" prefixes and any characters outside digits, dots
// and dashes, and truncates to at most three numeric components.
func Clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "version", "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	s = cleanRegex.ReplaceAllString(s, "")

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	kept := parts[:0]
	for _, p := range parts {
		p = strings.Trim(p, "-")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
