package registry

import "strings"

// Category labels attached to update events. "future" marks a
// not-yet-released version; "confidence_update" marks a re-notification
// after a significant confidence increase on a tracked future update.
const (
	CategoryMajor            = "major"
	CategoryMinor            = "minor"
	CategoryFuture           = "future"
	CategoryConfidenceUpdate = "confidence_update"
)

// PrefSet is a project's parsed notification preference. It is built
// once per project instead of re-scanning the raw string per check.
type PrefSet struct {
	major  bool
	minor  bool
	future bool
	all    bool
}

// ParsePrefs parses a raw preference string such as "major, minor" or
// "major minor future" or "all". Unknown tokens are ignored. An empty
// string defaults to released updates only (major and minor).
func ParsePrefs(raw string) PrefSet {
	var p PrefSet
	tokens := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	for _, tok := range tokens {
		switch tok {
		case CategoryMajor:
			p.major = true
		case CategoryMinor:
			p.minor = true
		case CategoryFuture:
			p.future = true
		case "all":
			p.all = true
		}
	}
	if !p.major && !p.minor && !p.future && !p.all {
		p.major = true
		p.minor = true
	}
	return p
}

// AllowsCategory reports whether a released-path category passes the
// project's preference filter. Only the exact single-token preferences
// filter: a project subscribed to just "major" is not told about minor
// releases and vice versa. Any broader set, including a future-only
// subscription, still hears about every shipped release.
func (p PrefSet) AllowsCategory(category string) bool {
	switch {
	case p.exactly(CategoryMajor):
		return category == CategoryMajor
	case p.exactly(CategoryMinor):
		return category == CategoryMinor
	default:
		return true
	}
}

// exactly reports whether the set holds the single given token.
func (p PrefSet) exactly(category string) bool {
	if p.all {
		return false
	}
	switch category {
	case CategoryMajor:
		return p.major && !p.minor && !p.future
	case CategoryMinor:
		return p.minor && !p.major && !p.future
	default:
		return false
	}
}

// Future reports whether the project opted in to future-update
// notifications.
func (p PrefSet) Future() bool {
	return p.all || p.future
}

// String renders the canonical form of the preference set.
func (p PrefSet) String() string {
	if p.all {
		return "all"
	}
	var parts []string
	if p.major {
		parts = append(parts, CategoryMajor)
	}
	if p.minor {
		parts = append(parts, CategoryMinor)
	}
	if p.future {
		parts = append(parts, CategoryFuture)
	}
	return strings.Join(parts, ", ")
}
