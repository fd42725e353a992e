package oracle

import "time"

// Analysis is the oracle's normalized verdict on a library's upstream
// state. Exactly one of the released/future interpretations applies:
// when Released is false the version is an announced plan and Category
// is always "future".
type Analysis struct {
	// UpdateAvailable reports whether anything newer than the current
	// version was found at all
	UpdateAvailable bool
	// LatestVersion is the cleaned version string
	LatestVersion string
	// Released reports whether LatestVersion has actually shipped
	Released bool
	// Category is "major", "minor" or "future"
	Category string
	// Confidence is 0-100; only meaningful for future versions
	Confidence int
	// ReleaseDate is the published date, when known
	ReleaseDate *time.Time
	// ExpectedDate is the announced target date for future versions
	ExpectedDate *time.Time
	// Summary describes what changed or what is planned
	Summary string
	// Features lists announced highlights for future versions
	Features string
	// SourceURL points at the supporting evidence
	SourceURL string
}

// Hit is a single web-search result used as analysis evidence.
type Hit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}
