package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Release is one entry in a library's release history, unique on
// (library, version). Summary, source and date are refreshed on every
// re-detection because upstream summaries improve between polls.
type Release struct {
	ID          int64
	LibraryID   int64
	Version     string
	ReleaseDate *time.Time
	Summary     string
	SourceURL   string
	IsSecurity  bool
}

// UpsertRelease inserts or refreshes a release record and returns its
// row ID along with whether it was newly created.
func (c queries) UpsertRelease(libraryID int64, version string, releaseDate *time.Time, summary, sourceURL string) (int64, bool, error) {
	res, err := c.q.Exec(`
		INSERT INTO releases (library_id, version, release_date, summary, source_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(library_id, version) DO NOTHING
	`, libraryID, version, nullTime(releaseDate), summary, sourceURL)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert release %d/%s: %w", libraryID, version, err)
	}

	n, _ := res.RowsAffected()
	created := n > 0

	if !created {
		// Refresh-on-duplicate is intentional: summaries may improve
		// between polls.
		_, err = c.q.Exec(`
			UPDATE releases
			SET release_date = ?, summary = ?, source_url = ?, updated_at = CURRENT_TIMESTAMP
			WHERE library_id = ? AND version = ?
		`, nullTime(releaseDate), summary, sourceURL, libraryID, version)
		if err != nil {
			return 0, false, fmt.Errorf("failed to refresh release %d/%s: %w", libraryID, version, err)
		}
	}

	var id int64
	err = c.q.QueryRow(`SELECT id FROM releases WHERE library_id = ? AND version = ?`, libraryID, version).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get release ID: %w", err)
	}
	return id, created, nil
}

// GetRelease retrieves a release by library and version.
func (c queries) GetRelease(libraryID int64, version string) (*Release, error) {
	r := &Release{}
	var date sql.NullTime
	err := c.q.QueryRow(`
		SELECT id, library_id, version, release_date, summary, source_url, is_security
		FROM releases WHERE library_id = ? AND version = ?
	`, libraryID, version).Scan(&r.ID, &r.LibraryID, &r.Version, &date, &r.Summary, &r.SourceURL, &r.IsSecurity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	if date.Valid {
		r.ReleaseDate = &date.Time
	}
	return r, nil
}

// ReleasesByLibrary lists a library's release history, newest first.
func (c queries) ReleasesByLibrary(libraryID int64) ([]Release, error) {
	rows, err := c.q.Query(`
		SELECT id, library_id, version, release_date, summary, source_url, is_security
		FROM releases WHERE library_id = ? ORDER BY id DESC
	`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer rows.Close()

	var releases []Release
	for rows.Next() {
		var r Release
		var date sql.NullTime
		if err := rows.Scan(&r.ID, &r.LibraryID, &r.Version, &date, &r.Summary, &r.SourceURL, &r.IsSecurity); err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		if date.Valid {
			r.ReleaseDate = &date.Time
		}
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

// nullTime converts an optional time into a driver-friendly value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
