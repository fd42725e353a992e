package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Library is a canonical, deduplicated library record. Many component
// declarations across projects may reference the same library.
type Library struct {
	ID            int64
	Key           string
	Name          string
	Kind          string
	LatestVersion string // empty when never resolved
	LastCheckedAt *time.Time
}

// GetOrCreateLibrary returns the library with the given normalized key,
// creating it if absent. Reports whether a new row was created.
func (c queries) GetOrCreateLibrary(key, name, kind string) (*Library, bool, error) {
	lib, err := c.GetLibrary(key)
	if err == nil {
		return lib, false, nil
	}
	if err != ErrNotFound {
		return nil, false, err
	}

	res, err := c.q.Exec(`
		INSERT INTO libraries (key, name, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, name, kind)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create library %q: %w", key, err)
	}

	n, _ := res.RowsAffected()
	lib, err = c.GetLibrary(key)
	if err != nil {
		return nil, false, err
	}
	return lib, n > 0, nil
}

// GetLibrary retrieves a library by its normalized key.
func (c queries) GetLibrary(key string) (*Library, error) {
	lib := &Library{}
	var checked sql.NullTime
	err := c.q.QueryRow(`
		SELECT id, key, name, kind, COALESCE(latest_version, ''), last_checked_at
		FROM libraries WHERE key = ?
	`, key).Scan(&lib.ID, &lib.Key, &lib.Name, &lib.Kind, &lib.LatestVersion, &checked)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get library %q: %w", key, err)
	}
	if checked.Valid {
		lib.LastCheckedAt = &checked.Time
	}
	return lib, nil
}

// SetLibraryLatest records the newest known version for a library along
// with the check timestamp.
func (c queries) SetLibraryLatest(key, version string, checkedAt time.Time) error {
	_, err := c.q.Exec(`
		UPDATE libraries
		SET latest_version = ?, last_checked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE key = ?
	`, version, checkedAt, key)
	if err != nil {
		return fmt.Errorf("failed to update library %q: %w", key, err)
	}
	return nil
}

// TouchLibrary records a check timestamp without changing the version.
func (c queries) TouchLibrary(key string, checkedAt time.Time) error {
	_, err := c.q.Exec(`
		UPDATE libraries SET last_checked_at = ? WHERE key = ?
	`, checkedAt, key)
	if err != nil {
		return fmt.Errorf("failed to touch library %q: %w", key, err)
	}
	return nil
}

// ActiveLibraries returns every library referenced by at least one live
// component declaration. Libraries orphaned by component removal are
// excluded from polling but their rows and history are retained.
func (c queries) ActiveLibraries() ([]Library, error) {
	rows, err := c.q.Query(`
		SELECT DISTINCT l.id, l.key, l.name, l.kind, COALESCE(l.latest_version, ''), l.last_checked_at
		FROM libraries l
		JOIN components comp ON comp.library_id = l.id
		ORDER BY l.key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active libraries: %w", err)
	}
	defer rows.Close()

	var libs []Library
	for rows.Next() {
		var lib Library
		var checked sql.NullTime
		if err := rows.Scan(&lib.ID, &lib.Key, &lib.Name, &lib.Kind, &lib.LatestVersion, &checked); err != nil {
			return nil, fmt.Errorf("failed to scan library: %w", err)
		}
		if checked.Valid {
			lib.LastCheckedAt = &checked.Time
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}
