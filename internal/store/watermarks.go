package store

import (
	"database/sql"
	"fmt"
)

// Watermark records the last version a project was notified about for a
// library, unique on (project, library). Re-detecting the watermark
// version must not re-notify.
type Watermark struct {
	ID          int64
	Project     string
	Library     string
	Version     string
	Category    string
	ReleaseDate string
	Summary     string
	Source      string
}

// GetWatermark retrieves the watermark for a (project, library) pair.
func (c queries) GetWatermark(project, library string) (*Watermark, error) {
	w := &Watermark{}
	err := c.q.QueryRow(`
		SELECT id, project, library, version, category, release_date, summary, source
		FROM watermarks WHERE project = ? AND library = ?
	`, project, library).Scan(&w.ID, &w.Project, &w.Library, &w.Version, &w.Category, &w.ReleaseDate, &w.Summary, &w.Source)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watermark %s/%s: %w", project, library, err)
	}
	return w, nil
}

// SaveWatermark inserts or updates a watermark.
func (c queries) SaveWatermark(w *Watermark) error {
	_, err := c.q.Exec(`
		INSERT INTO watermarks (project, library, version, category, release_date, summary, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, library) DO UPDATE SET
			version = excluded.version,
			category = excluded.category,
			release_date = excluded.release_date,
			summary = excluded.summary,
			source = excluded.source,
			updated_at = CURRENT_TIMESTAMP
	`, w.Project, w.Library, w.Version, w.Category, w.ReleaseDate, w.Summary, w.Source)
	if err != nil {
		return fmt.Errorf("failed to save watermark %s/%s: %w", w.Project, w.Library, err)
	}
	return nil
}

// CountWatermarks counts watermark rows, optionally filtered by a
// library-name substring.
func (c queries) CountWatermarks(libraryFilter string) (int, error) {
	var n int
	var err error
	if libraryFilter == "" {
		err = c.q.QueryRow(`SELECT COUNT(*) FROM watermarks`).Scan(&n)
	} else {
		err = c.q.QueryRow(`SELECT COUNT(*) FROM watermarks WHERE library LIKE ?`, "%"+libraryFilter+"%").Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count watermarks: %w", err)
	}
	return n, nil
}

// DeleteWatermarks removes watermark rows, optionally filtered by a
// library-name substring. Administrative use only: the next pass will
// re-notify for anything currently newer.
func (c queries) DeleteWatermarks(libraryFilter string) (int64, error) {
	var res sql.Result
	var err error
	if libraryFilter == "" {
		res, err = c.q.Exec(`DELETE FROM watermarks`)
	} else {
		res, err = c.q.Exec(`DELETE FROM watermarks WHERE library LIKE ?`, "%"+libraryFilter+"%")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete watermarks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
