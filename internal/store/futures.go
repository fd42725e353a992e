package store

import (
	"database/sql"
	"fmt"
	"time"
)

// FutureStatus is the lifecycle state of a future-update record.
type FutureStatus string

// Future-update lifecycle states
const (
	// StatusDetected means the version was seen in roadmap/announcement
	// material but is not yet released
	StatusDetected FutureStatus = "detected"
	// StatusConfirmed means the plan was corroborated by further sources
	StatusConfirmed FutureStatus = "confirmed"
	// StatusReleased means the version has since shipped and the record
	// was promoted onto a release record
	StatusReleased FutureStatus = "released"
	// StatusCancelled means the planned release was abandoned; set only
	// by administrative action, never inferred
	StatusCancelled FutureStatus = "cancelled"
)

// ValidFutureStatuses returns all valid lifecycle states.
func ValidFutureStatuses() []FutureStatus {
	return []FutureStatus{StatusDetected, StatusConfirmed, StatusReleased, StatusCancelled}
}

// IsValidFutureStatus checks if a status is valid.
func IsValidFutureStatus(s FutureStatus) bool {
	for _, valid := range ValidFutureStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// FutureUpdate tracks a detected but not-yet-released version, unique
// on (library, version). Records are mutated in place as confidence and
// details evolve, and only ever transition status, never disappear.
type FutureUpdate struct {
	ID                 int64
	Library            string
	Version            string
	Confidence         int
	PreviousConfidence *int
	ExpectedDate       *time.Time
	Features           string
	Source             string
	Status             FutureStatus
	NotificationSent   bool
	NotificationSentAt *time.Time
	ChangeReason       string
	PromotedReleaseID  *int64
}

// GetFuture retrieves the future-update record for (library, version).
func (c queries) GetFuture(library, version string) (*FutureUpdate, error) {
	f := &FutureUpdate{}
	var prevConf sql.NullInt64
	var expected, sentAt sql.NullTime
	var promoted sql.NullInt64
	var sent int
	err := c.q.QueryRow(`
		SELECT id, library, version, confidence, previous_confidence, expected_date,
		       features, source, status, notification_sent, notification_sent_at,
		       change_reason, promoted_release_id
		FROM future_updates WHERE library = ? AND version = ?
	`, library, version).Scan(
		&f.ID, &f.Library, &f.Version, &f.Confidence, &prevConf, &expected,
		&f.Features, &f.Source, &f.Status, &sent, &sentAt,
		&f.ChangeReason, &promoted,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get future update %s/%s: %w", library, version, err)
	}

	f.NotificationSent = sent != 0
	if prevConf.Valid {
		v := int(prevConf.Int64)
		f.PreviousConfidence = &v
	}
	if expected.Valid {
		f.ExpectedDate = &expected.Time
	}
	if sentAt.Valid {
		f.NotificationSentAt = &sentAt.Time
	}
	if promoted.Valid {
		f.PromotedReleaseID = &promoted.Int64
	}
	return f, nil
}

// CreateFuture inserts a new future-update record and fills in its ID.
func (c queries) CreateFuture(f *FutureUpdate) error {
	if !IsValidFutureStatus(f.Status) {
		f.Status = StatusDetected
	}
	res, err := c.q.Exec(`
		INSERT INTO future_updates
			(library, version, confidence, expected_date, features, source, status,
			 notification_sent, notification_sent_at, change_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.Library, f.Version, f.Confidence, nullTime(f.ExpectedDate), f.Features, f.Source,
		string(f.Status), boolInt(f.NotificationSent), nullTime(f.NotificationSentAt), f.ChangeReason)
	if err != nil {
		return fmt.Errorf("failed to create future update %s/%s: %w", f.Library, f.Version, err)
	}
	f.ID, _ = res.LastInsertId()
	return nil
}

// UpdateFuture persists mutable fields of an existing record.
func (c queries) UpdateFuture(f *FutureUpdate) error {
	var prevConf any
	if f.PreviousConfidence != nil {
		prevConf = *f.PreviousConfidence
	}
	_, err := c.q.Exec(`
		UPDATE future_updates
		SET confidence = ?, previous_confidence = ?, expected_date = ?, features = ?,
		    source = ?, status = ?, notification_sent = ?, notification_sent_at = ?,
		    change_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, f.Confidence, prevConf, nullTime(f.ExpectedDate), f.Features,
		f.Source, string(f.Status), boolInt(f.NotificationSent), nullTime(f.NotificationSentAt),
		f.ChangeReason, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update future update %s/%s: %w", f.Library, f.Version, err)
	}
	return nil
}

// PromoteFuture transitions the (library, version) record to released
// and links it to the release record it shipped as. Records already
// released are left alone. Reports whether a promotion happened.
func (c queries) PromoteFuture(library, version string, releaseID int64) (bool, error) {
	res, err := c.q.Exec(`
		UPDATE future_updates
		SET status = ?, promoted_release_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE library = ? AND version = ? AND status != ?
	`, string(StatusReleased), releaseID, library, version, string(StatusReleased))
	if err != nil {
		return false, fmt.Errorf("failed to promote future update %s/%s: %w", library, version, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CancelFuture transitions a record to cancelled. Administrative only.
func (c queries) CancelFuture(library, version, reason string) error {
	res, err := c.q.Exec(`
		UPDATE future_updates
		SET status = ?, change_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE library = ? AND version = ?
	`, string(StatusCancelled), reason, library, version)
	if err != nil {
		return fmt.Errorf("failed to cancel future update %s/%s: %w", library, version, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFutures returns future-update records ordered by confidence,
// optionally filtered by a library-name substring.
func (c queries) ListFutures(libraryFilter string) ([]FutureUpdate, error) {
	query := `
		SELECT library, version FROM future_updates
		WHERE library LIKE ? ORDER BY confidence DESC, updated_at DESC
	`
	rows, err := c.q.Query(query, "%"+libraryFilter+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list future updates: %w", err)
	}
	defer rows.Close()

	var keys []struct{ lib, ver string }
	for rows.Next() {
		var k struct{ lib, ver string }
		if err := rows.Scan(&k.lib, &k.ver); err != nil {
			return nil, fmt.Errorf("failed to scan future update: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	futures := make([]FutureUpdate, 0, len(keys))
	for _, k := range keys {
		f, err := c.GetFuture(k.lib, k.ver)
		if err != nil {
			return nil, err
		}
		futures = append(futures, *f)
	}
	return futures, nil
}

// CountFutures counts future-update rows, optionally filtered by a
// library-name substring.
func (c queries) CountFutures(libraryFilter string) (int, error) {
	var n int
	err := c.q.QueryRow(`SELECT COUNT(*) FROM future_updates WHERE library LIKE ?`, "%"+libraryFilter+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count future updates: %w", err)
	}
	return n, nil
}

// DeleteFutures removes future-update rows, optionally filtered by a
// library-name substring. Administrative use only.
func (c queries) DeleteFutures(libraryFilter string) (int64, error) {
	res, err := c.q.Exec(`DELETE FROM future_updates WHERE library LIKE ?`, "%"+libraryFilter+"%")
	if err != nil {
		return 0, fmt.Errorf("failed to delete future updates: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// boolInt converts a bool to its SQLite integer form.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
