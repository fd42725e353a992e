package store

import (
	"fmt"
	"strings"
)

// Component is a per-project dependency declaration linked to its
// canonical library.
type Component struct {
	ID        int64
	Project   string
	Name      string
	Version   string
	Kind      string
	Scope     string
	LibraryID int64
}

// UpsertComponent inserts or updates a component declaration. The
// (project, name) pair is unique; re-declaring updates version, kind,
// scope and the library link.
func (c queries) UpsertComponent(comp *Component) error {
	_, err := c.q.Exec(`
		INSERT INTO components (project, name, version, kind, scope, library_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, name) DO UPDATE SET
			version = excluded.version,
			kind = excluded.kind,
			scope = excluded.scope,
			library_id = excluded.library_id
	`, comp.Project, comp.Name, comp.Version, comp.Kind, comp.Scope, comp.LibraryID)
	if err != nil {
		return fmt.Errorf("failed to upsert component %s/%s: %w", comp.Project, comp.Name, err)
	}
	return nil
}

// ComponentsByProject returns the declarations of a single project.
func (c queries) ComponentsByProject(project string) ([]Component, error) {
	rows, err := c.q.Query(`
		SELECT id, project, name, version, kind, scope, COALESCE(library_id, 0)
		FROM components WHERE project = ? ORDER BY id
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list components for %q: %w", project, err)
	}
	defer rows.Close()

	var comps []Component
	for rows.Next() {
		var comp Component
		if err := rows.Scan(&comp.ID, &comp.Project, &comp.Name, &comp.Version, &comp.Kind, &comp.Scope, &comp.LibraryID); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		comps = append(comps, comp)
	}
	return comps, rows.Err()
}

// PruneComponents deletes declarations of the given project whose names
// are no longer declared. An empty keep list removes all of them.
func (c queries) PruneComponents(project string, keep []string) error {
	if len(keep) == 0 {
		_, err := c.q.Exec(`DELETE FROM components WHERE project = ?`, project)
		if err != nil {
			return fmt.Errorf("failed to prune components for %q: %w", project, err)
		}
		return nil
	}

	placeholders := strings.Repeat("?,", len(keep))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(keep)+1)
	args = append(args, project)
	for _, name := range keep {
		args = append(args, name)
	}

	_, err := c.q.Exec(
		fmt.Sprintf(`DELETE FROM components WHERE project = ? AND name NOT IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to prune components for %q: %w", project, err)
	}
	return nil
}

// PruneProjects deletes declarations belonging to projects that are no
// longer registered.
func (c queries) PruneProjects(live []string) error {
	if len(live) == 0 {
		_, err := c.q.Exec(`DELETE FROM components`)
		if err != nil {
			return fmt.Errorf("failed to prune projects: %w", err)
		}
		return nil
	}

	placeholders := strings.Repeat("?,", len(live))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(live))
	for _, p := range live {
		args = append(args, p)
	}

	_, err := c.q.Exec(
		fmt.Sprintf(`DELETE FROM components WHERE project NOT IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to prune projects: %w", err)
	}
	return nil
}
