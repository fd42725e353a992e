package registry

import (
	"context"
	"fmt"

	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/store"
)

var log = logger.Named("registry")

// Registry links project component declarations to canonical library
// records in the store.
type Registry struct {
	store *store.Store
}

// New creates a registry over the given store.
func New(st *store.Store) *Registry {
	return &Registry{store: st}
}

// Sync reconciles the store with the manifest: every declaration is
// linked to its canonical library (created lazily on first sight), and
// declarations no longer present in the manifest are pruned so their
// orphaned libraries drop out of active polling. Idempotent: re-running
// with the same manifest creates nothing new.
//
// Each declaration is linked inside its own transaction, so a storage
// failure leaves the declaration either fully linked or absent - never
// dangling against a half-created library.
func (r *Registry) Sync(ctx context.Context, m *Manifest) error {
	if err := m.ValidateAll(); err != nil {
		return err
	}

	projects := make([]string, 0, len(m.Projects))
	for name := range m.Projects {
		projects = append(projects, name)
	}
	if err := r.store.PruneProjects(projects); err != nil {
		return err
	}

	for name, project := range m.Projects {
		if err := ctx.Err(); err != nil {
			return err
		}

		keep := make([]string, 0, len(project.Components))
		for _, decl := range project.Components {
			keep = append(keep, decl.Name)
		}
		if err := r.store.PruneComponents(name, keep); err != nil {
			return err
		}

		for _, decl := range project.Components {
			if err := r.linkDeclaration(name, decl); err != nil {
				return fmt.Errorf("failed to link %s/%s: %w", name, decl.Name, err)
			}
		}
	}
	return nil
}

// linkDeclaration creates the canonical library for a declaration if
// needed and upserts the component row pointing at it.
func (r *Registry) linkDeclaration(project string, decl ComponentDecl) error {
	return r.store.WithTx(func(tx *store.Tx) error {
		key := NormalizeKey(decl.Name)
		lib, created, err := tx.GetOrCreateLibrary(key, decl.Name, decl.KindOf())
		if err != nil {
			return err
		}
		if created {
			log.Info("created library %s (%s)", lib.Key, lib.Kind)
		}

		return tx.UpsertComponent(&store.Component{
			Project:   project,
			Name:      decl.Name,
			Version:   decl.Version,
			Kind:      decl.KindOf(),
			Scope:     decl.Scope,
			LibraryID: lib.ID,
		})
	})
}

// ActiveLibraries returns the libraries referenced by at least one live
// declaration; only these are polled against the oracle.
func (r *Registry) ActiveLibraries(ctx context.Context) ([]store.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.store.ActiveLibraries()
}
