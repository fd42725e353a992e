// Package registry manages the project manifest: which projects exist,
// who gets notified, and which components each project declares. It
// also owns the canonical-library sync that deduplicates declarations
// across projects into single library records.
package registry

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Error variables for manifest errors
var (
	// ErrManifestNotFound is returned when the projects file does not exist
	ErrManifestNotFound = errors.New("projects.toml not found")
	// ErrInvalidComponentKind is returned for kinds other than language/tool/library
	ErrInvalidComponentKind = errors.New("invalid component kind: must be 'language', 'tool' or 'library'")
	// ErrMissingComponentName is returned when a declaration has no name
	ErrMissingComponentName = errors.New("missing required field: name")
	// ErrMissingComponentVersion is returned when a declaration has no version
	ErrMissingComponentVersion = errors.New("missing required field: version")
)

// Component kinds
const (
	KindLanguage = "language"
	KindTool     = "tool"
	KindLibrary  = "library"
)

// ComponentDecl is a single dependency declaration inside a project.
type ComponentDecl struct {
	// Name is the display name of the dependency (e.g. "Django")
	Name string `toml:"name"`
	// Version is the version the project currently has installed
	Version string `toml:"version"`
	// Kind is one of "language", "tool" or "library" (default "library")
	Kind string `toml:"kind,omitempty"`
	// Scope is a free-form tag (e.g. "backend", "ci")
	Scope string `toml:"scope,omitempty"`
}

// Project is a registered project with its recipients and preferences.
type Project struct {
	// Developers is a display list of maintainer names
	Developers string `toml:"developers,omitempty"`
	// Emails are the notification recipients
	Emails []string `toml:"emails"`
	// Notify is the raw preference string, e.g. "major, minor, future"
	Notify string `toml:"notify,omitempty"`
	// Components are the project's dependency declarations
	Components []ComponentDecl `toml:"components"`
}

// Manifest is the parsed projects file. Keys are project names.
type Manifest struct {
	Projects map[string]Project
}

// manifestFile is the on-disk TOML structure where each [project-name]
// section is a top-level key.
type manifestFile map[string]Project

// LoadManifest loads and parses the projects file.
func LoadManifest(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrManifestNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects file: %w", err)
	}

	var file manifestFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse projects file: %w", err)
	}

	m := &Manifest{Projects: make(map[string]Project)}
	for name, p := range file {
		m.Projects[name] = p
	}
	return m, nil
}

// SaveManifest writes the manifest back to disk atomically.
func SaveManifest(path string, m *Manifest) error {
	file := make(manifestFile, len(m.Projects))
	for name, p := range m.Projects {
		file[name] = p
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(file); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode projects file: %w", err)
	}
	f.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename projects file: %w", err)
	}
	return nil
}

// ValidateComponent validates a single declaration.
func ValidateComponent(project string, decl *ComponentDecl) error {
	if decl.Name == "" {
		return fmt.Errorf("project %s: %w", project, ErrMissingComponentName)
	}
	if decl.Version == "" {
		return fmt.Errorf("project %s, component %s: %w", project, decl.Name, ErrMissingComponentVersion)
	}
	switch decl.Kind {
	case "", KindLanguage, KindTool, KindLibrary:
	default:
		return fmt.Errorf("project %s, component %s: %w: got %q", project, decl.Name, ErrInvalidComponentKind, decl.Kind)
	}
	return nil
}

// ValidateAll validates every declaration in the manifest. Returns the
// first validation error encountered, or nil if all are valid.
func (m *Manifest) ValidateAll() error {
	for name, p := range m.Projects {
		for i := range p.Components {
			if err := ValidateComponent(name, &p.Components[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// whitespaceRegex collapses runs of whitespace during normalization
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeKey converts a display name into the canonical library key:
// lowercase with whitespace collapsed to single hyphens.
func NormalizeKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return whitespaceRegex.ReplaceAllString(key, "-")
}

// KindOf returns the effective kind of a declaration.
func (d ComponentDecl) KindOf() string {
	if d.Kind == "" {
		return KindLibrary
	}
	return d.Kind
}
