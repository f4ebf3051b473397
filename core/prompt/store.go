package prompt

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// DefaultTemplateID is used when no template is requested.
const DefaultTemplateID = "presales_engineer"

// Store holds every template loaded at startup. It is read-only afterwards
// and safe for concurrent use.
type Store struct {
	templates map[string]*Template
	summaries []Summary
	defaultID string
}

// LoadStore reads all .json, .yaml and .yml templates at the root of fsys.
// A malformed document or a missing default template fails the whole load.
func LoadStore(fsys fs.FS, defaultID string) (*Store, error) {
	if defaultID == "" {
		defaultID = DefaultTemplateID
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading template directory: %w", err)
	}

	s := &Store{templates: make(map[string]*Template), defaultID: defaultID}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		t, err := Parse(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		if _, dup := s.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		s.templates[t.ID] = t
		s.summaries = append(s.summaries, t.Summary())
	}

	if _, ok := s.templates[defaultID]; !ok {
		return nil, fmt.Errorf("default template %q not found", defaultID)
	}

	sort.Slice(s.summaries, func(i, j int) bool {
		if s.summaries[i].Name != s.summaries[j].Name {
			return s.summaries[i].Name < s.summaries[j].Name
		}
		return s.summaries[i].ID < s.summaries[j].ID
	})
	return s, nil
}

// List returns template summaries sorted by name.
func (s *Store) List() []Summary {
	out := make([]Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// DefaultID returns the id of the fallback template.
func (s *Store) DefaultID() string {
	return s.defaultID
}

// Get returns the template with the given id. Unknown ids fall back to the
// default template and report false; an empty id means the default.
func (s *Store) Get(id string) (*Template, bool) {
	if id == "" {
		return s.templates[s.defaultID], true
	}
	if t, ok := s.templates[id]; ok {
		return t, true
	}
	return s.templates[s.defaultID], false
}
