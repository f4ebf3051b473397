// Package prompt loads analysis templates and renders them into model prompts.
package prompt

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section is one heading the model is asked to produce. Subsections nest.
type Section struct {
	Title       string    `json:"title" yaml:"title"`
	Instruction string    `json:"instruction,omitempty" yaml:"instruction,omitempty"`
	Subsections []Section `json:"subsections,omitempty" yaml:"subsections,omitempty"`
}

// Template describes one analysis perspective.
type Template struct {
	ID              string    `json:"id" yaml:"-"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description" yaml:"description"`
	Role            string    `json:"role" yaml:"role"`
	TaskDescription string    `json:"task_description" yaml:"task_description"`
	Sections        []Section `json:"sections" yaml:"sections"`
	Closing         string    `json:"closing,omitempty" yaml:"closing,omitempty"`
}

// Summary is the listing view of a template.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summary returns the listing view of t.
func (t *Template) Summary() Summary {
	return Summary{ID: t.ID, Name: t.Name, Description: t.Description}
}

// SectionTitles lists the top-level section titles in declaration order.
func (t *Template) SectionTitles() []string {
	titles := make([]string, 0, len(t.Sections))
	for _, s := range t.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}

// Validate checks the fields every template must carry.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Role) == "" {
		return fmt.Errorf("template %s: missing role", t.ID)
	}
	if strings.TrimSpace(t.TaskDescription) == "" {
		return fmt.Errorf("template %s: missing task_description", t.ID)
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template %s: no sections", t.ID)
	}
	for i, s := range t.Sections {
		if err := s.validate(fmt.Sprintf("sections[%d]", i)); err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s Section) validate(where string) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%s: missing title", where)
	}
	if strings.TrimSpace(s.Instruction) == "" && len(s.Subsections) == 0 {
		return fmt.Errorf("%s (%s): needs an instruction or subsections", where, s.Title)
	}
	for i, sub := range s.Subsections {
		if err := sub.validate(fmt.Sprintf("%s.subsections[%d]", where, i)); err != nil {
			return err
		}
	}
	return nil
}

// Parse decodes a template document. The format follows the file extension.
func Parse(name string, data []byte) (*Template, error) {
	var t Template

	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".json":
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported template format %q", ext)
	}

	t.ID = strings.TrimSuffix(path.Base(name), path.Ext(name))
	if t.Name == "" {
		t.Name = t.ID
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
