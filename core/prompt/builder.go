package prompt

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
)

const (
	resourcesNote      = "and the provided resources"
	focusResourcesOnly = " Focus on the information provided in the resource URLs since no slide deck was provided."
	focusWithDeck      = " Consider how the additional resources (lab guides, documentation, articles, etc.) complement and expand upon the presentation content."
	maxHeadingLevel    = 6
	topLevelHeading    = 2
	defaultRole        = "technical advisor"
)

// Input is everything a prompt is built from.
type Input struct {
	Title      string
	Presenters string
	Notes      string
	GitHubURL  string
	DeckText   string
	Resources  []core.Resource
}

// Build renders t against in. The result depends only on its arguments.
func Build(t *Template, in Input) string {
	hasDeck := strings.TrimSpace(in.DeckText) != ""
	hasResources := len(in.Resources) > 0

	contentType := "technical content"
	if hasDeck {
		contentType = "presentation"
	}

	var note, focus string
	if hasResources {
		note = resourcesNote
		focus = focusWithDeck
		if !hasDeck {
			focus = focusResourcesOnly
		}
	}

	// Unknown placeholders are left as written.
	fill := strings.NewReplacer(
		"{content_type}", contentType,
		"{resources_note}", note,
		"{resource_focus}", focus,
	).Replace

	role := t.Role
	if role == "" {
		role = defaultRole
	}
	people := "Authors/Sources"
	if hasDeck {
		people = "Presenters"
	}

	var github string
	if in.GitHubURL != "" {
		github = fmt.Sprintf("- GitHub Repository: %s (contains lab guides, code samples, and related materials)\n", in.GitHubURL)
	}

	lines := []string{
		fmt.Sprintf("You are a %s analyzing %s.", role, contentType),
		"",
		"CONTEXT:",
		"- Title: " + in.Title,
		fmt.Sprintf("- %s: %s", people, in.Presenters),
		"- Attendee's Personal Notes: " + in.Notes,
		github,
	}

	if hasDeck {
		lines = append(lines, "SLIDE CONTENT EXTRACTED:", in.DeckText)
	}

	if hasResources {
		var b strings.Builder
		b.WriteString("\n\nADDITIONAL RESOURCES PROVIDED:\n")
		for i, r := range in.Resources {
			fmt.Fprintf(&b, "\n--- Resource %d: %s ---\n", i+1, r.Title)
			fmt.Fprintf(&b, "URL: %s\n", r.URL)
			fmt.Fprintf(&b, "Content:\n%s\n", r.Text)
		}
		lines = append(lines, b.String())
	}

	lines = append(lines,
		"",
		"YOUR TASK:",
		fill(t.TaskDescription),
		"",
		"Please structure your response in the following sections:",
	)

	for _, s := range t.Sections {
		lines = append(lines, renderSection(s, topLevelHeading, fill))
	}

	if t.Closing != "" {
		lines = append(lines, "", fill(t.Closing))
	}

	return strings.Join(lines, "\n")
}

func renderSection(s Section, level int, fill func(string) string) string {
	if level > maxHeadingLevel {
		level = maxHeadingLevel
	}

	parts := []string{"\n" + strings.Repeat("#", level) + " " + s.Title}
	if s.Instruction != "" {
		parts = append(parts, fill(s.Instruction))
	}
	for _, sub := range s.Subsections {
		parts = append(parts, renderSection(sub, level+1, fill))
	}
	return strings.Join(parts, "\n")
}
