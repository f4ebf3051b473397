package render

import (
	"regexp"
	"strings"
)

// Heading is one Markdown heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Section is a heading plus the text up to the next heading.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

var (
	headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	fenceRegex   = regexp.MustCompile("^\\s*(```|~~~)")
)

// Headings lists ATX headings outside fenced code blocks.
func Headings(md string) []Heading {
	var headings []Heading
	for _, s := range Split(md) {
		headings = append(headings, Heading{Level: s.Level, Text: s.Heading})
	}
	return headings
}

// Split cuts md into sections at every heading. Text before the first
// heading is dropped.
func Split(md string) []Section {
	var (
		sections []Section
		current  *Section
		body     []string
		inFence  bool
	)

	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(body, "\n"))
			sections = append(sections, *current)
		}
	}

	for _, line := range strings.Split(md, "\n") {
		if fenceRegex.MatchString(line) {
			inFence = !inFence
		}
		if !inFence {
			if m := headingRegex.FindStringSubmatch(line); m != nil {
				flush()
				current = &Section{Heading: strings.TrimSpace(m[2]), Level: len(m[1])}
				body = nil
				continue
			}
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return sections
}

// Missing returns the expected titles that no heading in md matches.
// Matching ignores case, emphasis markers, numbering and trailing colons.
func Missing(md string, expected []string) []string {
	found := make(map[string]bool)
	for _, h := range Headings(md) {
		found[headingKey(h.Text)] = true
	}

	var missing []string
	for _, title := range expected {
		if !found[headingKey(title)] {
			missing = append(missing, title)
		}
	}
	return missing
}

var numberingRegex = regexp.MustCompile(`^\d+[.)]\s*`)

func headingKey(text string) string {
	text = strings.Trim(text, "*_ ")
	text = numberingRegex.ReplaceAllString(text, "")
	text = strings.TrimSuffix(text, ":")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
