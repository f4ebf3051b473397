package extract_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/extract"
	"github.com/gaurav-prasanna/deckpipe/core/extract/decktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	kind, err := extract.ParseKind("Keynote.PDF")
	require.NoError(t, err)
	assert.Equal(t, core.KindPDF, kind)

	kind, err = extract.ParseKind("deck.pptx")
	require.NoError(t, err)
	assert.Equal(t, core.KindPPTX, kind)

	_, err = extract.ParseKind("notes.docx")
	var validationErr *core.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestExtractPPTXFollowsPresentationOrderAndAppendsNotes(t *testing.T) {
	path := decktest.WritePPTX(t, t.TempDir(), "talk.pptx", []decktest.Slide{
		{Body: []string{"Welcome", "Agenda"}, Notes: "Say hello"},
		{Body: []string{"Architecture"}},
		{Body: []string{"Questions?"}, Notes: "Leave time"},
	})

	content, err := extract.New().Extract(path, core.KindPPTX)
	require.NoError(t, err)

	assert.Equal(t, 3, content.Pages)
	assert.Equal(t, "Notes for Slide 1: Say hello\n\nNotes for Slide 3: Leave time", content.Notes)

	first := strings.Index(content.Text, "--- Slide 1 ---\nWelcome\nAgenda")
	second := strings.Index(content.Text, "--- Slide 2 ---\nArchitecture")
	third := strings.Index(content.Text, "--- Slide 3 ---\nQuestions?")
	notes := strings.Index(content.Text, "SPEAKER NOTES:")
	require.True(t, first >= 0 && second > first && third > second, content.Text)
	assert.Greater(t, notes, third, "notes must follow slide body text")
	assert.NotContains(t, content.Text, "Notes for Slide 1: 1", "slide number placeholder must be skipped")
}

func TestExtractPDF(t *testing.T) {
	path := decktest.WritePDF(t, t.TempDir(), "talk.pdf", []string{"Hello deckpipe", "Second page"})

	content, err := extract.New().Extract(path, core.KindPDF)
	require.NoError(t, err)

	assert.Equal(t, 2, content.Pages)
	assert.NotEmpty(t, strings.TrimSpace(content.Text))
	assert.Contains(t, content.Text, "--- Page 1 ---")
	assert.False(t, content.HasImages)
}

func TestExtractCorruptFilesFail(t *testing.T) {
	dir := t.TempDir()

	for _, kind := range []core.DeckKind{core.KindPDF, core.KindPPTX} {
		path := decktest.WriteGarbage(t, dir, "broken."+string(kind))

		content, err := extract.New().Extract(path, kind)
		assert.Nil(t, content)

		var extractionErr *core.ExtractionError
		require.ErrorAs(t, err, &extractionErr, "kind %s", kind)
		assert.Equal(t, "broken."+string(kind), extractionErr.Source)
	}
}

func TestExtractPPTXDetectsEncryptedContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.pptx")
	ole := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 512)...)
	require.NoError(t, os.WriteFile(path, ole, 0o644))

	_, err := extract.New().Extract(path, core.KindPPTX)

	var extractionErr *core.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "password-protected or legacy format", extractionErr.Reason)
}

func TestExtractUnknownKind(t *testing.T) {
	_, err := extract.New().Extract("deck.key", core.DeckKind("key"))

	var extractionErr *core.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
}
