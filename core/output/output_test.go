package output

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseNameIsUnique(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	a, b := BaseName(at), BaseName(at)
	assert.Regexp(t, regexp.MustCompile(`^analysis_20240305_140709_[0-9a-f]{8}$`), a)
	assert.NotEqual(t, a, b)
}

func TestWriteAndOpen(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "outputs"))
	require.NoError(t, err)

	path, err := w.Write("analysis_x", []byte("# hi\n"), ".md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.OutputDir, "analysis_x.md"), path)

	f, err := w.Open("md", "analysis_x.md")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "# hi\n", string(data))

	entries, err := os.ReadDir(w.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestResolveRejectsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "outputs"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.md"), []byte("x"), 0o644))
	_, err = w.Write("report", []byte("%PDF"), ".pdf")
	require.NoError(t, err)

	for _, tc := range []struct{ kind, name string }{
		{"md", "../secret.md"},
		{"md", "..%2Fsecret.md"},
		{"md", `..\secret.md`},
		{"md", "/etc/passwd.md"},
		{"md", ""},
		{"md", "report.pdf"},
		{"exe", "report.pdf"},
		{"md", ".hidden.md"},
	} {
		_, err := w.Resolve(tc.kind, tc.name)
		assert.ErrorIs(t, err, ErrInvalidName, "%s/%s", tc.kind, tc.name)
	}

	_, err = w.Resolve("pdf", "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = w.Resolve("pdf", "report.pdf")
	assert.NoError(t, err)
}

func TestJanitorSweep(t *testing.T) {
	uploads, outputs := t.TempDir(), t.TempDir()
	now := time.Now()

	old := filepath.Join(uploads, "old.pdf")
	fresh := filepath.Join(outputs, "fresh.md")
	stale := filepath.Join(outputs, "stale.md")
	for _, p := range []string{old, fresh, stale} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	require.NoError(t, os.Chtimes(old, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.Chtimes(stale, now.Add(-25*time.Hour), now.Add(-25*time.Hour)))

	log := logrus.New()
	log.SetOutput(io.Discard)
	j := NewJanitor([]string{uploads, outputs, filepath.Join(uploads, "missing")}, 24*time.Hour, time.Hour, log)

	removed, err := j.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, old)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestJanitorStartStop(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	j := NewJanitor([]string{t.TempDir()}, time.Hour, time.Minute, log)
	require.NoError(t, j.Start())
	j.Stop()

	disabled := NewJanitor(nil, 0, 0, log)
	require.NoError(t, disabled.Start())
	disabled.Stop()
}
