// Package output handles file naming, writing and retrieval of generated
// analysis documents. Names are collision resistant:
// analysis_<YYYYmmdd_HHMMSS>_<8 hex chars>.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors returned by Open.
var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
)

// kindExtensions are the downloadable artifact kinds.
var kindExtensions = map[string]string{
	"md":  ".md",
	"pdf": ".pdf",
}

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to ./outputs.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		outputDir = "outputs"
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// BaseName builds the file name stem shared by all artifacts of one analysis.
func BaseName(at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("analysis_%s_%s", at.Format("20060102_150405"), id[:8])
}

// Write stores data as base+ext and returns the written path. The file is
// written under a temporary name first so readers never see partial output.
func (w *Writer) Write(base string, data []byte, ext string) (string, error) {
	path := filepath.Join(w.OutputDir, base+ext)

	tmp, err := os.CreateTemp(w.OutputDir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing file %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Resolve maps a download request onto a file inside the output directory.
// Names containing separators, parent references or the wrong extension
// for kind are rejected.
func (w *Writer) Resolve(kind, name string) (string, error) {
	ext, ok := kindExtensions[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidName, kind)
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		strings.Contains(name, "..") || filepath.IsAbs(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if filepath.Ext(name) != ext {
		return "", fmt.Errorf("%w: %q is not a %s file", ErrInvalidName, name, kind)
	}

	path := filepath.Join(w.OutputDir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", name, err)
	}
	return path, nil
}

// Open resolves and opens a generated file for download.
func (w *Writer) Open(kind, name string) (*os.File, error) {
	path, err := w.Resolve(kind, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}
