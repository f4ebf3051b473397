package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/google/uuid"
)

// DefaultDownloadTimeout bounds a single deck download.
const DefaultDownloadTimeout = 30 * time.Second

var errTooLarge = errors.New("file exceeds the maximum upload size")

// Downloader imports a deck from a URL into a local temporary file.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader creates a Downloader. maxBytes <= 0 disables the size check.
func NewDownloader(timeout time.Duration, maxBytes int64) *Downloader {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Download fetches the deck at rawURL into dir. The URL path must end in
// .pdf or .pptx. The returned source is marked temporary.
func (d *Downloader) Download(ctx context.Context, rawURL, dir string) (*core.DeckSource, error) {
	if err := ValidateURL("slides_url", rawURL); err != nil {
		return nil, err
	}
	kind, ok := DeckKindFromURL(rawURL)
	if !ok {
		return nil, &core.ValidationError{
			Field: "slides_url",
			Msg:   "Invalid file type. Only PDF and PPTX files are supported.",
		}
	}

	parsed, _ := url.Parse(rawURL)
	name := path.Base(parsed.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, downloadError(name, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, downloadError(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, downloadError(name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return nil, downloadError(name, errTooLarge)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}
	target := filepath.Join(dir, uuid.NewString()+"_"+filepath.Base(name))

	f, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", target, err)
	}

	if err := d.copyLimited(f, resp.Body); err != nil {
		f.Close()
		os.Remove(target)
		return nil, downloadError(name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return nil, fmt.Errorf("closing %s: %w", target, err)
	}

	return &core.DeckSource{Path: target, Name: name, Kind: kind, Temporary: true}, nil
}

func (d *Downloader) copyLimited(dst io.Writer, src io.Reader) error {
	if d.maxBytes <= 0 {
		_, err := io.Copy(dst, src)
		return err
	}
	n, err := io.Copy(dst, io.LimitReader(src, d.maxBytes+1))
	if err != nil {
		return err
	}
	if n > d.maxBytes {
		return errTooLarge
	}
	return nil
}

func downloadError(name string, err error) error {
	return &core.ExtractionError{Source: name, Reason: "could not download the presentation", Err: err}
}
