package normalize

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Kubernetes Operators Explained</title>
<script>var tracking = "do not keep";</script></head>
<body>
<nav><a href="/">Home</a> <a href="/blog">Blog</a></nav>
<article>
<h1>Kubernetes Operators Explained</h1>
<p>Operators extend the Kubernetes API with custom resources and controllers that encode operational knowledge.</p>
<p>A reconciliation loop compares the desired state recorded in a custom resource with the observed state of the cluster and acts to converge them.</p>
<p>Teams use operators to run databases, message brokers and certificate managers without manual runbooks.</p>
</article>
<footer>Copyright 2024 Example Corp</footer>
</body></html>`

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNormalizeHTMLKeepsArticleText(t *testing.T) {
	page, err := New(FormatText, 0).Normalize([]byte(articleHTML), "text/html; charset=utf-8", mustURL(t, "https://example.com/operators"))
	require.NoError(t, err)

	assert.Equal(t, "Kubernetes Operators Explained", page.Title)
	assert.Contains(t, page.Text, "reconciliation loop")
	assert.NotContains(t, page.Text, "do not keep")
	for _, line := range strings.Split(page.Text, "\n") {
		assert.Equal(t, strings.TrimSpace(line), line)
		assert.NotEmpty(t, line)
	}
}

func TestStripNoiseFallback(t *testing.T) {
	page, err := New(FormatText, 0).stripNoise([]byte(`<html><head><title>Lab</title></head><body>
<nav>Menu</nav><main><h2>Step 1</h2><p>Install the CLI</p></main><footer>Footer</footer></body></html>`))
	require.NoError(t, err)

	text := CleanLines(page.Text)
	assert.Equal(t, "Lab", page.Title)
	assert.Equal(t, "Step 1\nInstall the CLI", text)
}

func TestStripNoiseMarkdown(t *testing.T) {
	page, err := New(FormatMarkdown, 0).stripNoise([]byte(`<html><body><main><h2>Setup</h2><ul><li>one</li></ul></main></body></html>`))
	require.NoError(t, err)

	assert.Contains(t, page.Text, "## Setup")
	assert.Contains(t, page.Text, "- one")
}

func TestNormalizePlainTextUsedAsIs(t *testing.T) {
	page, err := New(FormatText, 0).Normalize([]byte("  # Readme \n\n\n  run make  \n"), "text/plain", mustURL(t, "https://example.com/README.txt"))
	require.NoError(t, err)

	assert.Equal(t, "# Readme\nrun make", page.Text)
	assert.Equal(t, "https://example.com/README.txt", page.Title)
}

func TestNormalizeEmptyPageFails(t *testing.T) {
	_, err := New(FormatText, 0).Normalize([]byte("<html><body><script>x()</script></body></html>"), "text/html", nil)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestNormalizeCapsText(t *testing.T) {
	body := strings.Repeat("é", 50)
	page, err := New(FormatText, 10).Normalize([]byte(body), "text/plain", nil)
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("é", 10), page.Text)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}
