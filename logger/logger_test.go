package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	log, err := New("debug", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.WithFields(logrus.Fields{"url": "https://example.com", "error": "status 404 for x"}).Warn("resource fetch failed")

	line := buf.String()
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[WARN\] \[logger_test\.go:\d+\] resource fetch failed`, line)
	assert.Contains(t, line, ` error="status 404 for x" url=https://example.com`+"\n")
}

func TestNewWritesFileAndDefaultsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "deckpipe.log")

	log, err := New("shouting", path)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.Debug("hidden")
	log.Info("started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO]")
	assert.Contains(t, string(data), "started")
	assert.NotContains(t, string(data), "hidden")
}

func TestKratosAdapter(t *testing.T) {
	log, err := New("info", "")
	require.NoError(t, err)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	k := NewKratos(log)
	require.NoError(t, k.Log(kratoslog.LevelWarn, "msg", "slow request", "latency", 2.5, "dangling"))

	line := buf.String()
	assert.Contains(t, line, "[WARN]")
	assert.Contains(t, line, "slow request")
	assert.Contains(t, line, "latency=2.5")
	assert.Contains(t, line, "dangling=(MISSING)")
}
