package cmd

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/deckpipe/config"
	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/extract"
	"github.com/gaurav-prasanna/deckpipe/core/fetch"
	"github.com/gaurav-prasanna/deckpipe/core/normalize"
	"github.com/gaurav-prasanna/deckpipe/core/output"
	"github.com/gaurav-prasanna/deckpipe/core/pipeline"
	"github.com/gaurav-prasanna/deckpipe/core/prompt"
	"github.com/gaurav-prasanna/deckpipe/core/provider"
	"github.com/gaurav-prasanna/deckpipe/core/render"
	"github.com/gaurav-prasanna/deckpipe/logger"
	"github.com/sirupsen/logrus"
)

// app is the wiring shared by the serve and analyze commands.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	templates *prompt.Store
	writer    *output.Writer
	analyzer  *pipeline.Analyzer
}

// loadConfig reads the configuration and builds the process logger.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := logger.New(level, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, log, nil
}

// newApp builds every pipeline component from cfg. outputDir overrides
// OUTPUT_DIR when set.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger, outputDir string, renderPDF bool) (*app, error) {
	templates, err := cfg.Templates()
	if err != nil {
		return nil, fmt.Errorf("loading prompt templates: %w", err)
	}

	client, err := provider.New(ctx, cfg.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing AI provider: %w", err)
	}

	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	writer, err := output.New(outputDir)
	if err != nil {
		return nil, fmt.Errorf("initializing output writer: %w", err)
	}

	var fetcher core.Fetcher = fetch.New(cfg.FetchTimeout)
	if cfg.FetchCacheTTL > 0 {
		fetcher = fetch.NewCached(fetcher, cfg.FetchCacheTTL)
	}
	batch := fetch.NewBatch(
		fetcher,
		normalize.New(normalize.Format(cfg.FetchFormat), cfg.FetchMaxChars),
		cfg.FetchConcurrency,
		log,
	)

	analyzer := pipeline.New(pipeline.Deps{
		Extractor:  extract.New(),
		Fetcher:    batch,
		Downloader: fetch.NewDownloader(cfg.FetchTimeout, cfg.MaxUploadBytes()),
		Templates:  templates,
		Provider:   client,
		Writer:     writer,
		Markdown:   render.NewMarkdownRenderer(),
		PDF:        render.NewPDFRenderer(),
		Log:        log,
	}, pipeline.Options{
		MaxTokens:       cfg.MaxTokens,
		Temperature:     cfg.Temperature,
		ProviderTimeout: cfg.ProviderTimeout,
		UploadDir:       cfg.UploadDir,
		RenderPDF:       renderPDF,
	})

	log.WithFields(logrus.Fields{
		"provider":  client.Name(),
		"model":     client.Model(),
		"templates": len(templates.List()),
		"output":    writer.OutputDir,
	}).Info("pipeline ready")

	return &app{cfg: cfg, log: log, templates: templates, writer: writer, analyzer: analyzer}, nil
}
