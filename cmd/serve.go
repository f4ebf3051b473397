package cmd

import (
	"context"

	"github.com/gaurav-prasanna/deckpipe/core/output"
	"github.com/gaurav-prasanna/deckpipe/logger"
	"github.com/gaurav-prasanna/deckpipe/server"
	"github.com/go-kratos/kratos/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web form and JSON API",
	Long: `Serve starts the HTTP server on ADDR (default :5000). It serves the
upload form, the JSON API under /api/v1 and downloads of generated files.
Expired uploads and outputs are removed every CLEANUP_INTERVAL.

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, log, "", true)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Addr:           cfg.Addr,
		RequestTimeout: cfg.RequestTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		UploadDir:      cfg.UploadDir,
		SecretKey:      cfg.SecretKey,
	}, server.Deps{
		Analyzer:  a.analyzer,
		Templates: a.templates,
		Writer:    a.writer,
		Log:       log,
	})
	if err != nil {
		return err
	}

	janitor := output.NewJanitor([]string{cfg.UploadDir, a.writer.OutputDir}, cfg.FileRetention, cfg.CleanupEvery, log)

	app := kratos.New(
		kratos.Name("deckpipe"),
		kratos.Version(Version),
		kratos.Logger(logger.NewKratos(log)),
		kratos.Server(srv.HTTP()),
		kratos.BeforeStart(func(context.Context) error {
			return janitor.Start()
		}),
		kratos.AfterStart(func(context.Context) error {
			log.WithField("addr", cfg.Addr).Info("deckpipe listening")
			return nil
		}),
		kratos.AfterStop(func(context.Context) error {
			janitor.Stop()
			log.Info("deckpipe stopped")
			return nil
		}),
	)
	return app.Run()
}
