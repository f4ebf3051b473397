// Package server exposes the analysis pipeline over HTTP: an upload form,
// a JSON API and downloads of generated documents.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/output"
	"github.com/gaurav-prasanna/deckpipe/core/pipeline"
	"github.com/gaurav-prasanna/deckpipe/core/prompt"
	"github.com/gaurav-prasanna/deckpipe/core/render"
	"github.com/gaurav-prasanna/deckpipe/logger"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/sirupsen/logrus"
)

//go:embed assets/*
var assets embed.FS

// writeMargin is added to the request timeout so a run that finishes at the
// deadline can still write its response.
const writeMargin = 15 * time.Second

// Analyzer runs one analysis.
type Analyzer interface {
	Run(ctx context.Context, req core.AnalysisRequest) (*pipeline.Report, error)
}

// Options configure the HTTP surface.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	UploadDir      string
	SecretKey      string
}

// Deps are the shared collaborators of the handlers.
type Deps struct {
	Analyzer  Analyzer
	Templates *prompt.Store
	Writer    *output.Writer
	Log       logrus.FieldLogger
}

// Server holds the kratos HTTP server and handler state.
type Server struct {
	http      *khttp.Server
	analyzer  Analyzer
	templates *prompt.Store
	writer    *output.Writer
	html      *render.HTMLRenderer
	tokens    *tokenSigner
	pages     *template.Template
	opts      Options
	log       logrus.FieldLogger
	now       func() time.Time
}

// New builds the server and registers its routes.
func New(opts Options, deps Deps) (*Server, error) {
	tokens, err := newTokenSigner(opts.SecretKey)
	if err != nil {
		return nil, err
	}
	if opts.SecretKey == "" {
		deps.Log.Warn("SECRET_KEY not set; form tokens use a random key and expire on restart")
	}

	pages, err := template.New("pages").Funcs(template.FuncMap{
		"join": joinLines,
	}).ParseFS(assets, "assets/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page templates: %w", err)
	}

	s := &Server{
		analyzer:  deps.Analyzer,
		templates: deps.Templates,
		writer:    deps.Writer,
		html:      render.NewHTMLRenderer(),
		tokens:    tokens,
		pages:     pages,
		opts:      opts,
		log:       deps.Log,
		now:       time.Now,
	}

	var srvOpts = []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
			logging.Server(logger.NewKratos(deps.Log)),
		),
	}
	if opts.Addr != "" {
		srvOpts = append(srvOpts, khttp.Address(opts.Addr))
	}
	if opts.RequestTimeout > 0 {
		srvOpts = append(srvOpts, khttp.Timeout(opts.RequestTimeout+writeMargin))
	}

	s.http = khttp.NewServer(srvOpts...)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.http.Route("/")
	r.GET("/", s.handle(s.index))
	r.POST("/analyze", s.handle(s.analyzeForm))
	r.GET("/download/{kind}/{filename}", s.handle(s.download))
	r.GET("/health", s.handle(s.health))
	r.GET("/api/v1/prompts", s.handle(s.prompts))
	r.GET("/api/prompts", s.handle(s.prompts))
	r.POST("/api/v1/analyze", s.handle(s.analyzeAPI))
}

// HTTP returns the kratos server for lifecycle management.
func (s *Server) HTTP() *khttp.Server {
	return s.http
}

// ServeHTTP lets the server be used as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.http.ServeHTTP(w, r)
}

// handle runs h inside the server middleware chain so panics are recovered
// and requests are logged.
func (s *Server) handle(h func(khttp.Context) error) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		next := ctx.Middleware(func(context.Context, any) (any, error) {
			return nil, h(ctx)
		})
		_, err := next(ctx, nil)
		return err
	}
}

// runContext bounds one analysis by the request timeout.
func (s *Server) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.opts.RequestTimeout)
}

// statusFor maps a pipeline error onto an HTTP status.
func statusFor(err error) int {
	switch core.StageOf(err) {
	case core.StageValidation:
		return http.StatusBadRequest
	case core.StageExtraction, core.StageFetch:
		return http.StatusUnprocessableEntity
	case core.StageAnalysis:
		return http.StatusServiceUnavailable
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
}
