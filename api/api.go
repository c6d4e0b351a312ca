package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/TFMV/scour/metrics"
	"github.com/TFMV/scour/pipeline"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/readers"
	"github.com/TFMV/scour/pkg/strategy"
	"github.com/TFMV/scour/report"
	"github.com/TFMV/scour/version"
)

// ServerOptions configure the HTTP server.
type ServerOptions struct {
	Port    string
	Prefork bool

	// Engine runs profile and clean requests. Nil means a default engine.
	Engine *pipeline.Engine

	// Collector backs /metrics. Nil means a fresh collector.
	Collector *metrics.Collector

	Logger *zap.Logger
}

// Server holds the Fiber app instance
type Server struct {
	app    *fiber.App
	opts   ServerOptions
	logger *zap.Logger
}

// NewServer initializes a new Fiber instance with the scour routes.
func NewServer(opts ServerOptions) *Server {
	if opts.Port == "" {
		opts.Port = "3000"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Collector == nil {
		if c, err := metrics.NewCollector(); err == nil {
			opts.Collector = c
		} else {
			opts.Logger.Warn("Metrics disabled", zap.Error(err))
		}
	}
	if opts.Engine == nil {
		opts.Engine = pipeline.New(pipeline.DefaultConfig(),
			pipeline.WithLogger(opts.Logger), pipeline.WithMetrics(opts.Collector))
	}

	app := fiber.New(fiber.Config{
		IdleTimeout:  10 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    32 << 20,
		Prefork:      opts.Prefork,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{app: app, opts: opts, logger: opts.Logger}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Scour API",
			"version": version.Version,
			"build":   version.BuildDate,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	if opts.Collector != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Collector.Handler()))
	}

	v1 := app.Group("/v1")
	v1.Post("/profile", s.handleProfile)
	v1.Post("/clean", s.handleClean)

	return s
}

// GetApp exposes the Fiber app, mainly for app.Test.
func (s *Server) GetApp() *fiber.App { return s.app }

// Request is the body of /v1/profile and /v1/clean.
type Request struct {
	Name string `json:"name"`

	// Rows is a JSON array of objects; column order follows first appearance.
	Rows json.RawMessage `json:"rows"`

	// Suggestions are external hints, ignored by /v1/profile.
	Suggestions strategy.Suggestions `json:"suggestions,omitempty"`
}

// ProfileResponse is returned by /v1/profile.
type ProfileResponse struct {
	Dataset    string                  `json:"dataset"`
	Score      float64                 `json:"score"`
	Components quality.Components      `json:"components"`
	Issues     []quality.Issue         `json:"issues"`
	Profiles   []profile.ColumnProfile `json:"profiles"`
}

// Table is a dataset rendered as a header and rows; null cells are JSON null.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// CleanResponse is returned by /v1/clean.
type CleanResponse struct {
	RunID   string                `json:"run_id"`
	Plan    strategy.Plan         `json:"plan"`
	Report  *report.QualityReport `json:"report"`
	Cleaned Table                 `json:"cleaned"`
}

func (s *Server) decode(c *fiber.Ctx) (*Request, *core.Dataset, error) {
	var req Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(req.Rows) == 0 {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "rows are required")
	}
	name := req.Name
	if name == "" {
		name = "request"
	}
	ds, err := readers.DecodeJSON(bytes.NewReader(req.Rows), name)
	if err != nil {
		return nil, nil, err
	}
	return &req, ds, nil
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	_, ds, err := s.decode(c)
	if err != nil {
		return err
	}
	profiles, assessment, err := s.opts.Engine.Profile(ds)
	if err != nil {
		return err
	}
	return c.JSON(ProfileResponse{
		Dataset:    ds.Name,
		Score:      assessment.Score,
		Components: assessment.Components,
		Issues:     assessment.Issues,
		Profiles:   profiles,
	})
}

func (s *Server) handleClean(c *fiber.Ctx) error {
	req, ds, err := s.decode(c)
	if err != nil {
		return err
	}
	res, err := s.opts.Engine.Run(ds, req.Suggestions)
	if err != nil {
		return err
	}
	return c.JSON(CleanResponse{
		RunID:   res.RunID,
		Plan:    res.Plan,
		Report:  res.Report,
		Cleaned: toTable(res.Cleaned),
	})
}

func toTable(ds *core.Dataset) Table {
	t := Table{Columns: ds.ColumnNames(), Rows: make([][]*string, ds.NumRows())}
	for i := range t.Rows {
		row := make([]*string, ds.NumCols())
		for j, col := range ds.Columns {
			if v := col.Values[i]; !v.Null {
				s := v.Str
				row[j] = &s
			}
		}
		t.Rows[i] = row
	}
	return t
}

// errorHandler maps the engine's error taxonomy onto status codes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, core.ErrMalformedInput):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// Start runs the Fiber server and handles graceful shutdown
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Scour API is running", zap.String("port", s.opts.Port))
		errCh <- s.app.Listen(":" + s.opts.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	s.logger.Info("Received shutdown signal, stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("Server shutdown successfully")
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
