// Package server exposes the dashboard views as a read-only JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"yashubustudio/mbtidash/mbti"
)

// Server wraps an echo instance bound to a dashboard service.
type Server struct {
	svc    *mbti.Service
	logger *zap.Logger
	echo   *echo.Echo
}

type errorBody struct {
	Error string `json:"error"`
}

type countriesBody struct {
	Reference string   `json:"reference"`
	Countries []string `json:"countries"`
}

type compareBody struct {
	Reference string `json:"reference"`
	Target    string `json:"target"`
	Shape     string `json:"shape"`
	Rows      any    `json:"rows"`
}

type reloadBody struct {
	Source    mbti.SourceID `json:"source"`
	Countries int           `json:"countries"`
	Types     int           `json:"types"`
}

// New builds the API routes for svc.
func New(svc *mbti.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.HTTPErrorHandler = errorHandler(logger)

	s := &Server{svc: svc, logger: logger, echo: e}
	e.GET("/healthz", s.health)
	api := e.Group("/api")
	api.GET("/countries", s.countries)
	api.GET("/types/average", s.averages)
	api.GET("/types/:code/top", s.top)
	api.GET("/compare", s.compare)
	api.POST("/reload", s.reload)
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr))
		errCh <- s.echo.Start(addr)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) countries(c echo.Context) error {
	table, err := s.svc.Table()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countriesBody{
		Reference: s.svc.Config().ReferenceCountry,
		Countries: table.Countries(),
	})
}

func (s *Server) averages(c echo.Context) error {
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		return err
	}
	avgs, err := s.svc.Averages()
	if err != nil {
		return err
	}
	if limit > 0 {
		avgs = mbti.MostCommon(avgs, limit)
	}
	return c.JSON(http.StatusOK, avgs)
}

func (s *Server) top(c echo.Context) error {
	n, err := intParam(c, "n", 0)
	if err != nil {
		return err
	}
	code, err := mbti.ParseTypeCode(c.Param("code"))
	if err != nil {
		return err
	}
	ranked, err := s.svc.TopN(code, n)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ranked)
}

func (s *Server) compare(c echo.Context) error {
	target := c.QueryParam("target")
	if target == "" {
		var err error
		if target, err = s.svc.DefaultTarget(); err != nil {
			return err
		}
	}
	reference := c.QueryParam("reference")
	if reference == "" {
		reference = s.svc.Config().ReferenceCountry
	}
	shape := c.QueryParam("shape")
	if shape == "" {
		shape = "wide"
	}
	if shape != "wide" && shape != "long" {
		return echo.NewHTTPError(http.StatusBadRequest, "shape must be wide or long")
	}
	res, err := s.svc.CompareWith(reference, target)
	if err != nil {
		return err
	}
	body := compareBody{Reference: res.Reference, Target: res.Target, Shape: shape}
	if shape == "long" {
		body.Rows = res.Long()
	} else {
		body.Rows = res.Wide()
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) reload(c echo.Context) error {
	table, err := s.svc.Reload()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reloadBody{
		Source:    table.Source(),
		Countries: table.Len(),
		Types:     len(table.Types()),
	})
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return v, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, mbti.ErrUnknownType), errors.Is(err, mbti.ErrCountryNotFound):
		return http.StatusNotFound
	case errors.Is(err, mbti.ErrSourceNotFound), errors.Is(err, mbti.ErrMalformedSource):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := statusFor(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(he.Code)
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("request failed", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorBody{Error: msg})
		}
		if err != nil {
			logger.Error("write error response", zap.Error(err))
		}
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			logger.Debug("request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		}
	}
}
