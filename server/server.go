// Package server exposes the ops HTTP surface: liveness and a small
// stats snapshot. The bot itself never goes through HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/jobbot/internal/profile"
	"github.com/hrygo/jobbot/store"
)

type Server struct {
	e *echo.Echo

	Profile *profile.Profile
	Store   *store.Store
}

func NewServer(profile *profile.Profile, store *store.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		e:       e,
		Profile: profile,
		Store:   store,
	}

	e.GET("/healthz", s.healthz)
	e.GET("/api/v1/stats", s.stats)

	return s
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "Service ready.")
}

func (s *Server) stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := s.Store.Stats(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"mode":    s.Profile.Mode,
		"version": s.Profile.Version,
		"users":   stats.Users,
		"jobs":    stats.Jobs,
	})
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "ops server failed")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
