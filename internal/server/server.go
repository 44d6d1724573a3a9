// Package server exposes the research agent over an OpenAI-compatible
// chat-completions HTTP endpoint.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/deeprlabs/deepr"
)

// Server wraps an echo.Echo instance bound to a single deepr.Agent.
type Server struct {
	echo  *echo.Echo
	agent *deepr.Agent
}

// New builds a Server with routes registered, ready to Run.
func New(agent *deepr.Agent) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{echo: e, agent: agent}

	e.GET("/healthz", s.health)
	e.POST("/v1/chat/completions", s.chatCompletions)

	return s
}

// Run starts the HTTP server on addr, blocking until it stops.
func (s *Server) Run(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
