// Package httpapi exposes the chatbot over HTTP: the chat endpoints the
// storefront widget calls, the websocket stream, document ingestion and a
// small admin surface.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/service/concierge"
	"github.com/pocketkart/pocketbot/internal/service/features"
	"github.com/pocketkart/pocketbot/internal/transport/ws"
)

type Server struct {
	echo        *echo.Echo
	addr        string
	concierge   *concierge.Service
	switchboard *features.Switchboard
	hub         *ws.Hub
	maxUpload   int64
}

func NewServer(cfg *config.AppConfig, svc *concierge.Service, switchboard *features.Switchboard, hub *ws.Hub, logger *zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger(logger))
	e.Use(middleware.BodyLimit("16M"))

	s := &Server{
		echo:        e,
		addr:        cfg.HTTPAddr,
		concierge:   svc,
		switchboard: switchboard,
		hub:         hub,
		maxUpload:   cfg.MaxUploadBytes,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/api/health", s.health)
	s.echo.GET("/ws/chat", s.websocket)

	api := s.echo.Group("/api/chatbot")
	api.POST("/message", s.chatMessage)
	api.POST("/message/stream", s.chatMessageStream)
	api.POST("/escalate", s.escalate)
	api.GET("/session/:sessionId", s.getSession)
	api.DELETE("/memory/:userId", s.deleteMemory)

	docs := s.echo.Group("/api/documents")
	docs.POST("/upload", s.uploadDocument)
	docs.GET("/search", s.searchDocuments)

	admin := s.echo.Group("/api/admin")
	admin.GET("/conversations", s.listConversations)
	admin.GET("/escalations", s.listEscalations)
	admin.GET("/flags", s.getFlags)
	admin.PATCH("/flags", s.patchFlags)
}

// Start implements srv.Service.
func (s *Server) Start(ctx context.Context) error {
	err := s.echo.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown implements srv.Service.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) websocket(c echo.Context) error {
	return s.hub.HandleWebSocket(c.Response(), c.Request())
}

func requestLogger(logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			start := time.Now()
			err := next(c)

			logger.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
			return err
		}
	}
}
