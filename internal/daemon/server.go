package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"scriptpack/internal/ignore"
	"scriptpack/internal/logger"
	"scriptpack/internal/model"
	"scriptpack/internal/repository"
	"scriptpack/internal/session"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Watch    model.WatchStatus `json:"watch"`
	Patterns []string          `json:"patterns"`
	Events   []EventEntry      `json:"events"`
}

// ReloadResponse is returned by POST /reload.
type ReloadResponse struct {
	Patterns []string `json:"patterns"`
	FromFile bool     `json:"from_file"`
}

type Server struct {
	echo     *echo.Echo
	session  *session.Session
	events   *EventLog
	histRepo *repository.HistoryRepository
	port     int
	stopCh   chan struct{}
}

func NewServer(sess *session.Session, events *EventLog, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		session:  sess,
		events:   events,
		histRepo: repository.NewHistoryRepository(),
		port:     port,
		stopCh:   make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/pack", s.handlePack)
	s.echo.POST("/reload", s.handleReload)
	s.echo.POST("/stop", s.handleStop)
	s.echo.GET("/history", s.handleHistory)
}

func (s *Server) Start() {
	go func() {
		addr := "127.0.0.1:" + strconv.Itoa(s.port)
		logger.Log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.session.StopWatch()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleStatus(c echo.Context) error {
	patterns, _ := s.session.Patterns()
	return c.JSON(http.StatusOK, StatusResponse{
		Watch:    s.session.Status(),
		Patterns: patterns,
		Events:   s.events.Snapshot(),
	})
}

func (s *Server) handlePack(c echo.Context) error {
	root, dest, ok := s.session.Target()
	if !ok {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no active watch"})
	}

	result, err := s.session.Pack(c.Request().Context(), root, dest)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleReload(c echo.Context) error {
	if err := s.session.ReloadPatterns(); err != nil {
		if _, ok := errors.AsType[*ignore.InvalidPatternError](err); ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if errors.Is(err, session.ErrNoWorkspace) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	patterns, fromFile := s.session.Patterns()
	return c.JSON(http.StatusOK, ReloadResponse{Patterns: patterns, FromFile: fromFile})
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleHistory(c echo.Context) error {
	n := 20
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil && parsed > 0 {
			n = parsed
		}
	}

	histories, err := s.histRepo.GetRecent(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}
