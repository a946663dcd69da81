package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/dashboard"
)

type Server struct {
	conf     *core.Config
	app      *echo.Echo
	dashSvc  *dashboard.Service
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(
	conf *core.Config,
	logger core.Logger,
	dashSvc *dashboard.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *Server {
	s := &Server{
		conf:     conf,
		app:      echo.New(),
		dashSvc:  dashSvc,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(logger, validate, translator)
	return s
}

func (s *Server) setup(logger core.Logger, validate *validator.Validate, translator ut.Translator) {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(logger, translator, s.SignalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	registerDashboardAPI(v1, s.dashSvc, validate)
}

// Start listens until the server is shut down. Errors are reported through Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the main goroutine to shut the server down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Shutdown stops accepting requests, waits for the outstanding ones then tears every session down.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.dashSvc.CloseAll()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	defer s.dashSvc.CloseAll()
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
