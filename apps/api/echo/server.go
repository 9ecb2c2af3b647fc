package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/insights"
	"github.com/pulseed/pulseed/core/risk"
	"github.com/pulseed/pulseed/core/support"
	"github.com/pulseed/pulseed/core/teacher"
	"github.com/pulseed/pulseed/storage/database"
)

type (
	// FeedbackSubscriber registers for a teacher's live feedback events.
	FeedbackSubscriber interface {
		Subscribe(teacherID string) (<-chan database.FeedbackEvent, func())
	}

	ServerDeps struct {
		Conf   *core.Config
		Logger core.Logger

		TeacherSvc     *teacher.Service
		FeedbackSvc    *feedback.Service
		AlertSvc       *alert.Service
		RiskSvc        *risk.Service
		SupportSvc     *support.Service
		InsightsSvc    *insights.Service
		FeedbackEvents FeedbackSubscriber
	}

	Server struct {
		deps ServerDeps
		app  *echo.Echo

		jwtConfig middleware.JWTConfig
		errs      chan error
		shutdown  chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:      deps,
		app:       echo.New(),
		jwtConfig: newJWTConfig(deps.Conf),
		errs:      make(chan error, 1),
		shutdown:  make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.Logger())
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConfig)

	registerTeacherAPI(v1, jwt, s.deps)
	registerStudentAPI(v1, jwt, s.deps)
	registerFeedbackAPI(v1, jwt, s.deps)
	registerAlertAPI(v1, jwt, s.deps)
	registerSupportAPI(v1, jwt, s.deps)
	registerInsightsAPI(v1, jwt, s.deps)
}

func (s *Server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.APIHost); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Errors() <-chan error             { return s.errs }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown initiates a graceful shutdown, used on integrity errors.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to PulseEd API!")
}
