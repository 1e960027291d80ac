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

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/reconcile"
	"github.com/trezcool/ada/core/report"
	"github.com/trezcool/ada/core/student"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
)

type (
	DefaultersReporter interface {
		ComputeDefaulters(ctx context.Context, tenantID string, overdueDays int, class string) (reconcile.Report, error)
	}

	StatsReporter interface {
		Stats(ctx context.Context, tenantID string) (report.Stats, error)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		TenantSvc  tenant.ServiceInterface
		UserSvc    user.ServiceInterface
		StudentSvc student.ServiceInterface
		FeeSvc     fee.ServiceInterface
		PaymentSvc payment.ServiceInterface
		Defaulters DefaultersReporter
		Dashboard  StatsReporter
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{conf.FrontendBaseURL},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/health", health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))

	registerAuthAPI(v1, jwt, s.deps)
	registerTenantAPI(v1, jwt, s.deps)
	registerUserAPI(v1, jwt, s.deps)
	registerStudentAPI(v1, jwt, s.deps)
	registerFeeAPI(v1, jwt, s.deps)
	registerPaymentAPI(v1, jwt, s.deps)
	registerReportAPI(v1, jwt, s.deps)
}

// Start listens in the background; failures are reported on Errors().
func (s *Server) Start() {
	go func() {
		if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
			s.errors <- err
		}
	}()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
