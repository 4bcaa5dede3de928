package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/community"
	"github.com/trezcool/homeroom/core/events"
	"github.com/trezcool/homeroom/core/idcard"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
	"github.com/trezcool/homeroom/core/workpermit"
)

// Deps are the services the API serves. Filled by dig.
type Deps struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Bus        *events.Bus

	Accounts    *account.Service
	Students    *student.Service
	Catalog     *catalog.Service
	Transcripts *transcript.Service
	Community   *community.Service
	WorkPermits *workpermit.Service
	IDCards     *idcard.Service
}

type Server struct {
	app      *echo.Echo
	address  string
	shutdown chan os.Signal
	errors   chan error
}

// NewServer builds the API. Request logs are off in test mode.
func NewServer(deps Deps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.Bus, "Bus"),
		vala.IsNotNil(deps.Accounts, "Accounts"),
		vala.IsNotNil(deps.Students, "Students"),
		vala.IsNotNil(deps.Catalog, "Catalog"),
		vala.IsNotNil(deps.Transcripts, "Transcripts"),
		vala.IsNotNil(deps.Community, "Community"),
		vala.IsNotNil(deps.WorkPermits, "WorkPermits"),
		vala.IsNotNil(deps.IDCards, "IDCards"),
	).CheckAndPanic()

	s := &Server{
		app:      echo.New(),
		address:  deps.Conf.Server.Address(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps Deps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	tokens := newTokenIssuer(conf)
	jwt := tokens.middleware()

	registerAuthAPI(v1, jwt, tokens, deps)
	registerAccountAPI(v1, jwt, deps)
	registerStudentAPI(v1, jwt, deps)
	registerTranscriptAPI(v1, jwt, deps)
	registerCatalogAPI(v1, jwt, deps)
	registerCommunityAPI(v1, jwt, deps)
	registerWorkPermitAPI(v1, jwt, deps)
	registerIDCardAPI(v1, jwt, deps)
	registerEventsAPI(v1, tokens, deps)
}

// Start listens until the server is shut down. Listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Homeroom API!")
}
