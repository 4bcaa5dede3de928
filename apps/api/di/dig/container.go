package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/homeroom/apps/api/echo"
	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/community"
	"github.com/trezcool/homeroom/core/events"
	"github.com/trezcool/homeroom/core/idcard"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
	"github.com/trezcool/homeroom/core/workpermit"
	emailsvc "github.com/trezcool/homeroom/services/email"
	logsvc "github.com/trezcool/homeroom/services/logger"
	"github.com/trezcool/homeroom/storage/database"
	sqlxrepos "github.com/trezcool/homeroom/storage/database/sqlx"
	"github.com/trezcool/homeroom/storage/objectstore"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newZap(conf *core.Config) *zap.SugaredLogger {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatal(errors.Wrap(err, "building zap logger").Error())
	}
	return zl
}

func newRollbarLogger(zl *zap.SugaredLogger, conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(zl, conf)
}

func newLogger(rl *logsvc.RollbarLogger) core.Logger {
	return rl.Named("API")
}

func newDBLogger(rl *logsvc.RollbarLogger) core.Logger {
	return rl.Named("DB")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

// newBus bridges the bus through Redis when an address is configured.
func newBus(conf *core.Config, logger core.Logger) *events.Bus {
	bus := events.NewBus(logger)
	if conf.Redis.Addr == "" {
		return bus
	}

	rdb := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr})
	bridge := events.NewRedisBridge(rdb, conf.Redis.Channel, logger)
	if err := bridge.Start(context.Background(), bus); err != nil {
		logger.Error(fmt.Sprintf("redis bridge disabled: %v", err), err)
		_ = rdb.Close()
		return bus
	}
	bus.SetBridge(bridge)
	return bus
}

func newObjectStore(conf *core.Config, logger core.Logger) core.ObjectStore {
	store, err := objectstore.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up object store: %v", err), err)
	}
	return store
}

func newRenderer(logger core.Logger) *idcard.Renderer {
	r, err := idcard.NewRenderer()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading id card fonts: %v", err), err)
	}
	return r
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZap))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(emailsvc.New))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newBus))
	must(c.Provide(newObjectStore))
	must(c.Provide(newRenderer))

	// repositories
	must(c.Provide(sqlxrepos.NewAccountRepository, dig.As(new(account.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewCatalogRepository, dig.As(new(catalog.Repository))))
	must(c.Provide(sqlxrepos.NewTranscriptRepository, dig.As(new(transcript.Repository))))
	must(c.Provide(sqlxrepos.NewCommunityRepository, dig.As(new(community.Repository))))
	must(c.Provide(sqlxrepos.NewWorkPermitRepository, dig.As(new(workpermit.Repository))))
	must(c.Provide(sqlxrepos.NewIDCardRepository, dig.As(new(idcard.Repository))))

	// services
	must(c.Provide(account.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(catalog.NewService))
	must(c.Provide(newTranscriptService))
	must(c.Provide(newCommunityService))
	must(c.Provide(newWorkPermitService))
	must(c.Provide(newIDCardService))
	must(c.Provide(echoapi.NewServer))

	return c
}

func newTranscriptService(
	repo transcript.Repository,
	students *student.Service,
	accounts *account.Service,
	sources *catalog.Service,
	bus *events.Bus,
	conf *core.Config,
	logger core.Logger,
) *transcript.Service {
	return transcript.NewService(repo, students, accounts, sources, bus, conf, logger)
}

func newCommunityService(
	repo community.Repository,
	accounts *account.Service,
	mailSvc core.EmailService,
	bus *events.Bus,
	logger core.Logger,
) *community.Service {
	return community.NewService(repo, accounts, mailSvc, bus, logger)
}

func newWorkPermitService(repo workpermit.Repository, students *student.Service, bus *events.Bus) *workpermit.Service {
	return workpermit.NewService(repo, students, bus)
}

func newIDCardService(
	repo idcard.Repository,
	students *student.Service,
	accounts *account.Service,
	store core.ObjectStore,
	renderer *idcard.Renderer,
	mailSvc core.EmailService,
	logger core.Logger,
) *idcard.Service {
	return idcard.NewService(repo, students, accounts, store, renderer, mailSvc, logger)
}

// Visualize writes the dependency graph in DOT format.
func Visualize(c *dig.Container) error {
	return dig.Visualize(c, os.Stdout)
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
