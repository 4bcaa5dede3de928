package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/events"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
	emailsvc "github.com/trezcool/homeroom/services/email"
	logsvc "github.com/trezcool/homeroom/services/logger"
	"github.com/trezcool/homeroom/storage/database"
	sqlxrepos "github.com/trezcool/homeroom/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatal(err)
	}
	rl := logsvc.NewRollbarLogger(zl, conf)
	logger := rl.Named("ADMIN")

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	core.ParseEmailTemplates(conf, logger)
	cli := newCommandLine(db, conf, logger, emailsvc.New(conf, logger), os.Stdout)
	err = cli.run(os.Args)
	cli.closeBus()
	_ = db.Close()
	rl.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// newCommandLine wires the services the commands need over db.
func newCommandLine(db *sqlx.DB, conf *core.Config, logger core.Logger, mailSvc core.EmailService, out io.Writer) *commandLine {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	bus, closeBus := newPublishingBus(conf, logger)
	accounts := account.NewService(sqlxrepos.NewAccountRepository(db), mailSvc, conf, logger)
	students := student.NewService(sqlxrepos.NewStudentRepository(db), bus)
	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db))

	return &commandLine{
		db:       db,
		out:      out,
		closeBus: closeBus,
		validate: validate,
		accounts: accounts,
		transcripts: transcript.NewService(
			sqlxrepos.NewTranscriptRepository(db), students, accounts, catalogSvc, bus, conf, logger,
		),
	}
}

// newPublishingBus returns the bus the commands publish on. With Redis configured,
// events reach the API processes and their SSE clients. The CLI never subscribes.
func newPublishingBus(conf *core.Config, logger core.Logger) (*events.Bus, func()) {
	bus := events.NewBus(logger)
	if conf.Redis.Addr == "" {
		return bus, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr})
	bus.SetBridge(events.NewRedisBridge(rdb, conf.Redis.Channel, logger))
	return bus, func() { _ = rdb.Close() }
}
