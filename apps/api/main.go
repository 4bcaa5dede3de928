package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/homeroom/apps/api/di/dig"
	echoapi "github.com/trezcool/homeroom/apps/api/echo"
	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/community"
	"github.com/trezcool/homeroom/core/idcard"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
	"github.com/trezcool/homeroom/core/workpermit"
	logsvc "github.com/trezcool/homeroom/services/logger"
)

func main() {
	graph := flag.Bool("graph", false, "print the dependency graph (DOT) and exit")
	flag.Parse()

	c := dig_container.New()
	if *graph {
		must(dig_container.Visualize(c))
		return
	}

	must(c.Invoke(func(
		conf *core.Config,
		rollbarLogger *logsvc.RollbarLogger,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sqlx.DB,
		validate *validator.Validate,
		translator ut.Translator,
		transcripts *transcript.Service,
		communitySvc *community.Service,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer rollbarLogger.Sync()

		core.InitValidators(validate, translator)
		account.InitValidators(validate, translator)
		student.InitValidators(validate, translator)
		transcript.InitValidators(validate, translator)
		community.InitValidators(validate, translator)
		workpermit.InitValidators(validate, translator)
		idcard.InitValidators(validate, translator)

		core.ParseEmailTemplates(conf, apiLogger)

		defer transcripts.Subscribe()()
		defer communitySvc.Subscribe()()

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.Publish("pending_drafts", expvar.Func(func() interface{} { return transcripts.PendingDrafts() }))

		if conf.Server.DebugHost != "" {
			go func() {
				if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
					apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
				}
			}()
		}

		// =========================================================================
		// Start API Service

		go server.Start()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}

		// autosaved drafts still waiting for their timer are written now
		transcripts.FlushDrafts()
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
