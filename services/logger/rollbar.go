package logsvc

import (
	"fmt"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/homeroom/core"
)

var rollbarInit sync.Once

// RollbarLogger reports to Rollbar and writes structured lines through zap.
type RollbarLogger struct {
	name string
	zl   *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.SugaredLogger, conf *core.Config) *RollbarLogger {
	rollbarInit.Do(func() {
		rollbar.SetToken(conf.RollbarToken)
		rollbar.SetEnvironment(conf.Env)
		rollbar.SetServerHost(conf.Server.Host)
		rollbar.SetCodeVersion(conf.Build)
		rollbar.SetStackTracer(errors.StackTracer)
		rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	})
	return &RollbarLogger{zl: zl}
}

// Named returns a logger whose messages are prefixed with name, e.g. "API" or "DB".
func (l *RollbarLogger) Named(name string) *RollbarLogger {
	return &RollbarLogger{name: name, zl: l.zl.Named(name)}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes zap and waits for pending Rollbar reports.
func (l *RollbarLogger) Sync() {
	_ = l.zl.Sync()
	rollbar.Wait()
}

// expected args: error, map[string]interface{}, core.Actor
func (l *RollbarLogger) prepare(msg string, args []interface{}) (report []interface{}, fields []interface{}) {
	if l.name != "" {
		msg = l.name + ": " + msg
	}
	var actorSet bool
	report = append(make([]interface{}, 0, len(args)+1), msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Actor:
			if !actorSet { // only one person per report
				rollbar.SetPerson(a.AccountID, a.Name, a.Email)
				fields = append(fields, "account_id", a.AccountID)
				actorSet = true
			}
		case error:
			report = append(report, a)
			fields = append(fields, "error", a)
		case map[string]interface{}:
			report = append(report, a)
			for k, v := range a {
				fields = append(fields, k, v)
			}
		default:
			report = append(report, a)
			fields = append(fields, "extra", fmt.Sprintf("%+v", a))
		}
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	return report, fields
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	report, fields := l.prepare(msg, args)
	rollbar.Debug(report...)
	l.zl.Debugw(msg, fields...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	report, fields := l.prepare(msg, args)
	rollbar.Info(report...)
	l.zl.Infow(msg, fields...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	report, fields := l.prepare(msg, args)
	rollbar.Warning(report...)
	l.zl.Warnw(msg, fields...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	report, fields := l.prepare(msg, args)
	rollbar.Error(report...)
	l.zl.Errorw(msg, fields...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	report, fields := l.prepare(msg, args)
	rollbar.Critical(report...)
	rollbar.Wait()
	l.zl.Fatalw(msg, fields...)
}
