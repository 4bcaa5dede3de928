package logsvc

import (
	"go.uber.org/zap"

	"github.com/trezcool/homeroom/core"
)

// NewZap builds the console logger: human readable in debug, JSON otherwise.
func NewZap(conf *core.Config) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if conf.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if conf.TestMode {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return zl.Sugar().With("env", conf.Env, "build", conf.Build), nil
}
