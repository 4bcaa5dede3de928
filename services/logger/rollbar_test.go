package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/homeroom/core"
)

func actorFixture() core.Actor {
	return core.Actor{AccountID: "acc1", Email: "ada@test.io", Name: "Ada"}
}

func TestRollbarLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obs).Sugar(), core.NewTestConfig()).Named("API")

	actor := actorFixture()
	err := errors.New("boom")
	logger.Error("sync failed", err, map[string]interface{}{"student_id": "st1"}, actor)
	logger.Info("started")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, "API", entries[0].LoggerName)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "sync failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "st1", fields["student_id"])
	assert.Equal(t, actor.AccountID, fields["account_id"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].ContextMap())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(zap.NewNop().Sugar(), core.NewTestConfig()).Named("DB")
	actor := actorFixture()

	report, fields := logger.prepare("msg", []interface{}{actor, actor, 42})
	assert.Equal(t, []interface{}{"DB: msg", 42}, report)
	assert.Equal(t, []interface{}{"account_id", actor.AccountID, "extra", "42"}, fields)
}
