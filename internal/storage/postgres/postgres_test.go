package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestGormLoggerTrace(t *testing.T) {
	zl, logs := observed()
	l := newGormLogger(zl)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	assert.Zero(t, logs.Len(), "fast queries are not logged at warn level")

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "slow query", entries[0].Message)
		assert.Equal(t, "query failed", entries[1].Message)
	}
}

func TestGormLoggerLogMode(t *testing.T) {
	zl, logs := observed()
	base := newGormLogger(zl)

	silent := base.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "", 0 }, errors.New("x"))
	silent.Error(context.Background(), "nope")
	assert.Zero(t, logs.Len())

	verbose := base.LogMode(logger.Info)
	verbose.Info(context.Background(), "hello %s", "db")
	verbose.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "hello db", logs.All()[0].Message)

	base.Info(context.Background(), "filtered")
	assert.Equal(t, 2, logs.Len())
}
