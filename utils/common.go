package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/catalogfi/swapdeploy/pkg/store"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// LoadDB opens the deployment journal. Redis and postgres urls select those backends, anything
// else is treated as a sqlite file, defaulting to the one in the swapdeploy home directory.
func LoadDB(dbDialector string) (store.Store, error) {
	switch {
	case strings.HasPrefix(dbDialector, "redis://"), strings.HasPrefix(dbDialector, "rediss://"):
		return store.NewRedisStore(dbDialector)
	case strings.HasPrefix(dbDialector, "postgres://"), strings.HasPrefix(dbDialector, "postgresql://"):
		return openDB(postgres.Open(dbDialector))
	case dbDialector == "":
		if err := os.MkdirAll(DefaultDirectory(), 0755); err != nil {
			return nil, err
		}
		return openDB(sqlite.Open(DefaultStorePath()))
	default:
		return openDB(sqlite.Open(dbDialector))
	}
}

func openDB(dialector gorm.Dialector) (store.Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	return store.NewStore(db)
}

// LoadLogger returns a development logger when verbose is set and a production one otherwise.
// Logs are also appended to logFile as json, and errors reported to sentry, when those are set.
func LoadLogger(verbose bool, logFile, sentryDSN string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		fileCore, err := newFileCore(logFile)
		if err != nil {
			return nil, err
		}
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}
	if sentryDSN == "" {
		return logger, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: sentryDSN})
	if err != nil {
		return nil, err
	}
	cfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(client))
	if err != nil {
		return nil, err
	}
	return zapsentry.AttachCoreToLogger(core, logger), nil
}

func newFileCore(path string) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	loggerConfig := zap.NewProductionEncoderConfig()
	loggerConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(loggerConfig), zapcore.AddSync(logFile), zapcore.DebugLevel), nil
}
