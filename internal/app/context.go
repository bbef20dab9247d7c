// Package app wires the workspace: config, logger, SQLite store and engine.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"ortholine/internal/config"
	"ortholine/internal/db"
	"ortholine/internal/domain"
	"ortholine/internal/engine"
	"ortholine/internal/logging"
	"ortholine/internal/migrate"
	"ortholine/internal/repo"
)

// Options override values from ortholine.yml. Empty fields keep the file's value.
type Options struct {
	Workspace string
	LogLevel  string
	LogFormat string
	Lang      string
}

// App is one opened workspace. Close releases the database.
type App struct {
	Config *config.Config
	Log    *logrus.Logger
	DB     *sql.DB
	Engine engine.Engine
}

// Open loads the workspace config, migrates the database and builds the engine.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := NewLogger(cfg, opts)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.WithFields(logrus.Fields{"db": db.Path(opts.Workspace), "schema_version": version}).Debug("workspace opened")

	e := engine.New(repo.Repo{DB: conn}, cfg, log)
	if opts.Lang != "" {
		e.Lang = domain.ParseLang(opts.Lang)
	}
	return &App{Config: cfg, Log: log, DB: conn, Engine: e}, nil
}

// NewLogger applies option overrides on top of the config's log section.
func NewLogger(cfg *config.Config, opts Options) (*logrus.Logger, error) {
	level, format := cfg.Log.Level, cfg.Log.Format
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}
	return logging.New(level, format)
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
