// Package app wires the pantry bot together: configuration, storage, the
// catalog, the conversation engine, and the Telegram surface.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	corebootstrap "github.com/ffstudios/pantrybot/core/bootstrap"
	coretelegram "github.com/ffstudios/pantrybot/core/telegram"
	"github.com/ffstudios/pantrybot/core/telegram/router"
	"github.com/ffstudios/pantrybot/internal/catalog"
	"github.com/ffstudios/pantrybot/internal/conversation"
	"github.com/ffstudios/pantrybot/internal/nlp"
	"github.com/ffstudios/pantrybot/internal/postgres"
	"github.com/ffstudios/pantrybot/internal/recorder"
)

// App holds the assembled application.
type App struct {
	cfg *Config
	db  *sqlx.DB

	catalog  *catalog.Service
	catStore *postgres.CatalogStore
	levels   *postgres.LedgerStore
	manager  *conversation.Manager
	parser   nlp.Parser
}

// Bootstrap initializes infrastructure and builds the application graph.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	infra, err := corebootstrap.Run(corebootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	return build(cfg, infra.DB)
}

// build assembles the graph over an already-connected database. Split from
// Bootstrap so tests can swap the storage layer.
func build(cfg *Config, db *sqlx.DB) (*App, error) {
	catStore := postgres.NewCatalogStore(db)
	cat, err := catalog.NewService(context.Background(), catStore, cfg.Matching.Threshold)
	if err != nil {
		return nil, fmt.Errorf("app: catalog load failed: %w", err)
	}

	levels := postgres.NewLedgerStore(db)
	rec := recorder.New(postgres.NewTxRunner(db))
	engine := conversation.NewEngine(cat, rec, levels, cfg.OpenAI.MinConfidence)
	manager := conversation.NewManager(engine, conversation.NewMemoryStore())

	return &App{
		cfg:      cfg,
		db:       db,
		catalog:  cat,
		catStore: catStore,
		levels:   levels,
		manager:  manager,
		parser:   nlp.NewOpenAIParser(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
	}, nil
}

// TelegramRunOptions builds the bot wiring consumed by the core runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Core.Telegram.AdminID,
		OnAdminReject: a.handleAdminReject,
	})
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		OnText: a.handleText,
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
