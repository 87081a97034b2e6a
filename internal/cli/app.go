// internal/cli/app.go
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwiater/adjudicator/internal/appconfig"
	"github.com/mwiater/adjudicator/internal/credits"
	"github.com/mwiater/adjudicator/internal/llmcall"
	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/pipeline"
	"github.com/mwiater/adjudicator/internal/prompts"
	"github.com/mwiater/adjudicator/internal/providerfactory"
	"github.com/mwiater/adjudicator/internal/providers"
	"github.com/mwiater/adjudicator/internal/store"
)

// app holds the collaborators a command needs. Fields a command did not ask
// for stay nil.
type app struct {
	cfg      *appconfig.Config
	store    *store.Store
	prompts  *prompts.Library
	provider providers.ChatProvider
	runner   *pipeline.Executor
	ledger   credits.Ledger

	closers []func() error
}

// appNeeds selects what newApp builds beyond the store.
type appNeeds struct {
	pipeline bool
	ledger   bool
}

// openStore is replaceable in tests.
var openStore = store.Open

// newChatProvider is replaceable in tests.
var newChatProvider = providerfactory.NewChatProvider

func newApp(ctx context.Context, cfg *appconfig.Config, needs appNeeds) (*app, error) {
	a := &app{cfg: cfg}

	st, err := openStore(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath(), err)
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	if needs.pipeline {
		if err := a.buildPipeline(ctx); err != nil {
			a.close()
			return nil, err
		}
	}
	if needs.ledger {
		if err := a.buildLedger(ctx); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) buildPipeline(ctx context.Context) error {
	lib, err := prompts.Load(a.cfg.PromptsDir)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}
	a.prompts = lib

	provider, err := newChatProvider(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.provider = provider
	a.closers = append(a.closers, provider.Close)

	service := llmcall.NewService(
		llmcall.NewClient(provider, lib),
		a.store,
		llmcall.WithDelay(a.cfg.RetryDelay()),
	)
	a.runner = pipeline.New(pipeline.Deps{
		Caller:     service,
		Prompts:    lib,
		MaxRetries: a.cfg.RetryCount(),
	}, a.cfg.StageDelay())
	return nil
}

func (a *app) buildLedger(ctx context.Context) error {
	cr := a.cfg.CreditSettings()
	switch cr.Backend {
	case "redis":
		rl, err := credits.NewRedis(ctx, cr.RedisAddr, cr.Limit)
		if err != nil {
			return fmt.Errorf("connect credit ledger: %w", err)
		}
		a.ledger = rl
		a.closers = append(a.closers, rl.Close)
	default:
		a.ledger = credits.NewSQLite(a.store, cr.Limit)
	}
	logging.LogDebug("credit ledger: %s (limit %g, cost %g)", cr.Backend, cr.Limit, cr.Cost)
	return nil
}

// close releases everything in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
