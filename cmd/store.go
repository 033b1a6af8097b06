package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/greenfact/esg-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "esg.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore initializes the store, runs migrations, and applies any
// configured Standard template weights over the seeded defaults.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	if len(cfg.Weights) > 0 {
		if err := st.SaveTemplateWeights(ctx, store.StandardScheme, cfg.Weights); err != nil {
			st.Close()
			return nil, eris.Wrap(err, "apply configured weights")
		}
	}
	return st, nil
}
