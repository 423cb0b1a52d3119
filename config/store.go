package config

import (
	"context"
	"fmt"

	"civicreport-be/repositories"
	"civicreport-be/repositories/memstore"
	"civicreport-be/repositories/mongostore"
	"civicreport-be/repositories/pgstore"

	"go.uber.org/zap"
)

// OpenStore connects the configured backend and prepares its schema.
func OpenStore(ctx context.Context, cfg *Config, log *zap.Logger) (repositories.Store, error) {
	switch cfg.StoreDriver {
	case DriverMongo:
		db, err := ConnectMongo(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(db, cfg.MongoTransactions)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		db, err := ConnectPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		store := pgstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		return store, nil
	case DriverMemory:
		log.Warn("using the in-memory store; data is lost on restart")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
