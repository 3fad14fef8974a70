package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/config"
	"github.com/iliyamo/hotel-inventory-ledger/internal/database"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository/memstore"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository/mongostore"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository/mysqlstore"
)

// openStore connects the configured backend and creates its indexes.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Store, error) {
	var store repository.Store
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("mysql: %w", err)
		}
		store = mysqlstore.New(db)
	case config.DriverMemory:
		log.Warn("using the in-memory store, data is lost on restart")
		store = memstore.New()
	default:
		client, err := database.OpenMongo(cfg.MongoURL)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		store = mongostore.New(client, cfg.MongoDatabase)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("migrate %s: %w", cfg.StoreDriver, err)
	}
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))
	return store, nil
}
