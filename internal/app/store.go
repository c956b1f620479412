package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yoola/core/internal/config"
	"github.com/yoola/core/internal/database"
	"github.com/yoola/core/internal/modules/language"
	"github.com/yoola/core/internal/modules/summary"
	"github.com/yoola/core/internal/modules/summary/store/memstore"
	"github.com/yoola/core/internal/modules/summary/store/mongostore"
	"github.com/yoola/core/internal/modules/summary/store/sqlstore"
)

const storeConnectTimeout = 10 * time.Second

// Store is a summary store that also carries the language reference table.
type Store interface {
	summary.Store
	language.Catalog
	Kind() string
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Store = (*sqlstore.Store)(nil)
	_ Store = (*mongostore.Store)(nil)
	_ Store = (*memstore.Store)(nil)
)

// OpenStore connects the store selected by database.driver.
func OpenStore(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
		defer cancel()
		s, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		return s, nil
	default:
		db, err := database.Connect(cfg, true)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return sqlstore.New(db), nil
	}
}
