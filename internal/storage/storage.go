// Package storage opens the employee store selected by configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/ems/internal/config"
	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/storage/memory"
	"github.com/JonMunkholm/ems/internal/storage/postgres"
	"github.com/JonMunkholm/ems/internal/storage/sqlstore"
)

// Backend is an opened store with its audit log.
type Backend struct {
	Store employee.Store
	Audit core.AuditLog
	close func()
}

// Close releases the connection pool, if any.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the configured driver and migrates the schema when
// cfg.Migrate is set.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	driver := strings.ToLower(cfg.Driver)
	logger := slog.With("driver", driver)

	switch driver {
	case "", config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &Backend{Store: memory.New(), Audit: core.NewMemoryAuditLog()}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.PoolConfig{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		logger.Info("connected to database", "name", pool.Config().ConnConfig.Database)
		return &Backend{
			Store: postgres.New(pool),
			Audit: postgres.NewAuditLog(pool),
			close: pool.Close,
		}, nil

	case config.DriverMySQL, config.DriverSQLite:
		dialect, err := sqlstore.DialectFor(driver)
		if err != nil {
			return nil, err
		}
		db, err := sqlstore.Open(ctx, dialect, cfg.URL, sqlstore.Options{
			MaxOpenConns:    cfg.MaxConns,
			MaxIdleConns:    cfg.MinConns,
			ConnMaxLifetime: cfg.MaxConnLifetime,
			ConnMaxIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
				db.Close()
				return nil, err
			}
		}
		logger.Info("connected to database")
		return &Backend{
			Store: sqlstore.New(db, dialect),
			Audit: sqlstore.NewAuditLog(db),
			close: func() { db.Close() },
		}, nil
	}

	return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
}
