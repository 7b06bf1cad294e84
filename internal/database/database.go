// Package database opens the bun handles backing the order store: one writer
// and, when a separate DSN is configured, a read replica.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
)

const (
	pingTimeout        = 5 * time.Second
	slowQueryThreshold = 500 * time.Millisecond
)

// Connections bundles writer and reader bun instances. Reader aliases Writer
// when no replica is configured.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// Module registers the database connections with Fx.
var Module = fx.Provide(New)

// New opens the pools and ties their health check and shutdown to the Fx
// lifecycle.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	conns, err := Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := conns.Ping(ctx); err != nil {
				return err
			}
			logger.Info("database connected",
				zap.String("driver", cfg.Database.Driver),
				zap.Bool("replica", conns.hasReplica()),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			return conns.Close()
		},
	})

	return conns, nil
}

// Open builds the connections without touching the network.
func Open(cfg config.Database, logger *zap.Logger) (*Connections, error) {
	dial, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	hook := &queryLogger{logger: logger.Named("bun"), slow: slowQueryThreshold}

	open := func(role, dsn string) (*bun.DB, error) {
		sqldb, err := openSQLDB(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", role, err)
		}
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxConnLifetime > 0 {
			sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)
		}
		db := bun.NewDB(sqldb, dial)
		db.AddQueryHook(hook)
		return db, nil
	}

	writer, err := open("writer", cfg.WriterDSN)
	if err != nil {
		return nil, err
	}
	conns := &Connections{Writer: writer, Reader: writer}
	if cfg.ReaderDSN == "" || cfg.ReaderDSN == cfg.WriterDSN {
		return conns, nil
	}

	reader, err := open("reader", cfg.ReaderDSN)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}
	conns.Reader = reader
	return conns, nil
}

// Ping checks both pools, each bounded by its own timeout.
func (c *Connections) Ping(ctx context.Context) error {
	for role, db := range c.handles() {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ping %s: %w", role, err)
		}
	}
	return nil
}

// Close releases both pools and reports the first failure.
func (c *Connections) Close() error {
	var firstErr error
	for role, db := range c.handles() {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", role, err)
		}
	}
	return firstErr
}

func (c *Connections) hasReplica() bool {
	return c.Reader != nil && c.Reader != c.Writer
}

func (c *Connections) handles() map[string]*bun.DB {
	out := map[string]*bun.DB{"writer": c.Writer}
	if c.hasReplica() {
		out["reader"] = c.Reader
	}
	return out
}
