package database

import (
	"context"
	"fmt"

	"comanda/internal/config"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL dialect
	_ "github.com/mattn/go-sqlite3"              // SQLite driver
	"github.com/sirupsen/logrus"
)

// Open connects to the configured database and tunes the connection pool.
// An in-memory SQLite database is pinned to a single connection so every
// query sees the same schema.
func Open(cfg config.DatabaseConfig, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if logger != nil {
		db.SetLogger(&gormLogger{entry: logger.WithField("component", "gorm")})
	}
	db.LogMode(cfg.LogSQL)

	if cfg.MaxIdleConns > 0 {
		db.DB().SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		db.DB().SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnLifetime > 0 {
		db.DB().SetConnMaxLifetime(cfg.ConnLifetime)
	}

	if cfg.Dialect == "sqlite3" && isMemory(cfg.DSN) {
		db.DB().SetMaxOpenConns(1)
	}

	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || dsn == "file::memory:"
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Table{},
		&models.User{},
		&models.UserSession{},
		&models.Category{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	).Error
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// SQLite cannot add constraints to existing tables
	if db.Dialect().GetName() != "postgres" {
		return nil
	}
	foreignKeys := []struct {
		model    interface{}
		field    string
		dest     string
		onDelete string
	}{
		{&models.UserSession{}, "user_id", "users(id)", "CASCADE"},
		{&models.MenuItem{}, "category_id", "categories(id)", "RESTRICT"},
		{&models.Order{}, "table_id", "tables(id)", "RESTRICT"},
		{&models.Order{}, "waiter_id", "users(id)", "RESTRICT"},
		{&models.OrderItem{}, "order_id", "orders(id)", "CASCADE"},
		{&models.OrderItem{}, "menu_item_id", "menu_items(id)", "RESTRICT"},
	}
	for _, fk := range foreignKeys {
		table := db.NewScope(fk.model).TableName()
		if db.Dialect().HasForeignKey(table, db.Dialect().BuildKeyName(table, fk.field, fk.dest, "foreign")) {
			continue
		}
		if err := db.Model(fk.model).AddForeignKey(fk.field, fk.dest, fk.onDelete, "CASCADE").Error; err != nil {
			return fmt.Errorf("failed to add foreign key %s: %w", fk.field, err)
		}
	}
	return nil
}

// WithTransaction runs fn inside a transaction. The transaction is committed
// when fn returns nil and rolled back on error or panic.
func WithTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable
func Ping(ctx context.Context, db *gorm.DB) error {
	if err := db.DB().PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// gormLogger routes gorm's SQL log lines into logrus
type gormLogger struct {
	entry *logrus.Entry
}

func (l *gormLogger) Print(values ...interface{}) {
	if len(values) >= 6 && values[0] == "sql" {
		l.entry.WithFields(logrus.Fields{
			"source":   values[1],
			"duration": values[2],
			"sql":      values[3],
			"vars":     values[4],
			"rows":     values[5],
		}).Debug("sql")
		return
	}
	l.entry.Debug(values...)
}
