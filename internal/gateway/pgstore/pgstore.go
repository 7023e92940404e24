// Package pgstore implements gateway.Tables over gorm.
package pgstore

import (
	"context"
	"fmt"
	"strings"

	"itsaportal/internal/gateway"
	"itsaportal/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the gateway database. Postgres URLs go to the postgres
// driver; "file:" DSNs and *.db paths open sqlite for local development.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	var dial gorm.Dialector
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		dial = sqlite.Open(dsn)
	} else {
		dial = postgres.Open(dsn)
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, fmt.Errorf("open gateway db: %w", err)
	}
	return db, nil
}

// Migrate creates the portal and auth tables.
func Migrate(db *gorm.DB) error {
	all := append(models.Auth(), models.Portal()...)
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Select(ctx context.Context, table string, q gateway.Query, dest any) error {
	tx := s.db.WithContext(ctx).Table(table)
	if len(q.Eq) > 0 {
		tx = tx.Where(map[string]any(q.Eq))
	}
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return gateway.Wrap("select "+table, tx.Find(dest).Error)
}

func (s *Store) Insert(ctx context.Context, table string, row any) error {
	return gateway.Wrap("insert "+table, s.db.WithContext(ctx).Table(table).Create(row).Error)
}

func (s *Store) UpdateByID(ctx context.Context, table, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return gateway.Wrap("update "+table, res.Error)
	}
	if res.RowsAffected == 0 {
		return gateway.Wrap("update "+table, gateway.ErrNotFound)
	}
	return nil
}

