package database

import (
	"context"

	"clinic-scheduling/internal/domain/repository"

	"gorm.io/gorm"
)

type txManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) repository.TxManager {
	return &txManager{db: db}
}

func (m *txManager) DB(ctx context.Context) *gorm.DB {
	return m.db.WithContext(ctx)
}

// WithTx commits when fn returns nil and rolls back on error or panic.
func (m *txManager) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
