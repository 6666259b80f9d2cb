package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager hands out database handles to usecases.
// DB returns a context-bound handle for reads; WithTx runs fn in one
// transaction, committing when fn returns nil and rolling back otherwise.
type TxManager interface {
	DB(ctx context.Context) *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
