package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// TxManager wraps pgxpool transactions. The callback runs inside a single
// transaction; a nil return commits, any error rolls back everything.
type TxManager struct {
	db *pgxpool.Pool
	l  logger.Logger
}

func NewTxManager(db *pgxpool.Pool, l logger.Logger) *TxManager {
	return &TxManager{db: db, l: l}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			m.l.Errorf(ctx, "repository.postgres.TxManager.WithinTx rollback: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
