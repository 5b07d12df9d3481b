package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

type UserRepository struct {
	db *pgxpool.Pool
	l  logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, l logger.Logger) *UserRepository {
	return &UserRepository{db: db, l: l}
}

func (r *UserRepository) Get(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
