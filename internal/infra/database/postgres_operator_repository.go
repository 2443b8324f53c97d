// internal/infra/database/postgres_operator_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Custom errors specific to the operator repository
var ErrOperatorNotFound = fmt.Errorf("operator token not found")

// PostgresOperatorRepository resolves bearer tokens presented by human
// operators to their account email, backing the manual-trigger
// allowance on the cron endpoint.
type PostgresOperatorRepository struct {
	db *sql.DB
}

func NewPostgresOperatorRepository(db *sql.DB) *PostgresOperatorRepository {
	return &PostgresOperatorRepository{db: db}
}

func (r *PostgresOperatorRepository) GetEmailByToken(ctx context.Context, token string) (string, error) {
	query := `SELECT operator_email FROM operator_tokens WHERE token = $1 AND revoked_at IS NULL`
	var email string
	err := r.db.QueryRowContext(ctx, query, token).Scan(&email)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrOperatorNotFound
		}
		return "", fmt.Errorf("error looking up operator token: %w", err)
	}
	return email, nil
}
