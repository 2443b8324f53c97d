// internal/infra/database/postgres_audit_log.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"compliance_notifier/internal/domain/notify"

	"github.com/google/uuid"
)

// PostgresAuditLog appends notification attempts to the
// 'notification_log' table for compliance traceability.
type PostgresAuditLog struct {
	db *sql.DB
}

func NewPostgresAuditLog(db *sql.DB) *PostgresAuditLog {
	return &PostgresAuditLog{db: db}
}

func (l *PostgresAuditLog) Append(ctx context.Context, rec *notify.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO notification_log
               (id, run_id, item_id, item_kind, window_label, urgency, audience, sent_via, outcome, error_message, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := l.db.ExecContext(ctx, query,
		rec.ID, rec.RunID, rec.ItemID, rec.ItemKind, rec.WindowLabel,
		rec.Urgency, rec.Audience, rec.SentVia, rec.Outcome,
		sql.NullString{String: rec.Error, Valid: rec.Error != ""}, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error appending notification log record: %w", err)
	}
	return nil
}
