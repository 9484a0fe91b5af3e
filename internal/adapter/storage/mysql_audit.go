package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/backoffice/internal/core/domain"
)

func (m *MySQLAdapter) Append(ctx context.Context, entry domain.AuditEntry) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO admin_action_logs
			(id, actor, action, target_type, target_id, description, before_json, after_json,
			 severity, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Actor, entry.Action, entry.TargetType, entry.TargetID,
		entry.Description, nullable(entry.BeforeJSON), nullable(entry.AfterJSON),
		entry.Severity, entry.Status, nullable(entry.ErrorMessage), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ByActor(ctx context.Context, actor string, limit int) ([]domain.AuditEntry, error) {
	return m.queryAudit(ctx, "WHERE actor = ?", []any{actor}, limit)
}

func (m *MySQLAdapter) ByTarget(ctx context.Context, targetType, targetID string, limit int) ([]domain.AuditEntry, error) {
	return m.queryAudit(ctx, "WHERE target_type = ? AND target_id = ?", []any{targetType, targetID}, limit)
}

func (m *MySQLAdapter) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return m.queryAudit(ctx, "", nil, limit)
}

func (m *MySQLAdapter) queryAudit(ctx context.Context, where string, args []any, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, actor, action, target_type, target_id, description, before_json, after_json,
		       severity, status, error_message, created_at
		FROM admin_action_logs `+where+`
		ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			entry      domain.AuditEntry
			beforeJSON sql.NullString
			afterJSON  sql.NullString
			errMsg     sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.TargetType,
			&entry.TargetID, &entry.Description, &beforeJSON, &afterJSON,
			&entry.Severity, &entry.Status, &errMsg, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.BeforeJSON = beforeJSON.String
		entry.AfterJSON = afterJSON.String
		entry.ErrorMessage = errMsg.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
