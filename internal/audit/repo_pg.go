package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PGRepo implements Repo using Postgres. Details are stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, entry Entry) error {
	const query = `
INSERT INTO audit_logs (id, actor_id, action, target_id, details, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	var ip sql.NullString
	if entry.IPAddress != "" {
		ip = sql.NullString{String: entry.IPAddress, Valid: true}
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TargetID,
		details,
		ip,
		entry.CreatedAt,
	)
	return err
}

func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var predicates []string
	var args []any
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		predicates = append(predicates, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		predicates = append(predicates, fmt.Sprintf("action = $%d", len(args)))
	}

	query := `SELECT id, actor_id, action, target_id, details, ip_address, created_at FROM audit_logs`
	if len(predicates) > 0 {
		query += " WHERE " + strings.Join(predicates, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var details []byte
		var target sql.NullString
		var ip sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&target,
			&details,
			&ip,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		if target.Valid {
			entry.TargetID = target.String
		}
		if ip.Valid {
			entry.IPAddress = ip.String
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
