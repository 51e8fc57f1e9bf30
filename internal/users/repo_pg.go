package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const periodLength = 30 * 24 * time.Hour

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, email, full_name, role, plan, monthly_limit, documents_used, COALESCE(storage_used, 0), last_reset, created_at, updated_at`

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, full_name, role, plan, monthly_limit, documents_used, storage_used, last_reset, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, 0, now(), now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  updated_at = now()`

	role := user.Role
	if role == "" {
		role = RoleUser
	}
	plan := user.Plan
	if plan == "" {
		plan = PlanFree
	}
	limit := user.MonthlyLimit
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}

	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		nullableString(user.FullName),
		role,
		plan,
		limit,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	query := `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1`
	return r.scanUser(r.DB.QueryRowContext(ctx, query, userID))
}

// List returns users matching the filter plus the unpaginated total count.
func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	predicates := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if plan := strings.TrimSpace(filter.Plan); plan != "" {
		args = append(args, plan)
		predicates = append(predicates, fmt.Sprintf("plan = $%d", len(args)))
	}
	if role := strings.TrimSpace(filter.Role); role != "" {
		args = append(args, role)
		predicates = append(predicates, fmt.Sprintf("role = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		predicates = append(predicates, fmt.Sprintf("(email ILIKE $%d OR full_name ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(predicates) > 0 {
		where = "WHERE " + strings.Join(predicates, " AND ")
	}

	var total int
	countQuery := "SELECT count(*) FROM users " + where
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	listQuery := fmt.Sprintf(`
SELECT `+userColumns+`
FROM users
%s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, user)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) UpdateAccess(ctx context.Context, userID string, upd AccessUpdate) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if upd.Plan != nil {
		args = append(args, *upd.Plan)
		sets = append(sets, fmt.Sprintf("plan = $%d", len(args)))
	}
	if upd.Role != nil {
		args = append(args, *upd.Role)
		sets = append(sets, fmt.Sprintf("role = $%d", len(args)))
	}
	if upd.MonthlyLimit != nil {
		args = append(args, *upd.MonthlyLimit)
		sets = append(sets, fmt.Sprintf("monthly_limit = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Count(ctx context.Context) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total)
	return total, err
}

// EnsureCurrentPeriod resets documents_used when the 30-day window has lapsed,
// holding a row lock so concurrent requests do not double-reset.
func (r *PGRepo) EnsureCurrentPeriod(ctx context.Context, userID string, now time.Time) (User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
FOR UPDATE`
	user, err := r.scanUser(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		return User{}, err
	}

	if now.Sub(user.LastReset) >= periodLength {
		user.DocumentsUsed = 0
		user.LastReset = now
		if _, err = tx.ExecContext(ctx, `
UPDATE users SET documents_used = 0, last_reset = $1, updated_at = now() WHERE id = $2`, now, userID); err != nil {
			return User{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return User{}, err
	}
	return user, nil
}

// ConsumeUpload books one document and its bytes in a single atomic update.
func (r *PGRepo) ConsumeUpload(ctx context.Context, userID string, sizeBytes int64) error {
	const query = `
UPDATE users
SET documents_used = documents_used + 1,
    storage_used = COALESCE(storage_used, 0) + $2,
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, userID, sizeBytes)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseStorage subtracts bytes from the storage counter, floored at zero
// inside the statement so interleaved decrements never go negative.
func (r *PGRepo) ReleaseStorage(ctx context.Context, userID string, sizeBytes int64) error {
	const query = `
UPDATE users
SET storage_used = GREATEST(COALESCE(storage_used, 0) - $2, 0),
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, userID, sizeBytes)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RepairStorage recomputes every user's storage counter from their documents.
func (r *PGRepo) RepairStorage(ctx context.Context) (int64, error) {
	const query = `
UPDATE users u
SET storage_used = COALESCE((SELECT sum(d.size_bytes) FROM documents d WHERE d.user_id = u.id), 0),
    updated_at = now()`
	res, err := r.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanUser(row rowScanner) (User, error) {
	var user User
	var fullName sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&fullName,
		&user.Role,
		&user.Plan,
		&user.MonthlyLimit,
		&user.DocumentsUsed,
		&user.StorageUsed,
		&user.LastReset,
		&user.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if fullName.Valid {
		user.FullName = fullName.String
	}
	if updatedAt.Valid {
		user.UpdatedAt = updatedAt.Time
	}
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
