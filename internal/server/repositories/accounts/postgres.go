package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = `id, username, email, password_hash, avatar, avatar_public_id, refresh_token, created_at, updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var refresh sql.NullString
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Avatar,
		&a.AvatarPublicID, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	a.RefreshToken = refresh.String
	return a, nil
}

func mapPostgresError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field := FieldUsername
		if strings.Contains(pgErr.ConstraintName, FieldEmail) {
			field = FieldEmail
		}
		return &DuplicateError{Field: field}
	}
	return fmt.Errorf("db error: %w", err)
}

// validID rejects ids that the uuid column would refuse to cast.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, args ...any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	return scanAccount(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, `email = $1`, email)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.findOne(ctx, `username = $1`, username)
}

func (r *PostgresRepository) Exists(ctx context.Context, f Filter) (bool, error) {
	if f.empty() {
		return false, nil
	}

	var or []string
	var args []any
	if f.Username != "" {
		args = append(args, f.Username)
		or = append(or, fmt.Sprintf("username = $%d", len(args)))
	}
	if f.Email != "" {
		args = append(args, f.Email)
		or = append(or, fmt.Sprintf("email = $%d", len(args)))
	}
	where := "(" + strings.Join(or, " OR ") + ")"
	if f.ExcludeID != "" && validID(f.ExcludeID) {
		args = append(args, f.ExcludeID)
		where += fmt.Sprintf(" AND id <> $%d", len(args))
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE `+where+`)`, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, email, password_hash, avatar, avatar_public_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING ` + accountColumns

	return scanAccount(r.db.QueryRowContext(ctx, query,
		a.Username, a.Email, a.PasswordHash, a.Avatar, a.AvatarPublicID))
}

func (r *PostgresRepository) Update(ctx context.Context, id string, u models.AccountUpdate) (*models.Account, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	if u.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Username != nil {
		add("username", *u.Username)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Avatar != nil {
		add("avatar", u.Avatar.URL)
		add("avatar_public_id", u.Avatar.PublicID)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), accountColumns)

	return scanAccount(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}
	return r.exec(ctx, `UPDATE accounts SET refresh_token = $1 WHERE id = $2`, token, id)
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}
	return r.exec(ctx, `UPDATE accounts SET refresh_token = NULL WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, id, token string) (*models.Account, error) {
	if token == "" || !validID(id) {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, `id = $1 AND refresh_token = $2`, id, token)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
