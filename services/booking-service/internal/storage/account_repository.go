package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var ErrEmailTaken = errors.New("email already registered")

const accountColumns = `id::text, first_name, last_name, COALESCE(phone, ''), email, password_hash, role, is_active, created_at`

type AccountRepository struct {
	pool *db.Pool
}

func NewAccountRepository(pool *db.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts acct and returns it with its generated id. Empty names fall
// back to the column defaults.
func (r *AccountRepository) Create(ctx context.Context, acct model.Account) (model.Account, error) {
	acct.Email = strings.ToLower(strings.TrimSpace(acct.Email))
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (first_name, last_name, phone, email, password_hash, role, is_active)
		VALUES (COALESCE(NULLIF($1, ''), 'Unknown'), COALESCE(NULLIF($2, ''), 'User'), $3, $4, $5, $6, $7)
		RETURNING id::text, first_name, last_name, created_at
	`, acct.FirstName, acct.LastName, acct.Phone, acct.Email, acct.PasswordHash, string(acct.Role), acct.IsActive,
	).Scan(&acct.ID, &acct.FirstName, &acct.LastName, &acct.CreatedAt)
	if db.IsUniqueViolation(err, "accounts_email_key") {
		return model.Account{}, ErrEmailTaken
	}
	if err != nil {
		return model.Account{}, err
	}
	return acct, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id::text = $1
	`, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active = $2 WHERE id::text = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var (
		acct model.Account
		role string
	)
	err := row.Scan(&acct.ID, &acct.FirstName, &acct.LastName, &acct.Phone, &acct.Email, &acct.PasswordHash, &role, &acct.IsActive, &acct.CreatedAt)
	if db.IsNoRows(err) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	acct.Role = model.Role(role)
	return acct, nil
}
