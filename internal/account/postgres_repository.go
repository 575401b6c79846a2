package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// accountRow is the bun model for the accounts table.
type accountRow struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           uuid.UUID    `bun:"id,pk,type:uuid"`
	Name         string       `bun:"name,notnull"`
	Email        string       `bun:"email,notnull"`
	Phone        *string      `bun:"phone"`
	Avatar       *string      `bun:"avatar"`
	PasswordHash string       `bun:"password_hash,notnull"`
	Role         string       `bun:"role,notnull"`
	IsVerified   bool         `bun:"is_verified,notnull"`
	Preferences  Preferences  `bun:"preferences,type:jsonb,notnull"`
	Profile      BasicProfile `bun:"profile,type:jsonb,notnull"`

	VerificationTokenHash *string    `bun:"verification_token_hash"`
	VerificationExpires   *time.Time `bun:"verification_expires"`
	ResetTokenHash        *string    `bun:"reset_token_hash"`
	ResetExpires          *time.Time `bun:"reset_expires"`
	LoginAttempts         int        `bun:"login_attempts,notnull"`
	LockUntil             *time.Time `bun:"lock_until"`

	LastLogin *time.Time `bun:"last_login"`
	CreatedAt time.Time  `bun:"created_at,notnull"`
	UpdatedAt time.Time  `bun:"updated_at,notnull"`
}

// PostgresRepository stores accounts in Postgres through bun.
type PostgresRepository struct {
	db bun.IDB
}

func NewPostgresRepository(db bun.IDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account into the database
func (r *PostgresRepository) Create(ctx context.Context, a *Account) error {
	row := toAccountRow(a)

	_, err := r.db.NewInsert().
		Model(row).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	*a = *row.toModel()
	return nil
}

// GetByID retrieves an account by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := new(accountRow)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return row.toModel(), nil
}

// GetByEmail retrieves an account by its normalized email
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := new(accountRow)
	err := r.db.NewSelect().
		Model(row).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return row.toModel(), nil
}

// UpdateDetails applies a partial update of the non-security fields
func (r *PostgresRepository) UpdateDetails(ctx context.Context, id uuid.UUID, u DetailsUpdate) (*Account, error) {
	row := new(accountRow)
	q := r.db.NewUpdate().
		Model(row).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id)

	if u.Name != nil {
		q = q.Set("name = ?", *u.Name)
	}
	if u.Phone != nil {
		if *u.Phone == "" {
			q = q.Set("phone = NULL")
		} else {
			q = q.Set("phone = ?", *u.Phone)
		}
	}
	if u.Bio != nil {
		q = q.Set("profile = jsonb_set(profile, '{bio}', to_jsonb(?::text))", *u.Bio)
	}
	if u.Location != nil {
		q = q.Set("profile = jsonb_set(profile, '{location}', to_jsonb(?::text))", *u.Location)
	}
	if u.Website != nil {
		q = q.Set("profile = jsonb_set(profile, '{website}', to_jsonb(?::text))", *u.Website)
	}
	if u.Social != nil {
		social, err := json.Marshal(u.Social)
		if err != nil {
			return nil, fmt.Errorf("failed to encode social links: %w", err)
		}
		q = q.Set("profile = jsonb_set(profile, '{social}', ?::jsonb)", string(social))
	}
	if u.Preferences != nil {
		prefs, err := json.Marshal(u.Preferences)
		if err != nil {
			return nil, fmt.Errorf("failed to encode preferences: %w", err)
		}
		q = q.Set("preferences = ?::jsonb", string(prefs))
	}

	if err := q.Returning("*").Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return row.toModel(), nil
}

// UpdateAvatar stores the public URL of the account's avatar
func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	return r.exec(ctx, "update avatar", r.db.NewUpdate().
		Model((*accountRow)(nil)).
		Set("avatar = ?", avatarURL).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id))
}

// UpdatePassword updates an account's password hash
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.exec(ctx, "update password", r.db.NewUpdate().
		Model((*accountRow)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id))
}

// Delete hard-deletes an account; its profile goes with it via ON DELETE CASCADE
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*accountRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return requireAffected(result)
}

// RecordLoginFailure evaluates the lockout transition inside the UPDATE so
// concurrent failures each count exactly once. All CASE arms read the
// pre-update row.
func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (LockState, error) {
	row := new(accountRow)
	err := r.db.NewUpdate().
		Model(row).
		Set(`login_attempts = CASE
			WHEN lock_until IS NOT NULL AND lock_until <= ? THEN 1
			ELSE login_attempts + 1 END`, now).
		Set(`lock_until = CASE
			WHEN lock_until IS NOT NULL AND lock_until <= ? THEN NULL
			WHEN (lock_until IS NULL OR lock_until <= ?) AND login_attempts + 1 >= ? THEN ?::timestamptz
			ELSE lock_until END`, now, now, policy.MaxAttempts, now.Add(policy.LockDuration)).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Returning("login_attempts, lock_until").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LockState{}, ErrNotFound
		}
		return LockState{}, fmt.Errorf("failed to record login failure: %w", err)
	}

	return LockState{Attempts: row.LoginAttempts, LockUntil: row.LockUntil}, nil
}

// RecordLoginSuccess clears lockout state and stamps the login time
func (r *PostgresRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.exec(ctx, "record login success", r.db.NewUpdate().
		Model((*accountRow)(nil)).
		Set("login_attempts = 0").
		Set("lock_until = NULL").
		Set("last_login = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id))
}

// SetVerificationToken regenerates the verification token of an unverified account
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return r.exec(ctx, "set verification token", r.db.NewUpdate().
		Model((*accountRow)(nil)).
		Set("verification_token_hash = ?", tokenHash).
		Set("verification_expires = ?", expires).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("is_verified = ?", false))
}

// ConsumeVerificationToken marks the account verified and clears the token in one statement
func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*Account, error) {
	row := new(accountRow)
	err := r.db.NewUpdate().
		Model(row).
		Set("is_verified = ?", true).
		Set("verification_token_hash = NULL").
		Set("verification_expires = NULL").
		Set("updated_at = ?", now).
		Where("verification_token_hash = ?", tokenHash).
		Where("verification_expires > ?", now).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	return row.toModel(), nil
}

// SetResetToken stores an outstanding password reset token
func (r *PostgresRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return r.exec(ctx, "set reset token", r.db.NewUpdate().
		Model((*accountRow)(nil)).
		Set("reset_token_hash = ?", tokenHash).
		Set("reset_expires = ?", expires).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id))
}

// ConsumeResetToken swaps the password and clears the reset token in one statement
func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*Account, error) {
	row := new(accountRow)
	err := r.db.NewUpdate().
		Model(row).
		Set("password_hash = ?", passwordHash).
		Set("reset_token_hash = NULL").
		Set("reset_expires = NULL").
		Set("login_attempts = 0").
		Set("lock_until = NULL").
		Set("updated_at = ?", now).
		Where("reset_token_hash = ?", tokenHash).
		Where("reset_expires > ?", now).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	return row.toModel(), nil
}

func (r *PostgresRepository) exec(ctx context.Context, op string, q *bun.UpdateQuery) error {
	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func toAccountRow(a *Account) *accountRow {
	return &accountRow{
		ID:                    a.ID,
		Name:                  a.Name,
		Email:                 a.Email,
		Phone:                 a.Phone,
		Avatar:                a.Avatar,
		PasswordHash:          a.PasswordHash,
		Role:                  string(a.Role),
		IsVerified:            a.IsVerified,
		Preferences:           a.Preferences,
		Profile:               a.Profile,
		VerificationTokenHash: a.VerificationTokenHash,
		VerificationExpires:   a.VerificationExpires,
		ResetTokenHash:        a.ResetTokenHash,
		ResetExpires:          a.ResetExpires,
		LoginAttempts:         a.LoginAttempts,
		LockUntil:             a.LockUntil,
		LastLogin:             a.LastLogin,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

// toModel converts the database row to the domain model
func (row *accountRow) toModel() *Account {
	return &Account{
		ID:                    row.ID,
		Name:                  row.Name,
		Email:                 row.Email,
		Phone:                 row.Phone,
		Avatar:                row.Avatar,
		PasswordHash:          row.PasswordHash,
		Role:                  Role(row.Role),
		IsVerified:            row.IsVerified,
		Preferences:           row.Preferences,
		Profile:               row.Profile,
		VerificationTokenHash: row.VerificationTokenHash,
		VerificationExpires:   row.VerificationExpires,
		ResetTokenHash:        row.ResetTokenHash,
		ResetExpires:          row.ResetExpires,
		LoginAttempts:         row.LoginAttempts,
		LockUntil:             row.LockUntil,
		LastLogin:             row.LastLogin,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
}
