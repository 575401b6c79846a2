package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded Repository for tests and local tooling.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[uuid.UUID]*Account)}
}

func (r *MemoryRepository) Create(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return ErrDuplicateEmail
		}
	}
	r.accounts[a.ID] = clone(a)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) UpdateDetails(_ context.Context, id uuid.UUID, u DetailsUpdate) (*Account, error) {
	var out *Account
	err := r.mutate(id, func(a *Account) {
		u.Apply(a)
		a.UpdatedAt = time.Now()
		out = clone(a)
	})
	return out, err
}

func (r *MemoryRepository) UpdateAvatar(_ context.Context, id uuid.UUID, avatarURL string) error {
	return r.mutate(id, func(a *Account) {
		a.Avatar = &avatarURL
	})
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return r.mutate(id, func(a *Account) {
		a.PasswordHash = passwordHash
	})
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *MemoryRepository) RecordLoginFailure(_ context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (LockState, error) {
	var state LockState
	err := r.mutate(id, func(a *Account) {
		state = policy.AfterFailure(a.LockState(), now)
		a.LoginAttempts = state.Attempts
		a.LockUntil = state.LockUntil
	})
	return state, err
}

func (r *MemoryRepository) RecordLoginSuccess(_ context.Context, id uuid.UUID, now time.Time) error {
	return r.mutate(id, func(a *Account) {
		a.LoginAttempts = 0
		a.LockUntil = nil
		a.LastLogin = &now
	})
}

func (r *MemoryRepository) SetVerificationToken(_ context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || a.IsVerified {
		return ErrNotFound
	}
	a.VerificationTokenHash = &tokenHash
	a.VerificationExpires = &expires
	return nil
}

func (r *MemoryRepository) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.VerificationTokenHash != nil && *a.VerificationTokenHash == tokenHash &&
			a.VerificationExpires != nil && a.VerificationExpires.After(now) {
			a.IsVerified = true
			a.VerificationTokenHash = nil
			a.VerificationExpires = nil
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return r.mutate(id, func(a *Account) {
		a.ResetTokenHash = &tokenHash
		a.ResetExpires = &expires
	})
}

func (r *MemoryRepository) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == tokenHash &&
			a.ResetExpires != nil && a.ResetExpires.After(now) {
			a.PasswordHash = passwordHash
			a.ResetTokenHash = nil
			a.ResetExpires = nil
			a.LoginAttempts = 0
			a.LockUntil = nil
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

// Expire moves every outstanding secret token and lock of the account to the
// given instant. Tests use it to simulate elapsed time.
func (r *MemoryRepository) Expire(id uuid.UUID, at time.Time) {
	_ = r.mutate(id, func(a *Account) {
		if a.VerificationExpires != nil {
			a.VerificationExpires = &at
		}
		if a.ResetExpires != nil {
			a.ResetExpires = &at
		}
		if a.LockUntil != nil {
			a.LockUntil = &at
		}
	})
}

func (r *MemoryRepository) mutate(id uuid.UUID, fn func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	fn(a)
	return nil
}

func clone(a *Account) *Account {
	c := *a
	return &c
}
