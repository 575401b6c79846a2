package account

import "time"

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockDuration     = 2 * time.Hour
)

// LockoutPolicy decides when repeated login failures lock an account.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy locks for two hours after five failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: DefaultMaxLoginAttempts, LockDuration: DefaultLockDuration}
}

// LockState is the persisted part of the lockout state machine.
type LockState struct {
	Attempts  int
	LockUntil *time.Time
}

func (s LockState) Locked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// AfterFailure is the transition for a failed attempt. An expired lock is
// cleared and the window restarts at one attempt. Otherwise the counter grows
// and, once it reaches the threshold while unlocked, a lock is set.
// Repositories implement the same rule as one conditional update.
func (p LockoutPolicy) AfterFailure(s LockState, now time.Time) LockState {
	if s.LockUntil != nil && !s.LockUntil.After(now) {
		return LockState{Attempts: 1}
	}

	next := LockState{Attempts: s.Attempts + 1, LockUntil: s.LockUntil}
	if next.Attempts >= p.MaxAttempts && !s.Locked(now) {
		until := now.Add(p.LockDuration)
		next.LockUntil = &until
	}
	return next
}

// AfterSuccess clears the counter and any lock.
func (p LockoutPolicy) AfterSuccess() LockState {
	return LockState{}
}

// LockState returns the account's current lockout state.
func (a *Account) LockState() LockState {
	return LockState{Attempts: a.LoginAttempts, LockUntil: a.LockUntil}
}
