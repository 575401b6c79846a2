package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutPolicy_LocksOnFifthFailure(t *testing.T) {
	p := DefaultLockoutPolicy()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s := LockState{}
	for i := 1; i <= 4; i++ {
		s = p.AfterFailure(s, now)
		assert.Equal(t, i, s.Attempts)
		assert.Nil(t, s.LockUntil, "attempt %d should not lock", i)
	}

	s = p.AfterFailure(s, now)
	assert.Equal(t, 5, s.Attempts)
	require.NotNil(t, s.LockUntil)
	assert.Equal(t, now.Add(2*time.Hour), *s.LockUntil)
	assert.True(t, s.Locked(now))
}

func TestLockoutPolicy_FailureWhileLockedKeepsLock(t *testing.T) {
	p := DefaultLockoutPolicy()
	now := time.Now()
	until := now.Add(time.Hour)

	s := p.AfterFailure(LockState{Attempts: 5, LockUntil: &until}, now)
	assert.Equal(t, 6, s.Attempts)
	require.NotNil(t, s.LockUntil)
	assert.Equal(t, until, *s.LockUntil)
}

func TestLockoutPolicy_ExpiredLockRestartsWindow(t *testing.T) {
	p := DefaultLockoutPolicy()
	now := time.Now()
	expired := now.Add(-time.Minute)

	s := p.AfterFailure(LockState{Attempts: 5, LockUntil: &expired}, now)
	assert.Equal(t, LockState{Attempts: 1}, s)
	assert.False(t, s.Locked(now))
}

func TestLockoutPolicy_AfterSuccess(t *testing.T) {
	assert.Equal(t, LockState{}, DefaultLockoutPolicy().AfterSuccess())
}

func TestAccount_IsLocked(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.False(t, (&Account{}).IsLocked(now))
	assert.False(t, (&Account{LockUntil: &past}).IsLocked(now))
	assert.False(t, (&Account{LockUntil: &now}).IsLocked(now))
	assert.True(t, (&Account{LockUntil: &future}).IsLocked(now))
}
