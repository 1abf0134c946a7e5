package workflow

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/broman/realty_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLocker struct {
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released++ }, nil
}

func TestNewPostingLocker_WithoutRedis(t *testing.T) {
	locker := NewPostingLocker(nil, newTestLogger())
	release, err := locker.Acquire(context.Background(), LedgerLockKey)
	require.NoError(t, err)
	release()
	assert.Equal(t, NoopLocker(), locker)
}

func TestService_PostingsTakeTheLedgerLock(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger()
	locker := &recordingLocker{}
	svc := NewService(db, logger, models.NewSettingsStore(db, logger, nil), WithLocker(locker))

	_, _, err := svc.Deposit(testContext(), &NewCashMovement{Amount: dec("50")})
	require.NoError(t, err)
	_, _, err = svc.Withdraw(testContext(), &NewCashMovement{Amount: dec("20")})
	require.NoError(t, err)

	assert.Equal(t, []string{LedgerLockKey, LedgerLockKey}, locker.keys)
	assert.Equal(t, 2, locker.released)
}

func TestService_LockFailureAbortsPosting(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger()
	locker := &recordingLocker{err: context.DeadlineExceeded}
	svc := NewService(db, logger, models.NewSettingsStore(db, logger, nil), WithLocker(locker))

	_, _, err := svc.Deposit(testContext(), &NewCashMovement{Amount: dec("50")})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assertDecimal(t, "0", currentBalance(t, svc))
}
