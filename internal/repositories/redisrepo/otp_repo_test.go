package redisrepo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo(t *testing.T) (OTPRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOTPRepo(rdb), mr
}

func TestOTPSaveAndVerify(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "verify", "dana@example.com", "123456", 10*time.Minute))

	ok, err := repo.Verify(ctx, "verify", "dana@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	// single use: a second verify of the same code fails
	ok, err = repo.Verify(ctx, "verify", "dana@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPWrongCode(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "verify", "dana@example.com", "123456", 10*time.Minute))

	ok, err := repo.Verify(ctx, "verify", "dana@example.com", "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	// the right code still works after a miss
	ok, err = repo.Verify(ctx, "verify", "dana@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPTooManyAttempts(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "verify", "dana@example.com", "123456", 10*time.Minute))

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		_, lastErr = repo.Verify(ctx, "verify", "dana@example.com", "000000")
	}
	require.ErrorIs(t, lastErr, ErrTooManyAttempts)

	// the code was invalidated along with the counter
	ok, err := repo.Verify(ctx, "verify", "dana@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPExpiry(t *testing.T) {
	repo, mr := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "verify", "dana@example.com", "123456", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := repo.Verify(ctx, "verify", "dana@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPPurposesAreIsolated(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "verify", "dana@example.com", "111111", time.Minute))
	require.NoError(t, repo.Save(ctx, "reset", "dana@example.com", "222222", time.Minute))

	ok, err := repo.Verify(ctx, "reset", "dana@example.com", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Verify(ctx, "reset", "dana@example.com", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPResaveResetsAttempts(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "verify", "dana@example.com", "123456", time.Minute))
	for i := 0; i < maxAttempts-1; i++ {
		_, err := repo.Verify(ctx, "verify", "dana@example.com", "000000")
		require.NoError(t, err)
	}

	// a fresh code clears the strike counter
	require.NoError(t, repo.Save(ctx, "verify", "dana@example.com", "999999", time.Minute))
	_, err := repo.Verify(ctx, "verify", "dana@example.com", "000000")
	require.NoError(t, err)

	ok, err := repo.Verify(ctx, "verify", "dana@example.com", "999999")
	require.NoError(t, err)
	assert.True(t, ok)
}
