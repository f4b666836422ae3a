package redisrepo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTooManyAttempts is returned once an OTP has been guessed wrong too
// often; the code is invalidated and a new one must be requested.
var ErrTooManyAttempts = errors.New("too many otp attempts")

const maxAttempts = 5

type OTPRepository interface {
	Save(ctx context.Context, purpose, email, code string, ttl time.Duration) error
	Verify(ctx context.Context, purpose, email, code string) (bool, error)
}

type otpRepo struct {
	rdb *redis.Client
}

func NewOTPRepo(rdb *redis.Client) OTPRepository {
	return &otpRepo{rdb: rdb}
}

func codeKey(purpose, email string) string     { return "otp:" + purpose + ":" + email }
func attemptsKey(purpose, email string) string { return "otp:" + purpose + ":" + email + ":attempts" }

func (r *otpRepo) Save(ctx context.Context, purpose, email, code string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, codeKey(purpose, email), code, ttl)
	pipe.Del(ctx, attemptsKey(purpose, email))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *otpRepo) Verify(ctx context.Context, purpose, email, code string) (bool, error) {
	stored, err := r.rdb.Get(ctx, codeKey(purpose, email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if stored != code {
		n, err := r.rdb.Incr(ctx, attemptsKey(purpose, email)).Result()
		if err != nil {
			return false, err
		}
		_ = r.rdb.Expire(ctx, attemptsKey(purpose, email), 10*time.Minute).Err()
		if n >= maxAttempts {
			_ = r.rdb.Del(ctx, codeKey(purpose, email), attemptsKey(purpose, email)).Err()
			return false, ErrTooManyAttempts
		}
		return false, nil
	}

	// single-use
	_ = r.rdb.Del(ctx, codeKey(purpose, email), attemptsKey(purpose, email)).Err()
	return true, nil
}
