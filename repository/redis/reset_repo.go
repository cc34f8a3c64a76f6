package redis

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
)

type resetTokenRepository struct {
	client *redislib.Client
	prefix string
}

// NewResetTokenRepository stores password reset tokens under "reset:<token>".
func NewResetTokenRepository(client *redislib.Client) repository.ResetTokenRepository {
	return &resetTokenRepository{client: client, prefix: "reset:"}
}

func (r *resetTokenRepository) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	if token == "" || userID == "" || ttl <= 0 {
		return domain.ErrInvalidPayload
	}
	return r.client.Set(ctx, r.prefix+token, userID, ttl).Err()
}

// Consume returns the owner of token and deletes it in the same round trip.
func (r *resetTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, err := r.client.GetDel(ctx, r.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", domain.ErrResetTokenInvalid
		}
		return "", err
	}
	return userID, nil
}
