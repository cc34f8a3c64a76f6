package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
)

type draftRepository struct {
	client *redislib.Client
	ttl    time.Duration
}

// NewDraftRepository keeps pending society drafts under the fixed draft key,
// suffixed with the draft id so concurrent pre-signup visitors do not collide.
func NewDraftRepository(client *redislib.Client, ttl time.Duration) repository.DraftRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &draftRepository{client: client, ttl: ttl}
}

func (r *draftRepository) Get(ctx context.Context, id string) (*domain.PendingSocietyDraft, error) {
	if id == "" {
		return nil, domain.ErrDraftNotFound
	}
	raw, err := r.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, err
	}

	var draft domain.PendingSocietyDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepository) Save(ctx context.Context, draft *domain.PendingSocietyDraft) error {
	if draft == nil || draft.ID == "" {
		return domain.ErrInvalidPayload
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, draftKey(draft.ID), payload, r.ttl).Err()
}

func (r *draftRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, draftKey(id)).Err()
}

func draftKey(id string) string {
	return domain.PendingSocietyDraftKey + ":" + id
}
