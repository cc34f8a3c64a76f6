package repository

import (
	"context"
	"time"

	"github.com/fastygo/ava/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}

// ResetTokenRepository stores single-use password reset tokens.
type ResetTokenRepository interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

// DraftRepository holds society drafts captured before signup.
type DraftRepository interface {
	Get(ctx context.Context, id string) (*domain.PendingSocietyDraft, error)
	Save(ctx context.Context, draft *domain.PendingSocietyDraft) error
	Delete(ctx context.Context, id string) error
}
