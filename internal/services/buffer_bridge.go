package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/internal/infrastructure/buffer"
	"github.com/fastygo/ava/usecase"
)

// BufferBridge turns domain writes into buffer items for the processor.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferProfile(ctx context.Context, operation string, profile *domain.UserProfile) error {
	if profile == nil || profile.ID == "" {
		return domain.ErrInvalidPayload
	}
	return b.enqueue(ctx, profile.ID, buffer.EntityProfile, operation, 3, profile)
}

func (b *BufferBridge) BufferSociety(ctx context.Context, operation string, society *domain.Society) error {
	if society == nil || society.ID == "" {
		return domain.ErrInvalidPayload
	}
	return b.enqueue(ctx, society.CreatedBy, buffer.EntitySociety, operation, 2, society)
}

func (b *BufferBridge) enqueue(ctx context.Context, ownerID, entity, operation string, priority int, v any) error {
	if b.processor == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.processor.BufferOperation(ctx, buffer.Item{
		OwnerID:   ownerID,
		Entity:    entity,
		Operation: operation,
		Data:      payload,
		Priority:  priority,
	})
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
