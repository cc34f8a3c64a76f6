package usecase

import (
	"context"

	"github.com/fastygo/ava/domain"
)

const OperationUpdate = "update"

// OperationBuffer parks writes that failed against Postgres so they can be
// replayed later. Implemented by services.BufferBridge.
type OperationBuffer interface {
	BufferProfile(ctx context.Context, operation string, profile *domain.UserProfile) error
	BufferSociety(ctx context.Context, operation string, society *domain.Society) error
}

// Validator checks tagged request structs and returns *domain.Error on failure.
// Implemented by validation.Validator.
type Validator interface {
	Struct(s any) error
}
