package enfoque

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrLeaseHeld = errors.New("session lease held by another client")
)

type ExistingRecord[T ~string] struct {
	ID        T
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewExistingRecord[T ~string](id string) ExistingRecord[T] {
	now := time.Now()
	return ExistingRecord[T]{
		ID:        T(id),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
