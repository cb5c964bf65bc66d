// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"freegames_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	RecordDelivery(ctx context.Context, key string, at time.Time) error
	DeliveredSince(ctx context.Context, key string, since time.Time) (bool, error)

	AddSubscription(ctx context.Context, sub model.Subscription) error
	RemoveSubscription(ctx context.Context, chatID int64, store model.StoreTag) error
	ListSubscriptions(ctx context.Context, chatID int64) ([]model.Subscription, error)
	TargetsForStore(ctx context.Context, store model.StoreTag) ([]int64, error)

	Close() error
}
