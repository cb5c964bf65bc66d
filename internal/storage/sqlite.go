package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"freegames_bot/internal/model"
	"freegames_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordDelivery upserts the delivery time for a canonical key. Repeated
// deliveries of the same key slide its window forward.
func (s *SQLite) RecordDelivery(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO delivery_history (canonical_key, delivered_at) VALUES (?, ?)
		 ON CONFLICT (canonical_key) DO UPDATE SET delivered_at = excluded.delivered_at`,
		key, at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// DeliveredSince reports whether key was delivered at or after since.
// Timestamps are stored in a fixed-width UTC layout, so the comparison
// works on the text column directly.
func (s *SQLite) DeliveredSince(ctx context.Context, key string, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM delivery_history WHERE canonical_key = ? AND delivered_at >= ?`,
		key, since.UTC().Format(timeLayout),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check delivery: %w", err)
	}
	return count > 0, nil
}

// AddSubscription registers a chat for a store, replacing an existing row.
func (s *SQLite) AddSubscription(ctx context.Context, sub model.Subscription) error {
	created := sub.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO subscriptions (chat_id, store, created_at) VALUES (?, ?, ?)`,
		sub.ChatID, string(sub.Store), created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// RemoveSubscription drops one chat+store pair.
func (s *SQLite) RemoveSubscription(ctx context.Context, chatID int64, store model.StoreTag) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE chat_id = ? AND store = ?`,
		chatID, string(store),
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions returns all subscriptions for the given chat.
func (s *SQLite) ListSubscriptions(ctx context.Context, chatID int64) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, store, created_at FROM subscriptions WHERE chat_id = ? ORDER BY store`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// TargetsForStore returns the chats subscribed to store directly or via
// the "all" wildcard.
func (s *SQLite) TargetsForStore(ctx context.Context, store model.StoreTag) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT chat_id FROM subscriptions WHERE store = ? OR store = ? ORDER BY chat_id`,
		string(store), string(model.StoreAll),
	)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chats []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		chats = append(chats, id)
	}
	return chats, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubscription(row scannable) (model.Subscription, error) {
	var sub model.Subscription
	var store, created string
	if err := row.Scan(&sub.ChatID, &store, &created); err != nil {
		return sub, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Store = model.StoreTag(store)
	sub.CreatedAt, _ = time.Parse(timeLayout, created)
	return sub, nil
}
