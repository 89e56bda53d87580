package store

import (
	"context"

	"github.com/voyagen/channelvault/internal/models"
)

// Store defines persistence for the channel catalog.
// All mutations are keyed by the channel name.
type Store interface {
	// EnsureSchema creates the channels table if it does not exist.
	EnsureSchema(ctx context.Context) error
	// Ping checks that the database answers.
	Ping(ctx context.Context) error

	// ListChannels returns every channel ordered by position (nulls last), then name.
	ListChannels(ctx context.Context) ([]models.Channel, error)

	// UpsertChannel inserts a channel or, when the name exists, updates category, url and logo.
	// Position is never touched.
	UpsertChannel(ctx context.Context, ch models.Channel) error
	// RenameChannel rewrites name, category, url and logo of the row named oldName.
	// Returns the number of rows affected (0 when oldName does not exist).
	RenameChannel(ctx context.Context, oldName string, ch models.Channel) (int64, error)
	// DeleteChannel removes the channel by name; returns rows affected.
	DeleteChannel(ctx context.Context, name string) (int64, error)
	// SetPosition sets position on the channel by name; returns rows affected.
	SetPosition(ctx context.Context, name string, position int) (int64, error)

	// InTx runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Store) error) error
}
