package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/models"
	"github.com/voyagen/channelvault/internal/notify"
	"github.com/voyagen/channelvault/internal/store"
)

// Catalog applies list and mutation requests against a store.
type Catalog struct {
	store store.Store
	pub   notify.Publisher
	mode  config.BulkMode
	log   log.FieldLogger
	now   func() time.Time
}

// NewCatalog creates a Catalog. pub and logger may be nil; events are then
// discarded and the standard logrus logger is used.
func NewCatalog(s store.Store, mode config.BulkMode, pub notify.Publisher, logger log.FieldLogger) *Catalog {
	if pub == nil {
		pub = notify.Nop{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if mode == "" {
		mode = config.BulkBestEffort
	}
	return &Catalog{store: s, pub: pub, mode: mode, log: logger, now: time.Now}
}

// List returns every channel ordered by position (missing last), then name.
// The channels table is created first if it does not exist.
func (c *Catalog) List(ctx context.Context) ([]models.Channel, error) {
	if err := c.store.EnsureSchema(ctx); err != nil {
		return nil, storageError(err)
	}
	channels, err := c.store.ListChannels(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return channels, nil
}

// Ping reports whether the database is reachable.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Apply executes one validated mutation. The channels table is created
// first if it does not exist. On success a change event is published;
// publish failures are logged and never fail the request.
func (c *Catalog) Apply(ctx context.Context, req Request) error {
	if req == nil {
		return ErrUnknownAction
	}
	if err := c.store.EnsureSchema(ctx); err != nil {
		return storageError(err)
	}

	var (
		names []string
		err   error
	)
	switch r := req.(type) {
	case UpsertRequest:
		names, err = c.upsert(ctx, r)
	case BulkUpsertRequest:
		names, err = c.bulkUpsert(ctx, r)
	case DeleteRequest:
		names, err = c.delete(ctx, r)
	case ReorderRequest:
		names, err = c.reorder(ctx, r)
	default:
		return ErrUnknownAction
	}
	if err != nil {
		return storageError(err)
	}

	c.publish(ctx, notify.ChangeEvent{
		Action: string(req.Action()),
		Names:  names,
		Count:  len(names),
		At:     c.now().UTC(),
	})
	return nil
}

func (c *Catalog) upsert(ctx context.Context, r UpsertRequest) ([]string, error) {
	if r.OldName == "" || r.OldName == r.Data.Name {
		if err := c.store.UpsertChannel(ctx, r.Data); err != nil {
			return nil, err
		}
		return []string{r.Data.Name}, nil
	}

	n, err := c.store.RenameChannel(ctx, r.OldName, r.Data)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		c.log.WithFields(log.Fields{
			"old_name": r.OldName,
			"name":     r.Data.Name,
		}).Debug("rename matched no channel")
		return nil, nil
	}
	return []string{r.OldName, r.Data.Name}, nil
}

func (c *Catalog) bulkUpsert(ctx context.Context, r BulkUpsertRequest) ([]string, error) {
	if r.Skipped > 0 {
		c.log.WithField("skipped", r.Skipped).Debug("bulk upsert skipped invalid items")
	}
	names := make([]string, 0, len(r.Items))
	err := c.inBulk(ctx, func(s store.Store) error {
		for _, ch := range r.Items {
			if err := s.UpsertChannel(ctx, ch); err != nil {
				return fmt.Errorf("channel %q: %w", ch.Name, err)
			}
			names = append(names, ch.Name)
		}
		return nil
	})
	return names, err
}

func (c *Catalog) delete(ctx context.Context, r DeleteRequest) ([]string, error) {
	n, err := c.store.DeleteChannel(ctx, r.Name)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		c.log.WithField("name", r.Name).Debug("delete matched no channel")
		return nil, nil
	}
	return []string{r.Name}, nil
}

// reorder leaves channels missing from the order at their current position.
func (c *Catalog) reorder(ctx context.Context, r ReorderRequest) ([]string, error) {
	names := make([]string, 0, len(r.Order))
	err := c.inBulk(ctx, func(s store.Store) error {
		for i, name := range r.Order {
			n, err := s.SetPosition(ctx, name, i)
			if err != nil {
				return fmt.Errorf("channel %q: %w", name, err)
			}
			if n > 0 {
				names = append(names, name)
			}
		}
		return nil
	})
	return names, err
}

// inBulk runs fn against the store directly or, in atomic mode, inside a
// transaction so a failing statement rolls back the whole request.
func (c *Catalog) inBulk(ctx context.Context, fn func(store.Store) error) error {
	if c.mode == config.BulkAtomic {
		return c.store.InTx(ctx, fn)
	}
	return fn(c.store)
}

func (c *Catalog) publish(ctx context.Context, ev notify.ChangeEvent) {
	if err := c.pub.Publish(ctx, ev); err != nil {
		c.log.WithFields(log.Fields{
			"action": ev.Action,
			"err":    err,
		}).Warn("publish change event")
	}
}
