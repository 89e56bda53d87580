// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/voyagen/channelvault/internal/models"
	"github.com/voyagen/channelvault/internal/store"
)

type row struct {
	id int64
	ch models.Channel
}

// Memory mimics the Postgres store: unique names, SERIAL ids, nullable
// positions and the same ordering. It records every call it receives.
type Memory struct {
	mu      sync.Mutex
	rows    []row
	nextID  int64
	created int
	calls   []string

	// FailOn, when set, is consulted before every operation. A non-nil
	// return value is returned from that operation unchanged.
	FailOn func(op, name string) error
}

// NewMemory returns an empty store whose channels table does not exist yet.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

var _ store.Store = (*Memory)(nil)

// Calls returns the operations received so far, e.g. "UpsertChannel:a".
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// TablesCreated reports how many times EnsureSchema actually created the table.
func (m *Memory) TablesCreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Get returns the surrogate id and stored channel for name.
func (m *Memory) Get(name string) (int64, models.Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(name); i >= 0 {
		return m.rows[i].id, m.rows[i].ch, true
	}
	return 0, models.Channel{}, false
}

// Len returns the number of stored channels.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *Memory) begin(op, name string) error {
	m.mu.Lock()
	m.calls = append(m.calls, op+":"+name)
	m.mu.Unlock()
	if m.FailOn != nil {
		return m.FailOn(op, name)
	}
	return nil
}

func (m *Memory) index(name string) int {
	for i, r := range m.rows {
		if r.ch.Name == name {
			return i
		}
	}
	return -1
}

// EnsureSchema implements store.Store.
func (m *Memory) EnsureSchema(ctx context.Context) error {
	if err := m.begin("EnsureSchema", ""); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.created == 0 {
		m.created++
	}
	return nil
}

// Ping implements store.Store.
func (m *Memory) Ping(ctx context.Context) error {
	return m.begin("Ping", "")
}

// ListChannels implements store.Store.
func (m *Memory) ListChannels(ctx context.Context) ([]models.Channel, error) {
	if err := m.begin("ListChannels", ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Channel, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.ch)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Position, out[j].Position
		switch {
		case pi != nil && pj != nil && *pi != *pj:
			return *pi < *pj
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

// UpsertChannel implements store.Store.
func (m *Memory) UpsertChannel(ctx context.Context, ch models.Channel) error {
	if err := m.begin("UpsertChannel", ch.Name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(ch.Name); i >= 0 {
		m.rows[i].ch.Category = ch.Category
		m.rows[i].ch.URL = ch.URL
		m.rows[i].ch.Logo = ch.Logo
		return nil
	}
	ch.Position = nil
	m.rows = append(m.rows, row{id: m.nextID, ch: ch})
	m.nextID++
	return nil
}

// RenameChannel implements store.Store.
func (m *Memory) RenameChannel(ctx context.Context, oldName string, ch models.Channel) (int64, error) {
	if err := m.begin("RenameChannel", oldName); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(oldName)
	if i < 0 {
		return 0, nil
	}
	if j := m.index(ch.Name); j >= 0 && j != i {
		return 0, &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "channels_name_key"`}
	}
	m.rows[i].ch.Name = ch.Name
	m.rows[i].ch.Category = ch.Category
	m.rows[i].ch.URL = ch.URL
	m.rows[i].ch.Logo = ch.Logo
	return 1, nil
}

// DeleteChannel implements store.Store.
func (m *Memory) DeleteChannel(ctx context.Context, name string) (int64, error) {
	if err := m.begin("DeleteChannel", name); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(name)
	if i < 0 {
		return 0, nil
	}
	m.rows = slices.Delete(m.rows, i, i+1)
	return 1, nil
}

// SetPosition implements store.Store.
func (m *Memory) SetPosition(ctx context.Context, name string, position int) (int64, error) {
	if err := m.begin("SetPosition", name); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(name)
	if i < 0 {
		return 0, nil
	}
	p := position
	m.rows[i].ch.Position = &p
	return 1, nil
}

// InTx snapshots the rows and restores them when fn fails.
func (m *Memory) InTx(ctx context.Context, fn func(store.Store) error) error {
	if err := m.begin("Begin", ""); err != nil {
		return err
	}
	m.mu.Lock()
	snapshot := slices.Clone(m.rows)
	nextID := m.nextID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.rows = snapshot
		m.nextID = nextID
		m.calls = append(m.calls, "Rollback:")
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.calls = append(m.calls, "Commit:")
	m.mu.Unlock()
	return nil
}
