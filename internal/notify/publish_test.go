package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := New("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(context.Background()))
	return r, mr
}

func TestRedisPublisher_PublishKeepsCappedHistory(t *testing.T) {
	r, mr := newTestRedis(t)
	p := NewRedisPublisher(r, 2)
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, action := range []string{"upsert", "delete", "reorder"} {
		require.NoError(t, p.Publish(ctx, ChangeEvent{Action: action, Names: []string{"a"}, Count: 1, At: at}))
	}

	raw, err := mr.List(DefaultLog)
	require.NoError(t, err)
	require.Len(t, raw, 2)

	var newest ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(raw[0]), &newest))
	assert.Equal(t, "reorder", newest.Action)
	assert.Equal(t, at, newest.At)

	events, err := Recent(ctx, r, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "reorder", events[0].Action)
	assert.Equal(t, "delete", events[1].Action)
}

func TestRedisPublisher_Subscribers(t *testing.T) {
	r, mr := newTestRedis(t)
	p := NewRedisPublisher(r, 0)

	sub := mr.NewSubscriber()
	defer sub.Close()
	sub.Subscribe(DefaultChannel)

	// miniredis delivers to direct subscribers synchronously.
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Publish(context.Background(), ChangeEvent{Action: "bulkUpsert", Count: 3})
	}()

	select {
	case msg := <-sub.Messages():
		var ev ChangeEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Message), &ev))
		assert.Equal(t, "bulkUpsert", ev.Action)
		assert.Equal(t, 3, ev.Count)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
	require.NoError(t, <-errCh)

	assert.False(t, mr.Exists(DefaultLog), "history disabled")
}

func TestRedisPublisher_Error(t *testing.T) {
	r, mr := newTestRedis(t)
	p := NewRedisPublisher(r, 10)
	mr.Close()

	err := p.Publish(context.Background(), ChangeEvent{Action: "delete"})
	assert.ErrorContains(t, err, "notify publish")
}

func TestRecent_Empty(t *testing.T) {
	r, _ := newTestRedis(t)

	events, err := Recent(context.Background(), r, 5)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = Recent(context.Background(), r, 0)
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), ChangeEvent{Action: "upsert"}))
}
