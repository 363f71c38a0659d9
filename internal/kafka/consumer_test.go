package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu         sync.Mutex
	queue      []kafka.Message
	committed  []kafka.Message
	commitErrs []error
	commits    chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, commits: make(chan struct{}, len(msgs))}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	f.commitErrs = append(f.commitErrs, ctx.Err())
	f.commits <- struct{}{}
	return nil
}

func waitCommits(t *testing.T, f *fakeReader, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.commits:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d messages committed", i, n)
		}
	}
}

func TestConsumerKeepsOrderPerKey(t *testing.T) {
	msg := func(key, value string, offset int64) kafka.Message {
		return kafka.Message{Key: []byte(key), Value: []byte(value), Offset: offset}
	}
	r := newFakeReader(
		msg("u1", "start", 0),
		msg("u2", "start", 1),
		msg("u1", "end", 2),
		msg("u2", "end", 3),
	)
	c := &Consumer{workers: 8, log: zap.NewNop()}

	var mu sync.Mutex
	seen := map[string][]string{}
	h := func(_ context.Context, m kafka.Message) error {
		if string(m.Value) == "start" {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		seen[string(m.Key)] = append(seen[string(m.Key)], string(m.Value))
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.run(ctx, r, h) }()

	waitCommits(t, r, 4)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"start", "end"}, seen["u1"])
	assert.Equal(t, []string{"start", "end"}, seen["u2"])
}

func TestConsumerLaneIsStablePerKey(t *testing.T) {
	c := &Consumer{workers: 8}
	first := c.lane([]byte("user-42"))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.lane([]byte("user-42")))
	}
	assert.Less(t, c.lane(nil), 8)
}

func TestConsumerCommitsAfterShutdown(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("u1"), Value: []byte("end"), Offset: 7})
	c := &Consumer{workers: 2, log: zap.NewNop()}

	started := make(chan struct{})
	h := func(ctx context.Context, _ kafka.Message) error {
		close(started)
		<-ctx.Done()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.run(ctx, r, h) }()

	<-started
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.committed, 1)
	assert.Equal(t, int64(7), r.committed[0].Offset)
	assert.NoError(t, r.commitErrs[0])
}

func TestConsumerSkipsCommitOnHandlerError(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("u1")}, kafka.Message{Key: []byte("u1"), Offset: 1})
	c := &Consumer{workers: 1, log: zap.NewNop()}

	calls := make(chan struct{}, 2)
	h := func(_ context.Context, m kafka.Message) error {
		calls <- struct{}{}
		if m.Offset == 0 {
			return assert.AnError
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.run(ctx, r, h) }()

	waitCommits(t, r, 1)
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, calls, 2)
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.committed, 1)
	assert.Equal(t, int64(1), r.committed[0].Offset)
}
