package kafka

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler must return nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *zap.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log.With(zap.String("topic", topic), zap.String("group", group))}
}

// commitTimeout bounds offset commits, which outlive the fetch context on shutdown.
const commitTimeout = 5 * time.Second

// reader is the part of *kafka.Reader the dispatch loop uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Start fetches messages and hands them to the worker pool until ctx is done.
// Messages with the same key always go to the same worker, so they are
// handled in partition order.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()
	return c.run(ctx, c.r, h)
}

func (c *Consumer) run(ctx context.Context, r reader, h Handler) error {
	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(id int, in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.handle(ctx, r, h, id, m)
			}
		}(i, lanes[i])
	}
	defer wg.Wait()
	defer func() {
		for _, l := range lanes {
			close(l)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[c.lane(m.Key)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, r reader, h Handler, id int, m kafka.Message) {
	if err := h(ctx, m); err != nil {
		c.log.Error("handler failed", zap.Int("worker", id), zap.Int64("offset", m.Offset), zap.Error(err))
		time.Sleep(200 * time.Millisecond)
		return
	}
	cctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := r.CommitMessages(cctx, m); err != nil {
		c.log.Warn("commit failed", zap.Int("worker", id), zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

func (c *Consumer) lane(key []byte) int {
	f := fnv.New32a()
	_, _ = f.Write(key)
	return int(f.Sum32() % uint32(c.workers))
}
