package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/shop-checkout/internal/kafka"
	"github.com/ariefcatur/shop-checkout/internal/redisx"
)

const (
	Topic = "auth.sessions"

	EventLoginStarted = "LoginStarted"
	EventLoginEnded   = "LoginEnded"
)

type Event struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	At        time.Time `json:"at"`
	Guard     string    `json:"guard"`
	Producer  string    `json:"producer"`
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Emitter publishes login/logout facts keyed by user id.
type Emitter struct {
	Producer Publisher
	Service  string
}

func (e *Emitter) LoginStarted(_ context.Context, userID string, at time.Time) {
	e.emit(EventLoginStarted, userID, at)
}

func (e *Emitter) LoginEnded(_ context.Context, userID string, at time.Time) {
	e.emit(EventLoginEnded, userID, at)
}

func (e *Emitter) emit(eventType, userID string, at time.Time) {
	ev := Event{EventID: uuid.NewString(), EventType: eventType, UserID: userID, At: at.UTC(), Guard: GuardJWT, Producer: e.Service}
	e.Producer.Publish([]byte(userID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
	)
}

// Inline records login facts synchronously through a Recorder instead of
// publishing them.
type Inline struct {
	Recorder *Recorder
}

func (i *Inline) LoginStarted(ctx context.Context, userID string, at time.Time) {
	i.record(ctx, EventLoginStarted, userID, at)
}

func (i *Inline) LoginEnded(ctx context.Context, userID string, at time.Time) {
	i.record(ctx, EventLoginEnded, userID, at)
}

func (i *Inline) record(ctx context.Context, eventType, userID string, at time.Time) {
	ev := Event{EventID: uuid.NewString(), EventType: eventType, UserID: userID, At: at.UTC(), Guard: GuardJWT}
	if err := i.Recorder.Record(ctx, ev); err != nil {
		i.Recorder.Logger.Warn("login session not recorded", zap.String("user_id", userID), zap.String("event_type", eventType), zap.Error(err))
	}
}

// Recorder turns session events into login_sessions rows.
type Recorder struct {
	Store  Store
	Redis  *redis.Client
	Logger *zap.Logger
}

// HandleMessage is installed as the consumer handler.
func (r *Recorder) HandleMessage(ctx context.Context, m kafkago.Message) error {
	ev, err := kafkax.Decode[Event](m.Value)
	if err != nil {
		r.Logger.Warn("skipping undecodable session event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	if r.Redis == nil {
		return r.Record(ctx, ev)
	}
	dkey := fmt.Sprintf(redisx.KeyDedup, "sessions", ev.EventID)
	fresh, err := r.Redis.SetNX(ctx, dkey, "1", redisx.TTLDedup).Result()
	if err == nil && !fresh {
		return nil
	}
	if err := r.Record(ctx, ev); err != nil {
		// let the redelivery through
		_ = r.Redis.Del(ctx, dkey).Err()
		return err
	}
	return nil
}

func (r *Recorder) Record(ctx context.Context, ev Event) error {
	switch ev.EventType {
	case EventLoginStarted:
		guard := ev.Guard
		if guard == "" {
			guard = GuardJWT
		}
		s := Session{ID: uuid.NewString(), UserID: ev.UserID, LoggedInAt: ev.At, AuthGuard: guard}
		if err := r.Store.StartSession(ctx, &s); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		r.Logger.Info("login session started", zap.String("user_id", ev.UserID), zap.String("session_id", s.ID))
	case EventLoginEnded:
		s, ok, err := r.Store.EndLatestSession(ctx, ev.UserID, ev.At)
		if err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		if !ok {
			r.Logger.Info("logout without open session", zap.String("user_id", ev.UserID))
			return nil
		}
		r.Logger.Info("login session ended", zap.String("user_id", ev.UserID), zap.String("session_id", s.ID), zap.Int64p("duration_seconds", s.DurationSeconds))
	}
	return nil
}

// DurationSeconds is the whole seconds between login and logout, never negative.
func DurationSeconds(in, out time.Time) int64 {
	d := int64(out.Sub(in) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
