package sessions

import (
	"context"
	"math"
	"time"
)

const GuardJWT = "jwt"

type Session struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	LoggedInAt      time.Time  `json:"logged_in_at"`
	LoggedOutAt     *time.Time `json:"logged_out_at"`
	DurationSeconds *int64     `json:"duration_seconds"`
	AuthGuard       string     `json:"auth_guard"`
}

func (s Session) Active() bool { return s.LoggedOutAt == nil }

type Store interface {
	StartSession(ctx context.Context, s *Session) error
	// EndLatestSession closes the newest open session of userID. ok is false
	// when the user has no open session.
	EndLatestSession(ctx context.Context, userID string, at time.Time) (s Session, ok bool, err error)
	// ListSessions returns sessions newest first.
	ListSessions(ctx context.Context, userID string) ([]Session, error)
	TotalSeconds(ctx context.Context, userID string) (int64, error)
}

type Total struct {
	Seconds int64   `json:"total_seconds"`
	Minutes float64 `json:"total_minutes"`
	Hours   float64 `json:"total_hours"`
}

type SessionView struct {
	Session
	DurationMinutes float64 `json:"duration_minutes"`
	DurationHours   float64 `json:"duration_hours"`
	Status          string  `json:"status"`
}

type Overview struct {
	Sessions          []SessionView `json:"sessions"`
	TotalSessions     int           `json:"total_sessions"`
	ActiveSessions    int           `json:"active_sessions"`
	CompletedSessions int           `json:"completed_sessions"`
}

type Current struct {
	Session        *Session `json:"session"`
	ElapsedSeconds int64    `json:"elapsed_seconds"`
}

// Durations answers login-duration questions for one user.
type Durations struct {
	Store Store
	Now   func() time.Time
}

func (d *Durations) Total(ctx context.Context, userID string) (Total, error) {
	secs, err := d.Store.TotalSeconds(ctx, userID)
	if err != nil {
		return Total{}, err
	}
	return Total{Seconds: secs, Minutes: round2(float64(secs) / 60), Hours: round2(float64(secs) / 3600)}, nil
}

func (d *Durations) Sessions(ctx context.Context, userID string) (Overview, error) {
	list, err := d.Store.ListSessions(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	out := Overview{Sessions: make([]SessionView, 0, len(list)), TotalSessions: len(list)}
	for _, s := range list {
		var secs int64
		if s.DurationSeconds != nil {
			secs = *s.DurationSeconds
		}
		v := SessionView{Session: s, DurationMinutes: round2(float64(secs) / 60), DurationHours: round2(float64(secs) / 3600), Status: "completed"}
		if s.Active() {
			v.Status = "active"
			out.ActiveSessions++
		} else {
			out.CompletedSessions++
		}
		out.Sessions = append(out.Sessions, v)
	}
	return out, nil
}

// Current returns the newest open session, or an empty Current when there is none.
func (d *Durations) Current(ctx context.Context, userID string) (Current, error) {
	list, err := d.Store.ListSessions(ctx, userID)
	if err != nil {
		return Current{}, err
	}
	for _, s := range list {
		if !s.Active() {
			continue
		}
		s := s
		elapsed := int64(d.now().Sub(s.LoggedInAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		return Current{Session: &s, ElapsedSeconds: elapsed}, nil
	}
	return Current{}, nil
}

func (d *Durations) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
