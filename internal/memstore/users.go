package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/shop-checkout/internal/auth"
	"github.com/ariefcatur/shop-checkout/internal/orders"
	"github.com/ariefcatur/shop-checkout/internal/sessions"
)

func (s *Store) CreateUser(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return auth.ErrEmailTaken
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) StartSession(_ context.Context, sess *sessions.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = append(s.sessions[sess.UserID], *sess)
	return nil
}

func (s *Store) EndLatestSession(_ context.Context, userID string, at time.Time) (sessions.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.sessions[userID]
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].Active() {
			continue
		}
		out := at
		secs := sessions.DurationSeconds(list[i].LoggedInAt, at)
		list[i].LoggedOutAt = &out
		list[i].DurationSeconds = &secs
		return list[i], true, nil
	}
	return sessions.Session{}, false, nil
}

func (s *Store) ListSessions(_ context.Context, userID string) ([]sessions.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.sessions[userID]
	out := make([]sessions.Session, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoggedInAt.After(out[j].LoggedInAt) })
	return out, nil
}

func (s *Store) TotalSeconds(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, sess := range s.sessions[userID] {
		if sess.DurationSeconds != nil {
			total += *sess.DurationSeconds
		}
	}
	return total, nil
}

// DemoProducts is the catalog loaded when the service runs without Postgres.
func DemoProducts(now time.Time) []orders.Product {
	rows := []struct {
		id, name, desc string
		cents          int64
		stock          int
	}{
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000001", "Laptop Computer", "High-performance laptop with 16GB RAM and 512GB SSD", 129999, 25},
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000002", "Wireless Mouse", "Ergonomic wireless mouse with long battery life", 2999, 100},
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000003", "Mechanical Keyboard", "RGB mechanical keyboard with blue switches", 14999, 50},
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000004", "4K Monitor", "27-inch 4K UHD monitor with HDR support", 39999, 15},
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000005", "USB-C Hub", "7-in-1 USB-C hub with HDMI and card reader", 4999, 75},
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000006", "Gaming Headset", "Surround sound gaming headset with noise-canceling mic", 8999, 30},
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000007", "External SSD", "1TB portable SSD with USB 3.2", 12999, 40},
		{"a7d3e9c2-5b1f-4c8e-9a01-000000000008", "Webcam", "1080p HD webcam with built-in microphone", 5999, 60},
	}
	out := make([]orders.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, orders.Product{ID: r.id, Name: r.name, Description: r.desc, PriceCents: r.cents, Stock: r.stock, CreatedAt: now, UpdatedAt: now})
	}
	return out
}

// Seed loads DemoProducts into s.
func (s *Store) Seed(now time.Time) {
	for _, p := range DemoProducts(now) {
		s.PutProduct(p)
	}
}
