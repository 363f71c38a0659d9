package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/shop-checkout/internal/auth"
	"github.com/ariefcatur/shop-checkout/internal/orders"
	"github.com/ariefcatur/shop-checkout/internal/sessions"
)

const uniqueViolation = "23505"

var (
	_ orders.Store   = (*Store)(nil)
	_ auth.UserStore = (*Store)(nil)
	_ sessions.Store = (*Store)(nil)
)

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO users(id, name, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return auth.ErrEmailTaken
	}
	return err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	return s.user(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE lower(email)=lower($1)`, email)
}

func (s *Store) UserByID(ctx context.Context, id string) (auth.User, error) {
	return s.user(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE id=$1`, id)
}

func (s *Store) user(ctx context.Context, q string, arg string) (auth.User, error) {
	var u auth.User
	err := s.DB.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, err
}

func (s *Store) StartSession(ctx context.Context, sess *sessions.Session) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO login_sessions(id, user_id, logged_in_at, auth_guard)
		VALUES ($1,$2,$3,$4)`,
		sess.ID, sess.UserID, sess.LoggedInAt, sess.AuthGuard,
	)
	return err
}

// EndLatestSession locks the newest open session of the user and closes it.
func (s *Store) EndLatestSession(ctx context.Context, userID string, at time.Time) (sessions.Session, bool, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return sessions.Session{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sess := sessions.Session{UserID: userID}
	err = tx.QueryRow(ctx, `
		SELECT id, logged_in_at, auth_guard FROM login_sessions
		WHERE user_id=$1 AND logged_out_at IS NULL
		ORDER BY logged_in_at DESC LIMIT 1 FOR UPDATE`, userID,
	).Scan(&sess.ID, &sess.LoggedInAt, &sess.AuthGuard)
	if errors.Is(err, pgx.ErrNoRows) {
		return sessions.Session{}, false, nil
	}
	if err != nil {
		return sessions.Session{}, false, err
	}

	secs := sessions.DurationSeconds(sess.LoggedInAt, at)
	if _, err := tx.Exec(ctx, `UPDATE login_sessions SET logged_out_at=$2, duration_seconds=$3 WHERE id=$1`,
		sess.ID, at, secs); err != nil {
		return sessions.Session{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return sessions.Session{}, false, err
	}
	sess.LoggedOutAt = &at
	sess.DurationSeconds = &secs
	return sess, true, nil
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]sessions.Session, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, logged_in_at, logged_out_at, duration_seconds, auth_guard
		FROM login_sessions WHERE user_id=$1 ORDER BY logged_in_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []sessions.Session{}
	for rows.Next() {
		var sess sessions.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.LoggedInAt, &sess.LoggedOutAt, &sess.DurationSeconds, &sess.AuthGuard); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) TotalSeconds(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_seconds), 0)::BIGINT FROM login_sessions
		WHERE user_id=$1 AND duration_seconds IS NOT NULL`, userID,
	).Scan(&total)
	return total, err
}
