package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidInput       = errors.New("invalid input")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}

// Revocations remembers logged-out token ids until they would have expired anyway.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// SessionEvents is told about logins and logouts; delivery is fire-and-forget.
type SessionEvents interface {
	LoginStarted(ctx context.Context, userID string, at time.Time)
	LoginEnded(ctx context.Context, userID string, at time.Time)
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	Users       UserStore
	Revocations Revocations
	Sessions    SessionEvents
	Secret      []byte
	TTL         time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
	BcryptCost  int
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, Token, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return User{}, Token{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return User{}, Token{}, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return User{}, Token{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return User{}, Token{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{ID: uuid.NewString(), Name: in.Name, Email: in.Email, PasswordHash: string(hash), CreatedAt: s.now()}
	if err := s.Users.CreateUser(ctx, &u); err != nil {
		return User{}, Token{}, err
	}
	tok, err := s.issue(u)
	if err != nil {
		return User{}, Token{}, err
	}
	s.logger().Info("user registered", zap.String("user_id", u.ID))
	return u, tok, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (User, Token, error) {
	u, err := s.Users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, Token{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, Token{}, ErrInvalidCredentials
	}
	tok, err := s.issue(u)
	if err != nil {
		return User{}, Token{}, err
	}
	if s.Sessions != nil {
		s.Sessions.LoginStarted(ctx, u.ID, s.now())
	}
	s.logger().Info("user logged in", zap.String("user_id", u.ID))
	return u, tok, nil
}

// Logout revokes the token behind claims and closes the login session.
func (s *Service) Logout(ctx context.Context, c Claims) error {
	if s.Revocations != nil && c.ID != "" {
		ttl := time.Minute
		if c.ExpiresAt != nil {
			if left := c.ExpiresAt.Sub(s.now()); left > 0 {
				ttl = left
			}
		}
		if err := s.Revocations.Revoke(ctx, c.ID, ttl); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	if s.Sessions != nil {
		s.Sessions.LoginEnded(ctx, c.UserID, s.now())
	}
	s.logger().Info("user logged out", zap.String("user_id", c.UserID))
	return nil
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, raw string) (Claims, error) {
	var c Claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid || c.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	if s.Revocations != nil {
		revoked, err := s.Revocations.IsRevoked(ctx, c.ID)
		if err != nil {
			return Claims{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return Claims{}, ErrInvalidToken
		}
	}
	return c, nil
}

func (s *Service) issue(u User) (Token, error) {
	now := s.now()
	ttl := s.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	exp := now.Add(ttl)
	c := Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Token: signed, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
