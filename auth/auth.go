// Package auth handles registration, login and session resolution.
// Registration is gated by invite codes; sessions are opaque random
// tokens stored server-side with a TTL.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hkanyike/tradingbuddy/config"
	"github.com/hkanyike/tradingbuddy/pkg/id"
	"github.com/hkanyike/tradingbuddy/store"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrInactive       = errors.New("account disabled")
	ErrBadToken       = errors.New("invalid or expired session")
)

type Service struct {
	store *store.Store
	cfg   config.AuthConfig
	paper config.PaperConfig
	now   func() time.Time
}

func NewService(st *store.Store, cfg config.AuthConfig, paper config.PaperConfig) *Service {
	return &Service{store: st, cfg: cfg, paper: paper, now: time.Now}
}

// SetClock overrides the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	InviteCode  string `json:"invite_code"`
}

// Validate checks the request shape before any row is touched.
func (r *RegisterRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.InviteCode = strings.TrimSpace(r.InviteCode)

	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return fmt.Errorf("valid email is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if r.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	if r.InviteCode == "" {
		return fmt.Errorf("invite_code is required")
	}
	return nil
}

// Register creates the user and their default paper account, consuming
// one invite use. Callers run RegisterRequest.Validate first; invite and
// email conflicts surface as the store's sentinel errors.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := store.User{
		UserID:       id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		Role:         store.RoleUser,
		Active:       true,
		CreatedAt:    now,
	}
	if s.cfg.AdminEmail != "" && u.Email == strings.ToLower(s.cfg.AdminEmail) {
		u.Role = store.RoleAdmin
	}

	acct := store.Account{
		AccountID: id.New(),
		UserID:    u.UserID,
		Name:      "Paper Trading",
		Cash:      s.paper.StartingCash,
		Equity:    s.paper.StartingCash,
		CreatedAt: now,
	}

	if err := s.store.RegisterUser(ctx, u, req.InviteCode, acct); err != nil {
		return store.User{}, err
	}
	return u, nil
}

// Login verifies credentials and mints a session token.
func (s *Service) Login(ctx context.Context, email, password string) (store.User, store.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, store.Session{}, ErrBadCredentials
		}
		return store.User{}, store.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return store.User{}, store.Session{}, ErrBadCredentials
	}
	if !u.Active {
		return store.User{}, store.Session{}, ErrInactive
	}

	now := s.now().UTC()
	sess := store.Session{
		Token:     newToken(),
		UserID:    u.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.cfg.SessionTTL)),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return store.User{}, store.Session{}, err
	}
	return u, sess, nil
}

// Logout deletes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Resolve maps a bearer token to its user. Expired tokens are removed
// as they are seen rather than by a background sweeper.
func (s *Service) Resolve(ctx context.Context, token string) (store.User, error) {
	if token == "" {
		return store.User{}, ErrBadToken
	}

	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrBadToken
		}
		return store.User{}, err
	}
	if s.now().After(sess.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, token)
		return store.User{}, ErrBadToken
	}

	u, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return store.User{}, ErrBadToken
	}
	if !u.Active {
		return store.User{}, ErrInactive
	}
	return u, nil
}

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand is assumed available
	}
	return hex.EncodeToString(b)
}

// NewInviteCode returns a short human-shareable code.
func NewInviteCode() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
