package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/internal/repository"
	"github.com/wrenware/tracker/internal/session"
	"github.com/wrenware/tracker/pkg/crypto"
)

// ErrInvalidCredentials is returned for an unknown username or a password
// mismatch. Callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid username or password")

// PresenceTopic is the hub topic carrying online-status events.
const PresenceTopic = "presence"

// PresenceNotifier receives presence events for connected clients.
type PresenceNotifier interface {
	Broadcast(topic string, payload []byte)
}

// Service handles registration, login, logout and per-request identity.
type Service struct {
	users    repository.UserRepository
	sessions session.Store
	presence PresenceNotifier
	logger   *slog.Logger
}

// New constructs a Service. The presence notifier may be nil.
func New(users repository.UserRepository, sessions session.Store, presence PresenceNotifier, logger *slog.Logger) Service {
	return Service{users: users, sessions: sessions, presence: presence, logger: logger}
}

// RegisterInput are the fields accepted when creating a user.
type RegisterInput struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	OrganizationID *int64 `json:"organization_id"`
}

// Register creates a user, replacing the plaintext password with its digest
// before anything touches the store.
func (s Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if input.Password == "" {
		return nil, errors.New("password is required")
	}
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		OrganizationID: input.OrganizationID,
		Username:       username,
		Email:          input.Email,
		DisplayName:    input.DisplayName,
		PasswordHash:   hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies credentials and opens a session. The returned token is the
// opaque value the client holds; identity stays server-side.
func (s Service) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Identify resolves a session token into a user. A missing session, or a
// session whose user no longer exists, both read as anonymous: nil user and
// nil error.
func (s Service) Identify(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("session references missing user", "user_id", userID)
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Logout marks the user offline, persists that, and invalidates the session.
// Going offline is the only entity mutation logout performs.
func (s Service) Logout(ctx context.Context, token string, user *domain.User) error {
	user.OnlineStatus = false
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("persist online status: %w", err)
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	s.notifyPresence(user)
	s.logger.Info("user logged out", "user_id", user.ID)
	return nil
}

func (s Service) notifyPresence(user *domain.User) {
	if s.presence == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"online":   user.OnlineStatus,
		"at":       time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	s.presence.Broadcast(PresenceTopic, payload)
}
