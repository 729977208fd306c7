package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"taskdeck/domain"
)

// Identity is the authenticated caller. It is handed to every component that
// needs to know who is acting.
type Identity struct {
	UserID    int64       `yaml:"user_id"`
	Email     string      `yaml:"email"`
	Role      domain.Role `yaml:"role"`
	Token     string      `yaml:"token"`
	ExpiresAt time.Time   `yaml:"expires_at,omitempty"`
}

// IsAdmin reports whether the identity carries the administrator role.
func (id Identity) IsAdmin() bool { return id.Role.IsAdmin() }

// Expired reports whether the token expiry has passed at now.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

// Can reports whether the identity may see task.
func (id Identity) Can(task domain.Task) bool {
	return domain.Visible(id.Role, id.UserID, task)
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.LoginResponse, error)
}

// Login authenticates against the service and builds the identity. The role
// carried by the token takes precedence over the one echoed in the response.
func Login(ctx context.Context, auth Authenticator, verifier *Verifier, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return Identity{}, &domain.ValidationError{Fields: missing}
	}

	resp, err := auth.Login(ctx, domain.Credentials{Email: email, Password: password})
	if err != nil {
		return Identity{}, err
	}
	if resp.JWT == "" {
		return Identity{}, errors.New("login response carries no token")
	}
	if verifier == nil {
		verifier = &Verifier{}
	}
	claims, err := verifier.Claims(resp.JWT)
	if err != nil {
		return Identity{}, fmt.Errorf("read token: %w", err)
	}

	role := claims.Role
	if role == "" {
		role, _ = domain.ParseRole(resp.UserRole)
	}
	if role == "" {
		return Identity{}, &domain.AuthorizationError{Message: "unknown role " + resp.UserRole}
	}
	userID := resp.UserID
	if userID == 0 {
		userID = claims.UserID
	}
	if userID == 0 {
		return Identity{}, errors.New("login response carries no user id")
	}

	return Identity{
		UserID:    userID,
		Email:     claims.Subject,
		Role:      role,
		Token:     resp.JWT,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Store persists the identity between invocations.
type Store struct {
	Path string
	Now  func() time.Time
}

// NewStore returns a Store writing to path.
func NewStore(path string) *Store {
	return &Store{Path: path, Now: time.Now}
}

// Save writes the identity with owner-only permissions.
func (s *Store) Save(id Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	log.WithFields(log.Fields{"user_id": id.UserID, "role": id.Role}).Debug("session.saved")
	return nil
}

// Load reads the stored identity. It returns domain.ErrNoSession when nothing is
// stored and an AuthorizationError when the token has expired.
func (s *Store) Load() (Identity, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Identity{}, domain.ErrNoSession
		}
		return Identity{}, fmt.Errorf("read session: %w", err)
	}
	var id Identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", err)
	}
	if id.Token == "" || id.UserID == 0 {
		return Identity{}, domain.ErrNoSession
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if id.Expired(now()) {
		return Identity{}, &domain.AuthorizationError{Status: 401, Message: "session expired, log in again"}
	}
	return id, nil
}

// Clear removes the stored identity.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
