package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	userTokenTTL  = 7 * 24 * time.Hour
	guestTokenTTL = 3 * 24 * time.Hour

	minUsernameLength = 3
	maxUsernameLength = 32
	minPasswordLength = 3
	maxPasswordLength = 128
)

// RepositoryAuthService implements AuthService on top of a user repository,
// the password hasher, and the token codec. Sessions are fully stateless: a
// valid signature plus an unexpired timestamp is the only session proof.
type RepositoryAuthService struct {
	users UserRepository
	codec *TokenCodec
}

func NewRepositoryAuthService(users UserRepository, codec *TokenCodec) *RepositoryAuthService {
	return &RepositoryAuthService{users: users, codec: codec}
}

// Register creates an account and returns a fresh user token. The duplicate
// pre-check may race with a concurrent registration; the unique index on
// username_lower is the real guarantee, surfaced as ErrDuplicateUsername.
func (s *RepositoryAuthService) Register(ctx context.Context, username, password string) (string, Identity, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if err := validateCredentials(username, password); err != nil {
		return "", Identity{}, err
	}

	usernameLower := strings.ToLower(username)
	if _, err := s.users.FindByUsernameLower(ctx, usernameLower); err == nil {
		return "", Identity{}, ErrDuplicateUsername
	} else if !errors.Is(err, ErrUserNotFound) {
		return "", Identity{}, fmt.Errorf("failed to look up username: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &UserRecord{
		ID:            uuid.NewString(),
		Username:      username,
		UsernameLower: usernameLower,
		PasswordHash:  hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return "", Identity{}, ErrDuplicateUsername
		}
		return "", Identity{}, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueUserToken(user)
}

// Login verifies credentials and returns a fresh user token. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *RepositoryAuthService) Login(ctx context.Context, username, password string) (string, Identity, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if username == "" || password == "" {
		return "", Identity{}, &ValidationError{Message: "Username and password are required"}
	}

	user, err := s.users.FindByUsernameLower(ctx, strings.ToLower(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", Identity{}, ErrInvalidCredentials
		}
		return "", Identity{}, fmt.Errorf("failed to look up username: %w", err)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return "", Identity{}, ErrInvalidCredentials
	}

	return s.issueUserToken(user)
}

// GuestSession issues a short-lived anonymous token. Guest sessions are
// low-trust: no durable credential backs them, so their ttl is shorter.
func (s *RepositoryAuthService) GuestSession() (string, Identity, error) {
	identity := Identity{Role: RoleGuest, Username: GuestUsername}
	token, err := s.codec.Encode(map[string]any{
		"role":     RoleGuest,
		"username": GuestUsername,
	}, guestTokenTTL)
	if err != nil {
		return "", Identity{}, fmt.Errorf("failed to sign guest token: %w", err)
	}
	return token, identity, nil
}

func (s *RepositoryAuthService) issueUserToken(user *UserRecord) (string, Identity, error) {
	identity := Identity{Role: RoleUser, UserID: user.ID, Username: user.Username}
	token, err := s.codec.Encode(map[string]any{
		"userId":   user.ID,
		"username": user.Username,
		"role":     RoleUser,
	}, userTokenTTL)
	if err != nil {
		return "", Identity{}, fmt.Errorf("failed to sign user token: %w", err)
	}
	return token, identity, nil
}

func validateCredentials(username, password string) error {
	switch n := utf8.RuneCountInString(username); {
	case n < minUsernameLength:
		return &ValidationError{Message: fmt.Sprintf("Username must be at least %d characters long", minUsernameLength)}
	case n > maxUsernameLength:
		return &ValidationError{Message: fmt.Sprintf("Username must be at most %d characters long", maxUsernameLength)}
	}
	switch n := utf8.RuneCountInString(password); {
	case n < minPasswordLength:
		return &ValidationError{Message: fmt.Sprintf("Password must be at least %d characters long", minPasswordLength)}
	case n > maxPasswordLength:
		return &ValidationError{Message: fmt.Sprintf("Password must be at most %d characters long", maxPasswordLength)}
	}
	return nil
}
