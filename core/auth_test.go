package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerFilterFor(t *testing.T) {
	user := OwnerFilterFor(Identity{Role: RoleUser, UserID: "u-1", Username: "alice"})
	require.NotNil(t, user.Owner)
	assert.Equal(t, "u-1", *user.Owner)

	guest := OwnerFilterFor(Identity{Role: RoleGuest, Username: GuestUsername})
	assert.Nil(t, guest.Owner)
}

func newTestAuthService() (*RepositoryAuthService, *TokenCodec) {
	codec := NewTokenCodec([]byte("test-secret"))
	return NewRepositoryAuthService(NewMemUserRepository(), codec), codec
}

func TestRegisterIssuesUserToken(t *testing.T) {
	svc, codec := newTestAuthService()

	token, identity, err := svc.Register(context.Background(), "  Alice  ", "password")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, identity.Role)
	assert.Equal(t, "Alice", identity.Username)
	assert.NotEmpty(t, identity.UserID)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, identity.UserID, claims["userId"])
	assert.Equal(t, "Alice", claims["username"])
	assert.Equal(t, RoleUser, claims["role"])
	assert.Equal(t, claims["iat"].(float64)+userTokenTTL.Seconds(), claims["exp"])
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	cases := []struct {
		username, password, message string
	}{
		{"ab", "password", "Username must be at least 3 characters long"},
		{"this-username-is-far-too-long-to-accept", "password", "Username must be at most 32 characters long"},
		{"alice", "ab", "Password must be at least 3 characters long"},
	}
	for _, tc := range cases {
		_, _, err := svc.Register(ctx, tc.username, tc.password)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "username=%q password=%q", tc.username, tc.password)
		assert.Equal(t, tc.message, ve.Message)
	}
}

func TestRegisterDuplicateIsCaseInsensitive(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Alice", "password")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "ALICE", "otherpass")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestLogin(t *testing.T) {
	svc, codec := newTestAuthService()
	ctx := context.Background()

	_, registered, err := svc.Register(ctx, "bob", "hunter22")
	require.NoError(t, err)

	// Lookup is case-insensitive; the stored casing comes back.
	token, identity, err := svc.Login(ctx, "BOB", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, identity.UserID)
	assert.Equal(t, "bob", identity.Username)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, claims["userId"])
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "bob", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown users look exactly like wrong passwords.
	_, _, err = svc.Login(ctx, "nobody", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "", "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Username and password are required", ve.Message)
}

func TestGuestSession(t *testing.T) {
	svc, codec := newTestAuthService()

	token, identity, err := svc.GuestSession()
	require.NoError(t, err)
	assert.Equal(t, Identity{Role: RoleGuest, Username: GuestUsername}, identity)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, RoleGuest, claims["role"])
	assert.Equal(t, GuestUsername, claims["username"])
	assert.NotContains(t, claims, "userId")
	assert.Equal(t, claims["iat"].(float64)+guestTokenTTL.Seconds(), claims["exp"])
}

func TestGuestTokenShorterThanUserToken(t *testing.T) {
	assert.Less(t, guestTokenTTL, userTokenTTL)
	assert.Equal(t, 7*24*time.Hour, userTokenTTL)
	assert.Equal(t, 3*24*time.Hour, guestTokenTTL)
}
