package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/domain"
)

func newTestAuthenticator(t *testing.T, password string) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	a, err := NewAuthenticator(&config.AuthConfig{
		JWTSecret:         "test-secret",
		AdminPasswordHash: string(hash),
		TokenTTL:          time.Hour,
	})
	require.NoError(t, err)
	return a
}

func TestNewAuthenticator_RequiresSecret(t *testing.T) {
	_, err := NewAuthenticator(&config.AuthConfig{})
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestLoginAndValidate(t *testing.T) {
	a := newTestAuthenticator(t, "club-admin")

	_, _, err := a.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	token, expires, err := a.Login("club-admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = a.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	token, _, err := a.Login("pw")
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_OtherSecret(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	token, _, err := a.Login("pw")
	require.NoError(t, err)

	other, err := NewAuthenticator(&config.AuthConfig{JWTSecret: "other", TokenTTL: time.Hour})
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogin_NoHashConfigured(t *testing.T) {
	a, err := NewAuthenticator(&config.AuthConfig{JWTSecret: "s", TokenTTL: time.Hour})
	require.NoError(t, err)
	_, _, err = a.Login("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	token, _, err := a.Login("pw")
	require.NoError(t, err)

	var sawClaims bool
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/tournaments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.True(t, sawClaims)
}
