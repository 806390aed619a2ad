package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtRoundTrip(t *testing.T) {
	s := &CrewChatApp{signingKey: []byte("test-signing-key")}

	token, err := s.createJwtForSession(42, time.Hour)
	require.NoError(t, err)

	userId, err := s.extractUserIdFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userId)
}

func TestJwtExpired(t *testing.T) {
	s := &CrewChatApp{signingKey: []byte("test-signing-key")}

	token, err := s.createJwtForSession(42, -time.Hour)
	require.NoError(t, err)

	_, err = s.extractUserIdFromToken(token)
	assert.Error(t, err)
}

func TestJwtWrongKey(t *testing.T) {
	s := &CrewChatApp{signingKey: []byte("test-signing-key")}
	other := &CrewChatApp{signingKey: []byte("different-key")}

	token, err := s.createJwtForSession(42, time.Hour)
	require.NoError(t, err)

	_, err = other.extractUserIdFromToken(token)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tt := []struct {
		name      string
		header    string
		token     string
		expectErr bool
	}{
		{
			name:      "missing header",
			expectErr: true,
		},
		{
			name:      "malformed header",
			header:    "Basic dXNlcjpwYXNz",
			expectErr: true,
		},
		{
			name:      "empty token",
			header:    "Bearer ",
			expectErr: true,
		},
		{
			name:   "valid header",
			header: "Bearer abc123",
			token:  "abc123",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			token, err := bearerToken(r)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("gaffer-tape")
	require.NoError(t, err)
	assert.NotEqual(t, "gaffer-tape", hash)

	assert.True(t, verifyPassword(hash, "gaffer-tape"))
	assert.False(t, verifyPassword(hash, "duct-tape"))
}
