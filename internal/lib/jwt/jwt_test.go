package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminToken(t *testing.T) {
	token, err := NewAdminToken("owner@example.com", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAdminToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseAdminToken_Rejects(t *testing.T) {
	valid, err := NewAdminToken("owner@example.com", "secret", time.Hour)
	require.NoError(t, err)

	expired, err := NewAdminToken("owner@example.com", "secret", -time.Minute)
	require.NoError(t, err)

	client := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{Email: "c@example.com", Role: "client"})
	clientToken, err := client.SignedString([]byte("secret"))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{Role: RoleAdmin})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "wrong secret", token: valid, secret: "other"},
		{name: "expired", token: expired, secret: "secret"},
		{name: "not admin", token: clientToken, secret: "secret"},
		{name: "alg none", token: noneToken, secret: "secret"},
		{name: "garbage", token: "abc.def", secret: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAdminToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
