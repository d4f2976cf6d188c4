package source

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signKey(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, keyClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "supabase",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := token.SignedString([]byte("not-the-real-secret"))
	require.NoError(t, err)
	return s
}

func TestInspectKey_Roles(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	info, err := InspectKey(signKey(t, "anon", now.AddDate(10, 0, 0)), now)
	require.NoError(t, err)
	assert.True(t, info.Anon())
	assert.False(t, info.Opaque)
	require.NotNil(t, info.ExpiresAt)

	info, err = InspectKey(signKey(t, "service_role", now.AddDate(10, 0, 0)), now)
	require.NoError(t, err)
	assert.Equal(t, "service_role", info.Role)
	assert.False(t, info.Anon())
}

func TestInspectKey_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := InspectKey(signKey(t, "anon", now.Add(-time.Hour)), now)
	require.ErrorIs(t, err, common.ErrConfig)
	assert.Contains(t, err.Error(), "expired")
}

func TestInspectKey_Opaque(t *testing.T) {
	info, err := InspectKey("sb_publishable_abc123", time.Now())
	require.NoError(t, err)
	assert.True(t, info.Opaque)
	assert.Empty(t, info.Role)
}
