package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorTokens_RoundTrip(t *testing.T) {
	tokens := NewOperatorTokens("0123456789abcdef0123456789abcdef", time.Hour)

	raw, exp, err := tokens.Issue("ops@example", "dead-letters")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ops@example", claims.Subject)
	assert.True(t, claims.HasScope("dead-letters"))
	assert.False(t, claims.HasScope("other"))
}

func TestOperatorTokens_RejectsForeignSecret(t *testing.T) {
	issuer := NewOperatorTokens("secret-a-secret-a-secret-a-secret", time.Hour)
	verifier := NewOperatorTokens("secret-b-secret-b-secret-b-secret", time.Hour)

	raw, _, err := issuer.Issue("ops")
	require.NoError(t, err)

	_, err = verifier.Parse(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestOperatorTokens_Expired(t *testing.T) {
	tokens := NewOperatorTokens("0123456789abcdef0123456789abcdef", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := tokens.Issue("ops")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestOperatorTokens_RequiresOperator(t *testing.T) {
	_, _, err := NewOperatorTokens("x", time.Minute).Issue("")
	assert.Error(t, err)
}
