package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	token, claims, err := GenerateOperatorToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	got, err := ValidateOperatorToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Operator)
	assert.Equal(t, tokenIssuer, got.Issuer)
}

func TestOperatorTokenRejected(t *testing.T) {
	secret := []byte("s3cret")

	expired, _, err := GenerateOperatorToken(secret, "alice", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateOperatorToken(secret, expired)
	assert.Error(t, err)

	token, _, err := GenerateOperatorToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	_, err = ValidateOperatorToken([]byte("other"), token)
	assert.Error(t, err)

	_, err = ValidateOperatorToken(secret, "not.a.token")
	assert.Error(t, err)

	_, _, err = GenerateOperatorToken(nil, "alice", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = ValidateOperatorToken(nil, token)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
