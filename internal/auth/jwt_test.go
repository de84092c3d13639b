package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/config"
)

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	secret, err := GenerateSecret()
	require.NoError(t, err)
	i, err := NewIssuer(config.AuthConfig{JWTSecret: secret, Issuer: "test"})
	require.NoError(t, err)
	return i
}

func TestIssueAndValidate(t *testing.T) {
	i := newIssuer(t)

	token, err := i.Issue("ops", true)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "JWT состоит из трёх частей")

	claims, err := i.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.True(t, claims.Admin)
	assert.Equal(t, "test", claims.Issuer)
}

func TestValidate_Rejects(t *testing.T) {
	i := newIssuer(t)
	other := newIssuer(t)

	foreign, err := other.Issue("ops", true)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Operator: "ops",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString(i.secret)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Operator:         "ops",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone"},
	}).SignedString(i.secret)
	require.NoError(t, err)

	cases := map[string]string{
		"мусор":          "invalid.token.here",
		"пустой":         "",
		"чужой секрет":   foreign,
		"истёк":          expired,
		"чужой издатель": wrongIssuer,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := i.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewIssuer_Secrets(t *testing.T) {
	_, err := NewIssuer(config.AuthConfig{JWTSecret: "c2hvcnQ="})
	assert.ErrorIs(t, err, ErrShortSecret)

	_, err = NewIssuer(config.AuthConfig{JWTSecret: "не base64 @#"})
	assert.Error(t, err)

	// Без секрета токены работают в пределах процесса
	i, err := NewIssuer(config.AuthConfig{})
	require.NoError(t, err)
	token, err := i.Issue("ops", false)
	require.NoError(t, err)
	claims, err := i.Validate(token)
	require.NoError(t, err)
	assert.False(t, claims.Admin)
	assert.Equal(t, "pilotsim", claims.Issuer)

	s1, _ := GenerateSecret()
	s2, _ := GenerateSecret()
	assert.NotEqual(t, s1, s2)
}
