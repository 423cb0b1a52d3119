package authUtils

import (
	"testing"
	"time"

	"civicreport-be/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.GenerateToken("u1", models.RoleDepartment)
	require.NoError(t, err)

	claims, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, &Claims{UserID: "u1", Role: models.RoleDepartment}, claims)
}

func TestParseTokenRejects(t *testing.T) {
	issuer, _ := NewIssuer("secret", time.Hour)
	other, _ := NewIssuer("other-secret", time.Hour)

	foreign, _ := other.GenerateToken("u1", models.RoleCitizen)
	_, err := issuer.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := issuer.GenerateToken("u1", models.RoleCitizen)
	issuer.now = time.Now
	_, err = issuer.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	_, err = issuer.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("", time.Hour)
	assert.Error(t, err)
}
