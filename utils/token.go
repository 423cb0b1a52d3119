package authUtils

import (
	"errors"
	"fmt"
	"time"

	"civicreport-be/models"

	"github.com/dgrijalva/jwt-go"
)

// Claims are the identity fields carried by an access token.
type Claims struct {
	UserID string
	Role   models.Role
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// GenerateToken generates a JWT token for a given user
func (i *Issuer) GenerateToken(userID string, role models.Role) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(i.ttl).Unix(),
	})
	return token.SignedString(i.secret)
}

var ErrInvalidToken = errors.New("invalid authorization token")

// ParseToken validates signature and expiry and extracts the claims.
func (i *Issuer) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return &Claims{UserID: userID, Role: models.Role(role)}, nil
}
