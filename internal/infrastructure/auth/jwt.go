package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookbound/library/internal/core/domain"
)

// DefaultTokenTTL is how long an access token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// JWT signs and verifies HS256 access tokens carrying the user id as subject.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (j *JWT) Sign(user *domain.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", errors.New("sign token: user has no id")
	}
	now := j.now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(j.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the actor the token was issued to.
func (j *JWT) Verify(token string) (domain.Actor, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid {
		return domain.Actor{}, domain.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	if !domain.Role(role).Assignable() {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	return domain.Actor{UserID: id, Role: domain.Role(role)}, nil
}
