package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const tokenIssuer = "helpdesk-service"

// Clock returns the current time. Nil means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// TokenManager signs session references into JWTs and validates them. The
// token only carries the session id and user id; whether the session is
// still live is decided by the session repository.
type TokenManager struct {
	secret []byte
	clock  Clock
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, clock Clock) *TokenManager {
	return &TokenManager{secret: []byte(secret), clock: clock}
}

// Claims describes JWT payload. ID carries the session id, Subject the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Sign builds and signs a JWT for the session.
func (tm *TokenManager) Sign(session *domain.Session) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.UserID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Parse validates signature, issuer and expiry and returns claims.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	return tm.parse(tokenStr, jwt.WithExpirationRequired())
}

// ParseIgnoringExpiry validates signature and issuer only. Used to find the
// session behind a token that may already have expired.
func (tm *TokenManager) ParseIgnoringExpiry(tokenStr string) (*Claims, error) {
	return tm.parse(tokenStr, jwt.WithoutClaimsValidation())
}

func (tm *TokenManager) parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.clock.now),
	)
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Issuer != tokenIssuer {
		return nil, errors.New("unexpected token issuer")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("token missing session reference")
	}
	return claims, nil
}
