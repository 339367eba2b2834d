// Package auth turns HS256 bearer tokens into the actor stamped on order writes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dshills/shopadmin/pkg/types"
)

var (
	// ErrMissingToken is returned when the request has no bearer token
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens
	ErrInvalidToken = errors.New("invalid token")
)

// User is the identity carried in a token
type User struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Fullname string `json:"fullname,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Actor returns the audit stamp for u
func (u User) Actor() types.Actor {
	return types.Actor{ID: u.ID, Email: u.Email}
}

// Claims are the JWT claims issued by this service
type Claims struct {
	User
	jwt.RegisteredClaims
}

// Authenticator issues and verifies access tokens
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewAuthenticator returns an authenticator signing with secret
func NewAuthenticator(secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, issuer: "shopadmin", now: time.Now}, nil
}

// IssueToken signs an access token for u
func (a *Authenticator) IssueToken(u User) (string, error) {
	now := a.now()
	claims := &Claims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses tokenString and returns its claims
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := claims.Actor().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

type ctxKey struct{}

// WithUser returns a context carrying u
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

// ActorFromContext returns the audit stamp of the authenticated user
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return types.Actor{}, false
	}
	return u.Actor(), true
}

// BearerToken extracts the token from an Authorization header
func BearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// Authenticate verifies the bearer token of r and returns its user
func (a *Authenticator) Authenticate(r *http.Request) (User, error) {
	token, err := BearerToken(r)
	if err != nil {
		return User{}, err
	}
	claims, err := a.Verify(token)
	if err != nil {
		return User{}, err
	}
	return claims.User, nil
}
