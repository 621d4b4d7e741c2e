// Package gate is the advisory unlock for destructive operations. It is a
// convenience against accidental deletes, not access control: anyone who
// knows the shared password can unlock, and every session dies with the
// process because the signing key is generated at startup.
package gate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrLocked means no valid unlock session was presented.
	ErrLocked = errors.New("gate: locked")
	// ErrBadPassword means the password did not match.
	ErrBadPassword = errors.New("gate: wrong password")
)

const scopeDelete = "tracks:delete"

// Claims of an unlock session.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Gate checks the shared password and issues unlock sessions.
type Gate struct {
	hash []byte
	key  []byte
	ttl  time.Duration
	now  func() time.Time
}

// New creates a gate over a bcrypt hash. An empty hash keeps the gate
// permanently locked.
func New(passwordHash string, ttl time.Duration) (*Gate, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Gate{hash: []byte(passwordHash), key: key, ttl: ttl, now: time.Now}, nil
}

// Enabled reports whether a password is configured at all.
func (g *Gate) Enabled() bool {
	return len(g.hash) > 0
}

// Unlock checks password and returns a session token with its expiry.
func (g *Gate) Unlock(password string) (string, time.Time, error) {
	if !g.Enabled() || bcrypt.CompareHashAndPassword(g.hash, []byte(password)) != nil {
		return "", time.Time{}, ErrBadPassword
	}

	now := g.now()
	expires := now.Add(g.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scope: scopeDelete,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(g.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// Authorize validates a session token.
func (g *Gate) Authorize(token string) error {
	if token == "" {
		return ErrLocked
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return g.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	if claims.Scope != scopeDelete {
		return ErrLocked
	}
	return nil
}

// HashPassword generates a bcrypt hash for DELETE_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}
