package admin

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "text2toss"

// AuthConfig configures the shared admin login. PasswordHash is a bcrypt
// hash; Password is hashed at startup when no hash is given.
type AuthConfig struct {
	Username     string
	PasswordHash string
	Password     string
	Secret       string
	TTL          time.Duration
}

// Authenticator checks the admin password and issues HS256 tokens.
type Authenticator struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	a := &Authenticator{
		username: strings.TrimSpace(cfg.Username),
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	if a.ttl <= 0 {
		a.ttl = 12 * time.Hour
	}
	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("admin: password hash: %w", err)
		}
		a.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("admin: hash password: %w", err)
		}
		a.hash = hash
	}
	return a, nil
}

// Configured reports whether logins can succeed.
func (a *Authenticator) Configured() bool {
	return a != nil && len(a.hash) > 0 && len(a.secret) > 0
}

// Login verifies the password (and the username when one is given) and
// returns a signed token.
func (a *Authenticator) Login(username, password string) (*LoginResult, error) {
	if !a.Configured() {
		return nil, ErrAuthNotConfigured
	}
	username = strings.TrimSpace(username)
	// compare the hash even for a wrong username so both fail in similar time
	pwErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	userOK := username == "" || a.username == "" ||
		subtle.ConstantTimeCompare([]byte(strings.ToLower(username)), []byte(strings.ToLower(a.username))) == 1
	if pwErr != nil || !userOK {
		return nil, ErrInvalidCredentials
	}

	subject := a.username
	if subject == "" {
		subject = "admin"
	}
	now := a.now().UTC()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("admin: sign token: %w", err)
	}
	return &LoginResult{Token: signed, ExpiresAt: expires.Truncate(time.Second)}, nil
}
