// Package auth hashes player passwords and issues the JWTs that carry a
// player's identity and role between requests.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer   = "arena-wallet"
	audience = "arena-players"

	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenKind = errors.New("wrong token kind")
	ErrEmptyJWTSecret = errors.New("jwt secret cannot be empty")
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

type Claims struct {
	UserID int64     `json:"uid"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// Issuer signs and parses tokens. Access and refresh tokens use separate
// secrets so a leaked access secret cannot mint refresh tokens.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

// NewIssuer builds an Issuer. An empty refreshSecret falls back to accessSecret.
func NewIssuer(accessSecret, refreshSecret string) *Issuer {
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

func (i *Issuer) secret(kind TokenKind) []byte {
	if kind == KindRefresh {
		return i.refreshSecret
	}
	return i.accessSecret
}

func ttl(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return RefreshTokenTTL
	}
	return AccessTokenTTL
}

func (i *Issuer) sign(id Identity, kind TokenKind) (string, error) {
	secret := i.secret(kind)
	if len(secret) == 0 {
		return "", ErrEmptyJWTSecret
	}

	now := i.now()
	claims := &Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    issuer,
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl(kind))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (i *Issuer) Access(id Identity) (string, error) {
	return i.sign(id, KindAccess)
}

func (i *Issuer) Issue(id Identity) (TokenPair, error) {
	access, err := i.sign(id, KindAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(id, KindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Parse validates token as a token of the given kind.
func (i *Issuer) Parse(token string, kind TokenKind) (*Claims, error) {
	secret := i.secret(kind)
	if len(secret) == 0 {
		return nil, ErrEmptyJWTSecret
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}
