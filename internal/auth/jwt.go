// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/normalize"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for tokens that fail parsing or verification.
var ErrInvalidToken = errors.New("invalid token")

// JWTManager signs and validates the tokens used by the API. It holds one or
// more HMAC keys indexed by kid; new tokens are signed with the active kid and
// tokens signed by any known kid still verify, which allows key rotation.
type JWTManager struct {
	keys      map[string][]byte
	activeKid string
	duration  time.Duration
}

// Claims is the token payload: the user id (also the subject) and email.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewJWTManager returns a manager with a single unnamed key.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return NewJWTManagerFromKeys(map[string]string{"": secretKey}, "", duration)
}

// NewJWTManagerFromKeys returns a manager that signs with keys[activeKid] and
// verifies with whichever key the token's kid header names.
func NewJWTManagerFromKeys(keys map[string]string, activeKid string, duration time.Duration) *JWTManager {
	m := &JWTManager{
		keys:      make(map[string][]byte, len(keys)),
		activeKid: activeKid,
		duration:  duration,
	}
	for kid, secret := range keys {
		m.keys[kid] = []byte(secret)
	}
	return m
}

// GenerateToken issues a signed token for a user and returns its expiry.
func (m *JWTManager) GenerateToken(userID, email string) (string, time.Time, error) {
	key, ok := m.keys[m.activeKid]
	if !ok {
		return "", time.Time{}, fmt.Errorf("no signing key for kid %q", m.activeKid)
	}

	now := time.Now()
	expiresAt := now.Add(m.duration)
	claims := &Claims{
		UserID: userID,
		// Lookups normalize the email, so the claim carries the stored form.
		Email: normalize.Email(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.activeKid != "" {
		token.Header["kid"] = m.activeKid
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyToken parses and validates a token and returns its claims.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Only HMAC; an asymmetric alg here would be a key-confusion attempt.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		key, ok := m.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SubjectFromToken reads the user id of a token without verifying it. Clients
// use it to learn who they are logged in as; servers must use VerifyToken.
func SubjectFromToken(tokenString string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
