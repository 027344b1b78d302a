package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	rejoinTokenExpiry = 2 * time.Hour
	bcryptCost        = 10
	maxPasswordLen    = 64
)

// SessionAuth guards joining a hosted session. An optional password is
// checked on first join; a welcomed peer receives a signed rejoin token so a
// reconnect after a transport drop does not need the password again.
type SessionAuth struct {
	sessionID string
	passHash  []byte // nil when the session is open
	jwtSecret []byte
}

// NewSessionAuth creates the auth state for a hosted session. password may
// be empty for an open session.
func NewSessionAuth(sessionID, password string) (*SessionAuth, error) {
	a := &SessionAuth{sessionID: sessionID}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	a.jwtSecret = secret

	if password != "" {
		if len(password) > maxPasswordLen {
			return nil, fmt.Errorf("password longer than %d characters", maxPasswordLen)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		a.passHash = hash
	}
	return a, nil
}

// CheckPassword verifies a join password. Open sessions accept anything.
func (a *SessionAuth) CheckPassword(password string) bool {
	if a.passHash == nil {
		return true
	}
	return bcrypt.CompareHashAndPassword(a.passHash, []byte(password)) == nil
}

// IssueToken signs a rejoin token binding a peer id to this session
func (a *SessionAuth) IssueToken(peerID string) (string, error) {
	claims := jwt.MapClaims{
		"pid": peerID,
		"sid": a.sessionID,
		"exp": time.Now().Add(rejoinTokenExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken checks a rejoin token and returns the peer id it was issued
// for.
func (a *SessionAuth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	sid, _ := claims["sid"].(string)
	if sid != a.sessionID {
		return "", fmt.Errorf("token for another session")
	}
	pid, _ := claims["pid"].(string)
	if pid == "" {
		return "", fmt.Errorf("token missing peer id")
	}
	return pid, nil
}
