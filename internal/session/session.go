// Package session models the authenticated context every sync protocol
// call runs under. Protocols receive a *Session explicitly instead of
// reading token state from a global.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthenticationError is returned when a protocol is invoked without a
// valid session, or when the ledger rejects the session's token.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// IsAuthenticationError reports whether err is an AuthenticationError
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// Session carries the bearer token and the identity claims parsed from it
type Session struct {
	Token     string
	SellerID  string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// FromToken parses and validates a bearer token into a Session
func FromToken(tokenString, secret string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, &AuthenticationError{Reason: err.Error()}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, &AuthenticationError{Reason: "invalid token claims"}
	}

	sellerID, _ := claims["id"].(string)
	if sellerID == "" {
		return nil, &AuthenticationError{Reason: "token is missing seller id"}
	}

	s := &Session{
		Token:    tokenString,
		SellerID: sellerID,
	}
	if username, ok := claims["username"].(string); ok {
		s.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		s.Role = role
	}
	if exp, ok := claims["exp"].(float64); ok {
		s.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return s, nil
}

// Valid returns an AuthenticationError when the session cannot back a
// ledger call. A nil *Session is invalid.
func (s *Session) Valid() error {
	if s == nil || s.Token == "" {
		return &AuthenticationError{Reason: "no active session"}
	}
	if s.SellerID == "" {
		return &AuthenticationError{Reason: "session has no seller id"}
	}
	if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
		return &AuthenticationError{Reason: fmt.Sprintf("session expired at %s", s.ExpiresAt.Format(time.RFC3339))}
	}
	return nil
}

// IsReviewer reports whether the session may act on other sellers' records
func (s *Session) IsReviewer() bool {
	return s != nil && s.Role == "reviewer"
}
