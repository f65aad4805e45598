// Package token issues and validates the signed bearer credentials that
// represent a session. Tokens are HS256 JWTs carrying the user id as
// subject plus a unique jti so individual tokens can be revoked through
// the denylist.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrExpired and ErrInvalid are client-correctable failures (re-login);
// anything else returned by Issue or Parse is a server-side problem.
var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Claims is the decoded, validated content of an access token.
type Claims struct {
	UserID    uint64
	JTI       string
	ExpiresAt time.Time
}

// Issue builds and signs an HS256 JWT for a user with the given TTL in
// minutes. The returned Claims echo what was encoded.
func Issue(secret string, userID uint64, ttlMin int) (string, Claims, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", Claims{}, err
	}
	return signed, Claims{UserID: userID, JTI: jti, ExpiresAt: exp}, nil
}

// Parse validates a raw token string and returns its claims. Expired
// tokens yield ErrExpired, anything else malformed or tampered yields
// ErrInvalid; both map to 401 at the HTTP boundary.
func Parse(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalid
	}
	out := Claims{}
	switch sub := mc["sub"].(type) {
	case float64:
		out.UserID = uint64(sub)
	case string:
		n, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Claims{}, ErrInvalid
		}
		out.UserID = n
	default:
		return Claims{}, ErrInvalid
	}
	if out.UserID == 0 {
		return Claims{}, ErrInvalid
	}
	if jti, ok := mc["jti"].(string); ok {
		out.JTI = jti
	}
	if exp, ok := mc["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return out, nil
}
