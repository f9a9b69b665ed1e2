// Package auth issues and reads the bearer tokens that carry chat
// identity. The broker signs and validates; the client only decodes the
// claims of the token it was handed to learn who it is.
package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"workchat/client/internal/models"
)

const issuer = "workchat-messaging"

var ErrInvalidToken = errors.New("auth: invalid or expired token")

// IssueToken signs a token embedding the member's identity.
func IssueToken(secret []byte, member models.Member, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"member_id": member.MemberID,
		"name":      member.Name,
		"profile":   member.ProfileRef,
		"exp":       time.Now().Add(ttl).Unix(),
		"iss":       issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken verifies the signature and expiry, returning the member
// identity embedded in the claims.
func ValidateToken(secret []byte, tokenString string) (models.Member, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return models.Member{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Member{}, ErrInvalidToken
	}
	return memberFromClaims(claims)
}

// MemberFromToken decodes the identity claims without verifying the
// signature. The client holds no signing key; it trusts the token the
// session bootstrap handed it.
func MemberFromToken(tokenString string) (models.Member, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return models.Member{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Member{}, ErrInvalidToken
	}
	return memberFromClaims(claims)
}

func memberFromClaims(claims jwt.MapClaims) (models.Member, error) {
	id, _ := claims["member_id"].(string)
	if id == "" {
		return models.Member{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	profile, _ := claims["profile"].(string)
	return models.Member{MemberID: id, Name: name, ProfileRef: profile}, nil
}
