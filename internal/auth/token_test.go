package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"workchat/client/internal/auth"
	"workchat/client/internal/models"
)

func TestIssueAndValidate(t *testing.T) {
	member := models.Member{MemberID: "m1", Name: "Mina", ProfileRef: "avatars/m1.png"}

	token, err := auth.IssueToken([]byte("secret"), member, time.Hour)
	assert.NoError(t, err)

	got, err := auth.ValidateToken([]byte("secret"), token)
	assert.NoError(t, err)
	assert.Equal(t, member, got)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := auth.IssueToken([]byte("secret"), models.Member{MemberID: "m1"}, time.Hour)
	assert.NoError(t, err)

	_, err = auth.ValidateToken([]byte("other"), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	token, err := auth.IssueToken([]byte("secret"), models.Member{MemberID: "m1"}, -time.Minute)
	assert.NoError(t, err)

	_, err = auth.ValidateToken([]byte("secret"), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMemberFromTokenReadsIdentityWithoutSecret(t *testing.T) {
	member := models.Member{MemberID: "m2", Name: "Jun"}
	token, err := auth.IssueToken([]byte("secret"), member, time.Hour)
	assert.NoError(t, err)

	got, err := auth.MemberFromToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "m2", got.MemberID)
	assert.Equal(t, "Jun", got.Name)
}
