package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jobbridge/backend/internal/models"
)

func TestValidateTokenRoundTrip(t *testing.T) {
	s := NewService(nil)
	userID := uuid.New()

	token, err := s.issueToken(userID, models.RoleWorker)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	gotID, role, err := s.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotID != userID || role != models.RoleWorker {
		t.Errorf("claims: id=%s role=%q", gotID, role)
	}
}

// Only HS256 is accepted: a token signed with another algorithm is rejected
// even when its signature verifies against the same secret.
func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	s := NewService(nil)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: models.RoleWorker,
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS384, c).SignedString(s.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, _, err := s.ValidateToken(context.Background(), forged); err == nil {
		t.Error("HS384-signed token should be rejected")
	}
}
