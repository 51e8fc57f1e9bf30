package auth

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := SignJWT(Claims{
		Email: "sara@example.com",
		Role:  "user",
		Plan:  "premium",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1",
		},
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected sub user-1, got %s", claims.Subject)
	}
	if claims.Plan != "premium" || claims.Role != "user" {
		t.Fatalf("unexpected plan/role: %s/%s", claims.Plan, claims.Role)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	if _, err := VerifyJWT(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSignRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}); err == nil {
		t.Fatal("expected error when secret missing")
	}
}
