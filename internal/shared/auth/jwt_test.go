package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	secret := "my-secret-key"
	j := NewJWT(secret)

	userID := "user-123"
	email := "test@example.com"

	// 1. Test Generate
	token, err := j.Generate(userID, email)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	// 2. Test Validate Success
	claims, err := j.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("Validate() got UserID %s, want %s", claims.UserID, userID)
	}
	if claims.Email != email {
		t.Errorf("Validate() got Email %s, want %s", claims.Email, email)
	}

	// 3. Test Tampered Token (Wrong Signature)
	parts := strings.Split(token, ".")
	tamperedToken := parts[0] + "." + parts[1] + ".invalid-signature"
	if _, err = j.Validate(tamperedToken); err == nil {
		t.Error("Validate() accepted tampered signature")
	}

	// 4. Test Invalid Format
	if _, err = j.Validate("invalid.token"); err == nil {
		t.Error("Validate() accepted invalid format")
	}

	// 5. Test Wrong Secret
	other := NewJWT("some-other-secret")
	if _, err = other.Validate(token); err == nil {
		t.Error("Validate() accepted token signed with a different secret")
	}
}

func TestJWT_ExpiredToken(t *testing.T) {
	secret := "my-secret-key"
	j := NewJWT(secret)

	// Manually build a token that expired an hour ago
	now := time.Now()
	claims := Claims{
		UserID: "user-1",
		Email:  "expired@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-25 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		t.Fatalf("failed to sign expired token: %v", err)
	}

	if _, err := j.Validate(token); err == nil {
		t.Error("Validate() accepted expired token")
	}
}

func TestJWT_RejectsNoneAlgorithm(t *testing.T) {
	j := NewJWT("my-secret-key")

	claims := Claims{
		UserID: "user-1",
		Email:  "none@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign none token: %v", err)
	}

	if _, err := j.Validate(token); err == nil {
		t.Error("Validate() accepted unsigned token")
	}
}
