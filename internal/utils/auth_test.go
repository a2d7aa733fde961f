package utils

import (
	"testing"

	"github.com/ventamovil/posync/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "mySecretPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("hash should not equal the plaintext password")
	}

	if !CheckPasswordHash(password, hash) {
		t.Error("correct password should verify")
	}
	if CheckPasswordHash("wrongPassword", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	seller := &models.SellerAccount{
		ID:       "seller-1",
		Username: "ana",
		Role:     models.RoleSeller,
	}

	token, err := GenerateToken(seller, "test-secret", 0)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims["id"] != "seller-1" {
		t.Errorf("id claim mismatch: got %v", claims["id"])
	}
	if claims["username"] != "ana" {
		t.Errorf("username claim mismatch: got %v", claims["username"])
	}
	if claims["role"] != models.RoleSeller {
		t.Errorf("role claim mismatch: got %v", claims["role"])
	}

	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Error("token should not validate with a different secret")
	}
}
