package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService_HashAndVerify(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	hash, err := svc.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal plaintext")
	}
	if !svc.Verify(hash, "correct horse") {
		t.Error("expected password to verify")
	}
	if svc.Verify(hash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
	if svc.Verify("", "correct horse") {
		t.Error("expected empty hash to fail")
	}
}

func TestPasswordService_SaltsEachHash(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	first, _ := svc.Hash("same")
	second, _ := svc.Hash("same")
	if first == second {
		t.Error("expected distinct hashes for the same password")
	}
}

func TestNewPasswordService_ClampsCost(t *testing.T) {
	svc := NewPasswordService(99).(*PasswordServiceImpl)
	if svc.cost != 12 {
		t.Errorf("expected fallback cost 12, got %d", svc.cost)
	}
}
