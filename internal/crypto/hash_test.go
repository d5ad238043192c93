package crypto

import "testing"

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1", DefaultBcryptCost)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword() returned empty string")
	}
	if hash == "secret1" {
		t.Fatal("HashPassword() returned the plaintext password")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := HashPassword("", DefaultBcryptCost)
	if err != ErrEmptyPassword {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	h2, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestHashPasswordCostFallback(t *testing.T) {
	// Out-of-range costs fall back to the default instead of erroring.
	hash, err := HashPassword("secret1", 99)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	if !CheckPassword("secret1", hash) {
		t.Error("hash produced with fallback cost should still verify")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	if !CheckPassword("secret1", hash) {
		t.Error("CheckPassword() = false for matching password")
	}
	if CheckPassword("secret2", hash) {
		t.Error("CheckPassword() = true for wrong password")
	}
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	// No hash on file means invalid credentials, never a crash.
	if CheckPassword("secret1", "") {
		t.Error("CheckPassword() = true for empty hash")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if CheckPassword("secret1", "not-a-bcrypt-hash") {
		t.Error("CheckPassword() = true for malformed hash")
	}
}
