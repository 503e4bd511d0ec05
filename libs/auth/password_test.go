package auth

import "testing"

func TestPasswordHashing(t *testing.T) {
	password := "pass1234"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "" || hash == password {
		t.Fatal("expected an opaque hash")
	}
	if err := VerifyPassword(hash, password); err != nil {
		t.Fatalf("VerifyPassword should succeed: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("VerifyPassword should fail for wrong password")
	}
}
