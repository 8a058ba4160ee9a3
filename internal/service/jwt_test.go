package service

import "testing"

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateJWT(42)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	userID, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if userID != 42 {
		t.Fatalf("userID = %d, want 42", userID)
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	InitJWT("test-secret")
	if _, err := ParseJWT("not.a.token"); err == nil {
		t.Fatal("expected error for garbage token")
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	InitJWT("secret-a")
	token, err := GenerateJWT(1)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	InitJWT("secret-b")
	if _, err := ParseJWT(token); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}
