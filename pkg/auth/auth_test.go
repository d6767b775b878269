package auth

import "testing"

func testSecrets() Secrets {
	return Secrets{
		JWTKey:    []byte("test-jwt-secret"),
		MasterKey: []byte("test-master-secret"),
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := testSecrets()

	token, err := s.CreateToken("admin")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	claims, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("Username = %q, want admin", claims.Username)
	}
}

func TestVerifyTokenWrongKey(t *testing.T) {
	s := testSecrets()
	token, err := s.CreateToken("admin")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	other := Secrets{JWTKey: []byte("different")}
	if _, err := other.VerifyToken(token); err == nil {
		t.Error("expected verification to fail with a different key")
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	s := testSecrets()

	key := s.GenerateAPIKey("client-7")
	userID, err := s.VerifyAPIKey(key)
	if err != nil {
		t.Fatalf("VerifyAPIKey: %v", err)
	}
	if userID != "client-7" {
		t.Errorf("userID = %q, want client-7", userID)
	}
}

func TestVerifyAPIKeyTampered(t *testing.T) {
	s := testSecrets()
	key := s.GenerateAPIKey("client-7")

	if _, err := s.VerifyAPIKey("other-user." + key[len("client-7."):]); err == nil {
		t.Error("expected tampered key to fail verification")
	}
	if _, err := s.VerifyAPIKey("no-signature"); err == nil {
		t.Error("expected malformed key to fail verification")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPasswordHash("s3cret", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("wrong password accepted")
	}
}
