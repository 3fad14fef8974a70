package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "u-1", "STAFF", 5)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u-1" || claims.Role != "STAFF" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	tok, _ := NewAccessToken("secret", "u-1", "ADMIN", 5)
	if _, err := ParseAccessToken("other", tok.Token); err == nil {
		t.Error("wrong secret accepted")
	}
	expired, _ := NewAccessToken("secret", "u-1", "ADMIN", -1)
	if _, err := ParseAccessToken("secret", expired.Token); err == nil {
		t.Error("expired token accepted")
	}
	if _, err := NewAccessToken("", "u-1", "ADMIN", 5); err == nil {
		t.Error("empty secret accepted")
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "correct horse") || VerifyPassword(h, "wrong") {
		t.Fatal("bcrypt comparison misbehaved")
	}
}
