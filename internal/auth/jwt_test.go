package auth

import (
	"testing"
	"time"
)

func TestJWTSignVerifyRoundTrip(t *testing.T) {
	j := JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour}
	token, expiresAt, err := j.Sign("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiry in the past")
	}
	claims, err := j.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject=%s want user-1", claims.Subject)
	}
}

func TestJWTVerifyRejectsWrongSecret(t *testing.T) {
	issuer := JWT{Secret: []byte("right")}
	token, _, err := issuer.Sign("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	verifier := JWT{Secret: []byte("wrong")}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("token accepted with wrong secret")
	}
}

func TestJWTVerifyRejectsExpired(t *testing.T) {
	j := JWT{Secret: []byte("test-secret"), TokenTTL: -time.Hour}
	token, _, err := j.Sign("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := j.Verify(token); err == nil {
		t.Fatalf("expired token accepted")
	}
}
