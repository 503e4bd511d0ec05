package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	now := time.Now()
	claims := Claims{Sub: "acct-1", Role: "user", Iat: now.Unix(), Exp: now.Add(time.Hour).Unix()}
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret, now)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret", now); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
	if _, err := ParseAndVerifyHS256(token, secret, now.Add(2*time.Hour)); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestHS256RequiresSubject(t *testing.T) {
	token, err := SignHS256(Claims{Role: "admin"}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s", time.Now()); err == nil {
		t.Fatal("expected error for token without sub")
	}
}

func TestVerifierUsesJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kty: "RSA",
			Kid: "kid-1",
			N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	v := &Verifier{Secret: "unused", JWKS: NewJWKSClient(srv.URL, time.Minute, srv.Client())}
	token, err := signRS256(Claims{Sub: "acct-2", Role: "admin", Exp: time.Now().Add(time.Hour).Unix()}, key, "kid-1")
	if err != nil {
		t.Fatalf("signRS256 failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		claims, err := v.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if claims.Sub != "acct-2" || claims.Role != "admin" {
			t.Fatalf("claims mismatch: got %+v", claims)
		}
	}
	if hits != 1 {
		t.Fatalf("expected keys to be cached, got %d fetches", hits)
	}

	unknown, _ := signRS256(Claims{Sub: "acct-2"}, key, "kid-unknown")
	if _, err := v.Verify(context.Background(), unknown); err == nil {
		t.Fatal("expected error for unknown kid")
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("unexpected result %q %v", tok, ok)
	}
	if _, ok := BearerToken("Bearer   "); ok {
		t.Fatal("expected empty bearer to be rejected")
	}
	if _, ok := BearerToken("Basic abc"); ok {
		t.Fatal("expected non-bearer to be rejected")
	}
}

func signRS256(claims Claims, key *rsa.PrivateKey, kid string) (string, error) {
	headerJSON, err := json.Marshal(Header{Alg: "RS256", Typ: "JWT", Kid: kid})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	hash := sha256.Sum256([]byte(unsigned))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}
