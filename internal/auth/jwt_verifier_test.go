package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"snipvault/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

func testVerifier(t *testing.T) (*JWKSVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kf := func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil }
	return newVerifier(kf, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestJWKSVerifier_VerifyToken(t *testing.T) {
	v, key := testVerifier(t)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name    string
		token   func() string
		wantSub string
	}{
		{
			name: "valid RS256 token",
			token: func() string {
				return sign(t, jwt.SigningMethodRS256, key, &Claims{
					Email:            "ana@example.com",
					RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: future},
				})
			},
			wantSub: "user-1",
		},
		{
			name: "expired token",
			token: func() string {
				return sign(t, jwt.SigningMethodRS256, key, &Claims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: past},
				})
			},
		},
		{
			name: "missing expiry",
			token: func() string {
				return sign(t, jwt.SigningMethodRS256, key, &Claims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
				})
			},
		},
		{
			name: "missing subject",
			token: func() string {
				return sign(t, jwt.SigningMethodRS256, key, &Claims{
					RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
				})
			},
		},
		{
			name: "HS256 is refused",
			token: func() string {
				return sign(t, jwt.SigningMethodHS256, []byte("secret"), &Claims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: future},
				})
			},
		},
		{
			name:  "garbage",
			token: func() string { return "a.b.c" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.VerifyToken(tt.token())
			if tt.wantSub == "" {
				if !errors.Is(err, domain.ErrUnauthorized) {
					t.Fatalf("expected ErrUnauthorized, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyToken: %v", err)
			}
			if claims.Subject != tt.wantSub {
				t.Errorf("subject = %q, want %q", claims.Subject, tt.wantSub)
			}
		})
	}
}
