// ABOUTME: Tests for JWT token generation and verification
// ABOUTME: Covers valid, expired, foreign-issuer and wrongly signed tokens

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var tokenTestSecret = []byte("token-verifier-test-secret-32by!")

func TestNewJWTVerifier_ShortSecret(t *testing.T) {
	if _, err := NewJWTVerifier([]byte("short")); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier(tokenTestSecret)
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}

	token, err := v.Generate("0xabc", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	caller, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if caller != "0xabc" {
		t.Errorf("expected caller '0xabc', got %q", caller)
	}
}

func TestJWTVerifier_Expired(t *testing.T) {
	v, _ := NewJWTVerifier(tokenTestSecret)

	token, _ := v.Generate("0xabc", -time.Minute)
	_, err := v.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	v1, _ := NewJWTVerifier(tokenTestSecret)
	v2, _ := NewJWTVerifier([]byte("another-secret-that-is-32-bytes!"))

	token, _ := v1.Generate("0xabc", time.Hour)
	_, err := v2.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTVerifier_MissingSub(t *testing.T) {
	v, _ := NewJWTVerifier(tokenTestSecret)

	signed := signTestClaims(t, jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err := v.Verify(signed)
	if !errors.Is(err, ErrMissingClaim) {
		t.Errorf("expected ErrMissingClaim, got %v", err)
	}
}

func TestJWTVerifier_ForeignIssuerOrAudience(t *testing.T) {
	v, _ := NewJWTVerifier(tokenTestSecret)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	cases := map[string]jwt.RegisteredClaims{
		"no issuer":      {Audience: jwt.ClaimStrings{TokenAudience}, Subject: "0xabc", ExpiresAt: exp},
		"other issuer":   {Issuer: "gateway", Audience: jwt.ClaimStrings{TokenAudience}, Subject: "0xabc", ExpiresAt: exp},
		"no audience":    {Issuer: TokenIssuer, Subject: "0xabc", ExpiresAt: exp},
		"other audience": {Issuer: TokenIssuer, Audience: jwt.ClaimStrings{"admin"}, Subject: "0xabc", ExpiresAt: exp},
		"no expiry":      {Issuer: TokenIssuer, Audience: jwt.ClaimStrings{TokenAudience}, Subject: "0xabc"},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(signTestClaims(t, claims))
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestJWTVerifier_RejectsNoneAlgorithm(t *testing.T) {
	v, _ := NewJWTVerifier(tokenTestSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		Subject:   "0xabc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := v.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func signTestClaims(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenTestSecret)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return signed
}

func TestJWTVerifier_Garbage(t *testing.T) {
	v, _ := NewJWTVerifier(tokenTestSecret)

	if _, err := v.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
