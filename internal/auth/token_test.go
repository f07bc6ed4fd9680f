package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseAccessToken(t *testing.T) {
	secret := []byte("secret")
	token, issued, err := IssueAccessToken(secret, "auth0|reader", time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims != issued {
		t.Fatalf("claims = %+v, want %+v", claims, issued)
	}
	if claims.Sub != "auth0|reader" || claims.JTI == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	token, err := IssueToken(secret, Claims{Sub: "a", JTI: "j", Exp: time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	secret := []byte("secret")
	token, _, err := IssueAccessToken(secret, "a", time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	payload, signature, _ := strings.Cut(token, ".")

	cases := map[string]string{
		"wrong secret":    "",
		"no separator":    payload + signature,
		"extra segment":   token + ".x",
		"bad signature":   payload + ".AAAA",
		"garbage payload": "%%%." + signature,
	}
	for name, candidate := range cases {
		t.Run(name, func(t *testing.T) {
			key := secret
			if candidate == "" {
				candidate = token
				key = []byte("other")
			}
			if _, err := ParseToken(key, candidate); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestParseTokenRequiresClaims(t *testing.T) {
	secret := []byte("secret")
	token, err := IssueToken(secret, Claims{Sub: "a", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing jti, got %v", err)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("x") != HashToken("x") || HashToken("x") == HashToken("y") {
		t.Fatal("HashToken should be deterministic and distinct")
	}
	if len(NewRefreshToken()) != 64 {
		t.Fatalf("refresh token length = %d", len(NewRefreshToken()))
	}
}
