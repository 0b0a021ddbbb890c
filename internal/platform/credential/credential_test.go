package credential

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestExpiresAt_ReadsExpWithoutVerifying(t *testing.T) {
	t.Parallel()

	exp := time.Unix(1_800_000_000, 0)
	tok := mint(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})

	got, ok := ExpiresAt(tok)
	if !ok || !got.Equal(exp) {
		t.Fatalf("ExpiresAt()=%v ok=%v, want %v", got, ok, exp)
	}
	if !Expired(tok, exp) || Expired(tok, exp.Add(-time.Second)) {
		t.Fatalf("Expired boundary mismatch")
	}
}

func TestExpiresAt_OpaqueAndExpless(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "T", "opaque-session-token", "a.b.c", mint(t, jwt.MapClaims{"sub": "u1"})} {
		if _, ok := ExpiresAt(tok); ok {
			t.Fatalf("ExpiresAt(%q) ok=true, want false", tok)
		}
		if Expired(tok, time.Now()) {
			t.Fatalf("Expired(%q)=true, want false", tok)
		}
	}
}
