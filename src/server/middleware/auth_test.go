package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testKID = "test-key"

func newIssuer(t *testing.T) (*httptest.Server, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(jwksResponse{Keys: []jwkKey{{
			Kty: "RSA",
			Kid: testKID,
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)
	return srv, key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKID
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRequireAuth(t *testing.T) {
	issuer, key := newIssuer(t)
	cfg := AuthConfig{Issuer: issuer.URL, Audience: "secret-recovery"}

	var (
		gotSubject     string
		gotContentType string
	)
	h := RequireAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = Subject(r.Context())
		gotContentType = w.Header().Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))

	valid := signToken(t, key, jwt.MapClaims{
		"iss": issuer.URL,
		"aud": "secret-recovery",
		"sub": "operator-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	wrongAudience := signToken(t, key, jwt.MapClaims{
		"iss": issuer.URL,
		"aud": "someone-else",
		"sub": "operator-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, key, jwt.MapClaims{
		"iss": issuer.URL,
		"aud": "secret-recovery",
		"sub": "operator-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong audience", "Bearer " + wrongAudience, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject, gotContentType = "", ""
			req := httptest.NewRequest(http.MethodPost, "/reconstructions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusNoContent {
				if gotSubject != "operator-1" {
					t.Errorf("subject = %q, want operator-1", gotSubject)
				}
				if gotContentType != "" {
					t.Errorf("downstream handler saw Content-Type %q, want none", gotContentType)
				}
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("body = %q, want JSON error", rec.Body.String())
			}
		})
	}
}
