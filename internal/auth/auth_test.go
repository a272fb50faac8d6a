package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FinUp/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "12345678900",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func bankingServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id header")
		}
		switch r.URL.Path {
		case "/auth":
			var req loginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			if req.CPF != "12345678900" || req.Senha != "secret" {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(loginResponse{Token: token})
		case "/conta/logado":
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			w.Write([]byte(`{"idConta":42,"pessoa":{"usuario":{"cpf":"12345678900"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClient_Login(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, exp)
	srv := bankingServer(t, token)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	sess, err := c.Login(context.Background(), "12345678900", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token != token || sess.AccountID != 42 || sess.CPF != "12345678900" {
		t.Errorf("unexpected session %+v", sess)
	}
	if !sess.ExpiresAt.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, sess.ExpiresAt)
	}
}

func TestClient_LoginRejected(t *testing.T) {
	srv := bankingServer(t, "opaque-token")
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Login(context.Background(), "12345678900", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_LoginOpaqueToken(t *testing.T) {
	srv := bankingServer(t, "opaque-token")
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	sess, err := c.Login(context.Background(), "12345678900", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.ExpiresAt.IsZero() {
		t.Errorf("opaque token should carry no expiry, got %v", sess.ExpiresAt)
	}
}

func TestClient_Resolve(t *testing.T) {
	srv := bankingServer(t, "good")
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	tests := []struct {
		name    string
		sess    *model.Session
		wantErr error
	}{
		{"nil session", nil, ErrUnauthorized},
		{"no token", &model.Session{}, ErrUnauthorized},
		{"expired", &model.Session{Token: "good", ExpiresAt: time.Now().Add(-time.Minute)}, ErrUnauthorized},
		{"rejected token", &model.Session{Token: "bad"}, ErrUnauthorized},
		{"ok", &model.Session{Token: "good"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Resolve(context.Background(), tt.sess)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if tt.sess.AccountID != 42 || tt.sess.CPF != "12345678900" {
					t.Errorf("session not resolved: %+v", tt.sess)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := TokenExpiry(signedToken(t, exp))
	if !ok || !got.Equal(exp) {
		t.Errorf("expected %v, got %v (%v)", exp, got, ok)
	}
	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Error("expected no expiry for garbage token")
	}
}

func TestLocal(t *testing.T) {
	var l Local
	sess, err := l.Login(context.Background(), " 123 ", "")
	if err != nil || sess.CPF != "123" || sess.Token != "123" {
		t.Fatalf("unexpected session %+v (%v)", sess, err)
	}
	resolved := &model.Session{Token: "456"}
	if err := l.Resolve(context.Background(), resolved); err != nil || resolved.CPF != "456" {
		t.Errorf("unexpected resolve %+v (%v)", resolved, err)
	}
	if _, err := l.Login(context.Background(), "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
