package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestLogin_Success(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)
	if token == "" {
		t.Fatal("empty token")
	}

	subject, err := s.verifyToken(token)
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if subject != "admin" {
		t.Errorf("subject = %q, want admin", subject)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "admin", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "mallory", "password": "secret"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogin_BadBody(t *testing.T) {
	s := newTestServer(t)
	req := doJSON(t, s, http.MethodPost, "/api/auth/login", "", nil)
	if req.Code != http.StatusBadRequest && req.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 400 or 401", req.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/agents", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_BadToken(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/agents", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	s := newTestServer(t)
	attachEnv(t, s)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["username"] != "admin" {
		t.Errorf("username = %q, want admin", resp["username"])
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	s := newTestServer(t)
	other := newTestServer(t)
	other.cfg.Auth.JWTSecret = "different-secret"

	token := login(t, s)
	if _, err := other.verifyToken(token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestJWTSecret_GeneratedWhenUnset(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Auth.JWTSecret = ""
	first := s.jwtSecret()
	if first == "" {
		t.Fatal("generated secret is empty")
	}
	if s.jwtSecret() != first {
		t.Error("generated secret must be stable for the server lifetime")
	}
}
