package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-ai/atelier/agent"
	"github.com/atelier-ai/atelier/comms"
	"github.com/atelier-ai/atelier/config"
	"github.com/atelier-ai/atelier/env"
	"github.com/atelier-ai/atelier/provider"
)

// silent never replies; server tests only exercise routing, not acting.
var silent = provider.Func(func(_ context.Context, _ []*comms.Message) ([]*comms.Message, error) {
	return nil, nil
})

// newTestServer returns a server with routes registered and a known admin
// credential (admin/secret), without starting a listener.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "test-secret",
			AdminUser: "admin",
			AdminPass: string(hash),
		},
	}
	s := New(cfg, "test", nil)
	s.registerRoutes()
	return s
}

// doJSON performs a request against the server mux with an optional JSON body
// and bearer token.
func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// login obtains a valid token via the login endpoint.
func login(t *testing.T, s *Server) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "admin", "password": "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func attachEnv(t *testing.T, s *Server) *env.Environment {
	t.Helper()
	e := env.New(nil)
	for _, a := range []struct{ name, profile string }{
		{"Mike", "Team Leader"},
		{"Alice", "Product Manager"},
	} {
		id, err := agent.NewIdentity(a.name, a.profile)
		if err != nil {
			t.Fatalf("identity %s: %v", a.name, err)
		}
		if err := e.AddAgent(agent.NewRuntime(id, silent)); err != nil {
			t.Fatalf("add %s: %v", a.name, err)
		}
	}
	s.SetEnvironment(e)
	return e
}
