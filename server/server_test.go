package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/seedrepo/auth"
	"github.com/randalmurphal/seedrepo/ledger"
)

var testJWT = auth.JWTConfig{Secret: []byte("0123456789abcdef0123456789abcdef")}

func newTestServer(t *testing.T) (*Server, *ledger.SQLStore) {
	t.Helper()
	store, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	for _, run := range []ledger.Run{
		{ID: "done", UserID: "alice", ProjectName: "Shop", Mode: "full"},
		{ID: "pending", UserID: "alice", ProjectName: "Blog", Mode: "light"},
		{ID: "bobs", UserID: "bob", ProjectName: "Other", Mode: "full"},
	} {
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.CompleteRun(ctx, "done", ledger.Outcome{
		RepoName:     "seed-shop-1",
		RepoURL:      "https://github.com/alice/seed-shop-1",
		Instructions: "Visit it",
	}); err != nil {
		t.Fatal(err)
	}

	srv, err := New(Config{Runs: store, JWT: testJWT})
	if err != nil {
		t.Fatal(err)
	}
	return srv, store
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.IssueUserToken(testJWT, userID, userID+"@example.com")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(t *testing.T, h http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetRun(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	alice := "Bearer " + token(t, "alice")

	tests := []struct {
		name       string
		path       string
		auth       string
		wantStatus int
		wantBody   string
	}{
		{"completed run", "/runs/done", alice, http.StatusOK, `"repo_url":"https://github.com/alice/seed-shop-1"`},
		{"processing run has null url", "/runs/pending", alice, http.StatusOK, `"repo_url":null`},
		{"other user's run", "/runs/bobs", alice, http.StatusNotFound, `"error":"Not found"`},
		{"unknown run", "/runs/nope", alice, http.StatusNotFound, `"error":"Not found"`},
		{"no token", "/runs/done", "", http.StatusUnauthorized, `"error":"Unauthorized"`},
		{"wrong scheme", "/runs/done", "Basic abc", http.StatusUnauthorized, "Unauthorized"},
		{"garbage token", "/runs/done", "Bearer not-a-jwt", http.StatusUnauthorized, "Unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.path, tt.auth)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want %s", rec.Body, tt.wantBody)
			}
		})
	}
}

func TestGetRun_ForeignSecret(t *testing.T) {
	srv, _ := newTestServer(t)
	other := auth.JWTConfig{Secret: []byte("ffffffffffffffffffffffffffffffff")}
	tok, err := auth.IssueUserToken(other, "alice", "")
	if err != nil {
		t.Fatal(err)
	}
	if rec := do(t, srv.Routes(), "/runs/done", "Bearer "+tok); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	alice := "Bearer " + token(t, "alice")

	rec := do(t, h, "/runs", alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Runs []runResponse `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Runs) != 2 {
		t.Errorf("runs = %+v, want alice's two", body.Runs)
	}
	for _, r := range body.Runs {
		if r.ID == "bobs" {
			t.Error("listed another user's run")
		}
	}

	if rec := do(t, h, "/runs?limit=1", alice); !strings.Contains(rec.Body.String(), `"id"`) || strings.Count(rec.Body.String(), `"id"`) != 1 {
		t.Errorf("limit=1 body = %s", rec.Body)
	}
	if rec := do(t, h, "/runs?limit=zero", alice); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

type brokenReader struct{}

func (brokenReader) GetRun(ctx context.Context, id, userID string) (*ledger.Run, error) {
	return nil, errors.New("database is locked")
}

func (brokenReader) ListRuns(ctx context.Context, userID string, limit int) ([]ledger.Run, error) {
	return nil, errors.New("database is locked")
}

func TestLedgerFailure(t *testing.T) {
	srv, err := New(Config{Runs: brokenReader{}, JWT: testJWT})
	if err != nil {
		t.Fatal(err)
	}
	alice := "Bearer " + token(t, "alice")
	for _, path := range []string{"/runs/x", "/runs"} {
		if rec := do(t, srv.Routes(), path, alice); rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", path, rec.Code)
		}
	}
}

func TestHealthAndMethods(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	if rec := do(t, h, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/runs/done", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d, want 405", rec.Code)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{JWT: testJWT}); err == nil {
		t.Error("missing run reader should fail")
	}
	if _, err := New(Config{Runs: brokenReader{}}); err == nil {
		t.Error("missing secret should fail")
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	srv, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe = %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
