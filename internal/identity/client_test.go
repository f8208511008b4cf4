package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientProfile(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/users/user-1" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(Profile{Name: "Alice", ImageURL: "https://img/u1"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/", "secret")
	p, err := c.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Name != "Alice" || p.ImageURL != "https://img/u1" {
		t.Fatalf("profile: %+v", p)
	}
	// Identity is filled in when the provider omits it.
	if p.Identity != "user-1" {
		t.Fatalf("identity: got %q", p.Identity)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization header: got %q", gotAuth)
	}

	if _, err := c.Profile(context.Background(), "nobody"); err == nil {
		t.Fatalf("expected error for unknown identity")
	}
}
