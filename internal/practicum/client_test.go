package practicum

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchSendsAuthAndWindow(t *testing.T) {
	var gotAuth, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		w.Write([]byte(`{"homeworks":[],"current_date":1700000000}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	raw, err := c.Fetch(context.Background(), 1699999999)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotAuth != "OAuth secret" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}
	if gotFrom != "1699999999" {
		t.Fatalf("unexpected from_date: %q", gotFrom)
	}
	if len(raw) == 0 {
		t.Fatal("expected raw body")
	}
}

func TestFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	_, err := c.Fetch(context.Background(), 0)

	var up *UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if up.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", up.StatusCode)
	}
}

func TestFetchConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL, "secret", time.Second)
	_, err := c.Fetch(context.Background(), 0)

	var conn *ConnectivityError
	if !errors.As(err, &conn) {
		t.Fatalf("expected ConnectivityError, got %v", err)
	}
	if conn.Endpoint != srv.URL {
		t.Fatalf("error should carry the endpoint, got %q", conn.Endpoint)
	}
	if conn.Since != 0 {
		t.Fatalf("error should carry the window, got %d", conn.Since)
	}
}
