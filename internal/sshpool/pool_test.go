package sshpool

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"field-execd/internal/sshtest"
)

func startTestServer(t *testing.T, password string) *sshtest.Server {
	t.Helper()
	srv, err := sshtest.Start(password)
	if err != nil {
		t.Fatalf("start test ssh server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func testKey(t *testing.T, srv *sshtest.Server) Key {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return NewKeyFromPassword(host, port, "tester", srv.Password)
}

func TestGetOrConnectCachesSession(t *testing.T) {
	srv := startTestServer(t, "secret")
	pool := New()
	key := testKey(t, srv)
	auth := AuthMaterial{Password: "secret"}

	s1, err := pool.GetOrConnect(context.Background(), key, auth, 5*time.Second)
	if err != nil {
		t.Fatalf("first connect: %v", err)
	}
	s2, err := pool.GetOrConnect(context.Background(), key, auth, 5*time.Second)
	if err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if s1 != s2 {
		t.Errorf("expected cached session to be reused")
	}
}

func TestGetOrConnectBadPassword(t *testing.T) {
	srv := startTestServer(t, "secret")
	pool := New()
	key := testKey(t, srv)

	_, err := pool.GetOrConnect(context.Background(), key, AuthMaterial{Password: "wrong"}, 5*time.Second)
	if err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestEvictRemovesSession(t *testing.T) {
	srv := startTestServer(t, "secret")
	pool := New()
	key := testKey(t, srv)
	auth := AuthMaterial{Password: "secret"}

	s1, err := pool.GetOrConnect(context.Background(), key, auth, 5*time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	pool.Evict(key)

	s2, err := pool.GetOrConnect(context.Background(), key, auth, 5*time.Second)
	if err != nil {
		t.Fatalf("reconnect after evict: %v", err)
	}
	if s1 == s2 {
		t.Errorf("expected a fresh session after eviction")
	}
}

func TestFlushAllReturnsCount(t *testing.T) {
	srv1 := startTestServer(t, "secret")
	srv2 := startTestServer(t, "secret")
	pool := New()

	if _, err := pool.GetOrConnect(context.Background(), testKey(t, srv1), AuthMaterial{Password: "secret"}, 5*time.Second); err != nil {
		t.Fatalf("connect 1: %v", err)
	}
	if _, err := pool.GetOrConnect(context.Background(), testKey(t, srv2), AuthMaterial{Password: "secret"}, 5*time.Second); err != nil {
		t.Fatalf("connect 2: %v", err)
	}

	n := pool.FlushAll()
	if n != 2 {
		t.Errorf("expected 2 sessions flushed, got %d", n)
	}
	if n2 := pool.FlushAll(); n2 != 0 {
		t.Errorf("expected empty pool after flush, got %d", n2)
	}
}

func TestGetOrConnectConcurrentSameKeyEventuallyConsistent(t *testing.T) {
	srv := startTestServer(t, "secret")
	pool := New()
	key := testKey(t, srv)
	auth := AuthMaterial{Password: "secret"}

	const n = 10
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := pool.GetOrConnect(context.Background(), key, auth, 5*time.Second)
			done <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent connect failed: %v", err)
		}
	}
	if len(pool.sessions) != 1 {
		t.Errorf("expected exactly one cached session for the key, got %d", len(pool.sessions))
	}
}
