package app

import (
	"testing"
	"time"

	"askwell/pkg/store"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore("test-secret-test-secret", time.Hour, store.NewMemoryTokenRevoker(), store.JWTOptions{})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	app, err := New(Config{Store: st, Sessions: sessions})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app, st
}

const testPassword = "Sup3r$ecret!!"

func registerUser(t *testing.T, a *App, username string) string {
	t.Helper()
	user, _, err := a.Register(UserInput{Username: username, Password: testPassword})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user.ID
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing store")
	}
	if _, err := New(Config{Store: store.NewMemoryStore()}); err == nil {
		t.Fatal("expected error for missing session store")
	}
}
