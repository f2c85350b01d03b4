package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rapid8/rescuelink/session"
)

func TestSetAndClearNotify(t *testing.T) {
	store := session.NewStore(&session.MemoryStorage{})

	var notified []session.Session
	unsub := store.Subscribe(func(s session.Session) {
		notified = append(notified, s)
	})
	defer unsub()

	signedIn := session.Session{
		UserID: "u1", Email: "a@b.com", Name: "A", Role: "hospital", Token: "tok",
	}
	if err := store.Set(signedIn); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if store.Current() != signedIn {
		t.Errorf("Current = %+v", store.Current())
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if len(notified) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notified))
	}
	if notified[0] != signedIn {
		t.Errorf("first notification = %+v", notified[0])
	}
	if !notified[1].Empty() {
		t.Errorf("logout notification should be empty, got %+v", notified[1])
	}
}

func TestClearWipesAllPersistedFields(t *testing.T) {
	storage := &session.MemoryStorage{}
	store := session.NewStore(storage)

	_ = store.Set(session.Session{UserID: "u1", Email: "a@b.com", Name: "A", Role: "user", Token: "tok"})
	_ = store.Clear()

	held, err := storage.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if held.UserID != "" || held.Email != "" || held.Name != "" || held.Role != "" || held.Token != "" {
		t.Errorf("storage not fully cleared: %+v", held)
	}
}

func TestRestoreFromStorage(t *testing.T) {
	storage := &session.MemoryStorage{}
	_ = storage.Save(session.Session{UserID: "u1", Token: "tok", Role: "ambulance"})

	store := session.NewStore(storage)
	if got := store.Current(); got.UserID != "u1" || got.Role != "ambulance" {
		t.Errorf("restored session = %+v", got)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	store := session.NewStore(nil)
	calls := 0
	unsub := store.Subscribe(func(session.Session) { calls++ })

	_ = store.Set(session.Session{UserID: "u1"})
	unsub()
	_ = store.Clear()

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "u1", "role": role}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := session.ParseClaims(signToken(t, "hospital", exp))
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "hospital" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Expired() {
		t.Error("future expiry reported as expired")
	}

	past, err := session.ParseClaims(signToken(t, "user", time.Now().Add(-time.Hour)))
	if err != nil {
		t.Fatalf("ParseClaims past: %v", err)
	}
	if !past.Expired() {
		t.Error("past expiry not reported")
	}

	if _, err := session.ParseClaims("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}
