package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/marketkit/marketkit/internal/api"
	"github.com/marketkit/marketkit/internal/domain/session"
	"github.com/marketkit/marketkit/internal/metrics"
	"github.com/marketkit/marketkit/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingStore errors every operation, for exercising the swallow-and-log
// paths.
type failingStore struct{}

var errStoreBroken = errors.New("disk full")

func (failingStore) Get(context.Context, string) ([]byte, error)       { return nil, errStoreBroken }
func (failingStore) Set(context.Context, string, []byte) error         { return errStoreBroken }
func (failingStore) Remove(context.Context, string) error              { return errStoreBroken }
func (failingStore) MultiSet(context.Context, map[string][]byte) error { return errStoreBroken }
func (failingStore) MultiRemove(context.Context, []string) error       { return errStoreBroken }
func (failingStore) Clear(context.Context) error                       { return errStoreBroken }

func authBackend(t *testing.T, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login", "/auth/signup":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(api.AuthResponse{Token: token, Name: "Ana"})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func TestSignInPersistsSession(t *testing.T) {
	server := authBackend(t, "tok-1")
	defer server.Close()

	store := storage.NewMemoryStore()
	client := api.NewClient(api.WithBaseURL(server.URL))
	svc := NewSessionService(store, client, metrics.New(), testLogger())
	ctx := context.Background()

	user, err := svc.SignIn(ctx, session.Credentials{Email: "ana@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "Ana" || user.Email != "ana@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if svc.Status() != session.StatusAuthenticated {
		t.Errorf("expected authenticated, got %s", svc.Status())
	}
	if svc.Token() != "tok-1" {
		t.Errorf("expected tok-1, got %q", svc.Token())
	}

	// Both keys persisted.
	if _, err := store.Get(ctx, storage.KeyAuthToken); err != nil {
		t.Errorf("token not persisted: %v", err)
	}
	raw, err := store.Get(ctx, storage.KeyAuthUser)
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	var stored session.User
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("stored user not JSON: %v", err)
	}
	if stored.Email != "ana@example.com" {
		t.Errorf("unexpected stored user: %+v", stored)
	}
}

func TestSignInFailureResetsToIdle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	store := storage.NewMemoryStore()
	client := api.NewClient(api.WithBaseURL(server.URL))
	svc := NewSessionService(store, client, metrics.New(), testLogger())
	ctx := context.Background()

	_, err := svc.SignIn(ctx, session.Credentials{Email: "ana@example.com", Password: "wrong"})
	if !errors.Is(err, api.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if svc.Status() != session.StatusIdle {
		t.Errorf("expected idle after failure, got %s", svc.Status())
	}
	if svc.Token() != "" {
		t.Errorf("expected empty token, got %q", svc.Token())
	}
	if _, err := store.Get(ctx, storage.KeyAuthToken); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Error("nothing should be persisted after a failed sign-in")
	}
}

func TestSignInValidationFailsWithoutNetworkCall(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	svc := NewSessionService(storage.NewMemoryStore(), client, metrics.New(), testLogger())

	_, err := svc.SignIn(context.Background(), session.Credentials{Email: "not-an-email", Password: "x"})
	if !errors.Is(err, api.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed for invalid credentials, got %v", err)
	}
	if hits.Load() != 0 {
		t.Error("validation failure must not reach the backend")
	}
}

func TestSignUpFallsBackToSuppliedName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.AuthResponse{Token: "tok-2"}) // no name
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	svc := NewSessionService(storage.NewMemoryStore(), client, metrics.New(), testLogger())

	user, err := svc.SignUp(context.Background(), session.Registration{
		Name:     "Ana Torres",
		Email:    "ana@example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "Ana Torres" {
		t.Errorf("expected supplied name fallback, got %q", user.Name)
	}
}

func TestLoadRestoresPersistedSession(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	tokenRaw, _ := json.Marshal("tok-1")
	userRaw, _ := json.Marshal(session.User{Name: "Ana", Email: "ana@example.com"})
	if err := store.MultiSet(ctx, map[string][]byte{
		storage.KeyAuthToken: tokenRaw,
		storage.KeyAuthUser:  userRaw,
	}); err != nil {
		t.Fatal(err)
	}

	svc := NewSessionService(store, api.NewClient(), metrics.New(), testLogger())

	user, ok := svc.Load(ctx)
	if !ok {
		t.Fatal("expected session to restore")
	}
	if user.Email != "ana@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if svc.Status() != session.StatusAuthenticated || svc.Token() != "tok-1" {
		t.Errorf("unexpected state: %s %q", svc.Status(), svc.Token())
	}
}

func TestLoadNoSession(t *testing.T) {
	svc := NewSessionService(storage.NewMemoryStore(), api.NewClient(), metrics.New(), testLogger())

	if _, ok := svc.Load(context.Background()); ok {
		t.Error("empty store must not restore a session")
	}
	if svc.Status() != session.StatusIdle {
		t.Errorf("expected idle, got %s", svc.Status())
	}
}

func TestLoadCorruptUserIsNoSession(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	tokenRaw, _ := json.Marshal("tok-1")
	_ = store.MultiSet(ctx, map[string][]byte{
		storage.KeyAuthToken: tokenRaw,
		storage.KeyAuthUser:  []byte(`42`), // valid JSON, not a user object
	})
	svc := NewSessionService(store, api.NewClient(), metrics.New(), testLogger())

	if _, ok := svc.Load(ctx); ok {
		t.Error("corrupt user record must not restore a session")
	}
}

func TestSignOutClearsEvenWhenStorageFails(t *testing.T) {
	server := authBackend(t, "tok-1")
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	svc := NewSessionService(failingStore{}, client, metrics.New(), testLogger())
	ctx := context.Background()

	// Sign-in succeeds in memory even though persistence fails.
	if _, err := svc.SignIn(ctx, session.Credentials{Email: "ana@example.com", Password: "secret"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.SetRedirectTarget(&session.RedirectTarget{Target: "checkout"})

	svc.SignOut(ctx)

	if svc.Status() != session.StatusIdle {
		t.Errorf("expected idle after sign-out, got %s", svc.Status())
	}
	if svc.Token() != "" || svc.User() != nil {
		t.Error("in-memory state must reset even when the durable clear fails")
	}
	if svc.ConsumeRedirectTarget() != nil {
		t.Error("sign-out must drop the pending redirect")
	}
}

func TestRedirectTargetConsumeOnce(t *testing.T) {
	svc := NewSessionService(storage.NewMemoryStore(), api.NewClient(), metrics.New(), testLogger())

	if svc.ConsumeRedirectTarget() != nil {
		t.Error("expected empty slot initially")
	}

	svc.SetRedirectTarget(&session.RedirectTarget{Target: "cart"})
	svc.SetRedirectTarget(&session.RedirectTarget{Target: "checkout", Params: map[string]string{"step": "2"}})

	got := svc.ConsumeRedirectTarget()
	if got == nil || got.Target != "checkout" {
		t.Fatalf("expected the latest target, got %+v", got)
	}
	if got.Params["step"] != "2" {
		t.Errorf("params lost: %+v", got.Params)
	}
	if svc.ConsumeRedirectTarget() != nil {
		t.Error("a consumed target must not be returned twice")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	svc := NewSessionService(storage.NewMemoryStore(), client, metrics.New(), testLogger())
	ctx := context.Background()

	if err := svc.RequestPasswordReset(ctx, "ana@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := svc.VerifyOTP(ctx, "ana@example.com", "123456"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ResetPassword(ctx, "ana@example.com", "123456", "newsecret"); err != nil {
		t.Fatal(err)
	}

	want := []string{"/auth/forgot-password", "/auth/verify-otp", "/auth/reset-password"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), paths)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("call %d: expected %s, got %s", i, p, paths[i])
		}
	}
}
