package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/config"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed/sqlitefeed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/lock"
	"github.com/HornetGeek/petow-frontend-sub000/internal/profile"
	"github.com/HornetGeek/petow-frontend-sub000/internal/room"
)

// fakeREST stands in for the marketplace backend.
type fakeREST struct {
	mu            sync.Mutex
	auth          []string
	notifications []map[string]string
	archived      []string
}

func (f *fakeREST) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.auth = append(f.auth, req.Header.Get("Authorization"))
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/chat/rooms/by-feed/{feed}/", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "feed") != "room_42" {
			http.NotFound(w, req)
			return
		}
		_ = json.NewEncoder(w).Encode(backend.Room{ID: 7, FeedID: "room_42", Active: true})
	})
	r.Get("/api/chat/rooms/{id}/context/", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(backend.RoomContext{
			RoomID:       7,
			Participants: []backend.Participant{{ID: 1, Name: "Sara"}, {ID: 2, Name: "Omar"}},
			Pet:          backend.PetSummary{ID: 3, Name: "Luna"},
		})
	})
	r.Post("/api/notifications/chat-message/", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		f.notifications = append(f.notifications, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	r.Post("/api/chat/rooms/{id}/archive/", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.archived = append(f.archived, chi.URLParam(req, "id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestDaemonLifecycle(t *testing.T) {
	// Use a short path to avoid macOS 104-char Unix socket limit.
	home, err := os.MkdirTemp("/tmp", "peto-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(home) }()
	t.Setenv("HOME", home)

	rest := &fakeREST{}
	srv := httptest.NewServer(rest.router())
	defer srv.Close()

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.API.Token = "test-token"
	cfg.User = config.UserConfig{ID: 1, Name: "Sara"}

	app := fx.New(
		Module(Params{Profile: "test", FeedID: "room_42", Config: cfg}),
		fx.NopLogger,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	// A second daemon on the same profile must be refused.
	if _, err := lock.Acquire(profile.Dir("test"), "test"); err == nil {
		t.Error("expected lock to be held")
	}

	conn, err := api.Dial(profile.SocketPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	client := api.NewClient(conn)

	// The room given at start is opened in the background.
	var st *api.StatusInfo
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err = client.Status(ctx)
		if err != nil {
			t.Fatalf("Status error = %v", err)
		}
		if st.State == "STREAMING" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want STREAMING", st.State)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if st.Profile != "test" || st.FeedID != "room_42" || st.RoomID != 7 {
		t.Errorf("status = %+v", st)
	}

	// The feed did not exist, so it was created with a system message.
	list, err := client.Messages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Messages) != 1 || list.Messages[0].SenderID != 0 || list.Messages[0].Text != room.ChatCreatedText {
		t.Fatalf("messages = %+v", list.Messages)
	}

	reply, err := client.Send(ctx, api.SendRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Send error = %v", err)
	}
	if !reply.Notified || !reply.MetaUpdated {
		t.Errorf("reply = %+v", reply)
	}

	rest.mu.Lock()
	if len(rest.notifications) != 1 || rest.notifications[0]["chat_id"] != "room_42" || rest.notifications[0]["message"] != "hello" {
		t.Errorf("notifications = %v", rest.notifications)
	}
	for _, a := range rest.auth {
		if a != "Bearer test-token" {
			t.Errorf("Authorization = %q", a)
		}
	}
	rest.mu.Unlock()

	if err := client.Archive(ctx); err != nil {
		t.Fatalf("Archive error = %v", err)
	}
	st, err = client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.State != "ARCHIVED" {
		t.Errorf("state = %s, want ARCHIVED", st.State)
	}
	rest.mu.Lock()
	if len(rest.archived) != 1 || rest.archived[0] != "7" {
		t.Errorf("archived = %v", rest.archived)
	}
	rest.mu.Unlock()
}

func TestHealthz(t *testing.T) {
	store, err := sqlitefeed.Open(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	session := room.NewSession(room.Options{Store: store, Bus: bus.New()})
	srv := httptest.NewServer(NewRouter("test", session, store))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d", resp.StatusCode)
	}
	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" || body.Profile != "test" || body.State != "UNATTACHED" || body.Checks["feed"].Status != "pass" {
		t.Errorf("body = %+v", body)
	}

	metrics, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	_ = metrics.Body.Close()
	if metrics.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", metrics.StatusCode)
	}
}

func TestDaemonRefusesMissingUserID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := config.Default()
	app := fx.New(
		Module(Params{Profile: "test", Config: cfg}),
		fx.NopLogger,
	)
	if err := app.Err(); !errors.Is(err, config.ErrMissingUserID) {
		t.Fatalf("fx.New error = %v, want ErrMissingUserID", err)
	}
}

func TestHTTPServerDisabledWithoutAddr(t *testing.T) {
	s := NewHTTPServer("", http.NotFoundHandler(), nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Stop(context.Background())
}
