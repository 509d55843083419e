package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/regdesk-go/internal/client/guard"
	"github.com/yndnr/regdesk-go/internal/client/sessionstore"
	"github.com/yndnr/regdesk-go/internal/client/transport"
	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

// backend is a scripted portal backend.
type backend struct {
	mu         sync.Mutex
	validity   string // status returned by the validation endpoint
	refreshTo  string
	hits       map[string]int
	lastTokens map[string]string
	lastQuery  map[string]string
}

func newBackend() *backend {
	return &backend{
		validity:   "valid",
		hits:       map[string]int{},
		lastTokens: map[string]string{},
		lastQuery:  map[string]string{},
	}
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hits[r.URL.Path]++
		b.lastTokens[r.URL.Path] = r.Header.Get(transport.HeaderSessionToken)
		b.lastQuery[r.URL.Path] = r.URL.RawQuery
	}

	mux.HandleFunc(PathLogin, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var req loginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.IDNumber != "2019000001" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"token":"abc","user":{"id":17,"role":"registrar","id_number":"2019000001"}}`))
	})
	mux.HandleFunc(PathLogout, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc(guard.DefaultValidatePath, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		b.mu.Lock()
		status, token := b.validity, b.refreshTo
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status": status, "token": token})
	})
	mux.HandleFunc(PathMe, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Write([]byte(`{"user":{"id":"17","role":"registrar","id_number":2019000001}}`))
	})
	mux.HandleFunc(PathExists, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		q := r.URL.Query()
		exists := q.Get("id_number") == "2019000001" || (q.Get("first_name") == "Ana" && q.Get("last_name") == "Cruz")
		json.NewEncoder(w).Encode(map[string]bool{"exists": exists})
	})
	mux.HandleFunc("/students/99", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"method": r.Method, "has_body": body != nil})
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":99}`))
	})
	return mux
}

func (b *backend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *backend) tokenAt(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTokens[path]
}

func newTestAPI(t *testing.T) (*API, *backend, sessionstore.Store) {
	t.Helper()
	b := newBackend()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	store := sessionstore.NewMemory()
	client := transport.New(srv.URL, store, transport.WithLogger(logger.Discard()))
	g := guard.New(store, guard.NewHTTPValidator(client), guard.WithLogger(logger.Discard()))
	return New(client, store, g, logger.Discard()), b, store
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success seeds the store", func(t *testing.T) {
		api, b, store := newTestAPI(t)
		session, err := api.Login(ctx, " 2019000001 ", "secret")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		want := domain.Subject{ID: "17", Role: "registrar", IDNumber: "2019000001"}
		if session.Token != "abc" || session.Subject != want {
			t.Errorf("session = %+v", session)
		}
		if tok, _ := store.GetToken(ctx); tok != "abc" {
			t.Errorf("stored token = %q", tok)
		}
		if sub, _ := store.GetSubject(ctx); sub != want {
			t.Errorf("stored subject = %+v", sub)
		}
		if b.tokenAt(PathLogin) != "" {
			t.Error("login request carried a session token")
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		api, _, store := newTestAPI(t)
		_, err := api.Login(ctx, "2019000001", "wrong")
		if !errors.Is(err, domain.ErrLoginFailed) {
			t.Fatalf("Login() error = %v, want ErrLoginFailed", err)
		}
		if transport.StatusCode(err) != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", transport.StatusCode(err))
		}
		if has, _ := store.HasToken(ctx); has {
			t.Error("failed login stored a token")
		}
	})

	t.Run("missing input", func(t *testing.T) {
		api, b, _ := newTestAPI(t)
		if _, err := api.Login(ctx, "", "secret"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("Login() error = %v, want ErrInvalidArgument", err)
		}
		if b.count(PathLogin) != 0 {
			t.Error("login sent with empty id number")
		}
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	api, b, store := newTestAPI(t)
	store.SetToken(ctx, "abc")

	if err := api.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if b.tokenAt(PathLogout) != "abc" {
		t.Errorf("logout token = %q", b.tokenAt(PathLogout))
	}
	if has, _ := store.HasToken(ctx); has {
		t.Error("token still stored after logout")
	}

	// Without a session nothing is sent.
	if err := api.Logout(ctx); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
	if b.count(PathLogout) != 1 {
		t.Errorf("logout calls = %d, want 1", b.count(PathLogout))
	}
}

func TestLogout_BackendDown(t *testing.T) {
	ctx := context.Background()
	store := sessionstore.NewMemory()
	store.SetToken(ctx, "abc")

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client := transport.New(addr, store, transport.WithLogger(logger.Discard()))
	api := New(client, store, nil, logger.Discard())
	if err := api.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if has, _ := store.HasToken(ctx); has {
		t.Error("token kept when backend unreachable")
	}
}

// brokenReadStore fails HasToken but otherwise behaves like Memory.
type brokenReadStore struct {
	sessionstore.Store
}

func (brokenReadStore) HasToken(context.Context) (bool, error) {
	return false, errors.New("store unreadable")
}

func TestLogout_StoreReadError(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	mem := sessionstore.NewMemory()
	mem.SetToken(ctx, "abc")
	store := brokenReadStore{Store: mem}

	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	client := transport.New(srv.URL, store, transport.WithLogger(logger.Discard()))
	api := New(client, store, nil, log)

	if err := api.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if b.count(PathLogout) != 0 {
		t.Errorf("logout calls = %d, want 0", b.count(PathLogout))
	}
	if tok, _ := mem.GetToken(ctx); tok != "" {
		t.Errorf("token = %q, want cleared", tok)
	}
	if !strings.Contains(buf.String(), "store unreadable") {
		t.Errorf("store error not logged:\n%s", buf.String())
	}
}

func TestExistenceChecks(t *testing.T) {
	ctx := context.Background()
	api, b, _ := newTestAPI(t)

	tests := []struct {
		name  string
		check func() (bool, error)
		want  bool
	}{
		{"id taken", func() (bool, error) { return api.CheckIDNumber(ctx, "2019000001") }, true},
		{"id free", func() (bool, error) { return api.CheckIDNumber(ctx, "2019000002") }, false},
		{"name taken", func() (bool, error) {
			return api.CheckName(ctx, domain.NameParts{First: " Ana ", Last: "Cruz"})
		}, true},
		{"name free", func() (bool, error) {
			return api.CheckName(ctx, domain.NameParts{First: "Ben", Middle: "Q", Last: "Cruz"})
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.check()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("exists = %v, want %v", got, tt.want)
			}
		})
	}

	b.mu.Lock()
	q := b.lastQuery[PathExists]
	b.mu.Unlock()
	if q != "first_name=Ben&last_name=Cruz&middle_name=Q" {
		t.Errorf("last query = %q", q)
	}
}

func TestExistenceCheck_MissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":0}`))
	}))
	defer srv.Close()

	client := transport.New(srv.URL, nil, transport.WithLogger(logger.Discard()))
	api := New(client, sessionstore.NewMemory(), nil, logger.Discard())
	if _, err := api.CheckIDNumber(context.Background(), "2019000001"); !errors.Is(err, domain.ErrResponseMalformed) {
		t.Errorf("error = %v, want ErrResponseMalformed", err)
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session", func(t *testing.T) {
		api, b, store := newTestAPI(t)
		store.SetToken(ctx, "abc")

		resp, err := api.Do(ctx, "post", "students", map[string]string{"first_name": "Ana"})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if b.count(guard.DefaultValidatePath) != 1 || b.count("/students") != 1 {
			t.Errorf("hits = %v", b.hits)
		}
		if b.tokenAt("/students") != "abc" {
			t.Errorf("token = %q", b.tokenAt("/students"))
		}
	})

	t.Run("refreshed token is used", func(t *testing.T) {
		api, b, store := newTestAPI(t)
		store.SetToken(ctx, "old")
		b.mu.Lock()
		b.validity, b.refreshTo = "refreshed", "new"
		b.mu.Unlock()

		if _, err := api.Do(ctx, http.MethodPost, "/students", nil); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if b.tokenAt(guard.DefaultValidatePath) != "old" {
			t.Errorf("validated token = %q, want old", b.tokenAt(guard.DefaultValidatePath))
		}
		if b.tokenAt("/students") != "new" {
			t.Errorf("request token = %q, want new", b.tokenAt("/students"))
		}
	})

	t.Run("invalid session sends nothing", func(t *testing.T) {
		api, b, store := newTestAPI(t)
		store.SetToken(ctx, "abc")
		b.mu.Lock()
		b.validity = "invalid"
		b.mu.Unlock()

		_, err := api.Do(ctx, http.MethodPost, "/students", nil)
		if !guard.IsInvalid(err) {
			t.Fatalf("Do() error = %v, want invalid session", err)
		}
		if b.count("/students") != 0 {
			t.Error("mutating request sent with invalid session")
		}
	})

	t.Run("no session", func(t *testing.T) {
		api, b, _ := newTestAPI(t)
		_, err := api.Do(ctx, http.MethodPost, "/students", nil)
		if !errors.Is(err, domain.ErrSessionAbsent) {
			t.Fatalf("Do() error = %v, want ErrSessionAbsent", err)
		}
		if b.count(guard.DefaultValidatePath) != 0 {
			t.Error("validation called without a token")
		}
	})
}

func TestDo_Methods(t *testing.T) {
	ctx := context.Background()
	payload := map[string]string{"last_name": "Cruz"}

	tests := []struct {
		method   string
		body     any
		wantBody bool
	}{
		{"get", nil, false},
		{"put", payload, true},
		{"patch", payload, true},
		{"delete", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			api, _, store := newTestAPI(t)
			store.SetToken(ctx, "abc")

			resp, err := api.Do(ctx, tt.method, "/students/99", tt.body)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			var got struct {
				Method  string `json:"method"`
				HasBody bool   `json:"has_body"`
			}
			if err := resp.Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Method != strings.ToUpper(tt.method) || got.HasBody != tt.wantBody {
				t.Errorf("backend saw %+v", got)
			}
		})
	}
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	api, _, store := newTestAPI(t)
	store.SetToken(ctx, "abc")

	got, err := api.Me(ctx)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	want := domain.Subject{ID: "17", Role: "registrar", IDNumber: "2019000001"}
	if got != want {
		t.Errorf("Me() = %+v, want %+v", got, want)
	}
	if sub, _ := store.GetSubject(ctx); sub != want {
		t.Errorf("stored subject = %+v", sub)
	}

	session, err := api.Session(ctx)
	if err != nil || session.Token != "abc" || session.Subject != want {
		t.Errorf("Session() = %+v, %v", session, err)
	}
}
