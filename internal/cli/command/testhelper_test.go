package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/regdesk-go/internal/client/transport"
)

const (
	testIDNumber = "2024000001"
	testPassword = "secret"
	tokenOne     = "session-token-one"
	tokenTwo     = "session-token-two"
)

// backend is a scripted registrar API.
type backend struct {
	*httptest.Server

	mu          sync.Mutex
	validToken  string
	refreshTo   string
	existingIDs map[string]bool
	names       map[string]bool // "first|last"
	failExists  bool
	hits        map[string]int
	tokens      map[string][]string // path -> X-Session-Token values seen
	runIDs      []string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		existingIDs: map[string]bool{},
		names:       map[string]bool{},
		hits:        map[string]int{},
		tokens:      map[string][]string{},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) set(fn func(b *backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *backend) hitCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *backend) tokensFor(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens[path]...)
}

func (b *backend) seenRunIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.runIDs...)
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := r.Header.Get(transport.HeaderSessionToken)
	b.hits[r.URL.Path]++
	b.tokens[r.URL.Path] = append(b.tokens[r.URL.Path], token)
	b.runIDs = append(b.runIDs, r.Header.Get(transport.HeaderRunID))

	switch r.URL.Path {
	case "/auth/login":
		var req struct {
			IDNumber string `json:"id_number"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != testPassword {
			jsonResponse(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		b.validToken = tokenOne
		jsonResponse(w, http.StatusOK, map[string]any{
			"token": tokenOne,
			"user":  map[string]any{"id": 7, "role": "registrar", "id_number": req.IDNumber},
		})

	case "/auth/logout":
		b.validToken = ""
		w.WriteHeader(http.StatusNoContent)

	case "/auth/session/validate":
		if token == "" || token != b.validToken {
			jsonResponse(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
			return
		}
		if b.refreshTo != "" {
			b.validToken, b.refreshTo = b.refreshTo, ""
			jsonResponse(w, http.StatusOK, map[string]string{"status": "refreshed", "token": b.validToken})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "valid"})

	case "/auth/me":
		if token != b.validToken {
			jsonResponse(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": "7", "role": "registrar", "id_number": testIDNumber},
		})

	case "/students/exists":
		if b.failExists {
			http.Error(w, "database unavailable", http.StatusInternalServerError)
			return
		}
		q := r.URL.Query()
		var exists bool
		if id := q.Get("id_number"); id != "" {
			exists = b.existingIDs[id]
		} else {
			exists = b.names[q.Get("first_name")+"|"+q.Get("last_name")]
		}
		jsonResponse(w, http.StatusOK, map[string]bool{"exists": exists})

	case "/courses":
		var body any
		json.NewDecoder(r.Body).Decode(&body)
		status := http.StatusOK
		if r.Method == http.MethodPost {
			status = http.StatusCreated
		}
		jsonResponse(w, status, map[string]any{
			"method": r.Method,
			"token":  token,
			"body":   body,
			"query":  r.URL.RawQuery,
		})

	case "/courses/empty":
		w.WriteHeader(http.StatusNoContent)

	default:
		jsonResponse(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// cliHarness runs the App against one backend with a persistent session
// directory shared by every run.
type cliHarness struct {
	t          *testing.T
	backend    *backend
	configPath string
}

func newHarness(t *testing.T, b *backend) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`server: %s
session:
  backend: badger
  dir: %s
check:
  window: 10ms
log:
  level: error
`, b.URL, filepath.Join(dir, "session"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}
	return &cliHarness{t: t, backend: b, configPath: path}
}

type runResult struct {
	stdout string
	stderr string
	err    error
}

// run executes regdesk-cli with args after --config.
func (h *cliHarness) run(stdin string, args ...string) runResult {
	h.t.Helper()
	var out, errOut bytes.Buffer

	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)

	full := append([]string{"regdesk-cli", "--config", h.configPath}, args...)
	err := app.Run(full)
	return runResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// login logs in and fails the test on error.
func (h *cliHarness) login() {
	h.t.Helper()
	res := h.run("", "login", "--id-number", testIDNumber, "--password", testPassword)
	if res.err != nil {
		h.t.Fatalf("login failed: %v (stderr: %s)", res.err, res.stderr)
	}
}
