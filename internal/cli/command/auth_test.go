package command

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/regdesk-go/internal/core/domain"
)

func TestLogin(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)

	res := h.run("", "login", "--id-number", testIDNumber, "--password", testPassword)
	if res.err != nil {
		t.Fatalf("login failed: %v", res.err)
	}
	if res.stdout != "Logged in as 2024000001 (registrar)\n" {
		t.Errorf("stdout = %q", res.stdout)
	}
	if tokens := b.tokensFor("/auth/login"); len(tokens) != 1 || tokens[0] != "" {
		t.Errorf("login must not carry a session token, got %q", tokens)
	}
}

func TestLogin_JSONOutputMasksToken(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)

	res := h.run("", "--output", "json", "login", "--id-number", testIDNumber, "--password", testPassword)
	if res.err != nil {
		t.Fatalf("login failed: %v", res.err)
	}
	if strings.Contains(res.stdout, tokenOne) {
		t.Errorf("token printed in clear:\n%s", res.stdout)
	}

	var got domain.Session
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, res.stdout)
	}
	if got.Token != "ses...one" || got.Subject.Role != "registrar" || got.Subject.ID != "7" {
		t.Errorf("session = %+v", got)
	}
}

func TestLogin_PasswordStdin(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)

	res := h.run(testPassword+"\n", "login", "-u", testIDNumber, "--password-stdin")
	if res.err != nil {
		t.Fatalf("login failed: %v", res.err)
	}
}

func TestLogin_Failures(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)

	tests := []struct {
		name    string
		args    []string
		wantErr string
		is      error
	}{
		{"bad password", []string{"login", "-u", testIDNumber, "-p", "wrong"}, "login failed: invalid credentials", nil},
		{"no password", []string{"login", "-u", testIDNumber}, "", domain.ErrInvalidArgument},
		{"no id", []string{"login", "-p", testPassword}, "id-number", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REGDESK_PASSWORD", "")
			res := h.run("", tt.args...)
			if res.err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != "" && !strings.Contains(res.err.Error(), tt.wantErr) {
				t.Errorf("err = %q, want %q", res.err, tt.wantErr)
			}
			if tt.is != nil && !errors.Is(res.err, tt.is) {
				t.Errorf("err = %v, want %v", res.err, tt.is)
			}
		})
	}

	if res := h.run("", "session", "show"); res.err == nil || res.err.Error() != "not logged in" {
		t.Errorf("failed login should not store a session, got %v", res.err)
	}
}

func TestLogout(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)
	h.login()

	res := h.run("", "logout")
	if res.err != nil {
		t.Fatalf("logout failed: %v", res.err)
	}
	if res.stdout != "Logged out\n" {
		t.Errorf("stdout = %q", res.stdout)
	}
	if tokens := b.tokensFor("/auth/logout"); len(tokens) != 1 || tokens[0] != tokenOne {
		t.Errorf("logout tokens = %q", tokens)
	}

	// A second logout has no token to send.
	if res := h.run("", "logout"); res.err != nil {
		t.Fatalf("second logout failed: %v", res.err)
	}
	if b.hitCount("/auth/logout") != 1 {
		t.Errorf("logout hits = %d, want 1", b.hitCount("/auth/logout"))
	}
}

func TestLogout_BackendDown(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)
	h.login()
	b.Close()

	if res := h.run("", "logout"); res.err != nil {
		t.Fatalf("logout should clear the session even when the backend is down: %v", res.err)
	}
	if res := h.run("", "session", "show"); res.err == nil || res.err.Error() != "not logged in" {
		t.Errorf("session show err = %v, want not logged in", res.err)
	}
}

func TestWhoami(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)

	if res := h.run("", "whoami"); !errors.Is(res.err, ErrSessionExpired) {
		t.Errorf("whoami without login err = %v, want ErrSessionExpired", res.err)
	}

	h.login()
	res := h.run("", "-o", "yaml", "whoami")
	if res.err != nil {
		t.Fatalf("whoami failed: %v", res.err)
	}
	for _, want := range []string{"role: registrar", "id_number: \"2024000001\""} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if b.hitCount("/auth/session/validate") != 1 {
		t.Errorf("validate hits = %d, want 1", b.hitCount("/auth/session/validate"))
	}
}
