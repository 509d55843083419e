package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/yndnr/regdesk-go/internal/core/domain"
)

func TestCheckID(t *testing.T) {
	b := newBackend(t)
	b.set(func(b *backend) { b.existingIDs["2024000123"] = true })
	h := newHarness(t, b)

	tests := []struct {
		id   string
		want string
	}{
		{"2024000123", "ID number already exists\n"},
		{"2024000999", "2024000999 is available\n"},
		{"  2024000123  ", "ID number already exists\n"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := h.run("", "check", "id", tt.id)
			if res.err != nil {
				t.Fatalf("check failed: %v", res.err)
			}
			if res.stdout != tt.want {
				t.Errorf("stdout = %q, want %q", res.stdout, tt.want)
			}
		})
	}
}

func TestCheckID_TooShort(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)

	res := h.run("", "check", "id", "202400012")
	if !errors.Is(res.err, domain.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", res.err)
	}
	if b.hitCount("/students/exists") != 0 {
		t.Error("short ID numbers must not be queried")
	}
}

func TestCheckID_BackendError(t *testing.T) {
	b := newBackend(t)
	b.set(func(b *backend) { b.failExists = true })
	h := newHarness(t, b)

	if res := h.run("", "check", "id", "2024000123"); res.err == nil {
		t.Error("one-shot checks report backend failures")
	}
}

func TestCheckName(t *testing.T) {
	b := newBackend(t)
	b.set(func(b *backend) { b.names["Ana|Cruz"] = true })
	h := newHarness(t, b)

	res := h.run("", "-o", "json", "check", "name", "--first", " Ana ", "--middle", "Q", "--last", "Cruz")
	if res.err != nil {
		t.Fatalf("check failed: %v", res.err)
	}

	var got checkView
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, res.stdout)
	}
	want := checkView{
		Field:   domain.FieldFullName,
		Value:   "Ana Q Cruz",
		Exists:  true,
		Message: "A student with the same name already exists",
	}
	if got != want {
		t.Errorf("check = %+v, want %+v", got, want)
	}
}

func TestCheckName_Incomplete(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b)

	res := h.run("", "check", "name", "--first", "Ana", "--last", "   ")
	if !errors.Is(res.err, domain.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", res.err)
	}
	if b.hitCount("/students/exists") != 0 {
		t.Error("incomplete names must not be queried")
	}
}
