package uniqcheck

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// Field error messages shown next to the registration inputs.
const (
	MsgIDNumberExists = "ID number already exists"
	MsgFullNameExists = "A student with the same name already exists"
)

// Lookup answers duplicate-record questions. portal.API satisfies it.
type Lookup interface {
	CheckIDNumber(ctx context.Context, idNumber string) (bool, error)
	CheckName(ctx context.Context, name domain.NameParts) (bool, error)
}

// MinLength returns a gate accepting ID numbers of at least n characters.
func MinLength(n int) func(string) bool {
	return func(id string) bool {
		return utf8.RuneCountInString(domain.NormalizeIDNumber(id)) >= n
	}
}

// NameComplete is the gate for full-name checks.
func NameComplete(name domain.NameParts) bool {
	return name.Complete()
}

// FormConfig tunes a RegistrationForm.
type FormConfig struct {
	Config
	MinIDLength int
}

// FieldEvent is a change to one field's error message.
type FieldEvent struct {
	Field   domain.FieldKind
	State   State
	Message string // empty when the field has no error
}

// RegistrationForm runs the ID number and full name checks side by side.
type RegistrationForm struct {
	id   *Checker[string]
	name *Checker[domain.NameParts]

	mu       sync.Mutex
	current  domain.NameParts
	listener func(FieldEvent)
}

// NewRegistrationForm wires two independent checkers to lookup.
func NewRegistrationForm(lookup Lookup, cfg FormConfig) *RegistrationForm {
	if cfg.MinIDLength <= 0 {
		cfg.MinIDLength = domain.DefaultMinIDLength
	}

	f := &RegistrationForm{}
	f.id = New(domain.FieldIDNumber, MinLength(cfg.MinIDLength),
		func(ctx context.Context, id string) (bool, error) {
			return lookup.CheckIDNumber(ctx, domain.NormalizeIDNumber(id))
		}, cfg.Config)
	f.name = New(domain.FieldFullName, NameComplete,
		func(ctx context.Context, name domain.NameParts) (bool, error) {
			return lookup.CheckName(ctx, name.Normalize())
		}, cfg.Config)

	f.id.OnChange(func(v View[string]) {
		f.emit(FieldEvent{Field: domain.FieldIDNumber, State: v.State, Message: fieldMessage(v.State, v.Result)})
	})
	f.name.OnChange(func(v View[domain.NameParts]) {
		f.emit(FieldEvent{Field: domain.FieldFullName, State: v.State, Message: fieldMessage(v.State, v.Result)})
	})
	return f
}

// OnFieldChange registers fn for field state changes. fn may be called
// from timer goroutines.
func (f *RegistrationForm) OnFieldChange(fn func(FieldEvent)) {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
}

func (f *RegistrationForm) emit(ev FieldEvent) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// SetIDNumber updates the ID number input.
func (f *RegistrationForm) SetIDNumber(id string) error {
	return f.id.Update(id)
}

// SetFirstName updates the first name input.
func (f *RegistrationForm) SetFirstName(v string) error {
	return f.updateName(func(n *domain.NameParts) { n.First = v })
}

// SetMiddleName updates the middle name input.
func (f *RegistrationForm) SetMiddleName(v string) error {
	return f.updateName(func(n *domain.NameParts) { n.Middle = v })
}

// SetLastName updates the last name input.
func (f *RegistrationForm) SetLastName(v string) error {
	return f.updateName(func(n *domain.NameParts) { n.Last = v })
}

func (f *RegistrationForm) updateName(set func(*domain.NameParts)) error {
	f.mu.Lock()
	set(&f.current)
	name := f.current
	f.mu.Unlock()
	return f.name.Update(name)
}

// IDNumber returns the ID number checker's state.
func (f *RegistrationForm) IDNumber() View[string] {
	return f.id.Current()
}

// FullName returns the full name checker's state.
func (f *RegistrationForm) FullName() View[domain.NameParts] {
	return f.name.Current()
}

// Errors returns the current field error messages, keyed by field.
func (f *RegistrationForm) Errors() map[domain.FieldKind]string {
	errs := make(map[domain.FieldKind]string, 2)
	if v := f.id.Current(); v.State == StateResolved && v.Result.Exists {
		errs[domain.FieldIDNumber] = MsgIDNumberExists
	}
	if v := f.name.Current(); v.State == StateResolved && v.Result.Exists {
		errs[domain.FieldFullName] = MsgFullNameExists
	}
	return errs
}

// Blocked reports whether a verified duplicate prevents submission.
// Unverified results never block.
func (f *RegistrationForm) Blocked() bool {
	return len(f.Errors()) > 0
}

// Close stops both checkers.
func (f *RegistrationForm) Close() error {
	f.id.Close()
	return f.name.Close()
}

func fieldMessage(state State, r domain.CheckResult) string {
	if state != StateResolved || !r.Exists {
		return ""
	}
	switch r.Kind {
	case domain.FieldIDNumber:
		return MsgIDNumberExists
	case domain.FieldFullName:
		return MsgFullNameExists
	default:
		return ""
	}
}
