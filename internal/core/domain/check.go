package domain

import "strings"

// FieldKind identifies which registration field a duplicate check is for.
type FieldKind string

const (
	FieldIDNumber FieldKind = "id_number"
	FieldFullName FieldKind = "full_name"
)

// DefaultMinIDLength is the length of a complete school ID number.
const DefaultMinIDLength = 10

// String implements fmt.Stringer.
func (k FieldKind) String() string {
	return string(k)
}

// NameParts is the snapshot used by the full-name duplicate check.
type NameParts struct {
	First  string `json:"first_name"`
	Middle string `json:"middle_name"`
	Last   string `json:"last_name"`
}

// Normalize trims surrounding whitespace from every part.
func (n NameParts) Normalize() NameParts {
	return NameParts{
		First:  strings.TrimSpace(n.First),
		Middle: strings.TrimSpace(n.Middle),
		Last:   strings.TrimSpace(n.Last),
	}
}

// Complete reports whether both first and last names are present.
func (n NameParts) Complete() bool {
	n = n.Normalize()
	return n.First != "" && n.Last != ""
}

// String returns "First Middle Last" without empty parts.
func (n NameParts) String() string {
	n = n.Normalize()
	parts := make([]string, 0, 3)
	for _, p := range []string{n.First, n.Middle, n.Last} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// NormalizeIDNumber trims whitespace from an ID number.
func NormalizeIDNumber(id string) string {
	return strings.TrimSpace(id)
}

// CheckResult is the outcome of one duplicate check.
//
// Verified is false when the query failed; Exists is then always false so a
// failed lookup never blocks the user.
type CheckResult struct {
	Kind     FieldKind `json:"kind"`
	Exists   bool      `json:"exists"`
	Verified bool      `json:"verified"`
}

// Unverified returns the fail-open result for kind.
func Unverified(kind FieldKind) CheckResult {
	return CheckResult{Kind: kind}
}
