// Package roles resolves role references from boundary input. Callers may
// reference a role either by numeric id or by name; both forms resolve once
// into the canonical role id.
package roles

import (
	"context"
	"strconv"
	"strings"

	dErrors "polledger/pkg/domain-errors"
)

// Role is a canonical role record.
type Role struct {
	ID   int64
	Name string
}

// RoleStore looks up roles by either key.
type RoleStore interface {
	ByID(ctx context.Context, id int64) (Role, error)
	ByName(ctx context.Context, name string) (Role, error)
}

// refKind tags which variant a Ref carries.
type refKind int

const (
	refByID refKind = iota + 1
	refByName
)

// Ref is a tagged role reference: exactly one of the id or name forms.
// The zero Ref is invalid.
type Ref struct {
	kind refKind
	id   int64
	name string
}

// ByID references a role by its numeric id.
func ByID(id int64) Ref {
	return Ref{kind: refByID, id: id}
}

// ByName references a role by its unique name.
func ByName(name string) Ref {
	return Ref{kind: refByName, name: name}
}

// Parse builds a Ref from raw boundary input: all-digit input references an
// id, anything else a name.
func Parse(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, dErrors.New(dErrors.CodeValidation, "role reference must not be empty").
			WithMeta("field", "role")
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ByID(id), nil
	}
	return ByName(raw), nil
}

// IsZero reports whether the Ref carries no reference.
func (r Ref) IsZero() bool { return r.kind == 0 }

// String renders the reference for logs.
func (r Ref) String() string {
	switch r.kind {
	case refByID:
		return "role#" + strconv.FormatInt(r.id, 10)
	case refByName:
		return "role:" + r.name
	default:
		return "role:<none>"
	}
}

// Resolve looks the reference up and returns the canonical role.
func (r Ref) Resolve(ctx context.Context, store RoleStore) (Role, error) {
	switch r.kind {
	case refByID:
		return store.ByID(ctx, r.id)
	case refByName:
		return store.ByName(ctx, r.name)
	default:
		return Role{}, dErrors.New(dErrors.CodeValidation, "role reference must not be empty").
			WithMeta("field", "role")
	}
}
