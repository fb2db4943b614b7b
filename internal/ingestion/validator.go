package ingestion

import (
	"errors"
	"fmt"
)

// ErrDuplicateIdentifier indicates a dimension record reuses an identifier that
// an earlier record of the same kind already claimed. The first record wins.
var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// Validator enforces identifier uniqueness per dimension kind during a build.
// It is not safe for concurrent use; one build owns one Validator.
type Validator struct {
	seen map[EntityKind]map[string]struct{}
}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{seen: make(map[EntityKind]map[string]struct{})}
}

// Admit registers id for kind. It returns ErrMissingIdentifier for an empty id
// and ErrDuplicateIdentifier when the id was admitted before.
func (v *Validator) Admit(kind EntityKind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty %s id", ErrMissingIdentifier, kind)
	}

	ids, ok := v.seen[kind]
	if !ok {
		ids = make(map[string]struct{})
		v.seen[kind] = ids
	}

	if _, dup := ids[id]; dup {
		return fmt.Errorf("%w: %s %q", ErrDuplicateIdentifier, kind, id)
	}

	ids[id] = struct{}{}

	return nil
}

// Count returns the number of admitted identifiers of kind.
func (v *Validator) Count(kind EntityKind) int {
	return len(v.seen[kind])
}
