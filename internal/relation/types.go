// Package relation implements the relationship graph engine for the
// tracker: resolving wiki-style references between entities, validating
// proposed links (no self-links, no cycles in the parent hierarchy),
// applying links as coordinated pairs of inverse-field writes, and
// answering read-side queries over the resulting graph.
package relation

import (
	"errors"

	"github.com/charmbracelet/log"

	"trellis/internal/vault"
)

// Type identifies a kind of relationship between two entities.
type Type string

const (
	TypeParent    Type = "parent"
	TypeChild     Type = "child"
	TypeBlocks    Type = "blocks"
	TypeBlockedBy Type = "blocked-by"
	TypeRelated   Type = "related"
)

// Inverse returns the relationship type stored on the other endpoint.
// Related is its own inverse.
func (t Type) Inverse() Type {
	switch t {
	case TypeParent:
		return TypeChild
	case TypeChild:
		return TypeParent
	case TypeBlocks:
		return TypeBlockedBy
	case TypeBlockedBy:
		return TypeBlocks
	}
	return TypeRelated
}

// Field returns the frontmatter field a relationship type is stored in.
func (t Type) Field() string {
	if t == TypeChild {
		return "sub-issues"
	}
	return string(t)
}

// SingleValued reports whether the type holds at most one reference.
func (t Type) SingleValued() bool {
	return t == TypeParent
}

// Valid reports whether t is a known relationship type.
func (t Type) Valid() bool {
	switch t {
	case TypeParent, TypeChild, TypeBlocks, TypeBlockedBy, TypeRelated:
		return true
	}
	return false
}

// Action says whether a change adds or removes a relationship.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Change is the unit of mutation the mutator consumes.
type Change struct {
	Type   Type
	Source *vault.Entity
	Target *vault.Entity
	Action Action
}

// Expected, recoverable outcomes of relationship operations. Callers
// match them with errors.Is and present a message rather than failing.
var (
	// ErrSelfLink means source and target are the same entity.
	ErrSelfLink = errors.New("entity cannot be linked to itself")
	// ErrCycle means a proposed parent/child edge would make an entity
	// its own ancestor.
	ErrCycle = errors.New("link would create a cycle in the parent hierarchy")
	// ErrAlreadyExists means the proposed relationship already holds
	// between the two entities.
	ErrAlreadyExists = errors.New("relationship already exists")
	// ErrPartialWrite means the second half of a paired write failed
	// with the first half's effect left in place. The graph is
	// one-sided until a corrective operation repairs it.
	ErrPartialWrite = errors.New("partial write: inverse field not updated")
)

// EntityStore is the persistence surface the engine consumes. The
// engine never manages storage itself; it layers link semantics over
// whatever store the host provides.
type EntityStore interface {
	// FindByDisplayName resolves a display name to an entity, or
	// (nil, nil) when no entity carries the name.
	FindByDisplayName(name string) (*vault.Entity, error)
	// Save persists an entity's fields.
	Save(entity *vault.Entity) error
}

// Engine bundles the graph components over one entity store.
type Engine struct {
	Resolver  *Resolver
	Validator *Validator
	Mutator   *Mutator
	Queries   *Queries
}

// NewEngine wires resolver, validator, mutator and queries together.
func NewEngine(store EntityStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	resolver := NewResolver(store)
	validator := NewValidator(resolver)
	return &Engine{
		Resolver:  resolver,
		Validator: validator,
		Mutator:   NewMutator(store, resolver, validator, logger),
		Queries:   NewQueries(resolver),
	}
}
