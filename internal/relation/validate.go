package relation

import (
	"fmt"

	"trellis/internal/vault"
)

// Validator decides whether a proposed relationship is structurally
// legal. It reads the graph through the resolver but never mutates it.
type Validator struct {
	res *Resolver
}

// NewValidator creates a validator over the given resolver.
func NewValidator(res *Resolver) *Validator {
	return &Validator{res: res}
}

// Validate checks a proposed relationship of the given type from
// source to target. It returns nil when the link is admissible,
// ErrSelfLink when both endpoints are the same entity, and ErrCycle
// when a parent or child edge would make an entity its own ancestor.
// Blocking and related links carry no cycle constraint; a blocking
// cycle is a legal (if unfortunate) state of the tracker.
func (v *Validator) Validate(relType Type, source, target *vault.Entity) error {
	if source.Path == target.Path {
		return fmt.Errorf("%s: %w", source.Name(), ErrSelfLink)
	}

	switch relType {
	case TypeParent:
		// target becomes source's parent: illegal when source is
		// already an ancestor of target.
		cyclic, err := v.wouldCycle(target, source)
		if err != nil {
			return err
		}
		if cyclic {
			return fmt.Errorf("%s is an ancestor of %s: %w", source.Name(), target.Name(), ErrCycle)
		}
	case TypeChild:
		// target becomes source's child: the mirrored check.
		cyclic, err := v.wouldCycle(source, target)
		if err != nil {
			return err
		}
		if cyclic {
			return fmt.Errorf("%s is an ancestor of %s: %w", target.Name(), source.Name(), ErrCycle)
		}
	}

	return nil
}

// wouldCycle walks up the parent chain starting at candidate and
// reports whether it reaches root. The walk is iterative with an
// explicit visited set keyed by entity path, so it terminates even if
// the stored data already contains a cycle or a maliciously deep
// chain. A dangling or absent parent reference ends the walk.
func (v *Validator) wouldCycle(candidate, root *vault.Entity) (bool, error) {
	visited := make(map[string]bool)

	current := candidate
	for {
		if visited[current.Path] {
			return false, nil
		}
		visited[current.Path] = true

		parentRef := current.Frontmatter.Parent
		if parentRef == "" {
			return false, nil
		}

		parent, err := v.res.Resolve(parentRef)
		if err != nil {
			return false, fmt.Errorf("failed to walk parent chain of %s: %w", candidate.Name(), err)
		}
		if parent == nil {
			// Dangling reference: treated as no parent.
			return false, nil
		}
		if parent.Path == root.Path {
			return true, nil
		}
		current = parent
	}
}
