package relation

import (
	"fmt"

	"github.com/charmbracelet/log"

	"trellis/internal/vault"
)

// Mutator applies admitted relationship changes as coordinated pairs
// of field updates, keeping every directed relationship mirrored in
// the inverse field on the other endpoint.
//
// The two halves of a paired write are independent store operations,
// not a transaction. If the second half fails the first is left in
// place and the error matches ErrPartialWrite; callers may re-issue
// the failed half as a repair step.
type Mutator struct {
	store  EntityStore
	res    *Resolver
	val    *Validator
	logger *log.Logger
}

// NewMutator creates a mutator over the given store.
func NewMutator(store EntityStore, res *Resolver, val *Validator, logger *log.Logger) *Mutator {
	if logger == nil {
		logger = log.Default()
	}
	return &Mutator{store: store, res: res, val: val, logger: logger}
}

// pairedWrite is one logical mutation expressed as two store writes,
// one per endpoint. Making the pairing explicit documents the rollback
// intent at every call site even though the current store offers no
// multi-key transactions.
type pairedWrite struct {
	first  func() error
	second func() error
}

func (p pairedWrite) apply() error {
	if err := p.first(); err != nil {
		return err
	}
	if err := p.second(); err != nil {
		return fmt.Errorf("%w: %v", ErrPartialWrite, err)
	}
	return nil
}

// Apply dispatches a relationship change to the matching operation.
func (m *Mutator) Apply(change Change) error {
	if !change.Type.Valid() {
		return fmt.Errorf("unknown relationship type %q", change.Type)
	}

	switch change.Action {
	case ActionAdd:
		switch change.Type {
		case TypeParent:
			return m.SetParent(change.Source, change.Target)
		case TypeChild:
			return m.AddChild(change.Source, change.Target)
		case TypeBlockedBy:
			return m.AddBlocker(change.Source, change.Target)
		case TypeBlocks:
			return m.AddBlocker(change.Target, change.Source)
		case TypeRelated:
			return m.AddRelated(change.Source, change.Target)
		}
	case ActionRemove:
		switch change.Type {
		case TypeParent:
			return m.SetParent(change.Source, nil)
		case TypeChild:
			return m.RemoveChild(change.Source, change.Target)
		case TypeBlockedBy:
			return m.RemoveBlocker(change.Source, change.Target)
		case TypeBlocks:
			return m.RemoveBlocker(change.Target, change.Source)
		case TypeRelated:
			return m.RemoveRelated(change.Source, change.Target)
		}
	}
	return fmt.Errorf("unknown action %q", change.Action)
}

// SetParent re-parents an entity. A nil parent clears the field. The
// old parent's sub-issues entry is removed before the new parent's is
// added, so the entity is never listed under two parents at once. On
// a validation rejection no write is performed at all.
func (m *Mutator) SetParent(entity *vault.Entity, parent *vault.Entity) error {
	if parent != nil {
		if err := m.val.Validate(TypeParent, entity, parent); err != nil {
			m.logger.Debug("parent link rejected", "entity", entity.Name(), "parent", parent.Name(), "err", err)
			return err
		}
	}

	current, err := m.res.Resolve(entity.Frontmatter.Parent)
	if err != nil {
		return err
	}

	// Detach from the old parent first.
	if current != nil && (parent == nil || current.Path != parent.Path) {
		children, err := m.removeResolved(current.Refs(TypeChild.Field()), entity)
		if err != nil {
			return err
		}
		current.SetRefs(TypeChild.Field(), children)
		if err := m.store.Save(current); err != nil {
			return fmt.Errorf("failed to detach %s from %s: %w", entity.Name(), current.Name(), err)
		}
	}

	if parent == nil {
		entity.SetRefs(TypeParent.Field(), nil)
		if err := m.store.Save(entity); err != nil {
			return fmt.Errorf("failed to clear parent of %s: %w", entity.Name(), err)
		}
		return nil
	}

	return m.attach(entity, parent)
}

// AddChild makes child a sub-issue of parent: the child's parent field
// is set and the child is added to the parent's sub-issues set. The
// add is idempotent at the set level.
func (m *Mutator) AddChild(parent *vault.Entity, child *vault.Entity) error {
	if err := m.val.Validate(TypeChild, parent, child); err != nil {
		m.logger.Debug("child link rejected", "parent", parent.Name(), "child", child.Name(), "err", err)
		return err
	}
	return m.attach(child, parent)
}

// attach points entity's parent field at parent and ensures entity
// appears in parent's sub-issues. Validation has already happened.
func (m *Mutator) attach(entity *vault.Entity, parent *vault.Entity) error {
	write := pairedWrite{
		first: func() error {
			entity.SetRefs(TypeParent.Field(), []string{Ref(parent)})
			return m.store.Save(entity)
		},
		second: func() error {
			children := parent.Refs(TypeChild.Field())
			present, err := m.containsResolved(children, entity)
			if err != nil {
				return err
			}
			if present {
				return nil
			}
			parent.SetRefs(TypeChild.Field(), append(children, Ref(entity)))
			return m.store.Save(parent)
		},
	}
	return write.apply()
}

// RemoveChild unconditionally clears child's parent field and removes
// child from parent's sub-issues. Removal can never create a cycle, so
// no validation is needed.
func (m *Mutator) RemoveChild(parent *vault.Entity, child *vault.Entity) error {
	write := pairedWrite{
		first: func() error {
			child.SetRefs(TypeParent.Field(), nil)
			return m.store.Save(child)
		},
		second: func() error {
			children, err := m.removeResolved(parent.Refs(TypeChild.Field()), child)
			if err != nil {
				return err
			}
			parent.SetRefs(TypeChild.Field(), children)
			return m.store.Save(parent)
		},
	}
	return write.apply()
}

// AddBlocker records that blocked is blocked by blocker, mirroring the
// link into blocker's blocks field. A duplicate attempt is reported as
// ErrAlreadyExists with no write so callers can surface it distinctly.
func (m *Mutator) AddBlocker(blocked *vault.Entity, blocker *vault.Entity) error {
	return m.addSymmetric(TypeBlockedBy, blocked, blocker)
}

// RemoveBlocker removes the blocked-by entry for blocker from blocked
// and the mirrored blocks entry for blocked from blocker.
func (m *Mutator) RemoveBlocker(blocked *vault.Entity, blocker *vault.Entity) error {
	return m.removeSymmetric(TypeBlockedBy, blocked, blocker)
}

// AddRelated links two entities symmetrically: both sides get the
// counterpart added to their related set.
func (m *Mutator) AddRelated(a *vault.Entity, b *vault.Entity) error {
	return m.addSymmetric(TypeRelated, a, b)
}

// RemoveRelated removes the related link from both sides.
func (m *Mutator) RemoveRelated(a *vault.Entity, b *vault.Entity) error {
	return m.removeSymmetric(TypeRelated, a, b)
}

// addSymmetric appends target to source's field for relType and source
// to target's inverse field, as one paired write.
func (m *Mutator) addSymmetric(relType Type, source, target *vault.Entity) error {
	if err := m.val.Validate(relType, source, target); err != nil {
		m.logger.Debug("link rejected", "type", relType, "source", source.Name(), "target", target.Name(), "err", err)
		return err
	}

	existing, err := m.containsResolved(source.Refs(relType.Field()), target)
	if err != nil {
		return err
	}
	if existing {
		return fmt.Errorf("%s %s %s: %w", source.Name(), relType, target.Name(), ErrAlreadyExists)
	}

	write := pairedWrite{
		first: func() error {
			source.SetRefs(relType.Field(), append(source.Refs(relType.Field()), Ref(target)))
			return m.store.Save(source)
		},
		second: func() error {
			inverse := relType.Inverse().Field()
			present, err := m.containsResolved(target.Refs(inverse), source)
			if err != nil {
				return err
			}
			if present {
				return nil
			}
			target.SetRefs(inverse, append(target.Refs(inverse), Ref(source)))
			return m.store.Save(target)
		},
	}
	return write.apply()
}

// removeSymmetric removes target from source's field for relType and
// source from target's inverse field, as one paired write. A field
// that becomes empty is cleared entirely rather than left as an empty
// list.
func (m *Mutator) removeSymmetric(relType Type, source, target *vault.Entity) error {
	write := pairedWrite{
		first: func() error {
			refs, err := m.removeResolved(source.Refs(relType.Field()), target)
			if err != nil {
				return err
			}
			source.SetRefs(relType.Field(), refs)
			return m.store.Save(source)
		},
		second: func() error {
			inverse := relType.Inverse().Field()
			refs, err := m.removeResolved(target.Refs(inverse), source)
			if err != nil {
				return err
			}
			target.SetRefs(inverse, refs)
			return m.store.Save(target)
		},
	}
	return write.apply()
}

// containsResolved reports whether any reference in refs resolves to
// the given entity. Matching is by resolved identity, never by raw
// string equality: "[[X]]" and "[[X|alias]]" point at the same entity.
func (m *Mutator) containsResolved(refs []string, entity *vault.Entity) (bool, error) {
	for _, ref := range refs {
		resolved, err := m.res.Resolve(ref)
		if err != nil {
			return false, err
		}
		if resolved != nil && resolved.Path == entity.Path {
			return true, nil
		}
	}
	return false, nil
}

// removeResolved filters out references that resolve to the given
// entity, preserving the order of the rest. Dangling references never
// match and are kept.
func (m *Mutator) removeResolved(refs []string, entity *vault.Entity) ([]string, error) {
	kept := make([]string, 0, len(refs))
	for _, ref := range refs {
		resolved, err := m.res.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if resolved != nil && resolved.Path == entity.Path {
			continue
		}
		kept = append(kept, ref)
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return kept, nil
}
