package operations

import (
	"fmt"
	"strings"

	"trellis/internal/relation"
	"trellis/internal/vault"
)

// LinkOps applies relationship changes by display name, delegating to
// the relationship engine's validator and mutator.
type LinkOps struct {
	store  *vault.Store
	engine *relation.Engine
}

// NewLinkOps creates link operations over the given store.
func NewLinkOps(store *vault.Store, engine *relation.Engine) *LinkOps {
	return &LinkOps{store: store, engine: engine}
}

// resolvePair resolves two display names, failing with user-facing
// messages when either is missing.
func (o *LinkOps) resolvePair(sourceName, targetName string) (*vault.Entity, *vault.Entity, error) {
	source, err := o.engine.Resolver.Resolve(sourceName)
	if err != nil {
		return nil, nil, err
	}
	if source == nil {
		return nil, nil, fmt.Errorf("no issue or project named %q", strings.TrimSpace(sourceName))
	}
	target, err := o.engine.Resolver.Resolve(targetName)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, fmt.Errorf("no issue or project named %q", strings.TrimSpace(targetName))
	}
	return source, target, nil
}

// SetParent makes parentName the parent of childName.
func (o *LinkOps) SetParent(childName, parentName string) error {
	child, parent, err := o.resolvePair(childName, parentName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.SetParent(child, parent)
}

// ClearParent detaches an entity from its parent, if any.
func (o *LinkOps) ClearParent(childName string) error {
	child, err := o.engine.Resolver.Resolve(childName)
	if err != nil {
		return err
	}
	if child == nil {
		return fmt.Errorf("no issue or project named %q", strings.TrimSpace(childName))
	}
	return o.engine.Mutator.SetParent(child, nil)
}

// AddChild makes childName a sub-issue of parentName.
func (o *LinkOps) AddChild(parentName, childName string) error {
	parent, child, err := o.resolvePair(parentName, childName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.AddChild(parent, child)
}

// RemoveChild detaches childName from parentName.
func (o *LinkOps) RemoveChild(parentName, childName string) error {
	parent, child, err := o.resolvePair(parentName, childName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.RemoveChild(parent, child)
}

// AddBlocker records that blockedName is blocked by blockerName.
func (o *LinkOps) AddBlocker(blockedName, blockerName string) error {
	blocked, blocker, err := o.resolvePair(blockedName, blockerName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.AddBlocker(blocked, blocker)
}

// RemoveBlocker removes the blocking link between the two entities.
func (o *LinkOps) RemoveBlocker(blockedName, blockerName string) error {
	blocked, blocker, err := o.resolvePair(blockedName, blockerName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.RemoveBlocker(blocked, blocker)
}

// AddRelated links two entities symmetrically.
func (o *LinkOps) AddRelated(aName, bName string) error {
	a, b, err := o.resolvePair(aName, bName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.AddRelated(a, b)
}

// RemoveRelated removes the symmetric link between two entities.
func (o *LinkOps) RemoveRelated(aName, bName string) error {
	a, b, err := o.resolvePair(aName, bName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.RemoveRelated(a, b)
}

// Apply resolves and applies a generic relationship change.
func (o *LinkOps) Apply(relType relation.Type, action relation.Action, sourceName, targetName string) error {
	source, target, err := o.resolvePair(sourceName, targetName)
	if err != nil {
		return err
	}
	return o.engine.Mutator.Apply(relation.Change{
		Type:   relType,
		Source: source,
		Target: target,
		Action: action,
	})
}

// Relations is the resolved relationship neighborhood of one entity.
type Relations struct {
	Entity    *vault.Entity
	Parent    *vault.Entity
	Children  []*vault.Entity
	Blocks    []*vault.Entity
	BlockedBy []*vault.Entity
	Related   []*vault.Entity
}

// Relations returns every resolved relationship of the named entity.
// Dangling references are simply absent from the result.
func (o *LinkOps) Relations(name string) (*Relations, error) {
	entity, err := o.engine.Resolver.Resolve(name)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("no issue or project named %q", strings.TrimSpace(name))
	}

	result := &Relations{Entity: entity}

	parents, err := o.engine.Queries.Related(entity, relation.TypeParent)
	if err != nil {
		return nil, err
	}
	if len(parents) > 0 {
		result.Parent = parents[0]
	}

	if result.Children, err = o.engine.Queries.Related(entity, relation.TypeChild); err != nil {
		return nil, err
	}
	if result.Blocks, err = o.engine.Queries.Related(entity, relation.TypeBlocks); err != nil {
		return nil, err
	}
	if result.BlockedBy, err = o.engine.Queries.Related(entity, relation.TypeBlockedBy); err != nil {
		return nil, err
	}
	if result.Related, err = o.engine.Queries.Related(entity, relation.TypeRelated); err != nil {
		return nil, err
	}

	return result, nil
}
