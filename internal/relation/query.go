package relation

import (
	"trellis/internal/vault"
)

// Queries provides read-only derived views over the graph for hosts
// that render boards, tables or pickers. They respect the same
// resolved-identity semantics as the mutator but never write.
type Queries struct {
	res *Resolver
}

// NewQueries creates the query facade over the given resolver.
func NewQueries(res *Resolver) *Queries {
	return &Queries{res: res}
}

// HasRelationship reports whether target appears, by resolved
// identity, in entity's field for the given relationship type.
func (q *Queries) HasRelationship(entity *vault.Entity, relType Type, target *vault.Entity) (bool, error) {
	for _, ref := range entity.Refs(relType.Field()) {
		resolved, err := q.res.Resolve(ref)
		if err != nil {
			return false, err
		}
		if resolved != nil && resolved.Path == target.Path {
			return true, nil
		}
	}
	return false, nil
}

// Related returns the resolved entities for the given relationship
// type, in stored order. Dangling references are dropped. Parent
// yields a sequence of at most one.
func (q *Queries) Related(entity *vault.Entity, relType Type) ([]*vault.Entity, error) {
	return q.res.ResolveAll(entity.Refs(relType.Field()))
}

// IsBlocked reports whether the entity has any blocked-by entries.
func (q *Queries) IsBlocked(entity *vault.Entity) bool {
	return len(entity.Frontmatter.BlockedBy) > 0
}

// BlockerCount returns the number of blocked-by entries. An absent
// field counts as zero.
func (q *Queries) BlockerCount(entity *vault.Entity) int {
	return len(entity.Frontmatter.BlockedBy)
}

// ChildCount returns the number of sub-issue entries.
func (q *Queries) ChildCount(entity *vault.Entity) int {
	return len(entity.Frontmatter.SubIssues)
}
