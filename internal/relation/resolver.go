package relation

import (
	"fmt"
	"regexp"
	"strings"

	"trellis/internal/vault"
)

// Matches wiki-style links [[target|label]] or [[target]].
var wikiLinkRegex = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// ParseRefs extracts all reference payloads embedded in the given
// strings, in order. The display-alias segment after | is discarded.
// Duplicates are retained; callers that need set semantics deduplicate
// by resolved identity, not here.
func ParseRefs(values ...string) []string {
	var refs []string
	for _, value := range values {
		for _, match := range wikiLinkRegex.FindAllStringSubmatch(value, -1) {
			refs = append(refs, strings.TrimSpace(match[1]))
		}
	}
	return refs
}

// Resolver maps reference strings to entities and back.
type Resolver struct {
	store EntityStore
}

// NewResolver creates a resolver over the given store.
func NewResolver(store EntityStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up the entity a reference string points at. The input
// may be a bare name or a bracketed reference; enclosing brackets, an
// alias segment and surrounding whitespace are stripped first. Returns
// (nil, nil) when no entity matches: a dangling reference is an
// expected outcome, not an error.
func (r *Resolver) Resolve(name string) (*vault.Entity, error) {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "[[") {
		parsed := ParseRefs(name)
		if len(parsed) == 0 {
			return nil, nil
		}
		name = parsed[0]
	}
	if idx := strings.Index(name, "|"); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	if name == "" {
		return nil, nil
	}

	entity, err := r.store.FindByDisplayName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", name, err)
	}
	return entity, nil
}

// ResolveAll maps Resolve over the input, dropping references that
// don't resolve. Order of found entities follows input order.
func (r *Resolver) ResolveAll(names []string) ([]*vault.Entity, error) {
	entities := make([]*vault.Entity, 0, len(names))
	for _, name := range names {
		entity, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

// Ref returns the canonical bracketed reference for an entity, using
// its short display name rather than its vault path.
func Ref(entity *vault.Entity) string {
	return "[[" + entity.Name() + "]]"
}

// Refs maps Ref over a slice of entities.
func Refs(entities []*vault.Entity) []string {
	if len(entities) == 0 {
		return nil
	}
	refs := make([]string, len(entities))
	for i, entity := range entities {
		refs[i] = Ref(entity)
	}
	return refs
}
