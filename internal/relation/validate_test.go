package relation

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSelfLink(t *testing.T) {
	store := newTestStore(t)
	entity := createIssue(t, store, "issues/ISSUE-1.md", "One")
	val := NewValidator(NewResolver(store))

	for _, relType := range []Type{TypeParent, TypeChild, TypeBlocks, TypeBlockedBy, TypeRelated} {
		err := val.Validate(relType, entity, entity)
		assert.ErrorIs(t, err, ErrSelfLink, "type %s", relType)
	}
}

func TestValidateCycleRejection(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, log.New(io.Discard))

	// Chain: A -> parent B -> parent C.
	a := createIssue(t, store, "issues/A.md", "A")
	b := createIssue(t, store, "issues/B.md", "B")
	c := createIssue(t, store, "issues/C.md", "C")
	require.NoError(t, engine.Mutator.SetParent(a, b))
	require.NoError(t, engine.Mutator.SetParent(b, c))

	// Making A the parent of C would close the cycle C -> A -> B -> C.
	err := engine.Validator.Validate(TypeParent, c, a)
	assert.ErrorIs(t, err, ErrCycle)

	// The mirrored child form is rejected the same way.
	err = engine.Validator.Validate(TypeChild, a, c)
	assert.ErrorIs(t, err, ErrCycle)

	// An unrelated entity is fine.
	d := createIssue(t, store, "issues/D.md", "D")
	assert.NoError(t, engine.Validator.Validate(TypeParent, d, a))
}

func TestValidateBlockingCyclesPermitted(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, log.New(io.Discard))

	a := createIssue(t, store, "issues/A.md", "A")
	b := createIssue(t, store, "issues/B.md", "B")
	require.NoError(t, engine.Mutator.AddBlocker(a, b))

	// Mutual blocking is a legal domain state, not a structural error.
	assert.NoError(t, engine.Validator.Validate(TypeBlockedBy, b, a))
	assert.NoError(t, engine.Mutator.AddBlocker(b, a))
}

func TestValidateDanglingParentTerminates(t *testing.T) {
	store := newTestStore(t)
	val := NewValidator(NewResolver(store))

	// ISSUE-20's parent points at a deleted entity. The walk must stop
	// and report no cycle rather than erroring or looping.
	orphan := createIssue(t, store, "issues/ISSUE-20.md", "Orphan")
	orphan.SetRefs("parent", []string{"[[deleted-entity]]"})
	require.NoError(t, store.Save(orphan))

	other := createIssue(t, store, "issues/ISSUE-21.md", "Other")
	assert.NoError(t, val.Validate(TypeParent, other, orphan))
}

func TestValidatePreexistingCycleTerminates(t *testing.T) {
	store := newTestStore(t)
	val := NewValidator(NewResolver(store))

	// Corrupted data: X and Y are each other's parent. The visited set
	// stops the walk instead of diverging.
	x := createIssue(t, store, "issues/X.md", "X")
	y := createIssue(t, store, "issues/Y.md", "Y")
	x.SetRefs("parent", []string{"[[Y]]"})
	require.NoError(t, store.Save(x))
	y.SetRefs("parent", []string{"[[X]]"})
	require.NoError(t, store.Save(y))

	z := createIssue(t, store, "issues/Z.md", "Z")
	assert.NoError(t, val.Validate(TypeParent, z, x))
}
