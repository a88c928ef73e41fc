package relation

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trellis/internal/vault"
)

func newTestEngine(t *testing.T) (*vault.Store, *Engine) {
	t.Helper()
	store := newTestStore(t)
	return store, NewEngine(store, log.New(io.Discard))
}

func TestAddBlockerMirrorsInverse(t *testing.T) {
	store, engine := newTestEngine(t)
	blocked := createIssue(t, store, "issues/ISSUE-10.md", "Blocked")
	blocker := createIssue(t, store, "issues/ISSUE-11.md", "Blocker")

	require.NoError(t, engine.Mutator.AddBlocker(blocked, blocker))
	assert.Equal(t, []string{"[[ISSUE-11]]"}, blocked.Frontmatter.BlockedBy)
	assert.Equal(t, []string{"[[ISSUE-10]]"}, blocker.Frontmatter.Blocks)

	// Duplicate attempt: reported distinctly, fields unchanged.
	err := engine.Mutator.AddBlocker(blocked, blocker)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, []string{"[[ISSUE-11]]"}, blocked.Frontmatter.BlockedBy)
	assert.Equal(t, []string{"[[ISSUE-10]]"}, blocker.Frontmatter.Blocks)

	// Removal clears both sides; empty fields become absent, not empty
	// lists.
	require.NoError(t, engine.Mutator.RemoveBlocker(blocked, blocker))
	assert.Nil(t, blocked.Frontmatter.BlockedBy)
	assert.Nil(t, blocker.Frontmatter.Blocks)
}

func TestAddBlockerDedupesByResolvedIdentity(t *testing.T) {
	store, engine := newTestEngine(t)
	blocked := createIssue(t, store, "issues/ISSUE-10.md", "Blocked")
	blocker := createIssue(t, store, "issues/ISSUE-11.md", "Blocker")

	// An alias-formatted reference to the same entity must be detected:
	// raw string comparison would let the duplicate through.
	blocked.SetRefs("blocked-by", []string{"[[ISSUE-11|the flaky migration]]"})
	require.NoError(t, store.Save(blocked))

	err := engine.Mutator.AddBlocker(blocked, blocker)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRemoveBlockerKeepsDanglingEntries(t *testing.T) {
	store, engine := newTestEngine(t)
	blocked := createIssue(t, store, "issues/ISSUE-10.md", "Blocked")
	blocker := createIssue(t, store, "issues/ISSUE-11.md", "Blocker")

	blocked.SetRefs("blocked-by", []string{"[[ghost]]", "[[ISSUE-11]]"})
	require.NoError(t, store.Save(blocked))
	blocker.SetRefs("blocks", []string{"[[ISSUE-10]]"})
	require.NoError(t, store.Save(blocker))

	require.NoError(t, engine.Mutator.RemoveBlocker(blocked, blocker))
	assert.Equal(t, []string{"[[ghost]]"}, blocked.Frontmatter.BlockedBy)
	assert.Nil(t, blocker.Frontmatter.Blocks)
}

func TestSetParentDetachBeforeAttach(t *testing.T) {
	store, engine := newTestEngine(t)
	child := createIssue(t, store, "issues/child.md", "Child")
	oldParent := createIssue(t, store, "issues/old-parent.md", "Old parent")
	newParent := createIssue(t, store, "issues/new-parent.md", "New parent")

	require.NoError(t, engine.Mutator.SetParent(child, oldParent))
	assert.Equal(t, "[[old-parent]]", child.Frontmatter.Parent)
	assert.Equal(t, []string{"[[child]]"}, oldParent.Frontmatter.SubIssues)

	// Re-parenting: absent from the old parent, present in the new one,
	// never in both.
	require.NoError(t, engine.Mutator.SetParent(child, newParent))
	assert.Equal(t, "[[new-parent]]", child.Frontmatter.Parent)
	assert.Nil(t, oldParent.Frontmatter.SubIssues)
	assert.Equal(t, []string{"[[child]]"}, newParent.Frontmatter.SubIssues)
}

func TestSetParentNilDetaches(t *testing.T) {
	store, engine := newTestEngine(t)
	child := createIssue(t, store, "issues/child.md", "Child")
	parent := createIssue(t, store, "issues/parent.md", "Parent")

	require.NoError(t, engine.Mutator.SetParent(child, parent))
	require.NoError(t, engine.Mutator.SetParent(child, nil))

	assert.Empty(t, child.Frontmatter.Parent)
	assert.Nil(t, parent.Frontmatter.SubIssues)
}

func TestSetParentCycleRejectedWithoutWrites(t *testing.T) {
	store, engine := newTestEngine(t)

	// ISSUE-2's parent is ISSUE-1; making ISSUE-2 the parent of ISSUE-1
	// must be rejected with both entities untouched.
	issue1 := createIssue(t, store, "issues/ISSUE-1.md", "One")
	issue2 := createIssue(t, store, "issues/ISSUE-2.md", "Two")
	require.NoError(t, engine.Mutator.SetParent(issue2, issue1))

	err := engine.Mutator.SetParent(issue1, issue2)
	assert.ErrorIs(t, err, ErrCycle)

	assert.Empty(t, issue1.Frontmatter.Parent)
	assert.Equal(t, []string{"[[ISSUE-2]]"}, issue1.Frontmatter.SubIssues)
	assert.Equal(t, "[[ISSUE-1]]", issue2.Frontmatter.Parent)
	assert.Nil(t, issue2.Frontmatter.SubIssues)
}

func TestAddChildIdempotent(t *testing.T) {
	store, engine := newTestEngine(t)
	parent := createIssue(t, store, "issues/parent.md", "Parent")
	child := createIssue(t, store, "issues/child.md", "Child")

	require.NoError(t, engine.Mutator.AddChild(parent, child))
	require.NoError(t, engine.Mutator.AddChild(parent, child))

	assert.Equal(t, []string{"[[child]]"}, parent.Frontmatter.SubIssues)
	assert.Equal(t, "[[parent]]", child.Frontmatter.Parent)
}

func TestRemoveChildUnconditional(t *testing.T) {
	store, engine := newTestEngine(t)
	parent := createIssue(t, store, "issues/parent.md", "Parent")
	child := createIssue(t, store, "issues/child.md", "Child")

	require.NoError(t, engine.Mutator.AddChild(parent, child))
	require.NoError(t, engine.Mutator.RemoveChild(parent, child))

	assert.Empty(t, child.Frontmatter.Parent)
	assert.Nil(t, parent.Frontmatter.SubIssues)

	// Removing again is harmless.
	require.NoError(t, engine.Mutator.RemoveChild(parent, child))
}

func TestRelatedSymmetry(t *testing.T) {
	store, engine := newTestEngine(t)
	a := createIssue(t, store, "issues/A.md", "A")
	b := createIssue(t, store, "issues/B.md", "B")

	require.NoError(t, engine.Mutator.AddRelated(a, b))
	assert.Equal(t, []string{"[[B]]"}, a.Frontmatter.Related)
	assert.Equal(t, []string{"[[A]]"}, b.Frontmatter.Related)

	// The reversed call is the same relationship.
	err := engine.Mutator.AddRelated(b, a)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, []string{"[[B]]"}, a.Frontmatter.Related)
	assert.Equal(t, []string{"[[A]]"}, b.Frontmatter.Related)

	require.NoError(t, engine.Mutator.RemoveRelated(b, a))
	assert.Nil(t, a.Frontmatter.Related)
	assert.Nil(t, b.Frontmatter.Related)
}

func TestApplyChange(t *testing.T) {
	store, engine := newTestEngine(t)
	a := createIssue(t, store, "issues/A.md", "A")
	b := createIssue(t, store, "issues/B.md", "B")

	// "A blocks B" lands as B blocked-by A.
	require.NoError(t, engine.Mutator.Apply(Change{
		Type: TypeBlocks, Source: a, Target: b, Action: ActionAdd,
	}))
	assert.Equal(t, []string{"[[B]]"}, a.Frontmatter.Blocks)
	assert.Equal(t, []string{"[[A]]"}, b.Frontmatter.BlockedBy)

	require.NoError(t, engine.Mutator.Apply(Change{
		Type: TypeBlocks, Source: a, Target: b, Action: ActionRemove,
	}))
	assert.Nil(t, a.Frontmatter.Blocks)
	assert.Nil(t, b.Frontmatter.BlockedBy)

	err := engine.Mutator.Apply(Change{Type: "owns", Source: a, Target: b, Action: ActionAdd})
	assert.Error(t, err)
}

// failingStore fails Save for one path, to exercise the second half of
// a paired write going wrong.
type failingStore struct {
	*vault.Store
	failPath string
}

func (s *failingStore) Save(entity *vault.Entity) error {
	if entity.Path == s.failPath {
		return fmt.Errorf("disk full")
	}
	return s.Store.Save(entity)
}

func TestPartialWriteSurfaced(t *testing.T) {
	store := newTestStore(t)
	blocked := createIssue(t, store, "issues/ISSUE-10.md", "Blocked")
	blocker := createIssue(t, store, "issues/ISSUE-11.md", "Blocker")

	wrapped := &failingStore{Store: store, failPath: blocker.Path}
	engine := NewEngine(wrapped, log.New(io.Discard))

	err := engine.Mutator.AddBlocker(blocked, blocker)
	assert.ErrorIs(t, err, ErrPartialWrite)

	// The first half's effect stays in place; no automatic rollback.
	assert.Equal(t, []string{"[[ISSUE-11]]"}, blocked.Frontmatter.BlockedBy)
	assert.Nil(t, blocker.Frontmatter.Blocks)
}
