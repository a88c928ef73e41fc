package operations

import (
	"fmt"
	"strings"

	"trellis/internal/relation"
	"trellis/internal/vault"
)

// IssueOps handles creation and frontmatter edits of issues and
// projects.
type IssueOps struct {
	store  *vault.Store
	engine *relation.Engine
}

// NewIssueOps creates issue operations over the given store.
func NewIssueOps(store *vault.Store, engine *relation.Engine) *IssueOps {
	return &IssueOps{store: store, engine: engine}
}

// CreateIssue creates a new issue file named after the title.
func (o *IssueOps) CreateIssue(title, body string) (*vault.Entity, error) {
	return o.create(vault.EntityIssue, "issues", title, body)
}

// CreateProject creates a new project file named after the title.
func (o *IssueOps) CreateProject(title, body string) (*vault.Entity, error) {
	return o.create(vault.EntityProject, "projects", title, body)
}

func (o *IssueOps) create(entityType vault.EntityType, dir, title, body string) (*vault.Entity, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	entity := &vault.Entity{
		Path:  fmt.Sprintf("%s/%s.md", dir, Slug(title)),
		Title: title,
		Body:  body,
		Frontmatter: vault.Frontmatter{
			Type:     entityType,
			Status:   vault.StatusBacklog,
			Priority: vault.PriorityMedium,
		},
	}

	if err := o.store.Create(entity); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", entityType, err)
	}
	return entity, nil
}

// Get resolves a display name or reference string to an entity,
// failing with a user-facing message when nothing matches.
func (o *IssueOps) Get(name string) (*vault.Entity, error) {
	entity, err := o.engine.Resolver.Resolve(name)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("no issue or project named %q", strings.TrimSpace(name))
	}
	return entity, nil
}

// List returns all entities of the given type.
func (o *IssueOps) List(entityType vault.EntityType) ([]*vault.Entity, error) {
	return o.store.ListByType(entityType)
}

// ListAll returns every entity in the vault.
func (o *IssueOps) ListAll() ([]*vault.Entity, error) {
	return o.store.ListAll()
}

// SetStatus updates an entity's workflow status.
func (o *IssueOps) SetStatus(name string, status vault.Status) (*vault.Entity, error) {
	if !vault.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	entity, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	entity.Frontmatter.Status = status
	if err := o.store.Save(entity); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", entity.Name(), err)
	}
	return entity, nil
}

// SetPriority updates an entity's priority.
func (o *IssueOps) SetPriority(name string, priority vault.Priority) (*vault.Entity, error) {
	if !vault.ValidPriority(priority) {
		return nil, fmt.Errorf("unknown priority %q", priority)
	}
	entity, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	entity.Frontmatter.Priority = priority
	if err := o.store.Save(entity); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", entity.Name(), err)
	}
	return entity, nil
}

// AddLabel adds a label to an entity, idempotently.
func (o *IssueOps) AddLabel(name, label string) (*vault.Entity, error) {
	entity, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	entity.AddLabel(label)
	if err := o.store.Save(entity); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", entity.Name(), err)
	}
	return entity, nil
}

// RemoveLabel removes a label from an entity.
func (o *IssueOps) RemoveLabel(name, label string) (*vault.Entity, error) {
	entity, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	entity.RemoveLabel(label)
	if err := o.store.Save(entity); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", entity.Name(), err)
	}
	return entity, nil
}

// Slug derives a file-name-safe slug from a title.
func Slug(title string) string {
	clean := strings.ToLower(strings.TrimSpace(title))

	replacer := strings.NewReplacer(
		" ", "-",
		"_", "-",
		"/", "-",
		"\\", "-",
		"'", "",
		"\"", "",
		".", "",
		",", "",
		"!", "",
		"?", "",
		":", "",
		";", "",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
		"|", "",
		"#", "",
	)
	clean = replacer.Replace(clean)

	for strings.Contains(clean, "--") {
		clean = strings.ReplaceAll(clean, "--", "-")
	}

	return strings.Trim(clean, "-")
}
