package vault

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// EntityType represents the kind of tracker entity a file holds.
type EntityType string

const (
	EntityIssue   EntityType = "issue"
	EntityProject EntityType = "project"
)

// Status is the workflow state of an issue or project.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Priority orders issues within a status column.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Frontmatter is the YAML frontmatter of an entity file. Relationship
// fields hold wiki-style reference strings ("[[Name]]"); multi-valued
// fields keep insertion order and serialize as absent when empty.
type Frontmatter struct {
	Type      EntityType `yaml:"type"`
	UID       string     `yaml:"uid,omitempty"`
	Status    Status     `yaml:"status,omitempty"`
	Priority  Priority   `yaml:"priority,omitempty"`
	Labels    []string   `yaml:"labels,omitempty"`
	Created   time.Time  `yaml:"created"`
	Updated   time.Time  `yaml:"updated"`
	Parent    string     `yaml:"parent,omitempty"`
	SubIssues []string   `yaml:"sub-issues,omitempty"`
	Blocks    []string   `yaml:"blocks,omitempty"`
	BlockedBy []string   `yaml:"blocked-by,omitempty"`
	Related   []string   `yaml:"related,omitempty"`
}

// Entity is one markdown file in the vault. Path is the vault-relative
// file path and serves as the entity's stable identity.
type Entity struct {
	Path        string
	Frontmatter Frontmatter
	Title       string
	Body        string
}

// Name returns the entity's display name: the file base name without
// the .md extension. References resolve against this name.
func (e *Entity) Name() string {
	return strings.TrimSuffix(filepath.Base(e.Path), ".md")
}

// Refs returns the raw reference strings stored under the given
// relationship field. The parent field yields zero or one entries.
func (e *Entity) Refs(field string) []string {
	switch field {
	case "parent":
		if e.Frontmatter.Parent == "" {
			return nil
		}
		return []string{e.Frontmatter.Parent}
	case "sub-issues":
		return e.Frontmatter.SubIssues
	case "blocks":
		return e.Frontmatter.Blocks
	case "blocked-by":
		return e.Frontmatter.BlockedBy
	case "related":
		return e.Frontmatter.Related
	}
	return nil
}

// SetRefs replaces the reference strings stored under the given
// relationship field. An empty slice clears the field entirely so the
// key is dropped on serialization rather than written as an empty list.
func (e *Entity) SetRefs(field string, refs []string) {
	if len(refs) == 0 {
		refs = nil
	}
	switch field {
	case "parent":
		if refs == nil {
			e.Frontmatter.Parent = ""
		} else {
			e.Frontmatter.Parent = refs[0]
		}
	case "sub-issues":
		e.Frontmatter.SubIssues = refs
	case "blocks":
		e.Frontmatter.Blocks = refs
	case "blocked-by":
		e.Frontmatter.BlockedBy = refs
	case "related":
		e.Frontmatter.Related = refs
	}
}

// AddLabel appends a label if not already present.
func (e *Entity) AddLabel(label string) {
	if slices.Contains(e.Frontmatter.Labels, label) {
		return
	}
	e.Frontmatter.Labels = append(e.Frontmatter.Labels, label)
}

// RemoveLabel removes a label if present.
func (e *Entity) RemoveLabel(label string) {
	e.Frontmatter.Labels = slices.DeleteFunc(e.Frontmatter.Labels, func(l string) bool {
		return l == label
	})
	if len(e.Frontmatter.Labels) == 0 {
		e.Frontmatter.Labels = nil
	}
}

// Validate checks that the entity has the fields every file needs.
func (e *Entity) Validate() error {
	if e.Path == "" {
		return fmt.Errorf("entity path is required")
	}
	if e.Frontmatter.Type == "" {
		return fmt.Errorf("entity type is required")
	}
	if e.Title == "" {
		return fmt.Errorf("entity title is required")
	}
	return nil
}

// ValidStatus reports whether s is a recognized workflow status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether p is a recognized priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
