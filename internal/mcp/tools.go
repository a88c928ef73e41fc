package mcp

import (
	"fmt"
	"strings"

	mcp "github.com/metoro-io/mcp-golang"

	"trellis/internal/operations"
	"trellis/internal/relation"
	"trellis/internal/vault"
)

type CreateIssueArgs struct {
	Title string `json:"title" jsonschema:"required,description=Title of the new issue"`
	Body  string `json:"body,omitempty" jsonschema:"description=Markdown body for the issue"`
	Type  string `json:"type,omitempty" jsonschema:"enum=issue;project,description=Entity type (default issue)"`
}

type GetIssueArgs struct {
	Name string `json:"name" jsonschema:"required,description=Issue name (file name without .md)"`
}

type ListIssuesArgs struct {
	Type string `json:"type,omitempty" jsonschema:"enum=issue;project,description=Filter by entity type"`
}

type SetStatusArgs struct {
	Name   string `json:"name" jsonschema:"required,description=Issue name"`
	Status string `json:"status" jsonschema:"required,enum=backlog;todo;in-progress;done;cancelled,description=New workflow status"`
}

type SetPriorityArgs struct {
	Name     string `json:"name" jsonschema:"required,description=Issue name"`
	Priority string `json:"priority" jsonschema:"required,enum=low;medium;high;urgent,description=New priority"`
}

type LinkArgs struct {
	Type   string `json:"type" jsonschema:"required,enum=parent;child;blocks;blocked-by;related,description=Relationship type from source to target"`
	Source string `json:"source" jsonschema:"required,description=Source issue name"`
	Target string `json:"target" jsonschema:"required,description=Target issue name"`
}

type ClearParentArgs struct {
	Name string `json:"name" jsonschema:"required,description=Issue whose parent should be cleared"`
}

// RegisterTools registers all tracker tools with the MCP server
func RegisterTools(server *mcp.Server, ops *operations.Operations) error {
	err := server.RegisterTool(
		"create_issue",
		"Create a new issue or project in the vault",

		func(args CreateIssueArgs) (*mcp.ToolResponse, error) {
			var entity *vault.Entity
			var err error
			if args.Type == "project" {
				entity, err = ops.Issues.CreateProject(args.Title, args.Body)
			} else {
				entity, err = ops.Issues.CreateIssue(args.Title, args.Body)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to create: %w", err)
			}
			return textResponse(fmt.Sprintf("Created %s %s at %s",
				entity.Frontmatter.Type, entity.Name(), entity.Path)), nil
		},
	)
	if err != nil {
		return err
	}

	err = server.RegisterTool(
		"get_issue",
		"Read an issue with its frontmatter, body and relationships",

		func(args GetIssueArgs) (*mcp.ToolResponse, error) {
			rels, err := ops.Links.Relations(args.Name)
			if err != nil {
				return nil, err
			}
			return textResponse(formatEntity(rels)), nil
		},
	)
	if err != nil {
		return err
	}

	err = server.RegisterTool(
		"list_issues",
		"List issues and projects in the vault",

		func(args ListIssuesArgs) (*mcp.ToolResponse, error) {
			var entities []*vault.Entity
			var err error
			switch args.Type {
			case "issue":
				entities, err = ops.Issues.List(vault.EntityIssue)
			case "project":
				entities, err = ops.Issues.List(vault.EntityProject)
			default:
				entities, err = ops.Issues.ListAll()
			}
			if err != nil {
				return nil, fmt.Errorf("list failed: %w", err)
			}

			var lines []string
			for _, entity := range entities {
				line := fmt.Sprintf("%s (%s, %s, %s)",
					entity.Name(),
					entity.Frontmatter.Type,
					entity.Frontmatter.Status,
					entity.Frontmatter.Priority)
				if ops.Engine().Queries.IsBlocked(entity) {
					line += " [blocked]"
				}
				lines = append(lines, line)
			}
			content := strings.Join(lines, "\n")
			if content == "" {
				content = "The vault is empty"
			}
			return textResponse(content), nil
		},
	)
	if err != nil {
		return err
	}

	err = server.RegisterTool(
		"set_status",
		"Set the workflow status of an issue",

		func(args SetStatusArgs) (*mcp.ToolResponse, error) {
			entity, err := ops.Issues.SetStatus(args.Name, vault.Status(args.Status))
			if err != nil {
				return nil, err
			}
			return textResponse(fmt.Sprintf("%s is now %s",
				entity.Name(), entity.Frontmatter.Status)), nil
		},
	)
	if err != nil {
		return err
	}

	err = server.RegisterTool(
		"set_priority",
		"Set the priority of an issue",

		func(args SetPriorityArgs) (*mcp.ToolResponse, error) {
			entity, err := ops.Issues.SetPriority(args.Name, vault.Priority(args.Priority))
			if err != nil {
				return nil, err
			}
			return textResponse(fmt.Sprintf("%s is now %s priority",
				entity.Name(), entity.Frontmatter.Priority)), nil
		},
	)
	if err != nil {
		return err
	}

	err = server.RegisterTool(
		"add_link",
		"Add a relationship between two issues. The inverse side is written automatically",

		func(args LinkArgs) (*mcp.ToolResponse, error) {
			relType := relation.Type(args.Type)
			if !relType.Valid() {
				return nil, fmt.Errorf("unknown relationship type %q", args.Type)
			}
			if err := ops.Links.Apply(relType, relation.ActionAdd, args.Source, args.Target); err != nil {
				return nil, err
			}
			return textResponse(fmt.Sprintf("Linked %s -%s-> %s",
				args.Source, args.Type, args.Target)), nil
		},
	)
	if err != nil {
		return err
	}

	err = server.RegisterTool(
		"remove_link",
		"Remove a relationship between two issues. The inverse side is removed automatically",

		func(args LinkArgs) (*mcp.ToolResponse, error) {
			relType := relation.Type(args.Type)
			if !relType.Valid() {
				return nil, fmt.Errorf("unknown relationship type %q", args.Type)
			}
			if err := ops.Links.Apply(relType, relation.ActionRemove, args.Source, args.Target); err != nil {
				return nil, err
			}
			return textResponse(fmt.Sprintf("Unlinked %s -%s-> %s",
				args.Source, args.Type, args.Target)), nil
		},
	)
	if err != nil {
		return err
	}

	return server.RegisterTool(
		"clear_parent",
		"Detach an issue from its parent",

		func(args ClearParentArgs) (*mcp.ToolResponse, error) {
			if err := ops.Links.ClearParent(args.Name); err != nil {
				return nil, err
			}
			return textResponse(fmt.Sprintf("%s is now top-level", args.Name)), nil
		},
	)
}

func textResponse(s string) *mcp.ToolResponse {
	return mcp.NewToolResponse(mcp.NewTextContent(s))
}

// formatEntity renders an entity and its neighborhood as readable text
func formatEntity(rels *operations.Relations) string {
	entity := rels.Entity
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", entity.Title)
	fmt.Fprintf(&b, "Name: %s\nType: %s\nStatus: %s\nPriority: %s\n",
		entity.Name(),
		entity.Frontmatter.Type,
		entity.Frontmatter.Status,
		entity.Frontmatter.Priority)
	if len(entity.Frontmatter.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(entity.Frontmatter.Labels, ", "))
	}

	if rels.Parent != nil {
		fmt.Fprintf(&b, "Parent: [[%s]]\n", rels.Parent.Name())
	}
	writeRefs := func(label string, entities []*vault.Entity) {
		if len(entities) == 0 {
			return
		}
		names := make([]string, len(entities))
		for i, e := range entities {
			names[i] = "[[" + e.Name() + "]]"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, strings.Join(names, ", "))
	}
	writeRefs("Sub-issues", rels.Children)
	writeRefs("Blocked by", rels.BlockedBy)
	writeRefs("Blocks", rels.Blocks)
	writeRefs("Related", rels.Related)

	if entity.Body != "" {
		fmt.Fprintf(&b, "\n%s\n", entity.Body)
	}
	return b.String()
}
