package cli

import (
	"fmt"
	"strings"

	"trellis/internal/relation"
	"trellis/internal/vault"
)

// processInput parses a command line and dispatches it
func (c *CLI) processInput(line string) error {
	parts := strings.Fields(line)
	command := parts[0]
	args := parts[1:]

	switch command {
	case "/help":
		c.showHelp()
		return nil
	case "/new":
		return c.cmdNew(vault.EntityIssue, args)
	case "/project":
		return c.cmdNew(vault.EntityProject, args)
	case "/show":
		return c.cmdShow(args)
	case "/list":
		return c.cmdList(args)
	case "/status":
		return c.cmdStatus(args)
	case "/priority":
		return c.cmdPriority(args)
	case "/label":
		return c.cmdLabel(args, true)
	case "/unlabel":
		return c.cmdLabel(args, false)
	case "/parent":
		return c.cmdPair(args, "/parent <child> <parent>", c.ops.Links.SetParent)
	case "/unparent":
		return c.cmdUnparent(args)
	case "/child":
		return c.cmdPair(args, "/child <parent> <child>", c.ops.Links.AddChild)
	case "/unchild":
		return c.cmdPair(args, "/unchild <parent> <child>", c.ops.Links.RemoveChild)
	case "/block":
		return c.cmdPair(args, "/block <issue> <blocker>", c.ops.Links.AddBlocker)
	case "/unblock":
		return c.cmdPair(args, "/unblock <issue> <blocker>", c.ops.Links.RemoveBlocker)
	case "/relate":
		return c.cmdPair(args, "/relate <a> <b>", c.ops.Links.AddRelated)
	case "/unrelate":
		return c.cmdPair(args, "/unrelate <a> <b>", c.ops.Links.RemoveRelated)
	case "/tree":
		return c.cmdTree(args)
	case "/blocked":
		return c.cmdBlocked()
	}

	return fmt.Errorf("unknown command %s (try /help)", command)
}

func (c *CLI) showHelp() {
	fmt.Println(HeaderStyle.Render("Commands"))
	fmt.Println("  /new <title...>          Create an issue")
	fmt.Println("  /project <title...>      Create a project")
	fmt.Println("  /show <name>             Show an issue with its relationships")
	fmt.Println("  /list [issues|projects]  List entities")
	fmt.Println("  /status <name> <status>  Set status (backlog/todo/in-progress/done/cancelled)")
	fmt.Println("  /priority <name> <prio>  Set priority (low/medium/high/urgent)")
	fmt.Println("  /label <name> <label>    Add a label   (/unlabel removes)")
	fmt.Println("  /parent <child> <parent> Set parent    (/unparent clears)")
	fmt.Println("  /child <parent> <child>  Add sub-issue (/unchild removes)")
	fmt.Println("  /block <issue> <blocker> Add blocker   (/unblock removes)")
	fmt.Println("  /relate <a> <b>          Link related  (/unrelate removes)")
	fmt.Println("  /tree <name>             Show the sub-issue tree")
	fmt.Println("  /blocked                 List blocked issues")
	fmt.Println("  /exit                    Quit")
}

func (c *CLI) cmdNew(entityType vault.EntityType, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: /new <title...>")
	}
	title := strings.Join(args, " ")

	var entity *vault.Entity
	var err error
	if entityType == vault.EntityProject {
		entity, err = c.ops.Issues.CreateProject(title, "")
	} else {
		entity, err = c.ops.Issues.CreateIssue(title, "")
	}
	if err != nil {
		return err
	}

	fmt.Println(FormatSuccess(fmt.Sprintf("Created %s %s", entity.Frontmatter.Type, entity.Name())))
	return nil
}

func (c *CLI) cmdShow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /show <name>")
	}

	rels, err := c.ops.Links.Relations(args[0])
	if err != nil {
		return err
	}
	entity := rels.Entity

	fmt.Println(HeaderStyle.Render(entity.Title))
	fmt.Printf("  %s  %s  %s\n",
		FormatName(entity),
		FormatStatus(entity.Frontmatter.Status),
		FormatPriority(entity.Frontmatter.Priority))
	if len(entity.Frontmatter.Labels) > 0 {
		fmt.Printf("  labels: %s\n", DimStyle.Render(strings.Join(entity.Frontmatter.Labels, ", ")))
	}

	if rels.Parent != nil {
		fmt.Printf("  parent: %s\n", FormatName(rels.Parent))
	}
	c.printRelated("sub-issues", rels.Children)
	c.printRelated("blocked by", rels.BlockedBy)
	c.printRelated("blocks", rels.Blocks)
	c.printRelated("related", rels.Related)

	if entity.Body != "" {
		fmt.Println()
		fmt.Println(entity.Body)
	}
	return nil
}

func (c *CLI) printRelated(label string, entities []*vault.Entity) {
	if len(entities) == 0 {
		return
	}
	names := make([]string, len(entities))
	for i, entity := range entities {
		names[i] = FormatName(entity)
	}
	fmt.Printf("  %s: %s\n", label, strings.Join(names, ", "))
}

func (c *CLI) cmdList(args []string) error {
	var entities []*vault.Entity
	var err error

	which := "all"
	if len(args) > 0 {
		which = args[0]
	}
	switch which {
	case "issues":
		entities, err = c.ops.Issues.List(vault.EntityIssue)
	case "projects":
		entities, err = c.ops.Issues.List(vault.EntityProject)
	case "all":
		entities, err = c.ops.Issues.ListAll()
	default:
		return fmt.Errorf("usage: /list [issues|projects]")
	}
	if err != nil {
		return err
	}

	if len(entities) == 0 {
		fmt.Println(DimStyle.Render("Nothing here yet."))
		return nil
	}
	for _, entity := range entities {
		marker := " "
		if c.ops.Engine().Queries.IsBlocked(entity) {
			marker = BlockedStyle.Render("!")
		}
		fmt.Printf("%s %s  %s  %s\n",
			marker,
			FormatName(entity),
			FormatStatus(entity.Frontmatter.Status),
			FormatPriority(entity.Frontmatter.Priority))
	}
	return nil
}

func (c *CLI) cmdStatus(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: /status <name> <status>")
	}
	entity, err := c.ops.Issues.SetStatus(args[0], vault.Status(args[1]))
	if err != nil {
		return err
	}
	fmt.Println(FormatSuccess(fmt.Sprintf("%s is now %s", entity.Name(), entity.Frontmatter.Status)))
	return nil
}

func (c *CLI) cmdPriority(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: /priority <name> <priority>")
	}
	entity, err := c.ops.Issues.SetPriority(args[0], vault.Priority(args[1]))
	if err != nil {
		return err
	}
	fmt.Println(FormatSuccess(fmt.Sprintf("%s is now %s priority", entity.Name(), entity.Frontmatter.Priority)))
	return nil
}

func (c *CLI) cmdLabel(args []string, add bool) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: /label <name> <label>")
	}
	var err error
	if add {
		_, err = c.ops.Issues.AddLabel(args[0], args[1])
	} else {
		_, err = c.ops.Issues.RemoveLabel(args[0], args[1])
	}
	if err != nil {
		return err
	}
	fmt.Println(FormatSuccess("Labels updated"))
	return nil
}

// cmdPair runs a two-name link command with a usage string
func (c *CLI) cmdPair(args []string, usage string, fn func(string, string) error) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", usage)
	}
	if err := fn(args[0], args[1]); err != nil {
		return err
	}
	fmt.Println(FormatSuccess("Link updated"))
	return nil
}

func (c *CLI) cmdUnparent(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /unparent <child>")
	}
	if err := c.ops.Links.ClearParent(args[0]); err != nil {
		return err
	}
	fmt.Println(FormatSuccess("Parent cleared"))
	return nil
}

func (c *CLI) cmdTree(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /tree <name>")
	}
	root, err := c.ops.Issues.Get(args[0])
	if err != nil {
		return err
	}
	visited := make(map[string]bool)
	return c.printTree(root, "", visited)
}

// printTree walks the sub-issue hierarchy. The visited set guards
// against corrupted vaults where the hierarchy is not a forest.
func (c *CLI) printTree(entity *vault.Entity, indent string, visited map[string]bool) error {
	if visited[entity.Path] {
		fmt.Printf("%s%s %s\n", indent, FormatName(entity), DimStyle.Render("(cycle)"))
		return nil
	}
	visited[entity.Path] = true

	fmt.Printf("%s%s  %s\n", indent, FormatName(entity), FormatStatus(entity.Frontmatter.Status))

	children, err := c.ops.Engine().Queries.Related(entity, relation.TypeChild)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := c.printTree(child, indent+"  ", visited); err != nil {
			return err
		}
	}
	return nil
}

func (c *CLI) cmdBlocked() error {
	entities, err := c.ops.Issues.ListAll()
	if err != nil {
		return err
	}

	found := false
	for _, entity := range entities {
		count := c.ops.Engine().Queries.BlockerCount(entity)
		if count == 0 {
			continue
		}
		found = true
		fmt.Printf("%s %s  %s\n",
			BlockedStyle.Render("!"),
			FormatName(entity),
			DimStyle.Render(fmt.Sprintf("%d blocker(s)", count)))
	}
	if !found {
		fmt.Println(DimStyle.Render("Nothing is blocked."))
	}
	return nil
}
