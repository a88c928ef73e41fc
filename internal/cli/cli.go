// Package cli implements the interactive shell over the operations
// layer: issue creation, frontmatter edits and relationship commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"trellis/internal/operations"
)

// CLI provides the interactive command-line interface
type CLI struct {
	ops      *operations.Operations
	readline *readline.Instance
}

// NewCLI creates a new CLI instance
func NewCLI(ops *operations.Operations) *CLI {
	return &CLI{ops: ops}
}

// Run starts the interactive CLI session
func (c *CLI) Run() error {
	config := &readline.Config{
		Prompt:            "> ",
		HistoryFile:       filepath.Join(os.TempDir(), ".trellis_history"),
		AutoComplete:      c.buildAutoCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	c.readline = rl
	defer rl.Close()

	fmt.Println("Welcome to trellis - your vault as an issue tracker")
	fmt.Println("Type /help for commands.")
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line == "/exit" || line == "/quit" || line == "/q" {
			fmt.Println("Goodbye!")
			return nil
		}

		if err := c.processInput(line); err != nil {
			fmt.Println(FormatError(err.Error()))
		}
	}

	return nil
}

// buildAutoCompleter creates the autocompletion configuration
func (c *CLI) buildAutoCompleter() *readline.PrefixCompleter {
	names := readline.PcItemDynamic(c.listEntityNames())
	return readline.NewPrefixCompleter(
		readline.PcItem("/help"),
		readline.PcItem("/new"),
		readline.PcItem("/project"),
		readline.PcItem("/show", names),
		readline.PcItem("/list",
			readline.PcItem("issues"),
			readline.PcItem("projects"),
		),
		readline.PcItem("/status", names),
		readline.PcItem("/priority", names),
		readline.PcItem("/label", names),
		readline.PcItem("/unlabel", names),
		readline.PcItem("/parent", names),
		readline.PcItem("/unparent", names),
		readline.PcItem("/child", names),
		readline.PcItem("/unchild", names),
		readline.PcItem("/block", names),
		readline.PcItem("/unblock", names),
		readline.PcItem("/relate", names),
		readline.PcItem("/unrelate", names),
		readline.PcItem("/tree", names),
		readline.PcItem("/blocked"),
		readline.PcItem("/exit"),
	)
}

// listEntityNames returns a function yielding names for autocompletion
func (c *CLI) listEntityNames() func(string) []string {
	return func(line string) []string {
		entities, err := c.ops.Issues.ListAll()
		if err != nil {
			return nil
		}
		names := make([]string, 0, len(entities))
		for _, entity := range entities {
			names = append(names, entity.Name())
		}
		return names
	}
}
