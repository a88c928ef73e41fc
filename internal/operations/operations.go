// Package operations provides the host-side operations layer shared
// by every front end (CLI, HTTP API, MCP server). It wraps the vault
// store and the relationship engine with name-based lookups and
// user-facing error messages.
package operations

import (
	"github.com/charmbracelet/log"

	"trellis/internal/relation"
	"trellis/internal/vault"
)

// Operations bundles all sub-operations over one vault.
type Operations struct {
	Issues *IssueOps
	Links  *LinkOps

	store  *vault.Store
	engine *relation.Engine
}

// New creates an Operations instance over the given store.
func New(store *vault.Store, logger *log.Logger) *Operations {
	engine := relation.NewEngine(store, logger)
	return &Operations{
		Issues: NewIssueOps(store, engine),
		Links:  NewLinkOps(store, engine),
		store:  store,
		engine: engine,
	}
}

// Store exposes the underlying vault store.
func (o *Operations) Store() *vault.Store {
	return o.store
}

// Engine exposes the relationship engine for read-side callers.
func (o *Operations) Engine() *relation.Engine {
	return o.engine
}
