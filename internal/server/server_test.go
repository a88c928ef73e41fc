package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trellis/internal/operations"
	"trellis/internal/vault"
)

func newTestServer(t *testing.T) (*Server, *operations.Operations) {
	t.Helper()
	logger := log.New(io.Discard)
	store := vault.NewStore(t.TempDir(), logger)
	ops := operations.New(store, logger)
	return NewServer(0, "secret", ops, logger), ops
}

func TestHandleList(t *testing.T) {
	srv, ops := newTestServer(t)
	_, err := ops.Issues.CreateIssue("Fix login", "")
	require.NoError(t, err)
	_, err = ops.Issues.CreateProject("Auth revamp", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.handleList(rec, httptest.NewRequest(http.MethodGet, "/api/issues?type=issue", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result []issueJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Len(t, result, 1)
	assert.Equal(t, "fix-login", result[0].Name)
	assert.Equal(t, "issue", result[0].Type)

	rec = httptest.NewRecorder()
	srv.handleList(rec, httptest.NewRequest(http.MethodGet, "/api/issues?type=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIssueAndRelations(t *testing.T) {
	srv, ops := newTestServer(t)
	_, err := ops.Issues.CreateIssue("Fix login", "")
	require.NoError(t, err)
	_, err = ops.Issues.CreateIssue("Rotate keys", "")
	require.NoError(t, err)
	require.NoError(t, ops.Links.AddBlocker("fix-login", "rotate-keys"))

	rec := httptest.NewRecorder()
	srv.handleIssue(rec, httptest.NewRequest(http.MethodGet, "/api/issues/fix-login", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var issue issueJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&issue))
	assert.Equal(t, "fix-login", issue.Name)
	assert.True(t, issue.Blocked)

	rec = httptest.NewRecorder()
	srv.handleIssue(rec, httptest.NewRequest(http.MethodGet, "/api/issues/fix-login/relations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rels map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rels))
	assert.Equal(t, []any{"rotate-keys"}, rels["blocked_by"])

	rec = httptest.NewRecorder()
	srv.handleIssue(rec, httptest.NewRequest(http.MethodGet, "/api/issues/no-such-issue", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLinksAuthAndApply(t *testing.T) {
	srv, ops := newTestServer(t)
	_, err := ops.Issues.CreateIssue("A", "")
	require.NoError(t, err)
	_, err = ops.Issues.CreateIssue("B", "")
	require.NoError(t, err)

	body := `{"type":"blocked-by","source":"a","target":"b"}`

	// Missing token is rejected before any write happens.
	rec := httptest.NewRecorder()
	srv.handleLinks(rec, httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.handleLinks(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	a, err := ops.Issues.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"[[b]]"}, a.Frontmatter.BlockedBy)

	// Adding the same edge again is a conflict.
	req = httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.handleLinks(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Self-links are conflicts too.
	req = httptest.NewRequest(http.MethodPost, "/api/links",
		strings.NewReader(`{"type":"related","source":"a","target":"a"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.handleLinks(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/links", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.handleLinks(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	a, err = ops.Issues.Get("a")
	require.NoError(t, err)
	assert.Nil(t, a.Frontmatter.BlockedBy)
}
