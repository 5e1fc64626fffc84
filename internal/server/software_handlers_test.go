package server

import (
	"fmt"
	"net/http"
	"testing"

	"accessdesk/internal/cache"
	"accessdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftwareCatalog_AdminOnlyMutations(t *testing.T) {
	ts := newTestServer(t)
	empTok := ts.token(t, ts.seedUser(t, "alice", models.RoleEmployee))
	mgrTok := ts.token(t, ts.seedUser(t, "mgr", models.RoleManager))
	adminTok := ts.token(t, ts.seedUser(t, "root", models.RoleAdmin))

	body := map[string]any{
		"name":         "Jira",
		"description":  "Issue tracker",
		"accessLevels": []string{"Read", "Write", "Read"},
	}
	for _, tok := range []string{empTok, mgrTok} {
		resp, _ := ts.do(t, http.MethodPost, "/api/software", tok, body)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	resp, raw := ts.do(t, http.MethodPost, "/api/software", adminTok, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	sw := decode[models.Software](t, raw)
	assert.Equal(t, []models.AccessLevel{"Read", "Write"}, []models.AccessLevel(sw.AccessLevels))

	resp, raw = ts.do(t, http.MethodPost, "/api/software", adminTok, body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, raw).Code)

	resp, _ = ts.do(t, http.MethodPost, "/api/software", adminTok, map[string]any{
		"name": "Bad", "accessLevels": []string{"Owner"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/software", adminTok, map[string]any{
		"name": "Empty", "accessLevels": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	path := fmt.Sprintf("/api/software/%d", sw.ID)
	resp, _ = ts.do(t, http.MethodPut, path, mgrTok, map[string]any{"description": "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodPut, path, adminTok, map[string]any{"accessLevels": []string{"Admin"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	updated := decode[models.Software](t, raw)
	assert.Equal(t, "Jira", updated.Name)
	assert.Equal(t, "Issue tracker", updated.Description)
	assert.Equal(t, []models.AccessLevel{"Admin"}, []models.AccessLevel(updated.AccessLevels))
}

func TestSoftwareCatalog_Reads(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, ts.seedUser(t, "alice", models.RoleEmployee))
	jira := ts.seedSoftware(t, "Jira", models.AccessLevelRead)
	ts.seedSoftware(t, "GitHub Enterprise", models.AccessLevelRead, models.AccessLevelAdmin)

	resp, raw := ts.do(t, http.MethodGet, "/api/software", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Software](t, raw), 2)

	resp, raw = ts.do(t, http.MethodGet, "/api/software/search?q=github", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[[]models.Software](t, raw)
	require.Len(t, found, 1)
	assert.Equal(t, "GitHub Enterprise", found[0].Name)

	resp, raw = ts.do(t, http.MethodGet, "/api/software/access-level/Admin", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Software](t, raw), 1)

	resp, _ = ts.do(t, http.MethodGet, "/api/software/access-level/Owner", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, "/api/software/name/GitHub%20Enterprise", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "GitHub Enterprise", decode[models.Software](t, raw).Name)

	resp, _ = ts.do(t, http.MethodGet, "/api/software/name/jira", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, fmt.Sprintf("/api/software/%d", jira.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Jira", decode[models.Software](t, raw).Name)

	resp, _ = ts.do(t, http.MethodGet, "/api/software/999", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, fmt.Sprintf("/api/software/%d/stats", jira.ID), tok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSoftwareStatsAndDelete(t *testing.T) {
	f := newRequestFixture(t)
	ts := f.ts
	path := fmt.Sprintf("/api/software/%d", f.jira.ID)

	pending := f.create(t, f.aliceTok, f.jira.ID, "Read")

	resp, raw := ts.do(t, http.MethodGet, path+"/stats", f.mgrTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.RequestStats{Total: 1, Pending: 1}, decode[models.RequestStats](t, raw))

	resp, raw = ts.do(t, http.MethodDelete, path, f.adminTok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, raw).Code)

	resp, _ = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/requests/%d", pending.ID), f.mgrTok,
		map[string]string{"status": "Rejected"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, path, f.mgrTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, path, f.adminTok, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, path, f.aliceTok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, ts.mr.Exists(cache.SoftwareKey(f.jira.ID)))

	resp, _ = ts.do(t, http.MethodGet, fmt.Sprintf("/api/requests/%d", pending.ID), f.mgrTok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
