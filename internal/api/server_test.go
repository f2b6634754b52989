package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-frontier/internal/config"
	"github.com/JakeFAU/crawl-frontier/internal/coordinator"
	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	"github.com/JakeFAU/crawl-frontier/internal/frontier/memory"
	memorypublisher "github.com/JakeFAU/crawl-frontier/internal/publisher/memory"
)

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	coord := coordinator.New(
		memory.NewAttributeStore(),
		memory.NewStatusIndex(),
		memory.NewQueue(),
		memory.NewQueue(),
		memory.NewBudgetLedger(2),
		memory.NewWordGraph(64),
		frontier.NewBlacklist([]string{"pinterest.com"}),
		memorypublisher.New(),
		nil,
		coordinator.Config{},
		zap.NewNop(),
	)
	return NewServer(coord, cfg, zap.NewNop())
}

func doJSON(t *testing.T, server *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_LinkLifecycle(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/links", `{"url":"https://www.example.com/recipes/1","priority":2}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/links/claim", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var claim map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claim))
	require.Equal(t, "https://www.example.com/recipes/1", claim["url"])
	require.Equal(t, "processing", claim["status"])

	rec = doJSON(t, server, http.MethodPost, "/v1/links/complete",
		`{"url":"https://www.example.com/recipes/1","outcome":"processed","attributes":{"content_size":"2048"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/links/status?url=https://www.example.com/recipes/1", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "processed")

	req = httptest.NewRequest(http.MethodGet, "/v1/links/attributes?url=https://www.example.com/recipes/1", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "2048")
}

func TestServer_ClaimEmptyReturnsNoContent(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})
	rec := doJSON(t, server, http.MethodPost, "/v1/links/claim", `{}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_EnqueueValidation(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/links", `{invalid`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/links", `{"priority":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/links", `{"url":"https://pinterest.com/pin/1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_CompleteConflicts(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/links", `{"url":"https://a.com/1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Completing before a claim is a coordination bug: 409.
	rec = doJSON(t, server, http.MethodPost, "/v1/links/complete", `{"url":"https://a.com/1","outcome":"processed"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Unknown outcome string: 400.
	rec = doJSON(t, server, http.MethodPost, "/v1/links/complete", `{"url":"https://a.com/1","outcome":"exploded"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown entity: 404.
	rec = doJSON(t, server, http.MethodPost, "/v1/links/complete", `{"url":"https://missing.com/","outcome":"processed"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_WordRoutes(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/words", `{"word":"flour","parent":"None","priority":1}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = doJSON(t, server, http.MethodPost, "/v1/words", `{"word":"bread","parent":"flour","priority":2}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// A self-parent is a graph violation: 422.
	rec = doJSON(t, server, http.MethodPost, "/v1/words", `{"word":"loop","parent":"loop"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/words/chain?word=bread", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "flour")

	rec = doJSON(t, server, http.MethodPost, "/v1/words/claim", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bread")

	rec = doJSON(t, server, http.MethodPost, "/v1/words/complete", `{"word":"bread","outcome":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_StatsAndListing(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/links", `{"url":"https://a.com/1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = doJSON(t, server, http.MethodPost, "/v1/links", `{"url":"https://b.com/1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/links?status=waiting", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.IDs, 2)

	req = httptest.NewRequest(http.MethodGet, "/v1/links?status=nonsense", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats coordinator.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, int64(2), stats.Links[frontier.StatusWaiting])
	require.Equal(t, 2, stats.ActiveDomains)
}

func TestServer_FollowBudget(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/links/follow", `{"url":"https://a.com/1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"remaining":1}`, rec.Body.String())

	rec = doJSON(t, server, http.MethodPost, "/v1/links/follow", `{"url":"https://a.com/1"}`)
	require.JSONEq(t, `{"remaining":0}`, rec.Body.String())
	rec = doJSON(t, server, http.MethodPost, "/v1/links/follow", `{"url":"https://a.com/1"}`)
	require.JSONEq(t, `{"remaining":0}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/v1/links/budget?url=https://b.com/1", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"remaining":2}`, rec.Body.String())
}

func TestServer_RequeueStuck(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, config.Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/links", `{"url":"https://a.com/1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = doJSON(t, server, http.MethodPost, "/v1/links/claim", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/admin/requeue-stuck", `{"kind":"link"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"requeued":1}`, rec.Body.String())

	rec = doJSON(t, server, http.MethodPost, "/v1/admin/requeue-stuck", `{"kind":"recipe"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_APIKeyGate(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret"
	server := newTestServer(t, cfg)

	rec := doJSON(t, server, http.MethodPost, "/v1/links", `{"url":"https://a.com/1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/links", bytes.NewBufferString(`{"url":"https://a.com/1"}`))
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Health endpoints stay open.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
