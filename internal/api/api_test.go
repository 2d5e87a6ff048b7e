package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/repertoire/internal/board"
	"github.com/hailam/repertoire/internal/logger"
	"github.com/hailam/repertoire/internal/pgnimport"
	"github.com/hailam/repertoire/internal/repertoire"
	"github.com/hailam/repertoire/internal/session"
	"github.com/hailam/repertoire/internal/storage"
)

const italian = `[Event "Repertoire"]
[Result "*"]

1. e4 e5 2. Nf3 Nc6 3. Bc4 *
`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc, err := repertoire.NewService(repertoire.Deps{
		Edges:    store,
		Settings: store,
		Cache:    session.NewMemoryCache(0),
		Log:      logger.Nop(),
	})
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		Log:               logger.Nop(),
		RepertoireHandler: NewRepertoireHandler(logger.Nop(), svc, store, store),
		HealthHandler:     NewHealthHandler(),
	})
}

func do(r http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func importItalian(t *testing.T, r http.Handler) pgnimport.Result {
	t.Helper()
	w := do(r, http.MethodPost, "/api/v1/users/alice/import?color=white", italian, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[pgnimport.Result](t, w)
}

type groupsBody struct {
	Groups []struct {
		Fen   string      `json:"fen"`
		Color board.Color `json:"color"`
		Moves []struct {
			Edge repertoire.MoveEdge `json:"edge"`
		} `json:"moves"`
	} `json:"groups"`
	SessionID string `json:"session_id"`
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = do(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestImportAndLines(t *testing.T) {
	r := newTestRouter(t)

	res := importItalian(t, r)
	assert.Equal(t, 1, res.Games)
	require.Len(t, res.Added, 5)

	// Importing again adds nothing.
	w := do(r, http.MethodPost, "/api/v1/users/alice/import?color=white", italian, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, decode[pgnimport.Result](t, w).Added)

	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/white", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	white := decode[groupsBody](t, w)
	require.Len(t, white.Groups, 1)
	assert.Equal(t, board.White, white.Groups[0].Color)
	assert.Equal(t, "e4", white.Groups[0].Moves[0].Edge.Move)

	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/black", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[groupsBody](t, w).Groups)

	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/new", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[groupsBody](t, w).Groups, 1)
}

func TestImportErrors(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/users/alice/import?color=green", italian, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_color", decode[ErrorEnvelope](t, w).Error.Code)

	w = do(r, http.MethodPost, "/api/v1/users/alice/import?color=black", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_moves", decode[ErrorEnvelope](t, w).Error.Code)
}

func TestRecommendedSession(t *testing.T) {
	r := newTestRouter(t)
	res := importItalian(t, r)

	w := do(r, http.MethodGet, "/api/v1/users/alice/lines/recommended", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[groupsBody](t, w)
	_, err := uuid.Parse(body.SessionID)
	require.NoError(t, err)
	assert.Equal(t, body.SessionID, w.Header().Get(SessionHeader))
	require.Len(t, body.Groups, 1)

	header := http.Header{SessionHeader: []string{body.SessionID}}
	for _, e := range res.Added {
		if !e.IsOurs() {
			continue
		}
		w = do(r, http.MethodPost, fmt.Sprintf("/api/v1/users/alice/sessions/%s/played/%d", body.SessionID, e.ID), "", nil)
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	// Everything was played, so the next request starts a fresh set.
	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/recommended", "", header)
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[groupsBody](t, w)
	assert.Equal(t, body.SessionID, again.SessionID)
	assert.Len(t, again.Groups, 1)

	w = do(r, http.MethodDelete, "/api/v1/users/alice/sessions/"+body.SessionID, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/recommended", "", http.Header{SessionHeader: []string{"not-a-uuid"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/recommended?refresh=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/users/alice/sessions/"+body.SessionID+"/played/zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLineAndPosition(t *testing.T) {
	r := newTestRouter(t)
	res := importItalian(t, r)
	nf3 := res.Added[2]
	require.Equal(t, "Nf3", nf3.Move)

	w := do(r, http.MethodGet, fmt.Sprintf("/api/v1/users/alice/edges/%d", nf3.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	line := decode[struct {
		Move       string   `json:"move"`
		PriorMoves []string `json:"prior_moves"`
	}](t, w)
	assert.Equal(t, "Nf3", line.Move)
	assert.Equal(t, []string{"e4", "e5"}, line.PriorMoves)

	w = do(r, http.MethodGet, "/api/v1/users/alice/edges/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "edge_not_found", decode[ErrorEnvelope](t, w).Error.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/edges/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/position?fen="+url.QueryEscape(board.StartFEN), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	group := decode[struct {
		Moves []struct {
			Edge repertoire.MoveEdge `json:"edge"`
		} `json:"moves"`
	}](t, w)
	require.Len(t, group.Moves, 1)
	assert.Equal(t, "e4", group.Moves[0].Edge.Move)

	w = do(r, http.MethodGet, "/api/v1/users/alice/position?fen=nonsense", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/position?color=black&fen="+url.QueryEscape(board.StartFEN), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNextGroupsAndDeleteEdge(t *testing.T) {
	r := newTestRouter(t)
	res := importItalian(t, r)
	e4, nf3, bc4 := res.Added[0], res.Added[2], res.Added[4]
	require.Equal(t, "Bc4", bc4.Move)

	w := do(r, http.MethodGet, fmt.Sprintf("/api/v1/users/alice/edges/%d/next", e4.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	next := decode[groupsBody](t, w)
	require.Len(t, next.Groups, 1)
	assert.Equal(t, nf3.FenBefore, next.Groups[0].Fen)
	require.Len(t, next.Groups[0].Moves, 1)
	assert.Equal(t, "Nf3", next.Groups[0].Moves[0].Edge.Move)

	w = do(r, http.MethodGet, "/api/v1/users/alice/edges/999/next", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/white?flat=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	flat := decode[struct {
		Lines []struct {
			Move         string `json:"move"`
			OurMoveCount int    `json:"our_move_count"`
		} `json:"lines"`
	}](t, w)
	require.Len(t, flat.Lines, 1)
	assert.Equal(t, "e4", flat.Lines[0].Move)
	assert.Equal(t, 3, flat.Lines[0].OurMoveCount)

	w = do(r, http.MethodGet, "/api/v1/users/alice/lines/white?flat=sometimes", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, fmt.Sprintf("/api/v1/users/alice/edges/%d", bc4.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Bc4", decode[repertoire.MoveEdge](t, w).Move)

	w = do(r, http.MethodDelete, fmt.Sprintf("/api/v1/users/alice/edges/%d", bc4.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, fmt.Sprintf("/api/v1/users/alice/edges/%d/next", nf3.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[groupsBody](t, w).Groups)
}

func TestRoadmap(t *testing.T) {
	r := newTestRouter(t)
	importItalian(t, r)

	w := do(r, http.MethodGet, "/api/v1/users/alice/roadmap?color=white", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Color   board.Color `json:"color"`
		Entries []struct {
			Move         string `json:"move"`
			OurMoveCount int    `json:"our_move_count"`
		} `json:"entries"`
	}](t, w)
	assert.Equal(t, board.White, body.Color)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "e4", body.Entries[0].Move)
	assert.Equal(t, 3, body.Entries[0].OurMoveCount)

	w = do(r, http.MethodGet, "/api/v1/users/alice/roadmap?color=green", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/roadmap?mode=zigzag", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreferences(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/users/alice/preferences", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[storage.UserPreferences](t, w).Settings.RecommendInterval)

	w = do(r, http.MethodPut, "/api/v1/users/alice/preferences", `{"settings":{"recommend_interval":3}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/alice/preferences", "", nil)
	assert.Equal(t, 3, decode[storage.UserPreferences](t, w).Settings.RecommendInterval)

	w = do(r, http.MethodPut, "/api/v1/users/alice/preferences", `{"settings":{"recommend_interval":9}}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
