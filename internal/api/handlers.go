// Package api exposes the repertoire service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hailam/repertoire/internal/board"
	"github.com/hailam/repertoire/internal/logger"
	"github.com/hailam/repertoire/internal/pgnimport"
	"github.com/hailam/repertoire/internal/repertoire"
	"github.com/hailam/repertoire/internal/storage"
)

// SessionHeader carries the practice session id.
const SessionHeader = "X-Session-ID"

// maxImportBytes caps an uploaded PGN body.
const maxImportBytes = 8 << 20

// PreferenceStore reads and writes per-user settings.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context, userID string) (*storage.UserPreferences, error)
	SavePreferences(ctx context.Context, userID string, prefs *storage.UserPreferences) error
}

// EdgeStore reads, writes and deletes a user's stored edges.
type EdgeStore interface {
	pgnimport.Store
	Edge(ctx context.Context, userID string, id int64) (repertoire.MoveEdge, error)
	DeleteEdge(ctx context.Context, userID string, id int64) error
}

// RepertoireHandler serves the practice views, sessions, import and
// preferences of one user.
type RepertoireHandler struct {
	log   *logger.Logger
	svc   *repertoire.Service
	store EdgeStore
	prefs PreferenceStore
}

// NewRepertoireHandler builds the handler. store and prefs may be nil, which
// disables the import, delete and preference routes.
func NewRepertoireHandler(log *logger.Logger, svc *repertoire.Service, store EdgeStore, prefs PreferenceStore) *RepertoireHandler {
	return &RepertoireHandler{
		log:   logger.OrNop(log).With("handler", "RepertoireHandler"),
		svc:   svc,
		store: store,
		prefs: prefs,
	}
}

type groupsResponse struct {
	Groups []repertoire.PositionGroup `json:"groups"`
}

type linesResponse struct {
	Lines []repertoire.Line `json:"lines"`
}

type recommendedResponse struct {
	SessionID string                     `json:"session_id"`
	Groups    []repertoire.PositionGroup `json:"groups"`
}

type roadmapResponse struct {
	Color   board.Color                `json:"color"`
	Entries []*repertoire.RoadmapEntry `json:"entries"`
}

// respondGroups writes groups, or one line per grouped move when the
// request asks for ?flat=true.
func (h *RepertoireHandler) respondGroups(c *gin.Context, groups []repertoire.PositionGroup, err error) {
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	flat, perr := strconv.ParseBool(c.DefaultQuery("flat", "false"))
	if perr != nil {
		RespondError(c, http.StatusBadRequest, "invalid_flat", perr)
		return
	}
	if flat {
		lines := repertoire.Flatten(groups)
		if lines == nil {
			lines = []repertoire.Line{}
		}
		RespondOK(c, linesResponse{Lines: lines})
		return
	}
	if groups == nil {
		groups = []repertoire.PositionGroup{}
	}
	RespondOK(c, groupsResponse{Groups: groups})
}

// GET /users/:user/lines/white
func (h *RepertoireHandler) WhiteLines(c *gin.Context) {
	groups, err := h.svc.WhiteLines(c.Request.Context(), c.Param("user"))
	h.respondGroups(c, groups, err)
}

// GET /users/:user/lines/black
func (h *RepertoireHandler) BlackLines(c *gin.Context) {
	groups, err := h.svc.BlackLines(c.Request.Context(), c.Param("user"))
	h.respondGroups(c, groups, err)
}

// GET /users/:user/lines/new
func (h *RepertoireHandler) NewLines(c *gin.Context) {
	groups, err := h.svc.NewLines(c.Request.Context(), c.Param("user"))
	h.respondGroups(c, groups, err)
}

// GET /users/:user/lines/group/:group
func (h *RepertoireHandler) GroupLines(c *gin.Context) {
	groupID, err := parseID(c.Param("group"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_group_id", err)
		return
	}
	groups, err := h.svc.GroupLines(c.Request.Context(), c.Param("user"), groupID)
	h.respondGroups(c, groups, err)
}

// GET /users/:user/lines/recommended
func (h *RepertoireHandler) RecommendedLines(c *gin.Context) {
	sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}

	refresh := false
	if v := c.Query("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_refresh", err)
			return
		}
		refresh = b
	}

	groups, err := h.svc.RecommendedLines(c.Request.Context(), c.Param("user"), sessionID, refresh)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if groups == nil {
		groups = []repertoire.PositionGroup{}
	}
	recommendedGroups.Observe(float64(len(groups)))

	c.Header(SessionHeader, sessionID)
	RespondOK(c, recommendedResponse{SessionID: sessionID, Groups: groups})
}

// POST /users/:user/sessions/:session/played/:edge
func (h *RepertoireHandler) MarkPlayed(c *gin.Context) {
	sessionID := c.Param("session")
	edgeID, err := parseID(c.Param("edge"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_edge_id", err)
		return
	}
	if err := h.svc.MarkPlayed(c.Request.Context(), c.Param("user"), sessionID, edgeID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /users/:user/sessions/:session
func (h *RepertoireHandler) EndSession(c *gin.Context) {
	if err := h.svc.EndSession(c.Request.Context(), c.Param("user"), c.Param("session")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /users/:user/roadmap?color=&mode=
func (h *RepertoireHandler) Roadmap(c *gin.Context) {
	color, err := board.ParseColor(c.DefaultQuery("color", "white"))
	if err != nil || color == board.NoColor {
		RespondError(c, http.StatusBadRequest, "invalid_color", fmt.Errorf("color must be white or black"))
		return
	}
	mode, err := repertoire.ParseRoadmapMode(c.Query("mode"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_mode", err)
		return
	}

	entries, err := h.svc.Roadmap(c.Request.Context(), c.Param("user"), color, mode)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if entries == nil {
		entries = []*repertoire.RoadmapEntry{}
	}
	RespondOK(c, roadmapResponse{Color: color, Entries: entries})
}

// GET /users/:user/edges/:edge
func (h *RepertoireHandler) Line(c *gin.Context) {
	edgeID, err := parseID(c.Param("edge"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_edge_id", err)
		return
	}
	line, err := h.svc.Line(c.Request.Context(), c.Param("user"), edgeID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	RespondOK(c, line)
}

// GET /users/:user/edges/:edge/next
func (h *RepertoireHandler) NextGroups(c *gin.Context) {
	edgeID, err := parseID(c.Param("edge"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_edge_id", err)
		return
	}
	groups, err := h.svc.NextGroups(c.Request.Context(), c.Param("user"), edgeID)
	h.respondGroups(c, groups, err)
}

// DELETE /users/:user/edges/:edge
func (h *RepertoireHandler) DeleteEdge(c *gin.Context) {
	if h.store == nil {
		RespondError(c, http.StatusNotImplemented, "edges_read_only", errors.New("edge storage is not configured"))
		return
	}
	edgeID, err := parseID(c.Param("edge"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_edge_id", err)
		return
	}

	ctx := c.Request.Context()
	userID := c.Param("user")
	edge, err := h.store.Edge(ctx, userID, edgeID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if err := h.store.DeleteEdge(ctx, userID, edgeID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.log.Info("deleted edge", "user_id", userID, "edge_id", edgeID, "move", edge.Move)
	RespondOK(c, edge)
}

// GET /users/:user/position?fen=&color=
func (h *RepertoireHandler) Position(c *gin.Context) {
	fen := c.Query("fen")
	if board.PositionKey(fen) == "" {
		RespondError(c, http.StatusBadRequest, "invalid_fen", fmt.Errorf("invalid FEN %q", fen))
		return
	}
	color, err := board.ParseColor(c.Query("color"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_color", err)
		return
	}

	group, err := h.svc.FindPosition(c.Request.Context(), c.Param("user"), fen, color)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	RespondOK(c, group)
}

// POST /users/:user/import?color=
func (h *RepertoireHandler) Import(c *gin.Context) {
	if h.store == nil {
		RespondError(c, http.StatusNotImplemented, "import_disabled", errors.New("import is not configured"))
		return
	}
	color, err := board.ParseColor(c.Query("color"))
	if err != nil || color == board.NoColor {
		RespondError(c, http.StatusBadRequest, "invalid_color", fmt.Errorf("color must be white or black"))
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	res, err := pgnimport.Import(c.Request.Context(), h.store, c.Param("user"), body, color)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.log.Info("imported repertoire",
		"user_id", c.Param("user"),
		"color", color,
		"games", res.Games,
		"added", len(res.Added))
	c.JSON(http.StatusCreated, res)
}

// GET /users/:user/preferences
func (h *RepertoireHandler) Preferences(c *gin.Context) {
	if h.prefs == nil {
		RespondError(c, http.StatusNotImplemented, "preferences_disabled", errors.New("preferences are not configured"))
		return
	}
	prefs, err := h.prefs.LoadPreferences(c.Request.Context(), c.Param("user"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	RespondOK(c, prefs)
}

// PUT /users/:user/preferences
func (h *RepertoireHandler) SavePreferences(c *gin.Context) {
	if h.prefs == nil {
		RespondError(c, http.StatusNotImplemented, "preferences_disabled", errors.New("preferences are not configured"))
		return
	}
	var req storage.UserPreferences
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if iv := req.Settings.RecommendInterval; iv < 0 || iv > 3 {
		RespondError(c, http.StatusBadRequest, "invalid_interval", fmt.Errorf("recommend_interval %d out of range [0,3]", iv))
		return
	}
	if err := h.prefs.SavePreferences(c.Request.Context(), c.Param("user"), &req); err != nil {
		h.respondServiceError(c, err)
		return
	}
	RespondOK(c, req)
}

func (h *RepertoireHandler) respondServiceError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, repertoire.ErrEdgeNotFound):
		RespondError(c, http.StatusNotFound, "edge_not_found", err)
	case errors.Is(err, repertoire.ErrPositionNotFound):
		RespondError(c, http.StatusNotFound, "position_not_found", err)
	case errors.Is(err, storage.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pgnimport.ErrNoMoves):
		RespondError(c, http.StatusBadRequest, "no_moves", err)
	case errors.As(err, &maxBytes):
		RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
	case errors.Is(err, pgnimport.ErrInvalidPGN):
		RespondError(c, http.StatusBadRequest, "invalid_pgn", err)
	case errors.Is(err, context.Canceled):
		RespondError(c, 499, "canceled", err)
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}

// parseID parses a positive decimal id.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
