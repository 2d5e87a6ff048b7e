package repertoire

import (
	"context"
	"fmt"

	"github.com/hailam/repertoire/internal/board"
	"github.com/hailam/repertoire/internal/eco"
	"github.com/hailam/repertoire/internal/explorer"
	"github.com/hailam/repertoire/internal/logger"
)

// EdgeSource supplies a fresh snapshot of a user's edges.
type EdgeSource interface {
	FetchAll(ctx context.Context, userID string) ([]MoveEdge, error)
}

// SettingsSource supplies a user's recommendation settings.
type SettingsSource interface {
	Settings(ctx context.Context, userID string) (Settings, error)
}

// SessionCache keeps a session's recommended set between requests. The
// Service passes keys scoped to the user, so sessions never cross users.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) ([]PositionGroup, bool, error)
	Set(ctx context.Context, sessionID string, groups []PositionGroup) error
	MarkPlayed(ctx context.Context, sessionID string, edgeID int64) error
	Clear(ctx context.Context, sessionID string) error
}

// Deps are the collaborators of a Service. Eco and Responses are optional.
type Deps struct {
	Edges     EdgeSource
	Settings  SettingsSource
	Cache     SessionCache
	Eco       eco.Lookup
	Responses explorer.Source
	// MinResponseShare overrides DefaultMinResponseShare when positive.
	MinResponseShare float64
	Log              *logger.Logger
}

// Service is the surface the presentation layer talks to. Every call builds
// its own tree from a fresh snapshot.
type Service struct {
	edges     EdgeSource
	settings  SettingsSource
	cache     SessionCache
	eco       eco.Lookup
	responses explorer.Source
	minShare  float64
	log       *logger.Logger
}

// NewService checks deps and builds a Service. Edges and Cache are required.
func NewService(deps Deps) (*Service, error) {
	if deps.Edges == nil {
		return nil, fmt.Errorf("edge source required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("session cache required")
	}
	return &Service{
		edges:     deps.Edges,
		settings:  deps.Settings,
		cache:     deps.Cache,
		eco:       deps.Eco,
		responses: deps.Responses,
		minShare:  deps.MinResponseShare,
		log:       logger.OrNop(deps.Log).With("service", "RepertoireService"),
	}, nil
}

func (s *Service) forest(ctx context.Context, userID string, color board.Color) ([]*TreeNode, error) {
	edges, err := s.edges.FetchAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch edges: %w", err)
	}
	forest := BuildForest(edges, color)
	s.log.Debug("built forest",
		"user_id", userID,
		"color", color,
		"edges", len(edges),
		"nodes", CountNodes(forest))
	return forest, nil
}

// hitRater is implemented by caches that count their own hits.
type hitRater interface {
	HitRate() float64
}

// WhiteLines returns the white repertoire grouped by position.
func (s *Service) WhiteLines(ctx context.Context, userID string) ([]PositionGroup, error) {
	return s.colorLines(ctx, userID, board.White)
}

// BlackLines returns the black repertoire grouped by position.
func (s *Service) BlackLines(ctx context.Context, userID string) ([]PositionGroup, error) {
	return s.colorLines(ctx, userID, board.Black)
}

func (s *Service) colorLines(ctx context.Context, userID string, color board.Color) ([]PositionGroup, error) {
	forest, err := s.forest(ctx, userID, color)
	if err != nil {
		return nil, err
	}
	// Positions may reappear under distinct ids here.
	return GroupByPosition(SelectLines(forest, ColorEquals(color), false)), nil
}

// NewLines returns the never-practised moves of both colors.
func (s *Service) NewLines(ctx context.Context, userID string) ([]PositionGroup, error) {
	forest, err := s.forest(ctx, userID, board.NoColor)
	if err != nil {
		return nil, err
	}
	return GroupByPosition(SelectLines(forest, IsNew(), true)), nil
}

// GroupLines returns the moves tagged with a group.
func (s *Service) GroupLines(ctx context.Context, userID string, groupID int64) ([]PositionGroup, error) {
	forest, err := s.forest(ctx, userID, board.NoColor)
	if err != nil {
		return nil, err
	}
	return GroupByPosition(SelectLines(forest, InGroup(groupID), true)), nil
}

// RecommendedLines returns the session's practice set, assembling and
// caching it on first use or when refresh is set.
func (s *Service) RecommendedLines(ctx context.Context, userID, sessionID string, refresh bool) ([]PositionGroup, error) {
	log := s.log.With("user_id", userID, "session_id", sessionID)
	key := sessionKey(userID, sessionID)

	if refresh {
		if err := s.cache.Clear(ctx, key); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
	} else {
		groups, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			// The set can always be rebuilt.
			log.Warn("session cache read failed", "error", err)
		} else if ok {
			return groups, nil
		}
	}

	settings, err := s.userSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	forest, err := s.forest(ctx, userID, board.NoColor)
	if err != nil {
		return nil, err
	}

	set := Recommend(forest, settings)
	log.Debug("assembled recommended set",
		"candidates", set.Candidates,
		"target_size", set.TargetSize,
		"our_moves", set.OurMoveCount,
		"groups", len(set.Groups))
	if hr, ok := s.cache.(hitRater); ok {
		log.Debug("session cache", "hit_rate", hr.HitRate())
	}

	if err := s.cache.Set(ctx, key, set.Groups); err != nil {
		log.Warn("session cache write failed", "error", err)
	}
	return set.Groups, nil
}

func (s *Service) userSettings(ctx context.Context, userID string) (Settings, error) {
	if s.settings == nil {
		return Settings{}, nil
	}
	settings, err := s.settings.Settings(ctx, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// sessionKey scopes a session id to its user.
func sessionKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}

// MarkPlayed records that a move was played in the user's session.
func (s *Service) MarkPlayed(ctx context.Context, userID, sessionID string, edgeID int64) error {
	if err := s.cache.MarkPlayed(ctx, sessionKey(userID, sessionID), edgeID); err != nil {
		return fmt.Errorf("mark played: %w", err)
	}
	return nil
}

// EndSession drops the session's recommended set.
func (s *Service) EndSession(ctx context.Context, userID, sessionID string) error {
	if err := s.cache.Clear(ctx, sessionKey(userID, sessionID)); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Roadmap classifies one color's repertoire into opening entries.
func (s *Service) Roadmap(ctx context.Context, userID string, color board.Color, mode RoadmapMode) ([]*RoadmapEntry, error) {
	forest, err := s.forest(ctx, userID, color)
	if err != nil {
		return nil, err
	}
	entries, err := BuildRoadmap(ctx, forest, s.eco, RoadmapOptions{
		Mode:             mode,
		MinResponseShare: s.minShare,
		Responses:        s.responses,
		Log:              s.log,
	})
	if err != nil {
		return nil, err
	}
	if st, ok := s.responses.(interface {
		hitRater
		CacheSize() int
	}); ok {
		s.log.Debug("explorer cache", "hit_rate", st.HitRate(), "positions", st.CacheSize())
	}
	return entries, nil
}

// Line returns one edge with the moves leading to it and its continuation.
func (s *Service) Line(ctx context.Context, userID string, edgeID int64) (Line, error) {
	forest, err := s.forest(ctx, userID, board.NoColor)
	if err != nil {
		return Line{}, err
	}
	line, ok := FindLine(forest, edgeID)
	if !ok {
		return Line{}, ErrEdgeNotFound
	}
	return line, nil
}

// NextGroups returns the level below an edge: the positions where the edge's
// side is next to move, each with its choice set.
func (s *Service) NextGroups(ctx context.Context, userID string, edgeID int64) ([]PositionGroup, error) {
	forest, err := s.forest(ctx, userID, board.NoColor)
	if err != nil {
		return nil, err
	}
	node := findNode(forest, edgeID)
	if node == nil {
		return nil, ErrEdgeNotFound
	}
	return NextGroups(node), nil
}

// FindPosition returns the repertoire moves from fen. board.NoColor searches
// both colors.
func (s *Service) FindPosition(ctx context.Context, userID, fen string, color board.Color) (PositionGroup, error) {
	forest, err := s.forest(ctx, userID, color)
	if err != nil {
		return PositionGroup{}, err
	}
	g, ok := FindPosition(fen, forest)
	if !ok {
		return PositionGroup{}, ErrPositionNotFound
	}
	return g, nil
}
