package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/repertoire/internal/logger"
	"github.com/hailam/repertoire/internal/repertoire"
)

// Storage keys
const (
	keyEdgePrefix  = "edge/"
	keyPrefsPrefix = "prefs/"
	keyEdgeSeq     = "seq/edges"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// UserPreferences stores the settings a user chose for practice.
type UserPreferences struct {
	Settings  repertoire.Settings `json:"settings"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// DefaultPreferences returns default user preferences
func DefaultPreferences() *UserPreferences {
	return &UserPreferences{
		Settings: repertoire.Settings{RecommendInterval: 1},
	}
}

// Config selects where and how the database is opened.
type Config struct {
	// Dir is the data directory; the platform data directory when empty.
	Dir string
	// InMemory keeps everything in RAM. Useful for tests.
	InMemory   bool
	SyncWrites bool
	// Defaults are returned for users without saved preferences.
	Defaults *UserPreferences
	Log      *logger.Logger
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db       *badger.DB
	seq      *badger.Sequence
	defaults UserPreferences
}

// badgerLogger adapts our logger to BadgerDB's Logger interface.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Storage, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbDir, err := GetDatabaseDir(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("storage: database dir: %w", err)
		}
		opts = badger.DefaultOptions(dbDir).WithSyncWrites(cfg.SyncWrites)
	}
	if cfg.Log != nil {
		opts.Logger = badgerLogger{log: cfg.Log.With("component", "badger")}
	} else {
		opts.Logger = nil // Disable logging
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	seq, err := db.GetSequence([]byte(keyEdgeSeq), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: edge sequence: %w", err)
	}

	defaults := DefaultPreferences()
	if cfg.Defaults != nil {
		defaults = cfg.Defaults
	}

	return &Storage{db: db, seq: seq, defaults: *defaults}, nil
}

// OpenInMemory opens a throwaway in-memory database.
func OpenInMemory() (*Storage, error) {
	return Open(Config{InMemory: true})
}

// Close closes the database
func (s *Storage) Close() error {
	if s.seq != nil {
		_ = s.seq.Release()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func edgePrefix(userID string) []byte {
	return []byte(keyEdgePrefix + userID + "/")
}

func edgeKey(userID string, id int64) []byte {
	// Zero padded so keys iterate in id order.
	return []byte(fmt.Sprintf("%s%s/%020d", keyEdgePrefix, userID, id))
}

func prefsKey(userID string) []byte {
	return []byte(keyPrefsPrefix + userID)
}

// FetchAll returns every edge stored for the user, ordered by id.
func (s *Storage) FetchAll(ctx context.Context, userID string) ([]repertoire.MoveEdge, error) {
	var edges []repertoire.MoveEdge

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = edgePrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e repertoire.MoveEdge
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			edges = append(edges, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: fetch edges: %w", err)
	}

	return edges, nil
}

// Edge loads one edge.
func (s *Storage) Edge(ctx context.Context, userID string, id int64) (repertoire.MoveEdge, error) {
	var e repertoire.MoveEdge

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(edgeKey(userID, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})

	return e, err
}

// SaveEdges stores edges for the user, assigning ids to edges without one.
// The stored edges are returned with their ids.
func (s *Storage) SaveEdges(ctx context.Context, userID string, edges []repertoire.MoveEdge) ([]repertoire.MoveEdge, error) {
	saved := make([]repertoire.MoveEdge, len(edges))
	copy(saved, edges)

	for i := range saved {
		if saved[i].ID != 0 {
			continue
		}
		next, err := s.seq.Next()
		if err != nil {
			return nil, fmt.Errorf("storage: next edge id: %w", err)
		}
		// Sequences start at 0; edge ids start at 1.
		saved[i].ID = int64(next) + 1
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, e := range saved {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := txn.Set(edgeKey(userID, e.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: save edges: %w", err)
	}

	return saved, nil
}

// DeleteEdge removes one edge. Deleting a missing edge returns ErrNotFound.
func (s *Storage) DeleteEdge(ctx context.Context, userID string, id int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := edgeKey(userID, id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// SavePreferences saves user preferences
func (s *Storage) SavePreferences(ctx context.Context, userID string, prefs *UserPreferences) error {
	prefs.UpdatedAt = time.Now()

	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(prefsKey(userID), data)
	})
}

// LoadPreferences loads user preferences, returns defaults if not found
func (s *Storage) LoadPreferences(ctx context.Context, userID string) (*UserPreferences, error) {
	prefs := s.defaults

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefsKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &prefs)
		})
	})

	return &prefs, err
}

// Settings returns the user's recommendation settings.
func (s *Storage) Settings(ctx context.Context, userID string) (repertoire.Settings, error) {
	prefs, err := s.LoadPreferences(ctx, userID)
	if err != nil {
		return repertoire.Settings{}, fmt.Errorf("storage: load preferences: %w", err)
	}
	return prefs.Settings, nil
}
