package tokenstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
)

const tokenKey = "active_session"

// Store keeps the active session identifier with a fixed expiry, backed by a
// JSON snapshot on disk so the session survives process restarts the way a
// browser-storage slot survives page reloads. The snapshot honors the same
// TTL: a stale file is as good as no file.
type Store struct {
	cache *cache.Cache
	path  string
	ttl   time.Duration
	log   *slog.Logger

	now func() time.Time
}

type snapshot struct {
	SessionID string    `json:"session_id"`
	SavedAt   time.Time `json:"saved_at"`
}

func New(path string, ttl time.Duration, log *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		cache: cache.New(ttl, 10*time.Minute),
		path:  path,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

func (s *Store) Put(sessionID string) {
	s.cache.Set(tokenKey, sessionID, cache.DefaultExpiration)
	if s.path == "" {
		return
	}

	data, err := json.Marshal(snapshot{SessionID: sessionID, SavedAt: s.now().UTC()})
	if err != nil {
		s.log.Warn("token_snapshot_marshal_failed", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn("token_snapshot_dir_failed", "path", s.path, "error", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.log.Warn("token_snapshot_write_failed", "path", s.path, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn("token_snapshot_rename_failed", "path", s.path, "error", err)
	}
}

func (s *Store) Get() (string, bool) {
	if v, found := s.cache.Get(tokenKey); found {
		if id, ok := v.(string); ok && id != "" {
			return id, true
		}
	}
	return s.restore()
}

func (s *Store) Clear() {
	s.cache.Delete(tokenKey)
	if s.path == "" {
		return
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("token_snapshot_remove_failed", "path", s.path, "error", err)
	}
}

// restore loads the on-disk snapshot after a cache miss, typically right
// after startup. An expired or unreadable snapshot is discarded.
func (s *Store) restore() (string, bool) {
	if s.path == "" {
		return "", false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("token_snapshot_read_failed", "path", s.path, "error", err)
		}
		return "", false
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.SessionID == "" {
		s.log.Warn("token_snapshot_corrupt", "path", s.path)
		s.Clear()
		return "", false
	}

	remaining := s.ttl - s.now().Sub(snap.SavedAt)
	if remaining <= 0 {
		s.Clear()
		return "", false
	}

	s.cache.Set(tokenKey, snap.SessionID, remaining)
	return snap.SessionID, true
}
