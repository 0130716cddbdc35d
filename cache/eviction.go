package cache

import (
	"database/sql"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"
)

// sweepExpired eagerly removes every entry whose TTL has already passed.
// Runs once at store startup; afterwards expiration is lazy.
func (s *Store) sweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT key FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at < ?`,
		time.Now().UnixNano(),
	)
	if err != nil {
		s.logger.Error("expired entry sweep failed", zap.Error(err))
		return 0
	}

	var expired []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			break
		}
		expired = append(expired, key)
	}
	rows.Close()

	removed := 0
	for _, key := range expired {
		if s.removeEntryLocked(key, StateExpired) {
			s.expirations.Add(1)
			removed++
		}
	}
	return removed
}

// drainExpiredLocked physically removes entries queued by earlier lookups
// that found them expired. Runs at the start of every store operation, which
// is what makes lazy expiration converge: an expired entry is gone by the
// lookup after the one that noticed it.
func (s *Store) drainExpiredLocked() {
	if len(s.pendingExpired) == 0 {
		return
	}
	keys := s.pendingExpired
	s.pendingExpired = nil

	now := time.Now()
	for _, key := range keys {
		// Re-check before removing: the key may have been re-stored
		// with a fresh TTL since it was queued.
		var expiresAt sql.NullInt64
		err := s.db.QueryRow(
			`SELECT expires_at FROM cache_entries WHERE key = ?`, key,
		).Scan(&expiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			s.logger.Warn("expired entry re-check failed",
				zap.String("key", shortKey(key)), zap.Error(err))
			continue
		}
		if stateAt(nullableTime(expiresAt), now) != StateExpired {
			continue
		}
		if s.removeEntryLocked(key, StateExpired) {
			s.expirations.Add(1)
		}
	}
}

// evictForLocked frees room for an incoming blob of the given size. Victims
// are selected in ascending access_count, ties broken by ascending
// last_accessed (never-read entries sort first), and removed one at a time
// until the incoming entry fits or no candidates remain. The entry being
// replaced is never its own victim. An entry larger than the whole budget is
// still admitted; there is no rejection path.
func (s *Store) evictForLocked(incomingKey string, incoming int64) {
	total, err := s.totalSizeLocked()
	if err != nil {
		s.logger.Error("capacity check failed", zap.Error(err))
		return
	}
	if total+incoming <= s.config.MaxSizeBytes {
		return
	}

	rows, err := s.db.Query(
		`SELECT key, size_bytes FROM cache_entries WHERE key <> ?
		 ORDER BY access_count ASC, last_accessed ASC`,
		incomingKey,
	)
	if err != nil {
		s.logger.Error("eviction candidate query failed", zap.Error(err))
		return
	}

	type victim struct {
		key  string
		size int64
	}
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.key, &v.size); err != nil {
			break
		}
		victims = append(victims, v)
	}
	rows.Close()

	evicted := 0
	for _, v := range victims {
		if total+incoming <= s.config.MaxSizeBytes {
			break
		}
		if s.removeEntryLocked(v.key, StateEvicted) {
			s.evictions.Add(1)
			total -= v.size
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Info("cache entries evicted for capacity",
			zap.Int("count", evicted), zap.Int64("incoming_bytes", incoming))
	}
}

// removeEntryLocked is the single deletion path every terminal state
// transition funnels through: it deletes the metadata row and the blob and
// records the cause. Returns false when the key has no row.
func (s *Store) removeEntryLocked(key string, cause EntryState) bool {
	var blobRef string
	err := s.db.QueryRow(
		`SELECT blob_reference FROM cache_entries WHERE key = ?`, key,
	).Scan(&blobRef)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.logger.Warn("cache entry lookup for removal failed",
			zap.String("key", shortKey(key)), zap.Error(err))
		return false
	}

	if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		s.logger.Warn("cache entry removal failed",
			zap.String("key", shortKey(key)), zap.Error(err))
		return false
	}
	if err := os.Remove(s.blobPath(blobRef)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("cache blob removal failed",
			zap.String("key", shortKey(key)), zap.Error(err))
	}

	if s.collector != nil {
		s.collector.RecordCacheRemoval(cacheType, cause.String())
	}
	s.logger.Debug("cache entry removed",
		zap.String("key", shortKey(key)), zap.Stringer("cause", cause))
	return true
}
