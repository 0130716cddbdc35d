package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "github.com/glebarez/go-sqlite"

	"github.com/BaSui01/promptrouter/internal/metrics"
)

var (
	// ErrCacheMiss is returned by Get when no live entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("cache store is closed")
)

const (
	metadataFile = "cache_metadata.db"
	blobSuffix   = ".blob"
	cacheType    = "fingerprint"

	// NoExpiry can be passed as the TTL to store an entry that never
	// expires by time.
	NoExpiry = time.Duration(-1)
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key            TEXT PRIMARY KEY,
	created_at     INTEGER NOT NULL,
	expires_at     INTEGER,
	access_count   INTEGER NOT NULL DEFAULT 0,
	last_accessed  INTEGER,
	size_bytes     INTEGER NOT NULL DEFAULT 0,
	tags           TEXT NOT NULL DEFAULT '[]',
	blob_reference TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache_entries(expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_last_accessed ON cache_entries(last_accessed);
`

// Config configures the fingerprint store.
type Config struct {
	// Dir holds the metadata database and one blob file per key.
	Dir string `yaml:"dir" json:"dir"`

	// MaxSizeBytes bounds the cumulative blob size. Zero disables
	// capacity eviction.
	MaxSizeBytes int64 `yaml:"max_size_bytes" json:"max_size_bytes"`

	// DefaultTTL applies when Put is called with a zero TTL.
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Dir:          "cache",
		MaxSizeBytes: 100 * 1024 * 1024,
		DefaultTTL:   24 * time.Hour,
	}
}

// Store is a content-addressed result cache: SQLite metadata plus one blob
// file per key. One mutex guards every operation; see the package doc.
type Store struct {
	db        *sql.DB
	config    Config
	logger    *zap.Logger
	collector *metrics.Collector

	mu     sync.Mutex
	closed bool

	// pendingExpired holds keys found expired during lookups; they are
	// physically removed at the start of the next store operation.
	pendingExpired []string

	hits        atomic.Int64
	misses      atomic.Int64
	expirations atomic.Int64
	evictions   atomic.Int64
}

// Open creates or opens a fingerprint store rooted at config.Dir. Expired
// entries left over from previous runs are swept before Open returns. The
// collector may be nil.
func Open(config Config, logger *zap.Logger, collector *metrics.Collector) (*Store, error) {
	if config.Dir == "" {
		return nil, errors.New("cache: dir must not be empty")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(config.Dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("cache: open metadata db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: migrate metadata db: %w", err)
	}

	s := &Store{
		db:        db,
		config:    config,
		logger:    logger.With(zap.String("component", "cache")),
		collector: collector,
	}

	if n := s.sweepExpired(); n > 0 {
		s.logger.Info("expired cache entries removed at startup", zap.Int("count", n))
	}

	s.logger.Info("fingerprint store opened",
		zap.String("dir", config.Dir),
		zap.Int64("max_size_bytes", config.MaxSizeBytes),
		zap.Duration("default_ttl", config.DefaultTTL),
	)

	return s, nil
}

// Get returns the blob stored for key, or ErrCacheMiss. A hit increments the
// entry's access count and stamps last_accessed. An expired entry reports a
// miss and is queued for removal at the next store operation. A metadata row
// whose blob is unreadable is removed and reported as a miss.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	s.drainExpiredLocked()

	var (
		expiresAt sql.NullInt64
		blobRef   string
	)
	err := s.db.QueryRow(
		`SELECT expires_at, blob_reference FROM cache_entries WHERE key = ?`, key,
	).Scan(&expiresAt, &blobRef)
	if errors.Is(err, sql.ErrNoRows) {
		s.recordMiss()
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", shortKey(key), err)
	}

	now := time.Now()
	if stateAt(nullableTime(expiresAt), now) == StateExpired {
		s.pendingExpired = append(s.pendingExpired, key)
		s.logger.Debug("cache entry expired", zap.String("key", shortKey(key)))
		s.recordMiss()
		return nil, ErrCacheMiss
	}

	data, err := os.ReadFile(s.blobPath(blobRef))
	if err != nil {
		// Metadata without a retrievable blob is corruption; self-heal
		// by deleting the row and reporting a miss.
		s.logger.Warn("cache blob unreadable, removing entry",
			zap.String("key", shortKey(key)), zap.Error(err))
		s.removeEntryLocked(key, StateDeleted)
		s.recordMiss()
		return nil, ErrCacheMiss
	}

	if _, err := s.db.Exec(
		`UPDATE cache_entries SET access_count = access_count + 1, last_accessed = ? WHERE key = ?`,
		now.UnixNano(), key,
	); err != nil {
		return nil, fmt.Errorf("cache get %s: %w", shortKey(key), err)
	}

	s.recordHit()
	return data, nil
}

// Put stores blob under key with the given TTL and tags, replacing any
// previous entry for the key. A zero TTL uses the configured default;
// NoExpiry stores the entry without TTL expiry. If storing would push the
// cumulative size over the budget, least-used entries are evicted first. The
// blob and its metadata land together or not at all: a metadata write
// failure removes the already-written blob.
func (s *Store) Put(key string, blob []byte, ttl time.Duration, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.drainExpiredLocked()

	size := int64(len(blob))
	if s.config.MaxSizeBytes > 0 {
		s.evictForLocked(key, size)
	}

	now := time.Now()
	if ttl == 0 {
		ttl = s.config.DefaultTTL
	}
	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: now.Add(ttl).UnixNano(), Valid: true}
	}

	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("cache put %s: encode tags: %w", shortKey(key), err)
	}

	blobRef := key + blobSuffix
	if err := s.writeBlob(blobRef, blob); err != nil {
		return fmt.Errorf("cache put %s: %w", shortKey(key), err)
	}

	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO cache_entries
		 (key, created_at, expires_at, access_count, last_accessed, size_bytes, tags, blob_reference)
		 VALUES (?, ?, ?, 0, NULL, ?, ?, ?)`,
		key, now.UnixNano(), expires, size, string(tagsJSON), blobRef,
	); err != nil {
		// No orphaned blobs: roll the blob back when metadata fails.
		os.Remove(s.blobPath(blobRef))
		return fmt.Errorf("cache put %s: %w", shortKey(key), err)
	}

	s.updateSizeGaugeLocked()
	s.logger.Debug("cache entry stored",
		zap.String("key", shortKey(key)), zap.Int64("size_bytes", size))
	return nil
}

// Delete removes the entry for key if present. Deleting an absent key is not
// an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.drainExpiredLocked()
	s.removeEntryLocked(key, StateDeleted)
	return nil
}

// TotalSize returns the cumulative size_bytes of all live metadata rows.
func (s *Store) TotalSize() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	return s.totalSizeLocked()
}

// FindByTags returns the keys of every entry whose tag set intersects tags.
func (s *Store) FindByTags(tags []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	s.drainExpiredLocked()
	return s.findByTagsLocked(tags)
}

// InvalidateByTags deletes every entry whose tag set intersects tags and
// returns how many entries were removed.
func (s *Store) InvalidateByTags(tags []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	s.drainExpiredLocked()

	keys, err := s.findByTagsLocked(tags)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if s.removeEntryLocked(key, StateDeleted) {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("cache entries invalidated by tags",
			zap.Strings("tags", tags), zap.Int("count", removed))
		s.updateSizeGaugeLocked()
	}
	return removed, nil
}

// Clear removes every entry and every blob.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	blobs, err := filepath.Glob(filepath.Join(s.config.Dir, "*"+blobSuffix))
	if err == nil {
		for _, b := range blobs {
			os.Remove(b)
		}
	}
	s.pendingExpired = nil

	if s.collector != nil {
		s.collector.SetCacheSize(cacheType, 0)
	}
	s.logger.Info("cache cleared")
	return nil
}

// Stats reports store statistics. Hit and miss counts are tracked at
// runtime, not derived from stored access counts.
type Stats struct {
	Entries            int64   `json:"entries"`
	TotalSizeBytes     int64   `json:"total_size_bytes"`
	MaxSizeBytes       int64   `json:"max_size_bytes"`
	UtilizationPercent float64 `json:"utilization_percent"`
	Hits               int64   `json:"hits"`
	Misses             int64   `json:"misses"`
	HitRatio           float64 `json:"hit_ratio"`
	Expirations        int64   `json:"expirations"`
	Evictions          int64   `json:"evictions"`
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var entries int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&entries); err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	total, err := s.totalSizeLocked()
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Entries:        entries,
		TotalSizeBytes: total,
		MaxSizeBytes:   s.config.MaxSizeBytes,
		Hits:           s.hits.Load(),
		Misses:         s.misses.Load(),
		Expirations:    s.expirations.Load(),
		Evictions:      s.evictions.Load(),
	}
	if s.config.MaxSizeBytes > 0 {
		st.UtilizationPercent = float64(total) / float64(s.config.MaxSizeBytes) * 100
	}
	if lookups := st.Hits + st.Misses; lookups > 0 {
		st.HitRatio = float64(st.Hits) / float64(lookups)
	}
	return st, nil
}

// Close closes the metadata database. Further operations return
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing fingerprint store")
	return s.db.Close()
}

// --- internals (callers hold s.mu) ---

func (s *Store) totalSizeLocked() (int64, error) {
	var total int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(size_bytes), 0) FROM cache_entries`).Scan(&total); err != nil {
		return 0, fmt.Errorf("cache total size: %w", err)
	}
	return total, nil
}

func (s *Store) findByTagsLocked(tags []string) ([]string, error) {
	rows, err := s.db.Query(`SELECT key, tags FROM cache_entries`)
	if err != nil {
		return nil, fmt.Errorf("cache find by tags: %w", err)
	}
	defer rows.Close()

	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}

	var keys []string
	for rows.Next() {
		var key, tagsJSON string
		if err := rows.Scan(&key, &tagsJSON); err != nil {
			return nil, fmt.Errorf("cache find by tags: %w", err)
		}
		var entryTags []string
		if err := json.Unmarshal([]byte(tagsJSON), &entryTags); err != nil {
			continue
		}
		for _, t := range entryTags {
			if _, ok := want[t]; ok {
				keys = append(keys, key)
				break
			}
		}
	}
	return keys, rows.Err()
}

func (s *Store) blobPath(blobRef string) string {
	return filepath.Join(s.config.Dir, blobRef)
}

// writeBlob writes atomically via a temp file and rename, so a replaced
// entry never exposes a half-written blob.
func (s *Store) writeBlob(blobRef string, blob []byte) error {
	tmp, err := os.CreateTemp(s.config.Dir, blobRef+".tmp*")
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmpName, s.blobPath(blobRef)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (s *Store) updateSizeGaugeLocked() {
	if s.collector == nil {
		return
	}
	if total, err := s.totalSizeLocked(); err == nil {
		s.collector.SetCacheSize(cacheType, total)
	}
}

func (s *Store) recordHit() {
	s.hits.Add(1)
	if s.collector != nil {
		s.collector.RecordCacheHit(cacheType)
	}
}

func (s *Store) recordMiss() {
	s.misses.Add(1)
	if s.collector != nil {
		s.collector.RecordCacheMiss(cacheType)
	}
}

func nullableTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64)
	return &t
}

func shortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}
