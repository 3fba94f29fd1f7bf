package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// SQLiteCache persists verdict summaries in a local SQLite database so
// they survive restarts. A background goroutine prunes expired rows.
type SQLiteCache struct {
	db     *sql.DB
	logger *zap.Logger
	stopCh chan struct{}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS verdicts (
	fingerprint TEXT PRIMARY KEY,
	score INTEGER NOT NULL,
	tier TEXT NOT NULL,
	confidence REAL NOT NULL,
	last_seen TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verdicts_expires_at ON verdicts(expires_at);
`

// NewSQLiteCache opens (and if needed creates) the database at path and
// starts the cleanup loop.
func NewSQLiteCache(path string, cleanupInterval time.Duration, logger *zap.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open sqlite database %s", path)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to create verdict table")
	}

	c := &SQLiteCache{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c, nil
}

func (c *SQLiteCache) Get(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT fingerprint, score, tier, confidence, last_seen, expires_at
		 FROM verdicts WHERE fingerprint = ? AND expires_at > ?`,
		fingerprint, time.Now())

	var entry core.CacheEntry
	var tier string
	err := row.Scan(&entry.Fingerprint, &entry.Score, &tier, &entry.Confidence, &entry.LastSeen, &entry.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to read cached verdict")
	}
	entry.Tier = core.RiskTier(tier)
	return &entry, nil
}

func (c *SQLiteCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO verdicts (fingerprint, score, tier, confidence, last_seen, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			score = excluded.score,
			tier = excluded.tier,
			confidence = excluded.confidence,
			last_seen = excluded.last_seen,
			expires_at = excluded.expires_at`,
		entry.Fingerprint, entry.Score, string(entry.Tier), entry.Confidence, entry.LastSeen, entry.ExpiresAt)
	if err != nil {
		return eris.Wrap(err, "failed to store cached verdict")
	}
	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM verdicts WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return eris.Wrap(err, "failed to delete cached verdict")
	}
	return nil
}

func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM verdicts WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return eris.Wrap(err, "failed to prune expired verdicts")
	}
	if c.logger != nil {
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			c.logger.Debug("pruned expired verdicts", zap.Int64("count", n))
		}
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	close(c.stopCh)
	return c.db.Close()
}

func (c *SQLiteCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil && c.logger != nil {
				c.logger.Warn("verdict cache cleanup failed", zap.Error(err))
			}
		}
	}
}

var _ core.VerdictCache = (*SQLiteCache)(nil)
