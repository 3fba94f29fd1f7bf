package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// MySQLCache persists verdict summaries in MySQL for deployments that
// share a cache across several filter instances.
type MySQLCache struct {
	db     *sql.DB
	logger *zap.Logger
	stopCh chan struct{}
}

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS verdicts (
	fingerprint VARCHAR(64) PRIMARY KEY,
	score INT NOT NULL,
	tier VARCHAR(16) NOT NULL,
	confidence DOUBLE NOT NULL,
	last_seen TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL,
	INDEX idx_verdicts_expires_at (expires_at)
)`

// NewMySQLCache connects with the standard DSN format
// user:pass@tcp(host:port)/dbname and starts the cleanup loop.
func NewMySQLCache(host string, port int, database, username, password string, cleanupInterval time.Duration, logger *zap.Logger) (*MySQLCache, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", username, password, host, port, database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open mysql connection")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "failed to reach mysql at %s:%d", host, port)
	}
	if _, err := db.Exec(mysqlSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to create verdict table")
	}

	c := &MySQLCache{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c, nil
}

func (c *MySQLCache) Get(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT fingerprint, score, tier, confidence, last_seen, expires_at
		 FROM verdicts WHERE fingerprint = ? AND expires_at > NOW()`,
		fingerprint)

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

func (c *MySQLCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO verdicts (fingerprint, score, tier, confidence, last_seen, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
			score = VALUES(score),
			tier = VALUES(tier),
			confidence = VALUES(confidence),
			last_seen = VALUES(last_seen),
			expires_at = VALUES(expires_at)`,
		entry.Fingerprint, entry.Score, string(entry.Tier), entry.Confidence, entry.LastSeen, entry.ExpiresAt)
	if err != nil {
		return eris.Wrap(err, "failed to store cached verdict")
	}
	return nil
}

func (c *MySQLCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM verdicts WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return eris.Wrap(err, "failed to delete cached verdict")
	}
	return nil
}

func (c *MySQLCache) Cleanup(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM verdicts WHERE expires_at <= NOW()`)
	if err != nil {
		return eris.Wrap(err, "failed to prune expired verdicts")
	}
	return nil
}

func (c *MySQLCache) Close() error {
	close(c.stopCh)
	return c.db.Close()
}

func (c *MySQLCache) cleanupLoop(interval time.Duration) {
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

var _ core.VerdictCache = (*MySQLCache)(nil)
