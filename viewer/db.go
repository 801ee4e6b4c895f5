package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DBCache maintains a cached in-memory DuckDB connection over the
// episode parquet batches, refreshed periodically so new batches show
// up without restarting the viewer.
type DBCache struct {
	roots       []string
	refreshRate time.Duration
	log         *slog.Logger

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time
}

func NewDBCache(roots []string, refreshRate time.Duration, log *slog.Logger) *DBCache {
	return &DBCache{
		roots:       roots,
		refreshRate: refreshRate,
		log:         log,
	}
}

// Get returns the cached DB connection, refreshing if stale.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()

	newDB, err := openDuckDBWithGlobs(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = newDB
	c.lastRefresh = time.Now()
	c.log.Info("db cache refreshed", "elapsed", time.Since(start).String())
	return c.db, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

// openDuckDBWithGlobs builds a view over every episode batch under the
// roots. Glob patterns beat enumerating files, and the tmp/ staging
// directories are filtered out so half-written batches never surface.
func openDuckDBWithGlobs(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, "**", "*.parquet")
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}

	if len(globs) == 0 {
		_, err := db.Exec(`CREATE OR REPLACE VIEW steps AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS episode_id,
					NULL::INTEGER AS step,
					NULL::INTEGER AS sx,
					NULL::INTEGER AS sy,
					NULL::INTEGER AS sz,
					NULL::BIGINT AS seed,
					NULL::REAL[] AS obs,
					NULL::INTEGER AS action,
					NULL::REAL AS reward,
					NULL::BOOLEAN AS done,
					NULL::BOOLEAN AS reached_goal,
					NULL::REAL AS total_reward,
					NULL::VARCHAR AS source,
					NULL::VARCHAR AS model_path,
					NULL::VARCHAR AS filename
			) WHERE 1=0`)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	sqlText := `CREATE OR REPLACE VIEW steps AS
		SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
		WHERE NOT contains(filename, '/tmp/')`
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// EpisodeSummary is one row of the episode listing.
type EpisodeSummary struct {
	EpisodeID   string  `json:"episode_id"`
	Steps       int32   `json:"steps"`
	SX          int32   `json:"sx"`
	SY          int32   `json:"sy"`
	SZ          int32   `json:"sz"`
	Seed        int64   `json:"seed"`
	TotalReward float32 `json:"total_reward"`
	ReachedGoal bool    `json:"reached_goal"`
	Source      string  `json:"source"`
	ModelPath   string  `json:"model_path"`
	SourceFile  string  `json:"file"`
}

func queryEpisodes(ctx context.Context, db *sql.DB, limit, offset int) ([]EpisodeSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			episode_id,
			MAX(step) AS steps,
			ANY_VALUE(sx), ANY_VALUE(sy), ANY_VALUE(sz),
			ANY_VALUE(seed),
			ANY_VALUE(total_reward),
			BOOL_OR(reached_goal),
			ANY_VALUE(source),
			COALESCE(ANY_VALUE(model_path), ''),
			ANY_VALUE(filename)
		FROM steps
		GROUP BY episode_id
		ORDER BY episode_id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeSummary
	for rows.Next() {
		var s EpisodeSummary
		if err := rows.Scan(&s.EpisodeID, &s.Steps, &s.SX, &s.SY, &s.SZ, &s.Seed,
			&s.TotalReward, &s.ReachedGoal, &s.Source, &s.ModelPath, &s.SourceFile); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryEpisodesTotal(ctx context.Context, db *sql.DB) (int64, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT episode_id) FROM steps`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// EpisodeStep is one transition returned by the per-episode endpoint.
type EpisodeStep struct {
	Step   int32     `json:"step"`
	Obs    []float32 `json:"obs"`
	Action int32     `json:"action"`
	Reward float32   `json:"reward"`
	Done   bool      `json:"done"`
}

func queryEpisodeSteps(ctx context.Context, db *sql.DB, episodeID string) ([]EpisodeStep, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT step, obs, action, reward, done
		FROM steps
		WHERE episode_id = ?
		ORDER BY step`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("query episode %s: %w", episodeID, err)
	}
	defer rows.Close()

	var out []EpisodeStep
	for rows.Next() {
		var s EpisodeStep
		var obs any
		if err := rows.Scan(&s.Step, &obs, &s.Action, &s.Reward, &s.Done); err != nil {
			return nil, err
		}
		if list, ok := obs.([]any); ok {
			s.Obs = make([]float32, 0, len(list))
			for _, v := range list {
				switch f := v.(type) {
				case float32:
					s.Obs = append(s.Obs, f)
				case float64:
					s.Obs = append(s.Obs, float32(f))
				}
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
