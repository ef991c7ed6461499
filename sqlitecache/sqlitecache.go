// Package sqlitecache stores built feature catalogs in a SQLite database so a
// restart with unchanged parameters skips the pipeline.
package sqlitecache

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-deepfield"
	"github.com/swdee/go-deepfield/layout"
	"github.com/swdee/go-deepfield/postprocess"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog_runs (
	run_id     TEXT PRIMARY KEY,
	cache_key  TEXT NOT NULL UNIQUE,
	width      INTEGER NOT NULL,
	height     INTEGER NOT NULL,
	processed  BLOB,
	mask       BLOB,
	annotated  BLOB,
	created_ns INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_features (
	run_id      TEXT NOT NULL REFERENCES catalog_runs(run_id) ON DELETE CASCADE,
	feature_idx INTEGER NOT NULL,
	label       INTEGER NOT NULL,
	box_left    INTEGER NOT NULL,
	box_top     INTEGER NOT NULL,
	box_right   INTEGER NOT NULL,
	box_bottom  INTEGER NOT NULL,
	pixels      INTEGER NOT NULL,
	png         BLOB NOT NULL,
	x           REAL NOT NULL,
	y           REAL NOT NULL,
	z           REAL NOT NULL,
	width       REAL NOT NULL,
	height      REAL NOT NULL,
	PRIMARY KEY (run_id, feature_idx)
);
`

// Run describes one stored catalog
type Run struct {
	RunID     string
	Key       string
	Features  int
	CreatedAt time.Time
}

// Cache is a deepfield.Cache backed by SQLite
type Cache struct {
	db *sql.DB
}

var _ deepfield.Cache = (*Cache)(nil)

// Open opens or creates the cache database at path
func Open(path string) (*Cache, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close the database
func (c *Cache) Close() error {
	return c.db.Close()
}

// Load returns the catalog stored under key
func (c *Cache) Load(key string) (*deepfield.Catalog, bool, error) {

	var runID string
	var width, height int
	var art deepfield.Artifacts

	err := c.db.QueryRow(`
		SELECT run_id, width, height, processed, mask, annotated
		FROM catalog_runs
		WHERE cache_key = ?
	`, key).Scan(&runID, &width, &height, &art.Processed, &art.Mask, &art.Annotated)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("load catalog run: %w", err)
	}

	rows, err := c.db.Query(`
		SELECT feature_idx, label, box_left, box_top, box_right, box_bottom,
		       pixels, png, x, y, z, width, height
		FROM catalog_features
		WHERE run_id = ?
		ORDER BY feature_idx
	`, runID)

	if err != nil {
		return nil, false, fmt.Errorf("list catalog features: %w", err)
	}

	defer rows.Close()

	var entries []deepfield.Entry

	for rows.Next() {
		var f deepfield.Feature
		var p layout.Placement
		var box postprocess.BoxRect

		err := rows.Scan(
			&f.Index, &f.Label, &box.Left, &box.Top, &box.Right, &box.Bottom,
			&f.Pixels, &f.PNG, &p.X, &p.Y, &p.Z, &p.Width, &p.Height,
		)

		if err != nil {
			return nil, false, fmt.Errorf("scan catalog feature: %w", err)
		}

		f.Box = box
		entries = append(entries, deepfield.Entry{Feature: f, Placement: p})
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate catalog features: %w", err)
	}

	cat, err := deepfield.NewCatalog(width, height, entries, art)

	if err != nil {
		return nil, false, fmt.Errorf("stored catalog %s: %w", runID, err)
	}

	return cat, true, nil
}

// Store saves the catalog under key as a new run, replacing any run
// previously stored under the same key
func (c *Cache) Store(key string, cat *deepfield.Catalog) error {

	tx, err := c.db.Begin()

	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM catalog_runs WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete previous run: %w", err)
	}

	runID := uuid.New().String()
	bounds := cat.Bounds()
	art := cat.Artifacts()

	_, err = tx.Exec(`
		INSERT INTO catalog_runs (
			run_id, cache_key, width, height, processed, mask, annotated, created_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, key, bounds.Dx(), bounds.Dy(),
		art.Processed, art.Mask, art.Annotated, time.Now().UnixNano())

	if err != nil {
		return fmt.Errorf("insert catalog run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO catalog_features (
			run_id, feature_idx, label, box_left, box_top, box_right, box_bottom,
			pixels, png, x, y, z, width, height
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	if err != nil {
		return fmt.Errorf("prepare feature insert: %w", err)
	}

	defer stmt.Close()

	for _, e := range cat.Entries() {
		f, p := e.Feature, e.Placement

		_, err := stmt.Exec(runID, f.Index, f.Label,
			f.Box.Left, f.Box.Top, f.Box.Right, f.Box.Bottom,
			f.Pixels, f.PNG, p.X, p.Y, p.Z, p.Width, p.Height)

		if err != nil {
			return fmt.Errorf("insert feature %d: %w", f.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog run: %w", err)
	}

	return nil
}

// Runs lists the stored catalogs, newest first
func (c *Cache) Runs() ([]Run, error) {

	rows, err := c.db.Query(`
		SELECT r.run_id, r.cache_key, r.created_ns, COUNT(f.feature_idx)
		FROM catalog_runs r
		LEFT JOIN catalog_features f ON f.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.created_ns DESC
	`)

	if err != nil {
		return nil, fmt.Errorf("list catalog runs: %w", err)
	}

	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var r Run
		var created int64

		if err := rows.Scan(&r.RunID, &r.Key, &created, &r.Features); err != nil {
			return nil, fmt.Errorf("scan catalog run: %w", err)
		}

		r.CreatedAt = time.Unix(0, created)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Prune deletes every run except those stored under the keys given
func (c *Cache) Prune(keep ...string) (int64, error) {

	query := `DELETE FROM catalog_runs`
	args := make([]any, len(keep))

	if len(keep) > 0 {
		query += ` WHERE cache_key NOT IN (?` + strings.Repeat(",?", len(keep)-1) + `)`

		for i, k := range keep {
			args[i] = k
		}
	}

	res, err := c.db.Exec(query, args...)

	if err != nil {
		return 0, fmt.Errorf("prune catalog runs: %w", err)
	}

	return res.RowsAffected()
}
