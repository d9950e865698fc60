package tiles

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache stores fetched tile PNGs in one sqlite file keyed by provider and
// tile address, so repeated renders do not hammer the tile servers.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if needed) the tile cache at path.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create tile cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open tile cache %s: %w", path, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tiles (
			provider TEXT NOT NULL,
			z INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			png BLOB NOT NULL,
			fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (provider, z, x, y)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tile cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached PNG bytes for a tile, with ok=false on a miss.
func (c *Cache) Get(p Provider, z, x, y int) ([]byte, bool, error) {
	var raw []byte
	err := c.db.QueryRow(
		"SELECT png FROM tiles WHERE provider = ? AND z = ? AND x = ? AND y = ?",
		string(p), z, x, y).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Put stores the PNG bytes for a tile, replacing any previous copy.
func (c *Cache) Put(p Provider, z, x, y int, raw []byte) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO tiles (provider, z, x, y, png) VALUES (?, ?, ?, ?, ?)",
		string(p), z, x, y, raw)
	return err
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// ClearCache deletes the tile cache database file if present.
func ClearCache(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Printf("Cleared tile cache %s", path)
	case !os.IsNotExist(err):
		log.Printf("Warning: could not clear tile cache: %v", err)
	}
}
