package symbols

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Cache persists resolved symbol definitions in a sqlite database so
// repeated opens of large installed libraries skip re-parsing. Lookups
// fall through to the upstream provider on miss and store the result;
// upstream errors are never cached.
type Cache struct {
	db       *sql.DB
	upstream Provider
	log      zerolog.Logger
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS symbols (
	lib_id TEXT PRIMARY KEY,
	def    BLOB NOT NULL
);
`

// OpenCache opens (creating if needed) a symbol cache at path, backed by
// the upstream provider.
func OpenCache(path string, upstream Provider, log zerolog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("symbols: open cache %s: %w", path, err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("symbols: init cache %s: %w", path, err)
	}
	return &Cache{db: db, upstream: upstream, log: log}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error { return c.db.Close() }

// GetSymbol implements Provider.
func (c *Cache) GetSymbol(libID string) (*SymbolDef, error) {
	var blob []byte
	err := c.db.QueryRow(`SELECT def FROM symbols WHERE lib_id = ?`, libID).Scan(&blob)
	switch {
	case err == nil:
		var def SymbolDef
		if jerr := json.Unmarshal(blob, &def); jerr == nil {
			return &def, nil
		}
		// Undecodable row: drop it and resolve fresh.
		c.log.Warn().Str("lib_id", libID).Msg("evicting corrupt cache row")
		c.db.Exec(`DELETE FROM symbols WHERE lib_id = ?`, libID)
	case err != sql.ErrNoRows:
		return nil, &LibraryError{LibID: libID, Err: fmt.Errorf("cache read: %w", err)}
	}

	def, err := c.upstream.GetSymbol(libID)
	if err != nil {
		return nil, err
	}
	if blob, jerr := json.Marshal(def); jerr == nil {
		if _, werr := c.db.Exec(
			`INSERT OR REPLACE INTO symbols (lib_id, def) VALUES (?, ?)`, libID, blob,
		); werr != nil {
			c.log.Warn().Err(werr).Str("lib_id", libID).Msg("cache write failed")
		}
	}
	return def, nil
}

// Invalidate drops cached definitions for one library prefix
// ("Device" drops every "Device:*" row); an empty prefix drops all rows.
func (c *Cache) Invalidate(libName string) error {
	var err error
	if libName == "" {
		_, err = c.db.Exec(`DELETE FROM symbols`)
	} else {
		_, err = c.db.Exec(`DELETE FROM symbols WHERE lib_id LIKE ?`, libName+":%")
	}
	if err != nil {
		return fmt.Errorf("symbols: invalidate cache: %w", err)
	}
	c.log.Debug().Str("library", libName).Msg("symbol cache invalidated")
	return nil
}
