// Package mapdb adapts a Minetest SQLite world database to the ordered
// key/value interface the query and edit-operator layers need: a
// pos -> blob table, opened read-write for the destination world and
// optionally read-only for an overlay input, with the single-transaction-
// per-command discipline the worker relies on.
package mapdb

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
	"v.io/x/lib/vlog"
)

// ErrMissingData is returned by GetBlock when the requested key has no
// row.
var ErrMissingData = errors.New("mapdb: no such block")

// mapFileName is the file a world directory argument resolves to, per
// the storage backend interface.
const mapFileName = "map.sqlite"

// DB is a single opened world/map database.
type DB struct {
	conn     *sql.DB
	readOnly bool
	tx       *sql.Tx
}

// ResolvePath turns a CLI-supplied world directory or direct file path
// into the concrete sqlite file to open.
func ResolvePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "mapdb: resolve path")
	}
	if !info.IsDir() {
		return path, nil
	}
	withFile := filepath.Join(path, mapFileName)
	if _, err := os.Stat(withFile); err != nil {
		return "", errors.Errorf("mapdb: could not find %s under %s", mapFileName, path)
	}
	return withFile, nil
}

// Open opens the sqlite database at path (resolved via ResolvePath) and
// verifies its schema. readOnly governs whether the connection accepts
// mutations; a read-only DB is used for overlay's secondary input.
func Open(path string, readOnly bool) (*DB, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	dsn := resolved
	if readOnly {
		dsn += "?mode=ro"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "mapdb: open")
	}
	db := &DB{conn: conn, readOnly: readOnly}
	if err := db.verifySchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// verifySchema confirms the blocks table has a pos column that is the
// primary key and a data column, surfacing a clear error instead of an
// opaque SQL failure on the first query otherwise. Column types are not
// checked.
func (db *DB) verifySchema() error {
	rows, err := db.conn.Query(`PRAGMA table_info(blocks)`)
	if err != nil {
		return errors.Wrap(err, "mapdb: invalid database")
	}
	defer rows.Close()

	var hasPos, hasData bool
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dfltValue interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return errors.Wrap(err, "mapdb: invalid database")
		}
		switch name {
		case "pos":
			if pk == 1 {
				hasPos = true
			}
		case "data":
			hasData = true
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "mapdb: invalid database")
	}
	if !hasPos || !hasData {
		return errors.New("mapdb: invalid database: missing blocks(pos INTEGER PRIMARY KEY, data BLOB)")
	}
	return nil
}

// IsInTransaction reports whether a write transaction is currently open.
func (db *DB) IsInTransaction() bool {
	return db.tx != nil
}

// BeginIfNeeded opens a write transaction if one isn't already open.
// Every mutating call (SetBlock, DeleteBlock) does this implicitly; the
// worker also calls it before dispatching a command, so the whole
// command runs in one transaction.
func (db *DB) BeginIfNeeded() error {
	if db.tx != nil {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return errors.Wrap(err, "mapdb: begin transaction")
	}
	db.tx = tx
	return nil
}

// CommitIfNeeded commits the open transaction, if any.
func (db *DB) CommitIfNeeded() error {
	if db.tx == nil {
		return nil
	}
	err := db.tx.Commit()
	db.tx = nil
	if err != nil {
		return errors.Wrap(err, "mapdb: commit")
	}
	return nil
}

// GetBlock returns the blob stored at key, or ErrMissingData if absent.
func (db *DB) GetBlock(key int64) ([]byte, error) {
	var data []byte
	err := db.conn.QueryRow(`SELECT data FROM blocks WHERE pos = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrMissingData
	}
	if err != nil {
		return nil, errors.Wrap(err, "mapdb: get block")
	}
	return data, nil
}

// SetBlock writes data at key, inserting or replacing the row. It opens
// a write transaction if none is open yet.
func (db *DB) SetBlock(key int64, data []byte) error {
	if db.readOnly {
		return errors.New("mapdb: database opened read-only")
	}
	if err := db.BeginIfNeeded(); err != nil {
		return err
	}
	_, err := db.tx.Exec(`INSERT OR REPLACE INTO blocks(pos, data) VALUES (?, ?)`, key, data)
	if err != nil {
		return errors.Wrap(err, "mapdb: set block")
	}
	return nil
}

// DeleteBlock removes the row at key, if present.
func (db *DB) DeleteBlock(key int64) error {
	if db.readOnly {
		return errors.New("mapdb: database opened read-only")
	}
	if err := db.BeginIfNeeded(); err != nil {
		return err
	}
	_, err := db.tx.Exec(`DELETE FROM blocks WHERE pos = ?`, key)
	if err != nil {
		return errors.Wrap(err, "mapdb: delete block")
	}
	return nil
}

// Vacuum commits any open transaction, then compacts the database file.
// VACUUM cannot run inside a transaction.
func (db *DB) Vacuum() error {
	if err := db.CommitIfNeeded(); err != nil {
		return err
	}
	if _, err := db.conn.Exec(`VACUUM`); err != nil {
		return errors.Wrap(err, "mapdb: vacuum")
	}
	return nil
}

// Close commits any open transaction and closes the underlying
// connection.
func (db *DB) Close() error {
	if err := db.CommitIfNeeded(); err != nil {
		vlog.Errorf("mapdb: commit on close: %v", err)
	}
	return db.conn.Close()
}

// Row is one key/blob pair yielded by IterRows.
type Row struct {
	Key  int64
	Data []byte
}

// Rows is a lazy, single-pass sequence of (key, blob) pairs, ordered by
// key (the table's primary key order); each IterRows call starts a new
// pass.
type Rows struct {
	rows *sql.Rows
	err  error
}

// IterRows opens a streaming iterator over every row in the table.
// Callers must call Close when done.
func (db *DB) IterRows() (*Rows, error) {
	rows, err := db.conn.Query(`SELECT pos, data FROM blocks ORDER BY pos`)
	if err != nil {
		return nil, errors.Wrap(err, "mapdb: iter rows")
	}
	return &Rows{rows: rows}, nil
}

// Next advances the iterator, returning false once exhausted or on
// error (check Err afterward).
func (r *Rows) Next() (Row, bool) {
	if !r.rows.Next() {
		return Row{}, false
	}
	var row Row
	if err := r.rows.Scan(&row.Key, &row.Data); err != nil {
		r.err = errors.Wrap(err, "mapdb: scan row")
		return Row{}, false
	}
	return row, true
}

// Err returns the first error encountered during iteration, if any.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

// Close releases the underlying SQL rows handle.
func (r *Rows) Close() error {
	return r.rows.Close()
}
