package cache

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// flushBatchSize bounds how many rows go into one prepared-statement
// batch inside the flush transaction.
const flushBatchSize = 1000

// Store is the durable backend for learned parameters. Only the batch
// driver touches it: once to load everything at startup and once to
// merge everything back at shutdown. Workers only see the ParamCache.
type Store struct {
	db     *sql.DB
	path   string
	logger *logrus.Logger
}

// OpenStore opens (or creates) the SQLite database at path and ensures
// the schema exists. Schema creation is idempotent.
func OpenStore(path string, logger *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS learned_params (
			width_bucket  INTEGER NOT NULL,
			height_bucket INTEGER NOT NULL,
			size_bucket   INTEGER NOT NULL,
			quality       REAL NOT NULL,
			scale         REAL NOT NULL,
			PRIMARY KEY (width_bucket, height_bucket, size_bucket)
		)
	`)
	if err != nil {
		return fmt.Errorf("create learned_params table: %w", err)
	}
	return nil
}

// LoadAll reads the entire durable table into a fresh ParamCache. A
// read failure degrades to an empty cache: the batch's work product
// does not depend on the cache being readable.
func (s *Store) LoadAll() *ParamCache {
	c := NewParamCache()

	rows, err := s.db.Query(
		"SELECT width_bucket, height_bucket, size_bucket, quality, scale FROM learned_params")
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load learned-parameter cache, starting empty")
		return c
	}
	defer rows.Close()

	for rows.Next() {
		var key SimilarityKey
		var params LearnedParams
		if err := rows.Scan(&key.WidthBucket, &key.HeightBucket, &key.SizeBucket,
			&params.Quality, &params.Scale); err != nil {
			s.logger.WithError(err).Warn("Skipping unreadable cache row")
			continue
		}
		c.Put(key, params)
	}
	if err := rows.Err(); err != nil {
		s.logger.WithError(err).Warn("Error while reading learned-parameter cache")
	}

	s.logger.Infof("Loaded %d learned-parameter entries from %s", c.Len(), s.path)
	return c
}

// FlushAll upserts every entry of the snapshot into durable storage
// inside a single transaction. Entries it was not given are left alone;
// flush merges, it never deletes. On any failure the transaction rolls
// back and durable contents are unchanged. The error is returned for
// logging but must not abort the batch: the compressed images already
// exist, only learning is lost.
func (s *Store) FlushAll(snapshot map[SimilarityKey]LearnedParams) error {
	if len(snapshot) == 0 {
		s.logger.Debug("Learned-parameter cache empty, nothing to flush")
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin flush tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO learned_params
			(width_bucket, height_bucket, size_bucket, quality, scale)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for key, params := range snapshot {
		if _, err := stmt.Exec(key.WidthBucket, key.HeightBucket, key.SizeBucket,
			params.Quality, params.Scale); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert cache entry: %w", err)
		}
		n++
		if n%flushBatchSize == 0 {
			s.logger.Debugf("Flushed %d/%d cache entries", n, len(snapshot))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush tx: %w", err)
	}

	s.logger.Infof("Flushed %d learned-parameter entries to %s", n, s.path)
	return nil
}

// Close releases the database connection. It is called even when a
// preceding flush failed.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}
