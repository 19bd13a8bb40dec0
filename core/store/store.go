// Package store persists corpora in a SQLite database.
//
// Each saved corpus is a record with a UUID, a label (typically the source
// name and edition), its passage count, and its BLAKE3 digest. Saving a
// corpus whose label and digest match an existing record returns that record
// instead of storing a copy.
package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/CitableCorpus/core/corpus"
	"github.com/FocuswithJustin/CitableCorpus/core/cts"
	"github.com/FocuswithJustin/CitableCorpus/core/errors"
	"github.com/FocuswithJustin/CitableCorpus/core/sqlite"
	"github.com/FocuswithJustin/CitableCorpus/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS corpora (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	passages   INTEGER NOT NULL,
	digest     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (label, digest)
);
CREATE TABLE IF NOT EXISTS passages (
	corpus_id TEXT NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	urn       TEXT NOT NULL,
	text      TEXT NOT NULL,
	PRIMARY KEY (corpus_id, seq)
);
CREATE INDEX IF NOT EXISTS passages_urn_index ON passages (urn);
`

// Record describes a stored corpus.
type Record struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Passages  int       `json:"passages"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a corpus store backed by one SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to create schema in %s", path)
	}
	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing store without creating or migrating it.
// A missing database is reported as a *errors.NotFoundError.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "store", ID: path, Err: err}
		}
		return nil, errors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save stores c under label and returns its record.
func (s *Store) Save(ctx context.Context, label string, c *corpus.Corpus) (Record, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Record{}, errors.NewValidation("label", "must not be empty")
	}

	digest := c.Digest()
	existing, err := s.findByDigest(ctx, label, digest)
	if err == nil {
		logging.StoreEvent(ctx, "save", existing.ID, "label", label, "deduplicated", true)
		return existing, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return Record{}, err
	}

	rec := Record{
		ID:        uuid.New().String(),
		Label:     label,
		Passages:  c.Len(),
		Digest:    digest,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpora (id, label, passages, digest, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Label, rec.Passages, rec.Digest, rec.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return Record{}, errors.Wrap(err, "failed to insert corpus")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO passages (corpus_id, seq, urn, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to prepare passage insert")
	}
	defer stmt.Close()

	for i, p := range c.Passages() {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, p.URN().String(), p.Text()); err != nil {
			return Record{}, errors.Wrapf(err, "failed to insert passage %s", p.URN())
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, errors.Wrap(err, "failed to commit corpus")
	}

	logging.StoreEvent(ctx, "save", rec.ID, "label", label, "passages", rec.Passages)
	return rec, nil
}

// List returns every record, oldest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, passages, digest, created_at FROM corpora ORDER BY created_at, label, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list corpora")
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list corpora")
	}
	return records, nil
}

// Get returns the record with the given ID, or a *errors.NotFoundError.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, passages, digest, created_at FROM corpora WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, errors.NewNotFound("corpus", id)
	}
	return rec, err
}

// Load reads the corpus stored under id, passages in saved order.
func (s *Store) Load(ctx context.Context, id string) (*corpus.Corpus, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT urn, text FROM passages WHERE corpus_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load corpus %s", id)
	}
	defer rows.Close()

	passages := make([]corpus.Passage, 0, rec.Passages)
	for rows.Next() {
		var ref, text string
		if err := rows.Scan(&ref, &text); err != nil {
			return nil, errors.Wrapf(err, "failed to load corpus %s", id)
		}
		urn, err := cts.Parse(ref)
		if err != nil {
			return nil, errors.Wrapf(err, "corpus %s", id)
		}
		passages = append(passages, corpus.NewPassage(urn, text))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to load corpus %s", id)
	}
	return corpus.New(passages...), nil
}

// Delete removes a record and its passages.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM corpora WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete corpus %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to delete corpus %s", id)
	}
	if n == 0 {
		return errors.NewNotFound("corpus", id)
	}
	logging.StoreEvent(ctx, "delete", id)
	return nil
}

func (s *Store) findByDigest(ctx context.Context, label, digest string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, passages, digest, created_at FROM corpora WHERE label = ? AND digest = ?`,
		label, digest)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, errors.NewNotFound("corpus", label)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var created string
	if err := row.Scan(&rec.ID, &rec.Label, &rec.Passages, &rec.Digest, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, errors.Wrap(err, "failed to read corpus record")
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Record{}, errors.Wrapf(err, "corpus %s has a malformed timestamp", rec.ID)
	}
	rec.CreatedAt = t
	return rec, nil
}
