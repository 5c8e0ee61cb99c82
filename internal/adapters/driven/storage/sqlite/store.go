package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/xtctx/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "xtctx.db"

// Store is a SQLite-backed record store. Checkpoints share the same
// database through a wrapper type.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.RecordStore = (*Store)(nil)

// NewStore opens (creating if needed) the database in dataDir and applies
// pending migrations.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory: %w", domain.ErrInvalidInput)
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets the MCP server read while an ingest command writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CheckpointStore returns a CheckpointStore backed by this store.
func (s *Store) CheckpointStore() driven.CheckpointStore {
	return &checkpointStore{store: s}
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// Upsert inserts or replaces records by (table, id) in a single transaction.
func (s *Store) Upsert(ctx context.Context, table string, records []domain.Record) error {
	if table == "" {
		return fmt.Errorf("table name: %w", domain.ErrInvalidInput)
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (table_name, id, text, vector, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(table_name, id) DO UPDATE SET
			text = excluded.text,
			vector = excluded.vector,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record id: %w", domain.ErrInvalidInput)
		}
		metadata := rec.Metadata
		if metadata == "" {
			metadata = "{}"
		}
		if _, err := stmt.ExecContext(ctx, table, rec.ID, rec.Text,
			float32SliceToBytes(rec.Vector), metadata, now); err != nil {
			return fmt.Errorf("upserting record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}

// VectorSearch scores every vector in the table by cosine similarity.
// Rows whose dimension differs from the query are skipped.
func (s *Store) VectorSearch(
	ctx context.Context,
	table string,
	vector []float32,
	limit int,
) ([]domain.ScoredRecord, error) {
	if len(vector) == 0 || limit <= 0 {
		return []domain.ScoredRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, vector, metadata
		FROM records
		WHERE table_name = ? AND vector IS NOT NULL
	`, table)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if len(rec.Vector) != len(vector) {
			continue
		}
		hits = append(hits, domain.ScoredRecord{Record: rec, Score: cosineSimilarity(vector, rec.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []domain.ScoredRecord{}
	}
	return hits, nil
}

// KeywordSearch runs an FTS5 match ranked by bm25. Scores are negated
// bm25 values so that higher is better.
func (s *Store) KeywordSearch(
	ctx context.Context,
	table string,
	query string,
	limit int,
) ([]domain.ScoredRecord, error) {
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" || limit <= 0 {
		return []domain.ScoredRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.text, r.vector, r.metadata, bm25(records_fts) AS rank
		FROM records_fts
		JOIN records r ON r.rowid = records_fts.rowid
		WHERE records_fts MATCH ? AND r.table_name = ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, table, limit)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}
	defer rows.Close()

	hits := make([]domain.ScoredRecord, 0, limit)
	for rows.Next() {
		var rec domain.Record
		var vectorBlob []byte
		var rank float64
		if err := rows.Scan(&rec.ID, &rec.Text, &vectorBlob, &rec.Metadata, &rank); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Vector = bytesToFloat32Slice(vectorBlob)
		hits = append(hits, domain.ScoredRecord{Record: rec, Score: -rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return hits, nil
}

// Count returns the number of records in a table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE table_name = ?", table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// ==================== Checkpoint Store ====================

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Save stores or updates a checkpoint.
func (s *checkpointStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	if cp.Source == "" {
		return domain.ErrInvalidInput
	}

	var lastTimestamp string
	if !cp.LastTimestamp.IsZero() {
		lastTimestamp = cp.LastTimestamp.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO checkpoints (source, last_timestamp, last_row_id, last_offset, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			last_timestamp = excluded.last_timestamp,
			last_row_id = excluded.last_row_id,
			last_offset = excluded.last_offset,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`, cp.Source, lastTimestamp, cp.LastRowID, cp.LastOffset, cp.Checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Get retrieves the checkpoint for a source.
func (s *checkpointStore) Get(ctx context.Context, source string) (*domain.Checkpoint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source, last_timestamp, last_row_id, last_offset, checksum
		FROM checkpoints WHERE source = ?
	`, source)

	var cp domain.Checkpoint
	var lastTimestamp string
	if err := row.Scan(&cp.Source, &lastTimestamp, &cp.LastRowID, &cp.LastOffset, &cp.Checksum); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning checkpoint: %w", err)
	}

	if lastTimestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, lastTimestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing checkpoint timestamp: %w", err)
		}
		cp.LastTimestamp = ts
	}

	return &cp, nil
}

// Delete removes the checkpoint for a source.
func (s *checkpointStore) Delete(ctx context.Context, source string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE source = ?", source)
	if err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// scanRecord scans id, text, vector and metadata from *sql.Rows.
func scanRecord(rows *sql.Rows) (domain.Record, error) {
	var rec domain.Record
	var vectorBlob []byte
	if err := rows.Scan(&rec.ID, &rec.Text, &vectorBlob, &rec.Metadata); err != nil {
		return domain.Record{}, fmt.Errorf("scanning record: %w", err)
	}
	rec.Vector = bytesToFloat32Slice(vectorBlob)
	return rec, nil
}

// sanitizeFTS quotes each word so user input cannot inject FTS5 syntax.
// Words are ORed so that bm25 ranks partial matches instead of dropping them.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		if !strings.ContainsFunc(w, isWordRune) {
			continue
		}
		quoted = append(quoted, `"`+w+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
