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

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lenscore/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// File names inside the index directory.
const (
	DatabaseFile = "index.db"
	LockFile     = "index.lock"
)

// Store is a SQLite-backed driven.IndexStore.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// NewStore opens or creates the index store in dir.
// It fails with domain.ErrIndexLocked when another process holds the index.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: index directory is required", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexLocked, dir)
	}

	dbPath := filepath.Join(dir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		lock: lock,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection and releases the index lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("releasing index lock: %w", unlockErr)
	}
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_index.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
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

// ==================== Documents ====================

// SaveDocument inserts or replaces a document row, resetting Complete.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document, expectedChunks int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_type, origin, title, content_hash, retrieved_at, chunking, expected_chunks, complete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			source_type = excluded.source_type,
			origin = excluded.origin,
			title = excluded.title,
			content_hash = excluded.content_hash,
			retrieved_at = excluded.retrieved_at,
			chunking = excluded.chunking,
			expected_chunks = excluded.expected_chunks,
			complete = 0
	`, doc.ID, string(doc.SourceType), doc.Origin, doc.Title, doc.ContentHash,
		doc.RetrievedAt.UTC(), doc.Chunking, expectedChunks)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

const documentColumns = `id, source_type, origin, title, content_hash, retrieved_at, chunking, expected_chunks, complete`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.IndexedDocument, error) {
	var doc domain.IndexedDocument
	var sourceType string
	var retrievedAt sql.NullTime
	var complete int
	if err := row.Scan(&doc.ID, &sourceType, &doc.Origin, &doc.Title, &doc.ContentHash,
		&retrievedAt, &doc.Chunking, &doc.ExpectedChunks, &complete); err != nil {
		return nil, err
	}
	doc.SourceType = domain.SourceType(sourceType)
	doc.Complete = complete != 0
	if retrievedAt.Valid {
		doc.RetrievedAt = retrievedAt.Time
	}
	return &doc, nil
}

// GetDocument returns a stored document or domain.ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.IndexedDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns every stored document ordered by origin.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.IndexedDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY source_type, origin`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.IndexedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// MarkComplete sets the completeness marker of a document.
func (s *Store) MarkComplete(ctx context.Context, documentID string, complete bool) error {
	flag := 0
	if complete {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET complete = ? WHERE id = ?`, flag, documentID)
	if err != nil {
		return fmt.Errorf("marking document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document with its chunks and embeddings.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM embeddings WHERE document_id = ?`,
		`DELETE FROM chunks WHERE document_id = ?`,
		`DELETE FROM documents WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
	}
	return tx.Commit()
}

// ==================== Chunks ====================

// SaveChunks inserts chunks, ignoring ones that already exist.
// Chunk ids are derived from their content, so an existing id is the same chunk.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, position, content, start_offset, end_offset)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Position, c.Content, c.Start, c.End); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

const chunkColumns = `id, document_id, position, content, start_offset, end_offset`

// GetChunk returns a chunk or domain.ErrNotFound.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	err := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id).
		Scan(&c.ID, &c.DocumentID, &c.Position, &c.Content, &c.Start, &c.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return &c, nil
}

// ListChunks returns a document's chunks ordered by position.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = ? ORDER BY position, id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.Content, &c.Start, &c.End); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunks removes chunks and their embeddings.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE chunk_id = ?`, id); err != nil {
			return fmt.Errorf("deleting embedding %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting chunk %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ==================== Embeddings ====================

// SaveEmbedding inserts or replaces the record for a chunk.
func (s *Store) SaveEmbedding(ctx context.Context, rec *domain.EmbeddingRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, document_id, model, dimensions, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			model = excluded.model,
			dimensions = excluded.dimensions,
			vector = excluded.vector,
			created_at = excluded.created_at
	`, rec.ChunkID, rec.DocumentID, rec.Model, len(rec.Vector), float32SliceToBytes(rec.Vector), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

const embeddingColumns = `chunk_id, document_id, model, vector, created_at`

func scanEmbedding(row rowScanner) (*domain.EmbeddingRecord, error) {
	var rec domain.EmbeddingRecord
	var blob []byte
	var createdAt sql.NullTime
	if err := row.Scan(&rec.ChunkID, &rec.DocumentID, &rec.Model, &blob, &createdAt); err != nil {
		return nil, err
	}
	rec.Vector = bytesToFloat32Slice(blob)
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	return &rec, nil
}

// GetEmbedding returns the record for a chunk or domain.ErrNotFound.
func (s *Store) GetEmbedding(ctx context.Context, chunkID string) (*domain.EmbeddingRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+embeddingColumns+` FROM embeddings WHERE chunk_id = ?`, chunkID)
	rec, err := scanEmbedding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	return rec, nil
}

// ScanEmbeddings calls fn for every stored record.
func (s *Store) ScanEmbeddings(ctx context.Context, fn func(rec *domain.EmbeddingRecord) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+embeddingColumns+` FROM embeddings ORDER BY chunk_id`)
	if err != nil {
		return fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanEmbedding(rows)
		if err != nil {
			return fmt.Errorf("scanning embedding: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// DeleteOrphans removes chunks without a document and embeddings without a chunk.
func (s *Store) DeleteOrphans(ctx context.Context) (int, error) {
	total := 0
	for _, q := range []string{
		`DELETE FROM chunks WHERE document_id NOT IN (SELECT id FROM documents)`,
		`DELETE FROM embeddings WHERE chunk_id NOT IN (SELECT id FROM chunks)`,
	} {
		res, err := s.db.ExecContext(ctx, q)
		if err != nil {
			return total, fmt.Errorf("deleting orphans: %w", err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

// DeleteStaleEmbeddings removes records produced by any model other than model.
func (s *Store) DeleteStaleEmbeddings(ctx context.Context, model string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE model <> ?`, model)
	if err != nil {
		return 0, fmt.Errorf("deleting stale embeddings: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Counts returns the number of documents, chunks and embeddings.
func (s *Store) Counts(ctx context.Context) (documents, chunks, embeddings int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM embeddings)
	`).Scan(&documents, &chunks, &embeddings)
	if err != nil {
		err = fmt.Errorf("counting rows: %w", err)
	}
	return documents, chunks, embeddings, err
}

// float32SliceToBytes converts []float32 to a little-endian byte slice.
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
