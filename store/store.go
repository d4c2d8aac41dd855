package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrNotFound is returned when a session, document or insight row does not
// exist.
var ErrNotFound = errors.New("store: not found")

// Session represents a row in the sessions table.
type Session struct {
	ID         string `json:"id"`
	LastTask   string `json:"last_task,omitempty"`
	LastOutput string `json:"last_output,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Document represents a row in the documents table. Content holds the
// uploaded bytes and is only loaded by DocumentContents.
type Document struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"session_id"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	Content     []byte `json:"-"`
	Status      string `json:"status"`
	Pages       int    `json:"pages"`
	Tables      int    `json:"tables"`
	Metadata    string `json:"metadata,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Chunk represents a row in the chunks table.
type Chunk struct {
	ID            int64  `json:"id"`
	DocumentID    int64  `json:"document_id"`
	Content       string `json:"content"`
	ChunkType     string `json:"chunk_type"`
	Heading       string `json:"heading"`
	PageNumber    int    `json:"page_number"`
	PositionInDoc int    `json:"position_in_doc"`
	TokenCount    int    `json:"token_count"`
	Metadata      string `json:"metadata,omitempty"`
	ContentHash   string `json:"content_hash"`
}

// RetrievalResult holds a chunk with its retrieval score and document info.
type RetrievalResult struct {
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Content    string  `json:"content"`
	Heading    string  `json:"heading"`
	ChunkType  string  `json:"chunk_type"`
	PageNumber int     `json:"page_number"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
}

// Document statuses.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Store wraps the SQLite database for all scholar persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	if embeddingDim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", embeddingDim)
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Session operations ---

// CreateSession inserts a new session. Creating an existing session is a
// no-op.
func (s *Store) CreateSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id) VALUES (?) ON CONFLICT(id) DO NOTHING", id)
	return err
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	sess := &Session{}
	var task, output sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, last_task, last_output, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &task, &output, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	sess.LastTask = task.String
	sess.LastOutput = output.String
	return sess, nil
}

// SetLastOutput records the most recent agent output of a session.
func (s *Store) SetLastOutput(ctx context.Context, id, task, output string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_task = ?, last_output = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, task, output, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteSession removes a session with its documents, chunks, embeddings
// and insights.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// vec0 rows are not covered by foreign keys.
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vec_chunks WHERE session_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM chunks WHERE document_id IN (
				SELECT id FROM documents WHERE session_id = ?
			)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_log WHERE session_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// --- Document operations ---

// UpsertDocument inserts or updates a document record keyed by session and
// filename. Returns the document ID.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (int64, error) {
	if doc.Status == "" {
		doc.Status = StatusPending
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (session_id, filename, format, content_hash, content, status, pages, tables, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, filename) DO UPDATE SET
			format = excluded.format,
			content_hash = excluded.content_hash,
			content = excluded.content,
			status = excluded.status,
			pages = excluded.pages,
			tables = excluded.tables,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, doc.SessionID, doc.Filename, doc.Format, doc.ContentHash, doc.Content,
		doc.Status, doc.Pages, doc.Tables, nullable(doc.Metadata)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const documentColumns = `id, session_id, filename, format, content_hash, status, pages, tables, metadata, created_at, updated_at`

func scanDocument(sc interface{ Scan(...any) error }, extra ...any) (Document, error) {
	var d Document
	var metadata sql.NullString
	dest := append([]any{&d.ID, &d.SessionID, &d.Filename, &d.Format,
		&d.ContentHash, &d.Status, &d.Pages, &d.Tables,
		&metadata, &d.CreatedAt, &d.UpdatedAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return d, err
	}
	d.Metadata = metadata.String
	return d, nil
}

// GetDocumentByName retrieves a session's document by filename.
func (s *Store) GetDocumentByName(ctx context.Context, sessionID, filename string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE session_id = ? AND filename = ?",
		sessionID, filename)
	d, err := scanDocument(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// ListDocuments returns a session's documents in upload order, without
// their content.
func (s *Store) ListDocuments(ctx context.Context, sessionID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE session_id = ? ORDER BY id",
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DocumentContents returns a session's documents with their uploaded
// bytes, in upload order.
func (s *Store) DocumentContents(ctx context.Context, sessionID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+", content FROM documents WHERE session_id = ? ORDER BY id",
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var content []byte
		d, err := scanDocument(rows, &content)
		if err != nil {
			return nil, err
		}
		d.Content = content
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus updates just the status field.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// DeleteDocumentData removes all chunks and embeddings for a document but
// keeps the document record itself.
func (s *Store) DeleteDocumentData(ctx context.Context, docID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT id FROM chunks WHERE document_id = ?
			)`, docID); err != nil {
			return err
		}

		// Triggers clean up FTS.
		_, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID)
		return err
	})
}

// DBStats holds counts of key database objects.
type DBStats struct {
	Sessions   int `json:"sessions"`
	Documents  int `json:"documents"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
	Tasks      int `json:"tasks"`
	Insights   int `json:"insights"`
}

// DBStats returns row counts for the main tables.
func (s *Store) DBStats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM sessions", &stats.Sessions},
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM vec_chunks", &stats.Embeddings},
		{"SELECT COUNT(*) FROM task_log", &stats.Tasks},
		{"SELECT COUNT(*) FROM insights", &stats.Insights},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
