package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// --- Chunk operations ---

// InsertChunks inserts a batch of chunks and returns their IDs. Content
// hashes are computed here.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (document_id, content, chunk_type, heading,
				page_number, position_in_doc, token_count, metadata, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			hash := sha256.Sum256([]byte(c.Content))

			res, err := stmt.ExecContext(ctx,
				c.DocumentID, c.Content, c.ChunkType,
				c.Heading, c.PageNumber, c.PositionInDoc, c.TokenCount,
				nullable(c.Metadata), hex.EncodeToString(hash[:]))
			if err != nil {
				return err
			}
			ids[i], err = res.LastInsertId()
			if err != nil {
				return err
			}
		}
		return nil
	})

	return ids, err
}

const chunkColumns = `c.id, c.document_id, c.content, c.chunk_type, c.heading,
	c.page_number, c.position_in_doc, c.token_count, c.metadata, c.content_hash`

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var heading, metadata sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content,
			&c.ChunkType, &heading, &c.PageNumber, &c.PositionInDoc,
			&c.TokenCount, &metadata, &c.ContentHash); err != nil {
			return nil, err
		}
		c.Heading = heading.String
		c.Metadata = metadata.String
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunksByDocument returns all chunks for a given document.
func (s *Store) GetChunksByDocument(ctx context.Context, docID int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c WHERE c.document_id = ? ORDER BY c.position_in_doc
	`, docID)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// SessionChunks returns a session's chunks in reading order: documents by
// upload order, then position. A limit of zero or less returns all.
func (s *Store) SessionChunks(ctx context.Context, sessionID string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.session_id = ?
		ORDER BY d.id, c.position_in_doc
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// --- Embedding operations ---

// InsertEmbedding stores a vector embedding for a chunk, replacing any
// previous one.
func (s *Store) InsertEmbedding(ctx context.Context, sessionID string, chunkID int64, embedding []float32) error {
	if len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding has %d dimensions, want %d", len(embedding), s.embeddingDim)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vec_chunks WHERE chunk_id = ?", chunkID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO vec_chunks (chunk_id, session_id, embedding) VALUES (?, ?, ?)",
			chunkID, sessionID, serializeFloat32(embedding))
		return err
	})
}

// ChunkHasEmbedding checks if a specific chunk has a vector embedding.
func (s *Store) ChunkHasEmbedding(ctx context.Context, chunkID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vec_chunks WHERE chunk_id = ?", chunkID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Search ---

// VectorSearch performs a KNN search over one session's chunks returning
// the top-k nearest.
func (s *Store) VectorSearch(ctx context.Context, sessionID string, queryEmbedding []float32, k int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance,
			c.content, c.heading, c.chunk_type, c.page_number, c.document_id,
			d.filename
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE v.embedding MATCH ? AND k = ? AND v.session_id = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var distance float64
		var heading sql.NullString
		if err := rows.Scan(&r.ChunkID, &distance,
			&r.Content, &heading, &r.ChunkType, &r.PageNumber, &r.DocumentID,
			&r.Filename); err != nil {
			return nil, err
		}
		r.Heading = heading.String
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch performs a full-text search over one session's chunks using
// FTS5 BM25 ranking.
func (s *Store) FTSSearch(ctx context.Context, sessionID, query string, limit int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rowid, f.rank,
			c.content, c.heading, c.chunk_type, c.page_number, c.document_id,
			d.filename
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ? AND d.session_id = ?
		ORDER BY f.rank
		LIMIT ?
	`, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var rank float64
		var heading sql.NullString
		if err := rows.Scan(&r.ChunkID, &rank,
			&r.Content, &heading, &r.ChunkType, &r.PageNumber, &r.DocumentID,
			&r.Filename); err != nil {
			return nil, err
		}
		r.Heading = heading.String
		// FTS5 rank is negative (lower = better).
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}
