package store

import (
	"context"
	"database/sql"
)

// TaskLog represents a row in the task_log table.
type TaskLog struct {
	ID               int64  `json:"id"`
	SessionID        string `json:"session_id"`
	Task             string `json:"task"`
	Input            string `json:"input,omitempty"`
	Output           string `json:"output,omitempty"`
	Error            string `json:"error,omitempty"`
	ModelUsed        string `json:"model_used,omitempty"`
	DurationMS       int64  `json:"duration_ms"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CreatedAt        string `json:"created_at"`
}

// LogTask writes an entry to the task audit log.
func (s *Store) LogTask(ctx context.Context, t TaskLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_log (session_id, task, input, output, error, model_used,
			duration_ms, prompt_tokens, completion_tokens, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.SessionID, t.Task, nullable(t.Input), nullable(t.Output), nullable(t.Error),
		nullable(t.ModelUsed), t.DurationMS, t.PromptTokens, t.CompletionTokens, t.TotalTokens)
	return err
}

// TaskHistory returns a session's most recent task runs, newest first.
func (s *Store) TaskHistory(ctx context.Context, sessionID string, limit int) ([]TaskLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, task, input, output, error, model_used,
			duration_ms, prompt_tokens, completion_tokens, total_tokens, created_at
		FROM task_log WHERE session_id = ?
		ORDER BY id DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskLog
	for rows.Next() {
		var t TaskLog
		var input, output, errText, model sql.NullString
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Task, &input, &output, &errText, &model,
			&t.DurationMS, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens,
			&t.CreatedAt); err != nil {
			return nil, err
		}
		t.Input = input.String
		t.Output = output.String
		t.Error = errText.String
		t.ModelUsed = model.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// Insight represents a row in the insights table. Bundle is the JSON
// encoded insight bundle; StaticPNG is the static chart image.
type Insight struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	ChartKind string `json:"chart_kind"`
	Bundle    []byte `json:"bundle"`
	StaticPNG []byte `json:"-"`
	CreatedAt string `json:"created_at"`
}

// SaveInsight stores in as the session's current insight, replacing any
// earlier one.
func (s *Store) SaveInsight(ctx context.Context, in Insight) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insights (id, session_id, chart_kind, bundle, static_png)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			id = excluded.id,
			chart_kind = excluded.chart_kind,
			bundle = excluded.bundle,
			static_png = excluded.static_png,
			created_at = CURRENT_TIMESTAMP
	`, in.ID, in.SessionID, in.ChartKind, string(in.Bundle), in.StaticPNG)
	return err
}

// GetInsight returns the session's current insight.
func (s *Store) GetInsight(ctx context.Context, sessionID string) (*Insight, error) {
	in := &Insight{}
	var bundle string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, chart_kind, bundle, static_png, created_at
		FROM insights WHERE session_id = ?
	`, sessionID).Scan(&in.ID, &in.SessionID, &in.ChartKind, &bundle, &in.StaticPNG, &in.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	in.Bundle = []byte(bundle)
	return in, nil
}

// DeleteInsight clears the session's current insight.
func (s *Store) DeleteInsight(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM insights WHERE session_id = ?", sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
