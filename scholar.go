package scholar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bbiangul/go-scholar/agents"
	"github.com/bbiangul/go-scholar/chunker"
	"github.com/bbiangul/go-scholar/insight"
	"github.com/bbiangul/go-scholar/llm"
	"github.com/bbiangul/go-scholar/parser"
	"github.com/bbiangul/go-scholar/reasoning"
	"github.com/bbiangul/go-scholar/retrieval"
	"github.com/bbiangul/go-scholar/store"
)

// Assistant is the main entry point of the research assistant. All
// operations except TranslateText are scoped to a session.
type Assistant interface {
	// NewSession creates an empty session and returns its ID.
	NewSession(ctx context.Context) (string, error)

	// Session returns a session's stored state.
	Session(ctx context.Context, sessionID string) (*Session, error)

	// DeleteSession removes a session with its documents, index, task log
	// and insights.
	DeleteSession(ctx context.Context, sessionID string) error

	// Ingest stores, parses, chunks and embeds uploads. Uploads whose
	// content hash is unchanged are skipped.
	Ingest(ctx context.Context, sessionID string, uploads []Upload) ([]IngestResult, error)

	// Documents lists a session's uploads.
	Documents(ctx context.Context, sessionID string) ([]Document, error)

	// RunTask runs one of the agent tasks against the session's documents.
	RunTask(ctx context.Context, sessionID string, task agents.Task) (*TaskResult, error)

	// Chat answers a question from the session's documents with hybrid
	// retrieval and multi-round reasoning.
	Chat(ctx context.Context, sessionID, question string, opts ...ChatOption) (*Answer, error)

	// Translate translates the session's last agent output.
	Translate(ctx context.Context, sessionID, language string) (string, error)

	// TranslateText translates arbitrary content.
	TranslateText(ctx context.Context, content, language string) (string, error)

	// VisualInsights builds a chart, data summary and analysis from the
	// given uploads, or from the session's stored uploads when none are
	// given. The result replaces the session's previous insights.
	VisualInsights(ctx context.Context, sessionID string, uploads []Upload) (*insight.Bundle, error)

	// Insights returns the session's current visual insights.
	Insights(ctx context.Context, sessionID string) (*StoredInsight, error)

	// ClearInsights removes the session's current visual insights.
	ClearInsights(ctx context.Context, sessionID string) error

	// History returns the session's most recent task runs, newest first.
	History(ctx context.Context, sessionID string, limit int) ([]TaskLog, error)

	// Stats returns row counts of the underlying database.
	Stats(ctx context.Context) (*store.DBStats, error)

	// Close cleanly shuts down the assistant.
	Close() error
}

// Session, Document and TaskLog are the stored records exposed as-is.
type (
	Session  = store.Session
	Document = store.Document
	TaskLog  = store.TaskLog
)

// Upload is one uploaded file.
type Upload struct {
	Name string
	Data []byte
}

// UploadFromFile reads a file from disk into an Upload named after its
// base name.
func UploadFromFile(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Name: filepath.Base(path), Data: data}, nil
}

func (u Upload) source() parser.Source {
	return parser.Source{Name: u.Name, Reader: bytes.NewReader(u.Data)}
}

// IngestResult reports what Ingest did with one upload.
type IngestResult struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
	Tables     int    `json:"tables"`
	Pages      int    `json:"pages"`
	Skipped    bool   `json:"skipped"`
	Status     string `json:"status"`
}

// TaskResult is the output of one agent task.
type TaskResult struct {
	SessionID string          `json:"session_id"`
	Task      agents.Task     `json:"task"`
	Label     string          `json:"label"`
	Output    string          `json:"output"`
	Insights  *insight.Bundle `json:"insights,omitempty"`
	ElapsedMs int64           `json:"elapsed_ms"`
}

// Answer is the result of a chat question.
type Answer struct {
	reasoning.Answer
	RetrievalTrace *retrieval.SearchTrace `json:"retrieval_trace,omitempty"`
}

// StoredInsight is a session's persisted visual insights.
type StoredInsight struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	CreatedAt string          `json:"created_at"`
	Bundle    *insight.Bundle `json:"bundle"`
	StaticPNG []byte          `json:"-"`
}

// ParseTask resolves a task ID or UI label.
func ParseTask(s string) (agents.Task, error) {
	t, err := agents.ParseTask(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
	return t, nil
}

// Option configures optional collaborators of New.
type Option func(*options)

type options struct {
	chat      llm.Provider
	embed     llm.Provider
	extractor insight.Extractor
}

// WithChatProvider uses p instead of building one from Config.Chat.
func WithChatProvider(p llm.Provider) Option {
	return func(o *options) { o.chat = p }
}

// WithEmbeddingProvider uses p instead of building one from
// Config.Embedding.
func WithEmbeddingProvider(p llm.Provider) Option {
	return func(o *options) { o.embed = p }
}

// WithExtractor replaces the document extractor used for visual insights.
func WithExtractor(e insight.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// ChatOption configures a single chat question.
type ChatOption func(*chatOptions)

type chatOptions struct {
	maxResults int
	maxRounds  int
}

// WithMaxResults sets the maximum number of chunks to retrieve.
func WithMaxResults(n int) ChatOption {
	return func(o *chatOptions) { o.maxResults = n }
}

// WithMaxRounds overrides the maximum reasoning rounds for this question.
func WithMaxRounds(n int) ChatOption {
	return func(o *chatOptions) { o.maxRounds = n }
}

// assistant is the concrete implementation of Assistant.
type assistant struct {
	cfg       Config
	store     *store.Store
	chatLLM   llm.Provider
	embedLLM  llm.Provider
	parsers   *parser.Registry
	chunkr    *chunker.Chunker
	agent     *agents.Agent
	insights  *insight.Assembler
	retriever *retrieval.Engine
	reasoner  *reasoning.Engine
	sessions  *sessionCache
}

// New creates an Assistant with the given configuration.
func New(cfg Config, opts ...Option) (Assistant, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chatLLM := o.chat
	if chatLLM == nil {
		p, err := llm.NewProvider(llm.Config{
			Provider: cfg.Chat.Provider,
			Model:    cfg.Chat.Model,
			BaseURL:  cfg.Chat.BaseURL,
			APIKey:   cfg.Chat.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("creating chat provider: %w", err)
		}
		chatLLM = p
	}

	embedLLM := o.embed
	if embedLLM == nil {
		p, err := llm.NewProvider(llm.Config{
			Provider: cfg.Embedding.Provider,
			Model:    cfg.Embedding.Model,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
		embedLLM = p
	}

	sessions, err := newSessionCache(cfg.SessionCacheSize)
	if err != nil {
		return nil, err
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	reg := parser.NewRegistry()
	var extractor insight.Extractor = reg
	if o.extractor != nil {
		extractor = o.extractor
	}

	return &assistant{
		cfg:      cfg,
		store:    s,
		chatLLM:  chatLLM,
		embedLLM: embedLLM,
		parsers:  reg,
		chunkr: chunker.New(chunker.Config{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		}),
		agent:    agents.New(chatLLM, agents.WithMaxChunks(cfg.SummaryChunks)),
		insights: insight.New(chatLLM, insight.WithExtractor(extractor)),
		retriever: retrieval.New(s, embedLLM, retrieval.Config{
			WeightVector: cfg.WeightVector,
			WeightFTS:    cfg.WeightFTS,
		}),
		reasoner: reasoning.New(chatLLM, reasoning.Config{
			MaxRounds:           cfg.MaxRounds,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
		}),
		sessions: sessions,
	}, nil
}

// Ingest processes uploads through the full pipeline.
func (a *assistant) Ingest(ctx context.Context, sessionID string, uploads []Upload) ([]IngestResult, error) {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	results := make([]IngestResult, 0, len(uploads))
	for _, u := range uploads {
		res, err := a.ingestOne(ctx, sessionID, u)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func (a *assistant) ingestOne(ctx context.Context, sessionID string, u Upload) (*IngestResult, error) {
	hash := contentHash(u.Data)
	src := u.source()
	format := src.Format()

	existing, err := a.store.GetDocumentByName(ctx, sessionID, u.Name)
	if err == nil && existing.ContentHash == hash && existing.Status == store.StatusReady {
		slog.Info("ingest: unchanged, skipping", "file", u.Name, "doc_id", existing.ID)
		return &IngestResult{
			DocumentID: existing.ID,
			Filename:   u.Name,
			Tables:     existing.Tables,
			Pages:      existing.Pages,
			Skipped:    true,
			Status:     existing.Status,
		}, nil
	}

	slog.Info("ingest: parsing document", "file", u.Name, "format", format, "bytes", len(u.Data))
	parseStart := time.Now()

	doc := store.Document{
		SessionID:   sessionID,
		Filename:    u.Name,
		Format:      format,
		ContentHash: hash,
		Content:     u.Data,
	}

	parsed, perr := a.parsers.Parse(ctx, src)
	if perr != nil {
		doc.Status = store.StatusFailed
		if _, err := a.store.UpsertDocument(ctx, doc); err != nil {
			slog.Warn("ingest: recording failed upload", "file", u.Name, "error", err)
		}
		if errors.Is(perr, parser.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, perr)
	}

	slog.Info("ingest: parsing complete",
		"file", u.Name, "pages", parsed.Pages, "sections", len(parsed.Sections),
		"tables", len(parsed.Tables), "elapsed", time.Since(parseStart).Round(time.Millisecond))

	doc.Status = store.StatusPending
	doc.Pages = parsed.Pages
	doc.Tables = len(parsed.Tables)
	if len(parsed.Metadata) > 0 {
		data, _ := json.Marshal(parsed.Metadata)
		doc.Metadata = string(data)
	}
	docID, err := a.store.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("upserting document: %w", err)
	}

	chunks := a.chunkr.Chunk(parsed.Sections)
	slog.Info("ingest: chunking complete",
		"file", u.Name, "chunks", len(chunks),
		"chunk_size", a.cfg.ChunkSize, "overlap", a.cfg.ChunkOverlap)

	// Re-ingest replaces the previous chunks and vectors.
	if err := a.store.DeleteDocumentData(ctx, docID); err != nil {
		return nil, fmt.Errorf("cleaning old data: %w", err)
	}
	for i := range chunks {
		chunks[i].DocumentID = docID
	}
	chunkIDs, err := a.store.InsertChunks(ctx, chunks)
	if err != nil {
		a.setStatus(ctx, docID, store.StatusFailed)
		return nil, fmt.Errorf("inserting chunks: %w", err)
	}

	if len(chunks) > 0 {
		slog.Info("ingest: generating embeddings", "file", u.Name, "chunks", len(chunks))
		embedStart := time.Now()
		if err := a.embedChunks(ctx, sessionID, chunks, chunkIDs); err != nil {
			a.setStatus(ctx, docID, store.StatusFailed)
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		slog.Info("ingest: embeddings complete",
			"file", u.Name, "elapsed", time.Since(embedStart).Round(time.Millisecond))
	}

	a.setStatus(ctx, docID, store.StatusReady)
	slog.Info("ingest: document ready",
		"file", u.Name, "doc_id", docID,
		"total_elapsed", time.Since(parseStart).Round(time.Millisecond))

	return &IngestResult{
		DocumentID: docID,
		Filename:   u.Name,
		Chunks:     len(chunks),
		Tables:     doc.Tables,
		Pages:      doc.Pages,
		Status:     store.StatusReady,
	}, nil
}

func (a *assistant) setStatus(ctx context.Context, docID int64, status string) {
	if err := a.store.UpdateDocumentStatus(ctx, docID, status); err != nil {
		slog.Warn("ingest: updating status failed", "doc_id", docID, "status", status, "error", err)
	}
}

// Documents lists a session's uploads.
func (a *assistant) Documents(ctx context.Context, sessionID string) ([]Document, error) {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return a.store.ListDocuments(ctx, sessionID)
}

// RunTask dispatches an agent task.
func (a *assistant) RunTask(ctx context.Context, sessionID string, task agents.Task) (*TaskResult, error) {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &TaskResult{SessionID: sessionID, Task: task, Label: task.Label()}

	switch {
	case task == agents.TaskVisualInsights:
		b, err := a.VisualInsights(ctx, sessionID, nil)
		if err != nil {
			return nil, err
		}
		result.Insights = b
		result.Output = b.AIAnalysis
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, nil

	case task == agents.TaskChat:
		return nil, ErrQuestionRequired

	case !task.DocumentTask():
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}

	chunks, err := a.store.SessionChunks(ctx, sessionID, a.cfg.SummaryChunks)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoDocuments
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	slog.Info("task: running", "session", sessionID, "task", task, "chunks", len(texts))
	output, err := a.agent.Run(ctx, task, texts)
	result.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		a.logTask(ctx, store.TaskLog{SessionID: sessionID, Task: string(task), Error: err.Error(), DurationMS: result.ElapsedMs})
		return nil, fmt.Errorf("%w: %v", ErrLLMRequestFailed, err)
	}
	result.Output = output

	if err := a.store.SetLastOutput(ctx, sessionID, string(task), output); err != nil {
		return nil, fmt.Errorf("saving output: %w", err)
	}
	a.logTask(ctx, store.TaskLog{
		SessionID:  sessionID,
		Task:       string(task),
		Output:     output,
		ModelUsed:  a.cfg.Chat.Model,
		DurationMS: result.ElapsedMs,
	})
	slog.Info("task: complete", "session", sessionID, "task", task,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return result, nil
}

// Chat runs hybrid retrieval and multi-round reasoning over one session.
func (a *assistant) Chat(ctx context.Context, sessionID, question string, opts ...ChatOption) (*Answer, error) {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrQuestionRequired
	}
	options := &chatOptions{maxResults: 20, maxRounds: a.cfg.MaxRounds}
	for _, o := range opts {
		o(options)
	}

	start := time.Now()
	results, trace, err := a.retriever.Search(ctx, sessionID, question, retrieval.SearchOptions{
		MaxResults: options.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	if len(results) == 0 {
		docs, derr := a.store.ListDocuments(ctx, sessionID)
		if derr == nil && len(docs) == 0 {
			return nil, ErrNoDocuments
		}
		return nil, ErrNoResults
	}

	rAnswer, err := a.reasoner.Reason(ctx, question, results, reasoning.Options{
		MaxRounds: options.maxRounds,
	})
	if err != nil {
		a.logTask(ctx, store.TaskLog{SessionID: sessionID, Task: string(agents.TaskChat), Input: question, Error: err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrLLMRequestFailed, err)
	}

	if err := a.store.SetLastOutput(ctx, sessionID, string(agents.TaskChat), rAnswer.Text); err != nil {
		return nil, fmt.Errorf("saving output: %w", err)
	}
	a.logTask(ctx, store.TaskLog{
		SessionID:        sessionID,
		Task:             string(agents.TaskChat),
		Input:            question,
		Output:           rAnswer.Text,
		ModelUsed:        rAnswer.ModelUsed,
		DurationMS:       time.Since(start).Milliseconds(),
		PromptTokens:     rAnswer.PromptTokens,
		CompletionTokens: rAnswer.CompletionTokens,
		TotalTokens:      rAnswer.TotalTokens,
	})

	return &Answer{Answer: *rAnswer, RetrievalTrace: trace}, nil
}

// Translate translates the session's last output. The output itself is
// left unchanged so it can be translated again into another language.
func (a *assistant) Translate(ctx context.Context, sessionID, language string) (string, error) {
	sess, err := a.Session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sess.LastOutput) == "" {
		return "", ErrNoOutput
	}

	start := time.Now()
	out, err := a.TranslateText(ctx, sess.LastOutput, language)
	if err != nil {
		return "", err
	}
	a.logTask(ctx, store.TaskLog{
		SessionID:  sessionID,
		Task:       "translate",
		Input:      language,
		Output:     out,
		ModelUsed:  a.cfg.Chat.Model,
		DurationMS: time.Since(start).Milliseconds(),
	})
	return out, nil
}

// TranslateText translates arbitrary content.
func (a *assistant) TranslateText(ctx context.Context, content, language string) (string, error) {
	out, err := a.agent.Translate(ctx, content, language)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMRequestFailed, err)
	}
	return out, nil
}

// VisualInsights builds and stores a session's visual insights.
func (a *assistant) VisualInsights(ctx context.Context, sessionID string, uploads []Upload) (*insight.Bundle, error) {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	sources := make([]parser.Source, 0, len(uploads))
	for _, u := range uploads {
		sources = append(sources, u.source())
	}
	if len(sources) == 0 {
		docs, err := a.store.DocumentContents(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("loading uploads: %w", err)
		}
		for _, d := range docs {
			sources = append(sources, Upload{Name: d.Filename, Data: d.Content}.source())
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: please re-upload the paper", ErrNoDocuments)
	}

	start := time.Now()
	b := a.insights.Generate(ctx, sources)
	elapsed := time.Since(start).Milliseconds()

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding insights: %w", err)
	}
	var png []byte
	if b.StaticChart != nil {
		png = b.StaticChart.PNG
	}
	if err := a.store.SaveInsight(ctx, store.Insight{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ChartKind: b.ChartKind,
		Bundle:    data,
		StaticPNG: png,
	}); err != nil {
		return nil, fmt.Errorf("saving insights: %w", err)
	}

	entry := store.TaskLog{
		SessionID:  sessionID,
		Task:       string(agents.TaskVisualInsights),
		ModelUsed:  a.cfg.Chat.Model,
		DurationMS: elapsed,
	}
	if b.Failed() {
		entry.Error = b.Error
	} else {
		entry.Output = b.AIAnalysis
		if err := a.store.SetLastOutput(ctx, sessionID, string(agents.TaskVisualInsights), b.AIAnalysis); err != nil {
			return nil, fmt.Errorf("saving output: %w", err)
		}
	}
	a.logTask(ctx, entry)
	return b, nil
}

// Insights returns the session's current visual insights.
func (a *assistant) Insights(ctx context.Context, sessionID string) (*StoredInsight, error) {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	in, err := a.store.GetInsight(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoInsights
	}
	if err != nil {
		return nil, err
	}

	b := &insight.Bundle{}
	if err := json.Unmarshal(in.Bundle, b); err != nil {
		return nil, fmt.Errorf("decoding insights: %w", err)
	}
	return &StoredInsight{
		ID:        in.ID,
		SessionID: in.SessionID,
		CreatedAt: in.CreatedAt,
		Bundle:    b,
		StaticPNG: in.StaticPNG,
	}, nil
}

// ClearInsights removes the session's current visual insights.
func (a *assistant) ClearInsights(ctx context.Context, sessionID string) error {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return err
	}
	err := a.store.DeleteInsight(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoInsights
	}
	return err
}

// History returns the session's most recent task runs.
func (a *assistant) History(ctx context.Context, sessionID string, limit int) ([]TaskLog, error) {
	if err := a.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return a.store.TaskHistory(ctx, sessionID, limit)
}

// Stats returns row counts of the underlying database.
func (a *assistant) Stats(ctx context.Context) (*store.DBStats, error) {
	return a.store.DBStats(ctx)
}

// Close shuts down the assistant.
func (a *assistant) Close() error {
	return a.store.Close()
}

func (a *assistant) logTask(ctx context.Context, t store.TaskLog) {
	if err := a.store.LogTask(ctx, t); err != nil {
		slog.Warn("task log write failed", "task", t.Task, "error", err)
	}
}

// maxEmbedChars is the maximum character length for a single text sent to
// the embedding model.
const maxEmbedChars = 24000

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}

// embedChunks generates embeddings for chunks in batches. A failed batch
// falls back to embedding each text on its own so one bad text does not
// lose the whole batch.
func (a *assistant) embedChunks(ctx context.Context, sessionID string, chunks []store.Chunk, chunkIDs []int64) error {
	const batchSize = 32
	var failed int

	save := func(chunkID int64, emb []float32) {
		if len(emb) == 0 {
			failed++
			return
		}
		if err := a.store.InsertEmbedding(ctx, sessionID, chunkID, emb); err != nil {
			slog.Warn("storing embedding failed", "chunk_id", chunkID, "error", err)
			failed++
		}
	}

	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			prefix := ""
			if chunks[j].Heading != "" {
				prefix = chunks[j].Heading + ": "
			}
			texts[j-i] = truncateForEmbed(prefix + chunks[j].Content)
		}

		embeddings, err := a.embedLLM.Embed(ctx, texts)
		if err == nil && len(embeddings) != len(texts) {
			err = fmt.Errorf("got %d embeddings for %d texts", len(embeddings), len(texts))
		}
		if err != nil {
			slog.Warn("embedding batch failed, falling back to individual",
				"batch_start", i, "batch_end", end, "error", err)
			for j, text := range texts {
				single, serr := a.embedLLM.Embed(ctx, []string{text})
				if serr != nil || len(single) == 0 {
					slog.Warn("embedding single text failed", "chunk_id", chunkIDs[i+j], "error", serr)
					failed++
					continue
				}
				save(chunkIDs[i+j], single[0])
			}
			continue
		}

		for j, emb := range embeddings {
			save(chunkIDs[i+j], emb)
		}
	}

	if failed == len(chunks) {
		return fmt.Errorf("all %d chunks failed embedding", len(chunks))
	}
	if failed > 0 {
		slog.Warn("some embeddings failed", "failed", failed, "total", len(chunks))
	}
	return nil
}

// contentHash computes the SHA-256 hash of an upload.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
