package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/bbiangul/go-scholar/llm"
	"github.com/bbiangul/go-scholar/numeric"
	"github.com/bbiangul/go-scholar/store"
)

// referencePattern matches explicit pointers into a paper, such as
// "Table 2", "Fig. 3" or "Eq. (4)".
var referencePattern = regexp.MustCompile(`(?i)\b(?:table|figure|fig\.?|equation|eq\.?|section)\s*\(?\d+`)

// exactLookup reports whether the query names a statistic or a numbered
// element of the paper. Such queries favour exact-match retrieval.
func exactLookup(query string) bool {
	return referencePattern.MatchString(query) || len(numeric.Extract(query)) > 0
}

// Searcher is the storage side of retrieval. *store.Store satisfies it.
type Searcher interface {
	VectorSearch(ctx context.Context, sessionID string, queryEmbedding []float32, k int) ([]store.RetrievalResult, error)
	FTSSearch(ctx context.Context, sessionID, query string, limit int) ([]store.RetrievalResult, error)
}

// Config holds retrieval engine configuration.
type Config struct {
	WeightVector float64
	WeightFTS    float64
}

// SearchOptions configures a single search operation.
type SearchOptions struct {
	MaxResults int
	WeightVec  float64
	WeightFTS  float64
}

// SearchTrace records the full breakdown of a hybrid search operation.
type SearchTrace struct {
	VecResults    int                       `json:"vec_results"`
	FTSResults    int                       `json:"fts_results"`
	FusedResults  int                       `json:"fused_results"`
	VecWeight     float64                   `json:"vec_weight"`
	FTSWeight     float64                   `json:"fts_weight"`
	ExactLookup   bool                      `json:"exact_lookup"`
	SynthesisMode bool                      `json:"synthesis_mode"`
	MaxRequested  int                       `json:"max_requested"`
	FTSQuery      string                    `json:"fts_query"`
	ElapsedMs     int64                     `json:"elapsed_ms"`
	PerResult     map[int64]FusedResultInfo `json:"per_result,omitempty"`
}

// Engine performs hybrid retrieval combining vector and FTS search over
// one session's chunks.
type Engine struct {
	store    Searcher
	embedder llm.Provider
	cfg      Config
}

// New creates a new retrieval engine.
func New(s Searcher, embedder llm.Provider, cfg Config) *Engine {
	if cfg.WeightVector == 0 {
		cfg.WeightVector = 1.0
	}
	if cfg.WeightFTS == 0 {
		cfg.WeightFTS = 1.0
	}
	return &Engine{store: s, embedder: embedder, cfg: cfg}
}

// Search runs vector and FTS5 search concurrently and fuses the results
// with RRF. Returns fused results and a SearchTrace with the full
// breakdown.
func (e *Engine) Search(ctx context.Context, sessionID, query string, opts SearchOptions) ([]store.RetrievalResult, *SearchTrace, error) {
	if opts.MaxResults == 0 {
		opts.MaxResults = 20
	}
	if opts.WeightVec == 0 {
		opts.WeightVec = e.cfg.WeightVector
	}
	if opts.WeightFTS == 0 {
		opts.WeightFTS = e.cfg.WeightFTS
	}

	trace := &SearchTrace{}

	if exactLookup(query) {
		slog.Debug("retrieval: statistic or reference in query, boosting FTS weight",
			"query", query,
			"original_fts", opts.WeightFTS,
			"original_vec", opts.WeightVec)
		opts.WeightFTS *= 2.0
		opts.WeightVec *= 0.5
		trace.ExactLookup = true
	}

	if isSynthesisQuery(query) {
		if opts.MaxResults < 40 {
			opts.MaxResults = 40
		}
		trace.SynthesisMode = true
	}
	trace.VecWeight = opts.WeightVec
	trace.FTSWeight = opts.WeightFTS

	slog.Debug("retrieval: starting hybrid search",
		"session", sessionID, "query_len", len(query), "max_results", opts.MaxResults,
		"weights", fmt.Sprintf("vec=%.1f fts=%.1f", opts.WeightVec, opts.WeightFTS))
	searchStart := time.Now()

	ftsQuery := sanitizeFTSQuery(query)
	trace.FTSQuery = ftsQuery

	type result struct {
		results []store.RetrievalResult
		err     error
	}

	vecCh := make(chan result, 1)
	ftsCh := make(chan result, 1)

	go func() {
		r, err := e.vectorSearch(ctx, sessionID, query, opts.MaxResults)
		vecCh <- result{r, err}
	}()

	go func() {
		r, err := e.store.FTSSearch(ctx, sessionID, ftsQuery, opts.MaxResults)
		ftsCh <- result{r, err}
	}()

	vecRes := <-vecCh
	ftsRes := <-ftsCh

	if vecRes.err != nil {
		slog.Warn("retrieval: vector search failed", "error", vecRes.err)
	}
	if ftsRes.err != nil {
		slog.Warn("retrieval: fts search failed", "error", ftsRes.err)
	}
	trace.VecResults = len(vecRes.results)
	trace.FTSResults = len(ftsRes.results)

	fused, infoMap := fuseRRF(
		vecRes.results, ftsRes.results,
		opts.WeightVec, opts.WeightFTS,
		opts.MaxResults,
	)

	trace.FusedResults = len(fused)
	trace.MaxRequested = opts.MaxResults
	trace.PerResult = infoMap
	trace.ElapsedMs = time.Since(searchStart).Milliseconds()

	slog.Debug("retrieval: search complete",
		"vec_results", trace.VecResults, "fts_results", trace.FTSResults,
		"fused", trace.FusedResults,
		"elapsed", time.Since(searchStart).Round(time.Millisecond))

	if len(fused) == 0 {
		// If every method failed, return the first error.
		if vecRes.err != nil && ftsRes.err != nil {
			return nil, trace, fmt.Errorf("vector search: %w", vecRes.err)
		}
	}

	return fused, trace, nil
}

// vectorSearch generates an embedding for the query and searches vec_chunks.
func (e *Engine) vectorSearch(ctx context.Context, sessionID, query string, k int) ([]store.RetrievalResult, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("no embedding provider")
	}
	embeddings, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return e.store.VectorSearch(ctx, sessionID, embeddings[0], k)
}
