package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bbiangul/go-scholar/llm"
	"github.com/bbiangul/go-scholar/store"
)

func TestFuseRRF(t *testing.T) {
	vec := []store.RetrievalResult{
		{ChunkID: 1, Content: "a"},
		{ChunkID: 2, Content: "b"},
	}
	fts := []store.RetrievalResult{
		{ChunkID: 2, Content: "b"},
		{ChunkID: 3, Content: "c"},
	}

	results, infoMap := fuseRRF(vec, fts, 1.0, 0.5, 10)

	if len(results) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(results))
	}
	if info := infoMap[2]; len(info.Methods) != 2 || info.VecRank != 2 || info.FTSRank != 1 {
		t.Errorf("chunk 2 info = %+v", info)
	}

	// Chunk 1: vec rank 0 -> 1/61
	// Chunk 2: vec rank 1 -> 1/62, fts rank 0 -> 0.5/61
	// Chunk 3: fts rank 1 -> 0.5/62
	want := map[int64]float64{
		1: 1.0 / 61.0,
		2: 1.0/62.0 + 0.5/61.0,
		3: 0.5 / 62.0,
	}
	order := []int64{2, 1, 3}

	const eps = 1e-9
	for i, id := range order {
		if results[i].ChunkID != id {
			t.Errorf("position %d: got chunk %d, want %d", i, results[i].ChunkID, id)
			continue
		}
		if diff := results[i].Score - want[id]; diff < -eps || diff > eps {
			t.Errorf("chunk %d score: got %f, want %f", id, results[i].Score, want[id])
		}
	}
}

func TestFuseRRFMaxResults(t *testing.T) {
	vec := []store.RetrievalResult{{ChunkID: 1}, {ChunkID: 2}, {ChunkID: 3}}
	results, _ := fuseRRF(vec, nil, 1.0, 1.0, 2)
	if len(results) != 2 {
		t.Errorf("expected 2 results with maxResults=2, got %d", len(results))
	}
}

func TestFuseRRFEmptyInputs(t *testing.T) {
	results, _ := fuseRRF(nil, nil, 1.0, 1.0, 10)
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty inputs, got %d", len(results))
	}
}

func TestFuseRRFTiesAreDeterministic(t *testing.T) {
	vec := []store.RetrievalResult{{ChunkID: 9}}
	fts := []store.RetrievalResult{{ChunkID: 4}}
	for i := 0; i < 20; i++ {
		results, _ := fuseRRF(vec, fts, 1.0, 1.0, 10)
		if results[0].ChunkID != 4 || results[1].ChunkID != 9 {
			t.Fatalf("tie order = %d, %d", results[0].ChunkID, results[1].ChunkID)
		}
	}
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "retention rate", `"retention rate" OR retention OR rate`},
		{"operators removed", `"NOT recall" + (precision)* ^boost`, `"not recall precision boost" OR recall OR precision OR boost`},
		{"statistics", "45% with p<0.05", `"45 with p 0 05"`},
		{"single word", "Methodology", "methodology"},
		{"only short words", "a to be", `"a to be"`},
		{"nothing left", "?!", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeFTSQuery(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeFTSQuery(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestExactLookup(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"What does Table 2 report?", true},
		{"explain fig. 3", true},
		{"which results had p < 0.05", true},
		{"how many participants improved by 45%", true},
		{"what is the main contribution", false},
	}
	for _, tt := range tests {
		if got := exactLookup(tt.query); got != tt.want {
			t.Errorf("exactLookup(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestIsSynthesisQuery(t *testing.T) {
	if !isSynthesisQuery("What are the key findings of this work?") {
		t.Error("key findings should widen the window")
	}
	if isSynthesisQuery("What dataset was used?") {
		t.Error("point lookup should not widen the window")
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "a", "and", "is", "Paper"} {
		if !isStopWord(w) {
			t.Errorf("expected %q to be a stop word", w)
		}
	}
	for _, w := range []string{"retention", "regression", "cohort"} {
		if isStopWord(w) {
			t.Errorf("expected %q not to be a stop word", w)
		}
	}
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

type fakeSearcher struct {
	mu       sync.Mutex
	vec      []store.RetrievalResult
	fts      []store.RetrievalResult
	vecErr   error
	ftsErr   error
	sessions []string
	limits   []int
	ftsQuery string
}

func (f *fakeSearcher) VectorSearch(_ context.Context, sessionID string, _ []float32, k int) ([]store.RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	f.limits = append(f.limits, k)
	return f.vec, f.vecErr
}

func (f *fakeSearcher) FTSSearch(_ context.Context, sessionID, query string, limit int) ([]store.RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	f.limits = append(f.limits, limit)
	f.ftsQuery = query
	return f.fts, f.ftsErr
}

type fakeEmbedder struct{ err error }

func (fakeEmbedder) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not used")
}

func (e fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func TestSearchFusesBothMethods(t *testing.T) {
	s := &fakeSearcher{
		vec: []store.RetrievalResult{{ChunkID: 1}, {ChunkID: 2}},
		fts: []store.RetrievalResult{{ChunkID: 2}},
	}
	e := New(s, fakeEmbedder{}, Config{})

	results, trace, err := e.Search(context.Background(), "sess-1", "what was the sample", SearchOptions{MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ChunkID != 2 {
		t.Errorf("results = %+v", results)
	}
	for _, id := range s.sessions {
		if id != "sess-1" {
			t.Errorf("search ran against session %q", id)
		}
	}
	if trace.VecResults != 2 || trace.FTSResults != 1 || trace.FusedResults != 2 {
		t.Errorf("trace = %+v", trace)
	}
	if trace.ExactLookup || trace.VecWeight != 1.0 {
		t.Errorf("unexpected weighting: %+v", trace)
	}
	if s.ftsQuery != trace.FTSQuery {
		t.Errorf("fts query %q not recorded", s.ftsQuery)
	}
}

func TestSearchBoostsFTSForStatistics(t *testing.T) {
	s := &fakeSearcher{}
	e := New(s, fakeEmbedder{}, Config{WeightVector: 1, WeightFTS: 1})

	_, trace, err := e.Search(context.Background(), "s", "which outcome had p < 0.01", SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !trace.ExactLookup || trace.FTSWeight != 2.0 || trace.VecWeight != 0.5 {
		t.Errorf("trace = %+v", trace)
	}
}

func TestSearchWidensForSynthesis(t *testing.T) {
	s := &fakeSearcher{}
	e := New(s, fakeEmbedder{}, Config{})

	_, trace, _ := e.Search(context.Background(), "s", "list all limitations", SearchOptions{MaxResults: 10})
	if !trace.SynthesisMode || trace.MaxRequested != 40 {
		t.Errorf("trace = %+v", trace)
	}
}

func TestSearchDegradesToFTS(t *testing.T) {
	s := &fakeSearcher{fts: []store.RetrievalResult{{ChunkID: 7}}}
	e := New(s, fakeEmbedder{err: errors.New("embedder down")}, Config{})

	results, _, err := e.Search(context.Background(), "s", "retention", SearchOptions{})
	if err != nil {
		t.Fatalf("FTS results should be enough: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != 7 {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchFailsWhenEverythingFails(t *testing.T) {
	s := &fakeSearcher{ftsErr: errors.New("fts broken")}
	e := New(s, fakeEmbedder{err: errors.New("embedder down")}, Config{})

	if _, _, err := e.Search(context.Background(), "s", "retention", SearchOptions{}); err == nil {
		t.Fatal("expected an error")
	}
}
