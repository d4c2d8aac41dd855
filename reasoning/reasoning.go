package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bbiangul/go-scholar/llm"
	"github.com/bbiangul/go-scholar/store"
)

// Config holds reasoning engine configuration.
type Config struct {
	MaxRounds           int
	ConfidenceThreshold float64
}

// Options configures a single reasoning operation.
type Options struct {
	MaxRounds int
}

// Answer is the final output of the reasoning pipeline.
type Answer struct {
	Text             string     `json:"text"`
	Confidence       float64    `json:"confidence"`
	Sources          []Source   `json:"sources"`
	Citations        []Citation `json:"citations,omitempty"`
	Reasoning        []Step     `json:"reasoning"`
	ModelUsed        string     `json:"model_used"`
	Rounds           int        `json:"rounds"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
}

// Source tracks a chunk used in the answer.
type Source struct {
	Index      int     `json:"index"` // N in [Source N]
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	Snippet    string  `json:"snippet,omitempty"`
	Heading    string  `json:"heading"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// Step records a single round of the reasoning pipeline.
type Step struct {
	Round      int      `json:"round"`
	Action     string   `json:"action"`
	Input      string   `json:"input,omitempty"`
	Output     string   `json:"output,omitempty"`
	Prompt     string   `json:"prompt,omitempty"`   // full prompt sent to LLM (for replay)
	Response   string   `json:"response,omitempty"` // raw LLM response
	Validation string   `json:"validation,omitempty"`
	ChunksUsed int      `json:"chunks_used,omitempty"`
	Tokens     int      `json:"tokens,omitempty"`
	ElapsedMs  int64    `json:"elapsed_ms,omitempty"`
	Issues     []string `json:"issues,omitempty"`
}

// Engine answers questions about a paper in up to three rounds with
// validation between them.
type Engine struct {
	chat llm.Provider
	cfg  Config
}

// New creates a new reasoning engine.
func New(chat llm.Provider, cfg Config) *Engine {
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = 3
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	return &Engine{chat: chat, cfg: cfg}
}

// Reason runs the multi-round pipeline:
// Round 1: answer from the retrieved passages
// Round 2: validate [Source N] citations and check for outside knowledge
// Round 3: if confidence < threshold, refine and re-answer
func (e *Engine) Reason(ctx context.Context, question string, chunks []store.RetrievalResult, opts Options) (*Answer, error) {
	if e.chat == nil {
		return nil, fmt.Errorf("reasoning: no chat provider")
	}
	maxRounds := opts.MaxRounds
	if maxRounds == 0 {
		maxRounds = e.cfg.MaxRounds
	}

	var steps []Step
	var modelUsed string
	var promptTokens, completionTokens, totalTokens int

	slog.Info("reasoning: round 1 starting", "question_len", len(question), "chunks", len(chunks))
	round1Start := time.Now()
	contextStr := buildContext(chunks)
	initialPrompt := buildAnswerPrompt(question, contextStr)

	resp, err := e.ask(ctx, initialPrompt)
	if err != nil {
		return nil, fmt.Errorf("round 1 generation: %w", err)
	}
	round1Elapsed := time.Since(round1Start)
	slog.Info("reasoning: round 1 complete",
		"tokens", resp.TotalTokens, "elapsed", round1Elapsed.Round(time.Millisecond))

	currentAnswer := resp.Content
	modelUsed = resp.Model
	promptTokens += resp.PromptTokens
	completionTokens += resp.CompletionTokens
	totalTokens += resp.TotalTokens
	steps = append(steps, Step{
		Round:      1,
		Action:     "initial_answer",
		Input:      question,
		Output:     currentAnswer,
		Prompt:     initialPrompt,
		Response:   resp.Content,
		ChunksUsed: len(chunks),
		Tokens:     resp.TotalTokens,
		ElapsedMs:  round1Elapsed.Milliseconds(),
	})

	finish := func(answer string, confidence float64, rounds int) *Answer {
		return &Answer{
			Text:             answer,
			Confidence:       confidence,
			Sources:          buildSources(answer, chunks),
			Citations:        ExtractCitations(answer, chunks),
			Reasoning:        steps,
			ModelUsed:        modelUsed,
			Rounds:           rounds,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		}
	}

	if maxRounds < 2 {
		return finish(currentAnswer, ComputeConfidence(currentAnswer, chunks, DefaultConfidenceWeights()), 1), nil
	}

	validation := validate(currentAnswer, chunks)
	steps = append(steps, Step{
		Round:      2,
		Action:     "validation",
		Input:      currentAnswer,
		Output:     validation.summary(),
		Validation: validation.summary(),
		Issues:     validation.issues(),
	})
	confidence := validation.confidence()

	if maxRounds < 3 || confidence >= e.cfg.ConfidenceThreshold {
		return finish(currentAnswer, confidence, len(steps)), nil
	}

	slog.Info("reasoning: round 3 starting (confidence below threshold)",
		"confidence", fmt.Sprintf("%.2f", confidence),
		"threshold", fmt.Sprintf("%.2f", e.cfg.ConfidenceThreshold))
	round3Start := time.Now()
	refinementPrompt := buildRefinementPrompt(question, currentAnswer, contextStr, validation)

	resp, err = e.ask(ctx, refinementPrompt)
	if err != nil {
		// Non-fatal: keep the round 1 answer.
		slog.Warn("reasoning: refinement failed", "error", err)
		return finish(currentAnswer, confidence, len(steps)), nil
	}

	round3Elapsed := time.Since(round3Start)
	currentAnswer = resp.Content
	promptTokens += resp.PromptTokens
	completionTokens += resp.CompletionTokens
	totalTokens += resp.TotalTokens
	steps = append(steps, Step{
		Round:      3,
		Action:     "refinement",
		Input:      validation.summary(),
		Output:     currentAnswer,
		Prompt:     refinementPrompt,
		Response:   resp.Content,
		ChunksUsed: len(chunks),
		Tokens:     resp.TotalTokens,
		ElapsedMs:  round3Elapsed.Milliseconds(),
	})
	slog.Info("reasoning: round 3 complete",
		"tokens", resp.TotalTokens, "elapsed", round3Elapsed.Round(time.Millisecond))

	return finish(currentAnswer, validate(currentAnswer, chunks).confidence(), len(steps)), nil
}

func (e *Engine) ask(ctx context.Context, prompt string) (*llm.ChatResponse, error) {
	return e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	})
}

const systemPrompt = `You are a research assistant answering questions about academic papers. Answer ONLY from the provided passages.
Rules:
1. Only state findings, numbers and claims that appear in the passages.
2. Cite every claim with the passage it comes from, written as [Source N].
3. Quote statistics exactly as reported (effect sizes, p-values, percentages, sample sizes).
4. If the passages do not contain the answer, say so explicitly.
5. Be concise but thorough.`

func buildContext(chunks []store.RetrievalResult) string {
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "--- Source %d: %s", i+1, c.Filename)
		if c.Heading != "" {
			fmt.Fprintf(&b, " | %s", c.Heading)
		}
		if c.PageNumber > 0 {
			fmt.Fprintf(&b, " | Page %d", c.PageNumber)
		}
		b.WriteString(" ---\n")
		b.WriteString(c.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func buildAnswerPrompt(question, context string) string {
	return fmt.Sprintf(`Passages:
%s

Question: %s

Answer using only the passages above. Cite them as [Source N].`, context, question)
}

func buildRefinementPrompt(question, previousAnswer, context string, v *validationResult) string {
	return fmt.Sprintf(`Passages:
%s

Question: %s

Previous answer:
%s

Issues found during validation:
%s

Please provide an improved answer that addresses the validation issues. Cite every claim as [Source N].`, context, question, previousAnswer, v.summary())
}

// buildSources converts retrieved chunks into answer sources, attaching the
// sentences of each chunk that best match the answer.
func buildSources(answer string, chunks []store.RetrievalResult) []Source {
	words := significantWords(sourceRefPattern.ReplaceAllString(answer, " "))
	sources := make([]Source, len(chunks))
	for i, c := range chunks {
		sources[i] = Source{
			Index:      i + 1,
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Filename:   c.Filename,
			Content:    c.Content,
			Snippet:    extractSnippet(c.Content, words),
			Heading:    c.Heading,
			PageNumber: c.PageNumber,
			Score:      c.Score,
		}
	}
	return sources
}
