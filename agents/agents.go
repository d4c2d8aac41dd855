// Package agents runs the fixed research-assistant prompts over a paper's
// chunks: summaries, research gaps, project ideas, a supporter/critic debate,
// citations and translations.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bbiangul/go-scholar/llm"
)

// ErrUnknownTask is returned for task names that are not in the catalogue.
var ErrUnknownTask = errors.New("agents: unknown task")

// DefaultMaxChunks is how many leading chunks are stuffed into a prompt.
const DefaultMaxChunks = 10

// Task identifies one of the assistant's actions.
type Task string

const (
	TaskSummarize      Task = "summarize"
	TaskResearchGaps   Task = "research_gaps"
	TaskResearchIdeas  Task = "research_ideas"
	TaskDebate         Task = "debate"
	TaskCitation       Task = "citation"
	TaskVisualInsights Task = "visual_insights"
	TaskChat           Task = "chat"
)

var taskLabels = map[Task]string{
	TaskSummarize:      "Summarize document",
	TaskResearchGaps:   "Identify research gaps",
	TaskResearchIdeas:  "Suggest research ideas",
	TaskDebate:         "Simulate a debate",
	TaskCitation:       "Generate citation",
	TaskVisualInsights: "Generate visual insights",
	TaskChat:           "Chat with paper",
}

// Tasks lists every task in menu order.
func Tasks() []Task {
	return []Task{
		TaskSummarize, TaskResearchGaps, TaskResearchIdeas, TaskDebate,
		TaskCitation, TaskVisualInsights, TaskChat,
	}
}

// Label is the human-readable menu entry for t.
func (t Task) Label() string {
	if l, ok := taskLabels[t]; ok {
		return l
	}
	return string(t)
}

// DocumentTask reports whether t is answered by prompting over the
// session's chunks alone.
func (t Task) DocumentTask() bool {
	switch t {
	case TaskSummarize, TaskResearchGaps, TaskResearchIdeas, TaskDebate, TaskCitation:
		return true
	}
	return false
}

// ParseTask accepts a task ID ("research-gaps" and "research_gaps" are the
// same) or its menu label, case-insensitively.
func ParseTask(s string) (Task, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	id := Task(strings.ReplaceAll(norm, "-", "_"))
	if _, ok := taskLabels[id]; ok {
		return id, nil
	}
	for t, label := range taskLabels {
		if strings.ToLower(label) == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
}

// Agent runs prompt templates against a chat provider.
type Agent struct {
	provider  llm.Provider
	maxChunks int
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxChunks caps how many chunks are placed in {context}.
func WithMaxChunks(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxChunks = n
		}
	}
}

// New creates an Agent.
func New(provider llm.Provider, opts ...Option) *Agent {
	a := &Agent{provider: provider, maxChunks: DefaultMaxChunks}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run executes a document task over chunks.
func (a *Agent) Run(ctx context.Context, task Task, chunks []string) (string, error) {
	switch task {
	case TaskSummarize:
		return a.Summarize(ctx, chunks)
	case TaskResearchGaps:
		return a.ResearchGaps(ctx, chunks)
	case TaskResearchIdeas:
		return a.ResearchIdeas(ctx, chunks)
	case TaskDebate:
		return a.Debate(ctx, chunks)
	case TaskCitation:
		return a.Citation(ctx, chunks)
	}
	return "", fmt.Errorf("%w: %q is not a document task", ErrUnknownTask, task)
}

// Summarize summarizes the leading chunks.
func (a *Agent) Summarize(ctx context.Context, chunks []string) (string, error) {
	return SummaryPrompt.Run(ctx, a.provider, map[string]string{
		"context": a.stuff(chunks),
	})
}

// ResearchGaps summarizes first, then asks for gaps in the summary.
func (a *Agent) ResearchGaps(ctx context.Context, chunks []string) (string, error) {
	summary, err := a.Summarize(ctx, chunks)
	if err != nil {
		return "", err
	}
	return GapPrompt.Run(ctx, a.provider, map[string]string{"summary": summary})
}

// ResearchIdeas chains summary, gaps and ideas.
func (a *Agent) ResearchIdeas(ctx context.Context, chunks []string) (string, error) {
	gaps, err := a.ResearchGaps(ctx, chunks)
	if err != nil {
		return "", err
	}
	return IdeaPrompt.Run(ctx, a.provider, map[string]string{"gaps": gaps})
}

// Debate stages a supporter/critic exchange about the summary.
func (a *Agent) Debate(ctx context.Context, chunks []string) (string, error) {
	summary, err := a.Summarize(ctx, chunks)
	if err != nil {
		return "", err
	}
	return DebatePrompt.Run(ctx, a.provider, map[string]string{"summary": summary})
}

// Citation drafts an APA citation from the leading chunks.
func (a *Agent) Citation(ctx context.Context, chunks []string) (string, error) {
	return CitationPrompt.Run(ctx, a.provider, map[string]string{
		"context": a.stuff(chunks),
	})
}

// Translate renders content in language.
func (a *Agent) Translate(ctx context.Context, content, language string) (string, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return "", errors.New("agents: translation language is empty")
	}
	return TranslatePrompt.Run(ctx, a.provider, map[string]string{
		"language": language,
		"content":  content,
	})
}

// JoinSections merges multi-part output into one translatable text.
func JoinSections(parts ...string) string {
	return strings.Join(parts, "\n\n")
}

func (a *Agent) stuff(chunks []string) string {
	if len(chunks) > a.maxChunks {
		chunks = chunks[:a.maxChunks]
	}
	return strings.Join(chunks, "\n\n")
}
