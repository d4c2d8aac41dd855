package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bbiangul/go-scholar/llm"
)

// scriptedProvider answers each call with the next reply and records prompts.
type scriptedProvider struct {
	replies []string
	prompts []string
	err     error
}

func (p *scriptedProvider) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.prompts = append(p.prompts, req.Messages[len(req.Messages)-1].Content)
	if p.err != nil {
		return nil, p.err
	}
	i := len(p.prompts) - 1
	if i >= len(p.replies) {
		return &llm.ChatResponse{Content: fmt.Sprintf("reply %d", i)}, nil
	}
	return &llm.ChatResponse{Content: p.replies[i]}, nil
}

func (p *scriptedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func TestParseTask(t *testing.T) {
	tests := []struct {
		in   string
		want Task
	}{
		{"summarize", TaskSummarize},
		{"research-gaps", TaskResearchGaps},
		{"RESEARCH_IDEAS", TaskResearchIdeas},
		{"Simulate a debate", TaskDebate},
		{"  generate citation ", TaskCitation},
		{"Generate visual insights", TaskVisualInsights},
		{"chat", TaskChat},
	}
	for _, tt := range tests {
		got, err := ParseTask(tt.in)
		if err != nil {
			t.Errorf("ParseTask(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTask("write my thesis"); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
}

func TestTasksHaveLabels(t *testing.T) {
	for _, task := range Tasks() {
		if task.Label() == string(task) {
			t.Errorf("task %q has no label", task)
		}
		back, err := ParseTask(task.Label())
		if err != nil || back != task {
			t.Errorf("label %q parsed to %q, %v", task.Label(), back, err)
		}
	}
}

func TestDocumentTask(t *testing.T) {
	if TaskVisualInsights.DocumentTask() || TaskChat.DocumentTask() {
		t.Error("visual insights and chat need their own pipelines")
	}
	if !TaskDebate.DocumentTask() {
		t.Error("debate should be a document task")
	}
}

func TestSummarizeStuffsLeadingChunks(t *testing.T) {
	chunks := make([]string, 12)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk-%02d", i)
	}
	p := &scriptedProvider{replies: []string{"  the summary \n"}}
	a := New(p)

	got, err := a.Summarize(context.Background(), chunks)
	if err != nil {
		t.Fatal(err)
	}
	if got != "the summary" {
		t.Errorf("got %q", got)
	}

	prompt := p.prompts[0]
	if !strings.Contains(prompt, "chunk-00\n\nchunk-01") {
		t.Error("chunks should be joined by blank lines")
	}
	if !strings.Contains(prompt, "chunk-09") || strings.Contains(prompt, "chunk-10") {
		t.Error("only the first 10 chunks belong in the prompt")
	}
	if !strings.HasPrefix(prompt, "You are a helpful assistant.") {
		t.Errorf("unexpected prompt: %q", prompt)
	}
}

func TestWithMaxChunks(t *testing.T) {
	p := &scriptedProvider{}
	a := New(p, WithMaxChunks(1))
	if _, err := a.Citation(context.Background(), []string{"first", "second"}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(p.prompts[0], "second") {
		t.Error("second chunk should be dropped")
	}
	if !strings.Contains(p.prompts[0], "APA-style") {
		t.Error("citation prompt not used")
	}
}

func TestResearchIdeasChainsPrompts(t *testing.T) {
	p := &scriptedProvider{replies: []string{"SUMMARY", "GAPS", "IDEAS"}}
	a := New(p)

	got, err := a.ResearchIdeas(context.Background(), []string{"paper text"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "IDEAS" {
		t.Errorf("got %q", got)
	}
	if len(p.prompts) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(p.prompts))
	}
	if !strings.HasSuffix(p.prompts[1], "limitations:\nSUMMARY") {
		t.Errorf("gap prompt should carry the summary: %q", p.prompts[1])
	}
	if !strings.Contains(p.prompts[2], "Given the research gaps:\nGAPS\n") {
		t.Errorf("idea prompt should carry the gaps: %q", p.prompts[2])
	}
}

func TestDebateUsesSummary(t *testing.T) {
	p := &scriptedProvider{replies: []string{"SUMMARY", "Supporter: yes\nCritic: no"}}
	got, err := New(p).Run(context.Background(), TaskDebate, []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "Supporter:") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(p.prompts[1], "reference:\nSUMMARY\n") {
		t.Errorf("debate prompt: %q", p.prompts[1])
	}
}

func TestRunRejectsPipelineTasks(t *testing.T) {
	a := New(&scriptedProvider{})
	for _, task := range []Task{TaskChat, TaskVisualInsights, "bogus"} {
		if _, err := a.Run(context.Background(), task, nil); !errors.Is(err, ErrUnknownTask) {
			t.Errorf("Run(%q): expected ErrUnknownTask, got %v", task, err)
		}
	}
}

func TestProviderErrorPropagates(t *testing.T) {
	boom := errors.New("rate limited")
	p := &scriptedProvider{err: boom}
	_, err := New(p).ResearchGaps(context.Background(), []string{"x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if len(p.prompts) != 1 {
		t.Errorf("chain should stop after the first failure, made %d calls", len(p.prompts))
	}
}

func TestTranslate(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Hola"}}
	a := New(p)

	got, err := a.Translate(context.Background(), JoinSections("Hello", "World"), "Spanish")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hola" {
		t.Errorf("got %q", got)
	}
	want := "Translate the following content into Spanish, preserving meaning and academic tone:\nHello\n\nWorld"
	if p.prompts[0] != want {
		t.Errorf("prompt = %q, want %q", p.prompts[0], want)
	}

	if _, err := a.Translate(context.Background(), "x", "  "); err == nil {
		t.Error("expected error for empty language")
	}
}

func TestChartAnalysisVariables(t *testing.T) {
	vars := ChartAnalysisPrompt.Variables()
	if len(vars) != 2 || vars[0] != "data_summary" || vars[1] != "chart_type" {
		t.Errorf("variables = %v", vars)
	}
}
