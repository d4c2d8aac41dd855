package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scholar "github.com/bbiangul/go-scholar"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"insights", "task", "chat", "translate"} {
		assert.Contains(t, names, want)
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"insights needs a file", []string{"insights"}, nil},
		{"task needs a file", []string{"task", "summarize"}, nil},
		{"unknown task", []string{"task", "dance", "paper.pdf"}, scholar.ErrUnknownTask},
		{"chat needs a question", []string{"chat", "paper.pdf"}, scholar.ErrQuestionRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestTranslateNeedsLanguage(t *testing.T) {
	_, err := run(t, "translate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--language")
}

func TestBadConfigFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "translate", "-l", "Spanish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestTaskHelpListsTasks(t *testing.T) {
	out, err := run(t, "task", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "research_gaps")
	assert.Contains(t, out, "visual_insights")
}

func TestReadText(t *testing.T) {
	got, err := readText(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("second"), 0o644))

	got, err = readText(strings.NewReader("ignored"), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond", got)

	_, err = readText(nil, []string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestReadUploads(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(p, []byte("Recall improved by 45%."), 0o644))

	uploads, err := readUploads([]string{p})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "paper.txt", uploads[0].Name)
	assert.Equal(t, "Recall improved by 45%.", string(uploads[0].Data))
}
