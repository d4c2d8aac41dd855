// Command scholar runs the research assistant from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	scholar "github.com/bbiangul/go-scholar"
	"github.com/bbiangul/go-scholar/llm"
)

type cli struct {
	configPath string
	verbose    bool
	cfg        scholar.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "scholar",
		Short:        "Research paper assistant: summaries, gaps, ideas, debates, citations, chat and charts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (YAML or JSON)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.insightsCmd(),
		c.taskCmd(),
		c.chatCmd(),
		c.translateCmd(),
	)
	return root
}

func (c *cli) setup(logOut io.Writer) error {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading .env", "error", err)
	}

	c.cfg = scholar.DefaultConfig()
	if c.configPath != "" {
		cfg, err := scholar.LoadConfig(c.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		c.cfg = cfg
	}
	c.cfg.ApplyEnv()
	return nil
}

// chatProvider builds the configured chat model for commands that do not
// need the document index.
func (c *cli) chatProvider() (llm.Provider, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	return llm.NewProvider(llm.Config{
		Provider: c.cfg.Chat.Provider,
		Model:    c.cfg.Chat.Model,
		BaseURL:  c.cfg.Chat.BaseURL,
		APIKey:   c.cfg.Chat.APIKey,
	})
}

// withSession opens the assistant, ingests files into a fresh session and
// calls fn. The session is removed afterwards unless keep is set.
func (c *cli) withSession(ctx context.Context, files []string, keep bool, fn func(a scholar.Assistant, sessionID string) error) error {
	uploads, err := readUploads(files)
	if err != nil {
		return err
	}

	a, err := scholar.New(c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.NewSession(ctx)
	if err != nil {
		return err
	}
	if keep {
		slog.Info("session kept", "session_id", id)
	} else {
		defer func() {
			if err := a.DeleteSession(context.Background(), id); err != nil {
				slog.Warn("removing session", "session_id", id, "error", err)
			}
		}()
	}

	results, err := a.Ingest(ctx, id, uploads)
	if err != nil {
		return err
	}
	for _, r := range results {
		slog.Debug("ingested", "file", r.Filename, "chunks", r.Chunks, "tables", r.Tables, "pages", r.Pages)
	}
	return fn(a, id)
}

func readUploads(files []string) ([]scholar.Upload, error) {
	uploads := make([]scholar.Upload, 0, len(files))
	for _, f := range files {
		u, err := scholar.UploadFromFile(f)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

// readText concatenates files, or reads in when there are none.
func readText(in io.Reader, files []string) (string, error) {
	if len(files) == 0 {
		b, err := io.ReadAll(in)
		return string(b), err
	}
	var parts []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "\n\n"), nil
}
