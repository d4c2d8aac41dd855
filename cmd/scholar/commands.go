package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	scholar "github.com/bbiangul/go-scholar"
	"github.com/bbiangul/go-scholar/agents"
	"github.com/bbiangul/go-scholar/insight"
	"github.com/bbiangul/go-scholar/parser"
)

func (c *cli) insightsCmd() *cobra.Command {
	var pngPath, htmlPath string
	cmd := &cobra.Command{
		Use:   "insights FILE...",
		Short: "Chart, data summary and analysis of the numbers in one or more papers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.chatProvider()
			if err != nil {
				return err
			}
			uploads, err := readUploads(args)
			if err != nil {
				return err
			}
			sources := make([]parser.Source, len(uploads))
			for i, u := range uploads {
				sources[i] = parser.Source{Name: u.Name, Reader: bytes.NewReader(u.Data)}
			}

			b := insight.New(p).Generate(cmd.Context(), sources)
			printBundle(cmd, b)

			if pngPath != "" && b.StaticChart != nil {
				if err := os.WriteFile(pngPath, b.StaticChart.PNG, 0o644); err != nil {
					return err
				}
			}
			if htmlPath != "" && b.InteractiveChart != nil {
				page, err := b.InteractiveChart.HTML()
				if err != nil {
					return err
				}
				if err := os.WriteFile(htmlPath, page, 0o644); err != nil {
					return err
				}
			}
			if b.Failed() {
				return errors.New(b.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "write the static chart to this file")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write the interactive chart page to this file")
	return cmd
}

func printBundle(cmd *cobra.Command, b *insight.Bundle) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chart: %s (%d tables found)\n", b.ChartKind, b.TablesFound)
	fmt.Fprintf(out, "Data summary: %s\n", b.DataSummary)
	if len(b.ExtractedNumbers) > 0 {
		fmt.Fprintf(out, "Numbers: %s\n", strings.Join(b.ExtractedNumbers, ", "))
	}
	fmt.Fprintf(out, "\n%s\n", b.AIAnalysis)
}

func (c *cli) taskCmd() *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "task NAME FILE...",
		Short: "Run an assistant task over papers",
		Long: "Run one of the assistant tasks over the given papers. NAME is one of:\n  " +
			taskNames(),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := scholar.ParseTask(args[0])
			if err != nil {
				return err
			}
			return c.withSession(cmd.Context(), args[1:], keep, func(a scholar.Assistant, id string) error {
				res, err := a.RunTask(cmd.Context(), id, task)
				if err != nil {
					return err
				}
				if res.Insights != nil {
					printBundle(cmd, res.Insights)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Output)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the session in the database")
	return cmd
}

func taskNames() string {
	var names []string
	for _, t := range agents.Tasks() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func (c *cli) chatCmd() *cobra.Command {
	var (
		question string
		rounds   int
		keep     bool
	)
	cmd := &cobra.Command{
		Use:   "chat FILE...",
		Short: "Ask a question about papers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(question) == "" {
				return scholar.ErrQuestionRequired
			}
			return c.withSession(cmd.Context(), args, keep, func(a scholar.Assistant, id string) error {
				var opts []scholar.ChatOption
				if rounds > 0 {
					opts = append(opts, scholar.WithMaxRounds(rounds))
				}
				ans, err := a.Chat(cmd.Context(), id, question, opts...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ans.Text)
				fmt.Fprintf(out, "\nConfidence: %.2f\n", ans.Confidence)
				for _, s := range ans.Sources {
					fmt.Fprintf(out, "[Source %d] %s p.%d %s\n", s.Index, s.Filename, s.PageNumber, s.Heading)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "reasoning rounds (1-3)")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the session in the database")
	return cmd
}

func (c *cli) translateCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "translate [FILE...]",
		Short: "Translate text files, or stdin, into another language",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(language) == "" {
				return errors.New("--language is required")
			}
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return scholar.ErrNoOutput
			}
			p, err := c.chatProvider()
			if err != nil {
				return err
			}
			out, err := agents.New(p).Translate(cmd.Context(), text, language)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "target language")
	return cmd
}
