package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"quiz-learning-service/internal/config"
	"quiz-learning-service/internal/domain"
	"quiz-learning-service/internal/logger"
)

type generateOptions struct {
	topic        string
	file         string
	difficulty   string
	count        int
	format       string
	explanations bool
	asJSON       bool
}

// NewGenerateCmd generates one quiz from the command line.
func NewGenerateCmd(configPath *string) *cobra.Command {
	defaults := domain.DefaultGenerationConfig()
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz from a topic or a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runGenerate(ctx, *configPath, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.topic, "topic", "", "quiz topic")
	cmd.Flags().StringVar(&opts.file, "file", "", "study document to generate from")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", string(defaults.Difficulty), "easy, medium or hard")
	cmd.Flags().IntVar(&opts.count, "count", defaults.QuestionCount, "number of questions (5-30)")
	cmd.Flags().StringVar(&opts.format, "format", string(defaults.Format), "multiple-choice, true-false, short-answer or mixed")
	cmd.Flags().BoolVar(&opts.explanations, "explanations", defaults.IncludeExplanations, "include answer explanations")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the quiz as JSON")
	cmd.MarkFlagsMutuallyExclusive("topic", "file")
	return cmd
}

func (o generateOptions) request() (domain.GenerationRequest, error) {
	req := domain.GenerationRequest{
		Method: domain.MethodTopic,
		Topic:  o.topic,
		GenerationConfig: domain.GenerationConfig{
			Difficulty:          domain.Difficulty(o.difficulty),
			QuestionCount:       o.count,
			Format:              domain.QuizFormat(o.format),
			IncludeExplanations: o.explanations,
		},
	}
	if o.file != "" {
		content, err := os.ReadFile(o.file)
		if err != nil {
			return req, fmt.Errorf("read document: %w", err)
		}
		req.Method = domain.MethodDocument
		req.Document = &domain.Document{Name: filepath.Base(o.file), Content: content}
	}
	return req, nil
}

func runGenerate(ctx context.Context, configPath string, opts generateOptions, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Logs go to stderr so --json output stays machine readable.
	log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	req, err := opts.request()
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	quiz, err := rt.service.Generate(ctx, req)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(quiz)
	}
	printQuiz(out, quiz)
	return nil
}

func printQuiz(out io.Writer, quiz domain.Quiz) {
	title := color.New(color.FgCyan, color.Bold)
	correct := color.New(color.FgGreen)
	muted := color.New(color.Faint)

	title.Fprintf(out, "%s\n", quiz.Title)
	muted.Fprintf(out, "%s (id %s)\n\n", quiz.Description, quiz.ID)
	for i, q := range quiz.Questions {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Text)
		for _, opt := range q.Options {
			if opt.ID == q.CorrectAnswer {
				correct.Fprintf(out, "   %s) %s\n", opt.ID, opt.Text)
				continue
			}
			fmt.Fprintf(out, "   %s) %s\n", opt.ID, opt.Text)
		}
		if q.Explanation != "" {
			muted.Fprintf(out, "   %s\n", q.Explanation)
		}
		fmt.Fprintln(out)
	}
}
