// Package main provides the quizrag CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/edforge/quizrag/cli"
)

var (
	// Global flags
	provider  string
	dbPath    string
	redisAddr string
	verbose   bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "quizrag",
		Short: "Quiz composition from retrieved question candidates",
		Long: `A CLI tool for composing starter and exit quizzes from a question bank.

Three candidate generators feed an LLM composer:
- based-on: the quiz of the lesson the plan was derived from
- related: quizzes of curriculum-related lessons
- semantic: multi-query search over the question index`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "openai", "LLM provider (openai, anthropic, gemini)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Question bank database path (default data/questions.db)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address for the image description cache")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(composeCmd())
	rootCmd.AddCommand(debugCmd())
	rootCmd.AddCommand(ingestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func composeCmd() *cobra.Command {
	var planPath string
	var quizType string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a quiz for a lesson plan",
		Long: `Compose a six-question quiz for a lesson plan.

Reads a lesson plan JSON file, runs the candidate generators, resolves
image references and prints the composed quiz as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{
				Provider:  provider,
				PlanPath:  planPath,
				QuizType:  quizType,
				DBPath:    dbPath,
				RedisAddr: redisAddr,
				Verbose:   verbose,
			}
			return cli.Compose(context.Background(), opts)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Path to the lesson plan JSON file")
	cmd.Flags().StringVar(&quizType, "type", "starter", "Quiz type: starter or exit")

	return cmd
}

func debugCmd() *cobra.Command {
	var planPath string
	var quizType string

	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Compose a quiz with live stage reports",
		Long: `Compose a quiz while streaming per-stage progress.

Each stage transition is printed as one JSON line, followed by the full
debug result: per-generator pools, retrieval detail per query, the
composer prompt and response, and a timing breakdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{
				Provider:  provider,
				PlanPath:  planPath,
				QuizType:  quizType,
				DBPath:    dbPath,
				RedisAddr: redisAddr,
				Verbose:   verbose,
			}
			return cli.Debug(context.Background(), opts)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Path to the lesson plan JSON file")
	cmd.Flags().StringVar(&quizType, "type", "starter", "Quiz type: starter or exit")

	return cmd
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Load questions into the question bank",
		Long: `Load a JSON file of questions into the question bank.

The file is an array of records with a lessonId, a quizType and the
question payload. Existing UIDs are updated in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{
				Provider: provider,
				DBPath:   dbPath,
				Verbose:  verbose,
			}
			return cli.Ingest(context.Background(), args[0], opts)
		},
	}

	return cmd
}
