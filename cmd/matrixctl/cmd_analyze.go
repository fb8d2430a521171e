package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/okian/evalmatrix/internal/adapters/analyzer"
	"github.com/okian/evalmatrix/internal/adapters/llm/gemini"
	"github.com/okian/evalmatrix/internal/config"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/okian/evalmatrix/pkg/logger"
	"github.com/spf13/cobra"
)

// errNoBackend is returned when neither a service url nor an api key is set.
var errNoBackend = errors.New("no analysis backend: pass --url or set GEMINI_API_KEY")

type snapshotAnalyzer interface {
	Analyze(ctx context.Context, snap types.Snapshot) (types.Analysis, error)
}

func newAnalyzeCommand(g *globalOptions) *cobra.Command {
	var (
		url     string
		timeout time.Duration
		retries int
	)
	cmd := &cobra.Command{
		Use:   "analyze <evaluation.json>",
		Short: "Request an AI analysis of a document",
		Long: `Send the document to an analysis service and print the normalized
analysis as JSON.

The service is taken from --url, then from EVALMATRIX_ANALYSIS_URL. Without
either, Gemini is called directly when GEMINI_API_KEY is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := config.LoadDotEnv(config.DotEnvFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.AnalysisURL
			}
			if timeout <= 0 {
				timeout = cfg.AnalysisTimeout()
			}
			if !cmd.Flags().Changed("retries") {
				retries = cfg.AnalysisRetries
			}

			c, sess, err := g.loadDocument(cmd, args[0])
			if err != nil {
				return err
			}

			backend, err := analysisBackend(ctx, cfg, url, timeout, retries)
			if err != nil {
				return err
			}
			res, err := backend.Analyze(ctx, c.ToSnapshot(sess))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Base url of an analysis service")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (default from config)")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retries on 5xx and transport errors")

	return cmd
}

func analysisBackend(ctx context.Context, cfg *config.Config, url string, timeout time.Duration, retries int) (snapshotAnalyzer, error) {
	log := logger.Get()
	if url != "" {
		return analyzer.New(url,
			analyzer.WithTimeout(timeout),
			analyzer.WithRetries(retries),
			analyzer.WithLogger(log.Named("analyzer")),
		), nil
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errNoBackend
	}
	return gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel,
		gemini.WithSystemPrompt(cfg.SystemPrompt),
		gemini.WithTimeout(timeout),
		gemini.WithLogger(log.Named("gemini")),
	)
}
