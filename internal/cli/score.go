package cli

import (
	"context"
	"fmt"

	"resumatch/internal/common"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file] [job-description-file]",
	Short: "Score a resume against a job description",
	Long: `Score a resume against a job description and print the match report.

The report includes:
- Overall and ML scores with the composition policy used
- Per-component breakdown (keywords, semantic, skills, experience, ATS, sections)
- Recommendations and missing job description keywords
- AI analysis when enrichment is configured (disable with --no-enrich)`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return scoreFlags.prepare(cmd)
	},
	RunE: runScore,
}

var scoreFlags pairFlags

func init() {
	scoreFlags.register(scoreCmd)
	scoreCmd.Flags().BoolVar(&scoreFlags.NoEnrich, "no-enrich", false, "Skip AI enrichment even when configured")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	engine, closeModels, err := newEngine(cmd.Context(), cfg, !scoreFlags.NoEnrich, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeModels(); err != nil {
			logger.LogError(err, "Failed to close model registry")
		}
	}()

	logDetails := func(input types.ScoringInput, c common.CommandConfig) {
		logger.Info("Starting match scoring",
			"resume_chars", len(input.ResumeText),
			"jd_chars", len(input.JobDescription),
			"enrichment", engine.EnrichmentAvailable() && !input.SkipEnrichment,
			"output_format", c.OutputFormat)
	}

	err = common.RunFileCommand(
		cmd.Context(),
		logger,
		scoreFlags.CommandConfig,
		args,
		scoreFlags.createInput,
		func(ctx context.Context, in types.ScoringInput) (*types.ScoringResult, error) {
			return engine.Score(ctx, in)
		},
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	logger.Info("Match scoring completed successfully")
	return nil
}
