package cli

import (
	"context"
	"fmt"

	"resumatch/internal/common"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var featuresCmd = &cobra.Command{
	Use:   "features [resume-file] [job-description-file]",
	Short: "Print the model feature vector for a resume and job description",
	Long: `Print the eight-value feature vector the probability model is trained on:
sim, overlap, coverage, years_diff, resume_len, jd_len, bullets and headers.

Use --format json to export training rows.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return featuresFlags.prepare(cmd)
	},
	RunE: runFeatures,
}

var featuresFlags pairFlags

func init() {
	featuresFlags.register(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	engine, closeModels, err := newEngine(cmd.Context(), cfg, false, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeModels(); err != nil {
			logger.LogError(err, "Failed to close model registry")
		}
	}()

	err = common.RunFileCommand(
		cmd.Context(),
		logger,
		featuresFlags.CommandConfig,
		args,
		featuresFlags.createInput,
		func(ctx context.Context, in types.ScoringInput) (types.FeatureVector, error) {
			return engine.Features(ctx, in)
		},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to extract features: %w", err)
	}
	return nil
}
