package cli

import (
	"context"
	"fmt"

	"resumatch/internal/ai"
	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/registry"
	"resumatch/internal/scoring"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

// pairFlags are the inputs shared by score and features
type pairFlags struct {
	common.CommandConfig
	ResumeSkills []string
	JobSkills    []string
	ResumeYears  float64
	JobYears     float64
	NoEnrich     bool
}

func (p *pairFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&p.ResumeSkills, "resume-skills", nil, "Skills the candidate lists (repeat or comma separate)")
	flags.StringSliceVar(&p.JobSkills, "jd-skills", nil, "Skills the job requires (repeat or comma separate)")
	flags.Float64Var(&p.ResumeYears, "resume-years", 0, "Candidate years of experience (0: read from the resume)")
	flags.Float64Var(&p.JobYears, "jd-years", 0, "Required years of experience (0: read from the job description)")
	flags.StringVarP(&p.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	flags.StringVar(&p.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return getConfigFromContext(cmd.Context()).App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// prepare applies config defaults and validates the output format
func (p *pairFlags) prepare(cmd *cobra.Command) error {
	cfg := getConfigFromContext(cmd.Context())
	if p.OutputFormat == "" {
		p.OutputFormat = cfg.App.DefaultFormat
	}
	p.MaxFileSize = cfg.App.MaxFileSize
	return common.ValidateOutputFormat(p.OutputFormat, cfg.App.SupportedFormats)
}

// createInput maps the two file contents and flags to a scoring input
func (p *pairFlags) createInput(contents []string) (types.ScoringInput, error) {
	if len(contents) != 2 {
		return types.ScoringInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
	}
	return types.ScoringInput{
		ResumeText:     contents[0],
		JobDescription: contents[1],
		ResumeSkills:   common.JoinSkills(p.ResumeSkills),
		JobSkills:      common.JoinSkills(p.JobSkills),
		ResumeYears:    p.ResumeYears,
		JobYears:       p.JobYears,
		SkipEnrichment: p.NoEnrich,
	}, nil
}

// newEngine wires the registry, enrichment adapter and engine for a single
// CLI run. Enrichment is only built when it will be used.
func newEngine(ctx context.Context, cfg *config.Config, withEnrichment bool, logger *errors.Logger) (*scoring.Engine, func() error, error) {
	models := registry.New(cfg, logger)

	opts := scoring.Options{
		Policy:  cfg.Scoring.Policy,
		Weights: scoring.WeightsFromConfig(cfg.Scoring.Weights),
	}
	if withEnrichment {
		opts.Enrichment = ai.NewAdapterFromConfig(ctx, cfg, nil, logger)
	}

	engine, err := scoring.NewEngine(models, opts, logger)
	if err != nil {
		_ = models.Close()
		return nil, nil, err
	}
	return engine, models.Close, nil
}
