// Package report assembles the commands that inspect repository history:
// stale branch analysis and per-author contribution accounting.
package report

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repovault/repovault/internal/shared"
	"github.com/repovault/repovault/internal/staleness"
	"github.com/repovault/repovault/internal/utils"
)

const (
	staleCommandUseConstant              = "stale-branches"
	staleCommandShortDescriptionConstant = "List unmerged branches older than a threshold"
	staleCommandLongDescriptionConstant  = "stale-branches lists remote branches that are not merged into the stable branch and whose last commit is older than the configured threshold."

	staleRepositoryPathFlagNameConstant = "path"
	staleRepositoryPathFlagDescription  = "Filesystem path of the working copy to inspect"
	thresholdFlagNameConstant           = "threshold"
	thresholdFlagDescriptionConstant    = "Age threshold in days"
	stableBranchFlagNameConstant        = "stable-branch"
	stableBranchFlagDescriptionConstant = "Stable branch candidate (repeatable)"
	staleAnalyzerErrorTemplateConstant  = "unable to construct staleness analyzer: %w"
	staleReaderErrorTemplateConstant    = "unable to construct history reader: %w"
	staleBranchOutputTemplateConstant   = "%s\t%s\n"
)

// StaleCommandBuilder assembles the stale-branches command.
type StaleCommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitExecutor           shared.GitExecutor
	Clock                 shared.Clock
	ConfigurationProvider func() StaleConfiguration
}

// Build constructs the stale-branches command.
func (builder *StaleCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   staleCommandUseConstant,
		Short: staleCommandShortDescriptionConstant,
		Long:  staleCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(staleRepositoryPathFlagNameConstant, "", staleRepositoryPathFlagDescription)
	command.Flags().Int(thresholdFlagNameConstant, 0, thresholdFlagDescriptionConstant)
	command.Flags().StringSlice(stableBranchFlagNameConstant, nil, stableBranchFlagDescriptionConstant)

	return command, nil
}

func (builder *StaleCommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(staleRepositoryPathFlagNameConstant) {
		configuration.Path, _ = command.Flags().GetString(staleRepositoryPathFlagNameConstant)
	}
	if command.Flags().Changed(thresholdFlagNameConstant) {
		configuration.ThresholdDays, _ = command.Flags().GetInt(thresholdFlagNameConstant)
	}
	if command.Flags().Changed(stableBranchFlagNameConstant) {
		configuration.StableBranches, _ = command.Flags().GetStringSlice(stableBranchFlagNameConstant)
	}
	configuration = configuration.Sanitize()

	logger := resolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := resolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return executorError
	}

	historyReader, readerError := newHistoryReader(configuration.Path, gitExecutor, logger)
	if readerError != nil {
		return fmt.Errorf(staleReaderErrorTemplateConstant, readerError)
	}

	analyzer, analyzerError := staleness.NewAnalyzer(
		staleness.Options{
			ThresholdDays:  configuration.ThresholdDays,
			StableBranches: configuration.StableBranches,
		},
		staleness.Dependencies{HistoryReader: historyReader, Clock: builder.Clock, Logger: logger},
	)
	if analyzerError != nil {
		return fmt.Errorf(staleAnalyzerErrorTemplateConstant, analyzerError)
	}

	staleBranches, analysisError := analyzer.StaleBranches(command.Context())
	if analysisError != nil {
		return analysisError
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	for _, staleBranch := range staleBranches {
		if _, writeError := fmt.Fprintf(outputWriter, staleBranchOutputTemplateConstant, staleBranch.Name, staleBranch.LastCommitSummary); writeError != nil {
			return writeError
		}
	}

	return nil
}

func (builder *StaleCommandBuilder) resolveConfiguration() StaleConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultStaleConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
