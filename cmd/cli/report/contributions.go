package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/repovault/repovault/internal/contribution"
	"github.com/repovault/repovault/internal/shared"
	"github.com/repovault/repovault/internal/utils"
)

const (
	contributionsCommandUseConstant              = "contributions"
	contributionsCommandShortDescriptionConstant = "Sum changed lines per author over a date range"
	contributionsCommandLongDescriptionConstant  = "contributions aggregates the number of changed lines attributed to each author email for commits made within the requested date range."

	contributionsPathFlagNameConstant    = "path"
	contributionsPathFlagDescription     = "Filesystem path of the working copy to inspect"
	sinceFlagNameConstant                = "since"
	sinceFlagDescriptionConstant         = "Start date of the range (YYYY-MM-DD, inclusive)"
	untilFlagNameConstant                = "until"
	untilFlagDescriptionConstant         = "End date of the range (YYYY-MM-DD, exclusive)"
	rangeDateLayoutConstant              = "2006-01-02"
	sinceRequiredMessageConstant         = "start date required; provide --since or configuration"
	dateParseErrorTemplateConstant       = "invalid %s date %q: %w"
	contributionsReaderErrorTemplate     = "unable to construct history reader: %w"
	contributionsAccountantErrorTemplate = "unable to construct contribution accountant: %w"
	contributionsOutputTemplateConstant  = "%s\t%d\n"
)

// ContributionsCommandBuilder assembles the contributions command.
type ContributionsCommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitExecutor           shared.GitExecutor
	Clock                 shared.Clock
	ConfigurationProvider func() ContributionsConfiguration
}

// Build constructs the contributions command.
func (builder *ContributionsCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   contributionsCommandUseConstant,
		Short: contributionsCommandShortDescriptionConstant,
		Long:  contributionsCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(contributionsPathFlagNameConstant, "", contributionsPathFlagDescription)
	command.Flags().String(sinceFlagNameConstant, "", sinceFlagDescriptionConstant)
	command.Flags().String(untilFlagNameConstant, "", untilFlagDescriptionConstant)

	return command, nil
}

func (builder *ContributionsCommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(contributionsPathFlagNameConstant) {
		configuration.Path, _ = command.Flags().GetString(contributionsPathFlagNameConstant)
	}
	if command.Flags().Changed(sinceFlagNameConstant) {
		sinceValue, parseError := parseRangeDate(command, sinceFlagNameConstant)
		if parseError != nil {
			return parseError
		}
		configuration.Since = sinceValue
	}
	if command.Flags().Changed(untilFlagNameConstant) {
		untilValue, parseError := parseRangeDate(command, untilFlagNameConstant)
		if parseError != nil {
			return parseError
		}
		configuration.Until = untilValue
	}
	configuration = configuration.Sanitize()

	if configuration.Since.IsZero() {
		return errors.New(sinceRequiredMessageConstant)
	}
	if configuration.Until.IsZero() {
		configuration.Until = builder.resolveClock().Now()
	}

	logger := resolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := resolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return executorError
	}

	historyReader, readerError := newHistoryReader(configuration.Path, gitExecutor, logger)
	if readerError != nil {
		return fmt.Errorf(contributionsReaderErrorTemplate, readerError)
	}

	accountant, accountantError := contribution.NewAccountant(contribution.Dependencies{HistoryReader: historyReader, Logger: logger})
	if accountantError != nil {
		return fmt.Errorf(contributionsAccountantErrorTemplate, accountantError)
	}

	changedLinesByEmail, totalsError := accountant.Totals(command.Context(), configuration.Since, configuration.Until)
	if totalsError != nil {
		return totalsError
	}

	authorEmails := make([]string, 0, len(changedLinesByEmail))
	for authorEmail := range changedLinesByEmail {
		authorEmails = append(authorEmails, authorEmail)
	}
	sort.Strings(authorEmails)

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	for _, authorEmail := range authorEmails {
		if _, writeError := fmt.Fprintf(outputWriter, contributionsOutputTemplateConstant, authorEmail, changedLinesByEmail[authorEmail]); writeError != nil {
			return writeError
		}
	}

	return nil
}

func (builder *ContributionsCommandBuilder) resolveConfiguration() ContributionsConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultContributionsConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *ContributionsCommandBuilder) resolveClock() shared.Clock {
	if builder.Clock != nil {
		return builder.Clock
	}
	return shared.SystemClock{}
}

func parseRangeDate(command *cobra.Command, flagName string) (time.Time, error) {
	rawValue, _ := command.Flags().GetString(flagName)
	trimmedValue := strings.TrimSpace(rawValue)
	parsedValue, parseError := time.Parse(rangeDateLayoutConstant, trimmedValue)
	if parseError != nil {
		return time.Time{}, fmt.Errorf(dateParseErrorTemplateConstant, flagName, trimmedValue, parseError)
	}
	return parsedValue, nil
}
