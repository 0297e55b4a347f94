// Package cicontext assembles the command that reports the branch and commit
// identifiers resolved from CI provider environment variables.
package cicontext

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/repovault/repovault/internal/cienv"
	"github.com/repovault/repovault/internal/execshell"
	"github.com/repovault/repovault/internal/shared"
	"github.com/repovault/repovault/internal/utils"
)

const (
	commandUseConstant              = "ci-context"
	commandShortDescriptionConstant = "Report the branch and commit resolved from the CI environment"
	commandLongDescriptionConstant  = "ci-context resolves the active branch name and commit identifiers from CI provider environment variables, falling back to the working copy, and prints them as YAML."

	pathFlagNameConstant           = "path"
	pathFlagDescriptionConstant    = "Filesystem path of the working copy used as fallback"
	envFileFlagNameConstant        = "env-file"
	envFileFlagDescriptionConstant = "Dotenv file consulted before the process environment"
	defaultRepositoryPathConstant  = "."
	resolverErrorTemplateConstant  = "unable to construct environment resolver: %w"
	encodeErrorTemplateConstant    = "unable to encode context report: %w"
)

// CommandConfiguration captures configuration values for the ci-context command.
type CommandConfiguration struct {
	Path    string `mapstructure:"path"`
	EnvFile string `mapstructure:"env_file"`
}

// DefaultCommandConfiguration provides default ci-context command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Path: defaultRepositoryPathConstant}
}

// DefaultConfigurationValues exposes default values keyed under the provided configuration prefix.
func DefaultConfigurationValues(configurationKey string) map[string]any {
	return map[string]any{
		configurationKey + ".path": defaultRepositoryPathConstant,
	}
}

// Sanitize normalizes configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Path = strings.TrimSpace(configuration.Path)
	if len(sanitized.Path) == 0 {
		sanitized.Path = defaultRepositoryPathConstant
	}
	sanitized.EnvFile = strings.TrimSpace(configuration.EnvFile)
	return sanitized
}

// ContextReport is the YAML document printed by the ci-context command.
type ContextReport struct {
	Branch         string `yaml:"branch"`
	CommitSHA      string `yaml:"commit_sha"`
	CommitShortSHA string `yaml:"commit_short_sha"`
}

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the ci-context command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitExecutor           shared.GitExecutor
	Lookup                cienv.Lookup
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the ci-context command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(pathFlagNameConstant, "", pathFlagDescriptionConstant)
	command.Flags().String(envFileFlagNameConstant, "", envFileFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(pathFlagNameConstant) {
		configuration.Path, _ = command.Flags().GetString(pathFlagNameConstant)
	}
	if command.Flags().Changed(envFileFlagNameConstant) {
		configuration.EnvFile, _ = command.Flags().GetString(envFileFlagNameConstant)
	}
	configuration = configuration.Sanitize()

	logger := resolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := resolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return executorError
	}

	environmentLookup := builder.Lookup
	if environmentLookup == nil {
		environmentLookup = cienv.OSLookup()
	}
	if len(configuration.EnvFile) > 0 {
		fileLookup, lookupError := cienv.FileLookup(configuration.EnvFile, environmentLookup)
		if lookupError != nil {
			return lookupError
		}
		environmentLookup = fileLookup
	}

	resolver, resolverError := cienv.NewResolver(configuration.Path, cienv.Dependencies{
		Lookup:      environmentLookup,
		GitExecutor: gitExecutor,
		Logger:      logger,
	})
	if resolverError != nil {
		return fmt.Errorf(resolverErrorTemplateConstant, resolverError)
	}

	branchName, branchError := resolver.BranchName(command.Context())
	if branchError != nil {
		return branchError
	}
	commitIdentifier, commitError := resolver.CommitSHA(command.Context())
	if commitError != nil {
		return commitError
	}
	shortCommitIdentifier, shortError := resolver.ShortCommitSHA(command.Context())
	if shortError != nil {
		return shortError
	}

	contextReport := ContextReport{
		Branch:         branchName,
		CommitSHA:      commitIdentifier,
		CommitShortSHA: shortCommitIdentifier,
	}

	encodedReport, encodeError := yaml.Marshal(contextReport)
	if encodeError != nil {
		return fmt.Errorf(encodeErrorTemplateConstant, encodeError)
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	_, writeError := outputWriter.Write(encodedReport)
	return writeError
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveGitExecutor(configured shared.GitExecutor, logger *zap.Logger) (shared.GitExecutor, error) {
	if configured != nil {
		return configured, nil
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
}
