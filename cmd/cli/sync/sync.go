// Package sync assembles the command that reconciles a managed working copy
// with its configured branch and remote.
package sync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repovault/repovault/internal/shared"
	"github.com/repovault/repovault/internal/store"
	"github.com/repovault/repovault/internal/utils"
)

const (
	commandUseConstant              = "sync"
	commandShortDescriptionConstant = "Reconcile a repository working copy"
	commandLongDescriptionConstant  = "sync clones, initializes, or resets a working copy so it matches the configured branch, then optionally commits and publishes pending changes."

	pathFlagNameConstant            = "path"
	pathFlagDescriptionConstant     = "Filesystem path of the managed working copy"
	remoteFlagNameConstant          = "remote"
	remoteFlagDescriptionConstant   = "Remote URL the working copy tracks (omit for local-only mode)"
	branchFlagNameConstant          = "branch"
	branchFlagDescriptionConstant   = "Branch the working copy follows"
	allowReplaceFlagNameConstant    = "allow-replace"
	allowReplaceFlagDescription     = "Replace a non-repository directory found at the path"
	messageFlagNameConstant         = "message"
	messageFlagDescriptionConstant  = "Commit pending changes with this message after reconciling"
	pushFlagNameConstant            = "push"
	pushFlagDescriptionConstant     = "Publish the commit to the remote"
	pathRequiredMessageConstant     = "working copy path required; provide --path or configuration"
	repositoryErrorTemplateConstant = "unable to construct repository: %w"
	syncOutputTemplateConstant      = "%s\t%s\n"
)

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitExecutor           shared.GitExecutor
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(pathFlagNameConstant, "", pathFlagDescriptionConstant)
	command.Flags().String(remoteFlagNameConstant, "", remoteFlagDescriptionConstant)
	command.Flags().String(branchFlagNameConstant, "", branchFlagDescriptionConstant)
	command.Flags().Bool(allowReplaceFlagNameConstant, false, allowReplaceFlagDescription)
	command.Flags().String(messageFlagNameConstant, "", messageFlagDescriptionConstant)
	command.Flags().Bool(pushFlagNameConstant, false, pushFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(pathFlagNameConstant) {
		configuration.Path, _ = command.Flags().GetString(pathFlagNameConstant)
	}
	if command.Flags().Changed(remoteFlagNameConstant) {
		configuration.Remote, _ = command.Flags().GetString(remoteFlagNameConstant)
	}
	if command.Flags().Changed(branchFlagNameConstant) {
		configuration.Branch, _ = command.Flags().GetString(branchFlagNameConstant)
	}
	if command.Flags().Changed(allowReplaceFlagNameConstant) {
		configuration.AllowReplace, _ = command.Flags().GetBool(allowReplaceFlagNameConstant)
	}
	if command.Flags().Changed(pushFlagNameConstant) {
		configuration.Push, _ = command.Flags().GetBool(pushFlagNameConstant)
	}
	configuration = configuration.Sanitize()

	if len(configuration.Path) == 0 {
		return errors.New(pathRequiredMessageConstant)
	}

	logger := resolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := resolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return executorError
	}

	repository, repositoryError := store.NewRepository(
		store.Options{
			LocalPath:    configuration.Path,
			BranchName:   configuration.Branch,
			RemoteURL:    configuration.Remote,
			AllowReplace: configuration.AllowReplace,
		},
		store.Dependencies{GitExecutor: gitExecutor, Logger: logger},
	)
	if repositoryError != nil {
		return fmt.Errorf(repositoryErrorTemplateConstant, repositoryError)
	}

	if reconcileError := repository.Reconcile(command.Context()); reconcileError != nil {
		return reconcileError
	}

	if len(configuration.Remote) > 0 {
		if remoteError := repository.SetRemote(command.Context(), configuration.Remote); remoteError != nil {
			return remoteError
		}
	}

	commitMessage, _ := command.Flags().GetString(messageFlagNameConstant)
	commitMessage = strings.TrimSpace(commitMessage)
	if len(commitMessage) > 0 {
		if publishError := repository.CommitAndPublish(command.Context(), commitMessage, configuration.Push); publishError != nil {
			return publishError
		}
	}

	shortCommitIdentifier, identifierError := repository.CurrentShortSHA(command.Context())
	if identifierError != nil {
		return identifierError
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	_, writeError := fmt.Fprintf(outputWriter, syncOutputTemplateConstant, configuration.Path, shortCommitIdentifier)
	return writeError
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
