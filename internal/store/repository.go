package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/repovault/repovault/internal/execshell"
	"github.com/repovault/repovault/internal/shared"
)

const (
	localPathRequiredMessageConstant           = "local path must be provided"
	branchNameRequiredMessageConstant          = "branch name must be provided"
	gitExecutorMissingMessageConstant          = "git executor not configured"
	workingCopyNotRepositoryMessageConstant    = "existing directory is not a repository and replacement is disabled"
	workingCopyProbeErrorTemplateConstant      = "failed to probe working copy state: %w"
	cloneFailureTemplateConstant               = "failed to clone %s: %w"
	replaceFailureTemplateConstant             = "failed to remove non-repository directory %s: %w"
	initializeFailureTemplateConstant          = "failed to initialize repository at %s: %w"
	resetFailureTemplateConstant               = "failed to reset working copy: %w"
	pullFailureTemplateConstant                = "failed to pull remote branch %s: %w"
	checkoutFailureTemplateConstant            = "failed to switch to branch %s: %w"
	stageFailureTemplateConstant               = "failed to stage changes: %w"
	statusFailureTemplateConstant              = "failed to review working tree status: %w"
	commitFailureTemplateConstant              = "failed to create commit: %w"
	pushFailureTemplateConstant                = "failed to push branch %s: %w"
	remoteConfigurationFailureTemplateConstant = "failed to configure remote: %w"
	revisionQueryFailureTemplateConstant       = "failed to resolve current revision: %w"
	placeholderWriteFailureTemplateConstant    = "failed to write placeholder file: %w"
	dirtyWorktreeMessageTemplateConstant       = "working copy has uncommitted changes:\n%s"

	gitCloneSubcommandConstant        = "clone"
	gitInitSubcommandConstant         = "init"
	gitCheckoutSubcommandConstant     = "checkout"
	gitCreateBranchFlagConstant       = "-b"
	gitResetSubcommandConstant        = "reset"
	gitResetHardFlagConstant          = "--hard"
	gitPullSubcommandConstant         = "pull"
	gitPushSubcommandConstant         = "push"
	gitAddSubcommandConstant          = "add"
	gitAddAllFlagConstant             = "--all"
	gitStatusSubcommandConstant       = "status"
	gitStatusPorcelainFlagConstant    = "--porcelain"
	gitCommitSubcommandConstant       = "commit"
	gitCommitMessageFlagConstant      = "-m"
	gitRemoteSubcommandConstant       = "remote"
	gitRemoteAddSubcommandConstant    = "add"
	gitRemoteSetURLSubcommandConstant = "set-url"
	gitRevParseSubcommandConstant     = "rev-parse"
	gitRevParseShortFlagConstant      = "--short"
	gitBranchFlagConstant             = "--branch"
	gitHeadReferenceConstant          = "HEAD"

	placeholderFileNameConstant      = ".repovault"
	placeholderFileContentConstant   = "repovault storage\n"
	placeholderCommitMessageConstant = "Initialize repository storage"

	repositoryMetadataDirectoryNameConstant = ".git"
	directoryPermissionsConstant            = 0o755

	logMessageRemovingNonRepositoryConstant = "removing non-repository directory before clone"
	logMessageNoChangesToCommitConstant     = "no changes to commit"
	logMessageSkippingPushConstant          = "push requested without a configured remote; commit remains local"
	logFieldPathConstant                    = "path"
	logFieldBranchConstant                  = "branch"
)

// ErrLocalPathRequired indicates the repository was configured without a local path.
var ErrLocalPathRequired = errors.New(localPathRequiredMessageConstant)

// ErrBranchNameRequired indicates the repository was configured without a branch name.
var ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrWorkingCopyNotRepository indicates a non-repository directory occupies the
// local path and the repository was configured not to replace it.
var ErrWorkingCopyNotRepository = errors.New(workingCopyNotRepositoryMessageConstant)

// DirtyWorktreeError reports uncommitted changes when cleanliness is required.
type DirtyWorktreeError struct {
	StatusOutput string
}

// Error describes the dirty working copy including the raw status output.
func (dirtyError DirtyWorktreeError) Error() string {
	return fmt.Sprintf(dirtyWorktreeMessageTemplateConstant, dirtyError.StatusOutput)
}

// WorkingCopyState classifies the on-disk state of the local path.
type WorkingCopyState int

// Working copy states derived on every reconciliation, never cached.
const (
	// WorkingCopyAbsent means the local path does not exist.
	WorkingCopyAbsent WorkingCopyState = iota
	// WorkingCopyNonRepository means the path exists without repository metadata.
	WorkingCopyNonRepository
	// WorkingCopyRepository means the path holds an existing repository.
	WorkingCopyRepository
)

// Options configure a repository handle.
type Options struct {
	LocalPath    string
	BranchName   string
	RemoteURL    string
	AllowReplace bool
}

// Dependencies enumerates external collaborators required by Repository.
type Dependencies struct {
	GitExecutor shared.GitExecutor
	FileSystem  shared.FileSystem
	Logger      *zap.Logger
}

// Repository identifies one working copy and drives its reconciliation lifecycle.
type Repository struct {
	localPath    string
	branchName   string
	remoteURL    string
	allowReplace bool
	executor     shared.GitExecutor
	fileSystem   shared.FileSystem
	logger       *zap.Logger

	operationMutex sync.Mutex
}

// NewRepository constructs a Repository from the provided options and dependencies.
func NewRepository(options Options, dependencies Dependencies) (*Repository, error) {
	trimmedLocalPath := strings.TrimSpace(options.LocalPath)
	if len(trimmedLocalPath) == 0 {
		return nil, ErrLocalPathRequired
	}

	trimmedBranchName := strings.TrimSpace(options.BranchName)
	if len(trimmedBranchName) == 0 {
		return nil, ErrBranchNameRequired
	}

	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}

	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = shared.OSFileSystem{}
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	repository := &Repository{
		localPath:    trimmedLocalPath,
		branchName:   trimmedBranchName,
		remoteURL:    strings.TrimSpace(options.RemoteURL),
		allowReplace: options.AllowReplace,
		executor:     dependencies.GitExecutor,
		fileSystem:   fileSystem,
		logger:       logger,
	}

	return repository, nil
}

// LocalPath reports the working copy root.
func (repository *Repository) LocalPath() string {
	return repository.localPath
}

// BranchName reports the target branch.
func (repository *Repository) BranchName() string {
	return repository.branchName
}

// Reconcile brings the working copy into a usable state. With a remote
// configured the remote is authoritative: local modifications are discarded.
// Without a remote an existing repository is left untouched and a missing one
// is initialized with a single placeholder commit. Safe to call repeatedly.
func (repository *Repository) Reconcile(executionContext context.Context) error {
	repository.operationMutex.Lock()
	defer repository.operationMutex.Unlock()

	workingCopyState, probeError := repository.workingCopyState()
	if probeError != nil {
		return fmt.Errorf(workingCopyProbeErrorTemplateConstant, probeError)
	}

	if len(repository.remoteURL) > 0 {
		return repository.reconcileWithRemote(executionContext, workingCopyState)
	}

	return repository.reconcileLocalOnly(executionContext, workingCopyState)
}

func (repository *Repository) reconcileWithRemote(executionContext context.Context, workingCopyState WorkingCopyState) error {
	switch workingCopyState {
	case WorkingCopyAbsent:
		return repository.cloneRemoteBranch(executionContext)
	case WorkingCopyNonRepository:
		if !repository.allowReplace {
			return ErrWorkingCopyNotRepository
		}
		repository.logger.Warn(logMessageRemovingNonRepositoryConstant, zap.String(logFieldPathConstant, repository.localPath))
		if removeError := repository.fileSystem.RemoveAll(repository.localPath); removeError != nil {
			return fmt.Errorf(replaceFailureTemplateConstant, repository.localPath, removeError)
		}
		return repository.cloneRemoteBranch(executionContext)
	default:
		return repository.resetAndFastForward(executionContext)
	}
}

func (repository *Repository) reconcileLocalOnly(executionContext context.Context, workingCopyState WorkingCopyState) error {
	if workingCopyState == WorkingCopyRepository {
		return nil
	}

	if directoryError := repository.fileSystem.MkdirAll(repository.localPath, directoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(initializeFailureTemplateConstant, repository.localPath, directoryError)
	}

	if _, initError := repository.executeGit(executionContext, gitInitSubcommandConstant); initError != nil {
		return fmt.Errorf(initializeFailureTemplateConstant, repository.localPath, initError)
	}

	if _, branchError := repository.executeGit(executionContext, gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, repository.branchName); branchError != nil {
		return fmt.Errorf(checkoutFailureTemplateConstant, repository.branchName, branchError)
	}

	placeholderPath := filepath.Join(repository.localPath, placeholderFileNameConstant)
	if writeError := repository.fileSystem.WriteFile(placeholderPath, []byte(placeholderFileContentConstant), filePermissionsConstant); writeError != nil {
		return fmt.Errorf(placeholderWriteFailureTemplateConstant, writeError)
	}

	if _, stageError := repository.executeGit(executionContext, gitAddSubcommandConstant, gitAddAllFlagConstant); stageError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, stageError)
	}

	if _, commitError := repository.executeGit(executionContext, gitCommitSubcommandConstant, gitCommitMessageFlagConstant, placeholderCommitMessageConstant); commitError != nil {
		return fmt.Errorf(commitFailureTemplateConstant, commitError)
	}

	return nil
}

func (repository *Repository) cloneRemoteBranch(executionContext context.Context) error {
	cloneDetails := execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, gitBranchFlagConstant, repository.branchName, repository.remoteURL, repository.localPath},
		EnvironmentVariables: nonInteractiveEnvironment(),
	}
	if _, cloneError := repository.executor.ExecuteGit(executionContext, cloneDetails); cloneError != nil {
		return fmt.Errorf(cloneFailureTemplateConstant, repository.remoteURL, cloneError)
	}
	return nil
}

func (repository *Repository) resetAndFastForward(executionContext context.Context) error {
	if _, checkoutError := repository.executeGit(executionContext, gitCheckoutSubcommandConstant, repository.branchName); checkoutError != nil {
		return fmt.Errorf(checkoutFailureTemplateConstant, repository.branchName, checkoutError)
	}

	if _, resetError := repository.executeGit(executionContext, gitResetSubcommandConstant, gitResetHardFlagConstant, gitHeadReferenceConstant); resetError != nil {
		return fmt.Errorf(resetFailureTemplateConstant, resetError)
	}

	if _, pullError := repository.executeGit(executionContext, gitPullSubcommandConstant, shared.OriginRemoteNameConstant, repository.branchName); pullError != nil {
		return fmt.Errorf(pullFailureTemplateConstant, repository.branchName, pullError)
	}

	return nil
}

// SetRemote configures the origin remote, adding it when absent and
// retargeting it otherwise. Idempotent.
func (repository *Repository) SetRemote(executionContext context.Context, remoteURL string) error {
	repository.operationMutex.Lock()
	defer repository.operationMutex.Unlock()

	remoteConfigured, remoteError := repository.hasRemoteLocked(executionContext)
	if remoteError != nil {
		return fmt.Errorf(remoteConfigurationFailureTemplateConstant, remoteError)
	}

	remoteArguments := []string{gitRemoteSubcommandConstant, gitRemoteAddSubcommandConstant, shared.OriginRemoteNameConstant, remoteURL}
	if remoteConfigured {
		remoteArguments = []string{gitRemoteSubcommandConstant, gitRemoteSetURLSubcommandConstant, shared.OriginRemoteNameConstant, remoteURL}
	}

	if _, configureError := repository.executeGit(executionContext, remoteArguments...); configureError != nil {
		return fmt.Errorf(remoteConfigurationFailureTemplateConstant, configureError)
	}

	repository.remoteURL = strings.TrimSpace(remoteURL)
	return nil
}

// HasRemote reports whether an origin remote is configured. Absence of a
// remote is a normal outcome, not an error.
func (repository *Repository) HasRemote(executionContext context.Context) (bool, error) {
	return repository.hasRemoteLocked(executionContext)
}

func (repository *Repository) hasRemoteLocked(executionContext context.Context) (bool, error) {
	listResult, listError := repository.executeGit(executionContext, gitRemoteSubcommandConstant)
	if listError != nil {
		return false, listError
	}

	for _, remoteName := range strings.Split(listResult.StandardOutput, "\n") {
		if strings.TrimSpace(remoteName) == shared.OriginRemoteNameConstant {
			return true, nil
		}
	}

	return false, nil
}

// CommitAndPublish stages all changes, commits them with the supplied message,
// and optionally pushes the target branch. A clean working copy yields no
// commit and no error; a push request without a remote leaves the commit local.
func (repository *Repository) CommitAndPublish(executionContext context.Context, message string, push bool) error {
	repository.operationMutex.Lock()
	defer repository.operationMutex.Unlock()

	if _, stageError := repository.executeGit(executionContext, gitAddSubcommandConstant, gitAddAllFlagConstant); stageError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, stageError)
	}

	statusResult, statusError := repository.executeGit(executionContext, gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant)
	if statusError != nil {
		return fmt.Errorf(statusFailureTemplateConstant, statusError)
	}

	if len(strings.TrimSpace(statusResult.StandardOutput)) == 0 {
		repository.logger.Info(logMessageNoChangesToCommitConstant, zap.String(logFieldPathConstant, repository.localPath))
		return nil
	}

	if _, commitError := repository.executeGit(executionContext, gitCommitSubcommandConstant, gitCommitMessageFlagConstant, message); commitError != nil {
		return fmt.Errorf(commitFailureTemplateConstant, commitError)
	}

	if !push {
		return nil
	}

	remoteConfigured, remoteError := repository.hasRemoteLocked(executionContext)
	if remoteError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, repository.branchName, remoteError)
	}
	if !remoteConfigured {
		repository.logger.Info(logMessageSkippingPushConstant, zap.String(logFieldBranchConstant, repository.branchName))
		return nil
	}

	pushDetails := execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant, shared.OriginRemoteNameConstant, repository.branchName},
		WorkingDirectory:     repository.localPath,
		EnvironmentVariables: nonInteractiveEnvironment(),
	}
	if _, pushError := repository.executor.ExecuteGit(executionContext, pushDetails); pushError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, repository.branchName, pushError)
	}

	return nil
}

// CurrentCommitSHA resolves the full hash of the working copy's current commit.
func (repository *Repository) CurrentCommitSHA(executionContext context.Context) (string, error) {
	revisionResult, revisionError := repository.executeGit(executionContext, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if revisionError != nil {
		return "", fmt.Errorf(revisionQueryFailureTemplateConstant, revisionError)
	}
	return strings.TrimSpace(revisionResult.StandardOutput), nil
}

// CurrentShortSHA resolves the abbreviated hash of the working copy's current commit.
func (repository *Repository) CurrentShortSHA(executionContext context.Context) (string, error) {
	revisionResult, revisionError := repository.executeGit(executionContext, gitRevParseSubcommandConstant, gitRevParseShortFlagConstant, gitHeadReferenceConstant)
	if revisionError != nil {
		return "", fmt.Errorf(revisionQueryFailureTemplateConstant, revisionError)
	}
	return strings.TrimSpace(revisionResult.StandardOutput), nil
}

// CheckClean verifies the working copy has no uncommitted changes, returning a
// DirtyWorktreeError carrying the raw status output otherwise.
func (repository *Repository) CheckClean(executionContext context.Context) error {
	statusResult, statusError := repository.executeGit(executionContext, gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant)
	if statusError != nil {
		return fmt.Errorf(statusFailureTemplateConstant, statusError)
	}

	trimmedStatus := strings.TrimSpace(statusResult.StandardOutput)
	if len(trimmedStatus) > 0 {
		return DirtyWorktreeError{StatusOutput: trimmedStatus}
	}

	return nil
}

func (repository *Repository) workingCopyState() (WorkingCopyState, error) {
	if _, statError := repository.fileSystem.Stat(repository.localPath); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return WorkingCopyAbsent, nil
		}
		return WorkingCopyAbsent, statError
	}

	metadataPath := filepath.Join(repository.localPath, repositoryMetadataDirectoryNameConstant)
	if _, statError := repository.fileSystem.Stat(metadataPath); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return WorkingCopyNonRepository, nil
		}
		return WorkingCopyNonRepository, statError
	}

	return WorkingCopyRepository, nil
}

func (repository *Repository) executeGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repository.localPath,
		EnvironmentVariables: nonInteractiveEnvironment(),
	})
}

func nonInteractiveEnvironment() map[string]string {
	return map[string]string{shared.GitTerminalPromptEnvironmentNameConstant: shared.GitTerminalPromptDisabledValueConstant}
}
