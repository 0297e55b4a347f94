package store_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/repovault/repovault/internal/execshell"
	"github.com/repovault/repovault/internal/store"
)

const (
	integrationGitIdentityConfigConstant = "[user]\n\tname = Repovault Tests\n\temail = tests@repovault.invalid\n"
	integrationSkipMessageConstant       = "git executable not available"
)

func newIntegrationExecutor(testInstance *testing.T) *execshell.ShellExecutor {
	testInstance.Helper()

	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip(integrationSkipMessageConstant)
	}

	configurationPath := filepath.Join(testInstance.TempDir(), "gitconfig")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(integrationGitIdentityConfigConstant), 0o644))
	testInstance.Setenv("GIT_CONFIG_GLOBAL", configurationPath)
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, creationError)
	return executor
}

func commitCount(testInstance *testing.T, executor *execshell.ShellExecutor, repositoryPath string) string {
	testInstance.Helper()
	countResult, countError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{
		Arguments:        []string{"rev-list", "--count", "HEAD"},
		WorkingDirectory: repositoryPath,
	})
	require.NoError(testInstance, countError)
	return strings.TrimSpace(countResult.StandardOutput)
}

func TestReconcileLocalOnlyIsIdempotentAgainstRealGit(testInstance *testing.T) {
	executor := newIntegrationExecutor(testInstance)
	localPath := filepath.Join(testInstance.TempDir(), "storage")

	repository, creationError := store.NewRepository(
		store.Options{LocalPath: localPath, BranchName: testBranchNameConstant},
		store.Dependencies{GitExecutor: executor},
	)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, repository.Reconcile(context.Background()))
	require.Equal(testInstance, "1", commitCount(testInstance, executor, localPath))

	require.NoError(testInstance, repository.Reconcile(context.Background()))
	require.Equal(testInstance, "1", commitCount(testInstance, executor, localPath))
}

func TestCommitAndPublishAgainstRealGit(testInstance *testing.T) {
	executor := newIntegrationExecutor(testInstance)
	localPath := filepath.Join(testInstance.TempDir(), "storage")

	repository, creationError := store.NewRepository(
		store.Options{LocalPath: localPath, BranchName: testBranchNameConstant},
		store.Dependencies{GitExecutor: executor},
	)
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, repository.Reconcile(context.Background()))

	require.NoError(testInstance, repository.CommitAndPublish(context.Background(), testCommitMessageConstant, false))
	require.Equal(testInstance, "1", commitCount(testInstance, executor, localPath))

	require.NoError(testInstance, repository.WriteFile("records/state.yaml", []byte(testFileContentConstant)))
	require.NoError(testInstance, repository.CommitAndPublish(context.Background(), testCommitMessageConstant, true))
	require.Equal(testInstance, "2", commitCount(testInstance, executor, localPath))
}

func TestCommitIdentifiersAgainstRealGit(testInstance *testing.T) {
	executor := newIntegrationExecutor(testInstance)
	localPath := filepath.Join(testInstance.TempDir(), "storage")

	repository, creationError := store.NewRepository(
		store.Options{LocalPath: localPath, BranchName: testBranchNameConstant},
		store.Dependencies{GitExecutor: executor},
	)
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, repository.Reconcile(context.Background()))

	fullHash, fullHashError := repository.CurrentCommitSHA(context.Background())
	require.NoError(testInstance, fullHashError)
	require.Len(testInstance, fullHash, 40)

	shortHash, shortHashError := repository.CurrentShortSHA(context.Background())
	require.NoError(testInstance, shortHashError)
	require.GreaterOrEqual(testInstance, len(shortHash), 7)
	require.LessOrEqual(testInstance, len(shortHash), 12)
	require.Equal(testInstance, shortHash, fullHash[:len(shortHash)])
}

func TestSetRemoteAgainstRealGit(testInstance *testing.T) {
	executor := newIntegrationExecutor(testInstance)
	localPath := filepath.Join(testInstance.TempDir(), "storage")

	repository, creationError := store.NewRepository(
		store.Options{LocalPath: localPath, BranchName: testBranchNameConstant},
		store.Dependencies{GitExecutor: executor},
	)
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, repository.Reconcile(context.Background()))

	remoteConfigured, hasRemoteError := repository.HasRemote(context.Background())
	require.NoError(testInstance, hasRemoteError)
	require.False(testInstance, remoteConfigured)

	require.NoError(testInstance, repository.SetRemote(context.Background(), testRemoteURLConstant))
	require.NoError(testInstance, repository.SetRemote(context.Background(), testSecondRemoteURLConstant))

	remoteConfigured, hasRemoteError = repository.HasRemote(context.Background())
	require.NoError(testInstance, hasRemoteError)
	require.True(testInstance, remoteConfigured)

	remoteListResult, remoteListError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{
		Arguments:        []string{"remote"},
		WorkingDirectory: localPath,
	})
	require.NoError(testInstance, remoteListError)
	require.Equal(testInstance, "origin", strings.TrimSpace(remoteListResult.StandardOutput))

	remoteURLResult, remoteURLError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{
		Arguments:        []string{"remote", "get-url", "origin"},
		WorkingDirectory: localPath,
	})
	require.NoError(testInstance, remoteURLError)
	require.Equal(testInstance, testSecondRemoteURLConstant, strings.TrimSpace(remoteURLResult.StandardOutput))
}
