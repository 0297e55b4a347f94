package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repovault/repovault/internal/store"
)

const (
	testNestedRelativePathConstant = "records/2026/state.yaml"
	testFileContentConstant        = "entries:\n  - id: 1\n"
)

func TestWriteFileCreatesIntermediateDirectories(testInstance *testing.T) {
	localPath := testInstance.TempDir()
	repository := newTestRepository(testInstance, store.Options{LocalPath: localPath, BranchName: testBranchNameConstant}, &stubGitExecutor{})

	require.NoError(testInstance, repository.WriteFile(testNestedRelativePathConstant, []byte(testFileContentConstant)))

	exists, existsError := repository.FileExists(testNestedRelativePathConstant)
	require.NoError(testInstance, existsError)
	require.True(testInstance, exists)

	readContent, readError := repository.ReadFile(testNestedRelativePathConstant)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, []byte(testFileContentConstant), readContent)
}

func TestWriteFileOverwritesExistingContent(testInstance *testing.T) {
	localPath := testInstance.TempDir()
	repository := newTestRepository(testInstance, store.Options{LocalPath: localPath, BranchName: testBranchNameConstant}, &stubGitExecutor{})

	require.NoError(testInstance, repository.WriteFile("state.yaml", []byte("first revision with trailing content")))
	require.NoError(testInstance, repository.WriteFile("state.yaml", []byte("second")))

	readContent, readError := repository.ReadFile("state.yaml")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, []byte("second"), readContent)
}

func TestFileExistsReportsMissingFile(testInstance *testing.T) {
	localPath := testInstance.TempDir()
	repository := newTestRepository(testInstance, store.Options{LocalPath: localPath, BranchName: testBranchNameConstant}, &stubGitExecutor{})

	exists, existsError := repository.FileExists("missing.yaml")
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)
}

func TestFileOperationsRejectEscapingPaths(testInstance *testing.T) {
	localPath := testInstance.TempDir()
	repository := newTestRepository(testInstance, store.Options{LocalPath: localPath, BranchName: testBranchNameConstant}, &stubGitExecutor{})

	escapingPath := filepath.Join("..", "outside.yaml")

	_, existsError := repository.FileExists(escapingPath)
	require.ErrorIs(testInstance, existsError, store.ErrPathOutsideWorkingCopy)

	_, readError := repository.ReadFile(escapingPath)
	require.ErrorIs(testInstance, readError, store.ErrPathOutsideWorkingCopy)

	writeError := repository.WriteFile(escapingPath, []byte("outside"))
	require.ErrorIs(testInstance, writeError, store.ErrPathOutsideWorkingCopy)

	_, emptyPathError := repository.ReadFile("   ")
	require.ErrorIs(testInstance, emptyPathError, store.ErrRelativePathRequired)
}
