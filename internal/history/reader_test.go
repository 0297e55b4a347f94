package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/repovault/repovault/internal/execshell"
	"github.com/repovault/repovault/internal/history"
)

const (
	testRepositoryPathConstant = "/tmp/storage"
	testStableBranchConstant   = "main"
	testComponentDelimiter     = "\x1f"
)

type stubGitResponse struct {
	result execshell.ExecutionResult
	err    error
}

type stubGitExecutor struct {
	recorded  []execshell.CommandDetails
	responses []stubGitResponse
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	if len(executor.responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}

	next := executor.responses[0]
	executor.responses = executor.responses[1:]
	if next.err != nil {
		return execshell.ExecutionResult{}, next.err
	}
	return next.result, nil
}

func newTestReader(testInstance *testing.T, executor *stubGitExecutor) *history.Reader {
	testInstance.Helper()
	reader, creationError := history.NewReader(testRepositoryPathConstant, history.Dependencies{GitExecutor: executor})
	require.NoError(testInstance, creationError)
	return reader
}

func TestNewReaderValidation(testInstance *testing.T) {
	_, missingPathError := history.NewReader("  ", history.Dependencies{GitExecutor: &stubGitExecutor{}})
	require.ErrorIs(testInstance, missingPathError, history.ErrRepositoryPathRequired)

	_, missingExecutorError := history.NewReader(testRepositoryPathConstant, history.Dependencies{})
	require.ErrorIs(testInstance, missingExecutorError, history.ErrGitExecutorNotConfigured)
}

func TestListUnmergedRemoteBranchesParsesOutput(testInstance *testing.T) {
	branchOutput := "  origin/HEAD -> origin/main\n  origin/main\n  origin/feature/alpha\n  origin/fix/beta\n"

	testCases := []struct {
		name             string
		stripPrefix      bool
		expectedBranches []string
	}{
		{
			name:             "prefix_retained",
			stripPrefix:      false,
			expectedBranches: []string{"origin/main", "origin/feature/alpha", "origin/fix/beta"},
		},
		{
			name:             "prefix_stripped",
			stripPrefix:      true,
			expectedBranches: []string{"main", "feature/alpha", "fix/beta"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{responses: []stubGitResponse{
				{result: execshell.ExecutionResult{StandardOutput: branchOutput}},
			}}
			reader := newTestReader(testInstance, executor)

			branches, listError := reader.ListUnmergedRemoteBranches(context.Background(), testStableBranchConstant, testCase.stripPrefix)
			require.NoError(testInstance, listError)
			require.Equal(testInstance, testCase.expectedBranches, branches)
			require.Equal(testInstance, []string{"branch", "-r", "--no-merged", testStableBranchConstant}, executor.recorded[0].Arguments)
		})
	}
}

func TestListMergedRemoteBranchesUsesMergedFlag(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "  origin/done\n"}},
	}}
	reader := newTestReader(testInstance, executor)

	branches, listError := reader.ListMergedRemoteBranches(context.Background(), testStableBranchConstant, true)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"done"}, branches)
	require.Equal(testInstance, []string{"branch", "-r", "--merged", testStableBranchConstant}, executor.recorded[0].Arguments)
}

func TestListRemoteBranchesToleratesEmptyOutput(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "\n"}},
	}}
	reader := newTestReader(testInstance, executor)

	branches, listError := reader.ListUnmergedRemoteBranches(context.Background(), testStableBranchConstant, false)
	require.NoError(testInstance, listError)
	require.Empty(testInstance, branches)
}

func TestListRemoteBranchesToleratesMissingStableBranch(testInstance *testing.T) {
	failure := execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{ExitCode: 129, StandardError: "fatal: malformed object name main"},
	}
	executor := &stubGitExecutor{responses: []stubGitResponse{{err: failure}}}
	reader := newTestReader(testInstance, executor)

	branches, listError := reader.ListUnmergedRemoteBranches(context.Background(), testStableBranchConstant, false)
	require.NoError(testInstance, listError)
	require.Empty(testInstance, branches)
}

func TestCommitsInRangeReturnsRequestedComponentsOnly(testInstance *testing.T) {
	logOutput := "alice@example.com\nbob@example.com\nalice@example.com\n"
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: logOutput}},
	}}
	reader := newTestReader(testInstance, executor)

	since := time.Date(2026, time.January, 1, 13, 45, 0, 0, time.UTC)
	until := time.Date(2026, time.February, 1, 7, 5, 0, 0, time.UTC)

	records, queryError := reader.CommitsInRange(context.Background(), since, until, []history.CommitComponent{history.ComponentAuthorEmail})
	require.NoError(testInstance, queryError)
	require.Len(testInstance, records, 3)
	for _, record := range records {
		require.Len(testInstance, record, 1)
		require.Contains(testInstance, record, history.ComponentAuthorEmail)
	}

	require.Equal(testInstance, []string{
		"log",
		"--since=2026-01-01 00:00:00",
		"--before=2026-02-01 00:00:00",
		"--format=%ae",
	}, executor.recorded[0].Arguments)
}

func TestCommitsInRangeJoinsComponentsWithDelimiter(testInstance *testing.T) {
	logOutput := "abcdef1" + testComponentDelimiter + "alice@example.com\n"
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: logOutput}},
	}}
	reader := newTestReader(testInstance, executor)

	records, queryError := reader.CommitsInRange(
		context.Background(),
		time.Now().AddDate(0, -1, 0),
		time.Now(),
		[]history.CommitComponent{history.ComponentShortHash, history.ComponentAuthorEmail},
	)
	require.NoError(testInstance, queryError)
	require.Len(testInstance, records, 1)
	require.Equal(testInstance, "abcdef1", records[0][history.ComponentShortHash])
	require.Equal(testInstance, "alice@example.com", records[0][history.ComponentAuthorEmail])

	formatArgument := executor.recorded[0].Arguments[3]
	require.Equal(testInstance, "--format=%h"+testComponentDelimiter+"%ae", formatArgument)
}

func TestCommitsInRangeFailsOnFieldCountMismatch(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "only-one-field\n"}},
	}}
	reader := newTestReader(testInstance, executor)

	_, queryError := reader.CommitsInRange(
		context.Background(),
		time.Now().AddDate(0, -1, 0),
		time.Now(),
		[]history.CommitComponent{history.ComponentFullHash, history.ComponentAuthorEmail},
	)

	var parseError history.RecordParseError
	require.ErrorAs(testInstance, queryError, &parseError)
	require.Equal(testInstance, 1, parseError.FieldCount)
	require.Equal(testInstance, 2, parseError.ExpectedFields)
}

func TestCommitsInRangeValidatesComponents(testInstance *testing.T) {
	reader := newTestReader(testInstance, &stubGitExecutor{})

	_, emptyComponentsError := reader.CommitsInRange(context.Background(), time.Now(), time.Now(), nil)
	require.ErrorIs(testInstance, emptyComponentsError, history.ErrComponentsRequired)

	_, unknownComponentError := reader.CommitsInRange(context.Background(), time.Now(), time.Now(), []history.CommitComponent{"tree_hash"})
	require.Error(testInstance, unknownComponentError)
}

func TestChangedLineCountSumsNumericColumns(testInstance *testing.T) {
	numstatOutput := "10\t2\tinternal/store/repository.go\n-\t-\tassets/logo.png\n3\t7\tREADME.md\n"
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: numstatOutput}},
	}}
	reader := newTestReader(testInstance, executor)

	changedLines, countError := reader.ChangedLineCount(context.Background(), "0123456789abcdef0123456789abcdef01234567")
	require.NoError(testInstance, countError)
	require.Equal(testInstance, 22, changedLines)
	require.Equal(testInstance, []string{"show", "--numstat", "--format=", "0123456789abcdef0123456789abcdef01234567"}, executor.recorded[0].Arguments)
}

func TestLastCommitSummaryTrimsOutput(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "3 weeks ago by Alice Example\n"}},
	}}
	reader := newTestReader(testInstance, executor)

	summary, summaryError := reader.LastCommitSummary(context.Background(), "origin/feature/alpha")
	require.NoError(testInstance, summaryError)
	require.Equal(testInstance, "3 weeks ago by Alice Example", summary)
	require.Equal(testInstance, []string{"log", "-1", "--format=%cr by %an", "origin/feature/alpha"}, executor.recorded[0].Arguments)
}

func TestLastCommitDateAllowsEmptyOutput(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "\n"}},
	}}
	reader := newTestReader(testInstance, executor)

	commitDate, dateError := reader.LastCommitDate(context.Background(), "origin/feature/alpha")
	require.NoError(testInstance, dateError)
	require.Empty(testInstance, commitDate)
	require.Equal(testInstance, []string{"log", "-1", "--no-merges", "--format=%cs", "origin/feature/alpha"}, executor.recorded[0].Arguments)
}

func TestListTagsFiltersBlankLines(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "v1.0.0\nv1.1.0\n\n"}},
	}}
	reader := newTestReader(testInstance, executor)

	tags, tagError := reader.ListTags(context.Background())
	require.NoError(testInstance, tagError)
	require.Equal(testInstance, []string{"v1.0.0", "v1.1.0"}, tags)
}
