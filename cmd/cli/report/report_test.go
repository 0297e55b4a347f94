package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/repovault/repovault/cmd/cli/report"
	"github.com/repovault/repovault/internal/execshell"
)

type stubGitExecutor struct {
	recorded  []execshell.CommandDetails
	responses []stubGitResponse
}

type stubGitResponse struct {
	result execshell.ExecutionResult
	err    error
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	if len(executor.responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}
	response := executor.responses[0]
	executor.responses = executor.responses[1:]
	return response.result, response.err
}

func (executor *stubGitExecutor) recordedArguments() [][]string {
	arguments := make([][]string, 0, len(executor.recorded))
	for _, details := range executor.recorded {
		arguments = append(arguments, details.Arguments)
	}
	return arguments
}

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

func TestStaleBranchesCommandPrintsStaleBranches(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "  origin/main\n  origin/feature/dormant\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "  origin/feature/dormant\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "2026-07-20\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "6 weeks ago by Alice\n"}},
	}}
	builder := report.StaleCommandBuilder{
		GitExecutor: executor,
		Clock:       fixedClock{now: time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetArgs([]string{"--path", "/srv/work/project", "--threshold", "30"})

	require.NoError(testInstance, command.Execute())

	require.Equal(testInstance, [][]string{
		{"branch", "-r"},
		{"branch", "-r", "--no-merged", "origin/main"},
		{"log", "-1", "--no-merges", "--format=%cs", "origin/feature/dormant"},
		{"log", "-1", "--format=%cr by %an", "origin/feature/dormant"},
	}, executor.recordedArguments())
	require.Equal(testInstance, "origin/feature/dormant\t6 weeks ago by Alice\n", outputBuffer.String())
}

func TestStaleBranchesCommandOmitsFreshBranches(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "  origin/main\n  origin/feature/recent\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "  origin/feature/recent\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "2026-08-25\n"}},
	}}
	builder := report.StaleCommandBuilder{
		GitExecutor: executor,
		Clock:       fixedClock{now: time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetArgs([]string{"--path", "/srv/work/project"})

	require.NoError(testInstance, command.Execute())
	require.Empty(testInstance, outputBuffer.String())
}

func TestContributionsCommandPrintsSortedTotals(testInstance *testing.T) {
	logOutput := "aaa111\x1falice@example.com\nbbb222\x1fbob@example.com\n"
	executor := &stubGitExecutor{responses: []stubGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: logOutput}},
		{result: execshell.ExecutionResult{StandardOutput: "10\t2\tmain.go\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "3\t0\tdocs.md\n"}},
	}}
	builder := report.ContributionsCommandBuilder{GitExecutor: executor}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetArgs([]string{
		"--path", "/srv/work/project",
		"--since", "2026-01-01",
		"--until", "2026-02-01",
	})

	require.NoError(testInstance, command.Execute())

	require.Equal(testInstance, [][]string{
		{"log", "--since=2026-01-01 00:00:00", "--before=2026-02-01 00:00:00", "--format=%H\x1f%ae"},
		{"show", "--numstat", "--format=", "aaa111"},
		{"show", "--numstat", "--format=", "bbb222"},
	}, executor.recordedArguments())
	require.Equal(testInstance, "alice@example.com\t12\nbob@example.com\t3\n", outputBuffer.String())
}

func TestContributionsCommandRequiresSinceDate(testInstance *testing.T) {
	builder := report.ContributionsCommandBuilder{GitExecutor: &stubGitExecutor{}}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetOut(&bytes.Buffer{})
	command.SetArgs([]string{"--path", "/srv/work/project"})

	executionError := command.Execute()
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "start date required")
}

func TestContributionsCommandRejectsMalformedDates(testInstance *testing.T) {
	builder := report.ContributionsCommandBuilder{GitExecutor: &stubGitExecutor{}}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetOut(&bytes.Buffer{})
	command.SetArgs([]string{"--path", "/srv/work/project", "--since", "January 1"})

	executionError := command.Execute()
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "invalid since date")
}
