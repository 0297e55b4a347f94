// Package history issues read-only queries against a working copy and parses
// their line-oriented output into structured records.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/repovault/repovault/internal/execshell"
	"github.com/repovault/repovault/internal/shared"
)

const (
	repositoryPathRequiredMessageConstant = "repository path must be provided"
	gitExecutorMissingMessageConstant     = "git executor not configured"
	branchNameRequiredMessageConstant     = "branch name must be provided"
	commitHashRequiredMessageConstant     = "commit hash must be provided"
	componentsRequiredMessageConstant     = "at least one commit component must be requested"
	unknownComponentTemplateConstant      = "unknown commit component: %s"
	recordParseErrorTemplateConstant      = "commit line %q produced %d fields, expected %d"
	branchListFailureTemplateConstant     = "failed to list remote branches: %w"
	commitQueryFailureTemplateConstant    = "failed to query commit history: %w"
	diffStatFailureTemplateConstant       = "failed to read diff statistics for %s: %w"
	tagListFailureTemplateConstant        = "failed to list tags: %w"
	summaryQueryFailureTemplateConstant   = "failed to read last commit summary for %s: %w"
	dateQueryFailureTemplateConstant      = "failed to read last commit date for %s: %w"

	gitBranchSubcommandConstant        = "branch"
	gitRemoteBranchFlagConstant        = "-r"
	gitMergedFlagConstant              = "--merged"
	gitNoMergedFlagConstant            = "--no-merged"
	gitLogSubcommandConstant           = "log"
	gitShowSubcommandConstant          = "show"
	gitTagSubcommandConstant           = "tag"
	gitTagListFlagConstant             = "--list"
	gitSingleCommitFlagConstant        = "-1"
	gitNoMergesFlagConstant            = "--no-merges"
	gitNumstatFlagConstant             = "--numstat"
	gitEmptyFormatFlagConstant         = "--format="
	gitFormatFlagTemplateConstant      = "--format=%s"
	gitSinceFlagTemplateConstant       = "--since=%s"
	gitBeforeFlagTemplateConstant      = "--before=%s"
	gitSummaryFormatConstant           = "%cr by %an"
	gitCommitDateFormatConstant        = "%cs"
	dayBoundaryTimestampLayoutConstant = "2006-01-02 15:04:05"

	remoteBranchPrefixConstant        = "origin/"
	branchPointerMarkerConstant       = "->"
	componentDelimiterConstant        = "\x1f"
	numstatColumnSeparatorConstant    = "\t"
	numstatBinaryMarkerConstant       = "-"
	malformedObjectNameMarkerConstant = "malformed object name"
	unknownRevisionMarkerConstant     = "unknown revision"
)

// CommitComponent identifies one commit attribute extractable from the log.
type CommitComponent string

// Commit components supported by CommitsInRange.
const (
	ComponentShortHash   CommitComponent = "short_hash"
	ComponentFullHash    CommitComponent = "full_hash"
	ComponentAuthorName  CommitComponent = "author_name"
	ComponentAuthorEmail CommitComponent = "author_email"
	ComponentSubject     CommitComponent = "subject"
)

var componentFormatPlaceholders = map[CommitComponent]string{
	ComponentShortHash:   "%h",
	ComponentFullHash:    "%H",
	ComponentAuthorName:  "%an",
	ComponentAuthorEmail: "%ae",
	ComponentSubject:     "%s",
}

// CommitRecord maps requested components to their rendered values for one commit.
type CommitRecord map[CommitComponent]string

// ErrRepositoryPathRequired indicates the reader was configured without a repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrBranchNameRequired indicates a query received an empty branch name.
var ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)

// ErrCommitHashRequired indicates a diff statistics query received an empty hash.
var ErrCommitHashRequired = errors.New(commitHashRequiredMessageConstant)

// ErrComponentsRequired indicates a commit query requested no components.
var ErrComponentsRequired = errors.New(componentsRequiredMessageConstant)

// RecordParseError reports a commit line that did not yield the requested fields.
type RecordParseError struct {
	Line           string
	FieldCount     int
	ExpectedFields int
}

// Error describes the malformed commit line.
func (parseError RecordParseError) Error() string {
	return fmt.Sprintf(recordParseErrorTemplateConstant, parseError.Line, parseError.FieldCount, parseError.ExpectedFields)
}

// Dependencies enumerates collaborators required by the reader.
type Dependencies struct {
	GitExecutor shared.GitExecutor
	Logger      *zap.Logger
}

// Reader issues read-only history queries against one working copy.
type Reader struct {
	repositoryPath string
	executor       shared.GitExecutor
	logger         *zap.Logger
}

// NewReader constructs a Reader for the working copy at repositoryPath.
func NewReader(repositoryPath string, dependencies Dependencies) (*Reader, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reader{repositoryPath: trimmedRepositoryPath, executor: dependencies.GitExecutor, logger: logger}, nil
}

// ListMergedRemoteBranches returns remote branches already merged into stableBranch.
func (reader *Reader) ListMergedRemoteBranches(executionContext context.Context, stableBranch string, stripPrefix bool) ([]string, error) {
	return reader.listRemoteBranches(executionContext, gitMergedFlagConstant, stableBranch, stripPrefix)
}

// ListUnmergedRemoteBranches returns remote branches not yet merged into stableBranch.
func (reader *Reader) ListUnmergedRemoteBranches(executionContext context.Context, stableBranch string, stripPrefix bool) ([]string, error) {
	return reader.listRemoteBranches(executionContext, gitNoMergedFlagConstant, stableBranch, stripPrefix)
}

// ListRemoteBranches returns every remote branch name with its namespace prefix retained.
func (reader *Reader) ListRemoteBranches(executionContext context.Context) ([]string, error) {
	listResult, listError := reader.executeGit(executionContext, gitBranchSubcommandConstant, gitRemoteBranchFlagConstant)
	if listError != nil {
		return nil, fmt.Errorf(branchListFailureTemplateConstant, listError)
	}
	return parseBranchLines(listResult.StandardOutput, false), nil
}

func (reader *Reader) listRemoteBranches(executionContext context.Context, mergeFlag string, stableBranch string, stripPrefix bool) ([]string, error) {
	trimmedStableBranch := strings.TrimSpace(stableBranch)
	if len(trimmedStableBranch) == 0 {
		return nil, ErrBranchNameRequired
	}

	listResult, listError := reader.executeGit(executionContext, gitBranchSubcommandConstant, gitRemoteBranchFlagConstant, mergeFlag, trimmedStableBranch)
	if listError != nil {
		if isMissingRevisionFailure(listError) {
			return []string{}, nil
		}
		return nil, fmt.Errorf(branchListFailureTemplateConstant, listError)
	}

	return parseBranchLines(listResult.StandardOutput, stripPrefix), nil
}

// LastCommitSummary returns a single line combining relative commit age and
// author name for the tip of branch.
func (reader *Reader) LastCommitSummary(executionContext context.Context, branch string) (string, error) {
	trimmedBranch := strings.TrimSpace(branch)
	if len(trimmedBranch) == 0 {
		return "", ErrBranchNameRequired
	}

	summaryResult, summaryError := reader.executeGit(
		executionContext,
		gitLogSubcommandConstant,
		gitSingleCommitFlagConstant,
		fmt.Sprintf(gitFormatFlagTemplateConstant, gitSummaryFormatConstant),
		trimmedBranch,
	)
	if summaryError != nil {
		return "", fmt.Errorf(summaryQueryFailureTemplateConstant, trimmedBranch, summaryError)
	}

	return strings.TrimSpace(summaryResult.StandardOutput), nil
}

// LastCommitDate returns the ISO-8601 committer date of the most recent
// non-merge commit on branch. Empty output is a valid result.
func (reader *Reader) LastCommitDate(executionContext context.Context, branch string) (string, error) {
	trimmedBranch := strings.TrimSpace(branch)
	if len(trimmedBranch) == 0 {
		return "", ErrBranchNameRequired
	}

	dateResult, dateError := reader.executeGit(
		executionContext,
		gitLogSubcommandConstant,
		gitSingleCommitFlagConstant,
		gitNoMergesFlagConstant,
		fmt.Sprintf(gitFormatFlagTemplateConstant, gitCommitDateFormatConstant),
		trimmedBranch,
	)
	if dateError != nil {
		return "", fmt.Errorf(dateQueryFailureTemplateConstant, trimmedBranch, dateError)
	}

	return strings.TrimSpace(dateResult.StandardOutput), nil
}

// CommitsInRange returns one record per commit authored within [since, until),
// each containing exactly the requested components. Day granularity; the until
// boundary is exclusive.
func (reader *Reader) CommitsInRange(executionContext context.Context, since time.Time, until time.Time, components []CommitComponent) ([]CommitRecord, error) {
	if len(components) == 0 {
		return nil, ErrComponentsRequired
	}

	formatPlaceholders := make([]string, 0, len(components))
	for _, component := range components {
		placeholder, componentKnown := componentFormatPlaceholders[component]
		if !componentKnown {
			return nil, fmt.Errorf(unknownComponentTemplateConstant, component)
		}
		formatPlaceholders = append(formatPlaceholders, placeholder)
	}

	logResult, logError := reader.executeGit(
		executionContext,
		gitLogSubcommandConstant,
		fmt.Sprintf(gitSinceFlagTemplateConstant, dayBoundary(since)),
		fmt.Sprintf(gitBeforeFlagTemplateConstant, dayBoundary(until)),
		fmt.Sprintf(gitFormatFlagTemplateConstant, strings.Join(formatPlaceholders, componentDelimiterConstant)),
	)
	if logError != nil {
		return nil, fmt.Errorf(commitQueryFailureTemplateConstant, logError)
	}

	trimmedOutput := strings.TrimSpace(logResult.StandardOutput)
	if len(trimmedOutput) == 0 {
		return []CommitRecord{}, nil
	}

	commitLines := strings.Split(trimmedOutput, "\n")
	commitRecords := make([]CommitRecord, 0, len(commitLines))
	for _, commitLine := range commitLines {
		fields := strings.Split(commitLine, componentDelimiterConstant)
		if len(fields) != len(components) {
			return nil, RecordParseError{Line: commitLine, FieldCount: len(fields), ExpectedFields: len(components)}
		}

		record := make(CommitRecord, len(components))
		for componentIndex, component := range components {
			record[component] = fields[componentIndex]
		}
		commitRecords = append(commitRecords, record)
	}

	return commitRecords, nil
}

// ChangedLineCount returns the total inserted plus deleted line count for one
// commit. Binary files, whose statistics are non-numeric, contribute zero.
func (reader *Reader) ChangedLineCount(executionContext context.Context, commitFullHash string) (int, error) {
	trimmedHash := strings.TrimSpace(commitFullHash)
	if len(trimmedHash) == 0 {
		return 0, ErrCommitHashRequired
	}

	statResult, statError := reader.executeGit(executionContext, gitShowSubcommandConstant, gitNumstatFlagConstant, gitEmptyFormatFlagConstant, trimmedHash)
	if statError != nil {
		return 0, fmt.Errorf(diffStatFailureTemplateConstant, trimmedHash, statError)
	}

	totalChangedLines := 0
	for _, statLine := range strings.Split(statResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(statLine)
		if len(trimmedLine) == 0 {
			continue
		}

		columns := strings.SplitN(trimmedLine, numstatColumnSeparatorConstant, 3)
		if len(columns) < 2 {
			continue
		}

		totalChangedLines += parseStatColumn(columns[0])
		totalChangedLines += parseStatColumn(columns[1])
	}

	return totalChangedLines, nil
}

// ListTags returns every tag name in the working copy.
func (reader *Reader) ListTags(executionContext context.Context) ([]string, error) {
	tagResult, tagError := reader.executeGit(executionContext, gitTagSubcommandConstant, gitTagListFlagConstant)
	if tagError != nil {
		return nil, fmt.Errorf(tagListFailureTemplateConstant, tagError)
	}

	tagNames := []string{}
	for _, tagLine := range strings.Split(tagResult.StandardOutput, "\n") {
		trimmedTag := strings.TrimSpace(tagLine)
		if len(trimmedTag) > 0 {
			tagNames = append(tagNames, trimmedTag)
		}
	}

	return tagNames, nil
}

func (reader *Reader) executeGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return reader.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: reader.repositoryPath,
	})
}

func parseBranchLines(branchOutput string, stripPrefix bool) []string {
	branchNames := []string{}
	for _, branchLine := range strings.Split(branchOutput, "\n") {
		trimmedBranch := strings.TrimSpace(branchLine)
		if len(trimmedBranch) == 0 || strings.Contains(trimmedBranch, branchPointerMarkerConstant) {
			continue
		}
		if stripPrefix {
			trimmedBranch = strings.TrimPrefix(trimmedBranch, remoteBranchPrefixConstant)
		}
		branchNames = append(branchNames, trimmedBranch)
	}
	return branchNames
}

func parseStatColumn(column string) int {
	if column == numstatBinaryMarkerConstant {
		return 0
	}
	changedLines, parseError := strconv.Atoi(column)
	if parseError != nil {
		return 0
	}
	return changedLines
}

func dayBoundary(moment time.Time) string {
	normalizedDay := time.Date(moment.Year(), moment.Month(), moment.Day(), 0, 0, 0, 0, moment.Location())
	return normalizedDay.Format(dayBoundaryTimestampLayoutConstant)
}

func isMissingRevisionFailure(queryError error) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(queryError, &failedError) {
		return false
	}
	standardError := strings.ToLower(failedError.Result.StandardError)
	return strings.Contains(standardError, malformedObjectNameMarkerConstant) || strings.Contains(standardError, unknownRevisionMarkerConstant)
}
