// Package staleness classifies remote branches whose last commit exceeds an
// age threshold relative to a stable branch.
package staleness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/repovault/repovault/internal/shared"
)

const (
	historyReaderMissingMessageConstant  = "history reader not configured"
	unmergedQueryFailureTemplateConstant = "failed to enumerate unmerged branches: %w"
	stableResolveFailureTemplateConstant = "failed to resolve stable branch: %w"

	commitDateLayoutConstant        = "2006-01-02"
	remoteBranchPrefixConstant      = "origin/"
	hoursPerDayConstant             = 24
	defaultAgeThresholdDaysConstant = 30

	logMessageSkippingEmptyDateConstant    = "skipping branch without resolvable commit date"
	logMessageSkippingBadDateConstant      = "skipping branch with unparsable commit date"
	logMessageSkippingSummaryErrorConstant = "skipping branch whose summary query failed"
	logFieldBranchConstant                 = "branch"
	logFieldCommitDateConstant             = "commit_date"
)

// DefaultStableBranches lists the branch names treated as merge targets when
// none are configured.
var DefaultStableBranches = []string{"main", "release"}

// DefaultThresholdDays is the age threshold applied when none is configured.
const DefaultThresholdDays = defaultAgeThresholdDaysConstant

// ErrHistoryReaderNotConfigured indicates the history reader dependency was missing.
var ErrHistoryReaderNotConfigured = errors.New(historyReaderMissingMessageConstant)

// BranchInfo describes one stale branch.
type BranchInfo struct {
	Name              string
	LastCommitAgeDays int
	LastCommitSummary string
}

// HistoryReader exposes the queries the analyzer needs.
type HistoryReader interface {
	ListRemoteBranches(executionContext context.Context) ([]string, error)
	ListUnmergedRemoteBranches(executionContext context.Context, stableBranch string, stripPrefix bool) ([]string, error)
	LastCommitDate(executionContext context.Context, branch string) (string, error)
	LastCommitSummary(executionContext context.Context, branch string) (string, error)
}

// Options configure the analyzer.
type Options struct {
	ThresholdDays  int
	StableBranches []string
}

// Dependencies enumerates collaborators required by the analyzer.
type Dependencies struct {
	HistoryReader HistoryReader
	Clock         shared.Clock
	Logger        *zap.Logger
}

// Analyzer flags unmerged remote branches whose tip exceeds the age threshold.
type Analyzer struct {
	reader         HistoryReader
	clock          shared.Clock
	logger         *zap.Logger
	thresholdDays  int
	stableBranches []string
}

// NewAnalyzer constructs an Analyzer applying default threshold and stable branches.
func NewAnalyzer(options Options, dependencies Dependencies) (*Analyzer, error) {
	if dependencies.HistoryReader == nil {
		return nil, ErrHistoryReaderNotConfigured
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	thresholdDays := options.ThresholdDays
	if thresholdDays <= 0 {
		thresholdDays = defaultAgeThresholdDaysConstant
	}

	stableBranches := sanitizeBranchNames(options.StableBranches)
	if len(stableBranches) == 0 {
		stableBranches = DefaultStableBranches
	}

	analyzer := &Analyzer{
		reader:         dependencies.HistoryReader,
		clock:          clock,
		logger:         logger,
		thresholdDays:  thresholdDays,
		stableBranches: stableBranches,
	}

	return analyzer, nil
}

// StaleBranches returns the unmerged remote branches whose last non-merge
// commit is older than the threshold. Branches without a resolvable commit
// date are skipped rather than failing the analysis.
func (analyzer *Analyzer) StaleBranches(executionContext context.Context) ([]BranchInfo, error) {
	stableBranch, stableError := analyzer.resolveStableBranch(executionContext)
	if stableError != nil {
		return nil, fmt.Errorf(stableResolveFailureTemplateConstant, stableError)
	}

	unmergedBranches, unmergedError := analyzer.reader.ListUnmergedRemoteBranches(executionContext, stableBranch, false)
	if unmergedError != nil {
		return nil, fmt.Errorf(unmergedQueryFailureTemplateConstant, unmergedError)
	}

	staleBranches := []BranchInfo{}
	for _, branchName := range unmergedBranches {
		commitDate, dateError := analyzer.reader.LastCommitDate(executionContext, branchName)
		if dateError != nil || len(commitDate) == 0 {
			analyzer.logger.Warn(logMessageSkippingEmptyDateConstant, zap.String(logFieldBranchConstant, branchName))
			continue
		}

		parsedDate, parseError := time.Parse(commitDateLayoutConstant, commitDate)
		if parseError != nil {
			analyzer.logger.Warn(
				logMessageSkippingBadDateConstant,
				zap.String(logFieldBranchConstant, branchName),
				zap.String(logFieldCommitDateConstant, commitDate),
			)
			continue
		}

		ageDays := analyzer.calendarAgeDays(parsedDate)
		if ageDays <= analyzer.thresholdDays {
			continue
		}

		commitSummary, summaryError := analyzer.reader.LastCommitSummary(executionContext, branchName)
		if summaryError != nil {
			analyzer.logger.Warn(logMessageSkippingSummaryErrorConstant, zap.String(logFieldBranchConstant, branchName))
			continue
		}

		staleBranches = append(staleBranches, BranchInfo{
			Name:              branchName,
			LastCommitAgeDays: ageDays,
			LastCommitSummary: commitSummary,
		})
	}

	return staleBranches, nil
}

func (analyzer *Analyzer) resolveStableBranch(executionContext context.Context) (string, error) {
	remoteBranches, listError := analyzer.reader.ListRemoteBranches(executionContext)
	if listError != nil {
		return "", listError
	}

	remoteBranchSet := make(map[string]struct{}, len(remoteBranches))
	for _, remoteBranch := range remoteBranches {
		remoteBranchSet[remoteBranch] = struct{}{}
	}

	for _, stableCandidate := range analyzer.stableBranches {
		qualifiedCandidate := remoteBranchPrefixConstant + stableCandidate
		if _, candidateExists := remoteBranchSet[qualifiedCandidate]; candidateExists {
			return qualifiedCandidate, nil
		}
	}

	return analyzer.stableBranches[0], nil
}

func (analyzer *Analyzer) calendarAgeDays(commitDate time.Time) int {
	now := analyzer.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	commitDay := time.Date(commitDate.Year(), commitDate.Month(), commitDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(commitDay).Hours() / hoursPerDayConstant)
}

func sanitizeBranchNames(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) > 0 {
			sanitized = append(sanitized, trimmed)
		}
	}
	return sanitized
}
