// Package contribution aggregates changed-line counts per commit author over
// a date range.
package contribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/repovault/repovault/internal/history"
)

const (
	historyReaderMissingMessageConstant = "history reader not configured"
	commitQueryFailureTemplateConstant  = "failed to enumerate commits: %w"

	logMessageSkippingIncompleteRecordConstant = "skipping commit with missing hash or author email"
	logMessageSkippingDiffStatFailureConstant  = "skipping commit whose diff statistics query failed"
	logFieldCommitHashConstant                 = "commit_hash"
)

// ErrHistoryReaderNotConfigured indicates the history reader dependency was missing.
var ErrHistoryReaderNotConfigured = errors.New(historyReaderMissingMessageConstant)

// HistoryReader exposes the queries the accountant needs.
type HistoryReader interface {
	CommitsInRange(executionContext context.Context, since time.Time, until time.Time, components []history.CommitComponent) ([]history.CommitRecord, error)
	ChangedLineCount(executionContext context.Context, commitFullHash string) (int, error)
}

// Dependencies enumerates collaborators required by the accountant.
type Dependencies struct {
	HistoryReader HistoryReader
	Logger        *zap.Logger
}

// Accountant sums changed lines per author email across a commit range.
type Accountant struct {
	reader HistoryReader
	logger *zap.Logger
}

// NewAccountant constructs an Accountant from its dependencies.
func NewAccountant(dependencies Dependencies) (*Accountant, error) {
	if dependencies.HistoryReader == nil {
		return nil, ErrHistoryReaderNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Accountant{reader: dependencies.HistoryReader, logger: logger}, nil
}

// Totals returns the changed-line count attributed to each author email for
// commits authored within [since, until). Commits lacking a hash or author
// email are skipped, as are commits whose diff statistics cannot be read.
func (accountant *Accountant) Totals(executionContext context.Context, since time.Time, until time.Time) (map[string]int, error) {
	requestedComponents := []history.CommitComponent{history.ComponentFullHash, history.ComponentAuthorEmail}

	commitRecords, commitsError := accountant.reader.CommitsInRange(executionContext, since, until, requestedComponents)
	if commitsError != nil {
		return nil, fmt.Errorf(commitQueryFailureTemplateConstant, commitsError)
	}

	changedLinesByEmail := map[string]int{}
	for _, commitRecord := range commitRecords {
		commitHash := strings.TrimSpace(commitRecord[history.ComponentFullHash])
		authorEmail := strings.TrimSpace(commitRecord[history.ComponentAuthorEmail])
		if len(commitHash) == 0 || len(authorEmail) == 0 {
			accountant.logger.Warn(logMessageSkippingIncompleteRecordConstant,
				zap.String(logFieldCommitHashConstant, commitHash))
			continue
		}

		changedLines, changedLinesError := accountant.reader.ChangedLineCount(executionContext, commitHash)
		if changedLinesError != nil {
			accountant.logger.Warn(logMessageSkippingDiffStatFailureConstant,
				zap.String(logFieldCommitHashConstant, commitHash),
				zap.Error(changedLinesError))
			continue
		}

		changedLinesByEmail[authorEmail] += changedLines
	}

	return changedLinesByEmail, nil
}
