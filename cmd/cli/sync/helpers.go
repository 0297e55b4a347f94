package sync

import (
	"go.uber.org/zap"

	"github.com/repovault/repovault/internal/execshell"
	"github.com/repovault/repovault/internal/shared"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

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
