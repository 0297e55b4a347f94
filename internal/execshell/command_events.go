package execshell

import "go.uber.org/zap"

const (
	logFieldCommandConstant          = "command"
	logFieldWorkingDirectoryConstant = "working_directory"
	logFieldExitCodeConstant         = "exit_code"
	logFieldStandardErrorConstant    = "standard_error"
)

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports unexpected failures prior to receiving an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// NoopCommandEventObserver discards all command events.
type NoopCommandEventObserver struct{}

// CommandStarted implements CommandEventObserver for the no-op observer.
func (NoopCommandEventObserver) CommandStarted(ShellCommand) {}

// CommandCompleted implements CommandEventObserver for the no-op observer.
func (NoopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

// CommandExecutionFailed implements CommandEventObserver for the no-op observer.
func (NoopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}

// loggingCommandEventObserver forwards command events to a zap logger.
type loggingCommandEventObserver struct {
	logger    *zap.Logger
	formatter CommandMessageFormatter
}

func newLoggingCommandEventObserver(logger *zap.Logger) loggingCommandEventObserver {
	return loggingCommandEventObserver{logger: logger, formatter: CommandMessageFormatter{}}
}

// CommandStarted logs the beginning of a command execution.
func (observer loggingCommandEventObserver) CommandStarted(command ShellCommand) {
	observer.logger.Debug(
		observer.formatter.BuildStartedMessage(command),
		zap.String(logFieldCommandConstant, command.String()),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
}

// CommandCompleted logs a finished command at a level matching its exit code.
func (observer loggingCommandEventObserver) CommandCompleted(command ShellCommand, result ExecutionResult) {
	if result.ExitCode == 0 {
		observer.logger.Debug(
			observer.formatter.BuildSuccessMessage(command),
			zap.String(logFieldCommandConstant, command.String()),
		)
		return
	}

	observer.logger.Error(
		observer.formatter.BuildFailureMessage(command, result),
		zap.String(logFieldCommandConstant, command.String()),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
		zap.String(logFieldStandardErrorConstant, result.StandardError),
	)
}

// CommandExecutionFailed logs a command that never produced a result.
func (observer loggingCommandEventObserver) CommandExecutionFailed(command ShellCommand, failure error) {
	observer.logger.Error(
		observer.formatter.BuildExecutionFailureMessage(command, failure),
		zap.String(logFieldCommandConstant, command.String()),
		zap.Error(failure),
	)
}
