package execshell

import "fmt"

const (
	genericStartTemplateConstant            = "Running %s%s"
	genericSuccessTemplateConstant          = "Completed %s%s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	verbStartTemplateConstant               = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	unknownFailureMessageConstant           = "unknown error"
	defaultWorkingDirectoryLabelConstant    = ""
)

const (
	gitCloneSubcommandNameConstant    = "clone"
	gitInitSubcommandNameConstant     = "init"
	gitPullSubcommandNameConstant     = "pull"
	gitPushSubcommandNameConstant     = "push"
	gitResetSubcommandNameConstant    = "reset"
	gitCommitSubcommandNameConstant   = "commit"
	gitAddSubcommandNameConstant      = "add"
	gitStatusSubcommandNameConstant   = "status"
	gitRemoteSubcommandNameConstant   = "remote"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitRevParseSubcommandNameConstant = "rev-parse"
	gitLogSubcommandNameConstant      = "log"
	gitShowSubcommandNameConstant     = "show"
	gitBranchSubcommandNameConstant   = "branch"
	gitTagSubcommandNameConstant      = "tag"
)

var gitSubcommandStartLabels = map[string]string{
	gitCloneSubcommandNameConstant:    "Cloning repository",
	gitInitSubcommandNameConstant:     "Initializing repository",
	gitPullSubcommandNameConstant:     "Pulling remote changes",
	gitPushSubcommandNameConstant:     "Pushing local commits",
	gitResetSubcommandNameConstant:    "Resetting working tree",
	gitCommitSubcommandNameConstant:   "Creating commit",
	gitAddSubcommandNameConstant:      "Staging changes",
	gitStatusSubcommandNameConstant:   "Reviewing working tree status",
	gitRemoteSubcommandNameConstant:   "Configuring remotes",
	gitCheckoutSubcommandNameConstant: "Switching branches",
	gitRevParseSubcommandNameConstant: "Resolving revision",
	gitLogSubcommandNameConstant:      "Reading commit history",
	gitShowSubcommandNameConstant:     "Reading commit details",
	gitBranchSubcommandNameConstant:   "Listing branches",
	gitTagSubcommandNameConstant:      "Listing tags",
}

// CommandMessageFormatter renders human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command that is about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	startLabel, labelKnown := gitSubcommandStartLabels[formatter.subcommand(command)]
	if labelKnown {
		return fmt.Sprintf(verbStartTemplateConstant, startLabel, formatter.formatWorkingDirectorySuffix(command))
	}
	return fmt.Sprintf(genericStartTemplateConstant, command.String(), formatter.formatWorkingDirectorySuffix(command))
}

// BuildSuccessMessage describes a command that completed successfully.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return fmt.Sprintf(genericSuccessTemplateConstant, command.String(), formatter.formatWorkingDirectorySuffix(command))
}

// BuildFailureMessage describes a command that exited with a non-zero status.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return fmt.Sprintf(genericFailureTemplateConstant, command.String(), result.ExitCode, formatter.formatWorkingDirectorySuffix(command))
}

// BuildExecutionFailureMessage describes a command that never produced a result.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	failureDescription := unknownFailureMessageConstant
	if failure != nil {
		failureDescription = failure.Error()
	}
	return fmt.Sprintf(genericExecutionFailureTemplateConstant, command.String(), failureDescription)
}

func (formatter CommandMessageFormatter) subcommand(command ShellCommand) string {
	if len(command.Details.Arguments) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return command.Details.Arguments[0]
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	if len(command.Details.WorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, command.Details.WorkingDirectory)
}
