// Package execshell provides structured helpers for invoking the Git engine.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions used throughout
// repovault to run git in a testable manner.
package execshell
