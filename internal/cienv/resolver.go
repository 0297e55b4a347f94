// Package cienv resolves the active branch name and commit identifier from CI
// provider environment variables, falling back to the working copy itself.
package cienv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/repovault/repovault/internal/execshell"
	"github.com/repovault/repovault/internal/shared"
)

const (
	repositoryPathRequiredMessageConstant = "repository path must be provided"
	gitExecutorMissingMessageConstant     = "git executor not configured"
	branchResolveFailureTemplateConstant  = "failed to resolve branch from working copy: %w"
	commitResolveFailureTemplateConstant  = "failed to resolve commit from working copy: %w"
	dotenvLoadFailureTemplateConstant     = "failed to load environment file %s: %w"

	gitRevParseSubcommandConstant            = "rev-parse"
	gitAbbreviatedRefFlagConstant            = "--abbrev-ref"
	gitShortFlagConstant                     = "--short"
	gitHeadReferenceConstant                 = "HEAD"
	mergeRequestSourceBranchVariableConstant = "CI_MERGE_REQUEST_SOURCE_BRANCH_NAME"
	commitBranchVariableConstant             = "CI_COMMIT_BRANCH"
	githubHeadRefVariableConstant            = "GITHUB_HEAD_REF"
	githubRefNameVariableConstant            = "GITHUB_REF_NAME"
	githubRefTypeVariableConstant            = "GITHUB_REF_TYPE"
	githubRefTypeBranchValueConstant         = "branch"
	commitShortShaVariableConstant           = "CI_COMMIT_SHORT_SHA"
	commitShaVariableConstant                = "CI_COMMIT_SHA"
)

// branchVariableChain lists the environment variables consulted for the branch
// name in precedence order. The order is an external contract.
var branchVariableChain = []string{
	mergeRequestSourceBranchVariableConstant,
	commitBranchVariableConstant,
	githubHeadRefVariableConstant,
}

// ErrRepositoryPathRequired indicates the resolver was configured without a repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// Lookup reports the value for one environment variable.
type Lookup func(key string) (string, bool)

// OSLookup reads variables from the process environment.
func OSLookup() Lookup {
	return os.LookupEnv
}

// MapLookup reads variables from a fixed map.
func MapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		value, present := values[key]
		return value, present
	}
}

// FileLookup loads a dotenv file and consults it before the fallback lookup.
func FileLookup(environmentFilePath string, fallback Lookup) (Lookup, error) {
	fileValues, loadError := godotenv.Read(environmentFilePath)
	if loadError != nil {
		return nil, fmt.Errorf(dotenvLoadFailureTemplateConstant, environmentFilePath, loadError)
	}

	return func(key string) (string, bool) {
		if value, present := fileValues[key]; present {
			return value, true
		}
		if fallback != nil {
			return fallback(key)
		}
		return "", false
	}, nil
}

// Dependencies enumerates collaborators required by the resolver.
type Dependencies struct {
	Lookup      Lookup
	GitExecutor shared.GitExecutor
	Logger      *zap.Logger
}

// Resolver discovers branch and commit identifiers for the current execution.
type Resolver struct {
	repositoryPath string
	lookup         Lookup
	executor       shared.GitExecutor
	logger         *zap.Logger
}

// NewResolver constructs a Resolver for the working copy at repositoryPath.
func NewResolver(repositoryPath string, dependencies Dependencies) (*Resolver, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}

	lookup := dependencies.Lookup
	if lookup == nil {
		lookup = OSLookup()
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		repositoryPath: trimmedPath,
		lookup:         lookup,
		executor:       dependencies.GitExecutor,
		logger:         logger,
	}, nil
}

// BranchName resolves the active branch from CI variables, then from HEAD.
func (resolver *Resolver) BranchName(executionContext context.Context) (string, error) {
	for _, variableName := range branchVariableChain {
		if value, present := resolver.nonEmptyLookup(variableName); present {
			return value, nil
		}
	}

	if referenceName, present := resolver.nonEmptyLookup(githubRefNameVariableConstant); present {
		if referenceType, typePresent := resolver.nonEmptyLookup(githubRefTypeVariableConstant); typePresent && referenceType == githubRefTypeBranchValueConstant {
			return referenceName, nil
		}
	}

	branchName, revParseError := resolver.revParse(executionContext, gitAbbreviatedRefFlagConstant, gitHeadReferenceConstant)
	if revParseError != nil {
		return "", fmt.Errorf(branchResolveFailureTemplateConstant, revParseError)
	}
	return branchName, nil
}

// CommitSHA resolves the full commit identifier from CI variables, then from HEAD.
func (resolver *Resolver) CommitSHA(executionContext context.Context) (string, error) {
	if value, present := resolver.nonEmptyLookup(commitShaVariableConstant); present {
		return value, nil
	}

	commitIdentifier, revParseError := resolver.revParse(executionContext, gitHeadReferenceConstant)
	if revParseError != nil {
		return "", fmt.Errorf(commitResolveFailureTemplateConstant, revParseError)
	}
	return commitIdentifier, nil
}

// ShortCommitSHA resolves the abbreviated commit identifier. The short CI
// variable is consulted before the full one.
func (resolver *Resolver) ShortCommitSHA(executionContext context.Context) (string, error) {
	if value, present := resolver.nonEmptyLookup(commitShortShaVariableConstant); present {
		return value, nil
	}
	if value, present := resolver.nonEmptyLookup(commitShaVariableConstant); present {
		return value, nil
	}

	commitIdentifier, revParseError := resolver.revParse(executionContext, gitShortFlagConstant, gitHeadReferenceConstant)
	if revParseError != nil {
		return "", fmt.Errorf(commitResolveFailureTemplateConstant, revParseError)
	}
	return commitIdentifier, nil
}

func (resolver *Resolver) nonEmptyLookup(variableName string) (string, bool) {
	value, present := resolver.lookup(variableName)
	trimmedValue := strings.TrimSpace(value)
	if !present || len(trimmedValue) == 0 {
		return "", false
	}
	return trimmedValue, true
}

func (resolver *Resolver) revParse(executionContext context.Context, arguments ...string) (string, error) {
	commandArguments := append([]string{gitRevParseSubcommandConstant}, arguments...)
	executionResult, executionError := resolver.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: resolver.repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}
