package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	relativePathRequiredMessageConstant    = "relative path must be provided"
	pathOutsideWorkingCopyMessageConstant  = "path escapes the working copy root"
	fileReadFailureTemplateConstant        = "failed to read %s: %w"
	fileWriteFailureTemplateConstant       = "failed to write %s: %w"
	parentDirectoryFailureTemplateConstant = "failed to create parent directories for %s: %w"
	filePermissionsConstant                = 0o644
)

// ErrRelativePathRequired indicates a file operation received an empty path.
var ErrRelativePathRequired = errors.New(relativePathRequiredMessageConstant)

// ErrPathOutsideWorkingCopy indicates a file operation attempted to escape the
// working copy root.
var ErrPathOutsideWorkingCopy = errors.New(pathOutsideWorkingCopyMessageConstant)

// FileExists reports whether a file exists at the relative path inside the working copy.
func (repository *Repository) FileExists(relativePath string) (bool, error) {
	resolvedPath, resolveError := repository.resolveScopedPath(relativePath)
	if resolveError != nil {
		return false, resolveError
	}

	if _, statError := repository.fileSystem.Stat(resolvedPath); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, nil
		}
		return false, statError
	}

	return true, nil
}

// ReadFile returns the contents of a file inside the working copy.
func (repository *Repository) ReadFile(relativePath string) ([]byte, error) {
	resolvedPath, resolveError := repository.resolveScopedPath(relativePath)
	if resolveError != nil {
		return nil, resolveError
	}

	fileContent, readError := repository.fileSystem.ReadFile(resolvedPath)
	if readError != nil {
		return nil, fmt.Errorf(fileReadFailureTemplateConstant, relativePath, readError)
	}

	return fileContent, nil
}

// WriteFile fully overwrites a file inside the working copy, creating any
// missing intermediate directories first.
func (repository *Repository) WriteFile(relativePath string, content []byte) error {
	resolvedPath, resolveError := repository.resolveScopedPath(relativePath)
	if resolveError != nil {
		return resolveError
	}

	parentDirectory := filepath.Dir(resolvedPath)
	if directoryError := repository.fileSystem.MkdirAll(parentDirectory, directoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(parentDirectoryFailureTemplateConstant, relativePath, directoryError)
	}

	if writeError := repository.fileSystem.WriteFile(resolvedPath, content, filePermissionsConstant); writeError != nil {
		return fmt.Errorf(fileWriteFailureTemplateConstant, relativePath, writeError)
	}

	return nil
}

func (repository *Repository) resolveScopedPath(relativePath string) (string, error) {
	trimmedRelativePath := strings.TrimSpace(relativePath)
	if len(trimmedRelativePath) == 0 {
		return "", ErrRelativePathRequired
	}

	resolvedPath := filepath.Join(repository.localPath, trimmedRelativePath)
	workingCopyPrefix := repository.localPath + string(filepath.Separator)
	if resolvedPath != repository.localPath && !strings.HasPrefix(resolvedPath, workingCopyPrefix) {
		return "", ErrPathOutsideWorkingCopy
	}

	return resolvedPath, nil
}
