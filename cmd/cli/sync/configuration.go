package sync

import "strings"

const (
	defaultBranchNameConstant = "main"

	branchConfigurationSuffixConstant = ".branch"
)

// CommandConfiguration captures configuration values for the sync command.
type CommandConfiguration struct {
	Path         string `mapstructure:"path"`
	Remote       string `mapstructure:"remote"`
	Branch       string `mapstructure:"branch"`
	AllowReplace bool   `mapstructure:"allow_replace"`
	Push         bool   `mapstructure:"push"`
}

// DefaultCommandConfiguration provides default sync command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Branch: defaultBranchNameConstant}
}

// DefaultConfigurationValues exposes default values keyed under the provided configuration prefix.
func DefaultConfigurationValues(configurationKey string) map[string]any {
	return map[string]any{
		configurationKey + branchConfigurationSuffixConstant: defaultBranchNameConstant,
	}
}

// Sanitize normalizes configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Path = strings.TrimSpace(configuration.Path)
	sanitized.Remote = strings.TrimSpace(configuration.Remote)
	sanitized.Branch = strings.TrimSpace(configuration.Branch)
	if len(sanitized.Branch) == 0 {
		sanitized.Branch = defaultBranchNameConstant
	}
	return sanitized
}
