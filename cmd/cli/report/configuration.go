package report

import (
	"strings"
	"time"

	"github.com/repovault/repovault/internal/staleness"
)

const (
	defaultRepositoryPathConstant = "."

	pathConfigurationSuffixConstant           = ".path"
	thresholdConfigurationSuffixConstant      = ".threshold_days"
	stableBranchesConfigurationSuffixConstant = ".stable_branches"
)

// StaleConfiguration captures configuration values for the stale-branches command.
type StaleConfiguration struct {
	Path           string   `mapstructure:"path"`
	ThresholdDays  int      `mapstructure:"threshold_days"`
	StableBranches []string `mapstructure:"stable_branches"`
}

// ContributionsConfiguration captures configuration values for the contributions command.
type ContributionsConfiguration struct {
	Path  string    `mapstructure:"path"`
	Since time.Time `mapstructure:"since"`
	Until time.Time `mapstructure:"until"`
}

// DefaultStaleConfiguration provides default stale-branches command settings.
func DefaultStaleConfiguration() StaleConfiguration {
	return StaleConfiguration{
		Path:           defaultRepositoryPathConstant,
		ThresholdDays:  staleness.DefaultThresholdDays,
		StableBranches: append([]string{}, staleness.DefaultStableBranches...),
	}
}

// DefaultContributionsConfiguration provides default contributions command settings.
func DefaultContributionsConfiguration() ContributionsConfiguration {
	return ContributionsConfiguration{Path: defaultRepositoryPathConstant}
}

// DefaultStaleConfigurationValues exposes stale-branches defaults keyed under the provided configuration prefix.
func DefaultStaleConfigurationValues(configurationKey string) map[string]any {
	return map[string]any{
		configurationKey + pathConfigurationSuffixConstant:           defaultRepositoryPathConstant,
		configurationKey + thresholdConfigurationSuffixConstant:      staleness.DefaultThresholdDays,
		configurationKey + stableBranchesConfigurationSuffixConstant: append([]string{}, staleness.DefaultStableBranches...),
	}
}

// DefaultContributionsConfigurationValues exposes contributions defaults keyed under the provided configuration prefix.
func DefaultContributionsConfigurationValues(configurationKey string) map[string]any {
	return map[string]any{
		configurationKey + pathConfigurationSuffixConstant: defaultRepositoryPathConstant,
	}
}

// Sanitize normalizes configuration values.
func (configuration StaleConfiguration) Sanitize() StaleConfiguration {
	sanitized := configuration
	sanitized.Path = strings.TrimSpace(configuration.Path)
	if len(sanitized.Path) == 0 {
		sanitized.Path = defaultRepositoryPathConstant
	}
	if sanitized.ThresholdDays <= 0 {
		sanitized.ThresholdDays = staleness.DefaultThresholdDays
	}
	sanitized.StableBranches = sanitizeBranchNames(configuration.StableBranches)
	return sanitized
}

// Sanitize normalizes configuration values.
func (configuration ContributionsConfiguration) Sanitize() ContributionsConfiguration {
	sanitized := configuration
	sanitized.Path = strings.TrimSpace(configuration.Path)
	if len(sanitized.Path) == 0 {
		sanitized.Path = defaultRepositoryPathConstant
	}
	return sanitized
}

func sanitizeBranchNames(raw []string) []string {
	trimmed := make([]string, 0, len(raw))
	for _, candidate := range raw {
		value := strings.TrimSpace(candidate)
		if len(value) == 0 {
			continue
		}
		trimmed = append(trimmed, value)
	}
	return trimmed
}
