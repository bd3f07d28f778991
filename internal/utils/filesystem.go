package utils

import (
	"os"
	"path/filepath"
)

const (
	SpecmintDirName = ".specmint"
	TeamsSubDir     = "teams"
	ConfigFileName  = "config.yaml"
)

// Optional override for the teams directory (set by config or CLI flag)
var teamsDirOverride string

// GetSpecmintDir returns the .specmint directory path (either local or in home directory)
func GetSpecmintDir() string {
	if _, err := os.Stat(SpecmintDirName); err == nil {
		return SpecmintDirName
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, SpecmintDirName)
	}

	return SpecmintDirName
}

// GetTeamsDir returns the directory holding per-team documents
// (contexts, legacy rules, legacy config).
func GetTeamsDir() string {
	if teamsDirOverride != "" {
		return teamsDirOverride
	}
	return filepath.Join(GetSpecmintDir(), TeamsSubDir)
}

// SetTeamsDirOverride sets an explicit teams directory to use.
func SetTeamsDirOverride(dir string) {
	teamsDirOverride = dir
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o750)
}
