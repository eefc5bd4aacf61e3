//go:build windows

package config

import (
	"os"
	"path/filepath"
)

// Platform-specific path defaults for Windows

func programData() string {
	if p := os.Getenv("PROGRAMDATA"); p != "" {
		return p
	}
	return "C:\\ProgramData"
}

// GetDefaultConfigLocation returns the default configuration file path for Windows.
func GetDefaultConfigLocation() string {
	return filepath.Join(programData(), "Examination", "config.yml")
}

// GetDefaultRootDirectory returns the default root directory for Windows.
func GetDefaultRootDirectory() string {
	return filepath.Join(programData(), "Examination")
}

// GetDefaultLogDirectory returns the default log directory for Windows.
func GetDefaultLogDirectory() string {
	return filepath.Join(programData(), "Examination", "logs")
}

// GetDefaultDataDirectory returns the default directory for uploaded module files on Windows.
func GetDefaultDataDirectory() string {
	return filepath.Join(programData(), "Examination", "uploads")
}

// GetDefaultDatabasePath returns the default location of the document database on Windows.
func GetDefaultDatabasePath() string {
	return filepath.Join(programData(), "Examination", "examination.db")
}
