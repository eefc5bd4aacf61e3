//go:build !windows

package config

// Platform-specific path defaults for Linux and other unix systems

// GetDefaultConfigLocation returns the default configuration file path.
func GetDefaultConfigLocation() string {
	return "/etc/examination/config.yml"
}

// GetDefaultRootDirectory returns the default root directory.
func GetDefaultRootDirectory() string {
	return "/var/lib/examination"
}

// GetDefaultLogDirectory returns the default log directory.
func GetDefaultLogDirectory() string {
	return "/var/log/examination"
}

// GetDefaultDataDirectory returns the default directory for uploaded module files.
func GetDefaultDataDirectory() string {
	return "/var/lib/examination/uploads"
}

// GetDefaultDatabasePath returns the default location of the document database.
func GetDefaultDatabasePath() string {
	return "/var/lib/examination/examination.db"
}
