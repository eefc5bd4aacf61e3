//go:build windows

package config

// applyPlatformDefaults replaces the unix struct tag defaults with Windows
// locations.
func applyPlatformDefaults(c *Configuration) {
	if c.System.RootDirectory == "/var/lib/examination" || c.System.RootDirectory == "" {
		c.System.RootDirectory = GetDefaultRootDirectory()
	}
	if c.System.LogDirectory == "/var/log/examination" || c.System.LogDirectory == "" {
		c.System.LogDirectory = GetDefaultLogDirectory()
	}
	if c.System.Data == "/var/lib/examination/uploads" || c.System.Data == "" {
		c.System.Data = GetDefaultDataDirectory()
	}
	if c.Database.Path == "/var/lib/examination/examination.db" || c.Database.Path == "" {
		c.Database.Path = GetDefaultDatabasePath()
	}
}
