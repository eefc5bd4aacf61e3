//go:build !windows

package config

// applyPlatformDefaults fills in any path left empty. On unix systems the
// struct tag defaults are already correct.
func applyPlatformDefaults(c *Configuration) {
	if c.System.RootDirectory == "" {
		c.System.RootDirectory = GetDefaultRootDirectory()
	}
	if c.System.LogDirectory == "" {
		c.System.LogDirectory = GetDefaultLogDirectory()
	}
	if c.System.Data == "" {
		c.System.Data = GetDefaultDataDirectory()
	}
	if c.Database.Path == "" {
		c.Database.Path = GetDefaultDatabasePath()
	}
}
