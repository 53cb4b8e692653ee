package backend

import (
	"fmt"

	"cashbook/internal/config"
)

// ConfigFrom converts the application config to backend config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		Type:         BackendType(c.DataBackend),
		SQLiteDBPath: c.SQLiteDBPath,
		DataDir:      c.DataDir,
	}
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case FileBackend:
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for file backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, FileBackend, MemoryBackend}
}
