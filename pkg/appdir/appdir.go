package appdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "lima"

// Dirs holds the local paths lima reads and writes
type Dirs struct {
	ConfigPath  string
	StatePath   string
	LogPath     string
	ExportsPath string
}

// New creates a Dirs instance with XDG-compliant paths
func New() (*Dirs, error) {
	configPath, configErr := getConfigPath()
	statePath, stateErr := getStateRoot()
	if configErr != nil {
		return nil, fmt.Errorf("failed to determine config path: %w", configErr)
	}
	if stateErr != nil {
		return nil, fmt.Errorf("failed to determine state directory: %w", stateErr)
	}

	return &Dirs{
		ConfigPath:  configPath,
		StatePath:   statePath,
		LogPath:     filepath.Join(statePath, "logs"),
		ExportsPath: filepath.Join(statePath, "exports"),
	}, nil
}

// getStateRoot returns the directory for the journal, logs and exports.
// Follows the XDG Base Directory specification on Unix and uses AppData on Windows.
func getStateRoot() (string, error) {
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return filepath.Join(xdgStateHome, appName), nil
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// Fall back to ~/.local/state/lima
	return filepath.Join(homeDir, ".local", "state", appName), nil
}

func getConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.yaml"), nil
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appName+"-config", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", appName, "config.yaml"), nil
}

// Initialize creates the state directories if they don't exist
func (d *Dirs) Initialize() error {
	directories := []string{
		d.StatePath,
		d.LogPath,
		d.ExportsPath,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Exists checks if the state directory has been created
func (d *Dirs) Exists() bool {
	info, err := os.Stat(d.StatePath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// JournalPath returns the path to the bundle journal database
func (d *Dirs) JournalPath() string {
	return filepath.Join(d.StatePath, "bundles.db")
}

// LogFile returns the path to the rotating log file
func (d *Dirs) LogFile() string {
	return filepath.Join(d.LogPath, "lima.log")
}

// GetExportPath returns the full path for an export file
func (d *Dirs) GetExportPath(filename string) string {
	return filepath.Join(d.ExportsPath, filename)
}

// CleanExports removes all files in the exports directory
func (d *Dirs) CleanExports() error {
	entries, err := os.ReadDir(d.ExportsPath)
	if err != nil {
		return fmt.Errorf("failed to read exports directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(d.ExportsPath, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	return nil
}
