package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the locations the application resolves relative to its executable
type Paths struct {
	ExecutableDir string
	LogsDir       string
	ConfigFile    string
}

// GetPaths returns the application paths relative to the executable location.
// Relative paths are never resolved against the current working directory.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	exeDir := filepath.Dir(exe)
	return &Paths{
		ExecutableDir: exeDir,
		LogsDir:       filepath.Join(exeDir, "logs"),
		ConfigFile:    filepath.Join(exeDir, "config.yaml"),
	}, nil
}

// Resolve joins a relative path onto the executable directory
func (p *Paths) Resolve(subpath string) string {
	if filepath.IsAbs(subpath) {
		return subpath
	}
	return filepath.Join(p.ExecutableDir, subpath)
}

// EnsureDirectories creates the directories the application writes to
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.String("executable", p.ExecutableDir),
		slog.String("logs", p.LogsDir),
		slog.String("config_file", p.ConfigFile),
	)
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
