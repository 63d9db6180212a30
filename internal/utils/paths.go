// Package utils contains utility types for logging and filesystem path
// management used throughout aism.
package utils

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths resolves filesystem locations under the aism root directory. The root
// is a hint pointing at the directory the desktop application is installed
// into; bundled services live in per-service subdirectories beneath it.
type Paths struct {
	RootPath string `json:"root_path"`
}

// NewPaths constructs Paths rooted at the specified directory.
func NewPaths(rootPath string) *Paths {
	return &Paths{RootPath: rootPath}
}

// LogsDir returns the directory log files are written to.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.RootPath, "logs")
}

// LogFile returns the path of the main aism log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "aism.log")
}

// ConfigFile returns the path of the aism configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.RootPath, "aism.json")
}

// ServiceDir returns the directory a bundled service is installed into.
func (p *Paths) ServiceDir(name string) string {
	return filepath.Join(p.RootPath, "services", name)
}

// VenvPython returns the path of a bundled service's virtualenv interpreter.
// Services shipped with the application carry their own .venv so they do not
// depend on a system Python installation.
func (p *Paths) VenvPython(name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(p.ServiceDir(name), ".venv", "Scripts", "python.exe")
	}
	return filepath.Join(p.ServiceDir(name), ".venv", "bin", "python")
}

// LaunchScript returns the path of a bundled service's start script.
func (p *Paths) LaunchScript(name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(p.ServiceDir(name), "start.bat")
	}
	return filepath.Join(p.ServiceDir(name), "start.sh")
}

// CheckRoot reports whether the root directory exists and is a directory.
func (p *Paths) CheckRoot() bool {
	if p == nil || p.RootPath == "" {
		return false
	}
	info, err := os.Stat(p.RootPath)
	return err == nil && info.IsDir()
}

// EnsureLogsDir creates the logs directory when missing. Best effort.
func (p *Paths) EnsureLogsDir() {
	_ = os.MkdirAll(p.LogsDir(), 0o755)
}
