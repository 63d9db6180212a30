package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"aism/internal/constants"
	"aism/internal/models"
	"aism/internal/utils"
)

// Environment variable overrides, applied on top of the config file. The
// desktop shell sets these when it spawns aism so the two agree on ports and
// install location without a shared file.
const (
	envPort = "AISM_PORT"
	envRoot = "AISM_ROOT"
)

// Config is the orchestrator's persisted configuration. It is consumed, not
// owned, by the core: endpoint overrides, the root-directory hint for bundled
// launch scripts, and feature flags for auxiliary bridges.
type Config struct {
	// Port the local API listens on.
	Port int `json:"port"`
	// RootPath is the application install directory; bundled services are
	// discovered beneath it.
	RootPath string `json:"root_path"`

	// WatchService names the single service whose Status() call may trigger
	// a rate-limited live re-check when the cached record is stale.
	WatchService   string `json:"watch_service"`
	RecheckSeconds int    `json:"recheck_seconds"`

	// RefreshSeconds drives the background probe sweep; 0 disables it.
	RefreshSeconds      int `json:"refresh_seconds"`
	RestartDelaySeconds int `json:"restart_delay_seconds"`
	ProbeTimeoutSeconds int `json:"probe_timeout_seconds"`

	// AutoStartBridge controls whether the virtual-environment bridge is
	// auto-provisioned at startup.
	AutoStartBridge bool `json:"auto_start_bridge"`

	// Endpoints holds per-service endpoint overrides keyed by service name.
	Endpoints map[string]string `json:"endpoints,omitempty"`
	// Executables holds explicit per-service launch paths, searched before
	// the bundled candidates.
	Executables map[string]string `json:"executables,omitempty"`

	configFile string
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	root := ""
	if exe, err := os.Executable(); err == nil {
		root = filepath.Dir(exe)
	}
	return &Config{
		Port:                8321,
		RootPath:            root,
		WatchService:        constants.ServiceMCP,
		RecheckSeconds:      10,
		RefreshSeconds:      15,
		RestartDelaySeconds: 2,
		ProbeTimeoutSeconds: 3,
		Endpoints:           map[string]string{},
		Executables:         map[string]string{},
	}
}

// DefaultConfigFile returns where the configuration file is expected: the
// root directory from the environment when set, otherwise next to the binary.
func DefaultConfigFile() string {
	root := strings.TrimSpace(os.Getenv(envRoot))
	if root == "" {
		if exe, err := os.Executable(); err == nil {
			root = filepath.Dir(exe)
		}
	}
	return utils.NewPaths(root).ConfigFile()
}

// LoadConfig reads the configuration file, falling back to defaults when the
// file does not exist. Environment overrides are applied last. The file path
// is remembered for Save.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.configFile = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	temp := &Config{}
	if err := json.Unmarshal(data, temp); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Copy fields with trimming and range validation; a bad value in the
	// file falls back to the default rather than failing startup.
	if temp.Port >= 1 && temp.Port <= 65535 {
		cfg.Port = temp.Port
	}
	if trimmed := strings.TrimSpace(temp.RootPath); trimmed != "" {
		cfg.RootPath = filepath.Clean(trimmed)
	}
	if trimmed := strings.TrimSpace(temp.WatchService); trimmed != "" {
		cfg.WatchService = trimmed
	}
	if temp.RecheckSeconds > 0 {
		cfg.RecheckSeconds = temp.RecheckSeconds
	}
	if temp.RefreshSeconds >= 0 {
		cfg.RefreshSeconds = temp.RefreshSeconds
	}
	if temp.RestartDelaySeconds >= 0 {
		cfg.RestartDelaySeconds = temp.RestartDelaySeconds
	}
	if temp.ProbeTimeoutSeconds > 0 {
		cfg.ProbeTimeoutSeconds = temp.ProbeTimeoutSeconds
	}
	cfg.AutoStartBridge = temp.AutoStartBridge
	for name, endpoint := range temp.Endpoints {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			cfg.Endpoints[strings.TrimSpace(name)] = trimmed
		}
	}
	for name, path := range temp.Executables {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			cfg.Executables[strings.TrimSpace(name)] = filepath.Clean(trimmed)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if val := os.Getenv(envPort); val != "" {
		if port, err := strconv.Atoi(val); err == nil && port >= 1 && port <= 65535 {
			c.Port = port
		}
	}
	if val := strings.TrimSpace(os.Getenv(envRoot)); val != "" {
		c.RootPath = filepath.Clean(val)
	}
}

// Save writes the configuration back to the file it was loaded from, so
// endpoint overrides made through the API survive restarts.
func (c *Config) Save() error {
	if c.configFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.configFile), 0o755); err != nil {
		return fmt.Errorf("creating configuration directory: %w", err)
	}
	if err := os.WriteFile(c.configFile, data, 0o644); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	return nil
}

// ProbeTimeout returns the probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	if c.ProbeTimeoutSeconds <= 0 {
		return DefaultProbeTimeout
	}
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// RestartDelay returns the stop-to-start delay used by restarts.
func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelaySeconds) * time.Second
}

// Definitions builds the tracked-service catalog: defaults, overlaid with the
// config's endpoint overrides and explicit executables. Candidate order per
// service: explicit configured path, bundled start script, bundled virtualenv
// interpreter, then well-known vendor install locations.
func (c *Config) Definitions(paths *utils.Paths) []models.ServiceDefinition {
	defs := []models.ServiceDefinition{
		{
			Name:        constants.ServiceLLM,
			DisplayName: "Inference Server",
			Type:        models.ServiceTypeLLM,
			Endpoint:    constants.DefaultLLMEndpoint,
			ProbePaths:  []string{"/api/version", "/"},
			AutoStart:   true,
			Critical:    true,
			SettleDelay: 3 * time.Second,
			Candidates:  append(c.bundledCandidates(paths, constants.ServiceLLM), vendorLLMCandidates()...),
		},
		{
			Name:        constants.ServiceMCP,
			DisplayName: "Tool Server",
			Type:        models.ServiceTypeMCP,
			Endpoint:    constants.DefaultMCPEndpoint,
			ProbePaths:  []string{"/health"},
			AutoStart:   true,
			Critical:    true,
			SettleDelay: 2 * time.Second,
			Candidates:  c.bundledCandidates(paths, constants.ServiceMCP),
		},
		{
			Name:        constants.ServiceTTS,
			DisplayName: "Speech Server",
			Type:        models.ServiceTypeTTS,
			Endpoint:    constants.DefaultTTSEndpoint,
			ProbePaths:  []string{"/health", "/api/ready"},
			AutoStart:   true,
			SettleDelay: 3 * time.Second,
			Candidates:  c.bundledCandidates(paths, constants.ServiceTTS),
		},
		{
			Name:        constants.ServiceImageGen,
			DisplayName: "Image Server",
			Type:        models.ServiceTypeImageGen,
			Endpoint:    constants.DefaultImageGenEndpoint,
			ProbePaths:  []string{"/internal/ping", "/sdapi/v1/progress"},
			SettleDelay: 3 * time.Second,
			Candidates:  c.bundledCandidates(paths, constants.ServiceImageGen),
		},
		{
			Name:        constants.ServiceVEBridge,
			DisplayName: "Environment Bridge",
			Type:        models.ServiceTypeVirtualEnvironment,
			Endpoint:    constants.DefaultVEBridgeEndpoint,
			ProbePaths:  []string{"/status"},
			AutoStart:   c.AutoStartBridge,
			SettleDelay: 2 * time.Second,
			Candidates:  c.bundledCandidates(paths, constants.ServiceVEBridge),
		},
	}
	for i := range defs {
		if endpoint, ok := c.Endpoints[defs[i].Name]; ok {
			defs[i].Endpoint = endpoint
		}
	}
	return defs
}

// bundledCandidates returns the launch candidates rooted in the application
// install directory for one service.
func (c *Config) bundledCandidates(paths *utils.Paths, name string) []models.LaunchCandidate {
	var candidates []models.LaunchCandidate
	if explicit, ok := c.Executables[name]; ok {
		candidates = append(candidates, models.LaunchCandidate{Path: explicit})
	}
	if paths == nil {
		return candidates
	}
	dir := paths.ServiceDir(name)
	candidates = append(candidates,
		models.LaunchCandidate{Path: paths.LaunchScript(name), Dir: dir},
		models.LaunchCandidate{
			Path: paths.VenvPython(name),
			Args: []string{filepath.Join(dir, "server.py")},
			Dir:  dir,
		},
	)
	return candidates
}

// vendorLLMCandidates lists well-known install locations for a system-wide
// inference server, used when no bundled copy exists.
func vendorLLMCandidates() []models.LaunchCandidate {
	if runtime.GOOS == "windows" {
		return []models.LaunchCandidate{
			{Path: filepath.Join(os.Getenv("ProgramFiles"), "Ollama", "ollama.exe"), Args: []string{"serve"}},
		}
	}
	return []models.LaunchCandidate{
		{Path: "/usr/local/bin/ollama", Args: []string{"serve"}},
		{Path: "/usr/bin/ollama", Args: []string{"serve"}},
	}
}
