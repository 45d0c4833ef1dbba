package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoginURL is the entry point of the automated site.
const LoginURL = "https://rollercoin.com"

const (
	DefaultCycleInterval   = 300 * time.Second
	DefaultListenAddr      = "0.0.0.0:5000"
	DefaultDebugListenAddr = "127.0.0.1:5001"
	DefaultLogFile         = "bot.log"
	DefaultExecPath        = "/usr/bin/google-chrome"
	DefaultChromeGlob      = "/root/.cache/ms-playwright/chromium-*/chrome-linux/chrome"
	DefaultDebugPort       = 9222
	DefaultLaunchTimeout   = 30 * time.Second
	DefaultUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

const (
	envEmail         = "ROLLERCOIN_EMAIL"
	envPassword      = "ROLLERCOIN_PASSWORD"
	envCycleInterval = "CYCLE_INTERVAL"
	envDebug         = "DEBUG"
	envConfigFile    = "ROLLERBOT_CONFIG"
	envListen        = "ROLLERBOT_LISTEN"
	envDebugListen   = "ROLLERBOT_DEBUG_LISTEN"
	envLogFile       = "ROLLERBOT_LOG_FILE"
	envChromePath    = "ROLLERBOT_CHROME_PATH"
	envChromeGlob    = "ROLLERBOT_CHROME_GLOB"
	envDebugPort     = "ROLLERBOT_DEBUG_PORT"
	envLaunchTimeout = "ROLLERBOT_LAUNCH_TIMEOUT"
	envUserAgent     = "ROLLERBOT_USER_AGENT"
	envSimulation    = "SIMULATION_MODE"
	envAPIKey        = "ROLLERBOT_API_KEY"
)

// BrowserConfig controls how a browser binary is located and launched.
type BrowserConfig struct {
	ExecPath      string
	Globs         []string
	DebugPort     int
	UserAgent     string
	LaunchTimeout time.Duration
}

// Config captures the daemon configuration.
type Config struct {
	ListenAddr      string
	DebugListenAddr string
	LogFile         string
	Debug           bool
	Simulation      bool
	APIKey          string
	Browser         BrowserConfig

	// fileInterval is the cycle interval from the config file, consulted
	// when CYCLE_INTERVAL is unset.
	fileInterval time.Duration
}

// fileConfig mirrors the optional YAML file. Environment variables win.
type fileConfig struct {
	Listen        string `yaml:"listen"`
	DebugListen   string `yaml:"debug_listen"`
	LogFile       string `yaml:"log_file"`
	CycleInterval int    `yaml:"cycle_interval"`
	Debug         *bool  `yaml:"debug"`
	Simulation    *bool  `yaml:"simulation"`
	Browser       struct {
		ExecPath      string   `yaml:"exec_path"`
		Globs         []string `yaml:"globs"`
		DebugPort     int      `yaml:"debug_port"`
		UserAgent     string   `yaml:"user_agent"`
		LaunchTimeout string   `yaml:"launch_timeout"`
	} `yaml:"browser"`
}

// FromEnv loads configuration from the environment, layered over the YAML
// file named by ROLLERBOT_CONFIG when set.
func FromEnv() (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv(envConfigFile)); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	cfg := Config{
		ListenAddr:      getenv(envListen, orDefault(file.Listen, DefaultListenAddr)),
		DebugListenAddr: getenv(envDebugListen, orDefault(file.DebugListen, DefaultDebugListenAddr)),
		LogFile:         getenv(envLogFile, orDefault(file.LogFile, DefaultLogFile)),
		Debug:           boolSetting(envDebug, file.Debug, true),
		Simulation:      boolSetting(envSimulation, file.Simulation, false),
		APIKey:          strings.TrimSpace(os.Getenv(envAPIKey)),
		Browser: BrowserConfig{
			ExecPath:  getenv(envChromePath, orDefault(file.Browser.ExecPath, DefaultExecPath)),
			UserAgent: getenv(envUserAgent, orDefault(file.Browser.UserAgent, DefaultUserAgent)),
		},
	}
	if file.CycleInterval > 0 {
		cfg.fileInterval = time.Duration(file.CycleInterval) * time.Second
	}

	switch glob := strings.TrimSpace(os.Getenv(envChromeGlob)); {
	case glob != "":
		cfg.Browser.Globs = splitList(glob)
	case len(file.Browser.Globs) > 0:
		cfg.Browser.Globs = file.Browser.Globs
	default:
		cfg.Browser.Globs = []string{DefaultChromeGlob}
	}

	port := file.Browser.DebugPort
	if port == 0 {
		port = DefaultDebugPort
	}
	cfg.Browser.DebugPort = envIntOrDefault(envDebugPort, port)
	if cfg.Browser.DebugPort <= 0 || cfg.Browser.DebugPort > 65535 {
		return Config{}, fmt.Errorf("invalid remote debugging port %d", cfg.Browser.DebugPort)
	}

	launch := DefaultLaunchTimeout
	if raw := strings.TrimSpace(file.Browser.LaunchTimeout); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid browser.launch_timeout %q: %w", raw, err)
		}
		launch = parsed
	}
	cfg.Browser.LaunchTimeout = parseDurationEnv(envLaunchTimeout, launch)

	for _, addr := range []string{cfg.ListenAddr, cfg.DebugListenAddr} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return Config{}, fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
	}

	return cfg, nil
}

// CycleInterval re-reads CYCLE_INTERVAL so operators can retune a running
// bot. Unset falls back to the config file, then the default.
func (c Config) CycleInterval() time.Duration {
	raw, ok := os.LookupEnv(envCycleInterval)
	if !ok && c.fileInterval > 0 {
		return c.fileInterval
	}
	return ParseCycleInterval(raw)
}

// ParseCycleInterval converts a seconds value, falling back to
// DefaultCycleInterval on empty, non-numeric or non-positive input.
func ParseCycleInterval(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCycleInterval
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return DefaultCycleInterval
	}
	return time.Duration(seconds) * time.Second
}

// ParseDebug reports whether raw spells "true", ignoring case.
func ParseDebug(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

func loadFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, fmt.Errorf("config file %s not found", path)
		}
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

func boolSetting(key string, fromFile *bool, fallback bool) bool {
	if raw, ok := os.LookupEnv(key); ok {
		return ParseDebug(raw)
	}
	if fromFile != nil {
		return *fromFile
	}
	return fallback
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, string(os.PathListSeparator))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}
