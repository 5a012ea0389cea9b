package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"weekhours/internal/model"
)

const (
	defaultListen          = "127.0.0.1:8080"
	defaultLogLevel        = "info"
	defaultCalendarURL     = "https://calendar.google.com/calendar/u/0/r/week"
	defaultCaptureTimeout  = 60
	defaultRefreshCron     = "*/30 * * * *"
	defaultEverhourBaseURL = "https://api.everhour.com"
	defaultStateDB         = "weekhours.db"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CalendarURL is the week view scraped for event chips.
	CalendarURL string `yaml:"calendar_url" json:"calendar_url"`

	// ChromeProfileDir is a Chromium user data dir holding a signed-in
	// session. Empty means a throwaway profile.
	ChromeProfileDir string `yaml:"chrome_profile_dir" json:"chrome_profile_dir"`

	// CaptureTimeoutSec bounds a single scrape.
	CaptureTimeoutSec int `yaml:"capture_timeout_sec" json:"capture_timeout_sec"`

	// RefreshCron is a cron-style schedule (e.g. "*/30 * * * *") for
	// periodic scrapes in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	EverhourToken   string `yaml:"everhour_token" json:"-"`
	EverhourBaseURL string `yaml:"everhour_base_url" json:"everhour_base_url"`

	Projects []model.Project `yaml:"projects" json:"projects"`

	// StateDB is the SQLite file recording sent Everhour entries. Relative
	// paths are resolved against the config file's directory.
	StateDB string `yaml:"state_db" json:"state_db"`

	// MeetingProjects maps exact meeting titles to project names.
	MeetingProjects map[string]string `yaml:"meeting_projects" json:"meeting_projects"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"-"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            defaultListen,
		LogLevel:          defaultLogLevel,
		CalendarURL:       defaultCalendarURL,
		CaptureTimeoutSec: defaultCaptureTimeout,
		RefreshCron:       defaultRefreshCron,
		EverhourBaseURL:   defaultEverhourBaseURL,
		StateDB:           defaultStateDB,
		Projects:          []model.Project{},
		MeetingProjects:   map[string]string{},
	}
}

// Normalize fills in missing values so partially-filled configs behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.CalendarURL == "" {
		c.CalendarURL = defaultCalendarURL
	}
	if c.CaptureTimeoutSec <= 0 {
		c.CaptureTimeoutSec = defaultCaptureTimeout
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.EverhourBaseURL == "" {
		c.EverhourBaseURL = defaultEverhourBaseURL
	}
	c.EverhourBaseURL = strings.TrimRight(c.EverhourBaseURL, "/")
	if c.StateDB == "" {
		c.StateDB = defaultStateDB
	}
	if c.Projects == nil {
		c.Projects = []model.Project{}
	}
	for i := range c.Projects {
		c.Projects[i].Name = strings.TrimSpace(c.Projects[i].Name)
		c.Projects[i].TaskID = strings.TrimSpace(c.Projects[i].TaskID)
	}
	if c.MeetingProjects == nil {
		c.MeetingProjects = map[string]string{}
	}
}

// Validate reports configuration problems Normalize cannot fix.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: invalid refresh schedule %q: %w", c.RefreshCron, err)
	}
	seen := make(map[string]bool, len(c.Projects))
	for _, p := range c.Projects {
		if p.Name == "" {
			return errors.New("config: project name cannot be empty")
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return errors.New("config: duplicate project name " + p.Name)
		}
		seen[key] = true
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekhours-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// StatePath resolves StateDB relative to the config file at configPath.
func (c *Config) StatePath(configPath string) string {
	if c.StateDB == ":memory:" || filepath.IsAbs(c.StateDB) {
		return c.StateDB
	}
	return filepath.Join(filepath.Dir(configPath), c.StateDB)
}

// Project returns the project with the given name.
func (c *Config) Project(name string) (model.Project, bool) {
	for _, p := range c.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return model.Project{}, false
}
