package config

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/batchssh/errors"
	"github.com/grovetools/batchssh/logging"
)

// ConfigFileName is the project-level configuration file searched for by
// walking up from the working directory.
const ConfigFileName = "batchssh.yml"

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config is the full batchssh configuration.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Logging   logging.Config  `yaml:"logging"`

	// Extensions holds tool-specific blocks that batchssh itself does not
	// interpret. Decode them with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:"extensions"`
}

// TransportConfig configures the emulated ssh surface.
type TransportConfig struct {
	// SSHBinary is the real ssh client delegated to for the version probe.
	SSHBinary string `yaml:"ssh_binary"`
}

// SchedulerConfig configures the batch scheduler collaborator binaries and
// the session-job poll bounds.
type SchedulerConfig struct {
	SubmitBinary string `yaml:"submit_binary"`
	QueryBinary  string `yaml:"query_binary"`
	AttachBinary string `yaml:"attach_binary"`

	// PollIntervalSeconds is the delay between job status polls.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	// MaxWaitSeconds bounds the wait for the session job to start running.
	MaxWaitSeconds int `yaml:"max_wait_seconds"`
}

// BootstrapConfig configures the shell readiness handshake.
type BootstrapConfig struct {
	// ProbeIntervalMillis is the delay between readiness probes.
	ProbeIntervalMillis int `yaml:"probe_interval_millis"`
	// ProbeRetries bounds the probes per handshake stage; exhausting it is
	// a fatal bootstrap failure.
	ProbeRetries int `yaml:"probe_retries"`
	// LivenessIntervalMillis is how often the relay pumps re-check that the
	// spawned process is still alive while waiting on a silent stream.
	LivenessIntervalMillis int `yaml:"liveness_interval_millis"`
}

// PollInterval returns the job status poll interval as a duration.
func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MaxWait returns the job start wait bound as a duration.
func (c SchedulerConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

// ProbeInterval returns the probe cadence as a duration.
func (c BootstrapConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalMillis) * time.Millisecond
}

// LivenessInterval returns the pump liveness check cadence as a duration.
func (c BootstrapConfig) LivenessInterval() time.Duration {
	return time.Duration(c.LivenessIntervalMillis) * time.Millisecond
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Transport.SSHBinary == "" {
		c.Transport.SSHBinary = "ssh"
	}
	if c.Scheduler.SubmitBinary == "" {
		c.Scheduler.SubmitBinary = "condor_submit"
	}
	if c.Scheduler.QueryBinary == "" {
		c.Scheduler.QueryBinary = "condor_q"
	}
	if c.Scheduler.AttachBinary == "" {
		c.Scheduler.AttachBinary = "condor_ssh_to_job"
	}
	if c.Scheduler.PollIntervalSeconds <= 0 {
		c.Scheduler.PollIntervalSeconds = 1
	}
	if c.Scheduler.MaxWaitSeconds <= 0 {
		c.Scheduler.MaxWaitSeconds = 60
	}
	if c.Bootstrap.ProbeIntervalMillis <= 0 {
		c.Bootstrap.ProbeIntervalMillis = 1000
	}
	if c.Bootstrap.ProbeRetries <= 0 {
		c.Bootstrap.ProbeRetries = 20
	}
	if c.Bootstrap.LivenessIntervalMillis <= 0 {
		c.Bootstrap.LivenessIntervalMillis = 200
	}
}

// Load reads and parses a batchssh configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigInvalid("configuration file not found: " + path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration data with env expansion and defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadDefault finds and loads the configuration with hierarchical merging:
// 1. Global config (~/.config/batchssh/batchssh.yml) - base layer
// 2. Project config (batchssh.yml, walking up from cwd) - overrides global
//
// A missing configuration is not an error: the defaults describe a standard
// HTCondor installation.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the
// given directory. Layers are merged raw; defaults fill the gaps once at
// the end so a project file cannot shadow an explicit global setting with
// a default value.
func LoadFrom(startDir string) (*Config, error) {
	final := &Config{}

	// 1. Load global config if it exists (optional)
	if globalPath := globalConfigPath(); globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			if cfg, err := loadRaw(globalPath); err == nil {
				final = cfg
			}
		}
	}

	// 2. Load project config if present, overriding global
	if projectPath, err := FindConfigFile(startDir); err == nil {
		cfg, err := loadRaw(projectPath)
		if err != nil {
			return nil, err
		}
		final.merge(cfg)
	}

	final.applyDefaults()
	return final, nil
}

func loadRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	expanded := expandEnvVars(string(data))
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").
			WithDetail("path", path)
	}
	return &cfg, nil
}

// FindConfigFile walks up from startDir looking for batchssh.yml.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.ConfigInvalid("no " + ConfigFileName + " found from " + startDir)
		}
		dir = parent
	}
}

// UnmarshalExtension decodes an extension block into out. It is not an
// error for the key to be absent.
func (c *Config) UnmarshalExtension(key string, out interface{}) error {
	raw, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "yaml",
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to build extension decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode extension '"+key+"'")
	}
	return nil
}

// merge overlays non-zero fields from other on top of c.
func (c *Config) merge(other *Config) {
	if other.Transport.SSHBinary != "" {
		c.Transport.SSHBinary = other.Transport.SSHBinary
	}
	if other.Scheduler.SubmitBinary != "" {
		c.Scheduler.SubmitBinary = other.Scheduler.SubmitBinary
	}
	if other.Scheduler.QueryBinary != "" {
		c.Scheduler.QueryBinary = other.Scheduler.QueryBinary
	}
	if other.Scheduler.AttachBinary != "" {
		c.Scheduler.AttachBinary = other.Scheduler.AttachBinary
	}
	if other.Scheduler.PollIntervalSeconds > 0 {
		c.Scheduler.PollIntervalSeconds = other.Scheduler.PollIntervalSeconds
	}
	if other.Scheduler.MaxWaitSeconds > 0 {
		c.Scheduler.MaxWaitSeconds = other.Scheduler.MaxWaitSeconds
	}
	if other.Bootstrap.ProbeIntervalMillis > 0 {
		c.Bootstrap.ProbeIntervalMillis = other.Bootstrap.ProbeIntervalMillis
	}
	if other.Bootstrap.ProbeRetries > 0 {
		c.Bootstrap.ProbeRetries = other.Bootstrap.ProbeRetries
	}
	if other.Bootstrap.LivenessIntervalMillis > 0 {
		c.Bootstrap.LivenessIntervalMillis = other.Bootstrap.LivenessIntervalMillis
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.ReportCaller {
		c.Logging.ReportCaller = true
	}
	if other.Logging.File.Enabled {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.Format.Preset != "" || other.Logging.Format.DisableTimestamp ||
		other.Logging.Format.DisableComponent {
		c.Logging.Format = other.Logging.Format
	}
	for k, v := range other.Extensions {
		if c.Extensions == nil {
			c.Extensions = make(map[string]interface{})
		}
		c.Extensions[k] = v
	}
}

func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarRegex.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

func globalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "batchssh", ConfigFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "batchssh", ConfigFileName)
}
