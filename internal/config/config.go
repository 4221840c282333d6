package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"checkind/internal/domain"
)

// ErrMissingKey marks a fatal configuration error: a secret or setting the
// run cannot proceed without. Wrap with the key name, test with errors.Is.
var ErrMissingKey = errors.New("required configuration missing")

const (
	// One fixed daily firing, 22:30 UTC.
	DefaultCronExpr = "30 22 * * *"

	DefaultRunTimeout      = 5 * time.Minute
	DefaultDispatchTimeout = 15 * time.Second
)

type Config struct {
	Addr     string `yaml:"addr"`
	CronExpr string `yaml:"cron"`
	LogLevel string `yaml:"log_level"`

	// Routine selects the check-in implementation: "script" runs an external
	// command, "kurobbs" uses the built-in client.
	Routine string       `yaml:"routine"`
	Script  ScriptConfig `yaml:"script"`

	// Durations are Go duration strings ("5m", "15s"). Empty means default.
	RunTimeout      string `yaml:"run_timeout"`
	DispatchTimeout string `yaml:"dispatch_timeout"`
}

type ScriptConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

func Default() Config {
	return Config{
		Addr:     ":8080",
		CronExpr: DefaultCronExpr,
		LogLevel: "info",
		Routine:  "kurobbs",
	}
}

// Load reads a YAML config file, applying defaults for anything omitted.
// An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := cron.ParseStandard(c.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.CronExpr, err)
	}
	switch c.Routine {
	case "script":
		if strings.TrimSpace(c.Script.Command) == "" {
			return fmt.Errorf("%w: script.command", ErrMissingKey)
		}
	case "kurobbs":
	default:
		return fmt.Errorf("unknown routine %q", c.Routine)
	}
	if _, err := c.ParsedRunTimeout(); err != nil {
		return err
	}
	if _, err := c.ParsedDispatchTimeout(); err != nil {
		return err
	}
	return nil
}

func (c Config) ParsedRunTimeout() (time.Duration, error) {
	return parseDuration("run_timeout", c.RunTimeout, DefaultRunTimeout)
}

func (c Config) ParsedDispatchTimeout() (time.Duration, error) {
	return parseDuration("dispatch_timeout", c.DispatchTimeout, DefaultDispatchTimeout)
}

func parseDuration(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be > 0", path)
	}
	return d, nil
}

// ResolveCredentials builds the credential set from a key lookup (usually
// os.LookupEnv). TOKEN is required; all notification keys are optional and
// an absent key simply leaves that channel unconfigured.
func ResolveCredentials(lookup func(string) (string, bool)) (domain.Credentials, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	creds := domain.Credentials{
		Token:             get("TOKEN"),
		BarkDeviceKey:     get("BARK_DEVICE_KEY"),
		BarkServerURL:     get("BARK_SERVER_URL"),
		WechatWorkCorpID:  get("WECHAT_WORK_CORPID"),
		WechatWorkAgentID: get("WECHAT_WORK_AGENTID"),
		WechatWorkSecret:  get("WECHAT_WORK_SECRET"),
		WechatWorkUserID:  get("WECHAT_WORK_USERID"),
	}
	if creds.Token == "" {
		return domain.Credentials{}, fmt.Errorf("%w: TOKEN", ErrMissingKey)
	}
	return creds, nil
}
