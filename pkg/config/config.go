// Package config loads the bot settings from a YAML file and the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"f1consistencybot/pkg/provider"
	"f1consistencybot/pkg/storage"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "./config.yaml"

type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
		Debug bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Webserver struct {
		Address string `yaml:"address"`
	} `yaml:"webserver"`

	Provider struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		PageSize int           `yaml:"page_size"`
	} `yaml:"provider"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Seasons []int `yaml:"seasons"`

	Cache struct {
		ScheduleTTL time.Duration `yaml:"schedule_ttl"`
	} `yaml:"cache"`

	Watch struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"watch"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() *Config {
	c := &Config{}
	c.Webserver.Address = ":8080"
	c.Provider.BaseURL = provider.DefaultBaseURL
	c.Provider.Timeout = provider.DefaultTimeout
	c.Provider.PageSize = provider.DefaultPageSize
	c.Storage.Path = storage.DefaultPath
	c.Seasons = []int{2023, 2024, 2025}
	c.Cache.ScheduleTTL = 60 * time.Minute
	c.Log.Level = "info"
	return c
}

// Load reads path over the defaults, then applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logrus.WithField("path", path).Info("no config file, using defaults")
	case err != nil:
		return nil, errors.Wrapf(err, "reading config %s", path)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", path)
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("TELEGRAM_TOKEN"); ok && v != "" {
		c.Telegram.Token = v
	}
	if v, ok := lookup("WEBSERVER_ADDRESS"); ok && v != "" {
		c.Webserver.Address = v
	}
	if v, ok := lookup("PROVIDER_BASE_URL"); ok && v != "" {
		c.Provider.BaseURL = v
	}
	if v, ok := lookup("DB_PATH"); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("TELEGRAM_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "TELEGRAM_DEBUG=%q", v)
		}
		c.Telegram.Debug = debug
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Seasons) == 0 {
		return errors.New("config: at least one season is required")
	}
	for _, s := range c.Seasons {
		if s < 1950 {
			return errors.Errorf("config: season %d is before the first championship", s)
		}
	}
	if c.Provider.PageSize <= 0 {
		return errors.Errorf("config: provider.page_size must be positive, got %d", c.Provider.PageSize)
	}
	if c.Provider.Timeout <= 0 {
		return errors.Errorf("config: provider.timeout must be positive, got %s", c.Provider.Timeout)
	}
	if c.Cache.ScheduleTTL <= 0 {
		return errors.Errorf("config: cache.schedule_ttl must be positive, got %s", c.Cache.ScheduleTTL)
	}
	if c.Watch.Interval < 0 {
		return errors.Errorf("config: watch.interval cannot be negative, got %s", c.Watch.Interval)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config: log.level")
	}
	return nil
}

// BotEnabled reports whether a Telegram token is configured.
func (c *Config) BotEnabled() bool {
	return c.Telegram.Token != ""
}

// WatchEnabled reports whether new races are polled for alerts.
func (c *Config) WatchEnabled() bool {
	return c.Watch.Interval > 0
}

// LogLevel returns the validated logrus level.
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
