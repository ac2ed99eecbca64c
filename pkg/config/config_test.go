package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Seasons) != 3 || c.Seasons[0] != 2023 {
		t.Errorf("unexpected default seasons %v", c.Seasons)
	}
	if c.BotEnabled() {
		t.Errorf("bot must be disabled without a token")
	}
	if c.WatchEnabled() {
		t.Errorf("watcher must be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
  debug: true
webserver:
  address: ":9090"
provider:
  base_url: http://localhost:8000/ergast/f1
  timeout: 5s
  page_size: 50
storage:
  path: /tmp/laps.db
seasons: [2024]
cache:
  schedule_ttl: 2h
watch:
  interval: 30m
log:
  level: debug
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Telegram.Token != "abc" || !c.Telegram.Debug {
		t.Errorf("unexpected telegram section %+v", c.Telegram)
	}
	if c.Provider.Timeout != 5*time.Second || c.Provider.PageSize != 50 {
		t.Errorf("unexpected provider section %+v", c.Provider)
	}
	if c.Cache.ScheduleTTL != 2*time.Hour || c.Watch.Interval != 30*time.Minute {
		t.Errorf("unexpected durations %s %s", c.Cache.ScheduleTTL, c.Watch.Interval)
	}
	if len(c.Seasons) != 1 || c.Seasons[0] != 2024 {
		t.Errorf("unexpected seasons %v", c.Seasons)
	}
	if c.LogLevel() != logrus.DebugLevel {
		t.Errorf("unexpected level %s", c.LogLevel())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "webserver:\n  address: \":9090\"\n")
	t.Setenv("WEBSERVER_ADDRESS", ":7070")
	t.Setenv("DB_PATH", "/data/bot.db")
	t.Setenv("TELEGRAM_TOKEN", "from-env")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Webserver.Address != ":7070" || c.Storage.Path != "/data/bot.db" || c.Telegram.Token != "from-env" {
		t.Errorf("environment not applied: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no seasons", mutate: func(c *Config) { c.Seasons = nil }},
		{name: "ancient season", mutate: func(c *Config) { c.Seasons = []int{1900} }},
		{name: "zero page size", mutate: func(c *Config) { c.Provider.PageSize = 0 }},
		{name: "zero timeout", mutate: func(c *Config) { c.Provider.Timeout = 0 }},
		{name: "zero ttl", mutate: func(c *Config) { c.Cache.ScheduleTTL = 0 }},
		{name: "negative watch", mutate: func(c *Config) { c.Watch.Interval = -time.Second }},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := Default()
			test.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults must be valid: %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "seasons: [2024\n")
	if _, err := Load(path); err == nil {
		t.Errorf("expected parse error")
	}
}
