package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Gemini struct {
		APIKey   string        `mapstructure:"api_key"`
		BaseURL  string        `mapstructure:"base_url"`
		Model    string        `mapstructure:"model"`
		TTSModel string        `mapstructure:"tts_model"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"gemini"`
	Game struct {
		CooldownSeconds  int           `mapstructure:"cooldown_seconds"`
		CountdownSeconds int           `mapstructure:"countdown_seconds"`
		DeckPath         string        `mapstructure:"deck_path"`
		SessionTTL       time.Duration `mapstructure:"session_ttl"`
	} `mapstructure:"game"`
	Redis struct {
		Addr       string        `mapstructure:"addr"`
		Password   string        `mapstructure:"password"`
		DB         int           `mapstructure:"db"`
		TTL        time.Duration `mapstructure:"ttl"`
		RecentSize int           `mapstructure:"recent_size"`
	} `mapstructure:"redis"`
	Postgres struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"postgres"`
	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`
	Speech struct {
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"speech"`
}

// Default returns the configuration used when neither the file nor the
// environment set a value.
func Default() Config {
	var c Config
	c.Server.Port = "8080"
	c.Log.Level = "info"
	c.Gemini.Model = "gemini-2.5-flash"
	c.Gemini.TTSModel = "gemini-2.5-flash-preview-tts"
	c.Gemini.Timeout = 120 * time.Second
	c.Game.CooldownSeconds = 60
	c.Game.CountdownSeconds = 3
	c.Game.SessionTTL = 30 * time.Minute
	c.Redis.TTL = 30 * time.Minute
	c.Redis.RecentSize = 30
	c.Speech.CacheTTL = 24 * time.Hour
	return c
}

// Load reads file on top of Default and applies environment overrides such
// as GEMINI_API_KEY or REDIS_ADDR. An empty file name skips the file.
func Load(file string) (Config, error) {
	config := Default()
	v := viper.New()
	m := make(map[string]any)

	if err := mapstructure.Decode(config, &m); err != nil {
		return config, fmt.Errorf("mapstructure: %v", err)
	}

	if err := v.MergeConfigMap(m); err != nil {
		return config, fmt.Errorf("merge config map: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config, fmt.Errorf("read config from file %s: %v", file, err)
		}
	}
	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %v", err)
	}

	return config, nil
}
