// Package config loads application settings from an optional YAML file and
// MOODIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MOODIFY"

// Config holds all application settings.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Transition TransitionConfig `mapstructure:"transition"`
	Mood       MoodConfig       `mapstructure:"mood"`
	Features   FeaturesConfig   `mapstructure:"features"`
	Models     ModelsConfig     `mapstructure:"models"`
	ONNX       ONNXConfig       `mapstructure:"onnx"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Media      MediaConfig      `mapstructure:"media"`
	Text       TextConfig       `mapstructure:"text"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type TransitionConfig struct {
	// Delay is how long an image or audio decision is shown before
	// navigating to its experience.
	Delay time.Duration `mapstructure:"delay"`
}

type MoodConfig struct {
	// Default is used when a prediction cannot be mapped to a mood.
	Default string `mapstructure:"default"`
}

type FeaturesConfig struct {
	// DCT is "unnormalized" or "orthonormal".
	DCT string `mapstructure:"dct"`
}

type ModelsConfig struct {
	Image ModelConfig `mapstructure:"image"`
	Audio ModelConfig `mapstructure:"audio"`
}

// ModelConfig points at a model manifest. Non-empty fields override the
// manifest's values.
type ModelConfig struct {
	Manifest   string        `mapstructure:"manifest"`
	Backend    string        `mapstructure:"backend"`
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	References string        `mapstructure:"references"`
}

// Enabled reports whether a manifest is configured.
func (m ModelConfig) Enabled() bool {
	return m.Manifest != ""
}

type ONNXConfig struct {
	// Library is the path to the onnxruntime shared library.
	Library string `mapstructure:"library"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type MediaConfig struct {
	YouTubeKey    string `mapstructure:"youtube_key"`
	SpotifyID     string `mapstructure:"spotify_id"`
	SpotifySecret string `mapstructure:"spotify_secret"`
	Concurrency   int    `mapstructure:"concurrency"`
}

type TextConfig struct {
	GeminiKey string `mapstructure:"gemini_key"`
	Model     string `mapstructure:"model"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Log:        LogConfig{Level: "info"},
		Server:     ServerConfig{Addr: "127.0.0.1:8080"},
		Transition: TransitionConfig{Delay: 5 * time.Second},
		Mood:       MoodConfig{Default: "happy"},
		Features:   FeaturesConfig{DCT: "unnormalized"},
		Models: ModelsConfig{
			Image: ModelConfig{Timeout: 10 * time.Second},
			Audio: ModelConfig{Timeout: 10 * time.Second},
		},
		Redis: RedisConfig{},
		Media: MediaConfig{Concurrency: 5},
		Text:  TextConfig{Model: "gemini-2.0-flash"},
	}
}

// Load reads configuration. When path is empty, moodify.yaml is searched
// for in the working directory and ./config; a missing file is not an
// error. Environment variables override file values, e.g.
// MOODIFY_SERVER_ADDR or MOODIFY_MODELS_IMAGE_MANIFEST.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("moodify")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can see it during
// Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("transition.delay", d.Transition.Delay)
	v.SetDefault("mood.default", d.Mood.Default)
	v.SetDefault("features.dct", d.Features.DCT)
	for name, m := range map[string]ModelConfig{"image": d.Models.Image, "audio": d.Models.Audio} {
		v.SetDefault("models."+name+".manifest", m.Manifest)
		v.SetDefault("models."+name+".backend", m.Backend)
		v.SetDefault("models."+name+".url", m.URL)
		v.SetDefault("models."+name+".timeout", m.Timeout)
		v.SetDefault("models."+name+".references", m.References)
	}
	v.SetDefault("onnx.library", d.ONNX.Library)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("media.youtube_key", d.Media.YouTubeKey)
	v.SetDefault("media.spotify_id", d.Media.SpotifyID)
	v.SetDefault("media.spotify_secret", d.Media.SpotifySecret)
	v.SetDefault("media.concurrency", d.Media.Concurrency)
	v.SetDefault("text.gemini_key", d.Text.GeminiKey)
	v.SetDefault("text.model", d.Text.Model)
}
