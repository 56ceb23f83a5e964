package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 PDFTRANS_MODEL_NAME
const EnvPrefix = "PDFTRANS"

// Config 服务与命令行共用的配置
type Config struct {
	Model  ModelConfig  `mapstructure:"model"`
	Server ServerConfig `mapstructure:"server"`
	Fonts  FontConfig   `mapstructure:"fonts"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Log    LogConfig    `mapstructure:"log"`
}

type ModelConfig struct {
	Name             string        `mapstructure:"name"`
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RateLimitRetries int           `mapstructure:"rate_limit_retries"`
	RateLimitDelay   time.Duration `mapstructure:"rate_limit_delay"`
	Temperature      float64       `mapstructure:"temperature"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	UploadDir   string `mapstructure:"upload_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type FontConfig struct {
	FallbackName string `mapstructure:"fallback_name"`
	FallbackFile string `mapstructure:"fallback_file"`
	Default      string `mapstructure:"default"`
}

type CacheConfig struct {
	Dir     string `mapstructure:"dir"`
	Enabled bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name:             "gpt-4o-mini",
			Timeout:          120 * time.Second,
			RateLimitRetries: 3,
			RateLimitDelay:   2 * time.Second,
			Temperature:      0.3,
		},
		Server: ServerConfig{
			Host:        "",
			Port:        8080,
			UploadDir:   "uploads",
			OutputDir:   "outputs",
			MaxUploadMB: 100,
		},
		Fonts: FontConfig{
			FallbackName: "SimSun",
			FallbackFile: "fonts/simsun.ttc",
			Default:      "Helvetica",
		},
		Cache: CacheConfig{
			Dir:     "cache",
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 读取配置。path 为空时在当前目录和 $HOME/.pdf-translator 查找 config.yaml，
// 找不到文件不算错误。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pdf-translator")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.api_key", d.Model.APIKey)
	v.SetDefault("model.base_url", d.Model.BaseURL)
	v.SetDefault("model.timeout", d.Model.Timeout)
	v.SetDefault("model.rate_limit_retries", d.Model.RateLimitRetries)
	v.SetDefault("model.rate_limit_delay", d.Model.RateLimitDelay)
	v.SetDefault("model.temperature", d.Model.Temperature)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.upload_dir", d.Server.UploadDir)
	v.SetDefault("server.output_dir", d.Server.OutputDir)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)

	v.SetDefault("fonts.fallback_name", d.Fonts.FallbackName)
	v.SetDefault("fonts.fallback_file", d.Fonts.FallbackFile)
	v.SetDefault("fonts.default", d.Fonts.Default)

	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.enabled", d.Cache.Enabled)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}
