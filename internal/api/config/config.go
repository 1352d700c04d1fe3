package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("insightful")
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Decode(v)
	if err != nil {
		return err
	}

	Cfg = cfg
	return nil
}

// SetDefaults 反应功能的默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.issuer", "insightful")
	v.SetDefault("auth.expiration_hours", 24)
	v.SetDefault("reaction.enabled", true)
	v.SetDefault("reaction.kind", "insightful")
	v.SetDefault("reaction.min_trust_level", 0)
	v.SetDefault("reaction.max_per_day", 50)
	v.SetDefault("reaction.show_who_actioned", true)
	v.SetDefault("reaction.who_list_limit", 50)
	v.SetDefault("reaction.daily_retention_days", 90)
	v.SetDefault("reaction.summary_locales", []string{"en"})
	v.SetDefault("reaction.default_locale", "en")
	v.SetDefault("reaction.summary_cache_ttl", 30)
	v.SetDefault("reaction.count_cache_ttl", 600)
	v.SetDefault("reaction.max_summary_results", 6)
	v.SetDefault("reaction.invalidation_retries", 3)
	v.SetDefault("kafka.producer.topic", "reaction-events")
	v.SetDefault("kafka.producer.retry_max", 3)
	v.SetDefault("kafka.producer.timeout", 5)
}

// Decode 反序列化并校验配置
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
