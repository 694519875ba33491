package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FileProfile is a standalone profile file (yaml/json/toml), used where a
// shared ~/.rcmrc is not practical.
type FileProfile struct {
	Host    string `mapstructure:"host" validate:"required,url"`
	Token   string `mapstructure:"token"`
	Timeout int    `mapstructure:"timeout_seconds"`
}

func LoadFileProfile(path string) (*FileProfile, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileProfile
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &cfg, nil
}
