package config

import "github.com/spf13/viper"

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token        string
		DeveloperIDs []int64 `mapstructure:"developer_ids"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Cleanup struct {
		Schedule string // cron spec, ночная чистка личек
	} `mapstructure:"cleanup"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	// Переопределение через ENV (APP_*), если надо
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "Europe/Kyiv"
	}
	if c.Cleanup.Schedule == "" {
		c.Cleanup.Schedule = "0 3 * * *"
	}
	return c, nil
}
