package main

import (
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-insecure-secret-change"

type smtpConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type appConfig struct {
	Addr         string
	DBDSN        string
	AutoMigrate  bool
	Store        string
	JWTSecret    string
	LogLevel     string
	LogFormat    string
	Debug        bool
	CORSOrigins  []string
	AuthCodeRate string
	RootEmail    string
	SMTP         smtpConfig
}

var cfgFile string

func init() { setDefaults() }

func setDefaults() {
	viper.SetDefault("addr", ":8081")
	viper.SetDefault("db_auto_migrate", true)
	viper.SetDefault("store", "postgres")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("auth_code_rate", "5-M")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from", "noreply@inventory.local")
}

// initConfig loads ./.env without overriding the environment, then the
// optional config file. Environment variables use the bare key names
// (DB_DSN, JWT_SECRET, SMTP_HOST, ...).
func initConfig() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			logger.WithError(err).Warn("failed to load .env")
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("inventory")
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			cobra.CheckErr(err)
		}
		return
	}
	logger.WithField("file", viper.ConfigFileUsed()).Info("config loaded")
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := viper.GetString("log_level")
		if err := setLogLevel(level); err != nil {
			logger.WithError(err).WithField("file", e.Name).Warn("ignoring log_level from changed config")
			return
		}
		logger.WithFields(logrus.Fields{"file": e.Name, "log_level": level}).Info("config reloaded")
	})
	viper.WatchConfig()
}

func loadConfig() appConfig {
	c := appConfig{
		Addr:         viper.GetString("addr"),
		DBDSN:        viper.GetString("db_dsn"),
		AutoMigrate:  viper.GetBool("db_auto_migrate"),
		Store:        strings.ToLower(viper.GetString("store")),
		JWTSecret:    viper.GetString("jwt_secret"),
		LogLevel:     viper.GetString("log_level"),
		LogFormat:    viper.GetString("log_format"),
		Debug:        viper.GetBool("debug"),
		CORSOrigins:  splitList(viper.GetString("cors_origins")),
		AuthCodeRate: viper.GetString("auth_code_rate"),
		RootEmail:    strings.TrimSpace(viper.GetString("root_email")),
		SMTP: smtpConfig{
			Host:     viper.GetString("smtp.host"),
			Port:     viper.GetInt("smtp.port"),
			Username: viper.GetString("smtp.username"),
			Password: viper.GetString("smtp.password"),
			From:     viper.GetString("smtp.from"),
		},
	}
	if c.JWTSecret == "" {
		c.JWTSecret = devJWTSecret
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
