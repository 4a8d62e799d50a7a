// Package config handles start-up configuration: where the data service and
// database are, cookie keys, cache sizing.  This is used by both faabd and
// faabctl.
package config

import (
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"maze.io/x/duration"
)

const envPrefix = "FAABLAB"

// Viper-based config loader
func Init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	viper.SetConfigType("yaml")
	viper.SetConfigName(".faablab")
	viper.AddConfigPath(home)
	viper.AddConfigPath(".")
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	SetDefaults()
	err = viper.ReadInConfig() // ignore error if config file missing
	if err != nil {
		log.Debugf("viper can't read config file: %v", err)
	}
	log.WithFields(log.Fields{
		"data_url":       DataURL(),
		"listen_address": ListenAddress(),
		"sql_connector":  SQLConnector(),
		"demo":           Demo(),
	}).Info("configuration loaded")
}

// SetDefaults installs default values.  Init calls it; tests can too.
func SetDefaults() {
	viper.SetDefault("listen_address", ":8080")
	viper.SetDefault("data_url", "https://faablab.herokuapp.com/api")
	viper.SetDefault("default_week", 1)
	viper.SetDefault("db_url", "")
	viper.SetDefault("sql_connector", "pgx")
	viper.SetDefault("cookie_hash_key", "")
	viper.SetDefault("cookie_block_key", "")
	viper.SetDefault("secure_cookies", false)
	viper.SetDefault("week_cache_size", 64)
	viper.SetDefault("week_cache_ttl", "5m")
	viper.SetDefault("preference_cache_size", 1024)
	viper.SetDefault("request_timeout", "10s")
	viper.SetDefault("breaker_failures", 5)
	viper.SetDefault("disable_caching", false)
	viper.SetDefault("breaker_timeout", "30s")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("allowed_origins", []string{})
	viper.SetDefault("demo", false)
}

func DataURL() string {
	return viper.GetString("data_url")
}

// DefaultWeek is where / redirects.  Weeks before it are treated as played.
func DefaultWeek() int {
	return viper.GetInt("default_week")
}

func DBURL() string {
	return viper.GetString("db_url")
}

func ListenAddress() string {
	return viper.GetString("listen_address")
}

func SecureCookies() bool {
	return viper.GetBool("secure_cookies")
}

func SQLConnector() string {
	return viper.GetString("sql_connector")
}

func CookieHashKey() string {
	return viper.GetString("cookie_hash_key")
}

func CookieBlockKey() string {
	return viper.GetString("cookie_block_key")
}

func WeekCacheSize() int {
	return viper.GetInt("week_cache_size")
}

func PreferenceCacheSize() int {
	return viper.GetInt("preference_cache_size")
}

// WeekCacheTTL accepts the usual Go durations plus days and weeks ("1d").
func WeekCacheTTL() time.Duration {
	return durationValue("week_cache_ttl", 5*time.Minute)
}

func RequestTimeout() time.Duration {
	return durationValue("request_timeout", 10*time.Second)
}

func BreakerFailures() int {
	return viper.GetInt("breaker_failures")
}

func BreakerTimeout() time.Duration {
	return durationValue("breaker_timeout", 30*time.Second)
}

func LogLevel() string {
	return viper.GetString("log_level")
}

func LogFormat() string {
	return viper.GetString("log_format")
}

func AllowedOrigins() []string {
	return viper.GetStringSlice("allowed_origins")
}

// Demo serves built-in data instead of talking to the data service.
func Demo() bool {
	return viper.GetBool("demo")
}

// DisableCaching turns off Cache-Control on static assets, for working on
// the CSS.
func DisableCaching() bool {
	return viper.GetBool("disable_caching")
}

func durationValue(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(viper.GetString(key))
	if s == "" {
		return def
	}
	d, err := duration.ParseDuration(s)
	if err != nil {
		log.Warnf("config %s: can't parse %q, using %v: %v", key, s, def, err)
		return def
	}
	return time.Duration(d)
}
