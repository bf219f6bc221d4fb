package enfoque

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DatabaseURLKey      = "database_url"
	LogLevelKey         = "log_level"
	HTTPAddrKey         = "http_addr"
	UserIDKey           = "user_id"
	LeaseTTLKey         = "lease_ttl"
	PollIntervalKey     = "poll_interval"
	ReminderWindowKey   = "reminder_window"
	DiscordTokenKey     = "discord_token"
	DiscordChannelIDKey = "discord_channel_id"
	BellKey             = "bell"
)

type Config struct {
	DatabaseURL string
	LogLevel    string
	HTTPAddr    string
	UserID      UserID

	//
	LeaseTTL       time.Duration
	PollInterval   time.Duration
	ReminderWindow time.Duration

	//
	DiscordToken     string
	DiscordChannelID string
	Bell             bool
}

// LoadConfig reads .env (prod) or .env.dev into the environment, then resolves
// ENFOQUE_* variables over the optional YAML file at configFile.
func LoadConfig(isProd bool, configFile string) (Config, error) {
	if isProd {
		_ = godotenv.Load(".env")
	} else {
		_ = godotenv.Load(".env.dev")
	}

	v := viper.New()
	v.SetDefault(DatabaseURLKey, "enfoque.db")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(HTTPAddrKey, ":8080")
	v.SetDefault(LeaseTTLKey, 30*time.Second)
	v.SetDefault(PollIntervalKey, time.Second)
	v.SetDefault(ReminderWindowKey, 5*time.Second)
	v.SetDefault(BellKey, true)

	v.SetEnvPrefix("ENFOQUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	config := Config{
		DatabaseURL:      v.GetString(DatabaseURLKey),
		LogLevel:         v.GetString(LogLevelKey),
		HTTPAddr:         v.GetString(HTTPAddrKey),
		UserID:           UserID(v.GetString(UserIDKey)),
		LeaseTTL:         v.GetDuration(LeaseTTLKey),
		PollInterval:     v.GetDuration(PollIntervalKey),
		ReminderWindow:   v.GetDuration(ReminderWindowKey),
		DiscordToken:     v.GetString(DiscordTokenKey),
		DiscordChannelID: v.GetString(DiscordChannelIDKey),
		Bell:             v.GetBool(BellKey),
	}

	if config.DatabaseURL == "" {
		return Config{}, fmt.Errorf("required config: ENFOQUE_DATABASE_URL")
	}
	if config.DiscordToken != "" && config.DiscordChannelID == "" {
		return Config{}, fmt.Errorf("required config with ENFOQUE_DISCORD_TOKEN: ENFOQUE_DISCORD_CHANNEL_ID")
	}
	if config.LeaseTTL <= 0 || config.PollInterval <= 0 || config.ReminderWindow <= 0 {
		return Config{}, fmt.Errorf("lease_ttl, poll_interval and reminder_window must be positive")
	}

	return config, nil
}
