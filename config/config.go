package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the bot reads from the environment.
// Values that differ between deployments are required, the rest have defaults.
type Config struct {
	Bot     BotConfig
	API     APIConfig
	Redis   RedisConfig
	Log     LogConfig
	Booking BookingConfig
	Poll    PollConfig

	Env         string `envconfig:"ENV" default:"development"`
	TimeZone    string `envconfig:"TIMEZONE" default:"Asia/Tashkent"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

type BotConfig struct {
	Token string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	Debug bool   `envconfig:"BOT_DEBUG" default:"false"`
}

type APIConfig struct {
	BaseURL string        `envconfig:"API_BASE_URL" default:"https://stadio-backend-pythoon-production.up.railway.app/api/v1"`
	Timeout time.Duration `envconfig:"API_TIMEOUT" default:"15s"`
	RPS     float64       `envconfig:"API_RPS" default:"5"`
	Burst   int           `envconfig:"API_BURST" default:"10"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type BookingConfig struct {
	DaysAhead     int  `envconfig:"BOOKING_DAYS_AHEAD" default:"14"`
	CollapseSplit bool `envconfig:"BOOKING_COLLAPSE_SPLIT" default:"false"`
	StadiumsLimit int  `envconfig:"STADIUMS_LIMIT" default:"20"`
}

type PollConfig struct {
	DayInterval   time.Duration `envconfig:"POLL_DAY_INTERVAL" default:"1m"`
	NightInterval time.Duration `envconfig:"POLL_NIGHT_INTERVAL" default:"10m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process env config")
	}
	if cfg.Bot.Token == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is empty")
	}
	if cfg.Booking.DaysAhead < 1 {
		return Config{}, errors.Newf("BOOKING_DAYS_AHEAD must be positive, got %d", cfg.Booking.DaysAhead)
	}
	if cfg.API.RPS <= 0 {
		return Config{}, errors.Newf("API_RPS must be positive, got %v", cfg.API.RPS)
	}
	if cfg.Poll.DayInterval <= 0 {
		return Config{}, errors.Newf("POLL_DAY_INTERVAL must be positive, got %s", cfg.Poll.DayInterval)
	}
	if cfg.Poll.NightInterval <= 0 {
		return Config{}, errors.Newf("POLL_NIGHT_INTERVAL must be positive, got %s", cfg.Poll.NightInterval)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
