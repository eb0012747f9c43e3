package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string        `yaml:"http-port" env:"HTTP_PORT" env-default:"7351"`
	SocketPort        string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"7350"`
	SQLiteStoragePath string        `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./arena.db"`
	LeaderboardLimit  int           `yaml:"leaderboard-limit" env:"LEADERBOARD_LIMIT" env-default:"50"`
	SinkTimeout       time.Duration `yaml:"sink-timeout" env:"SINK_TIMEOUT" env-default:"5s"`
	Redis             Redis         `yaml:"redis"`
	WebSocket         WebSocket     `yaml:"websocket"`
}

type Redis struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	MatchTTL time.Duration `yaml:"match-ttl" env:"REDIS_MATCH_TTL" env-default:"24h"`
}

type WebSocket struct {
	AllowedOrigins []string      `yaml:"allowed-origins" env:"WS_ALLOWED_ORIGINS" env-separator:","`
	SendBuffer     int           `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"64"`
	PingInterval   time.Duration `yaml:"ping-interval" env:"WS_PING_INTERVAL" env-default:"30s"`
	ReadLimit      int64         `yaml:"read-limit" env:"WS_READ_LIMIT" env-default:"4096"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
