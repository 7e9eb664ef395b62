package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis  `yaml:"redis"`
	Game       Game   `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Game holds the pacing of scheduled moves and the lifetime of online sessions.
type Game struct {
	AIDelay       time.Duration `yaml:"ai-delay" env:"GAME_AI_DELAY" env-default:"500ms"`
	FlipBackDelay time.Duration `yaml:"flip-back-delay" env:"GAME_FLIP_BACK_DELAY" env-default:"800ms"`
	SessionTTL    time.Duration `yaml:"session-ttl" env:"GAME_SESSION_TTL" env-default:"24h"`
	Difficulty    string        `yaml:"difficulty" env:"GAME_DIFFICULTY" env-default:"medium"`
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
	if that.Host == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
