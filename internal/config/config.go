package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"TICTACTOE_LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"TICTACTOE_HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"TICTACTOE_SOCKET_PORT" env-default:"8080"`
	Redis      Redis  `yaml:"redis"`
	Match      Match  `yaml:"match"`
}

type Redis struct {
	Host string `yaml:"host" env:"TICTACTOE_REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"TICTACTOE_REDIS_PORT" env-default:"6379"`
}

type Match struct {
	// ID of the match this process hosts, a random one is generated when empty.
	ID               string `yaml:"id" env:"TICTACTOE_MATCH_ID" env-default:""`
	SubscriberBuffer int    `yaml:"subscriber-buffer" env-default:"64"`
	EventLogSize     int64  `yaml:"event-log-size" env-default:"256"`
	// Reset drops the stored match with ID at startup instead of resuming it.
	Reset bool `yaml:"reset" env:"TICTACTOE_MATCH_RESET" env-default:"false"`
}

// Client is the configuration of the terminal replica.
type Client struct {
	LogLevel  string `env:"TICTACTOE_LOG_LEVEL" env-default:"warn"`
	ServerURL string `env:"TICTACTOE_SERVER_URL" env-default:"ws://localhost:8080/ws"`
	PlayerID  string `env:"TICTACTOE_PLAYER_ID" env-default:""`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// MustLoadClient - load the replica configuration from the environment.
func MustLoadClient() *Client {
	config := &Client{}

	if err := cleanenv.ReadEnv(config); err != nil {
		panic(fmt.Errorf("unable to read client environment: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
