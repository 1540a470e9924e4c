package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	mysqlrepo "github.com/hijjiri/todo-rest/internal/infrastructure/mysql"
)

const (
	StoreFile   = "file"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"

	TraceNone   = "none"
	TraceStdout = "stdout"
)

type Config struct {
	HTTPAddr       string `env:"HTTP_ADDR" env-default:":8000"`
	MetricsAddr    string `env:"METRICS_ADDR" env-default:":9464"`
	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR" env-default:":50051"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" env-default:"3s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	Store StoreConfig
	DB    DBConfig

	ServiceName    string `env:"SERVICE_NAME" env-default:"todo-rest"`
	TraceExporter  string `env:"TRACE_EXPORTER" env-default:"none"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" env-default:"false"`
}

type StoreConfig struct {
	Driver   string `env:"STORE_DRIVER" env-default:"file"`
	DataFile string `env:"TODO_DATA_FILE" env-default:"todo_data.json"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" env-default:"127.0.0.1"`
	Port     string `env:"DB_PORT" env-default:"3306"`
	User     string `env:"DB_USER" env-default:"root"`
	Password string `env:"DB_PASSWORD" env-default:"root"`
	Name     string `env:"DB_NAME" env-default:"tododb"`
}

// MySQL converts the env settings into the repository's connection config.
func (c DBConfig) MySQL() mysqlrepo.Config {
	return mysqlrepo.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Name:     c.Name,
	}
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	switch c.Store.Driver {
	case StoreFile:
		if c.Store.DataFile == "" {
			return fmt.Errorf("TODO_DATA_FILE is required for the file store")
		}
	case StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q", StoreFile, StoreMySQL, StoreMemory, c.Store.Driver)
	}
	switch c.TraceExporter {
	case TraceNone, TraceStdout:
	default:
		return fmt.Errorf("TRACE_EXPORTER must be %q or %q, got %q", TraceNone, TraceStdout, c.TraceExporter)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	return nil
}
