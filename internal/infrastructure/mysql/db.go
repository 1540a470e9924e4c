package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// Config holds the connection settings read from the environment.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN builds the driver connection string. clientFoundRows makes UPDATE
// report matched rows, so an unchanged row still counts as found.
func DSN(cfg Config) string {
	c := gomysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = cfg.Name
	c.ParseTime = true
	c.ClientFoundRows = true
	c.Timeout = 5 * time.Second
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// Open connects to MySQL, waits until it answers and makes sure the todos
// table exists.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pingWithRetry(ctx, db, logger, 20, 3*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to MySQL",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("db", cfg.Name),
	)
	return db, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB, logger *zap.Logger, maxAttempts int, interval time.Duration) error {
	for i := 1; i <= maxAttempts; i++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("failed to ping db",
			zap.Int("attempt", i),
			zap.Int("maxAttempts", maxAttempts),
			zap.Error(err),
		)
		if err := sleepWithContext(ctx, interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed to ping db after %d attempts", maxAttempts)
}

const createTodosTable = `CREATE TABLE IF NOT EXISTS todos (
	id   BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	text VARCHAR(1024) NOT NULL,
	done BOOLEAN NOT NULL DEFAULT FALSE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the todos table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTodosTable); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	return nil
}
