package database

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"stockwatch/internal/config"
)

// Open connects to the configured database
func Open(cfg config.DatabaseConfig, loc *time.Location, log zerolog.Logger) (*GormDB, error) {
	dialector, err := Dialector(cfg, loc)
	if err != nil {
		return nil, err
	}
	gdb, err := NewGormDB(dialector, cfg, loc, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("type", cfg.Type).Msg("database connected")
	return gdb, nil
}

// Dialector picks the GORM dialect for cfg.Type
func Dialector(cfg config.DatabaseConfig, loc *time.Location) (gorm.Dialector, error) {
	switch cfg.Type {
	case "postgres":
		sqlDB, err := sql.Open("postgres", PostgresDSN(cfg.Postgres))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return postgres.New(postgres.Config{Conn: sqlDB}), nil
	case "mysql", "":
		return mysql.Open(MySQLDSN(cfg.MySQL, loc)), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// MySQLDSN builds a DSN with parseTime and the engine's timezone
func MySQLDSN(c config.MySQLConfig, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	dc := mysqldriver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.Loc = loc
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// PostgresDSN builds a postgres:// URL for lib/pq. Credentials are
// percent-encoded, so any password character is safe.
func PostgresDSN(c config.PostgresConfig) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}
