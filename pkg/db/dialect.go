package db

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/slotwise/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialect picks the gorm driver for DATABASE_TYPE. Every dialect runs its
// session in UTC; calendar math happens in the marketplace zone in code.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case "postgres", "postgresql", "":
		return postgres.Open(postgresDSN(cfg)), nil
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	case "sqlite":
		return sqlite.Open(sqliteDSN(cfg.DBName)), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func postgresDSN(cfg config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{
		"host=" + cfg.DBHost,
		"port=" + cfg.DBPort,
		"user=" + cfg.DBUser,
		"dbname=" + cfg.DBName,
		"sslmode=" + sslMode,
		"TimeZone=UTC",
	}
	if cfg.DBPassword != "" {
		parts = append(parts, "password="+cfg.DBPassword)
	}
	return strings.Join(parts, " ")
}

func mysqlDSN(cfg config.Config) string {
	q := url.Values{}
	q.Set("charset", "utf8mb4")
	q.Set("parseTime", "true")
	q.Set("loc", "UTC")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, q.Encode())
}

// sqliteDSN treats DATABASE_NAME as a file path. Bookings rely on the busy
// timeout since overlap checks and inserts share one writer.
func sqliteDSN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "slotwise.db"
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
