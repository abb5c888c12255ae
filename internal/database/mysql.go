package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// parseTime is required for the time.Time columns of the audit log and base model.
var mysqlDefaults = map[string]string{
	"charset":   "utf8mb4",
	"parseTime": "True",
	"loc":       "Local",
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	credentials := cfg.User
	if cfg.Password != "" {
		credentials += ":" + cfg.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s",
		credentials,
		orDefaultHost(cfg.Host, "127.0.0.1"),
		orDefaultPort(cfg.Port, 3306),
		cfg.Name,
		strings.Join(mergeOptions(mysqlDefaults, cfg.Options), "&"),
	), nil
}
