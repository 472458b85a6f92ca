package datastore

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Supported database types.
const (
	TypeSQLite = "sqlite"
	TypeMySQL  = "mysql"
)

// Config selects and configures the database.
type Config struct {
	Type   string       `yaml:"type" mapstructure:"type"`
	SQLite SQLiteConfig `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL  MySQLConfig  `yaml:"mysql" mapstructure:"mysql"`
}

// SQLiteConfig holds the SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// Validate checks that the selected database is fully configured.
func (c Config) Validate() error {
	switch c.Type {
	case TypeSQLite:
		if c.SQLite.Path == "" {
			return validationError("sqlite path is required", "sqlite.path", c.SQLite.Path)
		}
	case TypeMySQL:
		if c.MySQL.Host == "" {
			return validationError("mysql host is required", "mysql.host", c.MySQL.Host)
		}
		if c.MySQL.Database == "" {
			return validationError("mysql database is required", "mysql.database", c.MySQL.Database)
		}
		if c.MySQL.Port < 0 || c.MySQL.Port > 65535 {
			return validationError("mysql port out of range", "mysql.port", c.MySQL.Port)
		}
	default:
		return validationError(fmt.Sprintf("unsupported database type %q", c.Type), "type", c.Type)
	}
	return nil
}

func openSQLite(cfg SQLiteConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), gormConfig)
	if err != nil {
		return nil, err
	}
	// a single writer avoids "database is locked" during batch import
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// DSN returns the go-sql-driver connection string.
func (c MySQLConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	addr := net.JoinHostPort(c.Host, strconv.Itoa(port))
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, addr, c.Database)
}

func openMySQL(cfg MySQLConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}
