package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// 支持的数据库驱动
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLiteFile 未配置 DSN 时 sqlite 数据库文件名（位于 processed 目录下）
const SQLiteFile = "sc_research.db"

// DatabaseConfig 数据库配置；DSN 非空时优先使用，否则按字段拼接
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Validate 检查驱动名
func (d DatabaseConfig) Validate() error {
	switch strings.ToLower(d.Driver) {
	case DriverMySQL, DriverPostgres, DriverSQLite, "":
		return nil
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres, sqlite)", d.Driver)
	}
}

// DataSourceName 返回连接串。sqlite 默认放在 dataDir 下。
func (d DatabaseConfig) DataSourceName(dataDir string) string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	switch strings.ToLower(d.Driver) {
	case DriverMySQL:
		// username:password@tcp(host:port)/dbname?parseTime=true
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     d.Host + ":" + d.Port,
			Path:     "/" + d.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	default:
		return filepath.Join(dataDir, SQLiteFile)
	}
}
