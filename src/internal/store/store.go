// Package store 持久化合约数据集与分析运行结果，支持 MySQL、PostgreSQL 与 SQLite。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/admi-n/sc-security-research/src/internal/store/migrations"
)

// 方言
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// Store 数据库访问层
type Store struct {
	db      *sql.DB
	dialect string
}

// sqlDriverName 方言对应的 database/sql 驱动名
func sqlDriverName(dialect string) (string, error) {
	switch dialect {
	case DialectMySQL:
		return "mysql", nil
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", dialect)
	}
}

// Open 打开连接池、ping 验证并执行迁移
func Open(ctx context.Context, dialect, dsn string) (*Store, error) {
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	driverName, err := sqlDriverName(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if dialect == DialectSQLite {
		// 单写者
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping failed: %w", dialect, err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate 执行内嵌的迁移脚本
func (s *Store) Migrate() error {
	src, err := iofs.New(migrations.FS, s.dialect)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	var drv database.Driver
	switch s.dialect {
	case DialectMySQL:
		drv, err = migratemysql.WithInstance(s.db, &migratemysql.Config{})
	case DialectPostgres:
		drv, err = migratepgx.WithInstance(s.db, &migratepgx.Config{})
	case DialectSQLite:
		drv, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database driver: %s", s.dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect, drv)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Dialect 当前方言
func (s *Store) Dialect() string {
	return s.dialect
}

// DB 底层连接池
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close 关闭连接池
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind 将 ? 占位符转换为当前方言的形式（postgres 使用 $n）
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsertClause 主键冲突时的更新子句
func (s *Store) upsertClause(key string, columns ...string) string {
	sets := make([]string, len(columns))
	if s.dialect == DialectMySQL {
		for i, c := range columns {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}
