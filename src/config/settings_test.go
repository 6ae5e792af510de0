package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv 屏蔽宿主机上可能存在的同名环境变量
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ETHERSCAN_API_KEY", "ETHERSCAN_BASE_URL", "ETHERSCAN_CHAIN_ID", "ETHERSCAN_RPS",
		"ETH_RPC_URL", "DATABASE_DRIVER", "DATABASE_DSN", "REDIS_URL",
		"HTTP_PROXY_URL", "S3_BUCKET", "AWS_REGION",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	s, err := LoadSettings("nope.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	require.NotNil(t, s)

	assert.Equal(t, EtherscanBaseURL, s.Etherscan.BaseURL)
	assert.Equal(t, "1", s.Etherscan.ChainID)
	assert.Equal(t, ArxivBaseURL, s.Arxiv.BaseURL)
	assert.Equal(t, 15, s.Arxiv.MaxResults)
	assert.Equal(t, DriverSQLite, s.Database.Driver)
	assert.Equal(t, "2_raw_data", s.Paths.RawData)
	assert.Equal(t, "3_processed_data", s.Paths.Processed)
	assert.Equal(t, "4_reports", s.Paths.Reports)

	_, err = s.EtherscanKey()
	assert.Error(t, err)
}

func TestLoadSettings_FileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
etherscan:
  api_key: from-file
  requests_per_second: 2
arxiv:
  max_results: 30
  delay: 250ms
database:
  driver: mysql
redis:
  ttl: 1h
paths:
  reports: out
`), 0o644))

	t.Setenv("ETHERSCAN_API_KEY", "from-env")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	s, err := LoadSettings(path)
	require.NoError(t, err)

	key, err := s.EtherscanKey()
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
	assert.Equal(t, 2.0, s.Etherscan.RequestsPerSecond)
	assert.Equal(t, 30, s.Arxiv.MaxResults)
	assert.Equal(t, 250*time.Millisecond, s.Arxiv.Delay)
	assert.Equal(t, DriverMySQL, s.Database.Driver)
	assert.Equal(t, time.Hour, s.Redis.TTL)
	assert.Equal(t, "redis://localhost:6379/1", s.Redis.URL)
	assert.Equal(t, "out", s.Paths.Reports)
	assert.Equal(t, "2_raw_data", s.Paths.RawData)
}

func TestLoadSettings_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv 不覆盖已存在的变量
	require.NoError(t, os.Unsetenv("S3_BUCKET"))
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("S3_BUCKET=research-bucket\n"), 0o644))

	s, _ := LoadSettings(filepath.Join(dir, "missing.yaml"))
	require.NotNil(t, s)
	assert.Equal(t, "research-bucket", s.S3.Bucket)
}

func TestLoadSettings_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o644))
	_, err := LoadSettings(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("proxy: ftp://x\n"), 0o644))
	_, err = LoadSettings(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("etherscan: [\n"), 0o644))
	_, err = LoadSettings(path)
	assert.Error(t, err)
}

func TestDataSourceName(t *testing.T) {
	d := DatabaseConfig{Driver: DriverMySQL, Host: "db", Port: "3306", User: "root", Password: "pw", Name: "sc"}
	assert.Equal(t, "root:pw@tcp(db:3306)/sc?parseTime=true&charset=utf8mb4", d.DataSourceName("ignored"))

	d.Driver = DriverPostgres
	d.Port = "5432"
	assert.Equal(t, "postgres://root:pw@db:5432/sc?sslmode=disable", d.DataSourceName("ignored"))

	d.Driver = DriverSQLite
	assert.Equal(t, filepath.Join("data", SQLiteFile), d.DataSourceName("data"))

	d.DSN = "custom"
	assert.Equal(t, "custom", d.DataSourceName("data"))
}

// chdir 切换工作目录并在测试结束时恢复（等价于 Go 1.24 的 t.Chdir）
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
