package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/admi-n/sc-security-research/src/internal"
)

// DefaultSettingsPath 默认配置文件路径
const DefaultSettingsPath = "src/config/settings.yaml"

// Etherscan / arXiv 默认地址
const (
	EtherscanBaseURL = "https://api.etherscan.io/v2/api"
	ArxivBaseURL     = "http://export.arxiv.org/api/query"
	DefaultQuery     = "smart contract security vulnerability blockchain"
)

// EtherscanConfig Etherscan 相关配置
type EtherscanConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	ChainID           string  `yaml:"chain_id"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ArxivConfig arXiv 相关配置
type ArxivConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Query      string        `yaml:"query"`
	MaxResults int           `yaml:"max_results"`
	Delay      time.Duration `yaml:"delay"`
}

// RedisConfig 响应缓存配置，URL 为空表示使用内存缓存
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// PathsConfig 数据目录布局
type PathsConfig struct {
	RawData   string `yaml:"raw_data"`
	Processed string `yaml:"processed"`
	Reports   string `yaml:"reports"`
}

// S3Config 发布数据集用的 S3 配置
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Settings 全局配置结构
type Settings struct {
	Etherscan EtherscanConfig `yaml:"etherscan"`

	RPC struct {
		Ethereum string `yaml:"ethereum"`
	} `yaml:"rpc"`

	Arxiv       ArxivConfig    `yaml:"arxiv"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Paths       PathsConfig    `yaml:"paths"`
	S3          S3Config       `yaml:"s3"`
	HTTPTimeout time.Duration  `yaml:"http_timeout"`
	Proxy       string         `yaml:"proxy"`
}

// Default 返回默认配置
func Default() *Settings {
	s := &Settings{}
	s.Etherscan = EtherscanConfig{
		BaseURL:           EtherscanBaseURL,
		ChainID:           "1",
		RequestsPerSecond: 5,
	}
	s.Arxiv = ArxivConfig{
		BaseURL:    ArxivBaseURL,
		Query:      DefaultQuery,
		MaxResults: 15,
		Delay:      500 * time.Millisecond,
	}
	s.Database = DatabaseConfig{
		Driver: DriverSQLite,
		Host:   "localhost",
		Port:   "3306",
		User:   "root",
		Name:   "sc_research",
	}
	s.Redis.TTL = 24 * time.Hour
	s.Paths = PathsConfig{
		RawData:   "2_raw_data",
		Processed: "3_processed_data",
		Reports:   "4_reports",
	}
	s.S3 = S3Config{Prefix: "sc-research", Region: "eu-central-1"}
	s.HTTPTimeout = 20 * time.Second
	return s
}

// LoadSettings 加载配置文件并叠加环境变量。
// 文件不存在时仍返回默认配置 + 环境变量，同时返回包装了 fs.ErrNotExist 的错误，
// 调用方可以只打印警告继续运行。
func LoadSettings(configPath string) (*Settings, error) {
	if configPath == "" {
		configPath = DefaultSettingsPath
	}

	// .env 不存在不算错误
	_ = godotenv.Load()

	settings := Default()
	var loadErr error

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		loadErr = fmt.Errorf("config file %s: %w", configPath, err)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	settings.ApplyEnv()
	settings.fillDefaults()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, loadErr
}

// ApplyEnv 环境变量优先于配置文件
func (s *Settings) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&s.Etherscan.APIKey, "ETHERSCAN_API_KEY")
	setString(&s.Etherscan.BaseURL, "ETHERSCAN_BASE_URL")
	setString(&s.Etherscan.ChainID, "ETHERSCAN_CHAIN_ID")
	setString(&s.RPC.Ethereum, "ETH_RPC_URL")
	setString(&s.Database.Driver, "DATABASE_DRIVER")
	setString(&s.Database.DSN, "DATABASE_DSN")
	setString(&s.Redis.URL, "REDIS_URL")
	setString(&s.Proxy, "HTTP_PROXY_URL")
	setString(&s.S3.Bucket, "S3_BUCKET")
	setString(&s.S3.Region, "AWS_REGION")

	if v := os.Getenv("ETHERSCAN_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Etherscan.RequestsPerSecond = f
		}
	}
}

// fillDefaults 补全 YAML 中显式置空的字段
func (s *Settings) fillDefaults() {
	d := Default()
	if s.Etherscan.BaseURL == "" {
		s.Etherscan.BaseURL = d.Etherscan.BaseURL
	}
	if s.Etherscan.ChainID == "" {
		s.Etherscan.ChainID = d.Etherscan.ChainID
	}
	if s.Etherscan.RequestsPerSecond <= 0 {
		s.Etherscan.RequestsPerSecond = d.Etherscan.RequestsPerSecond
	}
	if s.Arxiv.BaseURL == "" {
		s.Arxiv.BaseURL = d.Arxiv.BaseURL
	}
	if s.Arxiv.Query == "" {
		s.Arxiv.Query = d.Arxiv.Query
	}
	if s.Arxiv.MaxResults <= 0 {
		s.Arxiv.MaxResults = d.Arxiv.MaxResults
	}
	if s.Database.Driver == "" {
		s.Database.Driver = d.Database.Driver
	}
	if s.Redis.TTL <= 0 {
		s.Redis.TTL = d.Redis.TTL
	}
	if s.Paths.RawData == "" {
		s.Paths.RawData = d.Paths.RawData
	}
	if s.Paths.Processed == "" {
		s.Paths.Processed = d.Paths.Processed
	}
	if s.Paths.Reports == "" {
		s.Paths.Reports = d.Paths.Reports
	}
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = d.HTTPTimeout
	}
}

// Validate 检查配置一致性
func (s *Settings) Validate() error {
	if err := s.Database.Validate(); err != nil {
		return err
	}
	if err := internal.ValidateProxyURL(s.Proxy); err != nil {
		return err
	}
	if s.Arxiv.MaxResults < 0 {
		return errors.New("arxiv.max_results must be >= 0")
	}
	return nil
}

// EtherscanKey 获取 Etherscan API Key
func (s *Settings) EtherscanKey() (string, error) {
	if strings.TrimSpace(s.Etherscan.APIKey) == "" {
		return "", fmt.Errorf("Etherscan API key not found in config or environment variable ETHERSCAN_API_KEY")
	}
	return s.Etherscan.APIKey, nil
}
