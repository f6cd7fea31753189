// Package config 加载服务配置：可选的 YAML 文件，其次环境变量，最后默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Address HTTP 监听地址，环境变量 NETRCA_ADDRESS
	Address string `yaml:"address"`

	// DataDir 数据目录，默认的 SQLite 数据库放在这里
	// 环境变量 NETRCA_DATA_DIR，默认：~/.local/share/netrca
	DataDir string `yaml:"data_dir"`

	// LogLevel zerolog 日志级别，环境变量 NETRCA_LOG_LEVEL
	LogLevel string `yaml:"log_level"`

	Database DatabaseConfig `yaml:"database"`
	Batfish  BatfishConfig  `yaml:"batfish"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Auth     AuthConfig     `yaml:"auth"`
}

// DatabaseConfig 注册表数据库
type DatabaseConfig struct {
	// Driver sqlite 或 postgres，环境变量 NETRCA_DB_DRIVER
	Driver string `yaml:"driver"`
	// DSN sqlite 为文件路径，postgres 为连接串，环境变量 NETRCA_DB_DSN
	DSN string `yaml:"dsn"`
}

// BatfishConfig 仿真后端
type BatfishConfig struct {
	Host    string `yaml:"host"`    // BATFISH_HOST
	Port    int    `yaml:"port"`    // BATFISH_PORT
	Network string `yaml:"network"` // BATFISH_NETWORK，所有租户共享
	APIKey  string `yaml:"api_key"` // BATFISH_API_KEY
	UseTLS  bool   `yaml:"use_tls"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	HealthTimeout  time.Duration `yaml:"health_timeout"`
}

// SnapshotConfig 快照暂存
type SnapshotConfig struct {
	// Root 暂存根目录，环境变量 SNAPSHOT_ROOT
	Root string `yaml:"root"`
	// DefaultConfigsRoot 调用方和记录都没有给出配置目录时使用，环境变量 GNS3_ROOT
	DefaultConfigsRoot string `yaml:"default_configs_root"`
	// LockTimeout 等待同一快照刷新锁的最长时间
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// ArchiveConfig 暂存包归档到对象存储，默认关闭
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`    // NETRCA_ARCHIVE_ENABLED
	Endpoint  string `yaml:"endpoint"`   // NETRCA_ARCHIVE_ENDPOINT
	Bucket    string `yaml:"bucket"`     // NETRCA_ARCHIVE_BUCKET
	AccessKey string `yaml:"access_key"` // NETRCA_ARCHIVE_ACCESS_KEY
	SecretKey string `yaml:"secret_key"` // NETRCA_ARCHIVE_SECRET_KEY
	UseSSL    bool   `yaml:"use_ssl"`    // NETRCA_ARCHIVE_USE_SSL
	Prefix    string `yaml:"prefix"`
}

// AuthConfig API key 校验
// 没有配置任何 key 时信任上游网关注入的 X-User-ID
type AuthConfig struct {
	Keys []APIKey `yaml:"keys"`
}

// APIKey 一个已签发的 API key，只保存 bcrypt 哈希
type APIKey struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
	Hash  string `yaml:"hash"`
	// Admin 为 true 时可以通过 user_id 代其他租户操作
	Admin bool `yaml:"admin"`
}

// New 从 NETRCA_CONFIG 指向的文件（可选）和环境变量加载配置
func New() (*Config, error) {
	return load(os.Getenv("NETRCA_CONFIG"), os.LookupEnv)
}

// Load 从指定文件加载配置，path 为空时只使用环境变量和默认值
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("NETRCA_ADDRESS", &c.Address)
	str("NETRCA_DATA_DIR", &c.DataDir)
	str("NETRCA_LOG_LEVEL", &c.LogLevel)
	str("NETRCA_DB_DRIVER", &c.Database.Driver)
	str("NETRCA_DB_DSN", &c.Database.DSN)
	str("BATFISH_HOST", &c.Batfish.Host)
	str("BATFISH_NETWORK", &c.Batfish.Network)
	str("BATFISH_API_KEY", &c.Batfish.APIKey)
	str("SNAPSHOT_ROOT", &c.Snapshot.Root)
	str("GNS3_ROOT", &c.Snapshot.DefaultConfigsRoot)
	str("NETRCA_ARCHIVE_ENDPOINT", &c.Archive.Endpoint)
	str("NETRCA_ARCHIVE_BUCKET", &c.Archive.Bucket)
	str("NETRCA_ARCHIVE_ACCESS_KEY", &c.Archive.AccessKey)
	str("NETRCA_ARCHIVE_SECRET_KEY", &c.Archive.SecretKey)

	if v, ok := lookup("BATFISH_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BATFISH_PORT %q: %w", v, err)
		}
		c.Batfish.Port = port
	}
	for key, dst := range map[string]*bool{
		"NETRCA_ARCHIVE_ENABLED": &c.Archive.Enabled,
		"NETRCA_ARCHIVE_USE_SSL": &c.Archive.UseSSL,
	} {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = b
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = "0.0.0.0:8080"
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = filepath.Join(c.DataDir, "netrca.db")
	}
	if c.Batfish.Host == "" {
		c.Batfish.Host = "batfish"
	}
	if c.Batfish.Port == 0 {
		c.Batfish.Port = 9996
	}
	if c.Batfish.Network == "" {
		c.Batfish.Network = "gns3_network"
	}
	if c.Batfish.RequestTimeout == 0 {
		c.Batfish.RequestTimeout = 10 * time.Minute
	}
	if c.Batfish.HealthTimeout == 0 {
		c.Batfish.HealthTimeout = 5 * time.Second
	}
	if c.Snapshot.Root == "" {
		c.Snapshot.Root = "/data/snapshots"
	}
	if c.Snapshot.DefaultConfigsRoot == "" {
		c.Snapshot.DefaultConfigsRoot = "/data/gns3"
	}
	if c.Snapshot.LockTimeout == 0 {
		c.Snapshot.LockTimeout = 5 * time.Minute
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "snapshots/"
	}
}

// defaultDataDir 优先使用用户主目录下的 .local/share/netrca
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "netrca")
	}
	return filepath.Join(".", "data")
}

// Validate 检查配置是否合法
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Batfish.Port <= 0 || c.Batfish.Port > 65535 {
		errs = append(errs, fmt.Errorf("batfish.port out of range: %d", c.Batfish.Port))
	}
	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		errs = append(errs, errors.New("archive.endpoint and archive.bucket are required when archive is enabled"))
	}
	for i, k := range c.Auth.Keys {
		if k.Owner == "" || k.Hash == "" {
			errs = append(errs, fmt.Errorf("auth.keys[%d]: owner and hash are required", i))
		}
	}
	return errors.Join(errs...)
}

// LockDir 文件锁目录
func (c *Config) LockDir() string {
	return filepath.Join(c.Snapshot.Root, ".locks")
}
