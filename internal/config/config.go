package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hypnotools/internal/archive"
	"hypnotools/internal/logger"
)

// ConfigFileName 默认配置文件名
const ConfigFileName = "config.toml"

// envPrefix 环境变量前缀
const envPrefix = "HYPNO_"

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig   `toml:"server"`
	Data    DataConfig     `toml:"data"`
	Log     logger.Config  `toml:"log"`
	API     APIConfig      `toml:"api"`
	Import  ImportConfig   `toml:"import"`
	Cache   CacheConfig    `toml:"cache"`
	Archive archive.Config `toml:"archive"`
	Metrics MetricsConfig  `toml:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// APIConfig 后端与 CRM 接口
type APIConfig struct {
	BaseURL         string `toml:"base_url"`
	CRMHostTemplate string `toml:"crm_host_template"` // %s 替换为公司标识
	Empresa         string `toml:"empresa"`
	Token           string `toml:"token"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Timeout 请求超时
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ImportConfig 批量导入参数
type ImportConfig struct {
	BatchSize     int `toml:"batch_size"`
	BatchDelayMS  int `toml:"batch_delay_ms"`
	MaxRetries    int `toml:"max_retries"`
	RetryDelayMS  int `toml:"retry_delay_ms"`
	MaxRows       int `toml:"max_rows"`
	EmptyRowLimit int `toml:"empty_row_limit"`
}

// BatchDelay 批次间隔
func (c ImportConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

// RetryDelay 重试基准间隔
func (c ImportConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// CacheConfig ERP 查询缓存；redis_addr 为空时使用内存缓存
type CacheConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// TTL 缓存有效期
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// MetricsConfig 指标
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Log: logger.DefaultConfig(),
		API: APIConfig{
			BaseURL:         "http://localhost:5000",
			CRMHostTemplate: "https://%s.hypnobox.com.br/api/manageclients",
			TimeoutSeconds:  60,
		},
		Import: ImportConfig{
			BatchSize:     5,
			BatchDelayMS:  1000,
			MaxRetries:    3,
			RetryDelayMS:  2000,
			MaxRows:       100000,
			EmptyRowLimit: 50,
		},
		Cache: CacheConfig{
			TTLSeconds: 600,
		},
		Archive: archive.Config{
			Region: "us-east-1",
			Prefix: "hypnotools",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 可执行文件同目录下的 config.toml
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, ConfigFileName)
}

// LoadConfigWithInfo 加载配置：默认值 → config.toml → HYPNO_* 环境变量
// path 为空时读取可执行文件同目录下的 config.toml
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, err
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	if ApplyEnv(config) {
		info.PortSpecified = info.PortSpecified || os.Getenv(envPrefix+"PORT") != ""
	}
	return config, info, nil
}

// LoadConfig 加载配置
func LoadConfig(path string) (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo(path)
	return config, err
}

// ApplyEnv 用 HYPNO_* 环境变量覆盖配置，返回是否有覆盖
func ApplyEnv(c *AppConfig) bool {
	applied := false
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
			applied = true
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
				applied = true
			}
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
				applied = true
			}
		}
	}

	num("PORT", &c.Server.Port)
	flag("DEV_MODE", &c.Server.DevMode)
	str("DATA_DIR", &c.Data.DataDir)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_OUTPUT", &c.Log.Output)
	str("API_BASE_URL", &c.API.BaseURL)
	str("CRM_HOST_TEMPLATE", &c.API.CRMHostTemplate)
	str("EMPRESA", &c.API.Empresa)
	str("TOKEN", &c.API.Token)
	num("API_TIMEOUT_SECONDS", &c.API.TimeoutSeconds)
	num("BATCH_SIZE", &c.Import.BatchSize)
	num("BATCH_DELAY_MS", &c.Import.BatchDelayMS)
	num("MAX_RETRIES", &c.Import.MaxRetries)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.RedisPassword)
	num("CACHE_TTL_SECONDS", &c.Cache.TTLSeconds)
	flag("ARCHIVE_ENABLED", &c.Archive.Enabled)
	str("ARCHIVE_BUCKET", &c.Archive.Bucket)
	str("ARCHIVE_ENDPOINT", &c.Archive.Endpoint)
	str("ARCHIVE_ACCESS_KEY", &c.Archive.AccessKey)
	str("ARCHIVE_SECRET_KEY", &c.Archive.SecretKey)
	flag("METRICS_ENABLED", &c.Metrics.Enabled)
	return applied
}

// SaveConfig 保存配置到 path（为空时写到可执行文件同目录）
func SaveConfig(config *AppConfig, path string) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DataRoot 数据目录绝对路径；相对路径以可执行文件目录为基准
func DataRoot(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// EnsureDataDir 确保数据目录及 uploads/exports/backups 存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := DataRoot(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "exports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(DataRoot(config), subdir, filename)
}
