package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCacheTTLMinutes 是音乐列表缓存的默认有效期（分钟）
	DefaultCacheTTLMinutes = 5
	// DefaultServerHost 是服务器的默认监听地址
	DefaultServerHost = "0.0.0.0"
	// DefaultServerPort 是服务器的默认监听端口
	DefaultServerPort = 8080
	// DefaultWriteVersion 是写回标签时默认使用的 ID3v2 小版本号
	DefaultWriteVersion = 3
	// DefaultWorkers 是后台工作池默认的 worker 数量
	DefaultWorkers = 4
	// DefaultQueueSize 是后台工作池默认的队列长度
	DefaultQueueSize = 64
	// DefaultJobTTLMinutes 是异步任务结果的默认保留时间（分钟）
	DefaultJobTTLMinutes = 30
	// DefaultLogLevel 是默认的日志级别
	DefaultLogLevel = "info"

	// MaxAllowedCacheTTL 是缓存 TTL 的最大允许值（分钟）
	MaxAllowedCacheTTL = 1440 // 24 hours
	// MaxAllowedPadding 是标签填充的最大字节数（1MB）
	MaxAllowedPadding = 1 << 20
	// MaxAllowedWorkers 是工作池 worker 数量的上限
	MaxAllowedWorkers = 64
	// MaxAllowedQueueSize 是工作池队列长度的上限
	MaxAllowedQueueSize = 4096

	envPrefix = "ZERO_TAGS_"
)

// Config 定义了应用程序的所有配置项。
type Config struct {
	Server ServerConfig `json:"server" yaml:"server" toml:"server"`
	Music  MusicConfig  `json:"music" yaml:"music" toml:"music"`
	Tags   TagsConfig   `json:"tags" yaml:"tags" toml:"tags"`
	Log    LogConfig    `json:"log" yaml:"log" toml:"log"`
}

// ServerConfig 定义了服务器相关的配置。
type ServerConfig struct {
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`
	// CORSOrigins 是允许跨域访问的来源，包含 "*" 时允许所有来源，为空时不启用 CORS。
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// MusicConfig 定义了音乐库相关的配置。
type MusicConfig struct {
	// Directory 是音乐文件所在的目录。
	Directory string `json:"directory" yaml:"directory" toml:"directory"`
	// SupportedFormats 是支持的音频文件格式列表。
	SupportedFormats []string `json:"supported_formats" yaml:"supported_formats" toml:"supported_formats"`
	// CacheTTLMinutes 是音乐列表缓存的有效期（分钟）。
	CacheTTLMinutes int `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes" toml:"cache_ttl_minutes"`
}

// TagsConfig 定义了标签读写相关的配置。
type TagsConfig struct {
	// WriteVersion 是请求未指定版本时写回使用的 ID3v2 小版本号，只能是 3 或 4。
	WriteVersion int `json:"write_version" yaml:"write_version" toml:"write_version"`
	// Padding 是写回时帧之后追加的填充字节数。
	Padding       int `json:"padding" yaml:"padding" toml:"padding"`
	Workers       int `json:"workers" yaml:"workers" toml:"workers"`
	QueueSize     int `json:"queue_size" yaml:"queue_size" toml:"queue_size"`
	JobTTLMinutes int `json:"job_ttl_minutes" yaml:"job_ttl_minutes" toml:"job_ttl_minutes"`
}

// LogConfig 定义了日志相关的配置。
type LogConfig struct {
	// File 为空时只输出到标准输出。
	File  string `json:"file" yaml:"file" toml:"file"`
	Level string `json:"level" yaml:"level" toml:"level"`
}

// Load 从指定的路径加载配置文件，文件格式由扩展名决定（.json、.yaml、.yml、.toml）。
// 如果 configPath 为空，则从默认配置开始。
// 文件中没有出现的字段保留默认值，之后依次应用 .env 文件和 ZERO_TAGS_* 环境变量。
func Load(configPath string) (*Config, error) {
	loadDotEnv(configPath)

	cfg := GetDefaultConfig()
	if configPath != "" {
		// 读取配置文件。
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := decode(configPath, data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", configPath, err)
		}
	}

	// 应用环境变量覆盖配置
	applyEnvOverrides(cfg)

	// 将音乐目录的相对路径转换为绝对路径。
	if !filepath.IsAbs(cfg.Music.Directory) {
		if absPath, err := filepath.Abs(cfg.Music.Directory); err == nil {
			cfg.Music.Directory = absPath
		}
	}

	// 验证配置的有效性
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

// decode 按扩展名把 data 解析到 cfg 中。
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return fmt.Errorf("不支持的配置文件格式: %s", filepath.Ext(path))
	}
}

// loadDotEnv 加载配置文件所在目录和当前目录下的 .env 文件。
// 已经存在的环境变量不会被覆盖，文件不存在时忽略。
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		if dir := filepath.Dir(configPath); dir != "." {
			candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
		}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// applyEnvOverrides 使用环境变量覆盖配置，无法解析的值被忽略
func applyEnvOverrides(cfg *Config) {
	// 服务器配置
	if host := getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	envInt("SERVER_PORT", &cfg.Server.Port)
	if origins := getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}

	// 音乐配置
	if musicDir := getenv("MUSIC_DIRECTORY"); musicDir != "" {
		cfg.Music.Directory = musicDir
	}
	if formats := getenv("SUPPORTED_FORMATS"); formats != "" {
		cfg.Music.SupportedFormats = splitList(formats)
	}
	envInt("CACHE_TTL_MINUTES", &cfg.Music.CacheTTLMinutes)

	// 标签配置
	envInt("WRITE_VERSION", &cfg.Tags.WriteVersion)
	envInt("PADDING", &cfg.Tags.Padding)
	envInt("WORKERS", &cfg.Tags.Workers)
	envInt("QUEUE_SIZE", &cfg.Tags.QueueSize)
	envInt("JOB_TTL_MINUTES", &cfg.Tags.JobTTLMinutes)

	// 日志配置
	if file := getenv("LOG_FILE"); file != "" {
		cfg.Log.File = file
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func envInt(name string, dst *int) {
	if v := getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validateConfig 验证配置的合法性
func validateConfig(cfg *Config) error {
	// 验证端口范围
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("端口必须在 1-65535 范围内，当前值: %d", cfg.Server.Port)
	}

	// 验证 CacheTTL
	if cfg.Music.CacheTTLMinutes < 0 || cfg.Music.CacheTTLMinutes > MaxAllowedCacheTTL {
		return fmt.Errorf("CacheTTLMinutes 必须在 0-%d 范围内，当前值: %d", MaxAllowedCacheTTL, cfg.Music.CacheTTLMinutes)
	}
	if len(cfg.Music.SupportedFormats) == 0 {
		return errors.New("至少需要一个支持的文件格式")
	}

	// 验证标签配置
	if cfg.Tags.WriteVersion != 3 && cfg.Tags.WriteVersion != 4 {
		return fmt.Errorf("WriteVersion 只能是 3 或 4，当前值: %d", cfg.Tags.WriteVersion)
	}
	if cfg.Tags.Padding < 0 || cfg.Tags.Padding > MaxAllowedPadding {
		return fmt.Errorf("Padding 必须在 0-%d 范围内，当前值: %d", MaxAllowedPadding, cfg.Tags.Padding)
	}
	if cfg.Tags.Workers < 1 || cfg.Tags.Workers > MaxAllowedWorkers {
		return fmt.Errorf("Workers 必须在 1-%d 范围内，当前值: %d", MaxAllowedWorkers, cfg.Tags.Workers)
	}
	if cfg.Tags.QueueSize < 0 || cfg.Tags.QueueSize > MaxAllowedQueueSize {
		return fmt.Errorf("QueueSize 必须在 0-%d 范围内，当前值: %d", MaxAllowedQueueSize, cfg.Tags.QueueSize)
	}
	if cfg.Tags.JobTTLMinutes < 0 || cfg.Tags.JobTTLMinutes > MaxAllowedCacheTTL {
		return fmt.Errorf("JobTTLMinutes 必须在 0-%d 范围内，当前值: %d", MaxAllowedCacheTTL, cfg.Tags.JobTTLMinutes)
	}

	// 验证音乐目录是否可读
	if _, err := os.Stat(cfg.Music.Directory); err != nil {
		return fmt.Errorf("音乐目录不可访问: %v", err)
	}

	return nil
}

// GetDefaultConfig 返回一个包含默认设置的配置实例。
func GetDefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	musicDir := filepath.Join(homeDir, "Music")
	// 如果默认的 Music 目录不存在，则使用当前工作目录下的 "music" 文件夹。
	if _, err := os.Stat(musicDir); os.IsNotExist(err) {
		musicDir, _ = filepath.Abs("./music")
	}

	return &Config{
		Server: ServerConfig{
			Host:        DefaultServerHost,
			Port:        DefaultServerPort,
			CORSOrigins: []string{"*"},
		},
		Music: MusicConfig{
			Directory:        musicDir,
			SupportedFormats: []string{".mp3"},
			CacheTTLMinutes:  DefaultCacheTTLMinutes,
		},
		Tags: TagsConfig{
			WriteVersion:  DefaultWriteVersion,
			Workers:       DefaultWorkers,
			QueueSize:     DefaultQueueSize,
			JobTTLMinutes: DefaultJobTTLMinutes,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}
