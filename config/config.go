package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var (
	globalConfig Config
	configMu     sync.RWMutex
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 存储配置
	StorageType          string `mapstructure:"storage_type"`
	StorageRoot          string `mapstructure:"storage_root"`
	StorageTempDir       string `mapstructure:"storage_temp_dir"`
	MinioEndpoint        string `mapstructure:"minio_endpoint"`
	MinioAccessKeyID     string `mapstructure:"minio_access_key_id"`
	MinioSecretAccessKey string `mapstructure:"minio_secret_access_key"`
	MinioUseSSL          bool   `mapstructure:"minio_use_ssl"`
	MinioBucketName      string `mapstructure:"minio_bucket_name"`
	WebDAVURL            string `mapstructure:"webdav_url"`
	WebDAVUsername       string `mapstructure:"webdav_username"`
	WebDAVPassword       string `mapstructure:"webdav_password"`
	WebDAVRootPath       string `mapstructure:"webdav_root_path"`

	// 上传校验配置
	UploadAcceptedFormats []string `mapstructure:"upload_accepted_formats"`
	UploadMaxSizeKB       int64    `mapstructure:"upload_max_size_kb"`
	UploadMaxPixels       int64    `mapstructure:"upload_max_pixels"`
	UploadMaxBatchFiles   int      `mapstructure:"upload_max_batch_files"`

	// 缩略图配置
	ImageLib                string          `mapstructure:"image_lib"`
	ImageMagickPath         string          `mapstructure:"imagemagick_path"`
	ThumbnailSizes          []ThumbnailSize `mapstructure:"-"`
	ThumbnailQuality        int             `mapstructure:"thumbnail_quality"`
	ThumbnailTimeout        time.Duration   `mapstructure:"thumbnail_timeout"`
	ThumbnailMaxConcurrency int             `mapstructure:"thumbnail_max_concurrent"`

	// 生命周期配置
	RollbackOnValidationFailure bool          `mapstructure:"rollback_on_validation_failure"`
	OrphanRecordMaxAge          time.Duration `mapstructure:"orphan_record_max_age"`
	MaxViewScan                 int           `mapstructure:"max_view_scan"`

	// 缓存提供者配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	QuotaCacheTTL      time.Duration `mapstructure:"quota_cache_ttl"`

	// 事件配置
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	// 认证配置
	JWTSecret string `mapstructure:"jwt_secret"`

	// 限流配置
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitImageRPS   float64       `mapstructure:"rate_limit_image_rps"`
	RateLimitImageBurst int           `mapstructure:"rate_limit_image_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`

	// Worker 配置
	WorkerCount int `mapstructure:"worker_count"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

// Get 返回当前配置快照
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	cfg := globalConfig
	return &cfg
}

// loadConfig Core configuration loading
func loadConfig() {
	setDefaults()

	configFile := viper.GetString("config_file_path")
	if configFile == "" {
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")
	} else {
		viper.SetConfigFile(configFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Info: config file not found, using defaults and environment variables")
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", viper.ConfigFileUsed())
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		_ = viper.BindEnv(key)
	}

	cfg, err := decode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	configMu.Lock()
	globalConfig = *cfg
	configMu.Unlock()
}

// decode 从 viper 解析出完整配置
func decode() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	sizes, err := decodeThumbnailSizes(viper.Get("thumbnail_sizes"))
	if err != nil {
		return nil, fmt.Errorf("invalid thumbnail_sizes: %w", err)
	}
	cfg.ThumbnailSizes = sizes
	cfg.UploadAcceptedFormats = splitList(cfg.UploadAcceptedFormats)
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	// WorkerCount: -1 = 使用 CPU 线程数, 0 = 默认值
	switch {
	case cfg.WorkerCount < 0:
		cfg.WorkerCount = runtime.GOMAXPROCS(0)
	case cfg.WorkerCount == 0:
		cfg.WorkerCount = getCpus()
	}

	return &cfg, nil
}

// decodeThumbnailSizes 支持结构化列表 (yaml/json) 与 "thumb:60x60:square,..." 字符串两种写法
func decodeThumbnailSizes(raw interface{}) ([]ThumbnailSize, error) {
	if s, ok := raw.(string); ok {
		return ParseThumbnailSizes(s)
	}

	var sizes []ThumbnailSize
	if err := mapstructure.Decode(raw, &sizes); err != nil {
		return nil, err
	}
	for i := range sizes {
		if sizes[i].Prefix == "" {
			sizes[i].Prefix = defaultPrefix(sizes[i].Name)
		}
	}
	return sizes, nil
}

// splitList 兼容 env 形式的逗号分隔列表
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Watch 监听配置文件变化并在重新加载后回调
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring invalid config change in %s: %v\n", e.Name, err)
			return
		}

		configMu.Lock()
		globalConfig = *cfg
		configMu.Unlock()

		if onChange != nil {
			onChange(cfg)
		}
	})
	viper.WatchConfig()
}

// setDefaults 设置默认值
func setDefaults() {
	// 服务器配置默认值
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "60s")
	viper.SetDefault("server_idle_timeout", "120s")

	// 数据库配置默认值
	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "tidypics")
	viper.SetDefault("db_file_path", "./data/tidypics.db")
	viper.SetDefault("db_max_open_conns", 100)
	viper.SetDefault("db_max_idle_conns", 25)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	// 存储配置默认值
	viper.SetDefault("storage_type", "local")
	viper.SetDefault("storage_root", "./data/photos")
	viper.SetDefault("storage_temp_dir", "./data/temp")
	viper.SetDefault("minio_bucket_name", "tidypics")
	viper.SetDefault("webdav_root_path", "/tidypics")

	// 上传校验默认值 (maxfilesize 10240 KB)
	viper.SetDefault("upload_accepted_formats", []string{"image/jpeg", "image/pjpeg", "image/png", "image/gif", "image/webp"})
	viper.SetDefault("upload_max_size_kb", 10240)
	viper.SetDefault("upload_max_pixels", 25000000)
	viper.SetDefault("upload_max_batch_files", 20)

	// 缩略图默认值
	viper.SetDefault("image_lib", ImageLibGD)
	viper.SetDefault("imagemagick_path", "convert")
	viper.SetDefault("thumbnail_sizes", "thumb:60x60:square,small:153x153:square,large:600x600")
	viper.SetDefault("thumbnail_quality", 85)
	viper.SetDefault("thumbnail_timeout", "30s")
	viper.SetDefault("thumbnail_max_concurrent", 2)

	// 生命周期默认值
	viper.SetDefault("rollback_on_validation_failure", false)
	viper.SetDefault("orphan_record_max_age", "24h")
	viper.SetDefault("max_view_scan", 99999)

	// 缓存提供者配置默认值
	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)
	viper.SetDefault("quota_cache_ttl", "5m")

	// 事件默认值，broker 为空时不发布
	viper.SetDefault("kafka_brokers", []string{})
	viper.SetDefault("kafka_topic", "tidypics.image-events")

	viper.SetDefault("jwt_secret", "")

	// 限流配置默认值
	viper.SetDefault("rate_limit_api_rps", 30.0)
	viper.SetDefault("rate_limit_api_burst", 60)
	viper.SetDefault("rate_limit_image_rps", 100.0)
	viper.SetDefault("rate_limit_image_burst", 200)
	viper.SetDefault("rate_limit_expire_time", "10m")

	viper.SetDefault("worker_count", 0)
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回站点根 URL，始终以 "/" 结尾
func (c *Config) BaseURL() string {
	base := c.ServerDomain
	if base == "" {
		host := c.ServerHost
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		base = fmt.Sprintf("http://%s:%d", host, c.ServerPort)
	}
	return strings.TrimRight(base, "/") + "/"
}

// getCpus 获取默认线程数量
func getCpus() int {
	n := runtime.GOMAXPROCS(0)
	if n < 2 {
		return 2
	}
	return n
}
