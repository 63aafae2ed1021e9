package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sentinel-ledger/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	API      APIConfig      `mapstructure:"api"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Query    QueryConfig    `mapstructure:"query"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Job      JobConfig      `mapstructure:"job"`
	Chain    ChainConfig    `mapstructure:"chain"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

// APIConfig REST 接口配置
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"`    // 秒
	RateLimit int    `mapstructure:"rate_limit"` // 每分钟请求次数
	UserAgent string `mapstructure:"user_agent"`
}

// RealtimeConfig WebSocket 推送配置
type RealtimeConfig struct {
	WSURL               string `mapstructure:"ws_url"`
	ReconnectAttempts   int    `mapstructure:"reconnect_attempts"`
	ReconnectDelayMS    int    `mapstructure:"reconnect_delay_ms"`
	ReconnectDelayMaxMS int    `mapstructure:"reconnect_delay_max_ms"`
	PingInterval        int    `mapstructure:"ping_interval"` // 秒
}

// QueryConfig 查询缓存配置
type QueryConfig struct {
	StaleTimeMS int `mapstructure:"stale_time_ms"`
	GCTimeMS    int `mapstructure:"gc_time_ms"`
}

// StorageConfig 本地设置持久化配置
type StorageConfig struct {
	Driver    string `mapstructure:"driver"` // file | redis | memory
	Path      string `mapstructure:"path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

type JobConfig struct {
	HealthInterval int `mapstructure:"health_interval"` // 秒
}

// ChainConfig 链上核验用的 RPC 节点，按链名配置，为空时跳过核验
type ChainConfig struct {
	RPC         map[string]string `mapstructure:"rpc"`
	DialTimeout int               `mapstructure:"dial_timeout"` // 秒
}

// RPCURL 未配置时返回空字符串
func (c ChainConfig) RPCURL(chain string) string {
	return c.RPC[strings.ToLower(chain)]
}

func (c ChainConfig) DialTimeoutDuration() time.Duration {
	return time.Duration(c.DialTimeout) * time.Second
}

func (c APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c RealtimeConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

func (c RealtimeConfig) ReconnectDelayMax() time.Duration {
	return time.Duration(c.ReconnectDelayMaxMS) * time.Millisecond
}

func (c RealtimeConfig) PingIntervalDuration() time.Duration {
	return time.Duration(c.PingInterval) * time.Second
}

func (c QueryConfig) StaleTime() time.Duration {
	return time.Duration(c.StaleTimeMS) * time.Millisecond
}

func (c QueryConfig) GCTime() time.Duration {
	return time.Duration(c.GCTimeMS) * time.Millisecond
}

func (c JobConfig) HealthIntervalDuration() time.Duration {
	return time.Duration(c.HealthInterval) * time.Second
}

// SetDefaults 写入内置默认值，所有配置项都可以缺省
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")

	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout", 30)
	v.SetDefault("api.rate_limit", 600)
	v.SetDefault("api.user_agent", "sentinel-ledger/1.0")

	v.SetDefault("realtime.ws_url", "ws://localhost:8000/ws")
	v.SetDefault("realtime.reconnect_attempts", 5)
	v.SetDefault("realtime.reconnect_delay_ms", 1000)
	v.SetDefault("realtime.reconnect_delay_max_ms", 5000)
	v.SetDefault("realtime.ping_interval", 30)

	v.SetDefault("query.stale_time_ms", 0)
	v.SetDefault("query.gc_time_ms", 5*60*1000)

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", ".sentinel/storage.json")
	v.SetDefault("storage.key_prefix", "sentinel:")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("monitor.enable", false)
	v.SetDefault("monitor.prometheus_addr", ":9100")

	v.SetDefault("job.health_interval", 60)

	v.SetDefault("chain.dial_timeout", 5)
}

// BindEnv 环境变量覆盖：SENTINEL_ 前缀，. 替换为 _
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容前端使用的短名称
	_ = v.BindEnv("realtime.ws_url", "SENTINEL_WS_URL", "SENTINEL_REALTIME_WS_URL")
}

// Load 从 viper 实例解码配置
func Load(v *viper.Viper) (Config, error) {
	var config Config
	if err := mapstructure.WeakDecode(v.AllSettings(), &config); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate 检查配置合法性
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if !strings.HasPrefix(c.Realtime.WSURL, "ws://") && !strings.HasPrefix(c.Realtime.WSURL, "wss://") {
		return fmt.Errorf("invalid realtime.ws_url: %s", c.Realtime.WSURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %d", c.API.Timeout)
	}
	for chain, url := range c.Chain.RPC {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") &&
			!strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("invalid chain.rpc.%s: %s", chain, url)
		}
	}
	switch c.Storage.Driver {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage.driver: %s", c.Storage.Driver)
	}
	return nil
}

func InitConfig() Config {
	SetDefaults(viper.GetViper())
	BindEnv(viper.GetViper())

	viper.SetConfigName("config.ledger")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %s", err))
		}
	}

	config, err := Load(viper.GetViper())
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return config
}

func WatchConfig(config *Config) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := Load(viper.GetViper())
		if err != nil {
			return
		}
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}
