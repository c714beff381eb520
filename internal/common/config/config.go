package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Log      LogConfig      `json:"log"`
	Dispatch DispatchConfig `json:"dispatch"`
	Gateway  GatewayConfig  `json:"gateway"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	GRPCPort int    `json:"grpc_port"` // gRPC端口（health/reflection）
	HTTPPort int    `json:"http_port"` // HTTP端口（业务 API）

	// 限流（令牌桶），容量或速率为 0 表示不限流
	RateLimitCapacity int64 `json:"rate_limit_capacity"` // 桶容量
	RateLimitPerSec   int64 `json:"rate_limit_per_sec"`  // 每秒补充令牌数
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Driver string `json:"driver"` // logrus, zap
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// DispatchConfig 调度核心配置
type DispatchConfig struct {
	TripIDPrefix string `json:"trip_id_prefix"` // 行程单号前缀，如 TRP
	TripIDPad    int    `json:"trip_id_pad"`    // 单号数字位数（零填充），超出自动加宽
}

// GatewayConfig API 网关配置
type GatewayConfig struct {
	Listen         string `json:"listen"`          // 监听地址，如 :8080
	BackendService string `json:"backend_service"` // 后端服务在 Consul 中的名称
	MaxFailures    int    `json:"max_failures"`    // 熔断阈值
	ResetSeconds   int    `json:"reset_seconds"`   // 熔断重置时间（秒）
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		cfg, parseErr := parseConfig(data)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", parseErr)
			return
		}
		globalConfig = cfg
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// parseConfig 解析 JSON 配置内容（文件与 Consul KV 共用）。
func parseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "dispatch-service",
			Host:     "0.0.0.0",
			GRPCPort: 50051,
			HTTPPort: 8081,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "fleetorbit",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Driver: "logrus",
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
		Dispatch: DispatchConfig{
			TripIDPrefix: "TRP",
			TripIDPad:    3,
		},
		Gateway: GatewayConfig{
			Listen:         ":8080",
			BackendService: "dispatch-service",
			MaxFailures:    5,
			ResetSeconds:   30,
		},
	}
}
