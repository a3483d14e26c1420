package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 评估服务配置
type Config struct {
	// DynamoDB 表名（必填）
	DynamoTableName string
	// SNS 主题 ARN（必填）
	SNSTopicARN string

	// 评估窗口配置
	Evaluation struct {
		EnvWindowMinutes int     // 环境均值窗口（分钟），默认 30
		TrendWindowHours int     // 趋势检测窗口（小时），默认 3
		DefaultThreshold float64 // 默认病害风险阈值，默认 0.8
	}

	// 报警限流配置
	Alerting struct {
		CooldownHours int // 同一报警的冷却时间（小时），默认 24
		MaxAlertCount int // 同一报警的最大发送次数，默认 3
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DynamoTableName = os.Getenv("DYNAMO_TABLE_NAME")
	if cfg.DynamoTableName == "" {
		return nil, fmt.Errorf("DYNAMO_TABLE_NAME environment variable is required")
	}

	cfg.SNSTopicARN = os.Getenv("SNS_TOPIC_ARN")
	if cfg.SNSTopicARN == "" {
		return nil, fmt.Errorf("SNS_TOPIC_ARN environment variable is required")
	}

	var err error
	if cfg.Evaluation.EnvWindowMinutes, err = getEnvInt("ENV_WINDOW_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.Evaluation.TrendWindowHours, err = getEnvInt("TREND_WINDOW_HOURS", 3); err != nil {
		return nil, err
	}
	if cfg.Evaluation.DefaultThreshold, err = getEnvFloat("DEFAULT_THRESHOLD", 0.8); err != nil {
		return nil, err
	}

	if cfg.Alerting.CooldownHours, err = getEnvInt("ALERT_COOLDOWN_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.Alerting.MaxAlertCount, err = getEnvInt("MAX_ALERT_COUNT", 3); err != nil {
		return nil, err
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// EnvWindow 环境均值窗口时长
func (c *Config) EnvWindow() time.Duration {
	return time.Duration(c.Evaluation.EnvWindowMinutes) * time.Minute
}

// TrendWindow 趋势检测窗口时长
func (c *Config) TrendWindow() time.Duration {
	return time.Duration(c.Evaluation.TrendWindowHours) * time.Hour
}

// Cooldown 报警冷却时长
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Alerting.CooldownHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return parsed, nil
}
