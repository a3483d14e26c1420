package models

import (
	"strconv"
	"strings"
)

// 读数类型
const (
	ReadingTypeTelemetry = "telemetry"
	ReadingTypeDisease   = "disease"
)

// 保留分区键（与真实设备共用同一表的系统记录）
const (
	DeviceIDUserPlants    = "USER_PLANTS"
	DeviceIDAlertStates   = "ALERT_STATES"
	DeviceIDAlertTracking = "ALERT_TRACKING"
)

// 保留排序键
const (
	SortKeyConfig  = "CONFIG"
	SortKeyCurrent = "CURRENT"
)

var reservedDeviceIDs = map[string]bool{
	DeviceIDUserPlants:    true,
	DeviceIDAlertStates:   true,
	DeviceIDAlertTracking: true,
}

// IsReservedDeviceID 判断是否为系统保留分区键
func IsReservedDeviceID(deviceID string) bool {
	return reservedDeviceIDs[deviceID]
}

// IsDiseaseVocabulary 判断字符串是否为病害词汇（用于排除误存的设备ID/名称）
func IsDiseaseVocabulary(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disease", "diseased", "healthy":
		return true
	}
	return false
}

// Reading 一条遥测或病害推理读数
type Reading struct {
	DeviceID    string                 `dynamodbav:"deviceId" json:"deviceId"`
	Timestamp   string                 `dynamodbav:"timestamp" json:"timestamp"`
	ReadingType string                 `dynamodbav:"readingType" json:"readingType"`
	Metrics     map[string]interface{} `dynamodbav:"metrics,omitempty" json:"metrics,omitempty"`
	Raw         map[string]interface{} `dynamodbav:"raw,omitempty" json:"raw,omitempty"`
	Label       string                 `dynamodbav:"label,omitempty" json:"label,omitempty"`
}

// DeviceConfig 设备配置（存储于排序键 CONFIG 的记录）
type DeviceConfig struct {
	PlantType             *string  `dynamodbav:"plantType,omitempty" json:"plantType,omitempty"`
	Threshold             *float64 `dynamodbav:"threshold,omitempty" json:"threshold,omitempty"`
	SoilMoistureThreshold *float64 `dynamodbav:"soilMoistureThreshold,omitempty" json:"soilMoistureThreshold,omitempty"`
	TemperatureCThreshold *float64 `dynamodbav:"temperatureCThreshold,omitempty" json:"temperatureCThreshold,omitempty"`
	LightLuxThreshold     *float64 `dynamodbav:"lightLuxThreshold,omitempty" json:"lightLuxThreshold,omitempty"`
}

// 环境指标名称
const (
	MetricTemperature  = "temperature"
	MetricHumidity     = "humidity"
	MetricSoilMoisture = "moisture"
	MetricLight        = "lux"
)

// environmentAliases 指标别名表：指标名 → 按优先级排列的载荷键名。
// 上游设备固件版本不同，同一指标会以不同键名上报。
var environmentAliases = map[string][]string{
	MetricTemperature:  {"temperature", "temperatureC", "temperature_c"},
	MetricHumidity:     {"humidity"},
	MetricSoilMoisture: {"soil_moisture", "soilMoisture"},
	MetricLight:        {"light_lux", "lightLux", "lux"},
}

// EnvironmentMetrics 返回所有环境指标名称（固定顺序）
func EnvironmentMetrics() []string {
	return []string{MetricTemperature, MetricHumidity, MetricSoilMoisture, MetricLight}
}

// MetricValue 按别名表提取指标数值
func MetricValue(metrics map[string]interface{}, name string) (float64, bool) {
	aliases, ok := environmentAliases[name]
	if !ok {
		aliases = []string{name}
	}
	for _, alias := range aliases {
		raw, exists := metrics[alias]
		if !exists || raw == nil {
			continue
		}
		if value, ok := NumericValue(raw); ok {
			return value, true
		}
	}
	return 0, false
}

// NumericValue 将动态载荷值转换为 float64（容忍字符串编码的数字）
func NumericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// StringValue 将动态载荷值转换为字符串
func StringValue(raw interface{}) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}
