package evaluator

import (
	"context"
	"time"

	"plantwatch-evaluator/internal/models"
	"plantwatch-evaluator/internal/repository"

	"go.uber.org/zap"
)

// TrendChecker 趋势检查器
// 在趋势窗口内取遥测序列，交给趋势分析器，对急剧变化逐指标产出报警
type TrendChecker struct {
	readings *repository.ReadingRepository
	logger   *zap.Logger
}

// NewTrendChecker 创建趋势检查器
func NewTrendChecker(readings *repository.ReadingRepository, logger *zap.Logger) *TrendChecker {
	return &TrendChecker{
		readings: readings,
		logger:   logger,
	}
}

// Check 评估趋势条件，windowStart/windowEnd 为趋势窗口
func (c *TrendChecker) Check(ctx context.Context, deviceID string, windowStart, windowEnd time.Time) ([]models.Alert, error) {
	readings, err := c.readings.QueryTelemetryInRange(ctx, deviceID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if len(readings) < 2 {
		return nil, nil
	}

	report := AnalyzeTrends(c.extractPoints(readings), windowEnd)

	var alerts []models.Alert

	// 温度：只对上升报警（下降分类保留在报告中，不产出报警类别）
	if report.Temperature.Trend.Increasing() {
		alerts = append(alerts, trendAlert(deviceID, models.AlertTypeTemperatureTrend, report.Temperature, map[string]interface{}{
			"rate": report.Temperature.Rate,
		}))
	}
	if report.Humidity.Trend.Decreasing() {
		alerts = append(alerts, trendAlert(deviceID, models.AlertTypeHumidityTrend, report.Humidity, nil))
	}
	if report.Light.Trend.Decreasing() {
		alerts = append(alerts, trendAlert(deviceID, models.AlertTypeLightTrend, report.Light, nil))
	}
	if report.SoilMoisture.Trend.Decreasing() {
		alerts = append(alerts, trendAlert(deviceID, models.AlertTypeSoilMoistureTrend, report.SoilMoisture, nil))
	}

	return alerts, nil
}

// extractPoints 从遥测读数提取各指标的数据点序列
// 排序键不可解析的读数跳过；读数序列按排序键升序，数据点保持时间升序
func (c *TrendChecker) extractPoints(readings []models.Reading) map[string][]MetricPoint {
	points := make(map[string][]MetricPoint)

	for _, reading := range readings {
		key, err := models.ParseRecordKey(reading.Timestamp)
		if err != nil {
			c.logger.Warn("Failed to parse reading timestamp, skipping",
				zap.String("device_id", reading.DeviceID),
				zap.String("timestamp", reading.Timestamp),
				zap.Error(err),
			)
			continue
		}

		for _, metric := range models.EnvironmentMetrics() {
			if value, ok := models.MetricValue(reading.Metrics, metric); ok {
				points[metric] = append(points[metric], MetricPoint{At: key.Instant, Value: value})
			}
		}
	}

	return points
}

// trendAlert 构建单指标的趋势报警
func trendAlert(deviceID, alertType string, trend MetricTrend, extra map[string]interface{}) models.Alert {
	data := map[string]interface{}{
		"trend":        string(trend.Trend),
		"change":       trend.Change,
		"start":        trend.Start,
		"end":          trend.End,
		"period_hours": trend.PeriodHours,
	}
	for key, value := range extra {
		data[key] = value
	}

	return models.Alert{
		DeviceID: deviceID,
		Type:     alertType,
		Category: models.CategoryTrends,
		Data:     data,
	}
}
