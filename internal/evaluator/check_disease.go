package evaluator

import (
	"context"
	"strings"
	"time"

	"plantwatch-evaluator/internal/config"
	"plantwatch-evaluator/internal/models"
	"plantwatch-evaluator/internal/repository"

	"go.uber.org/zap"
)

// DiseaseChecker 病害检查器
// 取设备最新的病害推理记录，标签为病害时触发报警；
// 标签完全缺失时退回按风险评分与阈值比较（兼容旧推理管线）
type DiseaseChecker struct {
	config   *config.Config
	readings *repository.ReadingRepository
	logger   *zap.Logger
}

// NewDiseaseChecker 创建病害检查器
func NewDiseaseChecker(cfg *config.Config, readings *repository.ReadingRepository, logger *zap.Logger) *DiseaseChecker {
	return &DiseaseChecker{
		config:   cfg,
		readings: readings,
		logger:   logger,
	}
}

// Check 评估病害条件，windowStart/windowEnd 为环境均值窗口
// 无报警时返回 nil
func (c *DiseaseChecker) Check(ctx context.Context, deviceID string, windowStart, windowEnd time.Time) (*models.Alert, error) {
	readings, err := c.readings.QueryDeviceReadings(ctx, deviceID, true)
	if err != nil {
		return nil, err
	}

	// 最新的病害记录（查询已按降序返回）
	var latest *models.Reading
	for i := range readings {
		if readings[i].ReadingType == models.ReadingTypeDisease {
			latest = &readings[i]
			break
		}
	}
	if latest == nil {
		return nil, nil
	}

	label := deriveLabel(latest)
	score, hasScore := diseaseScore(latest.Metrics)

	diseased := false
	switch {
	case label != "":
		normalized := strings.ToLower(label)
		diseased = normalized == "disease" || normalized == "diseased"
	case hasScore:
		// 标签缺失：按设备阈值（缺省为全局默认）比较风险评分
		diseased = score >= c.threshold(ctx, deviceID)
		if diseased {
			label = "disease"
		}
	}

	if !diseased {
		return nil, nil
	}

	data := map[string]interface{}{
		"label": strings.ToLower(label),
	}
	if hasScore {
		data["diseaseRisk"] = score
	}
	data["environmentAverages"] = c.environmentAverages(ctx, deviceID, windowStart, windowEnd)

	return &models.Alert{
		DeviceID: deviceID,
		Type:     models.AlertTypeDiseaseDetected,
		Category: models.CategoryDisease,
		Data:     data,
	}, nil
}

// deriveLabel 推导病害标签，按优先级：
// 顶层 label → metrics.label → raw.label → binary_prediction 归一化
func deriveLabel(reading *models.Reading) string {
	if reading.Label != "" {
		return reading.Label
	}
	if label, ok := models.StringValue(reading.Metrics["label"]); ok && label != "" {
		return label
	}
	if label, ok := models.StringValue(reading.Raw["label"]); ok && label != "" {
		return label
	}

	// binary_prediction：大小写不敏感，非 healthy 一律视为病害
	for _, source := range []map[string]interface{}{reading.Metrics, reading.Raw} {
		if prediction, ok := models.StringValue(source["binary_prediction"]); ok && prediction != "" {
			if strings.ToLower(prediction) != "healthy" {
				return "disease"
			}
			return "healthy"
		}
	}

	return ""
}

// diseaseScore 提取风险评分（diseaseRisk 优先于 confidence）
func diseaseScore(metrics map[string]interface{}) (float64, bool) {
	for _, key := range []string{"diseaseRisk", "confidence"} {
		if value, ok := models.NumericValue(metrics[key]); ok {
			return value, true
		}
	}
	return 0, false
}

// threshold 获取设备的病害风险阈值，配置缺失或查询失败时降级为全局默认
func (c *DiseaseChecker) threshold(ctx context.Context, deviceID string) float64 {
	deviceConfig, err := c.readings.GetDeviceConfig(ctx, deviceID)
	if err != nil {
		c.logger.Warn("Failed to load device config, using default threshold",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return c.config.Evaluation.DefaultThreshold
	}
	if deviceConfig == nil || deviceConfig.Threshold == nil {
		return c.config.Evaluation.DefaultThreshold
	}
	return *deviceConfig.Threshold
}

// environmentAverages 计算窗口内各环境指标的均值，无样本的指标省略
// 查询失败降级为空映射（报警本身不受影响）
func (c *DiseaseChecker) environmentAverages(ctx context.Context, deviceID string, windowStart, windowEnd time.Time) map[string]float64 {
	averages := make(map[string]float64)

	readings, err := c.readings.QueryTelemetryInRange(ctx, deviceID, windowStart, windowEnd)
	if err != nil {
		c.logger.Warn("Failed to query telemetry for environment averages",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return averages
	}

	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, reading := range readings {
		for _, metric := range models.EnvironmentMetrics() {
			if value, ok := models.MetricValue(reading.Metrics, metric); ok {
				totals[metric] += value
				counts[metric]++
			}
		}
	}

	for metric, count := range counts {
		if count > 0 {
			averages[metric] = totals[metric] / float64(count)
		}
	}

	return averages
}
