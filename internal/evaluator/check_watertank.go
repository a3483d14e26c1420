package evaluator

import (
	"context"
	"time"

	"plantwatch-evaluator/internal/models"
	"plantwatch-evaluator/internal/repository"

	"go.uber.org/zap"
)

// WaterTankChecker 水箱检查器
// 取环境窗口内最新的一条遥测，解析水箱空置标志
type WaterTankChecker struct {
	readings *repository.ReadingRepository
	logger   *zap.Logger
}

// NewWaterTankChecker 创建水箱检查器
func NewWaterTankChecker(readings *repository.ReadingRepository, logger *zap.Logger) *WaterTankChecker {
	return &WaterTankChecker{
		readings: readings,
		logger:   logger,
	}
}

// Check 评估水箱条件，windowStart/windowEnd 为环境窗口
func (c *WaterTankChecker) Check(ctx context.Context, deviceID string, windowStart, windowEnd time.Time) (*models.Alert, error) {
	latest, err := c.readings.LatestTelemetry(ctx, deviceID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	empty, ok := ResolveTankEmpty(latest.Metrics)
	if !ok || empty != 1 {
		return nil, nil
	}

	return &models.Alert{
		DeviceID: deviceID,
		Type:     models.AlertTypeWaterTankEmpty,
		Category: models.CategoryWaterTankEmpty,
		Data: map[string]interface{}{
			"status":  "empty",
			"message": "Water tank is empty and requires refill",
		},
	}, nil
}

// ResolveTankEmpty 解析水箱空置标志
// waterTankFilled 优先（反转：filled==1 → empty=0，否则 empty=1），
// 其次直接读 waterTankEmpty；两者都缺失时返回 ok=false
func ResolveTankEmpty(metrics map[string]interface{}) (int, bool) {
	if raw, exists := metrics["waterTankFilled"]; exists {
		if filled, ok := models.NumericValue(raw); ok {
			if filled == 1 {
				return 0, true
			}
			return 1, true
		}
		return 0, false
	}

	if raw, exists := metrics["waterTankEmpty"]; exists {
		if empty, ok := models.NumericValue(raw); ok {
			return int(empty), true
		}
		return 0, false
	}

	return 0, false
}
