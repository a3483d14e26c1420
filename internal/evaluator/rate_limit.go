package evaluator

import (
	"context"
	"time"

	"plantwatch-evaluator/internal/models"
	"plantwatch-evaluator/internal/repository"

	"go.uber.org/zap"
)

// RateLimiter 报警发送限流器
// 按 (报警类型, 设备) 维护发送计数和冷却时间。
// 任何查询/解析失败一律放行：通知可用性优先于限流精确性
type RateLimiter struct {
	tracking *repository.AlertStateRepository
	maxCount int
	cooldown time.Duration
	logger   *zap.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(tracking *repository.AlertStateRepository, maxCount int, cooldown time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		tracking: tracking,
		maxCount: maxCount,
		cooldown: cooldown,
		logger:   logger,
	}
}

// Allow 判断是否允许发送
func (l *RateLimiter) Allow(ctx context.Context, alertType, deviceID string, now time.Time) bool {
	record, err := l.tracking.GetTracking(ctx, alertType, deviceID)
	if err != nil {
		l.logger.Warn("Failed to read alert tracking record, allowing send",
			zap.String("alert_type", alertType),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return true
	}
	// 无记录即从未发送过
	if record == nil {
		return true
	}

	if record.Count >= l.maxCount {
		l.logger.Info("Alert suppressed: max send count reached",
			zap.String("alert_type", alertType),
			zap.String("device_id", deviceID),
			zap.Int("count", record.Count),
		)
		return false
	}

	lastSent, err := time.Parse(time.RFC3339, record.LastSent)
	if err != nil {
		l.logger.Warn("Failed to parse lastSent timestamp, allowing send",
			zap.String("alert_type", alertType),
			zap.String("device_id", deviceID),
			zap.String("last_sent", record.LastSent),
			zap.Error(err),
		)
		return true
	}

	if now.Sub(lastSent) < l.cooldown {
		l.logger.Info("Alert suppressed: cooldown in effect",
			zap.String("alert_type", alertType),
			zap.String("device_id", deviceID),
			zap.Time("last_sent", lastSent),
		)
		return false
	}

	return true
}

// RecordSend 发送成功后更新计数记录
// 写入失败只记日志，不影响评估继续
func (l *RateLimiter) RecordSend(ctx context.Context, alertType, deviceID string, now time.Time) {
	record, err := l.tracking.GetTracking(ctx, alertType, deviceID)
	if err != nil {
		l.logger.Warn("Failed to read alert tracking record before update",
			zap.String("alert_type", alertType),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		record = nil
	}

	count := 1
	if record != nil {
		count = record.Count + 1
	}

	err = l.tracking.PutTracking(ctx, alertType, deviceID, models.AlertTrackingRecord{
		Count:    count,
		LastSent: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		l.logger.Warn("Failed to update alert tracking record",
			zap.String("alert_type", alertType),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}
