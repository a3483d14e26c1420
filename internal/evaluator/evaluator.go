package evaluator

import (
	"context"
	"time"

	"plantwatch-evaluator/internal/config"
	"plantwatch-evaluator/internal/models"
	"plantwatch-evaluator/internal/repository"

	"go.uber.org/zap"
)

// AlertPublisher 报警发布接口（由 notifier 实现）
type AlertPublisher interface {
	PublishAlert(ctx context.Context, message *models.AlertMessage) error
}

// Evaluator 评估编排器
// 每次调用遍历所有设备，运行全部条件检查器，与上一周期状态对比
// 产出解除通知，经限流发送报警，最后整体覆盖写入新状态
type Evaluator struct {
	config    *config.Config
	readings  *repository.ReadingRepository
	states    *repository.AlertStateRepository
	plants    *repository.PlantRegistryRepository
	publisher AlertPublisher
	limiter   *RateLimiter
	logger    *zap.Logger

	// 条件检查器
	disease   *DiseaseChecker
	trends    *TrendChecker
	waterTank *WaterTankChecker

	// 便于测试注入固定时钟
	now func() time.Time
}

// NewEvaluator 创建评估编排器
func NewEvaluator(
	cfg *config.Config,
	readings *repository.ReadingRepository,
	states *repository.AlertStateRepository,
	plants *repository.PlantRegistryRepository,
	publisher AlertPublisher,
	logger *zap.Logger,
) *Evaluator {
	return &Evaluator{
		config:    cfg,
		readings:  readings,
		states:    states,
		plants:    plants,
		publisher: publisher,
		limiter:   NewRateLimiter(states, cfg.Alerting.MaxAlertCount, cfg.Cooldown(), logger),
		logger:    logger,
		disease:   NewDiseaseChecker(cfg, readings, logger),
		trends:    NewTrendChecker(readings, logger),
		waterTank: NewWaterTankChecker(readings, logger),
		now:       time.Now,
	}
}

// Run 执行一次评估周期
// 周期内的任何失败都不致命：降级处理并继续，始终返回摘要
func (e *Evaluator) Run(ctx context.Context) models.EvaluationSummary {
	summary := models.EvaluationSummary{StatusCode: 200}

	now := e.now().UTC()
	envStart := now.Add(-e.config.EnvWindow())
	trendStart := now.Add(-e.config.TrendWindow())

	deviceIDs, err := e.listDevices(ctx)
	if err != nil {
		e.logger.Error("Failed to enumerate devices, skipping cycle",
			zap.Error(err),
		)
		return summary
	}
	summary.DevicesEvaluated = len(deviceIDs)

	previousStates, err := e.states.GetStates(ctx)
	if err != nil {
		// 状态读不到时按全部非激活处理：可能多发报警，但不漏发
		e.logger.Warn("Failed to load previous alert states, assuming all inactive",
			zap.Error(err),
		)
		previousStates = map[string]models.DeviceAlertState{}
	}

	displayNames, err := e.plants.DisplayNames(ctx)
	if err != nil {
		e.logger.Warn("Failed to load plant registry, falling back to device ids",
			zap.Error(err),
		)
		displayNames = map[string]string{}
	}

	newStates := make(map[string]models.DeviceAlertState, len(deviceIDs))

	for _, deviceID := range deviceIDs {
		plantName := displayNames[deviceID]
		if plantName == "" {
			plantName = deviceID
		}

		current, active := e.checkDevice(ctx, deviceID, envStart, trendStart, now)

		// 解除检测：上周期激活、本周期未激活的类别
		previous := previousStates[deviceID]
		for _, category := range models.Categories() {
			if previous.Active(category) && !current.Active(category) {
				message := BuildResolutionMessage(category, deviceID, plantName, now)
				if err := e.publisher.PublishAlert(ctx, message); err != nil {
					e.logger.Error("Failed to publish resolution",
						zap.String("device_id", deviceID),
						zap.String("category", category),
						zap.Error(err),
					)
					continue
				}
				summary.ResolutionsSent++
			}
		}

		// 激活报警经限流发送
		for _, alert := range active {
			if !e.limiter.Allow(ctx, alert.Type, alert.DeviceID, now) {
				continue
			}
			message := BuildAlertMessage(alert, plantName, now)
			if err := e.publisher.PublishAlert(ctx, message); err != nil {
				e.logger.Error("Failed to publish alert",
					zap.String("device_id", alert.DeviceID),
					zap.String("alert_type", alert.Type),
					zap.Error(err),
				)
				continue
			}
			summary.AlertsSent++
			e.limiter.RecordSend(ctx, alert.Type, alert.DeviceID, now)
		}

		newStates[deviceID] = current
	}

	if err := e.states.PutStates(ctx, newStates); err != nil {
		// 下一周期会重复发报警/解除，接受的重复语义
		e.logger.Error("Failed to persist alert states",
			zap.Error(err),
		)
	}

	e.logger.Info("Evaluation cycle completed",
		zap.Int("devices_evaluated", summary.DevicesEvaluated),
		zap.Int("alerts_sent", summary.AlertsSent),
		zap.Int("resolutions_sent", summary.ResolutionsSent),
	)

	return summary
}

// checkDevice 运行单设备的全部条件检查器
// 检查器失败视为"无信号"，不中断其他检查
func (e *Evaluator) checkDevice(ctx context.Context, deviceID string, envStart, trendStart, now time.Time) (models.DeviceAlertState, []models.Alert) {
	var current models.DeviceAlertState
	var active []models.Alert

	diseaseAlert, err := e.disease.Check(ctx, deviceID, envStart, now)
	if err != nil {
		e.logger.Error("Disease check failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	} else if diseaseAlert != nil {
		current.Disease = true
		active = append(active, *diseaseAlert)
	}

	trendAlerts, err := e.trends.Check(ctx, deviceID, trendStart, now)
	if err != nil {
		e.logger.Error("Trend check failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	} else if len(trendAlerts) > 0 {
		current.Trends = true
		active = append(active, trendAlerts...)
	}

	tankAlert, err := e.waterTank.Check(ctx, deviceID, envStart, now)
	if err != nil {
		e.logger.Error("Water tank check failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	} else if tankAlert != nil {
		current.WaterTankEmpty = true
		active = append(active, *tankAlert)
	}

	return current, active
}

// listDevices 枚举待评估设备，排除保留分区键和病害词汇ID
func (e *Evaluator) listDevices(ctx context.Context) ([]string, error) {
	allIDs, err := e.readings.ListDeviceIDs(ctx)
	if err != nil {
		return nil, err
	}

	deviceIDs := make([]string, 0, len(allIDs))
	for _, id := range allIDs {
		if models.IsReservedDeviceID(id) || models.IsDiseaseVocabulary(id) {
			continue
		}
		deviceIDs = append(deviceIDs, id)
	}

	return deviceIDs, nil
}
