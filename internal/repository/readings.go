package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"plantwatch-evaluator/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ReadingRepository 读数仓库（遥测和病害记录，评估器只读）
type ReadingRepository struct {
	client    DynamoAPI
	tableName string
	logger    *zap.Logger
}

// NewReadingRepository 创建读数仓库
func NewReadingRepository(client DynamoAPI, tableName string, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// ListDeviceIDs 枚举表中所有设备ID（分页扫描，去重后排序）
// 保留分区键的排除由调用方负责
func (r *ReadingRepository) ListDeviceIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var startKey map[string]types.AttributeValue

	for {
		output, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(r.tableName),
			ProjectionExpression: aws.String("deviceId"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan device ids: %w", err)
		}

		for _, item := range output.Items {
			var row struct {
				DeviceID string `dynamodbav:"deviceId"`
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				r.logger.Warn("Failed to unmarshal scanned item, skipping",
					zap.Error(err),
				)
				continue
			}
			if row.DeviceID != "" {
				seen[row.DeviceID] = true
			}
		}

		if output.LastEvaluatedKey == nil {
			break
		}
		startKey = output.LastEvaluatedKey
	}

	deviceIDs := make([]string, 0, len(seen))
	for id := range seen {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Strings(deviceIDs)

	return deviceIDs, nil
}

// QueryDeviceReadings 查询单设备的全部读数
// descending 为 true 时按排序键降序（最新在前）
func (r *ReadingRepository) QueryDeviceReadings(ctx context.Context, deviceID string, descending bool) ([]models.Reading, error) {
	output, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("deviceId = :device"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":device": &types.AttributeValueMemberS{Value: deviceID},
		},
		ScanIndexForward: aws.Bool(!descending),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for device %s: %w", deviceID, err)
	}

	return r.unmarshalReadings(output.Items), nil
}

// QueryTelemetryInRange 查询单设备窗口内的遥测读数（按排序键升序）
func (r *ReadingRepository) QueryTelemetryInRange(ctx context.Context, deviceID string, start, end time.Time) ([]models.Reading, error) {
	output, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("deviceId = :device AND #ts BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":device": &types.AttributeValueMemberS{Value: deviceID},
			":start":  &types.AttributeValueMemberS{Value: models.RangeLowerBound(models.KeyCategoryTelemetry, start)},
			":end":    &types.AttributeValueMemberS{Value: models.RangeUpperBound(models.KeyCategoryTelemetry, end)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry for device %s: %w", deviceID, err)
	}

	readings := r.unmarshalReadings(output.Items)

	// 区间查询已按排序键限定为 TS# 记录，readingType 再过滤一遍以防脏数据
	telemetry := readings[:0]
	for _, reading := range readings {
		if reading.ReadingType == models.ReadingTypeTelemetry {
			telemetry = append(telemetry, reading)
		}
	}

	return telemetry, nil
}

// LatestTelemetry 获取单设备窗口内最新的一条遥测读数，无则返回 nil
func (r *ReadingRepository) LatestTelemetry(ctx context.Context, deviceID string, start, end time.Time) (*models.Reading, error) {
	output, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("deviceId = :device AND #ts BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":device": &types.AttributeValueMemberS{Value: deviceID},
			":start":  &types.AttributeValueMemberS{Value: models.RangeLowerBound(models.KeyCategoryTelemetry, start)},
			":end":    &types.AttributeValueMemberS{Value: models.RangeUpperBound(models.KeyCategoryTelemetry, end)},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query latest telemetry for device %s: %w", deviceID, err)
	}

	for _, reading := range r.unmarshalReadings(output.Items) {
		if reading.ReadingType == models.ReadingTypeTelemetry {
			return &reading, nil
		}
	}

	return nil, nil
}

// GetDeviceConfig 获取设备配置（CONFIG 记录），不存在时返回 nil
func (r *ReadingRepository) GetDeviceConfig(ctx context.Context, deviceID string) (*models.DeviceConfig, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"deviceId":  &types.AttributeValueMemberS{Value: deviceID},
			"timestamp": &types.AttributeValueMemberS{Value: models.SortKeyConfig},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get config for device %s: %w", deviceID, err)
	}
	if output.Item == nil {
		return nil, nil
	}

	var deviceConfig models.DeviceConfig
	if err := attributevalue.UnmarshalMap(output.Item, &deviceConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for device %s: %w", deviceID, err)
	}

	return &deviceConfig, nil
}

// unmarshalReadings 反序列化查询结果，坏行跳过不中断
func (r *ReadingRepository) unmarshalReadings(items []map[string]types.AttributeValue) []models.Reading {
	readings := make([]models.Reading, 0, len(items))
	for _, item := range items {
		var reading models.Reading
		if err := attributevalue.UnmarshalMap(item, &reading); err != nil {
			r.logger.Warn("Failed to unmarshal reading, skipping",
				zap.Error(err),
			)
			continue
		}
		readings = append(readings, reading)
	}
	return readings
}
