package repository

import (
	"context"
	"fmt"

	"plantwatch-evaluator/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// AlertStateRepository 报警状态仓库
// 状态快照和发送计数记录都存放在遥测表的保留分区下
type AlertStateRepository struct {
	client    DynamoAPI
	tableName string
	logger    *zap.Logger
}

// NewAlertStateRepository 创建报警状态仓库
func NewAlertStateRepository(client DynamoAPI, tableName string, logger *zap.Logger) *AlertStateRepository {
	return &AlertStateRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// alertStateItem (ALERT_STATES, CURRENT) 单条记录，每周期整体覆盖
type alertStateItem struct {
	DeviceID  string                              `dynamodbav:"deviceId"`
	Timestamp string                              `dynamodbav:"timestamp"`
	States    map[string]models.DeviceAlertState  `dynamodbav:"states"`
}

// trackingItem (ALERT_TRACKING, ALERT_<type>_<deviceId>) 发送计数记录
type trackingItem struct {
	DeviceID  string `dynamodbav:"deviceId"`
	Timestamp string `dynamodbav:"timestamp"`
	Count     int    `dynamodbav:"count"`
	LastSent  string `dynamodbav:"lastSent"`
}

// GetStates 读取上一周期的报警状态快照，记录不存在时返回空映射
func (r *AlertStateRepository) GetStates(ctx context.Context) (map[string]models.DeviceAlertState, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"deviceId":  &types.AttributeValueMemberS{Value: models.DeviceIDAlertStates},
			"timestamp": &types.AttributeValueMemberS{Value: models.SortKeyCurrent},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get alert states: %w", err)
	}
	if output.Item == nil {
		return map[string]models.DeviceAlertState{}, nil
	}

	var item alertStateItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert states: %w", err)
	}
	if item.States == nil {
		return map[string]models.DeviceAlertState{}, nil
	}

	return item.States, nil
}

// PutStates 覆盖写入本周期的报警状态快照（单条记录，last-writer-wins）
func (r *AlertStateRepository) PutStates(ctx context.Context, states map[string]models.DeviceAlertState) error {
	item, err := attributevalue.MarshalMap(alertStateItem{
		DeviceID:  models.DeviceIDAlertStates,
		Timestamp: models.SortKeyCurrent,
		States:    states,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert states: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put alert states: %w", err)
	}

	return nil
}

// GetTracking 读取 (报警类型, 设备) 的发送计数记录，不存在时返回 nil
func (r *AlertStateRepository) GetTracking(ctx context.Context, alertType, deviceID string) (*models.AlertTrackingRecord, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"deviceId":  &types.AttributeValueMemberS{Value: models.DeviceIDAlertTracking},
			"timestamp": &types.AttributeValueMemberS{Value: trackingSortKey(alertType, deviceID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get alert tracking for %s/%s: %w", alertType, deviceID, err)
	}
	if output.Item == nil {
		return nil, nil
	}

	var item trackingItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert tracking for %s/%s: %w", alertType, deviceID, err)
	}

	return &models.AlertTrackingRecord{
		Count:    item.Count,
		LastSent: item.LastSent,
	}, nil
}

// PutTracking 写入 (报警类型, 设备) 的发送计数记录
func (r *AlertStateRepository) PutTracking(ctx context.Context, alertType, deviceID string, record models.AlertTrackingRecord) error {
	item, err := attributevalue.MarshalMap(trackingItem{
		DeviceID:  models.DeviceIDAlertTracking,
		Timestamp: trackingSortKey(alertType, deviceID),
		Count:     record.Count,
		LastSent:  record.LastSent,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert tracking for %s/%s: %w", alertType, deviceID, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put alert tracking for %s/%s: %w", alertType, deviceID, err)
	}

	return nil
}

// trackingSortKey 构建发送计数记录的排序键
func trackingSortKey(alertType, deviceID string) string {
	return fmt.Sprintf("ALERT_%s_%s", alertType, deviceID)
}
