package repository

import (
	"context"
	"fmt"
	"strings"

	"plantwatch-evaluator/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// PlantRegistryRepository 用户植物名称注册表（评估器只读）
// 记录存放在 USER_PLANTS 保留分区，plantName 字段打包为 "deviceId|displayName"
type PlantRegistryRepository struct {
	client    DynamoAPI
	tableName string
	logger    *zap.Logger
}

// NewPlantRegistryRepository 创建植物注册表仓库
func NewPlantRegistryRepository(client DynamoAPI, tableName string, logger *zap.Logger) *PlantRegistryRepository {
	return &PlantRegistryRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// plantItem USER_PLANTS 分区下的单条记录
type plantItem struct {
	PlantName string `dynamodbav:"plantName"`
	PlantType string `dynamodbav:"plantType,omitempty"`
}

// DisplayNames 读取全部设备的显示名称映射 deviceId → displayName
// 无法解析或为病害词汇的条目跳过（调用方回退为设备ID）
func (r *PlantRegistryRepository) DisplayNames(ctx context.Context) (map[string]string, error) {
	output, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("deviceId = :partition"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":partition": &types.AttributeValueMemberS{Value: models.DeviceIDUserPlants},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query plant registry: %w", err)
	}

	names := make(map[string]string)
	for _, rawItem := range output.Items {
		var item plantItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			r.logger.Warn("Failed to unmarshal plant registry entry, skipping",
				zap.Error(err),
			)
			continue
		}

		deviceID, displayName, found := strings.Cut(item.PlantName, "|")
		if !found || deviceID == "" || displayName == "" {
			continue
		}
		// 安全检查：病害词汇被误存为名称时回退为设备ID
		if models.IsDiseaseVocabulary(displayName) {
			r.logger.Warn("Plant display name collides with disease vocabulary, ignoring",
				zap.String("device_id", deviceID),
				zap.String("plant_name", displayName),
			)
			continue
		}

		names[deviceID] = displayName
	}

	return names, nil
}
