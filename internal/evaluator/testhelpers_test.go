package evaluator

import (
	"context"
	"sort"
	"strings"
	"time"

	"plantwatch-evaluator/internal/config"
	"plantwatch-evaluator/internal/models"
	"plantwatch-evaluator/internal/repository"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ============================================
// 内存版 DynamoDB 假实现（只覆盖仓库用到的查询形态）
// ============================================

type fakeDynamo struct {
	items map[string]map[string]map[string]types.AttributeValue // pk → sk → item

	pageSize int // Scan 分页大小，0 表示单页返回

	errQuery error
	errScan  error
	errGet   error
	errPut   error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

func (f *fakeDynamo) put(item map[string]types.AttributeValue) {
	pk := stringAttr(item["deviceId"])
	sk := stringAttr(item["timestamp"])
	if f.items[pk] == nil {
		f.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	f.items[pk][sk] = item
}

func (f *fakeDynamo) putReading(reading models.Reading) {
	item, err := attributevalue.MarshalMap(reading)
	if err != nil {
		panic(err)
	}
	f.put(item)
}

func (f *fakeDynamo) sortedKeys(pk string) []string {
	keys := make([]string, 0, len(f.items[pk]))
	for sk := range f.items[pk] {
		keys = append(keys, sk)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.errQuery != nil {
		return nil, f.errQuery
	}

	var pk string
	for _, name := range []string{":device", ":partition"} {
		if attr, ok := params.ExpressionAttributeValues[name]; ok {
			pk = stringAttr(attr)
		}
	}

	var lower, upper string
	if strings.Contains(*params.KeyConditionExpression, "BETWEEN") {
		lower = stringAttr(params.ExpressionAttributeValues[":start"])
		upper = stringAttr(params.ExpressionAttributeValues[":end"])
	}

	keys := f.sortedKeys(pk)
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	output := &dynamodb.QueryOutput{}
	for _, sk := range keys {
		if lower != "" && (sk < lower || sk > upper) {
			continue
		}
		output.Items = append(output.Items, f.items[pk][sk])
	}

	return output, nil
}

func (f *fakeDynamo) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.errScan != nil {
		return nil, f.errScan
	}

	type flatKey struct{ pk, sk string }
	var all []flatKey
	pks := make([]string, 0, len(f.items))
	for pk := range f.items {
		pks = append(pks, pk)
	}
	sort.Strings(pks)
	for _, pk := range pks {
		for _, sk := range f.sortedKeys(pk) {
			all = append(all, flatKey{pk, sk})
		}
	}

	start := 0
	if params.ExclusiveStartKey != nil {
		lastPK := stringAttr(params.ExclusiveStartKey["deviceId"])
		lastSK := stringAttr(params.ExclusiveStartKey["timestamp"])
		for i, key := range all {
			if key.pk == lastPK && key.sk == lastSK {
				start = i + 1
				break
			}
		}
	}

	end := len(all)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	output := &dynamodb.ScanOutput{}
	for _, key := range all[start:end] {
		item := f.items[key.pk][key.sk]
		// 投影只返回 deviceId，模拟 ProjectionExpression
		output.Items = append(output.Items, map[string]types.AttributeValue{
			"deviceId": item["deviceId"],
		})
	}

	if end < len(all) {
		last := all[end-1]
		output.LastEvaluatedKey = map[string]types.AttributeValue{
			"deviceId":  &types.AttributeValueMemberS{Value: last.pk},
			"timestamp": &types.AttributeValueMemberS{Value: last.sk},
		}
	}

	return output, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.errGet != nil {
		return nil, f.errGet
	}

	pk := stringAttr(params.Key["deviceId"])
	sk := stringAttr(params.Key["timestamp"])
	item, ok := f.items[pk][sk]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.errPut != nil {
		return nil, f.errPut
	}

	f.put(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func stringAttr(attr types.AttributeValue) string {
	if s, ok := attr.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// ============================================
// 通知发布器假实现
// ============================================

type fakePublisher struct {
	messages []*models.AlertMessage
	err      error
}

func (f *fakePublisher) PublishAlert(_ context.Context, message *models.AlertMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakePublisher) byType(alertType string) []*models.AlertMessage {
	var matched []*models.AlertMessage
	for _, message := range f.messages {
		if message.Payload.AlertType == alertType {
			matched = append(matched, message)
		}
	}
	return matched
}

// ============================================
// 测试装配
// ============================================

func testConfig() *config.Config {
	cfg := &config.Config{
		DynamoTableName: "plantwatch-test",
		SNSTopicARN:     "arn:aws:sns:eu-west-1:000000000000:plantwatch-alerts",
	}
	cfg.Evaluation.EnvWindowMinutes = 30
	cfg.Evaluation.TrendWindowHours = 3
	cfg.Evaluation.DefaultThreshold = 0.8
	cfg.Alerting.CooldownHours = 24
	cfg.Alerting.MaxAlertCount = 3
	return cfg
}

func newTestEvaluator(store *fakeDynamo, publisher *fakePublisher, cfg *config.Config, now time.Time) *Evaluator {
	logger := zap.NewNop()
	readings := repository.NewReadingRepository(store, cfg.DynamoTableName, logger)
	states := repository.NewAlertStateRepository(store, cfg.DynamoTableName, logger)
	plants := repository.NewPlantRegistryRepository(store, cfg.DynamoTableName, logger)

	eval := NewEvaluator(cfg, readings, states, plants, publisher, logger)
	eval.now = func() time.Time { return now }
	return eval
}

func telemetryReading(deviceID string, at time.Time, metrics map[string]interface{}) models.Reading {
	return models.Reading{
		DeviceID:    deviceID,
		Timestamp:   models.NewRecordKey(models.KeyCategoryTelemetry, at).Encode(),
		ReadingType: models.ReadingTypeTelemetry,
		Metrics:     metrics,
	}
}

func diseaseReading(deviceID string, at time.Time, metrics map[string]interface{}) models.Reading {
	return models.Reading{
		DeviceID:    deviceID,
		Timestamp:   models.NewRecordKey(models.KeyCategoryDisease, at).Encode(),
		ReadingType: models.ReadingTypeDisease,
		Metrics:     metrics,
	}
}

func buildConfigItem(deviceID string, threshold float64) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(struct {
		DeviceID  string  `dynamodbav:"deviceId"`
		Timestamp string  `dynamodbav:"timestamp"`
		Threshold float64 `dynamodbav:"threshold"`
	}{
		DeviceID:  deviceID,
		Timestamp: models.SortKeyConfig,
		Threshold: threshold,
	})
}

func buildPlantItem(deviceID, displayName string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"deviceId":  &types.AttributeValueMemberS{Value: models.DeviceIDUserPlants},
		"timestamp": &types.AttributeValueMemberS{Value: "PLANT#" + deviceID},
		"plantName": &types.AttributeValueMemberS{Value: deviceID + "|" + displayName},
	}
}
