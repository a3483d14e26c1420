package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"plantwatch-evaluator/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// SNSAPI SNS 客户端接口（便于测试替换）
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier 报警通知发布器
type Notifier struct {
	client   SNSAPI
	topicARN string
	logger   *zap.Logger
}

// NewNotifier 创建通知发布器
func NewNotifier(client SNSAPI, topicARN string, logger *zap.Logger) *Notifier {
	return &Notifier{
		client:   client,
		topicARN: topicARN,
		logger:   logger,
	}
}

// PublishAlert 将消息信封序列化为 JSON 并发布到主题
func (n *Notifier) PublishAlert(ctx context.Context, message *models.AlertMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal alert message: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	n.logger.Info("Alert published",
		zap.String("device_id", message.Payload.DeviceID),
		zap.String("alert_type", message.Payload.AlertType),
	)

	return nil
}
