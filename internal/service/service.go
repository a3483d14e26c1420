package service

import (
	"context"
	"encoding/json"
	"fmt"

	"plantwatch-evaluator/internal/config"
	"plantwatch-evaluator/internal/evaluator"
	"plantwatch-evaluator/internal/logger"
	"plantwatch-evaluator/internal/models"
	"plantwatch-evaluator/internal/notifier"
	"plantwatch-evaluator/internal/repository"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// EvaluatorService 评估服务（整合各层，冷启动时构建一次）
type EvaluatorService struct {
	config    *config.Config
	logger    *zap.Logger
	evaluator *evaluator.Evaluator
}

// New 创建评估服务
func New(ctx context.Context) (*EvaluatorService, error) {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "plantwatch-evaluator")
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 3. 初始化 AWS 客户端
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	snsClient := sns.NewFromConfig(awsCfg)

	// 4. 创建 Repository 层
	readingRepo := repository.NewReadingRepository(dynamoClient, cfg.DynamoTableName, log)
	stateRepo := repository.NewAlertStateRepository(dynamoClient, cfg.DynamoTableName, log)
	plantRepo := repository.NewPlantRegistryRepository(dynamoClient, cfg.DynamoTableName, log)

	// 5. 创建通知发布器
	alertNotifier := notifier.NewNotifier(snsClient, cfg.SNSTopicARN, log)

	// 6. 创建评估编排器
	eval := evaluator.NewEvaluator(cfg, readingRepo, stateRepo, plantRepo, alertNotifier, log)

	return &EvaluatorService{
		config:    cfg,
		logger:    log,
		evaluator: eval,
	}, nil
}

// HandleRequest Lambda 入口：触发载荷忽略，返回评估摘要
// 周期内的失败已降级处理，永不返回 error 以避免调度器破坏性重试
func (s *EvaluatorService) HandleRequest(ctx context.Context, _ json.RawMessage) (models.EvaluationSummary, error) {
	summary := s.evaluator.Run(ctx)
	return summary, nil
}

// Logger 返回服务日志实例（入口用于兜底日志）
func (s *EvaluatorService) Logger() *zap.Logger {
	return s.logger
}
