package main

import (
	"context"
	"fmt"

	"plantwatch-evaluator/internal/service"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	// 冷启动：构建服务（配置、日志、AWS 客户端、各层组件）
	svc, err := service.New(context.Background())
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize evaluator service: %v", err))
	}
	defer svc.Logger().Sync()

	lambda.Start(svc.HandleRequest)
}
