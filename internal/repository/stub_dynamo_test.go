package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// stubDynamo 脚本化的 DynamoDB 客户端桩（按需替换单个操作）
type stubDynamo struct {
	queryFn func(params *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	scanFn  func(params *dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	getFn   func(params *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putFn   func(params *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
}

func (s *stubDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if s.queryFn == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return s.queryFn(params)
}

func (s *stubDynamo) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if s.scanFn == nil {
		return &dynamodb.ScanOutput{}, nil
	}
	return s.scanFn(params)
}

func (s *stubDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if s.getFn == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return s.getFn(params)
}

func (s *stubDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if s.putFn == nil {
		return &dynamodb.PutItemOutput{}, nil
	}
	return s.putFn(params)
}
