package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 排序键类别
const (
	KeyCategoryTelemetry = "TS"
	KeyCategoryDisease   = "DISEASE"
)

// keyTimeLayout ISO8601 basic 格式：定宽、零填充，保证字符串比较即时间比较
const keyTimeLayout = "20060102T150405Z"

// RecordKey 结构化排序键 {类别, 时刻, 随机后缀}
// 编码形式：TS#20240101T120000Z-ab12cd34 / DISEASE#...
type RecordKey struct {
	Category string
	Instant  time.Time
	Nonce    string
}

// NewRecordKey 创建带随机后缀的排序键
func NewRecordKey(category string, instant time.Time) RecordKey {
	return RecordKey{
		Category: category,
		Instant:  instant.UTC(),
		Nonce:    strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
	}
}

// Encode 编码为存储形式
func (k RecordKey) Encode() string {
	return fmt.Sprintf("%s#%s-%s", k.Category, k.Instant.UTC().Format(keyTimeLayout), k.Nonce)
}

// ParseRecordKey 解析存储形式的排序键
// 保留排序键（CONFIG、CURRENT 等）不含 '#'，返回错误
func ParseRecordKey(s string) (RecordKey, error) {
	category, rest, found := strings.Cut(s, "#")
	if !found || category == "" {
		return RecordKey{}, fmt.Errorf("not a record key: %q", s)
	}

	timePart, nonce, _ := strings.Cut(rest, "-")
	instant, err := time.Parse(keyTimeLayout, timePart)
	if err != nil {
		return RecordKey{}, fmt.Errorf("failed to parse record key timestamp %q: %w", s, err)
	}

	return RecordKey{
		Category: category,
		Instant:  instant.UTC(),
		Nonce:    nonce,
	}, nil
}

// RangeLowerBound 区间查询下界
// '-' 在 ASCII 中先于所有十六进制后缀字符，包含该时刻的全部记录
func RangeLowerBound(category string, t time.Time) string {
	return fmt.Sprintf("%s#%s-", category, t.UTC().Format(keyTimeLayout))
}

// RangeUpperBound 区间查询上界
// '~' 在 ASCII 中后于所有十六进制后缀字符
func RangeUpperBound(category string, t time.Time) string {
	return fmt.Sprintf("%s#%s~", category, t.UTC().Format(keyTimeLayout))
}
