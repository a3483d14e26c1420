package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKey_EncodeParseRoundTrip(t *testing.T) {
	instant := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	key := NewRecordKey(KeyCategoryTelemetry, instant)

	assert.Equal(t, KeyCategoryTelemetry, key.Category)
	assert.Len(t, key.Nonce, 8)

	encoded := key.Encode()
	assert.Equal(t, "TS#20260301T123045Z-"+key.Nonce, encoded)

	parsed, err := ParseRecordKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, key.Category, parsed.Category)
	assert.Equal(t, key.Nonce, parsed.Nonce)
	assert.True(t, parsed.Instant.Equal(instant))
}

func TestParseRecordKey_DiseaseCategory(t *testing.T) {
	parsed, err := ParseRecordKey("DISEASE#20260301T080000Z-ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, KeyCategoryDisease, parsed.Category)
	assert.Equal(t, "ab12cd34", parsed.Nonce)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), parsed.Instant)
}

func TestParseRecordKey_ReservedSortKeys(t *testing.T) {
	// 保留排序键不含 '#'，应解析失败
	for _, reserved := range []string{SortKeyConfig, SortKeyCurrent, "ALERT_disease_detected_device-1"} {
		_, err := ParseRecordKey(reserved)
		assert.Error(t, err, reserved)
	}
}

func TestParseRecordKey_BadTimestamp(t *testing.T) {
	_, err := ParseRecordKey("TS#not-a-time-ab12cd34")
	require.Error(t, err)
}

func TestRangeBounds_BracketSameInstant(t *testing.T) {
	instant := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := NewRecordKey(KeyCategoryTelemetry, instant).Encode()

	lower := RangeLowerBound(KeyCategoryTelemetry, instant)
	upper := RangeUpperBound(KeyCategoryTelemetry, instant)

	// 字符串比较即时间比较：同一时刻的记录落在 [下界, 上界] 内
	assert.True(t, lower <= key, "lower=%q key=%q", lower, key)
	assert.True(t, key <= upper, "key=%q upper=%q", key, upper)
}

func TestRangeBounds_OrderAcrossInstants(t *testing.T) {
	earlier := time.Date(2026, 3, 1, 11, 59, 59, 0, time.UTC)
	later := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	beforeWindow := NewRecordKey(KeyCategoryTelemetry, earlier).Encode()
	lower := RangeLowerBound(KeyCategoryTelemetry, later)

	// 窗口起点之前的记录排在下界之前
	assert.True(t, beforeWindow < lower)

	afterWindow := NewRecordKey(KeyCategoryTelemetry, later.Add(time.Second)).Encode()
	upper := RangeUpperBound(KeyCategoryTelemetry, later)
	assert.True(t, upper < afterWindow)
}
