package models

// 报警类别（状态机维度，每设备每类别一个 active/inactive 状态）
const (
	CategoryDisease        = "disease"
	CategoryWaterTankEmpty = "water_tank_empty"
	CategoryTrends         = "trends"
)

// 报警类型（发送维度，限流按此键控）
const (
	AlertTypeDiseaseDetected   = "disease_detected"
	AlertTypeTemperatureTrend  = "unusual_temperature_trend"
	AlertTypeHumidityTrend     = "unusual_humidity_trend"
	AlertTypeLightTrend        = "unusual_light_trend"
	AlertTypeSoilMoistureTrend = "unusual_soil_moisture_trend"
	AlertTypeWaterTankEmpty    = "water_tank_empty"
)

// Categories 返回所有报警类别（固定顺序）
func Categories() []string {
	return []string{CategoryDisease, CategoryWaterTankEmpty, CategoryTrends}
}

// Alert 一条待发送的报警（检查器的输出）
type Alert struct {
	DeviceID string
	Type     string
	Category string
	Data     map[string]interface{}
}

// AlertMessage 发往通知渠道的消息信封
type AlertMessage struct {
	Subject  string       `json:"subject"`
	BodyText string       `json:"bodyText"`
	BodyHTML string       `json:"bodyHtml"`
	Payload  AlertPayload `json:"payload"`
}

// AlertPayload 消息信封中的结构化载荷
type AlertPayload struct {
	DeviceID    string                 `json:"deviceId"`
	AlertType   string                 `json:"alertType"`
	AlertData   map[string]interface{} `json:"alertData"`
	EvaluatedAt string                 `json:"evaluatedAt"`
}

// DeviceAlertState 单设备的报警激活状态快照
type DeviceAlertState struct {
	Disease        bool `dynamodbav:"disease" json:"disease"`
	WaterTankEmpty bool `dynamodbav:"water_tank_empty" json:"water_tank_empty"`
	Trends         bool `dynamodbav:"trends" json:"trends"`
}

// Active 查询某类别是否激活
func (s DeviceAlertState) Active(category string) bool {
	switch category {
	case CategoryDisease:
		return s.Disease
	case CategoryWaterTankEmpty:
		return s.WaterTankEmpty
	case CategoryTrends:
		return s.Trends
	}
	return false
}

// SetActive 设置某类别的激活状态
func (s *DeviceAlertState) SetActive(category string, active bool) {
	switch category {
	case CategoryDisease:
		s.Disease = active
	case CategoryWaterTankEmpty:
		s.WaterTankEmpty = active
	case CategoryTrends:
		s.Trends = active
	}
}

// AlertTrackingRecord 单个 (报警类型, 设备) 的发送计数记录
type AlertTrackingRecord struct {
	Count    int    `dynamodbav:"count" json:"count"`
	LastSent string `dynamodbav:"lastSent" json:"lastSent"` // ISO8601
}

// EvaluationSummary 单次评估周期的结果摘要（Lambda 返回值）
type EvaluationSummary struct {
	StatusCode       int `json:"statusCode"`
	AlertsSent       int `json:"alertsSent"`
	ResolutionsSent  int `json:"resolutionsSent"`
	DevicesEvaluated int `json:"devicesEvaluated"`
}
