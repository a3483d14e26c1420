package evaluator

import (
	"time"

	"plantwatch-evaluator/internal/models"
)

// Trend 趋势分类
type Trend string

const (
	TrendStable                Trend = "stable"
	TrendIncreasingRapidly     Trend = "increasing_rapidly"
	TrendIncreasingVeryRapidly Trend = "increasing_very_rapidly"
	TrendDecreasingRapidly     Trend = "decreasing_rapidly"
	TrendDecreasingVeryRapidly Trend = "decreasing_very_rapidly"
)

// Rapid 判断趋势是否为急剧变化（rapid 或 very rapid）
func (t Trend) Rapid() bool {
	switch t {
	case TrendIncreasingRapidly, TrendIncreasingVeryRapidly,
		TrendDecreasingRapidly, TrendDecreasingVeryRapidly:
		return true
	}
	return false
}

// Increasing 判断趋势是否为上升方向
func (t Trend) Increasing() bool {
	return t == TrendIncreasingRapidly || t == TrendIncreasingVeryRapidly
}

// Decreasing 判断趋势是否为下降方向
func (t Trend) Decreasing() bool {
	return t == TrendDecreasingRapidly || t == TrendDecreasingVeryRapidly
}

// MetricPoint 单个指标数据点
type MetricPoint struct {
	At    time.Time
	Value float64
}

// MetricTrend 单个指标的趋势分析结果
type MetricTrend struct {
	Trend       Trend
	Rate        float64 // 变化率（温度：°C/小时）
	Change      float64 // 首末差值（湿度/土壤：绝对值，光照：百分比）
	Start       float64
	End         float64
	PeriodHours float64
	Samples     int
}

// TrendReport 全部指标的趋势分析结果
type TrendReport struct {
	Temperature  MetricTrend
	Humidity     MetricTrend
	Light        MetricTrend
	SoilMoisture MetricTrend
}

// 各指标的回看子窗口（以评估窗口末端为锚点）
const (
	temperatureSubWindow  = 3 * time.Hour
	humiditySubWindow     = 6 * time.Hour
	lightSubWindow        = 6 * time.Hour
	soilMoistureSubWindow = 6 * time.Hour
)

// 阈值刻意不对称：只捕捉自动调节回路来不及响应的急剧变化，
// 缓慢漂移不报警以避免报警疲劳
const (
	tempVeryRapidRate   = 4.0  // °C/小时
	tempRapidRate       = 3.0  // °C/小时
	tempVeryRapidChange = 10.0 // °C
	tempRapidChange     = 7.0  // °C

	humidityVeryRapidDrop = -15.0 // 百分点
	humidityRapidDrop     = -10.0 // 百分点

	lightVeryRapidDropPct = -40.0 // %
	lightRapidDropPct     = -30.0 // %

	soilVeryRapidDrop = -0.20 // 0-1 刻度
	soilRapidDrop     = -0.15 // 0-1 刻度
)

// AnalyzeTrends 分析窗口内各环境指标的趋势
// points 各指标的数据点序列（按时间升序），windowEnd 为评估窗口末端
func AnalyzeTrends(points map[string][]MetricPoint, windowEnd time.Time) TrendReport {
	return TrendReport{
		Temperature:  analyzeTemperature(points[models.MetricTemperature], windowEnd),
		Humidity:     analyzeHumidity(points[models.MetricHumidity], windowEnd),
		Light:        analyzeLight(points[models.MetricLight], windowEnd),
		SoilMoisture: analyzeSoilMoisture(points[models.MetricSoilMoisture], windowEnd),
	}
}

// analyzeTemperature 温度趋势：最近3小时，按变化率或绝对变化分级
func analyzeTemperature(points []MetricPoint, windowEnd time.Time) MetricTrend {
	result := MetricTrend{Trend: TrendStable}

	recent := clipToSubWindow(points, windowEnd, temperatureSubWindow)
	result.Samples = len(recent)
	if len(recent) < 2 {
		return result
	}

	first, last := recent[0], recent[len(recent)-1]
	// 用数据点自身的时间戳算经过时长，而不是名义窗口大小
	elapsedHours := last.At.Sub(first.At).Hours()
	if elapsedHours <= 0 {
		return result
	}

	change := last.Value - first.Value
	rate := change / elapsedHours

	result.Rate = rate
	result.Change = change
	result.Start = first.Value
	result.End = last.Value
	result.PeriodHours = elapsedHours

	switch {
	case rate > tempVeryRapidRate || change > tempVeryRapidChange:
		result.Trend = TrendIncreasingVeryRapidly
	case rate > tempRapidRate || change > tempRapidChange:
		result.Trend = TrendIncreasingRapidly
	case rate < -tempRapidRate || change < -tempRapidChange:
		result.Trend = TrendDecreasingRapidly
	}

	return result
}

// analyzeHumidity 湿度趋势：最近6小时，只标记下降（上升由自动调节处理）
func analyzeHumidity(points []MetricPoint, windowEnd time.Time) MetricTrend {
	result := MetricTrend{Trend: TrendStable}

	recent := clipToSubWindow(points, windowEnd, humiditySubWindow)
	result.Samples = len(recent)
	if len(recent) < 2 {
		return result
	}

	first, last := recent[0], recent[len(recent)-1]
	change := last.Value - first.Value

	result.Change = change
	result.Start = first.Value
	result.End = last.Value
	result.PeriodHours = last.At.Sub(first.At).Hours()

	switch {
	case change < humidityVeryRapidDrop:
		result.Trend = TrendDecreasingVeryRapidly
	case change < humidityRapidDrop:
		result.Trend = TrendDecreasingRapidly
	}

	return result
}

// analyzeLight 光照趋势：最近6小时，按百分比下降分级
func analyzeLight(points []MetricPoint, windowEnd time.Time) MetricTrend {
	result := MetricTrend{Trend: TrendStable}

	recent := clipToSubWindow(points, windowEnd, lightSubWindow)
	result.Samples = len(recent)
	if len(recent) < 2 {
		return result
	}

	first, last := recent[0], recent[len(recent)-1]
	elapsedHours := last.At.Sub(first.At).Hours()
	// 起始值为零或负时无法计算百分比变化
	if first.Value <= 0 || elapsedHours <= 0 {
		return result
	}

	changePct := (last.Value - first.Value) / first.Value * 100

	result.Change = changePct
	result.Start = first.Value
	result.End = last.Value
	result.PeriodHours = elapsedHours

	switch {
	case changePct < lightVeryRapidDropPct:
		result.Trend = TrendDecreasingVeryRapidly
	case changePct < lightRapidDropPct:
		result.Trend = TrendDecreasingRapidly
	}

	return result
}

// analyzeSoilMoisture 土壤湿度趋势：最近6小时，0-1刻度的绝对下降
func analyzeSoilMoisture(points []MetricPoint, windowEnd time.Time) MetricTrend {
	result := MetricTrend{Trend: TrendStable}

	recent := clipToSubWindow(points, windowEnd, soilMoistureSubWindow)
	result.Samples = len(recent)
	if len(recent) < 2 {
		return result
	}

	first, last := recent[0], recent[len(recent)-1]
	change := last.Value - first.Value

	result.Change = change
	result.Start = first.Value
	result.End = last.Value
	result.PeriodHours = last.At.Sub(first.At).Hours()

	switch {
	case change < soilVeryRapidDrop:
		result.Trend = TrendDecreasingVeryRapidly
	case change < soilRapidDrop:
		result.Trend = TrendDecreasingRapidly
	}

	return result
}

// clipToSubWindow 截取子窗口内的数据点（输入须按时间升序）
func clipToSubWindow(points []MetricPoint, windowEnd time.Time, subWindow time.Duration) []MetricPoint {
	cutoff := windowEnd.Add(-subWindow)
	recent := make([]MetricPoint, 0, len(points))
	for _, point := range points {
		if !point.At.Before(cutoff) {
			recent = append(recent, point)
		}
	}
	return recent
}
