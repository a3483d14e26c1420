package evaluator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"plantwatch-evaluator/internal/models"
)

// BuildAlertMessage 构建报警消息信封 {subject, bodyText, bodyHtml, payload}
// plantName 为已解析的显示名称（缺失时调用方传设备ID）
func BuildAlertMessage(alert models.Alert, plantName string, now time.Time) *models.AlertMessage {
	var subject, bodyText, bodyHTML string

	switch {
	case alert.Type == models.AlertTypeDiseaseDetected:
		subject = fmt.Sprintf("⚠️ Disease Detected: %s", plantName)
		bodyText = buildDiseaseText(alert, plantName, now)
		bodyHTML = buildDiseaseHTML(alert, plantName, now)
	case strings.HasPrefix(alert.Type, "unusual_"):
		subject = fmt.Sprintf("🌡️ Unusual Trend Detected: %s - %s", plantName, trendMetricTitle(alert.Type))
		bodyText = buildTrendText(alert, plantName, now)
		bodyHTML = buildTrendHTML(alert, plantName, now)
	case alert.Type == models.AlertTypeWaterTankEmpty:
		subject = fmt.Sprintf("💧 Water Tank Empty: %s", plantName)
		bodyText = buildWaterTankText(alert, plantName, now)
		bodyHTML = buildWaterTankHTML(alert, plantName, now)
	default:
		subject = fmt.Sprintf("Alert: %s", plantName)
		encoded, _ := json.MarshalIndent(alert.Data, "", "  ")
		bodyText = string(encoded)
		bodyHTML = fmt.Sprintf("<pre>%s</pre>", encoded)
	}

	return &models.AlertMessage{
		Subject:  subject,
		BodyText: bodyText,
		BodyHTML: bodyHTML,
		Payload: models.AlertPayload{
			DeviceID:    alert.DeviceID,
			AlertType:   alert.Type,
			AlertData:   alert.Data,
			EvaluatedAt: now.UTC().Format(time.RFC3339),
		},
	}
}

// BuildResolutionMessage 构建解除消息（类别从激活转为非激活）
func BuildResolutionMessage(category, deviceID, plantName string, now time.Time) *models.AlertMessage {
	categoryTitle := titleCase(strings.ReplaceAll(category, "_", " "))

	lines := []string{
		fmt.Sprintf("Plant: %s", plantName),
		fmt.Sprintf("Device ID: %s", deviceID),
		fmt.Sprintf("ALERT RESOLVED: %s", strings.ToUpper(categoryTitle)),
		"",
		"The condition that triggered the previous alert is no longer detected.",
		"",
		fmt.Sprintf("Evaluated at: %s", now.UTC().Format(time.RFC3339)),
	}

	html := fmt.Sprintf(
		"<p><strong>Plant:</strong> %s</p>"+
			"<p><strong>Device ID:</strong> %s</p>"+
			`<p><strong style="color: green;">ALERT RESOLVED: %s</strong></p>`+
			"<p>The condition that triggered the previous alert is no longer detected.</p>"+
			"<p><strong>Evaluated at:</strong> %s</p>",
		plantName, deviceID, strings.ToUpper(categoryTitle), now.UTC().Format(time.RFC3339),
	)

	return &models.AlertMessage{
		Subject:  fmt.Sprintf("✅ Alert Resolved: %s - %s", plantName, categoryTitle),
		BodyText: strings.Join(lines, "\n"),
		BodyHTML: html,
		Payload: models.AlertPayload{
			DeviceID:  deviceID,
			AlertType: category + "_resolved",
			AlertData: map[string]interface{}{
				"category": category,
				"status":   "resolved",
			},
			EvaluatedAt: now.UTC().Format(time.RFC3339),
		},
	}
}

func buildDiseaseText(alert models.Alert, plantName string, now time.Time) string {
	lines := []string{
		fmt.Sprintf("Plant: %s", plantName),
		fmt.Sprintf("Device ID: %s", alert.DeviceID),
		"⚠️ DISEASE DETECTED",
		"",
		fmt.Sprintf("Label: %s", stringOr(alert.Data["label"], "disease")),
	}

	if score, ok := models.NumericValue(alert.Data["diseaseRisk"]); ok {
		lines = append(lines, fmt.Sprintf("Disease risk score: %.2f", score))
	}

	if averages := environmentAveragesOf(alert.Data); len(averages) > 0 {
		lines = append(lines, "", "Environmental averages (evaluation window):")
		for _, metric := range sortedKeys(averages) {
			lines = append(lines, fmt.Sprintf("  - %s: %.2f", metric, averages[metric]))
		}
	} else {
		lines = append(lines, "", "Environmental averages unavailable during the evaluation window.")
	}

	lines = append(lines, "", fmt.Sprintf("Evaluated at: %s", now.UTC().Format(time.RFC3339)))
	return strings.Join(lines, "\n")
}

func buildDiseaseHTML(alert models.Alert, plantName string, now time.Time) string {
	var parts []string
	parts = append(parts,
		fmt.Sprintf("<p><strong>Plant:</strong> %s</p>", plantName),
		fmt.Sprintf("<p><strong>Device ID:</strong> %s</p>", alert.DeviceID),
		`<p><strong style="color: red;">⚠️ DISEASE DETECTED</strong></p>`,
		fmt.Sprintf("<p><strong>Label:</strong> %s</p>", stringOr(alert.Data["label"], "disease")),
	)

	if score, ok := models.NumericValue(alert.Data["diseaseRisk"]); ok {
		parts = append(parts, fmt.Sprintf("<p><strong>Disease risk score:</strong> %.2f</p>", score))
	}

	if averages := environmentAveragesOf(alert.Data); len(averages) > 0 {
		var items []string
		for _, metric := range sortedKeys(averages) {
			items = append(items, fmt.Sprintf("<li><strong>%s:</strong> %.2f</li>", metric, averages[metric]))
		}
		parts = append(parts,
			"<p><strong>Environmental averages (evaluation window):</strong></p>",
			fmt.Sprintf("<ul>%s</ul>", strings.Join(items, "")),
		)
	} else {
		parts = append(parts, "<p><strong>Environmental averages:</strong> Unavailable during the evaluation window.</p>")
	}

	parts = append(parts, fmt.Sprintf("<p><strong>Evaluated at:</strong> %s</p>", now.UTC().Format(time.RFC3339)))
	return strings.Join(parts, "")
}

func buildTrendText(alert models.Alert, plantName string, now time.Time) string {
	metricTitle := trendMetricTitle(alert.Type)
	lines := []string{
		fmt.Sprintf("Plant: %s", plantName),
		fmt.Sprintf("Device ID: %s", alert.DeviceID),
		fmt.Sprintf("🌡️ UNUSUAL %s TREND DETECTED", strings.ToUpper(metricTitle)),
		"",
		fmt.Sprintf("Trend: %s", stringOr(alert.Data["trend"], "unknown")),
	}

	start, _ := models.NumericValue(alert.Data["start"])
	end, _ := models.NumericValue(alert.Data["end"])
	change, _ := models.NumericValue(alert.Data["change"])
	period, _ := models.NumericValue(alert.Data["period_hours"])

	switch alert.Type {
	case models.AlertTypeTemperatureTrend:
		rate, _ := models.NumericValue(alert.Data["rate"])
		lines = append(lines,
			fmt.Sprintf("Rate of change: %.1f°C/hour", rate),
			fmt.Sprintf("Temperature change: %.1f°C → %.1f°C", start, end),
		)
	case models.AlertTypeHumidityTrend:
		lines = append(lines,
			fmt.Sprintf("Humidity change: %.1f%% → %.1f%%", start, end),
			fmt.Sprintf("Change: %.1f%%", change),
		)
	case models.AlertTypeLightTrend:
		lines = append(lines,
			fmt.Sprintf("Light change: %.0f lux → %.0f lux", start, end),
			fmt.Sprintf("Change: %.1f%%", change),
		)
	case models.AlertTypeSoilMoistureTrend:
		lines = append(lines,
			fmt.Sprintf("Soil moisture change: %.2f → %.2f", start, end),
			fmt.Sprintf("Change: %.2f", change),
		)
	}

	lines = append(lines,
		fmt.Sprintf("Time period: %.1f hours", period),
		"",
		"This rapid change may require manual intervention or threshold adjustment.",
		fmt.Sprintf("Evaluated at: %s", now.UTC().Format(time.RFC3339)),
	)
	return strings.Join(lines, "\n")
}

func buildTrendHTML(alert models.Alert, plantName string, now time.Time) string {
	metricTitle := trendMetricTitle(alert.Type)
	change, _ := models.NumericValue(alert.Data["change"])
	period, _ := models.NumericValue(alert.Data["period_hours"])

	var parts []string
	parts = append(parts,
		fmt.Sprintf("<p><strong>Plant:</strong> %s</p>", plantName),
		fmt.Sprintf("<p><strong>Device ID:</strong> %s</p>", alert.DeviceID),
		fmt.Sprintf(`<p><strong style="color: orange;">🌡️ UNUSUAL %s TREND DETECTED</strong></p>`, strings.ToUpper(metricTitle)),
		fmt.Sprintf("<p><strong>Trend:</strong> %s</p>", stringOr(alert.Data["trend"], "unknown")),
		fmt.Sprintf("<p><strong>Change:</strong> %.1f</p>", change),
		fmt.Sprintf("<p><strong>Time period:</strong> %.1f hours</p>", period),
		"<p><em>This rapid change may require manual intervention or threshold adjustment.</em></p>",
		fmt.Sprintf("<p><strong>Evaluated at:</strong> %s</p>", now.UTC().Format(time.RFC3339)),
	)
	return strings.Join(parts, "")
}

func buildWaterTankText(alert models.Alert, plantName string, now time.Time) string {
	lines := []string{
		fmt.Sprintf("Plant: %s", plantName),
		fmt.Sprintf("Device ID: %s", alert.DeviceID),
		"💧 WATER TANK EMPTY",
		"",
		fmt.Sprintf("Status: %s", stringOr(alert.Data["status"], "empty")),
		fmt.Sprintf("Message: %s", stringOr(alert.Data["message"], "Water tank is empty and requires refill")),
		"",
		"Please refill the water tank to ensure the auto-heal system can function properly.",
		"",
		fmt.Sprintf("Evaluated at: %s", now.UTC().Format(time.RFC3339)),
	}
	return strings.Join(lines, "\n")
}

func buildWaterTankHTML(alert models.Alert, plantName string, now time.Time) string {
	return fmt.Sprintf(
		"<p><strong>Plant:</strong> %s</p>"+
			"<p><strong>Device ID:</strong> %s</p>"+
			`<p><strong style="color: red;">💧 WATER TANK EMPTY</strong></p>`+
			"<p><strong>Status:</strong> %s</p>"+
			"<p><strong>Message:</strong> %s</p>"+
			"<p><em>Please refill the water tank to ensure the auto-heal system can function properly.</em></p>"+
			"<p><strong>Evaluated at:</strong> %s</p>",
		plantName,
		alert.DeviceID,
		stringOr(alert.Data["status"], "empty"),
		stringOr(alert.Data["message"], "Water tank is empty and requires refill"),
		now.UTC().Format(time.RFC3339),
	)
}

// trendMetricTitle "unusual_soil_moisture_trend" → "Soil Moisture"
func trendMetricTitle(alertType string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(alertType, "unusual_"), "_trend")
	return titleCase(strings.ReplaceAll(name, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func stringOr(raw interface{}, fallback string) string {
	if value, ok := models.StringValue(raw); ok && value != "" {
		return value
	}
	return fallback
}

func environmentAveragesOf(data map[string]interface{}) map[string]float64 {
	averages, ok := data["environmentAverages"].(map[string]float64)
	if !ok {
		return nil
	}
	return averages
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
