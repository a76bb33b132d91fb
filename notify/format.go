package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/susaninz/geosite-manager/metrics"
	"github.com/susaninz/geosite-manager/monitor"
)

// Callback data understood by the telegram webhook handler.
const (
	// CallbackMenu shows the main menu.
	CallbackMenu = "menu"
	// CallbackRefresh redraws the main menu.
	CallbackRefresh = "refresh"
	// CallbackStatus shows the system status view.
	CallbackStatus = "status"
	// CallbackDashboard shows the latest router metrics.
	CallbackDashboard = "dashboard"
	// CallbackAlerts shows the recent threshold alerts.
	CallbackAlerts = "alerts"
	// CallbackStats shows the 24h metrics statistics.
	CallbackStats = "stats"
	// CallbackAlertAck acknowledges an alert.
	CallbackAlertAck = "alert_ack"
	// CallbackDeviceMenu shows the device overview.
	CallbackDeviceMenu = "iot_menu"
	// CallbackDevicePrefix shows the detail view of a device. The device key is
	// appended.
	CallbackDevicePrefix = "iot_device_"
	// CallbackDeviceRefreshPrefix redraws the detail view of a device. The
	// device key is appended.
	CallbackDeviceRefreshPrefix = "iot_refresh_"
	// CallbackAllHistory shows the combined event history of all devices.
	CallbackAllHistory = "iot_history"
	// CallbackMuteHourPrefix mutes a device for one hour. The device key is
	// appended.
	CallbackMuteHourPrefix = "iot_mute_1h_"
	// CallbackHistoryPrefix requests the event history of a device. The device
	// key is appended.
	CallbackHistoryPrefix = "iot_history_"
	// CallbackBuildPrefix triggers a geosite build for the appended commit, or
	// carries the special values "later" and "skip".
	CallbackBuildPrefix = "build_"
	// CallbackNone marks buttons that only exist as a visual marker.
	CallbackNone = "none"
)

// moscowTime is the timezone all operator-facing timestamps are rendered in.
var moscowTime = time.FixedZone("MSK", 3*60*60)

// FormatTime renders the given time for chat messages.
func FormatTime(t time.Time) string {
	return t.In(moscowTime).Format("02.01.2006 15:04")
}

// FormatClock renders only the time of day.
func FormatClock(t time.Time) string {
	return t.In(moscowTime).Format("15:04")
}

// FormatShortTime renders day, month and time of day for compact list views.
func FormatShortTime(t time.Time) string {
	return t.In(moscowTime).Format("02.01 15:04")
}

// formatUptime renders a duration as days/hours or hours/minutes.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// OutcomeMessage renders the notification for an alert outcome. The second
// return value is false for no-action outcomes which produce no message.
func OutcomeMessage(out monitor.Outcome) (Message, bool) {
	switch out.Classification {
	case monitor.ClassificationFrequentDisconnect:
		return frequentDisconnectMessage(out), true
	case monitor.ClassificationLongOffline:
		return longOfflineMessage(out), true
	}
	return Message{}, false
}

func frequentDisconnectMessage(out monitor.Outcome) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>PROBLEM: %s</b>\n\n", out.Device.Identity.Name)
	fmt.Fprintf(&b, "🏠 Device: %s %s\n", out.Device.Identity.Icon, out.Device.Key)
	fmt.Fprintf(&b, "⚠️ Disconnects within the last hour: %d\n", out.RecentDisconnects)
	if out.LastUptime != "" {
		fmt.Fprintf(&b, "⏱ Last session: %s\n", out.LastUptime)
	}
	fmt.Fprintf(&b, "📡 Last signal: %s\n\n", valueOrUnknown(out.Signal))
	b.WriteString("🔍 Possible causes:\n")
	b.WriteString("• Device firmware issue\n")
	b.WriteString("• IP conflict on the network\n")
	b.WriteString("• Cloud connectivity problem\n")
	b.WriteString("• Weak Wi-Fi signal")
	return Message{
		Text: b.String(),
		Keyboard: [][]Button{
			{
				{Text: "📊 Full history", CallbackData: CallbackHistoryPrefix + out.Device.Key},
			},
			{
				{Text: "🔇 Mute 1h", CallbackData: CallbackMuteHourPrefix + out.Device.Key},
				{Text: "✅ Ack", CallbackData: CallbackAlertAck},
			},
		},
	}
}

func longOfflineMessage(out monitor.Outcome) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ <b>%s was offline</b>\n\n", out.Device.Identity.Name)
	fmt.Fprintf(&b, "🏠 Device: %s %s\n", out.Device.Identity.Icon, out.Device.Key)
	fmt.Fprintf(&b, "⏱ Offline for: %d min\n", int(out.OfflineDuration.Minutes()))
	fmt.Fprintf(&b, "📡 Signal: %s\n", valueOrUnknown(out.Signal))
	fmt.Fprintf(&b, "🔄 IP: %s\n", valueOrUnknown(out.Device.NetworkAddress))
	if out.Device.LastSeenAt.Valid {
		fmt.Fprintf(&b, "⏰ %s", FormatTime(out.Device.LastSeenAt.Time))
	}
	return Message{
		Text: b.String(),
		Keyboard: [][]Button{
			{
				{Text: "📊 History", CallbackData: CallbackHistoryPrefix + out.Device.Key},
				{Text: "✅ Ack", CallbackData: CallbackAlertAck},
			},
		},
	}
}

// MutedMessage confirms a mute window to the operator.
func MutedMessage(snapshot monitor.Snapshot) Message {
	var until string
	if snapshot.MutedUntil.Valid {
		until = FormatClock(snapshot.MutedUntil.Time)
	}
	text := fmt.Sprintf("🔇 <b>%s</b>\n\nNotifications disabled until %s.\n\n"+
		"The device keeps being monitored, only notifications are skipped.",
		snapshot.Identity.Name, until)
	return Message{Text: text, Keyboard: deviceButtons(snapshot.Key)}
}

// ThresholdAlertMessage renders a router threshold alert.
func ThresholdAlertMessage(alert metrics.Alert) Message {
	severityIcon := "🟡"
	if alert.Severity == metrics.SeverityCritical {
		severityIcon = "🔴"
	}
	typeIcon := "⚠️"
	switch strings.ToLower(alert.Type) {
	case "ram":
		typeIcon = "💾"
	case "cpu":
		typeIcon = "🔥"
	case "openclash":
		typeIcon = "🌐"
	}
	exceedance := 0.0
	if alert.Threshold != 0 {
		exceedance = (alert.Value/alert.Threshold - 1) * 100
	}
	text := fmt.Sprintf("%s <b>CRITICAL ALERT!</b>\n\n"+
		"%s <b>%s</b>\n\n"+
		"📊 <b>Current:</b> %v\n"+
		"⚠️ <b>Threshold:</b> %v\n"+
		"📈 <b>Exceedance:</b> %.1f%%\n\n"+
		"🕐 %s",
		severityIcon, typeIcon, strings.ToUpper(alert.Type),
		alert.Value, alert.Threshold, exceedance, FormatTime(alert.Timestamp))
	return Message{
		Text: text,
		Keyboard: [][]Button{
			{
				{Text: "✅ Ack", CallbackData: CallbackAlertAck},
			},
		},
	}
}

// GeositeUpdateMessage announces a new domain-list release.
func GeositeUpdateMessage(commit string, oldCommit string) Message {
	text := fmt.Sprintf("🔔 <b>Geosite update!</b>\n\n"+
		"📦 New domain-list-community version\n\n"+
		"🔹 <b>Commit:</b> <code>%s</code>\n"+
		"🔹 <b>Previous:</b> <code>%s</code>\n\n"+
		"Build a new geosite.dat?",
		shortCommit(commit), shortCommit(oldCommit))
	return Message{Text: text}
}

// BuildCompleteMessage announces a finished geosite build.
func BuildCompleteMessage(success bool, version string, size string, commit string, url string, buildErr string) Message {
	if success {
		text := fmt.Sprintf("✅ <b>Build finished!</b>\n\n"+
			"📦 <b>Version:</b> %s\n"+
			"💾 <b>Size:</b> %s\n"+
			"🔹 <b>Commit:</b> <code>%s</code>\n\n"+
			"🔗 <a href=\"%s\">Download release</a>\n\n"+
			"🔄 The router picks it up on the next check",
			version, size, shortCommit(commit), url)
		return Message{Text: text}
	}
	text := fmt.Sprintf("❌ <b>Build failed!</b>\n\n"+
		"📦 <b>Version:</b> %s\n"+
		"🔹 <b>Commit:</b> <code>%s</code>\n"+
		"❗ <b>Error:</b> %s\n\n"+
		"Check the GitHub Actions logs",
		version, shortCommit(commit), buildErr)
	return Message{Text: text}
}

// RouterEventMessage renders router-side events like applied geosite updates.
func RouterEventMessage(event string, status string, message string, version string, router string) Message {
	if event != "geosite_update" {
		return Message{Text: fmt.Sprintf("ℹ️ <b>Router event</b>\n\n%s: %s\n%s", event, status, message)}
	}
	if status == "success" {
		text := fmt.Sprintf("🔄 <b>Geosite updated!</b>\n\n"+
			"📦 <b>Version:</b> %s\n"+
			"🤖 <b>Router:</b> %s\n\n"+
			"✅ OpenClash restarted",
			version, router)
		return Message{Text: text}
	}
	text := fmt.Sprintf("❌ <b>Geosite update failed</b>\n\n"+
		"<b>Reason:</b> %s\n"+
		"📦 <b>Version:</b> %s\n"+
		"🤖 <b>Router:</b> %s\n\n"+
		"Check the logs on the router",
		message, version, router)
	return Message{Text: text}
}

// DeviceHistoryMessage renders the recent event history of one device.
func DeviceHistoryMessage(snapshot monitor.Snapshot, events []monitor.Event) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>History: %s</b>\n\nLast %d events:\n\n", snapshot.Identity.Name, len(events))
	for _, event := range events {
		icon := "✅"
		if event.Kind == monitor.EventKindDisconnected {
			icon = "❌"
		}
		fmt.Fprintf(&b, "%s %s %s\n", FormatTime(event.OccurredAt), icon, event.Kind)
		if event.UptimeReport != "" {
			fmt.Fprintf(&b, "├ Session: %s\n", event.UptimeReport)
		}
		if event.Signal != "" {
			fmt.Fprintf(&b, "└ Signal: %s\n", event.Signal)
		}
		b.WriteString("\n")
	}
	return Message{
		Text:     b.String(),
		Keyboard: deviceButtons(snapshot.Key),
	}
}

// mainMenuKeyboard is the keyboard of the main menu.
func mainMenuKeyboard() [][]Button {
	return [][]Button{
		{
			{Text: "📊 Dashboard", CallbackData: CallbackDashboard},
			{Text: "⚙️ Status", CallbackData: CallbackStatus},
		},
		{
			{Text: "🚨 Alerts", CallbackData: CallbackAlerts},
			{Text: "📈 Stats", CallbackData: CallbackStats},
		},
		{
			{Text: "🏠 IoT Devices", CallbackData: CallbackDeviceMenu},
		},
		{
			{Text: "🔄 Refresh", CallbackData: CallbackRefresh},
		},
	}
}

// backToMenuKeyboard navigates back to the main menu.
func backToMenuKeyboard() [][]Button {
	return [][]Button{
		{{Text: "◀️ Back to menu", CallbackData: CallbackMenu}},
	}
}

// backToDevicesKeyboard navigates back to the device overview.
func backToDevicesKeyboard() [][]Button {
	return [][]Button{
		{{Text: "◀️ To devices", CallbackData: CallbackDeviceMenu}},
	}
}

// deviceButtons is the keyboard of a single device view.
func deviceButtons(deviceKey string) [][]Button {
	return [][]Button{
		{
			{Text: "📊 History", CallbackData: CallbackHistoryPrefix + deviceKey},
			{Text: "🔄 Refresh", CallbackData: CallbackDeviceRefreshPrefix + deviceKey},
		},
		{
			{Text: "🔇 Mute 1h", CallbackData: CallbackMuteHourPrefix + deviceKey},
			{Text: "◀️ To devices", CallbackData: CallbackDeviceMenu},
		},
	}
}

// AckedKeyboard replaces an alert keyboard after acknowledgement.
func AckedKeyboard() [][]Button {
	return [][]Button{
		{{Text: "✅ Read", CallbackData: CallbackNone}},
	}
}

// MainMenuMessage renders the main bot menu.
func MainMenuMessage() Message {
	text := "🤖 <b>Geosite Manager</b>\n\n" +
		"OpenWrt router control\n\n" +
		"🔹 <b>Monitoring:</b> RAM, CPU, WiFi\n" +
		"🔹 <b>Geosite:</b> Auto updates\n" +
		"🔹 <b>Alerts:</b> Critical events\n\n" +
		"Choose an action:"
	return Message{Text: text, Keyboard: mainMenuKeyboard()}
}

// SystemStatusMessage renders the system status view.
func SystemStatusMessage(sampleCount int, alertCount int, ramThreshold float64, cpuThreshold float64) Message {
	text := fmt.Sprintf("⚙️ <b>System status</b>\n\n"+
		"✅ <b>Service:</b> Online\n"+
		"✅ <b>Webhooks:</b> Active\n"+
		"📊 <b>Samples:</b> %d\n"+
		"🚨 <b>Alerts:</b> %d\n\n"+
		"🔧 <b>Configuration:</b>\n"+
		"├ RAM limit: %v%%\n"+
		"└ CPU limit: %v\n\n"+
		"📡 <b>Updates:</b> every 5 min",
		sampleCount, alertCount, ramThreshold, cpuThreshold)
	return Message{Text: text, Keyboard: backToMenuKeyboard()}
}

// DashboardMessage renders the latest router metrics. hasData is false while
// no sample has arrived yet.
func DashboardMessage(latest metrics.Sample, hasData bool, sampleCount int) Message {
	if !hasData {
		return Message{
			Text: "📊 <b>Dashboard</b>\n\n" +
				"⏳ No metrics collected yet.\n" +
				"Wait for the first report\n" +
				"(every 5 minutes)",
			Keyboard: backToMenuKeyboard(),
		}
	}
	ramStatus := "🟢"
	if latest.RAMPercent >= 85 {
		ramStatus = "🔴"
	} else if latest.RAMPercent >= 70 {
		ramStatus = "🟡"
	}
	cpuStatus := "🟢 Normal"
	if latest.CPULoad1 >= 3.0 {
		cpuStatus = "🔴 Critical"
	} else if latest.CPULoad1 >= 2.0 {
		cpuStatus = "🟡 High"
	}
	text := fmt.Sprintf("📊 <b>Router Dashboard</b>\n\n"+
		"💾 <b>RAM:</b> %v%% %s\n"+
		"%s\n\n"+
		"🔥 <b>CPU Load:</b> %v\n"+
		"%s\n\n"+
		"📡 <b>WiFi:</b> %d clients\n"+
		"🌐 <b>OpenClash:</b> %vm\n\n"+
		"📈 Samples collected: %d",
		latest.RAMPercent, ramStatus, ramBar(latest.RAMPercent),
		latest.CPULoad1, cpuStatus,
		latest.Clients, latest.OpenClashMemory, sampleCount)
	return Message{Text: text, Keyboard: backToMenuKeyboard()}
}

// ramBar renders a ten-segment usage bar.
func ramBar(percent float64) string {
	filled := int(percent) / 10
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

// AlertsMessage renders the recent threshold alerts, most recent first.
func AlertsMessage(alerts []metrics.Alert) Message {
	if len(alerts) == 0 {
		return Message{
			Text: "🚨 <b>Alerts</b>\n\n" +
				"✅ No alerts\n\n" +
				"Everything is running fine!",
			Keyboard: backToMenuKeyboard(),
		}
	}
	var b strings.Builder
	b.WriteString("🚨 <b>Recent alerts</b>\n\n")
	for _, alert := range alerts {
		icon := "🟡"
		if alert.Severity == metrics.SeverityCritical {
			icon = "🔴"
		}
		fmt.Fprintf(&b, "%s <b>%s</b>\n", icon, strings.ToUpper(alert.Type))
		fmt.Fprintf(&b, "├ Value: %v\n", alert.Value)
		fmt.Fprintf(&b, "├ Threshold: %v\n", alert.Threshold)
		fmt.Fprintf(&b, "└ %s\n\n", FormatTime(alert.Timestamp))
	}
	return Message{Text: b.String(), Keyboard: backToMenuKeyboard()}
}

// StatsMessage renders the 24h metrics statistics. hasData is false while no
// sample has arrived yet.
func StatsMessage(stats metrics.Stats, hasData bool, sampleCount int, alertCount int) Message {
	if !hasData {
		return Message{
			Text: "📈 <b>Statistics</b>\n\n" +
				"⏳ Not enough data yet\n" +
				"Wait for metrics to accumulate",
			Keyboard: backToMenuKeyboard(),
		}
	}
	text := fmt.Sprintf("📈 <b>24h statistics</b>\n\n"+
		"💾 <b>RAM:</b>\n"+
		"├ Average: %.1f%%\n"+
		"└ Maximum: %.1f%%\n\n"+
		"🔥 <b>CPU:</b>\n"+
		"├ Average: %.2f\n"+
		"└ Maximum: %.2f\n\n"+
		"📊 <b>Data:</b>\n"+
		"├ Samples: %d\n"+
		"└ Alerts: %d",
		stats.AvgRAM, stats.MaxRAM, stats.AvgCPU, stats.MaxCPU,
		sampleCount, alertCount)
	return Message{Text: text, Keyboard: backToMenuKeyboard()}
}

// DeviceMenuMessage renders the device overview with one button per device.
func DeviceMenuMessage(snapshots []monitor.Snapshot, now time.Time) Message {
	var b strings.Builder
	b.WriteString("🏠 <b>IoT devices</b>\n\n📊 Status of all devices:\n")
	online := 0
	for _, snapshot := range snapshots {
		icon := "❓"
		switch snapshot.Status {
		case monitor.StatusConnected:
			icon = "✅"
			online++
		case monitor.StatusDisconnected:
			icon = "⚠️"
		}
		uptime := "unknown"
		if snapshot.UptimeStartedAt.Valid {
			uptime = formatUptime(now.Sub(snapshot.UptimeStartedAt.Time))
		}
		fmt.Fprintf(&b, "%s %s   (uptime: %s)\n", icon, snapshot.Identity.Name, uptime)
	}
	fmt.Fprintf(&b, "\nDevices total: %d\n", len(snapshots))
	fmt.Fprintf(&b, "Online: %d | Offline: %d\n\n", online, len(snapshots)-online)
	b.WriteString("Choose a device:")
	keyboard := make([][]Button, 0, len(snapshots)/2+2)
	var row []Button
	for _, snapshot := range snapshots {
		row = append(row, Button{
			Text:         snapshot.Identity.Icon + " " + snapshot.Identity.Name,
			CallbackData: CallbackDevicePrefix + snapshot.Key,
		})
		if len(row) == 2 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard, []Button{
		{Text: "📊 History", CallbackData: CallbackAllHistory},
		{Text: "◀️ Main menu", CallbackData: CallbackMenu},
	})
	return Message{Text: b.String(), Keyboard: keyboard}
}

// DeviceDetailMessage renders the detail view of one device. events are the
// most recent journal entries, most recent first.
func DeviceDetailMessage(snapshot monitor.Snapshot, events []monitor.Event, now time.Time) Message {
	statusLine := "❓ Unknown"
	switch snapshot.Status {
	case monitor.StatusConnected:
		statusLine = "✅ Connected"
	case monitor.StatusDisconnected:
		statusLine = "❌ Disconnected"
	}
	uptime := "unknown"
	if snapshot.Status == monitor.StatusConnected && snapshot.UptimeStartedAt.Valid {
		uptime = formatUptime(now.Sub(snapshot.UptimeStartedAt.Time))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", snapshot.Identity.Icon, snapshot.Identity.Name)
	fmt.Fprintf(&b, "📊 Status: %s\n", statusLine)
	fmt.Fprintf(&b, "🕐 Uptime: %s\n", uptime)
	fmt.Fprintf(&b, "📡 Signal: %s\n", valueOrUnknown(snapshot.Signal))
	fmt.Fprintf(&b, "🔄 IP: %s\n", valueOrUnknown(snapshot.NetworkAddress))
	if snapshot.LastSeenAt.Valid {
		fmt.Fprintf(&b, "⏰ Last event: %s\n", FormatShortTime(snapshot.LastSeenAt.Time))
	}
	fmt.Fprintf(&b, "\n📈 Last 24h:\n├ Disconnects: %d\n", snapshot.Counters24h.Disconnects)
	if len(events) > 0 {
		icon := "✅"
		if events[0].Kind == monitor.EventKindDisconnected {
			icon = "❌"
		}
		fmt.Fprintf(&b, "└ Last event: %s %s\n", icon, events[0].Kind)
	}
	return Message{Text: b.String(), Keyboard: deviceButtons(snapshot.Key)}
}

// DeviceEvent is one journal entry annotated with its device identity, used
// for the combined history view.
type DeviceEvent struct {
	DeviceName string
	DeviceIcon string
	Event      monitor.Event
}

// CombinedHistoryMessage renders the event history across all devices, most
// recent first.
func CombinedHistoryMessage(events []DeviceEvent) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Device history</b>\n\nLast %d events:\n\n", len(events))
	for _, entry := range events {
		icon := "✅"
		if entry.Event.Kind == monitor.EventKindDisconnected {
			icon = "❌"
		}
		fmt.Fprintf(&b, "%s %s %s\n", FormatShortTime(entry.Event.OccurredAt), entry.DeviceIcon, entry.DeviceName)
		fmt.Fprintf(&b, "%s %s", icon, entry.Event.Kind)
		if entry.Event.UptimeReport != "" {
			fmt.Fprintf(&b, " (%s)", entry.Event.UptimeReport)
		}
		b.WriteString("\n\n")
	}
	return Message{Text: b.String(), Keyboard: backToDevicesKeyboard()}
}

// BuildResponseMessage renders the reaction to a build keyboard button. value
// is the callback payload after the build prefix: "later", "skip" or a
// commit hash.
func BuildResponseMessage(value string) Message {
	switch value {
	case "later":
		return Message{Text: "⏰ OK, will remind you later!"}
	case "skip":
		return Message{Text: "❌ Update skipped"}
	}
	text := fmt.Sprintf("🔨 <b>Build started!</b>\n\n"+
		"Commit: <code>%s</code>\n\n"+
		"⏳ This takes ~2-3 minutes\n"+
		"You will be notified when it is done!",
		shortCommit(value))
	return Message{Text: text}
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
