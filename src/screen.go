package src

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

var logger = global.Logger("pandatv")

func showInfo(str string) {
	if System.Flag.Info {
		return
	}

	if logMsg, ok := formatColumns(fmt.Sprintf("[%s] ", System.Name), str); ok {
		printLogOnScreen(logMsg, "info")
		addLogEntry(logMsg, otellog.SeverityInfo)
	}
}

func showDebug(str string, level int) {
	if System.Flag.Debug < level {
		return
	}

	if logMsg, ok := formatColumns("[DEBUG] ", str); ok {
		printLogOnScreen(logMsg, "debug")
		addLogEntry(logMsg, otellog.SeverityDebug)
	}
}

func showHighlight(str string) {
	if logMsg, ok := formatColumns(fmt.Sprintf("[%s] ", System.Name), str); ok {
		printLogOnScreen(logMsg, "highlight")
		addLogEntry(logMsg, otellog.SeverityInfo)
	}
}

func showWarning(errCode int) {
	var logMsg = fmt.Sprintf("[%s] [WARNING] %s", System.Name, getErrMsg(errCode))

	printLogOnScreen(logMsg, "warning")
	addLogEntry(logMsg, otellog.SeverityWarn)
}

// ShowError : Shows the Error Messages in the Console
func ShowError(err error, errCode int) {
	var logMsg = fmt.Sprintf("[%s] [ERROR] %s (%s) - EC: %d", System.Name, err, getErrMsg(errCode), errCode)

	printLogOnScreen(logMsg, "error")
	addLogEntry(logMsg, otellog.SeverityError)
}

// formatColumns pads the "Key:" part of "Key:Value" so values line up.
func formatColumns(prefix, str string) (string, bool) {
	const width = 23

	var key, value, ok = strings.Cut(str, ":")
	if !ok {
		return "", false
	}

	if pad := width - len(key); pad > 0 {
		key += ":" + strings.Repeat(" ", pad)
	} else {
		key += ":"
	}

	return prefix + key + value, true
}

func printLogOnScreen(logMsg string, logType string) {
	var color string

	switch logType {
	case "info":
		color = "\033[0m"
	case "debug":
		color = "\033[35m"
	case "highlight":
		color = "\033[32m"
	case "warning":
		color = "\033[33m"
	case "error":
		color = "\033[31m"
	}

	switch runtime.GOOS {
	case "windows":
		log.Println(logMsg)
	default:
		fmt.Print(color)
		log.Println(logMsg)
		fmt.Print("\033[0m")
	}
}

func addLogEntry(logMsg string, severity otellog.Severity) {
	WebScreenLog.Mu.Lock()
	WebScreenLog.Log = append(WebScreenLog.Log, time.Now().Format("2006-01-02 15:04:05")+" "+logMsg)
	logCleanUp()
	WebScreenLog.Mu.Unlock()

	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(otellog.StringValue(logMsg))
	logger.Emit(context.Background(), record)
}

// logCleanUp keeps the newest Settings.LogEntriesRAM entries and recounts warnings and
// errors. The caller holds WebScreenLog.Mu.
func logCleanUp() {
	var logs = WebScreenLog.Log

	if limit := Settings.LogEntriesRAM; limit > 0 && len(logs) > limit {
		logs = append([]string(nil), logs[len(logs)-limit:]...)
	}

	WebScreenLog.Warnings = 0
	WebScreenLog.Errors = 0

	for _, entry := range logs {
		if strings.Contains(entry, "[WARNING]") {
			WebScreenLog.Warnings++
		}

		if strings.Contains(entry, "[ERROR]") {
			WebScreenLog.Errors++
		}
	}
	WebScreenLog.Log = logs
}

func getErrMsg(errCode int) (errMsg string) {
	switch errCode {
	case 0:
		return

	// Web server
	case 1001:
		errMsg = "Web server could not be started."
	case 1002:
		errMsg = "Invalid port. Allowed: 1 - 65535"
	case 1016:
		errMsg = "Web server could not be stopped."
	case 1020:
		errMsg = "Unknown WebSocket command"
	case 1021:
		errMsg = "Channel not found"
	case 1022:
		errMsg = "WebSocket connection could not be opened"
	case 1030:
		errMsg = "Unknown OpenTelemetry exporter, allowed: stdout, otlp, otlp-http, none"

	// Settings
	case 2000:
		errMsg = "Settings could not be loaded"
	case 2001:
		errMsg = "Settings could not be saved"
	case 2002:
		errMsg = "Invalid page size, must be at least 1"
	case 2003:
		errMsg = "Invalid reveal delay, must not be negative"

	// Playlist
	case 4000:
		errMsg = "No playlist configured. Set it with -playlist or in settings.json"
	case 4001:
		errMsg = "Playlist could not be loaded, the stored copy is used"
	case 4002:
		errMsg = "Playlist could not be loaded and no stored copy exists"
	case 4003:
		errMsg = "Playlist contains no channels"
	case 4004:
		errMsg = "Playlist could not be stored"
	case 4005:
		errMsg = "Playlist store could not be opened"
	case 4006:
		errMsg = "Stored playlists could not be cleaned up"

	// Artwork
	case 4010:
		errMsg = "Artwork could not be cached"
	case 4011:
		errMsg = "Artwork cache could not be cleaned up"

	// SSDP
	case 4100:
		errMsg = "SSDP advertisement failed"

	default:
		errMsg = fmt.Sprintf("Unknown error / warning (%d)", errCode)
	}

	return errMsg
}
