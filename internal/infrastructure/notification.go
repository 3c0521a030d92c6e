package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/mediapull/internal/domain"
)

// commandRunner runs an external notifier
type commandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService sends desktop notifications when a download finishes.
// It implements domain.Observer and ignores start and progress events.
// Observer callbacks return immediately; the notifier runs in the background.
type NotificationService struct {
	config  *domain.NotificationConfig
	logger  *zap.Logger
	run     commandRunner
	pending sync.WaitGroup
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if n.config == nil || !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
		if n.config.Sound {
			script += ` sound name "Glass"`
		}
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

func (n *NotificationService) Started(domain.StartEvent) {}

func (n *NotificationService) Progress(domain.ProgressEvent) {}

// Completed notifies a finished download
func (n *NotificationService) Completed(event domain.SummaryEvent) {
	message := fmt.Sprintf("%s (%s) %.1f KB/s", truncateString(event.FileName, 40), event.Position, event.AverageSpeedKBps)
	n.sendAsync("Download Completed", message)
}

// Failed notifies a failed or aborted download
func (n *NotificationService) Failed(event domain.FailureEvent) {
	title := "Download Failed"
	if event.Aborted {
		title = "Download Aborted"
	}
	message := fmt.Sprintf("%s (%s): %s", truncateString(event.FileName, 40), event.Position, event.Code)
	n.sendAsync(title, message)
}

func (n *NotificationService) sendAsync(title, message string) {
	n.pending.Add(1)
	go func() {
		defer n.pending.Done()
		n.Send(title, message)
	}()
}

// Wait blocks until every queued notification has been sent
func (n *NotificationService) Wait() {
	n.pending.Wait()
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
