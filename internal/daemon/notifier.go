package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/entrykit/internal/model"
)

// NotificationLevel indicates the severity of an internal entry.
type NotificationLevel int

const (
	// NotificationLevelInfo is queued at low priority.
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is queued at normal priority.
	NotificationLevelWarning
	// NotificationLevelError is queued at high priority.
	NotificationLevelError
)

// internalDuration is how long internal entries stay up.
const internalDuration = 5 * time.Second

// Submitter accepts entries for display. *scheduler.Kit implements it.
type Submitter interface {
	Display(e *model.Entry)
}

// InternalNotifier raises entries about entrykitd itself.
// Identical messages are rate limited by key.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	submitter Submitter

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(submitter Submitter, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		now:            time.Now,
		submitter:      submitter,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetEnabled enables or disables internal entries.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between entries with the same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify submits an internal entry unless one with the same key was
// submitted within the minimum interval. The entry is named after the key
// so that it can be dismissed with "entrykit dismiss specific".
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled || n.submitter == nil {
		return
	}

	now := n.now()
	if lastTime, ok := n.lastNotifyTime[key]; ok && now.Sub(lastTime) < n.minInterval {
		n.logger.Debug("internal entry rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now

	var (
		prec model.Precedence
		icon string
	)
	switch level {
	case NotificationLevelError:
		prec = model.Enqueue(model.PriorityHigh)
		icon = "dialog-error"
	case NotificationLevelWarning:
		prec = model.Enqueue(model.PriorityNormal)
		icon = "dialog-warning"
	default:
		prec = model.Enqueue(model.PriorityMin)
		icon = "dialog-information"
	}

	e, err := model.NewEntry("entrykitd-"+key,
		model.Attributes{Precedence: prec, DisplayDuration: internalDuration},
		model.Content{
			Summary: summary,
			Body:    body,
			Icon:    icon,
			Hints:   map[string]string{model.HintCategory: "entrykitd"},
		},
	)
	if err != nil {
		n.logger.Warn("failed to create internal entry", "key", key, "error", err)
		return
	}

	n.logger.Debug("submitting internal entry", "key", key, "summary", summary, "level", level)
	n.submitter.Display(e)
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"entrykitd configuration has been successfully reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyStartup reports that the daemon is running.
func (n *InternalNotifier) NotifyStartup(version string) {
	n.Notify(
		"startup",
		"entrykitd Started",
		"Entry daemon v"+version+" is now running.",
		NotificationLevelInfo,
	)
}

// NotifyThemeError reports a popup theme that failed to load.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify(
		"theme-error",
		"Theme Error",
		"Failed to load theme: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifySurfaceError reports a presentation surface that could not start.
func (n *InternalNotifier) NotifySurfaceError(err error) {
	n.Notify(
		"surface-error",
		"Surface Unavailable",
		err.Error(),
		NotificationLevelError,
	)
}
