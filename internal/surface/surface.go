// Package surface holds what the presentation surfaces share.
package surface

import (
	"time"

	"github.com/jmylchreest/entrykit/internal/config"
)

// Error represents a presentation surface failure.
type Error struct {
	Surface string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Surface + ": " + e.Message
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Timings are the enter and exit animation lengths of a surface.
type Timings struct {
	Enter time.Duration
	Exit  time.Duration
}

// TimingsFromConfig reads animation lengths from the daemon config.
func TimingsFromConfig(cfg *config.DaemonConfig) Timings {
	return Timings{
		Enter: cfg.Animation.Enter.Duration(),
		Exit:  cfg.Animation.Exit.Duration(),
	}
}
