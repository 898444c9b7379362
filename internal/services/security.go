package services

import (
	"kasir/internal/logger"

	"github.com/rs/zerolog"
)

// Security event types.
const (
	EventLoginFailed  = "login_failed"
	EventLoginSuccess = "login_success"
	EventLogout       = "logout"
	EventForbidden    = "forbidden"
)

// SecurityLogger, writes authentication and access events to a dedicated
// sub-logger tagged event=security.
type SecurityLogger struct {
	log zerolog.Logger
}

func NewSecurityLogger(l zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{log: l.With().Str(logger.EVENT, "security").Logger()}
}

// LogSecurityEvent records one event.
func (sl *SecurityLogger) LogSecurityEvent(eventType, details, ipAddress string) {
	if sl == nil {
		return
	}
	ev := sl.log.Info()
	if eventType == EventLoginFailed || eventType == EventForbidden {
		ev = sl.log.Warn()
	}
	ev.Str("type", eventType).Str("ip", ipAddress).Msg(details)
}
