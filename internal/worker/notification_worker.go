package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/service"
)

// StartNotificationWorker subscribes delivery and lifecycle handlers on the dispatcher
// the workflow publishes to.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker ready", zap.String("default_channel", notifications.DefaultChannel()))
	}
}
