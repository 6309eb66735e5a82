package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartSLAMonitor schedules the SLA sweep and returns a stop function. A nil
// monitor yields a no-op stop.
func StartSLAMonitor(monitor *service.SLAMonitor, logger *zap.Logger) (func(), error) {
	if monitor == nil {
		logger.Info("sla monitor disabled")
		return func() {}, nil
	}
	if err := monitor.Start(); err != nil {
		return nil, err
	}
	return monitor.Stop, nil
}
