package worker

import (
	"github.com/spec-kit/release-queue/internal/service"
)

// StartNotificationWorker subscribes the notification service to queue and
// freeze events and starts its delivery loop. The returned func stops it.
func StartNotificationWorker(notificationService *service.NotificationService) (stop func()) {
	if notificationService == nil {
		return func() {}
	}
	notificationService.RegisterHandlers()
	notificationService.Start()
	return notificationService.Stop
}
