package ports

import "time"

// SchedulerService drives external, permissionless triggers such as the crank
// poller. The core never schedules anything itself: correctness depends only
// on calls eventually happening, not on them happening on time.
type SchedulerService interface {
	Start()
	Stop()
	ScheduleTaskEvery(interval time.Duration, task func()) error
	ScheduleTaskOnce(at int64, task func()) error
}
