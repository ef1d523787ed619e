package scheduler

import (
	"context"
	"log"
	"time"

	"hishab/internal/domain/notification"
	"hishab/internal/domain/recurring"
)

// ReminderSweepJob walks every active subscription and sends the
// reminders that are due. Scheduled at the configured times of day.
type ReminderSweepJob struct {
	Recurring *recurring.Service
}

func (j *ReminderSweepJob) Name() string { return "reminder-sweep" }

func (j *ReminderSweepJob) Execute(ctx context.Context) error {
	result, err := j.Recurring.ProcessReminders(ctx, time.Now())
	if err != nil {
		return err
	}
	log.Printf("Reminder sweep: checked=%d sent=%d errors=%d",
		result.Checked, result.Sent, len(result.Errors))
	return nil
}

// BroadcastSweepJob delivers scheduled broadcasts whose send time has
// passed. Runs on a short fixed interval rather than at times of day so
// a broadcast goes out close to when it was scheduled.
type BroadcastSweepJob struct {
	Notifications *notification.Service
}

func (j *BroadcastSweepJob) Name() string { return "broadcast-sweep" }

func (j *BroadcastSweepJob) Execute(ctx context.Context) error {
	_, err := j.Notifications.ProcessDueBroadcasts(ctx, time.Now())
	return err
}
