package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/camp-autoscheduler/pkg/jobs"
)

// JobEventScheduled is the queue job type carrying an EventScheduledNotice.
const JobEventScheduled = "event_scheduled"

// EventScheduledNotice tells the people behind an event where and when it takes place.
type EventScheduledNotice struct {
	CampID       string    `json:"camp_id"`
	PlacementID  string    `json:"placement_id"`
	EventID      string    `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	LocationName string    `json:"location_name"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
}

// Notifier delivers notices to speakers.
type Notifier interface {
	NotifyEventScheduled(ctx context.Context, notice EventScheduledNotice) error
}

// LogNotifier writes notices to the log. Delivery channels plug in as other Notifiers.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyEventScheduled(_ context.Context, notice EventScheduledNotice) error {
	n.logger.Info("event scheduled",
		zap.String("camp_id", notice.CampID),
		zap.String("event_id", notice.EventID),
		zap.String("event_title", notice.EventTitle),
		zap.String("location", notice.LocationName),
		zap.Time("starts_at", notice.StartsAt),
	)
	return nil
}

// NotificationDispatcher hands notices to a background queue.
type NotificationDispatcher struct {
	queue    *jobs.Queue
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationDispatcher registers the notice handler on the queue.
func NewNotificationDispatcher(queue *jobs.Queue, notifier Notifier, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	d := &NotificationDispatcher{queue: queue, notifier: notifier, logger: logger}
	queue.Handle(JobEventScheduled, d.handle)
	return d
}

// EventScheduled enqueues a notice.
func (d *NotificationDispatcher) EventScheduled(notice EventScheduledNotice) error {
	return d.queue.Enqueue(jobs.Job{Type: JobEventScheduled, Payload: notice})
}

func (d *NotificationDispatcher) handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(EventScheduledNotice)
	if !ok {
		d.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return d.notifier.NotifyEventScheduled(ctx, notice)
}
