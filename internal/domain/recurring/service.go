package recurring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultWorkerCount bounds the concurrency of the reminder sweep.
const DefaultWorkerCount = 5

// ReminderSender delivers a reminder to a user's devices and stores the
// notification record. Implemented by the notification domain.
type ReminderSender interface {
	SendToUser(ctx context.Context, userID, title, body, category string, data map[string]string) error
}

// Service contains the business logic for recurring transactions:
// subscription CRUD, due-date advancement, and the reminder sweep.
type Service struct {
	repo        Repository
	sender      ReminderSender
	workerCount int
}

func NewService(repo Repository, sender ReminderSender) *Service {
	return &Service{repo: repo, sender: sender, workerCount: DefaultWorkerCount}
}

func NewServiceWithWorkers(repo Repository, sender ReminderSender, workerCount int) *Service {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &Service{repo: repo, sender: sender, workerCount: workerCount}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*RecurringTransaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

func (s *Service) Get(ctx context.Context, id, userID string) (*RecurringTransaction, error) {
	if id == "" {
		return nil, errors.New("recurring transaction ID is required")
	}
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*RecurringTransaction, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Update(ctx context.Context, id, userID string, params UpdateParams) (*RecurringTransaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, userID, params)
}

func (s *Service) SetActive(ctx context.Context, id, userID string, active bool) error {
	if id == "" {
		return errors.New("recurring transaction ID is required")
	}
	return s.repo.SetActive(ctx, id, userID, active)
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if id == "" {
		return errors.New("recurring transaction ID is required")
	}
	return s.repo.Delete(ctx, id, userID)
}

// Upcoming is a subscription annotated with its due-date distance.
type Upcoming struct {
	*RecurringTransaction
	DaysUntilDue int  `json:"daysUntilDue"`
	IsDueToday   bool `json:"isDueToday"`
	IsOverdue    bool `json:"isOverdue"`
}

// ListUpcoming returns the user's active subscriptions due within the
// next N days (default 7), soonest first.
func (s *Service) ListUpcoming(ctx context.Context, userID string, days int) ([]Upcoming, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	if days <= 0 {
		days = 7
	}

	now := time.Now()
	subs, err := s.repo.ListDueBefore(ctx, userID, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	out := make([]Upcoming, 0, len(subs))
	for _, sub := range subs {
		if sub.NextRunDate == nil {
			continue
		}
		d := DaysUntil(*sub.NextRunDate, now)
		out = append(out, Upcoming{
			RecurringTransaction: sub,
			DaysUntilDue:         d,
			IsDueToday:           d == 0,
			IsOverdue:            d < 0,
		})
	}
	return out, nil
}

// MarkAsPaid records a payment and advances the due date one frequency
// unit past the payment date. The reminder suppression state is cleared
// so the new cycle reminds from scratch. When the advanced date lands
// past the subscription's end date the final payment has been made and
// the subscription is deactivated.
func (s *Service) MarkAsPaid(ctx context.Context, id, userID string, paidDate time.Time) (*RecurringTransaction, error) {
	sub, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if paidDate.IsZero() {
		paidDate = time.Now()
	}
	next := NextRun(paidDate, sub.Frequency)

	if err := s.repo.MarkPaid(ctx, id, paidDate, next); err != nil {
		return nil, err
	}

	if sub.EndDate != nil && next.After(*sub.EndDate) {
		if err := s.repo.SetActive(ctx, id, userID, false); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, id, userID)
}

// ReminderRunResult summarizes one reminder sweep.
type ReminderRunResult struct {
	Checked int
	Sent    int
	Errors  []string
}

type reminderJob struct {
	sub *RecurringTransaction
}

type reminderResult struct {
	sent bool
	err  error
}

// ProcessReminders sweeps all active subscriptions and delivers every
// reminder that is due, fanning the work out over a bounded worker pool.
// Send failures are collected per subscription and never stop the sweep.
func (s *Service) ProcessReminders(ctx context.Context, now time.Time) (*ReminderRunResult, error) {
	subs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReminderRunResult{Checked: len(subs), Errors: []string{}}
	if len(subs) == 0 {
		return result, nil
	}

	jobs := make(chan reminderJob, len(subs))
	results := make(chan reminderResult, len(subs))

	var wg sync.WaitGroup
	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go s.reminderWorker(ctx, now, jobs, results, &wg)
	}

	for _, sub := range subs {
		jobs <- reminderJob{sub: sub}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err != nil {
			result.Errors = append(result.Errors, r.err.Error())
		}
		if r.sent {
			result.Sent++
		}
	}

	log.Printf("Reminder sweep completed: checked=%d, sent=%d, errors=%d",
		result.Checked, result.Sent, len(result.Errors))

	return result, nil
}

func (s *Service) reminderWorker(
	ctx context.Context,
	now time.Time,
	jobs <-chan reminderJob,
	results chan<- reminderResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			results <- reminderResult{err: ctx.Err()}
			return
		default:
			sent, err := s.remind(ctx, job.sub, now)
			results <- reminderResult{sent: sent, err: err}
		}
	}
}

func (s *Service) remind(ctx context.Context, sub *RecurringTransaction, now time.Time) (bool, error) {
	reminder, due := EvaluateReminder(sub, now)
	if !due {
		return false, nil
	}

	data := map[string]string{
		"subscriptionId": sub.ID,
		"dueDate":        reminder.DueDate.Format(time.RFC3339),
		"amount":         fmt.Sprintf("%.2f", sub.Amount),
		"daysUntilDue":   fmt.Sprintf("%d", reminder.DaysUntilDue),
		"priority":       reminder.Priority,
		"screen":         "Recurring",
	}

	if s.sender != nil {
		if err := s.sender.SendToUser(ctx, sub.UserID, reminder.Title, reminder.Message, "reminders", data); err != nil {
			return false, fmt.Errorf("subscription %s: %w", sub.ID, err)
		}
	}

	// Record the send even in dry-run mode so a later sweep on the same
	// day stays idempotent.
	if err := s.repo.SetLastReminderSent(ctx, sub.ID, now); err != nil {
		return true, fmt.Errorf("subscription %s: failed to record reminder: %w", sub.ID, err)
	}

	return true, nil
}
