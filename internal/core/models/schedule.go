package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ScheduleType string

const (
	ScheduleTypeHourly ScheduleType = "hourly"
	ScheduleTypeDaily  ScheduleType = "daily"
	ScheduleTypeWeekly ScheduleType = "weekly"
)

// ScheduledTransaction is a named batch of transaction ids processed on a
// cadence. Recurring batches advance next_execution after each run; one-shot
// batches deactivate themselves.
type ScheduledTransaction struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	TransactionIDs pq.StringArray `json:"transaction_ids" db:"transaction_ids"`
	ScheduleType   ScheduleType   `json:"schedule_type" db:"schedule_type"`
	NextExecution  time.Time      `json:"next_execution" db:"next_execution"`
	IsActive       bool           `json:"is_active" db:"is_active"`
	IsRecurring    bool           `json:"is_recurring" db:"is_recurring"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeHourly, ScheduleTypeDaily, ScheduleTypeWeekly:
		return true
	}
	return false
}

// Next returns the execution time following from, per the schedule type.
func (t ScheduleType) Next(from time.Time) (time.Time, error) {
	switch t {
	case ScheduleTypeHourly:
		return from.Add(time.Hour), nil
	case ScheduleTypeDaily:
		return from.AddDate(0, 0, 1), nil
	case ScheduleTypeWeekly:
		return from.AddDate(0, 0, 7), nil
	}
	return time.Time{}, fmt.Errorf("unknown schedule type: %s", t)
}
