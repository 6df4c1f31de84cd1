package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/repository"
)

type ScheduleInput struct {
	Name           string
	TransactionIDs []uuid.UUID
	ScheduleType   models.ScheduleType
	FirstExecution time.Time
	IsRecurring    bool
}

type ScheduleUsecase interface {
	CreateSchedule(ctx context.Context, in ScheduleInput) (*models.ScheduledTransaction, error)
}

type scheduleUsecase struct {
	repo repository.ScheduleRepository
	log  logger.Logger
}

func NewScheduleUsecase(repo repository.ScheduleRepository, log logger.Logger) ScheduleUsecase {
	return &scheduleUsecase{repo: repo, log: log}
}

func (uc *scheduleUsecase) CreateSchedule(ctx context.Context, in ScheduleInput) (*models.ScheduledTransaction, error) {
	if in.Name == "" {
		return nil, &Fault{Kind: KindValidation, Detail: "schedule name is required"}
	}
	if !in.ScheduleType.Valid() {
		return nil, &Fault{Kind: KindValidation, Detail: fmt.Sprintf("unknown schedule type %q", in.ScheduleType), Err: ErrInvalidScheduleType}
	}

	first := in.FirstExecution
	if first.IsZero() {
		next, err := in.ScheduleType.Next(time.Now().UTC())
		if err != nil {
			return nil, err
		}
		first = next
	}

	ids := make(pq.StringArray, 0, len(in.TransactionIDs))
	for _, id := range in.TransactionIDs {
		ids = append(ids, id.String())
	}

	schedule := &models.ScheduledTransaction{
		ID:             uuid.New(),
		Name:           in.Name,
		TransactionIDs: ids,
		ScheduleType:   in.ScheduleType,
		NextExecution:  first,
		IsActive:       true,
		IsRecurring:    in.IsRecurring,
	}

	if err := uc.repo.Create(ctx, schedule); err != nil {
		return nil, fmt.Errorf("persist schedule: %w", err)
	}

	uc.log.Info("schedule created",
		logger.StringField("schedule_id", schedule.ID.String()),
		logger.StringField("name", schedule.Name),
		logger.StringField("type", string(schedule.ScheduleType)),
		logger.IntField("members", len(ids)))

	return schedule, nil
}
