package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/usecase"
)

// BatchRunner triggers one immediate sweep of due batches.
type BatchRunner interface {
	RunOnce(ctx context.Context) error
}

type ScheduleHandler struct {
	usecase usecase.ScheduleUsecase
	runner  BatchRunner
	log     logger.Logger
}

func NewScheduleHandler(usecase usecase.ScheduleUsecase, runner BatchRunner, log logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{usecase: usecase, runner: runner, log: log}
}

func (h *ScheduleHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/schedules", h.CreateSchedule).Methods("POST")
	router.HandleFunc("/api/v1/schedules/run", h.RunNow).Methods("POST")
}

type createScheduleRequest struct {
	Name           string      `json:"name"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
	ScheduleType   string      `json:"schedule_type"`
	FirstExecution *time.Time  `json:"first_execution,omitempty"`
	IsRecurring    bool        `json:"is_recurring"`
}

type scheduleResponse struct {
	ScheduleID    uuid.UUID `json:"schedule_id"`
	Name          string    `json:"name"`
	ScheduleType  string    `json:"schedule_type"`
	NextExecution time.Time `json:"next_execution"`
	IsRecurring   bool      `json:"is_recurring"`
	Members       int       `json:"members"`
}

func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	in := usecase.ScheduleInput{
		Name:           req.Name,
		TransactionIDs: req.TransactionIDs,
		ScheduleType:   models.ScheduleType(req.ScheduleType),
		IsRecurring:    req.IsRecurring,
	}
	if req.FirstExecution != nil {
		in.FirstExecution = *req.FirstExecution
	}

	schedule, err := h.usecase.CreateSchedule(r.Context(), in)
	if err != nil {
		respondWithFault(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, scheduleResponse{
		ScheduleID:    schedule.ID,
		Name:          schedule.Name,
		ScheduleType:  string(schedule.ScheduleType),
		NextExecution: schedule.NextExecution,
		IsRecurring:   schedule.IsRecurring,
		Members:       len(schedule.TransactionIDs),
	})
}

// RunNow sweeps every due batch immediately instead of waiting for the next
// tick.
func (h *ScheduleHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.RunOnce(r.Context()); err != nil {
		h.log.Error("manual batch run failed", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "batch run failed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
