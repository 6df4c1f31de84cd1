package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/usecase"
)

type RemittanceHandler struct {
	usecase usecase.RemittanceUsecase
	log     logger.Logger
}

func NewRemittanceHandler(usecase usecase.RemittanceUsecase, log logger.Logger) *RemittanceHandler {
	return &RemittanceHandler{usecase: usecase, log: log}
}

func (h *RemittanceHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/remittances", h.CreateRemittance).Methods("POST")
	router.HandleFunc("/api/v1/remittances/{id}", h.GetRemittance).Methods("GET")
	router.HandleFunc("/api/v1/remittances/{id}/complete", h.CompleteRemittance).Methods("POST")
}

type createRemittanceRequest struct {
	AccountID         uuid.UUID `json:"account_id"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	BankName          string    `json:"bank_name"`
	BankAccountNumber string    `json:"bank_account_number"`
	BankAccountName   string    `json:"bank_account_name"`
}

type remittanceResponse struct {
	RemittanceID uuid.UUID `json:"remittance_id"`
	Amount       string    `json:"amount"`
	FeeAmount    string    `json:"fee_amount"`
	TotalAmount  string    `json:"total_amount"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
}

func toRemittanceResponse(r *models.Remittance) remittanceResponse {
	return remittanceResponse{
		RemittanceID: r.ID,
		Amount:       r.Amount.String(),
		FeeAmount:    r.FeeAmount.String(),
		TotalAmount:  r.TotalAmount.String(),
		Currency:     r.Currency,
		Status:       string(r.Status),
	}
}

func (h *RemittanceHandler) CreateRemittance(w http.ResponseWriter, r *http.Request) {
	var req createRemittanceRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.AccountID == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.log.Warn("Invalid amount", logger.StringField("amount", req.Amount), logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	remittance, err := h.usecase.CreateRemittance(r.Context(), usecase.RemittanceInput{
		AccountID:         req.AccountID,
		Amount:            amount,
		Currency:          req.Currency,
		BankName:          req.BankName,
		BankAccountNumber: req.BankAccountNumber,
		BankAccountName:   req.BankAccountName,
	})
	if err != nil {
		respondWithFault(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, toRemittanceResponse(remittance))
}

func (h *RemittanceHandler) GetRemittance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid remittance id")
		return
	}

	remittance, err := h.usecase.GetRemittance(r.Context(), id)
	if err != nil {
		respondWithFault(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toRemittanceResponse(remittance))
}

func (h *RemittanceHandler) CompleteRemittance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid remittance id")
		return
	}

	if err := h.usecase.CompleteRemittance(r.Context(), id); err != nil {
		respondWithFault(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"remittance_id": id.String(),
		"status":        string(models.RemittanceStatusCompleted),
	})
}
