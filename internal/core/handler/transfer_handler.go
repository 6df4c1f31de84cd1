package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/models"
	"github.com/pesaflow/remit/internal/core/usecase"
)

// Wire amounts carry at most 7 decimal places, the settlement network's
// native precision.
var amountRegexp = regexp.MustCompile(`^\s*\d{1,12}([.,]\d{1,7})?\s*$`)

type TransferHandler struct {
	usecase usecase.TransferUsecase
	log     logger.Logger
}

func NewTransferHandler(usecase usecase.TransferUsecase, log logger.Logger) *TransferHandler {
	return &TransferHandler{usecase: usecase, log: log}
}

func (h *TransferHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/transfers", h.Transfer).Methods("POST")
	router.HandleFunc("/api/v1/transfers/test", h.TestTransfer).Methods("POST")
}

type transferRequest struct {
	SenderPublicKey  string     `json:"sender_public_key"`
	RecipientAddress string     `json:"recipient_address"`
	Amount           string     `json:"amount"`
	AssetCode        string     `json:"asset_code"`
	Memo             string     `json:"memo"`
	RemittanceID     *uuid.UUID `json:"remittance_id,omitempty"`
}

type transferResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Reference     string    `json:"reference"`
	Hash          string    `json:"transaction_hash"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, models.TransactionTypeTransfer)
}

// TestTransfer submits a real payment tagged as a test so operators can
// verify connectivity without touching remittance flows.
func (h *TransferHandler) TestTransfer(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, models.TransactionTypeTest)
}

func (h *TransferHandler) transfer(w http.ResponseWriter, r *http.Request, txType models.TransactionType) {
	var req transferRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.log.Warn("Invalid amount", logger.StringField("amount", req.Amount), logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	assetCode := req.AssetCode
	if assetCode == "" {
		assetCode = "XLM"
	}

	tx, err := h.usecase.Transfer(r.Context(), usecase.TransferInput{
		SenderPublicKey:  req.SenderPublicKey,
		RecipientAddress: req.RecipientAddress,
		Amount:           amount,
		AssetCode:        assetCode,
		Memo:             req.Memo,
		Type:             txType,
		RemittanceID:     req.RemittanceID,
	})
	if err != nil {
		respondWithFault(w, h.log, err)
		return
	}

	hash := ""
	if tx.TransactionHash != nil {
		hash = *tx.TransactionHash
	}

	respondWithJSON(w, http.StatusAccepted, transferResponse{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		Hash:          hash,
		Status:        string(tx.Status),
		Amount:        tx.Amount.String(),
	})
}

func parseAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(amountStr, " ", ""), ",", ".")

	if !amountRegexp.MatchString(cleaned) {
		return decimal.Zero, fmt.Errorf("invalid amount format: %s", cleaned)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse amount: %v", err)
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}

	return amount, nil
}
