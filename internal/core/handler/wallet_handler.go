package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/usecase"
)

type WalletHandler struct {
	usecase usecase.WalletUsecase
	log     logger.Logger
}

func NewWalletHandler(usecase usecase.WalletUsecase, log logger.Logger) *WalletHandler {
	return &WalletHandler{usecase: usecase, log: log}
}

func (h *WalletHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/wallets", h.CreateWallet).Methods("POST")
	router.HandleFunc("/api/v1/wallets/{publicKey}/balance", h.GetBalance).Methods("GET")
}

type createWalletRequest struct {
	AccountID uuid.UUID `json:"account_id"`
}

type walletResponse struct {
	WalletID  uuid.UUID `json:"wallet_id"`
	AccountID uuid.UUID `json:"account_id"`
	PublicKey string    `json:"public_key"`
	Status    string    `json:"status"`
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
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

	wallet, err := h.usecase.CreateWallet(r.Context(), req.AccountID)
	if err != nil {
		respondWithFault(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, walletResponse{
		WalletID:  wallet.ID,
		AccountID: wallet.AccountID,
		PublicKey: wallet.PublicKey,
		Status:    string(wallet.Status),
	})
}

type balanceResponse struct {
	PublicKey string `json:"public_key"`
	Balance   string `json:"balance"`
	AssetCode string `json:"asset_code"`
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	publicKey := mux.Vars(r)["publicKey"]
	if publicKey == "" {
		respondWithError(w, http.StatusBadRequest, "public key is required")
		return
	}

	balance, err := h.usecase.GetBalance(r.Context(), publicKey)
	if err != nil {
		respondWithFault(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, balanceResponse{
		PublicKey: publicKey,
		Balance:   balance.String(),
		AssetCode: "XLM",
	})
}
