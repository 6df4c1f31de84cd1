package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/internal/core/usecase"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error"}`)) // Fallback response
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithFault maps the usecase error taxonomy onto HTTP statuses. Every
// handler funnels errors through here so status mapping stays in one place.
func respondWithFault(w http.ResponseWriter, log logger.Logger, err error) {
	switch usecase.FaultKind(err) {
	case usecase.KindValidation:
		if errors.Is(err, usecase.ErrWalletNotFound) || errors.Is(err, usecase.ErrRemittanceNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, usecase.ErrRemittanceNotCompletable) {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
	case usecase.KindInsufficientFunds:
		respondWithError(w, http.StatusBadRequest, err.Error())
	case usecase.KindLedgerRejected:
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case usecase.KindTransport:
		respondWithError(w, http.StatusBadGateway, "settlement network unavailable")
	default:
		log.Error("request failed", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
