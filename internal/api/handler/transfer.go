package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/nivixpay/nivix-ledger/internal/service"
	"go.uber.org/zap"
)

type TransferHandler struct {
	svc *service.TransferService
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// Process executes an online transfer between two wallets. The authority is
// the sender's base58 private key used to sign the external token move; the
// custody model matches a hosted wallet, the key is used once and never
// stored.
func (h *TransferHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlatformID          string `json:"platform_id"`
		FromWalletID        string `json:"from_wallet_id"`
		ToWalletID          string `json:"to_wallet_id"`
		Amount              uint64 `json:"amount"`
		SourceCurrency      string `json:"source_currency"`
		DestinationCurrency string `json:"destination_currency"`
		Memo                string `json:"memo"`
		Authority           string `json:"authority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	platformID, err := uuid.Parse(req.PlatformID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-platform-id", "Invalid platform_id")
		return
	}
	fromID, err := uuid.Parse(req.FromWalletID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-wallet-id", "Invalid from_wallet_id")
		return
	}
	toID, err := uuid.Parse(req.ToWalletID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-wallet-id", "Invalid to_wallet_id")
		return
	}
	if req.Amount == 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount must be positive")
		return
	}
	authority, err := solana.PrivateKeyFromBase58(req.Authority)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-authority", "invalid authority")
		return
	}

	record, err := h.svc.ProcessTransfer(r.Context(), service.TransferCmd{
		PlatformID:          platformID,
		FromWalletID:        fromID,
		ToWalletID:          toID,
		Amount:              req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Memo:                req.Memo,
		Authority:           authority,
	})
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("transfer failed", zap.Error(err),
			zap.String("from_wallet", fromID.String()),
			zap.String("to_wallet", toID.String()),
		)
		RespondError(w, r, http.StatusInternalServerError, "transfer/failed", "Transfer failed")
		return
	}

	RespondJSON(w, http.StatusCreated, record)
}
