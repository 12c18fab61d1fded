package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nivixpay/nivix-ledger/internal/service"
	"go.uber.org/zap"
)

type OfflineHandler struct {
	svc *service.OfflineService
}

func NewOfflineHandler(svc *service.OfflineService) *OfflineHandler {
	return &OfflineHandler{svc: svc}
}

// Record persists an offline transaction intent. No balances move here. The
// sender is the authenticated owner; only admins may record on behalf of
// another user.
func (h *OfflineHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender              string `json:"sender"`
		Recipient           string `json:"recipient"`
		Amount              uint64 `json:"amount"`
		SourceCurrency      string `json:"source_currency"`
		DestinationCurrency string `json:"destination_currency"`
		ChannelID           string `json:"channel_id"`
		Signature           string `json:"signature"`
		OfflineTimestamp    int64  `json:"offline_timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	_, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	senderParam := req.Sender
	if senderParam == "" {
		senderParam = ownerFromAuth(r)
	} else if !isAdmin && senderParam != ownerFromAuth(r) {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}
	sender, err := parsePubkey("sender", senderParam)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-sender", err.Error())
		return
	}
	recipient, err := parsePubkey("recipient", req.Recipient)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-recipient", err.Error())
		return
	}
	if req.Amount == 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount must be positive")
		return
	}
	signature, err := solana.SignatureFromBase58(req.Signature)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-signature", "invalid signature")
		return
	}

	record, err := h.svc.Record(r.Context(), service.RecordCmd{
		Sender:              sender,
		Recipient:           recipient,
		Amount:              req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		ChannelID:           req.ChannelID,
		Signature:           signature,
		OfflineTimestamp:    req.OfflineTimestamp,
	})
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("offline record failed", zap.Error(err), zap.String("sender", req.Sender))
		RespondError(w, r, http.StatusInternalServerError, "offline/record-failed", "Failed to record offline transaction")
		return
	}

	RespondJSON(w, http.StatusCreated, record)
}

// Sync settles a previously recorded offline transaction, at most once.
func (h *OfflineHandler) Sync(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-record-id", "Invalid record ID")
		return
	}

	var req struct {
		FromWalletID string `json:"from_wallet_id"`
		ToWalletID   string `json:"to_wallet_id"`
		Authority    string `json:"authority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
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
	authority, err := solana.PrivateKeyFromBase58(req.Authority)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-authority", "invalid authority")
		return
	}

	if err := h.svc.Sync(r.Context(), service.SyncCmd{
		RecordID:     recordID,
		FromWalletID: fromID,
		ToWalletID:   toID,
		Authority:    authority,
	}); err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("offline sync failed", zap.Error(err), zap.String("record_id", recordID.String()))
		RespondError(w, r, http.StatusInternalServerError, "offline/sync-failed", "Failed to sync offline transaction")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"id": recordID, "synced": true})
}

// ListUnsynced returns pending offline transactions for an owner key.
func (h *OfflineHandler) ListUnsynced(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	ownerParam := r.URL.Query().Get("owner")
	if ownerParam == "" {
		ownerParam = ownerFromAuth(r)
	} else if !isAdmin && ownerParam != ownerFromAuth(r) {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}
	owner, err := parsePubkey("owner", ownerParam)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-owner", err.Error())
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.svc.ListUnsynced(r.Context(), owner, limit)
	if err != nil {
		zap.L().Error("list unsynced failed", zap.Error(err), zap.String("owner", owner.String()))
		RespondError(w, r, http.StatusInternalServerError, "offline/list-failed", "Failed to list offline transactions")
		return
	}

	RespondJSON(w, http.StatusOK, records)
}
