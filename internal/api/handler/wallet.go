package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nivixpay/nivix-ledger/internal/repository"
	"github.com/nivixpay/nivix-ledger/internal/service"
	"go.uber.org/zap"
)

type WalletHandler struct {
	svc  *service.PlatformService
	repo *repository.Repository
}

func NewWalletHandler(svc *service.PlatformService, repo *repository.Repository) *WalletHandler {
	return &WalletHandler{svc: svc, repo: repo}
}

// Create adds a per-currency wallet for an active user.
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		UserID       string `json:"user_id"`
		CurrencyCode string `json:"currency_code"`
		TokenMint    string `json:"token_mint"`
		TokenAccount string `json:"token_account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user_id")
		return
	}
	if !isAdmin && userID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}
	if req.CurrencyCode == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-currency", "currency_code is required")
		return
	}
	tokenMint, err := parsePubkey("token_mint", req.TokenMint)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-token-mint", err.Error())
		return
	}
	tokenAccount, err := parsePubkey("token_account", req.TokenAccount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-token-account", err.Error())
		return
	}

	wallet, err := h.svc.AddWallet(r.Context(), userID, req.CurrencyCode, tokenMint, tokenAccount)
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create wallet failed", zap.Error(err), zap.String("user_id", userID.String()))
		RespondError(w, r, http.StatusInternalServerError, "wallet/create-failed", "Failed to create wallet")
		return
	}

	RespondJSON(w, http.StatusCreated, wallet)
}

// GetBalance returns one wallet, owner or admin only.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	walletID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-wallet-id", "Invalid wallet ID")
		return
	}

	wallet, err := h.repo.GetWallet(r.Context(), walletID)
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get wallet failed", zap.Error(err), zap.String("wallet_id", walletID.String()))
		RespondError(w, r, http.StatusInternalServerError, "wallet/read-failed", "Failed to get wallet")
		return
	}
	if !isAdmin && wallet.UserID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	RespondJSON(w, http.StatusOK, wallet)
}

// Transactions lists completed transfers touching the caller's owner key,
// newest first.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
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
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.repo.GetTransactionsByUser(r.Context(), owner, limit, offset)
	if err != nil {
		zap.L().Error("list transactions failed", zap.Error(err), zap.String("owner", owner.String()))
		RespondError(w, r, http.StatusInternalServerError, "wallet/transactions-read-failed", "Failed to list transactions")
		return
	}

	RespondJSON(w, http.StatusOK, records)
}
