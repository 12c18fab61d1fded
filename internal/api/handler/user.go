package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nivixpay/nivix-ledger/internal/repository"
	"github.com/nivixpay/nivix-ledger/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc  *service.PlatformService
	repo *repository.Repository
}

func NewUserHandler(svc *service.PlatformService, repo *repository.Repository) *UserHandler {
	return &UserHandler{svc: svc, repo: repo}
}

// Register creates a user under an active platform.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlatformID   string `json:"platform_id"`
		Owner        string `json:"owner"`
		Username     string `json:"username"`
		HomeCurrency string `json:"home_currency"`
		KycVerified  bool   `json:"kyc_verified"`
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
	owner, err := parsePubkey("owner", req.Owner)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-owner", err.Error())
		return
	}
	if req.Username == "" || req.HomeCurrency == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-field", "username and home_currency are required")
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), platformID, owner, req.Username, req.HomeCurrency, req.KycVerified)
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("register user failed", zap.Error(err), zap.String("owner", req.Owner))
		RespondError(w, r, http.StatusInternalServerError, "user/register-failed", "Failed to register user")
		return
	}

	RespondJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user ID")
		return
	}
	if !isAdmin && userID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get user failed", zap.Error(err), zap.String("user_id", userID.String()))
		RespondError(w, r, http.StatusInternalServerError, "user/read-failed", "Failed to get user")
		return
	}

	RespondJSON(w, http.StatusOK, user)
}

// AttestKyc records a KYC verdict for a user. The service rejects callers
// whose owner key is not the platform admin.
func (h *UserHandler) AttestKyc(w http.ResponseWriter, r *http.Request) {
	signer, err := requestSigner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		PlatformID string `json:"platform_id"`
		Owner      string `json:"owner"`
		Verified   bool   `json:"verified"`
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
	owner, err := parsePubkey("owner", req.Owner)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-owner", err.Error())
		return
	}

	if err := h.svc.AttestKyc(r.Context(), platformID, owner, req.Verified, []solana.PublicKey{signer}); err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("kyc attestation failed", zap.Error(err), zap.String("owner", req.Owner))
		RespondError(w, r, http.StatusInternalServerError, "user/kyc-attest-failed", "Failed to attest KYC")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"owner": req.Owner, "kyc_verified": req.Verified})
}

// KycStatus returns the stored attestation for an owner key.
func (h *UserHandler) KycStatus(w http.ResponseWriter, r *http.Request) {
	owner, err := parsePubkey("owner", chi.URLParam(r, "owner"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-owner", err.Error())
		return
	}

	user, err := h.repo.GetUserByOwner(r.Context(), owner)
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("kyc status lookup failed", zap.Error(err), zap.String("owner", owner.String()))
		RespondError(w, r, http.StatusInternalServerError, "user/kyc-status-failed", "Failed to get KYC status")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"owner":        user.Owner,
		"kyc_verified": user.KycVerified,
		"is_active":    user.IsActive,
	})
}
