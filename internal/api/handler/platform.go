package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nivixpay/nivix-ledger/internal/repository"
	"github.com/nivixpay/nivix-ledger/internal/service"
	"go.uber.org/zap"
)

type PlatformHandler struct {
	svc  *service.PlatformService
	repo *repository.Repository
}

func NewPlatformHandler(svc *service.PlatformService, repo *repository.Repository) *PlatformHandler {
	return &PlatformHandler{svc: svc, repo: repo}
}

// Activate bootstraps the platform root record. The caller's owner key
// becomes the platform admin.
func (h *PlatformHandler) Activate(w http.ResponseWriter, r *http.Request) {
	admin, err := requestSigner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Name == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-name", "name is required")
		return
	}

	platform, err := h.svc.ActivatePlatform(r.Context(), req.Name, admin)
	if err != nil {
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("activate platform failed", zap.Error(err), zap.String("name", req.Name))
		RespondError(w, r, http.StatusInternalServerError, "platform/activate-failed", "Failed to activate platform")
		return
	}

	RespondJSON(w, http.StatusCreated, platform)
}

func (h *PlatformHandler) Get(w http.ResponseWriter, r *http.Request) {
	platformID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-platform-id", "Invalid platform ID")
		return
	}

	platform, err := h.repo.GetPlatform(r.Context(), platformID)
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get platform failed", zap.Error(err), zap.String("platform_id", platformID.String()))
		RespondError(w, r, http.StatusInternalServerError, "platform/read-failed", "Failed to get platform")
		return
	}

	RespondJSON(w, http.StatusOK, platform)
}
