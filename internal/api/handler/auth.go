package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nivixpay/nivix-ledger/internal/api/middleware"
	"github.com/nivixpay/nivix-ledger/internal/repository"
	"go.uber.org/zap"
)

type AuthHandler struct {
	repo           *repository.Repository
	bootstrapOwner solana.PublicKey
}

func NewAuthHandler(repo *repository.Repository, bootstrapOwner solana.PublicKey) *AuthHandler {
	return &AuthHandler{repo: repo, bootstrapOwner: bootstrapOwner}
}

// Login issues a JWT for a registered user. The role claim is admin when the
// user's owner key administers a platform; the owner claim carries the base58
// public key that services treat as the caller's signing identity.
//
// Alternatively the request may carry an owner key instead of a user id. That
// path only admits the configured bootstrap owner and exists so the first
// platform can be activated before any user rows exist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"` // Mock login by UserID
		Owner  string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	if req.UserID == "" && req.Owner != "" {
		h.loginBootstrap(w, r, req.Owner)
		return
	}

	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user_id")
		return
	}

	user, err := h.repo.GetUser(r.Context(), uid)
	if err != nil {
		RespondError(w, r, http.StatusNotFound, "user/not-found", "User not found")
		return
	}

	role := "user"
	isAdmin, err := h.repo.IsPlatformAdmin(r.Context(), user.Owner)
	if err != nil {
		zap.L().Error("admin lookup failed", zap.Error(err), zap.String("user_id", uid.String()))
		RespondError(w, r, http.StatusInternalServerError, "auth/login-failed", "Failed to resolve role")
		return
	}
	if isAdmin {
		role = "admin"
	}

	h.issueToken(w, r, uid.String(), user.Owner, role)
}

func (h *AuthHandler) loginBootstrap(w http.ResponseWriter, r *http.Request, rawOwner string) {
	owner, err := solana.PublicKeyFromBase58(rawOwner)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-owner", "invalid owner")
		return
	}
	if h.bootstrapOwner.IsZero() || !owner.Equals(h.bootstrapOwner) {
		RespondError(w, r, http.StatusForbidden, "auth/bootstrap-denied", "owner login is limited to the bootstrap owner")
		return
	}
	// No user row backs this token; uuid.Nil marks the synthetic identity.
	h.issueToken(w, r, uuid.Nil.String(), owner, "admin")
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, userID string, owner solana.PublicKey, role string) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"owner":   owner.String(),
		"role":    role,
		"sub":     userID,
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	}
	if iss := middleware.JWTIssuer(); iss != "" {
		claims["iss"] = iss
	}
	if aud := middleware.JWTAudience(); aud != "" {
		claims["aud"] = aud
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/sign-failed", "Failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}
