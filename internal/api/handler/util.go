package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nivixpay/nivix-ledger/internal/api/middleware"
	"github.com/nivixpay/nivix-ledger/internal/api/problem"
	"github.com/nivixpay/nivix-ledger/internal/models"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}

	return actorID, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

// requestSigner returns the caller's public key from the owner claim. The
// signer set passed to admin-gated services is built from this, never from
// the request body.
func requestSigner(r *http.Request) (solana.PublicKey, error) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		return solana.PublicKey{}, errors.New("missing owner in auth context")
	}
	return solana.PublicKeyFromBase58(owner)
}

func ownerFromAuth(r *http.Request) string {
	return middleware.OwnerFromContext(r.Context())
}

func parsePubkey(field, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		return solana.PublicKey{}, errors.New("invalid " + field)
	}
	return key, nil
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}

// mapLedgerError translates the service sentinels into HTTP problems.
func mapLedgerError(err error) (status int, problemType, message string, ok bool) {
	switch {
	case errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "ledger/insufficient-balance", "insufficient balance", true
	case errors.Is(err, models.ErrKycRequired):
		return http.StatusForbidden, "ledger/kyc-required", "KYC verification required", true
	case errors.Is(err, models.ErrPlatformInactive):
		return http.StatusConflict, "ledger/platform-inactive", "platform is not active", true
	case errors.Is(err, models.ErrUserInactive):
		return http.StatusConflict, "ledger/user-inactive", "user is not active", true
	case errors.Is(err, models.ErrPoolInactive):
		return http.StatusConflict, "exchange/pool-inactive", "pool is not active", true
	case errors.Is(err, models.ErrAdminRequired):
		return http.StatusForbidden, "auth/admin-required", "admin signature required", true
	case errors.Is(err, models.ErrExceedsOfflineLimit):
		return http.StatusUnprocessableEntity, "offline/limit-exceeded", "amount exceeds the offline transaction limit", true
	case errors.Is(err, models.ErrAlreadySynced):
		return http.StatusConflict, "offline/already-synced", "offline transaction already synced", true
	case errors.Is(err, models.ErrSlippageExceeded):
		return http.StatusUnprocessableEntity, "exchange/slippage-exceeded", "swap output below the requested minimum", true
	case errors.Is(err, models.ErrPlatformNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrWalletNotFound),
		errors.Is(err, models.ErrRecordNotFound),
		errors.Is(err, models.ErrPoolNotFound):
		return http.StatusNotFound, "ledger/not-found", err.Error(), true
	default:
		return 0, "", "", false
	}
}
