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

// PoolHandler exposes the exchange pool operations. The pool authority is
// the service-held key that signs the pool-to-user payout leg of a swap.
type PoolHandler struct {
	svc           *service.PoolService
	repo          *repository.Repository
	poolAuthority solana.PrivateKey
}

func NewPoolHandler(svc *service.PoolService, repo *repository.Repository, poolAuthority solana.PrivateKey) *PoolHandler {
	return &PoolHandler{svc: svc, repo: repo, poolAuthority: poolAuthority}
}

// Create provisions a liquidity pool. The service rejects callers whose
// owner key is not the platform admin.
func (h *PoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	signer, err := requestSigner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		PlatformID          string `json:"platform_id"`
		Name                string `json:"name"`
		SourceCurrency      string `json:"source_currency"`
		DestinationCurrency string `json:"destination_currency"`
		SourceMint          string `json:"source_mint"`
		DestinationMint     string `json:"destination_mint"`
		SourceAccount       string `json:"source_account"`
		DestinationAccount  string `json:"destination_account"`
		InitialRate         uint64 `json:"initial_rate"`
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
	sourceMint, err := parsePubkey("source_mint", req.SourceMint)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-source-mint", err.Error())
		return
	}
	destinationMint, err := parsePubkey("destination_mint", req.DestinationMint)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-destination-mint", err.Error())
		return
	}
	sourceAccount, err := parsePubkey("source_account", req.SourceAccount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-source-account", err.Error())
		return
	}
	destinationAccount, err := parsePubkey("destination_account", req.DestinationAccount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-destination-account", err.Error())
		return
	}

	pool, err := h.svc.CreatePool(r.Context(), service.CreatePoolCmd{
		PlatformID:          platformID,
		Name:                req.Name,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		SourceMint:          sourceMint,
		DestinationMint:     destinationMint,
		SourceAccount:       sourceAccount,
		DestinationAccount:  destinationAccount,
		InitialRate:         req.InitialRate,
		Signers:             []solana.PublicKey{signer},
	})
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create pool failed", zap.Error(err), zap.String("name", req.Name))
		RespondError(w, r, http.StatusInternalServerError, "exchange/pool-create-failed", "Failed to create pool")
		return
	}

	RespondJSON(w, http.StatusCreated, pool)
}

func (h *PoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pool-id", "Invalid pool ID")
		return
	}

	pool, err := h.repo.GetPool(r.Context(), poolID)
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get pool failed", zap.Error(err), zap.String("pool_id", poolID.String()))
		RespondError(w, r, http.StatusInternalServerError, "exchange/pool-read-failed", "Failed to get pool")
		return
	}

	RespondJSON(w, http.StatusOK, pool)
}

// Swap exchanges currency through a pool at its posted rate.
func (h *PoolHandler) Swap(w http.ResponseWriter, r *http.Request) {
	owner, err := requestSigner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	poolID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pool-id", "Invalid pool ID")
		return
	}

	var req struct {
		SourceAccount      string `json:"source_account"`
		DestinationAccount string `json:"destination_account"`
		AmountIn           uint64 `json:"amount_in"`
		MinimumAmountOut   uint64 `json:"minimum_amount_out"`
		Authority          string `json:"authority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	sourceAccount, err := parsePubkey("source_account", req.SourceAccount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-source-account", err.Error())
		return
	}
	destinationAccount, err := parsePubkey("destination_account", req.DestinationAccount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-destination-account", err.Error())
		return
	}
	if req.AmountIn == 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount_in must be positive")
		return
	}
	authority, err := solana.PrivateKeyFromBase58(req.Authority)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-authority", "invalid authority")
		return
	}

	amountOut, err := h.svc.Swap(r.Context(), service.SwapCmd{
		PoolID:                 poolID,
		UserOwner:              owner,
		UserSourceAccount:      sourceAccount,
		UserDestinationAccount: destinationAccount,
		AmountIn:               req.AmountIn,
		MinimumAmountOut:       req.MinimumAmountOut,
		UserAuthority:          authority,
		PoolAuthority:          h.poolAuthority,
	})
	if err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("swap failed", zap.Error(err), zap.String("pool_id", poolID.String()))
		RespondError(w, r, http.StatusInternalServerError, "exchange/swap-failed", "Swap failed")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"pool_id":    poolID,
		"amount_in":  req.AmountIn,
		"amount_out": amountOut,
	})
}

// UpdateRate overwrites a pool's exchange rate, pool admin only.
func (h *PoolHandler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	signer, err := requestSigner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	poolID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pool-id", "Invalid pool ID")
		return
	}

	var req struct {
		ExchangeRate uint64 `json:"exchange_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	if err := h.svc.UpdateExchangeRate(r.Context(), poolID, req.ExchangeRate, []solana.PublicKey{signer}); err != nil {
		if status, pType, msg, ok := mapLedgerError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("update rate failed", zap.Error(err), zap.String("pool_id", poolID.String()))
		RespondError(w, r, http.StatusInternalServerError, "exchange/rate-update-failed", "Failed to update exchange rate")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"pool_id": poolID, "exchange_rate": req.ExchangeRate})
}
