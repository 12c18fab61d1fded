package models

import "errors"

// Engine error taxonomy. Every failure is returned synchronously to the
// caller; nothing is retried or silently recovered.
var (
	ErrInsufficientBalance = errors.New("insufficient balance for this operation")
	ErrKycRequired         = errors.New("kyc verification is required for this operation")
	ErrPlatformInactive    = errors.New("the platform is currently inactive")
	ErrUserInactive        = errors.New("the user account is inactive")
	ErrPoolInactive        = errors.New("the liquidity pool is inactive")
	ErrAdminRequired       = errors.New("only the admin can perform this operation")
	ErrExceedsOfflineLimit = errors.New("offline transaction amount exceeds the limit")
	ErrAlreadySynced       = errors.New("this offline transaction has already been synced")
	ErrSlippageExceeded    = errors.New("slippage tolerance exceeded")

	ErrPlatformNotFound = errors.New("platform not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrRecordNotFound   = errors.New("record not found")
	ErrPoolNotFound     = errors.New("liquidity pool not found")
)
