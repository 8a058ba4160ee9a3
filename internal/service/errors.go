package service

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrVoucherNotFound   = errors.New("voucher with this code not found")
	ErrPromoCodeNotFound = errors.New("promo code not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")

	ErrSelfTransfer     = errors.New("cannot transfer to yourself")
	ErrOwnVoucher       = errors.New("cannot activate your own voucher")
	ErrAlreadyActivated = errors.New("already activated")
	ErrVoucherExpired   = errors.New("voucher expired")
	ErrCodeExists       = errors.New("code already exists")
	ErrAlreadyReferred  = errors.New("user already has a referral owner")
	ErrSelfReferral     = errors.New("cannot be referred by yourself")
	ErrInvalidPromo     = errors.New("promo code must carry either an amount or a discount percentage")
)
