package handlers

import (
	"errors"
	"net/http"
	"time"

	"shop_backoffice/internal/http/middleware"
	"shop_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service sentinels onto HTTP codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrVoucherNotFound),
		errors.Is(err, service.ErrPromoCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrSelfTransfer),
		errors.Is(err, service.ErrOwnVoucher),
		errors.Is(err, service.ErrVoucherExpired),
		errors.Is(err, service.ErrSelfReferral),
		errors.Is(err, service.ErrInvalidPromo):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyActivated),
		errors.Is(err, service.ErrCodeExists),
		errors.Is(err, service.ErrAlreadyReferred):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

type bootstrapRequest struct {
	TgID         int64  `json:"tg_id" binding:"required"`
	Username     string `json:"username"`
	Language     string `json:"language"`
	ReferralCode string `json:"referral_code"`
}

// Bootstrap is the get-or-create entry point for a storefront user. A
// referral code, when present, attaches the new user to its owner.
func (h *Handler) Bootstrap(c *gin.Context) {
	var req bootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.Users.GetOrCreate(c.Request.Context(), req.TgID, req.Username, req.Language)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if req.ReferralCode != "" {
		if err := h.Users.AttachReferral(c.Request.Context(), req.ReferralCode, u.ID); err != nil {
			// referral attach failures do not block bootstrap
			if statusFor(err) == http.StatusInternalServerError {
				abortWithError(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusOK, u)
}

// Settings returns the storefront settings singleton.
func (h *Handler) Settings(c *gin.Context) {
	s, err := h.Users.Settings(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "settings not configured"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// Me returns the caller's cached user row.
func (h *Handler) Me(c *gin.Context) {
	u, err := h.Users.GetCached(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// NotificationSettings returns the caller's notification flags.
func (h *Handler) NotificationSettings(c *gin.Context) {
	ns, err := h.Users.NotificationSettings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ns)
}

type notificationSettingsRequest struct {
	ReferralInvitation    *bool `json:"referral_invitation"`
	ReferralReplenishment *bool `json:"referral_replenishment"`
}

// UpdateNotificationSettings flips the caller's notification flags.
func (h *Handler) UpdateNotificationSettings(c *gin.Context) {
	var req notificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID := middleware.UserID(c)
	ns, err := h.Users.NotificationSettings(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if req.ReferralInvitation != nil {
		ns.ReferralInvitation = *req.ReferralInvitation
	}
	if req.ReferralReplenishment != nil {
		ns.ReferralReplenishment = *req.ReferralReplenishment
	}
	if err := h.Users.UpdateNotificationSettings(c.Request.Context(), ns); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ns)
}

type createPaymentRequest struct {
	TypePaymentID int64 `json:"type_payment_id" binding:"required"`
	OriginAmount  int64 `json:"origin_amount" binding:"required"`
	Amount        int64 `json:"amount" binding:"required"`
}

// CreatePayment opens a pending replenishment and returns its external
// reference for the provider invoice.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rp, err := h.Repl.CreatePayment(c.Request.Context(), middleware.UserID(c), req.TypePaymentID, req.OriginAmount, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rp)
}

type createVoucherRequest struct {
	Amount              int64      `json:"amount" binding:"required"`
	NumberOfActivations *int       `json:"number_of_activations"`
	ExpireAt            *time.Time `json:"expire_at"`
}

// CreateVoucher issues a voucher on the caller's behalf.
func (h *Handler) CreateVoucher(c *gin.Context) {
	var req createVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	v, err := h.Vouchers.Create(c.Request.Context(), middleware.UserID(c), req.Amount, req.NumberOfActivations, req.ExpireAt, false)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// MyVouchers lists the caller's vouchers.
func (h *Handler) MyVouchers(c *gin.Context) {
	vs, err := h.Vouchers.ByCreator(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, vs)
}

type activateRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language"`
}

// ActivateVoucher credits the caller and emits the activation event.
func (h *Handler) ActivateVoucher(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	balance, err := h.Vouchers.Activate(c.Request.Context(), middleware.UserID(c), req.Code, req.Language)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// ActivatePromoCode validates a promo code for the caller and emits the
// activation event. The response carries the discount terms.
func (h *Handler) ActivatePromoCode(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.Promos.Activate(c.Request.Context(), middleware.UserID(c), req.Code)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type transferRequest struct {
	RecipientID int64 `json:"recipient_id" binding:"required"`
	Amount      int64 `json:"amount" binding:"required"`
}

// Transfer moves balance from the caller to another user.
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.Transfers.Transfer(c.Request.Context(), middleware.UserID(c), req.RecipientID, req.Amount); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}
