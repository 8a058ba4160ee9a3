package handlers

import (
	"net/http"
	"strconv"
	"time"

	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/http/middleware"
	"shop_backoffice/internal/repository"
	"shop_backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpsHandler serves the JWT-guarded operator endpoints.
type OpsHandler struct {
	repl     *repository.ReplenishmentRepository
	audits   *repository.AuditRepository
	vouchers *service.VoucherService
	promos   *service.PromoCodeService
}

func NewOpsHandler(db *pgxpool.Pool, vouchers *service.VoucherService, promos *service.PromoCodeService) *OpsHandler {
	return &OpsHandler{
		repl:     repository.NewReplenishmentRepository(db),
		audits:   repository.NewAuditRepository(db),
		vouchers: vouchers,
		promos:   promos,
	}
}

// GetReplenishment looks up one replenishment by id.
func (h *OpsHandler) GetReplenishment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	rp, err := h.repl.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if rp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "replenishment not found"})
		return
	}
	c.JSON(http.StatusOK, rp)
}

// Stats reports replenishment counts per status.
func (h *OpsHandler) Stats(c *gin.Context) {
	counts, err := h.repl.CountByStatus(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replenishments": counts})
}

// RecentAudit returns the latest audit entries, newest first.
func (h *OpsHandler) RecentAudit(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	var (
		logs []*domain.AuditLog
		err  error
	)
	if category := c.Query("category"); category != "" {
		logs, err = h.audits.GetByCategory(c.Request.Context(), category, limit)
	} else {
		logs, err = h.audits.GetRecent(c.Request.Context(), limit)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

type opsVoucherRequest struct {
	Amount              int64  `json:"amount" binding:"required"`
	NumberOfActivations *int   `json:"number_of_activations"`
	ExpireAt            *int64 `json:"expire_at_unix"`
}

// CreateAdminVoucher issues an admin voucher. Admin vouchers do not report
// activations to their creator.
func (h *OpsHandler) CreateAdminVoucher(c *gin.Context) {
	var req opsVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	expireAt := unixPtr(req.ExpireAt)
	v, err := h.vouchers.Create(c.Request.Context(), middleware.UserID(c), req.Amount, req.NumberOfActivations, expireAt, true)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type opsPromoRequest struct {
	Code                string `json:"code" binding:"required"`
	MinOrderAmount      int64  `json:"min_order_amount"`
	Amount              *int64 `json:"amount"`
	DiscountPercentage  *int   `json:"discount_percentage"`
	NumberOfActivations int    `json:"number_of_activations" binding:"required"`
	ExpireAt            *int64 `json:"expire_at_unix"`
}

// CreatePromoCode inserts a promo code with either a fixed amount or a
// discount percentage.
func (h *OpsHandler) CreatePromoCode(c *gin.Context) {
	var req opsPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p := &domain.PromoCode{
		Code:                req.Code,
		MinOrderAmount:      req.MinOrderAmount,
		Amount:              req.Amount,
		DiscountPercentage:  req.DiscountPercentage,
		NumberOfActivations: req.NumberOfActivations,
		ExpireAt:            unixPtr(req.ExpireAt),
	}
	if err := h.promos.Create(c.Request.Context(), p); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func unixPtr(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}
