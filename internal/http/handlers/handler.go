package handlers

import (
	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	DB *pgxpool.Pool

	Users     *service.UserService
	Repl      *service.ReplenishmentService
	Vouchers  *service.VoucherService
	Promos    *service.PromoCodeService
	Transfers *service.TransferService
}

func NewHandler(db *pgxpool.Pool, c *cache.Cache, pub service.EventPublisher) *Handler {
	return &Handler{
		DB:        db,
		Users:     service.NewUserService(db, c, pub),
		Repl:      service.NewReplenishmentService(db, c, pub),
		Vouchers:  service.NewVoucherService(db, c, pub),
		Promos:    service.NewPromoCodeService(db, c, pub),
		Transfers: service.NewTransferService(db, c, pub),
	}
}
