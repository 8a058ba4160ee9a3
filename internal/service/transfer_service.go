package service

import (
	"context"
	"fmt"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransferService moves balance between two users synchronously.
type TransferService struct {
	db        *pgxpool.Pool
	cache     *cache.Cache
	pub       EventPublisher
	users     *repository.UserRepository
	transfers *repository.TransferRepository
	walletTx  *repository.WalletTxRepository
	audits    *repository.AuditRepository
}

func NewTransferService(db *pgxpool.Pool, c *cache.Cache, pub EventPublisher) *TransferService {
	return &TransferService{
		db:        db,
		cache:     c,
		pub:       pub,
		users:     repository.NewUserRepository(db),
		transfers: repository.NewTransferRepository(db),
		walletTx:  repository.NewWalletTxRepository(db),
		audits:    repository.NewAuditRepository(db),
	}
}

// Transfer debits the sender and credits the recipient in one transaction.
// Both rows are locked in ascending id order to avoid deadlocks.
func (s *TransferService) Transfer(ctx context.Context, senderID, recipientID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if senderID == recipientID {
		return ErrSelfTransfer
	}

	if err := s.transfer(ctx, senderID, recipientID, amount); err != nil {
		sendLog(ctx, s.pub,
			fmt.Sprintf("transfer of %d from user %d to user %d failed: %v", amount, senderID, recipientID, err),
			events.LogLvlError)
		return err
	}

	refreshUserCache(ctx, s.cache, s.users, senderID)
	refreshUserCache(ctx, s.cache, s.users, recipientID)
	return nil
}

func (s *TransferService) transfer(ctx context.Context, senderID, recipientID, amount int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	firstID, secondID := senderID, recipientID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.users.GetForUpdateTx(ctx, tx, firstID)
	if err != nil {
		return err
	}
	second, err := s.users.GetForUpdateTx(ctx, tx, secondID)
	if err != nil {
		return err
	}
	if first == nil || second == nil {
		return ErrUserNotFound
	}

	sender := first
	if sender.ID != senderID {
		sender = second
	}
	if sender.Balance < amount {
		return ErrInsufficientFunds
	}

	senderBalance, err := s.users.UpdateBalanceTx(ctx, tx, senderID, -amount)
	if err != nil {
		return err
	}
	recipientBalance, err := s.users.UpdateBalanceTx(ctx, tx, recipientID, amount)
	if err != nil {
		return err
	}

	t := &domain.TransferMoneys{SenderID: senderID, RecipientID: recipientID, Amount: amount}
	if err := s.transfers.CreateWithTx(ctx, tx, t); err != nil {
		return err
	}

	out := &domain.WalletTransaction{
		UserID:        senderID,
		Kind:          domain.WalletTxTransfer,
		Amount:        -amount,
		BalanceBefore: senderBalance + amount,
		BalanceAfter:  senderBalance,
	}
	if err := s.walletTx.CreateWithTx(ctx, tx, out); err != nil {
		return err
	}
	in := &domain.WalletTransaction{
		UserID:        recipientID,
		Kind:          domain.WalletTxTransfer,
		Amount:        amount,
		BalanceBefore: recipientBalance - amount,
		BalanceAfter:  recipientBalance,
	}
	if err := s.walletTx.CreateWithTx(ctx, tx, in); err != nil {
		return err
	}

	outAudit := &domain.AuditLog{
		UserID:   senderID,
		Action:   domain.AuditActionTransferOut,
		Category: domain.AuditCategoryBalance,
		Details: map[string]interface{}{
			"transfer_id":  t.ID,
			"recipient_id": recipientID,
			"amount":       amount,
		},
	}
	if err := s.audits.CreateWithTx(ctx, tx, outAudit); err != nil {
		return err
	}
	inAudit := &domain.AuditLog{
		UserID:   recipientID,
		Action:   domain.AuditActionTransferIn,
		Category: domain.AuditCategoryBalance,
		Details: map[string]interface{}{
			"transfer_id": t.ID,
			"sender_id":   senderID,
			"amount":      amount,
		},
	}
	if err := s.audits.CreateWithTx(ctx, tx, inAudit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
