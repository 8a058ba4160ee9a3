package repository

import (
	"context"
	"errors"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings singleton.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	var s domain.Settings
	err := r.db.QueryRow(ctx, `
		SELECT id, channel_for_logging_id, COALESCE(support_contact, ''),
		       COALESCE(subscription_channel, ''), maintenance_mode, default_language
		FROM settings
		LIMIT 1
	`).Scan(&s.ID, &s.ChannelForLoggingID, &s.SupportContact, &s.SubscriptionChannel,
		&s.MaintenanceMode, &s.DefaultLanguage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetNotificationSettings returns the user's flags; both default to enabled
// when no row exists yet.
func (r *SettingsRepository) GetNotificationSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	ns := domain.NotificationSettings{
		UserID:                userID,
		ReferralInvitation:    true,
		ReferralReplenishment: true,
	}
	err := r.db.QueryRow(ctx, `
		SELECT referral_invitation, referral_replenishment
		FROM notification_settings
		WHERE user_id = $1
	`, userID).Scan(&ns.ReferralInvitation, &ns.ReferralReplenishment)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return &ns, nil
}

// UpsertNotificationSettings stores the user's flags.
func (r *SettingsRepository) UpsertNotificationSettings(ctx context.Context, ns *domain.NotificationSettings) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notification_settings (user_id, referral_invitation, referral_replenishment)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET referral_invitation = EXCLUDED.referral_invitation,
		    referral_replenishment = EXCLUDED.referral_replenishment
	`, ns.UserID, ns.ReferralInvitation, ns.ReferralReplenishment)
	return err
}
