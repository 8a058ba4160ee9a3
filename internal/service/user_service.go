package service

import (
	"context"
	"fmt"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserService handles user bootstrap and referral attachment.
type UserService struct {
	db       *pgxpool.Pool
	cache    *cache.Cache
	pub      EventPublisher
	users    *repository.UserRepository
	refs     *repository.ReferralRepository
	settings *repository.SettingsRepository
}

func NewUserService(db *pgxpool.Pool, c *cache.Cache, pub EventPublisher) *UserService {
	return &UserService{
		db:       db,
		cache:    c,
		pub:      pub,
		users:    repository.NewUserRepository(db),
		refs:     repository.NewReferralRepository(db),
		settings: repository.NewSettingsRepository(db),
	}
}

// GetOrCreate returns the user for a telegram id, creating it on first
// contact with a fresh unique referral code.
func (s *UserService) GetOrCreate(ctx context.Context, tgID int64, username, language string) (*domain.User, error) {
	u, err := s.users.GetByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	u = &domain.User{
		TgID:         tgID,
		Username:     username,
		Language:     language,
		ReferralCode: code,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	cache.Refresh(ctx, s.cache, cache.UserKey(u.ID), u, cache.TTLUser)
	return u, nil
}

func (s *UserService) uniqueReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		exists, err := s.users.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate unique referral code")
}

// GetCached is the read-through user fetch.
func (s *UserService) GetCached(ctx context.Context, id int64) (*domain.User, error) {
	return cache.GetOne(ctx, s.cache, cache.UserKey(id), cache.TTLUser,
		func(ctx context.Context) (*domain.User, error) {
			return s.users.GetByID(ctx, id)
		})
}

// AttachReferral links a freshly arrived user to the owner of a referral
// code. A user gets at most one owner, and never themselves.
func (s *UserService) AttachReferral(ctx context.Context, referralCode string, referredUserID int64) error {
	owner, err := s.users.GetByReferralCode(ctx, referralCode)
	if err != nil {
		return err
	}
	if owner == nil {
		return ErrUserNotFound
	}
	if owner.ID == referredUserID {
		return ErrSelfReferral
	}

	existing, err := s.refs.GetByReferredUser(ctx, referredUserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyReferred
	}

	ref := &domain.Referral{
		OwnerID:        owner.ID,
		ReferredUserID: referredUserID,
		Level:          1,
	}
	if err := s.refs.Create(ctx, ref); err != nil {
		return err
	}

	ns, err := s.settings.GetNotificationSettings(ctx, owner.ID)
	if err == nil && ns.ReferralInvitation {
		sendLog(ctx, s.pub,
			fmt.Sprintf("user %d joined via referral link of user %d", referredUserID, owner.ID),
			events.LogLvlInfo)
	}
	return nil
}

// NotificationSettings returns the user's notification flags.
func (s *UserService) NotificationSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	return s.settings.GetNotificationSettings(ctx, userID)
}

// UpdateNotificationSettings stores the user's notification flags.
func (s *UserService) UpdateNotificationSettings(ctx context.Context, ns *domain.NotificationSettings) error {
	return s.settings.UpsertNotificationSettings(ctx, ns)
}

// Settings returns the cached settings singleton.
func (s *UserService) Settings(ctx context.Context) (*domain.Settings, error) {
	return cache.GetOne(ctx, s.cache, cache.SettingsKey, cache.TTLNone,
		func(ctx context.Context) (*domain.Settings, error) {
			return s.settings.Get(ctx)
		})
}
