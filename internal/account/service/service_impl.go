package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/slotwise/internal/account/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/pkg/db/option"
	"github.com/smallbiznis/slotwise/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	users     repository.Table[domain.User]
	providers repository.Table[domain.Provider]
	offerings repository.Table[domain.Offering]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		clock: p.Clock,

		users: repository.NewTable[domain.User](p.DB, repository.Errors{
			NotFound: domain.ErrUserNotFound,
			Conflict: domain.ErrEmailTaken,
		}),
		providers: repository.NewTable[domain.Provider](p.DB, repository.Errors{NotFound: domain.ErrProviderNotFound}),
		offerings: repository.NewTable[domain.Offering](p.DB, repository.Errors{NotFound: domain.ErrOfferingNotFound}),
	}
}

func (s *Service) RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	now := s.clock.Now().UTC()
	user := domain.User{
		ID:          s.genID.Generate(),
		Email:       email,
		FullName:    name,
		Phone:       strings.TrimSpace(req.Phone),
		Role:        req.Role,
		IsSuspended: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Insert(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) RegisterProvider(ctx context.Context, userID snowflake.ID) (*domain.Provider, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleProvider {
		return nil, domain.ErrNotProviderUser
	}

	id := s.genID.Generate()
	now := s.clock.Now().UTC()
	provider := domain.Provider{
		ID:            id,
		UserID:        userID,
		AccountNumber: fmt.Sprintf("ACC-%d", id.Int64()),
		IsLocked:      false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// A second registration for the same user keeps the first account.
	if err := s.providers.InsertIgnore(ctx, &provider, "user_id"); err != nil {
		return nil, err
	}

	return s.GetProviderByUser(ctx, userID)
}

func (s *Service) CreateOffering(ctx context.Context, req domain.CreateOfferingRequest) (*domain.Offering, error) {
	if _, err := s.GetProvider(ctx, req.ProviderID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if req.DurationMinutes <= 0 {
		return nil, domain.ErrInvalidDuration
	}

	now := s.clock.Now().UTC()
	offering := domain.Offering{
		ID:                   s.genID.Generate(),
		ProviderID:           req.ProviderID,
		Name:                 name,
		Description:          strings.TrimSpace(req.Description),
		Price:                req.Price,
		DurationMinutes:      req.DurationMinutes,
		IsActive:             true,
		RequiresConfirmation: req.RequiresConfirmation,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.offerings.Insert(ctx, &offering); err != nil {
		return nil, err
	}
	return &offering, nil
}

func (s *Service) ArchiveOffering(ctx context.Context, offeringID snowflake.ID) error {
	return s.offerings.Patch(ctx, offeringID, map[string]any{
		"is_active":  false,
		"updated_at": s.clock.Now().UTC(),
	})
}

func (s *Service) GetUser(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	return s.users.Get(ctx, &domain.User{ID: userID})
}

func (s *Service) GetProvider(ctx context.Context, providerID snowflake.ID) (*domain.Provider, error) {
	return s.providers.Get(ctx, &domain.Provider{ID: providerID})
}

func (s *Service) GetProviderByUser(ctx context.Context, userID snowflake.ID) (*domain.Provider, error) {
	return s.providers.Get(ctx, &domain.Provider{UserID: userID})
}

func (s *Service) GetProviderByAccount(ctx context.Context, accountNumber string) (*domain.Provider, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, domain.ErrProviderNotFound
	}
	return s.providers.Get(ctx, &domain.Provider{AccountNumber: accountNumber})
}

func (s *Service) GetProviderProfile(ctx context.Context, providerID snowflake.ID) (*domain.ProviderProfile, error) {
	provider, err := s.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, provider.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.ProviderProfile{Provider: *provider, User: *user}, nil
}

func (s *Service) GetOffering(ctx context.Context, offeringID snowflake.ID) (*domain.Offering, error) {
	return s.offerings.Get(ctx, &domain.Offering{ID: offeringID})
}

func (s *Service) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	return s.providers.List(ctx, nil, option.OrderBy("id", false))
}

func (s *Service) SetLockState(ctx context.Context, providerID snowflake.ID, locked bool) (*domain.Provider, error) {
	now := s.clock.Now().UTC()
	fields := map[string]any{
		"is_locked":  locked,
		"updated_at": now,
	}
	if locked {
		fields["locked_at"] = now
	} else {
		fields["locked_at"] = nil
	}

	if err := s.providers.Patch(ctx, providerID, fields); err != nil {
		return nil, err
	}
	s.log.Info("provider lock state changed",
		zap.String("provider_id", providerID.String()),
		zap.Bool("locked", locked),
	)
	return s.GetProvider(ctx, providerID)
}

func (s *Service) SetSuspension(ctx context.Context, userID snowflake.ID, suspended bool) (*domain.User, error) {
	err := s.users.Patch(ctx, userID, map[string]any{
		"is_suspended": suspended,
		"updated_at":   s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user suspension changed",
		zap.String("user_id", userID.String()),
		zap.Bool("suspended", suspended),
	)
	return s.GetUser(ctx, userID)
}

func (s *Service) Reactivate(ctx context.Context, providerID snowflake.ID) (*domain.ProviderProfile, error) {
	now := s.clock.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		providers := s.providers.Tx(tx)
		provider, err := providers.Get(ctx, &domain.Provider{ID: providerID}, option.ForUpdate())
		if err != nil {
			return err
		}
		if err := providers.Patch(ctx, providerID, map[string]any{
			"is_locked":  false,
			"locked_at":  nil,
			"updated_at": now,
		}); err != nil {
			return err
		}
		return s.users.Tx(tx).Patch(ctx, provider.UserID, map[string]any{
			"is_suspended": false,
			"updated_at":   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("provider reactivated", zap.String("provider_id", providerID.String()))
	return s.GetProviderProfile(ctx, providerID)
}

var _ domain.Service = (*Service)(nil)
