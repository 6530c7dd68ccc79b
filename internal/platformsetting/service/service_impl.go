package service

import (
	"context"

	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/config"
	"github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Policy config.BillingPolicy
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	defaultPct float64
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("platformsetting.service"),
		clock:      p.Clock,
		defaultPct: p.Policy.DefaultFeePercentage,
	}
}

func (s *Service) Policy(ctx context.Context) (domain.FeePolicy, error) {
	var rows []domain.PlatformSetting
	if err := s.db.WithContext(ctx).
		Where("id = ?", domain.SettingID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return domain.FeePolicy{}, err
	}
	if len(rows) == 0 {
		return domain.FeePolicy{Percentage: s.defaultPct}, nil
	}
	return domain.FeePolicy{Percentage: rows[0].FeePercentage}, nil
}

func (s *Service) Update(ctx context.Context, percentage float64) (domain.FeePolicy, error) {
	if !domain.ValidPercentage(percentage) {
		return domain.FeePolicy{}, domain.ErrInvalidPercentage
	}

	row := domain.PlatformSetting{
		ID:            domain.SettingID,
		FeePercentage: percentage,
		UpdatedAt:     s.clock.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fee_percentage", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return domain.FeePolicy{}, err
	}

	s.log.Info("platform fee percentage updated", zap.Float64("fee_percentage", percentage))
	return domain.FeePolicy{Percentage: percentage}, nil
}
