package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	"gorm.io/gorm"
)

const (
	defaultProviderEmail = "provider@slotwise.local"
	defaultProviderName  = "Demo Provider"
	defaultCustomerEmail = "client@slotwise.local"
	defaultCustomerName  = "Demo Client"
	defaultOfferingName  = "Haircut"
	defaultOfferingPrice = 3000
	defaultOfferingMins  = 60
)

// Demo is the fixture EnsureDemo leaves behind.
type Demo struct {
	ProviderUser accountdomain.User
	Provider     accountdomain.Provider
	Customer     accountdomain.User
	Offering     accountdomain.Offering
	FeePolicy    platformsettingdomain.FeePolicy
}

// EnsureDemo seeds one provider with a service and one client for local
// development. Running it again returns the existing rows.
func EnsureDemo(ctx context.Context, db *gorm.DB, accounts accountdomain.Service, settings platformsettingdomain.Service) (*Demo, error) {
	if db == nil {
		return nil, errors.New("seed database handle is required")
	}

	policy, err := settings.Policy(ctx)
	if err != nil {
		return nil, err
	}

	providerUser, err := ensureUser(ctx, db, accounts, accountdomain.RegisterUserRequest{
		Email:    defaultProviderEmail,
		FullName: defaultProviderName,
		Role:     accountdomain.RoleProvider,
	})
	if err != nil {
		return nil, err
	}
	provider, err := accounts.RegisterProvider(ctx, providerUser.ID)
	if err != nil {
		return nil, err
	}
	offering, err := ensureOffering(ctx, db, accounts, provider.ID)
	if err != nil {
		return nil, err
	}
	customer, err := ensureUser(ctx, db, accounts, accountdomain.RegisterUserRequest{
		Email:    defaultCustomerEmail,
		FullName: defaultCustomerName,
		Role:     accountdomain.RoleClient,
	})
	if err != nil {
		return nil, err
	}

	return &Demo{
		ProviderUser: *providerUser,
		Provider:     *provider,
		Customer:     *customer,
		Offering:     *offering,
		FeePolicy:    policy,
	}, nil
}

func ensureUser(ctx context.Context, db *gorm.DB, accounts accountdomain.Service, req accountdomain.RegisterUserRequest) (*accountdomain.User, error) {
	var user accountdomain.User
	err := db.WithContext(ctx).
		Where("email = ?", strings.ToLower(req.Email)).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return accounts.RegisterUser(ctx, req)
}

func ensureOffering(ctx context.Context, db *gorm.DB, accounts accountdomain.Service, providerID snowflake.ID) (*accountdomain.Offering, error) {
	var offering accountdomain.Offering
	err := db.WithContext(ctx).
		Where("provider_id = ? AND name = ?", providerID, defaultOfferingName).
		First(&offering).Error
	if err == nil {
		return &offering, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return accounts.CreateOffering(ctx, accountdomain.CreateOfferingRequest{
		ProviderID:      providerID,
		Name:            defaultOfferingName,
		Description:     "Seeded for local development.",
		Price:           defaultOfferingPrice,
		DurationMinutes: defaultOfferingMins,
	})
}
