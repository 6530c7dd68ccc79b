package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/slotwise/internal/account/domain"
	"github.com/smallbiznis/slotwise/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHarness(t *testing.T) *testkit.Harness {
	t.Helper()
	return testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestRegisterUserNormalizesAndRejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.Accounts.RegisterUser(ctx, domain.RegisterUserRequest{
		Email:    "  Barber@Example.com ",
		FullName: "Ana",
		Role:     domain.RoleProvider,
	})
	require.NoError(t, err)
	assert.Equal(t, "barber@example.com", user.Email)

	_, err = h.Accounts.RegisterUser(ctx, domain.RegisterUserRequest{
		Email:    "barber@example.com",
		FullName: "Someone Else",
		Role:     domain.RoleClient,
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = h.Accounts.RegisterUser(ctx, domain.RegisterUserRequest{Email: "x@example.com", FullName: "X", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestRegisterProviderIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)

	again, err := h.Accounts.RegisterProvider(ctx, p.User.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Provider.ID, again.ID)
	assert.Equal(t, p.Provider.AccountNumber, again.AccountNumber)

	byAccount, err := h.Accounts.GetProviderByAccount(ctx, p.Provider.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, p.Provider.ID, byAccount.ID)

	customer := h.SeedCustomer(t, "client@example.com")
	_, err = h.Accounts.RegisterProvider(ctx, customer.ID)
	assert.ErrorIs(t, err, domain.ErrNotProviderUser)
}

func TestLookupsReportDomainNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.Accounts.GetUser(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = h.Accounts.GetProvider(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	_, err = h.Accounts.GetProviderByAccount(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	_, err = h.Accounts.GetOffering(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrOfferingNotFound)
	assert.ErrorIs(t, h.Accounts.ArchiveOffering(ctx, 42), domain.ErrOfferingNotFound)
	_, err = h.Accounts.SetLockState(ctx, 42, true)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	_, err = h.Accounts.SetSuspension(ctx, 42, true)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = h.Accounts.Reactivate(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestCreateOfferingValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)

	_, err := h.Accounts.CreateOffering(ctx, domain.CreateOfferingRequest{ProviderID: p.Provider.ID, Name: "Shave", Price: -1, DurationMinutes: 30})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = h.Accounts.CreateOffering(ctx, domain.CreateOfferingRequest{ProviderID: p.Provider.ID, Name: "Shave", DurationMinutes: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	require.NoError(t, h.Accounts.ArchiveOffering(ctx, p.Offering.ID))
	offering, err := h.Accounts.GetOffering(ctx, p.Offering.ID)
	require.NoError(t, err)
	assert.False(t, offering.IsActive)
}

func TestLockSuspendAndReactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)

	locked, err := h.Accounts.SetLockState(ctx, p.Provider.ID, true)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	require.NotNil(t, locked.LockedAt)

	user, err := h.Accounts.SetSuspension(ctx, p.User.ID, true)
	require.NoError(t, err)
	assert.True(t, user.IsSuspended)

	profile, err := h.Accounts.Reactivate(ctx, p.Provider.ID)
	require.NoError(t, err)
	assert.False(t, profile.Provider.IsLocked)
	assert.Nil(t, profile.Provider.LockedAt)
	assert.False(t, profile.User.IsSuspended)

	providers, err := h.Accounts.ListProviders(ctx)
	require.NoError(t, err)
	assert.Len(t, providers, 1)
}
