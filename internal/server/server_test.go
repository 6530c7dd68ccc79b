package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	billingoverviewdomain "github.com/smallbiznis/slotwise/internal/billingoverview/domain"
	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	"github.com/smallbiznis/slotwise/internal/config"
	ledgerdomain "github.com/smallbiznis/slotwise/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/slotwise/internal/notification/domain"
	"github.com/smallbiznis/slotwise/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, adminToken string) (*testkit.Harness, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	h.Clock.Set(h.Local(2024, 3, 20, 10, 0))

	engine := NewEngine(h.Log)
	NewServer(Params{
		Engine:   engine,
		Config:   config.Config{AdminToken: adminToken},
		Log:      h.Log,
		Clock:    h.Clock,
		Accounts: h.Accounts,
		Cycles:   h.Cycles,
		Ledger:   h.Ledger,
		Settings: h.Settings,
		Overview: h.Overview,
	})
	return h, engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if _, ok := headers[HeaderAdminID]; !ok {
		req.Header.Set(HeaderAdminID, "ops@example.com")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthIsPublic(t *testing.T) {
	_, engine := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRequiresIdentityAndToken(t *testing.T) {
	_, engine := newTestServer(t, "secret")

	rec := doJSON(t, engine, http.MethodGet, "/admin/billing", nil, map[string]string{HeaderAdminID: ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/admin/billing", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/admin/billing", nil, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListBillingRowsAndMarkPaid(t *testing.T) {
	h, engine := newTestServer(t, "")
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)
	customer := h.SeedCustomer(t, "client@example.com")
	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 10, 10, 0), time.Hour, bookingdomain.StatusCompleted)

	rec := doJSON(t, engine, http.MethodGet, "/admin/billing?month=2024-03", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var listed struct {
		Month string                             `json:"month"`
		Rows  []billingoverviewdomain.BillingRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, "2024-03", listed.Month)
	require.Len(t, listed.Rows, 1)
	assert.Equal(t, p.Provider.AccountNumber, listed.Rows[0].AccountNumber)
	assert.EqualValues(t, 100, listed.Rows[0].AmountDue)
	assert.False(t, listed.Rows[0].IsPaid)

	path := "/admin/billing/" + p.Provider.AccountNumber + "/2024-03/paid"
	rec = doJSON(t, engine, http.MethodPost, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, engine, http.MethodPost, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplatePaymentReceived, p.User.ID))

	rec = doJSON(t, engine, http.MethodGet, "/admin/billing?month=2024-03", nil, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.True(t, listed.Rows[0].IsPaid)
}

func TestInvalidMonthIsValidationError(t *testing.T) {
	_, engine := newTestServer(t, "")

	rec := doJSON(t, engine, http.MethodGet, "/admin/billing?month=March", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_month", payload.Errors[0].Code)
}

func TestLockUnknownProviderIsNotFound(t *testing.T) {
	_, engine := newTestServer(t, "")

	rec := doJSON(t, engine, http.MethodPut, "/admin/providers/12345/lock", map[string]bool{"locked": true}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, engine, http.MethodPut, "/admin/providers/abc/lock", map[string]bool{"locked": true}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuspendAndReactivate(t *testing.T) {
	h, engine := newTestServer(t, "")
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)

	rec := doJSON(t, engine, http.MethodPut, "/admin/users/"+p.User.ID.String()+"/suspension", map[string]bool{"suspended": true}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, engine, http.MethodPut, "/admin/providers/"+p.Provider.ID.String()+"/lock", map[string]bool{"locked": true}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, engine, http.MethodPost, "/admin/providers/"+p.Provider.ID.String()+"/reactivate", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Provider providerResponse `json:"provider"`
		User     userResponse     `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Provider.IsLocked)
	assert.False(t, resp.User.IsSuspended)
}

func TestServiceChargeValidation(t *testing.T) {
	_, engine := newTestServer(t, "")

	rec := doJSON(t, engine, http.MethodPut, "/admin/settings/service-charge", map[string]float64{"percentage": 150}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodPut, "/admin/settings/service-charge", map[string]float64{"percentage": 12.5}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, engine, http.MethodGet, "/admin/settings/service-charge", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Percentage float64 `json:"percentage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 12.5, got.Percentage)
}

func TestGrantCredit(t *testing.T) {
	h, engine := newTestServer(t, "")
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)
	base := "/admin/providers/" + p.Provider.ID.String() + "/credits"

	rec := doJSON(t, engine, http.MethodPost, base, map[string]any{"amount": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, base, map[string]any{"amount": 50, "note": "goodwill"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, engine, http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Balance ledgerdomain.Balance      `json:"balance"`
		Entries []ledgerdomain.BillCredit `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 50, resp.Balance.Available)
	assert.Len(t, resp.Entries, 1)
}

func TestMapErrorKinds(t *testing.T) {
	status, _ := mapError(bookingdomain.ErrProviderLocked)
	assert.Equal(t, http.StatusForbidden, status)

	status, payload := mapError(bookingdomain.ErrBookingCompleted)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "booking_completed", payload.Message)

	status, _ = mapError(bookingdomain.ErrSlotUnavailable)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = mapError(bookingdomain.ErrBookingNotFound)
	assert.Equal(t, http.StatusNotFound, status)
}
