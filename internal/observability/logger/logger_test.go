package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/slotwise/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slotwise.log")
	log, err := New(nil, Config{ServiceName: "slotwise", Level: "info", File: path, FileMaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("booking.created")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "booking.created")
	assert.Contains(t, string(data), `"service":"slotwise"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "system", fields["actor_type"])
	assert.Equal(t, "scheduler", fields["actor_id"])
}

func TestOperationAndTableFromSQL(t *testing.T) {
	assert.Equal(t, "UPDATE", operationFromSQL(`UPDATE "bookings" SET "status"='completed'`))
	assert.Equal(t, "bookings", tableFromSQL(`UPDATE "bookings" SET "status"='completed'`))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "billing_cycles", tableFromSQL("SELECT * FROM billing_cycles WHERE month = ?"))
	assert.Equal(t, "bill_credits", tableFromSQL("INSERT INTO `bill_credits` (`id`) VALUES (?)"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
	assert.Equal(t, "", tableFromSQL(""))
}

func TestQueryLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)
	stmt := func() (string, int64) { return "SELECT * FROM providers", 1 }

	quiet := NewQueryLogger(base, QueryLogConfig{Level: "info", SlowQuery: time.Second})
	quiet.Trace(context.Background(), time.Now(), stmt, nil)
	quiet.Trace(context.Background(), time.Now(), stmt, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	quiet.Trace(context.Background(), time.Now().Add(-2*time.Second), stmt, nil)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.Equal(t, "providers", entry.ContextMap()["table"])
	assert.Equal(t, true, entry.ContextMap()["slow"])

	verbose := NewQueryLogger(base, QueryLogConfig{Level: "debug"})
	verbose.Trace(context.Background(), time.Now(), stmt, nil)
	assert.Equal(t, 2, logs.Len())

	silent := verbose.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), stmt, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())
}

func TestRequestLoggingTagsAdminActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	r := gin.New()
	r.Use(RequestLogging(zap.New(core), "X-Admin-Id", nil))
	r.GET("/admin/billing", func(c *gin.Context) {
		kind, id := obscontext.ActorFromContext(c.Request.Context())
		c.String(http.StatusOK, kind+":"+id)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/billing", nil)
	req.Header.Set("X-Admin-Id", "ops@example.com")
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "admin:ops@example.com", rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.InfoLevel, entry.Level)
	assert.Equal(t, "/admin/billing", entry.ContextMap()["route"])
	assert.Equal(t, "req-42", entry.ContextMap()["request_id"])
}
