package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	billingoverviewdomain "github.com/smallbiznis/slotwise/internal/billingoverview/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/config"
	ledgerdomain "github.com/smallbiznis/slotwise/internal/ledger/domain"
	obslogger "github.com/smallbiznis/slotwise/internal/observability/logger"
	obstracing "github.com/smallbiznis/slotwise/internal/observability/tracing"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

type Params struct {
	fx.In

	Engine   *gin.Engine
	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Accounts accountdomain.Service
	Cycles   billingcycledomain.Service
	Ledger   ledgerdomain.Service
	Settings platformsettingdomain.Service
	Overview billingoverviewdomain.Service
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	clock      clock.Clock
	adminToken string

	accounts accountdomain.Service
	cycles   billingcycledomain.Service
	ledger   ledgerdomain.Service
	settings platformsettingdomain.Service
	overview billingoverviewdomain.Service
}

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.RequestLogging(log, HeaderAdminID, classifyErrorForLog))
	r.Use(obstracing.GinMiddleware("/health", "/metrics"))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(log)
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:     p.Engine,
		log:        p.Log.Named("http.server"),
		clock:      p.Clock,
		adminToken: p.Config.AdminToken,
		accounts:   p.Accounts,
		cycles:     p.Cycles,
		ledger:     p.Ledger,
		settings:   p.Settings,
		overview:   p.Overview,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	admin := s.engine.Group("/admin", s.AdminRequired())

	admin.GET("/billing", s.ListBillingRows)
	admin.POST("/billing/:account/:month/paid", s.MarkCyclePaid)
	admin.POST("/billing/:account/credits/apply", s.ApplyCredit)

	admin.PUT("/providers/:id/cycles/:month/paid", s.SetCyclePaidState)
	admin.GET("/providers/:id/credits", s.GetCredits)
	admin.POST("/providers/:id/credits", s.GrantCredit)
	admin.PUT("/providers/:id/lock", s.SetLockState)
	admin.POST("/providers/:id/reactivate", s.ReactivateProvider)

	admin.PUT("/users/:id/suspension", s.SetSuspension)

	admin.GET("/settings/service-charge", s.GetServiceCharge)
	admin.PUT("/settings/service-charge", s.UpdateServiceCharge)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
