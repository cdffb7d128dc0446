package router

import (
	"fuelpump/internal/config"
	"fuelpump/internal/handler"
	"fuelpump/internal/infra"
	"fuelpump/internal/middleware"
	"fuelpump/internal/model"
	"fuelpump/internal/repository"
	"fuelpump/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces built by the composition root.
// Redis may be nil; Cache is then the in-process cache.
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Cache   infra.Cache
	Reports service.ReportEnqueuer
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))

	// ── Repositories ─────────────────────────────────────────────────────────
	shiftRepo := repository.NewShiftRepository(deps.DB)
	staffRepo := repository.NewStaffRepository(deps.DB)
	settingRepo := repository.NewFuelSettingRepository(deps.DB)
	consumableRepo := repository.NewConsumableRepository(deps.DB)
	transactionRepo := repository.NewTransactionRepository(deps.DB)
	pushRepo := repository.NewPushSubscriptionRepository(deps.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(staffRepo, cfg)
	pushSvc := service.NewPushService(pushRepo)
	shiftSvc := service.NewShiftService(service.ShiftServiceDeps{
		Shifts:      shiftRepo,
		Staff:       staffRepo,
		Settings:    settingRepo,
		Consumables: consumableRepo,
		Readings:    service.NewReadingsTracker(shiftRepo, settingRepo, deps.Cache, cfg.FuelPriceTTL()),
		Sales:       service.NewSalesAggregator(shiftRepo, transactionRepo),
		Reconciler:  service.NewConsumablesReconciler(consumableRepo),
		Cash:        service.NewCashReconciler(shiftRepo, staffRepo, cfg.CashVarianceThreshold, cfg.ConsumablePaymentAttribution),
		Drafts:      service.NewDraftStore(deps.Cache, cfg.DraftTTL()),
		Reports:     deps.Reports,
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	shiftsH := handler.NewShiftHandler(shiftSvc)
	pushH := handler.NewPushHandler(pushSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis))
	r.POST("/v1/auth/login", middleware.LoginRateLimiter(), authH.Login)

	supervisors := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/fuel-prices", shiftsH.FuelPrices)
		v1.GET("/staff/available", supervisors, shiftsH.AvailableStaff)
		v1.POST("/push/subscriptions", supervisors, pushH.Subscribe)

		shifts := v1.Group("/shifts")
		{
			shifts.POST("", supervisors, shiftsH.Start)
			shifts.GET("", shiftsH.List)
			shifts.GET("/mine", shiftsH.Mine)
			shifts.GET("/:id", shiftsH.Get)
			shifts.PUT("/:id", adminOnly, shiftsH.Edit)
			shifts.DELETE("/:id", adminOnly, shiftsH.Delete)

			shifts.POST("/:id/consumables", supervisors, shiftsH.Allocate)
			shifts.POST("/:id/successor", supervisors, shiftsH.Successor)

			// Close form; the service scopes staff to their own shift
			shifts.GET("/:id/close", shiftsH.Draft)
			shifts.POST("/:id/close", shiftsH.Close)
			shifts.PATCH("/:id/close/readings", shiftsH.UpdateReading)
			shifts.PATCH("/:id/close/sales", shiftsH.SetChannel)
			shifts.PATCH("/:id/close/testing", shiftsH.SetTesting)
			shifts.PATCH("/:id/close/consumables", shiftsH.UpdateReturned)
			shifts.PATCH("/:id/close/cash", shiftsH.UpdateCash)
		}
	}

	return r
}
