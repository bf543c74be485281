package router

import (
	"github.com/floradistro/websitev2-sub001/internal/config"
	"github.com/floradistro/websitev2-sub001/internal/handler"
	"github.com/floradistro/websitev2-sub001/internal/infra"
	"github.com/floradistro/websitev2-sub001/internal/middleware"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/pos"
	"github.com/floradistro/websitev2-sub001/internal/repository"
	"github.com/floradistro/websitev2-sub001/internal/service"
	"github.com/floradistro/websitev2-sub001/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// terminal may be nil, in which case card charges use the stub authorizer.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, terminal *infra.TerminalClient) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(rdb, "api", middleware.APILimit, middleware.LimitWindow))

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	movementRepo := repository.NewInventoryMovementRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	fallbackRate, err := cfg.TaxRate()
	if err != nil {
		log.Warn().Err(err).Msg("invalid DEFAULT_TAX_RATE, using 0")
	}
	taxes := service.NewTaxRates(locationRepo, fallbackRate)
	carts := service.NewCartStore()

	authSvc := service.NewAuthService(userRepo, cfg)
	ledgerSvc := service.NewLedgerService(sessionRepo)
	sessionSvc := service.NewSessionService(sessionRepo, ledgerSvc, locationRepo, carts)
	productSvc := service.NewProductService(productRepo)
	inventorySvc := service.NewInventoryService(productRepo, movementRepo, orderRepo)
	cartSvc := service.NewCartService(carts, sessionSvc, productRepo, taxes)
	receiptSvc := service.NewReceiptService(receiptRepo)

	var authorizer pos.CardAuthorizer = pos.StubAuthorizer{}
	var terminalCB *infra.CircuitBreaker
	if terminal != nil {
		authorizer = terminal
		terminalCB = terminal.Breaker()
	}
	checkoutSvc := service.NewCheckoutService(service.CheckoutDeps{
		Orders:     orderRepo,
		Products:   productRepo,
		Sessions:   sessionSvc,
		Inventory:  inventorySvc,
		Carts:      carts,
		Taxes:      taxes,
		Authorizer: authorizer,
		Receipts:   worker.NewDispatcher(rdb),
		Guard:      infra.NewCheckoutLock(rdb, cfg.CheckoutLockTTL()),

		AcceptClientCardRefs: terminal == nil,
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, ledgerSvc, checkoutSvc)
	cartH := handler.NewCartHandler(cartSvc)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc, receiptSvc)
	productsH := handler.NewProductsHandler(productSvc, inventorySvc)
	dlqH := handler.NewDLQHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, terminalCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(rdb), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	staff := middleware.RequireRole(model.RoleCashier, model.RoleManager, model.RoleAdmin)
	managers := middleware.RequireRole(model.RoleManager, model.RoleAdmin)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		sessions := v1.Group("/sessions", staff)
		{
			sessions.POST("", sessionH.Open)
			sessions.GET("", managers, sessionH.History)
			sessions.GET("/:id", sessionH.Report)
			sessions.POST("/:id/close", managers, sessionH.Close)
			// PAID_OUT and REFUND are re-checked against the role in the handler
			sessions.POST("/:id/movements", sessionH.RecordMovement)
			sessions.GET("/:id/movements", sessionH.Movements)
			sessions.GET("/:id/export", managers, sessionH.Export)

			sessions.GET("/:id/cart", cartH.Get)
			sessions.POST("/:id/cart/items", cartH.AddItem)
			sessions.PATCH("/:id/cart/items/:product_id", cartH.UpdateQuantity)
			sessions.DELETE("/:id/cart/items/:product_id", cartH.RemoveItem)
			sessions.DELETE("/:id/cart", cartH.Clear)
		}
		v1.GET("/registers/:register_id/session", staff, sessionH.Active)

		v1.POST("/checkout", staff, checkoutH.Checkout)

		orders := v1.Group("/orders", staff)
		{
			orders.GET("", checkoutH.ListOrders)
			orders.GET("/:id", checkoutH.GetOrder)
			orders.GET("/:id/receipt", checkoutH.ReceiptPDF)
			orders.GET("/:id/receipt/status", checkoutH.ReceiptStatus)
		}

		// Catalog reads for every role, writes for managers
		v1.GET("/products", staff, productsH.List)
		v1.GET("/products/:id", staff, productsH.Get)
		prods := v1.Group("/products", managers)
		{
			prods.POST("", productsH.Create)
			prods.PUT("/:id", productsH.Update)
			prods.PATCH("/:id/stock", productsH.AdjustStock)
			prods.GET("/:id/movements", productsH.Movements)
		}

		admins := middleware.RequireRole(model.RoleAdmin)
		users := v1.Group("/users", admins)
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
		}
		dlq := v1.Group("/admin/dlq", admins)
		{
			dlq.GET("/:queue", dlqH.List)
			dlq.POST("/:queue/requeue", dlqH.Requeue)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
