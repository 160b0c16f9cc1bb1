package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "procurement/api/swagger" // swagger docs
	"procurement/internal/cache"
	"procurement/internal/config"
	"procurement/internal/database"
	"procurement/internal/discovery"
	"procurement/internal/handler"
	"procurement/internal/middleware"
	"procurement/internal/repository"
	"procurement/internal/scheduler"
	"procurement/internal/service"
	"procurement/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

var migrateOnServe bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket hub and auction scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnServe, "migrate", true, "run AutoMigrate before serving")
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.App.Mode)

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	log.Println("Connected to PostgreSQL successfully.")
	if migrateOnServe {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	app := buildApp(db, wsHub)
	go app.limiter.Run(ctx)

	sched, err := scheduler.New(cfg.Scheduler.AuctionSpec, app.auctions)
	if err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

type app struct {
	router   *gin.Engine
	auctions service.AuctionService
	limiter  *middleware.RateLimiter
}

// buildApp wires repositories, services and handlers onto a gin engine
func buildApp(db *gorm.DB, wsHub *websocket.Hub) *app {
	txManager := repository.NewTransactionManager(db)

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	taxRepo := repository.NewTaxRuleRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	productRepo := repository.NewProductRepository(db)
	bomRepo := repository.NewBOMRepository(db)
	rfxRepo := repository.NewRFxRepository(db)
	auctionRepo := repository.NewAuctionRepository(db)
	orderRepo := repository.NewDirectOrderRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)

	taxCache := cache.NewTaxRules(cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password), cfg.Redis.TTL)
	discoverySvc := newDiscovery(cfg.Search)

	userService := service.NewUserService(userRepo, txManager, auditRepo, cfg.App.JWTSecret)
	taxService := service.NewTaxService(taxRepo, auditRepo, txManager, taxCache)
	vendorService := service.NewVendorService(vendorRepo, approvalRepo, auditRepo, txManager, discoverySvc)
	catalogService := service.NewCatalogService(productRepo, auditRepo, txManager)
	bomService := service.NewBOMService(bomRepo, auditRepo, txManager)
	rfxService := service.NewRFxService(rfxRepo, vendorRepo, bomRepo, auditRepo, notificationRepo, txManager, wsHub)
	auctionService := service.NewAuctionService(auctionRepo, vendorRepo, bomRepo, auditRepo, notificationRepo, txManager, wsHub)
	orderService := service.NewDirectOrderService(orderRepo, vendorRepo, approvalRepo, auditRepo, txManager)
	poService := service.NewPurchaseOrderService(service.PurchaseOrderRepos{
		PurchaseOrders: poRepo,
		RFx:            rfxRepo,
		Auctions:       auctionRepo,
		DirectOrders:   orderRepo,
		Vendors:        vendorRepo,
		Approvals:      approvalRepo,
		Audit:          auditRepo,
		Notifications:  notificationRepo,
	}, txManager, wsHub)
	approvalService := service.NewApprovalService(approvalRepo, poRepo, orderRepo, vendorRepo, auditRepo, notificationRepo, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)
	notificationService := service.NewNotificationService(notificationRepo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.App.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", metrics.Handler())

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = database.HealthCheck(c.Request.Context(), sqlDB)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, func(token string) (uuid.UUID, error) {
			actor, err := userService.ParseToken(token)
			return actor.UserID, err
		})
	})

	public := router.Group("")
	public.Use(limiter.Middleware())
	handler.NewUserHandler(userService).RegisterRoutes(public)

	api := router.Group("")
	api.Use(middleware.RequireAuth(userService), limiter.Middleware())
	handler.NewTaxHandler(taxService).RegisterRoutes(api)
	handler.NewVendorHandler(vendorService).RegisterRoutes(api)
	handler.NewCatalogHandler(catalogService, bomService).RegisterRoutes(api)
	handler.NewRFxHandler(rfxService).RegisterRoutes(api)
	handler.NewAuctionHandler(auctionService).RegisterRoutes(api)
	handler.NewDirectOrderHandler(orderService).RegisterRoutes(api)
	handler.NewPurchaseOrderHandler(poService).RegisterRoutes(api)
	handler.NewApprovalHandler(approvalService).RegisterRoutes(api)
	handler.NewAuditHandler(auditService).RegisterRoutes(api)
	handler.NewNotificationHandler(notificationService).RegisterRoutes(api)

	return &app{router: router, auctions: auctionService, limiter: limiter}
}

// newDiscovery returns a fallback-only service when Elasticsearch is not configured
func newDiscovery(sc config.SearchConfig) *discovery.Service {
	var searcher discovery.Searcher
	es, err := discovery.NewElasticSearcher(sc.Host, sc.Index)
	switch {
	case err != nil:
		log.Printf("vendor discovery: elasticsearch disabled: %v", err)
	case es != nil:
		searcher = es
	}
	return discovery.NewService(searcher, sc.Timeout, nil)
}
