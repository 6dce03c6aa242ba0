package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manicinc/synthstack-gateway/internal/config"
	"github.com/manicinc/synthstack-gateway/internal/handler"
	"github.com/manicinc/synthstack-gateway/internal/middleware"
	"github.com/manicinc/synthstack-gateway/internal/pricing"
	"github.com/manicinc/synthstack-gateway/internal/proxy"
	"github.com/manicinc/synthstack-gateway/internal/ratelimit"
	"github.com/manicinc/synthstack-gateway/internal/repository"
	"github.com/manicinc/synthstack-gateway/internal/service"
	"github.com/manicinc/synthstack-gateway/internal/storage"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

// backendService is one proxied backend with its metering policy resolved.
type backendService struct {
	cfg   config.ServiceConfig
	proxy *proxy.Proxy
}

type Server struct {
	router   *gin.Engine
	config   *config.Config
	redis    *storage.RedisClient
	postgres *storage.Postgres
	services map[string]*backendService

	limiter        *ratelimit.TieredLimiter
	billingService *service.BillingService
	apiKeyService  *service.APIKeyService
	authService    *service.AuthService

	apiKeyHandler    *handler.APIKeyHandler
	authHandler      *handler.AuthHandler
	creditsHandler   *handler.CreditsHandler
	analyticsHandler *handler.AnalyticsHandler
	systemHandler    *handler.SystemHandler

	httpServer *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Repositories
	apiKeyRepo := repository.NewAPIKeyRepository(postgres)
	userRepo := repository.NewUserRepository(postgres)
	ledgerRepo := repository.NewLedgerRepository(postgres)
	requestLogRepo := repository.NewRequestLogRepository(postgres)

	// Services
	apiKeyService := service.NewAPIKeyService(postgres, apiKeyRepo, redis)
	authService := service.NewAuthService(userRepo, cfg.Server.JWTSecret, cfg.Server.JWTExpiryHours)
	billingService := service.NewBillingService(ledgerRepo, pricing.DefaultTable(), pricing.DefaultComponents())
	analyticsService := service.NewAnalyticsService(postgres, requestLogRepo)

	// Rate limiter: shared Redis counter when available, in-process otherwise
	store := ratelimit.NewStore(redis)
	limiter := ratelimit.NewTieredLimiter(store, ratelimit.Config{
		Window:      time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		AllowList:   cfg.RateLimit.AllowList,
		SkipOnError: cfg.RateLimit.SkipOnError,
	})

	s := &Server{
		router:         router,
		config:         cfg,
		redis:          redis,
		postgres:       postgres,
		services:       make(map[string]*backendService),
		limiter:        limiter,
		billingService: billingService,
		apiKeyService:  apiKeyService,
		authService:    authService,

		apiKeyHandler:    handler.NewAPIKeyHandler(apiKeyService, authService),
		authHandler:      handler.NewAuthHandler(authService),
		creditsHandler:   handler.NewCreditsHandler(billingService, ledgerRepo),
		analyticsHandler: handler.NewAnalyticsHandler(analyticsService),
	}

	s.initializeServices()
	s.systemHandler = handler.NewSystemHandler(s.proxies())

	middleware.InitRequestLogger(postgres, 1000)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) initializeServices() {
	for _, svc := range s.config.Services {
		if len(svc.Targets) == 0 {
			log.Printf("Warning: Service %s has no targets configured", svc.Path)
			continue
		}

		strategy := svc.LoadBalancerStrategy
		if strategy == "" {
			strategy = "round-robin"
		}

		p, err := proxy.NewWithConfig(proxy.Config{
			Targets:              svc.Targets,
			LoadBalancerStrategy: strategy,
		})
		if err != nil {
			log.Printf("Failed to create proxy for %s: %v", svc.Path, err)
			continue
		}

		s.services[svc.Path] = &backendService{cfg: svc, proxy: p}
		log.Printf("Initialized service %s -> %v (class=%s metered=%v)", svc.Path, svc.Targets, svc.LimitClass, svc.Metered)
	}
}

func (s *Server) proxies() map[string]*proxy.Proxy {
	out := make(map[string]*proxy.Proxy, len(s.services))
	for path, svc := range s.services {
		out[path] = svc.proxy
	}
	return out
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.APIKeyValidator(s.apiKeyService))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	auth := s.router.Group("/auth")
	auth.Use(middleware.RateLimitClass(s.limiter, tier.ClassAuth))
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
	}

	credits := s.router.Group("/v1/credits")
	credits.Use(middleware.OptionalAuth(s.authService))
	credits.Use(middleware.RateLimitClass(s.limiter, tier.ClassGeneral))
	{
		credits.GET("/balance", s.creditsHandler.GetBalance)
		credits.GET("/estimate", s.creditsHandler.GetEstimate)
		credits.GET("/transactions", s.creditsHandler.ListTransactions)
	}

	keys := s.router.Group("/v1/keys")
	keys.Use(middleware.RequireAuth(s.authService))
	keys.Use(middleware.RateLimitClass(s.limiter, tier.ClassGeneral))
	{
		keys.POST("", s.apiKeyHandler.Create)
		keys.GET("", s.apiKeyHandler.List)
		keys.GET("/:id", s.apiKeyHandler.Get)
		keys.PATCH("/:id", s.apiKeyHandler.Update)
		keys.DELETE("/:id", s.apiKeyHandler.Delete)
	}

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(s.authService), middleware.RequireAdmin())
	{
		admin.GET("/status", s.adminStatus)
		admin.GET("/analytics", s.analyticsHandler.GetSummary)
		admin.GET("/analytics/timeseries", s.analyticsHandler.GetTimeSeries)
		admin.GET("/analytics/keys/:id", s.analyticsHandler.GetAPIKeyStats)
		admin.GET("/logs", s.analyticsHandler.GetLogs)
		admin.GET("/circuit-breakers", s.systemHandler.CircuitBreakerStatus)
		admin.POST("/circuit-breakers/*service", s.systemHandler.ResetCircuitBreaker)
		admin.POST("/credits/:user_id", s.creditsHandler.AddCredits)
	}

	s.setupProxyRoutes()
}

// setupProxyRoutes registers each backend behind its metering chain:
// identity -> rate limit by class -> credit gate (metered only) -> proxy.
func (s *Server) setupProxyRoutes() {
	for path, svc := range s.services {
		chain := []gin.HandlerFunc{
			middleware.OptionalAuth(s.authService),
			middleware.RateLimitClass(s.limiter, limitClass(svc.cfg.LimitClass)),
		}

		if svc.cfg.Metered {
			strategy := service.ParseStrategy(svc.cfg.PricingStrategy)
			chain = append(chain, middleware.CreditMeter(s.billingService, strategy))
		}

		p := svc.proxy
		handlerChain := append(chain, func(c *gin.Context) {
			p.Handle(c)
		})

		s.router.Any(path+"/*proxyPath", handlerChain...)
		s.router.Any(path, handlerChain...)

		log.Printf("Registered proxy route: %s", path)
	}
}

func limitClass(name string) tier.LimitClass {
	switch tier.LimitClass(name) {
	case tier.ClassGeneration, tier.ClassUpload, tier.ClassAuth:
		return tier.LimitClass(name)
	default:
		return tier.ClassGeneral
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true

	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "synthstack-gateway",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	ctx := c.Request.Context()
	keys, _ := s.apiKeyService.List(ctx)
	c.JSON(http.StatusOK, gin.H{
		"gateway":   "running",
		"services":  len(s.config.Services),
		"api_keys":  len(keys),
		"uptime":    time.Since(startTime).Seconds(),
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting synthstack gateway on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	for _, svc := range s.services {
		svc.proxy.Stop()
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
