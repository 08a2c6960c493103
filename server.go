package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/middlewares"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPort = "8080"

// server holds what the handlers need. Fields are set once before ready flips.
type server struct {
	db       *gorm.DB
	settings config.Settings
	ledger   *workflow.HandoverLedger
	store    utils.ObjectStore
	limiter  *middlewares.RateLimiter
	logger   *logrus.Logger
	now      func() time.Time

	ready atomic.Bool
}

func newServer(settings config.Settings, logger *logrus.Logger) *server {
	return &server{
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// attach wires the connected stores and marks the server ready.
func (s *server) attach(db *gorm.DB, auditor workflow.Auditor, store utils.ObjectStore) {
	s.db = db
	s.ledger = workflow.NewHandoverLedger(db, s.settings, auditor, s.logger, config.GetRedisLock())
	s.store = store
	if s.settings.RateLimitEnabled && config.GetRedisDB() != nil {
		s.limiter = middlewares.NewRateLimiter(config.GetRedisDB(), s.settings.RateLimitMaxRequests, s.settings.RateLimitWindow)
	}
	s.ready.Store(true)
}

func (s *server) auditor() workflow.Auditor {
	sinks := workflow.MultiAuditor{workflow.LogAuditor{Logger: s.logger}}
	if s.settings.AuditTopic != "" {
		sinks = append(sinks, workflow.NewPubSubAuditor(s.settings.AuditTopic, s.logger))
	}
	return sinks
}

func (s *server) readinessGate(c *gin.Context) {
	if !s.ready.Load() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "service is starting"})
		return
	}
	c.Next()
}

func (s *server) rateLimit(c *gin.Context) {
	s.limiter.RateLimitMiddleware(c)
}

func (s *server) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	if s.settings.Production {
		if len(s.settings.CorsAllowedOrigins) > 0 {
			corsConfig.AllowOrigins = s.settings.CorsAllowedOrigins
		} else {
			// deny all cross-origin requests until an allowlist is configured
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", middlewares.CorrelationHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationHeader)
	corsConfig.AllowCredentials = true
	return corsConfig
}

func newRouter(s *server) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(cors.New(s.corsConfig()))
	r.Use(customErrorLogger(s.logger))
	r.Use(gin.Recovery())

	api := r.Group("/api/v1", s.readinessGate)

	auth := api.Group("/auth")
	auth.POST("/login", s.rateLimit, s.login)

	protected := api.Group("", s.authenticate, s.rateLimit)
	protected.GET("/auth/me", s.me)

	handovers := protected.Group("/handovers")
	handovers.POST("", s.createHandover)
	handovers.POST("/bank-deposit", s.recordBankDeposit)
	handovers.GET("/pending", s.pendingHandovers)
	handovers.GET("/:id", s.getHandover)
	handovers.POST("/:id/confirm", s.confirmHandover)
	handovers.POST("/:id/resolve", s.resolveHandover)

	stations := protected.Group("/stations/:stationId")
	stations.GET("/handovers", s.stationHandovers)
	stations.GET("/handovers/summary", s.cashFlowSummary)
	stations.GET("/handovers/summary/export", s.exportCashFlowSummary)
	stations.GET("/handovers/unconfirmed", s.unconfirmedHandovers)
	stations.GET("/handovers/bank-deposits", s.bankDeposits)
	stations.GET("/handovers/bank-deposits/export", s.exportBankDeposits)
	stations.POST("/deposit-receipts", s.uploadDepositReceipt)

	r.NoRoute(customNotFoundHandler)
	return r
}

// authenticate defers building the auth middleware until the DB is attached.
func (s *server) authenticate(c *gin.Context) {
	middlewares.AuthMiddleware(s.db)(c)
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	settings := config.LoadSettings()
	if settings.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	s := newServer(settings, logger)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !settings.SkipMigrations {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	var store utils.ObjectStore
	if gcs, err := utils.NewGCSStoreFromEnv(); err != nil {
		logger.WithFields(logrus.Fields{"field": "storage"}).Warn("deposit receipt uploads disabled: " + err.Error())
	} else {
		store = gcs
	}

	s.attach(db, s.auditor(), store)

	logger.WithFields(logrus.Fields{
		"port":          port,
		"sequence_mode": settings.SequenceMode,
		"audit_topic":   settings.AuditTopic,
	}).Info("server ready")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if err := config.ClosePubSub(); err != nil {
		logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("closing pubsub client: " + err.Error())
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
