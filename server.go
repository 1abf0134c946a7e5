package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/middlewares"
	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/models/reports"
	"bitbucket.org/broman/realty_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := config.ServerPort()
	logger := config.NewLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	db, err := config.ConnectDatabaseWithRetry(sigCtx, logger)
	if err != nil {
		logger.WithError(err).Fatal("database unavailable")
	}
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	rdb := config.ConnectRedis(sigCtx)
	defer rdb.Close()

	var settingsCache *config.Redis
	if config.SettingsCacheEnabled() {
		settingsCache = rdb
	}
	settings := models.NewSettingsStore(db, logger, settingsCache)

	// AutoMigrate can block tables; SKIP_MIGRATIONS=true leaves it to cmd/seed-defaults.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
		seeded, err := models.SeedDefaults(sigCtx, db, settings)
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "seed"}).Fatal(err.Error())
		}
		logger.WithFields(logrus.Fields{"field": "seed", "result": seeded}).Info("defaults seeded")
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	svc := workflow.NewService(db, logger, settings,
		workflow.WithLocker(workflow.NewPostingLocker(rdb, logger)),
	)
	reporter := reports.NewReporter(db, logger, rdb)

	var extra []gin.HandlerFunc
	if limit, window, enabled := config.RateLimit(); enabled && rdb != nil {
		extra = append(extra, NewRateLimiter(rdb.Client, limit, window).RateLimitMiddleware)
	}
	r := newRouter(db, logger, svc, reporter, extra...)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithField("port", port).Info("server listening")

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
}

func newRouter(db *gorm.DB, logger *logrus.Logger, svc *workflow.Service, reporter *reports.Reporter, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	corsConfig := cors.DefaultConfig()
	if origins := config.AllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization",
		middlewares.HeaderUserId, middlewares.HeaderUserName, middlewares.HeaderCorrelationId)
	corsConfig.AddExposeHeaders("Content-Length", middlewares.HeaderCorrelationId)

	r.Use(cors.New(corsConfig))
	r.Use(extra...)
	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.LoaderMiddleware(db))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	h := &api{svc: svc, reporter: reporter}
	h.registerRoutes(r)
	r.NoRoute(customNotFoundHandler)
	return r
}

func (h *api) registerRoutes(r *gin.Engine) {
	r.GET("/units", h.listUnits)
	r.POST("/units", h.createUnit)
	r.GET("/units/:id", h.getUnit)
	r.GET("/expense-categories", h.listExpenseCategories)

	r.GET("/calculation-rules", h.listRules)
	r.POST("/calculation-rules", h.createRule)
	r.GET("/calculation-rules/:id", h.getRule)
	r.PUT("/calculation-rules/:id", h.updateRule)
	r.PUT("/calculation-rules/:id/active", h.setRuleActive)
	r.DELETE("/calculation-rules/:id", h.deleteRule)
	r.GET("/calculation-scopes/:scope", h.getScope)
	r.PUT("/calculation-scopes", h.saveScope)
	r.POST("/calculations/evaluate", h.evaluate)
	r.POST("/calculations/sale-preview", h.previewSale)

	r.GET("/sales", h.listSales)
	r.POST("/sales", h.createSale)
	r.GET("/sales/:id", h.getSale)
	r.PUT("/sales/:id", h.updateSale)
	r.DELETE("/sales/:id", h.deleteSale)
	r.POST("/sales/:id/commissions/:target", h.payCommission)
	r.DELETE("/sales/:id/commissions/:target", h.cancelCommission)

	r.GET("/expenses", h.listExpenses)
	r.POST("/expenses", h.createExpense)
	r.GET("/expenses/:id", h.getExpense)
	r.PUT("/expenses/:id", h.updateExpense)
	r.DELETE("/expenses/:id", h.deleteExpense)

	r.GET("/rentals", h.listRentals)
	r.POST("/rentals", h.createRental)
	r.GET("/rentals/:id", h.getRental)
	r.PUT("/rentals/:id", h.updateRental)
	r.DELETE("/rentals/:id", h.deleteRental)
	r.POST("/rentals/:id/payments", h.addRentalPayment)
	r.PUT("/rental-payments/:id", h.updateRentalPayment)
	r.DELETE("/rental-payments/:id", h.deleteRentalPayment)

	r.GET("/finishing-works", h.listFinishingWorks)
	r.POST("/finishing-works", h.createFinishingWork)
	r.GET("/finishing-works/:id", h.getFinishingWork)
	r.PUT("/finishing-works/:id", h.updateFinishingWork)
	r.DELETE("/finishing-works/:id", h.deleteFinishingWork)
	r.POST("/finishing-works/:id/expenses", h.addFinishingWorkExpense)
	r.PUT("/finishing-work-expenses/:id", h.updateFinishingWorkExpense)
	r.DELETE("/finishing-work-expenses/:id", h.deleteFinishingWorkExpense)

	r.GET("/cashier/balance", h.getBalance)
	r.GET("/cashier/transactions", h.listTransactions)
	r.POST("/cashier/deposits", h.deposit)
	r.POST("/cashier/withdrawals", h.withdraw)
	r.POST("/cashier/events", h.recordEvent)
	r.PUT("/cashier/events/:type/:referenceId", h.adjustEvent)
	r.DELETE("/cashier/events/:type/:referenceId", h.reverseEvent)
	r.POST("/cashier/repairs", h.repairGap)
	r.POST("/cashier/checks", h.runChecks)
	r.GET("/cashier/reconciliation-reports", h.listReconciliationReports)

	r.GET("/settings", h.listSettings)
	r.GET("/settings/:key", h.getSetting)
	r.PUT("/settings", h.setSetting)
	r.DELETE("/settings/:key", h.deactivateSetting)

	r.GET("/reports/cashier-transactions", h.cashierTransactionsReport)
	r.GET("/reports/expenses", h.expensesReport)
	r.GET("/reports/profit-loss", h.profitLossReport)
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.WithFields(logrus.Fields{
				"path":   c.FullPath(),
				"method": c.Request.Method,
				"status": c.Writer.Status(),
			}).Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if count == 1 {
		if err := rl.client.Expire(c.Request.Context(), key, rl.window).Err(); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
