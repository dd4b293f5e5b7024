package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"transferledger/internal/handler"
	"transferledger/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	DriverHandler  *handler.DriverHandler
	LedgerHandler  *handler.LedgerHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	Logger         logrus.FieldLogger
	AllowedOrigins []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.GetAll)
			trips.POST("/scan", deps.TripHandler.ScanTrip)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/assign", deps.TripHandler.AssignDriver)
			trips.POST("/:id/confirm", deps.TripHandler.ConfirmTrip)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.PUT("/:id/price", deps.TripHandler.UpdatePrice)
			trips.POST("/:id/complete", deps.TripHandler.CompleteTrip)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/:key", deps.DriverHandler.GetDriver)
			drivers.GET("/:key/balance", deps.DriverHandler.GetBalance)
			drivers.GET("/:key/transactions", deps.DriverHandler.GetTransactions)
			drivers.GET("/:key/verify", deps.DriverHandler.Verify)
			drivers.GET("/:key/statement", deps.DriverHandler.GetStatement)
			drivers.POST("/:key/payouts", deps.DriverHandler.RecordPayout)
			drivers.POST("/:key/cash-handovers", deps.DriverHandler.ReconcileCash)
		}

		// Company ledger routes.
		ledger := v1.Group("/ledger")
		{
			ledger.GET("/entries", deps.LedgerHandler.GetEntries)
			ledger.GET("/summary", deps.LedgerHandler.GetSummary)
		}
	}

	return router
}
