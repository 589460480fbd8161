package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/server/handlers"
)

// New wires the Gin engine with the dairy API and, when messaging is configured, the WhatsApp webhook.
func New(api *handlers.DairyHandler, webhook *handlers.WebhookHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	if webhook != nil {
		r.GET("/webhook", webhook.Verify)
		r.POST("/webhook", webhook.Receive)
		r.POST("/send-message", webhook.SendMessage)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := r.Group("/api")

	farmers := g.Group("/farmers")
	farmers.GET("", api.ListFarmers)
	farmers.POST("", api.AddFarmer)
	farmers.GET("/:id", api.GetFarmer)
	farmers.PUT("/:id", api.UpdateFarmer)
	farmers.GET("/:id/collections", api.FarmerCollections)
	farmers.PUT("/:id/collections/:entryId", api.UpdateCollection)
	farmers.GET("/:id/transactions", api.Transactions)
	farmers.POST("/:id/transactions", api.RecordCash)
	farmers.PUT("/:id/transactions/:txnId", api.UpdateCash)
	farmers.GET("/:id/balance", api.Balance)
	farmers.GET("/:id/statement", api.Statement)
	farmers.GET("/:id/sms", api.BalanceSMS)
	farmers.POST("/:id/notify", api.NotifyBalance)
	farmers.GET("/:id/bill", api.FarmerBill)
	farmers.POST("/:id/bill/export", api.ExportFarmerBill)

	g.POST("/collections", api.RecordCollection)
	g.POST("/collections/preview", api.PreviewCollection)
	g.GET("/collections/:session", api.SessionCollections)

	g.GET("/inventory", api.ListInventory)
	g.POST("/inventory", api.AddProduct)
	g.PATCH("/inventory/:name", api.AdjustStock)

	g.GET("/sales", api.ListSales)
	g.POST("/sales", api.RecordSale)
	g.PUT("/sales/:id", api.UpdateSale)
	g.GET("/sales/:id/bill", api.SellBill)

	g.GET("/rates", api.GetRates)
	g.PUT("/rates", api.UpdateRates)

	g.GET("/reports/sessions", api.SessionReport)
	g.GET("/reports/sessions/page", api.SessionReportPage)
	g.GET("/reports/daily", api.DailyReport)

	if logger != nil {
		logger.Info("router initialized", zap.Bool("webhook", webhook != nil))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
