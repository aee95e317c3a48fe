package httpapi

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/config"
	"github.com/didac-crst/mockexchange-api/internal/engine"
)

// NewRouter wires every route spec.md §6's HTTP table names onto the
// given Engine, grounded on the teacher's cmd/api/main.go gin setup
// (gin.Default + SetTrustedProxies(nil) + gin-contrib/cors) and
// internal/handler/routes.go's RegisterRoutes grouping. It also starts
// the ticker-stream hub's broadcast loop, stopped when ctx is canceled.
func NewRouter(ctx context.Context, e *engine.Engine, cfg config.Config, log *zap.Logger) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "x-api-key", "Upgrade", "Connection"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))

	h := newHandlers(e, log)
	streamInterval := cfg.TickInterval()
	if streamInterval <= 0 {
		streamInterval = time.Second
	}
	go h.hub.run(ctx, streamInterval)

	r.GET("/healthz", h.healthz)

	api := r.Group("/")
	api.Use(APIKeyAuth(cfg.APIKey, cfg.APIKeyDisabled))
	{
		api.GET("/symbols", h.listTickers)
		api.GET("/tickers", h.listTickers)
		api.GET("/tickers/:sym", h.getTicker)
		api.GET("/tickers/ws", h.tickerStream)

		api.GET("/balance", h.getBalanceSnapshot)
		api.GET("/balance/:asset", h.getBalanceAsset)

		api.GET("/orders", h.listOrders)
		api.GET("/orders/:oid", h.getOrder)
		api.POST("/orders", h.placeOrder)
		api.POST("/orders/can_execute", h.canExecute)
		api.POST("/orders/:oid/cancel", h.cancelOrder)

		api.GET("/overview/assets", h.overviewAssets)

		admin := api.Group("/admin")
		{
			admin.PATCH("/tickers/:sym/price", h.adminSetPrice)
			admin.PATCH("/balance/:asset", h.adminSetBalance)
			admin.POST("/fund", h.adminFund)
			admin.DELETE("/data", h.adminWipe)
		}
	}

	return r
}
