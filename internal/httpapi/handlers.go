package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/engine"
	"github.com/didac-crst/mockexchange-api/internal/orderbook"
)

// handlers groups every route's logic behind the Engine; mirrors the
// teacher's Handler{svc *service.OrderService} shape but for one engine
// that already owns every sub-component.
type handlers struct {
	engine *engine.Engine
	hub    *tickerHub
}

func newHandlers(e *engine.Engine, log *zap.Logger) *handlers {
	return &handlers{engine: e, hub: newTickerHub(e, log)}
}

// ---- tickers ----

func (h *handlers) listTickers(c *gin.Context) {
	symbols, err := h.engine.Tickers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (h *handlers) getTicker(c *gin.Context) {
	t, err := h.engine.Ticker(c.Request.Context(), c.Param("sym"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ---- balance ----

func (h *handlers) getBalanceSnapshot(c *gin.Context) {
	snap, err := h.engine.BalanceSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handlers) getBalanceAsset(c *gin.Context) {
	b, err := h.engine.Balance(c.Request.Context(), c.Param("asset"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ---- orders ----

func (h *handlers) listOrders(c *gin.Context) {
	filter := orderbook.Filter{Symbol: c.Query("symbol")}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.Status{domain.Status(status)}
	}
	if tail := c.Query("tail"); tail != "" {
		if n, err := parseIntQuery(tail); err == nil {
			filter.Tail = n
		}
	}
	orders, err := h.engine.Orders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.engine.Order(c.Request.Context(), c.Param("oid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type placeOrderRequest struct {
	Symbol     string `json:"symbol" binding:"required"`
	Side       string `json:"side" binding:"required"`
	Type       string `json:"type" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
	LimitPrice string `json:"limit_price"`
}

func (r placeOrderRequest) parse() (domain.Side, domain.OrderType, decimal.Decimal, decimal.Decimal, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return "", "", decimal.Zero, decimal.Zero, apperr.New("httpapi.parse", apperr.InvalidArgument, err)
	}
	limitPrice := decimal.Zero
	if r.LimitPrice != "" {
		limitPrice, err = decimal.NewFromString(r.LimitPrice)
		if err != nil {
			return "", "", decimal.Zero, decimal.Zero, apperr.New("httpapi.parse", apperr.InvalidArgument, err)
		}
	}
	return domain.Side(r.Side), domain.OrderType(r.Type), amount, limitPrice, nil
}

func (h *handlers) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, typ, amount, limitPrice, err := req.parse()
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := h.engine.Place(c.Request.Context(), req.Symbol, side, typ, amount, limitPrice)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) canExecute(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, typ, amount, limitPrice, err := req.parse()
	if err != nil {
		writeError(c, err)
		return
	}
	ok, reason, err := h.engine.CanExecute(c.Request.Context(), req.Symbol, side, typ, amount, limitPrice)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok, "reason": reason})
}

func (h *handlers) cancelOrder(c *gin.Context) {
	order, err := h.engine.Cancel(c.Request.Context(), c.Param("oid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ---- overview ----

func (h *handlers) overviewAssets(c *gin.Context) {
	rows, err := h.engine.OverviewAssets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ---- admin ----

type adminPriceRequest struct {
	Price string `json:"price" binding:"required"`
}

func (h *handlers) adminSetPrice(c *gin.Context) {
	var req adminPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}
	if err := h.engine.AdminSetPrice(c.Request.Context(), c.Param("sym"), price); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type adminBalanceRequest struct {
	Free string `json:"free" binding:"required"`
	Used string `json:"used" binding:"required"`
}

func (h *handlers) adminSetBalance(c *gin.Context) {
	var req adminBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	free, err1 := decimal.NewFromString(req.Free)
	used, err2 := decimal.NewFromString(req.Used)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid free/used"})
		return
	}
	if err := h.engine.AdminSetBalance(c.Request.Context(), c.Param("asset"), free, used); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type adminFundRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func (h *handlers) adminFund(c *gin.Context) {
	var req adminFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	if err := h.engine.AdminFund(c.Request.Context(), req.Asset, amount); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) adminWipe(c *gin.Context) {
	if err := h.engine.AdminWipe(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "wiped"})
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.engine.Now()})
}

func parseIntQuery(s string) (int, error) {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, apperr.New("httpapi.parseIntQuery", apperr.InvalidArgument, nil)
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
