package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/backoffice/internal/core/domain"
	"github.com/rl1809/backoffice/internal/core/service"
	"github.com/rl1809/backoffice/internal/port"
)

type HTTPHandler struct {
	orders    *service.OrderService
	inventory *service.InventoryService
	alerts    *service.AlertService
	audit     port.AuditSink
	validate  *validator.Validate
	log       *logrus.Logger
}

func NewHTTPHandler(orders *service.OrderService, inventory *service.InventoryService, alerts *service.AlertService, audit port.AuditSink, log *logrus.Logger) *HTTPHandler {
	return &HTTPHandler{
		orders:    orders,
		inventory: inventory,
		alerts:    alerts,
		audit:     audit,
		validate:  validator.New(),
		log:       log,
	}
}

func (h *HTTPHandler) Register(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)

	admin := r.Group("/api/admin")
	admin.POST("/orders", h.CreateOrder)
	admin.GET("/orders", h.ListOrders)
	admin.GET("/orders/:number", h.GetOrder)
	admin.PATCH("/orders/:number/status", h.TransitionOrder)
	admin.DELETE("/orders/:number", h.DeleteOrder)

	admin.GET("/alerts", h.ActiveAlerts)
	admin.POST("/alerts/:id/resolve", h.ResolveAlert)

	admin.GET("/stock-movements", h.ListMovements)
	admin.GET("/products/:id/stock-summary", h.StockSummary)
	admin.POST("/products/:id/restock", h.Restock)
	admin.POST("/products/:id/adjust", h.AdjustStock)

	admin.GET("/reports/order-stats", h.OrderStats)
	admin.GET("/reports/stock-trend", h.StockTrend)
	admin.GET("/audit", h.AuditLog)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps service sentinels to HTTP statuses and machine-readable
// kinds. Internal detail is never exposed to the caller.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := "InternalError"
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		status, kind, message = http.StatusBadRequest, "InvalidStatus", err.Error()
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrAlertNotFound),
		errors.Is(err, service.ErrProductNotFound):
		status, kind, message = http.StatusNotFound, "NotFound", err.Error()
	case errors.Is(err, service.ErrIllegalTransition):
		status, kind, message = http.StatusConflict, "IllegalTransition", err.Error()
	case errors.Is(err, service.ErrStaleOrder):
		status, kind, message = http.StatusUnprocessableEntity, "StaleOrderModification", err.Error()
	case errors.Is(err, service.ErrDeletionRestricted):
		status, kind, message = http.StatusConflict, "DeletionRestricted", err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		status, kind, message = http.StatusConflict, "DuplicateRequest", err.Error()
	case errors.Is(err, service.ErrInvalidAdjustment),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrNoItems):
		status, kind, message = http.StatusBadRequest, "InvalidAdjustment", err.Error()
	default:
		h.log.WithError(err).Error("request failed")
	}

	c.JSON(status, gin.H{"error": errorBody{Kind: kind, Message: message}})
}

func (h *HTTPHandler) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "InvalidRequest", Message: message}})
}

// actor is placed by the upstream auth collaborator; internal callers without
// one are attributed to the system.
func actor(c *gin.Context) string {
	if a := c.GetHeader("X-Admin-Actor"); a != "" {
		return a
	}
	return domain.ActorSystem
}

type createOrderItem struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	SKU       string `json:"sku"`
	UnitPrice string `json:"unitPrice" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items []createOrderItem `json:"items" validate:"required,min=1,dive"`
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			h.badRequest(c, "invalid unit price")
			return
		}
		items = append(items, domain.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			SKU:       it.SKU,
			UnitPrice: price,
			Quantity:  it.Quantity,
		})
	}

	order, err := h.orders.Create(c.Request.Context(), items, actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": toOrderView(order)})
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderView(order)})
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	page, limit := pagination(c)
	orders, total, err := h.orders.List(c.Request.Context(), domain.OrderStatus(c.Query("status")), page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, toOrderView(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views, "total": total, "page": page, "limit": limit})
}

type transitionRequest struct {
	Status         string `json:"status" validate:"required"`
	Note           string `json:"note"`
	TrackingNumber string `json:"trackingNumber"`
	RequestID      string `json:"requestId"`
}

func (h *HTTPHandler) TransitionOrder(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	result, err := h.orders.Transition(c.Request.Context(), c.Param("number"),
		domain.OrderStatus(req.Status), req.Note, req.TrackingNumber, req.RequestID, actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	movements := make([]movementView, 0, len(result.Movements))
	for i := range result.Movements {
		movements = append(movements, toMovementView(&result.Movements[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"order":          toOrderView(result.Order),
		"movements":      movements,
		"previousStatus": result.PreviousStatus,
		"newStatus":      result.Order.Status,
	})
}

func (h *HTTPHandler) DeleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("number"), actor(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *HTTPHandler) ActiveAlerts(c *gin.Context) {
	alerts, err := h.alerts.ActiveAlerts(c.Request.Context(), port.AlertFilter{
		Level:    domain.AlertLevel(c.Query("level")),
		Category: c.Query("category"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	views := make([]alertView, 0, len(alerts))
	for i := range alerts {
		views = append(views, toAlertView(&alerts[i]))
	}
	c.JSON(http.StatusOK, gin.H{"alerts": views})
}

type resolveAlertRequest struct {
	Action string `json:"action" validate:"required"`
	Notes  string `json:"notes"`
}

func (h *HTTPHandler) ResolveAlert(c *gin.Context) {
	var req resolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	reason := req.Action
	if req.Notes != "" {
		reason = req.Action + ": " + req.Notes
	}
	alert, err := h.alerts.ResolveManually(c.Request.Context(), c.Param("id"), actor(c), reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": toAlertView(alert)})
}

func (h *HTTPHandler) ListMovements(c *gin.Context) {
	mvType := domain.MovementType(c.Query("type"))
	if mvType != "" && !mvType.Valid() {
		h.badRequest(c, "invalid movement type")
		return
	}
	page, limit := pagination(c)
	filter := port.MovementFilter{
		ProductID: c.Query("productId"),
		Type:      mvType,
		Page:      page,
		Limit:     limit,
	}
	var ok bool
	if filter.From, ok = queryTime(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryTime(c, "to"); !ok {
		return
	}

	movements, total, err := h.inventory.Movements(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	views := make([]movementView, 0, len(movements))
	for i := range movements {
		views = append(views, toMovementView(&movements[i]))
	}
	c.JSON(http.StatusOK, gin.H{"movements": views, "total": total, "page": page, "limit": limit})
}

func (h *HTTPHandler) StockSummary(c *gin.Context) {
	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.Add(-30 * 24 * time.Hour)
	}

	summary, err := h.inventory.Summary(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"productId": summary.ProductID,
		"totalIn":   summary.TotalIn,
		"totalOut":  summary.TotalOut,
		"netChange": summary.NetChange,
	})
}

type stockChangeRequest struct {
	Quantity int    `json:"quantity" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

func (h *HTTPHandler) Restock(c *gin.Context) {
	var req stockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	product, movement, err := h.inventory.Restock(c.Request.Context(), c.Param("id"), req.Quantity, actor(c), req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": product.Stock, "movement": toMovementView(movement)})
}

func (h *HTTPHandler) AdjustStock(c *gin.Context) {
	var req stockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	product, movement, err := h.inventory.Adjust(c.Request.Context(), c.Param("id"), req.Quantity, actor(c), req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": product.Stock, "movement": toMovementView(movement)})
}

func (h *HTTPHandler) OrderStats(c *gin.Context) {
	stats, err := h.orders.StatusStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	rows := make([]gin.H, 0, len(stats))
	for _, row := range stats {
		rows = append(rows, gin.H{"status": row.Status, "count": row.Count, "revenue": row.Revenue})
	}
	c.JSON(http.StatusOK, gin.H{"breakdown": rows})
}

func (h *HTTPHandler) StockTrend(c *gin.Context) {
	to := time.Now()
	from := to.Add(-30 * 24 * time.Hour)
	trend, err := h.inventory.StockTrend(c.Request.Context(), from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}
	days := make([]gin.H, 0, len(trend))
	for _, day := range trend {
		days = append(days, gin.H{
			"day":       day.Day.Format("2006-01-02"),
			"totalIn":   day.TotalIn,
			"totalOut":  day.TotalOut,
			"movements": day.Movements,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trend": days})
}

func (h *HTTPHandler) AuditLog(c *gin.Context) {
	ctx := c.Request.Context()
	limit := 50

	var (
		entries []domain.AuditEntry
		err     error
	)
	switch {
	case c.Query("actor") != "":
		entries, err = h.audit.ByActor(ctx, c.Query("actor"), limit)
	case c.Query("targetType") != "" && c.Query("targetId") != "":
		entries, err = h.audit.ByTarget(ctx, c.Query("targetType"), c.Query("targetId"), limit)
	default:
		entries, err = h.audit.Recent(ctx, limit)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	views := make([]auditView, 0, len(entries))
	for i := range entries {
		views = append(views, toAuditView(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{"entries": views})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func pagination(c *gin.Context) (int, int) {
	page, limit := 1, 20
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	return page, limit
}

func queryTime(c *gin.Context, key string) (time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Kind:    "InvalidRequest",
			Message: "invalid " + key + " timestamp, expected RFC3339",
		}})
		return time.Time{}, false
	}
	return t, true
}
