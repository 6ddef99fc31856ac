package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
	"github.com/nmoreyra/acopio/backend/internal/purchase/service"
)

type PurchaseHandler struct {
	svc *service.Service
}

func NewPurchaseHandler(svc *service.Service) *PurchaseHandler {
	return &PurchaseHandler{svc: svc}
}

func (h *PurchaseHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/purchases")
	{
		g.POST("", h.Create)
		g.GET("/:id", h.Get)
		g.PUT("/:id/lines", h.ReplaceLines)
		g.POST("/:id/lines/:lineID/link", h.LinkLine)
		g.POST("/:id/validate", h.Validate)
		g.POST("/:id/confirm", h.Confirm)
		g.POST("/:id/rollback", h.Rollback)
		g.POST("/:id/cancel", h.Cancel)
		g.POST("/:id/resend-stock", h.ResendStock)
	}
}

// Create registers a new draft purchase.
// POST /api/v1/purchases
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req CreatePurchaseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		SupplierID:    req.SupplierID,
		RemitoNumber:  req.RemitoNumber,
		RemitoDate:    req.RemitoDate,
		Currency:      req.Currency,
		VATRate:       req.VATRate,
		DiscountPct:   req.DiscountPct,
		DiscountAbs:   req.DiscountAbs,
		DeclaredTotal: req.DeclaredTotal,
		Lines:         toLineInputs(req.Lines),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPurchaseResp(p))
}

// GET /api/v1/purchases/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseResp(p))
}

// PUT /api/v1/purchases/:id/lines
func (h *PurchaseHandler) ReplaceLines(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReplaceLinesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	p, err := h.svc.ReplaceLines(c.Request.Context(), id, toLineInputs(req.Lines))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseResp(p))
}

// POST /api/v1/purchases/:id/lines/:lineID/link
func (h *PurchaseHandler) LinkLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineID")
	if !ok {
		return
	}
	var req LinkLineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	line, err := h.svc.LinkLine(c.Request.Context(), id, lineID, req.ProductID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"line_id":    line.ID,
		"product_id": line.ProductID,
		"status":     line.Status,
	})
}

// POST /api/v1/purchases/:id/validate
func (h *PurchaseHandler) Validate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Validate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/purchases/:id/confirm
func (h *PurchaseHandler) Confirm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Confirm(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/purchases/:id/rollback
func (h *PurchaseHandler) Rollback(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Rollback(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/purchases/:id/cancel
func (h *PurchaseHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a cancellation reason is required"})
		return
	}
	res, err := h.svc.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/purchases/:id/resend-stock?apply=true&debug=true
func (h *PurchaseHandler) ResendStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	apply := c.Query("apply") == "true"
	debug := c.Query("debug") == "true"

	res, err := h.svc.ResendStock(c.Request.Context(), id, apply, debug)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps the domain taxonomy onto HTTP statuses. Rejected
// transitions and cooldowns are typed results, never plain 500s.
func writeError(c *gin.Context, err error) {
	var transErr *domain.InvalidTransitionError
	var cooldownErr *domain.CooldownError

	switch {
	case errors.Is(err, domain.ErrPurchaseNotFound),
		errors.Is(err, domain.ErrLineNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &transErr):
		c.JSON(http.StatusConflict, gin.H{"error": transErr.Error(), "state": transErr.From})
	case errors.As(err, &cooldownErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               cooldownErr.Error(),
			"retry_after_seconds": cooldownErr.RetryAfterSeconds(),
		})
	case errors.Is(err, domain.ErrDuplicateRemito),
		errors.Is(err, domain.ErrNotEditable),
		errors.Is(err, domain.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
