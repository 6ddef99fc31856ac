package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nmoreyra/acopio/backend/internal/stock/domain"
	"github.com/nmoreyra/acopio/backend/internal/stock/service"
)

type StockHandler struct {
	svc *service.StockService
}

func NewStockHandler(svc *service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

func (h *StockHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/stock")
	{
		g.GET("/:productID", h.GetLevel)
		g.GET("/:productID/history", h.GetHistory)
	}
}

// GetHistory returns a product's ledger entries.
// GET /api/v1/stock/:productID/history?since=RFC3339&limit=&offset=&order=desc
func (h *StockHandler) GetHistory(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	q := domain.HistoryQuery{
		Desc: c.Query("order") == "desc",
	}
	if v := c.Query("limit"); v != "" {
		q.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		q.Offset, _ = strconv.Atoi(v)
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		q.Since = &since
	}

	entries, err := h.svc.History(c.Request.Context(), productID, q)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]LedgerEntryResp, len(entries))
	for i, e := range entries {
		resp[i] = toEntryResp(e)
	}
	c.JSON(http.StatusOK, gin.H{"entries": resp})
}

// GetLevel returns the projected on-hand quantity plus the ledger replay.
// GET /api/v1/stock/:productID
func (h *StockHandler) GetLevel(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	lvl, err := h.svc.Level(c.Request.Context(), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, LevelResp{
		ProductID:  lvl.ProductID,
		QtyOnHand:  lvl.QtyOnHand,
		Replayed:   lvl.Replayed,
		Consistent: lvl.Consistent,
	})
}

func (h *StockHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
