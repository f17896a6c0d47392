package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/movement"
	"github.com/omnistore/ledger-service/internal/movement/dto"
	"github.com/omnistore/ledger-service/internal/rest"
	"github.com/omnistore/ledger-service/pkg/logger"
)

type MovementHandler struct {
	uc     movement.UseCase
	logger logger.ZapLogger
}

func NewMovementHandler(uc movement.UseCase, log logger.ZapLogger) *MovementHandler {
	return &MovementHandler{uc: uc, logger: log}
}

func (h *MovementHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/movements", h.Search)
	rg.GET("/movements/kardex", h.Kardex)
	rg.GET("/movements/reference/:table/:id", h.ByReference)
	rg.GET("/movements/balance/:warehouse_id/:item_id", h.LastBalance)
}

func filtersFromQuery(c *gin.Context) (*dto.MovementFilters, error) {
	f := &dto.MovementFilters{
		WarehouseID: c.Query("warehouse_id"),
		ItemID:      c.Query("item_id"),
		Query:       c.Query("q"),
	}

	for _, kind := range c.QueryArray("kind") {
		f.Kinds = append(f.Kinds, model.MovementKind(kind))
	}

	const layout = "2006-01-02"
	if v := c.Query("start_date"); v != "" {
		ts, err := time.Parse(layout, v)
		if err != nil {
			return nil, err
		}
		f.StartDate = &ts
	}
	if v := c.Query("end_date"); v != "" {
		ts, err := time.Parse(layout, v)
		if err != nil {
			return nil, err
		}
		f.EndDate = &ts
	}

	var err error
	if f.Page, err = strconv.Atoi(c.DefaultQuery("page", "1")); err != nil {
		return nil, err
	}
	if f.PageSize, err = strconv.Atoi(c.DefaultQuery("page_size", "50")); err != nil {
		return nil, err
	}
	return f, nil
}

func (h *MovementHandler) Search(c *gin.Context) {
	f, err := filtersFromQuery(c)
	if err != nil {
		rest.BadRequest(c, err)
		return
	}

	entries, total, err := h.uc.Search(c.Request.Context(), f)
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
}

// Kardex serves the accounting view: physical in/out movements only.
func (h *MovementHandler) Kardex(c *gin.Context) {
	f, err := filtersFromQuery(c)
	if err != nil {
		rest.BadRequest(c, err)
		return
	}

	entries, total, err := h.uc.Kardex(c.Request.Context(), f)
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
}

func (h *MovementHandler) ByReference(c *gin.Context) {
	entries, err := h.uc.ByReference(c.Request.Context(), c.Param("table"), c.Param("id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *MovementHandler) LastBalance(c *gin.Context) {
	balance, err := h.uc.LastBalance(c.Request.Context(), c.Param("warehouse_id"), c.Param("item_id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
