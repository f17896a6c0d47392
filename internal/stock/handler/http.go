package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/omnistore/ledger-service/internal/rest"
	"github.com/omnistore/ledger-service/internal/stock"
	"github.com/omnistore/ledger-service/internal/stock/dto"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/shopspring/decimal"
)

type StockHandler struct {
	uc     stock.UseCase
	logger logger.ZapLogger
}

func NewStockHandler(uc stock.UseCase, log logger.ZapLogger) *StockHandler {
	return &StockHandler{uc: uc, logger: log}
}

func (h *StockHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/stock/adjustments", h.Adjust)
	rg.POST("/stock/transfers", h.Transfer)
	rg.POST("/stock/receipts", h.Receive)
	rg.POST("/stock/reservations", h.Reserve)
	rg.POST("/stock/releases", h.Release)
	rg.POST("/stock/items/:item_id/track", h.EnsureTracked)
	rg.GET("/stock/items/:item_id", h.StockAcrossWarehouses)
	rg.GET("/stock/:warehouse_id/:item_id", h.StockOf)
	rg.GET("/stock/:warehouse_id/:item_id/availability", h.CheckAvailability)
}

type adjustRequest struct {
	WarehouseID    string `json:"warehouse_id" binding:"required"`
	ItemID         string `json:"item_id" binding:"required"`
	QuantityChange int64  `json:"quantity_change" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	ReferenceTable string `json:"reference_table"`
	ReferenceID    string `json:"reference_id"`
}

func (h *StockHandler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	rec, err := h.uc.Adjust(c.Request.Context(), &dto.AdjustInput{
		WarehouseID:    req.WarehouseID,
		ItemID:         req.ItemID,
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		ReferenceTable: req.ReferenceTable,
		ReferenceID:    req.ReferenceID,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type transferRequest struct {
	FromWarehouseID string `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   string `json:"to_warehouse_id" binding:"required"`
	ItemID          string `json:"item_id" binding:"required"`
	Quantity        int64  `json:"quantity" binding:"required,gt=0"`
	Reason          string `json:"reason"`
}

func (h *StockHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	err := h.uc.Transfer(c.Request.Context(), &dto.TransferInput{
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		ItemID:          req.ItemID,
		Quantity:        req.Quantity,
		Reason:          req.Reason,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "transferred"})
}

type receiveRequest struct {
	WarehouseID string          `json:"warehouse_id" binding:"required"`
	ItemID      string          `json:"item_id" binding:"required"`
	Quantity    int64           `json:"quantity" binding:"required,gt=0"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Reason      string          `json:"reason"`
	ReferenceID string          `json:"reference_id"`
}

func (h *StockHandler) Receive(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	rec, err := h.uc.Receive(c.Request.Context(), &dto.ReceiveInput{
		WarehouseID:    req.WarehouseID,
		ItemID:         req.ItemID,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		Reason:         req.Reason,
		ReferenceTable: "purchase_orders",
		ReferenceID:    req.ReferenceID,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type reservationRequest struct {
	WarehouseID string `json:"warehouse_id" binding:"required"`
	ItemID      string `json:"item_id" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	Reason      string `json:"reason"`
}

func (h *StockHandler) Reserve(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	if err := h.uc.Reserve(c.Request.Context(), req.WarehouseID, req.ItemID, req.Quantity); err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "reserved"})
}

func (h *StockHandler) Release(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	err := h.uc.Release(c.Request.Context(), &dto.ReleaseInput{
		WarehouseID: req.WarehouseID,
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "released"})
}

func (h *StockHandler) EnsureTracked(c *gin.Context) {
	if err := h.uc.EnsureTracked(c.Request.Context(), c.Param("item_id")); err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "tracked"})
}

func (h *StockHandler) StockOf(c *gin.Context) {
	rec, err := h.uc.StockOf(c.Request.Context(), c.Param("warehouse_id"), c.Param("item_id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *StockHandler) StockAcrossWarehouses(c *gin.Context) {
	records, err := h.uc.StockAcrossWarehouses(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *StockHandler) CheckAvailability(c *gin.Context) {
	qty, err := strconv.ParseInt(c.DefaultQuery("quantity", "1"), 10, 64)
	if err != nil {
		rest.BadRequest(c, err)
		return
	}

	ok, err := h.uc.CheckAvailability(c.Request.Context(), c.Param("warehouse_id"), c.Param("item_id"), qty)
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": ok})
}
