package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/order"
	"github.com/omnistore/ledger-service/internal/order/dto"
	"github.com/omnistore/ledger-service/internal/rest"
	"github.com/omnistore/ledger-service/pkg/logger"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{uc: uc, logger: log}
}

func (h *OrderHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/orders", h.Create)
	rg.GET("/orders/:id", h.Get)
	rg.GET("/orders/:id/history", h.History)
	rg.POST("/orders/:id/transition", h.Transition)
	rg.POST("/orders/:id/cancel", h.Cancel)
	rg.POST("/orders/:id/ship", h.MarkShipped)
}

type createOrderRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Lines      []struct {
		ItemID   string `json:"item_id" binding:"required"`
		Quantity int64  `json:"quantity" binding:"required,gt=0"`
	} `json:"lines" binding:"required,min=1"`
	ShippingAddress model.Address `json:"shipping_address"`
	BillingAddress  model.Address `json:"billing_address"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	input := &dto.CreateOrderInput{
		CustomerID:      req.CustomerID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, dto.CreateOrderLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	o, err := h.uc.Create(c.Request.Context(), input)
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.uc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) History(c *gin.Context) {
	events, err := h.uc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type transitionRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

func (h *OrderHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	o, err := h.uc.Transition(c.Request.Context(), &dto.TransitionInput{
		OrderID:   c.Param("id"),
		NewStatus: model.OrderStatus(req.Status),
		Comment:   req.Comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	o, err := h.uc.Cancel(c.Request.Context(), &dto.CancelInput{
		OrderID: c.Param("id"),
		Reason:  req.Reason,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type markShippedRequest struct {
	Comment string `json:"comment"`
}

// MarkShipped is the manual override for shops without a shipping service
// publishing events; the Kafka listener drives the same operation.
func (h *OrderHandler) MarkShipped(c *gin.Context) {
	var req markShippedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			rest.BadRequest(c, err)
			return
		}
	}

	o, err := h.uc.MarkShipped(c.Request.Context(), &dto.MarkShippedInput{
		OrderID: c.Param("id"),
		Comment: req.Comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
