package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/rest"
	"github.com/omnistore/ledger-service/internal/returns"
	"github.com/omnistore/ledger-service/internal/returns/dto"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/shopspring/decimal"
)

type ReturnHandler struct {
	uc     returns.UseCase
	logger logger.ZapLogger
}

func NewReturnHandler(uc returns.UseCase, log logger.ZapLogger) *ReturnHandler {
	return &ReturnHandler{uc: uc, logger: log}
}

func (h *ReturnHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/returns", h.Open)
	rg.GET("/returns/:id", h.Get)
	rg.GET("/returns/:id/history", h.History)
	rg.POST("/returns/:id/decision", h.ApproveOrReject)
	rg.POST("/returns/:id/in-transit", h.MarkInTransit)
	rg.POST("/returns/:id/received", h.MarkReceived)
	rg.POST("/returns/:id/items/:item_id/inspection", h.InspectItem)
	rg.POST("/returns/:id/inspection/complete", h.CompleteInspection)
	rg.POST("/returns/:id/refund", h.ProcessRefund)
	rg.POST("/returns/:id/close", h.Close)
	rg.POST("/returns/:id/cancel", h.Cancel)
}

type openReturnRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Lines   []struct {
		OrderLineID string `json:"order_line_id" binding:"required"`
		Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	} `json:"lines" binding:"required,min=1"`
	Reason  string `json:"reason" binding:"required"`
	Comment string `json:"comment"`
}

func (h *ReturnHandler) Open(c *gin.Context) {
	var req openReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	input := &dto.OpenReturnInput{
		OrderID: req.OrderID,
		Reason:  model.ReturnReason(req.Reason),
		Comment: req.Comment,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, dto.OpenReturnLine{OrderLineID: line.OrderLineID, Quantity: line.Quantity})
	}

	r, err := h.uc.Open(c.Request.Context(), input)
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *ReturnHandler) Get(c *gin.Context) {
	r, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ReturnHandler) History(c *gin.Context) {
	events, err := h.uc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type decisionRequest struct {
	Approve        bool            `json:"approve"`
	ShippingRefund decimal.Decimal `json:"shipping_refund"`
	Comment        string          `json:"comment"`
}

func (h *ReturnHandler) ApproveOrReject(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	r, err := h.uc.ApproveOrReject(c.Request.Context(), &dto.ApproveOrRejectInput{
		ReturnID:       c.Param("id"),
		Approve:        req.Approve,
		ShippingRefund: req.ShippingRefund,
		Comment:        req.Comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func bindOptionalComment(c *gin.Context) (string, bool) {
	var req commentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			rest.BadRequest(c, err)
			return "", false
		}
	}
	return req.Comment, true
}

func (h *ReturnHandler) MarkInTransit(c *gin.Context) {
	comment, ok := bindOptionalComment(c)
	if !ok {
		return
	}

	r, err := h.uc.MarkInTransit(c.Request.Context(), &dto.MarkInTransitInput{
		ReturnID: c.Param("id"),
		Comment:  comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ReturnHandler) MarkReceived(c *gin.Context) {
	comment, ok := bindOptionalComment(c)
	if !ok {
		return
	}

	r, err := h.uc.MarkReceived(c.Request.Context(), &dto.MarkReceivedInput{
		ReturnID: c.Param("id"),
		Comment:  comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type inspectRequest struct {
	Condition       string `json:"condition" binding:"required"`
	RestockApproved bool   `json:"restock_approved"`
	Comment         string `json:"comment"`
}

func (h *ReturnHandler) InspectItem(c *gin.Context) {
	var req inspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	r, err := h.uc.InspectItem(c.Request.Context(), &dto.InspectItemInput{
		ReturnID:        c.Param("id"),
		ReturnItemID:    c.Param("item_id"),
		Condition:       model.ItemCondition(req.Condition),
		RestockApproved: req.RestockApproved,
		Comment:         req.Comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ReturnHandler) CompleteInspection(c *gin.Context) {
	comment, ok := bindOptionalComment(c)
	if !ok {
		return
	}

	r, err := h.uc.CompleteInspection(c.Request.Context(), &dto.CompleteInspectionInput{
		ReturnID: c.Param("id"),
		Comment:  comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type refundRequest struct {
	RefundMethod string `json:"refund_method" binding:"required"`
	Comment      string `json:"comment"`
}

func (h *ReturnHandler) ProcessRefund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	r, err := h.uc.ProcessRefund(c.Request.Context(), &dto.ProcessRefundInput{
		ReturnID:     c.Param("id"),
		RefundMethod: req.RefundMethod,
		Comment:      req.Comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ReturnHandler) Close(c *gin.Context) {
	comment, ok := bindOptionalComment(c)
	if !ok {
		return
	}

	r, err := h.uc.Close(c.Request.Context(), &dto.CloseReturnInput{
		ReturnID: c.Param("id"),
		Comment:  comment,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type cancelReturnRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *ReturnHandler) Cancel(c *gin.Context) {
	var req cancelReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rest.BadRequest(c, err)
		return
	}

	r, err := h.uc.Cancel(c.Request.Context(), &dto.CancelReturnInput{
		ReturnID: c.Param("id"),
		Reason:   req.Reason,
	})
	if err != nil {
		rest.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
