package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"billing-service/internal/models"
	"billing-service/internal/services"
)

// PaymentHandler exposes the payment ledger over HTTP
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RecordPayment handles POST /payments
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenantID := c.GetString("tenantId")
	payment, err := h.payments.RecordPayment(c.Request.Context(), tenantID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{Success: true, Data: payment})
}

// ListPayments handles GET /payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	tenantID := c.GetString("tenantId")
	page, limit := paginationParams(c)
	status := models.PaymentStatus(c.Query("status"))

	payments, total, err := h.payments.ListPayments(c.Request.Context(), tenantID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success:    true,
		Data:       payments,
		Pagination: models.NewPaginationInfo(page, limit, total),
	})
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	payment, err := h.payments.GetPayment(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: payment})
}

// ConfirmPayment handles POST /payments/:id/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.ConfirmPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	tenantID := c.GetString("tenantId")
	payment, err := h.payments.ConfirmPayment(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: payment})
}

// RefundPayment handles POST /payments/:id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.RefundPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	tenantID := c.GetString("tenantId")
	refund, err := h.payments.RefundPayment(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: refund})
}
