package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"billing-service/internal/clients"
	"billing-service/internal/models"
	"billing-service/internal/services"
)

// InvoiceHandler exposes the invoice lifecycle over HTTP
type InvoiceHandler struct {
	invoices           *services.InvoiceService
	notificationClient *clients.NotificationClient
	renderer           *services.DocumentRenderer
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices *services.InvoiceService, notificationClient *clients.NotificationClient, renderer *services.DocumentRenderer) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, notificationClient: notificationClient, renderer: renderer}
}

// CreateInvoice handles POST /invoices
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.invoices.CreateInvoice(c.Request.Context(), tenantID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{Success: true, Data: invoice})
}

// ListInvoices handles GET /invoices
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	tenantID := c.GetString("tenantId")
	page, limit := paginationParams(c)
	status := models.InvoiceStatus(c.Query("status"))

	invoices, total, err := h.invoices.ListInvoices(c.Request.Context(), tenantID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success:    true,
		Data:       invoices,
		Pagination: models.NewPaginationInfo(page, limit, total),
	})
}

// GetInvoice handles GET /invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.invoices.GetInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: invoice})
}

// DownloadInvoicePDF handles GET /invoices/:id/pdf
func (h *InvoiceHandler) DownloadInvoicePDF(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.invoices.GetInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := h.renderer.RenderInvoicePDF(invoice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, invoice.Number))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// UpdateInvoice handles PATCH /invoices/:id
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.invoices.UpdateInvoice(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: invoice})
}

// DeleteInvoice handles DELETE /invoices/:id
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	if err := h.invoices.DeleteInvoice(c.Request.Context(), tenantID, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "Invoice deleted"})
}

// SendInvoice handles POST /invoices/:id/send
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.invoices.SendInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notificationClient.NotifyInvoiceSent(tenantID, invoice)

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: invoice})
}

// MarkInvoiceViewed handles PATCH /invoices/:id/view
func (h *InvoiceHandler) MarkInvoiceViewed(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.invoices.MarkInvoiceViewed(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: invoice})
}

// VoidInvoice handles POST /invoices/:id/void
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.invoices.VoidInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: invoice})
}

// GetInvoiceBalance handles GET /invoices/:id/balance
func (h *InvoiceHandler) GetInvoiceBalance(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	balance, err := h.invoices.GetInvoiceBalance(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: balance})
}
