package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"billing-service/internal/clients"
	"billing-service/internal/models"
	"billing-service/internal/services"
)

// QuoteHandler exposes the quote lifecycle over HTTP
type QuoteHandler struct {
	quotes             *services.QuoteService
	notificationClient *clients.NotificationClient
	renderer           *services.DocumentRenderer
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quotes *services.QuoteService, notificationClient *clients.NotificationClient, renderer *services.DocumentRenderer) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, notificationClient: notificationClient, renderer: renderer}
}

// CreateQuote handles POST /quotes
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req models.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.CreateQuote(c.Request.Context(), tenantID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{Success: true, Data: quote})
}

// ListQuotes handles GET /quotes
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	tenantID := c.GetString("tenantId")
	page, limit := paginationParams(c)
	status := models.QuoteStatus(c.Query("status"))

	quotes, total, err := h.quotes.ListQuotes(c.Request.Context(), tenantID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success:    true,
		Data:       quotes,
		Pagination: models.NewPaginationInfo(page, limit, total),
	})
}

// GetQuote handles GET /quotes/:id
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.GetQuote(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: quote})
}

// DownloadQuotePDF handles GET /quotes/:id/pdf
func (h *QuoteHandler) DownloadQuotePDF(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.GetQuote(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := h.renderer.RenderQuotePDF(quote)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, quote.Number))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// UpdateQuote handles PATCH /quotes/:id
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.UpdateQuote(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: quote})
}

// DeleteQuote handles DELETE /quotes/:id
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	if err := h.quotes.DeleteQuote(c.Request.Context(), tenantID, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "Quote deleted"})
}

// SendQuote handles POST /quotes/:id/send
func (h *QuoteHandler) SendQuote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.SendQuote(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notificationClient.NotifyQuoteSent(tenantID, quote)

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: quote})
}

// MarkQuoteViewed handles PATCH /quotes/:id/view
func (h *QuoteHandler) MarkQuoteViewed(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.MarkQuoteViewed(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: quote})
}

// AcceptQuote handles POST /quotes/:id/accept
func (h *QuoteHandler) AcceptQuote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.AcceptQuote(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: quote})
}

// DeclineQuote handles POST /quotes/:id/decline
func (h *QuoteHandler) DeclineQuote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.DeclineQuoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	tenantID := c.GetString("tenantId")
	quote, err := h.quotes.DeclineQuote(c.Request.Context(), tenantID, id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: quote})
}

// ConvertQuote handles POST /quotes/:id/convert
func (h *QuoteHandler) ConvertQuote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.ConvertQuoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	tenantID := c.GetString("tenantId")
	invoice, err := h.quotes.ConvertQuoteToInvoice(c.Request.Context(), tenantID, id, req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{Success: true, Data: invoice})
}
