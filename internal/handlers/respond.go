package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billing-service/internal/models"
)

// guardStatus maps each domain guard error to its HTTP status and code string.
// Validation failures are 400s; missing rows are 404s; every lifecycle guard
// is a 409 because the request was well-formed but the document's current
// state forbids it.
var guardStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{models.ErrMissingTarget, http.StatusBadRequest, "MISSING_TARGET"},
	{models.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{models.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{models.ErrImmutableDocument, http.StatusConflict, "IMMUTABLE_DOCUMENT"},
	{models.ErrLedgerLocked, http.StatusConflict, "LEDGER_LOCKED"},
	{models.ErrAlreadyConverted, http.StatusConflict, "ALREADY_CONVERTED"},
	{models.ErrHasActivePayments, http.StatusConflict, "HAS_ACTIVE_PAYMENTS"},
	{models.ErrInvoiceVoided, http.StatusConflict, "INVOICE_VOIDED"},
	{models.ErrExceedsRefundable, http.StatusConflict, "EXCEEDS_REFUNDABLE"},
	{models.ErrExpiredDocument, http.StatusConflict, "EXPIRED_DOCUMENT"},
	{models.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENCY_CONFLICT"},
}

// respondError translates a service error into the response envelope
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: validationErr.Message,
				Field:   validationErr.Field,
			},
		})
		return
	}

	for _, g := range guardStatus {
		if errors.Is(err, g.err) {
			c.JSON(g.status, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    g.code,
					Message: err.Error(),
				},
			})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred",
		},
	})
}

// respondBindError reports a malformed or invalid request body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

// parseIDParam parses the :id path parameter as a UUID
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "id must be a valid UUID",
				Field:   "id",
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

// paginationParams reads page/limit query parameters with the list defaults
func paginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
