package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/atelierweb/billing-core/internal/export"
	"github.com/atelierweb/billing-core/internal/http/middleware"
	"github.com/atelierweb/billing-core/internal/lifecycle"
	"github.com/atelierweb/billing-core/internal/model"
	"github.com/atelierweb/billing-core/internal/numbering"
	"github.com/atelierweb/billing-core/internal/repository"
	"github.com/atelierweb/billing-core/internal/service"
)

type Handler struct {
	quotes     *service.QuoteService
	invoices   *service.InvoiceService
	conversion *service.ConversionService
	register   *export.Generator
	log        zerolog.Logger
}

func NewHandler(
	quotes *service.QuoteService,
	invoices *service.InvoiceService,
	conversion *service.ConversionService,
	register *export.Generator,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		quotes:     quotes,
		invoices:   invoices,
		conversion: conversion,
		register:   register,
		log:        log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/quotes", h.createQuote)
	protected.GET("/quotes/:id", h.getQuote)
	protected.DELETE("/quotes/:id", h.deleteQuote)
	protected.POST("/quotes/:id/items", h.addQuoteItem)
	protected.DELETE("/quotes/:id/items/:itemID", h.removeQuoteItem)
	protected.POST("/quotes/:id/status", h.setQuoteStatus)
	protected.POST("/quotes/:id/convert", h.convertQuote)

	protected.POST("/invoices", h.createInvoice)
	protected.GET("/invoices/:id", h.getInvoice)
	protected.POST("/invoices/:id/status", h.setInvoiceStatus)
	protected.POST("/invoices/:id/discount", h.setInvoiceDiscount)
	protected.GET("/invoices/export", h.exportInvoices)
}

type lineRequest struct {
	ServiceRef  *string `json:"service_ref"`
	Description string  `json:"description" binding:"required"`
	Quantity    string  `json:"quantity" binding:"required"`
	UnitPrice   string  `json:"unit_price" binding:"required"`
	TaxRate     string  `json:"tax_rate" binding:"required"`
}

type createQuoteRequest struct {
	ClientID   string        `json:"client_id" binding:"required"`
	IssueDate  string        `json:"issue_date"`
	ValidUntil string        `json:"valid_until"`
	Items      []lineRequest `json:"items"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type discountRequest struct {
	Discount string `json:"discount" binding:"required"`
}

type createInvoiceRequest struct {
	ClientID  string        `json:"client_id" binding:"required"`
	IssueDate string        `json:"issue_date"`
	DueDate   string        `json:"due_date"`
	Discount  string        `json:"discount"`
	Items     []lineRequest `json:"items"`
}

func (h *Handler) createQuote(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientID, err := uuid.Parse(strings.TrimSpace(req.ClientID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
		return
	}
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid issue_date"})
		return
	}
	validUntil, err := parseOptionalDate(req.ValidUntil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid valid_until"})
		return
	}
	items, err := parseLines(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.quotes.Create(c.Request.Context(), service.CreateQuoteInput{
		ClientID:   clientID,
		IssueDate:  issueDate,
		ValidUntil: validUntil,
		Items:      items,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

func (h *Handler) getQuote(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	quote, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) deleteQuote(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.quotes.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addQuoteItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := parseLines([]lineRequest{req})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.quotes.AddLine(c.Request.Context(), id, items[0])
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) removeQuoteItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemID")
	if !ok {
		return
	}

	quote, err := h.quotes.RemoveLine(c.Request.Context(), id, itemID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) setQuoteStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := lifecycle.ParseQuoteStatus(strings.TrimSpace(req.Status))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	quote, err := h.quotes.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// convertQuote returns the new invoice; sending it to the client or
// rendering a PDF is the caller's concern, not this service's.
func (h *Handler) convertQuote(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.conversion.Convert(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) createInvoice(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientID, err := uuid.Parse(strings.TrimSpace(req.ClientID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
		return
	}
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid issue_date"})
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
		return
	}
	discount := model.ZeroMoney
	if strings.TrimSpace(req.Discount) != "" {
		discount, err = model.MoneyFromString(req.Discount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount"})
			return
		}
	}
	items, err := parseLines(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := h.invoices.Create(c.Request.Context(), service.CreateInvoiceInput{
		ClientID:  clientID,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Discount:  discount,
		Items:     items,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) setInvoiceStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := lifecycle.ParseInvoiceStatus(strings.TrimSpace(req.Status))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	invoice, err := h.invoices.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) setInvoiceDiscount(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	discount, err := model.MoneyFromString(req.Discount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount"})
		return
	}

	invoice, err := h.invoices.SetDiscount(c.Request.Context(), id, discount)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) exportInvoices(c *gin.Context) {
	filter := repository.InvoiceFilter{}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		filter.Year = year
	}
	if raw := c.Query("status"); raw != "" {
		status, err := lifecycle.ParseInvoiceStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		filter.Status = status
	}

	invoices, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	content, err := h.register.Generate(invoices, filter.Year)
	if err != nil {
		h.handleError(c, err)
		return
	}

	fileName := export.FileName(filter.Year)
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

func (h *Handler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var illegal *lifecycle.IllegalTransitionError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &illegal):
		c.JSON(http.StatusConflict, gin.H{"error": illegal.Error()})
	case errors.Is(err, service.ErrQuoteNotAccepted),
		errors.Is(err, service.ErrQuoteAlreadyInvoiced):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, numbering.ErrAllocationExhausted):
		// Transient: the caller may retry the whole operation later.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseLines(lines []lineRequest) ([]service.LineInput, error) {
	result := make([]service.LineInput, 0, len(lines))
	for _, line := range lines {
		quantity, err := decimal.NewFromString(strings.TrimSpace(line.Quantity))
		if err != nil {
			return nil, errors.New("invalid quantity")
		}
		unitPrice, err := model.MoneyFromString(strings.TrimSpace(line.UnitPrice))
		if err != nil {
			return nil, errors.New("invalid unit_price")
		}
		taxRate, err := decimal.NewFromString(strings.TrimSpace(line.TaxRate))
		if err != nil {
			return nil, errors.New("invalid tax_rate")
		}
		result = append(result, service.LineInput{
			ServiceRef:  line.ServiceRef,
			Description: line.Description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TaxRate:     taxRate,
		})
	}
	return result, nil
}

func parseOptionalDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid date")
}
