package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierweb/billing-core/internal/lifecycle"
	"github.com/atelierweb/billing-core/internal/model"
	"github.com/atelierweb/billing-core/internal/numbering"
	"github.com/atelierweb/billing-core/internal/repository"
	"github.com/atelierweb/billing-core/internal/totals"
)

type CreateInvoiceInput struct {
	ClientID  uuid.UUID
	IssueDate time.Time
	DueDate   time.Time
	Discount  model.Money
	Items     []LineInput
}

type InvoiceService struct {
	invoices repository.InvoiceRepository
	alloc    *numbering.Allocator
	dueDays  int
	policy   totals.Policy
}

func NewInvoiceService(invoices repository.InvoiceRepository, alloc *numbering.Allocator, dueDays int, policy totals.Policy) *InvoiceService {
	if dueDays <= 0 {
		dueDays = 30
	}
	return &InvoiceService{invoices: invoices, alloc: alloc, dueDays: dueDays, policy: policy}
}

// Create persists a standalone invoice (no originating quote) with an
// allocated number and computed totals.
func (s *InvoiceService) Create(ctx context.Context, input CreateInvoiceInput) (*model.Invoice, error) {
	if input.ClientID == uuid.Nil {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}
	if input.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount must be >= 0", ErrInvalidInput)
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		ID:        uuid.New(),
		ClientID:  input.ClientID,
		Status:    model.InvoiceStatusDraft,
		IssueDate: dateOnly(input.IssueDate),
		DueDate:   dateOnly(input.DueDate),
		Discount:  input.Discount,
	}
	if invoice.IssueDate.IsZero() {
		invoice.IssueDate = dateOnly(time.Now().UTC())
	}
	if invoice.DueDate.IsZero() {
		invoice.DueDate = invoice.IssueDate.AddDate(0, 0, s.dueDays)
	}

	for i, line := range input.Items {
		invoice.Items = append(invoice.Items, model.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   invoice.ID,
			ServiceRef:  line.ServiceRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
			Position:    i,
		})
	}

	result := totals.Compute(invoice.Items, invoice.Discount, s.policy)
	invoice.TotalHT = result.TotalHT
	invoice.TotalTVA = result.TotalTVA
	invoice.TotalTTC = result.TotalTTC

	year := invoice.IssueDate.Year()
	err := s.alloc.WithRetry(ctx, func(ctx context.Context) error {
		return runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
			number, err := s.alloc.Next(ctx, tx, numbering.KindInvoice, year)
			if err != nil {
				return err
			}
			invoice.Number = number
			return s.invoices.Create(ctx, tx, invoice)
		})
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

// SetStatus applies a state-machine transition and persists it.
func (s *InvoiceService) SetStatus(ctx context.Context, id uuid.UUID, to model.InvoiceStatus) (*model.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.TransitionInvoice(invoice, to); err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateStatus(ctx, s.invoices.DB(), id, to); err != nil {
		return nil, err
	}
	return invoice, nil
}

// SetDiscount replaces the document-level flat discount and recomputes
// the cached totals in one transaction. Draft invoices only.
func (s *InvoiceService) SetDiscount(ctx context.Context, id uuid.UUID, discount model.Money) (*model.Invoice, error) {
	if discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount must be >= 0", ErrInvalidInput)
	}

	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != model.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be modified", ErrInvalidInput)
	}

	result := totals.Compute(invoice.Items, discount, s.policy)
	err = runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		return s.invoices.UpdateDiscountAndTotals(ctx, tx, id, discount,
			result.TotalHT, result.TotalTVA, result.TotalTTC)
	})
	if err != nil {
		return nil, err
	}

	invoice.Discount = discount
	invoice.TotalHT = result.TotalHT
	invoice.TotalTVA = result.TotalTVA
	invoice.TotalTTC = result.TotalTTC
	return invoice, nil
}

func (s *InvoiceService) List(ctx context.Context, filter repository.InvoiceFilter) ([]model.Invoice, error) {
	return s.invoices.List(ctx, filter)
}
