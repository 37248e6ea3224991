package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/atelierweb/billing-core/internal/lifecycle"
	"github.com/atelierweb/billing-core/internal/model"
	"github.com/atelierweb/billing-core/internal/numbering"
	"github.com/atelierweb/billing-core/internal/repository"
	"github.com/atelierweb/billing-core/internal/totals"
)

// LineInput carries one billable line supplied by the caller.
type LineInput struct {
	ServiceRef  *string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   model.Money
	TaxRate     decimal.Decimal
}

type CreateQuoteInput struct {
	ClientID   uuid.UUID
	IssueDate  time.Time
	ValidUntil time.Time
	Items      []LineInput
}

type QuoteService struct {
	quotes       repository.QuoteRepository
	alloc        *numbering.Allocator
	validityDays int
	policy       totals.Policy
}

func NewQuoteService(quotes repository.QuoteRepository, alloc *numbering.Allocator, validityDays int, policy totals.Policy) *QuoteService {
	if validityDays <= 0 {
		validityDays = 30
	}
	return &QuoteService{quotes: quotes, alloc: alloc, validityDays: validityDays, policy: policy}
}

// Create builds a quote in draft, applies date defaults, computes totals
// and persists it with a freshly allocated number. Number assignment and
// defaulting are explicit steps here, not persistence hooks.
func (s *QuoteService) Create(ctx context.Context, input CreateQuoteInput) (*model.Quote, error) {
	if input.ClientID == uuid.Nil {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	quote := &model.Quote{
		ID:         uuid.New(),
		ClientID:   input.ClientID,
		Status:     model.QuoteStatusDraft,
		IssueDate:  dateOnly(input.IssueDate),
		ValidUntil: dateOnly(input.ValidUntil),
	}
	s.applyDefaults(quote)

	for i, line := range input.Items {
		quote.Items = append(quote.Items, model.QuoteItem{
			ID:          uuid.New(),
			QuoteID:     quote.ID,
			ServiceRef:  line.ServiceRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
			Position:    i,
		})
	}

	result := totals.Compute(quote.Items, model.ZeroMoney, s.policy)
	quote.TotalHT = result.TotalHT
	quote.TotalTVA = result.TotalTVA
	quote.TotalTTC = result.TotalTTC

	year := quote.IssueDate.Year()
	err := s.alloc.WithRetry(ctx, func(ctx context.Context) error {
		return runTx(ctx, s.quotes.DB(), func(tx *gorm.DB) error {
			number, err := s.alloc.Next(ctx, tx, numbering.KindQuote, year)
			if err != nil {
				return err
			}
			quote.Number = number
			return s.quotes.Create(ctx, tx, quote)
		})
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// applyDefaults fills the valid-until date: issue date + validity window
// when unset.
func (s *QuoteService) applyDefaults(q *model.Quote) {
	if q.IssueDate.IsZero() {
		q.IssueDate = dateOnly(time.Now().UTC())
	}
	if q.ValidUntil.IsZero() {
		q.ValidUntil = q.IssueDate.AddDate(0, 0, s.validityDays)
	}
}

func (s *QuoteService) Get(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	quote, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return quote, nil
}

// AddLine appends a line to a draft quote and recomputes the cached
// totals in the same transaction.
func (s *QuoteService) AddLine(ctx context.Context, quoteID uuid.UUID, input LineInput) (*model.Quote, error) {
	if err := validateLines([]LineInput{input}); err != nil {
		return nil, err
	}

	quote, err := s.Get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != model.QuoteStatusDraft {
		return nil, fmt.Errorf("%w: only draft quotes can be modified", ErrInvalidInput)
	}

	item := model.QuoteItem{
		ID:          uuid.New(),
		QuoteID:     quote.ID,
		ServiceRef:  input.ServiceRef,
		Description: input.Description,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		TaxRate:     input.TaxRate,
		Position:    len(quote.Items),
	}

	err = runTx(ctx, s.quotes.DB(), func(tx *gorm.DB) error {
		if err := s.quotes.AddItem(ctx, tx, &item); err != nil {
			return err
		}
		items := append(append([]model.QuoteItem{}, quote.Items...), item)
		result := totals.Compute(items, model.ZeroMoney, s.policy)
		return s.quotes.UpdateTotals(ctx, tx, quote.ID, result.TotalHT, result.TotalTVA, result.TotalTTC)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, quoteID)
}

// RemoveLine deletes a line from a draft quote and recomputes totals.
func (s *QuoteService) RemoveLine(ctx context.Context, quoteID, itemID uuid.UUID) (*model.Quote, error) {
	quote, err := s.Get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != model.QuoteStatusDraft {
		return nil, fmt.Errorf("%w: only draft quotes can be modified", ErrInvalidInput)
	}

	err = runTx(ctx, s.quotes.DB(), func(tx *gorm.DB) error {
		if err := s.quotes.DeleteItem(ctx, tx, quoteID, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		remaining := make([]model.QuoteItem, 0, len(quote.Items))
		for _, item := range quote.Items {
			if item.ID != itemID {
				remaining = append(remaining, item)
			}
		}
		result := totals.Compute(remaining, model.ZeroMoney, s.policy)
		return s.quotes.UpdateTotals(ctx, tx, quote.ID, result.TotalHT, result.TotalTVA, result.TotalTTC)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, quoteID)
}

// SetStatus applies a state-machine transition and persists it. The
// invoiced status is reserved for the conversion service, which creates
// the invoice in the same transaction.
func (s *QuoteService) SetStatus(ctx context.Context, id uuid.UUID, to model.QuoteStatus) (*model.Quote, error) {
	if to == model.QuoteStatusInvoiced {
		return nil, fmt.Errorf("%w: status %q is set by quote conversion", ErrInvalidInput, to)
	}

	quote, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.TransitionQuote(quote, to); err != nil {
		return nil, err
	}
	if err := s.quotes.UpdateStatus(ctx, s.quotes.DB(), id, to); err != nil {
		return nil, err
	}
	return quote, nil
}

// Delete removes the quote and cascades its line items.
func (s *QuoteService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.quotes.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func validateLines(lines []LineInput) error {
	for _, line := range lines {
		if line.Description == "" {
			return fmt.Errorf("%w: line description is required", ErrInvalidInput)
		}
		if line.Quantity.IsNegative() {
			return fmt.Errorf("%w: quantity must be >= 0", ErrInvalidInput)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: unit price must be >= 0", ErrInvalidInput)
		}
		if line.TaxRate.IsNegative() {
			return fmt.Errorf("%w: tax rate must be >= 0", ErrInvalidInput)
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
