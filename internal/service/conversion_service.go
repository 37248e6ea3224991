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

// ConversionService turns an accepted quote into a new invoice. The
// whole conversion runs as one transaction: precondition re-checks,
// number allocation, line cloning, totals, and the quote's transition to
// invoiced either all commit or all roll back.
type ConversionService struct {
	quotes   repository.QuoteRepository
	invoices repository.InvoiceRepository
	alloc    *numbering.Allocator
	dueDays  int
	policy   totals.Policy
}

func NewConversionService(
	quotes repository.QuoteRepository,
	invoices repository.InvoiceRepository,
	alloc *numbering.Allocator,
	dueDays int,
	policy totals.Policy,
) *ConversionService {
	if dueDays <= 0 {
		dueDays = 30
	}
	return &ConversionService{quotes: quotes, invoices: invoices, alloc: alloc, dueDays: dueDays, policy: policy}
}

// Convert triggers no email or PDF side effects; it returns the new
// invoice and the caller owns any notification or rendering.
//
// Idempotence under races: two concurrent conversions of the same quote
// both pass the in-tx existence check only until one commits; the loser
// then hits the unique index on invoices.quote_id, which is classified
// as "already invoiced" rather than retried.
func (s *ConversionService) Convert(ctx context.Context, quoteID uuid.UUID) (*model.Invoice, error) {
	var invoice *model.Invoice

	attempt := func(ctx context.Context) error {
		return runTx(ctx, s.quotes.DB(), func(tx *gorm.DB) error {
			quote, err := s.quotes.FindByIDTx(ctx, tx, quoteID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}

			// Preconditions re-checked inside the transaction. The
			// existence check runs first so converting an already
			// invoiced quote reports that, not a status mismatch.
			exists, err := s.invoices.ExistsForQuote(ctx, tx, quoteID)
			if err != nil {
				return err
			}
			if exists {
				return ErrQuoteAlreadyInvoiced
			}
			if quote.Status != model.QuoteStatusAccepted {
				return ErrQuoteNotAccepted
			}

			issueDate := dateOnly(time.Now().UTC())
			number, err := s.alloc.Next(ctx, tx, numbering.KindInvoice, issueDate.Year())
			if err != nil {
				return err
			}

			inv := &model.Invoice{
				ID:        uuid.New(),
				Number:    number,
				QuoteID:   &quote.ID,
				ClientID:  quote.ClientID,
				Status:    model.InvoiceStatusDraft,
				IssueDate: issueDate,
				DueDate:   issueDate.AddDate(0, 0, s.dueDays),
				Discount:  model.ZeroMoney,
			}

			// Line items cloned by value; the service reference is
			// copied, never re-derived from current prices.
			for i, item := range quote.Items {
				inv.Items = append(inv.Items, model.InvoiceItem{
					ID:          uuid.New(),
					InvoiceID:   inv.ID,
					ServiceRef:  item.ServiceRef,
					Description: item.Description,
					Quantity:    item.Quantity,
					UnitPrice:   item.UnitPrice,
					TaxRate:     item.TaxRate,
					Position:    i,
				})
			}

			result := totals.Compute(inv.Items, model.ZeroMoney, s.policy)
			inv.TotalHT = result.TotalHT
			inv.TotalTVA = result.TotalTVA
			inv.TotalTTC = result.TotalTTC

			if err := lifecycle.TransitionQuote(quote, model.QuoteStatusInvoiced); err != nil {
				return err
			}
			if err := s.invoices.Create(ctx, tx, inv); err != nil {
				return err
			}
			if err := s.quotes.UpdateStatus(ctx, tx, quote.ID, model.QuoteStatusInvoiced); err != nil {
				return err
			}

			invoice = inv
			return nil
		})
	}

	var lastErr error
	for i := 0; i < s.alloc.MaxRetries; i++ {
		err := attempt(ctx)
		if err == nil {
			return invoice, nil
		}
		if isBusinessError(err) {
			return nil, err
		}
		if !numbering.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
		}

		// A duplicate key here is either the invoice-number index
		// (a lost allocation race, worth retrying) or the unique
		// quote back-reference (a concurrent conversion won).
		exists, checkErr := s.invoices.ExistsForQuote(ctx, s.invoices.DB(), quoteID)
		if checkErr == nil && exists {
			return nil, ErrQuoteAlreadyInvoiced
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", numbering.ErrAllocationExhausted, lastErr)
}

func isBusinessError(err error) bool {
	var illegal *lifecycle.IllegalTransitionError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuoteNotAccepted) ||
		errors.Is(err, ErrQuoteAlreadyInvoiced) ||
		errors.Is(err, numbering.ErrWidthOverflow) ||
		errors.As(err, &illegal)
}
