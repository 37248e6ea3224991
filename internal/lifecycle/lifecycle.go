// Package lifecycle holds the closed transition tables for quote and
// invoice statuses. Every status change in the engine goes through
// Transition; nothing else mutates a document's status.
package lifecycle

import (
	"fmt"

	"github.com/atelierweb/billing-core/internal/model"
)

// IllegalTransitionError names the offending from/to pair. It is raised
// synchronously, before any totals recomputation or side effect.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %q to %q", e.From, e.To)
}

// quoteTransitions: draft -> sent -> accepted -> invoiced, with
// draft/sent -> rejected. rejected and invoiced are terminal.
var quoteTransitions = map[model.QuoteStatus][]model.QuoteStatus{
	model.QuoteStatusDraft:    {model.QuoteStatusSent, model.QuoteStatusRejected},
	model.QuoteStatusSent:     {model.QuoteStatusAccepted, model.QuoteStatusRejected},
	model.QuoteStatusAccepted: {model.QuoteStatusInvoiced},
	model.QuoteStatusRejected: {},
	model.QuoteStatusInvoiced: {},
}

// invoiceTransitions: draft -> sent -> {paid | partial | overdue};
// partial/overdue -> paid. paid is terminal, and partial and overdue
// never move into each other.
var invoiceTransitions = map[model.InvoiceStatus][]model.InvoiceStatus{
	model.InvoiceStatusDraft:   {model.InvoiceStatusSent},
	model.InvoiceStatusSent:    {model.InvoiceStatusPaid, model.InvoiceStatusPartial, model.InvoiceStatusOverdue},
	model.InvoiceStatusPartial: {model.InvoiceStatusPaid},
	model.InvoiceStatusOverdue: {model.InvoiceStatusPaid},
	model.InvoiceStatusPaid:    {},
}

func CanTransitionQuote(from, to model.QuoteStatus) bool {
	for _, allowed := range quoteTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func CanTransitionInvoice(from, to model.InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionQuote applies the status change on the in-memory document.
// The caller persists the result.
func TransitionQuote(q *model.Quote, to model.QuoteStatus) error {
	if !CanTransitionQuote(q.Status, to) {
		return &IllegalTransitionError{From: string(q.Status), To: string(to)}
	}
	q.Status = to
	return nil
}

func TransitionInvoice(inv *model.Invoice, to model.InvoiceStatus) error {
	if !CanTransitionInvoice(inv.Status, to) {
		return &IllegalTransitionError{From: string(inv.Status), To: string(to)}
	}
	inv.Status = to
	return nil
}

// ParseQuoteStatus validates an externally supplied status string.
func ParseQuoteStatus(raw string) (model.QuoteStatus, error) {
	status := model.QuoteStatus(raw)
	if _, ok := quoteTransitions[status]; !ok {
		return "", fmt.Errorf("unknown quote status %q", raw)
	}
	return status, nil
}

func ParseInvoiceStatus(raw string) (model.InvoiceStatus, error) {
	status := model.InvoiceStatus(raw)
	if _, ok := invoiceTransitions[status]; !ok {
		return "", fmt.Errorf("unknown invoice status %q", raw)
	}
	return status, nil
}
