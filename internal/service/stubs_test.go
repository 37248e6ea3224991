package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierweb/billing-core/internal/model"
	"github.com/atelierweb/billing-core/internal/numbering"
	"github.com/atelierweb/billing-core/internal/repository"
)

// In-memory repositories for service tests. DB() returns nil, which makes
// runTx invoke the callback without a real transaction; the sqlite-backed
// tests cover transactional behavior.

type memQuoteRepo struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]*model.Quote

	createErr       error
	updateStatusErr error
}

var _ repository.QuoteRepository = (*memQuoteRepo)(nil)

func newMemQuoteRepo() *memQuoteRepo {
	return &memQuoteRepo{quotes: make(map[uuid.UUID]*model.Quote)}
}

func (r *memQuoteRepo) DB() *gorm.DB { return nil }

func (r *memQuoteRepo) Create(_ context.Context, _ *gorm.DB, q *model.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.quotes {
		if existing.Number == q.Number {
			return gorm.ErrDuplicatedKey
		}
	}
	clone := *q
	clone.Items = append([]model.QuoteItem(nil), q.Items...)
	r.quotes[q.ID] = &clone
	return nil
}

func (r *memQuoteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	return r.FindByIDTx(ctx, nil, id)
}

func (r *memQuoteRepo) FindByIDTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *q
	clone.Items = append([]model.QuoteItem(nil), q.Items...)
	return &clone, nil
}

func (r *memQuoteRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, status model.QuoteStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	q, ok := r.quotes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Status = status
	return nil
}

func (r *memQuoteRepo) UpdateTotals(_ context.Context, _ *gorm.DB, id uuid.UUID, ht, tva, ttc model.Money) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.TotalHT, q.TotalTVA, q.TotalTTC = ht, tva, ttc
	return nil
}

func (r *memQuoteRepo) AddItem(_ context.Context, _ *gorm.DB, item *model.QuoteItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[item.QuoteID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Items = append(q.Items, *item)
	return nil
}

func (r *memQuoteRepo) DeleteItem(_ context.Context, _ *gorm.DB, quoteID, itemID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[quoteID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i, item := range q.Items {
		if item.ID == itemID {
			q.Items = append(q.Items[:i], q.Items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memQuoteRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quotes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.quotes, id)
	return nil
}

type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*model.Invoice

	createErr   error
	failCreates int    // next N creates fail with gorm.ErrDuplicatedKey
	onCreate    func() // runs inside Create, before any error; simulates concurrent writers
}

var _ repository.InvoiceRepository = (*memInvoiceRepo)(nil)

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (r *memInvoiceRepo) DB() *gorm.DB { return nil }

func (r *memInvoiceRepo) Create(_ context.Context, _ *gorm.DB, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onCreate != nil {
		r.onCreate()
	}
	if r.createErr != nil {
		return r.createErr
	}
	if r.failCreates > 0 {
		r.failCreates--
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range r.invoices {
		if existing.Number == inv.Number {
			return gorm.ErrDuplicatedKey
		}
		if existing.QuoteID != nil && inv.QuoteID != nil && *existing.QuoteID == *inv.QuoteID {
			return gorm.ErrDuplicatedKey
		}
	}
	clone := *inv
	clone.Items = append([]model.InvoiceItem(nil), inv.Items...)
	r.invoices[inv.ID] = &clone
	return nil
}

func (r *memInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByIDTx(ctx, nil, id)
}

func (r *memInvoiceRepo) FindByIDTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *inv
	clone.Items = append([]model.InvoiceItem(nil), inv.Items...)
	return &clone, nil
}

func (r *memInvoiceRepo) ExistsForQuote(_ context.Context, _ *gorm.DB, quoteID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.QuoteID != nil && *inv.QuoteID == quoteID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memInvoiceRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, status model.InvoiceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.Status = status
	return nil
}

func (r *memInvoiceRepo) UpdateDiscountAndTotals(_ context.Context, _ *gorm.DB, id uuid.UUID, discount, ht, tva, ttc model.Money) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.Discount = discount
	inv.TotalHT, inv.TotalTVA, inv.TotalTTC = ht, tva, ttc
	return nil
}

func (r *memInvoiceRepo) AddItem(_ context.Context, _ *gorm.DB, item *model.InvoiceItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[item.InvoiceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.Items = append(inv.Items, *item)
	return nil
}

func (r *memInvoiceRepo) DeleteItem(_ context.Context, _ *gorm.DB, invoiceID, itemID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i, item := range inv.Items {
		if item.ID == itemID {
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memInvoiceRepo) List(_ context.Context, filter repository.InvoiceFilter) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.Year != 0 && inv.IssueDate.Year() != filter.Year {
			continue
		}
		if filter.ClientID != uuid.Nil && inv.ClientID != filter.ClientID {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

// memScanner derives existing numbers from the in-memory repositories, the
// same way the real scanner reads the document tables.
type memScanner struct {
	quotes   *memQuoteRepo
	invoices *memInvoiceRepo
}

var _ numbering.NumberScanner = (*memScanner)(nil)

func (s *memScanner) NumbersWithPrefix(_ context.Context, _ *gorm.DB, kind numbering.Kind, prefix string) ([]string, error) {
	var numbers []string
	switch kind {
	case numbering.KindQuote:
		s.quotes.mu.Lock()
		defer s.quotes.mu.Unlock()
		for _, q := range s.quotes.quotes {
			if strings.HasPrefix(q.Number, prefix) {
				numbers = append(numbers, q.Number)
			}
		}
	case numbering.KindInvoice:
		s.invoices.mu.Lock()
		defer s.invoices.mu.Unlock()
		for _, inv := range s.invoices.invoices {
			if strings.HasPrefix(inv.Number, prefix) {
				numbers = append(numbers, inv.Number)
			}
		}
	}
	return numbers, nil
}

type fixture struct {
	quotes   *memQuoteRepo
	invoices *memInvoiceRepo
	alloc    *numbering.Allocator
}

func newFixture() *fixture {
	quotes := newMemQuoteRepo()
	invoices := newMemInvoiceRepo()
	alloc := numbering.NewAllocator(&memScanner{quotes: quotes, invoices: invoices}, map[numbering.Kind]numbering.KindConfig{
		numbering.KindQuote:   {Prefix: "DEV", Width: 3},
		numbering.KindInvoice: {Prefix: "FAC", Width: 4},
	}, 5)
	return &fixture{quotes: quotes, invoices: invoices, alloc: alloc}
}
