package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierweb/billing-core/internal/lifecycle"
	"github.com/atelierweb/billing-core/internal/model"
	"github.com/atelierweb/billing-core/internal/repository"
	"github.com/atelierweb/billing-core/internal/totals"
)

func newInvoiceService(f *fixture, policy totals.Policy) *InvoiceService {
	return NewInvoiceService(f.invoices, f.alloc, 30, policy)
}

func TestInvoiceCreateStandalone(t *testing.T) {
	f := newFixture()
	svc := newInvoiceService(f, totals.Policy{DiscountAffectsTVA: true})
	ctx := context.Background()

	invoice, err := svc.Create(ctx, CreateInvoiceInput{
		ClientID: uuid.New(),
		Items:    []LineInput{line("Consulting", "1", "200.00", "20.00")},
		Discount: model.MustMoney("50.00"),
	})
	require.NoError(t, err)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("FAC-%d-0001", year), invoice.Number)
	assert.Equal(t, model.InvoiceStatusDraft, invoice.Status)
	assert.Equal(t, invoice.IssueDate.AddDate(0, 0, 30), invoice.DueDate)
	assert.Nil(t, invoice.QuoteID)

	assert.Equal(t, "150.00", invoice.TotalHT.String())
	assert.Equal(t, "30.00", invoice.TotalTVA.String())
	assert.Equal(t, "180.00", invoice.TotalTTC.String())
	assert.True(t, invoice.Amount().Equal(invoice.TotalTTC))
}

func TestInvoiceCreateRejectsNegativeDiscount(t *testing.T) {
	f := newFixture()
	svc := newInvoiceService(f, totals.Policy{})

	_, err := svc.Create(context.Background(), CreateInvoiceInput{
		ClientID: uuid.New(),
		Discount: model.MustMoney("-1.00"),
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInvoiceSequenceIndependentOfQuotes(t *testing.T) {
	f := newFixture()
	quoteSvc := newQuoteService(f)
	invoiceSvc := newInvoiceService(f, totals.Policy{})
	ctx := context.Background()

	_, err := quoteSvc.Create(ctx, CreateQuoteInput{ClientID: uuid.New()})
	require.NoError(t, err)

	invoice, err := invoiceSvc.Create(ctx, CreateInvoiceInput{ClientID: uuid.New()})
	require.NoError(t, err)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("FAC-%d-0001", year), invoice.Number)
}

func TestInvoiceSetStatusFollowsLifecycle(t *testing.T) {
	f := newFixture()
	svc := newInvoiceService(f, totals.Policy{})
	ctx := context.Background()

	invoice, err := svc.Create(ctx, CreateInvoiceInput{ClientID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, invoice.ID, model.InvoiceStatusSent)
	require.NoError(t, err)
	updated, err := svc.SetStatus(ctx, invoice.ID, model.InvoiceStatusPartial)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPartial, updated.Status)

	_, err = svc.SetStatus(ctx, invoice.ID, model.InvoiceStatusDraft)
	var illegal *lifecycle.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	stored, err := svc.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPartial, stored.Status)
}

func TestInvoiceSetDiscountRecomputesTotals(t *testing.T) {
	f := newFixture()
	svc := newInvoiceService(f, totals.Policy{DiscountAffectsTVA: false})
	ctx := context.Background()

	invoice, err := svc.Create(ctx, CreateInvoiceInput{
		ClientID: uuid.New(),
		Items:    []LineInput{line("Consulting", "1", "200.00", "20.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, "240.00", invoice.TotalTTC.String())

	updated, err := svc.SetDiscount(ctx, invoice.ID, model.MustMoney("50.00"))
	require.NoError(t, err)
	assert.Equal(t, "150.00", updated.TotalHT.String())
	assert.Equal(t, "40.00", updated.TotalTVA.String())
	assert.Equal(t, "190.00", updated.TotalTTC.String())

	stored, err := svc.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", stored.Discount.String())
	assert.Equal(t, "190.00", stored.TotalTTC.String())
}

func TestInvoiceSetDiscountDraftOnly(t *testing.T) {
	f := newFixture()
	svc := newInvoiceService(f, totals.Policy{})
	ctx := context.Background()

	invoice, err := svc.Create(ctx, CreateInvoiceInput{ClientID: uuid.New()})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, invoice.ID, model.InvoiceStatusSent)
	require.NoError(t, err)

	_, err = svc.SetDiscount(ctx, invoice.ID, model.MustMoney("10.00"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInvoiceListFilters(t *testing.T) {
	f := newFixture()
	svc := newInvoiceService(f, totals.Policy{})
	ctx := context.Background()

	clientID := uuid.New()
	first, err := svc.Create(ctx, CreateInvoiceInput{ClientID: clientID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInvoiceInput{ClientID: uuid.New()})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, first.ID, model.InvoiceStatusSent)
	require.NoError(t, err)

	byClient, err := svc.List(ctx, repository.InvoiceFilter{ClientID: clientID})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, first.ID, byClient[0].ID)

	sent, err := svc.List(ctx, repository.InvoiceFilter{Status: model.InvoiceStatusSent})
	require.NoError(t, err)
	require.Len(t, sent, 1)

	none, err := svc.List(ctx, repository.InvoiceFilter{Year: 1999})
	require.NoError(t, err)
	assert.Empty(t, none)
}
