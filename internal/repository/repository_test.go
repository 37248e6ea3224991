package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/atelierweb/billing-core/internal/model"
	"github.com/atelierweb/billing-core/internal/numbering"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billing.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Client{},
		&model.Quote{},
		&model.QuoteItem{},
		&model.Invoice{},
		&model.InvoiceItem{},
	))
	return db
}

func testQuote(number string) *model.Quote {
	return &model.Quote{
		ID:        uuid.New(),
		Number:    number,
		ClientID:  uuid.New(),
		Status:    model.QuoteStatusDraft,
		IssueDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testInvoice(number string, quoteID *uuid.UUID) *model.Invoice {
	return &model.Invoice{
		ID:        uuid.New(),
		Number:    number,
		QuoteID:   quoteID,
		ClientID:  uuid.New(),
		Status:    model.InvoiceStatusDraft,
		IssueDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestQuoteNumberUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, db, testQuote("DEV-2025-001")))

	err := repo.Create(ctx, db, testQuote("DEV-2025-001"))
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestInvoiceQuoteBackReferenceUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	quoteID := uuid.New()
	require.NoError(t, repo.Create(ctx, db, testInvoice("FAC-2025-0001", &quoteID)))

	err := repo.Create(ctx, db, testInvoice("FAC-2025-0002", &quoteID))
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Standalone invoices carry no back-reference; any number of them
	// may coexist.
	require.NoError(t, repo.Create(ctx, db, testInvoice("FAC-2025-0003", nil)))
	require.NoError(t, repo.Create(ctx, db, testInvoice("FAC-2025-0004", nil)))

	exists, err := repo.ExistsForQuote(ctx, db, quoteID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForQuote(ctx, db, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNumberScannerScopesByKindAndPrefix(t *testing.T) {
	db := newTestDB(t)
	quotes := NewQuoteRepository(db)
	invoices := NewInvoiceRepository(db)
	scanner := NewNumberScanner()
	ctx := context.Background()

	require.NoError(t, quotes.Create(ctx, db, testQuote("DEV-2025-001")))
	require.NoError(t, quotes.Create(ctx, db, testQuote("DEV-2025-002")))
	require.NoError(t, quotes.Create(ctx, db, testQuote("DEV-2024-009")))
	require.NoError(t, invoices.Create(ctx, db, testInvoice("FAC-2025-0001", nil)))

	numbers, err := scanner.NumbersWithPrefix(ctx, db, numbering.KindQuote, "DEV-2025-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"DEV-2025-001", "DEV-2025-002"}, numbers)

	numbers, err = scanner.NumbersWithPrefix(ctx, db, numbering.KindInvoice, "FAC-2025-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"FAC-2025-0001"}, numbers)

	_, err = scanner.NumbersWithPrefix(ctx, db, numbering.Kind("report"), "X-")
	require.Error(t, err)
}

func TestQuoteFindByIDOrdersItemsByPosition(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	quote := testQuote("DEV-2025-001")
	quote.Items = []model.QuoteItem{
		{ID: uuid.New(), QuoteID: quote.ID, Description: "Second", Quantity: decimal.NewFromInt(1), UnitPrice: model.MustMoney("10.00"), TaxRate: decimal.Zero, Position: 1},
		{ID: uuid.New(), QuoteID: quote.ID, Description: "First", Quantity: decimal.NewFromInt(1), UnitPrice: model.MustMoney("10.00"), TaxRate: decimal.Zero, Position: 0},
	}
	require.NoError(t, repo.Create(ctx, db, quote))

	found, err := repo.FindByID(ctx, quote.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "First", found.Items[0].Description)
	assert.Equal(t, "Second", found.Items[1].Description)
}

func TestQuoteDeleteCascadesItems(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	quote := testQuote("DEV-2025-001")
	quote.Items = []model.QuoteItem{
		{ID: uuid.New(), QuoteID: quote.ID, Description: "Audit", Quantity: decimal.NewFromInt(1), UnitPrice: model.MustMoney("10.00"), TaxRate: decimal.Zero},
	}
	require.NoError(t, repo.Create(ctx, db, quote))

	require.NoError(t, repo.Delete(ctx, quote.ID))

	_, err := repo.FindByID(ctx, quote.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&model.QuoteItem{}).Where("quote_id = ?", quote.ID).Count(&count).Error)
	assert.Zero(t, count)

	require.ErrorIs(t, repo.Delete(ctx, quote.ID), gorm.ErrRecordNotFound)
}

func TestQuoteDeleteItemReportsMissingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	quote := testQuote("DEV-2025-001")
	require.NoError(t, repo.Create(ctx, db, quote))

	err := repo.DeleteItem(ctx, db, quote.ID, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInvoiceUpdateDiscountAndTotals(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	invoice := testInvoice("FAC-2025-0001", nil)
	require.NoError(t, repo.Create(ctx, db, invoice))

	err := repo.UpdateDiscountAndTotals(ctx, db, invoice.ID,
		model.MustMoney("50.00"), model.MustMoney("150.00"), model.MustMoney("30.00"), model.MustMoney("180.00"))
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", found.Discount.String())
	assert.Equal(t, "150.00", found.TotalHT.String())
	assert.Equal(t, "30.00", found.TotalTVA.String())
	assert.Equal(t, "180.00", found.TotalTTC.String())
}

func TestInvoiceListFiltersByStatusYearClient(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	paid := testInvoice("FAC-2025-0001", nil)
	paid.Status = model.InvoiceStatusPaid
	require.NoError(t, repo.Create(ctx, db, paid))

	older := testInvoice("FAC-2024-0001", nil)
	older.IssueDate = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, db, older))

	byStatus, err := repo.List(ctx, InvoiceFilter{Status: model.InvoiceStatusPaid})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, paid.ID, byStatus[0].ID)

	byYear, err := repo.List(ctx, InvoiceFilter{Year: 2024})
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, older.ID, byYear[0].ID)

	byClient, err := repo.List(ctx, InvoiceFilter{ClientID: paid.ClientID})
	require.NoError(t, err)
	require.Len(t, byClient, 1)

	all, err := repo.List(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
