package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierweb/billing-core/internal/model"
)

type InvoiceFilter struct {
	Status   model.InvoiceStatus
	Year     int
	ClientID uuid.UUID
}

type InvoiceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Invoice, error)
	ExistsForQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.InvoiceStatus) error
	UpdateDiscountAndTotals(ctx context.Context, tx *gorm.DB, id uuid.UUID, discount, ht, tva, ttc model.Money) error
	AddItem(ctx context.Context, tx *gorm.DB, item *model.InvoiceItem) error
	DeleteItem(ctx context.Context, tx *gorm.DB, invoiceID, itemID uuid.UUID) error
	List(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error)
	DB() *gorm.DB
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	return tx.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByIDTx(ctx, r.db, id)
}

func (r *invoiceRepo) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := tx.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) ExistsForQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (bool, error) {
	var inv model.Invoice
	err := tx.WithContext(ctx).
		Select("id").
		Where("quote_id = ?", quoteID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.InvoiceStatus) error {
	return tx.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *invoiceRepo) UpdateDiscountAndTotals(ctx context.Context, tx *gorm.DB, id uuid.UUID, discount, ht, tva, ttc model.Money) error {
	return tx.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"discount":  discount,
			"total_ht":  ht,
			"total_tva": tva,
			"total_ttc": ttc,
		}).Error
}

func (r *invoiceRepo) AddItem(ctx context.Context, tx *gorm.DB, item *model.InvoiceItem) error {
	return tx.WithContext(ctx).Create(item).Error
}

func (r *invoiceRepo) DeleteItem(ctx context.Context, tx *gorm.DB, invoiceID, itemID uuid.UUID) error {
	result := tx.WithContext(ctx).
		Where("id = ? AND invoice_id = ?", itemID, invoiceID).
		Delete(&model.InvoiceItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepo) List(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error) {
	q := r.db.WithContext(ctx).Model(&model.Invoice{}).Preload("Client")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Year != 0 {
		start := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("issue_date >= ? AND issue_date < ?", start, start.AddDate(1, 0, 0))
	}
	if filter.ClientID != uuid.Nil {
		q = q.Where("client_id = ?", filter.ClientID)
	}

	var invoices []model.Invoice
	if err := q.Order("number ASC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
