package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierweb/billing-core/internal/model"
)

type QuoteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, q *model.Quote) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Quote, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.QuoteStatus) error
	UpdateTotals(ctx context.Context, tx *gorm.DB, id uuid.UUID, ht, tva, ttc model.Money) error
	AddItem(ctx context.Context, tx *gorm.DB, item *model.QuoteItem) error
	DeleteItem(ctx context.Context, tx *gorm.DB, quoteID, itemID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DB() *gorm.DB // exposes the DB so the service layer can open transactions
}

type quoteRepo struct{ db *gorm.DB }

func NewQuoteRepository(db *gorm.DB) QuoteRepository { return &quoteRepo{db: db} }

func (r *quoteRepo) DB() *gorm.DB { return r.db }

func (r *quoteRepo) Create(ctx context.Context, tx *gorm.DB, q *model.Quote) error {
	return tx.WithContext(ctx).Create(q).Error
}

func (r *quoteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	return r.FindByIDTx(ctx, r.db, id)
}

func (r *quoteRepo) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Quote, error) {
	var q model.Quote
	err := tx.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&q, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *quoteRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.QuoteStatus) error {
	return tx.WithContext(ctx).Model(&model.Quote{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *quoteRepo) UpdateTotals(ctx context.Context, tx *gorm.DB, id uuid.UUID, ht, tva, ttc model.Money) error {
	return tx.WithContext(ctx).Model(&model.Quote{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_ht":  ht,
			"total_tva": tva,
			"total_ttc": ttc,
		}).Error
}

func (r *quoteRepo) AddItem(ctx context.Context, tx *gorm.DB, item *model.QuoteItem) error {
	return tx.WithContext(ctx).Create(item).Error
}

func (r *quoteRepo) DeleteItem(ctx context.Context, tx *gorm.DB, quoteID, itemID uuid.UUID) error {
	result := tx.WithContext(ctx).
		Where("id = ? AND quote_id = ?", itemID, quoteID).
		Delete(&model.QuoteItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the quote and cascades its line items.
func (r *quoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", id).Delete(&model.QuoteItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Quote{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
