package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/atelierweb/billing-core/internal/model"
	"github.com/atelierweb/billing-core/internal/numbering"
)

// NumberScanner derives the "last used number" by scanning existing
// document rows inside the allocator's transaction. There is no counter
// table and no cross-request cache; see the numbering package.
type NumberScanner struct{}

func NewNumberScanner() *NumberScanner { return &NumberScanner{} }

func (s *NumberScanner) NumbersWithPrefix(ctx context.Context, tx *gorm.DB, kind numbering.Kind, prefix string) ([]string, error) {
	var table interface{}
	switch kind {
	case numbering.KindQuote:
		table = &model.Quote{}
	case numbering.KindInvoice:
		table = &model.Invoice{}
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}

	var numbers []string
	err := tx.WithContext(ctx).Model(table).
		Where("number LIKE ?", prefix+"%").
		Pluck("number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

var _ numbering.NumberScanner = (*NumberScanner)(nil)
