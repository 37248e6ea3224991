package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusInvoiced QuoteStatus = "invoiced"
)

// Quote is a priced proposal, convertible to an Invoice once accepted.
// Totals are cached and recomputed by the service layer on any line
// mutation; the number is assigned lazily on first persist.
type Quote struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Number     string      `gorm:"size:64;uniqueIndex:uq_quote_number" json:"number"`
	ClientID   uuid.UUID   `gorm:"type:uuid;index;not null" json:"client_id"`
	Client     *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Status     QuoteStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	IssueDate  time.Time   `gorm:"not null" json:"issue_date"`
	ValidUntil time.Time   `json:"valid_until"`
	Items      []QuoteItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	TotalHT    Money       `gorm:"type:numeric(18,2);not null;default:0" json:"total_ht"`
	TotalTVA   Money       `gorm:"type:numeric(18,2);not null;default:0" json:"total_tva"`
	TotalTTC   Money       `gorm:"type:numeric(18,2);not null;default:0" json:"total_ttc"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Quote) TableName() string { return "quotes" }

// QuoteItem is a single billable line on a quote. Insertion order is
// irrelevant to totals; Position only drives display.
type QuoteItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"quote_id"`
	ServiceRef  *string         `gorm:"size:100" json:"service_ref,omitempty"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,3);not null;default:1" json:"quantity"`
	UnitPrice   Money           `gorm:"type:numeric(18,2);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (QuoteItem) TableName() string { return "quote_items" }

func (item QuoteItem) TotalHT() Money {
	return lineHT(item.UnitPrice, item.Quantity)
}

func (item QuoteItem) TotalTVA() Money {
	return lineTVA(item.UnitPrice, item.Quantity, item.TaxRate)
}

func (item QuoteItem) TotalTTC() Money {
	return lineTTC(item.UnitPrice, item.Quantity, item.TaxRate)
}
