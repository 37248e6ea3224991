package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Invoice is a billing document, optionally derived from a Quote.
// QuoteID is nullable: an invoice may exist without a quote. At most one
// invoice per quote; the conversion service enforces this transactionally
// on top of the unique index.
type Invoice struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Number    string        `gorm:"size:64;uniqueIndex:uq_invoice_number" json:"number"`
	QuoteID   *uuid.UUID    `gorm:"type:uuid;uniqueIndex:uq_invoice_quote_id" json:"quote_id,omitempty"`
	ClientID  uuid.UUID     `gorm:"type:uuid;index;not null" json:"client_id"`
	Client    *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Status    InvoiceStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	IssueDate time.Time     `gorm:"not null" json:"issue_date"`
	DueDate   time.Time     `json:"due_date"`
	Discount  Money         `gorm:"type:numeric(18,2);not null;default:0" json:"discount"`
	Items     []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	TotalHT   Money         `gorm:"type:numeric(18,2);not null;default:0" json:"total_ht"`
	TotalTVA  Money         `gorm:"type:numeric(18,2);not null;default:0" json:"total_tva"`
	TotalTTC  Money         `gorm:"type:numeric(18,2);not null;default:0" json:"total_ttc"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// Amount is the legacy-compatible alias equal to TotalTTC.
func (i *Invoice) Amount() Money { return i.TotalTTC }

type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"invoice_id"`
	ServiceRef  *string         `gorm:"size:100" json:"service_ref,omitempty"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,3);not null;default:1" json:"quantity"`
	UnitPrice   Money           `gorm:"type:numeric(18,2);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (item InvoiceItem) TotalHT() Money {
	return lineHT(item.UnitPrice, item.Quantity)
}

func (item InvoiceItem) TotalTVA() Money {
	return lineTVA(item.UnitPrice, item.Quantity, item.TaxRate)
}

func (item InvoiceItem) TotalTTC() Money {
	return lineTTC(item.UnitPrice, item.Quantity, item.TaxRate)
}
