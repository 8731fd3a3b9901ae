package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of a settlement invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// IsTerminal reports whether an invoice can no longer change state.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// RestaurantInvoice is a weekly settlement document aggregating a restaurant's
// completed cash-on-pickup orders. Immutable once paid or void.
type RestaurantInvoice struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	RestaurantID    uuid.UUID       `json:"restaurantId" db:"restaurant_id"`
	PeriodStart     time.Time       `json:"periodStart" db:"period_start"`
	PeriodEnd       time.Time       `json:"periodEnd" db:"period_end"`
	Status          InvoiceStatus   `json:"status" db:"status"`
	SubtotalSales   decimal.Decimal `json:"subtotalSales" db:"subtotal_sales"`
	CommissionRate  decimal.Decimal `json:"commissionRate" db:"commission_rate"`
	CommissionTotal decimal.Decimal `json:"commissionTotal" db:"commission_total"`
	OrdersCount     int             `json:"ordersCount" db:"orders_count"`
	PDFPath         *string         `json:"pdfPath,omitempty" db:"pdf_path"`
	Metadata        map[string]any  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// GenerationSummary reports the outcome of one invoice generation run.
// One restaurant's failure must not block the others, so errors accumulate.
type GenerationSummary struct {
	InvoicesCreated int      `json:"invoicesCreated"`
	OrdersProcessed int      `json:"ordersProcessed"`
	Errors          []string `json:"errors"`
}

// GenerateInvoicesRequest carries the settlement period bounds.
type GenerateInvoicesRequest struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}
