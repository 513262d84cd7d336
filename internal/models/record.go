package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind distinguishes the two searchable record families.
type RecordKind string

const (
	KindTicket   RecordKind = "ticket"
	KindPurchase RecordKind = "purchase"
)

// Record is one repair ticket or purchase order as returned by the record service.
type Record struct {
	ID            string
	Kind          RecordKind
	Code          string
	Status        string
	PaymentStatus string
	Condition     string
	CreatedAt     time.Time
	// ReceivedAt is when the device was received (tickets) or the purchase occurred.
	ReceivedAt    *time.Time
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	Customer      *Customer
	Device        *Device
	DeclaredFault string
}

// ComparisonDate is the instant used for date filtering.
func (r Record) ComparisonDate() time.Time {
	if r.ReceivedAt != nil && !r.ReceivedAt.IsZero() {
		return *r.ReceivedAt
	}
	return r.CreatedAt
}

// Balance is the amount still owed on the record.
func (r Record) Balance() decimal.Decimal {
	return r.TotalAmount.Sub(r.PaidAmount)
}

// Customer is the directory entry a record refers to.
type Customer struct {
	ID          string
	FirstName   string
	LastName    string
	CompanyName string
	Phone       string
	Email       string
}

// DisplayName prefers the company name, then "first last".
func (c *Customer) DisplayName() string {
	if c == nil {
		return ""
	}
	if name := strings.TrimSpace(c.CompanyName); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Device is the directory entry for the handset or appliance under repair.
type Device struct {
	ID           string
	Brand        string
	Model        string
	SerialNumber string
	IMEI         string
}

// DisplayName renders brand and model together.
func (d *Device) DisplayName() string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.Brand + " " + d.Model)
}
