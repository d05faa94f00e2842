package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusOverdue   = "overdue"
	PaymentStatusCancelled = "cancelled"
)

type Payment struct {
	gorm.Model
	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"user,omitempty" gorm:"foreignKey:UserID"`

	Title       string  `json:"title"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency" gorm:"type:varchar(3);default:TRY"` // TRY|USD|EUR
	Category    string  `json:"category" gorm:"type:varchar(16);default:dues"` // dues|electricity|water|gas|internet|other

	DueDate time.Time `json:"dueDate"`
	Status  string    `json:"status" gorm:"type:varchar(12);default:pending;index"`

	PaidAt        *time.Time `json:"paidAt"`
	PaymentMethod string     `json:"paymentMethod" gorm:"type:varchar(16)"` // credit_card|bank_transfer|cash|other
	TransactionID string     `json:"transactionID"`
	ReceiptURL    string     `json:"receiptURL"`
	Notes         string     `json:"notes"`

	IsRecurring     bool   `json:"isRecurring" gorm:"default:false"`
	RecurringPeriod string `json:"recurringPeriod" gorm:"type:varchar(12)"` // monthly|quarterly|yearly

	IsDeleted   bool `json:"isDeleted" gorm:"default:false;index"`
	CreatedByID uint `json:"createdByID"`
}

// PaymentTotals is the admin summary over all non-deleted payments.
type PaymentTotals struct {
	Count   int64   `json:"count"`
	Total   float64 `json:"total"`
	Paid    float64 `json:"paid"`
	Pending float64 `json:"pending"`
}
