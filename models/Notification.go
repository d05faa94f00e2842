package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationPayment      = "payment"
	NotificationAnnouncement = "announcement"
	NotificationMessage      = "message"
	NotificationSystem       = "system"
	NotificationMaintenance  = "maintenance"
	NotificationSecurity     = "security"
	NotificationOther        = "other"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Notification struct {
	gorm.Model
	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"user,omitempty" gorm:"foreignKey:UserID"`

	Title   string `json:"title"`
	Message string `json:"message" gorm:"type:text"`
	Type    string `json:"type" gorm:"type:varchar(16);index"`

	// Tagged reference to the entity the notification points at. The owning
	// service resolves it; this component only stores the pair.
	RelatedID   *uint  `json:"relatedID" gorm:"index"`
	RelatedType string `json:"relatedType" gorm:"type:varchar(16)"` // payment|announcement|message|maintenance|security

	IsRead     bool       `json:"isRead" gorm:"default:false;index"`
	ReadAt     *time.Time `json:"readAt"`
	IsArchived bool       `json:"isArchived" gorm:"default:false"`
	Priority   string     `json:"priority" gorm:"type:varchar(8);default:medium"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

// Expired reports whether the notification has passed its expiry.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}
